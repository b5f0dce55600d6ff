package api

import (
	"github.com/gin-gonic/gin"
	"github.com/wfunc/so2r-switch/internal/hardware"
	"github.com/wfunc/so2r-switch/internal/service"
	ws "github.com/wfunc/so2r-switch/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Router API路由器
type Router struct {
	engine        *gin.Engine
	db            *gorm.DB
	sw            hardware.So2rSwitch
	switchHandler *SwitchHandler
	logAPI        *CommandLogAPI
	wsHandler     *WebSocketHandler
	log           *zap.Logger
}

// RouterOptions 路由器依赖
//
// DB和LogService可以为nil（数据库未启用时），对应接口返回未启用。
type RouterOptions struct {
	Switch     hardware.So2rSwitch
	Hub        *ws.Hub
	DB         *gorm.DB
	LogService *service.CommandLogService
	Mode       string
}

// NewRouter 创建路由器
func NewRouter(opts *RouterOptions, log *zap.Logger) *Router {
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}

	engine := gin.New()

	// 全局中间件
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	router := &Router{
		engine:        engine,
		db:            opts.DB,
		sw:            opts.Switch,
		switchHandler: NewSwitchHandler(opts.Switch, log),
		log:           log,
	}
	if opts.LogService != nil {
		router.logAPI = NewCommandLogAPI(opts.LogService)
	}
	if opts.Hub != nil {
		router.wsHandler = NewWebSocketHandler(opts.Hub, log)
	}

	router.setupRoutes()

	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	// API v1路由组
	v1 := r.engine.Group("/api/v1")
	{
		// 切换器控制
		r.switchHandler.RegisterRoutes(v1)

		// 命令日志（数据库启用时）
		if r.logAPI != nil {
			r.logAPI.RegisterRoutes(v1)
		}
	}

	// WebSocket事件镜像
	if r.wsHandler != nil {
		r.engine.GET("/ws", r.wsHandler.EventWebSocket)
	}

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"code":    "NOT_FOUND",
			"message": "接口不存在",
		})
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	if r.db != nil {
		sqlDB, err := r.db.DB()
		if err != nil || sqlDB.Ping() != nil {
			c.JSON(500, gin.H{
				"status":  "unhealthy",
				"message": "数据库连接失败",
			})
			return
		}
	}

	c.JSON(200, gin.H{
		"status":    "healthy",
		"message":   "服务运行正常",
		"connected": r.sw != nil && r.sw.IsConnected(),
	})
}

// Run 运行服务器
func (r *Router) Run(addr string) error {
	r.log.Info("启动API服务器", zap.String("address", addr))
	return r.engine.Run(addr)
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
