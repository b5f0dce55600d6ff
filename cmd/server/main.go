package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/wfunc/so2r-switch/internal/api"
	"github.com/wfunc/so2r-switch/internal/config"
	"github.com/wfunc/so2r-switch/internal/database"
	"github.com/wfunc/so2r-switch/internal/errors"
	"github.com/wfunc/so2r-switch/internal/hardware"
	"github.com/wfunc/so2r-switch/internal/logger"
	"github.com/wfunc/so2r-switch/internal/service"
	ws "github.com/wfunc/so2r-switch/internal/websocket"
	"go.uber.org/zap"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Server 服务器实例
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	// 服务组件
	controller *hardware.OTRSPController
	hub        *ws.Hub
	eventSub   *hardware.Subscription
	logService *service.CommandLogService
	httpServer *http.Server

	// 关闭控制
	shutdownCh chan struct{}
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

func main() {
	// 命令行参数
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
		showHelp    = flag.Bool("help", false, "显示帮助信息")
	)

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	// 加载配置
	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Get()

	// 初始化日志系统
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	// 设置系统参数
	setupSystem(&cfg.System)

	// 创建服务器实例
	server := NewServer(cfg)

	// 启动服务器
	if err := server.Start(); err != nil {
		logger.Fatal("服务器启动失败", zap.Error(err))
	}

	// 等待退出信号
	server.WaitForShutdown()

	// 优雅关闭
	if err := server.Shutdown(); err != nil {
		logger.Error("服务器关闭失败", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("服务器已安全关闭")
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		cfg:        cfg,
		logger:     logger.GetLogger(),
		shutdownCh: make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("正在启动SO2R切换器控制服务...",
		zap.String("version", Version),
		zap.String("mode", s.cfg.Server.Mode),
	)

	if err := s.initDatabase(); err != nil {
		return err
	}

	if err := s.initSwitch(); err != nil {
		return err
	}

	s.startEventMirror()
	s.startHTTPServer()

	// 监听配置变化
	config.Watch(func(newCfg *config.Config) {
		s.logger.Info("配置已更新，正在重新加载...")
		s.cfg = newCfg
	})

	s.logger.Info("服务器启动成功",
		zap.String("http", fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)),
		zap.String("serial", s.cfg.Serial.Port),
		zap.Bool("mock", s.cfg.Serial.MockMode),
	)

	return nil
}

// initDatabase 初始化数据库（可选组件）
func (s *Server) initDatabase() error {
	if !s.cfg.Database.Enabled {
		s.logger.Info("数据库未启用，命令日志不落盘")
		return nil
	}

	if err := database.Init(&s.cfg.Database); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseConnect, "初始化数据库连接失败")
	}

	if !database.IsConnected() {
		return errors.New(errors.ErrDatabaseConnect, "数据库连接检查失败")
	}

	s.logger.Info("数据库初始化完成")
	return nil
}

// initSwitch 初始化切换器并建立链路
func (s *Server) initSwitch() error {
	otrspCfg := &hardware.OTRSPConfig{
		Port:           s.cfg.Serial.Port,
		BaudRate:       s.cfg.Serial.BaudRate,
		ReadTimeout:    s.cfg.Serial.ReadTimeout,
		CommandTimeout: s.cfg.Serial.CommandTimeout,
		DrainIdle:      s.cfg.Serial.DrainIdle,
		DrainWindow:    s.cfg.Serial.DrainWindow,
		QueueSize:      s.cfg.Serial.QueueSize,
		QueryName:      s.cfg.Serial.QueryName,
	}

	if s.cfg.Serial.MockMode || !s.cfg.Serial.Enabled {
		s.logger.Warn("使用模拟串口运行")
		s.controller = hardware.NewOTRSPControllerWithPort(otrspCfg, hardware.NewMockPort())
	} else {
		s.controller = hardware.NewOTRSPController(otrspCfg)
	}

	// 命令日志落盘
	if s.cfg.Serial.CommandLog && database.IsConnected() {
		s.logService = service.NewCommandLogService(database.GetDB())
		s.controller.SetRecorder(s.logService)
		s.logger.Info("命令日志已启用",
			zap.String("session_id", s.logService.SessionID()))
	}

	if err := s.controller.Connect(); err != nil {
		return err
	}

	s.logger.Info("切换器链路已建立",
		zap.String("name", s.controller.Name()))
	return nil
}

// startEventMirror 启动WebSocket事件镜像
func (s *Server) startEventMirror() {
	s.hub = ws.NewHub(s.controller, logger.GetModuleLogger("websocket"))
	go s.hub.Run()

	s.eventSub = s.controller.Subscribe()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.hub.MirrorEvents(s.eventSub)
	}()
}

// startHTTPServer 启动HTTP控制接口
func (s *Server) startHTTPServer() {
	router := api.NewRouter(&api.RouterOptions{
		Switch:     s.controller,
		Hub:        s.hub,
		DB:         database.GetDB(),
		LogService: s.logService,
		Mode:       s.cfg.Server.Mode,
	}, logger.GetModuleLogger("api"))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP服务器异常退出", zap.Error(err))
		}
	}()
}

// WaitForShutdown 等待关闭信号
func (s *Server) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh,
		syscall.SIGINT,  // Ctrl+C
		syscall.SIGTERM, // kill命令
		syscall.SIGQUIT, // Ctrl+\
	)

	sig := <-sigCh
	s.logger.Info("收到退出信号", zap.String("signal", sig.String()))

	close(s.shutdownCh)
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown() error {
	s.logger.Info("正在优雅关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	// 停止接收新请求
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("HTTP服务器关闭超时", zap.Error(err))
		}
	}

	// 断开切换器链路（链路发布终程断开事件）
	if s.controller != nil {
		if err := s.controller.Disconnect(); err != nil {
			s.logger.Error("断开切换器失败", zap.Error(err))
		}
	}

	// 停止事件镜像
	if s.eventSub != nil {
		s.eventSub.Close()
	}

	s.cancel()

	// 等待后台协程退出
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("所有服务已正常关闭")
	case <-shutdownCtx.Done():
		s.logger.Warn("关闭超时，强制退出")
		return errors.New(errors.ErrTimeout, "关闭超时")
	}

	// 落盘剩余命令日志并关闭组件
	if s.logService != nil {
		s.logService.Stop()
	}
	if err := database.Close(); err != nil {
		s.logger.Error("关闭数据库失败", zap.Error(err))
	}

	if err := logger.Sync(); err != nil {
		fmt.Printf("同步日志失败: %v\n", err)
	}

	return nil
}

// setupSystem 设置系统参数
func setupSystem(cfg *config.SystemConfig) {
	// 设置时区
	if cfg.Timezone != "" {
		if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
			time.Local = loc
		}
	}

	// 设置最大处理器数
	if cfg.MaxProcs > 0 {
		runtime.GOMAXPROCS(cfg.MaxProcs)
	}

	// 设置文件描述符限制（Unix系统）
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err == nil {
		rLimit.Cur = rLimit.Max
		syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	}
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("SO2R切换器控制服务\n")
	fmt.Printf("版本: %s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git提交: %s\n", GitCommit)
	fmt.Printf("Go版本: %s\n", runtime.Version())
	fmt.Printf("操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("SO2R切换器控制服务")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  so2r-switch-server [选项]")
	fmt.Println()
	fmt.Println("选项:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("环境变量:")
	fmt.Println("  SO2R_SWITCH_SERIAL_PORT      串口端口")
	fmt.Println("  SO2R_SWITCH_SERVER_PORT      HTTP监听端口")
	fmt.Println("  SO2R_SWITCH_LOG_LEVEL        日志级别")
}
