package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/so2r-switch/internal/errors"
	"github.com/wfunc/so2r-switch/internal/hardware"
	"go.uber.org/zap"
)

// SwitchHandler 切换器控制API
type SwitchHandler struct {
	sw     hardware.So2rSwitch
	logger *zap.Logger
}

// NewSwitchHandler 创建切换器控制API
func NewSwitchHandler(sw hardware.So2rSwitch, logger *zap.Logger) *SwitchHandler {
	return &SwitchHandler{
		sw:     sw,
		logger: logger,
	}
}

// RegisterRoutes 注册路由
func (h *SwitchHandler) RegisterRoutes(router *gin.RouterGroup) {
	sw := router.Group("/switch")
	{
		sw.GET("/status", h.GetStatus)
		sw.GET("/capabilities", h.GetCapabilities)
		sw.GET("/name", h.QueryName)
		sw.GET("/aux/:port", h.QueryAux)

		sw.POST("/connect", h.Connect)
		sw.POST("/disconnect", h.Disconnect)
		sw.POST("/tx", h.SetTx)
		sw.POST("/rx", h.SetRx)
		sw.POST("/aux", h.SetAux)
		sw.POST("/raw", h.SendRaw)
	}
}

// respondError 统一错误应答
func (h *SwitchHandler) respondError(c *gin.Context, err error) {
	appErr, ok := err.(*errors.AppError)
	if !ok {
		appErr = errors.Wrap(err, errors.ErrUnknown)
	}
	c.JSON(appErr.HTTPStatus(), errors.NewErrorResponse(appErr, c.GetHeader("X-Request-ID")))
}

// txRequest 发射焦点请求
type txRequest struct {
	Radio uint8 `json:"radio" binding:"required,min=1,max=2"`
}

// rxRequest 接收路由请求
type rxRequest struct {
	Radio uint8  `json:"radio" binding:"required,min=1,max=2"`
	Mode  string `json:"mode" binding:"omitempty,oneof=mono stereo reverse_stereo"`
}

// auxRequest AUX输出请求
type auxRequest struct {
	Port  *uint8 `json:"port" binding:"required"`
	Value *uint8 `json:"value" binding:"required"`
}

// rawRequest 透传命令请求
type rawRequest struct {
	Command string `json:"command" binding:"required"`
}

// Connect 建立切换器连接
func (h *SwitchHandler) Connect(c *gin.Context) {
	if err := h.sw.Connect(); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "name": h.sw.Name()})
}

// Disconnect 断开切换器连接
func (h *SwitchHandler) Disconnect(c *gin.Context) {
	if err := h.sw.Disconnect(); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetStatus 获取切换器状态
func (h *SwitchHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": h.sw.Status()})
}

// GetCapabilities 获取切换器能力
func (h *SwitchHandler) GetCapabilities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": h.sw.Capabilities()})
}

// QueryName 向设备查询名称
func (h *SwitchHandler) QueryName(c *gin.Context) {
	name, err := h.sw.QueryName()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "name": name})
}

// SetTx 切换发射焦点
func (h *SwitchHandler) SetTx(c *gin.Context) {
	var req txRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errors.Wrap(err, errors.ErrInvalidParameter))
		return
	}

	if err := h.sw.SetTx(hardware.Radio(req.Radio)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SetRx 切换接收路由
func (h *SwitchHandler) SetRx(c *gin.Context) {
	var req rxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errors.Wrap(err, errors.ErrInvalidParameter))
		return
	}

	mode := hardware.RxModeMono
	switch req.Mode {
	case "", "mono":
	case "stereo":
		mode = hardware.RxModeStereo
	case "reverse_stereo":
		mode = hardware.RxModeReverseStereo
	}

	if err := h.sw.SetRx(hardware.Radio(req.Radio), mode); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SetAux 设置AUX输出
func (h *SwitchHandler) SetAux(c *gin.Context) {
	var req auxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errors.Wrap(err, errors.ErrInvalidParameter))
		return
	}

	if err := h.sw.SetAux(*req.Port, *req.Value); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// QueryAux 查询AUX端口当前值
func (h *SwitchHandler) QueryAux(c *gin.Context) {
	var uri struct {
		Port uint8 `uri:"port" binding:"min=0,max=9"`
	}
	if err := c.ShouldBindUri(&uri); err != nil {
		h.respondError(c, errors.Wrap(err, errors.ErrInvalidParameter))
		return
	}

	value, err := h.sw.QueryAux(uri.Port)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "port": uri.Port, "value": value})
}

// SendRaw 透传任意OTRSP命令
func (h *SwitchHandler) SendRaw(c *gin.Context) {
	var req rawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errors.Wrap(err, errors.ErrInvalidParameter))
		return
	}

	if err := h.sw.SendRaw(req.Command); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
