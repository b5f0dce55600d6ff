package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/so2r-switch/internal/models"
	"github.com/wfunc/so2r-switch/internal/repository"
	"github.com/wfunc/so2r-switch/internal/service"
)

// CommandLogAPI 命令日志API
type CommandLogAPI struct {
	service *service.CommandLogService
}

// NewCommandLogAPI 创建命令日志API
func NewCommandLogAPI(service *service.CommandLogService) *CommandLogAPI {
	return &CommandLogAPI{
		service: service,
	}
}

// RegisterRoutes 注册路由
func (api *CommandLogAPI) RegisterRoutes(router *gin.RouterGroup) {
	logs := router.Group("/command-logs")
	{
		logs.GET("", api.QueryLogs)            // 查询日志列表
		logs.GET("/session", api.SessionLogs)  // 获取当前会话日志
		logs.POST("/cleanup", api.CleanupLogs) // 清理旧日志
	}
}

// QueryLogs 查询日志列表
func (api *CommandLogAPI) QueryLogs(c *gin.Context) {
	query := &repository.CommandLogQuery{}

	query.SessionID = c.Query("session_id")
	if direction := c.Query("direction"); direction != "" {
		query.Direction = models.CommandDirection(direction)
	}
	query.Command = c.Query("command")

	if hasError := c.Query("has_error"); hasError != "" {
		if v, err := strconv.ParseBool(hasError); err == nil {
			query.HasError = &v
		}
	}

	// 时间范围
	if startTime := c.Query("start_time"); startTime != "" {
		if t, err := time.Parse(time.RFC3339, startTime); err == nil {
			query.StartTime = &t
		}
	}
	if endTime := c.Query("end_time"); endTime != "" {
		if t, err := time.Parse(time.RFC3339, endTime); err == nil {
			query.EndTime = &t
		}
	}

	// 分页
	query.Limit = 100
	if limit := c.Query("limit"); limit != "" {
		if v, err := strconv.Atoi(limit); err == nil && v > 0 && v <= 1000 {
			query.Limit = v
		}
	}
	if offset := c.Query("offset"); offset != "" {
		if v, err := strconv.Atoi(offset); err == nil && v >= 0 {
			query.Offset = v
		}
	}

	logs, total, err := api.service.Query(query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "查询命令日志失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"total":   total,
		"data":    logs,
	})
}

// SessionLogs 获取当前连接会话的日志
func (api *CommandLogAPI) SessionLogs(c *gin.Context) {
	logs, err := api.service.SessionLogs()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "查询会话日志失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"session_id": api.service.SessionID(),
		"data":       logs,
	})
}

// CleanupLogs 清理保留期之前的日志
func (api *CommandLogAPI) CleanupLogs(c *gin.Context) {
	days := 7
	if d := c.Query("days"); d != "" {
		if v, err := strconv.Atoi(d); err == nil && v > 0 {
			days = v
		}
	}

	deleted, err := api.service.Cleanup(days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "清理命令日志失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"deleted": deleted,
		"days":    days,
	})
}
