package repository

import (
	"time"

	"github.com/wfunc/so2r-switch/internal/models"
	"gorm.io/gorm"
)

// CommandLogQuery 命令日志查询条件
type CommandLogQuery struct {
	SessionID string                  `form:"session_id"`
	Direction models.CommandDirection `form:"direction"`
	Command   string                  `form:"command"`
	HasError  *bool                   `form:"has_error"`
	StartTime *time.Time              `form:"start_time"`
	EndTime   *time.Time              `form:"end_time"`
	OrderBy   string                  `form:"order_by"`
	Limit     int                     `form:"limit"`
	Offset    int                     `form:"offset"`
}

// CommandLogRepository 命令日志仓库
type CommandLogRepository struct {
	db *gorm.DB
}

// NewCommandLogRepository 创建命令日志仓库
func NewCommandLogRepository(db *gorm.DB) *CommandLogRepository {
	return &CommandLogRepository{
		db: db,
	}
}

// Create 创建日志记录
func (r *CommandLogRepository) Create(log *models.CommandLog) error {
	return r.db.Create(log).Error
}

// CreateBatch 批量创建日志记录
func (r *CommandLogRepository) CreateBatch(logs []*models.CommandLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.db.CreateInBatches(logs, 100).Error
}

// GetByID 根据ID获取日志
func (r *CommandLogRepository) GetByID(id uint) (*models.CommandLog, error) {
	var log models.CommandLog
	err := r.db.First(&log, id).Error
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// GetBySessionID 根据会话ID获取日志
func (r *CommandLogRepository) GetBySessionID(sessionID string) ([]*models.CommandLog, error) {
	var logs []*models.CommandLog
	err := r.db.Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}

// Query 按条件查询日志
func (r *CommandLogRepository) Query(query *CommandLogQuery) ([]*models.CommandLog, int64, error) {
	db := r.db.Model(&models.CommandLog{})

	if query.SessionID != "" {
		db = db.Where("session_id = ?", query.SessionID)
	}
	if query.Direction != "" {
		db = db.Where("direction = ?", query.Direction)
	}
	if query.Command != "" {
		db = db.Where("command LIKE ?", "%"+query.Command+"%")
	}
	if query.HasError != nil {
		if *query.HasError {
			db = db.Where("success = ?", false)
		} else {
			db = db.Where("success = ?", true)
		}
	}
	if query.StartTime != nil {
		db = db.Where("created_at >= ?", *query.StartTime)
	}
	if query.EndTime != nil {
		db = db.Where("created_at <= ?", *query.EndTime)
	}

	// 获取总数
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 排序
	orderBy := query.OrderBy
	if orderBy == "" {
		orderBy = "created_at DESC"
	}
	db = db.Order(orderBy)

	// 分页
	if query.Limit > 0 {
		db = db.Limit(query.Limit)
	}
	if query.Offset > 0 {
		db = db.Offset(query.Offset)
	}

	var logs []*models.CommandLog
	if err := db.Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

// CountBySession 统计会话内的命令数和失败数
func (r *CommandLogRepository) CountBySession(sessionID string) (total int64, failed int64, err error) {
	db := r.db.Model(&models.CommandLog{}).Where("session_id = ?", sessionID)
	if err = db.Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err = db.Where("success = ?", false).Count(&failed).Error
	return total, failed, err
}

// DeleteBefore 删除指定时间之前的日志（保留期清理）
func (r *CommandLogRepository) DeleteBefore(cutoff time.Time) (int64, error) {
	result := r.db.Unscoped().
		Where("created_at < ?", cutoff).
		Delete(&models.CommandLog{})
	return result.RowsAffected, result.Error
}
