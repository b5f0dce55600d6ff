package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/so2r-switch/internal/logger"
	"github.com/wfunc/so2r-switch/internal/models"
	"github.com/wfunc/so2r-switch/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	flushInterval = 5 * time.Second
	flushBatch    = 100
)

// CommandLogService 命令日志服务
//
// 把切换器命令异步批量写入数据库，记录通道满时丢弃，
// 绝不反压命令路径。实现hardware.CommandRecorder。
type CommandLogService struct {
	repo      *repository.CommandLogRepository
	logger    *zap.Logger
	mu        sync.Mutex
	buffer    []*models.CommandLog
	bufferCh  chan *models.CommandLog
	stopCh    chan struct{}
	stopOnce  sync.Once
	sessionID string
}

// NewCommandLogService 创建命令日志服务，每个实例对应一个连接会话
func NewCommandLogService(db *gorm.DB) *CommandLogService {
	service := &CommandLogService{
		repo:      repository.NewCommandLogRepository(db),
		logger:    logger.GetModuleLogger("cmdlog"),
		buffer:    make([]*models.CommandLog, 0, flushBatch),
		bufferCh:  make(chan *models.CommandLog, 1000),
		stopCh:    make(chan struct{}),
		sessionID: uuid.New().String(),
	}

	// 启动后台写入协程
	go service.backgroundWriter()

	return service
}

// SessionID 当前连接会话ID
func (s *CommandLogService) SessionID() string {
	return s.sessionID
}

// RecordCommand 记录一条切换器命令（实现hardware.CommandRecorder）
func (s *CommandLogService) RecordCommand(direction, data, errMsg string) {
	log := &models.CommandLog{
		SessionID: s.sessionID,
		Direction: models.CommandDirection(direction),
		Command:   data,
		Success:   errMsg == "",
		ErrorMsg:  errMsg,
		CreatedAt: time.Now(),
	}

	select {
	case s.bufferCh <- log:
	default:
		// 记录通道满，丢弃而不是阻塞命令路径
		s.logger.Warn("命令日志缓冲区满，丢弃记录", zap.String("command", data))
	}
}

// backgroundWriter 后台写入协程
func (s *CommandLogService) backgroundWriter() {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case log := <-s.bufferCh:
			s.mu.Lock()
			s.buffer = append(s.buffer, log)
			// 缓冲区满立即写入
			if len(s.buffer) >= flushBatch {
				s.flushBuffer()
			}
			s.mu.Unlock()

		case <-ticker.C:
			s.mu.Lock()
			s.flushBuffer()
			s.mu.Unlock()

		case <-s.stopCh:
			// 退出前先收干通道再写入剩余日志
			s.mu.Lock()
			for {
				select {
				case log := <-s.bufferCh:
					s.buffer = append(s.buffer, log)
				default:
					s.flushBuffer()
					s.mu.Unlock()
					return
				}
			}
		}
	}
}

// flushBuffer 写入缓冲区日志到数据库（调用方持锁）
func (s *CommandLogService) flushBuffer() {
	if len(s.buffer) == 0 {
		return
	}

	if err := s.repo.CreateBatch(s.buffer); err != nil {
		s.logger.Error("批量写入命令日志失败", zap.Error(err))
	} else {
		s.logger.Debug("批量写入命令日志成功", zap.Int("count", len(s.buffer)))
	}

	s.buffer = s.buffer[:0]
}

// Flush 立即写入缓冲区日志
func (s *CommandLogService) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushBuffer()
}

// Query 按条件查询命令日志
func (s *CommandLogService) Query(query *repository.CommandLogQuery) ([]*models.CommandLog, int64, error) {
	return s.repo.Query(query)
}

// SessionLogs 查询当前会话的命令日志
func (s *CommandLogService) SessionLogs() ([]*models.CommandLog, error) {
	return s.repo.GetBySessionID(s.sessionID)
}

// Cleanup 删除保留期之前的日志
func (s *CommandLogService) Cleanup(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return s.repo.DeleteBefore(cutoff)
}

// Stop 停止后台写入并落盘剩余日志
func (s *CommandLogService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}
