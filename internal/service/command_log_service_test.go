package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/so2r-switch/internal/models"
	"github.com/wfunc/so2r-switch/internal/repository"
)

func TestCommandLogServiceRecordsAsync(t *testing.T) {
	db := repository.SetupTestDB()
	svc := NewCommandLogService(db)
	defer svc.Stop()

	svc.RecordCommand("write", "TX1", "")
	svc.RecordCommand("query", "?AUX1", "等待设备响应超时")

	// 后台写入是异步的，轮询刷盘直到可见
	require.Eventually(t, func() bool {
		svc.Flush()
		logs, err := svc.SessionLogs()
		return err == nil && len(logs) == 2
	}, 2*time.Second, 20*time.Millisecond, "命令日志未落盘")

	logs, err := svc.SessionLogs()
	require.NoError(t, err)
	assert.Equal(t, "TX1", logs[0].Command)
	assert.True(t, logs[0].Success)
	assert.Equal(t, models.CommandDirectionQuery, logs[1].Direction)
	assert.False(t, logs[1].Success)
	assert.Equal(t, "等待设备响应超时", logs[1].ErrorMsg)
}

func TestCommandLogServiceStopFlushesRemaining(t *testing.T) {
	db := repository.SetupTestDB()
	svc := NewCommandLogService(db)

	for i := 0; i < 10; i++ {
		svc.RecordCommand("write", "TX1", "")
	}
	svc.Stop()

	require.Eventually(t, func() bool {
		logs, err := svc.SessionLogs()
		return err == nil && len(logs) == 10
	}, 2*time.Second, 20*time.Millisecond, "停止时应落盘剩余日志")
}

func TestCommandLogServiceSessionsIsolated(t *testing.T) {
	db := repository.SetupTestDB()
	first := NewCommandLogService(db)
	second := NewCommandLogService(db)
	defer first.Stop()
	defer second.Stop()

	assert.NotEqual(t, first.SessionID(), second.SessionID())

	first.RecordCommand("write", "TX1", "")

	require.Eventually(t, func() bool {
		first.Flush()
		logs, err := first.SessionLogs()
		return err == nil && len(logs) == 1
	}, 2*time.Second, 20*time.Millisecond)

	logs, err := second.SessionLogs()
	require.NoError(t, err)
	assert.Empty(t, logs)
}
