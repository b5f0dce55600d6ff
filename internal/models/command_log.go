package models

import (
	"time"

	"gorm.io/gorm"
)

// CommandDirection 命令方向
type CommandDirection string

const (
	CommandDirectionWrite CommandDirection = "write" // 只写命令
	CommandDirectionQuery CommandDirection = "query" // 带应答的查询
)

// CommandLog 切换器命令日志
//
// 记录每条发往OTRSP设备的命令及其结果，按会话分组，
// 用于排查链路问题和审计操作历史。
type CommandLog struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time      `gorm:"index;not null" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// 会话信息
	SessionID string `gorm:"type:varchar(36);index;not null" json:"session_id"` // 连接会话ID

	// 命令内容
	Direction CommandDirection `gorm:"type:varchar(10);index;not null" json:"direction"` // 方向 (write/query)
	Command   string           `gorm:"type:varchar(255);index" json:"command"`           // 命令文本（不含结尾回车）

	// 执行结果
	Success  bool   `gorm:"index;default:true" json:"success"`
	ErrorMsg string `gorm:"type:varchar(255)" json:"error_msg,omitempty"`
}

// TableName 指定表名
func (CommandLog) TableName() string {
	return "command_logs"
}
