package hardware

import (
	"time"
)

// Radio 电台编号（SO2R固定为两部电台）
type Radio uint8

const (
	Radio1 Radio = 1 // 电台1
	Radio2 Radio = 2 // 电台2
)

// Valid 检查电台编号是否合法
func (r Radio) Valid() bool {
	return r == Radio1 || r == Radio2
}

// String 实现Stringer接口
func (r Radio) String() string {
	switch r {
	case Radio1:
		return "radio1"
	case Radio2:
		return "radio2"
	default:
		return "unknown"
	}
}

// RxMode 接收音频路由模式
type RxMode uint8

const (
	RxModeMono          RxMode = 0 // 单声道：选中电台双耳
	RxModeStereo        RxMode = 1 // 立体声：电台1左耳，电台2右耳
	RxModeReverseStereo RxMode = 2 // 反向立体声：电台1右耳，电台2左耳
)

// Valid 检查接收模式是否合法
func (m RxMode) Valid() bool {
	return m <= RxModeReverseStereo
}

// String 实现Stringer接口
func (m RxMode) String() string {
	switch m {
	case RxModeMono:
		return "mono"
	case RxModeStereo:
		return "stereo"
	case RxModeReverseStereo:
		return "reverse_stereo"
	default:
		return "unknown"
	}
}

// SwitchEventType 切换器事件类型
type SwitchEventType string

const (
	EventConnected    SwitchEventType = "connected"    // 已连接
	EventDisconnected SwitchEventType = "disconnected" // 已断开
	EventTxChanged    SwitchEventType = "tx_changed"   // 发射焦点切换
	EventRxChanged    SwitchEventType = "rx_changed"   // 接收路由切换
	EventAuxChanged   SwitchEventType = "aux_changed"  // AUX输出变更
)

// SwitchEvent 切换器事件
//
// 事件由本库在命令成功或链路状态变化时合成，OTRSP设备本身
// 不会主动上报任何数据（只有被查询时才应答）。
type SwitchEvent struct {
	Type      SwitchEventType `json:"type"`
	Radio     Radio           `json:"radio,omitempty"`
	Mode      RxMode          `json:"mode"`
	Port      uint8           `json:"port"`
	Value     uint8           `json:"value"`
	Timestamp time.Time       `json:"timestamp"`
}

// OTRSPConfig OTRSP控制器配置
type OTRSPConfig struct {
	Port           string        // 串口端口
	BaudRate       int           // 波特率
	ReadTimeout    time.Duration // 查询命令的响应超时
	CommandTimeout time.Duration // 提交到应答的整体超时
	DrainIdle      time.Duration // 残留字节清理的单次空闲判定
	DrainWindow    time.Duration // 残留字节清理的总时间窗
	QueueSize      int           // 命令队列深度
	QueryName      bool          // 连接时查询设备名称
}

// DefaultOTRSPConfig 默认配置
//
// OTRSP规定9600波特率、8数据位、无校验、1停止位、无流控。
func DefaultOTRSPConfig() *OTRSPConfig {
	return &OTRSPConfig{
		Port:           "/dev/ttyUSB0",
		BaudRate:       9600,
		ReadTimeout:    1 * time.Second,
		CommandTimeout: 5 * time.Second,
		DrainIdle:      20 * time.Millisecond,
		DrainWindow:    200 * time.Millisecond,
		QueueSize:      32,
		QueryName:      true,
	}
}
