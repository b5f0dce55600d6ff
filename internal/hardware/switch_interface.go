package hardware

import "time"

// So2rSwitch SO2R切换器控制接口
type So2rSwitch interface {
	// 连接管理
	Connect() error
	Disconnect() error
	IsConnected() bool

	// 发射与接收切换
	SetTx(radio Radio) error
	SetRx(radio Radio, mode RxMode) error

	// AUX输出
	SetAux(port, value uint8) error
	QueryAux(port uint8) (uint8, error)

	// 设备信息
	QueryName() (string, error)
	Name() string
	Capabilities() SwitchCapabilities
	Status() *SwitchStatus

	// 扩展命令透传
	SendRaw(text string) error

	// 事件订阅
	Subscribe() *Subscription
}

// SwitchCapabilities 切换器能力描述
type SwitchCapabilities struct {
	Stereo        bool `json:"stereo"`         // 支持立体声接收
	ReverseStereo bool `json:"reverse_stereo"` // 支持反向立体声接收
	AuxPorts      int  `json:"aux_ports"`      // AUX端口数量
}

// DefaultCapabilities 常见OTRSP设备的能力
func DefaultCapabilities() SwitchCapabilities {
	return SwitchCapabilities{
		Stereo:        true,
		ReverseStereo: true,
		AuxPorts:      2,
	}
}

// SwitchStatus 切换器状态快照
type SwitchStatus struct {
	Connected       bool            `json:"connected"`
	Name            string          `json:"name"`
	TxFocus         Radio           `json:"tx_focus"`
	RxRadio         Radio           `json:"rx_radio"`
	RxMode          RxMode          `json:"rx_mode"`
	AuxValues       map[uint8]uint8 `json:"aux_values"`
	LastCommand     string          `json:"last_command"`
	LastCommandTime time.Time       `json:"last_command_time"`
	ErrorCount      int             `json:"error_count"`
}

// CommandRecorder 命令记录回调（可选，用于持久化命令日志）
type CommandRecorder interface {
	RecordCommand(direction string, data string, errMsg string)
}
