package hardware

import (
	"strings"
	"sync"
	"time"

	"github.com/wfunc/so2r-switch/internal/errors"
	"github.com/wfunc/so2r-switch/internal/logger"
	"go.uber.org/zap"
)

// unknownDeviceName 名称查询超时时的占位名称
const unknownDeviceName = "Unknown"

var _ So2rSwitch = (*OTRSPController)(nil)

// OTRSPController OTRSP切换器控制器
//
// 对上提供线程安全的命令接口，对下通过链路协程独占串口。
// 本结构只维护状态镜像，所有串口I/O都由链路协程顺序执行。
type OTRSPController struct {
	config *OTRSPConfig
	bus    *EventBus
	logger *zap.Logger

	mu        sync.RWMutex
	port      SerialPort // 预注入端口（模拟模式），nil时按配置打开真实串口
	actor     *LinkActor
	connected bool
	status    *SwitchStatus
	recorder  CommandRecorder
}

// NewOTRSPController 创建控制器，连接时按配置打开真实串口
func NewOTRSPController(config *OTRSPConfig) *OTRSPController {
	return newController(config, nil)
}

// NewOTRSPControllerWithPort 创建控制器并注入串口实现
//
// 用于模拟模式和测试。注入的端口在Connect时交给链路协程接管。
func NewOTRSPControllerWithPort(config *OTRSPConfig, port SerialPort) *OTRSPController {
	return newController(config, port)
}

func newController(config *OTRSPConfig, port SerialPort) *OTRSPController {
	if config == nil {
		config = DefaultOTRSPConfig()
	}
	return &OTRSPController{
		config: config,
		bus:    NewEventBus(),
		logger: logger.GetModuleLogger("otrsp"),
		port:   port,
		status: &SwitchStatus{
			AuxValues: make(map[uint8]uint8),
		},
	}
}

// SetRecorder 设置命令记录器（连接前调用）
func (c *OTRSPController) SetRecorder(r CommandRecorder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recorder = r
}

// Connect 建立链路并可选查询设备名称
//
// 名称查询超时不视为失败，设备名记为Unknown（部分OTRSP
// 设备不实现?NAME）；其他错误则断开并返回。
func (c *OTRSPController) Connect() error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return errors.New(errors.ErrDeviceBusy, "设备已连接")
	}

	port := c.port
	if port == nil {
		p, err := OpenSerialPort(c.config.Port, c.config.BaudRate)
		if err != nil {
			c.mu.Unlock()
			return err
		}
		port = p
	}

	actor := StartLinkActor(port, c.bus, c.config)
	c.actor = actor
	c.connected = true
	c.status.Connected = true
	c.mu.Unlock()

	name := unknownDeviceName
	if c.config.QueryName {
		line, err := actor.SubmitRead(EncodeQueryName())
		switch {
		case err == nil:
			name = ParseNameResponse(line)
			if name == "" {
				name = unknownDeviceName
			}
		case errors.GetCode(err) == errors.ErrReadTimeout:
			c.logger.Warn("设备名称查询超时，使用占位名称")
		default:
			c.logger.Error("设备名称查询失败", zap.Error(err))
			c.teardown()
			return err
		}
	}

	c.mu.Lock()
	c.status.Name = name
	c.mu.Unlock()

	c.logger.Info("切换器已连接",
		zap.String("name", name),
		zap.String("port", c.config.Port))
	c.bus.Publish(SwitchEvent{Type: EventConnected})
	return nil
}

// Disconnect 优雅断开链路
//
// 链路退出时会发布终程断开事件（整个连接周期内至多一次）。
func (c *OTRSPController) Disconnect() error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	c.teardown()
	c.logger.Info("切换器已断开")
	return nil
}

// teardown 停止链路协程并等待退出
func (c *OTRSPController) teardown() {
	c.mu.Lock()
	actor := c.actor
	c.actor = nil
	c.connected = false
	c.status.Connected = false
	c.mu.Unlock()

	if actor != nil {
		actor.Shutdown()
		<-actor.Done()
	}
}

// IsConnected 链路是否可用
func (c *OTRSPController) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.actor != nil
}

// currentActor 取当前链路，未连接时报错
func (c *OTRSPController) currentActor() (*LinkActor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.connected || c.actor == nil {
		return nil, errors.New(errors.ErrNotConnected)
	}
	return c.actor, nil
}

// submit 发送只写命令并维护状态镜像
func (c *OTRSPController) submit(data []byte) error {
	actor, err := c.currentActor()
	if err != nil {
		return err
	}

	err = actor.Submit(data)
	c.trackCommand("write", data, err)
	return err
}

// submitRead 发送查询命令并返回应答行
func (c *OTRSPController) submitRead(data []byte) (string, error) {
	actor, err := c.currentActor()
	if err != nil {
		return "", err
	}

	line, err := actor.SubmitRead(data)
	c.trackCommand("query", data, err)
	return line, err
}

// trackCommand 更新状态镜像并通知命令记录器
func (c *OTRSPController) trackCommand(direction string, data []byte, err error) {
	command := strings.TrimRight(string(data), "\r\n")

	c.mu.Lock()
	c.status.LastCommand = command
	c.status.LastCommandTime = time.Now()
	if err != nil {
		c.status.ErrorCount++
	}
	recorder := c.recorder
	c.mu.Unlock()

	if recorder != nil {
		errMsg := ""
		if err != nil {
			errMsg = err.Error()
		}
		recorder.RecordCommand(direction, command, errMsg)
	}
}

// SetTx 切换发射焦点
func (c *OTRSPController) SetTx(radio Radio) error {
	data, err := EncodeTX(radio)
	if err != nil {
		return err
	}
	if err := c.submit(data); err != nil {
		return err
	}

	c.mu.Lock()
	c.status.TxFocus = radio
	c.mu.Unlock()

	c.bus.Publish(SwitchEvent{Type: EventTxChanged, Radio: radio})
	return nil
}

// SetRx 切换接收路由
func (c *OTRSPController) SetRx(radio Radio, mode RxMode) error {
	data, err := EncodeRX(radio, mode)
	if err != nil {
		return err
	}
	if err := c.submit(data); err != nil {
		return err
	}

	c.mu.Lock()
	c.status.RxRadio = radio
	c.status.RxMode = mode
	c.mu.Unlock()

	c.bus.Publish(SwitchEvent{Type: EventRxChanged, Radio: radio, Mode: mode})
	return nil
}

// SetAux 设置AUX端口输出
func (c *OTRSPController) SetAux(port, value uint8) error {
	data, err := EncodeAux(port, value)
	if err != nil {
		return err
	}
	if err := c.submit(data); err != nil {
		return err
	}

	c.mu.Lock()
	c.status.AuxValues[port] = value
	c.mu.Unlock()

	c.bus.Publish(SwitchEvent{Type: EventAuxChanged, Port: port, Value: value})
	return nil
}

// QueryAux 查询AUX端口当前值
//
// 应答端口与请求端口不一致视为协议错误，错误信息同时给出两个端口号。
func (c *OTRSPController) QueryAux(port uint8) (uint8, error) {
	data, err := EncodeQueryAux(port)
	if err != nil {
		return 0, err
	}

	line, err := c.submitRead(data)
	if err != nil {
		return 0, err
	}

	gotPort, value, err := ParseAuxResponse(line)
	if err != nil {
		return 0, err
	}
	if gotPort != port {
		return 0, errors.Newf(errors.ErrProtocol,
			"AUX应答端口不匹配: 请求端口%d, 应答端口%d", port, gotPort)
	}

	c.mu.Lock()
	c.status.AuxValues[port] = value
	c.mu.Unlock()
	return value, nil
}

// QueryName 向设备查询名称并更新状态镜像
func (c *OTRSPController) QueryName() (string, error) {
	line, err := c.submitRead(EncodeQueryName())
	if err != nil {
		return "", err
	}

	name := ParseNameResponse(line)
	if name == "" {
		name = unknownDeviceName
	}

	c.mu.Lock()
	c.status.Name = name
	c.mu.Unlock()
	return name, nil
}

// Name 连接时探测到的设备名称
func (c *OTRSPController) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status.Name
}

// Capabilities 返回切换器能力
func (c *OTRSPController) Capabilities() SwitchCapabilities {
	return DefaultCapabilities()
}

// Status 返回状态快照
func (c *OTRSPController) Status() *SwitchStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	aux := make(map[uint8]uint8, len(c.status.AuxValues))
	for k, v := range c.status.AuxValues {
		aux[k] = v
	}
	snapshot := *c.status
	snapshot.AuxValues = aux
	return &snapshot
}

// SendRaw 透传任意OTRSP命令，自动追加回车
func (c *OTRSPController) SendRaw(text string) error {
	return c.submit(EncodeRaw(text))
}

// Subscribe 订阅切换器事件
func (c *OTRSPController) Subscribe() *Subscription {
	return c.bus.Subscribe()
}

// Cancel 强制终止链路（外部取消信号，优先于排队命令）
func (c *OTRSPController) Cancel() {
	c.mu.RLock()
	actor := c.actor
	c.mu.RUnlock()
	if actor != nil {
		actor.Cancel()
	}
}
