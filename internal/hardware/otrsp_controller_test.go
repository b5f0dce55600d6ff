package hardware

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/so2r-switch/internal/errors"
)

// OTRSPControllerTestSuite 控制器测试套件
type OTRSPControllerTestSuite struct {
	suite.Suite
	port       *MockPort
	controller *OTRSPController
}

func (s *OTRSPControllerTestSuite) SetupTest() {
	s.port = NewMockPort()
	cfg := testLinkConfig()
	cfg.QueryName = false
	s.controller = NewOTRSPControllerWithPort(cfg, s.port)
}

func (s *OTRSPControllerTestSuite) TearDownTest() {
	if s.controller.IsConnected() {
		_ = s.controller.Disconnect()
	}
}

// connect 建立不带名称查询的连接
func (s *OTRSPControllerTestSuite) connect() {
	require.NoError(s.T(), s.controller.Connect())
}

func (s *OTRSPControllerTestSuite) TestConnectQueriesName() {
	cfg := testLinkConfig()
	cfg.QueryName = true
	port := NewMockPort()
	port.QueueRead([]byte("NAMESO2RDUINO\r"))
	controller := NewOTRSPControllerWithPort(cfg, port)

	require.NoError(s.T(), controller.Connect())
	defer controller.Disconnect()

	assert.Equal(s.T(), "SO2RDUINO", controller.Name())
	assert.Equal(s.T(), "?NAME\r", string(port.WrittenData()))
}

func (s *OTRSPControllerTestSuite) TestConnectNameTimeoutFallsBack() {
	cfg := testLinkConfig()
	cfg.QueryName = true
	port := NewMockPort()
	controller := NewOTRSPControllerWithPort(cfg, port)

	// 设备不实现?NAME时连接仍然成功
	require.NoError(s.T(), controller.Connect())
	defer controller.Disconnect()

	assert.Equal(s.T(), "Unknown", controller.Name())
	assert.True(s.T(), controller.IsConnected())
}

func (s *OTRSPControllerTestSuite) TestConnectTwiceFails() {
	s.connect()

	err := s.controller.Connect()
	assert.Equal(s.T(), errors.ErrDeviceBusy, errors.GetCode(err))
}

func (s *OTRSPControllerTestSuite) TestFullCommandSequence() {
	s.connect()

	require.NoError(s.T(), s.controller.SetTx(Radio1))
	require.NoError(s.T(), s.controller.SetRx(Radio2, RxModeStereo))
	require.NoError(s.T(), s.controller.SetAux(1, 4))

	assert.Equal(s.T(), "TX1\rRX2S\rAUX14\r", string(s.port.WrittenData()))

	status := s.controller.Status()
	assert.Equal(s.T(), Radio1, status.TxFocus)
	assert.Equal(s.T(), Radio2, status.RxRadio)
	assert.Equal(s.T(), RxModeStereo, status.RxMode)
	assert.Equal(s.T(), uint8(4), status.AuxValues[1])
}

func (s *OTRSPControllerTestSuite) TestQueryAux() {
	s.connect()

	s.port.QueueRead([]byte("AUX14\r"))
	value, err := s.controller.QueryAux(1)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), uint8(4), value)
	assert.Equal(s.T(), "?AUX1\r", string(s.port.WrittenData()))
}

func (s *OTRSPControllerTestSuite) TestQueryAuxPortMismatch() {
	s.connect()

	// 请求端口1，设备应答端口2
	s.port.QueueRead([]byte("AUX2255\r"))
	_, err := s.controller.QueryAux(1)
	require.Error(s.T(), err)
	assert.Equal(s.T(), errors.ErrProtocol, errors.GetCode(err))
	assert.Contains(s.T(), err.Error(), "1")
	assert.Contains(s.T(), err.Error(), "2")
}

func (s *OTRSPControllerTestSuite) TestQueryAuxMalformedResponse() {
	s.connect()

	s.port.QueueRead([]byte("AUXabc\r"))
	_, err := s.controller.QueryAux(1)
	assert.Equal(s.T(), errors.ErrProtocol, errors.GetCode(err))
}

func (s *OTRSPControllerTestSuite) TestQueryAuxTimeout() {
	s.connect()

	_, err := s.controller.QueryAux(1)
	assert.Equal(s.T(), errors.ErrReadTimeout, errors.GetCode(err))

	// 超时不断开链路
	assert.True(s.T(), s.controller.IsConnected())
	assert.NoError(s.T(), s.controller.SetTx(Radio2))
}

func (s *OTRSPControllerTestSuite) TestInvalidAuxPortProducesNoBytes() {
	s.connect()

	err := s.controller.SetAux(10, 0)
	assert.Equal(s.T(), errors.ErrInvalidParameter, errors.GetCode(err))
	assert.Empty(s.T(), s.port.WrittenData())

	_, err = s.controller.QueryAux(10)
	assert.Equal(s.T(), errors.ErrInvalidParameter, errors.GetCode(err))
	assert.Empty(s.T(), s.port.WrittenData())
}

func (s *OTRSPControllerTestSuite) TestNotConnected() {
	err := s.controller.SetTx(Radio1)
	assert.Equal(s.T(), errors.ErrNotConnected, errors.GetCode(err))

	_, err = s.controller.QueryAux(1)
	assert.Equal(s.T(), errors.ErrNotConnected, errors.GetCode(err))
}

func (s *OTRSPControllerTestSuite) TestSendRaw() {
	s.connect()

	require.NoError(s.T(), s.controller.SendRaw("CUSTOM"))
	assert.Equal(s.T(), "CUSTOM\r", string(s.port.WrittenData()))
}

func (s *OTRSPControllerTestSuite) TestEvents() {
	sub := s.controller.Subscribe()
	defer sub.Close()

	s.connect()
	require.NoError(s.T(), s.controller.SetTx(Radio1))
	require.NoError(s.T(), s.controller.SetRx(Radio1, RxModeReverseStereo))
	require.NoError(s.T(), s.controller.SetAux(2, 255))
	require.NoError(s.T(), s.controller.Disconnect())

	expected := []SwitchEventType{
		EventConnected,
		EventTxChanged,
		EventRxChanged,
		EventAuxChanged,
		EventDisconnected,
	}
	var got []SwitchEventType
	deadline := time.After(time.Second)
	for len(got) < len(expected) {
		select {
		case evt := <-sub.C:
			got = append(got, evt.Type)
		case <-deadline:
			s.T().Fatalf("事件不全: %v", got)
		}
	}
	assert.Equal(s.T(), expected, got)
}

func (s *OTRSPControllerTestSuite) TestDisconnectEmitsSingleEvent() {
	sub := s.controller.Subscribe()
	defer sub.Close()

	s.connect()
	require.NoError(s.T(), s.controller.Disconnect())
	require.NoError(s.T(), s.controller.Disconnect())

	assert.Equal(s.T(), 1, countEvents(sub, EventDisconnected, 100*time.Millisecond))
	assert.False(s.T(), s.controller.IsConnected())
}

func (s *OTRSPControllerTestSuite) TestWriteFailureDisconnectsOnce() {
	sub := s.controller.Subscribe()
	defer sub.Close()

	s.connect()
	s.port.Close()

	for i := 0; i < 3; i++ {
		err := s.controller.SetTx(Radio1)
		assert.Equal(s.T(), errors.ErrIo, errors.GetCode(err))
	}

	assert.Equal(s.T(), 1, countEvents(sub, EventDisconnected, 100*time.Millisecond))
	assert.Equal(s.T(), 3, s.controller.Status().ErrorCount)
}

func (s *OTRSPControllerTestSuite) TestCapabilities() {
	caps := s.controller.Capabilities()
	assert.True(s.T(), caps.Stereo)
	assert.True(s.T(), caps.ReverseStereo)
	assert.Equal(s.T(), 2, caps.AuxPorts)
}

// recordingSink 测试用命令记录器
type recordingSink struct {
	mu      sync.Mutex
	entries []string
}

func (r *recordingSink) RecordCommand(direction, data, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, direction+":"+data)
}

func (r *recordingSink) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.entries...)
}

func (s *OTRSPControllerTestSuite) TestCommandRecorder() {
	sink := &recordingSink{}
	s.controller.SetRecorder(sink)
	s.connect()

	require.NoError(s.T(), s.controller.SetTx(Radio1))
	s.port.QueueRead([]byte("AUX14\r"))
	_, err := s.controller.QueryAux(1)
	require.NoError(s.T(), err)

	assert.Equal(s.T(), []string{"write:TX1", "query:?AUX1"}, sink.all())
}

func TestOTRSPControllerSuite(t *testing.T) {
	suite.Run(t, new(OTRSPControllerTestSuite))
}
