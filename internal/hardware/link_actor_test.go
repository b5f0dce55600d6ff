package hardware

import (
	"testing"
	"time"

	"github.com/wfunc/so2r-switch/internal/errors"
)

// testLinkConfig 缩短各超时，加快测试
func testLinkConfig() *OTRSPConfig {
	cfg := DefaultOTRSPConfig()
	cfg.ReadTimeout = 80 * time.Millisecond
	cfg.CommandTimeout = 500 * time.Millisecond
	cfg.DrainIdle = 10 * time.Millisecond
	cfg.DrainWindow = 100 * time.Millisecond
	return cfg
}

// countEvents 统计订阅通道里指定类型的事件数量
func countEvents(sub *Subscription, eventType SwitchEventType, wait time.Duration) int {
	deadline := time.After(wait)
	count := 0
	for {
		select {
		case evt, ok := <-sub.C:
			if !ok {
				return count
			}
			if evt.Type == eventType {
				count++
			}
		case <-deadline:
			return count
		}
	}
}

func TestLinkActorWriteAndAck(t *testing.T) {
	port := NewMockPort()
	bus := NewEventBus()
	actor := StartLinkActor(port, bus, testLinkConfig())
	defer actor.Cancel()

	if err := actor.Submit([]byte("TX1\r")); err != nil {
		t.Fatalf("Submit失败: %v", err)
	}
	if got := string(port.WrittenData()); got != "TX1\r" {
		t.Errorf("写入数据 = %q, 期望 %q", got, "TX1\r")
	}
}

func TestLinkActorFIFOOrder(t *testing.T) {
	port := NewMockPort()
	bus := NewEventBus()
	actor := StartLinkActor(port, bus, testLinkConfig())
	defer actor.Cancel()

	commands := []string{"TX1\r", "RX2S\r", "AUX14\r", "TX2\r"}
	for _, cmd := range commands {
		if err := actor.Submit([]byte(cmd)); err != nil {
			t.Fatalf("Submit(%q)失败: %v", cmd, err)
		}
	}

	expected := "TX1\rRX2S\rAUX14\rTX2\r"
	if got := string(port.WrittenData()); got != expected {
		t.Errorf("写入顺序 = %q, 期望 %q", got, expected)
	}
}

func TestLinkActorSubmitRead(t *testing.T) {
	port := NewMockPort()
	bus := NewEventBus()
	actor := StartLinkActor(port, bus, testLinkConfig())
	defer actor.Cancel()

	port.QueueRead([]byte("AUX14\r"))
	line, err := actor.SubmitRead([]byte("?AUX1\r"))
	if err != nil {
		t.Fatalf("SubmitRead失败: %v", err)
	}
	if line != "AUX14\r" {
		t.Errorf("应答 = %q, 期望 %q", line, "AUX14\r")
	}
}

func TestLinkActorReadTimeout(t *testing.T) {
	port := NewMockPort()
	bus := NewEventBus()
	sub := bus.Subscribe()
	actor := StartLinkActor(port, bus, testLinkConfig())
	defer actor.Cancel()

	// 设备不应答
	_, err := actor.SubmitRead([]byte("?AUX1\r"))
	if errors.GetCode(err) != errors.ErrReadTimeout {
		t.Fatalf("错误码 = %d, 期望 %d", errors.GetCode(err), errors.ErrReadTimeout)
	}

	// 超时不是断开，链路继续可用
	if err := actor.Submit([]byte("TX1\r")); err != nil {
		t.Errorf("超时后写入应成功: %v", err)
	}
	if n := countEvents(sub, EventDisconnected, 50*time.Millisecond); n != 0 {
		t.Errorf("超时不应发布断开事件，实际收到%d个", n)
	}
}

func TestLinkActorDrainStaleBytes(t *testing.T) {
	port := NewMockPort()
	bus := NewEventBus()
	cfg := testLinkConfig()
	cfg.ReadTimeout = 200 * time.Millisecond
	actor := StartLinkActor(port, bus, cfg)
	defer actor.Cancel()

	// 第一次查询超时
	if _, err := actor.SubmitRead([]byte("?AUX1\r")); errors.GetCode(err) != errors.ErrReadTimeout {
		t.Fatalf("期望超时错误, 实际: %v", err)
	}

	// 迟到的应答成为残留字节
	port.QueueRead([]byte("AUX1200\r"))

	// 新鲜应答在清理完成后到达
	go func() {
		time.Sleep(80 * time.Millisecond)
		port.QueueRead([]byte("AUX142\r"))
	}()

	line, err := actor.SubmitRead([]byte("?AUX1\r"))
	if err != nil {
		t.Fatalf("清理后的查询失败: %v", err)
	}
	if line != "AUX142\r" {
		t.Errorf("应答 = %q, 期望新鲜应答 %q", line, "AUX142\r")
	}
	if port.HasPendingReads() {
		t.Error("残留字节应已被清理")
	}
}

func TestLinkActorWriteFailureDisconnectsOnce(t *testing.T) {
	port := NewMockPort()
	bus := NewEventBus()
	sub := bus.Subscribe()
	actor := StartLinkActor(port, bus, testLinkConfig())
	defer actor.Cancel()

	port.Close()

	// 多次写失败只发布一次断开事件
	for i := 0; i < 3; i++ {
		err := actor.Submit([]byte("TX1\r"))
		if errors.GetCode(err) != errors.ErrIo {
			t.Fatalf("错误码 = %d, 期望 %d", errors.GetCode(err), errors.ErrIo)
		}
	}

	if n := countEvents(sub, EventDisconnected, 100*time.Millisecond); n != 1 {
		t.Errorf("断开事件数量 = %d, 期望 1", n)
	}
}

func TestLinkActorReadErrorDisconnects(t *testing.T) {
	port := NewMockPort()
	bus := NewEventBus()
	sub := bus.Subscribe()
	actor := StartLinkActor(port, bus, testLinkConfig())
	defer actor.Cancel()

	port.CloseRead()

	_, err := actor.SubmitRead([]byte("?NAME\r"))
	if errors.GetCode(err) != errors.ErrIo {
		t.Fatalf("错误码 = %d, 期望 %d", errors.GetCode(err), errors.ErrIo)
	}
	if n := countEvents(sub, EventDisconnected, 100*time.Millisecond); n != 1 {
		t.Errorf("断开事件数量 = %d, 期望 1", n)
	}
}

func TestLinkActorShutdown(t *testing.T) {
	port := NewMockPort()
	bus := NewEventBus()
	sub := bus.Subscribe()
	actor := StartLinkActor(port, bus, testLinkConfig())

	actor.Shutdown()

	select {
	case <-actor.Done():
	case <-time.After(time.Second):
		t.Fatal("链路未在期限内退出")
	}

	// 终程恰好一次断开事件，重复关闭安全
	actor.Shutdown()
	if n := countEvents(sub, EventDisconnected, 100*time.Millisecond); n != 1 {
		t.Errorf("断开事件数量 = %d, 期望 1", n)
	}
}

func TestLinkActorNotConnectedAfterShutdown(t *testing.T) {
	port := NewMockPort()
	bus := NewEventBus()
	actor := StartLinkActor(port, bus, testLinkConfig())

	actor.Shutdown()
	<-actor.Done()

	err := actor.Submit([]byte("TX1\r"))
	if errors.GetCode(err) != errors.ErrNotConnected {
		t.Errorf("错误码 = %d, 期望 %d", errors.GetCode(err), errors.ErrNotConnected)
	}
	if _, err := actor.SubmitRead([]byte("?NAME\r")); errors.GetCode(err) != errors.ErrNotConnected {
		t.Errorf("查询错误码 = %d, 期望 %d", errors.GetCode(err), errors.ErrNotConnected)
	}
}

func TestLinkActorCancel(t *testing.T) {
	port := NewMockPort()
	bus := NewEventBus()
	sub := bus.Subscribe()
	actor := StartLinkActor(port, bus, testLinkConfig())

	actor.Cancel()

	select {
	case <-actor.Done():
	case <-time.After(time.Second):
		t.Fatal("取消后链路未退出")
	}
	if n := countEvents(sub, EventDisconnected, 100*time.Millisecond); n != 1 {
		t.Errorf("断开事件数量 = %d, 期望 1", n)
	}
}
