package hardware

import (
	"testing"
	"time"
)

func TestEventBusPublishSubscribe(t *testing.T) {
	bus := NewEventBus()
	sub1 := bus.Subscribe()
	sub2 := bus.Subscribe()
	defer sub1.Close()
	defer sub2.Close()

	bus.Publish(SwitchEvent{Type: EventTxChanged, Radio: Radio1})

	for _, sub := range []*Subscription{sub1, sub2} {
		select {
		case evt := <-sub.C:
			if evt.Type != EventTxChanged || evt.Radio != Radio1 {
				t.Errorf("事件内容不符: %+v", evt)
			}
			if evt.Timestamp.IsZero() {
				t.Error("发布时应填充时间戳")
			}
		case <-time.After(time.Second):
			t.Fatal("订阅者未收到事件")
		}
	}
}

func TestEventBusSlowSubscriberDropsEvents(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe()
	defer sub.Close()

	// 不消费，塞满缓冲后发布不得阻塞
	done := make(chan struct{})
	go func() {
		for i := 0; i < defaultEventBuffer*2; i++ {
			bus.Publish(SwitchEvent{Type: EventAuxChanged})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("慢订阅者阻塞了发布方")
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe()
	sub.Close()
	sub.Close() // 重复关闭安全

	bus.Publish(SwitchEvent{Type: EventConnected})

	if _, ok := <-sub.C; ok {
		t.Error("取消订阅后通道应已关闭")
	}
}

func TestEventBusCloseDeliversBuffered(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe()

	bus.Publish(SwitchEvent{Type: EventDisconnected})
	bus.Close()

	evt, ok := <-sub.C
	if !ok || evt.Type != EventDisconnected {
		t.Errorf("关闭前缓冲的事件应可读取: ok=%v evt=%+v", ok, evt)
	}
	if _, ok := <-sub.C; ok {
		t.Error("总线关闭后通道应已关闭")
	}

	// 关闭后的订阅得到已关闭通道
	late := bus.Subscribe()
	if _, ok := <-late.C; ok {
		t.Error("总线关闭后新订阅应得到已关闭通道")
	}
}
