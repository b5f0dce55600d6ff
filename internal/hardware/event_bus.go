package hardware

import (
	"sync"
	"time"

	"github.com/wfunc/so2r-switch/internal/logger"
	"go.uber.org/zap"
)

// defaultEventBuffer 每个订阅者的事件缓冲深度
const defaultEventBuffer = 16

// EventBus 切换器事件总线
//
// 发布是尽力而为的：订阅者缓冲满时丢弃事件并告警，
// 绝不阻塞发布方（发布方是链路协程）。
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[int]chan SwitchEvent
	nextID      int
	closed      bool
	logger      *zap.Logger
}

// Subscription 事件订阅句柄
type Subscription struct {
	C    <-chan SwitchEvent
	id   int
	bus  *EventBus
	once sync.Once
}

// Close 取消订阅并关闭事件通道
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.unsubscribe(s.id)
	})
}

// NewEventBus 创建事件总线
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[int]chan SwitchEvent),
		logger:      logger.GetModuleLogger("events"),
	}
}

// Subscribe 订阅切换器事件
//
// 总线关闭后订阅返回已关闭的通道。
func (b *EventBus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan SwitchEvent, defaultEventBuffer)
	if b.closed {
		close(ch)
		return &Subscription{C: ch, id: -1, bus: b}
	}

	id := b.nextID
	b.nextID++
	b.subscribers[id] = ch
	return &Subscription{C: ch, id: id, bus: b}
}

func (b *EventBus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
	}
}

// Publish 发布事件给所有订阅者
func (b *EventBus) Publish(event SwitchEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for id, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			// 订阅者消费太慢，丢弃事件
			b.logger.Warn("事件缓冲区满，丢弃事件",
				zap.Int("subscriber", id),
				zap.String("type", string(event.Type)))
		}
	}
}

// Close 关闭总线并关闭所有订阅通道
//
// 已缓冲的事件仍可被订阅者读完。
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subscribers {
		delete(b.subscribers, id)
		close(ch)
	}
}
