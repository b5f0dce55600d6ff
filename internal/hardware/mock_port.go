package hardware

import (
	"errors"
	"sync"
)

var (
	errPortClosed = errors.New("串口已关闭")
	errReadClosed = errors.New("串口读端已关闭")
)

// MockPort 模拟串口（用于测试和无硬件运行）
//
// Read在有数据入队前阻塞，行为接近真实串口。
// QueueRead预先放入设备应答，WrittenData取出已写入的全部字节。
type MockPort struct {
	mu         sync.Mutex
	cond       *sync.Cond
	readBuf    []byte
	written    []byte
	closed     bool
	readClosed bool
}

// NewMockPort 创建模拟串口
func NewMockPort() *MockPort {
	p := &MockPort{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// QueueRead 入队一段待读数据（模拟设备应答）
func (p *MockPort) QueueRead(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readBuf = append(p.readBuf, data...)
	p.cond.Broadcast()
}

// WrittenData 返回已写入字节的副本
func (p *MockPort) WrittenData() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]byte, len(p.written))
	copy(out, p.written)
	return out
}

// HasPendingReads 是否还有未被读走的数据
func (p *MockPort) HasPendingReads() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.readBuf) > 0
}

// CloseRead 只关闭读端，写仍然成功（模拟设备单向失效）
func (p *MockPort) CloseRead() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readClosed = true
	p.cond.Broadcast()
}

// Read 实现io.Reader，无数据时阻塞
func (p *MockPort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.readBuf) == 0 {
		if p.closed {
			return 0, errPortClosed
		}
		if p.readClosed {
			return 0, errReadClosed
		}
		p.cond.Wait()
	}

	n := copy(buf, p.readBuf)
	p.readBuf = p.readBuf[n:]
	return n, nil
}

// Write 实现io.Writer
func (p *MockPort) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, errPortClosed
	}
	p.written = append(p.written, data...)
	return len(data), nil
}

// Close 关闭串口，唤醒阻塞的读
func (p *MockPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.cond.Broadcast()
	return nil
}

// Flush 实现SerialPort接口（模拟串口无缓冲区可清）
func (p *MockPort) Flush() error {
	return nil
}
