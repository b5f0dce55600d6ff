package hardware

import (
	"io"
	"sync"
	"time"

	"github.com/wfunc/so2r-switch/internal/errors"
	"github.com/wfunc/so2r-switch/internal/logger"
	"go.uber.org/zap"
)

// shutdownAckTimeout 等待关闭应答的时限，超时后回退为强制取消
const shutdownAckTimeout = 2 * time.Second

// linkRequest 链路命令请求
type linkRequest struct {
	data     []byte
	readBack bool // 写入后等待一行应答
	shutdown bool
	reply    chan linkReply
}

// linkReply 链路命令应答
type linkReply struct {
	line string
	err  error
}

// LinkActor 串口链路协程
//
// 整个生命周期内独占串口流，所有读写都在单协程内顺序执行，
// 命令严格按提交顺序处理，同一时刻最多一条在途。状态
// （断开标记、残留清理标记）只在该协程内读写，无须加锁。
type LinkActor struct {
	port   SerialPort
	bus    *EventBus
	logger *zap.Logger

	requestCh  chan *linkRequest
	cancelCh   chan struct{}
	cancelOnce sync.Once
	done       chan struct{}

	readCh    chan byte
	readErrCh chan error

	readTimeout    time.Duration
	commandTimeout time.Duration
	drainIdle      time.Duration
	drainWindow    time.Duration

	// 仅链路协程访问
	needDrain    bool
	disconnected bool
}

// StartLinkActor 启动链路协程，接管串口所有权
func StartLinkActor(port SerialPort, bus *EventBus, config *OTRSPConfig) *LinkActor {
	a := &LinkActor{
		port:           port,
		bus:            bus,
		logger:         logger.GetModuleLogger("link"),
		requestCh:      make(chan *linkRequest, config.QueueSize),
		cancelCh:       make(chan struct{}),
		done:           make(chan struct{}),
		readCh:         make(chan byte, 512),
		readErrCh:      make(chan error, 1),
		readTimeout:    config.ReadTimeout,
		commandTimeout: config.CommandTimeout,
		drainIdle:      config.DrainIdle,
		drainWindow:    config.DrainWindow,
	}

	go a.readPump()
	go a.run()
	return a
}

// readPump 读取协程，把串口字节搬运到通道
//
// 串口读在独立协程里阻塞，链路协程对readCh做带超时的select，
// 这样对任意SerialPort实现都能实现读超时和残留字节清理。
func (a *LinkActor) readPump() {
	buf := make([]byte, 256)
	for {
		n, err := a.port.Read(buf)
		if err == io.EOF {
			// tarm串口设置ReadTimeout后超时读返回EOF，视为暂无数据
			continue
		}
		if err != nil {
			select {
			case a.readErrCh <- err:
			case <-a.done:
			}
			return
		}
		for _, b := range buf[:n] {
			select {
			case a.readCh <- b:
			case <-a.done:
				return
			}
		}
	}
}

// run 链路主循环
func (a *LinkActor) run() {
	defer a.terminate()

	for {
		// 取消优先于队列中的请求
		select {
		case <-a.cancelCh:
			a.logger.Info("链路收到取消信号")
			return
		default:
		}

		select {
		case <-a.cancelCh:
			a.logger.Info("链路收到取消信号")
			return
		case req := <-a.requestCh:
			if req.shutdown {
				req.reply <- linkReply{}
				return
			}
			a.handle(req)
		}
	}
}

// handle 处理一条命令：必要时先清残留，再写入，可选读一行应答
func (a *LinkActor) handle(req *linkRequest) {
	if req.readBack && a.needDrain {
		a.drainStale()
		a.needDrain = false
	}

	if _, err := a.port.Write(req.data); err != nil {
		a.logger.Error("串口写入失败", zap.Error(err))
		a.markDisconnected()
		req.reply <- linkReply{err: errors.Wrap(err, errors.ErrIo)}
		return
	}

	if !req.readBack {
		req.reply <- linkReply{}
		return
	}

	line, err := a.readLine()
	switch {
	case err == nil:
		req.reply <- linkReply{line: line}
	case errors.GetCode(err) == errors.ErrReadTimeout:
		// 超时不算断开，但迟到的应答可能还在路上，
		// 下次查询前先清掉这些残留字节
		a.logger.Warn("等待设备应答超时",
			zap.ByteString("command", req.data),
			zap.Duration("timeout", a.readTimeout))
		a.needDrain = true
		req.reply <- linkReply{err: err}
	case errors.GetCode(err) == errors.ErrCanceled:
		req.reply <- linkReply{err: err}
	default:
		a.logger.Error("串口读取失败", zap.Error(err))
		a.markDisconnected()
		req.reply <- linkReply{err: err}
	}
}

// readLine 读取一行应答，以CR或LF结尾，带超时
func (a *LinkActor) readLine() (string, error) {
	deadline := time.NewTimer(a.readTimeout)
	defer deadline.Stop()

	line := make([]byte, 0, 32)
	for {
		select {
		case b := <-a.readCh:
			line = append(line, b)
			if b == '\r' || b == '\n' {
				return string(line), nil
			}
		case err := <-a.readErrCh:
			return "", errors.Wrap(err, errors.ErrIo)
		case <-deadline.C:
			return "", errors.New(errors.ErrReadTimeout)
		case <-a.cancelCh:
			return "", errors.New(errors.ErrCanceled)
		}
	}
}

// drainStale 清理上次超时遗留的残留字节
//
// 连续drainIdle没有新字节即认为清理完毕，总耗时不超过drainWindow。
func (a *LinkActor) drainStale() {
	window := time.NewTimer(a.drainWindow)
	defer window.Stop()

	discarded := 0
	for {
		idle := time.NewTimer(a.drainIdle)
		select {
		case <-a.readCh:
			idle.Stop()
			discarded++
		case <-idle.C:
			if discarded > 0 {
				a.logger.Debug("已丢弃残留字节", zap.Int("count", discarded))
			}
			return
		case <-window.C:
			idle.Stop()
			a.logger.Warn("残留字节清理达到时间窗上限", zap.Int("count", discarded))
			return
		case <-a.cancelCh:
			idle.Stop()
			return
		}
	}
}

// markDisconnected 发布断开事件，整个生命周期内至多一次
func (a *LinkActor) markDisconnected() {
	if a.disconnected {
		return
	}
	a.disconnected = true
	a.bus.Publish(SwitchEvent{Type: EventDisconnected})
	a.logger.Info("链路已断开")
}

// terminate 链路收尾：发布断开事件并释放串口
func (a *LinkActor) terminate() {
	a.markDisconnected()
	close(a.done)
	if err := a.port.Close(); err != nil {
		a.logger.Debug("关闭串口", zap.Error(err))
	}
}

// Submit 提交只写命令，等待链路确认
func (a *LinkActor) Submit(data []byte) error {
	rep := a.await(&linkRequest{data: data, reply: make(chan linkReply, 1)})
	return rep.err
}

// SubmitRead 提交查询命令，返回设备应答的一行
func (a *LinkActor) SubmitRead(data []byte) (string, error) {
	rep := a.await(&linkRequest{data: data, readBack: true, reply: make(chan linkReply, 1)})
	return rep.line, rep.err
}

// await 投递请求并等待应答，整体受commandTimeout约束
//
// 链路已停止或超时都报NotConnected，调用方无须区分两者。
func (a *LinkActor) await(req *linkRequest) linkReply {
	deadline := time.NewTimer(a.commandTimeout)
	defer deadline.Stop()

	select {
	case a.requestCh <- req:
	case <-a.done:
		return linkReply{err: errors.New(errors.ErrNotConnected)}
	case <-deadline.C:
		return linkReply{err: errors.New(errors.ErrNotConnected)}
	}

	select {
	case rep := <-req.reply:
		return rep
	case <-a.done:
		return linkReply{err: errors.New(errors.ErrNotConnected)}
	case <-deadline.C:
		return linkReply{err: errors.New(errors.ErrNotConnected)}
	}
}

// Shutdown 请求链路优雅退出
//
// 正常路径是投递关闭请求并等待确认，链路会在处理完排在
// 前面的命令后退出；等待超时则回退为强制取消。重复调用安全。
func (a *LinkActor) Shutdown() {
	req := &linkRequest{shutdown: true, reply: make(chan linkReply, 1)}

	deadline := time.NewTimer(shutdownAckTimeout)
	defer deadline.Stop()

	select {
	case a.requestCh <- req:
	case <-a.done:
		return
	case <-deadline.C:
		a.logger.Warn("关闭请求投递超时，强制取消链路")
		a.Cancel()
		return
	}

	select {
	case <-req.reply:
	case <-a.done:
	case <-deadline.C:
		a.logger.Warn("等待关闭确认超时，强制取消链路")
		a.Cancel()
	}
}

// Cancel 强制终止链路，不等待在途命令
func (a *LinkActor) Cancel() {
	a.cancelOnce.Do(func() {
		close(a.cancelCh)
	})
}

// Done 链路退出通知
func (a *LinkActor) Done() <-chan struct{} {
	return a.done
}
