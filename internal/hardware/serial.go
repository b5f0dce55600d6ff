package hardware

import (
	"time"

	"github.com/tarm/serial"
	"github.com/wfunc/so2r-switch/internal/errors"
	"github.com/wfunc/so2r-switch/internal/logger"
	"go.uber.org/zap"
)

// serialPortWrapper 包装tarm串口以满足SerialPort接口
type serialPortWrapper struct {
	*serial.Port
}

// Flush 清空串口缓冲区
func (w *serialPortWrapper) Flush() error {
	return w.Port.Flush()
}

// OpenSerialPort 按OTRSP参数打开串口
//
// 固定8数据位、无校验、1停止位、无流控，波特率通常为9600。
// ReadTimeout让阻塞读周期性返回，便于读取协程响应停止信号。
func OpenSerialPort(name string, baudRate int) (SerialPort, error) {
	cfg := &serial.Config{
		Name:        name,
		Baud:        baudRate,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: 100 * time.Millisecond,
	}

	port, err := serial.OpenPort(cfg)
	if err != nil {
		logger.GetModuleLogger("hardware").Error("打开串口失败",
			zap.String("port", name),
			zap.Int("baud_rate", baudRate),
			zap.Error(err))
		return nil, errors.Wrapf(err, errors.ErrSerialPortOpen, "打开串口 %s 失败", name)
	}

	logger.GetModuleLogger("hardware").Info("串口已打开",
		zap.String("port", name),
		zap.Int("baud_rate", baudRate))

	return &serialPortWrapper{Port: port}, nil
}
