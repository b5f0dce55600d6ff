package hardware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wfunc/so2r-switch/internal/errors"
)

// OTRSP协议编解码
//
// OTRSP是纯文本协议，每条命令以回车结尾：
//   TX1\r / TX2\r           发射焦点
//   RX1\r / RX1S\r / RX1R\r 接收路由（单声道/立体声/反向立体声）
//   AUX<p><v>\r             AUX输出，p为0-9单个数字，v为0-255十进制
//   ?NAME\r                 查询设备名称，应答 NAME<name>\r
//   ?AUX<p>\r               查询AUX端口，应答 AUX<p><v>\r
// 编码和解析互不依赖串口状态，便于单独测试。

const (
	commandTerminator = "\r"
	namePrefix        = "NAME"
	auxPrefix         = "AUX"

	// MaxAuxPort AUX端口号上限（协议中端口为单个数字）
	MaxAuxPort = 9
)

// EncodeTX 编码发射焦点命令
func EncodeTX(radio Radio) ([]byte, error) {
	if !radio.Valid() {
		return nil, errors.Newf(errors.ErrInvalidParameter, "无效的电台编号: %d", radio)
	}
	return []byte(fmt.Sprintf("TX%d%s", radio, commandTerminator)), nil
}

// EncodeRX 编码接收路由命令
//
// 单声道不带后缀，立体声后缀S，反向立体声后缀R。
func EncodeRX(radio Radio, mode RxMode) ([]byte, error) {
	if !radio.Valid() {
		return nil, errors.Newf(errors.ErrInvalidParameter, "无效的电台编号: %d", radio)
	}
	suffix := ""
	switch mode {
	case RxModeMono:
	case RxModeStereo:
		suffix = "S"
	case RxModeReverseStereo:
		suffix = "R"
	default:
		return nil, errors.Newf(errors.ErrInvalidParameter, "无效的接收模式: %d", mode)
	}
	return []byte(fmt.Sprintf("RX%d%s%s", radio, suffix, commandTerminator)), nil
}

// EncodeAux 编码AUX输出命令
//
// 端口必须是0-9的单个数字，数值0-255按十进制编码、不补零。
// 端口越界时不产生任何线缆字节。
func EncodeAux(port, value uint8) ([]byte, error) {
	if port > MaxAuxPort {
		return nil, errors.Newf(errors.ErrInvalidParameter, "AUX端口必须在0-9之间: %d", port)
	}
	return []byte(fmt.Sprintf("%s%d%d%s", auxPrefix, port, value, commandTerminator)), nil
}

// EncodeQueryName 编码设备名称查询命令
func EncodeQueryName() []byte {
	return []byte("?NAME" + commandTerminator)
}

// EncodeQueryAux 编码AUX端口查询命令
func EncodeQueryAux(port uint8) ([]byte, error) {
	if port > MaxAuxPort {
		return nil, errors.Newf(errors.ErrInvalidParameter, "AUX端口必须在0-9之间: %d", port)
	}
	return []byte(fmt.Sprintf("?%s%d%s", auxPrefix, port, commandTerminator)), nil
}

// EncodeRaw 编码透传命令，追加回车结尾
//
// 用于发送本库未封装的OTRSP扩展命令。
func EncodeRaw(text string) []byte {
	return []byte(text + commandTerminator)
}

// ParseNameResponse 解析设备名称应答
//
// 宽容解析：去掉结尾的CR/LF，若带NAME前缀则剥离，再去掉
// 首尾空白。部分设备应答不带NAME前缀，同样接受。
func ParseNameResponse(line string) string {
	s := strings.TrimRight(line, "\r\n")
	s = strings.TrimPrefix(s, namePrefix)
	return strings.TrimSpace(s)
}

// ParseAuxResponse 解析AUX查询应答，返回端口号和数值
//
// 应答必须带AUX前缀，端口为单个数字，数值为0-255的十进制整数，
// 任何一项不满足都视为协议错误。
func ParseAuxResponse(line string) (uint8, uint8, error) {
	s := strings.TrimRight(line, "\r\n")
	body, ok := strings.CutPrefix(s, auxPrefix)
	if !ok {
		return 0, 0, errors.Newf(errors.ErrProtocol, "AUX应答缺少前缀: %q", s)
	}
	if len(body) < 2 {
		return 0, 0, errors.Newf(errors.ErrProtocol, "AUX应答过短: %q", s)
	}
	if body[0] < '0' || body[0] > '9' {
		return 0, 0, errors.Newf(errors.ErrProtocol, "AUX应答端口号非法: %q", s)
	}
	port := body[0] - '0'
	value, err := strconv.ParseUint(body[1:], 10, 8)
	if err != nil {
		return 0, 0, errors.Newf(errors.ErrProtocol, "AUX应答数值非法: %q", s)
	}
	return port, uint8(value), nil
}
