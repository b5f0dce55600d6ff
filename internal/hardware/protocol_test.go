package hardware

import (
	"fmt"
	"testing"

	"github.com/wfunc/so2r-switch/internal/errors"
)

func TestEncodeTX(t *testing.T) {
	tests := []struct {
		radio    Radio
		expected string
		wantErr  bool
	}{
		{Radio1, "TX1\r", false},
		{Radio2, "TX2\r", false},
		{Radio(0), "", true},
		{Radio(3), "", true},
	}

	for _, tt := range tests {
		data, err := EncodeTX(tt.radio)
		if tt.wantErr {
			if err == nil {
				t.Errorf("EncodeTX(%d) 应返回错误", tt.radio)
			}
			continue
		}
		if err != nil {
			t.Errorf("EncodeTX(%d) 失败: %v", tt.radio, err)
			continue
		}
		if string(data) != tt.expected {
			t.Errorf("EncodeTX(%d) = %q, 期望 %q", tt.radio, data, tt.expected)
		}
	}
}

func TestEncodeRX(t *testing.T) {
	tests := []struct {
		radio    Radio
		mode     RxMode
		expected string
	}{
		{Radio1, RxModeMono, "RX1\r"},
		{Radio2, RxModeMono, "RX2\r"},
		{Radio1, RxModeStereo, "RX1S\r"},
		{Radio2, RxModeStereo, "RX2S\r"},
		{Radio1, RxModeReverseStereo, "RX1R\r"},
		{Radio2, RxModeReverseStereo, "RX2R\r"},
	}

	for _, tt := range tests {
		data, err := EncodeRX(tt.radio, tt.mode)
		if err != nil {
			t.Errorf("EncodeRX(%d, %s) 失败: %v", tt.radio, tt.mode, err)
			continue
		}
		if string(data) != tt.expected {
			t.Errorf("EncodeRX(%d, %s) = %q, 期望 %q", tt.radio, tt.mode, data, tt.expected)
		}
	}

	if _, err := EncodeRX(Radio1, RxMode(9)); err == nil {
		t.Error("非法接收模式应返回错误")
	}
}

func TestEncodeAux(t *testing.T) {
	tests := []struct {
		port     uint8
		value    uint8
		expected string
	}{
		{1, 4, "AUX14\r"},
		{0, 0, "AUX00\r"},
		{2, 255, "AUX2255\r"},
		{9, 128, "AUX9128\r"},
	}

	for _, tt := range tests {
		data, err := EncodeAux(tt.port, tt.value)
		if err != nil {
			t.Errorf("EncodeAux(%d, %d) 失败: %v", tt.port, tt.value, err)
			continue
		}
		if string(data) != tt.expected {
			t.Errorf("EncodeAux(%d, %d) = %q, 期望 %q", tt.port, tt.value, data, tt.expected)
		}
	}
}

func TestEncodeAuxInvalidPort(t *testing.T) {
	data, err := EncodeAux(10, 0)
	if err == nil {
		t.Fatal("端口10应返回错误")
	}
	if errors.GetCode(err) != errors.ErrInvalidParameter {
		t.Errorf("错误码 = %d, 期望 %d", errors.GetCode(err), errors.ErrInvalidParameter)
	}
	if data != nil {
		t.Errorf("端口越界时不应产生线缆字节，实际 %q", data)
	}
}

func TestEncodeQueries(t *testing.T) {
	if got := string(EncodeQueryName()); got != "?NAME\r" {
		t.Errorf("EncodeQueryName() = %q, 期望 %q", got, "?NAME\r")
	}

	data, err := EncodeQueryAux(1)
	if err != nil {
		t.Fatalf("EncodeQueryAux(1) 失败: %v", err)
	}
	if string(data) != "?AUX1\r" {
		t.Errorf("EncodeQueryAux(1) = %q, 期望 %q", data, "?AUX1\r")
	}

	if _, err := EncodeQueryAux(10); err == nil {
		t.Error("查询端口10应返回错误")
	}
}

func TestEncodeRaw(t *testing.T) {
	if got := string(EncodeRaw("CUSTOM")); got != "CUSTOM\r" {
		t.Errorf("EncodeRaw = %q, 期望 %q", got, "CUSTOM\r")
	}
}

func TestParseNameResponse(t *testing.T) {
	tests := []struct {
		line     string
		expected string
	}{
		{"NAMESO2RDUINO\r", "SO2RDUINO"},
		{"SO2RDUINO\r\n", "SO2RDUINO"},
		{"NAME MyBox \r", "MyBox"},
		{"NAME\r", ""},
	}

	for _, tt := range tests {
		if got := ParseNameResponse(tt.line); got != tt.expected {
			t.Errorf("ParseNameResponse(%q) = %q, 期望 %q", tt.line, got, tt.expected)
		}
	}
}

func TestParseAuxResponse(t *testing.T) {
	tests := []struct {
		line  string
		port  uint8
		value uint8
	}{
		{"AUX14\r", 1, 4},
		{"AUX2255\r\n", 2, 255},
		{"AUX00\r", 0, 0},
		{"AUX9128\r", 9, 128},
	}

	for _, tt := range tests {
		port, value, err := ParseAuxResponse(tt.line)
		if err != nil {
			t.Errorf("ParseAuxResponse(%q) 失败: %v", tt.line, err)
			continue
		}
		if port != tt.port || value != tt.value {
			t.Errorf("ParseAuxResponse(%q) = (%d, %d), 期望 (%d, %d)",
				tt.line, port, value, tt.port, tt.value)
		}
	}
}

func TestParseAuxResponseInvalid(t *testing.T) {
	invalid := []string{
		"AUXabc\r",   // 非数字
		"NOTAUX14\r", // 前缀错误
		"AUX\r",      // 缺少端口和数值
		"AUX1\r",     // 缺少数值
		"AUX1999\r",  // 数值超出255
		"AUXx4\r",    // 端口非数字
	}

	for _, line := range invalid {
		_, _, err := ParseAuxResponse(line)
		if err == nil {
			t.Errorf("ParseAuxResponse(%q) 应返回错误", line)
			continue
		}
		if errors.GetCode(err) != errors.ErrProtocol {
			t.Errorf("ParseAuxResponse(%q) 错误码 = %d, 期望 %d",
				line, errors.GetCode(err), errors.ErrProtocol)
		}
	}
}

func TestAuxRoundTrip(t *testing.T) {
	cases := []struct {
		port  uint8
		value uint8
	}{
		{0, 0},
		{1, 4},
		{9, 128},
		{5, 255},
	}

	for _, c := range cases {
		data, err := EncodeAux(c.port, c.value)
		if err != nil {
			t.Fatalf("EncodeAux(%d, %d) 失败: %v", c.port, c.value, err)
		}
		port, value, err := ParseAuxResponse(string(data))
		if err != nil {
			t.Fatalf("ParseAuxResponse(%q) 失败: %v", data, err)
		}
		if port != c.port || value != c.value {
			t.Errorf("往返结果 (%d, %d), 期望 (%d, %d)", port, value, c.port, c.value)
		}
	}
}

func ExampleEncodeAux() {
	data, _ := EncodeAux(1, 4)
	fmt.Printf("%q\n", data)
	// Output: "AUX14\r"
}
