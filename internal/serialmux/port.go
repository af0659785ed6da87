package serialmux

import "io"

// SerialPorter is the minimal interface the mux needs from a serial port.
// The abstraction enables unit testing without radio hardware.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// PortMode holds serial line parameters for the CSI radio link.
type PortMode struct {
	BaudRate int
	DataBits int
}

// DefaultPortMode returns the line parameters for the ESP32 CSI firmware:
// 921600 baud 8N1, fast enough to sustain ~100 frames/second without the
// UART becoming the bottleneck.
func DefaultPortMode() *PortMode {
	return &PortMode{
		BaudRate: 921600,
		DataBits: 8,
	}
}
