package serialmux

import (
	"fmt"

	"go.bug.st/serial"
)

// NewRealSerialMux opens the named serial device with the given line
// parameters and wraps it in a mux. Pass nil to use DefaultPortMode.
func NewRealSerialMux(device string, mode *PortMode) (*SerialMux[serial.Port], error) {
	if mode == nil {
		mode = DefaultPortMode()
	}
	port, err := serial.Open(device, &serial.Mode{
		BaudRate: mode.BaudRate,
		DataBits: mode.DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", device, err)
	}
	return NewSerialMux(port), nil
}
