package transport

import (
	"fmt"
	"time"

	goserial "github.com/goburrow/serial"

	"github.com/RafaelMicro/gospinel/spinellog"
)

// SerialConfig describes the line settings for a physical UART link to an
// NCP, mirroring goburrow/serial.Config's fields directly since there's no
// Spinel-specific knob beyond the usual 8N1 defaults.
type SerialConfig struct {
	Address  string
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
	Timeout  time.Duration
}

// Serial is a transport backed by goburrow/serial, suitable wherever a
// portable (non-Linux-specific) serial implementation is enough — see
// serial_linux.go for the termios/RS-485-aware alternative.
type Serial struct {
	port goserial.Port
	log  spinellog.Logger
}

// OpenSerial opens cfg.Address with the given line settings.
func OpenSerial(cfg SerialConfig, log spinellog.Logger) (*Serial, error) {
	if log == nil {
		log = spinellog.Discard
	}
	if cfg.DataBits == 0 {
		cfg.DataBits = 8
	}
	if cfg.StopBits == 0 {
		cfg.StopBits = 1
	}
	if cfg.Parity == "" {
		cfg.Parity = "N"
	}
	port, err := goserial.Open(&goserial.Config{
		Address:  cfg.Address,
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		StopBits: cfg.StopBits,
		Parity:   cfg.Parity,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("transport: opening serial port %s: %w", cfg.Address, err)
	}
	return &Serial{port: port, log: log.With("transport", fmt.Sprintf("serial(%s)", cfg.Address))}, nil
}

// Read implements io.Reader.
func (s *Serial) Read(p []byte) (int, error) {
	n, err := s.port.Read(p)
	if err != nil {
		s.log.Debug("read error", "err", err)
	}
	return n, err
}

// Write implements io.Writer.
func (s *Serial) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

// Close implements io.Closer.
func (s *Serial) Close() error {
	return s.port.Close()
}
