//go:build linux

package transport

import (
	"fmt"
	"time"

	serial "github.com/daedaluz/goserial"

	"github.com/RafaelMicro/gospinel/spinellog"
)

// LinuxSerialConfig describes an RS-232/RS-485 UART link using Linux
// termios and TIOCGRS485/TIOCSRS485 directly, for the RS-485 turnaround
// timing some NCP carrier boards need that goburrow/serial has no knob for.
type LinuxSerialConfig struct {
	Device      string
	BaudRate    serial.CFlag
	ReadTimeout time.Duration
	RS485       bool
	RS485Delay  time.Duration
}

// LinuxSerial is a termios-backed serial transport, opened and put into
// raw mode directly via ioctl, bypassing cgo entirely the way
// daedaluz/goserial's own Port does.
type LinuxSerial struct {
	port *serial.Port
	log  spinellog.Logger
}

// OpenLinuxSerial opens and configures cfg.Device.
func OpenLinuxSerial(cfg LinuxSerialConfig, log spinellog.Logger) (*LinuxSerial, error) {
	if log == nil {
		log = spinellog.Discard
	}
	opts := serial.NewOptions().SetReadTimeout(cfg.ReadTimeout)
	port, err := serial.Open(cfg.Device, opts)
	if err != nil {
		return nil, fmt.Errorf("transport: opening %s: %w", cfg.Device, err)
	}
	if err := port.MakeRaw(); err != nil {
		port.Close()
		return nil, fmt.Errorf("transport: setting raw mode on %s: %w", cfg.Device, err)
	}
	attrs, err := port.GetAttr()
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("transport: reading termios for %s: %w", cfg.Device, err)
	}
	attrs.SetSpeed(cfg.BaudRate)
	if err := port.SetAttr(serial.TCSANOW, attrs); err != nil {
		port.Close()
		return nil, fmt.Errorf("transport: applying termios to %s: %w", cfg.Device, err)
	}

	if cfg.RS485 {
		delayMS := uint32(cfg.RS485Delay / time.Millisecond)
		rs485 := &serial.RS485{
			Flags:              serial.RS485Enabled | serial.RS485RTSOnSend,
			DelayRTSBeforeSend: delayMS,
			DelayRTSAfterSend:  delayMS,
		}
		if err := port.SetRS485(rs485); err != nil {
			port.Close()
			return nil, fmt.Errorf("transport: enabling RS-485 mode on %s: %w", cfg.Device, err)
		}
	}

	return &LinuxSerial{port: port, log: log.With("transport", fmt.Sprintf("serial-linux(%s)", cfg.Device))}, nil
}

// Read implements io.Reader.
func (s *LinuxSerial) Read(p []byte) (int, error) {
	n, err := s.port.Read(p)
	if err != nil {
		s.log.Debug("read error", "err", err)
	}
	return n, err
}

// Write implements io.Writer.
func (s *LinuxSerial) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

// Close implements io.Closer.
func (s *LinuxSerial) Close() error {
	return s.port.Close()
}
