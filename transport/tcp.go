// Package transport provides the concrete byte-stream transports a Mux can
// be built on: TCP, a physical serial port, and an in-memory pipe for
// tests. None of them know about Spinel framing — that's the codec and
// hdlc packages' job — they only implement io.ReadWriteCloser with
// deadline-aware reads, the same shape the teacher's tcpTransport used for
// its MBAP socket (spec.md §9's transport Open Question resolution).
package transport

import (
	"fmt"
	"net"
	"time"

	"github.com/RafaelMicro/gospinel/spinellog"
)

// TCP is a stream transport over a net.Conn, re-deadlining the socket on
// every Read/Write the way the teacher's tcpTransport did per-request
// (ExecuteRequest/ReadRequest), generalized here to a plain
// io.ReadWriteCloser with no MBAP-style request/response framing.
type TCP struct {
	conn    net.Conn
	timeout time.Duration
	log     spinellog.Logger
}

// DialTCP connects to addr and wraps the resulting connection. timeout, if
// non-zero, is applied as a rolling per-call deadline on every Read and
// Write.
func DialTCP(addr string, timeout time.Duration, log spinellog.Logger) (*TCP, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dialing %s: %w", addr, err)
	}
	return NewTCP(conn, timeout, log), nil
}

// NewTCP wraps an already-established connection, e.g. one accepted by a
// listener in a test harness.
func NewTCP(conn net.Conn, timeout time.Duration, log spinellog.Logger) *TCP {
	if log == nil {
		log = spinellog.Discard
	}
	return &TCP{conn: conn, timeout: timeout, log: log.With("transport", fmt.Sprintf("tcp(%s)", conn.RemoteAddr()))}
}

func (t *TCP) deadline() time.Time {
	if t.timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(t.timeout)
}

// Read implements io.Reader.
func (t *TCP) Read(p []byte) (int, error) {
	if err := t.conn.SetReadDeadline(t.deadline()); err != nil {
		return 0, err
	}
	n, err := t.conn.Read(p)
	if err != nil {
		t.log.Debug("read error", "err", err)
	}
	return n, err
}

// Write implements io.Writer.
func (t *TCP) Write(p []byte) (int, error) {
	if err := t.conn.SetWriteDeadline(t.deadline()); err != nil {
		return 0, err
	}
	return t.conn.Write(p)
}

// Close implements io.Closer.
func (t *TCP) Close() error {
	return t.conn.Close()
}
