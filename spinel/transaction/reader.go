package transaction

import (
	"errors"
	"io"

	"github.com/RafaelMicro/gospinel/spinel"
)

// Deframer is satisfied by the optional HDLC collector: Feed consumes one
// byte at a time and reports a complete, unescaped frame when one closes.
// A transport that already delivers whole packets (a test pipe, a stream
// transport used unframed) has no need of one.
type Deframer interface {
	Feed(b byte) (frame []byte, ok bool)
}

// Reader drives the single reader goroutine spec.md §5 describes: it owns
// the transport's read side exclusively, decodes packets, and hands them to
// the Mux. It must never block on a slow consumer — Mux.handle enforces
// that by construction, since queue pushes never block.
type Reader struct {
	in       io.Reader
	deframer Deframer
	mux      *Mux
}

// NewReader builds a Reader over in. deframer may be nil, in which case
// each Read is expected to already return exactly one packet (e.g. a
// message-oriented transport, or a transport known not to need HDLC
// unescaping).
func NewReader(in io.Reader, deframer Deframer, mux *Mux) *Reader {
	return &Reader{in: in, deframer: deframer, mux: mux}
}

// Run reads until the transport errors or the Mux is closed. A read error
// observed after Close is swallowed, since it's the expected consequence of
// the transport being torn down underneath an in-flight Read; one observed
// while still alive is returned to the caller, except io.EOF, which ends
// Run with a nil error.
func (r *Reader) Run() error {
	if r.deframer != nil {
		return r.runFramed()
	}
	return r.runUnframed()
}

func (r *Reader) runUnframed() error {
	buf := make([]byte, 4096)
	for r.mux.Alive() {
		n, err := r.in.Read(buf)
		if err != nil {
			if !r.mux.Alive() || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		r.handleFrame(buf[:n])
	}
	return nil
}

func (r *Reader) runFramed() error {
	one := make([]byte, 1)
	for r.mux.Alive() {
		n, err := r.in.Read(one)
		if err != nil {
			if !r.mux.Alive() || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if n == 0 {
			continue
		}
		frame, ok := r.deframer.Feed(one[0])
		if !ok {
			continue
		}
		r.handleFrame(frame)
	}
	return nil
}

func (r *Reader) handleFrame(frame []byte) {
	pkt, err := spinel.DecodePacket(frame)
	if err != nil {
		// Malformed input never propagates out of the reader (spec.md §7);
		// it is logged through the Mux's logger and dropped here.
		r.mux.log.Warn("dropping undecodable frame", "err", err)
		return
	}
	r.mux.Dispatch(pkt)
}
