package transaction

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RafaelMicro/gospinel/spinel"
	"github.com/RafaelMicro/gospinel/spinel/property"
)

// signalWriter is a bytes.Buffer that closes ready the first time something
// is written to it, so a test can synchronize on "the request has been
// transmitted" without a sleep.
type signalWriter struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	ready chan struct{}
	once  sync.Once
}

func newSignalWriter() *signalWriter {
	return &signalWriter{ready: make(chan struct{})}
}

func (w *signalWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, err := w.buf.Write(p)
	w.once.Do(func() { close(w.ready) })
	return n, err
}

func isPacket(tid byte, cmd property.Command, propID property.ID, value any, format string) spinel.Packet {
	idPayload, err := spinel.EncodeFields("i", uint32(propID))
	if err != nil {
		panic(err)
	}
	body, err := spinel.EncodeFields(format, value)
	if err != nil {
		panic(err)
	}
	return spinel.Packet{
		Header:  spinel.NewHeader(0, tid),
		Command: uint32(cmd),
		Payload: append(idPayload, body...),
	}
}

func newTestMux() (*Mux, *signalWriter) {
	w := newSignalWriter()
	registry := property.NewRegistry(nil)
	return New(w, registry), w
}

func TestPropGetReturnsMatchingResponse(t *testing.T) {
	mux, w := newTestMux()
	mux.QueueRegister(1)

	resultCh := make(chan any, 1)
	errCh := make(chan error, 1)
	go func() {
		v, err := mux.PropGet(property.PropLastStatus, 1, time.Second)
		resultCh <- v
		errCh <- err
	}()

	<-w.ready
	mux.Dispatch(isPacket(1, property.CmdPropValueIs, property.PropLastStatus, uint32(0), "i"))

	require.NoError(t, <-errCh)
	assert.Equal(t, uint32(0), <-resultCh)
}

// TestPropGetSkipsNonMatchingThenMatches exercises the ordering invariant
// from spec.md §3/§8: an item for a different property arriving first on
// the same TID is held, not delivered, until the matching one arrives.
func TestPropGetSkipsNonMatchingThenMatches(t *testing.T) {
	mux, w := newTestMux()
	mux.QueueRegister(1)

	resultCh := make(chan any, 1)
	go func() {
		v, _ := mux.PropGet(property.PropNCPVersion, 1, time.Second)
		resultCh <- v
	}()

	<-w.ready
	mux.Dispatch(isPacket(1, property.CmdPropValueIs, property.PropLastStatus, uint32(0), "i"))
	mux.Dispatch(isPacket(1, property.CmdPropValueIs, property.PropNCPVersion, "v1.0", "U"))

	assert.Equal(t, "v1.0", <-resultCh)
}

func TestPropGetTimesOutWithNoResponse(t *testing.T) {
	mux, _ := newTestMux()
	mux.QueueRegister(1)
	v, err := mux.PropGet(property.PropLastStatus, 1, 30*time.Millisecond)
	assert.ErrorIs(t, err, spinel.ErrTimeout)
	assert.Nil(t, v)
}

// TestCallbackSuppressesEnqueue is spec.md §8's callback-suppression
// property: once a registered callback reports an event "consumed," no
// subsequent wait for that property on that TID observes it.
func TestCallbackSuppressesEnqueue(t *testing.T) {
	mux, _ := newTestMux()
	mux.QueueRegister(1)

	var seen []any
	mux.CallbackRegister(property.PropLastStatus, func(it ResponseItem) bool {
		seen = append(seen, it.Value)
		return true // consumed
	})

	mux.Dispatch(isPacket(1, property.CmdPropValueIs, property.PropLastStatus, uint32(5), "i"))
	assert.Equal(t, []any{uint32(5)}, seen)

	v, err := mux.PropGet(property.PropLastStatus, 1, 30*time.Millisecond)
	assert.Nil(t, v)
	assert.ErrorIs(t, err, spinel.ErrTimeout)
}

// TestCallbacksRunInRegistrationOrder: multiple callbacks for the same
// property fire in the order they were registered, and the first one that
// consumes stops the rest from ever seeing it reach the queue.
func TestCallbacksRunInRegistrationOrder(t *testing.T) {
	mux, _ := newTestMux()
	mux.QueueRegister(1)

	var order []int
	mux.CallbackRegister(property.PropLastStatus, func(ResponseItem) bool {
		order = append(order, 1)
		return false
	})
	mux.CallbackRegister(property.PropLastStatus, func(ResponseItem) bool {
		order = append(order, 2)
		return true
	})
	mux.CallbackRegister(property.PropLastStatus, func(ResponseItem) bool {
		order = append(order, 3)
		return false
	})

	mux.Dispatch(isPacket(1, property.CmdPropValueIs, property.PropLastStatus, uint32(1), "i"))
	assert.Equal(t, []int{1, 2}, order)
}

// TestResetHandshake is spec.md §8's reset-handshake property: Reset()
// returns true iff a LAST_STATUS==RESET_SOFTWARE(114) arrives on the
// asynchronous TID within the timeout.
func TestResetHandshake(t *testing.T) {
	mux, w := newTestMux()

	done := make(chan bool, 1)
	go func() { done <- mux.Reset() }()

	<-w.ready
	mux.Dispatch(isPacket(spinel.AsyncTID, property.CmdPropValueIs, property.PropLastStatus, property.StatusResetSoftware, "i"))

	assert.True(t, <-done)
}

func TestResetHandshakeFailsOnWrongStatus(t *testing.T) {
	mux, w := newTestMux()

	done := make(chan bool, 1)
	go func() { done <- mux.Reset() }()

	<-w.ready
	mux.Dispatch(isPacket(spinel.AsyncTID, property.CmdPropValueIs, property.PropLastStatus, property.StatusOK, "i"))

	select {
	case ok := <-done:
		t.Fatalf("Reset returned early with %v before timeout", ok)
	case <-time.After(50 * time.Millisecond):
	}
}

// TestDispatchIgnoresChildTableInsertRemove is spec.md §4.4's special case:
// PROP_THREAD_CHILD_TABLE surfaces only full-table IS snapshots.
func TestDispatchIgnoresChildTableInsertRemove(t *testing.T) {
	mux, _ := newTestMux()
	mux.QueueRegister(1)

	var got []property.Command
	mux.CallbackRegister(property.PropThreadChildTable, func(it ResponseItem) bool {
		got = append(got, it.Command)
		return true
	})

	mux.Dispatch(isPacket(1, property.CmdPropValueInserted, property.PropThreadChildTable, []byte{0x01}, "D"))
	mux.Dispatch(isPacket(1, property.CmdPropValueRemoved, property.PropThreadChildTable, []byte{0x02}, "D"))
	mux.Dispatch(isPacket(1, property.CmdPropValueIs, property.PropThreadChildTable, []byte{0x03}, "D"))

	assert.Equal(t, []property.Command{property.CmdPropValueIs}, got)
}
