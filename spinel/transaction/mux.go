package transaction

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RafaelMicro/gospinel/spinel"
	"github.com/RafaelMicro/gospinel/spinel/property"
	"github.com/RafaelMicro/gospinel/spinellog"
)

// DefaultTimeout is the wall-clock deadline every blocking wait uses unless
// the caller overrides it (spec.md §4.5).
const DefaultTimeout = 2 * time.Second

// Framer is the capability interface the optional HDLC framing layer
// satisfies. Mux is agnostic to it: with framer == nil, transact() writes
// unframed packets, matching "the codec is agnostic to [HDLC]" (spec.md
// §4.2).
type Framer interface {
	Encode(frame []byte) []byte
}

// Callback subscribes to every update of a property (spec.md §4.5). It
// returns true to mark the event "consumed," suppressing the item from
// being enqueued onto its TID's queue — used by purely asynchronous
// listeners that would otherwise accumulate queue entries no one ever
// waits for.
type Callback func(ResponseItem) (consumed bool)

// Mux is the TransactionMux: per-TID response queues, per-property
// callbacks, and request issuance with TID bookkeeping (spec.md §4.5).
type Mux struct {
	out     io.Writer
	framer  Framer
	log     spinellog.Logger
	registry *property.Registry

	writeMu sync.Mutex

	mu          sync.Mutex
	queues      map[byte]*tidQueue
	tidFilter   map[byte]bool
	subscribers map[property.ID][]Callback

	alive atomic.Bool
}

// Option configures a Mux at construction.
type Option func(*Mux)

// WithFramer installs the optional HDLC framing layer.
func WithFramer(f Framer) Option { return func(m *Mux) { m.framer = f } }

// WithLogger installs the observability surface (spec.md §6).
func WithLogger(log spinellog.Logger) Option { return func(m *Mux) { m.log = log } }

// WithPrefixHandler wires a running PrefixHandler into the dataflow: every
// decoded THREAD_ON_MESH_NETS payload the registry produces is also handed
// to h.Enqueue, off the reader goroutine, per spec.md §4.3/§4.6. The caller
// still owns starting h.Run in its own goroutine and calling h.Close — this
// option only connects the registry's side-effect sink to it.
func WithPrefixHandler(h *PrefixHandler) Option {
	return func(m *Mux) { m.registry.OnMeshNetsSink = h.Enqueue }
}

// New builds a Mux that writes framed packets to out and decodes property
// payloads via registry. The asynchronous TID (0) is registered
// automatically since unsolicited frames (resets, stream pushes) always
// arrive on it.
func New(out io.Writer, registry *property.Registry, opts ...Option) *Mux {
	m := &Mux{
		out:         out,
		log:         spinellog.Discard,
		registry:    registry,
		queues:      make(map[byte]*tidQueue),
		tidFilter:   make(map[byte]bool),
		subscribers: make(map[property.ID][]Callback),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.alive.Store(true)
	m.queueRegister(spinel.AsyncTID)
	return m
}

// Alive reports whether the mux is still accepting inbound dispatch. The
// reader goroutine checks this between reads and stops cooperatively when
// it flips false (spec.md §5).
func (m *Mux) Alive() bool { return m.alive.Load() }

// Close marks the mux dead. In-flight waiters simply time out; it does not
// itself close the transport.
func (m *Mux) Close() {
	m.alive.Store(false)
}

// QueueRegister marks tid "of interest": subsequent matching inbound items
// are enqueued for it instead of being dropped after callback invocation
// (spec.md §3 invariant).
func (m *Mux) QueueRegister(tid byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queueRegister(tid)
}

func (m *Mux) queueRegister(tid byte) {
	m.tidFilter[tid] = true
	if _, ok := m.queues[tid]; !ok {
		m.queues[tid] = newTIDQueue()
	}
}

// QueueWaitPrepare clears tid's queue ahead of a new request, discarding
// anything left over from a previous, already-completed wait.
func (m *Mux) QueueWaitPrepare(tid byte) {
	m.mu.Lock()
	q, ok := m.queues[tid]
	if !ok {
		q = newTIDQueue()
		m.queues[tid] = q
		m.tidFilter[tid] = true
	}
	m.mu.Unlock()
	q.clear()
}

func (m *Mux) queueFor(tid byte) *tidQueue {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[tid]
	if !ok {
		q = newTIDQueue()
		m.queues[tid] = q
	}
	return q
}

// CallbackRegister subscribes cb to every update of propID. Callbacks for a
// given property run in registration order (spec.md §5); register before
// traffic starts, or serialize registration against the reader yourself,
// per spec.md §5's shared-resource policy.
func (m *Mux) CallbackRegister(propID property.ID, cb Callback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers[propID] = append(m.subscribers[propID], cb)
}

// Dispatch is the entry point the reader goroutine calls for every decoded
// inbound packet: CommandDispatcher peels the command, PropertyDecoder
// decodes the payload, and the result is routed to callbacks and/or the
// matching TID queue (spec.md §4.4, §3 invariants).
func (m *Mux) Dispatch(pkt spinel.Packet) {
	item, ok := m.dispatch(pkt)
	if !ok {
		return
	}
	m.handle(item)
}

func (m *Mux) handle(item ResponseItem) {
	m.mu.Lock()
	cbs := append([]Callback(nil), m.subscribers[item.PropertyID]...)
	interested := m.tidFilter[item.TID]
	q := m.queues[item.TID]
	m.mu.Unlock()

	for _, cb := range cbs {
		if cb(item) {
			return // consumed: suppress enqueue entirely
		}
	}

	if !interested || q == nil {
		// Not of interest to any waiter: may be dropped after callback
		// invocation, but must never be enqueued (spec.md §3).
		return
	}
	q.push(item)
}

// transact writes a framed command packet on tid. Non-blocking from the
// caller's point of view beyond whatever back-pressure the transport
// itself applies on Write.
func (m *Mux) transact(cmd property.Command, payload []byte, tid byte) error {
	header := spinel.NewHeader(0, tid)
	pkt := spinel.EncodePacket(header, uint32(cmd), payload)
	if m.framer != nil {
		pkt = m.framer.Encode(pkt)
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	_, err := m.out.Write(pkt)
	if err != nil {
		return fmt.Errorf("%w: %w", spinel.ErrTransport, err)
	}
	return nil
}

// Transact is the public, non-blocking TX primitive (spec.md §4.5): writes
// a framed packet and returns immediately.
func (m *Mux) Transact(cmd property.Command, payload []byte, tid byte) error {
	if !m.Alive() {
		return spinel.ErrClosed
	}
	return m.transact(cmd, payload, tid)
}

// request is shared by PropGet/Set/Insert/Remove: issue cmd with payload on
// tid, then block for the first response to propID on tid, whichever of the
// three PROP_VALUE_* notification commands carried it.
func (m *Mux) request(cmd property.Command, propID property.ID, payload []byte, tid byte, timeout time.Duration) (any, error) {
	m.QueueRegister(tid)
	m.QueueWaitPrepare(tid)
	if err := m.transact(cmd, payload, tid); err != nil {
		return nil, err
	}
	q := m.queueFor(tid)
	item, ok := q.wait(timeout, func(it ResponseItem) bool { return it.PropertyID == propID })
	if !ok {
		return nil, spinel.ErrTimeout
	}
	return item.Value, nil
}

func propIDPayload(id property.ID) []byte {
	b, err := spinel.EncodeFields("i", uint32(id))
	if err != nil {
		// uint32 always satisfies "i"; a failure here means codec.go
		// regressed, not a runtime condition callers can recover from.
		panic(fmt.Sprintf("transaction: encoding property id: %v", err))
	}
	return b
}

// PropGet issues CMD_PROP_VALUE_GET for propID on tid and blocks for the
// matching PROP_VALUE_IS, or timeout.
func (m *Mux) PropGet(propID property.ID, tid byte, timeout time.Duration) (any, error) {
	return m.request(property.CmdPropValueGet, propID, propIDPayload(propID), tid, timeout)
}

// PropSet issues CMD_PROP_VALUE_SET for propID, encoding value with format,
// and blocks for the matching PROP_VALUE_IS, or timeout.
func (m *Mux) PropSet(propID property.ID, value any, format string, tid byte, timeout time.Duration) (any, error) {
	body, err := spinel.EncodeFields(format, value)
	if err != nil {
		return nil, err
	}
	payload := append(propIDPayload(propID), body...)
	return m.request(property.CmdPropValueSet, propID, payload, tid, timeout)
}

// PropInsert issues CMD_PROP_VALUE_INSERT and blocks for the next update of
// propID on tid (PROP_VALUE_INSERTED, or IS/REMOVED alike), or timeout.
func (m *Mux) PropInsert(propID property.ID, value any, format string, tid byte, timeout time.Duration) (any, error) {
	body, err := spinel.EncodeFields(format, value)
	if err != nil {
		return nil, err
	}
	payload := append(propIDPayload(propID), body...)
	return m.request(property.CmdPropValueInsert, propID, payload, tid, timeout)
}

// PropRemove issues CMD_PROP_VALUE_REMOVE and blocks for the next update of
// propID on tid (PROP_VALUE_REMOVED, or IS/INSERTED alike), or timeout.
func (m *Mux) PropRemove(propID property.ID, value any, format string, tid byte, timeout time.Duration) (any, error) {
	body, err := spinel.EncodeFields(format, value)
	if err != nil {
		return nil, err
	}
	payload := append(propIDPayload(propID), body...)
	return m.request(property.CmdPropValueRemove, propID, payload, tid, timeout)
}

// Reset issues CMD_RESET on the asynchronous TID and reports whether a
// LAST_STATUS == RESET_SOFTWARE(114) arrived within DefaultTimeout
// (spec.md §4.5, §8).
func (m *Mux) Reset() bool {
	m.QueueWaitPrepare(spinel.AsyncTID)
	if err := m.transact(property.CmdReset, nil, spinel.AsyncTID); err != nil {
		m.log.Warn("reset: write failed", "err", err)
		return false
	}
	q := m.queueFor(spinel.AsyncTID)
	item, ok := q.wait(DefaultTimeout, func(it ResponseItem) bool {
		if it.PropertyID != property.PropLastStatus {
			return false
		}
		status, valid := it.Value.(uint32)
		return valid && status == property.StatusResetSoftware
	})
	return ok && item.PropertyID == property.PropLastStatus
}
