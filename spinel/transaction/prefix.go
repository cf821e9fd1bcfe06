package transaction

import (
	"net"
	"strconv"
	"sync"

	"github.com/RafaelMicro/gospinel/spinel"
	"github.com/RafaelMicro/gospinel/spinellog"
)

// onMeshNetsFormat is the per-record shape of PROP_THREAD_ON_MESH_NETS
// (spec.md §4.6): a /128 prefix, its actual declared bit length, and three
// flag bytes (stable, flags, local).
const onMeshNetsFormat = "A(t(6CCCC))"

// slaacFlagBit marks a PROP_THREAD_ON_MESH_NETS entry as eligible for
// stateless address autoconfiguration in the flags byte (spec.md §4.6:
// "entries whose flags include the SLAAC bit").
const slaacFlagBit = 0x10

// meshPrefix is one decoded on-mesh-network entry.
type meshPrefix struct {
	Prefix net.IP
	Length uint8
	Stable uint8
	Flags  uint8
	Local  uint8
}

// PrefixHandler is the dedicated single-consumer worker spec.md §4.6
// describes: it drains prefix-change payloads off a queue the reader
// goroutine feeds, so decoding and (potential) SLAAC bookkeeping never
// happens on the hot read path.
type PrefixHandler struct {
	log        spinellog.Logger
	slaacApply bool

	in   chan []byte
	done chan struct{}

	mu    sync.Mutex
	known map[string]meshPrefix
}

// NewPrefixHandler builds a handler with a bounded backlog of depth. SLAAC
// application is stubbed regardless of slaacApply — see applySLAAC's doc
// comment — the flag only selects which log line the stub writes, so a
// future real implementation can gate on it without callers changing.
func NewPrefixHandler(depth int, slaacApply bool, log spinellog.Logger) *PrefixHandler {
	if log == nil {
		log = spinellog.Discard
	}
	if depth <= 0 {
		depth = 16
	}
	return &PrefixHandler{
		log:        log,
		slaacApply: slaacApply,
		in:         make(chan []byte, depth),
		done:       make(chan struct{}),
		known:      make(map[string]meshPrefix),
	}
}

// Enqueue hands raw off to the worker without blocking the caller past the
// channel's buffer. A full backlog means the handler is falling behind; the
// payload is dropped and logged rather than applying back-pressure to the
// reader goroutine (spec.md §5: the reader must never block).
func (h *PrefixHandler) Enqueue(raw []byte) {
	select {
	case h.in <- raw:
	default:
		h.log.Warn("prefix handler backlog full, dropping update")
	}
}

// Run drains the queue until Close is called. Intended to run in its own
// goroutine.
func (h *PrefixHandler) Run() {
	for {
		select {
		case raw := <-h.in:
			h.process(raw)
		case <-h.done:
			for {
				select {
				case raw := <-h.in:
					h.process(raw)
				default:
					return
				}
			}
		}
	}
}

// Close stops Run after any already-queued items are drained.
func (h *PrefixHandler) Close() {
	close(h.done)
}

func (h *PrefixHandler) process(raw []byte) {
	value, _, err := spinel.DecodeFields(raw, onMeshNetsFormat)
	if err != nil {
		h.log.Warn("dropping undecodable on-mesh-nets update", "err", err)
		return
	}
	records, ok := value.([]any)
	if !ok {
		records = []any{value}
	}

	current := make(map[string]meshPrefix, len(records))
	for _, rec := range records {
		fields, ok := rec.([]any)
		if !ok || len(fields) != 5 {
			h.log.Warn("skipping malformed on-mesh-nets record")
			continue
		}
		ip, _ := fields[0].(net.IP)
		p := meshPrefix{
			Prefix: truncatePrefix(ip, fields[1].(uint8)),
			Length: fields[1].(uint8),
			Stable: fields[2].(uint8),
			Flags:  fields[3].(uint8),
			Local:  fields[4].(uint8),
		}
		// Only SLAAC-eligible entries are tracked as auto-configured
		// networks (spec.md §4.6); non-SLAAC on-mesh prefixes are routed
		// but never candidates for address autoconfiguration.
		if p.Flags&slaacFlagBit == 0 {
			continue
		}
		current[p.Prefix.String()+"/"+strconv.Itoa(int(p.Length))] = p
	}

	h.mu.Lock()
	added, removed := diffPrefixes(h.known, current)
	h.known = current
	h.mu.Unlock()

	for _, p := range added {
		h.applySLAAC(p, true)
	}
	for _, p := range removed {
		h.applySLAAC(p, false)
	}
}

// truncatePrefix masks ip down to its declared prefix length, the way the
// on-mesh-nets record's wire form always carries a full 16-byte address
// that the length field then qualifies (spec.md §4.6: "prefix truncated to
// the declared length").
func truncatePrefix(ip net.IP, length uint8) net.IP {
	if ip == nil {
		return ip
	}
	if length > 128 {
		length = 128
	}
	mask := net.CIDRMask(int(length), 128)
	out := make(net.IP, len(ip))
	for i := range ip {
		out[i] = ip[i] & mask[i]
	}
	return out
}

func diffPrefixes(old, new map[string]meshPrefix) (added, removed []meshPrefix) {
	for k, p := range new {
		if _, ok := old[k]; !ok {
			added = append(added, p)
		}
	}
	for k, p := range old {
		if _, ok := new[k]; !ok {
			removed = append(removed, p)
		}
	}
	return added, removed
}

// applySLAAC is intentionally a stub: spec.md's Open Question on SLAAC
// configuration is resolved as "log, don't touch host networking" (see
// DESIGN.md) regardless of h.slaacApply, which exists only so a future
// implementation of the real address-assignment side effect has a single
// call site to replace.
func (h *PrefixHandler) applySLAAC(p meshPrefix, present bool) {
	if !h.slaacApply {
		h.log.Debug("slaac application disabled, ignoring prefix change", "prefix", p.Prefix, "length", p.Length, "present", present)
		return
	}
	h.log.Info("slaac application not implemented, prefix change observed only", "prefix", p.Prefix, "length", p.Length, "present", present)
}
