// Package transaction implements the CommandDispatcher, TransactionMux, and
// PrefixHandler from spec.md §4.4-§4.6: the concurrent request/response
// engine sitting on top of the spinel codec and property registry.
package transaction

import (
	"fmt"

	"github.com/RafaelMicro/gospinel/spinel"
	"github.com/RafaelMicro/gospinel/spinel/property"
)

// ResponseItem is the unit CommandDispatcher hands to the Mux: a decoded
// property update addressed to a transaction id. Its lifetime, per spec.md
// §3, is created by the dispatcher and consumed exactly once by the
// matching waiter, or dropped at queue-clear.
type ResponseItem struct {
	PropertyID property.ID
	Value      any
	TID        byte
	Command    property.Command
}

// dispatch recognizes the three PROP_VALUE_* notification commands,
// decodes the property payload, and returns the ResponseItem to enqueue —
// or ok=false if the packet should be logged and discarded (spec.md §4.4,
// §7: unrecognized commands, and parse errors, never propagate past this
// point).
func (m *Mux) dispatch(pkt spinel.Packet) (ResponseItem, bool) {
	tid := pkt.Header.TID()
	switch property.Command(pkt.Command) {
	case property.CmdPropValueIs, property.CmdPropValueInserted, property.CmdPropValueRemoved:
		propID, n, err := decodePropertyID(pkt.Payload)
		if err != nil {
			m.log.Warn("dropping packet with malformed property id", "err", err, "tid", tid)
			return ResponseItem{}, false
		}

		// Only full-table IS snapshots are surfaced for
		// PROP_THREAD_CHILD_TABLE; INSERTED/REMOVED notifications are
		// deliberately ignored (spec.md §4.4).
		if propID == property.PropThreadChildTable && property.Command(pkt.Command) != property.CmdPropValueIs {
			m.log.Debug("ignoring child table insert/remove notification", "tid", tid)
			return ResponseItem{}, false
		}

		result, err := m.registry.Decode(propID, pkt.Payload[n:])
		if err != nil {
			m.log.Warn("dropping packet with undecodable property payload", "property", propID, "err", err, "tid", tid)
			return ResponseItem{}, false
		}
		m.log.Debug("property update", "property", propID, "tid", tid, "command", pkt.Command)
		return ResponseItem{PropertyID: propID, Value: result.Value, TID: tid, Command: property.Command(pkt.Command)}, true
	default:
		m.log.Debug("discarding unrecognized command", "command", pkt.Command, "tid", tid)
		return ResponseItem{}, false
	}
}

func decodePropertyID(payload []byte) (property.ID, int, error) {
	v, n, err := spinel.DecodeFields(payload, "i")
	if err != nil {
		return 0, 0, fmt.Errorf("decoding property id: %w", err)
	}
	return property.ID(v.(uint32)), n, nil
}
