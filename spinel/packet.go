package spinel

import "fmt"

// Header is the single framing byte that precedes every Spinel packet:
// bits 7-6 are fixed at 0b10, bits 5-4 are the Interface Identifier, and
// bits 3-0 are the Transaction Identifier.
type Header byte

// DefaultHeaderTID1 is the header the reference implementation defaults to
// when a caller doesn't supply one explicitly: flag bits set, IID 0, TID 1.
const DefaultHeaderTID1 = Header(0x81)

// AsyncTID is reserved for unsolicited frames (resets, stream pushes) and
// is never allocated to a caller's outstanding request.
const AsyncTID = 0

// NewHeader packs an IID (0-3) and TID (0-15) into a header byte.
func NewHeader(iid, tid byte) Header {
	return Header(0x80 | (iid&0x3)<<4 | (tid & 0xf))
}

// TID extracts the 4-bit Transaction Identifier.
//
// The header also carries a 2-bit IID above it (see IID); the reference
// driver ignores the IID entirely when routing packets to waiters, and this
// port reproduces that as-is rather than guessing at the intended
// multi-interface behavior. IID() exists purely as an extension point for a
// future multi-NCP-interface caller.
func (h Header) TID() byte {
	return byte(h) & 0xf
}

// IID extracts the 2-bit Interface Identifier. See the TID doc comment:
// nothing in this package currently consults it.
func (h Header) IID() byte {
	return (byte(h) >> 4) & 0x3
}

// Packet is a fully decoded Spinel frame: header, command identifier, and
// command-specific payload.
type Packet struct {
	Header  Header
	Command uint32
	Payload []byte
}

// EncodePacket assembles a Spinel frame: the header byte, the command
// identifier as a varint, then the raw payload. HDLC byte-stuffing and FCS,
// if enabled, are applied afterward by the hdlc package — this function
// only ever produces the unframed packet.
func EncodePacket(header Header, command uint32, payload []byte) []byte {
	out := make([]byte, 0, 1+4+len(payload))
	out = append(out, byte(header))
	out = append(out, encodeVarint(command)...)
	out = append(out, payload...)
	return out
}

// DecodePacket reverses EncodePacket: one header byte, a varint command
// identifier, and the remainder as payload.
func DecodePacket(buf []byte) (Packet, error) {
	if len(buf) < 1 {
		return Packet{}, fmt.Errorf("%w: empty packet", ErrTruncated)
	}
	header := Header(buf[0])
	cmd, n, err := decodeVarint(buf[1:])
	if err != nil {
		return Packet{}, err
	}
	payload := buf[1+n:]
	out := make([]byte, len(payload))
	copy(out, payload)
	return Packet{Header: header, Command: cmd, Payload: out}, nil
}
