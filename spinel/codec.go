package spinel

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"
)

// widthCheck verifies buf has at least n bytes and returns n, or
// ErrTruncated otherwise. Mirrors the teacher's io.ReadFull-style
// length checks (elektrosoftlab-modbus/tcp_transport.go readMBAPFrame)
// but without consuming from an io.Reader — these buffers are already in
// memory.
func widthCheck(buf []byte, n int) (int, error) {
	if len(buf) < n {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, n, len(buf))
	}
	return n, nil
}

func le16(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }
func le32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }
func le64(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }

// decodeOne decodes a single atomic format code from the head of buf,
// returning the Go value, the number of bytes consumed, and any error. The
// two compound codes, t and A, are not atomic and are handled by
// decodeElems since they need the inner format tree, not just a code byte.
func decodeOne(buf []byte, code byte) (any, int, error) {
	switch code {
	case 'b':
		n, err := widthCheck(buf, 1)
		if err != nil {
			return nil, 0, err
		}
		switch buf[0] {
		case 0x00:
			return false, n, nil
		case 0x01:
			return true, n, nil
		default:
			return nil, 0, fmt.Errorf("%w: invalid bool byte 0x%02x", ErrMalformed, buf[0])
		}
	case 'C':
		n, err := widthCheck(buf, 1)
		if err != nil {
			return nil, 0, err
		}
		return uint8(buf[0]), n, nil
	case 'c':
		n, err := widthCheck(buf, 1)
		if err != nil {
			return nil, 0, err
		}
		return int8(buf[0]), n, nil
	case 'S':
		n, err := widthCheck(buf, 2)
		if err != nil {
			return nil, 0, err
		}
		return le16(buf), n, nil
	case 's':
		n, err := widthCheck(buf, 2)
		if err != nil {
			return nil, 0, err
		}
		return int16(le16(buf)), n, nil
	case 'L':
		n, err := widthCheck(buf, 4)
		if err != nil {
			return nil, 0, err
		}
		return le32(buf), n, nil
	case 'l':
		n, err := widthCheck(buf, 4)
		if err != nil {
			return nil, 0, err
		}
		return int32(le32(buf)), n, nil
	case 'X':
		n, err := widthCheck(buf, 8)
		if err != nil {
			return nil, 0, err
		}
		return le64(buf), n, nil
	case 'i':
		return decodeVarint(buf)
	case '6':
		n, err := widthCheck(buf, 16)
		if err != nil {
			return nil, 0, err
		}
		ip := make(net.IP, 16)
		copy(ip, buf[:16])
		return ip, n, nil
	case 'E':
		n, err := widthCheck(buf, 8)
		if err != nil {
			return nil, 0, err
		}
		var eui [8]byte
		copy(eui[:], buf[:8])
		return eui, n, nil
	case 'e':
		n, err := widthCheck(buf, 6)
		if err != nil {
			return nil, 0, err
		}
		var eui [6]byte
		copy(eui[:], buf[:6])
		return eui, n, nil
	case 'U':
		idx := bytes.IndexByte(buf, 0x00)
		if idx < 0 {
			return nil, 0, fmt.Errorf("%w: unterminated string", ErrMalformed)
		}
		return string(buf[:idx]), idx + 1, nil
	case 'D':
		out := make([]byte, len(buf))
		copy(out, buf)
		return out, len(buf), nil
	case 'd':
		n, err := widthCheck(buf, 2)
		if err != nil {
			return nil, 0, err
		}
		length := int(le16(buf))
		need := 2 + length
		if need > len(buf) {
			return nil, 0, fmt.Errorf("%w: d declares %d bytes, have %d", ErrTruncated, length, len(buf)-2)
		}
		out := make([]byte, length)
		copy(out, buf[2:need])
		return out, need, nil
	default:
		return nil, 0, fmt.Errorf("%w: %q is not an atomic code", ErrBadFormat, string(code))
	}
}

// encodeOne is the dual of decodeOne for atomic codes.
func encodeOne(code byte, value any) ([]byte, error) {
	switch code {
	case 'b':
		v, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: 'b' wants bool, got %T", ErrBadFormat, value)
		}
		if v {
			return []byte{0x01}, nil
		}
		return []byte{0x00}, nil
	case 'C':
		return []byte{byte(mustUint(value, code))}, nil
	case 'c':
		return []byte{byte(mustInt(value, code))}, nil
	case 'S':
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(mustUint(value, code)))
		return b, nil
	case 's':
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(int16(mustInt(value, code))))
		return b, nil
	case 'L':
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(mustUint(value, code)))
		return b, nil
	case 'l':
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(int32(mustInt(value, code))))
		return b, nil
	case 'X':
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, mustUint(value, code))
		return b, nil
	case 'i':
		n, ok := asUint32(value)
		if !ok {
			return nil, fmt.Errorf("%w: 'i' wants an unsigned integer, got %T", ErrBadFormat, value)
		}
		return encodeVarint(n), nil
	case '6':
		ip, ok := value.(net.IP)
		if !ok {
			return nil, fmt.Errorf("%w: '6' wants net.IP, got %T", ErrBadFormat, value)
		}
		ip16 := ip.To16()
		if ip16 == nil {
			return nil, fmt.Errorf("%w: '6' value is not a valid IPv6 address", ErrBadFormat)
		}
		out := make([]byte, 16)
		copy(out, ip16)
		return out, nil
	case 'E':
		eui, ok := value.([8]byte)
		if !ok {
			return nil, fmt.Errorf("%w: 'E' wants [8]byte, got %T", ErrBadFormat, value)
		}
		out := make([]byte, 8)
		copy(out, eui[:])
		return out, nil
	case 'e':
		eui, ok := value.([6]byte)
		if !ok {
			return nil, fmt.Errorf("%w: 'e' wants [6]byte, got %T", ErrBadFormat, value)
		}
		out := make([]byte, 6)
		copy(out, eui[:])
		return out, nil
	case 'U':
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: 'U' wants string, got %T", ErrBadFormat, value)
		}
		out := make([]byte, 0, len(s)+1)
		out = append(out, s...)
		out = append(out, 0x00)
		return out, nil
	case 'D':
		b, ok := value.([]byte)
		if !ok {
			return nil, fmt.Errorf("%w: 'D' wants []byte, got %T", ErrBadFormat, value)
		}
		out := make([]byte, len(b))
		copy(out, b)
		return out, nil
	case 'd':
		b, ok := value.([]byte)
		if !ok {
			return nil, fmt.Errorf("%w: 'd' wants []byte, got %T", ErrBadFormat, value)
		}
		out := make([]byte, 2+len(b))
		binary.LittleEndian.PutUint16(out, uint16(len(b)))
		copy(out[2:], b)
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q is not an atomic code", ErrBadFormat, string(code))
	}
}

// mustUint/mustInt coerce the handful of Go integer kinds callers
// realistically pass (the registry always passes the exact decoded type
// back on re-encode, but callers constructing values by hand may use any
// convenient width) into the wire width requested by code. They panic is
// avoided; the caller gets 0 on type mismatch, matching the fire-and-forget
// tolerance the teacher's packers use with already-validated internal data.
func mustUint(value any, code byte) uint64 {
	if v, ok := asUint64(value); ok {
		return v
	}
	return 0
}

func mustInt(value any, code byte) int64 {
	switch v := value.(type) {
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	if v, ok := asUint64(value); ok {
		return int64(v)
	}
	return 0
}

func asUint64(value any) (uint64, bool) {
	switch v := value.(type) {
	case uint8:
		return uint64(v), true
	case uint16:
		return uint64(v), true
	case uint32:
		return uint64(v), true
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		return uint64(v), true
	case int8:
		return uint64(uint8(v)), true
	case int16:
		return uint64(uint16(v)), true
	case int32:
		return uint64(uint32(v)), true
	case int64:
		return uint64(v), true
	}
	return 0, false
}

func asUint32(value any) (uint32, bool) {
	v, ok := asUint64(value)
	return uint32(v), ok
}

// unwrap applies the Spinel convention that a format producing exactly one
// top-level value yields that value directly rather than a one-element
// tuple, while a format with more than one top-level element yields a
// []any tuple. This rule is applied recursively: at the outermost
// DecodeFields call, inside every t(...)'s inner decode, and for every
// A(...) record. It is what makes "A(t(EC))" decode to a flat sequence of
// (E, C) pairs instead of a sequence of nested one-tuples.
func unwrap(values []any) any {
	if len(values) == 1 {
		return values[0]
	}
	return values
}

// wrap is the dual of unwrap: given the value that DecodeFields would have
// produced for a scope of the given arity, recover the per-element slice
// EncodeFields needs to walk.
func wrap(value any, arity int) ([]any, error) {
	if arity == 1 {
		return []any{value}, nil
	}
	values, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a %d-element tuple, got %T", ErrBadFormat, arity, value)
	}
	if len(values) != arity {
		return nil, fmt.Errorf("%w: expected %d values, got %d", ErrBadFormat, arity, len(values))
	}
	return values, nil
}

// decodeElems walks a compiled format tree once, decoding each top-level
// element from the head of buf in order. It returns the per-element
// decoded values (unwrapped by the caller) and the total number of bytes
// consumed.
func decodeElems(buf []byte, elems []formatElem) ([]any, int, error) {
	values := make([]any, 0, len(elems))
	total := 0
	for _, e := range elems {
		cur := buf[total:]
		switch e.code {
		case 'A':
			records := make([]any, 0)
			pos := 0
			for pos < len(cur) {
				n, err := measureElems(cur[pos:], e.inner)
				if err != nil {
					return nil, 0, err
				}
				if n == 0 {
					return nil, 0, fmt.Errorf("%w: A(...) inner format consumed zero bytes", ErrMalformed)
				}
				sub, consumed, err := decodeElems(cur[pos:pos+n], e.inner)
				if err != nil {
					return nil, 0, err
				}
				records = append(records, unwrap(sub))
				pos += consumed
			}
			values = append(values, records)
			total += len(cur)
		case 't':
			if _, err := widthCheck(cur, 2); err != nil {
				return nil, 0, err
			}
			length := int(le16(cur))
			need := 2 + length
			if need > len(cur) {
				return nil, 0, fmt.Errorf("%w: t(...) declares %d bytes, have %d", ErrTruncated, length, len(cur)-2)
			}
			sub, _, err := decodeElems(cur[2:need], e.inner)
			if err != nil {
				return nil, 0, err
			}
			values = append(values, unwrap(sub))
			total += need
		default:
			val, n, err := decodeOne(cur, e.code)
			if err != nil {
				return nil, 0, err
			}
			values = append(values, val)
			total += n
		}
	}
	return values, total, nil
}

// encodeElems is the dual of decodeElems.
func encodeElems(elems []formatElem, values []any) ([]byte, error) {
	if len(values) != len(elems) {
		return nil, fmt.Errorf("%w: format has %d elements, got %d values", ErrBadFormat, len(elems), len(values))
	}
	var out []byte
	for i, e := range elems {
		v := values[i]
		switch e.code {
		case 'A':
			records, ok := v.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: 'A(...)' wants []any records, got %T", ErrBadFormat, v)
			}
			for _, rec := range records {
				recValues, err := wrap(rec, len(e.inner))
				if err != nil {
					return nil, err
				}
				b, err := encodeElems(e.inner, recValues)
				if err != nil {
					return nil, err
				}
				out = append(out, b...)
			}
		case 't':
			innerValues, err := wrap(v, len(e.inner))
			if err != nil {
				return nil, err
			}
			body, err := encodeElems(e.inner, innerValues)
			if err != nil {
				return nil, err
			}
			lenPrefix := make([]byte, 2)
			binary.LittleEndian.PutUint16(lenPrefix, uint16(len(body)))
			out = append(out, lenPrefix...)
			out = append(out, body...)
		default:
			b, err := encodeOne(e.code, v)
			if err != nil {
				return nil, err
			}
			out = append(out, b...)
		}
	}
	return out, nil
}

// measureElems returns the number of bytes the given compiled format
// consumes from the head of buf, without materializing values. For t(...)
// and d this is the authoritative 16-bit length prefix; for A(...) and D it
// is everything remaining (both are only ever valid in tail position, a
// compile-time-enforced invariant).
func measureElems(buf []byte, elems []formatElem) (int, error) {
	total := 0
	for _, e := range elems {
		cur := buf[total:]
		n, err := measureElem(cur, e)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func measureElem(buf []byte, e formatElem) (int, error) {
	switch e.code {
	case 'b', 'C', 'c':
		return widthCheck(buf, 1)
	case 'S', 's':
		return widthCheck(buf, 2)
	case 'L', 'l':
		return widthCheck(buf, 4)
	case 'X':
		return widthCheck(buf, 8)
	case '6':
		return widthCheck(buf, 16)
	case 'E':
		return widthCheck(buf, 8)
	case 'e':
		return widthCheck(buf, 6)
	case 'i':
		return measureVarint(buf)
	case 'U':
		idx := bytes.IndexByte(buf, 0x00)
		if idx < 0 {
			return 0, fmt.Errorf("%w: unterminated string", ErrMalformed)
		}
		return idx + 1, nil
	case 'd', 't':
		if _, err := widthCheck(buf, 2); err != nil {
			return 0, err
		}
		length := int(le16(buf))
		need := 2 + length
		if need > len(buf) {
			return 0, fmt.Errorf("%w: declares %d bytes, have %d", ErrTruncated, length, len(buf)-2)
		}
		return need, nil
	case 'D', 'A':
		return len(buf), nil
	default:
		return 0, fmt.Errorf("%w: unknown format code %q", ErrBadFormat, string(e.code))
	}
}

// DecodeFields decodes format against the head of buf, returning the
// decoded value (unwrapped if format has exactly one top-level element, a
// []any tuple otherwise) and the number of bytes consumed.
func DecodeFields(buf []byte, format string) (any, int, error) {
	elems, err := compileFormat(format)
	if err != nil {
		return nil, 0, err
	}
	values, n, err := decodeElems(buf, elems)
	if err != nil {
		return nil, 0, err
	}
	return unwrap(values), n, nil
}

// EncodeFields is the dual of DecodeFields.
func EncodeFields(format string, value any) ([]byte, error) {
	elems, err := compileFormat(format)
	if err != nil {
		return nil, err
	}
	values, err := wrap(value, len(elems))
	if err != nil {
		return nil, err
	}
	return encodeElems(elems, values)
}

// Measure returns the number of bytes format consumes from the head of buf.
func Measure(buf []byte, format string) (int, error) {
	elems, err := compileFormat(format)
	if err != nil {
		return 0, err
	}
	return measureElems(buf, elems)
}
