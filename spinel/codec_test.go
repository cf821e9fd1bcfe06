package spinel

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDecodeFieldsAtomicRoundTrip(t *testing.T) {
	cases := []struct {
		format string
		value  any
	}{
		{"b", true},
		{"b", false},
		{"C", uint8(0xab)},
		{"c", int8(-5)},
		{"S", uint16(0xbeef)},
		{"s", int16(-1234)},
		{"L", uint32(0xdeadbeef)},
		{"l", int32(-100000)},
		{"X", uint64(0x0102030405060708)},
		{"i", uint32(300)},
		{"U", "hello"},
		{"D", []byte{1, 2, 3, 4}},
		{"d", []byte{0xaa, 0xbb}},
	}
	for _, c := range cases {
		t.Run(c.format, func(t *testing.T) {
			buf, err := EncodeFields(c.format, c.value)
			require.NoError(t, err)
			got, n, err := DecodeFields(buf, c.format)
			require.NoError(t, err)
			assert.Equal(t, len(buf), n)
			assert.Equal(t, c.value, got)
			m, err := Measure(buf, c.format)
			require.NoError(t, err)
			assert.Equal(t, len(buf), m)
		})
	}
}

func TestBoolRejectsInvalidByte(t *testing.T) {
	_, _, err := DecodeFields([]byte{0x02}, "b")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestIPv6RoundTrip(t *testing.T) {
	ip := net.ParseIP("2001:db8::1")
	buf, err := EncodeFields("6", ip)
	require.NoError(t, err)
	require.Len(t, buf, 16)
	got, n, err := DecodeFields(buf, "6")
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	assert.True(t, ip.Equal(got.(net.IP)))
}

func TestEUI64And48RoundTrip(t *testing.T) {
	eui64 := [8]byte{0, 1, 2, 3, 4, 5, 6, 7}
	buf, err := EncodeFields("E", eui64)
	require.NoError(t, err)
	got, n, err := DecodeFields(buf, "E")
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, eui64, got)

	eui48 := [6]byte{0x10, 0x11, 0x12, 0x13, 0x14, 0x15}
	buf, err = EncodeFields("e", eui48)
	require.NoError(t, err)
	got, n, err = DecodeFields(buf, "e")
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, eui48, got)
}

// TestDEmptyPayload: d round-trips with an empty payload (spec.md §8
// boundary case #4: encode_d(b"") = 00 00).
func TestDEmptyPayload(t *testing.T) {
	buf, err := EncodeFields("d", []byte{})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00}, buf)
	got, n, err := DecodeFields(buf, "d")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{}, got)
}

// TestDTruncatedDeclaredLengthRejected: a d whose declared length exceeds
// the remaining buffer must be rejected as Truncated (spec.md §8 boundary
// case).
func TestDTruncatedDeclaredLengthRejected(t *testing.T) {
	buf := []byte{0x05, 0x00, 0x01, 0x02} // declares 5 bytes, has 2
	_, _, err := DecodeFields(buf, "d")
	assert.ErrorIs(t, err, ErrTruncated)
	_, err = Measure(buf, "d")
	assert.ErrorIs(t, err, ErrTruncated)
}

// TestStringWithEmbeddedNull: "U" stops at the first 0x00, even if more
// bytes with further content follow (spec.md §8 boundary case).
func TestStringWithEmbeddedNull(t *testing.T) {
	buf := []byte{'h', 'i', 0x00, 'x', 'x'}
	got, n, err := DecodeFields(buf, "U")
	require.NoError(t, err)
	assert.Equal(t, "hi", got)
	assert.Equal(t, 3, n)
}

func TestUnterminatedStringIsMalformed(t *testing.T) {
	_, _, err := DecodeFields([]byte{'h', 'i'}, "U")
	assert.ErrorIs(t, err, ErrMalformed)
}

// TestNestedStructThreeLevels: t(t(t(C))) three levels deep (spec.md §8
// boundary case).
func TestNestedStructThreeLevels(t *testing.T) {
	format := "t(t(t(C)))"
	buf, err := EncodeFields(format, uint8(42))
	require.NoError(t, err)
	got, n, err := DecodeFields(buf, format)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, uint8(42), got)
}

// TestArrayOfStructEUIRSSIScenario is spec.md §8 scenario #5: A(t(EC))
// with two entries.
func TestArrayOfStructEUIRSSIScenario(t *testing.T) {
	e1 := [8]byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}
	e2 := [8]byte{0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17}
	value := []any{
		[]any{e1, uint8(0x11)},
		[]any{e2, uint8(0x22)},
	}
	buf, err := EncodeFields("A(t(EC))", value)
	require.NoError(t, err)

	want := append([]byte{0x09, 0x00}, e1[:]...)
	want = append(want, 0x11)
	want = append(want, 0x09, 0x00)
	want = append(want, e2[:]...)
	want = append(want, 0x22)
	assert.Equal(t, want, buf)

	got, n, err := DecodeFields(buf, "A(t(EC))")
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, value, got)
}

// TestArrayOfStructZeroLength: an empty A(t(EC)) decodes to zero records.
func TestArrayOfStructZeroLength(t *testing.T) {
	got, n, err := DecodeFields(nil, "A(t(EC))")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, []any{}, got)
}

func TestDAndANotLastRejected(t *testing.T) {
	_, err := Compile("DC")
	assert.ErrorIs(t, err, ErrBadFormat)

	_, err = Compile("A(C)C")
	assert.ErrorIs(t, err, ErrBadFormat)
}

func TestTAndAWithoutParenRejected(t *testing.T) {
	_, err := Compile("t")
	assert.ErrorIs(t, err, ErrBadFormat)

	_, err = Compile("A")
	assert.ErrorIs(t, err, ErrBadFormat)
}

func TestUnbalancedParensRejected(t *testing.T) {
	_, err := Compile("t(C")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Compile("t(C))")
	assert.ErrorIs(t, err, ErrMalformed)
}

// TestCodecRoundTripProperty is the property-based codec round-trip test
// spec.md §8 calls for: for a selection of formats in the grammar,
// decode(encode(v)) == v and measure agrees with the encoded length.
func TestCodecRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		format := rapid.SampledFrom([]string{"C", "c", "S", "s", "L", "l", "X", "i"}).Draw(rt, "format")
		var value any
		switch format {
		case "C":
			value = rapid.Uint8().Draw(rt, "v")
		case "c":
			value = rapid.Int8().Draw(rt, "v")
		case "S":
			value = rapid.Uint16().Draw(rt, "v")
		case "s":
			value = rapid.Int16().Draw(rt, "v")
		case "L":
			value = rapid.Uint32().Draw(rt, "v")
		case "l":
			value = rapid.Int32().Draw(rt, "v")
		case "X":
			value = rapid.Uint64().Draw(rt, "v")
		case "i":
			value = rapid.Uint32Range(0, (1<<28)-1).Draw(rt, "v")
		}
		buf, err := EncodeFields(format, value)
		if !assert.NoError(rt, err) {
			return
		}
		got, n, err := DecodeFields(buf, format)
		if !assert.NoError(rt, err) {
			return
		}
		assert.Equal(rt, value, got)
		assert.Equal(rt, len(buf), n)
		m, err := Measure(buf, format)
		if !assert.NoError(rt, err) {
			return
		}
		assert.Equal(rt, len(buf), m)
	})
}
