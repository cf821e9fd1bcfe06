package hdlc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func feedAll(c *Collector, buf []byte) (frame []byte, ok bool) {
	for _, b := range buf {
		frame, ok = c.Feed(b)
		if ok {
			return frame, true
		}
	}
	return nil, false
}

func TestEncodeCollectRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0x01},
		{0x81, 0x02, 0x02},
		{0x00, 0x7E, 0x7D, 0xFF, 0x7E, 0x7D},
	}
	for _, payload := range cases {
		encoded := Encode(payload)
		assert.Equal(t, byte(flag), encoded[0])
		assert.Equal(t, byte(flag), encoded[len(encoded)-1])

		c := NewCollector()
		got, ok := feedAll(c, encoded)
		require.True(t, ok)
		assert.Equal(t, payload, got)
	}
}

func TestCollectorRejectsBadFCS(t *testing.T) {
	encoded := Encode([]byte{0x01, 0x02, 0x03})
	encoded[len(encoded)-2] ^= 0xff // corrupt FCS high byte before the closing flag

	c := NewCollector()
	_, ok := feedAll(c, encoded)
	assert.False(t, ok)
}

func TestCollectorIgnoresBackToBackFlags(t *testing.T) {
	c := NewCollector()
	_, ok := c.Feed(flag)
	assert.False(t, ok)
	_, ok = c.Feed(flag) // second flag with nothing collected: stay open
	assert.False(t, ok)
	frame, ok := feedAll(c, Encode([]byte{0x01, 0x02})[1:])
	require.True(t, ok)
	assert.Equal(t, []byte{0x01, 0x02}, frame)
}

func TestCollectorSkipsBytesBeforeFirstFlag(t *testing.T) {
	c := NewCollector()
	_, ok := c.Feed(0x99) // garbage before any flag, should be dropped
	assert.False(t, ok)
	frame, ok := feedAll(c, Encode([]byte{0xAB, 0xCD}))
	require.True(t, ok)
	assert.Equal(t, []byte{0xAB, 0xCD}, frame)
}

// TestEncodeCollectProperty is the HDLC counterpart to the codec round-trip
// property: any byte sequence, including ones containing the flag or
// escape octets, survives Encode -> Collector.Feed unchanged.
func TestEncodeCollectProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		payload := rapid.SliceOf(rapid.Byte()).Draw(rt, "payload")
		encoded := Encode(payload)
		c := NewCollector()
		got, ok := feedAll(c, encoded)
		require.True(rt, ok)
		assert.Equal(rt, []byte(payload), got)
	})
}
