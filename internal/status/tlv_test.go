package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestEncodeUint_LeadingZeroSuppression(t *testing.T) {
	var buf []byte
	buf = EncodeUint(buf, TagOutputSSRC, 0)
	assert.Equal(t, []byte{TagOutputSSRC, 0}, buf, "zero must encode as a bare length-0 field")

	buf = nil
	buf = EncodeUint(buf, TagOutputSSRC, 0x1234)
	assert.Equal(t, []byte{TagOutputSSRC, 2, 0x12, 0x34}, buf)
}

func TestEncodeUint_DecodeRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 255, 256, 0xdeadbeef, 0x0102030405060708} {
		var buf []byte
		buf = EncodeUint(buf, TagOutputSSRC, v)
		buf = append(buf, TagEOL)

		fields, err := Decode(buf)
		require.NoError(t, err)
		require.Len(t, fields, 1)
		assert.Equal(t, v, fields[0].AsUint64())
	}
}

func TestEncodeFloat64_DecodeRoundTrip(t *testing.T) {
	for _, v := range []float64{0, 1.5, -7074000.25, 14074000} {
		var buf []byte
		buf = EncodeFloat64(buf, TagRadioFrequency, v)
		buf = append(buf, TagEOL)

		fields, err := Decode(buf)
		require.NoError(t, err)
		require.Len(t, fields, 1)
		assert.Equal(t, v, fields[0].AsFloat64())
	}
}

func TestEncodeString_ShortForm_DecodeRoundTrip(t *testing.T) {
	var buf []byte
	buf = EncodeString(buf, TagPreset, "usb-wide")
	buf = append(buf, TagEOL)

	fields, err := Decode(buf)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "usb-wide", fields[0].AsString())
}

func TestEncodeString_ExtendedForm_DecodeRoundTrip(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	var buf []byte
	buf = EncodeString(buf, TagPreset, string(long))
	buf = append(buf, TagEOL)

	fields, err := Decode(buf)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, string(long), fields[0].AsString())
}

func TestDecode_StopsAtEOL(t *testing.T) {
	var buf []byte
	buf = EncodeUint(buf, TagOutputSSRC, 42)
	buf = append(buf, TagEOL)
	buf = EncodeUint(buf, TagOutputSSRC, 99) // must never be reached

	fields, err := Decode(buf)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, uint64(42), fields[0].AsUint64())
}

func TestDecode_TruncatedValueErrors(t *testing.T) {
	_, err := Decode([]byte{TagOutputSSRC, 4, 0x01, 0x02})
	assert.Error(t, err)
}

func TestReadPacketType(t *testing.T) {
	kind, rest, err := ReadPacketType([]byte{PacketCmd, TagEOL})
	require.NoError(t, err)
	assert.Equal(t, PacketCmd, kind)
	assert.Equal(t, []byte{TagEOL}, rest)

	_, _, err = ReadPacketType(nil)
	assert.Error(t, err)
}

func TestEncodeUint_DecodeRoundTrip_Rapid(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := rapid.Uint64().Draw(t, "value")
		var buf []byte
		buf = EncodeUint(buf, TagOutputSSRC, v)
		buf = append(buf, TagEOL)

		fields, err := Decode(buf)
		require.NoError(t, err)
		require.Len(t, fields, 1)
		assert.Equal(t, v, fields[0].AsUint64())
	})
}

func TestEncodeString_DecodeRoundTrip_Rapid(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.StringN(0, 400, -1).Draw(t, "value")
		var buf []byte
		buf = EncodeString(buf, TagPreset, s)
		buf = append(buf, TagEOL)

		fields, err := Decode(buf)
		require.NoError(t, err)
		require.Len(t, fields, 1)
		assert.Equal(t, s, fields[0].AsString())
	})
}
