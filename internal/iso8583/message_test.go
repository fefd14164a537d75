package iso8583

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newStandardMessage(t *testing.T) *IsoMessage {
	t.Helper()
	return NewIsoMessage(StandardFieldDefinitions())
}

func TestMessagePackMinimalScenario(t *testing.T) {
	m := newStandardMessage(t)
	require.NoError(t, m.SetMti("0210"))
	require.NoError(t, m.SetField(39, "00"))

	packed, err := m.Pack()
	require.NoError(t, err)

	want := []byte{0x02, 0x10, 0x00, 0x00, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00, 0x30, 0x30}
	require.Equal(t, want, packed)
}

func TestMessageUnpackRoundTrip(t *testing.T) {
	m := newStandardMessage(t)
	require.NoError(t, m.SetMti("0210"))
	require.NoError(t, m.SetField(39, "00"))
	require.NoError(t, m.SetField(37, "RETRIEVAL123"))

	packed, err := m.Pack()
	require.NoError(t, err)

	out := newStandardMessage(t)
	require.NoError(t, out.Unpack(packed, true))

	mti, ok := out.Mti()
	require.True(t, ok)
	require.Equal(t, "0210", mti)

	v39, ok := out.Field(39)
	require.True(t, ok)
	require.Equal(t, "00", v39)

	v37, ok := out.Field(37)
	require.True(t, ok)
	require.Equal(t, "RETRIEVAL123", v37)
}

func TestMessageUnpackRejectsUnknownFieldInBitmap(t *testing.T) {
	m := NewIsoMessage(map[int]FieldDefinition{})
	// primary bitmap with bit 2 (field 2) set, but the registry above
	// defines nothing.
	data := []byte{0x40, 0, 0, 0, 0, 0, 0, 0}
	err := m.Unpack(data, false)
	require.Error(t, err)
	require.True(t, Is(err, KindBadField))
}

func TestSetFieldRejectsUnknownField(t *testing.T) {
	m := newStandardMessage(t)
	err := m.SetField(90, "x")
	require.Error(t, err)
	require.True(t, Is(err, KindBadField))
}

func TestSetFieldChecksFormatBeforeLength(t *testing.T) {
	m := newStandardMessage(t)
	// field 3 is fixed FormatN, maxLen 6: "abcdefgh" is both non-numeric
	// and over-length, so the format failure must win.
	err := m.SetField(3, "abcdefgh")
	require.Error(t, err)
	require.True(t, Is(err, KindBadFormat))
	require.False(t, Is(err, KindBadLen))
}

func TestSetFieldRejectsOverLength(t *testing.T) {
	m := newStandardMessage(t)
	err := m.SetField(3, "1234567")
	require.Error(t, err)
	require.True(t, Is(err, KindBadLen))
}

func TestNewIsoMessagePanicsOnBadRegistryKey(t *testing.T) {
	require.Panics(t, func() {
		NewIsoMessage(map[int]FieldDefinition{1: {Format: FormatN, MaxLen: 1, LenMode: LenFixed}})
	})
}

func TestToStringMinimalScenario(t *testing.T) {
	m := newStandardMessage(t)
	require.NoError(t, m.SetMti("0210"))
	require.NoError(t, m.SetField(39, "00"))

	s, err := m.ToString()
	require.NoError(t, err)
	require.Equal(t, "0210"+"0000000002000000"+"00", s)
}

func TestToStringPadsFixedNumericField(t *testing.T) {
	m := newStandardMessage(t)
	require.NoError(t, m.SetField(11, "42")) // fixed N, maxLen 6

	s, err := m.ToString()
	require.NoError(t, err)
	// bitmap for field 11 only, then the zero-padded value.
	require.Equal(t, "0020000000000000"+"000042", s)
}

func TestToStringVariableFieldEmitsLengthPrefix(t *testing.T) {
	m := newStandardMessage(t)
	require.NoError(t, m.SetField(2, "411111111111")) // LLVAR N, maxLen 19

	s, err := m.ToString()
	require.NoError(t, err)
	require.Equal(t, "4000000000000000"+"12"+"411111111111", s)
}
