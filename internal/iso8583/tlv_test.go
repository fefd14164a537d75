package iso8583

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTLVListPackShortForm(t *testing.T) {
	var l TLVList
	l = l.Append(0x9F, []byte{0x01, 0x02, 0x03})

	require.Equal(t, []byte{0x9F, 0x03, 0x01, 0x02, 0x03}, l.Pack())
}

func TestTLVListPackLongForm(t *testing.T) {
	value := make([]byte, 200)
	var l TLVList
	l = l.Append(0x5A, value)

	packed := l.Pack()
	require.Equal(t, byte(0x5A), packed[0])
	require.Equal(t, byte(0x81), packed[1]) // 0x80 | 1 length byte
	require.Equal(t, byte(200), packed[2])
	require.Len(t, packed, 3+200)
}

func TestTLVListPackMultiByteTag(t *testing.T) {
	var l TLVList
	l = l.Append(0x1234, []byte{0xAA})

	require.Equal(t, []byte{0x12, 0x34, 0x01, 0xAA}, l.Pack())
}

func TestTLVListFind(t *testing.T) {
	var l TLVList
	l = l.Append(0x57, []byte("track2")).Append(0x5F24, []byte("2612"))

	found, ok := l.Find(0x5F24)
	require.True(t, ok)
	require.Equal(t, []byte("2612"), found.Value)

	_, ok = l.Find(0x9999)
	require.False(t, ok)
}

func TestTLVListAppendPreservesOrder(t *testing.T) {
	var l TLVList
	l = l.Append(1, []byte{1}).Append(2, []byte{2}).Append(3, []byte{3})

	require.Len(t, l, 3)
	require.Equal(t, 1, l[0].Tag)
	require.Equal(t, 2, l[1].Tag)
	require.Equal(t, 3, l[2].Tag)
}
