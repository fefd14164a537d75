package iso8583

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCRC32EmptyInput(t *testing.T) {
	require.Equal(t, uint32(0), CRC32(nil))
	require.Equal(t, "00000000", CRC32Hex(nil))
}

func TestCRC32KnownVector(t *testing.T) {
	sum := CRC32([]byte("123456789"))
	require.Equal(t, uint32(0xCBF43926), sum)
	require.Equal(t, "CBF43926", CRC32Hex([]byte("123456789")))
}

func TestCRC32DiffersOnDifferentInput(t *testing.T) {
	require.NotEqual(t, CRC32([]byte("123456789")), CRC32([]byte("123456780")))
}
