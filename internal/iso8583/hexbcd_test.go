package iso8583

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := HexToBytes(s)
	require.NoError(t, err)
	return b
}

func TestHexToBytesRoundTrip(t *testing.T) {
	b := mustHex(t, "deadbeef")
	require.Equal(t, "deadbeef", BytesToHex(b))
}

func TestHexToBytesRejectsOddLength(t *testing.T) {
	_, err := HexToBytes("abc")
	require.Error(t, err)
	require.True(t, Is(err, KindBadHex))
}

func TestHexToBytesRejectsNonHexDigit(t *testing.T) {
	_, err := HexToBytes("zz")
	require.Error(t, err)
	require.True(t, Is(err, KindBadHex))
}

func TestBcdPackedUnsignedRoundTrip(t *testing.T) {
	cases := []string{"0", "12", "123", "1234", "00", "999999"}
	for _, s := range cases {
		packed, err := StrToBcdPackedUnsigned(s)
		require.NoError(t, err)

		want := s
		if len(want)%2 != 0 {
			want = "0" + want
		}
		require.Equal(t, want, BcdPackedUnsignedToStr(packed))
	}
}

func TestBcdPackedUnsignedRejectsNonDigits(t *testing.T) {
	_, err := StrToBcdPackedUnsigned("12a4")
	require.Error(t, err)
	require.True(t, Is(err, KindBadBcd))
}

func TestBcdPackedSignedNegativeEvenDigitCountDropsSign(t *testing.T) {
	packed, err := StrToBcdPackedSigned("D9999")
	require.NoError(t, err)
	require.Equal(t, []byte{0x99, 0x99}, packed)
	require.Equal(t, "9999", BcdPackedSignedToStr(packed))
}

func TestBcdPackedSignedEvenDigitCountIgnoresSign(t *testing.T) {
	packed, err := StrToBcdPackedSigned("-1234")
	require.NoError(t, err)
	require.Equal(t, "1234", BcdPackedUnsignedToStr(packed))
}

func TestBcdPackedSignedPositiveRoundTrip(t *testing.T) {
	packed, err := StrToBcdPackedSigned("+123")
	require.NoError(t, err)
	require.Equal(t, "C123", BcdPackedSignedToStr(packed))
}
