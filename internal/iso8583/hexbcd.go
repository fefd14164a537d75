package iso8583

import (
	"encoding/hex"
	"strings"
)

// HexToBytes decodes a hex string into raw bytes. It requires an even
// number of characters and fails with KindBadHex on an odd length or any
// non-hex digit.
func HexToBytes(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, newErr(KindBadHex, "odd-length hex string")
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, newErr(KindBadHex, "non-hex digit in "+s)
	}
	return b, nil
}

// BytesToHex encodes raw bytes as a lowercase, two-digit-per-byte hex
// string.
func BytesToHex(b []byte) string {
	return hex.EncodeToString(b)
}

// StrToBcdPackedUnsigned packs a decimal digit string two digits per byte,
// high nibble first. An odd digit count is left-padded with a leading '0'.
func StrToBcdPackedUnsigned(s string) ([]byte, error) {
	if err := requireDigits(s); err != nil {
		return nil, err
	}
	if len(s)%2 != 0 {
		s = "0" + s
	}
	out := make([]byte, len(s)/2)
	for i := 0; i < len(out); i++ {
		hi := s[i*2] - '0'
		lo := s[i*2+1] - '0'
		out[i] = hi<<4 | lo
	}
	return out, nil
}

// BcdPackedUnsignedToStr unpacks a BCD-packed-unsigned byte slice into its
// decimal digit string (two digits per byte).
func BcdPackedUnsignedToStr(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b) * 2)
	for _, by := range b {
		sb.WriteByte('0' + (by >> 4))
		sb.WriteByte('0' + (by & 0x0F))
	}
	return sb.String()
}

// signChars are the accepted leading-sign characters for signed BCD input.
const signChars = "+-CcDd"

// StrToBcdPackedSigned packs a decimal digit string with an optional
// leading sign character in {'+','-','C','c','D','d'} (absent means
// positive). An odd total digit count emits a trailing sign nibble (0xC
// positive, 0xD negative); an even digit count always encodes unsigned,
// silently dropping any requested sign.
func StrToBcdPackedSigned(s string) ([]byte, error) {
	negative := false
	if len(s) > 0 && strings.ContainsRune(signChars, rune(s[0])) {
		switch s[0] {
		case '-', 'D', 'd':
			negative = true
		}
		s = s[1:]
	}
	if err := requireDigits(s); err != nil {
		return nil, err
	}

	if len(s)%2 == 0 {
		return StrToBcdPackedUnsigned(s)
	}

	signNibble := byte(0x0C)
	if negative {
		signNibble = 0x0D
	}

	out := make([]byte, (len(s)+1)/2)
	// Pack full pairs of digits, then the final digit + sign nibble.
	i := 0
	oi := 0
	for ; i+1 < len(s); i += 2 {
		out[oi] = (s[i]-'0')<<4 | (s[i+1] - '0')
		oi++
	}
	out[oi] = (s[i]-'0')<<4 | signNibble
	return out, nil
}

// BcdPackedSignedToStr unpacks a signed-BCD byte slice. If the final nibble
// is >= 0x0A it is treated as a sign nibble (0xD negative, otherwise
// positive) and the preceding high nibble becomes the last digit;
// otherwise the whole slice decodes as an unsigned value.
func BcdPackedSignedToStr(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	lastLo := b[len(b)-1] & 0x0F
	if lastLo < 0x0A {
		return BcdPackedUnsignedToStr(b)
	}

	var sb strings.Builder
	if lastLo == 0x0D {
		sb.WriteByte('D')
	} else {
		sb.WriteByte('C')
	}
	for i := 0; i < len(b)-1; i++ {
		sb.WriteByte('0' + (b[i] >> 4))
		sb.WriteByte('0' + (b[i] & 0x0F))
	}
	sb.WriteByte('0' + (b[len(b)-1] >> 4))
	return sb.String()
}

func requireDigits(s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return newErr(KindBadBcd, "non-decimal digit in "+s)
		}
	}
	return nil
}
