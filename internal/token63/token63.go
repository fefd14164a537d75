// Package token63 implements the proprietary sub-token grammar carried
// inside ISO 8583 field 63: fixed-offset ASCII records tagged `! EW`,
// `! ER`, `! EX`, `! ES` and `! EZ`, used to move DUKPT key-injection
// payloads and encrypted track data alongside the ISO message body.
package token63

import (
	"strings"

	"github.com/willians06/iso-acquirer-gateway/internal/iso8583"
)

// Fixed total lengths (header + payload) for each sub-token, per the
// wire grammar: "! XX" + 5-digit decimal length + one space + payload.
const (
	lenEW = 548
	lenER = 12
	lenEX = 78
	lenES = 70
	lenEZ = 108
)

const headerLen = 10 // "! XXNNNNN "

// EWFields is the parsed key-injection request carried in a `! EW`
// token.
type EWFields struct {
	CipheredTKHex string // 512 hex chars, RSA-wrapped transport key ciphertext
	KcvHex        string // 6 hex chars
	CrcHex        string // 8 hex chars
}

// locate finds tag inside field63 and returns the fixed-width slice
// starting at the tag, failing BadToken if the tag is absent or the
// message is too short for the token's declared total length.
func locate(field63, tag string, totalLen int) (string, error) {
	idx := strings.Index(field63, tag)
	if idx < 0 {
		return "", iso8583.NewError(iso8583.KindBadToken, tag+" marker not found")
	}
	if idx+totalLen > len(field63) {
		return "", iso8583.NewError(iso8583.KindBadToken, tag+" token shorter than expected")
	}
	return field63[idx : idx+totalLen], nil
}

// ParseEW locates and slices the `! EW` key-injection request token,
// per the fixed offsets: ciphered transport key at 10..522, KCV at
// 522..528, CRC at 540..548 (528..540 is an unused reserved span).
func ParseEW(field63 string) (EWFields, error) {
	tok, err := locate(field63, "! EW", lenEW)
	if err != nil {
		return EWFields{}, err
	}
	return EWFields{
		CipheredTKHex: tok[10:522],
		KcvHex:        tok[522:528],
		CrcHex:        tok[540:548],
	}, nil
}

// CheckEWCrc reports whether ew's CRC field matches the CRC-32 of the
// ASCII bytes of the uppercased ciphered-transport-key hex, the
// authoritative convention per the newer of the two observed key-init
// code paths.
func CheckEWCrc(ew EWFields) bool {
	upper := strings.ToUpper(ew.CipheredTKHex)
	computed := iso8583.CRC32Hex([]byte(upper))
	return strings.EqualFold(computed, ew.CrcHex)
}

// TokenER builds the `! ER` response envelope: "! ER00002 " followed by
// two status digits.
func TokenER(suggestKeyInit, requireKeyInit, shouldUpdateBIN bool) string {
	var d1 byte
	switch {
	case requireKeyInit:
		d1 = '2'
	case suggestKeyInit:
		d1 = '1'
	default:
		d1 = '0'
	}
	d2 := byte('0')
	if shouldUpdateBIN {
		d2 = '1'
	}
	return "! ER00002 " + string([]byte{d1, d2})
}

// TokenEX builds the `! EX` key-init response token: the new base key
// ciphertext (16 bytes in practice, despite the stale 8-byte assertion
// documented in the reference), the KSN, its KCV, a two-digit status of
// "00", and the CRC-32 of the ASCII hex of the ciphertext.
func TokenEX(k0Ciphered, ksn, k0Kcv []byte) string {
	cipherHex := iso8583.BytesToHex(k0Ciphered)
	crc := iso8583.CRC32Hex([]byte(cipherHex))
	return "! EX00068 " + cipherHex + iso8583.BytesToHex(ksn) + iso8583.BytesToHex(k0Kcv) + "00" + crc
}

// TokenEXError builds an `! EX` error token: all data fields zeroed,
// carrying only the two-digit failure code.
func TokenEXError(code2 string) string {
	return "! EX00068 " + strings.Repeat("0", 32) + strings.Repeat("0", 20) + strings.Repeat("0", 6) + code2 + strings.Repeat("0", 8)
}

// EncryptedSale reports whether field 63's `! ES` sale marker indicates
// the track data was carried encrypted via `! EZ`, per the flag byte at
// absolute offset 50 of the token.
func EncryptedSale(field63 string) (bool, error) {
	tok, err := locate(field63, "! ES", lenES)
	if err != nil {
		return false, err
	}
	return tok[50] == '5', nil
}

// EZFields is the parsed encrypted-track payload carried in a `! EZ`
// token.
type EZFields struct {
	KsnHex        string // 20 hex chars (10-byte KSN)
	CiphertextHex string // 48 hex chars (24-byte ciphertext)
}

// ParseEZ locates and slices the `! EZ` encrypted-sale token: KSN at
// absolute offsets 10..30, ciphertext at 48..96.
func ParseEZ(field63 string) (EZFields, error) {
	tok, err := locate(field63, "! EZ", lenEZ)
	if err != nil {
		return EZFields{}, err
	}
	return EZFields{
		KsnHex:        tok[10:30],
		CiphertextHex: tok[48:96],
	}, nil
}
