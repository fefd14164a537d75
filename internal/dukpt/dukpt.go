// Package dukpt implements the acquirer gateway's Derived Unique Key Per
// Transaction key hierarchy: BDK to IPEK, IPEK to per-transaction base
// key, and base key to the PIN/MAC/data working key variants; the sale
// flow uses the data variant to decrypt track data.
package dukpt

import (
	"github.com/pkg/errors"

	"github.com/willians06/iso-acquirer-gateway/internal/tdes"
)

// KsnLen is the length in bytes of a Key Serial Number.
const KsnLen = 10

// KSNMask isolates the base derivation ID from a KSN's low-order
// transaction counter.
var KSNMask = []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xE0, 0x00, 0x00}

// BDKVariantMask flips the right-hand IPEK derivation and every
// base-key shift-register step onto a distinct key schedule.
var BDKVariantMask = []byte{0xC0, 0xC0, 0xC0, 0xC0, 0x00, 0x00, 0x00, 0x00, 0xC0, 0xC0, 0xC0, 0xC0, 0x00, 0x00, 0x00, 0x00}

// Output variant masks selecting which working key a base key becomes.
var (
	DataVariantMask = []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0xFF, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xFF, 0x00, 0x00}
	PinVariantMask  = []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xFF, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xFF}
	MacVariantMask  = []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xFF, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xFF, 0x00}
)

func andBytes(a, b []byte) []byte {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = a[i] & b[i]
	}
	return out
}

func be24(v uint32) []byte {
	return []byte{byte(v >> 16), byte(v >> 8), byte(v)}
}

func be24Uint(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

// counterValue extracts the 21-bit transaction counter from the last
// three bytes of a KSN.
func counterValue(ksn []byte) uint32 {
	return be24Uint(ksn[7:10]) & 0x1FFFFF
}

// DeriveIPEK derives the Initial PIN Encryption Key for a terminal from
// its double-length Base Derivation Key and its Key Serial Number: the
// KSN, masked to its base-ID bits and truncated to 8 bytes, is 3DES-ECB
// encrypted once under the BDK and once under the BDK XOR
// BDKVariantMask, and the two 8-byte results concatenated.
func DeriveIPEK(bdk, ksn []byte) ([]byte, error) {
	if len(bdk) != 16 {
		return nil, errors.New("dukpt: BDK must be 16 bytes")
	}
	if len(ksn) != KsnLen {
		return nil, errors.Errorf("dukpt: KSN must be %d bytes", KsnLen)
	}
	maskedKsn8 := andBytes(ksn, KSNMask)[:8]

	left, err := tdes.EncryptECB(maskedKsn8, bdk)
	if err != nil {
		return nil, err
	}

	variantBDK := tdes.XorBytes(bdk, BDKVariantMask)
	right, err := tdes.EncryptECB(maskedKsn8, variantBDK)
	if err != nil {
		return nil, err
	}

	return append(left, right...), nil
}

// encReg is the single-DES register-folding primitive behind the
// base-key shift-register loop: the key's left half acts as an 8-byte
// DES key over (right half XOR reg), and the result is XORed back with
// the right half.
func encReg(key16, reg8 []byte) ([]byte, error) {
	top, bot := key16[:8], key16[8:16]
	enc, err := tdes.EncryptDESBlock(tdes.XorBytes(bot, reg8), top)
	if err != nil {
		return nil, err
	}
	return tdes.XorBytes(bot, enc), nil
}

// generateKey folds curKey through encReg twice, once under curKey
// itself and once under its BDKVariantMask twin, producing the next
// 16-byte key in the shift-register loop.
func generateKey(curKey, reg8 []byte) ([]byte, error) {
	variant := tdes.XorBytes(curKey, BDKVariantMask)
	left, err := encReg(variant, reg8)
	if err != nil {
		return nil, err
	}
	right, err := encReg(curKey, reg8)
	if err != nil {
		return nil, err
	}
	return append(left, right...), nil
}

// DeriveTransactionKey walks the shift-register loop from the IPEK to
// the per-transaction base key for ksn's specific counter value: for
// every set bit of the 21-bit counter, most significant first, the
// running KSN register accumulates that bit and curKey is refolded
// through generateKey.
func DeriveTransactionKey(ipek, ksn []byte) ([]byte, error) {
	if len(ipek) != 16 {
		return nil, errors.New("dukpt: IPEK must be 16 bytes")
	}
	if len(ksn) != KsnLen {
		return nil, errors.Errorf("dukpt: KSN must be %d bytes", KsnLen)
	}

	baseKSN := andBytes(ksn[2:10], KSNMask[:8])
	counter := counterValue(ksn)
	curKey := ipek

	for shiftReg := uint32(0x100000); shiftReg >= 1; shiftReg >>= 1 {
		if shiftReg&counter == 0 {
			continue
		}
		tail := be24(be24Uint(baseKSN[5:8]) | shiftReg)
		tmpKSN := append(append([]byte{}, baseKSN[:5]...), tail...)
		baseKSN = tmpKSN

		var err error
		curKey, err = generateKey(curKey, tmpKSN)
		if err != nil {
			return nil, err
		}
	}
	return curKey, nil
}

// DerivePinKey returns the PIN working key for a base key: base XOR
// PinVariantMask, no further encryption.
func DerivePinKey(base []byte) ([]byte, error) {
	if len(base) != 16 {
		return nil, errors.New("dukpt: base key must be 16 bytes")
	}
	return tdes.XorBytes(base, PinVariantMask), nil
}

// DeriveMacKey returns the MAC working key for a base key: base XOR
// MacVariantMask, no further encryption.
func DeriveMacKey(base []byte) ([]byte, error) {
	if len(base) != 16 {
		return nil, errors.New("dukpt: base key must be 16 bytes")
	}
	return tdes.XorBytes(base, MacVariantMask), nil
}

// DeriveDataKey returns the data encryption working key for a base key:
// XOR with DataVariantMask, then each 8-byte half is 3DES-ECB-encrypted
// under the masked value expanded to a triple-length key.
func DeriveDataKey(base []byte) ([]byte, error) {
	if len(base) != 16 {
		return nil, errors.New("dukpt: base key must be 16 bytes")
	}
	masked := tdes.XorBytes(base, DataVariantMask)
	left, err := tdes.EncryptECB(masked[:8], masked)
	if err != nil {
		return nil, err
	}
	right, err := tdes.EncryptECB(masked[8:16], masked)
	if err != nil {
		return nil, err
	}
	return append(left, right...), nil
}

// KCV computes the standard 3-byte DUKPT key check value for key.
func KCV(key []byte) ([]byte, error) {
	return tdes.KCV(key, 3)
}
