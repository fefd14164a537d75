// Package tdes implements the 3DES-ECB, no-padding primitive that
// underlies every key-management and MAC operation in the acquirer
// gateway's cryptography kernel.
package tdes

import (
	"crypto/des"

	"github.com/andreburgaud/crypt2go/ecb"
	"github.com/pkg/errors"
)

// BlockSize is the DES/3DES block size in bytes.
const BlockSize = 8

// expandKey promotes a double-length (16-byte) key to triple-length by
// appending its own first eight bytes (K1||K2||K1), the standard
// double-to-triple DES key expansion. 24-byte keys pass through unchanged.
func expandKey(key []byte) ([]byte, error) {
	switch len(key) {
	case 24:
		return key, nil
	case 16:
		out := make([]byte, 24)
		copy(out, key)
		copy(out[16:], key[:8])
		return out, nil
	default:
		return nil, errors.Errorf("tdes: key must be 16 or 24 bytes, got %d", len(key))
	}
}

// EncryptECB encrypts data (a multiple of BlockSize) under key using
// 3DES in ECB mode with no padding.
func EncryptECB(data, key []byte) ([]byte, error) {
	if len(data)%BlockSize != 0 {
		return nil, errors.Errorf("tdes: data length %d is not a multiple of the block size", len(data))
	}
	tk, err := expandKey(key)
	if err != nil {
		return nil, err
	}
	block, err := des.NewTripleDESCipher(tk)
	if err != nil {
		return nil, errors.Wrap(err, "tdes: build cipher")
	}
	mode := ecb.NewECBEncrypter(block)
	out := make([]byte, len(data))
	mode.CryptBlocks(out, data)
	return out, nil
}

// DecryptECB decrypts data (a multiple of BlockSize) under key using
// 3DES in ECB mode with no padding.
func DecryptECB(data, key []byte) ([]byte, error) {
	if len(data)%BlockSize != 0 {
		return nil, errors.Errorf("tdes: data length %d is not a multiple of the block size", len(data))
	}
	tk, err := expandKey(key)
	if err != nil {
		return nil, err
	}
	block, err := des.NewTripleDESCipher(tk)
	if err != nil {
		return nil, errors.Wrap(err, "tdes: build cipher")
	}
	mode := ecb.NewECBDecrypter(block)
	out := make([]byte, len(data))
	mode.CryptBlocks(out, data)
	return out, nil
}

// XorBytes XORs a and b up to the length of the shorter slice.
func XorBytes(a, b []byte) []byte {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = a[i] ^ b[i]
	}
	return out
}

// EncryptDESBlock single-DES-encrypts one 8-byte block under an 8-byte
// key, used by the DUKPT base-key shift-register loop's register-folding
// step (which is specified as single-length DES, not 3DES).
func EncryptDESBlock(data8, key8 []byte) ([]byte, error) {
	if len(data8) != BlockSize || len(key8) != BlockSize {
		return nil, errors.New("tdes: EncryptDESBlock requires 8-byte data and key")
	}
	block, err := des.NewCipher(key8)
	if err != nil {
		return nil, errors.Wrap(err, "tdes: build single-DES cipher")
	}
	out := make([]byte, BlockSize)
	block.Encrypt(out, data8)
	return out, nil
}

// KCV computes the Key Check Value for key: the leading kcvLen bytes of
// key encrypting an all-zero block.
func KCV(key []byte, kcvLen int) ([]byte, error) {
	zero := make([]byte, BlockSize)
	ct, err := EncryptECB(zero, key)
	if err != nil {
		return nil, err
	}
	if kcvLen > len(ct) {
		kcvLen = len(ct)
	}
	return ct[:kcvLen], nil
}
