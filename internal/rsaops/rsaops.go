// Package rsaops implements the RSA operations the acquirer gateway
// needs at its two trust boundaries: unwrapping a terminal's 3DES
// transport key under the gateway's RSA transport key, and signing the provisioning
// token returned to a newly initialized terminal.
package rsaops

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"

	"github.com/pkg/errors"
)

// LoadPrivateKeyPEM parses a PKCS#1 or PKCS#8 PEM-encoded RSA private
// key, as read from the gateway's configured key file.
func LoadPrivateKeyPEM(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("rsaops: no PEM block found")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	generic, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "rsaops: parse RSA private key")
	}
	key, ok := generic.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("rsaops: PEM key is not RSA")
	}
	return key, nil
}

// LoadPublicKeyPEM parses a PKIX PEM-encoded RSA public key.
func LoadPublicKeyPEM(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("rsaops: no PEM block found")
	}
	generic, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "rsaops: parse RSA public key")
	}
	key, ok := generic.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("rsaops: PEM key is not RSA")
	}
	return key, nil
}

// UnwrapTransportKey decrypts a PKCS#1 v1.5-padded ciphertext (the
// terminal's 3DES transport key, encrypted by the terminal under the
// gateway's RSA transport public key) with the gateway's RSA transport
// private key.
func UnwrapTransportKey(priv *rsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	pt, err := rsa.DecryptPKCS1v15(rand.Reader, priv, ciphertext)
	if err != nil {
		return nil, errors.Wrap(err, "rsaops: unwrap transport key")
	}
	return pt, nil
}

// SignToken produces an RSASSA-PKCS1-v1_5 SHA-256 signature over payload,
// for the terminal-provisioning token the token flow returns.
func SignToken(priv *rsa.PrivateKey, payload []byte) ([]byte, error) {
	digest := sha256.Sum256(payload)
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, digest[:])
	if err != nil {
		return nil, errors.Wrap(err, "rsaops: sign token")
	}
	return sig, nil
}

// VerifyToken checks an RSASSA-PKCS1-v1_5 SHA-256 signature over payload.
func VerifyToken(pub *rsa.PublicKey, payload, sig []byte) error {
	digest := sha256.Sum256(payload)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig); err != nil {
		return errors.Wrap(err, "rsaops: verify token signature")
	}
	return nil
}
