// Package acquirer wires the ISO 8583 codec, the 3DES/DUKPT/RSA
// cryptography kernel and the field-63 token grammar into the three
// business flows the gateway exposes to terminals: key injection, sale
// authorization and terminal token provisioning.
package acquirer

import (
	"crypto/rsa"
	"encoding/binary"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/skythen/bertlv"

	"github.com/willians06/iso-acquirer-gateway/internal/dukpt"
	"github.com/willians06/iso-acquirer-gateway/internal/iso8583"
	"github.com/willians06/iso-acquirer-gateway/internal/rsaops"
	"github.com/willians06/iso-acquirer-gateway/internal/tdes"
	"github.com/willians06/iso-acquirer-gateway/internal/token63"
)

// emvTag57 is the EMV track-2 equivalent data tag inside field 55's ICC
// data block.
var emvTag57 = bertlv.NewOneByteTag(0x57)

// ErrField63Missing is returned by KeyInit when the request carries no
// field 63 at all; the HTTP layer surfaces this verbatim with a 500.
var ErrField63Missing = errors.New("Campo 63 no encontrado.")

// newBaseKeyHex and newBaseKeyKSN are the hard-coded key-injection payload
// every successful key-init exchange ships to the terminal, wrapped
// under that terminal's freshly unwrapped transport key.
var (
	newBaseKeyHex = "FDB5C138D31DDCAA6C5DC76827EF487E"
	newBaseKeyKSN = "0102012345678AE00000"
)

// tokenValidity is how long a provisioning token remains valid after
// issuance.
const tokenValidity = 48 * time.Hour

// Gateway holds the process-global, read-only state shared by every
// request: the field registry, the two RSA key pairs, the terminal
// fleet's shared BDK, and the provisioning allow-list.
type Gateway struct {
	Registry      map[int]iso8583.FieldDefinition
	TransportKey  *rsa.PrivateKey
	TokenSignKey  *rsa.PrivateKey
	BDK           []byte
	Allowlist     map[string]bool
	Log           zerolog.Logger
	newBaseKey    []byte
	newBaseKeyKSN []byte
}

// NewGateway builds a Gateway from its dependencies. bdk must be 16
// bytes; allowlist entries are terminal serial numbers permitted to
// request a provisioning token.
func NewGateway(transportKey, tokenSignKey *rsa.PrivateKey, bdk []byte, allowlist map[string]bool, log zerolog.Logger) (*Gateway, error) {
	base, err := iso8583.HexToBytes(newBaseKeyHex)
	if err != nil {
		return nil, errors.Wrap(err, "acquirer: decode hard-coded base key")
	}
	ksn, err := iso8583.HexToBytes(newBaseKeyKSN)
	if err != nil {
		return nil, errors.Wrap(err, "acquirer: decode hard-coded base key KSN")
	}
	return &Gateway{
		Registry:      iso8583.StandardFieldDefinitions(),
		TransportKey:  transportKey,
		TokenSignKey:  tokenSignKey,
		BDK:           bdk,
		Allowlist:     allowlist,
		Log:           log,
		newBaseKey:    base,
		newBaseKeyKSN: ksn,
	}, nil
}

// KeyInit implements the `/keyinit/<iso>` flow: unwrap the terminal's
// RSA-wrapped transport key from the `! EW` token in field 63, validate
// its CRC and KCV, and reply with the fleet's current base key wrapped
// under that transport key inside a `! ER`/`! EX` token pair.
func (g *Gateway) KeyInit(isoHex string) (string, error) {
	raw, err := iso8583.HexToBytes(isoHex)
	if err != nil {
		return "", errors.Wrap(err, "acquirer: decode request hex")
	}

	req := iso8583.NewIsoMessage(g.Registry)
	if err := req.Unpack(raw, true); err != nil {
		return "", errors.Wrap(err, "acquirer: unpack key-init request")
	}

	field63, ok := req.Field(63)
	if !ok {
		return "", ErrField63Missing
	}

	ew, err := token63.ParseEW(field63)
	if err != nil {
		return "", errors.Wrap(err, "acquirer: parse ! EW token")
	}

	reqMTIStr, _ := req.Mti()
	reqMTI, err := iso8583.ParseMTI(reqMTIStr)
	if err != nil {
		return "", errors.Wrap(err, "acquirer: parse request MTI")
	}

	if !token63.CheckEWCrc(ew) {
		return g.keyInitFailure(reqMTI, "73", "03")
	}

	cipheredTK, err := iso8583.HexToBytes(ew.CipheredTKHex)
	if err != nil {
		return "", errors.Wrap(err, "acquirer: decode ciphered transport key")
	}
	tk, err := rsaops.UnwrapTransportKey(g.TransportKey, cipheredTK)
	if err != nil {
		return "", iso8583.NewError(iso8583.KindCryptoFailure, "RSA transport-key unwrap failed")
	}

	tkKcv, err := tdes.KCV(tk, 3)
	if err != nil {
		return "", errors.Wrap(err, "acquirer: compute transport key KCV")
	}
	if !strings.EqualFold(iso8583.BytesToHex(tkKcv), ew.KcvHex) {
		return g.keyInitFailure(reqMTI, "72", "01")
	}

	k0Kcv, err := tdes.KCV(g.newBaseKey, 3)
	if err != nil {
		return "", errors.Wrap(err, "acquirer: compute base key KCV")
	}
	k0Ciphered, err := tdes.EncryptECB(g.newBaseKey, tk)
	if err != nil {
		return "", errors.Wrap(err, "acquirer: wrap base key under transport key")
	}

	resp := iso8583.NewIsoMessage(g.Registry)
	if err := resp.SetMti(reqMTI.ToResponse().String()); err != nil {
		return "", err
	}
	if err := resp.SetField(39, "00"); err != nil {
		return "", err
	}
	f63 := token63.TokenER(false, false, false) + token63.TokenEX(k0Ciphered, g.newBaseKeyKSN, k0Kcv)
	if err := resp.SetField(63, f63); err != nil {
		return "", err
	}

	return packToHex(resp)
}

// keyInitFailure builds the ISO-level (HTTP 200) error reply for a CRC
// or KCV mismatch: field 39 carries respCode, field 63 the matching
// `! EX` error token.
func (g *Gateway) keyInitFailure(reqMTI iso8583.MTI, respCode, exErrorCode string) (string, error) {
	resp := iso8583.NewIsoMessage(g.Registry)
	if err := resp.SetMti(reqMTI.ToResponse().String()); err != nil {
		return "", err
	}
	if err := resp.SetField(39, respCode); err != nil {
		return "", err
	}
	f63 := token63.TokenER(false, false, false) + token63.TokenEXError(exErrorCode)
	if err := resp.SetField(63, f63); err != nil {
		return "", err
	}
	return packToHex(resp)
}

// Sale implements the `/sale/<iso>` flow: extract the PAN from field 2,
// field 35's track 2, or a DUKPT-decrypted `! EZ` sub-token, then apply
// the "reject cards beginning with 4" business rule.
func (g *Gateway) Sale(isoHex string) (string, error) {
	raw, err := iso8583.HexToBytes(isoHex)
	if err != nil {
		return "", errors.Wrap(err, "acquirer: decode request hex")
	}

	req := iso8583.NewIsoMessage(g.Registry)
	if err := req.Unpack(raw, true); err != nil {
		return "", errors.Wrap(err, "acquirer: unpack sale request")
	}

	reqMTIStr, _ := req.Mti()
	reqMTI, err := iso8583.ParseMTI(reqMTIStr)
	if err != nil {
		return "", errors.Wrap(err, "acquirer: parse request MTI")
	}

	pan, diag := g.extractPAN(req)

	resp := iso8583.NewIsoMessage(g.Registry)
	if err := resp.SetMti(reqMTI.ToResponse().String()); err != nil {
		return "", err
	}

	respCode := "00"
	switch {
	case diag != "":
		respCode = "01"
		_ = resp.SetField(63, diag)
	case strings.HasPrefix(pan, "4"):
		respCode = "01"
	}
	if err := resp.SetField(39, respCode); err != nil {
		return "", err
	}

	return packToHex(resp)
}

// extractPAN resolves the PAN by priority: field 2, then field 35's
// track 2 (split at the first 'D' or '='), then the DUKPT-decrypted
// `! EZ` payload behind field 63's `! ES` marker, and finally field 55's
// EMV chip data (tag 57, the track-2 equivalent). A field 63 that is
// present but yields no PAN falls through to field 55. A non-empty diag
// means extraction failed and callers should reject the transaction.
func (g *Gateway) extractPAN(req *iso8583.IsoMessage) (pan string, diag string) {
	if v, ok := req.Field(2); ok && v != "" {
		return v, ""
	}

	if v, ok := req.Field(35); ok && v != "" {
		idx := strings.IndexAny(v, "D=")
		if idx < 0 {
			return "", "invalid track 2 data in field 35"
		}
		return v[:idx], ""
	}

	if field63, ok := req.Field(63); ok && field63 != "" {
		if pan, err := g.extractPANFromField63(field63); err == nil {
			return pan, ""
		}
	}

	if v, ok := req.Field(55); ok && v != "" {
		pan, err := extractPANFromEMV(v)
		if err != nil {
			return "", err.Error()
		}
		return pan, ""
	}

	return "", "no PAN source available"
}

// extractPANFromField63 pulls the PAN out of a DUKPT-encrypted `! EZ`
// sub-token, gated on the `! ES` marker's encrypted-sale flag.
func (g *Gateway) extractPANFromField63(field63 string) (string, error) {
	encrypted, err := token63.EncryptedSale(field63)
	if err != nil {
		return "", err
	}
	if !encrypted {
		return "", errors.New("! ES marker did not indicate encrypted track data")
	}

	ez, err := token63.ParseEZ(field63)
	if err != nil {
		return "", err
	}

	ksn, err := iso8583.HexToBytes(ez.KsnHex)
	if err != nil {
		return "", errors.New("invalid KSN in ! EZ token")
	}
	ciphertext, err := iso8583.HexToBytes(ez.CiphertextHex)
	if err != nil {
		return "", errors.New("invalid ciphertext in ! EZ token")
	}

	plaintext, err := g.decryptTrackData(ksn, ciphertext)
	if err != nil {
		return "", err
	}

	hexPlain := strings.ToUpper(iso8583.BytesToHex(plaintext))
	idx := strings.IndexByte(hexPlain, 'D')
	if idx < 0 {
		return "", errors.New("no track separator found in decrypted data")
	}
	return hexPlain[:idx], nil
}

// extractPANFromEMV parses field 55's ICC data as BER-TLV, locates EMV
// tag 57 (track-2 equivalent) and splits its hex representation on the
// 'D' field separator to recover the PAN, mirroring the split-on-'D'
// convention used everywhere else this gateway reads track data.
func extractPANFromEMV(field55Hex string) (string, error) {
	raw, err := iso8583.HexToBytes(field55Hex)
	if err != nil {
		return "", errors.Wrap(err, "acquirer: decode field 55")
	}

	tlvs, err := bertlv.Parse(raw)
	if err != nil {
		return "", errors.Wrap(err, "acquirer: parse field 55 TLV data")
	}

	tag57 := tlvs.FindFirstWithTag(emvTag57)
	if tag57 == nil {
		return "", errors.New("EMV tag 57 not found in field 55")
	}

	hexTag57 := strings.ToUpper(iso8583.BytesToHex(tag57.Value))
	idx := strings.IndexByte(hexTag57, 'D')
	if idx < 0 {
		return "", errors.New("no track separator found in EMV tag 57")
	}
	return hexTag57[:idx], nil
}

// decryptTrackData derives the DUKPT data working key for ksn and
// decrypts ciphertext under it.
func (g *Gateway) decryptTrackData(ksn, ciphertext []byte) ([]byte, error) {
	ipek, err := dukpt.DeriveIPEK(g.BDK, ksn)
	if err != nil {
		return nil, err
	}
	base, err := dukpt.DeriveTransactionKey(ipek, ksn)
	if err != nil {
		return nil, err
	}
	dataKey, err := dukpt.DeriveDataKey(base)
	if err != nil {
		return nil, err
	}
	return tdes.DecryptECB(ciphertext, dataKey)
}

// Token implements the `/token/<serial>` flow: reject unknown serials,
// otherwise sign and return a time-boxed provisioning token.
func (g *Gateway) Token(serial string) ([]byte, error) {
	if !g.Allowlist[serial] {
		return nil, errors.New("invalid ID")
	}

	exp := time.Now().Add(tokenValidity).UnixMilli()

	payload := make([]byte, 0, 1+6+len(serial))
	payload = append(payload, 0x01)
	payload = append(payload, be48(exp)...)
	payload = append(payload, []byte(serial)...)

	sig, err := rsaops.SignToken(g.TokenSignKey, payload)
	if err != nil {
		return nil, errors.Wrap(err, "acquirer: sign token")
	}

	out := make([]byte, 0, 1+len(sig)+6)
	out = append(out, 0x01)
	out = append(out, sig...)
	out = append(out, be48(exp)...)
	return out, nil
}

func be48(v int64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	return buf[2:]
}

func packToHex(m *iso8583.IsoMessage) (string, error) {
	packed, err := m.Pack()
	if err != nil {
		return "", errors.Wrap(err, "acquirer: pack response")
	}
	return iso8583.BytesToHex(packed), nil
}
