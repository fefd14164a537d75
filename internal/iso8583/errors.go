// Package iso8583 implements a parameterizable ISO 8583 message codec:
// bitmap management, per-field format/length definitions and pluggable
// byte-level packers for MTI, bitmap, length prefixes and field data.
package iso8583

import "github.com/pkg/errors"

// Kind identifies the category of a codec error, mirroring the
// two-character HSMError codes used elsewhere in the payment stack but
// scoped to codec/crypto failures instead of Thales command codes.
type Kind string

// Error kinds raised by the codec and crypto kernel.
const (
	KindBadHex        Kind = "BadHex"
	KindBadBcd        Kind = "BadBcd"
	KindBadRegistry   Kind = "BadRegistry"
	KindBadField      Kind = "BadField"
	KindBadFormat     Kind = "BadFormat"
	KindBadLen        Kind = "BadLen"
	KindBadMti        Kind = "BadMti"
	KindBadToken      Kind = "BadToken"
	KindCrcMismatch   Kind = "CrcMismatch"
	KindKcvMismatch   Kind = "KcvMismatch"
	KindCryptoFailure Kind = "CryptoFailure"
)

// CodecError is a structured error carrying a stable Kind alongside a
// human-readable message, so callers can branch on Kind without parsing
// strings.
type CodecError struct {
	Kind    Kind
	Message string
}

func (e *CodecError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// newErr constructs a CodecError, wrapped with github.com/pkg/errors so
// callers up the stack retain a stack trace via errors.Wrap.
func newErr(kind Kind, msg string) error {
	return errors.WithStack(&CodecError{Kind: kind, Message: msg})
}

// NewError is newErr exported for sibling packages (token63, acquirer)
// that need to raise the same structured, stack-carrying codec errors.
func NewError(kind Kind, msg string) error {
	return newErr(kind, msg)
}

// Is reports whether err (or any error it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var ce *CodecError
	for err != nil {
		if c, ok := err.(*CodecError); ok { //nolint:errorlint // custom unwrap loop below handles wrapping.
			ce = c
			break
		}
		type causer interface{ Cause() error }
		c, ok := err.(causer)
		if !ok {
			break
		}
		err = c.Cause()
	}
	return ce != nil && ce.Kind == kind
}
