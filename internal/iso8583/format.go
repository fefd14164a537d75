package iso8583

import "regexp"

// FieldFormat is the closed set of ISO 8583 data element formats this
// codec understands.
type FieldFormat string

// Supported field formats.
const (
	FormatA   FieldFormat = "A"   // alpha
	FormatN   FieldFormat = "N"   // numeric
	FormatS   FieldFormat = "S"   // special
	FormatAN  FieldFormat = "AN"  // alphanumeric
	FormatAS  FieldFormat = "AS"  // alpha + special
	FormatNS  FieldFormat = "NS"  // numeric + special
	FormatANS FieldFormat = "ANS" // alphanumeric + special
	FormatB   FieldFormat = "B"   // binary
	FormatXN  FieldFormat = "XN"  // signed numeric (C/D prefix)
	FormatZ   FieldFormat = "Z"   // track data
)

var (
	reAlpha   = regexp.MustCompile(`^[A-Za-z]+$`)
	reNumeric = regexp.MustCompile(`^[0-9]+$`)
	reAN      = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	reHex     = regexp.MustCompile(`^[A-Fa-f0-9]+$`)
	reXN      = regexp.MustCompile(`^[cdCD0-9][0-9]+$`)
)

// Validate reports whether value satisfies this format's character class.
func (f FieldFormat) Validate(value string) bool {
	switch f {
	case FormatA:
		return reAlpha.MatchString(value)
	case FormatN:
		return reNumeric.MatchString(value)
	case FormatAN:
		return reAN.MatchString(value)
	case FormatANS:
		return true
	case FormatB:
		return reHex.MatchString(value)
	case FormatNS, FormatZ:
		return value != "" && !reAlpha.MatchString(value)
	case FormatAS:
		return value != "" && !reNumeric.MatchString(value)
	case FormatS:
		return value != "" && !reAN.MatchString(value)
	case FormatXN:
		return reXN.MatchString(value)
	default:
		return false
	}
}
