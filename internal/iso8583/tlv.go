package iso8583

// TLV is a single tag/value element: an integer tag and its raw value
// bytes.
type TLV struct {
	Tag   int
	Value []byte
}

// TLVList is an ordered, append-only sequence of TLV elements.
type TLVList []TLV

// Append returns the list with a new tag/value element added at the
// end.
func (l TLVList) Append(tag int, value []byte) TLVList {
	return append(l, TLV{Tag: tag, Value: value})
}

// Pack serializes the list to BER-TLV bytes: each tag is emitted as the
// fewest big-endian bytes that hold it (one byte for tags <= 0xFF),
// each length as a single byte when the value is 127 bytes or fewer,
// otherwise as 0x80|n followed by n big-endian length bytes.
func (l TLVList) Pack() []byte {
	var out []byte
	for _, t := range l {
		out = append(out, tagBytes(t.Tag)...)
		out = append(out, lengthBytes(len(t.Value))...)
		out = append(out, t.Value...)
	}
	return out
}

// Find returns the first element with the given tag, if any.
func (l TLVList) Find(tag int) (TLV, bool) {
	for _, t := range l {
		if t.Tag == tag {
			return t, true
		}
	}
	return TLV{}, false
}

func tagBytes(tag int) []byte {
	if tag <= 0xFF {
		return []byte{byte(tag)}
	}
	var b []byte
	for tag > 0 {
		b = append([]byte{byte(tag & 0xFF)}, b...)
		tag >>= 8
	}
	return b
}

func lengthBytes(n int) []byte {
	if n <= 127 {
		return []byte{byte(n)}
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte(n & 0xFF)}, b...)
		n >>= 8
	}
	return append([]byte{0x80 | byte(len(b))}, b...)
}
