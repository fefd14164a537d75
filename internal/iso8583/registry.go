package iso8583

// StandardFieldDefinitions returns the acquirer gateway's data element
// registry: the subset of the ISO 8583 field set this service actually
// reads or writes, including the field-55 EMV supplement.
func StandardFieldDefinitions() map[int]FieldDefinition {
	def := func(f FieldFormat, maxLen int) FieldDefinition {
		fd, err := NewFieldDefinition(f, maxLen)
		if err != nil {
			panic(err)
		}
		return fd
	}
	fixed := func(f FieldFormat, maxLen int) FieldDefinition {
		fd, err := NewFixedFieldDefinition(f, maxLen)
		if err != nil {
			panic(err)
		}
		return fd
	}

	return map[int]FieldDefinition{
		2:  def(FormatN, 19),          // primary account number
		3:  fixed(FormatN, 6),         // processing code
		4:  fixed(FormatN, 12),        // amount, transaction
		11: fixed(FormatN, 6),         // system trace audit number
		12: fixed(FormatN, 6),         // time, local transaction
		13: fixed(FormatN, 4),         // date, local transaction
		14: fixed(FormatN, 4),         // date, expiration
		22: fixed(FormatN, 3),         // point-of-service entry mode
		23: fixed(FormatN, 3),         // card sequence number
		24: fixed(FormatN, 3),         // network international identifier
		25: fixed(FormatN, 2),         // point-of-service condition code
		35: def(FormatZ, 37),          // track 2 data
		37: fixed(FormatAN, 12),       // retrieval reference number
		39: fixed(FormatAN, 2),        // response code
		41: fixed(FormatANS, 8),       // card acceptor terminal id
		42: fixed(FormatANS, 15),      // card acceptor id code
		49: fixed(FormatAN, 3),        // currency code, transaction
		52: fixed(FormatB, 8),         // PIN data
		55: def(FormatANS, 999),       // ICC system related data (EMV TLV)
		63: def(FormatANS, 999),       // private use (field-63 sub-tokens)
		64: fixed(FormatB, 8),         // MAC
	}
}
