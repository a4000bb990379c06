package leb128

// DecodeULEB128 decodes an unsigned LEB128 value from the start of b,
// returning the value and the number of bytes consumed.
func DecodeULEB128(b []byte) (uint64, int) {
	var result uint64
	var shift uint
	var n int

	for _, c := range b {
		n++
		result |= uint64(c&0x7f) << shift
		if c&0x80 == 0 {
			break
		}
		shift += 7
	}

	return result, n
}

// DecodeSLEB128 decodes a signed LEB128 value from the start of b,
// returning the value and the number of bytes consumed.
func DecodeSLEB128(b []byte) (int64, int) {
	var result int64
	var shift uint
	var n int
	size := uint(64)

	var c byte
	for _, c = range b {
		n++
		result |= int64(c&0x7f) << shift
		shift += 7
		if c&0x80 == 0 {
			break
		}
	}

	if shift < size && (c&0x40) != 0 {
		result |= -1 << shift
	}

	return result, n
}
