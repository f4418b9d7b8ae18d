package stun

// STUN aligns attributes on 32-bit boundaries; attribute values are
// padded to a multiple of four bytes. Padding bytes are written as
// zeroes on encode and ignored on decode.
const padding = 4

func nearestPaddedValueLength(l int) int {
	n := padding * (l / padding)
	if n < l {
		n += padding
	}
	return n
}
