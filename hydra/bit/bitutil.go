package bit

// Combine combines two 8 bit values into a single 16 bit value.
// The high byte will be the most significant one.
func Combine(high, low uint8) uint16 {
	return (uint16(high) << 8) | uint16(low)
}

// IsSet will check if the bit at the specified index is set to 1 or not.
func IsSet(index, value uint8) bool {
	return ((value >> index) & 1) == 1
}

// IsSet32 is IsSet for 32 bit register words.
func IsSet32(index uint8, value uint32) bool {
	return ((value >> index) & 1) == 1
}

// Set will return the passed byte with the bit at the specified index set to 1.
func Set(index, value uint8) uint8 {
	return value | (1 << index)
}

// Reset will return the passed byte with the bit at the specified index set to 0.
func Reset(index, value uint8) uint8 {
	return value & ((1 << index) ^ 0xFF)
}

// Low returns the low (LSB) part of a 16 bit number.
func Low(value uint16) uint8 {
	return uint8(value)
}

// High returns the high (MSB) part of a 16 bit number.
func High(value uint16) uint8 {
	return uint8(value >> 8)
}

// Mask32 returns a mask with the lowest width bits set.
func Mask32(width uint8) uint32 {
	if width >= 32 {
		return 0xFFFFFFFF
	}
	return (1 << width) - 1
}

// Field32 extracts width bits from value starting at bit lowBit.
// Example: Field32(0x03FF0000, 16, 10) -> 0x3FF
func Field32(value uint32, lowBit, width uint8) uint32 {
	return (value >> lowBit) & Mask32(width)
}

// Expand5 widens a 5 bit color channel to 8 bits by replicating its
// top bits into the new low bits, so 0x00 maps to 0x00 and 0x1F to 0xFF.
func Expand5(v uint8) uint8 {
	v &= 0x1F
	return (v << 3) | (v >> 2)
}
