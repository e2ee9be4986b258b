package veiled

import "fmt"

// AmountCodec converts between 64-bit public amounts and 32-bit veiled
// amounts by extracting a 32-bit window of the 64-bit value. With the
// default widths the window is bits 16..47: the low 16 bits (dust) and the
// high 16 bits are dropped. The 64->32 direction is lossy by design; the
// 32->64 direction is its lossless inverse for values produced by this
// codec.
type AmountCodec struct {
	dropLow  uint
	dropHigh uint
}

const veiledAmountBits = 32

// NewAmountCodec builds a codec dropping dropLow low bits and dropHigh high
// bits of a 64-bit amount. The two widths must sum to exactly 32 so that the
// remaining window is a full 32-bit veiled amount; anything else is a
// configuration defect and fails with ErrInvariantViolation.
func NewAmountCodec(dropLow, dropHigh uint) (*AmountCodec, error) {
	if dropLow+dropHigh != veiledAmountBits {
		return nil, fmt.Errorf("%w: amount codec windows %d+%d != %d",
			ErrInvariantViolation, dropLow, dropHigh, veiledAmountBits)
	}
	return &AmountCodec{dropLow: dropLow, dropHigh: dropHigh}, nil
}

// DefaultAmountCodec returns the 16/16 codec.
func DefaultAmountCodec() *AmountCodec {
	c, err := NewAmountCodec(16, 16)
	if err != nil {
		panic(err) // unreachable: 16+16 == 32
	}
	return c
}

// ClampPublicToVeiled extracts the 32-bit window of a public amount,
// truncating the dropped low and high bits.
func (c *AmountCodec) ClampPublicToVeiled(amount uint64) uint32 {
	return uint32(amount >> c.dropLow)
}

// ExpandVeiledToPublic maps a veiled amount back to the public scale.
// Lossless for amounts that originated from ClampPublicToVeiled.
func (c *AmountCodec) ExpandVeiledToPublic(amount uint32) uint64 {
	return uint64(amount) << c.dropLow
}
