package confidential

import (
	"fmt"

	"github.com/veilchain/go-veiled/pkg/veiled"
)

// VeiledCoin is an ephemeral, single-use wrapper around one encrypted
// amount. A coin is created by exactly one operation and must be consumed
// by exactly one deposit before that call returns. Coins never cross the
// package boundary, so the public surface cannot duplicate a live coin;
// take moves the ciphertext out, leaving the coin empty.
type VeiledCoin struct {
	ct veiled.Ciphertext
}

func newVeiledCoin(ct veiled.Ciphertext) *VeiledCoin {
	return &VeiledCoin{ct: ct}
}

// take transfers ownership of the ciphertext out of the coin. A second
// take observes the empty coin and fails.
func (c *VeiledCoin) take() (veiled.Ciphertext, error) {
	if c == nil || c.ct == nil {
		return nil, fmt.Errorf("%w: veiled coin already consumed", veiled.ErrInvariantViolation)
	}
	ct := c.ct
	c.ct = nil
	return ct, nil
}
