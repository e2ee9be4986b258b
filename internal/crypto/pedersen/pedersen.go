// Package pedersen implements Pedersen commitments V = m*G + b*H over
// edwards25519, with G the base point and H the derived second generator.
// Commitments are binding under the discrete log assumption and
// additively homomorphic.
package pedersen

import (
	"fmt"

	"filippo.io/edwards25519"

	"github.com/veilchain/go-veiled/internal/crypto/group"
)

// CommitmentSize is the length of a serialized commitment.
const CommitmentSize = group.PointSize

// Commitment is a binding commitment to a 32-bit amount.
type Commitment struct {
	V *edwards25519.Point
}

// Commit commits to a 32-bit amount with the given blinding factor.
func Commit(m uint32, blind *edwards25519.Scalar) *Commitment {
	mG := new(edwards25519.Point).ScalarBaseMult(group.ScalarFromUint64(uint64(m)))
	bH := new(edwards25519.Point).ScalarMult(blind, group.AltGenerator())
	return &Commitment{V: new(edwards25519.Point).Add(mG, bH)}
}

// CommitRandom commits to a 32-bit amount with a fresh blinding factor,
// returning the factor for later proofs.
func CommitRandom(m uint32) (*Commitment, *edwards25519.Scalar, error) {
	b, err := group.RandomScalar()
	if err != nil {
		return nil, nil, err
	}
	return Commit(m, b), b, nil
}

// Add returns a commitment to the sum of the committed values, with the
// sum of the blinding factors.
func (c *Commitment) Add(o *Commitment) *Commitment {
	return &Commitment{V: new(edwards25519.Point).Add(c.V, o.V)}
}

// Sub returns a commitment to the difference of the committed values.
func (c *Commitment) Sub(o *Commitment) *Commitment {
	return &Commitment{V: new(edwards25519.Point).Subtract(c.V, o.V)}
}

// Bytes returns the canonical 32-byte serialization.
func (c *Commitment) Bytes() []byte {
	return c.V.Bytes()
}

// ParseCommitment decodes a 32-byte commitment serialization.
func ParseCommitment(b []byte) (*Commitment, error) {
	if len(b) != CommitmentSize {
		return nil, fmt.Errorf("pedersen: commitment must be %d bytes, got %d", CommitmentSize, len(b))
	}
	p, err := group.ParsePoint(b)
	if err != nil {
		return nil, err
	}
	return &Commitment{V: p}, nil
}
