// Package rangeproof implements a zero-knowledge range proof that the value
// inside a Pedersen commitment lies in [0, 2^nbits), nbits <= 32.
//
// The construction is a bit decomposition: the prover commits to each bit
// of the value, proves with a disjunctive Schnorr proof that each bit
// commitment opens to 0 or 1, and chooses the per-bit blinding factors so
// that the weighted sum of the bit commitments equals the target
// commitment. The verifier recomputes the weighted sum, so the proof binds
// the commitment, not just the bits.
package rangeproof

import (
	"encoding/binary"
	"errors"
	"fmt"

	"filippo.io/edwards25519"

	"github.com/veilchain/go-veiled/internal/crypto/group"
	"github.com/veilchain/go-veiled/internal/crypto/pedersen"
)

// MaxBits is the widest supported range.
const MaxBits = 32

// bitProofSize is the serialized size of one bit proof:
// three points and four scalars.
const bitProofSize = 3*group.PointSize + 4*group.ScalarSize

// bitProof is the OR proof that V opens to 0 or 1:
// knowledge of the discrete log base H of V (bit 0) or of V - G (bit 1).
type bitProof struct {
	V      *edwards25519.Point
	T0, T1 *edwards25519.Point
	E0, E1 *edwards25519.Scalar
	Z0, Z1 *edwards25519.Scalar
}

// Proof is a range proof over a Pedersen commitment.
type Proof struct {
	bits []bitProof
}

// Prove generates a range proof that m lies in [0, 2^nbits) for the
// commitment Commit(m, blind). The caller must pass the same blinding
// factor used to build the commitment.
func Prove(m uint32, blind *edwards25519.Scalar, nbits int, domainTag []byte) (*Proof, error) {
	if nbits < 1 || nbits > MaxBits {
		return nil, fmt.Errorf("rangeproof: nbits must be in [1, %d], got %d", MaxBits, nbits)
	}
	if nbits < MaxBits && m>>uint(nbits) != 0 {
		return nil, fmt.Errorf("rangeproof: value %d exceeds %d bits", m, nbits)
	}
	if blind == nil {
		return nil, errors.New("rangeproof: blinding factor cannot be nil")
	}

	// 1. Split the blinding factor across the bits so that
	// sum(2^i * b_i) == blind; the last bit's blind absorbs the remainder.
	blinds := make([]*edwards25519.Scalar, nbits)
	acc := edwards25519.NewScalar()
	for i := 0; i < nbits-1; i++ {
		b, err := group.RandomScalar()
		if err != nil {
			return nil, err
		}
		blinds[i] = b
		term := edwards25519.NewScalar().Multiply(group.ScalarFromUint64(1<<uint(i)), b)
		acc = acc.Add(acc, term)
	}
	rem := edwards25519.NewScalar().Subtract(blind, acc)
	powInv := edwards25519.NewScalar().Invert(group.ScalarFromUint64(1 << uint(nbits-1)))
	blinds[nbits-1] = edwards25519.NewScalar().Multiply(rem, powInv)

	// 2. Commit to each bit and build the aggregate for transcript binding.
	h := group.AltGenerator()
	g := group.Generator()
	bitComms := make([]*edwards25519.Point, nbits)
	aggregate := edwards25519.NewIdentityPoint()
	for i := 0; i < nbits; i++ {
		bit := uint32(m>>uint(i)) & 1
		bitComms[i] = pedersen.Commit(bit, blinds[i]).V
		weighted := new(edwards25519.Point).ScalarMult(group.ScalarFromUint64(1<<uint(i)), bitComms[i])
		aggregate = new(edwards25519.Point).Add(aggregate, weighted)
	}

	// 3. Per-bit OR proof: real branch for the actual bit, simulated branch
	// for the other.
	proof := &Proof{bits: make([]bitProof, nbits)}
	for i := 0; i < nbits; i++ {
		bit := (m >> uint(i)) & 1
		vi := bitComms[i]
		y0 := vi                                      // bit == 0: V = b*H
		y1 := new(edwards25519.Point).Subtract(vi, g) // bit == 1: V - G = b*H

		k, err := group.RandomScalar()
		if err != nil {
			return nil, err
		}
		zSim, err := group.RandomScalar()
		if err != nil {
			return nil, err
		}
		eSim, err := group.RandomScalar()
		if err != nil {
			return nil, err
		}

		var t0, t1 *edwards25519.Point
		if bit == 0 {
			t0 = new(edwards25519.Point).ScalarMult(k, h)
			t1 = simulated(zSim, eSim, y1, h)
		} else {
			t1 = new(edwards25519.Point).ScalarMult(k, h)
			t0 = simulated(zSim, eSim, y0, h)
		}

		e := bitChallenge(domainTag, aggregate, nbits, i, vi, t0, t1)
		eReal := edwards25519.NewScalar().Subtract(e, eSim)
		zReal := edwards25519.NewScalar().Multiply(eReal, blinds[i])
		zReal = zReal.Add(zReal, k)

		bp := bitProof{V: vi, T0: t0, T1: t1}
		if bit == 0 {
			bp.E0, bp.Z0 = eReal, zReal
			bp.E1, bp.Z1 = eSim, zSim
		} else {
			bp.E0, bp.Z0 = eSim, zSim
			bp.E1, bp.Z1 = eReal, zReal
		}
		proof.bits[i] = bp
	}
	return proof, nil
}

// simulated builds the commitment of a simulated OR branch:
// T = z*H - e*Y, so that z*H == T + e*Y holds by construction.
func simulated(z, e *edwards25519.Scalar, y, h *edwards25519.Point) *edwards25519.Point {
	zH := new(edwards25519.Point).ScalarMult(z, h)
	eY := new(edwards25519.Point).ScalarMult(e, y)
	return new(edwards25519.Point).Subtract(zH, eY)
}

// Verify checks the proof against the commitment for the given bit width
// and domain tag.
func (p *Proof) Verify(c *pedersen.Commitment, nbits int, domainTag []byte) bool {
	if p == nil || c == nil || nbits < 1 || nbits > MaxBits || len(p.bits) != nbits {
		return false
	}

	// 1. The weighted bit commitments must reassemble the target commitment.
	aggregate := edwards25519.NewIdentityPoint()
	for i := 0; i < nbits; i++ {
		weighted := new(edwards25519.Point).ScalarMult(group.ScalarFromUint64(1<<uint(i)), p.bits[i].V)
		aggregate = new(edwards25519.Point).Add(aggregate, weighted)
	}
	if aggregate.Equal(c.V) != 1 {
		return false
	}

	// 2. Each bit commitment must open to 0 or 1.
	h := group.AltGenerator()
	g := group.Generator()
	for i := 0; i < nbits; i++ {
		bp := p.bits[i]
		e := bitChallenge(domainTag, aggregate, nbits, i, bp.V, bp.T0, bp.T1)

		eSum := edwards25519.NewScalar().Add(bp.E0, bp.E1)
		if eSum.Equal(e) != 1 {
			return false
		}

		// z0*H == T0 + e0*V
		lhs0 := new(edwards25519.Point).ScalarMult(bp.Z0, h)
		rhs0 := new(edwards25519.Point).ScalarMult(bp.E0, bp.V)
		rhs0 = rhs0.Add(bp.T0, rhs0)
		if lhs0.Equal(rhs0) != 1 {
			return false
		}

		// z1*H == T1 + e1*(V - G)
		y1 := new(edwards25519.Point).Subtract(bp.V, g)
		lhs1 := new(edwards25519.Point).ScalarMult(bp.Z1, h)
		rhs1 := new(edwards25519.Point).ScalarMult(bp.E1, y1)
		rhs1 = rhs1.Add(bp.T1, rhs1)
		if lhs1.Equal(rhs1) != 1 {
			return false
		}
	}
	return true
}

func bitChallenge(domainTag []byte, aggregate *edwards25519.Point, nbits, i int,
	v, t0, t1 *edwards25519.Point) *edwards25519.Scalar {

	var meta [16]byte
	binary.LittleEndian.PutUint64(meta[:8], uint64(nbits))
	binary.LittleEndian.PutUint64(meta[8:], uint64(i))
	return group.ChallengeScalar(domainTag,
		[]byte("rangeproof/bit"), meta[:],
		aggregate.Bytes(), v.Bytes(), t0.Bytes(), t1.Bytes())
}

// Bytes serializes the proof: bitProofSize bytes per bit.
func (p *Proof) Bytes() []byte {
	out := make([]byte, 0, len(p.bits)*bitProofSize)
	for _, bp := range p.bits {
		out = append(out, bp.V.Bytes()...)
		out = append(out, bp.T0.Bytes()...)
		out = append(out, bp.T1.Bytes()...)
		out = append(out, bp.E0.Bytes()...)
		out = append(out, bp.E1.Bytes()...)
		out = append(out, bp.Z0.Bytes()...)
		out = append(out, bp.Z1.Bytes()...)
	}
	return out
}

// ParseProof decodes a serialized range proof.
func ParseProof(b []byte) (*Proof, error) {
	if len(b) == 0 || len(b)%bitProofSize != 0 {
		return nil, fmt.Errorf("rangeproof: length %d is not a multiple of %d", len(b), bitProofSize)
	}
	nbits := len(b) / bitProofSize
	if nbits > MaxBits {
		return nil, fmt.Errorf("rangeproof: %d bits exceeds maximum %d", nbits, MaxBits)
	}

	p := &Proof{bits: make([]bitProof, nbits)}
	for i := 0; i < nbits; i++ {
		chunk := b[i*bitProofSize:]
		var bp bitProof
		var err error
		if bp.V, err = group.ParsePoint(chunk[0:32]); err != nil {
			return nil, err
		}
		if bp.T0, err = group.ParsePoint(chunk[32:64]); err != nil {
			return nil, err
		}
		if bp.T1, err = group.ParsePoint(chunk[64:96]); err != nil {
			return nil, err
		}
		if bp.E0, err = group.ParseScalar(chunk[96:128]); err != nil {
			return nil, err
		}
		if bp.E1, err = group.ParseScalar(chunk[128:160]); err != nil {
			return nil, err
		}
		if bp.Z0, err = group.ParseScalar(chunk[160:192]); err != nil {
			return nil, err
		}
		if bp.Z1, err = group.ParseScalar(chunk[192:224]); err != nil {
			return nil, err
		}
		p.bits[i] = bp
	}
	return p, nil
}
