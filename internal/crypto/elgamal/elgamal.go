// Package elgamal implements exponential ElGamal encryption over
// edwards25519. Ciphertexts are additively homomorphic: adding two
// ciphertexts componentwise yields a ciphertext of the sum of their
// plaintexts. Plaintexts are 32-bit amounts; decryption recovers the
// exponent with a baby-step/giant-step search over the 32-bit space.
package elgamal

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"filippo.io/edwards25519"

	"github.com/veilchain/go-veiled/internal/crypto/group"
)

// CiphertextSize is the length of a serialized ciphertext (two points).
const CiphertextSize = 2 * group.PointSize

// PublicKey is an ElGamal encryption public key P = s*G.
type PublicKey struct {
	P *edwards25519.Point
}

// PrivateKey holds the decryption scalar s.
type PrivateKey struct {
	PublicKey
	S *edwards25519.Scalar
}

// Ciphertext is a pair (C1, C2) = (r*G, m*G + r*P).
type Ciphertext struct {
	C1, C2 *edwards25519.Point
}

// GenerateKey generates an ElGamal key pair.
func GenerateKey(random io.Reader) (*PrivateKey, error) {
	var buf [64]byte
	if _, err := io.ReadFull(random, buf[:]); err != nil {
		return nil, err
	}
	s, err := edwards25519.NewScalar().SetUniformBytes(buf[:])
	if err != nil {
		return nil, err
	}
	p := new(edwards25519.Point).ScalarBaseMult(s)
	return &PrivateKey{
		PublicKey: PublicKey{P: p},
		S:         s,
	}, nil
}

// Encrypt encrypts a 32-bit amount under pk with fresh randomness.
// The randomness is returned alongside the ciphertext for use in proofs.
func (pk *PublicKey) Encrypt(m uint32) (*Ciphertext, *edwards25519.Scalar, error) {
	r, err := group.RandomScalar()
	if err != nil {
		return nil, nil, err
	}
	return pk.EncryptWithR(m, r), r, nil
}

// EncryptWithR encrypts a 32-bit amount using the given randomness.
// Encrypting the same amount with the same r under two keys yields
// ciphertexts sharing C1, which is what the transfer sigma proof relies on.
func (pk *PublicKey) EncryptWithR(m uint32, r *edwards25519.Scalar) *Ciphertext {
	c1 := new(edwards25519.Point).ScalarBaseMult(r)
	mG := new(edwards25519.Point).ScalarBaseMult(group.ScalarFromUint64(uint64(m)))
	rP := new(edwards25519.Point).ScalarMult(r, pk.P)
	c2 := new(edwards25519.Point).Add(mG, rP)
	return &Ciphertext{C1: c1, C2: c2}
}

// EncryptNoRandomness encrypts a 32-bit amount with zero randomness:
// (identity, m*G). No key is needed, anyone can derive it, and the amount
// is recoverable by search. Used only where the amount is already public.
// Deliberately deterministic; see the zero-balance registration note in
// the protocol package.
func EncryptNoRandomness(m uint32) *Ciphertext {
	c2 := new(edwards25519.Point).ScalarBaseMult(group.ScalarFromUint64(uint64(m)))
	return &Ciphertext{
		C1: edwards25519.NewIdentityPoint(),
		C2: c2,
	}
}

// Add returns a ciphertext of the sum of the two plaintexts.
func (c *Ciphertext) Add(o *Ciphertext) *Ciphertext {
	return &Ciphertext{
		C1: new(edwards25519.Point).Add(c.C1, o.C1),
		C2: new(edwards25519.Point).Add(c.C2, o.C2),
	}
}

// Sub returns a ciphertext of the difference of the two plaintexts.
// The subtraction is modular; it is the caller's proofs that keep the
// plaintext inside [0, 2^32) as an integer.
func (c *Ciphertext) Sub(o *Ciphertext) *Ciphertext {
	return &Ciphertext{
		C1: new(edwards25519.Point).Subtract(c.C1, o.C1),
		C2: new(edwards25519.Point).Subtract(c.C2, o.C2),
	}
}

// Bytes returns the canonical 64-byte serialization C1 || C2.
func (c *Ciphertext) Bytes() []byte {
	out := make([]byte, 0, CiphertextSize)
	out = append(out, c.C1.Bytes()...)
	out = append(out, c.C2.Bytes()...)
	return out
}

// ParseCiphertext decodes a 64-byte ciphertext serialization.
func ParseCiphertext(b []byte) (*Ciphertext, error) {
	if len(b) != CiphertextSize {
		return nil, fmt.Errorf("elgamal: ciphertext must be %d bytes, got %d", CiphertextSize, len(b))
	}
	c1, err := group.ParsePoint(b[:group.PointSize])
	if err != nil {
		return nil, err
	}
	c2, err := group.ParsePoint(b[group.PointSize:])
	if err != nil {
		return nil, err
	}
	return &Ciphertext{C1: c1, C2: c2}, nil
}

// Bytes returns the 32-byte public key encoding.
func (pk *PublicKey) Bytes() []byte {
	return pk.P.Bytes()
}

// ParsePublicKey decodes a 32-byte public key encoding.
func ParsePublicKey(b []byte) (*PublicKey, error) {
	p, err := group.ParsePoint(b)
	if err != nil {
		return nil, err
	}
	return &PublicKey{P: p}, nil
}

// Baby-step/giant-step tables for 32-bit discrete log recovery:
// m = hi*2^16 + lo, M - hi*(2^16 * G) == lo*G.
const babyStepBits = 16

var (
	babyOnce  sync.Once
	babySteps map[[32]byte]uint32
	giantNeg  *edwards25519.Point // -(2^16)*G
)

func initBabySteps() {
	babySteps = make(map[[32]byte]uint32, 1<<babyStepBits)
	acc := edwards25519.NewIdentityPoint()
	g := group.Generator()
	for j := uint32(0); j < 1<<babyStepBits; j++ {
		var key [32]byte
		copy(key[:], acc.Bytes())
		babySteps[key] = j
		acc = new(edwards25519.Point).Add(acc, g)
	}
	giant := new(edwards25519.Point).ScalarBaseMult(group.ScalarFromUint64(1 << babyStepBits))
	giantNeg = new(edwards25519.Point).Negate(giant)
}

// Decrypt recovers the 32-bit plaintext of c. Fails if the plaintext does
// not lie in [0, 2^32), which after subtraction can only mean the ciphertext
// was produced outside the proven-range discipline.
func (priv *PrivateKey) Decrypt(c *Ciphertext) (uint32, error) {
	babyOnce.Do(initBabySteps)

	// M = C2 - s*C1 = m*G
	sC1 := new(edwards25519.Point).ScalarMult(priv.S, c.C1)
	m := new(edwards25519.Point).Subtract(c.C2, sC1)

	cur := m
	for hi := uint32(0); hi < 1<<(32-babyStepBits); hi++ {
		var key [32]byte
		copy(key[:], cur.Bytes())
		if lo, ok := babySteps[key]; ok {
			return hi<<babyStepBits | lo, nil
		}
		cur = new(edwards25519.Point).Add(cur, giantNeg)
	}
	return 0, errors.New("elgamal: plaintext outside 32-bit range")
}
