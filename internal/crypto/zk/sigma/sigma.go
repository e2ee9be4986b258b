// Package sigma implements the two multi-relation Schnorr proofs of the
// confidential transfer protocol.
//
// The transfer proof shows, in one transcript, that the withdrawal and
// deposit ciphertexts encrypt the same amount under the same randomness for
// the sender's and recipient's keys, that this amount is the value inside
// the amount commitment, and that the sender's candidate new balance
// ciphertext opens (under the sender's key) to the value inside the balance
// commitment.
//
// The withdrawal link proof is the tail of that statement on its own: a
// balance ciphertext opens under the account key to the committed value.
package sigma

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"

	"github.com/veilchain/go-veiled/internal/crypto/elgamal"
	"github.com/veilchain/go-veiled/internal/crypto/group"
	"github.com/veilchain/go-veiled/internal/crypto/pedersen"
)

var (
	transferTag   = []byte("veiled/sigma/transfer")
	withdrawalTag = []byte("veiled/sigma/withdrawal")
)

// TransferProofSize is the serialized transfer proof length:
// seven commitment points and six response scalars.
const TransferProofSize = 7*group.PointSize + 6*group.ScalarSize

// WithdrawalProofSize is the serialized withdrawal link proof length.
const WithdrawalProofSize = 3*group.PointSize + 3*group.ScalarSize

// TransferStatement is the public part of a transfer proof.
type TransferStatement struct {
	SenderPK    *elgamal.PublicKey
	RecipientPK *elgamal.PublicKey
	Withdraw    *elgamal.Ciphertext
	Deposit     *elgamal.Ciphertext
	NewBalance  *elgamal.Ciphertext // sender balance minus Withdraw, computed by the verifier
	BalanceComm *pedersen.Commitment
	AmountComm  *pedersen.Commitment
}

// TransferWitness is the secret part of a transfer proof, known to the
// sender's wallet.
type TransferWitness struct {
	Amount       uint32
	Rand         *edwards25519.Scalar // shared encryption randomness r
	AmountBlind  *edwards25519.Scalar // blinding of AmountComm
	SenderSK     *edwards25519.Scalar // sender decryption key s
	NewBalance   uint32
	BalanceBlind *edwards25519.Scalar // blinding of BalanceComm
}

// TransferProof proves the transfer relations:
//
//	D   = r*G            (shared C1 of withdraw and deposit)
//	C_w = m*G + r*PA     (withdraw C2)
//	C_d = m*G + r*PB     (deposit C2)
//	V_a = m*G + ba*H     (amount commitment)
//	PA  = s*G            (sender key)
//	N2  = mb*G + s*N1    (new balance ciphertext opens to mb)
//	V_b = mb*G + bb*H    (balance commitment)
type TransferProof struct {
	TR, TW, TD, TA, TS, TN, TB *edwards25519.Point
	Zm, Zr, Zba, Zs, Zmb, Zbb  *edwards25519.Scalar
}

// ProveTransfer generates a transfer proof for the statement.
func ProveTransfer(st *TransferStatement, w *TransferWitness) (*TransferProof, error) {
	if st == nil || w == nil {
		return nil, errors.New("sigma: statement and witness cannot be nil")
	}
	if w.Rand == nil || w.AmountBlind == nil || w.SenderSK == nil || w.BalanceBlind == nil {
		return nil, errors.New("sigma: witness scalars cannot be nil")
	}

	g := group.Generator()
	h := group.AltGenerator()

	// 1. Nonces, one per witness scalar.
	nonces := make([]*edwards25519.Scalar, 6)
	for i := range nonces {
		k, err := group.RandomScalar()
		if err != nil {
			return nil, err
		}
		nonces[i] = k
	}
	km, kr, kba, ks, kmb, kbb := nonces[0], nonces[1], nonces[2], nonces[3], nonces[4], nonces[5]

	// 2. Commitments, one per relation (the shared-randomness relation
	// covers both C1 components with a single commitment).
	tr := new(edwards25519.Point).ScalarBaseMult(kr)
	tw := relCommit(km, g, kr, st.SenderPK.P)
	td := relCommit(km, g, kr, st.RecipientPK.P)
	ta := relCommit(km, g, kba, h)
	ts := new(edwards25519.Point).ScalarBaseMult(ks)
	tn := relCommit(kmb, g, ks, st.NewBalance.C1)
	tb := relCommit(kmb, g, kbb, h)

	// 3. Fiat-Shamir challenge over the full statement.
	e := transferChallenge(st, tr, tw, td, ta, ts, tn, tb)

	// 4. Responses z = k + e*x.
	m := group.ScalarFromUint64(uint64(w.Amount))
	mb := group.ScalarFromUint64(uint64(w.NewBalance))
	return &TransferProof{
		TR: tr, TW: tw, TD: td, TA: ta, TS: ts, TN: tn, TB: tb,
		Zm:  response(km, e, m),
		Zr:  response(kr, e, w.Rand),
		Zba: response(kba, e, w.AmountBlind),
		Zs:  response(ks, e, w.SenderSK),
		Zmb: response(kmb, e, mb),
		Zbb: response(kbb, e, w.BalanceBlind),
	}, nil
}

// Verify checks the transfer proof against the statement.
func (p *TransferProof) Verify(st *TransferStatement) bool {
	if p == nil || st == nil {
		return false
	}

	g := group.Generator()
	h := group.AltGenerator()
	e := transferChallenge(st, p.TR, p.TW, p.TD, p.TA, p.TS, p.TN, p.TB)

	// D = r*G, for both the withdraw and the deposit C1. Checking the same
	// response against both pins C1_w == C1_d.
	zrG := new(edwards25519.Point).ScalarBaseMult(p.Zr)
	if !relCheck(zrG, p.TR, e, st.Withdraw.C1) || !relCheck(zrG, p.TR, e, st.Deposit.C1) {
		return false
	}
	// C_w = m*G + r*PA
	lhs := relCommit(p.Zm, g, p.Zr, st.SenderPK.P)
	if !relCheck(lhs, p.TW, e, st.Withdraw.C2) {
		return false
	}
	// C_d = m*G + r*PB
	lhs = relCommit(p.Zm, g, p.Zr, st.RecipientPK.P)
	if !relCheck(lhs, p.TD, e, st.Deposit.C2) {
		return false
	}
	// V_a = m*G + ba*H
	lhs = relCommit(p.Zm, g, p.Zba, h)
	if !relCheck(lhs, p.TA, e, st.AmountComm.V) {
		return false
	}
	// PA = s*G
	zsG := new(edwards25519.Point).ScalarBaseMult(p.Zs)
	if !relCheck(zsG, p.TS, e, st.SenderPK.P) {
		return false
	}
	// N2 = mb*G + s*N1
	lhs = relCommit(p.Zmb, g, p.Zs, st.NewBalance.C1)
	if !relCheck(lhs, p.TN, e, st.NewBalance.C2) {
		return false
	}
	// V_b = mb*G + bb*H
	lhs = relCommit(p.Zmb, g, p.Zbb, h)
	return relCheck(lhs, p.TB, e, st.BalanceComm.V)
}

// WithdrawalStatement is the public part of a withdrawal link proof.
type WithdrawalStatement struct {
	PK          *elgamal.PublicKey
	NewBalance  *elgamal.Ciphertext
	BalanceComm *pedersen.Commitment
}

// WithdrawalWitness is the secret part of a withdrawal link proof.
type WithdrawalWitness struct {
	SK           *edwards25519.Scalar
	NewBalance   uint32
	BalanceBlind *edwards25519.Scalar
}

// WithdrawalProof proves:
//
//	P   = s*G
//	N2  = mb*G + s*N1
//	V_b = mb*G + bb*H
type WithdrawalProof struct {
	TS, TN, TB   *edwards25519.Point
	Zs, Zmb, Zbb *edwards25519.Scalar
}

// ProveWithdrawal generates a withdrawal link proof.
func ProveWithdrawal(st *WithdrawalStatement, w *WithdrawalWitness) (*WithdrawalProof, error) {
	if st == nil || w == nil {
		return nil, errors.New("sigma: statement and witness cannot be nil")
	}
	if w.SK == nil || w.BalanceBlind == nil {
		return nil, errors.New("sigma: witness scalars cannot be nil")
	}

	g := group.Generator()
	h := group.AltGenerator()

	ks, err := group.RandomScalar()
	if err != nil {
		return nil, err
	}
	kmb, err := group.RandomScalar()
	if err != nil {
		return nil, err
	}
	kbb, err := group.RandomScalar()
	if err != nil {
		return nil, err
	}

	ts := new(edwards25519.Point).ScalarBaseMult(ks)
	tn := relCommit(kmb, g, ks, st.NewBalance.C1)
	tb := relCommit(kmb, g, kbb, h)

	e := withdrawalChallenge(st, ts, tn, tb)

	mb := group.ScalarFromUint64(uint64(w.NewBalance))
	return &WithdrawalProof{
		TS: ts, TN: tn, TB: tb,
		Zs:  response(ks, e, w.SK),
		Zmb: response(kmb, e, mb),
		Zbb: response(kbb, e, w.BalanceBlind),
	}, nil
}

// Verify checks the withdrawal link proof against the statement.
func (p *WithdrawalProof) Verify(st *WithdrawalStatement) bool {
	if p == nil || st == nil {
		return false
	}

	g := group.Generator()
	h := group.AltGenerator()
	e := withdrawalChallenge(st, p.TS, p.TN, p.TB)

	zsG := new(edwards25519.Point).ScalarBaseMult(p.Zs)
	if !relCheck(zsG, p.TS, e, st.PK.P) {
		return false
	}
	lhs := relCommit(p.Zmb, g, p.Zs, st.NewBalance.C1)
	if !relCheck(lhs, p.TN, e, st.NewBalance.C2) {
		return false
	}
	lhs = relCommit(p.Zmb, g, p.Zbb, h)
	return relCheck(lhs, p.TB, e, st.BalanceComm.V)
}

// relCommit computes a*P + b*Q.
func relCommit(a *edwards25519.Scalar, p *edwards25519.Point,
	b *edwards25519.Scalar, q *edwards25519.Point) *edwards25519.Point {

	aP := new(edwards25519.Point).ScalarMult(a, p)
	bQ := new(edwards25519.Point).ScalarMult(b, q)
	return new(edwards25519.Point).Add(aP, bQ)
}

// relCheck verifies lhs == t + e*y.
func relCheck(lhs, t *edwards25519.Point, e *edwards25519.Scalar, y *edwards25519.Point) bool {
	eY := new(edwards25519.Point).ScalarMult(e, y)
	rhs := new(edwards25519.Point).Add(t, eY)
	return lhs.Equal(rhs) == 1
}

// response computes k + e*x.
func response(k, e, x *edwards25519.Scalar) *edwards25519.Scalar {
	z := edwards25519.NewScalar().Multiply(e, x)
	return z.Add(z, k)
}

func transferChallenge(st *TransferStatement, ts ...*edwards25519.Point) *edwards25519.Scalar {
	parts := [][]byte{
		st.SenderPK.Bytes(), st.RecipientPK.Bytes(),
		st.Withdraw.Bytes(), st.Deposit.Bytes(), st.NewBalance.Bytes(),
		st.BalanceComm.Bytes(), st.AmountComm.Bytes(),
	}
	for _, t := range ts {
		parts = append(parts, t.Bytes())
	}
	return group.ChallengeScalar(transferTag, parts...)
}

func withdrawalChallenge(st *WithdrawalStatement, ts ...*edwards25519.Point) *edwards25519.Scalar {
	parts := [][]byte{
		st.PK.Bytes(), st.NewBalance.Bytes(), st.BalanceComm.Bytes(),
	}
	for _, t := range ts {
		parts = append(parts, t.Bytes())
	}
	return group.ChallengeScalar(withdrawalTag, parts...)
}

// Bytes serializes the transfer proof.
func (p *TransferProof) Bytes() []byte {
	out := make([]byte, 0, TransferProofSize)
	for _, pt := range []*edwards25519.Point{p.TR, p.TW, p.TD, p.TA, p.TS, p.TN, p.TB} {
		out = append(out, pt.Bytes()...)
	}
	for _, s := range []*edwards25519.Scalar{p.Zm, p.Zr, p.Zba, p.Zs, p.Zmb, p.Zbb} {
		out = append(out, s.Bytes()...)
	}
	return out
}

// ParseTransferProof decodes a serialized transfer proof.
func ParseTransferProof(b []byte) (*TransferProof, error) {
	if len(b) != TransferProofSize {
		return nil, fmt.Errorf("sigma: transfer proof must be %d bytes, got %d", TransferProofSize, len(b))
	}
	pts := make([]*edwards25519.Point, 7)
	for i := range pts {
		p, err := group.ParsePoint(b[i*32 : (i+1)*32])
		if err != nil {
			return nil, err
		}
		pts[i] = p
	}
	scs := make([]*edwards25519.Scalar, 6)
	off := 7 * 32
	for i := range scs {
		s, err := group.ParseScalar(b[off+i*32 : off+(i+1)*32])
		if err != nil {
			return nil, err
		}
		scs[i] = s
	}
	return &TransferProof{
		TR: pts[0], TW: pts[1], TD: pts[2], TA: pts[3], TS: pts[4], TN: pts[5], TB: pts[6],
		Zm: scs[0], Zr: scs[1], Zba: scs[2], Zs: scs[3], Zmb: scs[4], Zbb: scs[5],
	}, nil
}

// Bytes serializes the withdrawal link proof.
func (p *WithdrawalProof) Bytes() []byte {
	out := make([]byte, 0, WithdrawalProofSize)
	for _, pt := range []*edwards25519.Point{p.TS, p.TN, p.TB} {
		out = append(out, pt.Bytes()...)
	}
	for _, s := range []*edwards25519.Scalar{p.Zs, p.Zmb, p.Zbb} {
		out = append(out, s.Bytes()...)
	}
	return out
}

// ParseWithdrawalProof decodes a serialized withdrawal link proof.
func ParseWithdrawalProof(b []byte) (*WithdrawalProof, error) {
	if len(b) != WithdrawalProofSize {
		return nil, fmt.Errorf("sigma: withdrawal proof must be %d bytes, got %d", WithdrawalProofSize, len(b))
	}
	pts := make([]*edwards25519.Point, 3)
	for i := range pts {
		p, err := group.ParsePoint(b[i*32 : (i+1)*32])
		if err != nil {
			return nil, err
		}
		pts[i] = p
	}
	scs := make([]*edwards25519.Scalar, 3)
	off := 3 * 32
	for i := range scs {
		s, err := group.ParseScalar(b[off+i*32 : off+(i+1)*32])
		if err != nil {
			return nil, err
		}
		scs[i] = s
	}
	return &WithdrawalProof{
		TS: pts[0], TN: pts[1], TB: pts[2],
		Zs: scs[0], Zmb: scs[1], Zbb: scs[2],
	}, nil
}
