// Package provider implements veiled.PrimitiveProvider over the module's
// ElGamal/Pedersen/sigma primitives. The protocol layer only ever sees the
// opaque veiled.* value types defined here; all algebra is delegated back
// through the provider methods.
package provider

import (
	"fmt"

	"github.com/veilchain/go-veiled/internal/crypto/elgamal"
	"github.com/veilchain/go-veiled/internal/crypto/pedersen"
	"github.com/veilchain/go-veiled/internal/crypto/zk/rangeproof"
	"github.com/veilchain/go-veiled/internal/crypto/zk/sigma"
	"github.com/veilchain/go-veiled/pkg/veiled"
)

// Provider is the default primitive provider.
type Provider struct{}

var _ veiled.PrimitiveProvider = (*Provider)(nil)

// New returns the default primitive provider.
func New() *Provider {
	return &Provider{}
}

type ciphertext struct{ ct *elgamal.Ciphertext }
type commitment struct{ c *pedersen.Commitment }
type publicKey struct{ pk *elgamal.PublicKey }
type rangeProof struct{ p *rangeproof.Proof }
type transferProof struct{ p *sigma.TransferProof }
type withdrawalProof struct{ p *sigma.WithdrawalProof }

func (c ciphertext) Bytes() []byte      { return c.ct.Bytes() }
func (c commitment) Bytes() []byte      { return c.c.Bytes() }
func (k publicKey) Bytes() []byte       { return k.pk.Bytes() }
func (r rangeProof) Bytes() []byte      { return r.p.Bytes() }
func (t transferProof) Bytes() []byte   { return t.p.Bytes() }
func (w withdrawalProof) Bytes() []byte { return w.p.Bytes() }

func (p *Provider) Encrypt(amount uint32, pk veiled.PublicKey) (veiled.Ciphertext, error) {
	k, ok := pk.(publicKey)
	if !ok {
		return nil, fmt.Errorf("%w: foreign public key", veiled.ErrMalformedInput)
	}
	ct, _, err := k.pk.Encrypt(amount)
	if err != nil {
		return nil, err
	}
	return ciphertext{ct: ct}, nil
}

func (p *Provider) EncryptNoRandomness(amount uint32) veiled.Ciphertext {
	return ciphertext{ct: elgamal.EncryptNoRandomness(amount)}
}

func (p *Provider) CiphertextAdd(a, b veiled.Ciphertext) (veiled.Ciphertext, error) {
	ca, cb, err := p.pair(a, b)
	if err != nil {
		return nil, err
	}
	return ciphertext{ct: ca.Add(cb)}, nil
}

func (p *Provider) CiphertextSub(a, b veiled.Ciphertext) (veiled.Ciphertext, error) {
	ca, cb, err := p.pair(a, b)
	if err != nil {
		return nil, err
	}
	return ciphertext{ct: ca.Sub(cb)}, nil
}

func (p *Provider) pair(a, b veiled.Ciphertext) (*elgamal.Ciphertext, *elgamal.Ciphertext, error) {
	ca, ok := a.(ciphertext)
	if !ok {
		return nil, nil, fmt.Errorf("%w: foreign ciphertext", veiled.ErrMalformedInput)
	}
	cb, ok := b.(ciphertext)
	if !ok {
		return nil, nil, fmt.Errorf("%w: foreign ciphertext", veiled.ErrMalformedInput)
	}
	return ca.ct, cb.ct, nil
}

func (p *Provider) VerifyRangeProof(c veiled.Commitment, proof veiled.RangeProof, maxBits int, domainTag []byte) bool {
	cc, ok := c.(commitment)
	if !ok {
		return false
	}
	rp, ok := proof.(rangeProof)
	if !ok {
		return false
	}
	return rp.p.Verify(cc.c, maxBits, domainTag)
}

func (p *Provider) VerifyTransferProof(senderPK, recipientPK veiled.PublicKey,
	withdrawCT, depositCT, newBalanceCT veiled.Ciphertext,
	balanceComm, amountComm veiled.Commitment, proof veiled.TransferProof) bool {

	spk, ok1 := senderPK.(publicKey)
	rpk, ok2 := recipientPK.(publicKey)
	wct, ok3 := withdrawCT.(ciphertext)
	dct, ok4 := depositCT.(ciphertext)
	nct, ok5 := newBalanceCT.(ciphertext)
	bc, ok6 := balanceComm.(commitment)
	ac, ok7 := amountComm.(commitment)
	tp, ok8 := proof.(transferProof)
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6 && ok7 && ok8) {
		return false
	}

	return tp.p.Verify(&sigma.TransferStatement{
		SenderPK:    spk.pk,
		RecipientPK: rpk.pk,
		Withdraw:    wct.ct,
		Deposit:     dct.ct,
		NewBalance:  nct.ct,
		BalanceComm: bc.c,
		AmountComm:  ac.c,
	})
}

func (p *Provider) VerifyWithdrawalLinkProof(pk veiled.PublicKey, newBalanceCT veiled.Ciphertext,
	balanceComm veiled.Commitment, proof veiled.WithdrawalProof) bool {

	k, ok1 := pk.(publicKey)
	nct, ok2 := newBalanceCT.(ciphertext)
	bc, ok3 := balanceComm.(commitment)
	wp, ok4 := proof.(withdrawalProof)
	if !(ok1 && ok2 && ok3 && ok4) {
		return false
	}

	return wp.p.Verify(&sigma.WithdrawalStatement{
		PK:          k.pk,
		NewBalance:  nct.ct,
		BalanceComm: bc.c,
	})
}

func (p *Provider) ParseCiphertext(b []byte) (veiled.Ciphertext, error) {
	ct, err := elgamal.ParseCiphertext(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", veiled.ErrMalformedInput, err)
	}
	return ciphertext{ct: ct}, nil
}

func (p *Provider) ParseCommitment(b []byte) (veiled.Commitment, error) {
	c, err := pedersen.ParseCommitment(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", veiled.ErrMalformedInput, err)
	}
	return commitment{c: c}, nil
}

func (p *Provider) ParsePublicKey(b []byte) (veiled.PublicKey, error) {
	pk, err := elgamal.ParsePublicKey(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", veiled.ErrMalformedInput, err)
	}
	return publicKey{pk: pk}, nil
}

func (p *Provider) ParseRangeProof(b []byte) (veiled.RangeProof, error) {
	rp, err := rangeproof.ParseProof(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", veiled.ErrMalformedInput, err)
	}
	return rangeProof{p: rp}, nil
}

func (p *Provider) ParseTransferProof(b []byte) (veiled.TransferProof, error) {
	tp, err := sigma.ParseTransferProof(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", veiled.ErrMalformedInput, err)
	}
	return transferProof{p: tp}, nil
}

func (p *Provider) ParseWithdrawalProof(b []byte) (veiled.WithdrawalProof, error) {
	wp, err := sigma.ParseWithdrawalProof(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", veiled.ErrMalformedInput, err)
	}
	return withdrawalProof{p: wp}, nil
}
