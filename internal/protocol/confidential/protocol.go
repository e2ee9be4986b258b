// Package confidential implements the confidential balance protocol:
// veiled accounts whose balances are hidden behind additively homomorphic
// ciphertexts, with three state transitions (veil-in, unveil, veiled
// transfer) gated by zero-knowledge proof verification.
//
// Every transition is all-or-nothing: all verification gates are passed
// and all staged updates (balance store and custodian) are applied in one
// critical section, or nothing changes and a typed error is returned.
package confidential

import (
	"fmt"
	"sync"

	"github.com/veilchain/go-veiled/pkg/veiled"
)

// RangeBits is the bit width every proven amount and balance must fit in.
const RangeBits = 32

// Domain tags separating the two range-proof contexts. A proof generated
// for one context does not verify in the other.
var (
	DomainNewBalanceRange = []byte("veiled/range/new-balance")
	DomainAmountRange     = []byte("veiled/range/amount")
)

// Protocol is the confidential transfer protocol for one asset type.
// The mutex stands in for the host's per-call serialization: each
// transition runs as a single atomic unit of work with exclusive access
// to the account stores.
type Protocol struct {
	asset     string
	codec     *veiled.AmountCodec
	provider  veiled.PrimitiveProvider
	custodian veiled.Custodian

	mu       sync.Mutex
	accounts map[veiled.Account]*accountStore
}

// New builds a protocol instance for one asset type.
func New(asset string, p veiled.PrimitiveProvider, c veiled.Custodian, codec *veiled.AmountCodec) *Protocol {
	return &Protocol{
		asset:     asset,
		codec:     codec,
		provider:  p,
		custodian: c,
		accounts:  make(map[veiled.Account]*accountStore),
	}
}

// Asset returns the asset type this protocol instance manages.
func (p *Protocol) Asset() string { return p.asset }

// Veil moves public funds of the caller into the recipient's veiled
// balance. The amount is public by design on this path: anyone can see
// how much was veiled, after which it disappears into the encrypted
// balance.
func (p *Protocol) Veil(caller, recipient veiled.Account, amount uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, err := p.lookup(recipient)
	if err != nil {
		return err
	}

	// The amount is public, so the coin is a zero-randomness encryption
	// and no proof is required. Stage the new balance before any custodian
	// movement: a provider failure here must not strand funds in the vault.
	coin := newVeiledCoin(p.provider.EncryptNoRandomness(amount))
	ct, err := coin.take()
	if err != nil {
		return err
	}
	newBalance, err := p.provider.CiphertextAdd(rec.balance, ct)
	if err != nil {
		return err
	}

	// Commit: take the expanded public amount into custody, then land the
	// staged balance.
	h, err := p.custodian.WithdrawPublic(caller, p.codec.ExpandVeiledToPublic(amount))
	if err != nil {
		return err
	}
	if err := p.custodian.Custody(h); err != nil {
		return err
	}
	rec.balance = newBalance
	rec.depositCount++
	return nil
}

// VeilSelf veils the caller's own public funds into their veiled balance.
func (p *Protocol) VeilSelf(caller veiled.Account, amount uint32) error {
	return p.Veil(caller, caller, amount)
}

// Unveil moves a public amount out of the caller's veiled balance to the
// recipient's public funds. The caller must supply a commitment to their
// new balance, a range proof that the committed value is in [0, 2^32),
// and a link proof binding the commitment to the actual post-withdrawal
// ciphertext. No range proof is required on the amount itself: it is
// public and bounded by its type.
func (p *Protocol) Unveil(caller, recipient veiled.Account, amount uint32,
	balanceCommBytes, newBalanceProofBytes, linkProofBytes []byte) error {

	// Deserialize before touching any state.
	balanceComm, err := p.provider.ParseCommitment(balanceCommBytes)
	if err != nil {
		return err
	}
	rangeProof, err := p.provider.ParseRangeProof(newBalanceProofBytes)
	if err != nil {
		return err
	}
	linkProof, err := p.provider.ParseWithdrawalProof(linkProofBytes)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	rec, err := p.lookup(caller)
	if err != nil {
		return err
	}

	// Stage the candidate new balance.
	newBalance, err := p.provider.CiphertextSub(rec.balance, p.provider.EncryptNoRandomness(amount))
	if err != nil {
		return err
	}

	// Gate 1: the new balance must be a 32-bit value. This is what makes
	// overdraft impossible: 3 - 5 wraps modulo the group order and no
	// valid proof exists for the wrapped value.
	if !p.provider.VerifyRangeProof(balanceComm, rangeProof, RangeBits, DomainNewBalanceRange) {
		return fmt.Errorf("%w: new balance out of range", veiled.ErrRangeProofFailed)
	}

	// Gate 2: the commitment the range proof talks about must be the
	// post-withdrawal ciphertext's value under the caller's key.
	if !p.provider.VerifyWithdrawalLinkProof(rec.pk, newBalance, balanceComm, linkProof) {
		return fmt.Errorf("%w: balance commitment not linked to ciphertext", veiled.ErrProofVerificationFailed)
	}

	// Commit: custodian first (its failure modes are invariant breaches,
	// not user errors, and it leaves the store untouched), then the store.
	h, err := p.custodian.Uncustody(p.codec.ExpandVeiledToPublic(amount))
	if err != nil {
		return err
	}
	if err := p.custodian.DepositPublic(recipient, h); err != nil {
		return err
	}
	rec.balance = newBalance
	rec.withdrawCount++
	return nil
}

// UnveilSelf unveils to the caller's own public funds.
func (p *Protocol) UnveilSelf(caller veiled.Account, amount uint32,
	balanceCommBytes, newBalanceProofBytes, linkProofBytes []byte) error {
	return p.Unveil(caller, caller, amount, balanceCommBytes, newBalanceProofBytes, linkProofBytes)
}

// Transfer moves a hidden amount from the sender's veiled balance to the
// recipient's. The sigma proof ties the withdrawal and deposit
// ciphertexts to each other and to the amount commitment; the two range
// proofs pin both the amount and the sender's new balance into [0, 2^32).
// Either range proof alone is insufficient: without the amount proof a
// negative-wrapping amount can still leave the new balance in range, and
// without the balance proof the sender can overdraw.
func (p *Protocol) Transfer(sender, recipient veiled.Account,
	withdrawCTBytes, depositCTBytes, balanceCommBytes, amountCommBytes,
	newBalanceProofBytes, amountProofBytes, transferProofBytes []byte) error {

	// Deserialize before touching any state.
	withdrawCT, err := p.provider.ParseCiphertext(withdrawCTBytes)
	if err != nil {
		return err
	}
	depositCT, err := p.provider.ParseCiphertext(depositCTBytes)
	if err != nil {
		return err
	}
	balanceComm, err := p.provider.ParseCommitment(balanceCommBytes)
	if err != nil {
		return err
	}
	amountComm, err := p.provider.ParseCommitment(amountCommBytes)
	if err != nil {
		return err
	}
	newBalanceProof, err := p.provider.ParseRangeProof(newBalanceProofBytes)
	if err != nil {
		return err
	}
	amountProof, err := p.provider.ParseRangeProof(amountProofBytes)
	if err != nil {
		return err
	}
	transferProof, err := p.provider.ParseTransferProof(transferProofBytes)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	senderRec, err := p.lookup(sender)
	if err != nil {
		return err
	}
	recipientRec, err := p.lookup(recipient)
	if err != nil {
		return err
	}

	// Stage the candidate new sender balance.
	newBalance, err := p.provider.CiphertextSub(senderRec.balance, withdrawCT)
	if err != nil {
		return err
	}

	// Gate 1: withdrawal and deposit encrypt the same amount under the
	// two keys, the amount is the committed one, and the balance
	// commitment opens to the staged new balance.
	if !p.provider.VerifyTransferProof(senderRec.pk, recipientRec.pk,
		withdrawCT, depositCT, newBalance, balanceComm, amountComm, transferProof) {
		return fmt.Errorf("%w: transfer relation", veiled.ErrProofVerificationFailed)
	}

	// Gate 2: new sender balance in [0, 2^32).
	if !p.provider.VerifyRangeProof(balanceComm, newBalanceProof, RangeBits, DomainNewBalanceRange) {
		return fmt.Errorf("%w: new balance out of range", veiled.ErrRangeProofFailed)
	}

	// Gate 3: transferred amount in [0, 2^32). Always required here: the
	// amount is never public on this path.
	if !p.provider.VerifyRangeProof(amountComm, amountProof, RangeBits, DomainAmountRange) {
		return fmt.Errorf("%w: amount out of range", veiled.ErrRangeProofFailed)
	}

	// Commit. No public asset moves on this path. The deposit below reads
	// the already-updated record, so a self-transfer lands on the staged
	// balance, not the stale one.
	senderRec.balance = newBalance
	senderRec.withdrawCount++

	coin := newVeiledCoin(depositCT)
	return p.depositCoin(recipientRec, coin)
}

// depositCoin folds a veiled coin into the account's encrypted balance,
// consuming the coin. Callers hold the protocol lock.
func (p *Protocol) depositCoin(rec *accountStore, coin *VeiledCoin) error {
	ct, err := coin.take()
	if err != nil {
		return err
	}
	newBalance, err := p.provider.CiphertextAdd(rec.balance, ct)
	if err != nil {
		return err
	}
	rec.balance = newBalance
	rec.depositCount++
	return nil
}
