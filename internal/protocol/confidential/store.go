package confidential

import (
	"fmt"

	"github.com/veilchain/go-veiled/pkg/veiled"
)

// accountStore is the persistent per-account record of a veiled balance.
// Created once by Register, never destroyed, mutated only by the protocol
// transitions. The event counters exist for external notification and are
// never consulted by protocol logic.
type accountStore struct {
	balance veiled.Ciphertext
	pk      veiled.PublicKey

	depositCount  uint64
	withdrawCount uint64
}

// lookup returns the account store or ErrNotRegistered. Callers hold the
// protocol lock.
func (p *Protocol) lookup(account veiled.Account) (*accountStore, error) {
	rec, ok := p.accounts[account]
	if !ok {
		return nil, fmt.Errorf("%w: account %s", veiled.ErrNotRegistered, account)
	}
	return rec, nil
}

// Register creates the veiled balance store for an account. The initial
// balance is the canonical zero-randomness encryption of zero: it is
// derivable without any key, and no secret key can open it to a nonzero
// value. It is also deterministic, hence distinguishable; this weakness is
// inherited deliberately from the protocol definition.
func (p *Protocol) Register(account veiled.Account, pkBytes []byte) error {
	pk, err := p.provider.ParsePublicKey(pkBytes)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.accounts[account]; ok {
		return fmt.Errorf("%w: account %s", veiled.ErrAlreadyRegistered, account)
	}
	p.accounts[account] = &accountStore{
		balance: p.provider.EncryptNoRandomness(0),
		pk:      pk,
	}
	return nil
}

// IsRegistered reports whether the account has a veiled balance store.
func (p *Protocol) IsRegistered(account veiled.Account) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.accounts[account]
	return ok
}

// BalanceCiphertext returns the account's encrypted balance.
func (p *Protocol) BalanceCiphertext(account veiled.Account) (veiled.Ciphertext, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, err := p.lookup(account)
	if err != nil {
		return nil, err
	}
	return rec.balance, nil
}

// PublicKey returns the account's encryption public key.
func (p *Protocol) PublicKey(account veiled.Account) (veiled.PublicKey, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, err := p.lookup(account)
	if err != nil {
		return nil, err
	}
	return rec.pk, nil
}

// EventCounters returns the deposit and withdraw counters kept for
// external notification.
func (p *Protocol) EventCounters(account veiled.Account) (deposits, withdraws uint64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, err := p.lookup(account)
	if err != nil {
		return 0, 0, err
	}
	return rec.depositCount, rec.withdrawCount, nil
}

// TotalCustodied returns the public amount held by the custodian's vault.
func (p *Protocol) TotalCustodied() uint64 {
	return p.custodian.TotalCustodied()
}
