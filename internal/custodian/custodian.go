// Package custodian provides an in-memory implementation of
// veiled.Custodian: per-account public balances plus a vault holding the
// funds that back veiled balances. A production deployment would replace
// this with the host chain's escrow account; the protocol only depends on
// the veiled.Custodian contract.
package custodian

import (
	"fmt"
	"sync"

	"github.com/veilchain/go-veiled/pkg/veiled"
)

// InMemory is a thread-safe in-memory custodian.
type InMemory struct {
	mu       sync.Mutex
	balances map[veiled.Account]uint64
	vault    uint64
}

var _ veiled.Custodian = (*InMemory)(nil)

// New returns an empty custodian.
func New() *InMemory {
	return &InMemory{balances: make(map[veiled.Account]uint64)}
}

// handle is a consume-once claim on withdrawn funds.
type handle struct {
	amount uint64
	spent  bool
}

func (h *handle) Amount() uint64 { return h.amount }

// Mint credits public funds to an account out of thin air. Test and demo
// setup only; a real custodian has no such operation.
func (c *InMemory) Mint(account veiled.Account, amount uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[account] += amount
}

// PublicBalance returns the account's public funds.
func (c *InMemory) PublicBalance(account veiled.Account) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances[account]
}

// WithdrawPublic takes amount from the account's public funds.
func (c *InMemory) WithdrawPublic(account veiled.Account, amount uint64) (veiled.AssetHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	bal := c.balances[account]
	if bal < amount {
		return nil, fmt.Errorf("%w: account %s has %d, needs %d",
			veiled.ErrInsufficientPublicBalance, account, bal, amount)
	}
	c.balances[account] = bal - amount
	return &handle{amount: amount}, nil
}

// DepositPublic credits the handle's funds to the account.
func (c *InMemory) DepositPublic(account veiled.Account, h veiled.AssetHandle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	hh, err := c.claim(h)
	if err != nil {
		return err
	}
	c.balances[account] += hh.amount
	return nil
}

// Custody moves the handle's funds into the vault.
func (c *InMemory) Custody(h veiled.AssetHandle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	hh, err := c.claim(h)
	if err != nil {
		return err
	}
	c.vault += hh.amount
	return nil
}

// Uncustody takes funds out of the vault.
func (c *InMemory) Uncustody(amount uint64) (veiled.AssetHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.vault < amount {
		return nil, fmt.Errorf("%w: vault holds %d, needs %d",
			veiled.ErrInvariantViolation, c.vault, amount)
	}
	c.vault -= amount
	return &handle{amount: amount}, nil
}

// TotalCustodied returns the vault balance.
func (c *InMemory) TotalCustodied() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vault
}

// claim consumes a handle, rejecting foreign or already-spent handles.
func (c *InMemory) claim(h veiled.AssetHandle) (*handle, error) {
	hh, ok := h.(*handle)
	if !ok || hh == nil {
		return nil, fmt.Errorf("%w: foreign asset handle", veiled.ErrInvariantViolation)
	}
	if hh.spent {
		return nil, fmt.Errorf("%w: asset handle already consumed", veiled.ErrInvariantViolation)
	}
	hh.spent = true
	return hh, nil
}
