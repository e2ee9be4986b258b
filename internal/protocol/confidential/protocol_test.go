package confidential

import (
	"crypto/rand"
	"errors"
	"testing"

	"filippo.io/edwards25519"

	"github.com/veilchain/go-veiled/internal/crypto/elgamal"
	"github.com/veilchain/go-veiled/internal/crypto/group"
	"github.com/veilchain/go-veiled/internal/crypto/pedersen"
	"github.com/veilchain/go-veiled/internal/crypto/zk/rangeproof"
	"github.com/veilchain/go-veiled/internal/crypto/zk/sigma"
	"github.com/veilchain/go-veiled/internal/custodian"
	"github.com/veilchain/go-veiled/internal/provider"
	"github.com/veilchain/go-veiled/pkg/veiled"
)

// testWallet plays the off-chain side of the protocol: it holds the
// decryption key and tracks the plaintext balance so it can build proofs.
type testWallet struct {
	account veiled.Account
	key     *elgamal.PrivateKey
	balance uint32
}

type testEnv struct {
	protocol  *Protocol
	custodian *custodian.InMemory
	codec     *veiled.AmountCodec
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	c := custodian.New()
	codec := veiled.DefaultAmountCodec()
	return &testEnv{
		protocol:  New("vUSD", provider.New(), c, codec),
		custodian: c,
		codec:     codec,
	}
}

func (e *testEnv) register(t *testing.T, name veiled.Account) *testWallet {
	t.Helper()
	key, err := elgamal.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.protocol.Register(name, key.PublicKey.Bytes()); err != nil {
		t.Fatalf("Register(%s) failed: %v", name, err)
	}
	return &testWallet{account: name, key: key}
}

// openBalance decrypts the on-ledger balance with the wallet's key.
func (e *testEnv) openBalance(t *testing.T, w *testWallet) uint32 {
	t.Helper()
	ct, err := e.protocol.BalanceCiphertext(w.account)
	if err != nil {
		t.Fatalf("BalanceCiphertext(%s) failed: %v", w.account, err)
	}
	parsed, err := elgamal.ParseCiphertext(ct.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	got, err := w.key.Decrypt(parsed)
	if err != nil {
		t.Fatalf("decrypting %s balance: %v", w.account, err)
	}
	return got
}

// balanceCT fetches and parses the current on-ledger balance ciphertext.
func (e *testEnv) balanceCT(t *testing.T, account veiled.Account) *elgamal.Ciphertext {
	t.Helper()
	ct, err := e.protocol.BalanceCiphertext(account)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := elgamal.ParseCiphertext(ct.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	return parsed
}

// transferRequest is the byte-level argument bundle of a Transfer call.
type transferRequest struct {
	withdrawCT, depositCT      []byte
	balanceComm, amountComm    []byte
	newBalanceProof            []byte
	amountProof, transferProof []byte
}

// buildTransfer builds a fully valid transfer request the way a wallet
// would, against the sender's current on-ledger balance ciphertext.
func (e *testEnv) buildTransfer(t *testing.T, sender *testWallet, recipient *testWallet, amount uint32) *transferRequest {
	t.Helper()

	r, err := group.RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	withdraw := sender.key.PublicKey.EncryptWithR(amount, r)
	deposit := recipient.key.PublicKey.EncryptWithR(amount, r)

	newBalance := sender.balance - amount
	newBalanceCT := e.balanceCT(t, sender.account).Sub(withdraw)

	balanceComm, balanceBlind, err := pedersen.CommitRandom(newBalance)
	if err != nil {
		t.Fatal(err)
	}
	amountComm, amountBlind, err := pedersen.CommitRandom(amount)
	if err != nil {
		t.Fatal(err)
	}

	proof, err := sigma.ProveTransfer(&sigma.TransferStatement{
		SenderPK:    &sender.key.PublicKey,
		RecipientPK: &recipient.key.PublicKey,
		Withdraw:    withdraw,
		Deposit:     deposit,
		NewBalance:  newBalanceCT,
		BalanceComm: balanceComm,
		AmountComm:  amountComm,
	}, &sigma.TransferWitness{
		Amount:       amount,
		Rand:         r,
		AmountBlind:  amountBlind,
		SenderSK:     sender.key.S,
		NewBalance:   newBalance,
		BalanceBlind: balanceBlind,
	})
	if err != nil {
		t.Fatal(err)
	}

	newBalanceProof, err := rangeproof.Prove(newBalance, balanceBlind, RangeBits, DomainNewBalanceRange)
	if err != nil {
		t.Fatal(err)
	}
	amountProof, err := rangeproof.Prove(amount, amountBlind, RangeBits, DomainAmountRange)
	if err != nil {
		t.Fatal(err)
	}

	return &transferRequest{
		withdrawCT:      withdraw.Bytes(),
		depositCT:       deposit.Bytes(),
		balanceComm:     balanceComm.Bytes(),
		amountComm:      amountComm.Bytes(),
		newBalanceProof: newBalanceProof.Bytes(),
		amountProof:     amountProof.Bytes(),
		transferProof:   proof.Bytes(),
	}
}

func (e *testEnv) doTransfer(sender, recipient veiled.Account, req *transferRequest) error {
	return e.protocol.Transfer(sender, recipient,
		req.withdrawCT, req.depositCT, req.balanceComm, req.amountComm,
		req.newBalanceProof, req.amountProof, req.transferProof)
}

// buildUnveil builds a valid unveil proof bundle for the wallet's claimed
// new balance value.
func (e *testEnv) buildUnveil(t *testing.T, w *testWallet, amount, newBalance uint32) (balanceComm, newBalanceProof, linkProof []byte) {
	t.Helper()

	newBalanceCT := e.balanceCT(t, w.account).Sub(elgamal.EncryptNoRandomness(amount))

	comm, blind, err := pedersen.CommitRandom(newBalance)
	if err != nil {
		t.Fatal(err)
	}
	rp, err := rangeproof.Prove(newBalance, blind, RangeBits, DomainNewBalanceRange)
	if err != nil {
		t.Fatal(err)
	}
	lp, err := sigma.ProveWithdrawal(&sigma.WithdrawalStatement{
		PK:          &w.key.PublicKey,
		NewBalance:  newBalanceCT,
		BalanceComm: comm,
	}, &sigma.WithdrawalWitness{
		SK:           w.key.S,
		NewBalance:   newBalance,
		BalanceBlind: blind,
	})
	if err != nil {
		t.Fatal(err)
	}
	return comm.Bytes(), rp.Bytes(), lp.Bytes()
}

func TestRegister(t *testing.T) {
	e := newTestEnv(t)
	a := e.register(t, "alice")

	if !e.protocol.IsRegistered("alice") {
		t.Error("alice should be registered")
	}
	if e.protocol.IsRegistered("bob") {
		t.Error("bob should not be registered")
	}
	if got := e.openBalance(t, a); got != 0 {
		t.Errorf("fresh balance: expected 0, got %d", got)
	}

	err := e.protocol.Register("alice", a.key.PublicKey.Bytes())
	if !errors.Is(err, veiled.ErrAlreadyRegistered) {
		t.Errorf("expected ErrAlreadyRegistered, got %v", err)
	}

	if _, err := e.protocol.BalanceCiphertext("bob"); !errors.Is(err, veiled.ErrNotRegistered) {
		t.Errorf("expected ErrNotRegistered, got %v", err)
	}
	if _, err := e.protocol.PublicKey("bob"); !errors.Is(err, veiled.ErrNotRegistered) {
		t.Errorf("expected ErrNotRegistered, got %v", err)
	}

	if err := e.protocol.Register("carol", []byte{1, 2}); !errors.Is(err, veiled.ErrMalformedInput) {
		t.Errorf("expected ErrMalformedInput for bad key bytes, got %v", err)
	}
}

func TestVeilScenario(t *testing.T) {
	e := newTestEnv(t)
	a := e.register(t, "alice")

	e.custodian.Mint("alice", 10<<16)

	if err := e.protocol.VeilSelf("alice", 5); err != nil {
		t.Fatalf("VeilSelf failed: %v", err)
	}
	a.balance = 5

	if got := e.custodian.PublicBalance("alice"); got != 5<<16 {
		t.Errorf("public balance: expected %d, got %d", 5<<16, got)
	}
	if got := e.protocol.TotalCustodied(); got != 5<<16 {
		t.Errorf("custodied: expected %d, got %d", 5<<16, got)
	}
	if got := e.openBalance(t, a); got != 5 {
		t.Errorf("veiled balance: expected 5, got %d", got)
	}

	deposits, withdraws, err := e.protocol.EventCounters("alice")
	if err != nil {
		t.Fatal(err)
	}
	if deposits != 1 || withdraws != 0 {
		t.Errorf("counters: expected 1/0, got %d/%d", deposits, withdraws)
	}
}

func TestVeilToUnregisteredRecipient(t *testing.T) {
	e := newTestEnv(t)
	e.custodian.Mint("alice", 10<<16)

	err := e.protocol.Veil("alice", "bob", 5)
	if !errors.Is(err, veiled.ErrNotRegistered) {
		t.Errorf("expected ErrNotRegistered, got %v", err)
	}
	// No custodian movement on failure.
	if got := e.custodian.PublicBalance("alice"); got != 10<<16 {
		t.Errorf("public balance must be untouched, got %d", got)
	}
	if got := e.protocol.TotalCustodied(); got != 0 {
		t.Errorf("vault must be untouched, got %d", got)
	}
}

func TestVeilInsufficientPublicBalance(t *testing.T) {
	e := newTestEnv(t)
	a := e.register(t, "alice")
	e.custodian.Mint("alice", 4<<16)

	err := e.protocol.VeilSelf("alice", 5)
	if !errors.Is(err, veiled.ErrInsufficientPublicBalance) {
		t.Errorf("expected ErrInsufficientPublicBalance, got %v", err)
	}
	if got := e.openBalance(t, a); got != 0 {
		t.Errorf("veiled balance must be untouched, got %d", got)
	}
}

func TestUnveilScenario(t *testing.T) {
	e := newTestEnv(t)
	a := e.register(t, "alice")
	e.custodian.Mint("alice", 8<<16)
	if err := e.protocol.VeilSelf("alice", 8); err != nil {
		t.Fatal(err)
	}
	a.balance = 8

	comm, rp, lp := e.buildUnveil(t, a, 5, 3)
	if err := e.protocol.UnveilSelf("alice", 5, comm, rp, lp); err != nil {
		t.Fatalf("UnveilSelf failed: %v", err)
	}
	a.balance = 3

	if got := e.openBalance(t, a); got != 3 {
		t.Errorf("veiled balance: expected 3, got %d", got)
	}
	if got := e.custodian.PublicBalance("alice"); got != 5<<16 {
		t.Errorf("public balance: expected %d, got %d", 5<<16, got)
	}
	if got := e.protocol.TotalCustodied(); got != 3<<16 {
		t.Errorf("custodied: expected %d, got %d", 3<<16, got)
	}
}

// No valid proof can show 3 - 5 in [0, 2^32): the honest post-withdrawal
// value is negative, and committing to the 32-bit-wrapped value instead
// produces a commitment the subtracted ciphertext does not match. The
// strongest available forgery is a commitment to the true (negative)
// value with a proof for the wrapped one, and it must die at the range
// gate.
func TestUnveilInsufficientFunds(t *testing.T) {
	e := newTestEnv(t)
	a := e.register(t, "alice")
	e.custodian.Mint("alice", 3<<16)
	if err := e.protocol.VeilSelf("alice", 3); err != nil {
		t.Fatal(err)
	}
	a.balance = 3

	// Commitment to the true new balance 3 - 5 = -2, built with raw
	// scalar arithmetic since no honest API accepts a negative value.
	blind, err := group.RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	c3 := pedersen.Commit(3, blind)
	fiveG := new(edwards25519.Point).ScalarBaseMult(group.ScalarFromUint64(5))
	negComm := &pedersen.Commitment{V: new(edwards25519.Point).Subtract(c3.V, fiveG)}

	three := uint32(3)
	wrapped := three - 5
	rp, err := rangeproof.Prove(wrapped, blind, RangeBits, DomainNewBalanceRange)
	if err != nil {
		t.Fatal(err)
	}
	newBalanceCT := e.balanceCT(t, "alice").Sub(elgamal.EncryptNoRandomness(5))
	lp, err := sigma.ProveWithdrawal(&sigma.WithdrawalStatement{
		PK:          &a.key.PublicKey,
		NewBalance:  newBalanceCT,
		BalanceComm: negComm,
	}, &sigma.WithdrawalWitness{
		SK:           a.key.S,
		NewBalance:   wrapped,
		BalanceBlind: blind,
	})
	if err != nil {
		t.Fatal(err)
	}

	err = e.protocol.UnveilSelf("alice", 5, negComm.Bytes(), rp.Bytes(), lp.Bytes())
	if !errors.Is(err, veiled.ErrRangeProofFailed) {
		t.Errorf("expected ErrRangeProofFailed, got %v", err)
	}

	// Nothing moved.
	if got := e.openBalance(t, a); got != 3 {
		t.Errorf("veiled balance must be untouched, got %d", got)
	}
	if got := e.custodian.PublicBalance("alice"); got != 0 {
		t.Errorf("public balance must be untouched, got %d", got)
	}
	if got := e.protocol.TotalCustodied(); got != 3<<16 {
		t.Errorf("vault must be untouched, got %d", got)
	}
}

// A range proof for an in-range value over a commitment unrelated to the
// actual ciphertext passes the range gate and must then die at the link
// gate.
func TestUnveilUnlinkedCommitment(t *testing.T) {
	e := newTestEnv(t)
	a := e.register(t, "alice")
	e.custodian.Mint("alice", 3<<16)
	if err := e.protocol.VeilSelf("alice", 3); err != nil {
		t.Fatal(err)
	}
	a.balance = 3

	// Claim the new balance is 10 even though 3 - 5 is negative.
	comm, rp, lp := e.buildUnveil(t, a, 5, 10)
	err := e.protocol.UnveilSelf("alice", 5, comm, rp, lp)
	if !errors.Is(err, veiled.ErrProofVerificationFailed) {
		t.Errorf("expected ErrProofVerificationFailed, got %v", err)
	}
	if got := e.openBalance(t, a); got != 3 {
		t.Errorf("veiled balance must be untouched, got %d", got)
	}
}

func TestTransferScenario(t *testing.T) {
	e := newTestEnv(t)
	a := e.register(t, "alice")
	b := e.register(t, "bob")

	e.custodian.Mint("alice", 10<<16)
	if err := e.protocol.VeilSelf("alice", 10); err != nil {
		t.Fatal(err)
	}
	a.balance = 10

	req := e.buildTransfer(t, a, b, 4)
	if err := e.doTransfer("alice", "bob", req); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	a.balance, b.balance = 6, 4

	if got := e.openBalance(t, a); got != 6 {
		t.Errorf("alice balance: expected 6, got %d", got)
	}
	if got := e.openBalance(t, b); got != 4 {
		t.Errorf("bob balance: expected 4, got %d", got)
	}
	// Custody does not move on veiled transfers.
	if got := e.protocol.TotalCustodied(); got != 10<<16 {
		t.Errorf("custodied: expected %d, got %d", 10<<16, got)
	}

	_, withdraws, err := e.protocol.EventCounters("alice")
	if err != nil {
		t.Fatal(err)
	}
	if withdraws != 1 {
		t.Errorf("alice withdraw counter: expected 1, got %d", withdraws)
	}
	deposits, _, err := e.protocol.EventCounters("bob")
	if err != nil {
		t.Fatal(err)
	}
	if deposits != 1 {
		t.Errorf("bob deposit counter: expected 1, got %d", deposits)
	}
}

// Overdraft: the sender can only produce a sigma proof by lying about the
// new balance value, and the lie is caught by the link relation inside
// the transfer proof.
func TestTransferOverdraft(t *testing.T) {
	e := newTestEnv(t)
	a := e.register(t, "alice")
	b := e.register(t, "bob")

	e.custodian.Mint("alice", 3<<16)
	if err := e.protocol.VeilSelf("alice", 3); err != nil {
		t.Fatal(err)
	}
	a.balance = 3

	// buildTransfer computes 3 - 5 with wrapping uint32 arithmetic,
	// which is exactly what a cheating wallet would claim.
	req := e.buildTransfer(t, a, b, 5)
	err := e.doTransfer("alice", "bob", req)
	if !errors.Is(err, veiled.ErrProofVerificationFailed) {
		t.Errorf("expected ErrProofVerificationFailed, got %v", err)
	}

	if got := e.openBalance(t, a); got != 3 {
		t.Errorf("alice balance must be untouched, got %d", got)
	}
	if got := e.openBalance(t, b); got != 0 {
		t.Errorf("bob balance must be untouched, got %d", got)
	}
}

func TestTransferAtomicityOnRangeProofFailure(t *testing.T) {
	e := newTestEnv(t)
	a := e.register(t, "alice")
	b := e.register(t, "bob")

	e.custodian.Mint("alice", 10<<16)
	if err := e.protocol.VeilSelf("alice", 10); err != nil {
		t.Fatal(err)
	}
	a.balance = 10

	req := e.buildTransfer(t, a, b, 4)

	// Substitute an amount range proof built with a different blinding
	// factor: sigma verifies, the amount range gate must fail.
	otherBlind, err := group.RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	otherProof, err := rangeproof.Prove(4, otherBlind, RangeBits, DomainAmountRange)
	if err != nil {
		t.Fatal(err)
	}
	req.amountProof = otherProof.Bytes()

	err = e.doTransfer("alice", "bob", req)
	if !errors.Is(err, veiled.ErrRangeProofFailed) {
		t.Errorf("expected ErrRangeProofFailed, got %v", err)
	}

	// Neither balance changed, no custodian movement, no counters.
	if got := e.openBalance(t, a); got != 10 {
		t.Errorf("alice balance must be untouched, got %d", got)
	}
	if got := e.openBalance(t, b); got != 0 {
		t.Errorf("bob balance must be untouched, got %d", got)
	}
	if got := e.protocol.TotalCustodied(); got != 10<<16 {
		t.Errorf("vault must be untouched, got %d", got)
	}
	_, withdraws, err := e.protocol.EventCounters("alice")
	if err != nil {
		t.Fatal(err)
	}
	if withdraws != 0 {
		t.Errorf("alice withdraw counter must be untouched, got %d", withdraws)
	}
}

func TestTransferMalformedInputs(t *testing.T) {
	e := newTestEnv(t)
	a := e.register(t, "alice")
	b := e.register(t, "bob")

	e.custodian.Mint("alice", 10<<16)
	if err := e.protocol.VeilSelf("alice", 10); err != nil {
		t.Fatal(err)
	}
	a.balance = 10

	req := e.buildTransfer(t, a, b, 4)
	req.withdrawCT = []byte{0xde, 0xad}

	err := e.doTransfer("alice", "bob", req)
	if !errors.Is(err, veiled.ErrMalformedInput) {
		t.Errorf("expected ErrMalformedInput, got %v", err)
	}
	if got := e.openBalance(t, a); got != 10 {
		t.Errorf("alice balance must be untouched, got %d", got)
	}
}

func TestTransferUnregisteredParties(t *testing.T) {
	e := newTestEnv(t)
	a := e.register(t, "alice")

	e.custodian.Mint("alice", 10<<16)
	if err := e.protocol.VeilSelf("alice", 10); err != nil {
		t.Fatal(err)
	}
	a.balance = 10

	ghost := &testWallet{account: "ghost"}
	key, err := elgamal.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	ghost.key = key

	req := e.buildTransfer(t, a, ghost, 4)
	if err := e.doTransfer("alice", "ghost", req); !errors.Is(err, veiled.ErrNotRegistered) {
		t.Errorf("expected ErrNotRegistered, got %v", err)
	}
}

func TestSelfTransfer(t *testing.T) {
	e := newTestEnv(t)
	a := e.register(t, "alice")

	e.custodian.Mint("alice", 10<<16)
	if err := e.protocol.VeilSelf("alice", 10); err != nil {
		t.Fatal(err)
	}
	a.balance = 10

	req := e.buildTransfer(t, a, a, 4)
	if err := e.doTransfer("alice", "alice", req); err != nil {
		t.Fatalf("self transfer failed: %v", err)
	}
	// Value is conserved: -4 then +4.
	if got := e.openBalance(t, a); got != 10 {
		t.Errorf("self transfer must conserve balance, got %d", got)
	}
}

// faultyAddProvider fails every homomorphic add, modeling a backend fault
// inside the deposit step of a transition.
type faultyAddProvider struct {
	*provider.Provider
}

func (p *faultyAddProvider) CiphertextAdd(a, b veiled.Ciphertext) (veiled.Ciphertext, error) {
	return nil, errors.New("backend add fault")
}

func TestVeilNoCustodyOnDepositFailure(t *testing.T) {
	c := custodian.New()
	proto := New("vUSD", &faultyAddProvider{Provider: provider.New()}, c, veiled.DefaultAmountCodec())

	key, err := elgamal.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	if err := proto.Register("alice", key.PublicKey.Bytes()); err != nil {
		t.Fatal(err)
	}
	c.Mint("alice", 10<<16)

	if err := proto.VeilSelf("alice", 5); err == nil {
		t.Fatal("expected veil to fail when the deposit cannot be staged")
	}

	// The failed deposit must not have moved any public funds.
	if got := c.PublicBalance("alice"); got != 10<<16 {
		t.Errorf("public balance must be untouched, got %d", got)
	}
	if got := c.TotalCustodied(); got != 0 {
		t.Errorf("vault must be untouched, got %d", got)
	}
}

func TestVeiledCoinConsumeOnce(t *testing.T) {
	p := provider.New()
	coin := newVeiledCoin(p.EncryptNoRandomness(7))

	if _, err := coin.take(); err != nil {
		t.Fatalf("first take failed: %v", err)
	}
	if _, err := coin.take(); !errors.Is(err, veiled.ErrInvariantViolation) {
		t.Errorf("expected ErrInvariantViolation on second take, got %v", err)
	}
}
