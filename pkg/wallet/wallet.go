// Package wallet implements the off-chain prover side of the confidential
// balance protocol: it holds an account's decryption key, tracks the
// plaintext balance, and builds the ciphertexts, commitments and proofs a
// transfer or unveil call requires. Everything it produces crosses the
// protocol boundary as opaque bytes.
package wallet

import (
	"crypto/rand"
	"fmt"

	"github.com/veilchain/go-veiled/internal/crypto/elgamal"
	"github.com/veilchain/go-veiled/internal/crypto/group"
	"github.com/veilchain/go-veiled/internal/crypto/pedersen"
	"github.com/veilchain/go-veiled/internal/crypto/zk/rangeproof"
	"github.com/veilchain/go-veiled/internal/crypto/zk/sigma"
	"github.com/veilchain/go-veiled/internal/protocol/confidential"
	"github.com/veilchain/go-veiled/pkg/veiled"
)

// Wallet is the local secret state of one veiled account.
type Wallet struct {
	Account veiled.Account
	key     *elgamal.PrivateKey
}

// New generates a wallet with a fresh encryption key pair.
func New(account veiled.Account) (*Wallet, error) {
	key, err := elgamal.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Wallet{Account: account, key: key}, nil
}

// PublicKeyBytes returns the encryption public key for registration.
func (w *Wallet) PublicKeyBytes() []byte {
	return w.key.PublicKey.Bytes()
}

// OpenBalance decrypts an on-ledger balance ciphertext with the wallet key.
func (w *Wallet) OpenBalance(ctBytes []byte) (uint32, error) {
	ct, err := elgamal.ParseCiphertext(ctBytes)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", veiled.ErrMalformedInput, err)
	}
	return w.key.Decrypt(ct)
}

// TransferRequest is the byte-level argument bundle of a veiled transfer.
type TransferRequest struct {
	WithdrawCT      []byte
	DepositCT       []byte
	BalanceComm     []byte
	AmountComm      []byte
	NewBalanceProof []byte
	AmountProof     []byte
	TransferProof   []byte
}

// BuildTransfer builds a transfer request against the sender's current
// balance ciphertext. balance is the wallet's known plaintext balance;
// the request is refused up front if amount exceeds it, since no valid
// proof could be produced anyway.
func (w *Wallet) BuildTransfer(balanceCTBytes []byte, balance uint32,
	recipientPKBytes []byte, amount uint32) (*TransferRequest, error) {

	if amount > balance {
		return nil, fmt.Errorf("wallet: amount %d exceeds balance %d", amount, balance)
	}
	balanceCT, err := elgamal.ParseCiphertext(balanceCTBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", veiled.ErrMalformedInput, err)
	}
	recipientPK, err := elgamal.ParsePublicKey(recipientPKBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", veiled.ErrMalformedInput, err)
	}

	r, err := group.RandomScalar()
	if err != nil {
		return nil, err
	}
	withdraw := w.key.PublicKey.EncryptWithR(amount, r)
	deposit := recipientPK.EncryptWithR(amount, r)

	newBalance := balance - amount
	newBalanceCT := balanceCT.Sub(withdraw)

	balanceComm, balanceBlind, err := pedersen.CommitRandom(newBalance)
	if err != nil {
		return nil, err
	}
	amountComm, amountBlind, err := pedersen.CommitRandom(amount)
	if err != nil {
		return nil, err
	}

	proof, err := sigma.ProveTransfer(&sigma.TransferStatement{
		SenderPK:    &w.key.PublicKey,
		RecipientPK: recipientPK,
		Withdraw:    withdraw,
		Deposit:     deposit,
		NewBalance:  newBalanceCT,
		BalanceComm: balanceComm,
		AmountComm:  amountComm,
	}, &sigma.TransferWitness{
		Amount:       amount,
		Rand:         r,
		AmountBlind:  amountBlind,
		SenderSK:     w.key.S,
		NewBalance:   newBalance,
		BalanceBlind: balanceBlind,
	})
	if err != nil {
		return nil, err
	}

	newBalanceProof, err := rangeproof.Prove(newBalance, balanceBlind,
		confidential.RangeBits, confidential.DomainNewBalanceRange)
	if err != nil {
		return nil, err
	}
	amountProof, err := rangeproof.Prove(amount, amountBlind,
		confidential.RangeBits, confidential.DomainAmountRange)
	if err != nil {
		return nil, err
	}

	return &TransferRequest{
		WithdrawCT:      withdraw.Bytes(),
		DepositCT:       deposit.Bytes(),
		BalanceComm:     balanceComm.Bytes(),
		AmountComm:      amountComm.Bytes(),
		NewBalanceProof: newBalanceProof.Bytes(),
		AmountProof:     amountProof.Bytes(),
		TransferProof:   proof.Bytes(),
	}, nil
}

// UnveilRequest is the byte-level argument bundle of an unveil call.
type UnveilRequest struct {
	BalanceComm     []byte
	NewBalanceProof []byte
	LinkProof       []byte
}

// BuildUnveil builds an unveil request against the wallet's current
// balance ciphertext and known plaintext balance.
func (w *Wallet) BuildUnveil(balanceCTBytes []byte, balance, amount uint32) (*UnveilRequest, error) {
	if amount > balance {
		return nil, fmt.Errorf("wallet: amount %d exceeds balance %d", amount, balance)
	}
	balanceCT, err := elgamal.ParseCiphertext(balanceCTBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", veiled.ErrMalformedInput, err)
	}

	newBalance := balance - amount
	newBalanceCT := balanceCT.Sub(elgamal.EncryptNoRandomness(amount))

	balanceComm, blind, err := pedersen.CommitRandom(newBalance)
	if err != nil {
		return nil, err
	}
	rp, err := rangeproof.Prove(newBalance, blind,
		confidential.RangeBits, confidential.DomainNewBalanceRange)
	if err != nil {
		return nil, err
	}
	lp, err := sigma.ProveWithdrawal(&sigma.WithdrawalStatement{
		PK:          &w.key.PublicKey,
		NewBalance:  newBalanceCT,
		BalanceComm: balanceComm,
	}, &sigma.WithdrawalWitness{
		SK:           w.key.S,
		NewBalance:   newBalance,
		BalanceBlind: blind,
	})
	if err != nil {
		return nil, err
	}

	return &UnveilRequest{
		BalanceComm:     balanceComm.Bytes(),
		NewBalanceProof: rp.Bytes(),
		LinkProof:       lp.Bytes(),
	}, nil
}
