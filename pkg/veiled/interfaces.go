package veiled

// Account identifies an account on the host ledger. Account identity and
// authentication are host concerns; the protocol only keys state by it.
type Account string

// Ciphertext is an opaque encrypted amount or balance. The protocol layer
// never inspects its contents; all algebra goes through PrimitiveProvider.
type Ciphertext interface {
	// Bytes returns the canonical serialization of the ciphertext.
	Bytes() []byte
}

// Commitment is an opaque binding commitment to an amount.
type Commitment interface {
	Bytes() []byte
}

// PublicKey is an opaque encryption public key.
type PublicKey interface {
	Bytes() []byte
}

// RangeProof is an opaque zero-knowledge proof that a committed value lies
// in a bounded interval.
type RangeProof interface {
	Bytes() []byte
}

// TransferProof is an opaque sigma-protocol proof tying together the
// withdrawal and deposit ciphertexts, the amount commitment and the sender's
// candidate new balance of a veiled transfer.
type TransferProof interface {
	Bytes() []byte
}

// WithdrawalProof is an opaque sigma-protocol proof linking an encrypted
// balance to a public commitment of the same value.
type WithdrawalProof interface {
	Bytes() []byte
}

// PrimitiveProvider is the cryptographic backend consumed by the protocol.
// It supplies the encryption scheme, its additive homomorphism, proof
// verification and (de)serialization. Implementations must be deterministic
// in verification: a proof either verifies or it does not.
type PrimitiveProvider interface {
	// Encrypt encrypts a 32-bit amount under pk with fresh randomness.
	Encrypt(amount uint32, pk PublicKey) (Ciphertext, error)

	// EncryptNoRandomness encrypts a 32-bit amount with zero randomness.
	// The result is derivable by anyone without a key; it is used where the
	// amount is public (veil-in, unveil).
	EncryptNoRandomness(amount uint32) Ciphertext

	// CiphertextAdd returns a ciphertext of the sum of the two plaintexts.
	CiphertextAdd(a, b Ciphertext) (Ciphertext, error)

	// CiphertextSub returns a ciphertext of the difference of the two
	// plaintexts. Arithmetic is modular; range proofs are what keep the
	// plaintexts inside [0, 2^32) as integers.
	CiphertextSub(a, b Ciphertext) (Ciphertext, error)

	// VerifyRangeProof checks that the value committed in c lies in
	// [0, 2^maxBits). domainTag separates proof contexts.
	VerifyRangeProof(c Commitment, proof RangeProof, maxBits int, domainTag []byte) bool

	// VerifyTransferProof checks that withdrawCT and depositCT encrypt the
	// same plaintext under the same randomness for senderPK and recipientPK
	// respectively, that this plaintext is the value committed in
	// amountComm, and that newBalanceCT opens under the sender's key to the
	// value committed in balanceComm.
	VerifyTransferProof(senderPK, recipientPK PublicKey,
		withdrawCT, depositCT, newBalanceCT Ciphertext,
		balanceComm, amountComm Commitment, proof TransferProof) bool

	// VerifyWithdrawalLinkProof checks that newBalanceCT opens under pk to
	// the value committed in balanceComm.
	VerifyWithdrawalLinkProof(pk PublicKey, newBalanceCT Ciphertext,
		balanceComm Commitment, proof WithdrawalProof) bool

	// Deserialization. Each returns ErrMalformedInput on wrong length or
	// invalid encoding.
	ParseCiphertext(b []byte) (Ciphertext, error)
	ParseCommitment(b []byte) (Commitment, error)
	ParsePublicKey(b []byte) (PublicKey, error)
	ParseRangeProof(b []byte) (RangeProof, error)
	ParseTransferProof(b []byte) (TransferProof, error)
	ParseWithdrawalProof(b []byte) (WithdrawalProof, error)
}

// AssetHandle is a consume-once claim on custodied public funds. A handle is
// produced by exactly one custodian operation and must be consumed by exactly
// one other; reuse is an invariant violation.
type AssetHandle interface {
	// Amount returns the public amount the handle stands for.
	Amount() uint64
}

// Custodian holds the real public asset backing veiled balances. It is the
// vault/escrow collaborator of the protocol; the protocol never creates or
// destroys public value, it only moves it through the custodian.
type Custodian interface {
	// WithdrawPublic takes amount public units from the account's funds and
	// returns a handle for them. Fails with ErrInsufficientPublicBalance.
	WithdrawPublic(account Account, amount uint64) (AssetHandle, error)

	// DepositPublic credits the handle's funds to the account, consuming
	// the handle.
	DepositPublic(account Account, h AssetHandle) error

	// Custody places the handle's funds into the vault, consuming the
	// handle. Used on veil-in.
	Custody(h AssetHandle) error

	// Uncustody takes funds out of the vault. Used on unveil. The protocol
	// guarantees the vault covers every verified unveil, so a shortfall
	// here is an invariant violation, not a user error.
	Uncustody(amount uint64) (AssetHandle, error)

	// TotalCustodied returns the public amount currently held in the vault.
	TotalCustodied() uint64
}
