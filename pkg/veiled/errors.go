package veiled

import "errors"

// Error taxonomy of the confidential balance protocol.
// Verification failures are definitional, not transient: callers must not retry.
var (
	// ErrAlreadyRegistered is returned when registering an account that
	// already has a veiled balance store for the asset.
	ErrAlreadyRegistered = errors.New("veiled: account already registered")

	// ErrNotRegistered is returned when an operation references an account
	// without a veiled balance store.
	ErrNotRegistered = errors.New("veiled: account not registered")

	// ErrMalformedInput is returned when an opaque byte string (ciphertext,
	// commitment, public key or proof) fails to deserialize. It is raised
	// before any state is read or written.
	ErrMalformedInput = errors.New("veiled: malformed input")

	// ErrRangeProofFailed is returned when a range proof does not verify
	// against its commitment.
	ErrRangeProofFailed = errors.New("veiled: range proof verification failed")

	// ErrProofVerificationFailed is returned when a sigma or link proof does
	// not verify.
	ErrProofVerificationFailed = errors.New("veiled: proof verification failed")

	// ErrInsufficientPublicBalance is returned by the custodian when the
	// caller's public funds do not cover a withdrawal.
	ErrInsufficientPublicBalance = errors.New("veiled: insufficient public balance")

	// ErrInvariantViolation signals an internal consistency failure
	// (e.g. a consumed coin deposited twice). Not user-recoverable.
	ErrInvariantViolation = errors.New("veiled: invariant violation")
)
