package crypto

import (
	"errors"
	"fmt"
)

// SignatureError represents a sign/verify operation error with structured context.
// It supports errors.Is() and errors.As() for improved error handling.
type SignatureError struct {
	Op  string      // Operation: "resolve", "sign", "verify", "import"
	Alg AlgorithmID // Algorithm (if applicable)
	Err error       // Underlying error
}

// Error implements the error interface.
func (e *SignatureError) Error() string {
	if e.Alg != "" {
		return fmt.Sprintf("%s [%s]: %v", e.Op, Name(e.Alg), e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *SignatureError) Unwrap() error { return e.Err }

// NewSignatureError creates a new SignatureError.
func NewSignatureError(op string, alg AlgorithmID, err error) *SignatureError {
	return &SignatureError{Op: op, Alg: alg, Err: err}
}

// Sentinel errors for signature operations.
// Use errors.Is() to check for these errors through the error chain.
var (
	// ErrUnsupportedCombination indicates no algorithm exists for a key family
	// and digest, or the algorithm is unknown.
	ErrUnsupportedCombination = errors.New("unsupported algorithm combination")

	// ErrInvalidInputLength indicates the digest length does not match the
	// algorithm's digest size.
	ErrInvalidInputLength = errors.New("invalid input length")

	// ErrAlgorithmKeyMismatch indicates the key family differs from the
	// algorithm's key family.
	ErrAlgorithmKeyMismatch = errors.New("algorithm does not match key")

	// ErrSigningFailed indicates the underlying primitive failed to sign.
	ErrSigningFailed = errors.New("signing failed")

	// ErrSignatureVerificationFailed is the single outcome for a signature
	// that does not match the data under the key and algorithm.
	ErrSignatureVerificationFailed = errors.New("signature verification failed")

	// ErrKeyImportFailed indicates malformed key material.
	ErrKeyImportFailed = errors.New("key import failed")

	// ErrPassphrase indicates an encrypted key with a missing or wrong
	// passphrase. It is always wrapped together with ErrKeyImportFailed.
	ErrPassphrase = errors.New("incorrect or missing passphrase")

	// ErrCertificateImportFailed indicates a malformed certificate.
	ErrCertificateImportFailed = errors.New("certificate import failed")

	// ErrNoPublicKey indicates a certificate carries no usable public key.
	ErrNoPublicKey = errors.New("no public key")

	// ErrKeyDestroyed indicates a handle was used after Close.
	ErrKeyDestroyed = errors.New("key handle destroyed")

	// ErrCASignRestricted indicates a CA-constrained certificate key was used
	// to verify application data.
	ErrCASignRestricted = errors.New("CA key not permitted to verify data signatures")

	// ErrInsecureAlgorithm indicates the algorithm was rejected by policy.
	ErrInsecureAlgorithm = errors.New("insecure algorithm rejected")
)
