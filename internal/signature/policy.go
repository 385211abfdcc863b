package signature

import (
	"github.com/remiblancher/qsig/internal/crypto"
)

// caPolicyError returns the CA restriction for a certificate key, or nil.
// Verify evaluates it alongside the cryptographic check and reports the
// cryptographic failure first.
func caPolicyError(origin crypto.KeyOrigin, flags VerifyFlags) error {
	if origin.CAConstrained && !flags.Has(VerifyDisableCASignCheck) {
		return crypto.ErrCASignRestricted
	}
	return nil
}

// algorithmPolicyError rejects algorithms excluded by flags before any
// cryptographic work is done.
func algorithmPolicyError(alg crypto.AlgorithmID, flags VerifyFlags) error {
	if flags.Has(VerifyRejectSHA1) && alg.Digest() == crypto.DigestSHA1 {
		return crypto.ErrInsecureAlgorithm
	}
	return nil
}
