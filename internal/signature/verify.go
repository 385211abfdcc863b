package signature

import (
	gocrypto "crypto"

	"github.com/remiblancher/qsig/internal/crypto"
)

// Verify checks sig over digest with key under alg. A nil return means the
// signature is valid and permitted by policy.
//
// Any cryptographic mismatch is reported as
// crypto.ErrSignatureVerificationFailed without further detail. A key from a
// CA-constrained certificate fails with crypto.ErrCASignRestricted unless
// VerifyDisableCASignCheck is set; the signature is checked regardless.
func Verify(key *crypto.PublicKey, alg crypto.AlgorithmID, flags VerifyFlags, digest, sig []byte) error {
	if key == nil {
		return crypto.NewSignatureError("verify", alg, crypto.ErrKeyDestroyed)
	}

	err := key.WithKey(func(pub gocrypto.PublicKey, origin crypto.KeyOrigin) error {
		if err := checkPair(alg, key.Family(), digest); err != nil {
			return err
		}
		if err := algorithmPolicyError(alg, flags); err != nil {
			return err
		}

		valid := crypto.VerifyDigest(pub, alg, digest, sig)
		policyErr := caPolicyError(origin, flags)

		if !valid {
			return crypto.ErrSignatureVerificationFailed
		}
		return policyErr
	})
	if err != nil {
		return crypto.NewSignatureError("verify", alg, err)
	}
	return nil
}

// VerifyData hashes data with alg's digest and verifies sig over the result.
// Pure schemes verify data unchanged.
func VerifyData(key *crypto.PublicKey, alg crypto.AlgorithmID, flags VerifyFlags, data, sig []byte) error {
	return Verify(key, alg, flags, Prehash(alg, data), sig)
}
