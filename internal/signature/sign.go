package signature

import (
	gocrypto "crypto"
	"fmt"

	"github.com/remiblancher/qsig/internal/crypto"
)

// Sign signs a precomputed digest with key under alg. For pure schemes
// (EdDSA, ML-DSA, SLH-DSA) digest is the message itself.
//
// The key handle is not modified. Errors are *crypto.SignatureError values
// wrapping one of the crypto sentinel errors.
func Sign(key *crypto.PrivateKey, alg crypto.AlgorithmID, flags SignFlags, digest []byte) ([]byte, error) {
	if key == nil {
		return nil, crypto.NewSignatureError("sign", alg, crypto.ErrKeyDestroyed)
	}

	var sig []byte
	err := key.WithKey(func(priv gocrypto.PrivateKey) error {
		if err := checkPair(alg, key.Family(), digest); err != nil {
			return err
		}

		var err error
		sig, err = crypto.SignDigest(priv, alg, digest, flags.Has(SignReproducible))
		if err != nil {
			return fmt.Errorf("%w: %w", crypto.ErrSigningFailed, err)
		}
		return nil
	})
	if err != nil {
		return nil, crypto.NewSignatureError("sign", alg, err)
	}
	return sig, nil
}

// SignData hashes data with alg's digest and signs the result. Pure schemes
// sign data unchanged.
func SignData(key *crypto.PrivateKey, alg crypto.AlgorithmID, flags SignFlags, data []byte) ([]byte, error) {
	return Sign(key, alg, flags, Prehash(alg, data))
}

// Prehash returns the input Sign and Verify expect for data under alg: the
// digest for pre-hash schemes and data itself for pure schemes. Unknown
// algorithms pass data through so Sign and Verify report them.
func Prehash(alg crypto.AlgorithmID, data []byte) []byte {
	if !alg.IsValid() || alg.IsPure() {
		return data
	}
	return alg.Digest().Sum(data)
}
