package crypto

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/ed448"
	"github.com/cloudflare/circl/sign/mldsa/mldsa44"
	"github.com/cloudflare/circl/sign/mldsa/mldsa65"
	"github.com/cloudflare/circl/sign/mldsa/mldsa87"
	"github.com/cloudflare/circl/sign/slhdsa"
)

// zeroReader yields zero bytes. It supplies the all-zero PSS salt for
// reproducible signatures.
type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

// SignDigest runs the raw signing primitive for alg. For hash-then-sign
// algorithms input is the precomputed digest; for pure schemes it is the
// message itself. Callers validate the algorithm/key pairing and input
// length beforehand.
//
// When reproducible is set, ECDSA uses RFC 6979 nonces and RSA-PSS uses an
// all-zero salt. PKCS#1 v1.5 and EdDSA are deterministic already; ML-DSA
// and SLH-DSA always sign randomized.
func SignDigest(priv crypto.PrivateKey, alg AlgorithmID, input []byte, reproducible bool) ([]byte, error) {
	info, ok := algorithms[alg]
	if !ok {
		return nil, fmt.Errorf("%w: unknown algorithm %q", ErrUnsupportedCombination, alg)
	}

	switch k := priv.(type) {
	case *rsa.PrivateKey:
		return signRSA(k, info, input, reproducible)
	case *RSAPSSPrivateKey:
		if info.Padding != PaddingPSS {
			return nil, fmt.Errorf("%w: %s with an RSA-PSS key", ErrAlgorithmKeyMismatch, info.Name)
		}
		return signRSA(k.PrivateKey, info, input, reproducible)

	case *ecdsa.PrivateKey:
		if reproducible {
			// A nil random source selects RFC 6979 deterministic nonces.
			return k.Sign(nil, input, info.Digest.Hash())
		}
		return ecdsa.SignASN1(rand.Reader, k, input)

	case ed25519.PrivateKey:
		return ed25519.Sign(k, input), nil

	case ed448.PrivateKey:
		return ed448.Sign(k, input, ""), nil

	case *mldsa44.PrivateKey:
		return k.Sign(rand.Reader, input, crypto.Hash(0))
	case *mldsa65.PrivateKey:
		return k.Sign(rand.Reader, input, crypto.Hash(0))
	case *mldsa87.PrivateKey:
		return k.Sign(rand.Reader, input, crypto.Hash(0))

	case *slhdsa.PrivateKey:
		return k.Sign(rand.Reader, input, nil)

	case crypto.Signer:
		// HSM-backed keys only cover the hash-then-sign algorithms.
		if info.Pure {
			return nil, fmt.Errorf("%w: %s keys held by %T", ErrUnsupportedCombination, info.Name, priv)
		}
		var opts crypto.SignerOpts = info.Digest.Hash()
		if info.Padding == PaddingPSS {
			opts = &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: info.Digest.Hash()}
		}
		return k.Sign(rand.Reader, input, opts)

	default:
		return nil, fmt.Errorf("unsupported private key type: %T", priv)
	}
}

func signRSA(k *rsa.PrivateKey, info algorithmInfo, input []byte, reproducible bool) ([]byte, error) {
	if info.Padding == PaddingPSS {
		random := io.Reader(rand.Reader)
		if reproducible {
			random = zeroReader{}
		}
		return rsa.SignPSS(random, k, info.Digest.Hash(), input, &rsa.PSSOptions{
			SaltLength: rsa.PSSSaltLengthEqualsHash,
		})
	}
	return rsa.SignPKCS1v15(nil, k, info.Digest.Hash(), input)
}

// VerifyDigest runs the raw verification primitive for alg. It returns
// false for any mismatch, including a key of the wrong type.
//
// ECDSA signs the digest bytes alone, so an ECDSA signature also verifies
// under any other ECDSA algorithm whose digest has the same length; the
// algorithm id does not bind the digest kind.
func VerifyDigest(pub crypto.PublicKey, alg AlgorithmID, input, signature []byte) bool {
	info, ok := algorithms[alg]
	if !ok {
		return false
	}

	switch k := pub.(type) {
	case *rsa.PublicKey:
		return verifyRSA(k, info, input, signature)
	case *RSAPSSPublicKey:
		return info.Padding == PaddingPSS && verifyRSA(k.PublicKey, info, input, signature)

	case *ecdsa.PublicKey:
		return ecdsa.VerifyASN1(k, input, signature)

	case ed25519.PublicKey:
		if len(k) != ed25519.PublicKeySize {
			return false
		}
		return ed25519.Verify(k, input, signature)

	case ed448.PublicKey:
		if len(k) != ed448.PublicKeySize {
			return false
		}
		return ed448.Verify(k, input, signature, "")

	case *mldsa44.PublicKey:
		return mldsa44.Verify(k, input, nil, signature)
	case *mldsa65.PublicKey:
		return mldsa65.Verify(k, input, nil, signature)
	case *mldsa87.PublicKey:
		return mldsa87.Verify(k, input, nil, signature)

	case *slhdsa.PublicKey:
		return slhdsa.Verify(k, slhdsa.NewMessage(input), signature, nil)
	case slhdsa.PublicKey:
		return slhdsa.Verify(&k, slhdsa.NewMessage(input), signature, nil)

	default:
		return false
	}
}

func verifyRSA(k *rsa.PublicKey, info algorithmInfo, input, signature []byte) bool {
	if info.Padding == PaddingPSS {
		return rsa.VerifyPSS(k, info.Digest.Hash(), input, signature, &rsa.PSSOptions{
			SaltLength: rsa.PSSSaltLengthAuto,
		}) == nil
	}
	return rsa.VerifyPKCS1v15(k, info.Digest.Hash(), input, signature) == nil
}
