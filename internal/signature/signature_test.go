package signature_test

import (
	"bytes"
	gocrypto "crypto"
	"crypto/dsa" //nolint:staticcheck
	"crypto/rand"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"

	"github.com/remiblancher/qsig/internal/crypto"
	"github.com/remiblancher/qsig/internal/signature"
	"github.com/remiblancher/qsig/internal/x509util"
)

// =============================================================================
// Test Helpers
// =============================================================================

var testPairs = []struct {
	alg  crypto.AlgorithmID
	spec crypto.KeySpec
}{
	{crypto.AlgRSASHA1, crypto.KeyRSA2048},
	{crypto.AlgRSASHA224, crypto.KeyRSA2048},
	{crypto.AlgRSASHA256, crypto.KeyRSA2048},
	{crypto.AlgRSASHA384, crypto.KeyRSA2048},
	{crypto.AlgRSASHA512, crypto.KeyRSA2048},
	{crypto.AlgRSAPSSSHA256, crypto.KeyRSAPSS2048},
	{crypto.AlgRSAPSSSHA384, crypto.KeyRSAPSS2048},
	{crypto.AlgRSAPSSSHA512, crypto.KeyRSAPSS2048},
	{crypto.AlgECDSASHA1, crypto.KeyECDSAP256},
	{crypto.AlgECDSASHA224, crypto.KeyECDSAP256},
	{crypto.AlgECDSASHA256, crypto.KeyECDSAP256},
	{crypto.AlgECDSASHA384, crypto.KeyECDSAP384},
	{crypto.AlgECDSASHA512, crypto.KeyECDSAP521},
	{crypto.AlgECDSASHA3_256, crypto.KeyECDSAP256},
	{crypto.AlgECDSASHA3_384, crypto.KeyECDSAP384},
	{crypto.AlgECDSASHA3_512, crypto.KeyECDSAP521},
	{crypto.AlgEd25519, crypto.KeyEd25519},
	{crypto.AlgEd448, crypto.KeyEd448},
	{crypto.AlgMLDSA44, crypto.KeyMLDSA44},
	{crypto.AlgMLDSA65, crypto.KeyMLDSA65},
	{crypto.AlgMLDSA87, crypto.KeyMLDSA87},
	{crypto.AlgSLHDSA128f, crypto.KeySLHDSA128f},
}

// keyCache shares generated keys between subtests; RSA and SLH-DSA key
// generation dominates the run time otherwise. Keys live until the test
// that created the cache ends.
type keyCache struct {
	owner *testing.T
	keys  map[crypto.KeySpec]*crypto.PrivateKey
}

func newKeyCache(t *testing.T) *keyCache {
	return &keyCache{owner: t, keys: make(map[crypto.KeySpec]*crypto.PrivateKey)}
}

func (c *keyCache) get(t *testing.T, spec crypto.KeySpec) *crypto.PrivateKey {
	t.Helper()
	if key, ok := c.keys[spec]; ok {
		return key
	}
	key, err := crypto.GenerateKey(spec)
	if err != nil {
		t.Fatalf("GenerateKey(%s) error = %v", spec, err)
	}
	c.owner.Cleanup(func() { _ = key.Close() })
	c.keys[spec] = key
	return key
}

func genKey(t *testing.T, spec crypto.KeySpec) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey(spec)
	if err != nil {
		t.Fatalf("GenerateKey(%s) error = %v", spec, err)
	}
	t.Cleanup(func() { _ = key.Close() })
	return key
}

func pubOf(t *testing.T, key *crypto.PrivateKey) *crypto.PublicKey {
	t.Helper()
	pub, err := key.Public()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = pub.Close() })
	return pub
}

// inputFor returns a valid Sign input for alg derived from msg.
func inputFor(alg crypto.AlgorithmID, msg []byte) []byte {
	if alg.IsPure() {
		return msg
	}
	return alg.Digest().Sum(msg)
}

// certKey issues a self-signed certificate for key from b and returns the
// certificate's public key handle.
func certKey(t *testing.T, b *x509util.CertificateBuilder, key *crypto.PrivateKey) *crypto.PublicKey {
	t.Helper()
	cert, err := b.SelfSign(key)
	if err != nil {
		t.Fatalf("SelfSign() error = %v", err)
	}
	defer func() { _ = cert.Close() }()

	pub, err := x509util.PublicKeyFromCertificate(cert, 0)
	if err != nil {
		t.Fatalf("PublicKeyFromCertificate() error = %v", err)
	}
	t.Cleanup(func() { _ = pub.Close() })
	return pub
}

// signingCAKey issues a self-signed CA certificate whose key usage also
// allows digitalSignature, and returns its public key handle.
func signingCAKey(t *testing.T, key *crypto.PrivateKey) *crypto.PublicKey {
	t.Helper()
	tmpl, err := x509util.NewCertificateBuilder().CommonName("root-ds").CA(0).Build()
	if err != nil {
		t.Fatal(err)
	}
	tmpl.KeyUsage |= x509.KeyUsageDigitalSignature

	var der []byte
	err = key.WithKey(func(priv gocrypto.PrivateKey) error {
		signer := priv.(gocrypto.Signer)
		var cerr error
		der, cerr = x509.CreateCertificate(rand.Reader, tmpl, tmpl, signer.Public(), signer)
		return cerr
	})
	if err != nil {
		t.Fatalf("CreateCertificate() error = %v", err)
	}

	cert, err := x509util.ParseCertificateDER(der)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = cert.Close() }()
	if x, _ := cert.X509(); x509util.IsCAConstrained(x) {
		t.Fatal("CA with digitalSignature reported as constrained")
	}

	pub, err := x509util.PublicKeyFromCertificate(cert, 0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = pub.Close() })
	return pub
}

func flip(b []byte, i int) []byte {
	out := append([]byte(nil), b...)
	out[i] ^= 0x01
	return out
}

// =============================================================================
// [Unit] Round Trip and Tamper Tests
// =============================================================================

func TestU_SignVerify_RoundTrip(t *testing.T) {
	keys := newKeyCache(t)

	for _, tp := range testPairs {
		t.Run("[Unit] RoundTrip: "+crypto.Name(tp.alg), func(t *testing.T) {
			key := keys.get(t, tp.spec)
			pub := pubOf(t, key)
			input := inputFor(tp.alg, []byte("hello"))

			sig, err := signature.Sign(key, tp.alg, 0, input)
			if err != nil {
				t.Fatalf("Sign() error = %v", err)
			}
			if err := signature.Verify(pub, tp.alg, 0, input, sig); err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
		})
	}
}

func TestU_Verify_TamperSensitivity(t *testing.T) {
	keys := newKeyCache(t)

	for _, tp := range testPairs {
		t.Run("[Unit] Tamper: "+crypto.Name(tp.alg), func(t *testing.T) {
			key := keys.get(t, tp.spec)
			pub := pubOf(t, key)
			input := inputFor(tp.alg, []byte("hello"))

			sig, err := signature.Sign(key, tp.alg, 0, input)
			if err != nil {
				t.Fatal(err)
			}

			for _, i := range []int{0, len(input) / 2, len(input) - 1} {
				err := signature.Verify(pub, tp.alg, 0, flip(input, i), sig)
				if !errors.Is(err, crypto.ErrSignatureVerificationFailed) {
					t.Errorf("digest bit flip at %d: error = %v", i, err)
				}
			}
			for _, i := range []int{0, len(sig) / 2, len(sig) - 1} {
				err := signature.Verify(pub, tp.alg, 0, input, flip(sig, i))
				if !errors.Is(err, crypto.ErrSignatureVerificationFailed) {
					t.Errorf("signature bit flip at %d: error = %v", i, err)
				}
			}

			if err := signature.Verify(pub, tp.alg, 0, input, sig[:len(sig)-1]); !errors.Is(err, crypto.ErrSignatureVerificationFailed) {
				t.Errorf("truncated signature: error = %v", err)
			}
			if err := signature.Verify(pub, tp.alg, 0, input, nil); !errors.Is(err, crypto.ErrSignatureVerificationFailed) {
				t.Errorf("empty signature: error = %v", err)
			}
		})
	}
}

func TestU_Verify_WrongKey(t *testing.T) {
	key := genKey(t, crypto.KeyECDSAP256)
	other := genKey(t, crypto.KeyECDSAP256)
	digest := crypto.DigestSHA256.Sum([]byte("hello"))

	sig, err := signature.Sign(key, crypto.AlgECDSASHA256, 0, digest)
	if err != nil {
		t.Fatal(err)
	}
	err = signature.Verify(pubOf(t, other), crypto.AlgECDSASHA256, 0, digest, sig)
	if !errors.Is(err, crypto.ErrSignatureVerificationFailed) {
		t.Errorf("error = %v, want ErrSignatureVerificationFailed", err)
	}
}

// =============================================================================
// [Unit] Precondition Tests
// =============================================================================

func TestU_Sign_InvalidInputLength(t *testing.T) {
	key := genKey(t, crypto.KeyECDSAP256)
	pub := pubOf(t, key)

	for _, n := range []int{0, 20, 31, 33, 64} {
		input := make([]byte, n)
		if _, err := signature.Sign(key, crypto.AlgECDSASHA256, 0, input); !errors.Is(err, crypto.ErrInvalidInputLength) {
			t.Errorf("Sign(len=%d) error = %v", n, err)
		}
		if err := signature.Verify(pub, crypto.AlgECDSASHA256, 0, input, []byte{0x30}); !errors.Is(err, crypto.ErrInvalidInputLength) {
			t.Errorf("Verify(len=%d) error = %v", n, err)
		}
	}
}

func TestU_Sign_PureRejectsEmpty(t *testing.T) {
	key := genKey(t, crypto.KeyEd25519)

	if _, err := signature.Sign(key, crypto.AlgEd25519, 0, nil); !errors.Is(err, crypto.ErrInvalidInputLength) {
		t.Errorf("Sign(empty) error = %v", err)
	}
	if _, err := signature.Sign(key, crypto.AlgEd25519, 0, make([]byte, 1000)); err != nil {
		t.Errorf("Sign(1000 bytes) error = %v", err)
	}
}

func TestU_Sign_AlgorithmKeyMismatch(t *testing.T) {
	rsaKey := genKey(t, crypto.KeyRSA2048)
	pssKey := genKey(t, crypto.KeyRSAPSS2048)
	ecKey := genKey(t, crypto.KeyECDSAP256)
	digest := crypto.DigestSHA256.Sum([]byte("hello"))

	tests := []struct {
		name string
		key  *crypto.PrivateKey
		alg  crypto.AlgorithmID
	}{
		{"[Unit] Mismatch: RSA key ECDSA alg", rsaKey, crypto.AlgECDSASHA256},
		{"[Unit] Mismatch: ECDSA key RSA alg", ecKey, crypto.AlgRSASHA256},
		{"[Unit] Mismatch: ECDSA key Ed25519 alg", ecKey, crypto.AlgEd25519},
		{"[Unit] Mismatch: RSA key ML-DSA alg", rsaKey, crypto.AlgMLDSA65},
		{"[Unit] Mismatch: RSA-PSS key PKCS#1 v1.5 alg", pssKey, crypto.AlgRSASHA256},
		{"[Unit] Mismatch: RSA-PSS key ECDSA alg", pssKey, crypto.AlgECDSASHA256},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := signature.Sign(tt.key, tt.alg, 0, digest)
			if !errors.Is(err, crypto.ErrAlgorithmKeyMismatch) {
				t.Errorf("Sign() error = %v, want ErrAlgorithmKeyMismatch", err)
			}
			pub := pubOf(t, tt.key)
			err = signature.Verify(pub, tt.alg, 0, digest, []byte{1})
			if !errors.Is(err, crypto.ErrAlgorithmKeyMismatch) {
				t.Errorf("Verify() error = %v, want ErrAlgorithmKeyMismatch", err)
			}
		})
	}
}

func TestU_Sign_RSAKeyWithExplicitPSS(t *testing.T) {
	key := genKey(t, crypto.KeyRSA2048)
	pub := pubOf(t, key)
	digest := crypto.DigestSHA256.Sum([]byte("hello"))

	sig, err := signature.Sign(key, crypto.AlgRSAPSSSHA256, 0, digest)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if err := signature.Verify(pub, crypto.AlgRSAPSSSHA256, 0, digest, sig); err != nil {
		t.Errorf("Verify() error = %v", err)
	}

	// A plain RSA key infers PKCS#1 v1.5, which rejects the PSS signature.
	inferred, err := crypto.Resolve(pub.Family(), crypto.DigestSHA256)
	if err != nil || inferred != crypto.AlgRSASHA256 {
		t.Fatalf("Resolve(RSA, SHA256) = (%v, %v)", inferred, err)
	}
	if err := signature.Verify(pub, inferred, 0, digest, sig); !errors.Is(err, crypto.ErrSignatureVerificationFailed) {
		t.Errorf("Verify(inferred) error = %v", err)
	}
}

func TestU_Sign_UnknownAlgorithm(t *testing.T) {
	key := genKey(t, crypto.KeyEd25519)

	_, err := signature.Sign(key, "rsa-md5", 0, []byte("x"))
	if !errors.Is(err, crypto.ErrUnsupportedCombination) {
		t.Errorf("Sign() error = %v", err)
	}
	var sigErr *crypto.SignatureError
	if !errors.As(err, &sigErr) || sigErr.Op != "sign" {
		t.Errorf("expected *SignatureError with op sign, got %#v", err)
	}
	if !errors.Is(signature.Verify(pubOf(t, key), "", 0, []byte("x"), []byte{1}), crypto.ErrUnsupportedCombination) {
		t.Error("Verify() with empty algorithm should be unsupported")
	}
}

func TestU_DSA_Unsupported(t *testing.T) {
	params := dsa.Parameters{P: big.NewInt(23), Q: big.NewInt(11), G: big.NewInt(4)}
	priv := &dsa.PrivateKey{PublicKey: dsa.PublicKey{Parameters: params, Y: big.NewInt(8)}, X: big.NewInt(3)}

	key, err := crypto.NewPrivateKey(priv)
	if err != nil {
		t.Fatalf("NewPrivateKey(DSA) error = %v", err)
	}
	defer func() { _ = key.Close() }()

	pub, err := crypto.NewPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = pub.Close() }()

	digest := crypto.DigestSHA1.Sum([]byte("hello"))
	for _, alg := range crypto.AllAlgorithms() {
		if _, err := signature.Sign(key, alg, 0, digest); !errors.Is(err, crypto.ErrUnsupportedCombination) {
			t.Errorf("Sign(DSA, %s) error = %v", alg, err)
		}
		if err := signature.Verify(pub, alg, 0, digest, []byte{1}); !errors.Is(err, crypto.ErrUnsupportedCombination) {
			t.Errorf("Verify(DSA, %s) error = %v", alg, err)
		}
	}
}

func TestU_UseAfterClose(t *testing.T) {
	key := genKey(t, crypto.KeyECDSAP256)
	pub, err := key.Public()
	if err != nil {
		t.Fatal(err)
	}
	digest := crypto.DigestSHA256.Sum([]byte("hello"))
	sig, err := signature.Sign(key, crypto.AlgECDSASHA256, 0, digest)
	if err != nil {
		t.Fatal(err)
	}

	_ = key.Close()
	_ = pub.Close()

	if _, err := signature.Sign(key, crypto.AlgECDSASHA256, 0, digest); !errors.Is(err, crypto.ErrKeyDestroyed) {
		t.Errorf("Sign() after Close error = %v", err)
	}
	if err := signature.Verify(pub, crypto.AlgECDSASHA256, 0, digest, sig); !errors.Is(err, crypto.ErrKeyDestroyed) {
		t.Errorf("Verify() after Close error = %v", err)
	}
	if err := signature.Verify(nil, crypto.AlgECDSASHA256, 0, digest, sig); !errors.Is(err, crypto.ErrKeyDestroyed) {
		t.Errorf("Verify(nil) error = %v", err)
	}
	if _, err := signature.Sign(nil, crypto.AlgECDSASHA256, 0, digest); !errors.Is(err, crypto.ErrKeyDestroyed) {
		t.Errorf("Sign(nil) error = %v", err)
	}
}

func TestU_Verify_DoesNotMutateInputs(t *testing.T) {
	key := genKey(t, crypto.KeyRSA2048)
	digest := crypto.DigestSHA256.Sum([]byte("hello"))
	sig, err := signature.Sign(key, crypto.AlgRSASHA256, 0, digest)
	if err != nil {
		t.Fatal(err)
	}
	digestCopy := append([]byte(nil), digest...)
	sigCopy := append([]byte(nil), sig...)

	_ = signature.Verify(pubOf(t, key), crypto.AlgRSASHA256, 0, digest, sig)

	if !bytes.Equal(digest, digestCopy) || !bytes.Equal(sig, sigCopy) {
		t.Error("Verify() modified its inputs")
	}
}

// =============================================================================
// [Unit] Policy Tests
// =============================================================================

func TestU_Verify_SHA1HelloScenario(t *testing.T) {
	key := genKey(t, crypto.KeyRSA2048)
	pub := certKey(t, x509util.NewCertificateBuilder().CommonName("rsa-signer").DataSigning(), key)

	d1 := crypto.DigestSHA1.Sum([]byte("hello"))
	if hex.EncodeToString(d1) != "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d" {
		t.Fatalf("SHA1(hello) = %x", d1)
	}
	d2 := append([]byte(nil), d1...)
	d2[14] = 0x9e

	sig, err := signature.Sign(key, crypto.AlgRSASHA1, 0, d1)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	for _, flags := range []signature.VerifyFlags{0, signature.VerifyDisableCASignCheck} {
		if err := signature.Verify(pub, crypto.AlgRSASHA1, flags, d1, sig); err != nil {
			t.Errorf("Verify(D1, %v) error = %v", flags, err)
		}
		if err := signature.Verify(pub, crypto.AlgRSASHA1, flags, d2, sig); !errors.Is(err, crypto.ErrSignatureVerificationFailed) {
			t.Errorf("Verify(D2, %v) error = %v", flags, err)
		}
	}
}

func TestU_Verify_FlagOrthogonality(t *testing.T) {
	key := genKey(t, crypto.KeyECDSAP256)
	digest := crypto.DigestSHA256.Sum([]byte("hello"))
	sig, err := signature.Sign(key, crypto.AlgECDSASHA256, 0, digest)
	if err != nil {
		t.Fatal(err)
	}
	bad := flip(sig, len(sig)-1)

	leaf := certKey(t, x509util.NewCertificateBuilder().CommonName("leaf").DataSigning(), key)
	ca := certKey(t, x509util.NewCertificateBuilder().CommonName("root").CA(0), key)
	caSigning := signingCAKey(t, key)
	bare := pubOf(t, key)

	allFlags := []signature.VerifyFlags{
		0,
		signature.VerifyDisableCASignCheck,
		signature.VerifyRejectSHA1,
		signature.VerifyDisableCASignCheck | signature.VerifyRejectSHA1,
		1 << 16,
	}

	type flagCase struct {
		name    string
		pub     *crypto.PublicKey
		sig     []byte
		flags   signature.VerifyFlags
		wantErr error
	}

	var tests []flagCase
	for _, f := range allFlags {
		caWant := crypto.ErrCASignRestricted
		if f.Has(signature.VerifyDisableCASignCheck) {
			caWant = nil
		}

		tests = append(tests,
			flagCase{"bare key " + f.String(), bare, sig, f, nil},
			flagCase{"leaf " + f.String(), leaf, sig, f, nil},
			flagCase{"CA with digitalSignature " + f.String(), caSigning, sig, f, nil},
			flagCase{"CA " + f.String(), ca, sig, f, caWant},
			flagCase{"leaf tampered " + f.String(), leaf, bad, f, crypto.ErrSignatureVerificationFailed},
			flagCase{"CA tampered " + f.String(), ca, bad, f, crypto.ErrSignatureVerificationFailed},
		)
	}

	for _, tt := range tests {
		t.Run("[Unit] Flags: "+tt.name, func(t *testing.T) {
			err := signature.Verify(tt.pub, crypto.AlgECDSASHA256, tt.flags, digest, tt.sig)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Verify() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify() error = %v, want %v", err, tt.wantErr)
			}
			if errors.Is(tt.wantErr, crypto.ErrCASignRestricted) && errors.Is(err, crypto.ErrSignatureVerificationFailed) {
				t.Error("policy failure reported as a signature mismatch")
			}
		})
	}
}

func TestU_Verify_RejectSHA1(t *testing.T) {
	key := genKey(t, crypto.KeyRSA2048)
	pub := pubOf(t, key)

	d1 := crypto.DigestSHA1.Sum([]byte("hello"))
	sig1, err := signature.Sign(key, crypto.AlgRSASHA1, 0, d1)
	if err != nil {
		t.Fatal(err)
	}

	if err := signature.Verify(pub, crypto.AlgRSASHA1, 0, d1, sig1); err != nil {
		t.Errorf("SHA-1 should be accepted by default: %v", err)
	}
	err = signature.Verify(pub, crypto.AlgRSASHA1, signature.VerifyRejectSHA1, d1, sig1)
	if !errors.Is(err, crypto.ErrInsecureAlgorithm) {
		t.Errorf("Verify(RejectSHA1) error = %v, want ErrInsecureAlgorithm", err)
	}

	d256 := crypto.DigestSHA256.Sum([]byte("hello"))
	sig256, err := signature.Sign(key, crypto.AlgRSASHA256, 0, d256)
	if err != nil {
		t.Fatal(err)
	}
	if err := signature.Verify(pub, crypto.AlgRSASHA256, signature.VerifyRejectSHA1, d256, sig256); err != nil {
		t.Errorf("RejectSHA1 should not affect SHA-256: %v", err)
	}
}

// =============================================================================
// [Unit] Inference Tests
// =============================================================================

func TestU_Verify_InferenceEquivalence(t *testing.T) {
	keys := newKeyCache(t)

	for _, tp := range testPairs {
		t.Run("[Unit] Inference: "+crypto.Name(tp.alg), func(t *testing.T) {
			key := keys.get(t, tp.spec)
			pub := pubOf(t, key)

			inferred, err := crypto.Resolve(pub.Family(), tp.alg.Digest())
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if inferred != tp.alg {
				t.Fatalf("Resolve() = %s, want %s", inferred, tp.alg)
			}

			input := inputFor(tp.alg, []byte("hello"))
			sig, err := signature.Sign(key, tp.alg, 0, input)
			if err != nil {
				t.Fatal(err)
			}

			for _, s := range [][]byte{sig, flip(sig, 0)} {
				errOrig := signature.Verify(pub, tp.alg, 0, input, s)
				errInferred := signature.Verify(pub, inferred, 0, input, s)
				if (errOrig == nil) != (errInferred == nil) {
					t.Errorf("decisions differ: original %v, inferred %v", errOrig, errInferred)
				}
			}
		})
	}
}

// =============================================================================
// [Unit] Reproducible Signing Tests
// =============================================================================

func TestU_Sign_Reproducible(t *testing.T) {
	ecKey := genKey(t, crypto.KeyECDSAP384)
	rsaKey := genKey(t, crypto.KeyRSA2048)

	t.Run("[Unit] Reproducible: ECDSA", func(t *testing.T) {
		digest := crypto.DigestSHA384.Sum([]byte("hello"))
		a, err := signature.Sign(ecKey, crypto.AlgECDSASHA384, signature.SignReproducible, digest)
		if err != nil {
			t.Fatal(err)
		}
		b, err := signature.Sign(ecKey, crypto.AlgECDSASHA384, signature.SignReproducible, digest)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(a, b) {
			t.Error("reproducible ECDSA signatures differ")
		}
		if err := signature.Verify(pubOf(t, ecKey), crypto.AlgECDSASHA384, 0, digest, a); err != nil {
			t.Errorf("Verify() error = %v", err)
		}

		c, err := signature.Sign(ecKey, crypto.AlgECDSASHA384, 0, digest)
		if err != nil {
			t.Fatal(err)
		}
		if bytes.Equal(a, c) {
			t.Error("randomized ECDSA signature equals the deterministic one")
		}
	})

	t.Run("[Unit] Reproducible: RSA-PSS", func(t *testing.T) {
		digest := crypto.DigestSHA256.Sum([]byte("hello"))
		sig, err := signature.Sign(rsaKey, crypto.AlgRSAPSSSHA256, signature.SignReproducible, digest)
		if err != nil {
			t.Fatal(err)
		}
		if err := signature.Verify(pubOf(t, rsaKey), crypto.AlgRSAPSSSHA256, 0, digest, sig); err != nil {
			t.Errorf("Verify() error = %v", err)
		}
	})

	t.Run("[Unit] Reproducible: PKCS1", func(t *testing.T) {
		digest := crypto.DigestSHA256.Sum([]byte("hello"))
		a, _ := signature.Sign(rsaKey, crypto.AlgRSASHA256, signature.SignReproducible, digest)
		b, _ := signature.Sign(rsaKey, crypto.AlgRSASHA256, 0, digest)
		if !bytes.Equal(a, b) {
			t.Error("PKCS#1 v1.5 signatures should be deterministic")
		}
	})
}

// =============================================================================
// [Unit] SignData / VerifyData Tests
// =============================================================================

func TestU_SignData_EqualsSignOnDigest(t *testing.T) {
	rsaKey := genKey(t, crypto.KeyRSA2048)
	edKey := genKey(t, crypto.KeyEd25519)
	data := []byte("the quick brown fox")

	tests := []struct {
		name string
		key  *crypto.PrivateKey
		alg  crypto.AlgorithmID
	}{
		{"[Unit] SignData: RSA-SHA256", rsaKey, crypto.AlgRSASHA256},
		{"[Unit] SignData: RSA-SHA512", rsaKey, crypto.AlgRSASHA512},
		{"[Unit] SignData: Ed25519", edKey, crypto.AlgEd25519},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viaData, err := signature.SignData(tt.key, tt.alg, 0, data)
			if err != nil {
				t.Fatal(err)
			}
			viaDigest, err := signature.Sign(tt.key, tt.alg, 0, inputFor(tt.alg, data))
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(viaData, viaDigest) {
				t.Error("SignData differs from Sign over the hashed data")
			}

			pub := pubOf(t, tt.key)
			if err := signature.VerifyData(pub, tt.alg, 0, data, viaData); err != nil {
				t.Errorf("VerifyData() error = %v", err)
			}
			if err := signature.VerifyData(pub, tt.alg, 0, []byte("other"), viaData); !errors.Is(err, crypto.ErrSignatureVerificationFailed) {
				t.Errorf("VerifyData(other) error = %v", err)
			}
		})
	}
}

func TestU_SignData_PQC(t *testing.T) {
	key := genKey(t, crypto.KeyMLDSA65)
	data := []byte("post-quantum payload")

	sig, err := signature.SignData(key, crypto.AlgMLDSA65, 0, data)
	if err != nil {
		t.Fatal(err)
	}
	if err := signature.Verify(pubOf(t, key), crypto.AlgMLDSA65, 0, data, sig); err != nil {
		t.Errorf("Verify() over raw data error = %v", err)
	}
}
