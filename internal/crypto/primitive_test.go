package crypto

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"errors"
	"testing"
)

// testPairs pairs every algorithm with a key spec of its family.
var testPairs = []struct {
	alg  AlgorithmID
	spec KeySpec
}{
	{AlgRSASHA1, KeyRSA2048},
	{AlgRSASHA224, KeyRSA2048},
	{AlgRSASHA256, KeyRSA2048},
	{AlgRSASHA384, KeyRSA2048},
	{AlgRSASHA512, KeyRSA2048},
	{AlgRSAPSSSHA256, KeyRSAPSS2048},
	{AlgRSAPSSSHA384, KeyRSAPSS2048},
	{AlgRSAPSSSHA512, KeyRSAPSS2048},
	{AlgECDSASHA1, KeyECDSAP256},
	{AlgECDSASHA224, KeyECDSAP256},
	{AlgECDSASHA256, KeyECDSAP256},
	{AlgECDSASHA384, KeyECDSAP384},
	{AlgECDSASHA512, KeyECDSAP521},
	{AlgECDSASHA3_256, KeyECDSAP256},
	{AlgECDSASHA3_384, KeyECDSAP384},
	{AlgECDSASHA3_512, KeyECDSAP521},
	{AlgEd25519, KeyEd25519},
	{AlgEd448, KeyEd448},
	{AlgMLDSA44, KeyMLDSA44},
	{AlgMLDSA65, KeyMLDSA65},
	{AlgMLDSA87, KeyMLDSA87},
	{AlgSLHDSA128f, KeySLHDSA128f},
}

// rawPublic returns the raw public key behind a private handle.
func rawPublic(t *testing.T, key *PrivateKey) crypto.PublicKey {
	t.Helper()
	pub, err := key.Public()
	if err != nil {
		t.Fatal(err)
	}
	var raw crypto.PublicKey
	_ = pub.WithKey(func(p crypto.PublicKey, _ KeyOrigin) error {
		raw = p
		return nil
	})
	return raw
}

func TestU_SignDigest_VerifyDigest(t *testing.T) {
	// Keys are generated once, owned by this test, and shared by the
	// subtests.
	keys := make(map[KeySpec]*PrivateKey)
	for _, tp := range testPairs {
		if _, ok := keys[tp.spec]; !ok {
			keys[tp.spec] = mustGenerate(t, tp.spec)
		}
	}

	for _, tp := range testPairs {
		t.Run("[Unit] Primitive: "+Name(tp.alg), func(t *testing.T) {
			key := keys[tp.spec]

			input := tp.alg.Digest().Sum([]byte("hello"))
			if tp.alg.IsPure() {
				input = []byte("hello")
			}

			sig, err := SignDigest(rawPrivate(t, key), tp.alg, input, false)
			if err != nil {
				t.Fatalf("SignDigest() error = %v", err)
			}
			pub := rawPublic(t, key)

			if !VerifyDigest(pub, tp.alg, input, sig) {
				t.Fatal("VerifyDigest() = false for a fresh signature")
			}

			tampered := append([]byte(nil), sig...)
			tampered[len(tampered)/2] ^= 0x01
			if VerifyDigest(pub, tp.alg, input, tampered) {
				t.Error("VerifyDigest() accepted a tampered signature")
			}

			other := append([]byte(nil), input...)
			other[0] ^= 0x80
			if VerifyDigest(pub, tp.alg, other, sig) {
				t.Error("VerifyDigest() accepted a different input")
			}
		})
	}
}

func TestU_SignDigest_ReproducibleECDSA(t *testing.T) {
	key := mustGenerate(t, KeyECDSAP256)
	digest := DigestSHA256.Sum([]byte("hello"))

	sig1, err := SignDigest(rawPrivate(t, key), AlgECDSASHA256, digest, true)
	if err != nil {
		t.Fatal(err)
	}
	sig2, err := SignDigest(rawPrivate(t, key), AlgECDSASHA256, digest, true)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(sig1, sig2) {
		t.Error("reproducible ECDSA signatures differ")
	}
	if !VerifyDigest(rawPublic(t, key), AlgECDSASHA256, digest, sig1) {
		t.Error("reproducible ECDSA signature does not verify")
	}
}

func TestU_SignDigest_ReproduciblePSSVerifies(t *testing.T) {
	key := mustGenerate(t, KeyRSA2048)
	digest := DigestSHA256.Sum([]byte("hello"))

	sig, err := SignDigest(rawPrivate(t, key), AlgRSAPSSSHA256, digest, true)
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyDigest(rawPublic(t, key), AlgRSAPSSSHA256, digest, sig) {
		t.Error("reproducible PSS signature does not verify")
	}
}

func TestU_RSAPSSKey_RefusesPKCS1v15(t *testing.T) {
	key := mustGenerate(t, KeyRSAPSS2048)
	digest := DigestSHA256.Sum([]byte("hello"))

	if _, err := SignDigest(rawPrivate(t, key), AlgRSASHA256, digest, false); !errors.Is(err, ErrAlgorithmKeyMismatch) {
		t.Errorf("SignDigest(PKCS#1 v1.5) error = %v, want ErrAlgorithmKeyMismatch", err)
	}

	// A PKCS#1 v1.5 signature from the same modulus must not verify
	// through the PSS-restricted key.
	raw := rawPrivate(t, key).(*RSAPSSPrivateKey)
	sig, err := SignDigest(raw.PrivateKey, AlgRSASHA256, digest, false)
	if err != nil {
		t.Fatal(err)
	}
	if VerifyDigest(rawPublic(t, key), AlgRSASHA256, digest, sig) {
		t.Error("VerifyDigest() accepted PKCS#1 v1.5 for an RSA-PSS key")
	}

	pssSig, err := SignDigest(raw, AlgRSAPSSSHA256, digest, false)
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyDigest(rawPublic(t, key), AlgRSAPSSSHA256, digest, pssSig) {
		t.Error("PSS signature does not verify")
	}
	if _, err := raw.Sign(rand.Reader, digest, crypto.SHA256); !errors.Is(err, ErrAlgorithmKeyMismatch) {
		t.Errorf("Sign(crypto.SHA256) error = %v, want ErrAlgorithmKeyMismatch", err)
	}
}

func TestU_VerifyDigest_WrongKeyType(t *testing.T) {
	rsaKey := mustGenerate(t, KeyRSA2048)
	ecKey := mustGenerate(t, KeyECDSAP256)
	digest := DigestSHA256.Sum([]byte("hello"))

	sig, err := SignDigest(rawPrivate(t, rsaKey), AlgRSASHA256, digest, false)
	if err != nil {
		t.Fatal(err)
	}
	if VerifyDigest(rawPublic(t, ecKey), AlgRSASHA256, digest, sig) {
		t.Error("VerifyDigest() accepted an ECDSA key for RSA")
	}
	if VerifyDigest(rawPublic(t, rsaKey), "bogus", digest, sig) {
		t.Error("VerifyDigest() accepted an unknown algorithm")
	}
	if VerifyDigest("not a key", AlgRSASHA256, digest, sig) {
		t.Error("VerifyDigest() accepted a non-key")
	}
}

func TestU_SignDigest_UnknownAlgorithm(t *testing.T) {
	key := mustGenerate(t, KeyEd25519)
	if _, err := SignDigest(rawPrivate(t, key), "bogus", []byte("x"), false); err == nil {
		t.Error("SignDigest() should fail for an unknown algorithm")
	}
}

func TestU_VerifyDigest_ECDSADigestKindNotBound(t *testing.T) {
	key := mustGenerate(t, KeyECDSAP256)
	digest := DigestSHA3_256.Sum([]byte("hello"))

	sig, err := SignDigest(rawPrivate(t, key), AlgECDSASHA3_256, digest, false)
	if err != nil {
		t.Fatal(err)
	}
	// Same 32 bytes under a different ECDSA id: only the bytes are signed.
	if !VerifyDigest(rawPublic(t, key), AlgECDSASHA256, digest, sig) {
		t.Error("ECDSA verification should depend on the digest bytes only")
	}
}
