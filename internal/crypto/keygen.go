package crypto

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/cloudflare/circl/sign/ed448"
	"github.com/cloudflare/circl/sign/mldsa/mldsa44"
	"github.com/cloudflare/circl/sign/mldsa/mldsa65"
	"github.com/cloudflare/circl/sign/mldsa/mldsa87"
	"github.com/cloudflare/circl/sign/slhdsa"
)

// KeySpec names a key type and size for generation, e.g. "ecdsa-p256".
type KeySpec string

const (
	KeyRSA2048    KeySpec = "rsa-2048"
	KeyRSA3072    KeySpec = "rsa-3072"
	KeyRSA4096    KeySpec = "rsa-4096"
	KeyRSAPSS2048 KeySpec = "rsa-pss-2048"
	KeyRSAPSS3072 KeySpec = "rsa-pss-3072"
	KeyECDSAP256  KeySpec = "ecdsa-p256"
	KeyECDSAP384  KeySpec = "ecdsa-p384"
	KeyECDSAP521  KeySpec = "ecdsa-p521"
	KeyEd25519    KeySpec = "ed25519"
	KeyEd448      KeySpec = "ed448"
	KeyMLDSA44    KeySpec = "ml-dsa-44"
	KeyMLDSA65    KeySpec = "ml-dsa-65"
	KeyMLDSA87    KeySpec = "ml-dsa-87"
	KeySLHDSA128s KeySpec = "slh-dsa-sha2-128s"
	KeySLHDSA128f KeySpec = "slh-dsa-sha2-128f"
	KeySLHDSA192s KeySpec = "slh-dsa-sha2-192s"
	KeySLHDSA192f KeySpec = "slh-dsa-sha2-192f"
	KeySLHDSA256s KeySpec = "slh-dsa-sha2-256s"
	KeySLHDSA256f KeySpec = "slh-dsa-sha2-256f"
)

var keySpecs = map[KeySpec]KeyFamily{
	KeyRSA2048:    FamilyRSA,
	KeyRSA3072:    FamilyRSA,
	KeyRSA4096:    FamilyRSA,
	KeyRSAPSS2048: FamilyRSAPSS,
	KeyRSAPSS3072: FamilyRSAPSS,
	KeyECDSAP256:  FamilyECDSA,
	KeyECDSAP384:  FamilyECDSA,
	KeyECDSAP521:  FamilyECDSA,
	KeyEd25519:    FamilyEd25519,
	KeyEd448:      FamilyEd448,
	KeyMLDSA44:    FamilyMLDSA44,
	KeyMLDSA65:    FamilyMLDSA65,
	KeyMLDSA87:    FamilyMLDSA87,
	KeySLHDSA128s: FamilySLHDSA128s,
	KeySLHDSA128f: FamilySLHDSA128f,
	KeySLHDSA192s: FamilySLHDSA192s,
	KeySLHDSA192f: FamilySLHDSA192f,
	KeySLHDSA256s: FamilySLHDSA256s,
	KeySLHDSA256f: FamilySLHDSA256f,
}

// Family returns the key family the spec generates.
func (s KeySpec) Family() KeyFamily {
	return keySpecs[s]
}

// ParseKeySpec parses a key spec case-insensitively.
func ParseKeySpec(s string) (KeySpec, error) {
	spec := KeySpec(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := keySpecs[spec]; !ok {
		return "", fmt.Errorf("unknown key type: %s", s)
	}
	return spec, nil
}

// AllKeySpecs returns every key spec in sorted order.
func AllKeySpecs() []KeySpec {
	result := make([]KeySpec, 0, len(keySpecs))
	for s := range keySpecs {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// GenerateKey generates a software key and wraps it in a handle.
func GenerateKey(spec KeySpec) (*PrivateKey, error) {
	return GenerateKeyWithRand(rand.Reader, spec)
}

// GenerateKeyWithRand generates a key using the provided random source.
func GenerateKeyWithRand(random io.Reader, spec KeySpec) (*PrivateKey, error) {
	priv, err := generateRaw(random, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s key: %w", spec, err)
	}
	return NewPrivateKey(priv)
}

func generateRaw(random io.Reader, spec KeySpec) (crypto.PrivateKey, error) {
	switch spec {
	case KeyRSA2048:
		return rsa.GenerateKey(random, 2048)
	case KeyRSA3072:
		return rsa.GenerateKey(random, 3072)
	case KeyRSA4096:
		return rsa.GenerateKey(random, 4096)
	case KeyRSAPSS2048, KeyRSAPSS3072:
		bits := 2048
		if spec == KeyRSAPSS3072 {
			bits = 3072
		}
		priv, err := rsa.GenerateKey(random, bits)
		if err != nil {
			return nil, err
		}
		return &RSAPSSPrivateKey{PrivateKey: priv}, nil

	case KeyECDSAP256:
		return ecdsa.GenerateKey(elliptic.P256(), random)
	case KeyECDSAP384:
		return ecdsa.GenerateKey(elliptic.P384(), random)
	case KeyECDSAP521:
		return ecdsa.GenerateKey(elliptic.P521(), random)

	case KeyEd25519:
		_, priv, err := ed25519.GenerateKey(random)
		return priv, err
	case KeyEd448:
		_, priv, err := ed448.GenerateKey(random)
		return priv, err

	case KeyMLDSA44:
		_, priv, err := mldsa44.GenerateKey(random)
		return priv, err
	case KeyMLDSA65:
		_, priv, err := mldsa65.GenerateKey(random)
		return priv, err
	case KeyMLDSA87:
		_, priv, err := mldsa87.GenerateKey(random)
		return priv, err
	}

	if id, ok := slhdsaParams(spec.Family()); ok {
		_, priv, err := slhdsa.GenerateKey(random, id)
		if err != nil {
			return nil, err
		}
		return &priv, nil
	}

	return nil, fmt.Errorf("unsupported key type: %s", spec)
}
