package crypto

import (
	"crypto"
	"crypto/dsa" //nolint:staticcheck // DSA keys are classified so they can be refused explicitly
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"fmt"
	"strings"

	"github.com/cloudflare/circl/sign/ed448"
	"github.com/cloudflare/circl/sign/mldsa/mldsa44"
	"github.com/cloudflare/circl/sign/mldsa/mldsa65"
	"github.com/cloudflare/circl/sign/mldsa/mldsa87"
	"github.com/cloudflare/circl/sign/slhdsa"
)

// KeyFamily classifies a key by its underlying algorithm class.
type KeyFamily int

const (
	FamilyUnknown KeyFamily = iota
	FamilyRSA
	FamilyRSAPSS
	FamilyECDSA
	FamilyDSA
	FamilyEd25519
	FamilyEd448
	FamilyMLDSA44
	FamilyMLDSA65
	FamilyMLDSA87
	FamilySLHDSA128s
	FamilySLHDSA128f
	FamilySLHDSA192s
	FamilySLHDSA192f
	FamilySLHDSA256s
	FamilySLHDSA256f
)

var familyNames = map[KeyFamily]string{
	FamilyRSA:        "RSA",
	FamilyRSAPSS:     "RSA-PSS",
	FamilyECDSA:      "ECDSA",
	FamilyDSA:        "DSA",
	FamilyEd25519:    "Ed25519",
	FamilyEd448:      "Ed448",
	FamilyMLDSA44:    "ML-DSA-44",
	FamilyMLDSA65:    "ML-DSA-65",
	FamilyMLDSA87:    "ML-DSA-87",
	FamilySLHDSA128s: "SLH-DSA-SHA2-128s",
	FamilySLHDSA128f: "SLH-DSA-SHA2-128f",
	FamilySLHDSA192s: "SLH-DSA-SHA2-192s",
	FamilySLHDSA192f: "SLH-DSA-SHA2-192f",
	FamilySLHDSA256s: "SLH-DSA-SHA2-256s",
	FamilySLHDSA256f: "SLH-DSA-SHA2-256f",
}

func (f KeyFamily) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}
	return "unknown"
}

// IsPQC returns true for post-quantum key families.
func (f KeyFamily) IsPQC() bool {
	switch f {
	case FamilyMLDSA44, FamilyMLDSA65, FamilyMLDSA87,
		FamilySLHDSA128s, FamilySLHDSA128f, FamilySLHDSA192s,
		FamilySLHDSA192f, FamilySLHDSA256s, FamilySLHDSA256f:
		return true
	}
	return false
}

// ParseKeyFamily parses a family name such as "rsa", "ECDSA" or "ml-dsa-65".
func ParseKeyFamily(s string) (KeyFamily, error) {
	for f, name := range familyNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return f, nil
		}
	}
	return FamilyUnknown, fmt.Errorf("unknown key family: %s", s)
}

// AllFamilies returns every known key family, including the unsupported DSA.
func AllFamilies() []KeyFamily {
	result := make([]KeyFamily, 0, len(familyNames))
	for f := FamilyRSA; f <= FamilySLHDSA256f; f++ {
		result = append(result, f)
	}
	return result
}

// FamilyOf classifies a public key. Returns FamilyUnknown for unsupported
// key types.
func FamilyOf(pub crypto.PublicKey) KeyFamily {
	switch k := pub.(type) {
	case *rsa.PublicKey:
		return FamilyRSA
	case *RSAPSSPublicKey:
		return FamilyRSAPSS
	case *ecdsa.PublicKey:
		return FamilyECDSA
	case *dsa.PublicKey:
		return FamilyDSA
	case ed25519.PublicKey:
		return FamilyEd25519
	case ed448.PublicKey:
		return FamilyEd448
	case *mldsa44.PublicKey:
		return FamilyMLDSA44
	case *mldsa65.PublicKey:
		return FamilyMLDSA65
	case *mldsa87.PublicKey:
		return FamilyMLDSA87
	case *slhdsa.PublicKey:
		return slhdsaFamily(k.ID)
	case slhdsa.PublicKey:
		return slhdsaFamily(k.ID)
	default:
		return FamilyUnknown
	}
}

// slhdsaFamily maps an SLH-DSA parameter set to its KeyFamily.
func slhdsaFamily(id slhdsa.ID) KeyFamily {
	switch id {
	case slhdsa.SHA2_128s:
		return FamilySLHDSA128s
	case slhdsa.SHA2_128f:
		return FamilySLHDSA128f
	case slhdsa.SHA2_192s:
		return FamilySLHDSA192s
	case slhdsa.SHA2_192f:
		return FamilySLHDSA192f
	case slhdsa.SHA2_256s:
		return FamilySLHDSA256s
	case slhdsa.SHA2_256f:
		return FamilySLHDSA256f
	default:
		return FamilyUnknown
	}
}

// slhdsaParams maps an SLH-DSA family back to its circl parameter set.
func slhdsaParams(f KeyFamily) (slhdsa.ID, bool) {
	switch f {
	case FamilySLHDSA128s:
		return slhdsa.SHA2_128s, true
	case FamilySLHDSA128f:
		return slhdsa.SHA2_128f, true
	case FamilySLHDSA192s:
		return slhdsa.SHA2_192s, true
	case FamilySLHDSA192f:
		return slhdsa.SHA2_192f, true
	case FamilySLHDSA256s:
		return slhdsa.SHA2_256s, true
	case FamilySLHDSA256f:
		return slhdsa.SHA2_256f, true
	default:
		return 0, false
	}
}
