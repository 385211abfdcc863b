// Package crypto provides the signature primitives used by qsig.
// It supports classical algorithms (RSA, ECDSA, Ed25519) and Ed448 plus
// post-quantum algorithms (ML-DSA, SLH-DSA) via the cloudflare/circl library.
package crypto

import (
	"encoding/asn1"
	"fmt"
	"sort"
	"strings"
)

// AlgorithmID identifies a concrete signature scheme: key family, digest
// and padding.
type AlgorithmID string

// RSA PKCS#1 v1.5 signature algorithms.
const (
	AlgRSASHA1   AlgorithmID = "rsa-sha1"
	AlgRSASHA224 AlgorithmID = "rsa-sha224"
	AlgRSASHA256 AlgorithmID = "rsa-sha256"
	AlgRSASHA384 AlgorithmID = "rsa-sha384"
	AlgRSASHA512 AlgorithmID = "rsa-sha512"
)

// RSA-PSS signature algorithms.
const (
	AlgRSAPSSSHA256 AlgorithmID = "rsa-pss-sha256"
	AlgRSAPSSSHA384 AlgorithmID = "rsa-pss-sha384"
	AlgRSAPSSSHA512 AlgorithmID = "rsa-pss-sha512"
)

// ECDSA signature algorithms.
const (
	AlgECDSASHA1     AlgorithmID = "ecdsa-sha1"
	AlgECDSASHA224   AlgorithmID = "ecdsa-sha224"
	AlgECDSASHA256   AlgorithmID = "ecdsa-sha256"
	AlgECDSASHA384   AlgorithmID = "ecdsa-sha384"
	AlgECDSASHA512   AlgorithmID = "ecdsa-sha512"
	AlgECDSASHA3_256 AlgorithmID = "ecdsa-sha3-256"
	AlgECDSASHA3_384 AlgorithmID = "ecdsa-sha3-384"
	AlgECDSASHA3_512 AlgorithmID = "ecdsa-sha3-512"
)

// Edwards curve signature algorithms (pure EdDSA).
const (
	AlgEd25519 AlgorithmID = "ed25519"
	AlgEd448   AlgorithmID = "ed448"
)

// Post-quantum signature algorithms (FIPS 204 ML-DSA, FIPS 205 SLH-DSA).
const (
	AlgMLDSA44 AlgorithmID = "ml-dsa-44"
	AlgMLDSA65 AlgorithmID = "ml-dsa-65"
	AlgMLDSA87 AlgorithmID = "ml-dsa-87"

	AlgSLHDSA128s AlgorithmID = "slh-dsa-sha2-128s"
	AlgSLHDSA128f AlgorithmID = "slh-dsa-sha2-128f"
	AlgSLHDSA192s AlgorithmID = "slh-dsa-sha2-192s"
	AlgSLHDSA192f AlgorithmID = "slh-dsa-sha2-192f"
	AlgSLHDSA256s AlgorithmID = "slh-dsa-sha2-256s"
	AlgSLHDSA256f AlgorithmID = "slh-dsa-sha2-256f"
)

// Padding is the encoding scheme applied before the key operation.
type Padding int

const (
	PaddingNone Padding = iota
	PaddingPKCS1v15
	PaddingPSS
)

func (p Padding) String() string {
	switch p {
	case PaddingPKCS1v15:
		return "pkcs1v15"
	case PaddingPSS:
		return "pss"
	default:
		return "none"
	}
}

// algorithmInfo holds metadata about a signature algorithm.
type algorithmInfo struct {
	Family      KeyFamily
	Digest      DigestKind
	Padding     Padding
	Pure        bool // signs the message itself, no external pre-hash
	OID         asn1.ObjectIdentifier
	Name        string
	Description string
}

// algorithms maps AlgorithmID to its metadata.
var algorithms = map[AlgorithmID]algorithmInfo{
	// RSA PKCS#1 v1.5
	AlgRSASHA1: {
		Family:      FamilyRSA,
		Digest:      DigestSHA1,
		Padding:     PaddingPKCS1v15,
		OID:         asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 5},
		Name:        "RSA-SHA1",
		Description: "RSA PKCS#1 v1.5 with SHA-1 (legacy)",
	},
	AlgRSASHA224: {
		Family:      FamilyRSA,
		Digest:      DigestSHA224,
		Padding:     PaddingPKCS1v15,
		OID:         asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 14},
		Name:        "RSA-SHA224",
		Description: "RSA PKCS#1 v1.5 with SHA-224",
	},
	AlgRSASHA256: {
		Family:      FamilyRSA,
		Digest:      DigestSHA256,
		Padding:     PaddingPKCS1v15,
		OID:         asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 11},
		Name:        "RSA-SHA256",
		Description: "RSA PKCS#1 v1.5 with SHA-256",
	},
	AlgRSASHA384: {
		Family:      FamilyRSA,
		Digest:      DigestSHA384,
		Padding:     PaddingPKCS1v15,
		OID:         asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 12},
		Name:        "RSA-SHA384",
		Description: "RSA PKCS#1 v1.5 with SHA-384",
	},
	AlgRSASHA512: {
		Family:      FamilyRSA,
		Digest:      DigestSHA512,
		Padding:     PaddingPKCS1v15,
		OID:         asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 13},
		Name:        "RSA-SHA512",
		Description: "RSA PKCS#1 v1.5 with SHA-512",
	},

	// RSA-PSS (RFC 8017)
	AlgRSAPSSSHA256: {
		Family:      FamilyRSA,
		Digest:      DigestSHA256,
		Padding:     PaddingPSS,
		OID:         asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 10},
		Name:        "RSA-PSS-SHA256",
		Description: "RSASSA-PSS with SHA-256",
	},
	AlgRSAPSSSHA384: {
		Family:      FamilyRSA,
		Digest:      DigestSHA384,
		Padding:     PaddingPSS,
		OID:         asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 10},
		Name:        "RSA-PSS-SHA384",
		Description: "RSASSA-PSS with SHA-384",
	},
	AlgRSAPSSSHA512: {
		Family:      FamilyRSA,
		Digest:      DigestSHA512,
		Padding:     PaddingPSS,
		OID:         asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 10},
		Name:        "RSA-PSS-SHA512",
		Description: "RSASSA-PSS with SHA-512",
	},

	// ECDSA
	AlgECDSASHA1: {
		Family:      FamilyECDSA,
		Digest:      DigestSHA1,
		OID:         asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 1},
		Name:        "ECDSA-SHA1",
		Description: "ECDSA with SHA-1 (legacy)",
	},
	AlgECDSASHA224: {
		Family:      FamilyECDSA,
		Digest:      DigestSHA224,
		OID:         asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 1},
		Name:        "ECDSA-SHA224",
		Description: "ECDSA with SHA-224",
	},
	AlgECDSASHA256: {
		Family:      FamilyECDSA,
		Digest:      DigestSHA256,
		OID:         asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 2},
		Name:        "ECDSA-SHA256",
		Description: "ECDSA with SHA-256",
	},
	AlgECDSASHA384: {
		Family:      FamilyECDSA,
		Digest:      DigestSHA384,
		OID:         asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 3},
		Name:        "ECDSA-SHA384",
		Description: "ECDSA with SHA-384",
	},
	AlgECDSASHA512: {
		Family:      FamilyECDSA,
		Digest:      DigestSHA512,
		OID:         asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 4},
		Name:        "ECDSA-SHA512",
		Description: "ECDSA with SHA-512",
	},
	AlgECDSASHA3_256: {
		Family:      FamilyECDSA,
		Digest:      DigestSHA3_256,
		OID:         asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 10},
		Name:        "ECDSA-SHA3-256",
		Description: "ECDSA with SHA3-256",
	},
	AlgECDSASHA3_384: {
		Family:      FamilyECDSA,
		Digest:      DigestSHA3_384,
		OID:         asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 11},
		Name:        "ECDSA-SHA3-384",
		Description: "ECDSA with SHA3-384",
	},
	AlgECDSASHA3_512: {
		Family:      FamilyECDSA,
		Digest:      DigestSHA3_512,
		OID:         asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 12},
		Name:        "ECDSA-SHA3-512",
		Description: "ECDSA with SHA3-512",
	},

	// Edwards curves
	AlgEd25519: {
		Family:      FamilyEd25519,
		Digest:      DigestSHA512,
		Pure:        true,
		OID:         asn1.ObjectIdentifier{1, 3, 101, 112},
		Name:        "EdDSA-Ed25519",
		Description: "Ed25519 (EdDSA with Curve25519)",
	},
	AlgEd448: {
		Family:      FamilyEd448,
		Digest:      DigestSHAKE256,
		Pure:        true,
		OID:         asn1.ObjectIdentifier{1, 3, 101, 113},
		Name:        "EdDSA-Ed448",
		Description: "Ed448 (EdDSA with Curve448)",
	},

	// ML-DSA (FIPS 204)
	AlgMLDSA44: {
		Family:      FamilyMLDSA44,
		Pure:        true,
		OID:         asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 17},
		Name:        "ML-DSA-44",
		Description: "ML-DSA-44 (NIST Level 1)",
	},
	AlgMLDSA65: {
		Family:      FamilyMLDSA65,
		Pure:        true,
		OID:         asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 18},
		Name:        "ML-DSA-65",
		Description: "ML-DSA-65 (NIST Level 3)",
	},
	AlgMLDSA87: {
		Family:      FamilyMLDSA87,
		Pure:        true,
		OID:         asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 19},
		Name:        "ML-DSA-87",
		Description: "ML-DSA-87 (NIST Level 5)",
	},

	// SLH-DSA (FIPS 205), SHA2 parameter sets
	AlgSLHDSA128s: {
		Family:      FamilySLHDSA128s,
		Pure:        true,
		OID:         asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 20},
		Name:        "SLH-DSA-SHA2-128s",
		Description: "SLH-DSA-SHA2-128s (NIST Level 1, small)",
	},
	AlgSLHDSA128f: {
		Family:      FamilySLHDSA128f,
		Pure:        true,
		OID:         asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 21},
		Name:        "SLH-DSA-SHA2-128f",
		Description: "SLH-DSA-SHA2-128f (NIST Level 1, fast)",
	},
	AlgSLHDSA192s: {
		Family:      FamilySLHDSA192s,
		Pure:        true,
		OID:         asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 22},
		Name:        "SLH-DSA-SHA2-192s",
		Description: "SLH-DSA-SHA2-192s (NIST Level 3, small)",
	},
	AlgSLHDSA192f: {
		Family:      FamilySLHDSA192f,
		Pure:        true,
		OID:         asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 23},
		Name:        "SLH-DSA-SHA2-192f",
		Description: "SLH-DSA-SHA2-192f (NIST Level 3, fast)",
	},
	AlgSLHDSA256s: {
		Family:      FamilySLHDSA256s,
		Pure:        true,
		OID:         asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 24},
		Name:        "SLH-DSA-SHA2-256s",
		Description: "SLH-DSA-SHA2-256s (NIST Level 5, small)",
	},
	AlgSLHDSA256f: {
		Family:      FamilySLHDSA256f,
		Pure:        true,
		OID:         asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 25},
		Name:        "SLH-DSA-SHA2-256f",
		Description: "SLH-DSA-SHA2-256f (NIST Level 5, fast)",
	},
}

// IsValid returns true if the algorithm is recognized.
func (a AlgorithmID) IsValid() bool {
	_, ok := algorithms[a]
	return ok
}

// Family returns the key family the algorithm operates on.
func (a AlgorithmID) Family() KeyFamily {
	if info, ok := algorithms[a]; ok {
		return info.Family
	}
	return FamilyUnknown
}

// Digest returns the digest kind of the algorithm. For pure schemes this is
// the hash used internally by the scheme, or DigestNone.
func (a AlgorithmID) Digest() DigestKind {
	if info, ok := algorithms[a]; ok {
		return info.Digest
	}
	return DigestNone
}

// Padding returns the padding scheme (RSA only).
func (a AlgorithmID) Padding() Padding {
	if info, ok := algorithms[a]; ok {
		return info.Padding
	}
	return PaddingNone
}

// IsPure returns true for schemes that consume the message directly
// (EdDSA, ML-DSA, SLH-DSA).
func (a AlgorithmID) IsPure() bool {
	info, ok := algorithms[a]
	return ok && info.Pure
}

// IsPQC returns true for post-quantum algorithms.
func (a AlgorithmID) IsPQC() bool {
	return a.Family().IsPQC()
}

// InputSize returns the exact input length expected by Sign and Verify.
// Returns 0 for pure schemes, which accept any non-empty message.
func (a AlgorithmID) InputSize() int {
	info, ok := algorithms[a]
	if !ok || info.Pure {
		return 0
	}
	return info.Digest.Size()
}

// OID returns the ASN.1 Object Identifier for this algorithm.
func (a AlgorithmID) OID() asn1.ObjectIdentifier {
	if info, ok := algorithms[a]; ok {
		return info.OID
	}
	return nil
}

// Description returns a human-readable description of the algorithm.
func (a AlgorithmID) Description() string {
	if info, ok := algorithms[a]; ok {
		return info.Description
	}
	return "Unknown algorithm"
}

// String returns the algorithm identifier as a string.
func (a AlgorithmID) String() string {
	return string(a)
}

// Name returns the display name of an algorithm, e.g. "RSA-SHA1".
// It never fails: unknown identifiers yield "UNKNOWN".
func Name(a AlgorithmID) string {
	if info, ok := algorithms[a]; ok {
		return info.Name
	}
	return "UNKNOWN"
}

// ParseAlgorithm parses either an identifier ("rsa-sha256") or a display
// name ("RSA-SHA256"), case-insensitively.
func ParseAlgorithm(s string) (AlgorithmID, error) {
	s = strings.TrimSpace(s)
	if alg := AlgorithmID(strings.ToLower(s)); alg.IsValid() {
		return alg, nil
	}
	for alg, info := range algorithms {
		if strings.EqualFold(info.Name, s) {
			return alg, nil
		}
	}
	return "", fmt.Errorf("%w: unknown signature algorithm %q", ErrUnsupportedCombination, s)
}

// AllAlgorithms returns every supported algorithm ID in sorted order.
func AllAlgorithms() []AlgorithmID {
	result := make([]AlgorithmID, 0, len(algorithms))
	for alg := range algorithms {
		result = append(result, alg)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// AlgorithmsForFamily returns the algorithms usable with a key family,
// in sorted order.
func AlgorithmsForFamily(f KeyFamily) []AlgorithmID {
	var result []AlgorithmID
	for _, alg := range AllAlgorithms() {
		if Supports(f, alg) {
			result = append(result, alg)
		}
	}
	return result
}
