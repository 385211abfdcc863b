package crypto

import (
	"crypto"
	"crypto/sha1" //nolint:gosec // SHA-1 is still verifiable for legacy signatures
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// DigestKind identifies a hash function.
type DigestKind int

const (
	DigestNone DigestKind = iota
	DigestSHA1
	DigestSHA224
	DigestSHA256
	DigestSHA384
	DigestSHA512
	DigestSHA3_256
	DigestSHA3_384
	DigestSHA3_512
	DigestSHAKE256
)

type digestInfo struct {
	name string
	size int
	hash crypto.Hash
}

var digests = map[DigestKind]digestInfo{
	DigestNone:     {"none", 0, 0},
	DigestSHA1:     {"SHA1", sha1.Size, crypto.SHA1},
	DigestSHA224:   {"SHA224", sha256.Size224, crypto.SHA224},
	DigestSHA256:   {"SHA256", sha256.Size, crypto.SHA256},
	DigestSHA384:   {"SHA384", sha512.Size384, crypto.SHA384},
	DigestSHA512:   {"SHA512", sha512.Size, crypto.SHA512},
	DigestSHA3_256: {"SHA3-256", 32, crypto.SHA3_256},
	DigestSHA3_384: {"SHA3-384", 48, crypto.SHA3_384},
	DigestSHA3_512: {"SHA3-512", 64, crypto.SHA3_512},
	DigestSHAKE256: {"SHAKE256", 64, 0},
}

func (d DigestKind) String() string {
	if info, ok := digests[d]; ok {
		return info.name
	}
	return "unknown"
}

// Size returns the digest length in bytes (0 for DigestNone).
// SHAKE256 is sized at 64 bytes as in RFC 8702.
func (d DigestKind) Size() int {
	return digests[d].size
}

// Hash returns the crypto.Hash for this digest, or 0 if there is none.
func (d DigestKind) Hash() crypto.Hash {
	return digests[d].hash
}

// Sum hashes data. DigestNone returns a copy of data unchanged.
func (d DigestKind) Sum(data []byte) []byte {
	switch d {
	case DigestSHA1:
		h := sha1.Sum(data) //nolint:gosec
		return h[:]
	case DigestSHA224:
		h := sha256.Sum224(data)
		return h[:]
	case DigestSHA256:
		h := sha256.Sum256(data)
		return h[:]
	case DigestSHA384:
		h := sha512.Sum384(data)
		return h[:]
	case DigestSHA512:
		h := sha512.Sum512(data)
		return h[:]
	case DigestSHA3_256:
		h := sha3.Sum256(data)
		return h[:]
	case DigestSHA3_384:
		h := sha3.Sum384(data)
		return h[:]
	case DigestSHA3_512:
		h := sha3.Sum512(data)
		return h[:]
	case DigestSHAKE256:
		out := make([]byte, DigestSHAKE256.Size())
		sha3.ShakeSum256(out, data)
		return out
	default:
		return append([]byte(nil), data...)
	}
}

// ParseDigestKind parses names such as "sha256", "SHA-256", "sha3-384" or "none".
func ParseDigestKind(s string) (DigestKind, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	switch norm {
	case "", "NONE":
		return DigestNone, nil
	case "SHA-1":
		norm = "SHA1"
	case "SHA-224":
		norm = "SHA224"
	case "SHA-256":
		norm = "SHA256"
	case "SHA-384":
		norm = "SHA384"
	case "SHA-512":
		norm = "SHA512"
	case "SHAKE-256":
		norm = "SHAKE256"
	}
	for d, info := range digests {
		if info.name == norm {
			return d, nil
		}
	}
	return DigestNone, fmt.Errorf("unknown digest: %s", s)
}
