// Package signature signs and verifies digests under a named algorithm.
//
// Sign and Verify never hash their input for pre-hash algorithms: the
// caller passes the digest. SignData and VerifyData hash raw data first.
package signature

import (
	"fmt"
	"strings"
)

// SignFlags modify signing. Unknown bits are ignored.
type SignFlags uint32

const (
	// SignReproducible requests deterministic output where the scheme
	// allows it: RFC 6979 nonces for ECDSA and an all-zero salt for RSA-PSS.
	SignReproducible SignFlags = 1 << iota
)

// Has reports whether all bits of f are set.
func (s SignFlags) Has(f SignFlags) bool { return s&f == f }

func (s SignFlags) String() string {
	if s.Has(SignReproducible) {
		return "reproducible"
	}
	return "none"
}

// VerifyFlags modify verification policy. The bits are orthogonal and
// unknown bits are ignored.
type VerifyFlags uint32

const (
	// VerifyDisableCASignCheck allows a CA-constrained certificate key to
	// verify data signatures.
	VerifyDisableCASignCheck VerifyFlags = 1 << iota

	// VerifyRejectSHA1 rejects SHA-1 based algorithms.
	VerifyRejectSHA1
)

var verifyFlagNames = []struct {
	flag VerifyFlags
	name string
}{
	{VerifyDisableCASignCheck, "disable-ca-sign-check"},
	{VerifyRejectSHA1, "reject-sha1"},
}

// Has reports whether all bits of f are set.
func (v VerifyFlags) Has(f VerifyFlags) bool { return v&f == f }

// Names returns the names of the known bits that are set.
func (v VerifyFlags) Names() []string {
	var names []string
	for _, fn := range verifyFlagNames {
		if v.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return names
}

func (v VerifyFlags) String() string {
	names := v.Names()
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// ParseVerifyFlags converts flag names to a bitset.
func ParseVerifyFlags(names []string) (VerifyFlags, error) {
	var flags VerifyFlags
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		found := false
		for _, fn := range verifyFlagNames {
			if fn.name == name {
				flags |= fn.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown verify flag: %s", name)
		}
	}
	return flags, nil
}
