package crypto

import (
	"crypto"
	"crypto/dsa" //nolint:staticcheck
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"encoding/pem"
	"fmt"
	"io"
	"sync"

	"github.com/cloudflare/circl/sign/ed448"
	"github.com/cloudflare/circl/sign/mldsa/mldsa44"
	"github.com/cloudflare/circl/sign/mldsa/mldsa65"
	"github.com/cloudflare/circl/sign/mldsa/mldsa87"
	"github.com/cloudflare/circl/sign/slhdsa"
)

// Format identifies the encoding of key or certificate material.
type Format int

const (
	FormatPEM Format = iota
	FormatDER
)

func (f Format) String() string {
	if f == FormatDER {
		return "DER"
	}
	return "PEM"
}

// DetectFormat returns FormatPEM if data looks like PEM, FormatDER otherwise.
func DetectFormat(data []byte) Format {
	if block, _ := pem.Decode(data); block != nil {
		return FormatPEM
	}
	return FormatDER
}

// KeyOrigin records where a public key came from.
type KeyOrigin struct {
	// Certificate is true when the key was extracted from an X.509 certificate.
	Certificate bool

	// CAConstrained is true when that certificate is a CA whose key usage
	// does not include digitalSignature.
	CAConstrained bool

	// Subject is the certificate subject, for diagnostics only.
	Subject string
}

// PrivateKey is an owned signing key handle. The key material is either
// held in memory or backed by an HSM object.
//
// Concurrent signing through one handle is safe. Close must not race with
// in-flight operations; once closed, every use returns ErrKeyDestroyed.
type PrivateKey struct {
	mu     sync.RWMutex
	priv   crypto.PrivateKey
	pub    crypto.PublicKey
	family KeyFamily
	closed bool
}

// NewPrivateKey wraps raw key material in a handle. priv is a Go private key
// type (*rsa.PrivateKey, *ecdsa.PrivateKey, ed25519.PrivateKey, ...) or any
// crypto.Signer such as an HSM signer.
func NewPrivateKey(priv crypto.PrivateKey) (*PrivateKey, error) {
	if priv == nil {
		return nil, fmt.Errorf("%w: private key is nil", ErrKeyImportFailed)
	}
	pub := publicKeyOf(priv)
	family := FamilyOf(pub)
	if family == FamilyUnknown {
		return nil, fmt.Errorf("%w: unsupported private key type: %T", ErrKeyImportFailed, priv)
	}
	return &PrivateKey{priv: priv, pub: pub, family: family}, nil
}

// publicKeyOf returns the public half of a private key.
func publicKeyOf(priv crypto.PrivateKey) crypto.PublicKey {
	switch k := priv.(type) {
	case *rsa.PrivateKey:
		return &k.PublicKey
	case *RSAPSSPrivateKey:
		return k.Public()
	case *ecdsa.PrivateKey:
		return &k.PublicKey
	case *dsa.PrivateKey:
		return &k.PublicKey
	case ed25519.PrivateKey:
		return k.Public()
	case ed448.PrivateKey:
		return k.Public()
	case *mldsa44.PrivateKey:
		return k.Public()
	case *mldsa65.PrivateKey:
		return k.Public()
	case *mldsa87.PrivateKey:
		return k.Public()
	case *slhdsa.PrivateKey:
		pub := k.PublicKey()
		return &pub
	case crypto.Signer:
		return k.Public()
	default:
		return nil
	}
}

// Family returns the key family.
func (k *PrivateKey) Family() KeyFamily {
	return k.family
}

// Public returns a new, independently owned handle for the public half.
func (k *PrivateKey) Public() (*PublicKey, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.closed {
		return nil, ErrKeyDestroyed
	}
	return &PublicKey{key: k.pub, family: k.family}, nil
}

// WithKey runs fn with the raw private key under a read lock.
// fn must not retain the key.
func (k *PrivateKey) WithKey(fn func(priv crypto.PrivateKey) error) error {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.closed {
		return ErrKeyDestroyed
	}
	return fn(k.priv)
}

// Close destroys the handle. HSM-backed keys release their session.
// Closing twice is a no-op.
func (k *PrivateKey) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil
	}
	k.closed = true

	var err error
	if c, ok := k.priv.(io.Closer); ok {
		err = c.Close()
	}
	k.priv = nil
	k.pub = nil
	return err
}

// PublicKey is an owned verification key handle.
type PublicKey struct {
	mu     sync.RWMutex
	key    crypto.PublicKey
	family KeyFamily
	origin KeyOrigin
	closed bool
}

// NewPublicKey wraps a Go public key in a handle.
func NewPublicKey(pub crypto.PublicKey) (*PublicKey, error) {
	return NewPublicKeyWithOrigin(pub, KeyOrigin{})
}

// NewPublicKeyWithOrigin wraps a public key and records its provenance.
func NewPublicKeyWithOrigin(pub crypto.PublicKey, origin KeyOrigin) (*PublicKey, error) {
	family := FamilyOf(pub)
	if family == FamilyUnknown {
		return nil, fmt.Errorf("%w: unsupported public key type: %T", ErrKeyImportFailed, pub)
	}
	if err := checkPublicKeySize(pub); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyImportFailed, err)
	}
	return &PublicKey{key: pub, family: family, origin: origin}, nil
}

// checkPublicKeySize rejects byte-slice keys of the wrong length and empty
// RSA-PSS wrappers, which the primitives would otherwise panic on.
func checkPublicKeySize(pub crypto.PublicKey) error {
	switch k := pub.(type) {
	case *RSAPSSPublicKey:
		if k.PublicKey == nil {
			return fmt.Errorf("RSA-PSS public key is empty")
		}
	case ed25519.PublicKey:
		if len(k) != ed25519.PublicKeySize {
			return fmt.Errorf("invalid Ed25519 public key size: %d", len(k))
		}
	case ed448.PublicKey:
		if len(k) != ed448.PublicKeySize {
			return fmt.Errorf("invalid Ed448 public key size: %d", len(k))
		}
	}
	return nil
}

// Family returns the key family.
func (k *PublicKey) Family() KeyFamily {
	return k.family
}

// Origin returns the provenance recorded at creation.
func (k *PublicKey) Origin() KeyOrigin {
	return k.origin
}

// WithKey runs fn with the raw public key under a read lock.
// fn must not retain the key.
func (k *PublicKey) WithKey(fn func(pub crypto.PublicKey, origin KeyOrigin) error) error {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.closed {
		return ErrKeyDestroyed
	}
	return fn(k.key, k.origin)
}

// MarshalPEM encodes the key as a PKIX "PUBLIC KEY" PEM block.
func (k *PublicKey) MarshalPEM() ([]byte, error) {
	var out []byte
	err := k.WithKey(func(pub crypto.PublicKey, _ KeyOrigin) error {
		der, err := MarshalPublicKeyInfo(pub)
		if err != nil {
			return err
		}
		out = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
		return nil
	})
	return out, err
}

// Close destroys the handle. Closing twice is a no-op.
func (k *PublicKey) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.closed = true
	k.key = nil
	return nil
}
