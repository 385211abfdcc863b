// Package x509util adapts X.509 certificates into verification key handles.
package x509util

import (
	gocrypto "crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"sync"

	"github.com/remiblancher/qsig/internal/crypto"
	"github.com/remiblancher/qsig/internal/signature"
)

// Certificate is an owned, parsed X.509 certificate handle.
type Certificate struct {
	mu     sync.RWMutex
	cert   *x509.Certificate
	closed bool
}

// ImportCertificate parses a PEM or DER certificate. Only the first PEM
// block is read.
func ImportCertificate(encoded []byte, format crypto.Format) (*Certificate, error) {
	der := encoded
	if format == crypto.FormatPEM {
		block, _ := pem.Decode(encoded)
		if block == nil {
			return nil, importError(fmt.Errorf("no PEM block found"))
		}
		if block.Type != "CERTIFICATE" {
			return nil, importError(fmt.Errorf("unexpected PEM type: %s", block.Type))
		}
		der = block.Bytes
	}
	return ParseCertificateDER(der)
}

// ParseCertificateDER parses a DER certificate.
func ParseCertificateDER(der []byte) (*Certificate, error) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, importError(err)
	}
	return &Certificate{cert: cert}, nil
}

func importError(err error) error {
	return &crypto.SignatureError{Op: "import", Err: fmt.Errorf("%w: %w", crypto.ErrCertificateImportFailed, err)}
}

// X509 returns the parsed certificate. The result must not be modified.
func (c *Certificate) X509() (*x509.Certificate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, crypto.ErrKeyDestroyed
	}
	return c.cert, nil
}

// Subject returns the certificate subject as a string.
func (c *Certificate) Subject() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ""
	}
	return c.cert.Subject.String()
}

// IsCAConstrained reports whether the certificate's key is restricted from
// verifying data signatures.
func (c *Certificate) IsCAConstrained() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return !c.closed && IsCAConstrained(c.cert)
}

// MarshalPEM encodes the certificate as PEM.
func (c *Certificate) MarshalPEM() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, crypto.ErrKeyDestroyed
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: c.cert.Raw}), nil
}

// Close releases the certificate. It is idempotent.
func (c *Certificate) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.cert = nil
	return nil
}

// IsCAConstrained reports whether cert is a CA (BasicConstraints cA=TRUE)
// that carries a KeyUsage extension without digitalSignature. A CA without
// a KeyUsage extension is unrestricted.
func IsCAConstrained(cert *x509.Certificate) bool {
	if cert == nil || !cert.BasicConstraintsValid || !cert.IsCA {
		return false
	}
	if cert.KeyUsage == 0 {
		return false
	}
	return cert.KeyUsage&x509.KeyUsageDigitalSignature == 0
}

// PublicKeyFromCertificate extracts the subject public key as a handle that
// remembers whether it came from a CA-constrained certificate. Keys that
// crypto/x509 cannot decode (Ed448, ML-DSA, SLH-DSA) are read from the
// SubjectPublicKeyInfo directly.
//
// The verify flags are accepted for API symmetry and do not change the
// extracted key; the CA gate is applied at verification time.
func PublicKeyFromCertificate(cert *Certificate, _ signature.VerifyFlags) (*crypto.PublicKey, error) {
	x, err := cert.X509()
	if err != nil {
		return nil, &crypto.SignatureError{Op: "import", Err: err}
	}

	pub, err := subjectPublicKey(x)
	if err != nil {
		return nil, &crypto.SignatureError{Op: "import", Err: fmt.Errorf("%w: %w", crypto.ErrNoPublicKey, err)}
	}

	origin := crypto.KeyOrigin{
		Certificate:   true,
		CAConstrained: IsCAConstrained(x),
		Subject:       x.Subject.String(),
	}
	key, err := crypto.NewPublicKeyWithOrigin(pub, origin)
	if err != nil {
		return nil, &crypto.SignatureError{Op: "import", Err: fmt.Errorf("%w: %w", crypto.ErrNoPublicKey, err)}
	}
	return key, nil
}

func subjectPublicKey(cert *x509.Certificate) (gocrypto.PublicKey, error) {
	if cert.PublicKey != nil && crypto.FamilyOf(cert.PublicKey) != crypto.FamilyUnknown {
		return cert.PublicKey, nil
	}
	if len(cert.RawSubjectPublicKeyInfo) == 0 {
		return nil, fmt.Errorf("certificate has no subject public key info")
	}
	return crypto.ParsePublicKeyInfo(cert.RawSubjectPublicKeyInfo)
}
