package x509util

import (
	gocrypto "crypto"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"time"

	"github.com/remiblancher/qsig/internal/crypto"
)

// CertificateRequest holds the parameters for creating a certificate.
type CertificateRequest struct {
	Subject pkix.Name

	NotBefore time.Time
	NotAfter  time.Time

	// KeyUsage of zero omits the extension entirely.
	KeyUsage    x509.KeyUsage
	ExtKeyUsage []x509.ExtKeyUsage

	IsCA                  bool
	MaxPathLen            int
	MaxPathLenZero        bool
	BasicConstraintsValid bool
}

// CertificateBuilder builds X.509 certificates for signing keys. It is used
// to produce certificates that carry a verification key, including the
// CA-constrained shape the verifier restricts.
type CertificateBuilder struct {
	request *CertificateRequest
}

// NewCertificateBuilder creates a new certificate builder.
func NewCertificateBuilder() *CertificateBuilder {
	now := time.Now()
	return &CertificateBuilder{
		request: &CertificateRequest{
			NotBefore:             now,
			NotAfter:              now.AddDate(1, 0, 0),
			BasicConstraintsValid: true,
		},
	}
}

// CommonName sets the subject common name.
func (b *CertificateBuilder) CommonName(cn string) *CertificateBuilder {
	b.request.Subject.CommonName = cn
	return b
}

// ValidFor sets the validity duration from now.
func (b *CertificateBuilder) ValidFor(d time.Duration) *CertificateBuilder {
	b.request.NotBefore = time.Now()
	b.request.NotAfter = b.request.NotBefore.Add(d)
	return b
}

// CA marks this as a CA certificate restricted to certificate and CRL
// signing. Keys from such certificates are CA-constrained.
func (b *CertificateBuilder) CA(maxPathLen int) *CertificateBuilder {
	b.request.IsCA = true
	b.request.MaxPathLen = maxPathLen
	b.request.MaxPathLenZero = maxPathLen == 0
	b.request.BasicConstraintsValid = true
	b.request.KeyUsage = x509.KeyUsageCertSign | x509.KeyUsageCRLSign
	return b
}

// EndEntity marks this as an end-entity (non-CA) certificate.
func (b *CertificateBuilder) EndEntity() *CertificateBuilder {
	b.request.IsCA = false
	b.request.MaxPathLen = -1
	b.request.BasicConstraintsValid = true
	return b
}

// DataSigning configures an end-entity certificate for data signatures.
func (b *CertificateBuilder) DataSigning() *CertificateBuilder {
	b.request.KeyUsage = x509.KeyUsageDigitalSignature
	b.request.ExtKeyUsage = nil
	return b.EndEntity()
}

// CodeSigning configures the certificate for code signing.
func (b *CertificateBuilder) CodeSigning() *CertificateBuilder {
	b.request.KeyUsage = x509.KeyUsageDigitalSignature
	b.request.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageCodeSigning}
	return b.EndEntity()
}

// Build creates an x509.Certificate template from the request.
func (b *CertificateBuilder) Build() (*x509.Certificate, error) {
	serial, err := generateSerialNumber()
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	return &x509.Certificate{
		SerialNumber:          serial,
		Subject:               b.request.Subject,
		NotBefore:             b.request.NotBefore,
		NotAfter:              b.request.NotAfter,
		KeyUsage:              b.request.KeyUsage,
		ExtKeyUsage:           b.request.ExtKeyUsage,
		IsCA:                  b.request.IsCA,
		MaxPathLen:            b.request.MaxPathLen,
		MaxPathLenZero:        b.request.MaxPathLenZero,
		BasicConstraintsValid: b.request.BasicConstraintsValid,
	}, nil
}

// SelfSign creates a self-signed certificate for key.
//
// Only key types crypto/x509 can sign with are accepted (RSA, ECDSA and
// Ed25519).
func (b *CertificateBuilder) SelfSign(key *crypto.PrivateKey) (*Certificate, error) {
	var der []byte
	err := key.WithKey(func(priv gocrypto.PrivateKey) error {
		signer, ok := priv.(gocrypto.Signer)
		if !ok {
			return fmt.Errorf("key type %T cannot sign certificates", priv)
		}
		var err error
		der, err = b.createDER(signer)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ParseCertificateDER(der)
}

func (b *CertificateBuilder) createDER(signer gocrypto.Signer) ([]byte, error) {
	pub := signer.Public()
	switch crypto.FamilyOf(pub) {
	case crypto.FamilyRSA, crypto.FamilyECDSA, crypto.FamilyEd25519:
	default:
		return nil, fmt.Errorf("unsupported key for certificates: %s", crypto.FamilyOf(pub))
	}

	template, err := b.Build()
	if err != nil {
		return nil, err
	}

	if skid, err := SubjectKeyID(pub); err == nil {
		template.SubjectKeyId = skid
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, pub, signer)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}
	return der, nil
}

// generateSerialNumber generates a random 128-bit serial number.
func generateSerialNumber() (*big.Int, error) {
	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	return rand.Int(rand.Reader, serialNumberLimit)
}

// SubjectKeyID computes the subject key identifier from a public key.
// Uses the first 160 bits of SHA-256 over the SubjectPublicKeyInfo.
func SubjectKeyID(pub gocrypto.PublicKey) ([]byte, error) {
	spki, err := crypto.MarshalPublicKeyInfo(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}

	hash := sha256.Sum256(spki)
	return hash[:20], nil
}
