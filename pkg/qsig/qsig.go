// Package qsig provides the public API for qsig.
// It re-exports the signing, verification and key import operations of the
// internal packages.
package qsig

import (
	"context"

	"github.com/remiblancher/qsig/internal/crypto"
	"github.com/remiblancher/qsig/internal/signature"
	"github.com/remiblancher/qsig/internal/x509util"
)

// Re-export types
type (
	// AlgorithmID identifies a signature algorithm.
	AlgorithmID = crypto.AlgorithmID

	// KeyFamily is the family of a public or private key.
	KeyFamily = crypto.KeyFamily

	// DigestKind identifies a hash function.
	DigestKind = crypto.DigestKind

	// Format selects PEM or DER encoding.
	Format = crypto.Format

	// PrivateKey is an owned signing key handle.
	PrivateKey = crypto.PrivateKey

	// PublicKey is an owned verification key handle.
	PublicKey = crypto.PublicKey

	// Certificate is an owned X.509 certificate handle.
	Certificate = x509util.Certificate

	// SignFlags modify signing.
	SignFlags = signature.SignFlags

	// VerifyFlags modify verification policy.
	VerifyFlags = signature.VerifyFlags

	// BatchItem is one verification in a batch.
	BatchItem = signature.BatchItem

	// BatchResult is the outcome of a BatchItem.
	BatchResult = signature.BatchResult

	// SignatureError carries the operation and algorithm of a failure.
	SignatureError = crypto.SignatureError

	// KeyStorageConfig locates a signing key on disk or in an HSM.
	KeyStorageConfig = crypto.KeyStorageConfig
)

// Encodings.
const (
	FormatPEM = crypto.FormatPEM
	FormatDER = crypto.FormatDER
)

// Flags.
const (
	SignReproducible         = signature.SignReproducible
	VerifyDisableCASignCheck = signature.VerifyDisableCASignCheck
	VerifyRejectSHA1         = signature.VerifyRejectSHA1
)

// Key families.
const (
	FamilyRSA        = crypto.FamilyRSA
	FamilyRSAPSS     = crypto.FamilyRSAPSS
	FamilyECDSA      = crypto.FamilyECDSA
	FamilyDSA        = crypto.FamilyDSA
	FamilyEd25519    = crypto.FamilyEd25519
	FamilyEd448      = crypto.FamilyEd448
	FamilyMLDSA44    = crypto.FamilyMLDSA44
	FamilyMLDSA65    = crypto.FamilyMLDSA65
	FamilyMLDSA87    = crypto.FamilyMLDSA87
	FamilySLHDSA128s = crypto.FamilySLHDSA128s
	FamilySLHDSA128f = crypto.FamilySLHDSA128f
	FamilySLHDSA192s = crypto.FamilySLHDSA192s
	FamilySLHDSA192f = crypto.FamilySLHDSA192f
	FamilySLHDSA256s = crypto.FamilySLHDSA256s
	FamilySLHDSA256f = crypto.FamilySLHDSA256f
)

// Digests.
const (
	DigestNone     = crypto.DigestNone
	DigestSHA1     = crypto.DigestSHA1
	DigestSHA224   = crypto.DigestSHA224
	DigestSHA256   = crypto.DigestSHA256
	DigestSHA384   = crypto.DigestSHA384
	DigestSHA512   = crypto.DigestSHA512
	DigestSHA3_256 = crypto.DigestSHA3_256
	DigestSHA3_384 = crypto.DigestSHA3_384
	DigestSHA3_512 = crypto.DigestSHA3_512
	DigestSHAKE256 = crypto.DigestSHAKE256
)

// Sentinel errors.
var (
	ErrUnsupportedCombination      = crypto.ErrUnsupportedCombination
	ErrInvalidInputLength          = crypto.ErrInvalidInputLength
	ErrAlgorithmKeyMismatch        = crypto.ErrAlgorithmKeyMismatch
	ErrSigningFailed               = crypto.ErrSigningFailed
	ErrSignatureVerificationFailed = crypto.ErrSignatureVerificationFailed
	ErrKeyImportFailed             = crypto.ErrKeyImportFailed
	ErrCertificateImportFailed     = crypto.ErrCertificateImportFailed
	ErrNoPublicKey                 = crypto.ErrNoPublicKey
	ErrKeyDestroyed                = crypto.ErrKeyDestroyed
	ErrCASignRestricted            = crypto.ErrCASignRestricted
	ErrInsecureAlgorithm           = crypto.ErrInsecureAlgorithm
)

// Sign signs a precomputed digest.
func Sign(key *PrivateKey, alg AlgorithmID, flags SignFlags, digest []byte) ([]byte, error) {
	return signature.Sign(key, alg, flags, digest)
}

// SignData hashes data with the algorithm's digest and signs it.
func SignData(key *PrivateKey, alg AlgorithmID, flags SignFlags, data []byte) ([]byte, error) {
	return signature.SignData(key, alg, flags, data)
}

// Verify checks a signature over a precomputed digest.
func Verify(key *PublicKey, alg AlgorithmID, flags VerifyFlags, digest, sig []byte) error {
	return signature.Verify(key, alg, flags, digest, sig)
}

// VerifyData hashes data with the algorithm's digest and verifies it.
func VerifyData(key *PublicKey, alg AlgorithmID, flags VerifyFlags, data, sig []byte) error {
	return signature.VerifyData(key, alg, flags, data, sig)
}

// VerifyBatch verifies independent items concurrently.
func VerifyBatch(ctx context.Context, items []BatchItem, workers int) ([]BatchResult, error) {
	return signature.VerifyBatch(ctx, items, workers)
}

// Resolve returns the canonical algorithm for a key family and digest.
func Resolve(family KeyFamily, digest DigestKind) (AlgorithmID, error) {
	return crypto.Resolve(family, digest)
}

// Name returns the display name of an algorithm, or "UNKNOWN".
func Name(alg AlgorithmID) string {
	return crypto.Name(alg)
}

// ParseAlgorithm parses an algorithm id or display name.
func ParseAlgorithm(s string) (AlgorithmID, error) {
	return crypto.ParseAlgorithm(s)
}

// ImportPrivateKey parses a private key.
func ImportPrivateKey(encoded []byte, format Format, passphrase []byte) (*PrivateKey, error) {
	return crypto.ImportPrivateKey(encoded, format, passphrase)
}

// LoadPrivateKey loads a software or PKCS#11 key.
func LoadPrivateKey(cfg KeyStorageConfig) (*PrivateKey, error) {
	return crypto.LoadPrivateKey(cfg)
}

// ImportPublicKey parses a SubjectPublicKeyInfo.
func ImportPublicKey(encoded []byte, format Format) (*PublicKey, error) {
	return crypto.ImportPublicKey(encoded, format)
}

// ImportCertificate parses an X.509 certificate.
func ImportCertificate(encoded []byte, format Format) (*Certificate, error) {
	return x509util.ImportCertificate(encoded, format)
}

// PublicKeyFromCertificate extracts a certificate's subject public key.
func PublicKeyFromCertificate(cert *Certificate, flags VerifyFlags) (*PublicKey, error) {
	return x509util.PublicKeyFromCertificate(cert, flags)
}
