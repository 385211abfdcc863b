// Package cli holds the file and key loading helpers shared by the qsig
// commands.
package cli

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/remiblancher/qsig/internal/audit"
	"github.com/remiblancher/qsig/internal/crypto"
	"github.com/remiblancher/qsig/internal/x509util"
)

// StdioPath selects stdin or stdout in place of a file.
const StdioPath = "-"

// ReadInput reads a file, or stdin for "-".
func ReadInput(path string, stdin io.Reader) ([]byte, error) {
	if path == StdioPath {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// WriteOutput writes data to path, or to stdout when path is empty or "-".
func WriteOutput(path string, stdout io.Writer, data []byte, perm os.FileMode) error {
	if path == "" || path == StdioPath {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// DecodeHex decodes a hex string, ignoring surrounding space, colons and an
// optional 0x prefix.
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	s = strings.ReplaceAll(s, ":", "")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return b, nil
}

// ReadSignature reads a signature file. Files holding only hex or base64
// text are decoded; anything else is taken as raw bytes.
func ReadSignature(path string, stdin io.Reader) ([]byte, error) {
	data, err := ReadInput(path, stdin)
	if err != nil {
		return nil, err
	}
	if b, err := DecodeHex(string(data)); err == nil && len(b) > 0 {
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data))); err == nil && len(b) > 0 {
		return b, nil
	}
	return data, nil
}

// LoadCertificate reads a PEM or DER certificate and audits the import.
func LoadCertificate(path string) (*x509util.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate file: %w", err)
	}

	cert, err := x509util.ImportCertificate(data, crypto.DetectFormat(data))
	subject := ""
	if cert != nil {
		subject = cert.Subject()
	}
	if auditErr := audit.LogCertImported(path, subject, err); auditErr != nil {
		if cert != nil {
			_ = cert.Close()
		}
		return nil, auditErr
	}
	if err != nil {
		return nil, err
	}
	return cert, nil
}

// LoadPublicKey reads a PEM or DER public key and audits the import.
func LoadPublicKey(path string) (*crypto.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}

	key, err := crypto.ImportPublicKey(data, crypto.DetectFormat(data))
	family := ""
	if key != nil {
		family = key.Family().String()
	}
	if auditErr := audit.LogKeyImported(path, family, err); auditErr != nil {
		if key != nil {
			_ = key.Close()
		}
		return nil, auditErr
	}
	if err != nil {
		return nil, err
	}
	return key, nil
}

// LoadVerificationKey loads exactly one of a certificate or a public key.
// The returned subject is empty for bare public keys.
func LoadVerificationKey(certPath, pubPath string) (*crypto.PublicKey, string, error) {
	switch {
	case certPath != "" && pubPath != "":
		return nil, "", fmt.Errorf("--cert and --pubkey are mutually exclusive")
	case certPath != "":
		cert, err := LoadCertificate(certPath)
		if err != nil {
			return nil, "", err
		}
		defer func() { _ = cert.Close() }()

		key, err := x509util.PublicKeyFromCertificate(cert, 0)
		if err != nil {
			return nil, "", err
		}
		return key, cert.Subject(), nil
	case pubPath != "":
		key, err := LoadPublicKey(pubPath)
		return key, "", err
	}
	return nil, "", fmt.Errorf("either --cert or --pubkey is required")
}

// LoadSigningKey opens the key described by cfg. A passphrase failure is
// recorded as an authentication failure; every other outcome as a key
// import.
func LoadSigningKey(cfg crypto.KeyStorageConfig) (*crypto.PrivateKey, error) {
	ref := KeyRef(cfg)

	key, err := crypto.LoadPrivateKey(cfg)
	if errors.Is(err, crypto.ErrPassphrase) {
		if auditErr := audit.LogAuthFailed(ref, "wrong or missing key passphrase"); auditErr != nil {
			return nil, auditErr
		}
		return nil, err
	}

	family := ""
	if key != nil {
		family = key.Family().String()
	}
	if auditErr := audit.LogKeyImported(ref, family, err); auditErr != nil {
		if key != nil {
			_ = key.Close()
		}
		return nil, auditErr
	}
	if err != nil {
		return nil, err
	}
	return key, nil
}

// KeyRef names a key location for logs and audit records.
func KeyRef(cfg crypto.KeyStorageConfig) string {
	if cfg.Type == crypto.KeyProviderTypePKCS11 {
		if cfg.KeyLabel != "" {
			return "pkcs11:" + cfg.KeyLabel
		}
		return "pkcs11:id=" + cfg.KeyID
	}
	return cfg.KeyPath
}
