package crypto

import (
	"fmt"
	"os"
	"strings"
)

// KeyProviderType identifies the key storage backend.
type KeyProviderType string

const (
	// KeyProviderTypeSoftware reads an encoded key from a file.
	KeyProviderTypeSoftware KeyProviderType = "software"

	// KeyProviderTypePKCS11 opens a key object in an HSM.
	KeyProviderTypePKCS11 KeyProviderType = "pkcs11"
)

// KeyStorageConfig locates a signing key.
type KeyStorageConfig struct {
	Type KeyProviderType `json:"type" yaml:"type"`

	// Software key storage
	KeyPath    string `json:"key_path,omitempty" yaml:"key_path,omitempty"`
	Passphrase string `json:"-" yaml:"-"`

	// PKCS#11 key storage, described by an HSM config file
	HSMConfigPath string `json:"hsm_config,omitempty" yaml:"hsm_config,omitempty"`
	KeyLabel      string `json:"key_label,omitempty" yaml:"key_label,omitempty"`
	KeyID         string `json:"key_id,omitempty" yaml:"key_id,omitempty"`
}

// KeyProvider loads a private key handle from a storage backend.
//
// Usage:
//
//	kp := crypto.NewKeyProvider(cfg)
//	key, err := kp.Load(cfg)
//	if err != nil {
//	    return err
//	}
//	defer key.Close()
type KeyProvider interface {
	Load(cfg KeyStorageConfig) (*PrivateKey, error)
}

// NewKeyProvider returns the provider for cfg.Type. An empty type means
// software.
func NewKeyProvider(cfg KeyStorageConfig) KeyProvider {
	if cfg.Type == KeyProviderTypePKCS11 {
		return PKCS11KeyProvider{}
	}
	return SoftwareKeyProvider{}
}

// LoadPrivateKey loads the key described by cfg with the matching provider.
func LoadPrivateKey(cfg KeyStorageConfig) (*PrivateKey, error) {
	return NewKeyProvider(cfg).Load(cfg)
}

// SoftwareKeyProvider loads PEM or DER keys from disk.
type SoftwareKeyProvider struct{}

var _ KeyProvider = SoftwareKeyProvider{}

// Load reads and imports the key file. The format is detected from content.
func (SoftwareKeyProvider) Load(cfg KeyStorageConfig) (*PrivateKey, error) {
	if cfg.KeyPath == "" {
		return nil, fmt.Errorf("key_path is required for software keys")
	}

	data, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	return ImportPrivateKey(data, DetectFormat(data), ResolvePassphrase(cfg.Passphrase))
}

// PKCS11KeyProvider opens keys held in an HSM.
type PKCS11KeyProvider struct{}

var _ KeyProvider = PKCS11KeyProvider{}

// Load opens the HSM key described by the HSM config file.
func (PKCS11KeyProvider) Load(cfg KeyStorageConfig) (*PrivateKey, error) {
	if cfg.HSMConfigPath == "" {
		return nil, fmt.Errorf("hsm_config is required for PKCS#11 keys")
	}

	hsmCfg, err := LoadHSMConfig(cfg.HSMConfigPath)
	if err != nil {
		return nil, err
	}

	p11Cfg, err := hsmCfg.ToPKCS11Config(cfg.KeyLabel, cfg.KeyID)
	if err != nil {
		return nil, err
	}

	signer, err := NewPKCS11Signer(*p11Cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open HSM key: %w", err)
	}

	key, err := NewPrivateKey(signer)
	if err != nil {
		_ = signer.Close()
		return nil, err
	}
	return key, nil
}

// ResolvePassphrase resolves "env:VAR_NAME" to the variable's value.
// Any other non-empty string is used literally.
func ResolvePassphrase(passphrase string) []byte {
	if passphrase == "" {
		return nil
	}
	if name, ok := strings.CutPrefix(passphrase, "env:"); ok && name != "" {
		return []byte(os.Getenv(name))
	}
	return []byte(passphrase)
}
