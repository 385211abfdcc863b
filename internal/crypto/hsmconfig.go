package crypto

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// HSMConfig is the YAML description of an HSM-held signing key.
//
//	type: pkcs11
//	pkcs11:
//	  lib: /usr/lib/softhsm/libsofthsm2.so
//	  token: qsig
//	  pin_env: QSIG_HSM_PIN
//	  key_label: signing-key
type HSMConfig struct {
	Type   string         `yaml:"type"`
	PKCS11 PKCS11Settings `yaml:"pkcs11"`
}

// PKCS11Settings holds PKCS#11 specific configuration.
type PKCS11Settings struct {
	// Lib is the path to the PKCS#11 library (.so/.dylib/.dll)
	Lib string `yaml:"lib"`

	// Token identifies the token by label
	Token string `yaml:"token"`

	// TokenSerial identifies the token by serial number
	TokenSerial string `yaml:"token_serial"`

	// Slot identifies the token by slot ID
	Slot *uint `yaml:"slot"`

	// PinEnv names the environment variable holding the user PIN
	PinEnv string `yaml:"pin_env"`

	// KeyLabel and KeyID (hex) select the private key object.
	KeyLabel string `yaml:"key_label"`
	KeyID    string `yaml:"key_id"`
}

// PKCS11Config is the resolved configuration used to open an HSM key.
type PKCS11Config struct {
	ModulePath  string
	TokenLabel  string
	TokenSerial string
	PIN         string
	KeyLabel    string
	KeyID       string // hex CKA_ID
	SlotID      *uint
}

// LoadHSMConfig loads and validates an HSM configuration file.
func LoadHSMConfig(path string) (*HSMConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read HSM config file: %w", err)
	}
	return ParseHSMConfig(data)
}

// ParseHSMConfig parses and validates HSM configuration YAML.
func ParseHSMConfig(data []byte) (*HSMConfig, error) {
	var cfg HSMConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse HSM config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid HSM config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the HSM configuration is usable.
func (c *HSMConfig) Validate() error {
	if c.Type != "pkcs11" {
		return fmt.Errorf("unsupported HSM type: %s (only 'pkcs11' is supported)", c.Type)
	}

	if c.PKCS11.Lib == "" {
		return fmt.Errorf("pkcs11.lib is required")
	}

	if c.PKCS11.Token == "" && c.PKCS11.TokenSerial == "" && c.PKCS11.Slot == nil {
		return fmt.Errorf("at least one of pkcs11.token, pkcs11.token_serial, or pkcs11.slot is required")
	}

	if c.PKCS11.PinEnv == "" {
		return fmt.Errorf("pkcs11.pin_env is required (PIN must be provided via environment variable)")
	}

	return nil
}

// GetPIN reads the PIN from the configured environment variable.
func (c *HSMConfig) GetPIN() (string, error) {
	pin := os.Getenv(c.PKCS11.PinEnv)
	if pin == "" {
		return "", fmt.Errorf("environment variable %s is not set or empty", c.PKCS11.PinEnv)
	}
	return pin, nil
}

// ToPKCS11Config resolves the PIN and key selection. Non-empty keyLabel
// and keyID override the values from the file.
func (c *HSMConfig) ToPKCS11Config(keyLabel, keyID string) (*PKCS11Config, error) {
	pin, err := c.GetPIN()
	if err != nil {
		return nil, err
	}

	if keyLabel == "" {
		keyLabel = c.PKCS11.KeyLabel
	}
	if keyID == "" {
		keyID = c.PKCS11.KeyID
	}
	if keyLabel == "" && keyID == "" {
		return nil, fmt.Errorf("at least one of key_label or key_id is required")
	}

	return &PKCS11Config{
		ModulePath:  c.PKCS11.Lib,
		TokenLabel:  c.PKCS11.Token,
		TokenSerial: c.PKCS11.TokenSerial,
		PIN:         pin,
		KeyLabel:    keyLabel,
		KeyID:       keyID,
		SlotID:      c.PKCS11.Slot,
	}, nil
}
