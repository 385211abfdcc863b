// Package config loads qsig configuration from a YAML file and QSIG_
// environment variables.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/remiblancher/qsig/internal/crypto"
	"github.com/remiblancher/qsig/internal/signature"
)

// Config is the complete qsig configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Signing SigningConfig `mapstructure:"signing" yaml:"signing"`
	Verify  VerifyConfig  `mapstructure:"verify" yaml:"verify"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Audit   AuditConfig   `mapstructure:"audit" yaml:"audit"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host         string        `mapstructure:"host" yaml:"host"`
	Port         int           `mapstructure:"port" yaml:"port"`
	TLSCert      string        `mapstructure:"tls_cert" yaml:"tls_cert"`
	TLSKey       string        `mapstructure:"tls_key" yaml:"tls_key"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// CORS lists the allowed origins. Empty disables CORS headers.
	CORS []string `mapstructure:"cors" yaml:"cors"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// SigningConfig locates the server's signing key.
type SigningConfig struct {
	KeyFile string `mapstructure:"key_file" yaml:"key_file"`

	// KeyPassphrase may be a literal or "env:NAME".
	KeyPassphrase string `mapstructure:"key_passphrase" yaml:"key_passphrase"`

	HSMConfig        string `mapstructure:"hsm_config" yaml:"hsm_config"`
	KeyLabel         string `mapstructure:"key_label" yaml:"key_label"`
	KeyID            string `mapstructure:"key_id" yaml:"key_id"`
	DefaultAlgorithm string `mapstructure:"default_algorithm" yaml:"default_algorithm"`
}

// Enabled reports whether a signing key is configured.
func (s SigningConfig) Enabled() bool {
	return s.KeyFile != "" || s.HSMConfig != ""
}

// KeyStorage converts the section into a key provider configuration.
func (s SigningConfig) KeyStorage() crypto.KeyStorageConfig {
	if s.HSMConfig != "" {
		return crypto.KeyStorageConfig{
			Type:          crypto.KeyProviderTypePKCS11,
			HSMConfigPath: s.HSMConfig,
			KeyLabel:      s.KeyLabel,
			KeyID:         s.KeyID,
		}
	}
	return crypto.KeyStorageConfig{
		Type:       crypto.KeyProviderTypeSoftware,
		KeyPath:    s.KeyFile,
		Passphrase: s.KeyPassphrase,
	}
}

// VerifyConfig sets verification policy defaults.
type VerifyConfig struct {
	RejectSHA1   bool `mapstructure:"reject_sha1" yaml:"reject_sha1"`
	BatchWorkers int  `mapstructure:"batch_workers" yaml:"batch_workers"`
}

// Flags returns the verify flags every request starts from.
func (v VerifyConfig) Flags() signature.VerifyFlags {
	var flags signature.VerifyFlags
	if v.RejectSHA1 {
		flags |= signature.VerifyRejectSHA1
	}
	return flags
}

// LogConfig configures technical logging.
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"` // auto, json, console
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

// AuditConfig configures the audit trail. An empty file disables it.
type AuditConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8443,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Verify: VerifyConfig{},
		Log: LogConfig{
			Level:      "info",
			Format:     "auto",
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
	}
}

// ValidationError describes an invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
