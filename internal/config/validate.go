package config

import (
	"strings"

	"github.com/remiblancher/qsig/internal/crypto"
)

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"auto", "json", "console"}
)

// Validate checks that cfg is usable.
func Validate(cfg *Config) error {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return &ValidationError{Field: "server.port", Message: "must be between 0 and 65535"}
	}
	if (cfg.Server.TLSCert == "") != (cfg.Server.TLSKey == "") {
		return &ValidationError{Field: "server.tls_cert", Message: "tls_cert and tls_key must be set together"}
	}
	if cfg.Server.ReadTimeout < 0 || cfg.Server.WriteTimeout < 0 {
		return &ValidationError{Field: "server.read_timeout", Message: "timeouts must not be negative"}
	}

	if cfg.Signing.KeyFile != "" && cfg.Signing.HSMConfig != "" {
		return &ValidationError{Field: "signing", Message: "key_file and hsm_config are mutually exclusive"}
	}
	if cfg.Signing.DefaultAlgorithm != "" {
		if _, err := crypto.ParseAlgorithm(cfg.Signing.DefaultAlgorithm); err != nil {
			return &ValidationError{Field: "signing.default_algorithm", Message: err.Error()}
		}
	}

	if cfg.Verify.BatchWorkers < 0 {
		return &ValidationError{Field: "verify.batch_workers", Message: "must not be negative"}
	}

	if !oneOf(cfg.Log.Level, validLevels) {
		return &ValidationError{Field: "log.level", Message: "must be one of " + strings.Join(validLevels, ", ")}
	}
	if !oneOf(cfg.Log.Format, validFormats) {
		return &ValidationError{Field: "log.format", Message: "must be one of " + strings.Join(validFormats, ", ")}
	}
	if cfg.Log.MaxSizeMB < 0 || cfg.Log.MaxBackups < 0 {
		return &ValidationError{Field: "log.max_size_mb", Message: "rotation limits must not be negative"}
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return true
		}
	}
	return false
}
