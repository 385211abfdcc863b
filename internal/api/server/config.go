// Package server provides HTTP server configuration and lifecycle management.
package server

import (
	"net"
	"strconv"
	"time"

	"github.com/remiblancher/qsig/internal/config"
)

// Config holds the server configuration.
type Config struct {
	Host string
	Port int

	// TLS configuration (optional)
	TLSCert string
	TLSKey  string

	// Timeouts
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:            8443,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// FromConfig builds a server Config from the server section of the
// application configuration.
func FromConfig(sc config.ServerConfig) *Config {
	cfg := DefaultConfig()
	cfg.Host = sc.Host
	cfg.Port = sc.Port
	cfg.TLSCert = sc.TLSCert
	cfg.TLSKey = sc.TLSKey
	if sc.ReadTimeout > 0 {
		cfg.ReadTimeout = sc.ReadTimeout
	}
	if sc.WriteTimeout > 0 {
		cfg.WriteTimeout = sc.WriteTimeout
	}
	return cfg
}

// Address returns the listen address.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// TLSEnabled reports whether both TLS files are set.
func (c *Config) TLSEnabled() bool {
	return c.TLSCert != "" && c.TLSKey != ""
}
