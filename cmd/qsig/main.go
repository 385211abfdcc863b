// Command qsig signs and verifies digests with classical and post-quantum
// algorithms.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/remiblancher/qsig/internal/audit"
	"github.com/remiblancher/qsig/internal/config"
	"github.com/remiblancher/qsig/internal/crypto"
	"github.com/remiblancher/qsig/internal/logging"
)

// Build-time variables (injected by GoReleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags
var (
	configPath   string
	logLevel     string
	auditLogPath string
)

// Set by the root PersistentPreRunE for every command.
var (
	appConfig *config.Config
	logger    = zerolog.Nop()
	logCloser io.Closer

	// activeAuditFile is the audit log in use, empty when auditing is off.
	activeAuditFile string
)

// sigCh receives the signals handled by setupSignalHandler.
var sigCh = make(chan os.Signal, 1)

func main() {
	// Setup signal handler for clean PKCS#11 shutdown
	setupSignalHandler()

	err := rootCmd.Execute()
	shutdown()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupSignalHandler releases PKCS#11 sessions on SIGINT/SIGTERM. serve
// stops it and shuts down gracefully instead.
func setupSignalHandler() {
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		crypto.CloseAllPools()
		os.Exit(130)
	}()
}

var rootCmd = &cobra.Command{
	Use:   "qsig",
	Short: "Sign and verify digests with classical and post-quantum keys",
	Long: `qsig signs precomputed digests and verifies signatures with RSA, ECDSA,
EdDSA, ML-DSA (FIPS 204) and SLH-DSA (FIPS 205) keys.

Keys are read from PEM or DER files or from a PKCS#11 HSM. Verification keys
come from a public key or an X.509 certificate; CA certificates restricted
to certificate signing are refused for data unless --disable-ca-sign-check
is given.

Examples:
  # Generate a key and a self-signed certificate
  qsig keygen --algorithm ecdsa-p256 --out key.pem --cert cert.pem

  # Sign a SHA-256 digest
  qsig sign --key key.pem --algorithm ECDSA-SHA256 --digest 2cf24dba... --out sig.bin

  # Verify, inferring the algorithm from the certificate key
  qsig verify --cert cert.pem --digest-algorithm sha256 --in file.txt --signature sig.bin

  # Run the HTTP API
  qsig serve --config qsig.yaml`,
	Version:           fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to YAML config file (QSIG_* env vars override it)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&auditLogPath, "audit-log", "",
		"Path to audit log file (or set QSIG_AUDIT_LOG env var)")

	rootCmd.AddCommand(signCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(algorithmsCmd)
	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(hsmCmd)
}

// setup loads configuration and starts logging and auditing.
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	appConfig = cfg

	l, closer, err := logging.Init(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Output:     cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger = l.With().Str("command", cmd.Name()).Logger()
	logCloser = closer

	path := auditLogPath
	if path == "" {
		path = os.Getenv("QSIG_AUDIT_LOG")
	}
	if path == "" {
		path = cfg.Audit.File
	}
	if path != "" {
		if err := audit.InitFile(path); err != nil {
			return fmt.Errorf("failed to initialize audit log: %w", err)
		}
		logger.Debug().Str("path", path).Msg("audit log enabled")
	}
	activeAuditFile = path
	return nil
}

// shutdown closes the audit log, the log file and any HSM sessions. It runs
// after every command, including failed ones.
func shutdown() {
	if err := audit.Close(); err != nil {
		logger.Warn().Err(err).Msg("failed to close audit log")
	}
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
	crypto.CloseAllPools()
}
