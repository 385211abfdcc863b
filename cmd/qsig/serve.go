package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/remiblancher/qsig/internal/api/router"
	"github.com/remiblancher/qsig/internal/api/server"
	"github.com/remiblancher/qsig/internal/api/service"
	"github.com/remiblancher/qsig/internal/cli"
	"github.com/remiblancher/qsig/internal/crypto"
	"github.com/remiblancher/qsig/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the signing and verification HTTP API",
	Long: `Start the REST API:

  GET  /health, /ready
  GET  /api/v1/algorithms
  POST /api/v1/algorithms/resolve
  POST /api/v1/verify, /api/v1/verify/batch
  POST /api/v1/sign   (only when a signing key is configured)

Settings come from the config file and QSIG_* environment variables; the
flags below override them.

Environment variables:
  QSIG_SERVER_HOST, QSIG_SERVER_PORT
  QSIG_SERVER_TLS_CERT, QSIG_SERVER_TLS_KEY
  QSIG_SIGNING_KEY_FILE, QSIG_SIGNING_KEY_PASSPHRASE (env:VAR allowed)

Examples:
  qsig serve --config qsig.yaml
  qsig serve --port 8080 --key signer.pem
  qsig serve --port 8443 --tls-cert server.crt --tls-key server.key`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveHost       string
	servePort       int
	serveTLSCert    string
	serveTLSKey     string
	serveKeyFile    string
	servePassphrase string
)

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on")
	serveCmd.Flags().StringVar(&serveTLSCert, "tls-cert", "", "TLS certificate file")
	serveCmd.Flags().StringVar(&serveTLSKey, "tls-key", "", "TLS private key file")
	serveCmd.Flags().StringVar(&serveKeyFile, "key", "", "Signing key for /api/v1/sign")
	serveCmd.Flags().StringVar(&servePassphrase, "passphrase", "", "Signing key passphrase (or env:VAR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	applyServeFlags()

	svc, closeKey, err := newSignatureService()
	if err != nil {
		return err
	}
	defer closeKey()

	handler := router.New(&router.Config{
		Version: version,
		Service: svc,
		Logger:  logger,
		CORS:    appConfig.Server.CORS,

		AuditFile: activeAuditFile,
	})
	srv := server.New(server.FromConfig(appConfig.Server), handler, logger)

	// serve shuts down gracefully instead of exiting on the first signal.
	signal.Stop(sigCh)
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}

func applyServeFlags() {
	if serveHost != "" {
		appConfig.Server.Host = serveHost
	}
	if servePort != 0 {
		appConfig.Server.Port = servePort
	}
	if serveTLSCert != "" {
		appConfig.Server.TLSCert = serveTLSCert
	}
	if serveTLSKey != "" {
		appConfig.Server.TLSKey = serveTLSKey
	}
	if serveKeyFile != "" {
		appConfig.Signing.KeyFile = serveKeyFile
		appConfig.Signing.HSMConfig = ""
	}
	if servePassphrase != "" {
		appConfig.Signing.KeyPassphrase = servePassphrase
	}
}

// newSignatureService builds the service, opening the signing key when one
// is configured. The returned func releases the key.
func newSignatureService() (*service.SignatureService, func(), error) {
	opts := service.Options{
		VerifyFlags:  appConfig.Verify.Flags(),
		BatchWorkers: appConfig.Verify.BatchWorkers,
	}
	closeKey := func() {}

	if appConfig.Signing.Enabled() {
		storage := appConfig.Signing.KeyStorage()
		key, err := cli.LoadSigningKey(storage)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load signing key: %w", err)
		}
		closeKey = func() { _ = key.Close() }

		opts.Key = key
		opts.KeyRef = cli.KeyRef(storage)
		if name := appConfig.Signing.DefaultAlgorithm; name != "" {
			alg, err := crypto.ParseAlgorithm(name)
			if err != nil {
				closeKey()
				return nil, nil, err
			}
			opts.DefaultAlgorithm = alg
		}
		logger.Info().
			Str("key", logging.SafeValue("key", opts.KeyRef)).
			Str("family", key.Family().String()).
			Msg("signing enabled")
	} else {
		logger.Info().Msg("no signing key configured, /api/v1/sign disabled")
	}

	return service.NewSignatureService(opts), closeKey, nil
}
