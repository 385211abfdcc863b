package main

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/remiblancher/qsig/internal/audit"
	"github.com/remiblancher/qsig/internal/cli"
	"github.com/remiblancher/qsig/internal/crypto"
	"github.com/remiblancher/qsig/internal/signature"
)

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign a digest or a file",
	Long: `Sign a precomputed digest (--digest) or the contents of a file (--in).

With --digest the value is signed as given: it must be exactly as long as
the algorithm's digest. With --in the file is hashed with the algorithm's
digest first; pure schemes (EdDSA, ML-DSA, SLH-DSA) sign the file itself.

The key comes from --key, --hsm-config or the signing section of the config
file. The algorithm comes from --algorithm, --digest-algorithm (resolved
against the key family), signing.default_algorithm, or the key family for
pure schemes.

Examples:
  qsig sign --key key.pem --algorithm ECDSA-SHA256 --digest 2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824
  qsig sign --key rsa.pem --digest-algorithm sha384 --in report.pdf --out report.sig
  qsig sign --key mldsa.pem --in firmware.bin --encoding raw --out firmware.sig

  export HSM_PIN="****"
  qsig sign --hsm-config hsm.yaml --key-label signer --algorithm ECDSA-SHA384 --in data.bin`,
	RunE: runSign,
}

var (
	signKeyFile         string
	signPassphrase      string
	signHSMConfig       string
	signKeyLabel        string
	signKeyID           string
	signAlgorithm       string
	signDigestAlgorithm string
	signDigest          string
	signInput           string
	signReproducible    bool
	signOutput          string
	signEncoding        string
)

func init() {
	signCmd.Flags().StringVar(&signKeyFile, "key", "", "Private key file (PEM or DER)")
	signCmd.Flags().StringVar(&signPassphrase, "passphrase", "", "Key passphrase (or env:VAR)")
	signCmd.Flags().StringVar(&signHSMConfig, "hsm-config", "", "HSM configuration file (PKCS#11)")
	signCmd.Flags().StringVar(&signKeyLabel, "key-label", "", "HSM key label")
	signCmd.Flags().StringVar(&signKeyID, "key-id", "", "HSM key ID (hex)")
	signCmd.Flags().StringVarP(&signAlgorithm, "algorithm", "a", "", "Signature algorithm, e.g. ECDSA-SHA256")
	signCmd.Flags().StringVar(&signDigestAlgorithm, "digest-algorithm", "", "Digest to resolve the algorithm from the key family")
	signCmd.Flags().StringVar(&signDigest, "digest", "", "Precomputed digest (hex)")
	signCmd.Flags().StringVar(&signInput, "in", "", "File to hash and sign (- for stdin)")
	signCmd.Flags().BoolVar(&signReproducible, "reproducible", false, "Deterministic signatures where the scheme allows it")
	signCmd.Flags().StringVarP(&signOutput, "out", "o", "", "Signature output file (default: stdout)")
	signCmd.Flags().StringVar(&signEncoding, "encoding", "hex", "Signature encoding: hex, base64, raw")

	signCmd.MarkFlagsMutuallyExclusive("key", "hsm-config")
	signCmd.MarkFlagsMutuallyExclusive("algorithm", "digest-algorithm")
	signCmd.MarkFlagsMutuallyExclusive("digest", "in")
	signCmd.MarkFlagsOneRequired("digest", "in")
}

func runSign(cmd *cobra.Command, args []string) error {
	encode, err := signatureEncoder(signEncoding)
	if err != nil {
		return err
	}

	storage, err := signingKeyStorage()
	if err != nil {
		return err
	}

	key, err := cli.LoadSigningKey(storage)
	if err != nil {
		return fmt.Errorf("failed to load signing key: %w", err)
	}
	defer func() { _ = key.Close() }()

	alg, err := signingAlgorithm(key.Family())
	if err != nil {
		return err
	}

	input, err := signingInput(cmd, alg)
	if err != nil {
		return err
	}

	var flags signature.SignFlags
	if signReproducible {
		flags |= signature.SignReproducible
	}

	sig, signErr := signature.Sign(key, alg, flags, input)

	auditCtx := audit.Context{
		Algorithm: crypto.Name(alg),
		Flags:     flags.String(),
		Digest:    hex.EncodeToString(input),
		Source:    "cli",
	}
	if alg.IsPure() {
		auditCtx.Digest = ""
	}
	if err := audit.LogSign(audit.Object{Path: cli.KeyRef(storage), Family: key.Family().String()}, auditCtx, signErr); err != nil {
		return err
	}
	if signErr != nil {
		return signErr
	}

	logger.Info().
		Str("algorithm", crypto.Name(alg)).
		Int("signature_size", len(sig)).
		Msg("signed")

	return cli.WriteOutput(signOutput, cmd.OutOrStdout(), encode(sig), 0644)
}

// signingKeyStorage builds the key location from flags, falling back to the
// signing section of the configuration.
func signingKeyStorage() (crypto.KeyStorageConfig, error) {
	switch {
	case signKeyFile != "":
		return crypto.KeyStorageConfig{
			Type:       crypto.KeyProviderTypeSoftware,
			KeyPath:    signKeyFile,
			Passphrase: signPassphrase,
		}, nil
	case signHSMConfig != "":
		if signKeyLabel == "" && signKeyID == "" {
			return crypto.KeyStorageConfig{}, fmt.Errorf("--key-label or --key-id is required with --hsm-config")
		}
		return crypto.KeyStorageConfig{
			Type:          crypto.KeyProviderTypePKCS11,
			HSMConfigPath: signHSMConfig,
			KeyLabel:      signKeyLabel,
			KeyID:         signKeyID,
		}, nil
	case appConfig != nil && appConfig.Signing.Enabled():
		storage := appConfig.Signing.KeyStorage()
		if signPassphrase != "" {
			storage.Passphrase = signPassphrase
		}
		return storage, nil
	}
	return crypto.KeyStorageConfig{}, fmt.Errorf("--key or --hsm-config is required")
}

// signingAlgorithm picks the algorithm for a key family.
func signingAlgorithm(family crypto.KeyFamily) (crypto.AlgorithmID, error) {
	switch {
	case signAlgorithm != "":
		return crypto.ParseAlgorithm(signAlgorithm)
	case signDigestAlgorithm != "":
		digest, err := crypto.ParseDigestKind(signDigestAlgorithm)
		if err != nil {
			return "", err
		}
		return crypto.Resolve(family, digest)
	case appConfig != nil && appConfig.Signing.DefaultAlgorithm != "":
		return crypto.ParseAlgorithm(appConfig.Signing.DefaultAlgorithm)
	}
	if alg, err := crypto.Resolve(family, crypto.DigestNone); err == nil {
		return alg, nil
	}
	return "", fmt.Errorf("--algorithm or --digest-algorithm is required for %s keys", family)
}

func signingInput(cmd *cobra.Command, alg crypto.AlgorithmID) ([]byte, error) {
	if signDigest != "" {
		return cli.DecodeHex(signDigest)
	}
	data, err := cli.ReadInput(signInput, cmd.InOrStdin())
	if err != nil {
		return nil, err
	}
	return signature.Prehash(alg, data), nil
}

func signatureEncoder(name string) (func([]byte) []byte, error) {
	switch name {
	case "hex":
		return func(b []byte) []byte { return []byte(hex.EncodeToString(b) + "\n") }, nil
	case "base64":
		return func(b []byte) []byte { return []byte(base64.StdEncoding.EncodeToString(b) + "\n") }, nil
	case "raw":
		return func(b []byte) []byte { return b }, nil
	}
	return nil, fmt.Errorf("unsupported encoding: %s (use hex, base64 or raw)", name)
}
