package main

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/remiblancher/qsig/internal/audit"
	"github.com/remiblancher/qsig/internal/cli"
	"github.com/remiblancher/qsig/internal/crypto"
	"github.com/remiblancher/qsig/internal/signature"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a signature over a digest or a file",
	Long: `Verify a signature with a public key or the key of an X.509 certificate.

The algorithm is given with --algorithm, or inferred from the key family and
--digest-algorithm. Pure schemes need neither.

A CA certificate whose key usage excludes digitalSignature cannot verify
data signatures unless --disable-ca-sign-check is given. --reject-sha1
refuses SHA-1 based algorithms.

The command exits non-zero when the signature does not verify.

Examples:
  qsig verify --pubkey pub.pem --algorithm ECDSA-SHA256 --digest 2cf2... --signature sig.hex
  qsig verify --cert signer.crt --digest-algorithm sha256 --in report.pdf --signature report.sig
  qsig verify --cert root-ca.crt --disable-ca-sign-check --algorithm RSA-SHA256 --in data --signature data.sig`,
	RunE: runVerify,
}

var (
	verifyCertFile        string
	verifyPubKeyFile      string
	verifyAlgorithm       string
	verifyDigestAlgorithm string
	verifyDigest          string
	verifyInput           string
	verifySignatureFile   string
	verifyDisableCACheck  bool
	verifyRejectSHA1      bool
)

func init() {
	verifyCmd.Flags().StringVar(&verifyCertFile, "cert", "", "Signer certificate (PEM or DER)")
	verifyCmd.Flags().StringVar(&verifyPubKeyFile, "pubkey", "", "Signer public key (PEM or DER)")
	verifyCmd.Flags().StringVarP(&verifyAlgorithm, "algorithm", "a", "", "Signature algorithm, e.g. RSA-SHA256")
	verifyCmd.Flags().StringVar(&verifyDigestAlgorithm, "digest-algorithm", "", "Digest to infer the algorithm from the key family")
	verifyCmd.Flags().StringVar(&verifyDigest, "digest", "", "Precomputed digest (hex)")
	verifyCmd.Flags().StringVar(&verifyInput, "in", "", "File to hash and verify (- for stdin)")
	verifyCmd.Flags().StringVar(&verifySignatureFile, "signature", "", "Signature file (hex, base64 or raw)")
	verifyCmd.Flags().BoolVar(&verifyDisableCACheck, "disable-ca-sign-check", false, "Allow CA-constrained certificate keys")
	verifyCmd.Flags().BoolVar(&verifyRejectSHA1, "reject-sha1", false, "Reject SHA-1 based algorithms")

	_ = verifyCmd.MarkFlagRequired("signature")
	verifyCmd.MarkFlagsMutuallyExclusive("cert", "pubkey")
	verifyCmd.MarkFlagsOneRequired("cert", "pubkey")
	verifyCmd.MarkFlagsMutuallyExclusive("algorithm", "digest-algorithm")
	verifyCmd.MarkFlagsMutuallyExclusive("digest", "in")
	verifyCmd.MarkFlagsOneRequired("digest", "in")
}

func runVerify(cmd *cobra.Command, args []string) error {
	key, subject, err := cli.LoadVerificationKey(verifyCertFile, verifyPubKeyFile)
	if err != nil {
		return err
	}
	defer func() { _ = key.Close() }()

	alg, err := verificationAlgorithm(key.Family())
	if err != nil {
		return err
	}

	input, err := verificationInput(cmd, alg)
	if err != nil {
		return err
	}

	sig, err := cli.ReadSignature(verifySignatureFile, cmd.InOrStdin())
	if err != nil {
		return err
	}

	flags := verificationFlags()
	verr := signature.Verify(key, alg, flags, input, sig)

	auditCtx := audit.Context{
		Algorithm: crypto.Name(alg),
		Flags:     flags.String(),
		Source:    "cli",
	}
	if !alg.IsPure() {
		auditCtx.Digest = hex.EncodeToString(input)
	}
	obj := audit.Object{Subject: subject, Family: key.Family().String()}
	if err := audit.LogVerify(obj, auditCtx, verr); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	plain := !isTerminal(out)
	if verr != nil {
		status := "INVALID"
		if errors.Is(verr, crypto.ErrCASignRestricted) {
			status = "RESTRICTED"
		} else if errors.Is(verr, crypto.ErrInsecureAlgorithm) {
			status = "REJECTED"
		}
		fmt.Fprintf(out, "Signature: %s (%s)\n", cli.FormatStatus(status, plain), crypto.Name(alg))
		return verr
	}

	fmt.Fprintf(out, "Signature: %s (%s)\n", cli.FormatStatus("VALID", plain), crypto.Name(alg))
	if subject != "" {
		fmt.Fprintf(out, "  Signer: %s\n", subject)
	}
	logger.Debug().Str("algorithm", crypto.Name(alg)).Str("flags", flags.String()).Msg("verified")
	return nil
}

func verificationAlgorithm(family crypto.KeyFamily) (crypto.AlgorithmID, error) {
	if verifyAlgorithm != "" {
		return crypto.ParseAlgorithm(verifyAlgorithm)
	}
	digest, err := crypto.ParseDigestKind(verifyDigestAlgorithm)
	if err != nil {
		return "", err
	}
	alg, err := crypto.Resolve(family, digest)
	if err != nil {
		if verifyDigestAlgorithm == "" {
			return "", fmt.Errorf("--algorithm or --digest-algorithm is required for %s keys", family)
		}
		return "", err
	}
	return alg, nil
}

func verificationInput(cmd *cobra.Command, alg crypto.AlgorithmID) ([]byte, error) {
	if verifyDigest != "" {
		return cli.DecodeHex(verifyDigest)
	}
	data, err := cli.ReadInput(verifyInput, cmd.InOrStdin())
	if err != nil {
		return nil, err
	}
	return signature.Prehash(alg, data), nil
}

// verificationFlags merges command flags with the configured policy.
func verificationFlags() signature.VerifyFlags {
	var flags signature.VerifyFlags
	if appConfig != nil {
		flags = appConfig.Verify.Flags()
	}
	if verifyDisableCACheck {
		flags |= signature.VerifyDisableCASignCheck
	}
	if verifyRejectSHA1 {
		flags |= signature.VerifyRejectSHA1
	}
	return flags
}
