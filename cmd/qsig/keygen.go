package main

import (
	gocrypto "crypto"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/remiblancher/qsig/internal/crypto"
	"github.com/remiblancher/qsig/internal/x509util"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a signing key pair",
	Long: `Generate a software signing key and write it as PEM.

Supported key types:
  Classical: rsa-2048, rsa-3072, rsa-4096, ecdsa-p256 (default),
             ecdsa-p384, ecdsa-p521, ed25519, ed448
  ML-DSA:    ml-dsa-44, ml-dsa-65, ml-dsa-87
  SLH-DSA:   slh-dsa-sha2-128s, slh-dsa-sha2-128f, slh-dsa-sha2-192s,
             slh-dsa-sha2-192f, slh-dsa-sha2-256s, slh-dsa-sha2-256f

--cert also writes a self-signed certificate for the key (RSA, ECDSA and
Ed25519 only). With --ca the certificate is a CA restricted to
certificate and CRL signing, which verify refuses for data by default.
--code-signing adds the code signing extended key usage.

Examples:
  qsig keygen --algorithm ecdsa-p384 --out key.pem --pubout pub.pem
  qsig keygen --algorithm ml-dsa-65 --out mldsa.pem
  qsig keygen --algorithm rsa-3072 --out rsa.pem --passphrase env:KEY_PASS
  qsig keygen --out signer.pem --cert signer.crt --cn "Release Signer"`,
	Args: cobra.NoArgs,
	RunE: runKeygen,
}

var (
	keygenAlgorithm  string
	keygenOutput     string
	keygenPubOutput  string
	keygenPassphrase string
	keygenCertOutput string
	keygenCommonName string
	keygenCA         bool
	keygenCodeSign   bool
	keygenValidity   time.Duration
)

func init() {
	keygenCmd.Flags().StringVarP(&keygenAlgorithm, "algorithm", "a", string(crypto.KeyECDSAP256), "Key type")
	keygenCmd.Flags().StringVarP(&keygenOutput, "out", "o", "", "Private key output file (required)")
	keygenCmd.Flags().StringVar(&keygenPubOutput, "pubout", "", "Public key output file")
	keygenCmd.Flags().StringVar(&keygenPassphrase, "passphrase", "", "Encrypt the private key (or env:VAR)")
	keygenCmd.Flags().StringVar(&keygenCertOutput, "cert", "", "Self-signed certificate output file")
	keygenCmd.Flags().StringVar(&keygenCommonName, "cn", "qsig signer", "Certificate common name")
	keygenCmd.Flags().BoolVar(&keygenCA, "ca", false, "Make the certificate a CA restricted to certificate signing")
	keygenCmd.Flags().BoolVar(&keygenCodeSign, "code-signing", false, "Add the code signing extended key usage")
	keygenCmd.Flags().DurationVar(&keygenValidity, "validity", 365*24*time.Hour, "Certificate validity")

	_ = keygenCmd.MarkFlagRequired("out")
	keygenCmd.MarkFlagsMutuallyExclusive("ca", "code-signing")
	_ = keygenCmd.RegisterFlagCompletionFunc("algorithm", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		specs := crypto.AllKeySpecs()
		names := make([]string, len(specs))
		for i, s := range specs {
			names[i] = string(s)
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
}

func runKeygen(cmd *cobra.Command, args []string) error {
	spec, err := crypto.ParseKeySpec(keygenAlgorithm)
	if err != nil {
		return err
	}

	key, err := crypto.GenerateKey(spec)
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}
	defer func() { _ = key.Close() }()

	var keyPEM []byte
	err = key.WithKey(func(priv gocrypto.PrivateKey) error {
		var err error
		keyPEM, err = crypto.MarshalPrivateKeyPEM(priv)
		return err
	})
	if err != nil {
		return err
	}

	if pass := crypto.ResolvePassphrase(keygenPassphrase); len(pass) > 0 {
		keyPEM, err = encryptKeyPEM(keyPEM, pass)
		if err != nil {
			return err
		}
	}

	if err := os.WriteFile(keygenOutput, keyPEM, 0600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Private key: %s (%s)\n", keygenOutput, key.Family())

	if keygenPubOutput != "" {
		pub, err := key.Public()
		if err != nil {
			return err
		}
		defer func() { _ = pub.Close() }()

		pubPEM, err := pub.MarshalPEM()
		if err != nil {
			return err
		}
		if err := os.WriteFile(keygenPubOutput, pubPEM, 0644); err != nil {
			return fmt.Errorf("failed to write public key: %w", err)
		}
		fmt.Fprintf(out, "Public key:  %s\n", keygenPubOutput)
	}

	if keygenCertOutput != "" {
		if err := writeSelfSigned(key); err != nil {
			return err
		}
		fmt.Fprintf(out, "Certificate: %s\n", keygenCertOutput)
	}

	logger.Info().Str("family", key.Family().String()).Str("path", keygenOutput).Msg("key generated")
	return nil
}

// encryptKeyPEM re-encodes a PEM key with legacy AES-256 PEM encryption,
// the form ImportPrivateKey decrypts.
func encryptKeyPEM(keyPEM, pass []byte) ([]byte, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, fmt.Errorf("failed to decode generated key")
	}
	//nolint:staticcheck // legacy PEM encryption is what ImportPrivateKey accepts
	enc, err := x509.EncryptPEMBlock(rand.Reader, block.Type, block.Bytes, pass, x509.PEMCipherAES256)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt private key: %w", err)
	}
	return pem.EncodeToMemory(enc), nil
}

func writeSelfSigned(key *crypto.PrivateKey) error {
	b := x509util.NewCertificateBuilder().
		CommonName(keygenCommonName).
		ValidFor(keygenValidity)
	switch {
	case keygenCA:
		b = b.CA(0)
	case keygenCodeSign:
		b = b.CodeSigning()
	default:
		b = b.DataSigning()
	}

	cert, err := b.SelfSign(key)
	if err != nil {
		return fmt.Errorf("failed to create certificate: %w", err)
	}
	defer func() { _ = cert.Close() }()

	certPEM, err := cert.MarshalPEM()
	if err != nil {
		return err
	}
	if err := os.WriteFile(keygenCertOutput, certPEM, 0644); err != nil {
		return fmt.Errorf("failed to write certificate: %w", err)
	}
	return nil
}
