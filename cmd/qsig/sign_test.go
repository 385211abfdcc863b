package main

import (
	"crypto/sha1" //nolint:gosec // SHA-1 digests are part of the algorithm set
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remiblancher/qsig/internal/crypto"
)

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestSignVerify_DigestWithPublicKey(t *testing.T) {
	tc := newTestContext(t)
	keyPath, pubPath, _ := tc.keygen("signer", "ecdsa-p256")
	digest := sha256Hex("hello")

	sigHex := tc.run("sign", "--key", keyPath, "--algorithm", "ECDSA-SHA256", "--digest", digest)
	sigPath := tc.writeFile("sig.hex", sigHex)

	out := tc.run("verify", "--pubkey", pubPath, "--algorithm", "ecdsa-sha256",
		"--digest", digest, "--signature", sigPath)
	assert.Contains(t, out, "VALID")
	assert.Contains(t, out, "ECDSA-SHA256")
}

func TestSignVerify_FileWithInferredAlgorithm(t *testing.T) {
	tc := newTestContext(t)
	keyPath, _, certPath := tc.keygen("signer", "rsa-2048")
	dataPath := tc.writeFile("report.txt", "quarterly numbers")
	sigPath := tc.path("report.sig")

	tc.run("sign", "--key", keyPath, "--digest-algorithm", "sha384", "--in", dataPath,
		"--encoding", "raw", "--out", sigPath)

	out := tc.run("verify", "--cert", certPath, "--digest-algorithm", "sha384",
		"--in", dataPath, "--signature", sigPath)
	assert.Contains(t, out, "RSA-SHA384")
	assert.Contains(t, out, "Signer: CN=qsig signer")
}

func TestSignVerify_RSAPSSKeyInfersPSS(t *testing.T) {
	tc := newTestContext(t)
	keyPath, pubPath, _ := tc.keygen("pss", "rsa-pss-2048")
	dataPath := tc.writeFile("report.txt", "quarterly numbers")
	sigPath := tc.path("report.sig")

	tc.run("sign", "--key", keyPath, "--digest-algorithm", "sha256", "--in", dataPath, "--out", sigPath)

	out := tc.run("verify", "--pubkey", pubPath, "--digest-algorithm", "sha256",
		"--in", dataPath, "--signature", sigPath)
	assert.Contains(t, out, "VALID (RSA-PSS-SHA256)")

	_, err := executeCommand(rootCmd, "sign", "--key", keyPath, "--algorithm", "RSA-SHA256",
		"--in", dataPath, "--out", tc.path("v15.sig"))
	assert.ErrorIs(t, err, crypto.ErrAlgorithmKeyMismatch)
}

func TestSignVerify_PureScheme(t *testing.T) {
	for _, spec := range []string{"ed25519", "ml-dsa-44"} {
		t.Run(spec, func(t *testing.T) {
			tc := newTestContext(t)
			keyPath, pubPath, _ := tc.keygen("signer", spec)
			dataPath := tc.writeFile("firmware.bin", "\x7fELF firmware image")
			sigPath := tc.path("fw.sig")

			tc.run("sign", "--key", keyPath, "--in", dataPath, "--encoding", "base64", "--out", sigPath)
			tc.run("verify", "--pubkey", pubPath, "--in", dataPath, "--signature", sigPath)

			tampered := tc.writeFile("tampered.bin", "\x7fELF firmware imagE")
			_, err := executeCommand(rootCmd, "verify", "--pubkey", pubPath, "--in", tampered, "--signature", sigPath)
			assert.ErrorIs(t, err, crypto.ErrSignatureVerificationFailed)
		})
	}
}

func TestVerify_TamperedDigest(t *testing.T) {
	tc := newTestContext(t)
	keyPath, pubPath, _ := tc.keygen("signer", "ecdsa-p256")
	digest := sha256Hex("hello")
	sigPath := tc.writeFile("sig.hex", tc.run("sign", "--key", keyPath, "--algorithm", "ECDSA-SHA256", "--digest", digest))

	out, err := executeCommand(rootCmd, "verify", "--pubkey", pubPath, "--algorithm", "ECDSA-SHA256",
		"--digest", sha256Hex("hellO"), "--signature", sigPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, crypto.ErrSignatureVerificationFailed)
	assert.Contains(t, out, "INVALID")
}

func TestVerify_CAConstrainedCertificate(t *testing.T) {
	tc := newTestContext(t)
	keyPath, _, certPath := tc.keygen("root", "ecdsa-p256", "--ca", "--cn", "Root CA")
	digest := sha256Hex("hello")
	sigPath := tc.writeFile("sig.hex", tc.run("sign", "--key", keyPath, "--algorithm", "ECDSA-SHA256", "--digest", digest))

	args := []string{"verify", "--cert", certPath, "--algorithm", "ECDSA-SHA256", "--digest", digest, "--signature", sigPath}

	out, err := executeCommand(rootCmd, args...)
	assert.ErrorIs(t, err, crypto.ErrCASignRestricted)
	assert.Contains(t, out, "RESTRICTED")

	out = tc.run(append(args, "--disable-ca-sign-check")...)
	assert.Contains(t, out, "VALID")
}

func TestVerify_RejectSHA1(t *testing.T) {
	tc := newTestContext(t)
	keyPath, pubPath, _ := tc.keygen("legacy", "rsa-2048")
	sum := sha1.Sum([]byte("hello")) //nolint:gosec
	digest := hex.EncodeToString(sum[:])
	sigPath := tc.writeFile("sig.hex", tc.run("sign", "--key", keyPath, "--algorithm", "RSA-SHA1", "--digest", digest))

	args := []string{"verify", "--pubkey", pubPath, "--digest-algorithm", "sha1", "--digest", digest, "--signature", sigPath}
	tc.run(args...)

	out, err := executeCommand(rootCmd, append(args, "--reject-sha1")...)
	assert.ErrorIs(t, err, crypto.ErrInsecureAlgorithm)
	assert.Contains(t, out, "REJECTED")

	t.Setenv("QSIG_VERIFY_REJECT_SHA1", "true")
	_, err = executeCommand(rootCmd, args...)
	assert.ErrorIs(t, err, crypto.ErrInsecureAlgorithm)
}

func TestSign_Reproducible(t *testing.T) {
	tc := newTestContext(t)
	keyPath, _, _ := tc.keygen("signer", "ecdsa-p256")
	digest := sha256Hex("hello")

	first := tc.run("sign", "--key", keyPath, "--algorithm", "ECDSA-SHA256", "--digest", digest, "--reproducible")
	second := tc.run("sign", "--key", keyPath, "--algorithm", "ECDSA-SHA256", "--digest", digest, "--reproducible")
	assert.Equal(t, first, second)
}

func TestSign_Errors(t *testing.T) {
	tc := newTestContext(t)
	keyPath, _, _ := tc.keygen("signer", "ecdsa-p256")
	digest := sha256Hex("hello")

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"no input", []string{"sign", "--key", keyPath, "--algorithm", "ECDSA-SHA256"}, nil},
		{"digest and input", []string{"sign", "--key", keyPath, "--algorithm", "ECDSA-SHA256", "--digest", digest, "--in", keyPath}, nil},
		{"no key", []string{"sign", "--algorithm", "ECDSA-SHA256", "--digest", digest}, nil},
		{"no algorithm for ECDSA", []string{"sign", "--key", keyPath, "--digest", digest}, nil},
		{"bad hex", []string{"sign", "--key", keyPath, "--algorithm", "ECDSA-SHA256", "--digest", "xyz"}, nil},
		{"short digest", []string{"sign", "--key", keyPath, "--algorithm", "ECDSA-SHA256", "--digest", digest[:40]}, crypto.ErrInvalidInputLength},
		{"wrong family", []string{"sign", "--key", keyPath, "--algorithm", "RSA-SHA256", "--digest", digest}, crypto.ErrAlgorithmKeyMismatch},
		{"unknown algorithm", []string{"sign", "--key", keyPath, "--algorithm", "ROT13", "--digest", digest}, crypto.ErrUnsupportedCombination},
		{"bad encoding", []string{"sign", "--key", keyPath, "--algorithm", "ECDSA-SHA256", "--digest", digest, "--encoding", "pem"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(rootCmd, tt.args...)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestSign_KeyFromConfig(t *testing.T) {
	tc := newTestContext(t)
	keyPath, pubPath, _ := tc.keygen("signer", "ecdsa-p384")
	cfgPath := tc.writeFile("qsig.yaml", "signing:\n  key_file: "+keyPath+"\n  default_algorithm: ECDSA-SHA384\n")

	sum := sha512.Sum384([]byte("hello"))
	digest := hex.EncodeToString(sum[:])

	sigPath := tc.writeFile("sig.hex", tc.run("--config", cfgPath, "sign", "--digest", digest))
	out := tc.run("verify", "--pubkey", pubPath, "--algorithm", "ECDSA-SHA384", "--digest", digest, "--signature", sigPath)
	assert.Contains(t, out, "VALID")
}

func TestSign_EncryptedKey(t *testing.T) {
	tc := newTestContext(t)
	t.Setenv("QSIG_TEST_KEY_PASS", "s3cret")
	keyPath, _, _ := tc.keygen("signer", "ed25519", "--passphrase", "env:QSIG_TEST_KEY_PASS")

	data, err := os.ReadFile(keyPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ENCRYPTED")

	dataPath := tc.writeFile("msg.txt", "hello")
	tc.run("sign", "--key", keyPath, "--passphrase", "env:QSIG_TEST_KEY_PASS", "--in", dataPath)

	_, err = executeCommand(rootCmd, "sign", "--key", keyPath, "--in", dataPath)
	assert.ErrorIs(t, err, crypto.ErrPassphrase)
}

func TestSign_Stdin(t *testing.T) {
	tc := newTestContext(t)
	keyPath, pubPath, _ := tc.keygen("signer", "ed25519")

	resetFlags(rootCmd)
	stdout := new(strings.Builder)
	rootCmd.SetOut(stdout)
	rootCmd.SetIn(strings.NewReader("piped message"))
	rootCmd.SetArgs([]string{"sign", "--key", keyPath, "--in", "-"})
	require.NoError(t, rootCmd.Execute())
	shutdown()

	sigPath := tc.writeFile("sig.hex", stdout.String())
	dataPath := tc.writeFile("msg.txt", "piped message")
	tc.run("verify", "--pubkey", pubPath, "--in", dataPath, "--signature", sigPath)
}
