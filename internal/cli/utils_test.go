package cli

import (
	"bufio"
	"bytes"
	gocrypto "crypto"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/remiblancher/qsig/internal/audit"
	"github.com/remiblancher/qsig/internal/crypto"
	"github.com/remiblancher/qsig/internal/x509util"
)

// =============================================================================
// Test Helpers
// =============================================================================

func writeTestFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func generateTestKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey(crypto.KeyECDSAP256)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	t.Cleanup(func() { _ = key.Close() })
	return key
}

// auditEvents installs a temporary audit log and returns a function that
// reads back the recorded event types.
func auditEvents(t *testing.T) func() []audit.EventType {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	if err := audit.InitFile(path); err != nil {
		t.Fatalf("InitFile() error = %v", err)
	}
	t.Cleanup(func() { _ = audit.Close() })

	return func() []audit.EventType {
		f, err := os.Open(path)
		if err != nil {
			t.Fatalf("open audit log: %v", err)
		}
		defer func() { _ = f.Close() }()

		var types []audit.EventType
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			var e audit.Event
			if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
				t.Fatalf("bad audit line: %v", err)
			}
			types = append(types, e.EventType)
		}
		return types
	}
}

// =============================================================================
// Input / Output Tests
// =============================================================================

func TestU_ReadInput(t *testing.T) {
	t.Run("[Unit] ReadInput: file", func(t *testing.T) {
		path := writeTestFile(t, "in.bin", []byte("payload"))
		data, err := ReadInput(path, nil)
		if err != nil {
			t.Fatalf("ReadInput() error = %v", err)
		}
		if string(data) != "payload" {
			t.Errorf("ReadInput() = %q", data)
		}
	})

	t.Run("[Unit] ReadInput: stdin", func(t *testing.T) {
		data, err := ReadInput(StdioPath, strings.NewReader("from stdin"))
		if err != nil {
			t.Fatalf("ReadInput() error = %v", err)
		}
		if string(data) != "from stdin" {
			t.Errorf("ReadInput() = %q", data)
		}
	})

	t.Run("[Unit] ReadInput: missing file", func(t *testing.T) {
		if _, err := ReadInput("/nonexistent/in.bin", nil); err == nil {
			t.Error("ReadInput() should fail for a missing file")
		}
	})
}

func TestU_WriteOutput(t *testing.T) {
	t.Run("[Unit] WriteOutput: stdout", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteOutput("", &buf, []byte("abc"), 0600); err != nil {
			t.Fatalf("WriteOutput() error = %v", err)
		}
		if buf.String() != "abc" {
			t.Errorf("stdout = %q", buf.String())
		}
	})

	t.Run("[Unit] WriteOutput: file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.bin")
		if err := WriteOutput(path, nil, []byte("abc"), 0600); err != nil {
			t.Fatalf("WriteOutput() error = %v", err)
		}
		data, _ := os.ReadFile(path)
		if string(data) != "abc" {
			t.Errorf("file = %q", data)
		}
	})
}

func TestU_DecodeHex(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []byte
		wantErr bool
	}{
		{"[Unit] DecodeHex: plain", "00ff10", []byte{0x00, 0xff, 0x10}, false},
		{"[Unit] DecodeHex: prefix and newline", "0xABCD\n", []byte{0xab, 0xcd}, false},
		{"[Unit] DecodeHex: colons", "ab:cd:ef", []byte{0xab, 0xcd, 0xef}, false},
		{"[Unit] DecodeHex: odd length", "abc", nil, true},
		{"[Unit] DecodeHex: not hex", "zz", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeHex(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeHex() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !bytes.Equal(got, tt.want) {
				t.Errorf("DecodeHex() = %x, want %x", got, tt.want)
			}
		})
	}
}

func TestU_ReadSignature(t *testing.T) {
	t.Run("[Unit] ReadSignature: hex text", func(t *testing.T) {
		path := writeTestFile(t, "sig.hex", []byte("deadbeef\n"))
		sig, err := ReadSignature(path, nil)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(sig, []byte{0xde, 0xad, 0xbe, 0xef}) {
			t.Errorf("ReadSignature() = %x", sig)
		}
	})

	t.Run("[Unit] ReadSignature: base64 text", func(t *testing.T) {
		path := writeTestFile(t, "sig.b64", []byte("3q2+7w==\n"))
		sig, err := ReadSignature(path, nil)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(sig, []byte{0xde, 0xad, 0xbe, 0xef}) {
			t.Errorf("ReadSignature() = %x", sig)
		}
	})

	t.Run("[Unit] ReadSignature: raw bytes", func(t *testing.T) {
		raw := []byte{0x30, 0x45, 0x02, 0x21, 0x00, 0xff}
		path := writeTestFile(t, "sig.bin", raw)
		sig, err := ReadSignature(path, nil)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(sig, raw) {
			t.Errorf("ReadSignature() = %x", sig)
		}
	})
}

// =============================================================================
// Key Loading Tests
// =============================================================================

func TestU_LoadVerificationKey(t *testing.T) {
	key := generateTestKey(t)
	pub, err := key.Public()
	if err != nil {
		t.Fatal(err)
	}
	pubPEM, _ := pub.MarshalPEM()
	pubPath := writeTestFile(t, "pub.pem", pubPEM)

	cert, err := x509util.NewCertificateBuilder().CommonName("cli signer").DataSigning().SelfSign(key)
	if err != nil {
		t.Fatal(err)
	}
	x, _ := cert.X509()
	certPath := writeTestFile(t, "cert.der", x.Raw)

	t.Run("[Unit] LoadVerificationKey: public key", func(t *testing.T) {
		k, subject, err := LoadVerificationKey("", pubPath)
		if err != nil {
			t.Fatalf("LoadVerificationKey() error = %v", err)
		}
		defer func() { _ = k.Close() }()
		if subject != "" {
			t.Errorf("subject = %q, want empty", subject)
		}
		if k.Family() != crypto.FamilyECDSA {
			t.Errorf("Family() = %v", k.Family())
		}
	})

	t.Run("[Unit] LoadVerificationKey: DER certificate", func(t *testing.T) {
		k, subject, err := LoadVerificationKey(certPath, "")
		if err != nil {
			t.Fatalf("LoadVerificationKey() error = %v", err)
		}
		defer func() { _ = k.Close() }()
		if subject != "CN=cli signer" {
			t.Errorf("subject = %q", subject)
		}
		if !k.Origin().Certificate {
			t.Error("key should remember its certificate origin")
		}
	})

	t.Run("[Unit] LoadVerificationKey: both", func(t *testing.T) {
		if _, _, err := LoadVerificationKey(certPath, pubPath); err == nil {
			t.Error("expected mutual exclusion error")
		}
	})

	t.Run("[Unit] LoadVerificationKey: neither", func(t *testing.T) {
		if _, _, err := LoadVerificationKey("", ""); err == nil {
			t.Error("expected missing key error")
		}
	})

	t.Run("[Unit] LoadVerificationKey: malformed certificate", func(t *testing.T) {
		bad := writeTestFile(t, "bad.pem", []byte("not a certificate"))
		_, _, err := LoadVerificationKey(bad, "")
		if !errors.Is(err, crypto.ErrCertificateImportFailed) {
			t.Errorf("error = %v, want ErrCertificateImportFailed", err)
		}
	})
}

func TestU_LoadSigningKey(t *testing.T) {
	key := generateTestKey(t)
	var keyPEM []byte
	if err := key.WithKey(func(priv gocrypto.PrivateKey) error {
		var err error
		keyPEM, err = crypto.MarshalPrivateKeyPEM(priv)
		return err
	}); err != nil {
		t.Fatal(err)
	}

	block, _ := pem.Decode(keyPEM)
	//nolint:staticcheck // legacy PEM encryption is what the importer accepts
	encBlock, err := x509.EncryptPEMBlock(rand.Reader, block.Type, block.Bytes, []byte("secret"), x509.PEMCipherAES256)
	if err != nil {
		t.Fatal(err)
	}
	encPath := writeTestFile(t, "enc.pem", pem.EncodeToMemory(encBlock))

	t.Run("[Unit] LoadSigningKey: correct passphrase", func(t *testing.T) {
		events := auditEvents(t)
		k, err := LoadSigningKey(crypto.KeyStorageConfig{KeyPath: encPath, Passphrase: "secret"})
		if err != nil {
			t.Fatalf("LoadSigningKey() error = %v", err)
		}
		_ = k.Close()

		got := events()
		if len(got) != 1 || got[0] != audit.EventKeyImported {
			t.Errorf("audit events = %v, want [KEY_IMPORTED]", got)
		}
	})

	t.Run("[Unit] LoadSigningKey: missing passphrase is an auth failure", func(t *testing.T) {
		events := auditEvents(t)
		_, err := LoadSigningKey(crypto.KeyStorageConfig{KeyPath: encPath})
		if !errors.Is(err, crypto.ErrPassphrase) {
			t.Fatalf("error = %v, want ErrPassphrase", err)
		}

		got := events()
		if len(got) != 1 || got[0] != audit.EventAuthFailed {
			t.Errorf("audit events = %v, want [AUTH_FAILED]", got)
		}
	})

	t.Run("[Unit] LoadSigningKey: missing file", func(t *testing.T) {
		if _, err := LoadSigningKey(crypto.KeyStorageConfig{KeyPath: "/nonexistent/key.pem"}); err == nil {
			t.Error("LoadSigningKey() should fail for a missing file")
		}
	})
}

func TestU_KeyRef(t *testing.T) {
	tests := []struct {
		name string
		cfg  crypto.KeyStorageConfig
		want string
	}{
		{"[Unit] KeyRef: file", crypto.KeyStorageConfig{KeyPath: "/keys/sign.pem"}, "/keys/sign.pem"},
		{"[Unit] KeyRef: hsm label", crypto.KeyStorageConfig{Type: crypto.KeyProviderTypePKCS11, KeyLabel: "signer"}, "pkcs11:signer"},
		{"[Unit] KeyRef: hsm id", crypto.KeyStorageConfig{Type: crypto.KeyProviderTypePKCS11, KeyID: "0a"}, "pkcs11:id=0a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KeyRef(tt.cfg); got != tt.want {
				t.Errorf("KeyRef() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestU_FormatStatus(t *testing.T) {
	if got := FormatStatus("VALID", true); got != "VALID" {
		t.Errorf("plain FormatStatus() = %q", got)
	}
	if got := FormatStatus("INVALID", false); !strings.HasPrefix(got, ColorRed) {
		t.Errorf("FormatStatus() = %q, want red", got)
	}
}
