package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// executeCommand runs root with args and returns what the command wrote to
// stdout. Logs go to a separate buffer. Every flag is reset first so
// commands do not leak state into each other.
func executeCommand(root *cobra.Command, args ...string) (string, error) {
	resetFlags(root)

	stdout := new(bytes.Buffer)
	root.SetOut(stdout)
	root.SetErr(new(bytes.Buffer))
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)

	err := root.Execute()
	shutdown()
	return stdout.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// testContext holds test resources.
type testContext struct {
	t       *testing.T
	tempDir string
}

func newTestContext(t *testing.T) *testContext {
	t.Helper()
	return &testContext{t: t, tempDir: t.TempDir()}
}

// path returns a path within the temp directory.
func (tc *testContext) path(name string) string {
	return filepath.Join(tc.tempDir, name)
}

// writeFile writes content to a file in the temp directory.
func (tc *testContext) writeFile(name, content string) string {
	tc.t.Helper()
	path := tc.path(name)
	require.NoError(tc.t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// run executes a qsig command and fails the test on error.
func (tc *testContext) run(args ...string) string {
	tc.t.Helper()
	out, err := executeCommand(rootCmd, args...)
	require.NoError(tc.t, err, "qsig %s", strings.Join(args, " "))
	return out
}

// keygen generates a key of spec and returns the key, public key and
// certificate paths. extra is passed to keygen as is.
func (tc *testContext) keygen(name, spec string, extra ...string) (keyPath, pubPath, certPath string) {
	tc.t.Helper()
	keyPath = tc.path(name + ".key")
	pubPath = tc.path(name + ".pub")
	args := []string{"keygen", "--algorithm", spec, "--out", keyPath, "--pubout", pubPath}
	if spec == "ecdsa-p256" || spec == "rsa-2048" || spec == "ed25519" {
		certPath = tc.path(name + ".crt")
		args = append(args, "--cert", certPath)
	}
	tc.run(append(args, extra...)...)
	return keyPath, pubPath, certPath
}
