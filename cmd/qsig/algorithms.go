package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/remiblancher/qsig/internal/api/service"
	"github.com/remiblancher/qsig/internal/crypto"
)

var algorithmsCmd = &cobra.Command{
	Use:   "algorithms",
	Short: "List supported signature algorithms",
	Long: `List every signature algorithm with its key family, digest and the
input length Sign and Verify expect.

Examples:
  qsig algorithms
  qsig algorithms --family ECDSA
  qsig algorithms --json`,
	Args: cobra.NoArgs,
	RunE: runAlgorithms,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve the algorithm for a key family and digest",
	Long: `Print the canonical signature algorithm for a key family and digest.

RSA resolves to PKCS#1 v1.5, or to RSASSA-PSS with --pss. Pure schemes resolve with no digest (or their
intrinsic digest for EdDSA). DSA never resolves.

Examples:
  qsig resolve --family RSA --digest sha1        # RSA-SHA1
  qsig resolve --family ECDSA --digest sha3-256  # ECDSA-SHA3-256
  qsig resolve --family RSA --digest sha256 --pss # RSA-PSS-SHA256
  qsig resolve --family ML-DSA-65                # ML-DSA-65`,
	Args: cobra.NoArgs,
	RunE: runResolve,
}

var (
	algorithmsFamily string
	algorithmsJSON   bool

	resolveFamily string
	resolveDigest string
	resolvePSS    bool
	resolveJSON   bool
)

func init() {
	algorithmsCmd.Flags().StringVar(&algorithmsFamily, "family", "", "Only list algorithms of this key family")
	algorithmsCmd.Flags().BoolVar(&algorithmsJSON, "json", false, "Output as JSON")

	resolveCmd.Flags().StringVar(&resolveFamily, "family", "", "Key family, e.g. RSA, ECDSA, Ed25519, ML-DSA-65 (required)")
	resolveCmd.Flags().StringVar(&resolveDigest, "digest", "", "Digest, e.g. sha256 (empty for pure schemes)")
	resolveCmd.Flags().BoolVar(&resolvePSS, "pss", false, "Resolve RSA to RSASSA-PSS")
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "Output as JSON")
	_ = resolveCmd.MarkFlagRequired("family")

	_ = algorithmsCmd.RegisterFlagCompletionFunc("family", completeFamilies)
	_ = resolveCmd.RegisterFlagCompletionFunc("family", completeFamilies)
}

func runAlgorithms(cmd *cobra.Command, args []string) error {
	algs := crypto.AllAlgorithms()
	if algorithmsFamily != "" {
		family, err := crypto.ParseKeyFamily(algorithmsFamily)
		if err != nil {
			return err
		}
		algs = crypto.AlgorithmsForFamily(family)
	}

	out := cmd.OutOrStdout()
	if algorithmsJSON {
		infos := make([]any, 0, len(algs))
		for _, alg := range algs {
			infos = append(infos, service.NewAlgorithmInfo(alg))
		}
		return writeJSON(out, infos)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tFAMILY\tDIGEST\tINPUT\tDESCRIPTION")
	for _, alg := range algs {
		input := strconv.Itoa(alg.InputSize())
		if alg.IsPure() {
			input = "message"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			crypto.Name(alg), alg.Family(), alg.Digest(), input, alg.Description())
	}
	return w.Flush()
}

func runResolve(cmd *cobra.Command, args []string) error {
	family, err := crypto.ParseKeyFamily(resolveFamily)
	if err != nil {
		return err
	}
	digest, err := crypto.ParseDigestKind(resolveDigest)
	if err != nil {
		return err
	}

	alg, err := resolveAlgorithm(family, digest, resolvePSS)
	if err != nil {
		return err
	}

	if resolveJSON {
		return writeJSON(cmd.OutOrStdout(), service.NewAlgorithmInfo(alg))
	}
	fmt.Fprintln(cmd.OutOrStdout(), crypto.Name(alg))
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) && os.Getenv("NO_COLOR") == ""
}

// resolveAlgorithm is Resolve, with RSA switched to RSASSA-PSS when pss is
// set.
func resolveAlgorithm(family crypto.KeyFamily, digest crypto.DigestKind, pss bool) (crypto.AlgorithmID, error) {
	if !pss {
		return crypto.Resolve(family, digest)
	}
	if family != crypto.FamilyRSA && family != crypto.FamilyRSAPSS {
		return "", fmt.Errorf("%w: PSS padding needs an RSA key, got %s", crypto.ErrUnsupportedCombination, family)
	}
	return crypto.ResolvePSS(digest)
}

func completeFamilies(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	var names []string
	for _, f := range crypto.AllFamilies() {
		if f != crypto.FamilyDSA {
			names = append(names, f.String())
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
