package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/remiblancher/qsig/internal/audit"
	"github.com/remiblancher/qsig/internal/cli"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log management",
	Long: `Commands for verifying and reading audit logs.

The audit log records every sign and verify operation and every key or
certificate import. Each event is chained to the previous one with a
SHA-256 hash.

Examples:
  qsig audit verify --file /var/log/qsig/audit.jsonl
  qsig audit tail --file /var/log/qsig/audit.jsonl -n 20`,
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify audit log integrity",
	Long: `Verify the hash chain of an audit log file.

Each event carries hash_prev, the hash of the previous event, and hash, the
SHA-256 of its own canonical form. The first event has
hash_prev="sha256:genesis".

A modified, deleted or inserted event breaks the chain; the command reports
the first bad line and exits non-zero.`,
	Args: cobra.NoArgs,
	RunE: runAuditVerify,
}

var auditTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Show recent audit events",
	Args:  cobra.NoArgs,
	RunE:  runAuditTail,
}

var (
	auditLogFile  string
	auditTailNum  int
	auditShowJSON bool
)

func init() {
	auditVerifyCmd.Flags().StringVar(&auditLogFile, "file", "", "Path to audit log file (required)")
	_ = auditVerifyCmd.MarkFlagRequired("file")

	auditTailCmd.Flags().StringVar(&auditLogFile, "file", "", "Path to audit log file (required)")
	_ = auditTailCmd.MarkFlagRequired("file")
	auditTailCmd.Flags().IntVarP(&auditTailNum, "num", "n", 10, "Number of events to show")
	auditTailCmd.Flags().BoolVar(&auditShowJSON, "json", false, "Output as JSON")

	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditTailCmd)
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	plain := !isTerminal(out)
	fmt.Fprintf(out, "Verifying audit log: %s\n\n", auditLogFile)

	count, err := audit.VerifyChain(auditLogFile)
	if err != nil {
		fmt.Fprintf(out, "VERIFICATION %s\n", cli.FormatStatus("FAILED", plain))
		fmt.Fprintf(out, "  Valid events: %d\n", count)
		fmt.Fprintf(out, "  Error: %s\n", err)
		return fmt.Errorf("audit log verification failed: %w", err)
	}

	fmt.Fprintf(out, "VERIFICATION %s\n", cli.FormatStatus("PASSED", plain))
	fmt.Fprintf(out, "  Total events: %d\n", count)
	fmt.Fprintf(out, "  Hash chain: VALID\n")
	return nil
}

func runAuditTail(cmd *cobra.Command, args []string) error {
	events, err := audit.ReadEvents(auditLogFile, auditTailNum)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if auditShowJSON {
		if events == nil {
			events = []audit.Event{}
		}
		return writeJSON(out, events)
	}
	if len(events) == 0 {
		fmt.Fprintln(out, "Audit log is empty")
		return nil
	}

	for i := range events {
		printEvent(out, &events[i])
	}
	return nil
}

func printEvent(w io.Writer, e *audit.Event) {
	resultIcon := "✓"
	if e.Result == audit.ResultFailure {
		resultIcon = "✗"
	}

	fmt.Fprintf(w, "[%s] %s %s\n", e.Timestamp, resultIcon, e.EventType)
	fmt.Fprintf(w, "    Actor:  %s@%s\n", e.Actor.ID, e.Actor.Host)

	if e.Object.Type != "" {
		fmt.Fprintf(w, "    Object: %s", e.Object.Type)
		if e.Object.Family != "" {
			fmt.Fprintf(w, " family=%s", e.Object.Family)
		}
		if e.Object.Subject != "" {
			fmt.Fprintf(w, " subject=%s", e.Object.Subject)
		}
		if e.Object.Path != "" {
			fmt.Fprintf(w, " path=%s", e.Object.Path)
		}
		fmt.Fprintln(w)
	}

	if e.Context.Algorithm != "" || e.Context.Reason != "" {
		fmt.Fprint(w, "    Context:")
		if e.Context.Algorithm != "" {
			fmt.Fprintf(w, " algorithm=%s", e.Context.Algorithm)
		}
		if e.Context.Flags != "" {
			fmt.Fprintf(w, " flags=%s", e.Context.Flags)
		}
		if e.Context.Reason != "" {
			fmt.Fprintf(w, " reason=%s", e.Context.Reason)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w)
}
