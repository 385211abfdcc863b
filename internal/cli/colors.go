package cli

// ANSI color codes for terminal output.
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
)

// FormatStatus returns a colored status string. Color is skipped when
// plain is set.
func FormatStatus(status string, plain bool) string {
	if plain {
		return status
	}
	switch status {
	case "VALID", "PASSED":
		return ColorGreen + status + ColorReset
	case "INVALID", "FAILED":
		return ColorRed + status + ColorReset
	case "RESTRICTED", "REJECTED":
		return ColorYellow + status + ColorReset
	default:
		return status
	}
}
