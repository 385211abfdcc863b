package signature

import (
	"fmt"

	"github.com/remiblancher/qsig/internal/crypto"
)

// checkPair validates the algorithm against the key family and the input
// length. The checks run in a fixed order so that callers see the same
// error for the same mistake on both sides.
func checkPair(alg crypto.AlgorithmID, family crypto.KeyFamily, input []byte) error {
	if !alg.IsValid() {
		return fmt.Errorf("%w: unknown algorithm %q", crypto.ErrUnsupportedCombination, string(alg))
	}
	if family == crypto.FamilyDSA {
		return fmt.Errorf("%w: DSA keys are not supported", crypto.ErrUnsupportedCombination)
	}
	if !crypto.Supports(family, alg) {
		return fmt.Errorf("%w: %s key cannot use %s", crypto.ErrAlgorithmKeyMismatch, family, crypto.Name(alg))
	}

	want := alg.InputSize()
	switch {
	case want == 0 && len(input) == 0:
		return fmt.Errorf("%w: empty input", crypto.ErrInvalidInputLength)
	case want > 0 && len(input) != want:
		return fmt.Errorf("%w: got %d bytes, want %d", crypto.ErrInvalidInputLength, len(input), want)
	}
	return nil
}
