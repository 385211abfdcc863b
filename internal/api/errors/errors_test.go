package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/remiblancher/qsig/internal/crypto"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid request", fmt.Errorf("%w: missing field", ErrInvalidRequest), http.StatusBadRequest, CodeInvalidRequest},
		{"no signing key", ErrSigningUnavailable, http.StatusServiceUnavailable, CodeSigningUnavailable},
		{"key import", crypto.ErrKeyImportFailed, http.StatusBadRequest, CodeInvalidKey},
		{"certificate import", crypto.ErrCertificateImportFailed, http.StatusBadRequest, CodeInvalidKey},
		{"unsupported", crypto.ErrUnsupportedCombination, http.StatusBadRequest, CodeUnsupported},
		{"input length", crypto.ErrInvalidInputLength, http.StatusBadRequest, CodeInvalidInputLength},
		{"mismatch", crypto.ErrAlgorithmKeyMismatch, http.StatusUnprocessableEntity, CodeKeyMismatch},
		{"bad signature", crypto.ErrSignatureVerificationFailed, http.StatusUnprocessableEntity, CodeSignatureInvalid},
		{"ca restricted", crypto.ErrCASignRestricted, http.StatusForbidden, CodeCASignRestricted},
		{"insecure", crypto.ErrInsecureAlgorithm, http.StatusUnprocessableEntity, CodeInsecureAlgorithm},
		{"destroyed", crypto.ErrKeyDestroyed, http.StatusServiceUnavailable, CodeKeyDestroyed},
		{"signing failed", crypto.ErrSigningFailed, http.StatusInternalServerError, CodeSigningFailed},
		{"canceled", context.Canceled, http.StatusServiceUnavailable, CodeRequestCanceled},
		{"deadline", context.DeadlineExceeded, http.StatusServiceUnavailable, CodeRequestCanceled},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, apiErr := MapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, apiErr.Code)
		})
	}
}

func TestMapError_Nil(t *testing.T) {
	status, apiErr := MapError(nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Nil(t, apiErr)
}

func TestMapError_SignatureDetails(t *testing.T) {
	err := crypto.NewSignatureError("verify", crypto.AlgECDSASHA256, crypto.ErrSignatureVerificationFailed)

	_, apiErr := MapError(err)
	assert.Equal(t, CodeSignatureInvalid, apiErr.Code)
	assert.Equal(t, "verify", apiErr.Details["operation"])
	assert.Equal(t, "ECDSA-SHA256", apiErr.Details["algorithm"])
}

func TestMapError_InternalMessageHidden(t *testing.T) {
	_, apiErr := MapError(errors.New("disk /secret/path unreadable"))
	assert.NotContains(t, apiErr.Message, "/secret/path")
}

func TestIsVerdict(t *testing.T) {
	assert.True(t, IsVerdict(crypto.NewSignatureError("verify", "", crypto.ErrSignatureVerificationFailed)))
	assert.True(t, IsVerdict(crypto.ErrCASignRestricted))
	assert.True(t, IsVerdict(crypto.ErrInsecureAlgorithm))
	assert.False(t, IsVerdict(crypto.ErrInvalidInputLength))
	assert.False(t, IsVerdict(crypto.ErrAlgorithmKeyMismatch))
	assert.False(t, IsVerdict(nil))
}
