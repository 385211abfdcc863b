// Package errors provides error handling and HTTP status code mapping.
package errors

import (
	"context"
	"errors"
	"net/http"

	"github.com/remiblancher/qsig/internal/api/dto"
	"github.com/remiblancher/qsig/internal/crypto"
)

// Error codes for API responses.
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeInvalidKey          = "INVALID_KEY"
	CodeUnsupported         = "UNSUPPORTED_ALGORITHM"
	CodeInvalidInputLength  = "INVALID_INPUT_LENGTH"
	CodeKeyMismatch         = "ALGORITHM_KEY_MISMATCH"
	CodeSignatureInvalid    = "SIGNATURE_INVALID"
	CodeCASignRestricted    = "CA_SIGN_RESTRICTED"
	CodeInsecureAlgorithm   = "INSECURE_ALGORITHM"
	CodeSigningUnavailable  = "SIGNING_UNAVAILABLE"
	CodeKeyDestroyed        = "KEY_DESTROYED"
	CodeSigningFailed       = "SIGNING_FAILED"
	CodeInternal            = "INTERNAL_ERROR"
	CodeRequestCanceled     = "REQUEST_CANCELED"
	CodeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	CodeNotFound            = "NOT_FOUND"
	CodeRequestBodyTooLarge = "REQUEST_TOO_LARGE"
)

var (
	// ErrInvalidRequest marks malformed requests.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrSigningUnavailable is returned when the server has no signing key.
	ErrSigningUnavailable = errors.New("no signing key configured")
)

// mapping pairs a sentinel with its status and code. Order matters: the
// first match wins.
var mappings = []struct {
	err    error
	status int
	code   string
}{
	{ErrInvalidRequest, http.StatusBadRequest, CodeInvalidRequest},
	{ErrSigningUnavailable, http.StatusServiceUnavailable, CodeSigningUnavailable},
	{crypto.ErrKeyImportFailed, http.StatusBadRequest, CodeInvalidKey},
	{crypto.ErrCertificateImportFailed, http.StatusBadRequest, CodeInvalidKey},
	{crypto.ErrNoPublicKey, http.StatusBadRequest, CodeInvalidKey},
	{crypto.ErrUnsupportedCombination, http.StatusBadRequest, CodeUnsupported},
	{crypto.ErrInvalidInputLength, http.StatusBadRequest, CodeInvalidInputLength},
	{crypto.ErrAlgorithmKeyMismatch, http.StatusUnprocessableEntity, CodeKeyMismatch},
	{crypto.ErrSignatureVerificationFailed, http.StatusUnprocessableEntity, CodeSignatureInvalid},
	{crypto.ErrCASignRestricted, http.StatusForbidden, CodeCASignRestricted},
	{crypto.ErrInsecureAlgorithm, http.StatusUnprocessableEntity, CodeInsecureAlgorithm},
	{crypto.ErrKeyDestroyed, http.StatusServiceUnavailable, CodeKeyDestroyed},
	{crypto.ErrSigningFailed, http.StatusInternalServerError, CodeSigningFailed},
	{context.Canceled, http.StatusServiceUnavailable, CodeRequestCanceled},
	{context.DeadlineExceeded, http.StatusServiceUnavailable, CodeRequestCanceled},
}

// MapError maps an internal error to an HTTP status code and APIError.
func MapError(err error) (int, *dto.APIError) {
	if err == nil {
		return http.StatusOK, nil
	}

	for _, m := range mappings {
		if errors.Is(err, m.err) {
			apiErr := &dto.APIError{Code: m.code, Message: err.Error()}
			var sigErr *crypto.SignatureError
			if errors.As(err, &sigErr) {
				apiErr.Details = signatureDetails(sigErr)
			}
			return m.status, apiErr
		}
	}

	// Default internal error
	return http.StatusInternalServerError, &dto.APIError{
		Code:    CodeInternal,
		Message: "An internal error occurred",
	}
}

func signatureDetails(e *crypto.SignatureError) map[string]string {
	details := map[string]string{"operation": e.Op}
	if e.Alg != "" {
		details["algorithm"] = crypto.Name(e.Alg)
	}
	return details
}

// IsVerdict reports whether err is a verification outcome rather than a
// problem with the request: a bad signature or a policy rejection.
func IsVerdict(err error) bool {
	return errors.Is(err, crypto.ErrSignatureVerificationFailed) ||
		errors.Is(err, crypto.ErrCASignRestricted) ||
		errors.Is(err, crypto.ErrInsecureAlgorithm)
}

// NewBadRequest creates a bad request error.
func NewBadRequest(message string) *dto.APIError {
	return &dto.APIError{
		Code:    CodeInvalidRequest,
		Message: message,
	}
}
