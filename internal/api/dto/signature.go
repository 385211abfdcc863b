package dto

// AlgorithmInfo describes a signature algorithm of the registry.
type AlgorithmInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Family      string `json:"family"`
	Digest      string `json:"digest"`
	Padding     string `json:"padding,omitempty"`
	Pure        bool   `json:"pure"`
	PQC         bool   `json:"pqc"`
	InputSize   int    `json:"input_size"` // 0 for pure schemes
	Description string `json:"description,omitempty"`
}

// AlgorithmListResponse is returned by GET /api/v1/algorithms.
type AlgorithmListResponse struct {
	Algorithms []AlgorithmInfo `json:"algorithms"`
}

// ResolveRequest asks for the canonical algorithm of a family and digest.
type ResolveRequest struct {
	Family string `json:"family"`
	Digest string `json:"digest"`

	// PSS selects RSASSA-PSS instead of PKCS#1 v1.5 for RSA.
	PSS bool `json:"pss,omitempty"`
}

// ResolveResponse carries the resolved algorithm.
type ResolveResponse struct {
	Algorithm AlgorithmInfo `json:"algorithm"`
}

// VerifyRequest verifies one signature. Exactly one of Certificate and
// PublicKey, and exactly one of Digest and Data, must be set.
type VerifyRequest struct {
	// Certificate is a PEM X.509 certificate.
	Certificate string `json:"certificate,omitempty"`

	// PublicKey is a PEM SubjectPublicKeyInfo.
	PublicKey string `json:"public_key,omitempty"`

	// Algorithm is an algorithm id or name. When empty it is resolved from
	// the key family and DigestAlgorithm.
	Algorithm       string `json:"algorithm,omitempty"`
	DigestAlgorithm string `json:"digest_algorithm,omitempty"`

	// Flags are verify flag names, e.g. "disable-ca-sign-check".
	Flags []string `json:"flags,omitempty"`

	Digest    *BinaryData `json:"digest,omitempty"`
	Data      *BinaryData `json:"data,omitempty"`
	Signature BinaryData  `json:"signature"`
}

// VerifyResponse is the outcome of a verification. A well-formed request
// with a bad signature yields Valid=false and a populated Error.
type VerifyResponse struct {
	Valid     bool      `json:"valid"`
	Algorithm string    `json:"algorithm,omitempty"`
	Error     *APIError `json:"error,omitempty"`
}

// SignRequest signs a digest or data with the server's key.
type SignRequest struct {
	// Algorithm defaults to the configured default algorithm.
	Algorithm    string      `json:"algorithm,omitempty"`
	Digest       *BinaryData `json:"digest,omitempty"`
	Data         *BinaryData `json:"data,omitempty"`
	Reproducible bool        `json:"reproducible,omitempty"`

	// Encoding of the returned signature: "base64" (default) or "hex".
	Encoding string `json:"encoding,omitempty"`
}

// SignResponse carries the produced signature.
type SignResponse struct {
	Algorithm string     `json:"algorithm"`
	Signature BinaryData `json:"signature"`
}

// BatchVerifyRequest verifies independent items.
type BatchVerifyRequest struct {
	Items []VerifyRequest `json:"items"`
}

// BatchVerifyResponse holds one result per item, in request order.
type BatchVerifyResponse struct {
	Results []VerifyResponse `json:"results"`
	Valid   int              `json:"valid"`
	Invalid int              `json:"invalid"`
}
