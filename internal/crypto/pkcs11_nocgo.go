//go:build !cgo

package crypto

import (
	"crypto"
	"fmt"
	"io"
)

// errNoCGO is returned when PKCS#11 operations are attempted without CGO.
var errNoCGO = fmt.Errorf("HSM support requires CGO (build with CGO_ENABLED=1)")

// PKCS11Signer is unavailable without CGO.
type PKCS11Signer struct{}

// NewPKCS11Signer always fails without CGO.
func NewPKCS11Signer(_ PKCS11Config) (*PKCS11Signer, error) {
	return nil, errNoCGO
}

// Public returns nil.
func (s *PKCS11Signer) Public() crypto.PublicKey {
	return nil
}

// Sign always fails without CGO.
func (s *PKCS11Signer) Sign(_ io.Reader, _ []byte, _ crypto.SignerOpts) ([]byte, error) {
	return nil, errNoCGO
}

// Close is a no-op.
func (s *PKCS11Signer) Close() error {
	return nil
}

// SlotInfo describes an HSM slot.
type SlotInfo struct {
	ID           uint
	Description  string
	TokenLabel   string
	TokenSerial  string
	Manufacturer string
	HasToken     bool
}

// ListHSMSlots always fails without CGO.
func ListHSMSlots(_ string) ([]SlotInfo, error) {
	return nil, errNoCGO
}

// CloseAllPools is a no-op without CGO.
func CloseAllPools() {}
