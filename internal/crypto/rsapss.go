package crypto

import (
	"crypto"
	"crypto/rsa"
	"encoding/asn1"
	"fmt"
	"io"
)

// oidRSASSAPSS is id-RSASSA-PSS (RFC 4055). As an SPKI algorithm it marks
// an RSA key that may only produce PSS signatures.
var oidRSASSAPSS = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 10}

// RSAPSSPrivateKey is an RSA private key restricted to RSASSA-PSS.
type RSAPSSPrivateKey struct {
	*rsa.PrivateKey
}

// Public returns the PSS-restricted public half.
func (k *RSAPSSPrivateKey) Public() crypto.PublicKey {
	return &RSAPSSPublicKey{PublicKey: &k.PrivateKey.PublicKey}
}

// Sign implements crypto.Signer. PKCS#1 v1.5 options are refused.
func (k *RSAPSSPrivateKey) Sign(random io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	pss, ok := opts.(*rsa.PSSOptions)
	if !ok {
		return nil, fmt.Errorf("%w: RSA-PSS key used without PSS options", ErrAlgorithmKeyMismatch)
	}
	return k.PrivateKey.Sign(random, digest, pss)
}

// RSAPSSPublicKey is an RSA public key restricted to RSASSA-PSS.
type RSAPSSPublicKey struct {
	*rsa.PublicKey
}
