package crypto

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"fmt"

	"github.com/cloudflare/circl/sign/ed448"
	"github.com/cloudflare/circl/sign/mldsa/mldsa44"
	"github.com/cloudflare/circl/sign/mldsa/mldsa65"
	"github.com/cloudflare/circl/sign/mldsa/mldsa87"
	"github.com/cloudflare/circl/sign/slhdsa"
)

// subjectPublicKeyInfo mirrors the X.509 SPKI structure.
type subjectPublicKeyInfo struct {
	Algorithm pkix.AlgorithmIdentifier
	PublicKey asn1.BitString
}

// pkcs8 mirrors the PKCS#8 PrivateKeyInfo structure (attributes omitted).
type pkcs8 struct {
	Version    int
	Algo       pkix.AlgorithmIdentifier
	PrivateKey []byte
}

// ImportPrivateKey decodes a private key. PEM blocks may be PKCS#8
// ("PRIVATE KEY", including Ed448), PKCS#1, SEC1 or the ML-DSA/SLH-DSA raw
// key types, optionally with legacy PEM encryption. DER input is tried as
// PKCS#8, PKCS#1 and SEC1 in turn.
func ImportPrivateKey(encoded []byte, format Format, passphrase []byte) (*PrivateKey, error) {
	priv, err := decodePrivateKey(encoded, format, passphrase)
	if err != nil {
		return nil, &SignatureError{Op: "import", Err: fmt.Errorf("%w: %w", ErrKeyImportFailed, err)}
	}
	key, err := NewPrivateKey(priv)
	if err != nil {
		return nil, &SignatureError{Op: "import", Err: err}
	}
	return key, nil
}

func decodePrivateKey(encoded []byte, format Format, passphrase []byte) (crypto.PrivateKey, error) {
	if format == FormatDER {
		return parseDERPrivateKey(encoded)
	}

	block, _ := pem.Decode(encoded)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	keyBytes := block.Bytes
	if x509.IsEncryptedPEMBlock(block) { //nolint:staticcheck
		if len(passphrase) == 0 {
			return nil, fmt.Errorf("%w: private key is encrypted", ErrPassphrase)
		}
		var err error
		keyBytes, err = x509.DecryptPEMBlock(block, passphrase) //nolint:staticcheck
		if err != nil {
			return nil, fmt.Errorf("%w: failed to decrypt private key: %w", ErrPassphrase, err)
		}
	}

	return parsePEMKeyBlock(block.Type, keyBytes)
}

// parsePEMKeyBlock parses a single PEM key block.
func parsePEMKeyBlock(pemType string, keyBytes []byte) (crypto.PrivateKey, error) {
	switch pemType {
	case "PRIVATE KEY":
		return parsePKCS8(keyBytes)

	case "EC PRIVATE KEY":
		priv, err := x509.ParseECPrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse EC key: %w", err)
		}
		return priv, nil

	case "RSA PRIVATE KEY":
		priv, err := x509.ParsePKCS1PrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA key: %w", err)
		}
		return priv, nil

	case "ENCRYPTED PRIVATE KEY":
		return nil, fmt.Errorf("encrypted PKCS#8 keys are not supported; use legacy PEM encryption")

	case "ML-DSA-44 PRIVATE KEY":
		var mlPriv mldsa44.PrivateKey
		if err := mlPriv.UnmarshalBinary(keyBytes); err != nil {
			return nil, fmt.Errorf("failed to parse ML-DSA-44 key: %w", err)
		}
		return &mlPriv, nil

	case "ML-DSA-65 PRIVATE KEY":
		var mlPriv mldsa65.PrivateKey
		if err := mlPriv.UnmarshalBinary(keyBytes); err != nil {
			return nil, fmt.Errorf("failed to parse ML-DSA-65 key: %w", err)
		}
		return &mlPriv, nil

	case "ML-DSA-87 PRIVATE KEY":
		var mlPriv mldsa87.PrivateKey
		if err := mlPriv.UnmarshalBinary(keyBytes); err != nil {
			return nil, fmt.Errorf("failed to parse ML-DSA-87 key: %w", err)
		}
		return &mlPriv, nil
	}

	if id, ok := parseSLHDSAPEMType(pemType); ok {
		var slhPriv slhdsa.PrivateKey
		slhPriv.ID = id
		if err := slhPriv.UnmarshalBinary(keyBytes); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", pemType, err)
		}
		return &slhPriv, nil
	}

	return nil, fmt.Errorf("unknown PEM type: %s", pemType)
}

// parseSLHDSAPEMType parses headers like "SLH-DSA-SHA2-128s PRIVATE KEY".
func parseSLHDSAPEMType(pemType string) (slhdsa.ID, bool) {
	for f := FamilySLHDSA128s; f <= FamilySLHDSA256f; f++ {
		if pemType == f.String()+" PRIVATE KEY" {
			return slhdsaParams(f)
		}
	}
	return 0, false
}

func parseDERPrivateKey(der []byte) (crypto.PrivateKey, error) {
	if priv, err := parsePKCS8(der); err == nil {
		return priv, nil
	}
	if priv, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return priv, nil
	}
	if priv, err := x509.ParseECPrivateKey(der); err == nil {
		return priv, nil
	}
	return nil, fmt.Errorf("DER data is not a PKCS#8, PKCS#1 or SEC1 private key")
}

// parsePKCS8 parses PKCS#8, adding Ed448 (RFC 8410) and RSASSA-PSS
// (RFC 4055) keys which crypto/x509 lacks.
func parsePKCS8(der []byte) (crypto.PrivateKey, error) {
	priv, err := x509.ParsePKCS8PrivateKey(der)
	if err == nil {
		return priv, nil
	}

	var info pkcs8
	if _, perr := asn1.Unmarshal(der, &info); perr != nil {
		return nil, fmt.Errorf("failed to parse PKCS#8 key: %w", err)
	}
	if info.Algo.Algorithm.Equal(oidRSASSAPSS) {
		rsaPriv, err := x509.ParsePKCS1PrivateKey(info.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA-PSS private key: %w", err)
		}
		return &RSAPSSPrivateKey{PrivateKey: rsaPriv}, nil
	}
	if !info.Algo.Algorithm.Equal(AlgEd448.OID()) {
		return nil, fmt.Errorf("failed to parse PKCS#8 key: %w", err)
	}

	var seed []byte
	if _, err := asn1.Unmarshal(info.PrivateKey, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse Ed448 private key: %w", err)
	}
	if len(seed) != ed448.SeedSize {
		return nil, fmt.Errorf("invalid Ed448 seed size: %d", len(seed))
	}
	return ed448.NewKeyFromSeed(seed), nil
}

// MarshalPrivateKeyPEM encodes a software private key as PEM. Classical
// keys, RSA-PSS and Ed448 use PKCS#8; ML-DSA and SLH-DSA use raw key PEM types.
func MarshalPrivateKeyPEM(priv crypto.PrivateKey) ([]byte, error) {
	var block *pem.Block

	switch k := priv.(type) {
	case *ecdsa.PrivateKey, ed25519.PrivateKey, *rsa.PrivateKey:
		der, err := x509.MarshalPKCS8PrivateKey(priv)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal private key: %w", err)
		}
		block = &pem.Block{Type: "PRIVATE KEY", Bytes: der}

	case *RSAPSSPrivateKey:
		der, err := asn1.Marshal(pkcs8{
			Algo:       pkix.AlgorithmIdentifier{Algorithm: oidRSASSAPSS},
			PrivateKey: x509.MarshalPKCS1PrivateKey(k.PrivateKey),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal RSA-PSS key: %w", err)
		}
		block = &pem.Block{Type: "PRIVATE KEY", Bytes: der}

	case ed448.PrivateKey:
		seed, err := asn1.Marshal(k.Seed())
		if err != nil {
			return nil, err
		}
		der, err := asn1.Marshal(pkcs8{
			Algo:       pkix.AlgorithmIdentifier{Algorithm: AlgEd448.OID()},
			PrivateKey: seed,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal Ed448 key: %w", err)
		}
		block = &pem.Block{Type: "PRIVATE KEY", Bytes: der}

	case *mldsa44.PrivateKey, *mldsa65.PrivateKey, *mldsa87.PrivateKey, *slhdsa.PrivateKey:
		m, ok := k.(interface{ MarshalBinary() ([]byte, error) })
		if !ok {
			return nil, fmt.Errorf("unsupported private key type: %T", priv)
		}
		raw, err := m.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %T: %w", priv, err)
		}
		block = &pem.Block{
			Type:  FamilyOf(publicKeyOf(priv)).String() + " PRIVATE KEY",
			Bytes: raw,
		}

	default:
		return nil, fmt.Errorf("unsupported private key type: %T", priv)
	}

	return pem.EncodeToMemory(block), nil
}

// ImportPublicKey decodes a public key: PKIX SPKI ("PUBLIC KEY") or PKCS#1
// ("RSA PUBLIC KEY"). SPKI covers the Ed448, ML-DSA and SLH-DSA OIDs.
func ImportPublicKey(encoded []byte, format Format) (*PublicKey, error) {
	pub, err := decodePublicKey(encoded, format)
	if err != nil {
		return nil, &SignatureError{Op: "import", Err: fmt.Errorf("%w: %w", ErrKeyImportFailed, err)}
	}
	key, err := NewPublicKey(pub)
	if err != nil {
		return nil, &SignatureError{Op: "import", Err: err}
	}
	return key, nil
}

func decodePublicKey(encoded []byte, format Format) (crypto.PublicKey, error) {
	if format == FormatDER {
		if pub, err := ParsePublicKeyInfo(encoded); err == nil {
			return pub, nil
		}
		if pub, err := x509.ParsePKCS1PublicKey(encoded); err == nil {
			return pub, nil
		}
		return nil, fmt.Errorf("DER data is not an SPKI or PKCS#1 public key")
	}

	block, _ := pem.Decode(encoded)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	switch block.Type {
	case "PUBLIC KEY":
		return ParsePublicKeyInfo(block.Bytes)
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	case "CERTIFICATE":
		return nil, fmt.Errorf("PEM block is a certificate; import it as a certificate")
	default:
		return nil, fmt.Errorf("unknown PEM type: %s", block.Type)
	}
}

// ParsePublicKeyInfo parses a DER SubjectPublicKeyInfo. Keys crypto/x509
// cannot handle (RSA-PSS, Ed448, ML-DSA, SLH-DSA) are decoded from their
// raw bits.
func ParsePublicKeyInfo(der []byte) (crypto.PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err == nil && FamilyOf(pub) != FamilyUnknown {
		return pub, nil
	}

	var spki subjectPublicKeyInfo
	if rest, perr := asn1.Unmarshal(der, &spki); perr != nil || len(rest) > 0 {
		if err == nil {
			return pub, nil
		}
		return nil, fmt.Errorf("failed to parse SPKI: %w", err)
	}

	raw, rawErr := ParseRawPublicKey(spki.Algorithm.Algorithm, spki.PublicKey.RightAlign())
	if rawErr != nil && err == nil {
		return pub, nil
	}
	return raw, rawErr
}

// ParseRawPublicKey decodes raw public key bytes for an SPKI algorithm OID.
func ParseRawPublicKey(oid asn1.ObjectIdentifier, raw []byte) (crypto.PublicKey, error) {
	if oid.Equal(oidRSASSAPSS) {
		pk, err := x509.ParsePKCS1PublicKey(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA-PSS public key: %w", err)
		}
		return &RSAPSSPublicKey{PublicKey: pk}, nil
	}

	family := familyFromKeyOID(oid)

	switch family {
	case FamilyEd448:
		if len(raw) != ed448.PublicKeySize {
			return nil, fmt.Errorf("invalid Ed448 public key size: %d", len(raw))
		}
		return ed448.PublicKey(append([]byte(nil), raw...)), nil

	case FamilyMLDSA44:
		var pk mldsa44.PublicKey
		if err := pk.UnmarshalBinary(raw); err != nil {
			return nil, fmt.Errorf("failed to parse ML-DSA-44 public key: %w", err)
		}
		return &pk, nil

	case FamilyMLDSA65:
		var pk mldsa65.PublicKey
		if err := pk.UnmarshalBinary(raw); err != nil {
			return nil, fmt.Errorf("failed to parse ML-DSA-65 public key: %w", err)
		}
		return &pk, nil

	case FamilyMLDSA87:
		var pk mldsa87.PublicKey
		if err := pk.UnmarshalBinary(raw); err != nil {
			return nil, fmt.Errorf("failed to parse ML-DSA-87 public key: %w", err)
		}
		return &pk, nil
	}

	if id, ok := slhdsaParams(family); ok {
		pk := slhdsa.PublicKey{ID: id}
		if err := pk.UnmarshalBinary(raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s public key: %w", family, err)
		}
		return &pk, nil
	}

	return nil, fmt.Errorf("unknown public key algorithm OID: %v", oid)
}

// familyFromKeyOID maps an SPKI algorithm OID of a pure scheme to its family.
func familyFromKeyOID(oid asn1.ObjectIdentifier) KeyFamily {
	for _, info := range algorithms {
		if info.Pure && info.OID.Equal(oid) {
			return info.Family
		}
	}
	return FamilyUnknown
}

// keyOID returns the SPKI algorithm OID for a pure-scheme family.
func keyOID(f KeyFamily) asn1.ObjectIdentifier {
	for _, info := range algorithms {
		if info.Pure && info.Family == f {
			return info.OID
		}
	}
	return nil
}

// MarshalPublicKeyInfo encodes a public key as a DER SubjectPublicKeyInfo.
func MarshalPublicKeyInfo(pub crypto.PublicKey) ([]byte, error) {
	var raw []byte

	switch k := pub.(type) {
	case *RSAPSSPublicKey:
		return marshalSPKI(oidRSASSAPSS, x509.MarshalPKCS1PublicKey(k.PublicKey))
	case ed448.PublicKey:
		raw = k
	case *mldsa44.PublicKey, *mldsa65.PublicKey, *mldsa87.PublicKey, *slhdsa.PublicKey:
		m, ok := k.(interface{ MarshalBinary() ([]byte, error) })
		if !ok {
			return nil, fmt.Errorf("unsupported public key type: %T", pub)
		}
		var err error
		if raw, err = m.MarshalBinary(); err != nil {
			return nil, fmt.Errorf("failed to marshal %T: %w", pub, err)
		}
	case slhdsa.PublicKey:
		return MarshalPublicKeyInfo(&k)
	default:
		return x509.MarshalPKIXPublicKey(pub)
	}

	oid := keyOID(FamilyOf(pub))
	if oid == nil {
		return nil, fmt.Errorf("no OID for public key type: %T", pub)
	}
	return marshalSPKI(oid, raw)
}

func marshalSPKI(oid asn1.ObjectIdentifier, raw []byte) ([]byte, error) {
	return asn1.Marshal(subjectPublicKeyInfo{
		Algorithm: pkix.AlgorithmIdentifier{Algorithm: oid},
		PublicKey: asn1.BitString{Bytes: raw, BitLength: 8 * len(raw)},
	})
}
