//go:build cgo

package crypto

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"sync"

	"github.com/miekg/pkcs11"
)

// PKCS11Signer is a crypto.Signer backed by a private key object in an
// HSM. It covers RSA (PKCS#1 v1.5 and PSS) and ECDSA keys.
type PKCS11Signer struct {
	pool      *sessionPool
	keyHandle pkcs11.ObjectHandle
	pub       crypto.PublicKey
	mu        sync.Mutex
	closed    bool
}

// NewPKCS11Signer opens the key selected by cfg.
func NewPKCS11Signer(cfg PKCS11Config) (*PKCS11Signer, error) {
	if cfg.ModulePath == "" {
		return nil, fmt.Errorf("PKCS#11 module path is required")
	}
	if cfg.KeyLabel == "" && cfg.KeyID == "" {
		return nil, fmt.Errorf("at least one of key_label or key_id is required")
	}

	slotID, err := findSlotID(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to find slot: %w", err)
	}

	pool, err := getSessionPool(cfg.ModulePath, slotID, cfg.PIN)
	if err != nil {
		return nil, fmt.Errorf("failed to get session pool: %w", err)
	}

	session, release, err := pool.acquire()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire session: %w", err)
	}
	defer release()

	keyHandle, err := findPrivateKey(pool.ctx, session, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to find private key: %w", err)
	}

	pub, err := extractPublicKey(pool.ctx, session, keyHandle)
	if err != nil {
		return nil, fmt.Errorf("failed to extract public key: %w", err)
	}

	return &PKCS11Signer{pool: pool, keyHandle: keyHandle, pub: pub}, nil
}

// findSlotID resolves the slot from the configuration, querying the
// module when no slot ID is given.
func findSlotID(cfg PKCS11Config) (uint, error) {
	if cfg.SlotID != nil {
		return *cfg.SlotID, nil
	}

	ctx, err := loadModule(cfg.ModulePath)
	if err != nil {
		return 0, err
	}
	// C_Finalize is process-wide; only the context is released here.
	defer ctx.Destroy()

	slots, err := ctx.GetSlotList(true)
	if err != nil {
		return 0, fmt.Errorf("failed to get slot list: %w", err)
	}
	if len(slots) == 0 {
		return 0, fmt.Errorf("no slots with tokens found")
	}

	for _, slot := range slots {
		info, err := ctx.GetTokenInfo(slot)
		if err != nil {
			continue
		}
		if cfg.TokenLabel != "" && info.Label == cfg.TokenLabel {
			return slot, nil
		}
		if cfg.TokenSerial != "" && info.SerialNumber == cfg.TokenSerial {
			return slot, nil
		}
	}

	switch {
	case cfg.TokenLabel != "":
		return 0, fmt.Errorf("token with label %q not found", cfg.TokenLabel)
	case cfg.TokenSerial != "":
		return 0, fmt.Errorf("token with serial %q not found", cfg.TokenSerial)
	}
	return slots[0], nil
}

// findPrivateKey finds the single private key matching label and/or ID.
func findPrivateKey(ctx *pkcs11.Ctx, session pkcs11.SessionHandle, cfg PKCS11Config) (pkcs11.ObjectHandle, error) {
	template := []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_CLASS, pkcs11.CKO_PRIVATE_KEY),
	}
	if cfg.KeyLabel != "" {
		template = append(template, pkcs11.NewAttribute(pkcs11.CKA_LABEL, cfg.KeyLabel))
	}
	if cfg.KeyID != "" {
		id, err := hex.DecodeString(cfg.KeyID)
		if err != nil {
			return 0, fmt.Errorf("invalid key_id hex: %w", err)
		}
		template = append(template, pkcs11.NewAttribute(pkcs11.CKA_ID, id))
	}

	objs, err := findObjects(ctx, session, template, 2)
	if err != nil {
		return 0, err
	}
	switch len(objs) {
	case 0:
		return 0, fmt.Errorf("private key not found")
	case 1:
		return objs[0], nil
	default:
		return 0, fmt.Errorf("multiple keys found, please specify both key_label and key_id")
	}
}

// findPublicKeyForPrivate finds the public key object sharing the
// private key's ID, label and key type.
func findPublicKeyForPrivate(ctx *pkcs11.Ctx, session pkcs11.SessionHandle, privHandle pkcs11.ObjectHandle) (pkcs11.ObjectHandle, error) {
	attrs, err := ctx.GetAttributeValue(session, privHandle, []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_ID, nil),
		pkcs11.NewAttribute(pkcs11.CKA_LABEL, nil),
		pkcs11.NewAttribute(pkcs11.CKA_KEY_TYPE, nil),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get private key ID/label/type: %w", err)
	}

	objs, err := findObjects(ctx, session, []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_CLASS, pkcs11.CKO_PUBLIC_KEY),
		pkcs11.NewAttribute(pkcs11.CKA_ID, attrs[0].Value),
		pkcs11.NewAttribute(pkcs11.CKA_LABEL, attrs[1].Value),
		pkcs11.NewAttribute(pkcs11.CKA_KEY_TYPE, attrs[2].Value),
	}, 1)
	if err != nil {
		return 0, err
	}
	if len(objs) == 0 {
		return 0, fmt.Errorf("public key not found for private key")
	}
	return objs[0], nil
}

func findObjects(ctx *pkcs11.Ctx, session pkcs11.SessionHandle, template []*pkcs11.Attribute, limit int) ([]pkcs11.ObjectHandle, error) {
	if err := ctx.FindObjectsInit(session, template); err != nil {
		return nil, fmt.Errorf("failed to init find objects: %w", err)
	}
	defer func() { _ = ctx.FindObjectsFinal(session) }()

	objs, _, err := ctx.FindObjects(session, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find objects: %w", err)
	}
	return objs, nil
}

// extractPublicKey reads the public half of an HSM private key.
func extractPublicKey(ctx *pkcs11.Ctx, session pkcs11.SessionHandle, keyHandle pkcs11.ObjectHandle) (crypto.PublicKey, error) {
	attrs, err := ctx.GetAttributeValue(session, keyHandle, []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_KEY_TYPE, nil),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get key type: %w", err)
	}

	switch keyType := bytesToUint(attrs[0].Value); keyType {
	case pkcs11.CKK_EC:
		return extractECPublicKey(ctx, session, keyHandle)
	case pkcs11.CKK_RSA:
		return extractRSAPublicKey(ctx, session, keyHandle)
	default:
		return nil, fmt.Errorf("unsupported key type: 0x%X", keyType)
	}
}

// extractECPublicKey reads CKA_EC_POINT from the private key, or from the
// matching public key object, falling back to an SPKI in CKA_VALUE.
func extractECPublicKey(ctx *pkcs11.Ctx, session pkcs11.SessionHandle, keyHandle pkcs11.ObjectHandle) (crypto.PublicKey, error) {
	attrs, err := ctx.GetAttributeValue(session, keyHandle, []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_EC_PARAMS, nil),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get EC params: %w", err)
	}

	curve, err := parseECParams(attrs[0].Value)
	if err != nil {
		return nil, err
	}

	point, err := ecPointAttribute(ctx, session, keyHandle)
	if err != nil {
		pubHandle, findErr := findPublicKeyForPrivate(ctx, session, keyHandle)
		if findErr != nil {
			return nil, fmt.Errorf("CKA_EC_POINT not on private key and no public key object: %w", findErr)
		}

		point, err = ecPointAttribute(ctx, session, pubHandle)
		if err != nil {
			valueAttrs, valueErr := ctx.GetAttributeValue(session, pubHandle, []*pkcs11.Attribute{
				pkcs11.NewAttribute(pkcs11.CKA_VALUE, nil),
			})
			if valueErr != nil || len(valueAttrs[0].Value) == 0 {
				return nil, fmt.Errorf("failed to get EC point: %w", err)
			}
			pub, parseErr := x509.ParsePKIXPublicKey(valueAttrs[0].Value)
			if parseErr != nil {
				return nil, fmt.Errorf("failed to parse CKA_VALUE: %w", parseErr)
			}
			ecPub, ok := pub.(*ecdsa.PublicKey)
			if !ok {
				return nil, fmt.Errorf("CKA_VALUE is not an ECDSA key")
			}
			return ecPub, nil
		}
	}

	// CKA_EC_POINT is normally a DER OCTET STRING around the point.
	var inner []byte
	if rest, err := asn1.Unmarshal(point, &inner); err == nil && len(rest) == 0 {
		point = inner
	}

	//nolint:staticcheck // elliptic.Unmarshal is the simplest decoder for a raw ECDSA point
	x, y := elliptic.Unmarshal(curve, point)
	if x == nil {
		return nil, fmt.Errorf("failed to unmarshal EC point")
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}

func ecPointAttribute(ctx *pkcs11.Ctx, session pkcs11.SessionHandle, handle pkcs11.ObjectHandle) ([]byte, error) {
	attrs, err := ctx.GetAttributeValue(session, handle, []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_EC_POINT, nil),
	})
	if err != nil {
		return nil, err
	}
	if len(attrs[0].Value) == 0 {
		return nil, fmt.Errorf("empty CKA_EC_POINT")
	}
	return attrs[0].Value, nil
}

// extractRSAPublicKey reads modulus and exponent from the public key object.
func extractRSAPublicKey(ctx *pkcs11.Ctx, session pkcs11.SessionHandle, keyHandle pkcs11.ObjectHandle) (crypto.PublicKey, error) {
	pubHandle, err := findPublicKeyForPrivate(ctx, session, keyHandle)
	if err != nil {
		return nil, err
	}

	attrs, err := ctx.GetAttributeValue(session, pubHandle, []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_MODULUS, nil),
		pkcs11.NewAttribute(pkcs11.CKA_PUBLIC_EXPONENT, nil),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get RSA attributes: %w", err)
	}

	// CKA_PUBLIC_EXPONENT is a big-endian big integer, not a CK_ULONG.
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(attrs[0].Value),
		E: int(new(big.Int).SetBytes(attrs[1].Value).Int64()),
	}, nil
}

// parseECParams maps a DER curve OID to a curve.
func parseECParams(params []byte) (elliptic.Curve, error) {
	var oid asn1.ObjectIdentifier
	if _, err := asn1.Unmarshal(params, &oid); err != nil {
		return nil, fmt.Errorf("failed to parse EC params OID: %w", err)
	}

	switch {
	case oid.Equal(asn1.ObjectIdentifier{1, 2, 840, 10045, 3, 1, 7}):
		return elliptic.P256(), nil
	case oid.Equal(asn1.ObjectIdentifier{1, 3, 132, 0, 34}):
		return elliptic.P384(), nil
	case oid.Equal(asn1.ObjectIdentifier{1, 3, 132, 0, 35}):
		return elliptic.P521(), nil
	default:
		return nil, fmt.Errorf("unsupported EC curve OID: %v", oid)
	}
}

// bytesToUint decodes a native-endian CK_ULONG.
func bytesToUint(b []byte) uint {
	var result uint
	for i := len(b) - 1; i >= 0; i-- {
		result = result<<8 | uint(b[i])
	}
	return result
}

// Public returns the public key.
func (s *PKCS11Signer) Public() crypto.PublicKey {
	return s.pub
}

// Sign signs a digest inside the HSM. opts selects the hash, and
// *rsa.PSSOptions selects RSASSA-PSS for RSA keys.
func (s *PKCS11Signer) Sign(_ io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrKeyDestroyed
	}

	session, release, err := s.pool.acquire()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire session: %w", err)
	}
	defer release()

	var mech *pkcs11.Mechanism
	data := digest

	switch s.pub.(type) {
	case *ecdsa.PublicKey:
		mech = pkcs11.NewMechanism(pkcs11.CKM_ECDSA, nil)
	case *rsa.PublicKey:
		if pss, ok := opts.(*rsa.PSSOptions); ok {
			params, err := pssParams(pss)
			if err != nil {
				return nil, err
			}
			mech = pkcs11.NewMechanism(pkcs11.CKM_RSA_PKCS_PSS, params)
		} else {
			// CKM_RSA_PKCS expects the DigestInfo encoding, not the bare digest.
			mech = pkcs11.NewMechanism(pkcs11.CKM_RSA_PKCS, nil)
			data, err = addDigestInfoPrefix(digest, opts.HashFunc())
			if err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("unsupported key type for signing: %T", s.pub)
	}

	ctx := s.pool.ctx
	if err := ctx.SignInit(session, []*pkcs11.Mechanism{mech}, s.keyHandle); err != nil {
		return nil, fmt.Errorf("failed to init sign: %w", err)
	}

	sig, err := ctx.Sign(session, data)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}

	if _, ok := s.pub.(*ecdsa.PublicKey); ok {
		return convertECDSASignature(sig)
	}
	return sig, nil
}

// pssMechanisms maps a hash to its CKM digest and MGF1 identifiers.
var pssMechanisms = map[crypto.Hash][2]uint{
	crypto.SHA256: {pkcs11.CKM_SHA256, pkcs11.CKG_MGF1_SHA256},
	crypto.SHA384: {pkcs11.CKM_SHA384, pkcs11.CKG_MGF1_SHA384},
	crypto.SHA512: {pkcs11.CKM_SHA512, pkcs11.CKG_MGF1_SHA512},
}

func pssParams(opts *rsa.PSSOptions) ([]byte, error) {
	m, ok := pssMechanisms[opts.Hash]
	if !ok {
		return nil, fmt.Errorf("unsupported PSS hash: %v", opts.Hash)
	}
	salt := opts.SaltLength
	if salt <= 0 {
		salt = opts.Hash.Size()
	}
	return pkcs11.NewPSSParams(m[0], m[1], uint(salt)), nil
}

// DigestInfo prefixes for PKCS#1 v1.5 signatures (RFC 8017 section 9.2).
var digestInfoPrefixes = map[crypto.Hash][]byte{
	crypto.SHA1:   {0x30, 0x21, 0x30, 0x09, 0x06, 0x05, 0x2b, 0x0e, 0x03, 0x02, 0x1a, 0x05, 0x00, 0x04, 0x14},
	crypto.SHA224: {0x30, 0x2d, 0x30, 0x0d, 0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x04, 0x05, 0x00, 0x04, 0x1c},
	crypto.SHA256: {0x30, 0x31, 0x30, 0x0d, 0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x01, 0x05, 0x00, 0x04, 0x20},
	crypto.SHA384: {0x30, 0x41, 0x30, 0x0d, 0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x02, 0x05, 0x00, 0x04, 0x30},
	crypto.SHA512: {0x30, 0x51, 0x30, 0x0d, 0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x03, 0x05, 0x00, 0x04, 0x40},
}

func addDigestInfoPrefix(digest []byte, hash crypto.Hash) ([]byte, error) {
	prefix, ok := digestInfoPrefixes[hash]
	if !ok {
		return nil, fmt.Errorf("no DigestInfo prefix for %v", hash)
	}
	out := make([]byte, 0, len(prefix)+len(digest))
	out = append(out, prefix...)
	return append(out, digest...), nil
}

// convertECDSASignature converts a raw r||s signature to ASN.1 DER.
func convertECDSASignature(raw []byte) ([]byte, error) {
	if len(raw) == 0 || len(raw)%2 != 0 {
		return nil, fmt.Errorf("invalid ECDSA signature length")
	}
	n := len(raw) / 2
	return asn1.Marshal(struct {
		R, S *big.Int
	}{new(big.Int).SetBytes(raw[:n]), new(big.Int).SetBytes(raw[n:])})
}

// Close marks the signer closed. Sessions belong to the shared pool,
// which CloseAllPools releases.
func (s *PKCS11Signer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
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

// ListHSMSlots lists the slots of a PKCS#11 module.
func ListHSMSlots(modulePath string) ([]SlotInfo, error) {
	ctx, err := loadModule(modulePath)
	if err != nil {
		return nil, err
	}
	defer ctx.Destroy()

	slots, err := ctx.GetSlotList(false)
	if err != nil {
		return nil, fmt.Errorf("failed to get slot list: %w", err)
	}

	result := make([]SlotInfo, 0, len(slots))
	for _, slot := range slots {
		slotInfo, err := ctx.GetSlotInfo(slot)
		if err != nil {
			continue
		}

		si := SlotInfo{
			ID:          slot,
			Description: slotInfo.SlotDescription,
			HasToken:    slotInfo.Flags&pkcs11.CKF_TOKEN_PRESENT != 0,
		}
		if si.HasToken {
			if tokenInfo, err := ctx.GetTokenInfo(slot); err == nil {
				si.TokenLabel = tokenInfo.Label
				si.TokenSerial = tokenInfo.SerialNumber
				si.Manufacturer = tokenInfo.ManufacturerID
			}
		}
		result = append(result, si)
	}

	return result, nil
}
