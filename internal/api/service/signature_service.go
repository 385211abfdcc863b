// Package service provides business logic for the REST API.
package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/remiblancher/qsig/internal/api/dto"
	apierrors "github.com/remiblancher/qsig/internal/api/errors"
	"github.com/remiblancher/qsig/internal/api/middleware"
	"github.com/remiblancher/qsig/internal/audit"
	"github.com/remiblancher/qsig/internal/crypto"
	"github.com/remiblancher/qsig/internal/signature"
	"github.com/remiblancher/qsig/internal/x509util"
)

// DefaultMaxBatchItems bounds a batch verification request.
const DefaultMaxBatchItems = 1000

// Options configures a SignatureService.
type Options struct {
	// Key signs /sign requests. Nil disables signing.
	Key *crypto.PrivateKey

	// KeyRef names the key in audit records (file path or HSM label).
	KeyRef string

	DefaultAlgorithm crypto.AlgorithmID

	// VerifyFlags are OR-ed into every verification.
	VerifyFlags signature.VerifyFlags

	BatchWorkers  int
	MaxBatchItems int
}

// SignatureService signs and verifies on behalf of HTTP handlers.
type SignatureService struct {
	opts Options
}

// NewSignatureService creates a new SignatureService.
func NewSignatureService(opts Options) *SignatureService {
	if opts.MaxBatchItems <= 0 {
		opts.MaxBatchItems = DefaultMaxBatchItems
	}
	return &SignatureService{opts: opts}
}

// CanSign reports whether a signing key is configured.
func (s *SignatureService) CanSign() bool {
	return s.opts.Key != nil
}

// NewAlgorithmInfo describes alg for API responses.
func NewAlgorithmInfo(alg crypto.AlgorithmID) dto.AlgorithmInfo {
	info := dto.AlgorithmInfo{
		ID:          alg.String(),
		Name:        crypto.Name(alg),
		Family:      alg.Family().String(),
		Digest:      alg.Digest().String(),
		Pure:        alg.IsPure(),
		PQC:         alg.IsPQC(),
		InputSize:   alg.InputSize(),
		Description: alg.Description(),
	}
	if p := alg.Padding(); p != crypto.PaddingNone {
		info.Padding = p.String()
	}
	return info
}

// Algorithms lists the registry.
func (s *SignatureService) Algorithms() *dto.AlgorithmListResponse {
	all := crypto.AllAlgorithms()
	resp := &dto.AlgorithmListResponse{Algorithms: make([]dto.AlgorithmInfo, 0, len(all))}
	for _, alg := range all {
		resp.Algorithms = append(resp.Algorithms, NewAlgorithmInfo(alg))
	}
	return resp
}

// Resolve returns the canonical algorithm for a family and digest.
func (s *SignatureService) Resolve(req *dto.ResolveRequest) (*dto.ResolveResponse, error) {
	family, err := crypto.ParseKeyFamily(req.Family)
	if err != nil {
		return nil, invalid(err)
	}
	digest, err := crypto.ParseDigestKind(req.Digest)
	if err != nil {
		return nil, invalid(err)
	}

	var alg crypto.AlgorithmID
	switch {
	case !req.PSS:
		alg, err = crypto.Resolve(family, digest)
	case family != crypto.FamilyRSA && family != crypto.FamilyRSAPSS:
		err = fmt.Errorf("%w: PSS padding needs an RSA key, got %s", crypto.ErrUnsupportedCombination, family)
	default:
		alg, err = crypto.ResolvePSS(digest)
	}
	if err != nil {
		return nil, err
	}
	return &dto.ResolveResponse{Algorithm: NewAlgorithmInfo(alg)}, nil
}

// Verify checks one signature. A bad signature or a policy rejection is a
// response with Valid=false; only malformed requests return an error.
func (s *SignatureService) Verify(ctx context.Context, req *dto.VerifyRequest) (*dto.VerifyResponse, error) {
	in, err := s.prepareVerify(req)
	if err != nil {
		return nil, err
	}
	defer in.close()

	verr := signature.Verify(in.key, in.alg, in.flags, in.input, in.sig)
	if verr != nil && !apierrors.IsVerdict(verr) {
		return nil, verr
	}
	if err := s.auditVerify(ctx, in, verr); err != nil {
		return nil, err
	}
	return verdict(in.alg, verr), nil
}

// VerifyBatch verifies independent items concurrently. Malformed items
// fail individually; the batch fails only when the context ends or
// auditing fails.
func (s *SignatureService) VerifyBatch(ctx context.Context, req *dto.BatchVerifyRequest) (*dto.BatchVerifyResponse, error) {
	if len(req.Items) == 0 {
		return nil, invalid(fmt.Errorf("items must not be empty"))
	}
	if len(req.Items) > s.opts.MaxBatchItems {
		return nil, invalid(fmt.Errorf("too many items: %d > %d", len(req.Items), s.opts.MaxBatchItems))
	}

	resp := &dto.BatchVerifyResponse{Results: make([]dto.VerifyResponse, len(req.Items))}

	var (
		items   []signature.BatchItem
		inputs  []*verifyInput
		indexes []int
	)
	defer func() {
		for _, in := range inputs {
			in.close()
		}
	}()

	for i := range req.Items {
		in, err := s.prepareVerify(&req.Items[i])
		if err != nil {
			_, apiErr := apierrors.MapError(err)
			resp.Results[i] = dto.VerifyResponse{Algorithm: req.Items[i].Algorithm, Error: apiErr}
			continue
		}
		inputs = append(inputs, in)
		indexes = append(indexes, i)
		items = append(items, signature.BatchItem{
			Key:       in.key,
			Algorithm: in.alg,
			Flags:     in.flags,
			Digest:    in.input,
			Signature: in.sig,
		})
	}

	results, err := signature.VerifyBatch(ctx, items, s.opts.BatchWorkers)
	if err != nil {
		return nil, err
	}

	for j, r := range results {
		in := inputs[j]
		if err := s.auditVerify(ctx, in, r.Err); err != nil {
			return nil, err
		}
		resp.Results[indexes[j]] = *verdict(in.alg, r.Err)
	}

	for _, r := range resp.Results {
		if r.Valid {
			resp.Valid++
		} else {
			resp.Invalid++
		}
	}

	zerolog.Ctx(ctx).Debug().
		Int("items", len(req.Items)).
		Int("valid", resp.Valid).
		Msg("batch verified")
	return resp, nil
}

// Sign signs a digest or data with the configured key.
func (s *SignatureService) Sign(ctx context.Context, req *dto.SignRequest) (*dto.SignResponse, error) {
	key := s.opts.Key
	if key == nil {
		return nil, apierrors.ErrSigningUnavailable
	}

	alg, err := s.signAlgorithm(key.Family(), req.Algorithm)
	if err != nil {
		return nil, err
	}

	input, err := selectInput(alg, req.Digest, req.Data)
	if err != nil {
		return nil, err
	}

	var flags signature.SignFlags
	if req.Reproducible {
		flags |= signature.SignReproducible
	}

	sig, signErr := signature.Sign(key, alg, flags, input)

	auditErr := audit.LogSign(
		audit.Object{Path: s.opts.KeyRef, Family: key.Family().String()},
		s.auditContext(ctx, alg, flags.String()),
		signErr,
	)
	if signErr != nil {
		return nil, signErr
	}
	if auditErr != nil {
		return nil, auditErr
	}

	resp := &dto.SignResponse{Algorithm: crypto.Name(alg), Signature: dto.NewBase64(sig)}
	if req.Encoding == dto.EncodingHex {
		resp.Signature = dto.NewHex(sig)
	}
	return resp, nil
}

// signAlgorithm picks the request algorithm, the configured default, or the
// only algorithm of a pure key family.
func (s *SignatureService) signAlgorithm(family crypto.KeyFamily, name string) (crypto.AlgorithmID, error) {
	if name != "" {
		return crypto.ParseAlgorithm(name)
	}
	if s.opts.DefaultAlgorithm != "" {
		return s.opts.DefaultAlgorithm, nil
	}
	if alg, err := crypto.Resolve(family, crypto.DigestNone); err == nil {
		return alg, nil
	}
	return "", invalid(fmt.Errorf("algorithm is required for %s keys", family))
}

// verifyInput is a decoded verification request. close releases the key.
type verifyInput struct {
	key     *crypto.PublicKey
	subject string
	alg     crypto.AlgorithmID
	flags   signature.VerifyFlags
	input   []byte
	sig     []byte
}

func (in *verifyInput) close() {
	if in.key != nil {
		_ = in.key.Close()
	}
}

func (s *SignatureService) prepareVerify(req *dto.VerifyRequest) (*verifyInput, error) {
	flags, err := signature.ParseVerifyFlags(req.Flags)
	if err != nil {
		return nil, invalid(err)
	}

	sig, err := req.Signature.Decode()
	if err != nil {
		return nil, invalid(fmt.Errorf("signature: %w", err))
	}
	if len(sig) == 0 {
		return nil, invalid(fmt.Errorf("signature is required"))
	}

	key, subject, err := loadVerificationKey(req)
	if err != nil {
		return nil, err
	}
	in := &verifyInput{key: key, subject: subject, flags: flags | s.opts.VerifyFlags, sig: sig}

	in.alg, err = verifyAlgorithm(key.Family(), req.Algorithm, req.DigestAlgorithm)
	if err != nil {
		in.close()
		return nil, err
	}

	in.input, err = selectInput(in.alg, req.Digest, req.Data)
	if err != nil {
		in.close()
		return nil, err
	}
	return in, nil
}

// loadVerificationKey imports the certificate or public key of req.
func loadVerificationKey(req *dto.VerifyRequest) (*crypto.PublicKey, string, error) {
	switch {
	case req.Certificate != "" && req.PublicKey != "":
		return nil, "", invalid(fmt.Errorf("certificate and public_key are mutually exclusive"))

	case req.Certificate != "":
		cert, err := x509util.ImportCertificate([]byte(req.Certificate), crypto.FormatPEM)
		if err != nil {
			return nil, "", err
		}
		defer func() { _ = cert.Close() }()

		key, err := x509util.PublicKeyFromCertificate(cert, 0)
		if err != nil {
			return nil, "", err
		}
		return key, cert.Subject(), nil

	case req.PublicKey != "":
		key, err := crypto.ImportPublicKey([]byte(req.PublicKey), crypto.FormatPEM)
		if err != nil {
			return nil, "", err
		}
		return key, "", nil
	}
	return nil, "", invalid(fmt.Errorf("certificate or public_key is required"))
}

// verifyAlgorithm parses name, or infers the algorithm from the key family
// and digest when name is empty.
func verifyAlgorithm(family crypto.KeyFamily, name, digestName string) (crypto.AlgorithmID, error) {
	if name != "" {
		return crypto.ParseAlgorithm(name)
	}
	digest, err := crypto.ParseDigestKind(digestName)
	if err != nil {
		return "", invalid(err)
	}
	return crypto.Resolve(family, digest)
}

// selectInput decodes exactly one of digest and data. Data is pre-hashed
// for alg.
func selectInput(alg crypto.AlgorithmID, digest, data *dto.BinaryData) ([]byte, error) {
	switch {
	case digest != nil && data != nil:
		return nil, invalid(fmt.Errorf("digest and data are mutually exclusive"))
	case digest != nil:
		b, err := digest.Decode()
		if err != nil {
			return nil, invalid(fmt.Errorf("digest: %w", err))
		}
		return b, nil
	case data != nil:
		b, err := data.Decode()
		if err != nil {
			return nil, invalid(fmt.Errorf("data: %w", err))
		}
		return signature.Prehash(alg, b), nil
	}
	return nil, invalid(fmt.Errorf("digest or data is required"))
}

func verdict(alg crypto.AlgorithmID, err error) *dto.VerifyResponse {
	resp := &dto.VerifyResponse{Valid: err == nil, Algorithm: crypto.Name(alg)}
	if err != nil {
		_, resp.Error = apierrors.MapError(err)
	}
	return resp
}

func (s *SignatureService) auditVerify(ctx context.Context, in *verifyInput, verr error) error {
	return audit.LogVerify(
		audit.Object{Subject: in.subject, Family: in.key.Family().String()},
		s.auditContext(ctx, in.alg, in.flags.String()),
		verr,
	)
}

func (s *SignatureService) auditContext(ctx context.Context, alg crypto.AlgorithmID, flags string) audit.Context {
	return audit.Context{
		Algorithm: crypto.Name(alg),
		Flags:     flags,
		Source:    "api",
		RequestID: middleware.GetRequestID(ctx),
	}
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", apierrors.ErrInvalidRequest, err)
}
