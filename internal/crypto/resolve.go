package crypto

import "fmt"

// Resolve maps a key family and digest kind to the canonical signature
// algorithm for that pair. It is a pure function of its inputs.
//
// RSA resolves to PKCS#1 v1.5; use ResolvePSS for RSASSA-PSS. RSA-PSS keys
// only resolve to RSASSA-PSS. Pure schemes
// accept DigestNone or the digest intrinsic to the scheme (SHA-512 for
// Ed25519, SHAKE256 for Ed448). DSA never resolves.
//
// Example:
//
//	alg, err := crypto.Resolve(crypto.FamilyRSA, crypto.DigestSHA1)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(crypto.Name(alg)) // RSA-SHA1
func Resolve(family KeyFamily, digest DigestKind) (AlgorithmID, error) {
	switch family {
	case FamilyRSA:
		switch digest {
		case DigestSHA1:
			return AlgRSASHA1, nil
		case DigestSHA224:
			return AlgRSASHA224, nil
		case DigestSHA256:
			return AlgRSASHA256, nil
		case DigestSHA384:
			return AlgRSASHA384, nil
		case DigestSHA512:
			return AlgRSASHA512, nil
		}

	case FamilyRSAPSS:
		if alg, err := ResolvePSS(digest); err == nil {
			return alg, nil
		}

	case FamilyECDSA:
		switch digest {
		case DigestSHA1:
			return AlgECDSASHA1, nil
		case DigestSHA224:
			return AlgECDSASHA224, nil
		case DigestSHA256:
			return AlgECDSASHA256, nil
		case DigestSHA384:
			return AlgECDSASHA384, nil
		case DigestSHA512:
			return AlgECDSASHA512, nil
		case DigestSHA3_256:
			return AlgECDSASHA3_256, nil
		case DigestSHA3_384:
			return AlgECDSASHA3_384, nil
		case DigestSHA3_512:
			return AlgECDSASHA3_512, nil
		}

	case FamilyEd25519:
		if digest == DigestNone || digest == DigestSHA512 {
			return AlgEd25519, nil
		}

	case FamilyEd448:
		if digest == DigestNone || digest == DigestSHAKE256 {
			return AlgEd448, nil
		}

	case FamilyMLDSA44:
		if digest == DigestNone {
			return AlgMLDSA44, nil
		}
	case FamilyMLDSA65:
		if digest == DigestNone {
			return AlgMLDSA65, nil
		}
	case FamilyMLDSA87:
		if digest == DigestNone {
			return AlgMLDSA87, nil
		}

	case FamilySLHDSA128s:
		if digest == DigestNone {
			return AlgSLHDSA128s, nil
		}
	case FamilySLHDSA128f:
		if digest == DigestNone {
			return AlgSLHDSA128f, nil
		}
	case FamilySLHDSA192s:
		if digest == DigestNone {
			return AlgSLHDSA192s, nil
		}
	case FamilySLHDSA192f:
		if digest == DigestNone {
			return AlgSLHDSA192f, nil
		}
	case FamilySLHDSA256s:
		if digest == DigestNone {
			return AlgSLHDSA256s, nil
		}
	case FamilySLHDSA256f:
		if digest == DigestNone {
			return AlgSLHDSA256f, nil
		}

	case FamilyDSA, FamilyUnknown:
		// no algorithms
	}

	return "", &SignatureError{
		Op:  "resolve",
		Err: fmt.Errorf("%w: %s with %s", ErrUnsupportedCombination, family, digest),
	}
}

// ResolvePSS returns the RSASSA-PSS algorithm for a digest kind.
func ResolvePSS(digest DigestKind) (AlgorithmID, error) {
	switch digest {
	case DigestSHA256:
		return AlgRSAPSSSHA256, nil
	case DigestSHA384:
		return AlgRSAPSSSHA384, nil
	case DigestSHA512:
		return AlgRSAPSSSHA512, nil
	}
	return "", &SignatureError{
		Op:  "resolve",
		Err: fmt.Errorf("%w: RSA-PSS with %s", ErrUnsupportedCombination, digest),
	}
}

// Supports reports whether a key family can be used with an algorithm.
// Plain RSA keys support both paddings; RSA-PSS keys only PSS.
func Supports(family KeyFamily, alg AlgorithmID) bool {
	info, ok := algorithms[alg]
	if !ok || family == FamilyDSA {
		return false
	}
	if family == FamilyRSAPSS {
		return info.Padding == PaddingPSS
	}
	return info.Family == family
}
