package auth

import "errors"

var (
	// ErrInvalidToken covers malformed tokens and bad signatures.
	ErrInvalidToken = errors.New("invalid authentication token")

	ErrExpiredToken     = errors.New("authentication token has expired")
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")
	ErrMissingToken     = errors.New("authentication token is missing")

	// ErrWrongTokenType is returned for tokens whose type claim is not "access".
	ErrWrongTokenType = errors.New("wrong token type")

	// ErrWeakSecret is returned by NewJWTService for secrets under 32 bytes.
	ErrWeakSecret = errors.New("jwt secret must be at least 32 characters")
)
