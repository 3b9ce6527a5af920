package signature

import "errors"

var (
	// ErrMissingHeader is returned when no signature header was supplied.
	ErrMissingHeader = errors.New("missing signature")

	// ErrMalformedHeader is returned when the header lacks a non-empty t or v1 element.
	ErrMalformedHeader = errors.New("malformed signature header")

	// ErrSignatureMismatch is returned when the header is well-formed but the
	// computed signature disagrees with v1.
	ErrSignatureMismatch = errors.New("invalid signature")

	// ErrNotConfigured is returned when a verifier is built without a secret.
	ErrNotConfigured = errors.New("missing signing key")
)
