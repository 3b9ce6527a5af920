package signature

import (
	"crypto/subtle"
	"strconv"
	"time"
)

// Config holds verifier settings.
type Config struct {
	// Secret is the shared HMAC key.
	Secret string
}

// Result carries the outcome of a single check. Computed is exposed for
// diagnostics and must not be echoed to the caller.
type Result struct {
	Timestamp string
	Provided  string
	Computed  string
	Valid     bool
}

// Verifier checks signature headers against a fixed secret.
// It holds no mutable state and is safe for concurrent use.
type Verifier struct {
	secret string
}

// New creates a verifier. An empty secret is a configuration error.
func New(cfg Config) (*Verifier, error) {
	if cfg.Secret == "" {
		return nil, ErrNotConfigured
	}
	return &Verifier{secret: cfg.Secret}, nil
}

// Check parses the header and compares its v1 value with the signature
// computed over body. Header problems are returned as errors; a mismatch is
// reported through Result.Valid.
func (v *Verifier) Check(header string, body []byte) (Result, error) {
	if header == "" {
		return Result{}, ErrMissingHeader
	}

	h, err := ParseHeader(header)
	if err != nil {
		return Result{}, err
	}

	computed := Compute(v.secret, h.Timestamp, body)
	return Result{
		Timestamp: h.Timestamp,
		Provided:  h.Signature,
		Computed:  computed,
		Valid:     equal(computed, h.Signature),
	}, nil
}

// Verify returns nil when the header carries a valid signature for body.
func (v *Verifier) Verify(header string, body []byte) error {
	res, err := v.Check(header, body)
	if err != nil {
		return err
	}
	if !res.Valid {
		return ErrSignatureMismatch
	}
	return nil
}

// Valid reports whether the header carries a valid signature for body.
func (v *Verifier) Valid(header string, body []byte) bool {
	return v.Verify(header, body) == nil
}

// Sign builds a header for body at the given timestamp.
func (v *Verifier) Sign(timestamp string, body []byte) string {
	return Header{Timestamp: timestamp, Signature: Compute(v.secret, timestamp, body)}.String()
}

// SignNow signs body with the current Unix time.
func (v *Verifier) SignNow(body []byte) string {
	return v.Sign(strconv.FormatInt(time.Now().Unix(), 10), body)
}

// Fingerprint returns the fingerprint of the configured secret.
func (v *Verifier) Fingerprint() string {
	return Fingerprint(v.secret)
}

// equal is exact, case-sensitive string equality whose running time does not
// depend on where the inputs differ.
func equal(computed, provided string) bool {
	return subtle.ConstantTimeCompare([]byte(computed), []byte(provided)) == 1
}
