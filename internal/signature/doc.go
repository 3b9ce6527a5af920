// Package signature implements the timestamped HMAC-SHA256 scheme used to
// authenticate inbound action webhooks.
//
// A sender signs each request with a header of the form
//
//	t=<timestamp>,v1=<hex signature>
//
// where the signature is HMAC-SHA256(secret, "<timestamp>.<raw body>") encoded
// as lower-case hex. Element order in the header is irrelevant and unknown
// elements are ignored.
//
// # Security Model
//
//   - The body is verified byte-exact; nothing is re-serialized before hashing.
//   - The final comparison uses crypto/subtle (constant-time).
//   - Secrets are never logged. Use Fingerprint when an operator needs to
//     confirm which key is loaded.
//   - Timestamps are not checked for freshness, so a captured request can be
//     replayed. Callers needing replay protection must layer it elsewhere.
//
// # Example Usage
//
//	v, err := signature.New(signature.Config{Secret: os.Getenv("SIGNING_KEY")})
//	if err != nil {
//		return err
//	}
//	switch err := v.Verify(r.Header.Get("zitadel-signature"), body); {
//	case errors.Is(err, signature.ErrMissingHeader), errors.Is(err, signature.ErrMalformedHeader):
//		// 400
//	case errors.Is(err, signature.ErrSignatureMismatch):
//		// 400
//	}
package signature
