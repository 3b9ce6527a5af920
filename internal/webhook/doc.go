// Package webhook serves signed action webhooks and dispatches verified
// payloads to their configured action.
//
// Every endpoint requires a `t=<timestamp>,v1=<hex>` signature header
// (zitadel-signature by default) computed as HMAC-SHA256 over
// "<timestamp>.<raw body>" with the shared signing key. See package signature.
//
// # Actions
//
//   - claims: answers with {"append_claims":[...]} built from configuration
//   - forward: sends the JSON event to a log sink (Splunk HEC)
//   - notify: sends an SMS through a notification sink (Twilio)
//
// Sink failures are logged and swallowed; the caller always receives 200 once
// the signature checks out, so the sender does not pile up retries.
//
// # Error Responses
//
//   - 400 Bad Request: missing, malformed or invalid signature; invalid JSON
//   - 404 Not Found: unknown path or non-POST method
//   - 413 Payload Too Large: body exceeds max_body_size
//   - 500 Internal Server Error: no signing key configured
//
// Secrets, request bodies and computed signatures are never logged.
package webhook
