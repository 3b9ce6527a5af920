// Package doctor validates actiongate configuration beyond structural checks.
package doctor

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/mattjoyce/actiongate/internal/config"
	"github.com/mattjoyce/actiongate/internal/signature"
)

// minSecretLength is the shortest signing key accepted without a warning.
const minSecretLength = 16

// Result holds the outcome of a validation run.
type Result struct {
	Valid          bool    `json:"valid"`
	KeyFingerprint string  `json:"key_fingerprint,omitempty"`
	Errors         []Issue `json:"errors,omitempty"`
	Warnings       []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates a loaded configuration.
type Doctor struct {
	cfg *config.Config
}

// New creates a Doctor from a loaded config.
func New(cfg *config.Config) *Doctor {
	return &Doctor{cfg: cfg}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	if err := d.cfg.Validate(); err != nil {
		d.addError(r, "config", "", err.Error())
	}
	d.validateSigning(r)
	d.validateSinkURLs(r)
	d.warnUnusedSinks(r)
	d.warnListen(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validateSigning checks the signing key without ever reporting its value.
func (d *Doctor) validateSigning(r *Result) {
	secret := d.cfg.Signing.Secret
	if secret == "" {
		d.addError(r, "signing", "signing.secret",
			"no signing key configured (set SIGNING_KEY or ACTIONGATE_SIGNING_KEY); every endpoint will answer 500")
		return
	}

	r.KeyFingerprint = signature.Fingerprint(secret)
	if len(secret) < minSecretLength {
		d.addWarning(r, "signing", "signing.secret",
			fmt.Sprintf("signing key is shorter than %d characters", minSecretLength))
	}
	if strings.TrimSpace(secret) != secret {
		d.addWarning(r, "signing", "signing.secret",
			"signing key has leading or trailing whitespace; it is used verbatim")
	}
}

// validateSinkURLs checks that URL-shaped sink fields parse.
func (d *Doctor) validateSinkURLs(r *Result) {
	for _, name := range d.cfg.SinkNames() {
		sc := d.cfg.Sinks[name]
		var field, raw string
		switch sc.Type {
		case config.SinkSplunk:
			field, raw = "url", sc.URL
		case config.SinkTwilio:
			field, raw = "base_url", sc.BaseURL
		default:
			continue
		}
		if raw == "" {
			continue
		}

		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			d.addError(r, "sinks", "sinks."+name+"."+field, fmt.Sprintf("%q is not an absolute URL", raw))
			continue
		}
		if u.Scheme != "https" {
			d.addWarning(r, "sinks", "sinks."+name+"."+field, "credentials will be sent over plain HTTP")
		}
	}
}

func (d *Doctor) warnUnusedSinks(r *Result) {
	used := make(map[string]bool)
	for _, ep := range d.cfg.Endpoints {
		if ep.Sink != "" {
			used[ep.Sink] = true
		}
	}
	for _, name := range d.cfg.SinkNames() {
		if !used[name] {
			d.addWarning(r, "sinks", "sinks."+name, "sink is not referenced by any endpoint")
		}
	}
}

func (d *Doctor) warnListen(r *Result) {
	host, _, err := net.SplitHostPort(d.cfg.Service.Listen)
	if err != nil {
		d.addError(r, "service", "service.listen", fmt.Sprintf("invalid listen address %q: %v", d.cfg.Service.Listen, err))
		return
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		d.addWarning(r, "service", "service.listen", "listening on all interfaces; terminate TLS in front of actiongate")
	}
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	if r.Valid && len(r.Warnings) == 0 {
		b.WriteString("Configuration valid.\n")
	} else if r.Valid {
		fmt.Fprintf(&b, "Configuration valid (%d warning(s))\n", len(r.Warnings))
	} else {
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	if r.KeyFingerprint != "" {
		fmt.Fprintf(&b, "  signing key fingerprint: %s\n", r.KeyFingerprint)
	}

	for _, e := range r.Errors {
		if e.Field != "" {
			fmt.Fprintf(&b, "  ERROR [%s] %s: %s\n", e.Category, e.Field, e.Message)
		} else {
			fmt.Fprintf(&b, "  ERROR [%s] %s\n", e.Category, e.Message)
		}
	}
	for _, w := range r.Warnings {
		if w.Field != "" {
			fmt.Fprintf(&b, "  WARN  [%s] %s: %s\n", w.Category, w.Field, w.Message)
		} else {
			fmt.Fprintf(&b, "  WARN  [%s] %s\n", w.Category, w.Message)
		}
	}

	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
