package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override. Each override also falls back
// to its bare name (e.g. SIGNING_KEY) for deployments that predate the prefix.
const EnvPrefix = "ACTIONGATE"

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// envOverrides are read with envconfig and win over the config file.
type envOverrides struct {
	SigningKey     string        `envconfig:"SIGNING_KEY"`
	Listen         string        `envconfig:"LISTEN"`
	LogLevel       string        `envconfig:"LOG_LEVEL"`
	LogFormat      string        `envconfig:"LOG_FORMAT"`
	ForwardTimeout time.Duration `envconfig:"FORWARD_TIMEOUT"`
}

func applyEnvOverrides(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to read environment overrides: %w", err)
	}

	if env.SigningKey != "" {
		cfg.Signing.Secret = env.SigningKey
	}
	if env.Listen != "" {
		cfg.Service.Listen = env.Listen
	}
	if env.LogLevel != "" {
		cfg.Service.LogLevel = env.LogLevel
	}
	if env.LogFormat != "" {
		cfg.Service.LogFormat = env.LogFormat
	}
	if env.ForwardTimeout > 0 {
		cfg.Service.ForwardTimeout = env.ForwardTimeout
	}
	return nil
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Unknown variables are left in place so validation can report them.
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

// UnresolvedEnvVar returns the name of the first ${VAR} left in s, if any.
func UnresolvedEnvVar(s string) (string, bool) {
	matches := envVarPattern.FindStringSubmatch(s)
	if len(matches) < 2 {
		return "", false
	}
	return matches[1], true
}
