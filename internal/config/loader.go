package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadDotEnv loads KEY=value pairs from the given .env files into the process
// environment. Missing files are skipped and existing variables are never overwritten.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from configPath, or returns defaults when configPath is empty.
// A .env file next to the config (and in the working directory) is loaded first,
// then ${VAR} references are interpolated and ACTIONGATE_* overrides applied.
func Load(configPath string) (*Config, error) {
	var cfg *Config

	if configPath == "" {
		if err := LoadDotEnv(".env"); err != nil {
			return nil, err
		}
		cfg = Defaults()
	} else {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
		}

		info, err := os.Stat(absPath)
		if err != nil {
			return nil, fmt.Errorf("config file not found: %s\n"+
				"Hint: Check the path or run with --config flag", absPath)
		}
		if info.IsDir() {
			absPath = filepath.Join(absPath, "config.yaml")
		}

		if err := LoadDotEnv(filepath.Join(filepath.Dir(absPath), ".env"), ".env"); err != nil {
			return nil, err
		}

		cfg, err = loadConfigFile(absPath)
		if err != nil {
			return nil, err
		}
		cfg.SourceFile = absPath
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	cfg = applyConfigDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(interpolateEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

// applyConfigDefaults fills zero values with defaults.
func applyConfigDefaults(cfg *Config) *Config {
	defaults := Defaults()

	if cfg.Service.Name == "" {
		cfg.Service.Name = defaults.Service.Name
	}
	if cfg.Service.Listen == "" {
		cfg.Service.Listen = defaults.Service.Listen
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = defaults.Service.LogLevel
	}
	cfg.Service.LogLevel = strings.ToLower(cfg.Service.LogLevel)
	if cfg.Service.LogFormat == "" {
		cfg.Service.LogFormat = defaults.Service.LogFormat
	}
	if cfg.Service.ForwardTimeout == 0 {
		cfg.Service.ForwardTimeout = defaults.Service.ForwardTimeout
	}

	// An unresolved reference must never be used as key material.
	if _, unresolved := UnresolvedEnvVar(cfg.Signing.Secret); unresolved {
		cfg.Signing.Secret = ""
	}
	if cfg.Signing.Header == "" {
		cfg.Signing.Header = defaults.Signing.Header
	}

	if cfg.Sinks == nil {
		cfg.Sinks = make(map[string]SinkConfig)
	}
	for name, sc := range cfg.Sinks {
		if sc.Type == SinkTwilio && sc.BaseURL == "" {
			sc.BaseURL = DefaultTwilioBaseURL
		}
		if sc.Retry == nil {
			sc.Retry = DefaultRetry()
		}
		cfg.Sinks[name] = sc
	}

	for i := range cfg.Endpoints {
		ep := &cfg.Endpoints[i]
		if ep.Action == ActionClaims && len(ep.Claims) == 0 {
			ep.Claims = DefaultClaims()
		}
		if ep.Action == ActionNotify && ep.Message == "" {
			ep.Message = DefaultNotifyMessage
		}
	}

	return cfg
}
