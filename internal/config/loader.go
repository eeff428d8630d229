package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" {
			errs = append(errs, errors.New("server.tls.cert_file is required when TLS is configured"))
		}
		if cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls.key_file is required when TLS is configured"))
		}
	}

	// Model
	if cfg.Model.APIKey == "" {
		errs = append(errs, errors.New("model.api_key is required"))
	}

	// Intake
	if cfg.Intake.SettleDelay < 0 {
		errs = append(errs, fmt.Errorf("intake.settle_delay %s must not be negative", cfg.Intake.SettleDelay))
	}
	if cfg.Intake.SettleDelay > 30*time.Second {
		slog.Warn("intake.settle_delay is unusually long; callers will sit in silence before hangup",
			"settle_delay", cfg.Intake.SettleDelay)
	}
	if cfg.Intake.SaveTimeout < 0 {
		errs = append(errs, fmt.Errorf("intake.save_timeout %s must not be negative", cfg.Intake.SaveTimeout))
	}

	// Storage
	if cfg.Storage.PostgresDSN == "" {
		errs = append(errs, errors.New("storage.postgres_dsn is required"))
	}

	// Telephony
	if cfg.Telephony.ControlURL == "" {
		slog.Warn("telephony.control_url is empty; settled calls will not be hung up automatically")
	}
	if cfg.Telephony.AuthToken != "" && cfg.Telephony.ControlURL == "" {
		errs = append(errs, errors.New("telephony.auth_token is set but telephony.control_url is empty"))
	}

	return errors.Join(errs...)
}
