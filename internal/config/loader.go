package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "VIBRA_"

// FileEnv names the variable holding an optional YAML config path.
const FileEnv = EnvPrefix + "CONFIG"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if VIBRA_CONFIG is set
//  3. env (prefix VIBRA_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(FileEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// VIBRA_MODEL_PATH -> model_path (flat keys, underscores preserved).
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.ModelKind != ModelKindFile && c.ModelKind != ModelKindRemote:
		return fmt.Errorf("%w: model_kind must be %q or %q, got %q", ErrInvalidConfig, ModelKindFile, ModelKindRemote, c.ModelKind)
	case c.ModelKind == ModelKindFile && strings.TrimSpace(c.ModelPath) == "":
		return fmt.Errorf("%w: model_path must not be empty", ErrInvalidConfig)
	case c.ModelKind == ModelKindRemote && strings.TrimSpace(c.ModelURL) == "":
		return fmt.Errorf("%w: model_url must not be empty for remote models", ErrInvalidConfig)
	case c.ReportStore != StoreMemory && c.ReportStore != StoreRedis:
		return fmt.Errorf("%w: report_store must be %q or %q, got %q", ErrInvalidConfig, StoreMemory, StoreRedis, c.ReportStore)
	case c.MaxUploadBytes <= 0:
		return fmt.Errorf("%w: max_upload_bytes must be positive", ErrInvalidConfig)
	case c.MaxReportListLimit <= 0:
		return fmt.Errorf("%w: max_report_list_limit must be positive", ErrInvalidConfig)
	}
	return nil
}
