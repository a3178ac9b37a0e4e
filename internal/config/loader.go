package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names.
const (
	EnvPrefix     = "GLIDERINDEX_"
	EnvConfigFile = EnvPrefix + "CONFIG"
)

var validate = validator.New(validator.WithRequiredStructEnabled()) //nolint:gochecknoglobals // skip

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if GLIDERINDEX_CONFIG is set
//  3. env (prefix GLIDERINDEX_)
func Load(ctx context.Context) (*Config, error) {
	return LoadFile(ctx, os.Getenv(EnvConfigFile))
}

// LoadFile is Load with an explicit YAML path; an empty path skips the file layer.
func LoadFile(ctx context.Context, path string) (*Config, error) {
	// Start with defaults
	base := New(ctx)

	k := koanf.New(".")

	// Load from file if provided
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// Environment variables: GLIDERINDEX_ADDR, GLIDERINDEX_OUTPUT_DIR, ...
	// Map env keys like GLIDERINDEX_OUTPUT_DIR -> output_dir (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, strings.ToLower(EnvPrefix))
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy. Tables are decoded into empty values so a file
	// replaces the default tables instead of merging element by element.
	cfg := *base
	cfg.Catalog = nil
	cfg.CompetitionClasses = nil
	cfg.CompetitionColumns.Flags = nil
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if cfg.Catalog == nil {
		cfg.Catalog = base.Catalog
	}
	if cfg.CompetitionClasses == nil {
		cfg.CompetitionClasses = base.CompetitionClasses
	}
	if cfg.CompetitionColumns.Flags == nil {
		cfg.CompetitionColumns.Flags = base.CompetitionColumns.Flags
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and the domain rules of the tables.
// A competition class with a non-positive reference is rejected here so a
// run never divides by it.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	for i, spec := range c.CompetitionClasses {
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("%w: competition_classes[%d]: %w", ErrInvalidConfig, i, err)
		}
	}
	if err := c.ChangePolicy.Validate(); err != nil {
		return fmt.Errorf("%w: change_policy: %w", ErrInvalidConfig, err)
	}
	seen := make(map[string]struct{}, len(c.Catalog))
	for _, entry := range c.Catalog {
		if _, dup := seen[string(entry.Flag)]; dup {
			return fmt.Errorf("%w: catalog: duplicate class %q", ErrInvalidConfig, entry.Flag)
		}
		seen[string(entry.Flag)] = struct{}{}
	}
	return nil
}
