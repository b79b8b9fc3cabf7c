package config

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"

	"go.viam.com/graspplanner/logging"
)

// Read reads a config from the given file. ${VAR} references in the file are expanded first.
func Read(filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return FromReader(filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
func FromReader(originalPath string, r io.Reader, logger logging.Logger) (*Config, error) {
	cfg := Default()
	if err := json.NewDecoder(r).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrapf(err, "failed to decode Config from json")
	}
	cfg.ConfigFilePath = originalPath
	return process(cfg, logger)
}

// FromEnv builds a config from defaults and environment overrides only.
func FromEnv(logger logging.Logger) (*Config, error) {
	return process(Default(), logger)
}

func process(cfg *Config, logger logging.Logger) (*Config, error) {
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to apply environment overrides")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	logger.Infow("config loaded", "path", cfg.ConfigFilePath, "summary", cfg.String())
	return cfg, nil
}
