package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

const configFileName = "agent.yaml"

// Initialize loads, merges, and validates the agent's configuration file.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load agent.yaml from configDir, if present
//  2. Expand environment variables (${VAR} / $VAR)
//  3. Parse YAML into an empty Config
//  4. Merge loaded values over the defaults (loaded values win)
//  5. Validate the result
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("configuration initialized",
		"control_addr", cfg.ControlAddr(),
		"binary_addr", cfg.BinaryAddr(),
		"event_addr", cfg.EventAddr(),
		"auth_required", cfg.RequireAuth())

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.configDir = configDir

	loader := &configLoader{configDir: configDir}

	loaded, err := loader.loadAgentYAML()
	if err != nil {
		if errors.Is(err, ErrConfigNotFound) {
			slog.Warn("no agent.yaml found, using defaults", "config_dir", configDir)
			return cfg, nil
		}
		return nil, NewLoadError(configFileName, err)
	}

	if err := mergo.Merge(cfg, loaded, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge loaded configuration: %w", err)
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	return NewValidator(cfg).ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadAgentYAML() (*Config, error) {
	path := filepath.Join(l.configDir, configFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, err
	}

	data = ExpandEnv(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return &cfg, nil
}
