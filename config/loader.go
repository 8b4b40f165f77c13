package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "LIQBRIDGE"

// Load starts from Defaults, decodes the TOML file at path when path is not empty,
// then applies LIQBRIDGE_* environment overrides (a .env file is read first if present).
// Markets listed in the file replace the default market table.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		defaultMarkets := cfg.Markets
		cfg.Markets = nil

		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
		if len(cfg.Markets) == 0 {
			cfg.Markets = defaultMarkets
		}
	}

	_ = godotenv.Load()

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	DebugMode = cfg.Debug

	return &cfg, nil
}
