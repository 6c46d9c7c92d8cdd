package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
// The seven unprefixed fields mirror the facilitator's documented external
// interface verbatim; the FACILITATOR_-prefixed fields are this
// implementation's own ambient additions (store, wallet, chain client, logging).
type Config struct {
	Port             int    `envconfig:"PORT" default:"4345"`
	NodeEnv          string `envconfig:"NODE_ENV" default:"development"`
	LogLevel         string `envconfig:"LOG_LEVEL" default:"info"`
	ServerBCHAddress string `envconfig:"SERVER_BCH_ADDRESS"`
	APIType          string `envconfig:"API_TYPE" default:"rest-api"`
	BCHServerURL     string `envconfig:"BCH_SERVER_URL"`
	BearerToken      string `envconfig:"BEARER_TOKEN"`

	LogDir        string `envconfig:"FACILITATOR_LOG_DIR" default:"./logs"`
	DBPath        string `envconfig:"FACILITATOR_DB_PATH" default:"./data/bchfacilitator.sqlite"`
	MnemonicFile  string `envconfig:"FACILITATOR_MNEMONIC_FILE"`
	ChainAPIURLs  string `envconfig:"FACILITATOR_CHAIN_API_URLS"`
	SighashForkID bool   `envconfig:"FACILITATOR_SIGHASH_FORKID" default:"true"`
	Network       string `envconfig:"FACILITATOR_NETWORK" default:"mainnet"`
}

// Load reads configuration from .env file (if present) then from environment variables.
// Environment variables override .env values.
func Load() (*Config, error) {
	// Load .env file if it exists. godotenv does NOT override already-set env vars,
	// so real environment variables take precedence over .env values.
	envFiles := []string{".env"}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				slog.Warn("failed to load .env file", "file", f, "error", err)
			} else {
				slog.Info("loaded .env file", "file", f)
			}
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks configuration values for correctness.
func (c *Config) Validate() error {
	if c.Network != "mainnet" && c.Network != "testnet" {
		return fmt.Errorf("%w: network must be \"mainnet\" or \"testnet\", got %q", ErrInvalidConfig, c.Network)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be 1-65535, got %d", ErrInvalidConfig, c.Port)
	}
	if c.APIType != APITypeConsumer && c.APIType != APITypeREST {
		return fmt.Errorf("%w: api type must be %q or %q, got %q", ErrInvalidConfig, APITypeConsumer, APITypeREST, c.APIType)
	}
	if c.NodeEnv == "production" && c.ServerBCHAddress == "" {
		return fmt.Errorf("%w: SERVER_BCH_ADDRESS is required in production", ErrInvalidConfig)
	}
	return nil
}
