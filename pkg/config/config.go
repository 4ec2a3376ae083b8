package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the amaci node service.
type Config struct {
	// Server Configuration
	ListenAddr  string // ABCI socket/gRPC listen address for CometBFT
	HealthAddr  string

	// Data directory for the CometBFT application DB
	DataDir string

	// CometBFT Network Configuration
	ChainID string // CometBFT chain ID for the round network (e.g., "amaci-1")

	// Operator Configuration
	ValidatorID string
	LogLevel    string

	// Round defaults (used only when no persisted Meta exists yet and a round
	// must be instantiated from genesis app_state)
	DefaultAdmin             string
	DefaultOperator          string
	DefaultFeeRecipient      string
	DefaultVoiceCreditAmount int64
}

// Load reads configuration from environment variables.
//
// SECURITY: AMACI_ADMIN and AMACI_OPERATOR have no defaults and must be explicitly set
// (COMETBFT_CHAIN_ID defaults to "amaci-1"). Call Validate() after Load() to ensure all
// required configuration is present.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr: getEnv("API_HOST", "0.0.0.0") + ":" + getEnv("API_PORT", "8080"),
		HealthAddr: getEnv("API_HOST", "0.0.0.0") + ":" + getEnv("HEALTH_CHECK_PORT", "8081"),

		DataDir: getEnv("DATA_DIR", "./data"),

		ChainID: getEnv("COMETBFT_CHAIN_ID", "amaci-1"),

		ValidatorID: getEnv("VALIDATOR_ID", "operator-default"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		DefaultAdmin:             getEnv("AMACI_ADMIN", ""),
		DefaultOperator:          getEnv("AMACI_OPERATOR", ""),
		DefaultFeeRecipient:      getEnv("AMACI_FEE_RECIPIENT", ""),
		DefaultVoiceCreditAmount: getEnvInt64("AMACI_VOICE_CREDIT_AMOUNT", 100),
	}

	return cfg, nil
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	var errs []string

	if c.ChainID == "" {
		errs = append(errs, "COMETBFT_CHAIN_ID is required but not set")
	}
	if c.DefaultAdmin == "" {
		errs = append(errs, "AMACI_ADMIN is required but not set")
	}
	if c.DefaultOperator == "" {
		errs = append(errs, "AMACI_OPERATOR is required but not set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Helper functions for environment variable parsing.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// ValidateForDevelopment performs relaxed validation suitable for local development.
func (c *Config) ValidateForDevelopment() error {
	if c.ChainID == "" {
		return fmt.Errorf("development configuration validation failed: COMETBFT_CHAIN_ID is required")
	}
	return nil
}
