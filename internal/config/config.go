package config

import (
	"os"
	"strconv"
)

// Config holds the deployd service configuration, sourced from the
// environment.
type Config struct {
	Port            string
	ValidSecret     string
	SpecPath        string
	DatabasePath    string
	NewRelicLicense string
	NewRelicAppName string
	NewRelicEnabled bool
}

func Load() *Config {
	newRelicEnabledStr := getEnv("NEW_RELIC_ENABLED", "false")
	newRelicEnabled, err := strconv.ParseBool(newRelicEnabledStr)
	if err != nil {
		newRelicEnabled = false
	}

	return &Config{
		Port:            getEnv("PORT", "16166"),
		ValidSecret:     getEnv("RPC_SECRET", "your-64-character-secret-key-here-please-change-this-in-production"),
		SpecPath:        getEnv("DEPLOY_SPEC", "./deploy.toml"),
		DatabasePath:    getEnv("DATABASE_PATH", "./deployd.db"),
		NewRelicLicense: getEnv("NEW_RELIC_LICENSE_KEY", ""),
		NewRelicAppName: getEnv("NEW_RELIC_APP_NAME", "quantship-deployment"),
		NewRelicEnabled: newRelicEnabled,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
