// Package config loads CLI configuration from the environment and an
// optional .env file.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	DBURL    string `mapstructure:"FHIRSTORE_DB_URL"`
	DBName   string `mapstructure:"FHIRSTORE_DB_NAME"`
	BaseURL  string `mapstructure:"FHIRSTORE_BASE_URL"`
	LogLevel string `mapstructure:"FHIRSTORE_LOG_LEVEL"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("FHIRSTORE_DB_NAME", "fhir")
	v.SetDefault("FHIRSTORE_BASE_URL", "http://localhost/")
	v.SetDefault("FHIRSTORE_LOG_LEVEL", "info")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("FHIRSTORE_DB_URL")
	v.BindEnv("FHIRSTORE_DB_NAME")
	v.BindEnv("FHIRSTORE_BASE_URL")
	v.BindEnv("FHIRSTORE_LOG_LEVEL")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DBURL == "" {
		return nil, fmt.Errorf("FHIRSTORE_DB_URL is required")
	}

	return cfg, nil
}
