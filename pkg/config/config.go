package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL  string
	Port         string
	IsProduction bool

	JWTSecret string
	JWTIssuer string

	// FieldEncryptionKey is the hex-encoded 32-byte key for field-level
	// encryption of transaction descriptions, references and row snapshots.
	FieldEncryptionKey string

	// DocAIProcessor is the full Document AI processor resource name used for
	// PDF statements. Empty disables PDF ingestion.
	DocAIProcessor string
	DocAITimeout   time.Duration

	// ImportStaleAfter is how long an IMPORTING import may sit untouched
	// before re-entry resets and reprocesses it.
	ImportStaleAfter time.Duration

	// RateLimit is an ulule/limiter formatted rate, e.g. "120-M".
	RateLimit string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_ISSUER", "bank-recon-app")
	viper.SetDefault("FIELD_ENCRYPTION_KEY", "")
	viper.SetDefault("DOCAI_PROCESSOR", "")
	viper.SetDefault("DOCAI_TIMEOUT", "60s")
	viper.SetDefault("IMPORT_STALE_AFTER", "30m")
	viper.SetDefault("RATE_LIMIT", "120-M")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")

	cfg.FieldEncryptionKey = viper.GetString("FIELD_ENCRYPTION_KEY")
	if cfg.FieldEncryptionKey == "" {
		return nil, fmt.Errorf("FIELD_ENCRYPTION_KEY must be set to a hex-encoded 32-byte key")
	}

	cfg.DocAIProcessor = viper.GetString("DOCAI_PROCESSOR")
	if cfg.DocAIProcessor == "" {
		log.Println("Warning: DOCAI_PROCESSOR not set. PDF statement ingestion is disabled.")
	}

	docAITimeoutStr := viper.GetString("DOCAI_TIMEOUT")
	docAITimeout, err := time.ParseDuration(docAITimeoutStr)
	if err != nil {
		docAITimeout = 60 * time.Second
		log.Printf("Warning: Invalid value for DOCAI_TIMEOUT ('%s'). Defaulting to %s.\n", docAITimeoutStr, docAITimeout)
	}
	cfg.DocAITimeout = docAITimeout

	staleAfterStr := viper.GetString("IMPORT_STALE_AFTER")
	staleAfter, err := time.ParseDuration(staleAfterStr)
	if err != nil {
		staleAfter = 30 * time.Minute
		log.Printf("Warning: Invalid value for IMPORT_STALE_AFTER ('%s'). Defaulting to %s.\n", staleAfterStr, staleAfter)
	}
	cfg.ImportStaleAfter = staleAfter

	cfg.RateLimit = viper.GetString("RATE_LIMIT")

	return cfg, nil
}
