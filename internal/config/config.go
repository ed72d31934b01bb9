package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration
type Config struct {
	DatabaseURL string
	Port        string
	JWTSecret   string
	OTPSalt     string
	DevMode     bool

	ChallengeTTL time.Duration
	TokenTTL     time.Duration

	// RequireSelection enforces at least one non-empty selection across the
	// whole ballot before a cast is accepted.
	RequireSelection bool

	// MinIO object storage for nomination documents. When Endpoint is empty
	// the local filesystem store under DocumentDir is used instead.
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	DocumentDir    string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:             "8080",
		ChallengeTTL:     5 * time.Minute,
		TokenTTL:         15 * time.Minute,
		RequireSelection: true,
		MinioBucket:      "ballotbox-documents",
		DocumentDir:      "data/documents",
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	cfg.DatabaseURL = databaseURL

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	cfg.JWTSecret = jwtSecret

	otpSalt := os.Getenv("OTP_SALT")
	if otpSalt == "" {
		return nil, fmt.Errorf("OTP_SALT environment variable is required")
	}
	cfg.OTPSalt = otpSalt

	cfg.DevMode = os.Getenv("OTP_DEV_MODE") == "true"

	if v := os.Getenv("CHALLENGE_TTL_MINUTES"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes <= 0 {
			return nil, fmt.Errorf("CHALLENGE_TTL_MINUTES must be a positive integer")
		}
		cfg.ChallengeTTL = time.Duration(minutes) * time.Minute
	}

	if v := os.Getenv("TOKEN_TTL_MINUTES"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes <= 0 {
			return nil, fmt.Errorf("TOKEN_TTL_MINUTES must be a positive integer")
		}
		cfg.TokenTTL = time.Duration(minutes) * time.Minute
	}

	if v := os.Getenv("REQUIRE_SELECTION"); v != "" {
		cfg.RequireSelection = v == "true"
	}

	cfg.MinioEndpoint = os.Getenv("MINIO_ENDPOINT")
	cfg.MinioAccessKey = os.Getenv("MINIO_ACCESS_KEY")
	cfg.MinioSecretKey = os.Getenv("MINIO_SECRET_KEY")
	if bucket := os.Getenv("MINIO_BUCKET"); bucket != "" {
		cfg.MinioBucket = bucket
	}
	cfg.MinioUseSSL = os.Getenv("MINIO_USE_SSL") == "true"
	if dir := os.Getenv("DOCUMENT_DIR"); dir != "" {
		cfg.DocumentDir = dir
	}

	if cfg.MinioEndpoint != "" {
		if cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" {
			return nil, fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when MINIO_ENDPOINT is set")
		}
	}

	return cfg, nil
}
