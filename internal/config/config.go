package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultTechScoreThreshold = 70
	DefaultBidURLTTL          = time.Hour
	DefaultEvalURLTTL         = 30 * time.Minute
)

type Config struct {
	PostgresConn  string
	ServerAddress string
	MigrationsDir string

	BlobRoot       string
	BlobSigningKey string
	BlobBaseURL    string

	// NATSUrl empty means notifications are disabled.
	NATSUrl string

	TechScoreThreshold int
	BidURLTTL          time.Duration
	EvalURLTTL         time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is honoured when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		PostgresConn:       os.Getenv("POSTGRES_CONN"),
		ServerAddress:      getenv("SERVER_ADDRESS", "0.0.0.0:8080"),
		MigrationsDir:      getenv("MIGRATIONS_DIR", "./migrations"),
		BlobRoot:           getenv("BLOB_ROOT", "./blobdata"),
		BlobSigningKey:     os.Getenv("BLOB_SIGNING_KEY"),
		BlobBaseURL:        getenv("BLOB_BASE_URL", "http://localhost:8080"),
		NATSUrl:            os.Getenv("NATS_URL"),
		TechScoreThreshold: DefaultTechScoreThreshold,
		BidURLTTL:          DefaultBidURLTTL,
		EvalURLTTL:         DefaultEvalURLTTL,
	}

	if cfg.PostgresConn == "" {
		return nil, fmt.Errorf("POSTGRES_CONN env variable is not set")
	}
	if cfg.BlobSigningKey == "" {
		return nil, fmt.Errorf("BLOB_SIGNING_KEY env variable is not set")
	}

	if v := os.Getenv("TECH_SCORE_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 100 {
			return nil, fmt.Errorf("invalid TECH_SCORE_THRESHOLD %q", v)
		}
		cfg.TechScoreThreshold = n
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
