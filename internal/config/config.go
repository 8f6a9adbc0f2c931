// package config loads application configuration from environment variables.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// database
	DatabaseURL string

	// nats
	NatsURL string

	// telegram
	TGApiID       int
	TGApiHash     string
	TGSessionFile string

	// server
	HTTPPort int

	// logging
	LogLevel string
	LogFile  string

	// append-only logs
	EventLogFile   string
	ListingLogFile string
	EventLogPolicy string // best_effort, fail_fast

	// listings
	ListingOwnerID      string
	ListingUIDPrefix    string
	ListingKeyStrategy  string // display_name, contact_id
	ListingLookupPolicy string // propagate, treat_as_absent
	ListingSerialize    bool
	RepoRequestsPerSec  float64
	RepoBurst           int
	GroupsFile          string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:         getEnv("DATABASE_URL", "sqlite://./data/listings.db"),
		NatsURL:             getEnv("NATS_URL", ""),
		TGApiID:             getEnvInt("TG_API_ID", 0),
		TGApiHash:           getEnv("TG_API_HASH", ""),
		TGSessionFile:       getEnv("TG_SESSION_FILE", "./data/session.json"),
		HTTPPort:            getEnvInt("HTTP_PORT", 3100),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFile:             getEnv("LOG_FILE", "./logs/app.log"),
		EventLogFile:        getEnv("EVENT_LOG_FILE", "./data/log.jsonl"),
		ListingLogFile:      getEnv("LISTING_LOG_FILE", "./data/potential-posting.jsonl"),
		EventLogPolicy:      getEnv("EVENT_LOG_POLICY", "best_effort"),
		ListingOwnerID:      getEnv("LISTING_OWNER_ID", "haoshiyou-admin"),
		ListingUIDPrefix:    getEnv("LISTING_UID_PREFIX", "group-collected-"),
		ListingKeyStrategy:  getEnv("LISTING_KEY_STRATEGY", "display_name"),
		ListingLookupPolicy: getEnv("LISTING_LOOKUP_POLICY", "propagate"),
		ListingSerialize:    getEnvBool("LISTING_SERIALIZE", true),
		RepoRequestsPerSec:  getEnvFloat("REPO_RPS", 5),
		RepoBurst:           getEnvInt("REPO_BURST", 1),
		GroupsFile:          getEnv("GROUPS_FILE", "./groups.yaml"),
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
