package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	StoreSQLite    = "sqlite"
	StoreFirestore = "firestore"
	StoreMongo     = "mongo"
)

// Auth modes.
const (
	AuthLocal    = "local"    // this service signs tokens and keeps passwords
	AuthFirebase = "firebase" // Firebase ID tokens, custom claims and users
	AuthJWKS     = "jwks"     // any issuer publishing a JWKS
)

type Config struct {
	StoreDriver    string // Optional: sqlite, firestore, mongo (default: sqlite)
	DatabaseFile   string // Optional: SQLite database file (default: ./licensing.db)
	MongoURI       string // Required for mongo
	MongoDatabase  string // Optional: mongo database name (default: licensing)
	GCPProject     string // Required for firestore and firebase
	CredentialFile string // Optional: service account JSON, else application default credentials

	AuthMode       string        // Optional: local, firebase, jwks (default: local)
	Issuer         string        // Optional: iss claim issued or expected (default: geoforest-licensing)
	Audience       []string      // Optional: accepted aud values, comma separated
	JWKSURL        string        // Required for jwks
	SigningKeyFile string        // Optional: Ed25519 PEM for local mode (default: ./signing.pem)
	SigningKeyID   string        // Optional: kid published in the JWKS (default: primary)
	PepperFile     string        // Optional: password pepper for local accounts (default: ./pepper)
	TokenTTL       time.Duration // Optional: local access token lifetime (default: 1h)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Trial expiry sweep interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		StoreDriver:    strings.ToLower(getEnvOrDefault("LICENSING_STORE", StoreSQLite)),
		DatabaseFile:   getEnvOrDefault("LICENSING_DATABASE_FILE", "licensing.db"),
		MongoURI:       os.Getenv("LICENSING_MONGO_URI"),
		MongoDatabase:  getEnvOrDefault("LICENSING_MONGO_DATABASE", "licensing"),
		GCPProject:     getEnvOrDefault("LICENSING_GCP_PROJECT", os.Getenv("GOOGLE_CLOUD_PROJECT")),
		CredentialFile: os.Getenv("LICENSING_CREDENTIALS_FILE"),

		AuthMode:       strings.ToLower(getEnvOrDefault("LICENSING_AUTH_MODE", AuthLocal)),
		Issuer:         getEnvOrDefault("LICENSING_ISSUER", "geoforest-licensing"),
		Audience:       splitList(os.Getenv("LICENSING_AUDIENCE")),
		JWKSURL:        os.Getenv("LICENSING_JWKS_URL"),
		SigningKeyFile: getEnvOrDefault("LICENSING_SIGNING_KEY_FILE", "signing.pem"),
		SigningKeyID:   getEnvOrDefault("LICENSING_SIGNING_KEY_ID", "primary"),
		PepperFile:     getEnvOrDefault("LICENSING_PEPPER_FILE", "pepper"),
		TokenTTL:       getEnvDurationOrDefault("LICENSING_TOKEN_TTL", time.Hour),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	// Firebase ID tokens are issued per project.
	if cfg.AuthMode == AuthFirebase && os.Getenv("LICENSING_ISSUER") == "" && cfg.GCPProject != "" {
		cfg.Issuer = "https://securetoken.google.com/" + cfg.GCPProject
	}

	return cfg
}

// Validate reports settings that would only fail later at connect time.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreSQLite:
	case StoreFirestore:
		if c.GCPProject == "" {
			return fmt.Errorf("LICENSING_GCP_PROJECT is required for the %s store", c.StoreDriver)
		}
	case StoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("LICENSING_MONGO_URI is required for the %s store", c.StoreDriver)
		}
	default:
		return fmt.Errorf("unknown LICENSING_STORE %q", c.StoreDriver)
	}

	switch c.AuthMode {
	case AuthLocal:
	case AuthFirebase:
		if c.GCPProject == "" {
			return fmt.Errorf("LICENSING_GCP_PROJECT is required for %s auth", c.AuthMode)
		}
	case AuthJWKS:
		if c.JWKSURL == "" {
			return fmt.Errorf("LICENSING_JWKS_URL is required for %s auth", c.AuthMode)
		}
	default:
		return fmt.Errorf("unknown LICENSING_AUTH_MODE %q", c.AuthMode)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
