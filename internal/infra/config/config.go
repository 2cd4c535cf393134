// internal/infra/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names accepted by SNAPSHOT_BACKEND / DEVICE_BACKEND.
const (
	BackendMemory    = "memory"
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
	BackendSQLite    = "sqlite"
	BackendGCS       = "gcs"
)

// Config holds the service settings.
//
// Resolution order per field: environment variable, then the YAML file
// named by CONFIG_FILE, then the default.
type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	GCPProjectID             string `yaml:"gcpProjectId"`
	GCPCreds                 string `yaml:"gcpCredentials"`
	FirestoreProjectID       string `yaml:"firestoreProjectId"`
	FirestoreCredentialsFile string `yaml:"firestoreCredentialsFile"`
	FirebaseProjectID        string `yaml:"firebaseProjectId"`

	SnapshotBackend string        `yaml:"snapshotBackend"`
	DeviceBackend   string        `yaml:"deviceBackend"`
	DatabaseURL     string        `yaml:"databaseUrl"`
	DBDriver        string        `yaml:"dbDriver"`
	SnapshotBucket  string        `yaml:"snapshotBucket"`
	SnapshotTTL     time.Duration `yaml:"snapshotTtl"`

	CartDebounce     time.Duration `yaml:"cartDebounce"`
	SessionCacheSize int           `yaml:"sessionCacheSize"`
	SessionIdleTTL   time.Duration `yaml:"sessionIdleTtl"`

	SendGridAPIKey       string `yaml:"sendgridApiKey"`
	SendGridAPIKeySecret string `yaml:"sendgridApiKeySecret"`
	SendGridFrom         string `yaml:"sendgridFrom"`
	SendGridFromName     string `yaml:"sendgridFromName"`
	ShopBaseURL          string `yaml:"shopBaseUrl"`

	CORSAllowedOrigin string `yaml:"corsAllowedOrigin"`
}

// Load reads the environment (and CONFIG_FILE, when set) into a Config.
func Load() (*Config, error) {
	cfg := &Config{}

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.Port = getenvDefault("PORT", cfg.Port, "8080")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", cfg.LogLevel, "info")

	cfg.GCPProjectID = getenvDefault("GCP_PROJECT_ID", cfg.GCPProjectID, "")
	cfg.GCPCreds = getenvDefault("GOOGLE_APPLICATION_CREDENTIALS", cfg.GCPCreds, "")
	cfg.FirestoreProjectID = getenvDefault("FIRESTORE_PROJECT_ID", cfg.FirestoreProjectID, cfg.GCPProjectID)
	cfg.FirestoreCredentialsFile = getenvDefault("FIRESTORE_CREDENTIALS_FILE", cfg.FirestoreCredentialsFile, "")
	// FIREBASE_PROJECT_ID falls back to the GCP project
	cfg.FirebaseProjectID = getenvDefault("FIREBASE_PROJECT_ID", cfg.FirebaseProjectID, cfg.GCPProjectID)

	cfg.SnapshotBackend = strings.ToLower(getenvDefault("SNAPSHOT_BACKEND", cfg.SnapshotBackend, BackendMemory))
	cfg.DeviceBackend = strings.ToLower(getenvDefault("DEVICE_BACKEND", cfg.DeviceBackend, cfg.SnapshotBackend))
	if cfg.DeviceBackend == BackendGCS {
		// GCS has no device-state store; keep device state next to Firestore
		cfg.DeviceBackend = BackendFirestore
	}
	cfg.DatabaseURL = getenvDefault("DATABASE_URL", cfg.DatabaseURL, "")
	cfg.DBDriver = strings.ToLower(getenvDefault("DB_DRIVER", cfg.DBDriver, defaultDriver(cfg.SnapshotBackend)))
	cfg.SnapshotBucket = getenvDefault("SNAPSHOT_BUCKET", cfg.SnapshotBucket, "")

	var err error
	if cfg.SnapshotTTL, err = getenvDuration("SNAPSHOT_TTL", cfg.SnapshotTTL, 30*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.CartDebounce, err = getenvDuration("CART_DEBOUNCE", cfg.CartDebounce, 1500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.SessionIdleTTL, err = getenvDuration("SESSION_IDLE_TTL", cfg.SessionIdleTTL, 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SessionCacheSize, err = getenvInt("SESSION_CACHE_SIZE", cfg.SessionCacheSize, 10_000); err != nil {
		return nil, err
	}

	cfg.SendGridAPIKey = getenvDefault("SENDGRID_API_KEY", cfg.SendGridAPIKey, "")
	cfg.SendGridAPIKeySecret = getenvDefault("SENDGRID_API_KEY_SECRET", cfg.SendGridAPIKeySecret, "")
	cfg.SendGridFrom = getenvDefault("SENDGRID_FROM", cfg.SendGridFrom, "")
	cfg.SendGridFromName = getenvDefault("SENDGRID_FROM_NAME", cfg.SendGridFromName, "Storefront")
	cfg.ShopBaseURL = getenvDefault("SHOP_BASE_URL", cfg.ShopBaseURL, "")

	cfg.CORSAllowedOrigin = getenvDefault("CORS_ALLOWED_ORIGIN", cfg.CORSAllowedOrigin, "*")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks backend names and their required settings.
func (c *Config) Validate() error {
	var errs []error

	switch c.SnapshotBackend {
	case BackendMemory, BackendFirestore, BackendPostgres, BackendSQLite, BackendGCS:
	default:
		errs = append(errs, fmt.Errorf("config: unknown SNAPSHOT_BACKEND %q", c.SnapshotBackend))
	}
	switch c.DeviceBackend {
	case BackendMemory, BackendFirestore, BackendPostgres, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("config: unknown DEVICE_BACKEND %q", c.DeviceBackend))
	}

	if c.UsesSQL() && strings.TrimSpace(c.DatabaseURL) == "" {
		errs = append(errs, errors.New("config: DATABASE_URL is required for the postgres/sqlite backends"))
	}
	if c.SnapshotBackend == BackendGCS && strings.TrimSpace(c.SnapshotBucket) == "" {
		errs = append(errs, errors.New("config: SNAPSHOT_BUCKET is required for the gcs backend"))
	}
	if c.UsesFirestore() && strings.TrimSpace(c.FirestoreProjectID) == "" {
		errs = append(errs, errors.New("config: FIRESTORE_PROJECT_ID or GCP_PROJECT_ID is required for the firestore backend"))
	}
	if c.SessionCacheSize <= 0 {
		errs = append(errs, errors.New("config: SESSION_CACHE_SIZE must be positive"))
	}
	return errors.Join(errs...)
}

// UsesFirestore reports whether any store is on Firestore.
func (c *Config) UsesFirestore() bool {
	return c.SnapshotBackend == BackendFirestore || c.DeviceBackend == BackendFirestore
}

// UsesSQL reports whether any store is on PostgreSQL or SQLite.
func (c *Config) UsesSQL() bool {
	isSQL := func(b string) bool { return b == BackendPostgres || b == BackendSQLite }
	return isSQL(c.SnapshotBackend) || isSQL(c.DeviceBackend)
}

// GetFirestoreProjectID returns the Firestore/GCP project id.
func (c *Config) GetFirestoreProjectID() string {
	return c.FirestoreProjectID
}

func (c *Config) GetFirebaseProjectID() string {
	return c.FirebaseProjectID
}

func defaultDriver(backend string) string {
	if backend == BackendSQLite {
		return "sqlite"
	}
	return "pgx"
}

// getenvDefault returns the env value, else the file value, else def.
func getenvDefault(key, fromFile, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	if strings.TrimSpace(fromFile) != "" {
		return fromFile
	}
	return def
}

func getenvDuration(key string, fromFile, def time.Duration) (time.Duration, error) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("config: %s: %w", key, err)
		}
		return d, nil
	}
	if fromFile > 0 {
		return fromFile, nil
	}
	return def, nil
}

func getenvInt(key string, fromFile, def int) (int, error) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("config: %s: %w", key, err)
		}
		return n, nil
	}
	if fromFile != 0 {
		return fromFile, nil
	}
	return def, nil
}
