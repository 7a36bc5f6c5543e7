package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/vecat-io/vecat/pkg/models"
)

// Backend names accepted by StoreConfig.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds all vecat configuration.
type Config struct {
	Listen    string               `yaml:"listen" env:"VECAT_LISTEN"`
	Store     StoreConfig          `yaml:"store"`
	Provider  ProviderConfig       `yaml:"provider"`
	Journal   models.JournalConfig `yaml:"journal"`
	Telemetry TelemetryConfig      `yaml:"telemetry"`
}

// StoreConfig selects and configures the cache backend.
type StoreConfig struct {
	Backend  string         `yaml:"backend" env:"VECAT_STORE_BACKEND"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig configures the embedded cache backend.
type SQLiteConfig struct {
	Path string `yaml:"path" env:"VECAT_SQLITE_PATH"`
}

// PostgresConfig configures the client-server cache backend.
type PostgresConfig struct {
	Host     string `yaml:"host" env:"DB_HOST"`
	Port     int    `yaml:"port" env:"DB_PORT"`
	Name     string `yaml:"name" env:"DB_NAME"`
	User     string `yaml:"user" env:"DB_USER"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	SSLMode  string `yaml:"ssl_mode" env:"DB_SSLMODE"`
}

// DSN renders the keyword/value connection string for database/sql.
func (p PostgresConfig) DSN() string {
	parts := []string{
		fmt.Sprintf("host=%s", p.Host),
		fmt.Sprintf("port=%d", p.Port),
		fmt.Sprintf("dbname=%s", p.Name),
		fmt.Sprintf("user=%s", p.User),
	}
	if p.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", p.Password))
	}
	if p.SSLMode != "" {
		parts = append(parts, fmt.Sprintf("sslmode=%s", p.SSLMode))
	}
	return strings.Join(parts, " ")
}

// ProviderConfig configures the external lookup provider.
type ProviderConfig struct {
	Token        string        `yaml:"token" env:"APIFY_TOKEN"`
	ActorID      string        `yaml:"actor_id" env:"TECDOC_ACTOR_ID"`
	BaseURL      string        `yaml:"base_url" env:"APIFY_BASE_URL"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" env:"VECAT_FETCH_TIMEOUT"`
}

// TelemetryConfig controls trace export. Tracing stays off without an
// endpoint.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"VECAT_OTEL_ENDPOINT"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		Store: StoreConfig{
			Backend: BackendSQLite,
			SQLite:  SQLiteConfig{Path: "vecat.db"},
			Postgres: PostgresConfig{
				Host:    "localhost",
				Port:    5432,
				SSLMode: "disable",
			},
		},
		Provider: ProviderConfig{
			ActorID:      "making-data-meaningful/tecdoc",
			FetchTimeout: 600 * time.Second,
		},
		Journal: models.JournalConfig{
			DBPath:        "vecat-journal.db",
			RetentionDays: 30,
		},
	}
}

// Load builds the configuration in three layers: defaults, then the
// optional YAML file (with ${VAR} expansion), then environment variables.
// An empty path skips the file layer.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}

		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	return cfg, nil
}

// Validate checks startup-critical settings. A missing provider token is
// fatal: the service must not come up without it.
func (c *Config) Validate() error {
	if c.Provider.Token == "" {
		return fmt.Errorf("provider token is required (set APIFY_TOKEN)")
	}
	if c.Provider.ActorID == "" {
		return fmt.Errorf("provider actor id is required")
	}

	switch c.Store.Backend {
	case BackendSQLite:
		if c.Store.SQLite.Path == "" {
			return fmt.Errorf("sqlite store path is required")
		}
	case BackendPostgres:
		if c.Store.Postgres.Host == "" || c.Store.Postgres.Name == "" {
			return fmt.Errorf("postgres store requires host and database name")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	return nil
}
