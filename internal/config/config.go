package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv = "TASK_INTAKE_CONFIG"

	databaseDriverEnv   = "DB_DRIVER"
	databaseDSNEnv      = "DATABASE_DSN"
	databaseNameEnv     = "DB_NAME"
	databaseUserEnv     = "DB_USER"
	databasePasswordEnv = "DB_PASSWORD"
	databaseHostEnv     = "DB_HOST"
	databasePortEnv     = "DB_PORT"
	databaseSSLModeEnv  = "DB_SSLMODE"

	httpAddrEnv = "HTTP_ADDR"
	logLevelEnv = "LOG_LEVEL"

	embeddingProviderEnv = "EMBEDDING_PROVIDER"
	embeddingHostEnv     = "EMBEDDING_HOST"
	embeddingModelEnv    = "EMBEDDING_MODEL"
	embeddingTokenEnv    = "EMBEDDING_TOKEN"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database       DatabaseConfig       `yaml:"database"`
	HTTP           HTTPConfig           `yaml:"http"`
	Logging        LoggingConfig        `yaml:"logging"`
	Embedding      EmbeddingConfig      `yaml:"embedding"`
	Knowledge      KnowledgeConfig      `yaml:"knowledge"`
	Classification ClassificationConfig `yaml:"classification"`
}

// DatabaseConfig describes the audit store connection.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslMode"`
	// Path is the database file for the sqlite driver.
	Path string `yaml:"path"`
}

// HTTPConfig configures the intake endpoint.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig selects log verbosity and output format (text or json).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// EmbeddingConfig picks the embedder used by the knowledge store.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`
	Host      string `yaml:"host"`
	Model     string `yaml:"model"`
	Token     string `yaml:"token"`
	Dimension int    `yaml:"dimension"`
}

// KnowledgeConfig lists the documents seeded at startup.
type KnowledgeConfig struct {
	Documents   []DocumentConfig `yaml:"documents"`
	SeedWorkers int              `yaml:"seedWorkers"`
}

// DocumentConfig points at one SOP: inline text, a local file, or a URL.
type DocumentConfig struct {
	ID   string `yaml:"id"`
	Text string `yaml:"text"`
	Path string `yaml:"path"`
	URL  string `yaml:"url"`
}

// ClassificationConfig overrides the built-in keyword rules.
type ClassificationConfig struct {
	Rules    []RuleConfig `yaml:"rules"`
	Fallback RuleConfig   `yaml:"fallback"`
}

// RuleConfig is a single keyword routing rule.
type RuleConfig struct {
	Keyword  string `yaml:"keyword"`
	Category string `yaml:"category"`
	Priority int    `yaml:"priority"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
// An empty path falls back to TASK_INTAKE_CONFIG.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(databaseNameEnv); v != "" {
		c.Database.Name = v
	}
	if v := os.Getenv(databaseUserEnv); v != "" {
		c.Database.User = v
	}
	if v := os.Getenv(databasePasswordEnv); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv(databaseHostEnv); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv(databasePortEnv); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid port %q", databasePortEnv, v)
		}
		c.Database.Port = port
	}
	if v := os.Getenv(databaseSSLModeEnv); v != "" {
		c.Database.SSLMode = v
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(embeddingProviderEnv); v != "" {
		c.Embedding.Provider = v
	}
	if v := os.Getenv(embeddingHostEnv); v != "" {
		c.Embedding.Host = v
	}
	if v := os.Getenv(embeddingModelEnv); v != "" {
		c.Embedding.Model = v
	}
	if v := os.Getenv(embeddingTokenEnv); v != "" {
		c.Embedding.Token = v
	}

	return nil
}

// ConnectionString renders the driver-specific data source name.
func (d DatabaseConfig) ConnectionString() string {
	if d.DSN != "" {
		return d.DSN
	}

	if strings.EqualFold(d.Driver, DriverSQLite) {
		return d.Path
	}

	port := d.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(port)),
		Path:   "/" + d.Name,
	}
	if d.User != "" {
		if d.Password != "" {
			u.User = url.UserPassword(d.User, d.Password)
		} else {
			u.User = url.User(d.User)
		}
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{d.SSLMode}}.Encode()
	}
	return u.String()
}

func mergeConfig(base, override Config) Config {
	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}
	if override.Database.Host != "" {
		base.Database.Host = override.Database.Host
	}
	if override.Database.Port != 0 {
		base.Database.Port = override.Database.Port
	}
	if override.Database.User != "" {
		base.Database.User = override.Database.User
	}
	if override.Database.Password != "" {
		base.Database.Password = override.Database.Password
	}
	if override.Database.Name != "" {
		base.Database.Name = override.Database.Name
	}
	if override.Database.SSLMode != "" {
		base.Database.SSLMode = override.Database.SSLMode
	}
	if override.Database.Path != "" {
		base.Database.Path = override.Database.Path
	}

	if override.HTTP.Addr != "" {
		base.HTTP.Addr = override.HTTP.Addr
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Embedding.Provider != "" {
		base.Embedding.Provider = override.Embedding.Provider
	}
	if override.Embedding.Host != "" {
		base.Embedding.Host = override.Embedding.Host
	}
	if override.Embedding.Model != "" {
		base.Embedding.Model = override.Embedding.Model
	}
	if override.Embedding.Token != "" {
		base.Embedding.Token = override.Embedding.Token
	}
	if override.Embedding.Dimension != 0 {
		base.Embedding.Dimension = override.Embedding.Dimension
	}

	if len(override.Knowledge.Documents) > 0 {
		base.Knowledge.Documents = override.Knowledge.Documents
	}
	if override.Knowledge.SeedWorkers > 0 {
		base.Knowledge.SeedWorkers = override.Knowledge.SeedWorkers
	}

	if len(override.Classification.Rules) > 0 {
		base.Classification.Rules = override.Classification.Rules
	}
	if override.Classification.Fallback.Category != "" {
		base.Classification.Fallback = override.Classification.Fallback
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Database: DatabaseConfig{
			Driver:  DriverPostgres,
			Host:    "localhost",
			Port:    5432,
			Name:    "taskintake",
			SSLMode: "require",
			Path:    "taskintake.db",
		},
		HTTP:      HTTPConfig{Addr: ":8000"},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Embedding: EmbeddingConfig{Provider: "hashing", Dimension: 512},
		Knowledge: KnowledgeConfig{SeedWorkers: 4},
	}
}
