package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Log      LogConfig      `mapstructure:"log"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	EnsureSchema    bool          `mapstructure:"ensure_schema"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LedgerConfig tunes the budget and wallet rules.
type LedgerConfig struct {
	// EvidenceThreshold is the number of outflows without evidence a wallet
	// tolerates before further evidence-less outflows are refused.
	EvidenceThreshold  int           `mapstructure:"evidence_threshold"`
	IntegrityAlgorithm string        `mapstructure:"integrity_algorithm"`
	IntegrityKey       string        `mapstructure:"integrity_key"` // hex, required for hmac-* algorithms
	ApprovalLockTTL    time.Duration `mapstructure:"approval_lock_ttl"`
	OutcomeCacheTTL    time.Duration `mapstructure:"outcome_cache_ttl"`
}

type AuditConfig struct {
	SweepBatchSize int `mapstructure:"sweep_batch_size"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Validate rejects settings the ledger cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Ledger.EvidenceThreshold < 1 {
		errs = append(errs, fmt.Errorf("ledger.evidence_threshold must be >= 1, got %d", c.Ledger.EvidenceThreshold))
	}
	if strings.TrimSpace(c.Ledger.IntegrityAlgorithm) == "" {
		errs = append(errs, errors.New("ledger.integrity_algorithm is required"))
	}
	if strings.HasPrefix(c.Ledger.IntegrityAlgorithm, "hmac-") && c.Ledger.IntegrityKey == "" {
		errs = append(errs, fmt.Errorf("ledger.integrity_key is required for %s", c.Ledger.IntegrityAlgorithm))
	}
	if c.Ledger.ApprovalLockTTL <= 0 {
		errs = append(errs, errors.New("ledger.approval_lock_ttl must be positive"))
	}
	if c.Ledger.OutcomeCacheTTL <= 0 {
		errs = append(errs, errors.New("ledger.outcome_cache_ttl must be positive"))
	}
	if c.Audit.SweepBatchSize <= 0 {
		errs = append(errs, errors.New("audit.sweep_batch_size must be positive"))
	}

	return errors.Join(errs...)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: LEDGER_.
// Nested keys use underscore: LEDGER_DATABASE_HOST, LEDGER_LEDGER_INTEGRITY_KEY, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "budget_ledger")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.ensure_schema", false)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("ledger.evidence_threshold", 3)
	v.SetDefault("ledger.integrity_algorithm", "sha256-jcs-v1")
	v.SetDefault("ledger.integrity_key", "")
	v.SetDefault("ledger.approval_lock_ttl", "30s")
	v.SetDefault("ledger.outcome_cache_ttl", "24h")
	v.SetDefault("audit.sweep_batch_size", 100)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing file is fine; env vars and defaults can carry everything.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
