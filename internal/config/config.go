package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// JWTSecretEnv is consulted when server.jwt_secret is empty.
const JWTSecretEnv = "NOTES_JWT_SECRET"

// Config represents the main configuration for the notes server.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	LogLevel   string           `toml:"log_level"`
	Database   DatabaseConfig   `toml:"database"`
	Server     ServerConfig     `toml:"server"`
	Links      LinksConfig      `toml:"links"`
	Notifier   NotifierConfig   `toml:"notifier"`
	Vault      VaultConfig      `toml:"vault"`
	Encryption EncryptionConfig `toml:"encryption"`
}

// Duration is a time.Duration written as a Go duration string ("1h30m").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DatabaseConfig represents configuration for the notes database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// ServerConfig holds the HTTP listener and bearer credential settings.
type ServerConfig struct {
	Addr      string   `toml:"addr"`
	JWTSecret string   `toml:"jwt_secret,omitempty"`
	TokenTTL  Duration `toml:"token_ttl"`
}

// Secret returns the signing secret for bearer credentials, falling back to
// the NOTES_JWT_SECRET environment variable.
func (s ServerConfig) Secret() string {
	if s.JWTSecret != "" {
		return s.JWTSecret
	}
	return os.Getenv(JWTSecretEnv)
}

// LinksConfig controls the expired shared link sweeper.
type LinksConfig struct {
	CleanupInterval Duration    `toml:"cleanup_interval"`
	Retry           RetryConfig `toml:"retry"`
}

// RetryConfig is the backoff applied to transient cleanup failures.
type RetryConfig struct {
	MaxAttempts  int      `toml:"max_attempts"`
	InitialDelay Duration `toml:"initial_delay"`
	MaxDelay     Duration `toml:"max_delay"`
	Multiplier   float64  `toml:"multiplier"`
}

// NotifierConfig selects how welcome notifications are delivered.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type NotifierConfig struct {
	Type    string   `toml:"type"`               // "http", "log" or "none"
	BaseURL string   `toml:"base_url,omitempty"` // only used for type=http
	Timeout Duration `toml:"timeout"`
}

// VaultConfig represents configuration for the backup vault backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used for backup encryption.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default), "none" or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// NewConfig creates a Config rooted at baseDir with default settings.
func NewConfig(baseDir string) *Config {
	cfg := &Config{BaseDir: baseDir}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills every unset field. Paths are derived from BaseDir.
func (c *Config) applyDefaults() {
	if c.LogDir == "" && c.BaseDir != "" {
		c.LogDir = filepath.Join(c.BaseDir, "log")
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.Type == "sqlite" && c.Database.DataDir == "" && c.BaseDir != "" {
		c.Database.DataDir = filepath.Join(c.BaseDir, "db")
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.TokenTTL.Duration == 0 {
		c.Server.TokenTTL.Duration = 24 * time.Hour
	}

	if c.Links.CleanupInterval.Duration == 0 {
		c.Links.CleanupInterval.Duration = time.Hour
	}
	r := &c.Links.Retry
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 5
	}
	if r.InitialDelay.Duration == 0 {
		r.InitialDelay.Duration = time.Second
	}
	if r.MaxDelay.Duration == 0 {
		r.MaxDelay.Duration = 30 * time.Second
	}
	if r.Multiplier == 0 {
		r.Multiplier = 2
	}

	if c.Notifier.Type == "" {
		c.Notifier.Type = "log"
	}
	if c.Notifier.Timeout.Duration == 0 {
		c.Notifier.Timeout.Duration = 5 * time.Second
	}

	if c.Vault.Type == "" {
		c.Vault.Type = "filesystem"
	}
	if c.Vault.Type == "filesystem" && c.Vault.FSRoot == "" && c.BaseDir != "" {
		c.Vault.FSRoot = filepath.Join(c.BaseDir, "backups")
	}

	if c.Encryption.Type == "" {
		c.Encryption.Type = "age"
	}
	if c.Encryption.PublicKeyPath == "" && c.BaseDir != "" {
		c.Encryption.PublicKeyPath = filepath.Join(c.BaseDir, "keys", "notes.pub")
	}
	if c.Encryption.PrivateKeyPath == "" && c.BaseDir != "" {
		c.Encryption.PrivateKeyPath = filepath.Join(c.BaseDir, "keys", "notes.key")
	}
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	var errs []error
	if c.Links.CleanupInterval.Duration < 0 {
		errs = append(errs, fmt.Errorf("links.cleanup_interval must be positive"))
	}
	if c.Links.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("links.retry.max_attempts must be at least 1"))
	}
	if c.Links.Retry.Multiplier < 1 {
		errs = append(errs, fmt.Errorf("links.retry.multiplier must be at least 1"))
	}
	if c.Notifier.Type == "http" && c.Notifier.BaseURL == "" {
		errs = append(errs, fmt.Errorf("notifier.base_url required for http notifier"))
	}
	return errors.Join(errs...)
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader and fills unset fields with defaults.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file may carry the JWT secret.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to a new config file at path. An existing file is never overwritten.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
