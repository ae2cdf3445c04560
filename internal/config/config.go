package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Defaults applied by NewConfig and ApplyDefaults.
const (
	DefaultProgressEvery = 100
	DefaultLogMaxSizeMB  = 10
	DefaultLogMaxBackups = 3
	DefaultLogLevel      = "info"
)

// Config represents the main configuration for dp.
type Config struct {
	DataDir    string           `toml:"data_dir"`
	LogDir     string           `toml:"log_dir"`
	Vault      VaultConfig      `toml:"vault"`
	Encryption EncryptionConfig `toml:"encryption"`
	Catalog    CatalogConfig    `toml:"catalog"`
	Scan       ScanConfig       `toml:"scan"`
	Log        LogConfig        `toml:"log"`
}

// VaultConfig selects where snapshot bodies and summaries are stored.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "filesystem" (default), "memory", or "s3"

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
	S3UsePathStyle    bool   `toml:"s3_use_path_style,omitempty"`
}

// EncryptionConfig controls how encrypted snapshots are sealed.
type EncryptionConfig struct {
	Scheme        string `toml:"scheme"`                    // "aes-gcm" (default) or "age"
	AgeWorkFactor int    `toml:"age_work_factor,omitempty"` // scrypt log2 N, only used for scheme=age
	UseKeyring    bool   `toml:"use_keyring"`               // look up the password in the OS keyring
}

// CatalogConfig represents configuration for the operation catalog.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type CatalogConfig struct {
	Type    string `toml:"type"`               // "sqlite", "memory", or "none"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// ScanConfig holds scanner settings.
type ScanConfig struct {
	Ignore        []string `toml:"ignore"`
	ProgressEvery int64    `toml:"progress_every"`
}

// LogConfig controls the log file.
type LogConfig struct {
	Level      string `toml:"level"` // "debug", "info", "warn", "error"
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// NewConfig creates a new Config rooted at dataDir with default settings.
func NewConfig(dataDir string) *Config {
	cfg := &Config{DataDir: dataDir}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every unset field that has a default.
// Paths are derived from DataDir.
func (c *Config) ApplyDefaults() {
	if c.LogDir == "" {
		c.LogDir = filepath.Join(c.DataDir, "log")
	}
	if c.Vault.Type == "" {
		c.Vault.Type = "filesystem"
	}
	if c.Vault.Type == "filesystem" && c.Vault.FSRoot == "" {
		c.Vault.FSRoot = c.DataDir
	}
	if c.Encryption.Scheme == "" {
		c.Encryption.Scheme = "aes-gcm"
	}
	if c.Catalog.Type == "" {
		c.Catalog.Type = "sqlite"
	}
	if c.Catalog.Type == "sqlite" && c.Catalog.DataDir == "" {
		c.Catalog.DataDir = filepath.Join(c.DataDir, "db")
	}
	if c.Scan.ProgressEvery <= 0 {
		c.Scan.ProgressEvery = DefaultProgressEvery
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = DefaultLogMaxBackups
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
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

// Load reads the config at path and applies defaults. A missing file is not
// an error: the defaults for dataDir are returned instead.
// A data_dir set in the file takes precedence over dataDir.
func Load(path, dataDir string) (*Config, error) {
	cfg, err := ReadFromFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewConfig(dataDir), nil
		}
		return nil, err
	}
	if cfg.DataDir == "" {
		cfg.DataDir = dataDir
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
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

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
