// Package config loads runtime settings: defaults, then an optional YAML file,
// then environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv   = "LCAWEB_CONFIG"
	addrEnv         = "LCAWEB_ADDR"
	logLevelEnv     = "LCAWEB_LOG_LEVEL"
	catalogDBEnv    = "LCAWEB_CATALOG_DB"
	catalogSeedEnv  = "LCAWEB_CATALOG_SEED"
	catalogURLEnv   = "LCAWEB_CATALOG_URL"
	defaultAddr     = ":8080"
	defaultPageSize = 50
)

// Config holds every runtime setting.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Upload   UploadConfig   `yaml:"upload"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Matching MatchingConfig `yaml:"matching"`
	Results  ResultsConfig  `yaml:"results"`
	Session  SessionConfig  `yaml:"session"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// UploadConfig limits uploaded files.
type UploadConfig struct {
	MaxBytes    int64 `yaml:"maxBytes"`
	PreviewRows int   `yaml:"previewRows"`
}

// CatalogConfig selects where materials come from. With RemoteURL set the
// match service is called over HTTP and the local store is not opened.
type CatalogConfig struct {
	DBPath    string        `yaml:"dbPath"`
	SeedPath  string        `yaml:"seedPath"`
	RemoteURL string        `yaml:"remoteUrl"`
	RateLimit float64       `yaml:"rateLimit"`
	Burst     int           `yaml:"burst"`
	Timeout   time.Duration `yaml:"timeout"`
	MaxRows   int           `yaml:"maxRows"`
}

// MatchingConfig tunes the fuzzy matcher.
type MatchingConfig struct {
	AcceptThreshold float64 `yaml:"acceptThreshold"`
	Fuzziness       float64 `yaml:"fuzziness"`
	MinMatchLength  int     `yaml:"minMatchLength"`
}

// ResultsConfig shapes the results table.
type ResultsConfig struct {
	PageSize       int           `yaml:"pageSize"`
	FilterDebounce time.Duration `yaml:"filterDebounce"`
}

// SessionConfig controls browser sessions.
type SessionConfig struct {
	CookieName    string        `yaml:"cookieName"`
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweepInterval"`
	Secure        bool          `yaml:"secure"`
}

// LoggingConfig sets the log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            defaultAddr,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Upload: UploadConfig{MaxBytes: 32 << 20, PreviewRows: 10},
		Catalog: CatalogConfig{
			DBPath:    "lcaweb.db",
			RateLimit: 5,
			Burst:     1,
			Timeout:   30 * time.Second,
			MaxRows:   50000,
		},
		Matching: MatchingConfig{AcceptThreshold: 0.4, Fuzziness: 0.6, MinMatchLength: 3},
		Results:  ResultsConfig{PageSize: defaultPageSize, FilterDebounce: 300 * time.Millisecond},
		Session: SessionConfig{
			CookieName:    "lcaweb_session",
			TTL:           2 * time.Hour,
			SweepInterval: 5 * time.Minute,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads the file named by LCAWEB_CONFIG, if any, applies environment
// overrides and validates the result.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv(configPathEnv); path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile decodes path over the defaults. Keys missing from the file keep
// their default.
func LoadFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes YAML over the defaults.
func Parse(raw []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(addrEnv); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(catalogDBEnv); v != "" {
		c.Catalog.DBPath = v
	}
	if v := os.Getenv(catalogSeedEnv); v != "" {
		c.Catalog.SeedPath = v
	}
	if v := os.Getenv(catalogURLEnv); v != "" {
		c.Catalog.RemoteURL = v
	}
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr is empty"))
	}
	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, errors.New("upload.maxBytes must be positive"))
	}
	if c.Catalog.RemoteURL == "" && c.Catalog.DBPath == "" {
		errs = append(errs, errors.New("catalog.dbPath or catalog.remoteUrl is required"))
	}
	if c.Catalog.RateLimit < 0 {
		errs = append(errs, errors.New("catalog.rateLimit must not be negative"))
	}
	if c.Catalog.Timeout <= 0 {
		errs = append(errs, errors.New("catalog.timeout must be positive"))
	}
	if t := c.Matching.AcceptThreshold; t <= 0 || t > 1 {
		errs = append(errs, fmt.Errorf("matching.acceptThreshold %v is outside (0, 1]", t))
	}
	if f := c.Matching.Fuzziness; f <= 0 || f > 1 {
		errs = append(errs, fmt.Errorf("matching.fuzziness %v is outside (0, 1]", f))
	}
	if c.Matching.MinMatchLength < 1 {
		errs = append(errs, errors.New("matching.minMatchLength must be at least 1"))
	}
	if c.Results.PageSize < 0 {
		errs = append(errs, errors.New("results.pageSize must not be negative"))
	}
	if c.Results.FilterDebounce < 0 {
		errs = append(errs, errors.New("results.filterDebounce must not be negative"))
	}
	if c.Session.SweepInterval <= 0 {
		errs = append(errs, errors.New("session.sweepInterval must be positive"))
	}
	if c.Session.CookieName == "" {
		errs = append(errs, errors.New("session.cookieName is empty"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
