// Package config handles layered YAML configuration with environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/infokelas/kelas/internal/logging"
)

// Config holds all kelas configuration.
type Config struct {
	API     API     `yaml:"api"`
	Cache   Cache   `yaml:"cache"`
	Storage Storage `yaml:"storage"`
	Log     Log     `yaml:"log"`
}

// API holds the portal endpoint settings.
type API struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"` // Per request.
}

// Cache holds query cache policy and stale times.
type Cache struct {
	Retry                  int           `yaml:"retry"`       // Extra attempts after a failed read
	RetryDelay             time.Duration `yaml:"retry_delay"` // Pause between attempts
	RefetchOnAccess        bool          `yaml:"refetch_on_access"`
	StaleTime              time.Duration `yaml:"stale_time"` // Default for portal reads
	ProfileStaleTime       time.Duration `yaml:"profile_stale_time"`
	AnnouncementsStaleTime time.Duration `yaml:"announcements_stale_time"` // Dashboard preview only
}

// Storage holds where the session and preferences are kept.
type Storage struct {
	Dir string `yaml:"dir"`
}

// Log holds diagnostic logging settings. An empty File disables logging.
type Log struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		API: API{
			BaseURL: "https://admin.infokelas.com/api",
			Timeout: 15 * time.Second,
		},
		Cache: Cache{
			Retry:                  1,
			RefetchOnAccess:        true,
			StaleTime:              time.Minute,
			ProfileStaleTime:       time.Minute,
			AnnouncementsStaleTime: 5 * time.Minute,
		},
		Storage: Storage{
			Dir: DefaultDir(),
		},
		Log: Log{
			Level: "warn",
		},
	}
}

// DefaultDir is the per-user kelas directory, falling back to ./.kelas.
func DefaultDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "kelas")
	}
	return ".kelas"
}

// DefaultPaths returns the config layers in increasing priority:
// the user file, then kelas.yaml in the working directory.
func DefaultPaths() []string {
	return []string{
		filepath.Join(DefaultDir(), "config.yaml"),
		"kelas.yaml",
	}
}

// Load reads a single YAML config file at path and returns a Config.
// For merging multiple config sources, use LoadLayered instead.
// If the file does not exist, defaults are returned without error.
func Load(path string) (*Config, error) {
	return LoadLayered(path)
}

// LoadLayered loads config from multiple paths with increasing priority.
// Later paths override earlier ones. Missing files are skipped.
func LoadLayered(paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range paths {
		layer, err := loadLayer(path)
		if err != nil {
			return nil, err
		}
		if layer == nil {
			continue
		}
		cfg.merge(layer)
	}

	return &cfg, nil
}

// LoadDotenv loads KEY=value files into the process environment.
// Variables already set win; missing files are skipped.
func LoadDotenv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("config: loading %s: %w", p, err)
		}
	}
	return nil
}

// Validate checks that config values are usable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("config: api.timeout must be positive, got %v", c.API.Timeout)
	}
	if c.Cache.Retry < 0 {
		return fmt.Errorf("config: cache.retry must be non-negative, got %d", c.Cache.Retry)
	}
	if c.Cache.RetryDelay < 0 {
		return fmt.Errorf("config: cache.retry_delay must be non-negative, got %v", c.Cache.RetryDelay)
	}
	for name, d := range map[string]time.Duration{
		"stale_time":               c.Cache.StaleTime,
		"profile_stale_time":       c.Cache.ProfileStaleTime,
		"announcements_stale_time": c.Cache.AnnouncementsStaleTime,
	} {
		if d < 0 {
			return fmt.Errorf("config: cache.%s must be non-negative, got %v", name, d)
		}
	}
	if c.Storage.Dir == "" {
		return errors.New("config: storage.dir cannot be empty")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	return nil
}

// ApplyEnv applies environment variable overrides to the config.
// Supported variables: KELAS_API_BASE_URL, KELAS_API_TIMEOUT, KELAS_CACHE_RETRY,
// KELAS_STORAGE_DIR, KELAS_LOG_LEVEL, KELAS_LOG_FILE.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("KELAS_API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("KELAS_API_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid KELAS_API_TIMEOUT %q: %w", v, err)
		}
		c.API.Timeout = d
	}
	if v := os.Getenv("KELAS_CACHE_RETRY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid KELAS_CACHE_RETRY %q: %w", v, err)
		}
		c.Cache.Retry = n
	}
	if v := os.Getenv("KELAS_STORAGE_DIR"); v != "" {
		c.Storage.Dir = v
	}
	if v := os.Getenv("KELAS_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("KELAS_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	return nil
}

// rawConfig mirrors Config but uses pointers to distinguish set vs unset fields.
type rawConfig struct {
	API     *rawAPI     `yaml:"api"`
	Cache   *rawCache   `yaml:"cache"`
	Storage *rawStorage `yaml:"storage"`
	Log     *rawLog     `yaml:"log"`
}

type rawAPI struct {
	BaseURL *string        `yaml:"base_url"`
	Timeout *time.Duration `yaml:"timeout"`
}

type rawCache struct {
	Retry                  *int           `yaml:"retry"`
	RetryDelay             *time.Duration `yaml:"retry_delay"`
	RefetchOnAccess        *bool          `yaml:"refetch_on_access"`
	StaleTime              *time.Duration `yaml:"stale_time"`
	ProfileStaleTime       *time.Duration `yaml:"profile_stale_time"`
	AnnouncementsStaleTime *time.Duration `yaml:"announcements_stale_time"`
}

type rawStorage struct {
	Dir *string `yaml:"dir"`
}

type rawLog struct {
	Level *string `yaml:"level"`
	File  *string `yaml:"file"`
}

// loadLayer reads a single config file into a rawConfig for selective merging.
// Returns nil if the file does not exist. Rejects unknown fields.
func loadLayer(path string) (*rawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return nil, nil
	}

	var raw rawConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		// Comment-only YAML files produce EOF with no decoded content.
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &raw, nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// merge applies non-nil fields from a rawConfig layer onto this Config.
func (c *Config) merge(layer *rawConfig) {
	if l := layer.API; l != nil {
		set(&c.API.BaseURL, l.BaseURL)
		set(&c.API.Timeout, l.Timeout)
	}
	if l := layer.Cache; l != nil {
		set(&c.Cache.Retry, l.Retry)
		set(&c.Cache.RetryDelay, l.RetryDelay)
		set(&c.Cache.RefetchOnAccess, l.RefetchOnAccess)
		set(&c.Cache.StaleTime, l.StaleTime)
		set(&c.Cache.ProfileStaleTime, l.ProfileStaleTime)
		set(&c.Cache.AnnouncementsStaleTime, l.AnnouncementsStaleTime)
	}
	if l := layer.Storage; l != nil {
		set(&c.Storage.Dir, l.Dir)
	}
	if l := layer.Log; l != nil {
		set(&c.Log.Level, l.Level)
		set(&c.Log.File, l.File)
	}
}
