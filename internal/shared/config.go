package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Download  DownloadConfig  `toml:"download"`
	Platforms PlatformsConfig `toml:"platforms"`
	Retry     RetryConfig     `toml:"retry"`
	QQMusic   QQMusicConfig   `toml:"qqmusic"`
	Quality   QualityConfig   `toml:"quality"`
	Hooks     HooksConfig     `toml:"hooks"`
	Server    ServerConfig    `toml:"server"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path          string `toml:"path"`
	MaxOpenConns  int    `toml:"max_open_conns"`
	MaxIdleConns  int    `toml:"max_idle_conns"`
	BusyTimeoutMS int    `toml:"busy_timeout_ms"`
}

// DownloadConfig holds the defaults for the download settings stored in the database.
type DownloadConfig struct {
	StorageRoot      string   `toml:"storage_root"`
	MissingDir       string   `toml:"missing_dir"`
	Concurrency      int      `toml:"concurrency"`
	PreferredQuality string   `toml:"preferred_quality"`
	DownloadLyrics   bool     `toml:"download_lyrics"`
	WorkerTimeout    Duration `toml:"worker_timeout"`
	PollInterval     Duration `toml:"poll_interval"`
}

// PlatformsConfig configures the music source API and the order platforms are searched in.
type PlatformsConfig struct {
	BaseURL           string            `toml:"base_url"`
	SearchOrder       []string          `toml:"search_order"`
	Mapping           map[string]string `toml:"mapping"`
	QualityCodes      map[string]string `toml:"quality_codes"`
	RequestsPerSecond float64           `toml:"requests_per_second"`
	RequestTimeout    Duration          `toml:"request_timeout"`
	StreamTimeout     Duration          `toml:"stream_timeout"`
	MaxRedirects      int               `toml:"max_redirects"`
}

// RetryConfig configures the request-level retry policy.
type RetryConfig struct {
	MaxAttempts     int      `toml:"max_attempts"`
	InitialInterval Duration `toml:"initial_interval"`
	MaxInterval     Duration `toml:"max_interval"`
	Multiplier      float64  `toml:"multiplier"`
}

// QQMusicConfig configures the QQ Music song detail lookup used to fill in missing albums.
type QQMusicConfig struct {
	DetailURL string   `toml:"detail_url"`
	CacheSize int      `toml:"cache_size"`
	CacheTTL  Duration `toml:"cache_ttl"`
}

// QualityConfig holds the quality gate thresholds.
type QualityConfig struct {
	MinSizeBytes int64    `toml:"min_size_bytes"`
	MinDuration  Duration `toml:"min_duration"`
}

// HooksConfig lists the post-completion hooks.
type HooksConfig struct {
	Plex PlexConfig `toml:"plex"`
}

// PlexConfig points the library rescan hook at a Plex server. An empty URL disables it.
type PlexConfig struct {
	URL     string `toml:"url"`
	Token   string `toml:"token"`
	Section string `toml:"section"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Duration is a [time.Duration] that decodes from TOML strings such as "300s" or "5m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, string(text), err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate checks the values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is empty", ErrInvalidConfig)
	}
	if c.Download.Concurrency < 1 {
		return fmt.Errorf("%w: download.concurrency must be at least 1", ErrInvalidConfig)
	}
	if len(c.Platforms.SearchOrder) == 0 {
		return fmt.Errorf("%w: platforms.search_order is empty", ErrInvalidConfig)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("%w: retry.max_attempts must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
