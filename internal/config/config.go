// Package config loads MoodMix settings from TOML, .env files and the
// process environment.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	LogLevel  string          `toml:"log_level"`
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Spotify   SpotifyConfig   `toml:"spotify"`
	Ollama    OllamaConfig    `toml:"ollama"`
	Builder   BuilderConfig   `toml:"builder"`
	Playlists PlaylistsConfig `toml:"playlists"`
	Worker    WorkerConfig    `toml:"worker"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// SpotifyConfig contains Spotify API credentials and client behaviour.
type SpotifyConfig struct {
	ClientID          string  `toml:"client_id"`
	ClientSecret      string  `toml:"client_secret"`
	RefreshToken      string  `toml:"refresh_token"`
	BaseURL           string  `toml:"base_url"`
	TokenURL          string  `toml:"token_url"`
	MaxRetries        int     `toml:"max_retries"`
	RetryBackoffMs    int     `toml:"retry_backoff_ms"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// RetryBackoff returns the base retry delay.
func (s SpotifyConfig) RetryBackoff() time.Duration {
	return time.Duration(s.RetryBackoffMs) * time.Millisecond
}

// OllamaConfig contains the local model endpoint.
type OllamaConfig struct {
	Host           string  `toml:"host"`
	Model          string  `toml:"model"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Timeout returns the per-call model timeout.
func (o OllamaConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// BuilderConfig holds the selection thresholds.
type BuilderConfig struct {
	MinTrackPop        int `toml:"min_track_pop"`
	MinArtistPop       int `toml:"min_artist_pop"`
	LibraryCap         int `toml:"library_cap"`
	SearchLimit        int `toml:"search_limit"`
	MaxBackfillQueries int `toml:"max_backfill_queries"`
}

// PlaylistsConfig holds the per-user request policy.
type PlaylistsConfig struct {
	PendingLeaseTTLSeconds int  `toml:"pending_lease_ttl_seconds"`
	HistoryDays            int  `toml:"history_days"`
	CacheTTLSeconds        int  `toml:"cache_ttl_seconds"`
	EnableBuildCooldown    bool `toml:"enable_build_cooldown"`
}

// CacheTTL returns how long a stored playlist's remote state stays fresh.
func (p PlaylistsConfig) CacheTTL() time.Duration {
	return time.Duration(p.CacheTTLSeconds) * time.Second
}

// BuildCooldown returns the wait between two builds, zero when disabled.
func (p PlaylistsConfig) BuildCooldown() time.Duration {
	if !p.EnableBuildCooldown {
		return 0
	}
	return 24 * time.Hour
}

// LeaseTTL returns the plan-then-build lease lifetime.
func (p PlaylistsConfig) LeaseTTL() time.Duration {
	return time.Duration(p.PendingLeaseTTLSeconds) * time.Second
}

// WorkerConfig sizes the background sync pool.
type WorkerConfig struct {
	Workers   int `toml:"workers"`
	QueueSize int `toml:"queue_size"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
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

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Load builds the effective configuration: the TOML file at path (or the
// defaults when path is empty or absent), then a .env file if envFile
// exists, then the process environment.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	config := DefaultConfig()
	if path != "" {
		loaded, err := LoadConfig(path)
		switch {
		case err == nil:
			config = loaded
		case !errors.Is(err, fs.ErrNotExist):
			return nil, err
		}
	}

	if err := config.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides settings from environment variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	setString(getenv, "SPOTIFY_CLIENT_ID", &c.Spotify.ClientID)
	setString(getenv, "SPOTIFY_CLIENT_SECRET", &c.Spotify.ClientSecret)
	setString(getenv, "SPOTIFY_REFRESH_TOKEN", &c.Spotify.RefreshToken)
	setString(getenv, "OLLAMA_HOST", &c.Ollama.Host)
	setString(getenv, "OLLAMA_MODEL", &c.Ollama.Model)
	setString(getenv, "MOODMIX_DB_PATH", &c.Database.Path)
	setString(getenv, "MOODMIX_LOG_LEVEL", &c.LogLevel)

	ints := []struct {
		key string
		dst *int
	}{
		{"MOODMIX_MIN_TRACK_POP", &c.Builder.MinTrackPop},
		{"MOODMIX_MIN_ARTIST_POP", &c.Builder.MinArtistPop},
		{"SPOTIFY_MAX_RETRIES", &c.Spotify.MaxRetries},
		{"SPOTIFY_RETRY_BACKOFF_MS", &c.Spotify.RetryBackoffMs},
		{"MOODMIX_PENDING_LEASE_TTL_SECONDS", &c.Playlists.PendingLeaseTTLSeconds},
		{"MOODMIX_PLAYLIST_CACHE_TTL_SECONDS", &c.Playlists.CacheTTLSeconds},
		{"MOODMIX_PORT", &c.Server.Port},
	}
	for _, v := range ints {
		raw := strings.TrimSpace(getenv(v.key))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("config: %s must be an integer, got %q", v.key, raw)
		}
		*v.dst = n
	}

	if raw := strings.TrimSpace(getenv("MOODMIX_ENABLE_BUILD_COOLDOWN")); raw != "" {
		switch strings.ToLower(raw) {
		case "1", "true", "yes":
			c.Playlists.EnableBuildCooldown = true
		default:
			c.Playlists.EnableBuildCooldown = false
		}
	}
	return nil
}

func setString(getenv func(string) string, key string, dst *string) {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		*dst = v
	}
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Builder.MinTrackPop < 0 || c.Builder.MinTrackPop > 100 {
		errs = append(errs, fmt.Errorf("builder.min_track_pop must be within 0-100, got %d", c.Builder.MinTrackPop))
	}
	if c.Builder.MinArtistPop < 0 || c.Builder.MinArtistPop > 100 {
		errs = append(errs, fmt.Errorf("builder.min_artist_pop must be within 0-100, got %d", c.Builder.MinArtistPop))
	}
	if c.Spotify.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("spotify.max_retries must not be negative, got %d", c.Spotify.MaxRetries))
	}
	if c.Spotify.RetryBackoffMs < 0 {
		errs = append(errs, fmt.Errorf("spotify.retry_backoff_ms must not be negative, got %d", c.Spotify.RetryBackoffMs))
	}
	if c.Playlists.PendingLeaseTTLSeconds <= 0 {
		errs = append(errs, fmt.Errorf("playlists.pending_lease_ttl_seconds must be positive, got %d", c.Playlists.PendingLeaseTTLSeconds))
	}
	if c.Playlists.CacheTTLSeconds <= 0 {
		errs = append(errs, fmt.Errorf("playlists.cache_ttl_seconds must be positive, got %d", c.Playlists.CacheTTLSeconds))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// HasSpotifyCredentials reports whether the refresh-token flow can run.
func (c *Config) HasSpotifyCredentials() bool {
	s := c.Spotify
	return s.ClientID != "" && s.ClientSecret != "" && s.RefreshToken != ""
}
