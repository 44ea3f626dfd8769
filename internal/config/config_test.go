package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./moodmix.db" {
			t.Errorf("expected database path ./moodmix.db, got %s", config.Database.Path)
		}
		if config.Server.Addr() != "0.0.0.0:8080" {
			t.Errorf("expected addr 0.0.0.0:8080, got %s", config.Server.Addr())
		}
		if config.Builder.MinTrackPop != 35 || config.Builder.MinArtistPop != 35 {
			t.Errorf("expected popularity floors 35/35, got %d/%d", config.Builder.MinTrackPop, config.Builder.MinArtistPop)
		}
		if config.Playlists.LeaseTTL() != 15*time.Minute {
			t.Errorf("expected lease ttl 15m, got %v", config.Playlists.LeaseTTL())
		}
		if config.Spotify.RetryBackoff() != 500*time.Millisecond {
			t.Errorf("expected backoff 500ms, got %v", config.Spotify.RetryBackoff())
		}
		if config.Ollama.Model != "llama3.1:8b" {
			t.Errorf("expected ollama model llama3.1:8b, got %s", config.Ollama.Model)
		}
		if config.HasSpotifyCredentials() {
			t.Error("default config must not carry credentials")
		}
		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}
		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig keeps defaults for missing keys", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		testConfig := `[database]
path = "/custom/path.db"

[builder]
min_track_pop = 50
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0o644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}
		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected /custom/path.db, got %s", config.Database.Path)
		}
		if config.Builder.MinTrackPop != 50 {
			t.Errorf("expected min_track_pop 50, got %d", config.Builder.MinTrackPop)
		}
		if config.Builder.MinArtistPop != 35 {
			t.Errorf("expected default min_artist_pop 35, got %d", config.Builder.MinArtistPop)
		}
	})

	t.Run("LoadConfig errors", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
			t.Error("expected error for missing file")
		}

		bad := filepath.Join(t.TempDir(), "bad.toml")
		if err := os.WriteFile(bad, []byte("[server\nport = "), 0o644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if _, err := LoadConfig(bad); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		check   func(t *testing.T, c *Config)
		wantErr string
	}{
		{
			name: "overrides credentials and thresholds",
			env: map[string]string{
				"SPOTIFY_CLIENT_ID":                 "id",
				"SPOTIFY_CLIENT_SECRET":             "secret",
				"SPOTIFY_REFRESH_TOKEN":             "refresh",
				"OLLAMA_HOST":                       "http://gpu:11434",
				"OLLAMA_MODEL":                      "qwen2.5:7b",
				"MOODMIX_MIN_TRACK_POP":             "20",
				"MOODMIX_MIN_ARTIST_POP":            " 25 ",
				"SPOTIFY_MAX_RETRIES":               "5",
				"SPOTIFY_RETRY_BACKOFF_MS":          "250",
				"MOODMIX_PENDING_LEASE_TTL_SECONDS": "60",
				"MOODMIX_DB_PATH":                   "/data/mm.db",
			},
			check: func(t *testing.T, c *Config) {
				if !c.HasSpotifyCredentials() {
					t.Error("expected credentials to be set")
				}
				if c.Ollama.Host != "http://gpu:11434" || c.Ollama.Model != "qwen2.5:7b" {
					t.Errorf("ollama not overridden: %+v", c.Ollama)
				}
				if c.Builder.MinTrackPop != 20 || c.Builder.MinArtistPop != 25 {
					t.Errorf("floors not overridden: %+v", c.Builder)
				}
				if c.Spotify.MaxRetries != 5 || c.Spotify.RetryBackoff() != 250*time.Millisecond {
					t.Errorf("retry not overridden: %+v", c.Spotify)
				}
				if c.Playlists.LeaseTTL() != time.Minute {
					t.Errorf("lease ttl = %v", c.Playlists.LeaseTTL())
				}
				if c.Database.Path != "/data/mm.db" {
					t.Errorf("db path = %s", c.Database.Path)
				}
			},
		},
		{
			name: "blank values keep defaults",
			env:  map[string]string{"OLLAMA_MODEL": "  ", "MOODMIX_MIN_TRACK_POP": ""},
			check: func(t *testing.T, c *Config) {
				if c.Ollama.Model != "llama3.1:8b" || c.Builder.MinTrackPop != 35 {
					t.Errorf("defaults changed: %+v %+v", c.Ollama, c.Builder)
				}
			},
		},
		{
			name: "playlist cache and cooldown",
			env: map[string]string{
				"MOODMIX_PLAYLIST_CACHE_TTL_SECONDS": "3600",
				"MOODMIX_ENABLE_BUILD_COOLDOWN":      "Yes",
			},
			check: func(t *testing.T, c *Config) {
				if c.Playlists.CacheTTL() != time.Hour {
					t.Errorf("cache ttl = %v", c.Playlists.CacheTTL())
				}
				if c.Playlists.BuildCooldown() != 24*time.Hour {
					t.Errorf("cooldown = %v", c.Playlists.BuildCooldown())
				}
			},
		},
		{
			name: "cooldown off by default and for other values",
			env:  map[string]string{"MOODMIX_ENABLE_BUILD_COOLDOWN": "nope"},
			check: func(t *testing.T, c *Config) {
				if c.Playlists.BuildCooldown() != 0 || c.Playlists.CacheTTL() != 24*time.Hour {
					t.Errorf("unexpected playlists config: %+v", c.Playlists)
				}
			},
		},
		{
			name:    "non-integer is rejected",
			env:     map[string]string{"SPOTIFY_MAX_RETRIES": "many"},
			wantErr: "SPOTIFY_MAX_RETRIES",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			err := c.ApplyEnv(func(k string) string { return tt.env[k] })
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, c)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "track floor above 100", mutate: func(c *Config) { c.Builder.MinTrackPop = 101 }, wantErr: "min_track_pop"},
		{name: "negative artist floor", mutate: func(c *Config) { c.Builder.MinArtistPop = -1 }, wantErr: "min_artist_pop"},
		{name: "zero lease ttl", mutate: func(c *Config) { c.Playlists.PendingLeaseTTLSeconds = 0 }, wantErr: "pending_lease_ttl_seconds"},
		{name: "zero cache ttl", mutate: func(c *Config) { c.Playlists.CacheTTLSeconds = 0 }, wantErr: "cache_ttl_seconds"},
		{name: "empty db path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: "database.path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("MOODMIX_DB_PATH=/from/dotenv.db\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("MOODMIX_DB_PATH", "")
	t.Setenv("MOODMIX_MIN_TRACK_POP", "40")

	// godotenv does not override variables that are already set, so clear
	// the one the file provides.
	os.Unsetenv("MOODMIX_DB_PATH")

	c, err := Load(filepath.Join(dir, "absent.toml"), envPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Database.Path != "/from/dotenv.db" {
		t.Errorf("db path = %s, want value from .env", c.Database.Path)
	}
	if c.Builder.MinTrackPop != 40 {
		t.Errorf("min track pop = %d, want 40", c.Builder.MinTrackPop)
	}

	if _, err := Load("", filepath.Join(dir, "no.env")); err != nil {
		t.Fatalf("missing env file should be ignored: %v", err)
	}
}
