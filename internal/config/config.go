// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the main application configuration structure, loaded from YAML.
type Config struct {
	LogLevel  string          `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	Player    PlayerConfig    `yaml:"player"`    // Playback collaborator settings.
	Spectrum  SpectrumConfig  `yaml:"spectrum"`  // Spectrum analyzer subprocess settings.
	Waveform  WaveformConfig  `yaml:"waveform"`  // Waveform decoder subprocess settings.
	Artwork   ArtworkConfig   `yaml:"artwork"`   // Album art resolution settings.
	Telemetry TelemetryConfig `yaml:"telemetry"` // Renderer telemetry feed settings.
}

// PlayerConfig holds settings for the external playback collaborator and the
// library layout it serves files from.
type PlayerConfig struct {
	Address      string        `yaml:"address"`       // Playback daemon address (e.g., "127.0.0.1:6600").
	MusicDir     string        `yaml:"music_dir"`     // Root of the music library; song paths are relative to it.
	LyricsDir    string        `yaml:"lyrics_dir"`    // Directory holding "<artist> - <title>.lrc" files.
	PollInterval time.Duration `yaml:"poll_interval"` // Interval between playback status polls.
}

// SpectrumConfig holds settings for the long-lived spectrum analyzer subprocess.
type SpectrumConfig struct {
	Binary     string `yaml:"binary"`      // Analyzer executable name or path.
	UserConfig string `yaml:"user_config"` // Optional user analyzer config passed through (minus overridden sections).
	Bars       int    `yaml:"bars"`        // Number of frequency bars the analyzer emits per frame.
}

// WaveformConfig holds settings for per-track amplitude envelope extraction.
type WaveformConfig struct {
	Binary string `yaml:"binary"` // Decoder executable name or path.
	Bars   int    `yaml:"bars"`   // Number of envelope buckets per track.
}

// ArtworkConfig holds settings for cover art resolution and caching.
type ArtworkConfig struct {
	CacheDir string `yaml:"cache_dir"` // On-disk cache for resolved cover images.
}

// TelemetryConfig holds settings for publishing session snapshots to renderers.
type TelemetryConfig struct {
	Enabled  bool          `yaml:"enabled"`  // Enable the WebSocket telemetry feed.
	Address  string        `yaml:"address"`  // Listen address for the feed (e.g., ":8080").
	Interval time.Duration `yaml:"interval"` // Interval between published frames.
}

// LoadConfig loads configuration from a YAML file specified by path. If path
// is empty, it searches default locations. If no file is found, built-in
// defaults are used. Environment overrides are applied after loading, then
// the final configuration is validated.
func LoadConfig(path string) (*Config, error) {
	home, _ := os.UserHomeDir()

	cfg := Config{
		LogLevel: "info",
		Player: PlayerConfig{
			Address:      "127.0.0.1:6600",
			MusicDir:     filepath.Join(home, "Music"),
			LyricsDir:    filepath.Join(home, "Music", "Lyrics"),
			PollInterval: 500 * time.Millisecond,
		},
		Spectrum: SpectrumConfig{
			Binary:     "cava",
			UserConfig: filepath.Join(home, ".config", "cava", "config"),
			Bars:       24,
		},
		Waveform: WaveformConfig{
			Binary: "ffmpeg",
			Bars:   70,
		},
		Artwork: ArtworkConfig{
			CacheDir: filepath.Join(home, ".cache", "bard"),
		},
		Telemetry: TelemetryConfig{
			Enabled:  false,
			Address:  ":8080",
			Interval: 33 * time.Millisecond, // ~30Hz, matching the renderer redraw cadence.
		},
	}

	if path == "" {
		candidates := []string{
			"config.yaml",
			filepath.Join(home, ".config", "bard", "config.yaml"),
		}
		found := false
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				found = true
				break
			}
		}
		if !found {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return &cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Spectrum.Bars <= 0 {
		return fmt.Errorf("spectrum.bars must be positive, got %d", c.Spectrum.Bars)
	}
	if c.Waveform.Bars <= 0 {
		return fmt.Errorf("waveform.bars must be positive, got %d", c.Waveform.Bars)
	}
	if c.Player.PollInterval <= 0 {
		return fmt.Errorf("player.poll_interval must be positive, got %s", c.Player.PollInterval)
	}
	if c.Telemetry.Enabled {
		if c.Telemetry.Address == "" {
			return fmt.Errorf("telemetry.address must be set when telemetry is enabled")
		}
		if c.Telemetry.Interval <= 0 {
			return fmt.Errorf("telemetry.interval must be positive when telemetry is enabled")
		}
	}
	return nil
}

// applyEnvOverrides applies BARD_* environment variables on top of whatever
// was loaded from file or defaults.
func (cfg *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("BARD_LOG_LEVEL"); ok {
		cfg.LogLevel = val
	}
	if val, ok := os.LookupEnv("BARD_PLAYER_ADDRESS"); ok {
		cfg.Player.Address = val
	}
	if val, ok := os.LookupEnv("BARD_MUSIC_DIR"); ok {
		cfg.Player.MusicDir = val
	}
	if val, ok := os.LookupEnv("BARD_TELEMETRY_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Enabled = bVal
		}
	}
	if val, ok := os.LookupEnv("BARD_TELEMETRY_ADDRESS"); ok {
		cfg.Telemetry.Address = val
	}
	if val, ok := os.LookupEnv("BARD_TELEMETRY_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Telemetry.Interval = dur
		}
	}
}
