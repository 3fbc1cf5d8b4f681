// Package config loads the radio DJ configuration from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/justestif/go-spotify-radio-dj/internal/clustering"
	"github.com/justestif/go-spotify-radio-dj/internal/palette"
)

// ErrInvalid is returned by Validate for out-of-range settings.
var ErrInvalid = errors.New("invalid configuration")

// Palette strategy names.
const (
	StrategyCluster   = "cluster"
	StrategyMedianCut = "mediancut"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL settings. An empty URL disables persistence.
type DatabaseConfig struct {
	URL string `yaml:"url,omitempty"`
}

// SpotifyConfig holds app credentials used for catalog-only requests.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id,omitempty"`
	ClientSecret string `yaml:"client_secret,omitempty"`
}

// ClusteringConfig holds k-means settings for track clustering.
type ClusteringConfig struct {
	K             int     `yaml:"k"`
	MaxIterations int     `yaml:"max_iterations"`
	Init          string  `yaml:"init"`
	Seed          *uint64 `yaml:"seed,omitempty"` // nil seeds from the clock
}

// PaletteConfig holds color theme extraction settings.
type PaletteConfig struct {
	Strategy     string  `yaml:"strategy"`
	K            int     `yaml:"k"`
	Depth        int     `yaml:"depth"`
	DarkenFactor float64 `yaml:"darken_factor"`
	MaxSide      int     `yaml:"max_side"`
	MaxBytes     int64   `yaml:"max_bytes"`
}

// PlaylistConfig holds DJ set building settings.
type PlaylistConfig struct {
	TopTracks          int `yaml:"top_tracks"`
	MaxSeeds           int `yaml:"max_seeds"`
	MinRecommendations int `yaml:"min_recommendations"`
	MaxRecommendations int `yaml:"max_recommendations"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Config is the full application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Spotify    SpotifyConfig    `yaml:"spotify"`
	Clustering ClusteringConfig `yaml:"clustering"`
	Palette    PaletteConfig    `yaml:"palette"`
	Playlist   PlaylistConfig   `yaml:"playlist"`
	Log        LogConfig        `yaml:"log"`
}

// Default returns the recommended configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            "127.0.0.1:8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Clustering: ClusteringConfig{
			K:             10,
			MaxIterations: clustering.DefaultMaxIterations,
			Init:          clustering.InitNaive.String(),
		},
		Palette: PaletteConfig{
			Strategy:     StrategyCluster,
			K:            palette.DefaultK,
			Depth:        palette.MaxDepth,
			DarkenFactor: palette.DefaultDarkenFactor,
			MaxSide:      64,
			MaxBytes:     10 << 20,
		},
		Playlist: PlaylistConfig{
			TopTracks:          50,
			MaxSeeds:           5,
			MinRecommendations: 5,
			MaxRecommendations: 7,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
// Environment overrides are applied afterwards.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config: %w", err)
			}
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from SPOTIFY_ID, SPOTIFY_SECRET, DATABASE_URL,
// RADIO_DJ_ADDR, RADIO_DJ_LOG_LEVEL and RADIO_DJ_SEED.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("SPOTIFY_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("RADIO_DJ_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("RADIO_DJ_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("RADIO_DJ_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parsing RADIO_DJ_SEED: %w", err)
		}
		c.Clustering.Seed = &seed
	}
	return nil
}

// Validate checks every section for out-of-range values.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is empty"))
	}
	if c.Clustering.K < 1 || c.Clustering.K > clustering.MaxK {
		errs = append(errs, fmt.Errorf("clustering.k must be in [1,%d], got %d", clustering.MaxK, c.Clustering.K))
	}
	if c.Clustering.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("clustering.max_iterations must be >= 1, got %d", c.Clustering.MaxIterations))
	}
	if _, err := clustering.ParseInit(c.Clustering.Init); err != nil {
		errs = append(errs, fmt.Errorf("clustering.init: %w", err))
	}
	if c.Palette.Strategy != StrategyCluster && c.Palette.Strategy != StrategyMedianCut {
		errs = append(errs, fmt.Errorf("palette.strategy must be %q or %q, got %q", StrategyCluster, StrategyMedianCut, c.Palette.Strategy))
	}
	if c.Palette.K < 1 || c.Palette.K > clustering.MaxK {
		errs = append(errs, fmt.Errorf("palette.k must be in [1,%d], got %d", clustering.MaxK, c.Palette.K))
	}
	if c.Palette.Depth < 0 || c.Palette.Depth > palette.MaxDepth {
		errs = append(errs, fmt.Errorf("palette.depth must be in [0,%d], got %d", palette.MaxDepth, c.Palette.Depth))
	}
	if c.Palette.DarkenFactor <= 0 || c.Palette.DarkenFactor > 1 {
		errs = append(errs, fmt.Errorf("palette.darken_factor must be in (0,1], got %v", c.Palette.DarkenFactor))
	}
	if c.Playlist.MaxSeeds < 1 || c.Playlist.MaxSeeds > 5 {
		errs = append(errs, fmt.Errorf("playlist.max_seeds must be in [1,5], got %d", c.Playlist.MaxSeeds))
	}
	if c.Playlist.MinRecommendations < 1 || c.Playlist.MinRecommendations > c.Playlist.MaxRecommendations {
		errs = append(errs, fmt.Errorf("playlist recommendations range [%d,%d] is invalid",
			c.Playlist.MinRecommendations, c.Playlist.MaxRecommendations))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// InitStrategy returns the parsed clustering init strategy.
func (c *Config) InitStrategy() clustering.Init {
	init, _ := clustering.ParseInit(c.Clustering.Init)
	return init
}

// Seed returns the configured seed, or one derived from the clock.
func (c *Config) Seed() uint64 {
	if c.Clustering.Seed != nil {
		return *c.Clustering.Seed
	}
	return uint64(time.Now().UnixNano())
}

// Rand returns a generator seeded with seed.
func Rand(seed uint64) *rand.Rand {
	return clustering.NewRand(seed)
}
