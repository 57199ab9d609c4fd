// Package config loads the wall server configuration from an optional YAML
// file and the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/evcraddock/comment-wall/internal/db"
)

// PathEnv names the variable holding the config file path.
const PathEnv = "WALL_CONFIG"

// Config is the server configuration. Environment variables override
// values read from the file.
type Config struct {
	Port    int         `yaml:"port"     env:"WALL_PORT" env-default:"8080"`
	DevMode bool        `yaml:"dev_mode" env:"WALL_DEV_MODE"`
	Store   StoreConfig `yaml:"store"`
	Wall    WallConfig  `yaml:"wall"`
}

// StoreConfig selects and configures the comment store. An empty MongoURL
// selects the local SQLite-backed store.
type StoreConfig struct {
	MongoURL     string        `yaml:"mongo_url"     env:"WALL_MONGO_URL"`
	MongoTimeout time.Duration `yaml:"mongo_timeout" env:"WALL_MONGO_TIMEOUT" env-default:"10s"`
	DBPath       string        `yaml:"db"            env:"WALL_DB"`
	// PollEvery is how often the local store looks for writes from other
	// processes sharing DBPath.
	PollEvery time.Duration `yaml:"poll_every" env:"WALL_POLL_EVERY" env-default:"500ms"`
}

// WallConfig tunes the wall screen.
type WallConfig struct {
	MaxItems      int           `yaml:"max_items"      env:"WALL_MAX_ITEMS"      env-default:"500"`
	ViewportWidth float64       `yaml:"viewport_width" env:"WALL_VIEWPORT_WIDTH" env-default:"1920"`
	HighlightFor  time.Duration `yaml:"highlight_for"  env:"WALL_HIGHLIGHT_FOR"  env-default:"3s"`
	BannerFor     time.Duration `yaml:"banner_for"     env:"WALL_BANNER_FOR"     env-default:"2.5s"`
}

// Load reads the file at path, or at $WALL_CONFIG when path is empty, then
// applies the environment. With no file only the environment is read.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(PathEnv)
	}

	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file does not exist: %s", path)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("reading config from environment: %w", err)
	}

	if cfg.Store.MongoURL == "" && cfg.Store.DBPath == "" {
		p, err := db.DefaultPath()
		if err != nil {
			return nil, err
		}
		cfg.Store.DBPath = p
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// StoreKind reports which store the configuration selects.
func (c *Config) StoreKind() string {
	if c.Store.MongoURL != "" {
		return "mongo"
	}
	return "local"
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.Wall.MaxItems <= 0 {
		return fmt.Errorf("wall.max_items must be > 0")
	}
	if c.Wall.ViewportWidth <= 0 {
		return fmt.Errorf("wall.viewport_width must be > 0")
	}
	if c.Wall.HighlightFor <= 0 || c.Wall.BannerFor <= 0 {
		return fmt.Errorf("wall.highlight_for and wall.banner_for must be > 0")
	}
	if c.Store.PollEvery <= 0 {
		return fmt.Errorf("store.poll_every must be > 0")
	}
	if c.Store.MongoTimeout <= 0 {
		return fmt.Errorf("store.mongo_timeout must be > 0")
	}
	return nil
}
