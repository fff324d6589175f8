// Package config reads Extractio settings from the environment and an
// optional YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// EnvConfigFile names an optional YAML file read before the environment.
const EnvConfigFile = "EXTRACTIO_CONFIG"

type Config struct {
	API    API    `yaml:"api"`
	Cache  Cache  `yaml:"cache"`
	TTL    TTL    `yaml:"ttl"`
	Log    Log    `yaml:"log"`
	Server Server `yaml:"server"`
}

type API struct {
	BaseURL string        `yaml:"base_url" env:"EXTRACTIO_API_URL" env-default:"https://api.extractio.net"`
	Timeout time.Duration `yaml:"timeout" env:"EXTRACTIO_API_TIMEOUT" env-default:"15s"`
}

type Cache struct {
	Socket string `yaml:"socket" env:"EXTRACTIO_CACHE_SOCK"`
	DBPath string `yaml:"db_path" env:"EXTRACTIO_CACHE_DB"`
	Bucket string `yaml:"bucket" env:"EXTRACTIO_CACHE_BUCKET" env-default:"extractio"`
	// TouchOnHit records the hit time on revalidation instead of extending
	// stored_at by one TTL.
	TouchOnHit bool `yaml:"touch_on_hit" env:"EXTRACTIO_CACHE_TOUCH_ON_HIT" env-default:"false"`
}

// TTL is the freshness window of each cached resource kind.
type TTL struct {
	Session        time.Duration `yaml:"session" env:"EXTRACTIO_TTL_SESSION" env-default:"1h"`
	Trend          time.Duration `yaml:"trend" env:"EXTRACTIO_TTL_TREND" env-default:"24h"`
	Media          time.Duration `yaml:"media" env:"EXTRACTIO_TTL_MEDIA" env-default:"1h"`
	RelatedContent time.Duration `yaml:"related_content" env:"EXTRACTIO_TTL_RELATED" env-default:"1h"`
	Preview        time.Duration `yaml:"preview" env:"EXTRACTIO_TTL_PREVIEW" env-default:"1h"`
}

type Log struct {
	Path  string `yaml:"path" env:"EXTRACTIO_LOG"`
	Level string `yaml:"level" env:"EXTRACTIO_LOG_LEVEL" env-default:"info"`
}

type Server struct {
	Name    string        `yaml:"name" env:"EXTRACTIO_SERVER_NAME" env-default:"Extractio"`
	Preview time.Duration `yaml:"preview_timeout" env:"EXTRACTIO_PREVIEW_TIMEOUT" env-default:"20s"`
}

// Load reads EXTRACTIO_CONFIG when set, then the environment. Environment
// variables override file values.
func Load() (Config, error) {
	var cfg Config
	var err error
	if path := os.Getenv(EnvConfigFile); path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg.Cache.Socket = defaultString(cfg.Cache.Socket, filepath.Join(cacheDir(), "cache.sock"))
	cfg.Cache.DBPath = defaultString(cfg.Cache.DBPath, filepath.Join(cacheDir(), "cache.bbolt"))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects TTLs below one second; stored_at has second resolution.
func (c Config) Validate() error {
	ttls := map[string]time.Duration{
		"session":         c.TTL.Session,
		"trend":           c.TTL.Trend,
		"media":           c.TTL.Media,
		"related_content": c.TTL.RelatedContent,
		"preview":         c.TTL.Preview,
	}
	for name, ttl := range ttls {
		if ttl < time.Second {
			return fmt.Errorf("config: ttl %s must be at least 1s, got %s", name, ttl)
		}
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("config: api base url is required")
	}
	return nil
}

func cacheDir() string {
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "."
	}
	return filepath.Join(home, ".cache", "extractio")
}

func defaultString(v, d string) string {
	if v == "" {
		return d
	}
	return v
}
