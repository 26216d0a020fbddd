// Package config loads runtime settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/garden-road/internal/engine"
	"github.com/talgya/garden-road/internal/world"
)

// Config holds process settings.
type Config struct {
	Port          int           `yaml:"port"`
	DBPath        string        `yaml:"db_path"`
	Seed          int64         `yaml:"seed"` // 0 draws from crypto/rand or random.org
	FrameInterval time.Duration `yaml:"frame_interval"`
	ScanInterval  time.Duration `yaml:"scan_interval"`
	Rows          int           `yaml:"rows"`
	Cols          int           `yaml:"cols"`
	CatalogPath   string        `yaml:"catalog_path"`
	DemoLayout    bool          `yaml:"demo_layout"` // Generate a garden when none is saved
	CORSOrigins   []string      `yaml:"cors_origins"`

	// Secrets come from the environment only.
	AdminKey     string `yaml:"-"`
	RandomOrgKey string `yaml:"-"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Port:          8080,
		DBPath:        "data/garden.db",
		FrameInterval: engine.DefaultFrameInterval,
		ScanInterval:  engine.DefaultScanInterval,
		Rows:          world.DefaultRows,
		Cols:          world.DefaultCols,
		DemoLayout:    true,
		CORSOrigins:   []string{"*"},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadFromEnv loads the file named by GARDEN_CONFIG, if any.
func LoadFromEnv() (*Config, error) {
	return Load(os.Getenv("GARDEN_CONFIG"))
}

func (c *Config) applyEnv() {
	c.Port = envIntOrDefault("GARDEN_PORT", c.Port)
	c.DBPath = envOrDefault("GARDEN_DB", c.DBPath)
	c.AdminKey = envOrDefault("GARDEN_ADMIN_KEY", c.AdminKey)
	c.RandomOrgKey = envOrDefault("RANDOM_ORG_KEY", c.RandomOrgKey)
	if v := os.Getenv("GARDEN_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Seed = n
		}
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if c.FrameInterval <= 0 {
		errs = append(errs, fmt.Errorf("frame_interval must be positive, got %s", c.FrameInterval))
	}
	if c.ScanInterval <= 0 {
		errs = append(errs, fmt.Errorf("scan_interval must be positive, got %s", c.ScanInterval))
	}
	if c.Rows <= 0 || c.Cols <= 0 {
		errs = append(errs, fmt.Errorf("grid %dx%d must be non-empty", c.Rows, c.Cols))
	}
	return errors.Join(errs...)
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}
