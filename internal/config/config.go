package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/npezzotti/go-curio/internal/database"
	"gopkg.in/yaml.v3"
)

const (
	DefaultServerAddr = ":8000"
	DefaultDemoDSN    = "curio-demo.db"
)

type Config struct {
	ServerAddr     string         `yaml:"server_addr"`
	AllowedOrigins []string       `yaml:"allowed_origins"`
	SigningSecret  string         `yaml:"signing_secret"`
	Database       DatabaseConfig `yaml:"database"`
	Redis          RedisConfig    `yaml:"redis"`
	Feedback       FeedbackConfig `yaml:"feedback"`
	Log            LogConfig      `yaml:"log"`
	Demo           bool           `yaml:"demo"`

	// SigningKey is decoded from SigningSecret by Validate.
	SigningKey []byte `yaml:"-"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// RedisConfig enables the shared in-flight guard when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// FeedbackConfig points at the relay that delivers feedback and password
// reset mail. Feedback is disabled when URL is empty.
type FeedbackConfig struct {
	URL string `yaml:"url"`
	Key string `yaml:"key"`
	To  string `yaml:"to"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() *Config {
	return &Config{
		ServerAddr: DefaultServerAddr,
		Database: DatabaseConfig{
			Driver: string(database.Postgres),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a YAML config file over the defaults and applies environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", filepath.Base(path), err)
			}
		}
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// secrets are kept out of config files where possible
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CURIO_SIGNING_SECRET"); v != "" {
		c.SigningSecret = v
	}
	if v := os.Getenv("CURIO_DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("CURIO_REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("CURIO_FEEDBACK_KEY"); v != "" {
		c.Feedback.Key = v
	}
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	if base64Secret == "" {
		return nil, errors.New("empty secret")
	}
	return base64.StdEncoding.DecodeString(base64Secret)
}

// Validate checks the config and fills derived fields. Demo mode forces the
// SQLite driver.
func (c *Config) Validate() error {
	if c.ServerAddr == "" {
		return fmt.Errorf("server address cannot be empty")
	}

	if c.Demo {
		c.Database.Driver = string(database.SQLite)
		if c.Database.DSN == "" {
			c.Database.DSN = DefaultDemoDSN
		}
	}

	if _, err := database.ParseDriver(c.Database.Driver); err != nil {
		return err
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN cannot be empty")
	}

	if c.SigningSecret == "" {
		return fmt.Errorf("signing secret cannot be empty")
	}
	key, err := decodeSigningSecret(c.SigningSecret)
	if err != nil {
		return fmt.Errorf("decode signing secret: %w", err)
	}
	c.SigningKey = key

	if c.Feedback.URL != "" && c.Feedback.To == "" {
		return fmt.Errorf("feedback recipient cannot be empty when feedback url is set")
	}

	return nil
}

func (c *Config) DatabaseDriver() database.Driver {
	d, _ := database.ParseDriver(c.Database.Driver)
	return d
}
