// Package config loads odm-import settings from a YAML file, a .env file
// and the environment. Command-line flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvServer     = "ODM_SERVER"
	EnvToken      = "ODM_TOKEN"
	EnvTemplate   = "ODM_TEMPLATE"
	EnvJobTimeout = "ODM_JOB_TIMEOUT"
)

// Config holds the settings of one run.
type Config struct {
	Server        string        `yaml:"server"`
	Token         string        `yaml:"token"`
	Template      string        `yaml:"template"`
	JobTimeout    time.Duration `yaml:"job_timeout"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	ProgressAfter time.Duration `yaml:"progress_after"`
	Source        string        `yaml:"source"`
	CheckLinks    bool          `yaml:"check_links"`
	LogLevel      string        `yaml:"log_level"`
	LogFormat     string        `yaml:"log_format"`
	S3            S3Config      `yaml:"s3"`
}

// S3Config configures the S3 client used by --check-links.
type S3Config struct {
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Server:        "http://localhost:8080",
		JobTimeout:    30 * time.Minute,
		PollInterval:  5 * time.Second,
		ProgressAfter: 2 * time.Minute,
		LogLevel:      "warn",
		LogFormat:     "text",
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/odm-import/config.yaml, falling
// back to ~/.config when XDG_CONFIG_HOME is unset.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "odm-import", "config.yaml")
}

// Load builds a Config from defaults, the YAML file at path, ./.env and
// the environment, in increasing precedence. An empty path means
// DefaultPath, which may be missing; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return Config{}, err
			}
		}
	}

	// Variables already set in the environment win over .env.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv(EnvServer); v != "" {
		c.Server = v
	}
	if v := getenv(EnvToken); v != "" {
		c.Token = v
	}
	if v := getenv(EnvTemplate); v != "" {
		c.Template = v
	}
	if v := getenv(EnvJobTimeout); v != "" {
		d, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvJobTimeout, err)
		}
		c.JobTimeout = d
	}
	return nil
}

// ParseDuration accepts a Go duration ("90s", "10m") or a bare number of
// seconds.
func ParseDuration(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative duration %q", s)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}
