// Package config loads the provctl configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source types understood by source.NewRepository.
const (
	SourceFile = "file"
	SourceHTTP = "http"
	SourceGit  = "git"
	SourceS3   = "s3"
	SourceGCS  = "gcs"
)

// Config is the top level configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Sources   []SourceConfig  `yaml:"sources"`
	Log       LogConfig       `yaml:"log"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
}

type ServerConfig struct {
	Listen          string            `yaml:"listen"`
	RefreshInterval time.Duration     `yaml:"refresh_interval"`
	APIKey          string            `yaml:"api_key"`
	Users           map[string]string `yaml:"users"` // username -> bcrypt hash
	TokenTTL        time.Duration     `yaml:"token_ttl"`
}

// SourceConfig describes one manifest repository.
type SourceConfig struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Path   string `yaml:"path"`
	URL    string `yaml:"url"`
	Branch string `yaml:"branch"`
	APIKey string `yaml:"api_key"`

	// git basic auth
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// object stores
	Bucket   string `yaml:"bucket"`
	Object   string `yaml:"object"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type BootstrapConfig struct {
	AssumeYes   bool              `yaml:"assume_yes"`
	BreezeDir   string            `yaml:"breeze_dir"`
	MinVersions map[string]string `yaml:"min_versions"` // tool name -> minimum version
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:          ":8080",
			RefreshInterval: 30 * time.Second,
			TokenTTL:        24 * time.Hour,
		},
		Log: LogConfig{Level: "info", Format: "text"},
		Bootstrap: BootstrapConfig{
			BreezeDir: "./dev/breeze",
		},
	}
}

// Load reads the YAML file at path over the defaults and applies PROVCTL_*
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PROVCTL_LISTEN"); ok {
		c.Server.Listen = v
	}
	if v, ok := lookup("PROVCTL_API_KEY"); ok {
		c.Server.APIKey = v
	}
	if v, ok := lookup("PROVCTL_REFRESH_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PROVCTL_REFRESH_INTERVAL: %w", err)
		}
		c.Server.RefreshInterval = d
	}
	if v, ok := lookup("PROVCTL_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := lookup("PROVCTL_LOG_FORMAT"); ok {
		c.Log.Format = v
	}
	return nil
}

// Validate checks that every source has a unique name and the fields its
// type requires.
func (c *Config) Validate() error {
	var errs []error
	seen := make(map[string]bool)
	for i, s := range c.Sources {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: name is required", i))
		} else if seen[s.Name] {
			errs = append(errs, fmt.Errorf("sources[%d]: duplicate name %q", i, s.Name))
		}
		seen[s.Name] = true
		if err := s.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("sources[%d]: %w", i, err))
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Validate checks the fields required by the source type.
func (s SourceConfig) Validate() error {
	switch s.Type {
	case SourceFile, "":
		if s.Path == "" {
			return errors.New("path is required")
		}
	case SourceHTTP:
		if s.URL == "" {
			return errors.New("url is required")
		}
	case SourceGit:
		if s.URL == "" {
			return errors.New("url is required")
		}
		if s.Path == "" {
			return errors.New("path is required")
		}
	case SourceS3, SourceGCS:
		if s.Bucket == "" {
			return errors.New("bucket is required")
		}
		if s.Object == "" {
			return errors.New("object is required")
		}
	default:
		return fmt.Errorf("unknown source type %q", s.Type)
	}
	return nil
}
