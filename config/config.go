package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pilacorp/go-lds-secp256k1/common/loader"
	"github.com/pilacorp/go-lds-secp256k1/diddoc"
	"github.com/pilacorp/go-lds-secp256k1/key"
)

// Default values
const (
	DefaultLoaderTimeout = 10 * time.Second
	DefaultLogLevel      = "info"
)

// Environment variable names
const (
	EnvController     = "LDS_CONTROLLER"
	EnvHDPath         = "LDS_HD_PATH"
	EnvStrictMnemonic = "LDS_STRICT_MNEMONIC"
	EnvAllowNetwork   = "LDS_ALLOW_NETWORK"
	EnvLoaderTimeout  = "LDS_LOADER_TIMEOUT"
	EnvLogLevel       = "LDS_LOG_LEVEL"
	EnvDefaultContext = "LDS_DEFAULT_CONTEXT"
)

// Config holds the settings of a signing session.
type Config struct {
	Controller     string
	HDPath         string
	StrictMnemonic bool
	AllowNetwork   bool
	LoaderTimeout  time.Duration
	LogLevel       string
	DefaultContext string
}

// fileConfig mirrors Config with optional fields so that absent keys keep defaults.
type fileConfig struct {
	Controller     string        `yaml:"controller"`
	HDPath         string        `yaml:"hdPath"`
	StrictMnemonic *bool         `yaml:"strictMnemonic"`
	AllowNetwork   *bool         `yaml:"allowNetwork"`
	LoaderTimeout  time.Duration `yaml:"loaderTimeout"`
	LogLevel       string        `yaml:"logLevel"`
	DefaultContext *string       `yaml:"defaultContext"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Controller:     diddoc.DefaultController,
		HDPath:         key.DefaultPath,
		StrictMnemonic: true,
		AllowNetwork:   false,
		LoaderTimeout:  DefaultLoaderTimeout,
		LogLevel:       DefaultLogLevel,
		DefaultContext: loader.SchemaOrgContext,
	}
}

// Load reads the YAML file at path when path is not empty, then applies
// environment overrides on top of it.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		var parsed fileConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
		merge(&cfg, parsed)
	}

	ApplyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// merge copies the fields set in src into dst.
func merge(dst *Config, src fileConfig) {
	if src.Controller != "" {
		dst.Controller = src.Controller
	}
	if src.HDPath != "" {
		dst.HDPath = src.HDPath
	}
	if src.StrictMnemonic != nil {
		dst.StrictMnemonic = *src.StrictMnemonic
	}
	if src.AllowNetwork != nil {
		dst.AllowNetwork = *src.AllowNetwork
	}
	if src.LoaderTimeout != 0 {
		dst.LoaderTimeout = src.LoaderTimeout
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.DefaultContext != nil {
		dst.DefaultContext = *src.DefaultContext
	}
}

// ApplyEnvOverrides replaces fields with the LDS_* environment variables that
// are set. Values that do not parse are ignored.
func ApplyEnvOverrides(cfg *Config) {
	if v := env(EnvController); v != "" {
		cfg.Controller = v
	}
	if v := env(EnvHDPath); v != "" {
		cfg.HDPath = v
	}
	if v, ok := envBool(EnvStrictMnemonic); ok {
		cfg.StrictMnemonic = v
	}
	if v, ok := envBool(EnvAllowNetwork); ok {
		cfg.AllowNetwork = v
	}
	if raw := env(EnvLoaderTimeout); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.LoaderTimeout = d
		}
	}
	if v := env(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v, ok := os.LookupEnv(EnvDefaultContext); ok {
		cfg.DefaultContext = strings.TrimSpace(v)
	}
}

// Validate checks the controller and derivation path.
func (c Config) Validate() error {
	if !strings.HasPrefix(c.Controller, "did:") {
		return fmt.Errorf("invalid controller %q: must be a DID", c.Controller)
	}
	if _, err := key.ParsePath(c.HDPath); err != nil {
		return fmt.Errorf("invalid hd path: %w", err)
	}
	if c.LoaderTimeout <= 0 {
		return fmt.Errorf("loader timeout must be positive")
	}
	return nil
}

func env(name string) string {
	return strings.TrimSpace(os.Getenv(name))
}

func envBool(name string) (bool, bool) {
	raw := env(name)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
