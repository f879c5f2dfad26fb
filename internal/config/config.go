// Package config resolves runtime settings from defaults, a YAML file, an
// optional .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/amirbrooks/taskcards/internal/gateway"
	"github.com/amirbrooks/taskcards/internal/render"
	"github.com/amirbrooks/taskcards/internal/task"
)

const (
	appDir     = ".taskcards"
	configFile = "config.yaml"
	envPrefix  = "TASKCARDS_"
)

const (
	FormatTerm = "term"
	FormatHTML = "html"
	FormatJSON = "json"
	FormatText = "text"
)

type Config struct {
	BaseURL    string `yaml:"base_url" json:"base_url" validate:"required,url"`
	LogLevel   string `yaml:"log_level" json:"log_level" validate:"oneof=debug info warn warning error"`
	LogJSON    bool   `yaml:"log_json" json:"log_json"`
	Format     string `yaml:"format" json:"format" validate:"oneof=term html json text"`
	Width      int    `yaml:"width" json:"width" validate:"gte=0"`
	DateLayout string `yaml:"date_layout" json:"date_layout"`
	ASCII      bool   `yaml:"ascii" json:"ascii"`

	// Path is the file the config was read from, if any.
	Path string `yaml:"-" json:"path,omitempty"`
}

func Default() Config {
	return Config{
		BaseURL:    gateway.DefaultBaseURL,
		LogLevel:   "info",
		Format:     FormatTerm,
		Width:      render.DefaultWidth,
		DateLayout: task.DefaultDateLayout,
	}
}

// DefaultPath is ~/.taskcards/config.yaml.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	if home == "" {
		return filepath.Join(appDir, configFile)
	}
	return filepath.Join(home, appDir, configFile)
}

type LoadOptions struct {
	// Path overrides the config file location. A missing file at the
	// default location is fine; a missing explicit file is an error.
	Path string
	// EnvFile is loaded into the process environment before env overrides
	// are read. Missing files are ignored.
	EnvFile string
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

var validate = validator.New()

func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	path := opts.Path
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	path = expandHome(path)
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
		cfg.Path = path
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if opts.EnvFile != "" {
		if err := godotenv.Load(expandHome(opts.EnvFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("failed to load env file %s: %w", opts.EnvFile, err)
		}
	}

	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if err := applyEnv(&cfg, getenv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv(envPrefix + "BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := getenv(envPrefix + "LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := getenv(envPrefix + "LOG_JSON"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sLOG_JSON: %w", envPrefix, err)
		}
		cfg.LogJSON = b
	}
	if v := getenv(envPrefix + "FORMAT"); v != "" {
		cfg.Format = strings.ToLower(v)
	}
	if v := getenv(envPrefix + "WIDTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sWIDTH: %w", envPrefix, err)
		}
		cfg.Width = n
	}
	if v := getenv(envPrefix + "DATE_LAYOUT"); v != "" {
		cfg.DateLayout = v
	}
	if v := getenv(envPrefix + "ASCII"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sASCII: %w", envPrefix, err)
		}
		cfg.ASCII = b
	}
	return nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Keys lists the settings Set understands.
var Keys = []string{"base_url", "log_level", "log_json", "format", "width", "date_layout", "ascii"}

// Set updates one setting by its YAML key and re-validates.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	next := *c
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "base_url":
		next.BaseURL = value
	case "log_level":
		next.LogLevel = strings.ToLower(value)
	case "log_json":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("log_json: %w", err)
		}
		next.LogJSON = b
	case "format":
		next.Format = strings.ToLower(value)
	case "width":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("width: %w", err)
		}
		next.Width = n
	case "date_layout":
		next.DateLayout = value
	case "ascii":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("ascii: %w", err)
		}
		next.ASCII = b
	default:
		return fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(Keys, ", "))
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// Save writes the config as YAML, creating the directory if needed.
func Save(path string, cfg Config) error {
	if path == "" {
		path = DefaultPath()
	}
	path = expandHome(path)
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, b, 0o600)
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~"+string(os.PathSeparator)) || path == "~" {
		home, _ := os.UserHomeDir()
		if home != "" {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
