package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Defaults DefaultsConfig `yaml:"defaults"`
	Output   OutputConfig   `yaml:"output"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Batch    BatchConfig    `yaml:"batch"`
}

// DefaultsConfig holds metadata applied to workouts that lack it.
type DefaultsConfig struct {
	Category      string `yaml:"category"`
	Subcategory   string `yaml:"subcategory"`
	FilenameTitle bool   `yaml:"filename_title"`
}

type OutputConfig struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"`
}

type LedgerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type BatchConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// Default returns the configuration used when no file is given. The ledger
// is disabled when the user cache directory cannot be resolved.
func Default() *Config {
	cfg := &Config{
		Batch: BatchConfig{Concurrency: 4},
	}
	if dir, err := os.UserCacheDir(); err == nil {
		cfg.Ledger = LedgerConfig{
			Enabled: true,
			Path:    filepath.Join(dir, "workoutconv", "ledger.db"),
		}
	}
	return cfg
}

// Load starts from Default, overlays the YAML file at path (if path is not
// empty), then applies environment variable overrides:
//
//	WORKOUTCONV_CATEGORY, WORKOUTCONV_SUBCATEGORY, WORKOUTCONV_FILENAME_TITLE,
//	WORKOUTCONV_OUTPUT_DIR, WORKOUTCONV_FORMAT,
//	WORKOUTCONV_LEDGER_ENABLED, WORKOUTCONV_LEDGER_PATH,
//	WORKOUTCONV_CONCURRENCY
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv exports the variables of the given .env files into the process
// environment without replacing variables that are already set. Missing files
// are ignored.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WORKOUTCONV_CATEGORY"); v != "" {
		cfg.Defaults.Category = v
	}
	if v := os.Getenv("WORKOUTCONV_SUBCATEGORY"); v != "" {
		cfg.Defaults.Subcategory = v
	}
	if v := os.Getenv("WORKOUTCONV_FILENAME_TITLE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Defaults.FilenameTitle = b
		}
	}
	if v := os.Getenv("WORKOUTCONV_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("WORKOUTCONV_FORMAT"); v != "" {
		cfg.Output.Format = v
	}
	if v := os.Getenv("WORKOUTCONV_LEDGER_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Ledger.Enabled = b
		}
	}
	if v := os.Getenv("WORKOUTCONV_LEDGER_PATH"); v != "" {
		cfg.Ledger.Path = v
	}
	if v := os.Getenv("WORKOUTCONV_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Batch.Concurrency = n
		}
	}
}

func (c *Config) validate() error {
	if c.Batch.Concurrency < 1 {
		return fmt.Errorf("batch.concurrency must be at least 1, got %d", c.Batch.Concurrency)
	}
	if c.Ledger.Enabled && c.Ledger.Path == "" {
		return fmt.Errorf("ledger.path is required when the ledger is enabled")
	}
	return nil
}
