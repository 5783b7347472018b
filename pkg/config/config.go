// Package config loads chatporter configuration from the user config file,
// project overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for chatporter
type Config struct {
	Workers  WorkersConfig  `mapstructure:"workers" yaml:"workers"`
	Guard    GuardConfig    `mapstructure:"guard" yaml:"guard"`
	Previews PreviewsConfig `mapstructure:"previews" yaml:"previews"`
	Export   ExportConfig   `mapstructure:"export" yaml:"export"`
}

// WorkersConfig caps the bounded sub-concurrency inside steps.
// Zero means "derive from the host" (NumCPU for CPU work, 2x for IO).
type WorkersConfig struct {
	IO  int `mapstructure:"io" yaml:"io"`
	CPU int `mapstructure:"cpu" yaml:"cpu"`
}

// GuardConfig tunes the sidecar immutability guard. Both values are
// heuristics, not contracts: tolerance absorbs filesystem timestamp
// coarseness, sample_limit bounds the per-step re-verification cost.
type GuardConfig struct {
	Tolerance   time.Duration `mapstructure:"tolerance" yaml:"tolerance"`
	SampleLimit int           `mapstructure:"sample_limit" yaml:"sample_limit"`
}

// UnmarshalYAML decodes guard overrides, accepting Go duration strings for
// tolerance. Absent fields keep their current (already merged) values.
func (g *GuardConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Tolerance   string `yaml:"tolerance"`
		SampleLimit *int   `yaml:"sample_limit"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Tolerance != "" {
		parsed, err := time.ParseDuration(raw.Tolerance)
		if err != nil {
			return fmt.Errorf("invalid guard tolerance %q: %w", raw.Tolerance, err)
		}
		g.Tolerance = parsed
	}
	if raw.SampleLimit != nil {
		g.SampleLimit = *raw.SampleLimit
	}
	return nil
}

// PreviewsConfig controls link-preview enrichment in HTML artifacts
type PreviewsConfig struct {
	Enable bool `mapstructure:"enable" yaml:"enable"`
}

// ExportConfig holds default export behavior, overridable per run by flags
type ExportConfig struct {
	OnCollision string `mapstructure:"on_collision" yaml:"on_collision"` // ask, replace, keep-both, fail
}

var defaultConfig = Config{
	Workers: WorkersConfig{
		IO:  0,
		CPU: 0,
	},
	Guard: GuardConfig{
		Tolerance:   2 * time.Second,
		SampleLimit: 64,
	},
	Previews: PreviewsConfig{
		Enable: true,
	},
	Export: ExportConfig{
		OnCollision: "ask",
	},
}

// Default returns a copy of the built-in defaults.
func Default() Config {
	return defaultConfig
}

// LoadConfig loads configuration from the config file search paths and
// CHATPORTER_* environment variables, falling back to defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("workers.io", defaultConfig.Workers.IO)
	v.SetDefault("workers.cpu", defaultConfig.Workers.CPU)
	v.SetDefault("guard.tolerance", defaultConfig.Guard.Tolerance)
	v.SetDefault("guard.sample_limit", defaultConfig.Guard.SampleLimit)
	v.SetDefault("previews.enable", defaultConfig.Previews.Enable)
	v.SetDefault("export.on_collision", defaultConfig.Export.OnCollision)

	v.SetConfigName("chatporter")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME")
	if configDir, err := GetConfigDir(); err == nil {
		v.AddConfigPath(configDir)
	}

	v.SetEnvPrefix("CHATPORTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional; defaults apply when absent
	_ = v.ReadInConfig()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %v", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadProjectConfig loads global config and merges `.chatporter.yaml`
// overrides found in dir (typically the source chat directory).
func LoadProjectConfig(dir string) (*Config, error) {
	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	for _, name := range []string{".chatporter.yaml", ".chatporter.yml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path) // #nosec G304 -- fixed names under caller-chosen dir
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		break
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Workers.IO < 0 || c.Workers.CPU < 0 {
		return fmt.Errorf("worker caps must be >= 0 (io=%d cpu=%d)", c.Workers.IO, c.Workers.CPU)
	}
	if c.Guard.Tolerance < 0 {
		return fmt.Errorf("guard tolerance must be >= 0, got %v", c.Guard.Tolerance)
	}
	if c.Guard.SampleLimit < 1 {
		return fmt.Errorf("guard sample limit must be >= 1, got %d", c.Guard.SampleLimit)
	}
	switch c.Export.OnCollision {
	case "ask", "replace", "keep-both", "fail":
	default:
		return fmt.Errorf("unknown collision policy %q", c.Export.OnCollision)
	}
	return nil
}

// EnsureHome creates and returns the chatporter home directory (~/.chatporter).
func EnsureHome() (string, error) {
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %v", err)
	}
	home := filepath.Join(userHome, ".chatporter")
	if err := os.MkdirAll(home, 0o750); err != nil {
		return "", fmt.Errorf("failed to create chatporter home: %v", err)
	}
	return home, nil
}

// GetConfigDir returns the config directory
func GetConfigDir() (string, error) {
	home, err := EnsureHome()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(home, "config")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create config directory: %v", err)
	}
	return configDir, nil
}
