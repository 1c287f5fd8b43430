package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	ListenAddr         string `mapstructure:"listen_addr" yaml:"listen_addr"`
	MaxUploadMB        int64  `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	AnalysisTimeoutSec int    `mapstructure:"analysis_timeout_sec" yaml:"analysis_timeout_sec"`
	// Workers bounds concurrent sub-analyses per request; 0 uses GOMAXPROCS.
	Workers int `mapstructure:"workers" yaml:"workers"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// AnalysisTimeout returns the per-request analysis deadline.
func (g *Global) AnalysisTimeout() time.Duration {
	return time.Duration(g.AnalysisTimeoutSec) * time.Second
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{"listen_addr", "max_upload_mb", "analysis_timeout_sec", "workers", "log_level", "log_format"}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".insight"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.insight/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("INSIGHT")
	v.AutomaticEnv()

	v.SetDefault("listen_addr", ":8000")
	v.SetDefault("max_upload_mb", 50)
	v.SetDefault("analysis_timeout_sec", 120)
	v.SetDefault("workers", 0)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects values the server cannot run with.
func (g *Global) Validate() error {
	if g.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be positive, got %d", g.MaxUploadMB)
	}
	if g.AnalysisTimeoutSec <= 0 {
		return fmt.Errorf("analysis_timeout_sec must be positive, got %d", g.AnalysisTimeoutSec)
	}
	if g.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", g.Workers)
	}
	switch g.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", g.LogFormat)
	}
	return nil
}
