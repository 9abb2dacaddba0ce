// Package config loads the bot configuration from a YAML file with
// environment overrides. A .env file next to the process is honored via
// godotenv before the environment is read.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type LogConfig struct {
	Level      string `yaml:"level"`
	OutputFile string `yaml:"output_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type Config struct {
	DBPath         string        `yaml:"db_path"`
	DataDir        string        `yaml:"data_dir"`
	GatewayURL     string        `yaml:"gateway_url"`
	OracleURL      string        `yaml:"oracle_url"`
	OracleTimeout  time.Duration `yaml:"oracle_timeout"`
	RatesURL       string        `yaml:"rates_url"`
	AdminAddr      string        `yaml:"admin_addr"`
	InitialBalance string        `yaml:"initial_balance"`
	SecretDBPath   string        `yaml:"secret_db_path"`
	Log            LogConfig     `yaml:"log"`
}

// Load reads path (optional), applies env overrides, then defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	setIfEnv(&c.DBPath, "SIGNALBOT_DB_PATH")
	setIfEnv(&c.DataDir, "SIGNALBOT_DATA_DIR")
	setIfEnv(&c.GatewayURL, "SIGNALBOT_GATEWAY_URL")
	setIfEnv(&c.OracleURL, "SIGNALBOT_ORACLE_URL")
	setIfEnv(&c.RatesURL, "SIGNALBOT_RATES_URL")
	setIfEnv(&c.AdminAddr, "SIGNALBOT_ADMIN_ADDR")
	setIfEnv(&c.SecretDBPath, "SIGNALBOT_SECRET_DB")
	setIfEnv(&c.Log.Level, "SIGNALBOT_LOG_LEVEL")
	if v := strings.TrimSpace(os.Getenv("SIGNALBOT_ORACLE_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.OracleTimeout = d
		}
	}
}

func setIfEnv(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func (c *Config) ApplyDefaults() {
	if c.DBPath == "" {
		c.DBPath = "data/ledger.db"
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.OracleTimeout <= 0 {
		c.OracleTimeout = 5 * time.Second
	}
	if c.AdminAddr == "" {
		c.AdminAddr = "127.0.0.1:8090"
	}
	if c.SecretDBPath == "" {
		c.SecretDBPath = "data/secrets.badger"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays <= 0 {
		c.Log.MaxAgeDays = 7
	}
}

func (c *Config) Validate() error {
	if c.GatewayURL == "" {
		return fmt.Errorf("config: gateway_url is required")
	}
	if c.OracleURL == "" {
		return fmt.Errorf("config: oracle_url is required")
	}
	return nil
}
