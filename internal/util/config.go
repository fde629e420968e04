// Package util provides common utilities for nocview.
package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	DataDir  string `mapstructure:"data_dir"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`

	// Backend
	APIURL         string        `mapstructure:"api_url"`
	APIToken       string        `mapstructure:"api_token"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// View defaults
	Role     string `mapstructure:"role"`
	Period   string `mapstructure:"period"`
	PageSize int    `mapstructure:"page_size"`

	// RolesFile overrides the built-in role layouts when set.
	RolesFile string `mapstructure:"roles_file"`

	// Operator is the username used by the "My Tickets" quick filter.
	Operator string `mapstructure:"operator"`

	// MyDevices backs the "My Devices" quick filter.
	MyDevices []string `mapstructure:"my_devices"`

	CarouselInterval time.Duration `mapstructure:"carousel_interval"`

	// Report settings
	ReportOutputDir string `mapstructure:"report_output_dir"`

	// Web server
	WebPort int `mapstructure:"web_port"`

	// Background watcher
	WatchRoles       []string      `mapstructure:"watch_roles"`
	HistoryRetention time.Duration `mapstructure:"history_retention"`
}

// DefaultMyDevices is the device allowlist shipped with the demo backend.
var DefaultMyDevices = []string{"Core-SW-01", "FW-DMZ-03", "RTR-EDGE-05"}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".nocview")

	return &Config{
		DataDir:  dataDir,
		LogLevel: "info",
		LogFile:  filepath.Join(dataDir, "nocview.log"),

		APIURL:         "http://localhost:8000",
		RequestTimeout: 10 * time.Second,

		Role:     "noc",
		Period:   "24h",
		PageSize: 10,

		Operator:  os.Getenv("USER"),
		MyDevices: append([]string(nil), DefaultMyDevices...),

		CarouselInterval: 5 * time.Second,

		ReportOutputDir: filepath.Join(dataDir, "reports"),
		WebPort:         8080,

		HistoryRetention: 30 * 24 * time.Hour,
	}
}

// LoadConfig loads configuration from .env, the config file and environment.
func LoadConfig(cfgFile string) (*Config, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(cfg.DataDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("NOCVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("data_dir", cfg.DataDir)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_file", cfg.LogFile)
	v.SetDefault("api_url", cfg.APIURL)
	v.SetDefault("api_token", cfg.APIToken)
	v.SetDefault("request_timeout", cfg.RequestTimeout)
	v.SetDefault("role", cfg.Role)
	v.SetDefault("period", cfg.Period)
	v.SetDefault("page_size", cfg.PageSize)
	v.SetDefault("roles_file", cfg.RolesFile)
	v.SetDefault("operator", cfg.Operator)
	v.SetDefault("my_devices", cfg.MyDevices)
	v.SetDefault("carousel_interval", cfg.CarouselInterval)
	v.SetDefault("report_output_dir", cfg.ReportOutputDir)
	v.SetDefault("web_port", cfg.WebPort)
	v.SetDefault("watch_roles", cfg.WatchRoles)
	v.SetDefault("history_retention", cfg.HistoryRetention)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := EnsureDir(cfg.DataDir); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for values the dashboard cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return fmt.Errorf("api_url must be set")
	}
	if c.PageSize <= 0 {
		c.PageSize = 10
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.CarouselInterval <= 0 {
		c.CarouselInterval = 5 * time.Second
	}
	return nil
}

// EnsureDir ensures a directory exists.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
