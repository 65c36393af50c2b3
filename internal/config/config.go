package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// PushConfig holds the VAPID identity used for web push
type PushConfig struct {
	VAPIDPublicKey  string `yaml:"vapidPublicKey,omitempty"`
	VAPIDPrivateKey string `yaml:"vapidPrivateKey,omitempty"`
	Subscriber      string `yaml:"subscriber,omitempty"`
	Concurrency     int    `yaml:"concurrency,omitempty" validate:"omitempty,min=1,max=64"`
	TTLSeconds      int    `yaml:"ttlSeconds,omitempty" validate:"omitempty,min=0"`
}

// Enabled reports whether both VAPID keys are present
func (p PushConfig) Enabled() bool {
	return p.VAPIDPublicKey != "" && p.VAPIDPrivateKey != ""
}

// GmailConfig controls transactional email
type GmailConfig struct {
	Enabled bool   `yaml:"enabled"`
	Sender  string `yaml:"sender,omitempty" validate:"omitempty,email"`
}

// RosterConfig points at the spreadsheets used for roster import and event reports
type RosterConfig struct {
	SheetID       string `yaml:"sheetID,omitempty"`
	Tab           string `yaml:"tab,omitempty"`
	ReportSheetID string `yaml:"reportSheetID,omitempty"`
	ReportTab     string `yaml:"reportTab,omitempty"`
}

// Config represents the application configuration
type Config struct {
	Storage        string        `yaml:"storage" validate:"required,oneof=postgres memory"`
	DatabaseURL    string        `yaml:"databaseURL,omitempty" validate:"required_if=Storage postgres"`
	HTTPAddr       string        `yaml:"httpAddr" validate:"required"`
	AllowedOrigins []string      `yaml:"allowedOrigins,omitempty" validate:"dive,url"`
	PublicURL      string        `yaml:"publicURL" validate:"required,url"`
	JWTSecret      string        `yaml:"jwtSecret,omitempty" validate:"required,min=32"`
	SessionTTL     time.Duration `yaml:"sessionTTL" validate:"required,gt=0"`
	ResetTokenTTL  time.Duration `yaml:"resetTokenTTL" validate:"required,gt=0"`
	Push           PushConfig    `yaml:"push"`
	Gmail          GmailConfig   `yaml:"gmail"`
	Roster         RosterConfig  `yaml:"roster"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// LoadWithEnv loads and validates the configuration for an environment.
// For example, env="dev" looks for "taskflow_config.dev.yaml".
// Environment variables prefixed TASKFLOW_ override file values.
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the values used when the file leaves a field unset
func Default() *Config {
	return &Config{
		Storage:       StoragePostgres,
		HTTPAddr:      ":8080",
		PublicURL:     "http://localhost:8080",
		SessionTTL:    24 * time.Hour,
		ResetTokenTTL: time.Hour,
		Push: PushConfig{
			Concurrency: 8,
			TTLSeconds:  3600,
		},
	}
}

// Validate validates the configuration struct
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if (cfg.Push.VAPIDPublicKey == "") != (cfg.Push.VAPIDPrivateKey == "") {
		return fmt.Errorf("config validation failed: push needs both VAPID keys or neither")
	}

	if cfg.Roster.ReportSheetID != "" && cfg.Roster.ReportTab == "" {
		return fmt.Errorf("config validation failed: roster.reportTab is required with roster.reportSheetID")
	}

	return nil
}

// findConfigFile searches for the config file in current directory and home directory
func findConfigFile(env string) (string, error) {
	configFileName := "taskflow_config.yaml"
	if env != "" {
		configFileName = "taskflow_config." + env + ".yaml"
	}

	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", configFileName)
}
