package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

const envNamespace = "TASKFLOW"

// Env carries secrets and deployment overrides that should not live in the config file
type Env struct {
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	JWTSecret       string `envconfig:"JWT_SECRET"`
	VAPIDPublicKey  string `envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `envconfig:"VAPID_PRIVATE_KEY"`
	HTTPAddr        string `envconfig:"HTTP_ADDR"`
}

// LoadEnv reads the TASKFLOW_ prefixed environment variables
func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(envNamespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

// applyEnv overwrites config fields with any environment value that is set
func applyEnv(cfg *Config) error {
	env, err := LoadEnv()
	if err != nil {
		return err
	}

	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&cfg.DatabaseURL, env.DatabaseURL)
	override(&cfg.JWTSecret, env.JWTSecret)
	override(&cfg.Push.VAPIDPublicKey, env.VAPIDPublicKey)
	override(&cfg.Push.VAPIDPrivateKey, env.VAPIDPrivateKey)
	override(&cfg.HTTPAddr, env.HTTPAddr)
	return nil
}
