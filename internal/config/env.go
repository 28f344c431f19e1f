package config

import "github.com/kelseyhightower/envconfig"

// Env overrides win over files. Secrets in particular should come from
// the environment in deployments, not from checked-in config files.
type envOverrides struct {
	Port            int    `envconfig:"PORT"`
	PublicIP        string `envconfig:"PUBLIC_IP"`
	LogLevel        string `envconfig:"LOG_LEVEL"`
	JWTSecret       string `envconfig:"JWT_SECRET"`
	AdminCredential string `envconfig:"ADMIN_CREDENTIAL"`
	DataDir         string `envconfig:"DATA_DIR"`
}

func applyEnvOverrides(cfg *AppConfig) error {
	var env envOverrides
	if err := envconfig.Process("STREAM_RELAY", &env); err != nil {
		return err
	}

	if env.Port != 0 {
		cfg.Server.Port = env.Port
	}
	if env.PublicIP != "" {
		cfg.Server.PublicIP = env.PublicIP
	}
	if env.LogLevel != "" {
		cfg.Server.LogLevel = env.LogLevel
	}
	if env.JWTSecret != "" {
		cfg.Security.JWTSecret = &env.JWTSecret
	}
	if env.AdminCredential != "" {
		cfg.Security.AdminCredential = &env.AdminCredential
	}
	if env.DataDir != "" {
		cfg.Stream.DataDir = env.DataDir
	}

	return nil
}
