package env

import (
	"colorgame_backend/internal/config"
	"os"
)

const (
	serviceNameEnvName = "SERVICE_NAME"
	logEnvEnvName      = "LOG_ENV"
)

type logConfig struct {
	serviceName string
	env         string
}

func NewLogConfig() config.LogConfig {
	cfg := &logConfig{
		serviceName: os.Getenv(serviceNameEnvName),
		env:         os.Getenv(logEnvEnvName),
	}
	if cfg.serviceName == "" {
		cfg.serviceName = "color-game"
	}
	if cfg.env == "" {
		cfg.env = "local"
	}
	return cfg
}

func (cfg *logConfig) ServiceName() string {
	return cfg.serviceName
}

func (cfg *logConfig) Env() string {
	return cfg.env
}
