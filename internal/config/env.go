package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds process-level settings read from ALEMBIC_* variables.
type Env struct {
	Store        string `env:"ALEMBIC_STORE" envDefault:"sqlite"`
	DBPath       string `env:"ALEMBIC_DB_PATH" envDefault:"alembic.db"`
	ArtifactsDir string `env:"ALEMBIC_ARTIFACTS_DIR" envDefault:"artifacts"`
	LogLevel     string `env:"ALEMBIC_LOG_LEVEL" envDefault:"info"`
	LogFormat    string `env:"ALEMBIC_LOG_FORMAT" envDefault:"auto"`
	MetricsAddr  string `env:"ALEMBIC_METRICS_ADDR"`
}

// LoadEnv parses the process environment.
func LoadEnv() (Env, error) {
	return parseEnv(env.Options{})
}

// LoadEnvFrom parses the given variables instead of the process environment.
func LoadEnvFrom(environ map[string]string) (Env, error) {
	return parseEnv(env.Options{Environment: environ})
}

func parseEnv(opts env.Options) (Env, error) {
	var cfg Env
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	switch cfg.Store {
	case "memory", "sqlite":
	default:
		return Env{}, fmt.Errorf("ALEMBIC_STORE: unsupported store %q", cfg.Store)
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return Env{}, fmt.Errorf("ALEMBIC_LOG_LEVEL: %w", err)
	}
	switch cfg.LogFormat {
	case FormatAuto, FormatText, FormatJSON:
	default:
		return Env{}, fmt.Errorf("ALEMBIC_LOG_FORMAT: unsupported format %q", cfg.LogFormat)
	}
	return cfg, nil
}
