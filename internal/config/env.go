// Package config loads daemon configuration from the environment and
// the trainer's optional YAML file.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Env is the shared daemon configuration, read from TT_* environment
// variables. Command-line flags in each main override these values.
type Env struct {
	Addr         string        `env:"TT_ADDR" envDefault:":8080"`
	DBPath       string        `env:"TT_DB" envDefault:"trainer.db"`
	LogLevel     string        `env:"TT_LOG_LEVEL" envDefault:"info"`
	Stockfish    string        `env:"TT_STOCKFISH" envDefault:"stockfish"`
	Depth        int           `env:"TT_DEPTH" envDefault:"20"`
	HashMB       int           `env:"TT_HASH_MB" envDefault:"256"`
	EngineNice   int           `env:"TT_ENGINE_NICE" envDefault:"10"`
	Workers      int           `env:"TT_WORKERS" envDefault:"2"`
	QueueSize    int           `env:"TT_QUEUE_SIZE" envDefault:"1000"`
	SpoolDir     string        `env:"TT_SPOOL_DIR"`
	PollInterval time.Duration `env:"TT_POLL_INTERVAL" envDefault:"10s"`
}

// ParseEnv loads Env from the process environment.
func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}
