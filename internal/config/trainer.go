package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/iklasky/tactic-trainer/internal/hist"
)

// Trainer configures the terminal client. Every field has a working
// default, so the YAML file is optional and may be partial.
type Trainer struct {
	APIURL   string `yaml:"api_url"`
	Username string `yaml:"username"`
	MinElo   int    `yaml:"min_elo"`
	MaxElo   int    `yaml:"max_elo"`
	ViewMode string `yaml:"view_mode"`
}

// DefaultTrainer returns the trainer defaults: local API, whole rating
// window, count view.
func DefaultTrainer() Trainer {
	return Trainer{
		APIURL:   "http://localhost:8080",
		MinElo:   0,
		MaxElo:   3000,
		ViewMode: hist.ModeCount.String(),
	}
}

// LoadTrainer reads the YAML file at path over the defaults. An empty
// path or a missing file yields the defaults; unknown YAML keys are an
// error.
func LoadTrainer(path string) (Trainer, error) {
	cfg := DefaultTrainer()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Trainer{}, fmt.Errorf("read trainer config: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Trainer{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return Trainer{}, fmt.Errorf("parse %s: multiple YAML documents are not supported", filepath.Base(path))
		}
		return Trainer{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	if err := cfg.validate(); err != nil {
		return Trainer{}, fmt.Errorf("trainer config: %w", err)
	}
	return cfg, nil
}

func (t Trainer) validate() error {
	if t.APIURL == "" {
		return fmt.Errorf("api_url is required")
	}
	if t.MinElo < 0 || t.MaxElo < t.MinElo {
		return fmt.Errorf("invalid rating window %d-%d", t.MinElo, t.MaxElo)
	}
	if _, err := hist.ParseViewMode(t.ViewMode); err != nil {
		return err
	}
	return nil
}
