// Package config loads hrtfcal settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/cwbudde/algo-binaural/internal/wavio"
)

// Config holds process-wide settings. Command-line flags override them.
type Config struct {
	CatalogDir  string   `env:"HRTFCAL_CATALOG_DIR"  envDefault:"hrir"`
	ProfileDir  string   `env:"HRTFCAL_PROFILE_DIR"  envDefault:"profiles"`
	ProfilePath string   `env:"HRTFCAL_PROFILE"      envDefault:"profiles/default.json"`
	Subjects    []string `env:"HRTFCAL_SUBJECTS"     envDefault:"003,019" envSeparator:","`
	SampleRate  int      `env:"HRTFCAL_SAMPLE_RATE"  envDefault:"48000"`
	Trials      int      `env:"HRTFCAL_TRIALS"       envDefault:"4"`
	Stimulus    string   `env:"HRTFCAL_STIMULUS"     envDefault:"sweep"`
	Estimator   string   `env:"HRTFCAL_ESTIMATOR"    envDefault:"regression"`
	Seed        int64    `env:"HRTFCAL_SEED"`

	Player     string `env:"HRTFCAL_PLAYER"      envDefault:"ffplay -nodisp -autoexit -loglevel quiet"`
	PreviewDir string `env:"HRTFCAL_PREVIEW_DIR"`

	JournalPath string `env:"HRTFCAL_JOURNAL"`

	RenderWorkers   int     `env:"HRTFCAL_RENDER_WORKERS"    envDefault:"4"`
	RenderBlockSize int     `env:"HRTFCAL_RENDER_BLOCK_SIZE" envDefault:"4096"`
	Volume          float64 `env:"HRTFCAL_VOLUME"            envDefault:"1"`
	OutputBitDepth  int     `env:"HRTFCAL_OUTPUT_BIT_DEPTH"  envDefault:"24"`

	MQTTBroker   string `env:"HRTFCAL_MQTT_BROKER"`
	MQTTTopic    string `env:"HRTFCAL_MQTT_TOPIC"     envDefault:"hrtfcal/commands"`
	MQTTClientID string `env:"HRTFCAL_MQTT_CLIENT_ID" envDefault:"hrtfcal"`

	OTelEndpoint string `env:"HRTFCAL_OTEL_ENDPOINT"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
}

// Stimulus kinds.
const (
	StimulusSweep = "sweep"
	StimulusNoise = "noise"
)

// Estimator names.
const (
	EstimatorRegression = "regression"
	EstimatorSHM        = "shm"
)

// Load reads the given .env files, ".env" when none are named, into the
// environment without overriding variables already set, then parses
// Config. Missing .env files are not an error.
func Load(dotenv ...string) (Config, error) {
	if len(dotenv) == 0 {
		dotenv = []string{".env"}
	}
	for _, path := range dotenv {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	var errs []error
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample rate must be > 0: %d", c.SampleRate))
	}
	if c.Trials <= 0 {
		errs = append(errs, fmt.Errorf("trials must be > 0: %d", c.Trials))
	}
	if !slices.Contains([]string{StimulusSweep, StimulusNoise}, c.Stimulus) {
		errs = append(errs, fmt.Errorf("unknown stimulus %q", c.Stimulus))
	}
	if !slices.Contains([]string{EstimatorRegression, EstimatorSHM}, c.Estimator) {
		errs = append(errs, fmt.Errorf("unknown estimator %q", c.Estimator))
	}
	if c.Volume < 0 {
		errs = append(errs, fmt.Errorf("volume must be >= 0: %g", c.Volume))
	}
	if c.RenderWorkers <= 0 {
		errs = append(errs, fmt.Errorf("render workers must be > 0: %d", c.RenderWorkers))
	}
	if !slices.Contains(wavio.BitDepths, c.OutputBitDepth) {
		errs = append(errs, fmt.Errorf("output bit depth must be one of %v: %d", wavio.BitDepths, c.OutputBitDepth))
	}
	if c.RenderBlockSize <= 0 {
		errs = append(errs, fmt.Errorf("render block size must be > 0: %d", c.RenderBlockSize))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
