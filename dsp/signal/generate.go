package signal

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/algo-binaural/dsp/core"
)

// Stimulus defaults.
const (
	// SweepStartHz is the start frequency of the calibration sweep.
	SweepStartHz = 500.0
	// SweepEndHz is the end frequency of the calibration sweep.
	SweepEndHz = 4000.0
	// SweepAmplitude is the peak level of the calibration sweep.
	SweepAmplitude = 0.05
	// NoiseSigma is the standard deviation of generated white noise.
	NoiseSigma = 0.5
	// DefaultDuration is the stimulus length in seconds.
	DefaultDuration = 1.5
)

// ErrInvalidDuration is returned when a stimulus would have no samples.
var ErrInvalidDuration = errors.New("signal: invalid duration")

// Generator creates deterministic signals from a shared configuration.
type Generator struct {
	cfg  core.ProcessorConfig
	seed int64
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed sets deterministic random seed for noise generation.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// NewGenerator creates a configured signal generator.
func NewGenerator(opts ...core.ProcessorOption) *Generator {
	return NewGeneratorWithOptions(opts)
}

// NewGeneratorWithOptions creates a configured signal generator with signal-specific options.
func NewGeneratorWithOptions(coreOpts []core.ProcessorOption, opts ...Option) *Generator {
	g := &Generator{
		cfg:  core.ApplyProcessorOptions(coreOpts...),
		seed: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Config returns the generator processor configuration.
func (g *Generator) Config() core.ProcessorConfig {
	return g.cfg
}

// Samples returns the number of samples covering duration seconds.
func (g *Generator) Samples(duration float64) int {
	return int(g.cfg.SampleRate * duration)
}

// Sine generates a sine wave.
func (g *Generator) Sine(freqHz, amplitude float64, samples int) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("signal: sine samples must be > 0: %d", samples)
	}
	out := make([]float64, samples)
	step := 2 * math.Pi * freqHz / g.cfg.SampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out, nil
}

// SweptSine generates the calibration sweep: a linear-frequency chirp from
// SweepStartHz to SweepEndHz with cosine phase and SweepAmplitude peak. The
// time axis spans [0, duration] including both endpoints.
func (g *Generator) SweptSine(duration float64) ([]float64, error) {
	n := g.Samples(duration)
	if n <= 0 {
		return nil, fmt.Errorf("%w: %g s at %g Hz", ErrInvalidDuration, duration, g.cfg.SampleRate)
	}
	t := core.Linspace(0, duration, n)
	k := (SweepEndHz - SweepStartHz) / duration

	out := make([]float64, n)
	for i, ti := range t {
		phase := 2 * math.Pi * (SweepStartHz*ti + 0.5*k*ti*ti)
		out[i] = SweepAmplitude * math.Cos(phase)
	}
	return out, nil
}

// WhiteNoise generates zero-mean Gaussian noise with standard deviation
// NoiseSigma. The same seed always yields the same buffer.
func (g *Generator) WhiteNoise(duration float64) ([]float64, error) {
	n := g.Samples(duration)
	if n <= 0 {
		return nil, fmt.Errorf("%w: %g s at %g Hz", ErrInvalidDuration, duration, g.cfg.SampleRate)
	}
	out := make([]float64, n)
	rng := rand.New(rand.NewSource(g.seed))
	for i := range out {
		out[i] = rng.NormFloat64() * NoiseSigma
	}
	return out, nil
}

// Normalize scales data to target peak amplitude and returns a new slice.
// All-zero input stays zero.
func Normalize(data []float64, targetPeak float64) ([]float64, error) {
	if targetPeak < 0 {
		return nil, fmt.Errorf("signal: normalize target peak must be >= 0: %f", targetPeak)
	}
	if len(data) == 0 {
		return nil, errors.New("signal: normalize input must not be empty")
	}

	maxAbs := core.PeakAbs(data)
	out := make([]float64, len(data))
	if maxAbs == 0 || targetPeak == 0 {
		return out, nil
	}

	scale := targetPeak / maxAbs
	for i, v := range data {
		out[i] = v * scale
	}
	return out, nil
}
