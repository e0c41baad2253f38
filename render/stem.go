package render

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-binaural/dsp/signal"
)

var (
	// ErrEmptyStem is returned for a stem without samples.
	ErrEmptyStem = errors.New("render: empty stem")
	// ErrLengthMismatch is returned when buffers that must align differ in length.
	ErrLengthMismatch = errors.New("render: length mismatch")
	// ErrChannels is returned for stems that are neither mono nor stereo.
	ErrChannels = errors.New("render: unsupported channel count")
	// ErrNoStems is returned when there is nothing to mix.
	ErrNoStems = errors.New("render: no stems")
)

// MonoPeak is the peak level of a stereo stem after mono reduction.
const MonoPeak = 0.5

// Stem is a named mono or stereo source.
type Stem struct {
	Name     string
	Channels [][]float64
}

// Mono returns a single-channel stem.
func Mono(name string, samples []float64) Stem {
	return Stem{Name: name, Channels: [][]float64{samples}}
}

// StereoStem returns a two-channel stem.
func StereoStem(name string, left, right []float64) Stem {
	return Stem{Name: name, Channels: [][]float64{left, right}}
}

// Len returns the number of samples per channel.
func (s Stem) Len() int {
	if len(s.Channels) == 0 {
		return 0
	}
	return len(s.Channels[0])
}

// Stereo is a binaural output buffer.
type Stereo struct {
	Left  []float64
	Right []float64
}

// Len returns the number of samples per channel.
func (s Stereo) Len() int {
	return len(s.Left)
}

// ToMono reduces stem to one channel. Mono stems pass through unchanged.
// Stereo stems are summed and normalized to a MonoPeak peak; silence stays
// silent.
func ToMono(stem Stem) ([]float64, error) {
	if stem.Len() == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmptyStem, stem.Name)
	}
	switch len(stem.Channels) {
	case 1:
		return stem.Channels[0], nil
	case 2:
		l, r := stem.Channels[0], stem.Channels[1]
		if len(l) != len(r) {
			return nil, fmt.Errorf("%w: stem %q channels %d and %d", ErrLengthMismatch, stem.Name, len(l), len(r))
		}
		sum := make([]float64, len(l))
		copy(sum, l)
		vecmath.AddBlockInPlace(sum, r)
		return signal.Normalize(sum, MonoPeak)
	default:
		return nil, fmt.Errorf("%w: stem %q has %d", ErrChannels, stem.Name, len(stem.Channels))
	}
}

// Mix returns the sum of stems scaled by volume. All stems must have the
// same length; nothing is padded or truncated.
func Mix(stems []Stereo, volume float64) (Stereo, error) {
	if len(stems) == 0 {
		return Stereo{}, ErrNoStems
	}
	n := stems[0].Len()
	for i, s := range stems {
		if len(s.Left) != n || len(s.Right) != n {
			return Stereo{}, fmt.Errorf("%w: stem %d has %d/%d samples, want %d",
				ErrLengthMismatch, i, len(s.Left), len(s.Right), n)
		}
	}

	out := Stereo{Left: make([]float64, n), Right: make([]float64, n)}
	for _, s := range stems {
		vecmath.AddBlockInPlace(out.Left, s.Left)
		vecmath.AddBlockInPlace(out.Right, s.Right)
	}
	vecmath.ScaleBlock(out.Left, out.Left, volume)
	vecmath.ScaleBlock(out.Right, out.Right, volume)
	return out, nil
}

// Energy returns the sum of squared samples over both channels.
func Energy(s Stereo) float64 {
	if len(s.Left) != len(s.Right) || len(s.Left) == 0 {
		var e float64
		for _, v := range s.Left {
			e += v * v
		}
		for _, v := range s.Right {
			e += v * v
		}
		return e
	}
	pow := make([]float64, len(s.Left))
	vecmath.Power(pow, s.Left, s.Right)
	var e float64
	for _, v := range pow {
		e += v
	}
	return e
}
