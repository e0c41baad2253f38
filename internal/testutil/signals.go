package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// DeterministicNoise generates uniform white noise in [-amplitude, amplitude]
// with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// Impulse generates a unit impulse at the given position.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}
	return out
}

// DecayingIR returns a deterministic impulse-response-like kernel: noise
// under an exponential envelope, starting after delay samples.
func DecayingIR(seed int64, length, delay int) []float64 {
	out := DeterministicNoise(seed, 1, length)
	for i := range out {
		if i < delay {
			out[i] = 0
			continue
		}
		out[i] *= math.Exp(-float64(i-delay) / 12)
	}
	return out
}

// Energy returns the sum of squares of buf.
func Energy(buf []float64) float64 {
	var e float64
	for _, v := range buf {
		e += v * v
	}
	return e
}
