package fir

import (
	"errors"

	"github.com/cwbudde/algo-binaural/dsp/conv"
	"github.com/cwbudde/algo-binaural/dsp/core"
)

// ErrEmptyCoefficients is returned when a filter has no taps.
var ErrEmptyCoefficients = errors.New("fir: empty coefficients")

// DirectMaxTaps is the longest impulse response Apply runs through the
// streaming Filter. Longer responses use FFT block convolution.
const DirectMaxTaps = 63

// Filter implements a direct-form FIR filter using a circular-buffer delay line.
type Filter struct {
	coeffs []float64
	delay  []float64
	pos    int
}

// New creates a FIR filter from the given coefficient slice.
// The coefficients are copied.
func New(coeffs []float64) *Filter {
	c := make([]float64, len(coeffs))
	copy(c, coeffs)
	return &Filter{
		coeffs: c,
		delay:  make([]float64, len(coeffs)),
	}
}

// ProcessSample filters one input sample.
//
//	y[n] = sum_{k=0}^{N-1} h[k] * x[n-k]
func (f *Filter) ProcessSample(x float64) float64 {
	n := len(f.coeffs)
	if n == 0 {
		return 0
	}
	f.delay[f.pos] = x
	var y float64
	p := f.pos
	for k := range n {
		y += f.coeffs[k] * f.delay[p]
		p--
		if p < 0 {
			p = n - 1
		}
	}
	f.pos++
	if f.pos >= n {
		f.pos = 0
	}
	return y
}

// ProcessBlockTo filters src into dst. Both slices must have the same length.
func (f *Filter) ProcessBlockTo(dst, src []float64) {
	if len(src) == 0 {
		return
	}
	_ = dst[len(src)-1]
	for i, x := range src {
		dst[i] = f.ProcessSample(x)
	}
}

// Reset clears the delay line to zero.
func (f *Filter) Reset() {
	for i := range f.delay {
		f.delay[i] = 0
	}
	f.pos = 0
}

// Len returns the number of taps.
func (f *Filter) Len() int {
	return len(f.coeffs)
}

// Apply filters x with coeffs and returns a new slice of len(x) samples.
// The filter starts from a zeroed delay line, so the result equals the first
// len(x) samples of the full linear convolution. Responses longer than
// DirectMaxTaps are convolved in blocks of core.ProcessorConfig.BlockSize
// samples.
func Apply(coeffs, x []float64, opts ...core.ProcessorOption) ([]float64, error) {
	if len(coeffs) == 0 {
		return nil, ErrEmptyCoefficients
	}
	if len(x) == 0 {
		return []float64{}, nil
	}

	if len(coeffs) <= DirectMaxTaps {
		out := make([]float64, len(x))
		New(coeffs).ProcessBlockTo(out, x)
		return out, nil
	}

	cfg := core.ApplyProcessorOptions(opts...)
	oa, err := conv.NewOverlapAdd(coeffs, cfg.BlockSize)
	if err != nil {
		return nil, err
	}
	return oa.ProcessCausal(x)
}

// ApplyStereo filters one mono signal with a left and a right impulse
// response and returns the two ear signals.
func ApplyStereo(left, right, x []float64, opts ...core.ProcessorOption) ([]float64, []float64, error) {
	outL, err := Apply(left, x, opts...)
	if err != nil {
		return nil, nil, err
	}
	outR, err := Apply(right, x, opts...)
	if err != nil {
		return nil, nil, err
	}
	return outL, outR, nil
}
