package resample

import (
	"errors"
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
)

var (
	// ErrEmptyInput is returned for a zero-length input.
	ErrEmptyInput = errors.New("resample: empty input")
	// ErrInvalidLength is returned when the target length is not positive.
	ErrInvalidLength = errors.New("resample: invalid target length")
)

// Fourier resamples x to n samples using the DFT method.
//
// The result is irfft(Y, n) * n/len(x), where Y holds the first min(n, len(x))/2+1
// bins of the DFT of x. When the shorter length is even, its Nyquist bin is
// doubled on downsampling and halved on upsampling. n == len(x) returns a
// copy of x.
func Fourier(x []float64, n int) ([]float64, error) {
	if len(x) == 0 {
		return nil, ErrEmptyInput
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, n)
	}
	nx := len(x)
	if n == nx {
		out := make([]float64, n)
		copy(out, x)
		return out, nil
	}

	fwd, err := algofft.NewPlan64(nx)
	if err != nil {
		return nil, fmt.Errorf("resample: failed to create FFT plan: %w", err)
	}
	spec := make([]complex128, nx)
	for i, v := range x {
		spec[i] = complex(v, 0)
	}
	if err := fwd.Forward(spec, spec); err != nil {
		return nil, fmt.Errorf("resample: forward FFT failed: %w", err)
	}

	m := min(n, nx)
	bins := m/2 + 1
	if m%2 == 0 {
		if n < nx {
			spec[m/2] *= 2
		} else {
			spec[m/2] *= 0.5
		}
	}

	inv, err := algofft.NewPlan64(n)
	if err != nil {
		return nil, fmt.Errorf("resample: failed to create FFT plan: %w", err)
	}
	full := hermitian(spec[:bins], n)
	if err := inv.Inverse(full, full); err != nil {
		return nil, fmt.Errorf("resample: inverse FFT failed: %w", err)
	}

	out := make([]float64, n)
	scale := float64(n) / float64(nx)
	for i := range out {
		out[i] = real(full[i]) * scale
	}
	return out, nil
}

// hermitian expands the half spectrum half into a length-n conjugate
// symmetric spectrum. Bins beyond n/2 are ignored, missing bins are zero and
// the imaginary parts of the DC bin and, for even n, the Nyquist bin are
// dropped.
func hermitian(half []complex128, n int) []complex128 {
	full := make([]complex128, n)
	full[0] = complex(real(half[0]), 0)
	for k := 1; k < len(half) && k <= n/2; k++ {
		if n%2 == 0 && k == n/2 {
			full[k] = complex(real(half[k]), 0)
			continue
		}
		full[k] = half[k]
		full[n-k] = complex(real(half[k]), -imag(half[k]))
	}
	return full
}
