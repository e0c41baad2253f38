// Package resample changes the length of short buffers by Fourier-domain
// resampling.
//
// [Fourier] treats the input as one period of a band-limited periodic
// signal: it takes the DFT with algo-fft, truncates or zero-pads the spectrum to the
// new length and transforms back. It is used to stretch or compress measured
// head-related impulse responses to a listener's head size, where the
// buffers are a few hundred taps long and of arbitrary length.
//
// The Nyquist bin of an even-length spectrum is split or folded so that a
// round trip through an upsample and the matching downsample is exact.
package resample
