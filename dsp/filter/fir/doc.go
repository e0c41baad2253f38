// Package fir provides the FIR filter runtime used to apply head-related
// impulse responses.
//
// A [Filter] applies a fixed coefficient set to a stream one sample at a time
// with a circular-buffer delay line. [Apply] filters a complete buffer and
// returns exactly len(x) samples, the output of a causal filter starting
// from silence. Short responses run through a Filter; longer ones switch to
// FFT block convolution (dsp/conv) with the block size taken from
// core.WithBlockSize.
package fir
