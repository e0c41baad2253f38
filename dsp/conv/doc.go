// Package conv provides FFT block convolution for filtering signals with
// long impulse responses.
//
// [OverlapAdd] splits the input into blocks, convolves each block with the
// kernel in the frequency domain and overlap-adds the results. The kernel
// spectrum is computed once, so one convolver can filter many signals:
//
//	oa, err := conv.NewOverlapAdd(hrirLeft, 4096)
//	y, err := oa.ProcessCausal(stem)
//
// ProcessCausal keeps the output aligned with the input: the result has
// exactly len(input) samples and the convolution tail is dropped. Process
// returns the full linear convolution.
package conv
