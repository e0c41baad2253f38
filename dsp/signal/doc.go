// Package signal generates the test stimuli played during calibration.
//
// A [Generator] carries the processing sample rate and a noise seed:
//
//	g := signal.NewGeneratorWithOptions(
//		[]core.ProcessorOption{core.WithSampleRate(48000)},
//		signal.WithSeed(7),
//	)
//	sweep, err := g.SweptSine(1.5)
//
// [Normalize] rescales a buffer to a target peak and is shared with the
// renderer's stereo-to-mono reduction.
package signal
