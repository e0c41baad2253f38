package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-binaural/dsp/core"
	"github.com/cwbudde/algo-binaural/dsp/filter/fir"
	"github.com/cwbudde/algo-binaural/dsp/resample"
	"github.com/cwbudde/algo-binaural/hrir"
	"github.com/cwbudde/algo-binaural/profile"
)

// SnapWarnDegrees is the snapping distance above which a warning is logged.
const SnapWarnDegrees = 10.0

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the renderer logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithProcessorOptions applies shared processing settings. Workers bounds
// the number of stems filtered concurrently by RenderStems; BlockSize is the
// FFT block length used for long impulse responses.
func WithProcessorOptions(opts ...core.ProcessorOption) Option {
	return func(r *Renderer) {
		r.cfg = core.ApplyProcessorOptions(opts...)
	}
}

// WithProgress registers a callback invoked once per finished stem, from
// the worker that rendered it.
func WithProgress(fn func(stem string, err error)) Option {
	return func(r *Renderer) {
		r.progress = fn
	}
}

// Renderer applies HRIRs from a catalog. It holds no per-listener state;
// the profile is passed on every call.
type Renderer struct {
	source   hrir.Source
	cfg      core.ProcessorConfig
	logger   *slog.Logger
	progress func(string, error)
}

// NewRenderer returns a renderer reading impulse responses from source.
func NewRenderer(source hrir.Source, opts ...Option) *Renderer {
	r := &Renderer{
		source: source,
		cfg:    core.DefaultProcessorConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// ScaleIR resamples ir to int(len(ir)*scale) taps. A scale of exactly 1
// returns ir unchanged.
func ScaleIR(ir []float64, scale float64) ([]float64, error) {
	if scale == 1 {
		return ir, nil
	}
	if !(scale > 0) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("render: invalid ir scale %g", scale)
	}
	n := max(int(float64(len(ir))*scale), 1)
	return resample.Fourier(ir, n)
}

// Apply places stem at azimuth for the listener described by p.
//
// The azimuth is snapped to the catalog of p.HRTFSubject, the impulse
// responses are scaled to p.EffectiveRadius, and the mono-reduced stem is
// filtered once per ear. The output has the stem's length.
func (r *Renderer) Apply(stem Stem, azimuth float64, p *profile.Profile) (Stereo, error) {
	mono, err := ToMono(stem)
	if err != nil {
		return Stereo{}, err
	}

	snapped, ok := r.source.Snap(p.HRTFSubject, azimuth)
	if !ok {
		return Stereo{}, &hrir.LookupError{Subject: p.HRTFSubject, Azimuth: int(math.Round(azimuth)), Err: hrir.ErrMissingHRIR}
	}
	if d := math.Abs(snapped - azimuth); d > SnapWarnDegrees {
		r.logger.Warn("stem direction snapped far from request",
			"stem", stem.Name, "requested", azimuth, "azimuth", snapped, "error_deg", d)
	}

	set, err := r.source.Load(p.HRTFSubject, int(snapped))
	if err != nil {
		return Stereo{}, err
	}
	left, err := ScaleIR(set.Left, p.Scale())
	if err != nil {
		return Stereo{}, err
	}
	right, err := ScaleIR(set.Right, p.Scale())
	if err != nil {
		return Stereo{}, err
	}

	outL, outR, err := fir.ApplyStereo(left, right, mono, core.WithBlockSize(r.cfg.BlockSize))
	if err != nil {
		return Stereo{}, fmt.Errorf("render: filter %q: %w", stem.Name, err)
	}
	r.logger.Debug("stem rendered", "stem", stem.Name, "azimuth", snapped,
		"subject", p.HRTFSubject, "taps", len(left), "samples", len(mono))
	return Stereo{Left: outL, Right: outR}, nil
}

// RenderStems applies every stem at its direction in p and mixes the
// results at volume. Stems are filtered on up to Workers goroutines; each
// stem is complete before mixing starts. A stem whose impulse responses
// cannot be loaded is skipped and logged. Other failures abort the call.
func (r *Renderer) RenderStems(ctx context.Context, stems []Stem, p *profile.Profile, volume float64) (Stereo, error) {
	if len(stems) == 0 {
		return Stereo{}, ErrNoStems
	}

	results := make([]*Stereo, len(stems))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.cfg.Workers, 1))
	for i, stem := range stems {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := r.Apply(stem, p.Direction(stem.Name), p)
			if r.progress != nil {
				mu.Lock()
				r.progress(stem.Name, err)
				mu.Unlock()
			}
			var lerr *hrir.LookupError
			switch {
			case errors.As(err, &lerr):
				r.logger.Warn("stem skipped", "stem", stem.Name, "error", err)
				return nil
			case err != nil:
				return err
			}
			results[i] = &out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stereo{}, err
	}

	rendered := make([]Stereo, 0, len(results))
	for _, res := range results {
		if res != nil {
			rendered = append(rendered, *res)
		}
	}
	if len(rendered) == 0 {
		return Stereo{}, fmt.Errorf("%w: every stem failed to render", ErrNoStems)
	}
	return Mix(rendered, volume)
}
