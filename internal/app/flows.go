package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/cwbudde/algo-binaural/calibration"
	"github.com/cwbudde/algo-binaural/dsp/core"
	"github.com/cwbudde/algo-binaural/dsp/signal"
	"github.com/cwbudde/algo-binaural/estimate"
	"github.com/cwbudde/algo-binaural/internal/journal"
	"github.com/cwbudde/algo-binaural/internal/wavio"
	"github.com/cwbudde/algo-binaural/profile"
	"github.com/cwbudde/algo-binaural/render"
)

// ErrNoInputStems is returned by Render when the input directory holds none
// of the known stem files.
var ErrNoInputStems = errors.New("app: no stem files found")

// CalibrationResult is the outcome of a completed calibration.
type CalibrationResult struct {
	Profile        *profile.Profile
	Classification estimate.Classification
	Session        *calibration.Session
	// JournalID is the journal session id, 0 when journaling is off.
	JournalID int64
}

// Calibrate runs a calibration session over the configured subjects and
// saves the resulting profile to profilePath. An aborted session leaves the
// stored profile untouched and returns an error wrapping
// calibration.ErrAborted.
func (a *App) Calibrate(ctx context.Context, commands calibration.Commands, sink calibration.Sink, profilePath string) (*CalibrationResult, error) {
	ctx, span := a.tracer.Start(ctx, "calibrate")
	defer span.End()
	span.SetAttributes(
		attribute.StringSlice("hrtfcal.subjects", a.cfg.Subjects),
		attribute.String("hrtfcal.stimulus", a.cfg.Stimulus),
		attribute.String("hrtfcal.estimator", a.cfg.Estimator),
	)

	stimulus, err := a.Stimulus()
	if err != nil {
		return nil, spanError(span, fmt.Errorf("app: stimulus: %w", err))
	}

	opts := []calibration.Option{
		calibration.WithSampleRate(a.cfg.SampleRate),
		calibration.WithTrialCount(a.cfg.Trials),
		calibration.WithRand(a.rand()),
		calibration.WithLogger(a.logger),
	}

	var (
		jr        *journal.Store
		journalID int64
	)
	if a.cfg.JournalPath != "" {
		jr, err = journal.Open(a.cfg.JournalPath)
		if err != nil {
			return nil, spanError(span, err)
		}
		defer jr.Close()
		journalID, err = jr.BeginSession(ctx, a.cfg.Subjects, a.now())
		if err != nil {
			return nil, spanError(span, err)
		}
		opts = append(opts, calibration.WithObserver(jr.Observer(ctx, journalID, a.logger)))
		span.SetAttributes(attribute.Int64("hrtfcal.journal_session", journalID))
	}

	ctrl, err := calibration.NewController(a.catalog, sink, commands, stimulus, opts...)
	if err != nil {
		return nil, spanError(span, err)
	}

	session, err := ctrl.Run(ctx, a.cfg.Subjects)
	if err != nil {
		span.SetStatus(codes.Error, "calibration aborted")
		if jr != nil {
			// The session context may already be cancelled.
			if ferr := jr.FinishSession(context.WithoutCancel(ctx), journalID, journal.SessionAborted, ""); ferr != nil {
				a.logger.Warn("journal finish failed", "session", journalID, "error", ferr)
			}
		}
		return nil, spanError(span, err)
	}
	span.SetAttributes(attribute.Int("hrtfcal.trials", session.Len()))

	c := a.classify(ctx, session)
	p := profile.FromCalibration(c, session, a.now())
	if err := a.store.Save(p, profilePath); err != nil {
		return nil, spanError(span, err)
	}
	if jr != nil {
		if err := jr.FinishSession(ctx, journalID, journal.SessionCompleted, profilePath); err != nil {
			a.logger.Warn("journal finish failed", "session", journalID, "error", err)
		}
	}

	a.logger.Info("calibration finished", "path", profilePath, "hrtf_subject", p.HRTFSubject,
		"reference", p.ReferenceLabel(), "effective_radius", p.EffectiveRadius)
	return &CalibrationResult{Profile: p, Classification: c, Session: session, JournalID: journalID}, nil
}

func (a *App) classify(ctx context.Context, session *calibration.Session) estimate.Classification {
	_, span := a.tracer.Start(ctx, "estimate")
	defer span.End()

	c := estimate.Classify(session, a.Estimator(), estimate.WithLogger(a.logger))
	span.SetAttributes(
		attribute.String("hrtfcal.hrtf_subject", c.Reference.Subject),
		attribute.Float64("hrtfcal.head_width", c.Estimate.Params.Width),
		attribute.Float64("hrtfcal.head_length", c.Estimate.Params.Length),
		attribute.Float64("hrtfcal.mean_deviation", c.Estimate.MeanDeviation),
		attribute.Bool("hrtfcal.fallback", c.Fallback),
	)
	if c.Estimate.HighDeviation {
		a.logger.Warn("localization error is high, consider recalibrating",
			"subject", c.Subject, "mean_deviation", c.Estimate.MeanDeviation)
	}
	return c
}

// LoadStems reads "<name>.wav" for every known stem name in dir. Missing
// files are skipped; the sample rate of the first stem found is returned.
func LoadStems(dir string) ([]render.Stem, int, error) {
	var (
		stems []render.Stem
		rate  int
	)
	for _, name := range profile.StemNames {
		path := filepath.Join(dir, name+".wav")
		a, err := wavio.Read(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		if rate == 0 {
			rate = a.SampleRate
		} else if a.SampleRate != rate {
			return nil, 0, fmt.Errorf("app: %s: sample rate %d differs from %d", path, a.SampleRate, rate)
		}
		stems = append(stems, render.Stem{Name: name, Channels: a.Channels})
	}
	if len(stems) == 0 {
		return nil, 0, fmt.Errorf("%w in %s", ErrNoInputStems, dir)
	}
	return stems, rate, nil
}

// Render spatializes the stems in inDir with the profile at profilePath and
// writes the stereo mix to outPath. progress, if non-nil, is called once per
// stem as it finishes.
func (a *App) Render(ctx context.Context, profilePath, inDir, outPath string, progress func(stem string, err error)) (render.Stereo, error) {
	ctx, span := a.tracer.Start(ctx, "render")
	defer span.End()

	p := a.store.Load(profilePath)
	stems, rate, err := LoadStems(inDir)
	if err != nil {
		return render.Stereo{}, spanError(span, err)
	}
	span.SetAttributes(
		attribute.Int("hrtfcal.stems", len(stems)),
		attribute.String("hrtfcal.hrtf_subject", p.HRTFSubject),
		attribute.Float64("hrtfcal.volume", a.cfg.Volume),
	)

	r := render.NewRenderer(a.catalog,
		render.WithLogger(a.logger),
		render.WithProcessorOptions(
			core.WithSampleRate(float64(rate)),
			core.WithWorkers(a.cfg.RenderWorkers),
			core.WithBlockSize(a.cfg.RenderBlockSize),
		),
		render.WithProgress(progress),
	)
	mix, err := r.RenderStems(ctx, stems, p, a.cfg.Volume)
	if err != nil {
		return render.Stereo{}, spanError(span, err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return render.Stereo{}, spanError(span, fmt.Errorf("app: %w", err))
	}
	if n := wavio.Clipped(mix.Left, mix.Right); n > 0 {
		a.logger.Warn("mix exceeds full scale and will be clipped, lower the volume",
			"samples", n, "volume", a.cfg.Volume)
		span.SetAttributes(attribute.Int("hrtfcal.clipped_samples", n))
	}
	if err := wavio.WriteDepth(outPath, rate, a.cfg.OutputBitDepth, mix.Left, mix.Right); err != nil {
		return render.Stereo{}, spanError(span, err)
	}
	a.logger.Info("mix written", "path", outPath, "frames", mix.Len(), "sample_rate", rate)
	return mix, nil
}

// Edit changes stem directions in the profile at profilePath. When sink is
// non-nil every changed stem is previewed with a sweep placed at its new
// direction; preview failures are logged.
func (a *App) Edit(ctx context.Context, profilePath string, changes map[string]float64, sink calibration.Sink) (*profile.Profile, error) {
	ctx, span := a.tracer.Start(ctx, "edit")
	defer span.End()

	p, err := a.store.Update(profilePath, changes, a.catalog)
	if err != nil {
		return nil, spanError(span, err)
	}
	if sink == nil {
		return p, nil
	}

	sweep, err := signal.NewGenerator(core.WithSampleRate(float64(a.cfg.SampleRate))).SweptSine(signal.DefaultDuration)
	if err != nil {
		return p, spanError(span, err)
	}
	r := render.NewRenderer(a.catalog, render.WithLogger(a.logger))

	names := make([]string, 0, len(changes))
	for name := range changes {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		out, err := r.Apply(render.Mono(name, sweep), p.Direction(name), p)
		if err != nil {
			a.logger.Warn("preview skipped", "stem", name, "error", err)
			continue
		}
		a.logger.Info("previewing stem", "stem", name, "azimuth", p.Direction(name))
		if err := sink.Play(ctx, out.Left, out.Right, a.cfg.SampleRate); err != nil {
			a.logger.Warn("preview playback failed", "stem", name, "error", err)
		}
	}
	return p, nil
}

// Show loads the profile at profilePath, falling back to the default
// profile.
func (a *App) Show(profilePath string) *profile.Profile {
	return a.store.Load(profilePath)
}

// Profiles lists the profile documents in the configured profile directory.
func (a *App) Profiles() ([]string, error) {
	return a.store.List(a.cfg.ProfileDir)
}

// PresetStats returns the per-preset localization summary of the journal.
func (a *App) PresetStats(ctx context.Context) ([]journal.PresetStat, error) {
	if a.cfg.JournalPath == "" {
		return nil, errors.New("app: no journal configured")
	}
	jr, err := journal.Open(a.cfg.JournalPath)
	if err != nil {
		return nil, err
	}
	defer jr.Close()
	return jr.PresetStats(ctx)
}
