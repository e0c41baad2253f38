// Package app wires the catalog, calibration, estimation, profile and
// rendering packages into the flows exposed by the hrtfcal command.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/cwbudde/algo-binaural/calibration"
	"github.com/cwbudde/algo-binaural/dsp/core"
	"github.com/cwbudde/algo-binaural/dsp/signal"
	"github.com/cwbudde/algo-binaural/estimate"
	"github.com/cwbudde/algo-binaural/hrir"
	"github.com/cwbudde/algo-binaural/internal/config"
	"github.com/cwbudde/algo-binaural/internal/operator"
	"github.com/cwbudde/algo-binaural/internal/playback"
	"github.com/cwbudde/algo-binaural/internal/telemetry"
	"github.com/cwbudde/algo-binaural/profile"
)

// App holds the long-lived collaborators of one hrtfcal process.
type App struct {
	cfg     config.Config
	logger  *slog.Logger
	catalog *hrir.Catalog
	store   *profile.Store
	tracer  trace.Tracer
	now     func() time.Time
}

// New returns an App for cfg.
func New(cfg config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		cfg:     cfg,
		logger:  logger,
		catalog: hrir.NewCatalog(cfg.CatalogDir, hrir.WithLogger(logger)),
		store:   profile.NewStore(profile.WithLogger(logger)),
		tracer:  telemetry.Tracer(),
		now:     time.Now,
	}
}

// Config returns the application configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Catalog returns the HRIR catalog.
func (a *App) Catalog() *hrir.Catalog {
	return a.catalog
}

// Store returns the profile store.
func (a *App) Store() *profile.Store {
	return a.store
}

// Stimulus generates the configured calibration stimulus.
func (a *App) Stimulus() ([]float64, error) {
	g := signal.NewGeneratorWithOptions(
		[]core.ProcessorOption{core.WithSampleRate(float64(a.cfg.SampleRate))},
		signal.WithSeed(a.seed()),
	)
	if a.cfg.Stimulus == config.StimulusNoise {
		return g.WhiteNoise(signal.DefaultDuration)
	}
	return g.SweptSine(signal.DefaultDuration)
}

// Estimator returns the configured head parameter estimator.
func (a *App) Estimator() estimate.Estimator {
	if a.cfg.Estimator == config.EstimatorSHM {
		return estimate.SphericalHeadModel{}
	}
	return estimate.Regression{}
}

// Sink returns the configured audio sink: WAV files in PreviewDir when set,
// otherwise the external player.
func (a *App) Sink() (calibration.Sink, error) {
	if a.cfg.PreviewDir != "" {
		return playback.NewFileSink(a.cfg.PreviewDir, "preview"), nil
	}
	return playback.NewCommandSink(a.cfg.Player, a.logger)
}

// Commands starts the operator inputs: lines from in, and the MQTT button
// box when a broker is configured. The returned stop function releases them.
func (a *App) Commands(ctx context.Context, in io.Reader) (calibration.Commands, func(), error) {
	q := operator.NewQueue(64)
	stop := func() { q.Close() }

	if a.cfg.MQTTBroker != "" {
		src := operator.NewMQTTSource(operator.MQTTConfig{
			Broker:   a.cfg.MQTTBroker,
			ClientID: a.cfg.MQTTClientID,
			Topic:    a.cfg.MQTTTopic,
		}, q, a.logger)
		if err := src.Start(); err != nil {
			src.Stop()
			return nil, nil, err
		}
		// End of in leaves the queue open while the button box is attached.
		stop = func() {
			src.Stop()
			q.Close()
		}
		if in == nil {
			return q, stop, nil
		}
	}
	if in != nil {
		go func() {
			if err := operator.ReadLines(ctx, in, q, a.logger); err != nil {
				a.logger.Debug("operator input ended", "error", err)
			}
		}()
	}
	return q, stop, nil
}

func (a *App) seed() int64 {
	if a.cfg.Seed != 0 {
		return a.cfg.Seed
	}
	return a.now().UnixNano()
}

func (a *App) rand() *rand.Rand {
	return rand.New(rand.NewSource(a.seed()))
}

func spanError(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// Summary formats p for display.
func Summary(path string, p *profile.Profile) string {
	s := fmt.Sprintf("profile:          %s\n", path)
	s += fmt.Sprintf("hrtf subject:     %s (%s)\n", p.HRTFSubject, p.ReferenceLabel())
	s += fmt.Sprintf("head width:       %.2f cm\n", p.HeadWidth)
	s += fmt.Sprintf("head length:      %.2f cm\n", p.HeadLength)
	s += fmt.Sprintf("effective radius: %.2f cm\n", p.EffectiveRadius)
	if p.Timestamp != "" {
		s += fmt.Sprintf("calibrated:       %s\n", p.Timestamp)
	}
	s += "stem directions:\n"
	for _, name := range profile.StemNames {
		s += fmt.Sprintf("  %-7s %6.1f°\n", name, p.Direction(name))
	}
	return s
}
