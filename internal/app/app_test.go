package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/algo-binaural/calibration"
	"github.com/cwbudde/algo-binaural/dsp/core"
	"github.com/cwbudde/algo-binaural/internal/config"
	"github.com/cwbudde/algo-binaural/internal/operator"
	"github.com/cwbudde/algo-binaural/internal/playback"
	"github.com/cwbudde/algo-binaural/internal/testutil"
	"github.com/cwbudde/algo-binaural/internal/wavio"
	"github.com/cwbudde/algo-binaural/profile"
)

var testAzimuths = []int{-180, -135, -90, -45, 0, 45, 90, 135}

func newTestApp(t *testing.T, mutate func(*config.Config)) *App {
	t.Helper()
	root := t.TempDir()
	catalog := filepath.Join(root, "hrir")
	if err := os.MkdirAll(catalog, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	testutil.WriteHRIRCatalog(t, catalog, "003", testAzimuths, 32)
	testutil.WriteHRIRCatalog(t, catalog, "019", testAzimuths, 32)

	cfg := config.Config{
		CatalogDir:      catalog,
		ProfileDir:      filepath.Join(root, "profiles"),
		ProfilePath:     filepath.Join(root, "profiles", "default.json"),
		Subjects:        []string{"003", "019"},
		SampleRate:      8000,
		Trials:          4,
		Stimulus:        config.StimulusSweep,
		Estimator:       config.EstimatorRegression,
		Seed:            7,
		PreviewDir:      filepath.Join(root, "preview"),
		RenderWorkers:   2,
		RenderBlockSize: 1024,
		Volume:          1,
		OutputBitDepth:  24,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	a := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	a.now = func() time.Time { return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC) }
	return a
}

func queueOf(t *testing.T, cmds ...calibration.Command) *operator.Queue {
	t.Helper()
	q := operator.NewQueue(len(cmds) + 1)
	for _, c := range cmds {
		if err := q.TryPush(c); err != nil {
			t.Fatalf("TryPush() error = %v", err)
		}
	}
	q.Close()
	return q
}

func confirms(n int) []calibration.Command {
	cmds := make([]calibration.Command, n)
	for i := range cmds {
		cmds[i] = calibration.Confirm
	}
	return cmds
}

func TestCalibrateSavesProfile(t *testing.T) {
	a := newTestApp(t, nil)
	sink := playback.NewFileSink(a.Config().PreviewDir, "trial")

	res, err := a.Calibrate(context.Background(), queueOf(t, confirms(8)...), sink, a.Config().ProfilePath)
	if err != nil {
		t.Fatalf("Calibrate() error = %v", err)
	}
	if sink.Count() != 8 {
		t.Fatalf("played %d stimuli, want 8", sink.Count())
	}
	if res.Session.Len() != 8 {
		t.Fatalf("session trials = %d, want 8", res.Session.Len())
	}

	p := a.Show(a.Config().ProfilePath)
	// Zero deviation gives 14.2 x 17.8 cm, closest to the female reference.
	if p.HRTFSubject != "019" {
		t.Fatalf("hrtf subject = %q, want 019", p.HRTFSubject)
	}
	if !core.NearlyEqual(p.HeadWidth, 14.2, 1e-9) || !core.NearlyEqual(p.EffectiveRadius, 3.2, 1e-9) {
		t.Fatalf("head params = %.3f / %.3f, want 14.2 / 3.2", p.HeadWidth, p.EffectiveRadius)
	}
	if p.Timestamp != "2026-03-14 09:26:53" {
		t.Fatalf("timestamp = %q", p.Timestamp)
	}
	if len(p.CalibrationData["003"].Responses) != 4 || len(p.CalibrationData["019"].Responses) != 4 {
		t.Fatalf("calibration data = %+v", p.CalibrationData)
	}
}

func TestCalibrateAbortKeepsProfile(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) {
		c.JournalPath = filepath.Join(filepath.Dir(c.ProfileDir), "journal.db")
	})
	path := a.Config().ProfilePath
	if err := a.Store().Save(profile.Default(), path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	cmds := queueOf(t, calibration.Confirm, calibration.Abort)
	_, err = a.Calibrate(context.Background(), cmds, playback.NewFileSink(a.Config().PreviewDir, ""), path)
	if !errors.Is(err, calibration.ErrAborted) {
		t.Fatalf("Calibrate() error = %v, want ErrAborted", err)
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Fatal("aborted calibration modified the stored profile")
	}

	stats, err := a.PresetStats(context.Background())
	if err != nil {
		t.Fatalf("PresetStats() error = %v", err)
	}
	if len(stats) != 1 || stats[0].Trials != 1 {
		t.Fatalf("stats = %+v, want the one confirmed trial", stats)
	}
}

func TestCalibrateEndOfInputAborts(t *testing.T) {
	a := newTestApp(t, nil)
	_, err := a.Calibrate(context.Background(), queueOf(t, confirms(3)...),
		playback.NewFileSink(a.Config().PreviewDir, ""), a.Config().ProfilePath)
	if !errors.Is(err, calibration.ErrAborted) {
		t.Fatalf("Calibrate() error = %v, want ErrAborted", err)
	}
	if _, err := os.Stat(a.Config().ProfilePath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("profile written after abort: %v", err)
	}
}

func writeStem(t *testing.T, dir, name string, channels ...[]float64) {
	t.Helper()
	if err := wavio.Write(filepath.Join(dir, name+".wav"), 8000, channels...); err != nil {
		t.Fatalf("write stem %s: %v", name, err)
	}
}

func TestRenderWritesMix(t *testing.T) {
	a := newTestApp(t, nil)
	in := t.TempDir()
	vocals := testutil.DeterministicSine(440, 8000, 0.5, 4000)
	bass := testutil.DeterministicSine(110, 8000, 0.5, 4000)
	writeStem(t, in, "vocals", vocals)
	writeStem(t, in, "bass", bass, bass)

	var done []string
	out := filepath.Join(t.TempDir(), "mix", "out.wav")
	mix, err := a.Render(context.Background(), a.Config().ProfilePath, in, out, func(stem string, err error) {
		if err != nil {
			t.Errorf("stem %s: %v", stem, err)
		}
		done = append(done, stem)
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if len(done) != 2 {
		t.Fatalf("progress reported %v, want two stems", done)
	}
	if mix.Len() != 4000 {
		t.Fatalf("mix length = %d, want 4000", mix.Len())
	}

	got, err := wavio.Read(out)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(got.Channels) != 2 || got.Frames() != 4000 || got.SampleRate != 8000 {
		t.Fatalf("output = %d channels, %d frames at %d Hz", len(got.Channels), got.Frames(), got.SampleRate)
	}
}

func TestRenderWarnsOnClipping(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) { c.Volume = 8 })
	var logs bytes.Buffer
	a.logger = slog.New(slog.NewTextHandler(&logs, nil))

	in := t.TempDir()
	writeStem(t, in, "vocals", testutil.DeterministicSine(440, 8000, 0.9, 2000))
	out := filepath.Join(t.TempDir(), "loud.wav")
	if _, err := a.Render(context.Background(), a.Config().ProfilePath, in, out, nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(logs.String(), "clipped") {
		t.Fatalf("no clipping warning logged:\n%s", logs.String())
	}

	got, err := wavio.Read(out)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if core.PeakAbs(got.Channels[0]) > 1 {
		t.Fatalf("peak = %v, want clipped to 1", core.PeakAbs(got.Channels[0]))
	}
}

func TestRenderWithoutStems(t *testing.T) {
	a := newTestApp(t, nil)
	_, err := a.Render(context.Background(), a.Config().ProfilePath, t.TempDir(),
		filepath.Join(t.TempDir(), "out.wav"), nil)
	if !errors.Is(err, ErrNoInputStems) {
		t.Fatalf("Render() error = %v, want ErrNoInputStems", err)
	}
}

func TestEditSnapsAndPreviews(t *testing.T) {
	a := newTestApp(t, nil)
	sink := playback.NewFileSink(a.Config().PreviewDir, "edit")

	p, err := a.Edit(context.Background(), a.Config().ProfilePath,
		map[string]float64{"vocals": 47, "drums": -100}, sink)
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if p.Direction("vocals") != 45 || p.Direction("drums") != -90 {
		t.Fatalf("directions = %v", p.StemDirections)
	}
	if sink.Count() != 2 {
		t.Fatalf("previews = %d, want 2", sink.Count())
	}

	stored := a.Show(a.Config().ProfilePath)
	if stored.Direction("vocals") != 45 {
		t.Fatalf("stored vocals direction = %v, want 45", stored.Direction("vocals"))
	}
}

func TestEditRejectsUnknownStem(t *testing.T) {
	a := newTestApp(t, nil)
	_, err := a.Edit(context.Background(), a.Config().ProfilePath, map[string]float64{"piano": 10}, nil)
	if !errors.Is(err, profile.ErrUnknownStem) {
		t.Fatalf("Edit() error = %v, want ErrUnknownStem", err)
	}
}

func TestCommandsFromLines(t *testing.T) {
	a := newTestApp(t, nil)
	ctx := context.Background()
	cmds, stop, err := a.Commands(ctx, strings.NewReader("w\n\n"))
	if err != nil {
		t.Fatalf("Commands() error = %v", err)
	}
	defer stop()

	want := []calibration.Command{calibration.CoarseUp, calibration.Confirm}
	for _, w := range want {
		got, err := cmds.Next(ctx)
		if err != nil || got != w {
			t.Fatalf("Next() = %v, %v; want %v", got, err, w)
		}
	}
	if _, err := cmds.Next(ctx); !errors.Is(err, operator.ErrClosed) {
		t.Fatalf("Next() after input ended error = %v, want ErrClosed", err)
	}
}

func TestStimulusKinds(t *testing.T) {
	sweep, err := newTestApp(t, nil).Stimulus()
	if err != nil {
		t.Fatal(err)
	}
	noise, err := newTestApp(t, func(c *config.Config) { c.Stimulus = config.StimulusNoise }).Stimulus()
	if err != nil {
		t.Fatal(err)
	}
	if len(sweep) != 12000 || len(noise) != 12000 {
		t.Fatalf("lengths = %d, %d, want 12000", len(sweep), len(noise))
	}
	if core.NearlyEqual(sweep[0], noise[0], 1e-12) {
		t.Fatal("noise stimulus starts like the sweep")
	}
}

func TestSummary(t *testing.T) {
	s := Summary("p.json", profile.Default())
	for _, want := range []string{"003 (male)", "15.20 cm", "vocals"} {
		if !strings.Contains(s, want) {
			t.Fatalf("summary missing %q:\n%s", want, s)
		}
	}
}
