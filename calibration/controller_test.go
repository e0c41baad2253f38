package calibration

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"testing"

	"github.com/cwbudde/algo-binaural/hrir"
	"github.com/cwbudde/algo-binaural/internal/testutil"
)

type scriptedCommands struct {
	cmds []Command
}

func (s *scriptedCommands) Next(ctx context.Context) (Command, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(s.cmds) == 0 {
		return 0, io.EOF
	}
	c := s.cmds[0]
	s.cmds = s.cmds[1:]
	return c, nil
}

func script(cmds ...Command) *scriptedCommands {
	return &scriptedCommands{cmds: cmds}
}

type recordingSink struct {
	plays   int
	lengths []int
	failOn  map[int]error
}

func (s *recordingSink) Play(_ context.Context, left, right []float64, _ int) error {
	s.plays++
	if err := s.failOn[s.plays]; err != nil {
		return err
	}
	s.lengths = append(s.lengths, len(left), len(right))
	return nil
}

func newCatalog(t *testing.T, azimuths ...int) *hrir.Catalog {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteHRIRCatalog(t, dir, "003", azimuths, 16)
	return hrir.NewCatalog(dir)
}

func newController(t *testing.T, src hrir.Source, sink Sink, cmds Commands, opts ...Option) *Controller {
	t.Helper()
	stimulus := testutil.DeterministicSine(1000, 48000, 0.05, 480)
	opts = append([]Option{WithRand(rand.New(rand.NewSource(1)))}, opts...)
	c, err := NewController(src, sink, cmds, stimulus, opts...)
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	return c
}

func TestRunPerfectLocalization(t *testing.T) {
	src := newCatalog(t, -90, -45, 0, 45, 90)
	sink := &recordingSink{}
	c := newController(t, src, sink, script(Confirm, Confirm, Confirm, Confirm))

	session, err := c.Run(context.Background(), []string{"003"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	trials := session.Trials("003")
	if len(trials) != 4 {
		t.Fatalf("trials = %d, want 4", len(trials))
	}
	for _, tr := range trials {
		if tr.Deviation() != 0 {
			t.Fatalf("trial %+v has non-zero deviation", tr)
		}
	}
	for _, n := range sink.lengths {
		if n != 480 {
			t.Fatalf("played %d samples, want stimulus length 480", n)
		}
	}
}

func TestRunPointerAdjustments(t *testing.T) {
	src := newCatalog(t, -90, -45, 0, 45, 90)
	cmds := script(
		CoarseUp, CoarseUp, FineDown, Confirm,
		FineUp, Confirm,
	)
	var moves int
	c := newController(t, src, &recordingSink{}, cmds,
		WithTrialCount(2),
		WithObserver(func(ev Event) {
			if ev.Kind == EventPointer {
				moves++
			}
		}))

	session, err := c.Run(context.Background(), []string{"003"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	trials := session.Trials("003")
	if len(trials) != 2 {
		t.Fatalf("trials = %d, want 2", len(trials))
	}
	if trials[0].Preset != -90 || trials[0].Response != -71 {
		t.Fatalf("trial 0 = %+v, want preset -90 response -71", trials[0])
	}
	if trials[1].Response != -89 {
		t.Fatalf("trial 1 = %+v, want response -89", trials[1])
	}
	if moves != 4 {
		t.Fatalf("pointer events = %d, want 4", moves)
	}
}

func TestRunReplayOnlyForRearPresets(t *testing.T) {
	t.Run("frontal", func(t *testing.T) {
		sink := &recordingSink{}
		var ignored int
		c := newController(t, newCatalog(t, -90, 0, 90), sink, script(Replay, Confirm, Confirm),
			WithTrialCount(2),
			WithObserver(func(ev Event) {
				if ev.Kind == EventReplayIgnored {
					ignored++
				}
			}))
		if _, err := c.Run(context.Background(), []string{"003"}); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if sink.plays != 2 || ignored != 1 {
			t.Fatalf("plays = %d, ignored = %d; want 2, 1", sink.plays, ignored)
		}
	})

	t.Run("rear", func(t *testing.T) {
		sink := &recordingSink{}
		c := newController(t, newCatalog(t, -180, -135, 0, 90), sink,
			script(Replay, Confirm, Replay, Replay, Confirm),
			WithTrialCount(2))
		session, err := c.Run(context.Background(), []string{"003"})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if session.Len() != 2 {
			t.Fatalf("trials = %d, want 2", session.Len())
		}
		if sink.plays != 5 {
			t.Fatalf("plays = %d, want 5", sink.plays)
		}
	})
}

func TestRunSkipsMalformedRecords(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteHRIRRecord(t, dir, "003", -90, []float64{1}, nil)
	testutil.WriteHRIRCatalog(t, dir, "003", []int{0, 90}, 8)

	var skipped int
	sink := &recordingSink{}
	c := newController(t, hrir.NewCatalog(dir), sink, script(),
		WithTrialCount(2),
		WithObserver(func(ev Event) {
			if ev.Kind == EventTrialSkipped {
				if !errors.Is(ev.Err, hrir.ErrMalformedHRIR) {
					t.Errorf("skip reason = %v, want ErrMalformedHRIR", ev.Err)
				}
				skipped++
			}
		}))

	session, err := c.Run(context.Background(), []string{"003"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if session.Len() != 0 || skipped != 2 || sink.plays != 0 {
		t.Fatalf("len = %d, skipped = %d, plays = %d; want 0, 2, 0", session.Len(), skipped, sink.plays)
	}
}

func TestRunSkipsFailedPlayback(t *testing.T) {
	sink := &recordingSink{failOn: map[int]error{1: errors.New("device busy")}}
	c := newController(t, newCatalog(t, -90, 0, 90), sink, script(Confirm), WithTrialCount(2))

	session, err := c.Run(context.Background(), []string{"003"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if session.Len() != 1 {
		t.Fatalf("trials = %d, want 1", session.Len())
	}
}

func TestRunOperatorSkip(t *testing.T) {
	c := newController(t, newCatalog(t, -90, 0, 90), &recordingSink{},
		script(FineUp, Skip, Confirm), WithTrialCount(2))
	session, err := c.Run(context.Background(), []string{"003"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	trials := session.Trials("003")
	if len(trials) != 1 || trials[0].Response != -90 {
		t.Fatalf("trials = %+v, want one unadjusted trial", trials)
	}
}

func TestRunAbort(t *testing.T) {
	var states []State
	c := newController(t, newCatalog(t, -90, 0, 90), &recordingSink{},
		script(Confirm, Abort),
		WithObserver(func(ev Event) {
			if ev.Kind == EventState {
				states = append(states, ev.State)
			}
		}))

	session, err := c.Run(context.Background(), []string{"003"})
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("err = %v, want ErrAborted", err)
	}
	if session != nil {
		t.Fatal("aborted run returned a session")
	}
	if states[len(states)-1] != StateAborted {
		t.Fatalf("last state = %v, want aborted", states[len(states)-1])
	}
}

func TestRunCommandStreamEnds(t *testing.T) {
	c := newController(t, newCatalog(t, -90, 0, 90), &recordingSink{}, script(Confirm))
	_, err := c.Run(context.Background(), []string{"003"})
	if !errors.Is(err, ErrAborted) || !errors.Is(err, io.EOF) {
		t.Fatalf("err = %v, want ErrAborted wrapping io.EOF", err)
	}
}

func TestRunContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := newController(t, newCatalog(t, -90, 0, 90), &recordingSink{}, script(Confirm))
	_, err := c.Run(ctx, []string{"003"})
	if !errors.Is(err, ErrAborted) || !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want ErrAborted wrapping context.Canceled", err)
	}
}

func TestRunSkipsSubjectWithoutRecords(t *testing.T) {
	var skippedSubjects []string
	c := newController(t, newCatalog(t, -90, 0, 90), &recordingSink{},
		script(Confirm, Confirm),
		WithTrialCount(2),
		WithObserver(func(ev Event) {
			if ev.Kind == EventSubjectSkipped {
				skippedSubjects = append(skippedSubjects, ev.Subject)
			}
		}))

	session, err := c.Run(context.Background(), []string{"999", "003"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(session.Subjects) != 1 || session.Subjects[0].Subject != "003" {
		t.Fatalf("subjects = %+v, want only 003", session.Subjects)
	}
	if len(skippedSubjects) != 1 || skippedSubjects[0] != "999" {
		t.Fatalf("skipped = %v, want [999]", skippedSubjects)
	}
}

func TestNewControllerValidation(t *testing.T) {
	src := newCatalog(t, 0)
	if _, err := NewController(src, &recordingSink{}, script(), nil); !errors.Is(err, ErrNoStimulus) {
		t.Fatalf("err = %v, want ErrNoStimulus", err)
	}
	if _, err := NewController(nil, &recordingSink{}, script(), []float64{1}); err == nil {
		t.Fatal("expected error for nil source")
	}
}

func TestSessionAddGroupsBySubject(t *testing.T) {
	var s Session
	s.Add(Trial{Subject: "019", Preset: 0})
	s.Add(Trial{Subject: "003", Preset: 90})
	s.Add(Trial{Subject: "019", Preset: -90, Response: -80})

	if len(s.Subjects) != 2 || s.Subjects[0].Subject != "019" {
		t.Fatalf("subjects = %+v, want 019 first", s.Subjects)
	}
	if s.Len() != 3 || len(s.Trials("019")) != 2 {
		t.Fatalf("Len = %d, 019 trials = %d", s.Len(), len(s.Trials("019")))
	}
	if d := s.Trials("019")[1].Deviation(); d != 10 {
		t.Fatalf("Deviation = %v, want 10", d)
	}
}

func TestCommandString(t *testing.T) {
	if CoarseUp.String() != "coarse+" || Command(99).String() != "Command(99)" {
		t.Fatalf("unexpected names %q %q", CoarseUp.String(), Command(99).String())
	}
	if StateReplay.String() != "replay" {
		t.Fatalf("StateReplay = %q", StateReplay.String())
	}
}
