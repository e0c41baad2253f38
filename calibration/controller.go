package calibration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/cwbudde/algo-binaural/dsp/filter/fir"
	"github.com/cwbudde/algo-binaural/hrir"
)

var (
	// ErrAborted is returned when the operator or the context ends a session.
	ErrAborted = errors.New("calibration: session aborted")
	// ErrNoStimulus is returned when the controller has nothing to play.
	ErrNoStimulus = errors.New("calibration: empty stimulus")
)

// rearLimit is the |preset| above which replay is allowed.
const rearLimit = 90

// State is a step of the calibration state machine.
type State int

const (
	StateSelectTrialAngles State = iota
	StatePresentStimulus
	StateCollectResponse
	StateReplay
	StateRecord
	StateComplete
	StateAborted
)

var stateNames = [...]string{
	StateSelectTrialAngles: "select-trial-angles",
	StatePresentStimulus:   "present-stimulus",
	StateCollectResponse:   "collect-response",
	StateReplay:            "replay",
	StateRecord:            "record",
	StateComplete:          "complete",
	StateAborted:           "aborted",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// EventKind classifies observer events.
type EventKind int

const (
	// EventState reports a state transition.
	EventState EventKind = iota
	// EventPointer reports a pointer move.
	EventPointer
	// EventTrialRecorded reports a confirmed trial.
	EventTrialRecorded
	// EventTrialSkipped reports a trial that produced no record.
	EventTrialSkipped
	// EventSubjectSkipped reports a subject without catalog entries.
	EventSubjectSkipped
	// EventReplayIgnored reports a replay request for a frontal preset.
	EventReplayIgnored
)

// Event is delivered to the Observer as the session progresses.
type Event struct {
	Kind    EventKind
	State   State
	Subject string
	// Trial is the zero-based trial index within the subject.
	Trial   int
	Preset  int
	Pointer float64
	Err     error
}

// Deviation returns |Pointer - Preset|.
func (e Event) Deviation() float64 {
	return math.Abs(e.Pointer - float64(e.Preset))
}

// Observer receives controller events synchronously.
type Observer func(Event)

// Option configures a Controller.
type Option func(*Controller)

// WithSampleRate sets the playback sample rate passed to the sink.
func WithSampleRate(rate int) Option {
	return func(c *Controller) {
		if rate > 0 {
			c.sampleRate = rate
		}
	}
}

// WithTrialCount sets the number of trials per subject.
func WithTrialCount(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.count = n
		}
	}
}

// WithCanonicalAngles replaces the test azimuths.
func WithCanonicalAngles(angles []int) Option {
	return func(c *Controller) {
		if len(angles) > 0 {
			c.canonical = angles
		}
	}
}

// WithRand sets the random source used for trial selection.
func WithRand(rng *rand.Rand) Option {
	return func(c *Controller) {
		if rng != nil {
			c.rng = rng
		}
	}
}

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver registers an event callback.
func WithObserver(obs Observer) Option {
	return func(c *Controller) {
		c.observer = obs
	}
}

// Controller drives a calibration session.
type Controller struct {
	source   hrir.Source
	sink     Sink
	commands Commands
	stimulus []float64

	sampleRate int
	count      int
	canonical  []int
	rng        *rand.Rand
	logger     *slog.Logger
	observer   Observer
}

// NewController returns a controller that plays stimulus through sink and
// reads answers from commands.
func NewController(source hrir.Source, sink Sink, commands Commands, stimulus []float64, opts ...Option) (*Controller, error) {
	if source == nil || sink == nil || commands == nil {
		return nil, errors.New("calibration: source, sink and commands are required")
	}
	if len(stimulus) == 0 {
		return nil, ErrNoStimulus
	}
	c := &Controller{
		source:     source,
		sink:       sink,
		commands:   commands,
		stimulus:   stimulus,
		sampleRate: 48000,
		count:      DefaultTrialCount,
		canonical:  CanonicalAngles,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Run tests every subject in order and returns the recorded trials.
// Missing records and playback failures skip a trial; subjects without
// records are skipped. Only Abort, the end of the command stream or ctx
// cancellation stop the session, in which case the partial session is
// discarded and the error wraps ErrAborted.
func (c *Controller) Run(ctx context.Context, subjects []string) (*Session, error) {
	session := &Session{}
	for _, subject := range subjects {
		if err := c.runSubject(ctx, subject, session); err != nil {
			c.emit(Event{Kind: EventState, State: StateAborted, Subject: subject, Err: err})
			c.logger.Warn("calibration aborted", "subject", subject, "error", err)
			return nil, err
		}
	}
	c.emit(Event{Kind: EventState, State: StateComplete})
	c.logger.Info("calibration complete", "subjects", len(session.Subjects), "trials", session.Len())
	return session, nil
}

func (c *Controller) runSubject(ctx context.Context, subject string, session *Session) error {
	c.emit(Event{Kind: EventState, State: StateSelectTrialAngles, Subject: subject})
	available := c.source.Angles(subject)
	if len(available) == 0 {
		c.logger.Warn("subject has no hrir records, skipping", "subject", subject)
		c.emit(Event{Kind: EventSubjectSkipped, Subject: subject})
		return nil
	}

	presets := SelectTrialAngles(available, c.canonical, c.count, c.rng)
	c.logger.Info("trial angles selected", "subject", subject, "presets", presets)

	for i, preset := range presets {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrAborted, err)
		}
		trial, ok, err := c.runTrial(ctx, subject, i, preset)
		if err != nil {
			return err
		}
		if ok {
			session.Add(trial)
		}
	}
	return nil
}

func (c *Controller) runTrial(ctx context.Context, subject string, idx, preset int) (Trial, bool, error) {
	ev := Event{Subject: subject, Trial: idx, Preset: preset, Pointer: float64(preset)}

	skip := func(err error) (Trial, bool, error) {
		c.logger.Warn("trial skipped", "subject", subject, "preset", preset, "error", err)
		ev.Kind, ev.Err = EventTrialSkipped, err
		c.emit(ev)
		return Trial{}, false, nil
	}

	c.emitState(ev, StatePresentStimulus)
	set, err := c.source.Load(subject, preset)
	if err != nil {
		return skip(err)
	}
	left, right, err := fir.ApplyStereo(set.Left, set.Right, c.stimulus)
	if err != nil {
		return skip(err)
	}
	if err := c.sink.Play(ctx, left, right, c.sampleRate); err != nil {
		if ctx.Err() != nil {
			return Trial{}, false, fmt.Errorf("%w: %w", ErrAborted, ctx.Err())
		}
		return skip(err)
	}

	c.emitState(ev, StateCollectResponse)
	pointer := float64(preset)
	for {
		cmd, err := c.commands.Next(ctx)
		if err != nil {
			return Trial{}, false, fmt.Errorf("%w: %w", ErrAborted, err)
		}

		switch cmd {
		case CoarseUp, CoarseDown, FineUp, FineDown:
			pointer += cmd.Step()
			ev.Kind, ev.Pointer = EventPointer, pointer
			c.emit(ev)
		case Replay:
			if math.Abs(float64(preset)) <= rearLimit {
				ev.Kind = EventReplayIgnored
				c.emit(ev)
				continue
			}
			c.emitState(ev, StateReplay)
			if err := c.sink.Play(ctx, left, right, c.sampleRate); err != nil {
				if ctx.Err() != nil {
					return Trial{}, false, fmt.Errorf("%w: %w", ErrAborted, ctx.Err())
				}
				c.logger.Warn("replay failed", "subject", subject, "preset", preset, "error", err)
			}
			c.emitState(ev, StateCollectResponse)
		case Confirm:
			c.emitState(ev, StateRecord)
			trial := Trial{Subject: subject, Preset: preset, Response: pointer}
			ev.Kind, ev.Pointer = EventTrialRecorded, pointer
			c.emit(ev)
			c.logger.Info("trial recorded", "subject", subject, "preset", preset,
				"response", pointer, "deviation", trial.Deviation())
			return trial, true, nil
		case Skip:
			return skip(errors.New("skipped by operator"))
		case Abort:
			return Trial{}, false, ErrAborted
		default:
			c.logger.Debug("unknown command ignored", "command", cmd)
		}
	}
}

func (c *Controller) emitState(ev Event, s State) {
	ev.Kind, ev.State = EventState, s
	c.emit(ev)
}

func (c *Controller) emit(ev Event) {
	if c.observer != nil {
		c.observer(ev)
	}
}
