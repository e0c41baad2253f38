package calibration

import (
	"context"
	"fmt"
)

// Command is one operator action during response collection.
type Command int

const (
	// CoarseUp moves the pointer by +CoarseStep degrees.
	CoarseUp Command = iota + 1
	// CoarseDown moves the pointer by -CoarseStep degrees.
	CoarseDown
	// FineUp moves the pointer by +FineStep degrees.
	FineUp
	// FineDown moves the pointer by -FineStep degrees.
	FineDown
	// Replay plays the stimulus again. Only honored for rear presets.
	Replay
	// Confirm accepts the current pointer as the response.
	Confirm
	// Skip abandons the current trial without recording it.
	Skip
	// Abort discards the whole session.
	Abort
)

// Pointer step sizes in degrees.
const (
	CoarseStep = 10.0
	FineStep   = 1.0
)

var commandNames = map[Command]string{
	CoarseUp:   "coarse+",
	CoarseDown: "coarse-",
	FineUp:     "fine+",
	FineDown:   "fine-",
	Replay:     "replay",
	Confirm:    "confirm",
	Skip:       "skip",
	Abort:      "abort",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// Valid reports whether c is a known command.
func (c Command) Valid() bool {
	_, ok := commandNames[c]
	return ok
}

// Step returns the pointer offset for an adjustment command, or 0.
func (c Command) Step() float64 {
	switch c {
	case CoarseUp:
		return CoarseStep
	case CoarseDown:
		return -CoarseStep
	case FineUp:
		return FineStep
	case FineDown:
		return -FineStep
	default:
		return 0
	}
}

// Commands delivers operator commands in order. Next blocks until a command
// is available, the stream ends or ctx is done.
type Commands interface {
	Next(ctx context.Context) (Command, error)
}

// Sink plays a stereo buffer and returns once playback has finished.
type Sink interface {
	Play(ctx context.Context, left, right []float64, sampleRate int) error
}
