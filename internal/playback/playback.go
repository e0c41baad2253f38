// Package playback provides audio sinks for calibration stimuli and render
// previews. Device selection is left to the external player.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cwbudde/algo-binaural/internal/wavio"
)

// ErrPlayback is wrapped by every sink failure.
var ErrPlayback = errors.New("playback: failed")

// FileSink writes every buffer it is asked to play to a numbered WAV file.
type FileSink struct {
	dir    string
	prefix string

	mu sync.Mutex
	n  int
}

// NewFileSink returns a sink writing <prefix>-NNNN.wav files into dir.
func NewFileSink(dir, prefix string) *FileSink {
	if prefix == "" {
		prefix = "play"
	}
	return &FileSink{dir: dir, prefix: prefix}
}

// Play implements calibration.Sink.
func (s *FileSink) Play(ctx context.Context, left, right []float64, sampleRate int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrPlayback, err)
	}
	s.mu.Lock()
	s.n++
	path := filepath.Join(s.dir, fmt.Sprintf("%s-%04d.wav", s.prefix, s.n))
	s.mu.Unlock()

	if err := wavio.Write(path, sampleRate, left, right); err != nil {
		return fmt.Errorf("%w: %w", ErrPlayback, err)
	}
	return nil
}

// Count returns the number of buffers written.
func (s *FileSink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// CommandSink plays buffers by writing a temporary WAV file and running an
// external player on it, for example "ffplay -nodisp -autoexit -loglevel quiet".
// The file path is appended as the last argument. Play blocks until the
// player exits.
type CommandSink struct {
	name   string
	args   []string
	logger *slog.Logger
}

// NewCommandSink parses a whitespace separated player command line.
func NewCommandSink(cmdline string, logger *slog.Logger) (*CommandSink, error) {
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty player command", ErrPlayback)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandSink{name: fields[0], args: fields[1:], logger: logger}, nil
}

// Play implements calibration.Sink.
func (s *CommandSink) Play(ctx context.Context, left, right []float64, sampleRate int) error {
	f, err := os.CreateTemp("", "hrtfcal-*.wav")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPlayback, err)
	}
	path := f.Name()
	_ = f.Close()
	defer os.Remove(path)

	if err := wavio.Write(path, sampleRate, left, right); err != nil {
		return fmt.Errorf("%w: %w", ErrPlayback, err)
	}

	args := append(append([]string(nil), s.args...), path)
	cmd := exec.CommandContext(ctx, s.name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		s.logger.Debug("player output", "command", s.name, "output", strings.TrimSpace(string(out)))
		return fmt.Errorf("%w: %s: %w", ErrPlayback, s.name, err)
	}
	return nil
}
