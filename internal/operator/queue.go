// Package operator turns keyboard lines and remote button presses into the
// calibration command stream.
package operator

import (
	"context"
	"errors"
	"sync"

	"github.com/cwbudde/algo-binaural/calibration"
)

var (
	// ErrClosed is returned by Next once a closed queue has been drained.
	ErrClosed = errors.New("operator: command stream closed")
	// ErrFull is returned by TryPush when no slot is free.
	ErrFull = errors.New("operator: command queue full")
)

// Queue is a buffered calibration.Commands implementation. Producers push
// from any goroutine; the calibration controller consumes.
type Queue struct {
	ch        chan calibration.Command
	done      chan struct{}
	closeOnce sync.Once

	mu        sync.Mutex
	producers int
}

// NewQueue returns a queue holding up to size pending commands.
func NewQueue(size int) *Queue {
	return &Queue{
		ch:   make(chan calibration.Command, max(size, 1)),
		done: make(chan struct{}),
	}
}

// Push enqueues cmd, blocking while the queue is full.
func (q *Queue) Push(ctx context.Context, cmd calibration.Command) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}
	select {
	case q.ch <- cmd:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPush enqueues cmd without blocking. It fails with ErrClosed or ErrFull.
func (q *Queue) TryPush(cmd calibration.Command) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}
	select {
	case q.ch <- cmd:
		return nil
	default:
		return ErrFull
	}
}

// Attach registers a producer. The queue closes when the last attached
// producer calls its release function; further calls of release are no-ops.
func (q *Queue) Attach() (release func()) {
	q.mu.Lock()
	q.producers++
	q.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			q.mu.Lock()
			q.producers--
			last := q.producers == 0
			q.mu.Unlock()
			if last {
				q.Close()
			}
		})
	}
}

// Close ends the stream. Pending commands are still delivered.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}

// Next implements calibration.Commands.
func (q *Queue) Next(ctx context.Context) (calibration.Command, error) {
	select {
	case cmd := <-q.ch:
		return cmd, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-q.done:
		select {
		case cmd := <-q.ch:
			return cmd, nil
		default:
			return 0, ErrClosed
		}
	}
}
