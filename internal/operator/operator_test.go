package operator

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/algo-binaural/calibration"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		in   string
		want []calibration.Command
	}{
		{"", []calibration.Command{calibration.Confirm}},
		{"  \t", []calibration.Command{calibration.Confirm}},
		{"w", []calibration.Command{calibration.CoarseUp}},
		{"WWA", []calibration.Command{calibration.CoarseUp, calibration.CoarseUp, calibration.FineDown}},
		{"fine+", []calibration.Command{calibration.FineUp}},
		{"replay", []calibration.Command{calibration.Replay}},
		{"r", []calibration.Command{calibration.Replay}},
		{"Confirm", []calibration.Command{calibration.Confirm}},
		{"q", []calibration.Command{calibration.Abort}},
		{"skip", []calibration.Command{calibration.Skip}},
	}
	for _, tt := range tests {
		got, err := ParseLine(tt.in)
		if err != nil {
			t.Fatalf("ParseLine(%q) error = %v", tt.in, err)
		}
		if !slices.Equal(got, tt.want) {
			t.Errorf("ParseLine(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseLine("wz"); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestQueueDrainsAfterClose(t *testing.T) {
	q := NewQueue(4)
	ctx := context.Background()
	if err := q.Push(ctx, calibration.FineUp); err != nil {
		t.Fatal(err)
	}
	q.Close()
	if err := q.Push(ctx, calibration.Confirm); !errors.Is(err, ErrClosed) {
		t.Fatalf("Push after Close: err = %v, want ErrClosed", err)
	}
	if err := q.TryPush(calibration.Confirm); !errors.Is(err, ErrClosed) {
		t.Fatalf("TryPush after Close: err = %v, want ErrClosed", err)
	}

	cmd, err := q.Next(ctx)
	if err != nil || cmd != calibration.FineUp {
		t.Fatalf("Next() = %v, %v; want fine+", cmd, err)
	}
	if _, err := q.Next(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
}

func TestQueueNextHonorsContext(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := q.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want DeadlineExceeded", err)
	}
}

func TestQueueTryPushFull(t *testing.T) {
	q := NewQueue(1)
	if err := q.TryPush(calibration.Replay); err != nil {
		t.Fatalf("first TryPush: %v", err)
	}
	if err := q.TryPush(calibration.Replay); !errors.Is(err, ErrFull) {
		t.Fatalf("TryPush on a full queue: err = %v, want ErrFull", err)
	}
}

func TestReadLines(t *testing.T) {
	q := NewQueue(16)
	in := strings.NewReader("ww\nbogus\nd\n\nq\n")
	if err := ReadLines(context.Background(), in, q, nil); err != nil {
		t.Fatalf("ReadLines() error = %v", err)
	}

	var got []calibration.Command
	for {
		cmd, err := q.Next(context.Background())
		if errors.Is(err, ErrClosed) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, cmd)
	}
	want := []calibration.Command{
		calibration.CoarseUp, calibration.CoarseUp, calibration.FineUp,
		calibration.Confirm, calibration.Abort,
	}
	if !slices.Equal(got, want) {
		t.Fatalf("commands = %v, want %v", got, want)
	}
}

func TestMQTTSourceHandle(t *testing.T) {
	q := NewQueue(2)
	s := NewMQTTSource(MQTTConfig{Topic: "hrtfcal/commands"}, q, nil)

	s.handle([]byte("coarse-"))
	s.handle([]byte("nonsense"))
	s.handle([]byte("ww")) // second press is dropped, the queue holds two

	ctx := context.Background()
	first, _ := q.Next(ctx)
	second, _ := q.Next(ctx)
	if first != calibration.CoarseDown || second != calibration.CoarseUp {
		t.Fatalf("got %v, %v; want coarse-, coarse+", first, second)
	}
	s.Stop()
	if _, err := q.Next(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed after Stop", err)
	}
}

func TestQueueClosesAfterLastProducer(t *testing.T) {
	q := NewQueue(4)
	ctx := context.Background()
	mq := NewMQTTSource(MQTTConfig{Topic: "hrtfcal/commands"}, q, nil)

	// Standard input at EOF must not end a button-box session.
	if err := ReadLines(ctx, strings.NewReader(""), q, nil); err != nil {
		t.Fatalf("ReadLines() error = %v", err)
	}
	mq.handle([]byte("coarse+"))
	cmd, err := q.Next(ctx)
	if err != nil || cmd != calibration.CoarseUp {
		t.Fatalf("Next() = %v, %v; want coarse+", cmd, err)
	}

	mq.Stop()
	mq.Stop()
	if _, err := q.Next(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed after the last producer stopped", err)
	}
	if err := q.TryPush(calibration.Confirm); !errors.Is(err, ErrClosed) {
		t.Fatalf("TryPush: err = %v, want ErrClosed", err)
	}
}
