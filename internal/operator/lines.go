package operator

import (
	"bufio"
	"context"
	"io"
	"log/slog"
)

// ReadLines parses r line by line into q until EOF or ctx is done. It is
// attached to q while reading, so q closes at EOF unless another producer is
// still attached. Unknown input is logged and ignored.
func ReadLines(ctx context.Context, r io.Reader, q *Queue, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	release := q.Attach()
	defer release()

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		cmds, err := ParseLine(sc.Text())
		if err != nil {
			logger.Warn("ignoring operator input", "error", err)
			continue
		}
		for _, cmd := range cmds {
			if err := q.Push(ctx, cmd); err != nil {
				return err
			}
		}
	}
	return sc.Err()
}
