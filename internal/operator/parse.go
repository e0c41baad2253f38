package operator

import (
	"fmt"
	"strings"

	"github.com/cwbudde/algo-binaural/calibration"
)

var keys = map[rune]calibration.Command{
	'w': calibration.CoarseUp,
	's': calibration.CoarseDown,
	'd': calibration.FineUp,
	'a': calibration.FineDown,
	'r': calibration.Replay,
	'x': calibration.Skip,
	'q': calibration.Abort,
}

var words = map[string]calibration.Command{
	"coarse+": calibration.CoarseUp,
	"up":      calibration.CoarseUp,
	"coarse-": calibration.CoarseDown,
	"down":    calibration.CoarseDown,
	"fine+":   calibration.FineUp,
	"right":   calibration.FineUp,
	"fine-":   calibration.FineDown,
	"left":    calibration.FineDown,
	"replay":  calibration.Replay,
	"enter":   calibration.Confirm,
	"confirm": calibration.Confirm,
	"ok":      calibration.Confirm,
	"skip":    calibration.Skip,
	"abort":   calibration.Abort,
	"quit":    calibration.Abort,
}

// ParseLine maps one line of operator input to commands. An empty line is
// Enter and confirms. A known word yields one command; otherwise every
// character must be a key (w/s coarse, d/a fine, r replay, x skip, q abort),
// so "www" moves the pointer three coarse steps.
func ParseLine(line string) ([]calibration.Command, error) {
	line = strings.ToLower(strings.TrimSpace(line))
	if line == "" {
		return []calibration.Command{calibration.Confirm}, nil
	}
	if cmd, ok := words[line]; ok {
		return []calibration.Command{cmd}, nil
	}
	cmds := make([]calibration.Command, 0, len(line))
	for _, r := range line {
		cmd, ok := keys[r]
		if !ok {
			return nil, fmt.Errorf("operator: unknown command %q", line)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}
