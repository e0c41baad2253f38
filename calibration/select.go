package calibration

import (
	"math/rand"
	"slices"

	"github.com/cwbudde/algo-binaural/hrir"
)

// CanonicalAngles are the azimuths each subject is tested at before snapping.
var CanonicalAngles = []int{-180, -90, 0, 90}

// DefaultTrialCount is the number of trials per subject.
const DefaultTrialCount = 4

// SelectTrialAngles picks the preset azimuths for one subject.
//
// The canonical angles are snapped to available and split into negative and
// non-negative presets. When fewer than two negative presets result, the two
// most negative catalog azimuths are used instead, and the non-negative side
// falls back to the two smallest non-negative catalog azimuths if empty.
// Otherwise at most two of each side are kept. The result holds every
// negative preset plus draws with replacement from both sides until count is
// reached, in shuffled order.
func SelectTrialAngles(available, canonical []int, count int, rng *rand.Rand) []int {
	if len(available) == 0 {
		return nil
	}
	sorted := slices.Clone(available)
	slices.Sort(sorted)

	var neg, pos []int
	for _, c := range canonical {
		s, _ := hrir.Snap(float64(c), available)
		if s < 0 {
			neg = append(neg, int(s))
		} else {
			pos = append(pos, int(s))
		}
	}

	if len(neg) < 2 {
		neg = neg[:0]
		for _, a := range sorted {
			if a < 0 && len(neg) < 2 {
				neg = append(neg, a)
			}
		}
		if len(pos) == 0 {
			for _, a := range sorted {
				if a >= 0 && len(pos) < 2 {
					pos = append(pos, a)
				}
			}
		}
	} else {
		neg = neg[:2]
		if len(pos) > 2 {
			pos = pos[:2]
		}
	}

	pool := slices.Concat(neg, pos)
	trials := slices.Clone(neg)
	for len(trials) < count && len(pool) > 0 {
		trials = append(trials, pool[rng.Intn(len(pool))])
	}
	rng.Shuffle(len(trials), func(i, j int) {
		trials[i], trials[j] = trials[j], trials[i]
	})
	return trials
}
