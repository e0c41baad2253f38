package estimate

import (
	"math"

	"github.com/cwbudde/algo-binaural/calibration"
	"github.com/cwbudde/algo-binaural/dsp/core"
)

// SpeedOfSound in m/s.
const SpeedOfSound = 343.0

// Default candidate grid, in centimeters.
var (
	DefaultWidths  = core.Linspace(13, 17, 20)
	DefaultLengths = core.Linspace(15, 22, 20)
)

// SphericalHeadModel picks the (width, length) candidate whose interaural
// delays at the preset and perceived azimuths agree best, in the least
// squares sense. Nil grids use DefaultWidths and DefaultLengths. The first
// candidate in width-major order wins ties.
type SphericalHeadModel struct {
	Widths  []float64
	Lengths []float64
}

// EffectiveRadius returns the head radius in cm for width and length in cm.
func EffectiveRadius(width, length float64) float64 {
	return 0.51*(width/2) + 0.18*(length/2) + 3.2
}

// InterauralDelay returns the spherical-head interaural time difference in
// seconds for a source at azimuthDeg and a head of radiusCm.
func InterauralDelay(azimuthDeg, radiusCm float64) float64 {
	return (radiusCm / 100) * (1 + math.Sin(math.Abs(core.DegToRad(azimuthDeg)))) / SpeedOfSound
}

// Estimate implements Estimator.
func (m SphericalHeadModel) Estimate(trials []calibration.Trial) (Estimate, error) {
	d, err := MeanDeviation(trials)
	if err != nil {
		return Estimate{}, err
	}
	widths, lengths := m.Widths, m.Lengths
	if len(widths) == 0 {
		widths = DefaultWidths
	}
	if len(lengths) == 0 {
		lengths = DefaultLengths
	}

	var best HeadParams
	bestErr := math.Inf(1)
	for _, w := range widths {
		for _, l := range lengths {
			r := EffectiveRadius(w, l)
			var sse float64
			for _, t := range trials {
				diff := InterauralDelay(float64(t.Preset), r) - InterauralDelay(t.Response, r)
				sse += diff * diff
			}
			if sse < bestErr {
				best = HeadParams{Width: w, Length: l, Radius: r}
				bestErr = sse
			}
		}
	}
	return newEstimate(best, d), nil
}
