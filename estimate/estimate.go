package estimate

import (
	"errors"
	"math"

	"github.com/cwbudde/algo-binaural/calibration"
)

// ErrDegenerate is returned when there are no trials to estimate from.
var ErrDegenerate = errors.New("estimate: no usable trials")

// HighDeviationDegrees is the mean deviation above which an estimate is
// flagged as unreliable.
const HighDeviationDegrees = 20.0

// HeadParams are head measurements in centimeters.
type HeadParams struct {
	Width  float64
	Length float64
	Radius float64
}

// Distance returns the Euclidean distance between p and q.
func (p HeadParams) Distance(q HeadParams) float64 {
	dw := p.Width - q.Width
	dl := p.Length - q.Length
	dr := p.Radius - q.Radius
	return math.Sqrt(dw*dw + dl*dl + dr*dr)
}

// Estimate is the result of an Estimator.
type Estimate struct {
	Params HeadParams
	// MeanDeviation is the mean |response - preset| in degrees.
	MeanDeviation float64
	// HighDeviation is set when MeanDeviation exceeds HighDeviationDegrees.
	HighDeviation bool
}

// Estimator derives head parameters from one subject's trials.
type Estimator interface {
	Estimate(trials []calibration.Trial) (Estimate, error)
}

// MeanDeviation returns the mean absolute localization error of trials.
func MeanDeviation(trials []calibration.Trial) (float64, error) {
	if len(trials) == 0 {
		return 0, ErrDegenerate
	}
	var sum float64
	for _, t := range trials {
		sum += t.Deviation()
	}
	return sum / float64(len(trials)), nil
}

func newEstimate(p HeadParams, meanDev float64) Estimate {
	return Estimate{
		Params:        p,
		MeanDeviation: meanDev,
		HighDeviation: meanDev > HighDeviationDegrees,
	}
}
