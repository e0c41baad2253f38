package estimate

import "github.com/cwbudde/algo-binaural/calibration"

// Regression maps mean deviation d (degrees) to
//
//	width  = 0.45*d + 14.2
//	length = 0.32*d + 17.8
//	radius = 0.51*d + 3.2
type Regression struct{}

// Estimate implements Estimator.
func (Regression) Estimate(trials []calibration.Trial) (Estimate, error) {
	d, err := MeanDeviation(trials)
	if err != nil {
		return Estimate{}, err
	}
	return newEstimate(HeadParams{
		Width:  0.45*d + 14.2,
		Length: 0.32*d + 17.8,
		Radius: 0.51*d + 3.2,
	}, d), nil
}
