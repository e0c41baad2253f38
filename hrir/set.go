package hrir

import (
	"errors"
	"fmt"
)

// DefaultSampleRate is assumed for JSON records that omit sample_rate.
const DefaultSampleRate = 44100

var (
	// ErrMissingHRIR is returned when no record exists for a subject and azimuth.
	ErrMissingHRIR = errors.New("hrir: missing record")
	// ErrMalformedHRIR is returned when a record lacks a channel or cannot be decoded.
	ErrMalformedHRIR = errors.New("hrir: malformed record")
)

// Set is one measured left/right impulse-response pair.
type Set struct {
	Subject    string
	Azimuth    int
	Left       []float64
	Right      []float64
	SampleRate int
}

// Taps returns the length of the longer channel.
func (s *Set) Taps() int {
	return max(len(s.Left), len(s.Right))
}

// LookupError describes a failed catalog lookup.
type LookupError struct {
	Subject string
	Azimuth int
	Path    string
	Err     error
}

func (e *LookupError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("hrir: subject %s azimuth %d: %v", e.Subject, e.Azimuth, e.Err)
	}
	return fmt.Sprintf("hrir: subject %s azimuth %d (%s): %v", e.Subject, e.Azimuth, e.Path, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// Source serves impulse responses. [Catalog] is the file-backed implementation.
type Source interface {
	// Angles returns the sorted measured azimuths for subject.
	Angles(subject string) []int
	// Snap maps angle to the nearest measured azimuth of subject.
	Snap(subject string, angle float64) (float64, bool)
	// Load returns the impulse-response pair at an exact azimuth.
	Load(subject string, azimuth int) (*Set, error)
}
