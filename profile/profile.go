package profile

import (
	"maps"
	"time"

	"github.com/cwbudde/algo-binaural/calibration"
	"github.com/cwbudde/algo-binaural/estimate"
)

// TimestampLayout is the layout of Profile.Timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

// ReferenceRadius is the effective radius, in cm, at which measured impulse
// responses are used unscaled.
const ReferenceRadius = 8.5

// Stem names with a direction in every profile.
var StemNames = []string{"bass", "vocals", "drums", "other"}

// SubjectData is the raw calibration record of one subject.
type SubjectData struct {
	PresetAngles []int     `json:"preset_angles"`
	Responses    []float64 `json:"responses"`
}

// CalibrationData maps subject ids to their raw calibration records.
type CalibrationData map[string]SubjectData

// Profile is a listener's personalization.
type Profile struct {
	HeadWidth       float64            `json:"head_width"`
	HeadLength      float64            `json:"head_length"`
	EffectiveRadius float64            `json:"effective_radius"`
	HRTFSubject     string             `json:"hrtf_subject"`
	StemDirections  map[string]float64 `json:"stem_directions"`
	CalibrationData CalibrationData    `json:"calibration_data"`
	Timestamp       string             `json:"timestamp"`
}

// Default returns the profile used when no usable document exists.
func Default() *Profile {
	return &Profile{
		HeadWidth:       15.2,
		HeadLength:      19.0,
		EffectiveRadius: ReferenceRadius,
		HRTFSubject:     "003",
		StemDirections:  zeroStems(),
		CalibrationData: CalibrationData{},
	}
}

func zeroStems() map[string]float64 {
	m := make(map[string]float64, len(StemNames))
	for _, s := range StemNames {
		m[s] = 0
	}
	return m
}

// FromCalibration builds a profile from a classified session. All stems
// start at 0 degrees.
func FromCalibration(c estimate.Classification, s *calibration.Session, now time.Time) *Profile {
	p := &Profile{
		HeadWidth:       c.Estimate.Params.Width,
		HeadLength:      c.Estimate.Params.Length,
		EffectiveRadius: c.Estimate.Params.Radius,
		HRTFSubject:     c.Reference.Subject,
		StemDirections:  zeroStems(),
		CalibrationData: CalibrationData{},
		Timestamp:       now.Format(TimestampLayout),
	}
	if s == nil {
		return p
	}
	for _, st := range s.Subjects {
		var d SubjectData
		for _, t := range st.Trials {
			d.PresetAngles = append(d.PresetAngles, t.Preset)
			d.Responses = append(d.Responses, t.Response)
		}
		p.CalibrationData[st.Subject] = d
	}
	return p
}

// Clone returns a deep copy of p. Stems missing from p are set to 0 degrees
// in the copy.
func (p *Profile) Clone() *Profile {
	c := *p
	c.StemDirections = zeroStems()
	maps.Copy(c.StemDirections, p.StemDirections)
	c.CalibrationData = make(CalibrationData, len(p.CalibrationData))
	for k, v := range p.CalibrationData {
		c.CalibrationData[k] = SubjectData{
			PresetAngles: append([]int(nil), v.PresetAngles...),
			Responses:    append([]float64(nil), v.Responses...),
		}
	}
	return &c
}

// Direction returns the azimuth of stem, 0 when unset.
func (p *Profile) Direction(stem string) float64 {
	return p.StemDirections[stem]
}

// ReferenceLabel returns the reference head label of the profile's subject,
// or "custom" for subjects outside the reference table.
func (p *Profile) ReferenceLabel() string {
	if r, ok := estimate.ReferenceFor(p.HRTFSubject); ok {
		return r.Label
	}
	return "custom"
}

// Scale returns EffectiveRadius / ReferenceRadius.
func (p *Profile) Scale() float64 {
	return p.EffectiveRadius / ReferenceRadius
}
