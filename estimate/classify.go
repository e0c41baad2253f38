package estimate

import (
	"errors"
	"log/slog"

	"github.com/cwbudde/algo-binaural/calibration"
)

// Reference is a known head with the catalog subject measured on it.
type Reference struct {
	Label   string
	Subject string
	Params  HeadParams
}

// References is the default reference table. The first entry doubles as
// the fallback when a session yields no usable subject.
var References = []Reference{
	{Label: "male", Subject: "003", Params: HeadParams{Width: 15.2, Length: 19.0, Radius: 8.6}},
	{Label: "female", Subject: "019", Params: HeadParams{Width: 14.5, Length: 18.2, Radius: 8.2}},
}

// ReferenceFor returns the entry of References measured on subject.
func ReferenceFor(subject string) (Reference, bool) {
	for _, r := range References {
		if r.Subject == subject {
			return r, true
		}
	}
	return Reference{}, false
}

// Nearest returns the reference closest to p and its distance. Earlier
// entries win ties. refs must not be empty.
func Nearest(p HeadParams, refs []Reference) (Reference, float64) {
	best := refs[0]
	bestDist := p.Distance(best.Params)
	for _, r := range refs[1:] {
		if d := p.Distance(r.Params); d < bestDist {
			best, bestDist = r, d
		}
	}
	return best, bestDist
}

// Classification is the outcome of Classify.
type Classification struct {
	// Subject is the session subject whose estimate was closest to a reference.
	Subject string
	// Reference is the matched reference; Reference.Subject is the HRIR
	// subject to render with.
	Reference Reference
	Estimate  Estimate
	Distance  float64
	// Fallback is set when no subject produced an estimate; Estimate then
	// carries the reference parameters.
	Fallback bool
}

type classifyConfig struct {
	refs   []Reference
	logger *slog.Logger
}

// ClassifyOption configures Classify.
type ClassifyOption func(*classifyConfig)

// WithReferences replaces the reference table.
func WithReferences(refs []Reference) ClassifyOption {
	return func(cfg *classifyConfig) {
		if len(refs) > 0 {
			cfg.refs = refs
		}
	}
}

// WithLogger sets the logger used for estimation warnings.
func WithLogger(logger *slog.Logger) ClassifyOption {
	return func(cfg *classifyConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// Classify estimates head parameters for every subject of session, in
// session order, and keeps the subject whose parameters lie closest to any
// reference. The first subject reaching the minimum distance wins.
func Classify(session *calibration.Session, est Estimator, opts ...ClassifyOption) Classification {
	cfg := classifyConfig{refs: References, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	var (
		result Classification
		found  bool
	)
	if session != nil {
		for _, st := range session.Subjects {
			e, err := est.Estimate(st.Trials)
			if err != nil {
				if !errors.Is(err, ErrDegenerate) {
					cfg.logger.Warn("estimation failed", "subject", st.Subject, "error", err)
				}
				continue
			}
			if e.HighDeviation {
				cfg.logger.Warn("high localization deviation, rear estimates unreliable",
					"subject", st.Subject, "mean_deviation", e.MeanDeviation)
			}
			ref, dist := Nearest(e.Params, cfg.refs)
			cfg.logger.Debug("subject estimated", "subject", st.Subject,
				"width", e.Params.Width, "length", e.Params.Length, "radius", e.Params.Radius,
				"reference", ref.Label, "distance", dist)
			if !found || dist < result.Distance {
				result = Classification{Subject: st.Subject, Reference: ref, Estimate: e, Distance: dist}
				found = true
			}
		}
	}

	if !found {
		ref := cfg.refs[0]
		cfg.logger.Warn("no usable calibration responses, using reference defaults",
			"reference", ref.Label, "subject", ref.Subject)
		return Classification{
			Subject:   ref.Subject,
			Reference: ref,
			Estimate:  Estimate{Params: ref.Params},
			Fallback:  true,
		}
	}
	return result
}
