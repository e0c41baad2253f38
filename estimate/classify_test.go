package estimate

import (
	"testing"

	"github.com/cwbudde/algo-binaural/calibration"
)

func session(groups ...[]calibration.Trial) *calibration.Session {
	s := &calibration.Session{}
	for _, g := range groups {
		for _, tr := range g {
			s.Add(tr)
		}
	}
	return s
}

func TestClassifyPerfectLocalization(t *testing.T) {
	s := session(trials("003", -90, -90, -45, -45, 0, 0, 90, 90))
	c := Classify(s, Regression{})
	if c.Fallback {
		t.Fatal("unexpected fallback")
	}
	// {14.2, 17.8, 3.2} lies closer to the female reference.
	if c.Subject != "003" || c.Reference.Label != "female" || c.Reference.Subject != "019" {
		t.Fatalf("classification = %+v", c)
	}
	want := HeadParams{Width: 14.2, Length: 17.8, Radius: 3.2}.Distance(References[1].Params)
	if !almostEqual(c.Distance, want, eps) {
		t.Fatalf("distance = %v, want %v", c.Distance, want)
	}
}

func TestClassifyPicksClosestSubject(t *testing.T) {
	// Mean deviation 10 lands nearer to both references than deviation 0.
	s := session(
		trials("019", 0, 0),
		trials("003", 0, 10),
	)
	c := Classify(s, Regression{})
	if c.Subject != "003" {
		t.Fatalf("subject = %q, want 003", c.Subject)
	}
	if c.Reference.Label != "male" {
		t.Fatalf("reference = %q, want male", c.Reference.Label)
	}
}

func TestClassifyFirstSubjectWinsTies(t *testing.T) {
	s := session(
		trials("019", 0, 5),
		trials("003", 90, 85),
	)
	c := Classify(s, Regression{})
	if c.Subject != "019" {
		t.Fatalf("subject = %q, want first seen 019", c.Subject)
	}
}

func TestClassifyFallback(t *testing.T) {
	for _, s := range []*calibration.Session{nil, {}, {Subjects: []calibration.SubjectTrials{{Subject: "003"}}}} {
		c := Classify(s, SphericalHeadModel{})
		if !c.Fallback {
			t.Fatal("expected fallback")
		}
		if c.Reference.Subject != "003" || c.Estimate.Params != References[0].Params {
			t.Fatalf("fallback = %+v, want male reference and subject 003", c)
		}
	}
}

func TestClassifyCustomReferences(t *testing.T) {
	refs := []Reference{{Label: "small", Subject: "100", Params: HeadParams{Width: 14.2, Length: 17.8, Radius: 3.2}}}
	c := Classify(session(trials("003", 0, 0)), Regression{}, WithReferences(refs))
	if c.Reference.Subject != "100" || c.Distance != 0 {
		t.Fatalf("classification = %+v", c)
	}
}

func TestReferenceFor(t *testing.T) {
	if r, ok := ReferenceFor("019"); !ok || r.Label != "female" {
		t.Fatalf("ReferenceFor(019) = %+v, %v", r, ok)
	}
	if _, ok := ReferenceFor("042"); ok {
		t.Fatal("ReferenceFor(042) should not match")
	}
}
