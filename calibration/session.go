package calibration

import "math"

// Trial is one recorded localization answer.
type Trial struct {
	Subject  string
	Preset   int
	Response float64
}

// Deviation returns |Response - Preset| in degrees.
func (t Trial) Deviation() float64 {
	return math.Abs(t.Response - float64(t.Preset))
}

// SubjectTrials groups the trials recorded for one subject.
type SubjectTrials struct {
	Subject string
	Trials  []Trial
}

// Session holds the trials of one calibration run, grouped by subject in
// the order the subjects were tested.
type Session struct {
	Subjects []SubjectTrials
}

// Add appends t to its subject group, creating the group on first use.
func (s *Session) Add(t Trial) {
	for i := range s.Subjects {
		if s.Subjects[i].Subject == t.Subject {
			s.Subjects[i].Trials = append(s.Subjects[i].Trials, t)
			return
		}
	}
	s.Subjects = append(s.Subjects, SubjectTrials{Subject: t.Subject, Trials: []Trial{t}})
}

// Trials returns the trials recorded for subject.
func (s *Session) Trials(subject string) []Trial {
	for _, st := range s.Subjects {
		if st.Subject == subject {
			return st.Trials
		}
	}
	return nil
}

// Len returns the total number of recorded trials.
func (s *Session) Len() int {
	n := 0
	for _, st := range s.Subjects {
		n += len(st.Trials)
	}
	return n
}
