package render

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-binaural/internal/testutil"
)

func TestToMono(t *testing.T) {
	x := []float64{0.1, -0.2}
	got, err := ToMono(Mono("bass", x))
	if err != nil {
		t.Fatalf("ToMono(mono) error = %v", err)
	}
	testutil.RequireSliceNearlyEqual(t, got, x, 0)

	got, err = ToMono(StereoStem("drums", []float64{1, 1, 0}, []float64{1, -3, 0}))
	if err != nil {
		t.Fatalf("ToMono(stereo) error = %v", err)
	}
	testutil.RequireSliceNearlyEqual(t, got, []float64{0.5, -0.5, 0}, 1e-15)

	got, err = ToMono(StereoStem("other", make([]float64, 8), make([]float64, 8)))
	if err != nil {
		t.Fatalf("ToMono(silent) error = %v", err)
	}
	testutil.RequireAllZero(t, got)
}

func TestToMonoErrors(t *testing.T) {
	if _, err := ToMono(Mono("bass", nil)); !errors.Is(err, ErrEmptyStem) {
		t.Fatalf("err = %v, want ErrEmptyStem", err)
	}
	if _, err := ToMono(Stem{Name: "x"}); !errors.Is(err, ErrEmptyStem) {
		t.Fatalf("err = %v, want ErrEmptyStem", err)
	}
	if _, err := ToMono(StereoStem("x", []float64{1, 2}, []float64{1})); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("err = %v, want ErrLengthMismatch", err)
	}
	three := Stem{Name: "x", Channels: [][]float64{{1}, {1}, {1}}}
	if _, err := ToMono(three); !errors.Is(err, ErrChannels) {
		t.Fatalf("err = %v, want ErrChannels", err)
	}
}

func TestMix(t *testing.T) {
	a := Stereo{Left: []float64{1, 2}, Right: []float64{0, 1}}
	b := Stereo{Left: []float64{3, -2}, Right: []float64{1, 1}}

	got, err := Mix([]Stereo{a, b}, 0.5)
	if err != nil {
		t.Fatalf("Mix() error = %v", err)
	}
	testutil.RequireSliceNearlyEqual(t, got.Left, []float64{2, 0}, 1e-15)
	testutil.RequireSliceNearlyEqual(t, got.Right, []float64{0.5, 1}, 1e-15)

	silent, err := Mix([]Stereo{a, b}, 0)
	if err != nil {
		t.Fatalf("Mix(volume 0) error = %v", err)
	}
	testutil.RequireAllZero(t, silent.Left)
	testutil.RequireAllZero(t, silent.Right)

	if a.Left[0] != 1 {
		t.Fatal("Mix modified its input")
	}
}

func TestMixErrors(t *testing.T) {
	if _, err := Mix(nil, 1); !errors.Is(err, ErrNoStems) {
		t.Fatalf("err = %v, want ErrNoStems", err)
	}
	a := Stereo{Left: []float64{1, 2}, Right: []float64{1, 2}}
	b := Stereo{Left: []float64{1}, Right: []float64{1}}
	if _, err := Mix([]Stereo{a, b}, 1); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("err = %v, want ErrLengthMismatch", err)
	}
}

func TestEnergy(t *testing.T) {
	s := Stereo{Left: []float64{1, 2}, Right: []float64{2, 0}}
	if got := Energy(s); math.Abs(got-9) > 1e-12 {
		t.Fatalf("Energy() = %v, want 9", got)
	}
	if got := Energy(Stereo{}); got != 0 {
		t.Fatalf("Energy(empty) = %v, want 0", got)
	}
}
