package shifter

import (
	"math"
	"testing"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(NewParameters(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestCutoffsOctaveUp(t *testing.T) {
	const fs = 44100.0
	e := newTestEngine(t, WithSampleRate(fs), WithWindowLength(1024), WithGuardMargin(0.2))

	m := math.Exp2(0.2)
	preLow, preHigh, postLow, postHigh := e.cutoffs(2)

	if want := fs / 2 / (2 * m); math.Abs(preLow-want) > 1e-9 {
		t.Errorf("preLow = %g, want %g", preLow, want)
	}
	// Shifting up creates no images below Nyquist, so the post lowpass sits
	// at the designable ceiling.
	if want := maxCutoffFraction * fs; math.Abs(postLow-want) > 1e-9 {
		t.Errorf("postLow = %g, want %g", postLow, want)
	}
	floorBase := fs / (1024.0 / windowDivisor) * m
	if want := floorBase / 2; math.Abs(preHigh-want) > 1e-9 {
		t.Errorf("preHigh = %g, want %g", preHigh, want)
	}
	if math.Abs(postHigh-floorBase) > 1e-9 {
		t.Errorf("postHigh = %g, want %g", postHigh, floorBase)
	}
}

func TestCutoffsOctaveDown(t *testing.T) {
	const fs = 44100.0
	e := newTestEngine(t, WithSampleRate(fs), WithWindowLength(1024), WithGuardMargin(0.2))

	m := math.Exp2(0.2)
	preLow, preHigh, postLow, postHigh := e.cutoffs(0.5)

	// Half-rate input content never scales past Nyquist, so the pre lowpass
	// is only bounded by the designable ceiling.
	if want := maxCutoffFraction * fs; math.Abs(preLow-want) > 1e-9 {
		t.Errorf("preLow = %g, want %g", preLow, want)
	}
	if want := fs / 2 * 0.5 / m; math.Abs(postLow-want) > 1e-9 {
		t.Errorf("postLow = %g, want %g", postLow, want)
	}
	floorBase := fs / (1024.0 / windowDivisor) * m
	if want := floorBase / 0.5; math.Abs(preHigh-want) > 1e-9 {
		t.Errorf("preHigh = %g, want %g", preHigh, want)
	}
	if math.Abs(postHigh-floorBase) > 1e-9 {
		t.Errorf("postHigh = %g, want %g", postHigh, floorBase)
	}
}

func TestCutoffsStayDesignable(t *testing.T) {
	// Even extreme ratios must never push a cutoff to or past Nyquist,
	// where the filter design has no solution.
	for _, fs := range []float64{8000, 44100, 192000} {
		e := newTestEngine(t, WithSampleRate(fs))
		for _, ratio := range []float64{0.25, 0.5, 1, 2, 4} {
			preLow, preHigh, postLow, postHigh := e.cutoffs(ratio)
			for _, f := range []float64{preLow, preHigh, postLow, postHigh} {
				if f < 1 || f >= fs/2 {
					t.Errorf("fs %g ratio %g: cutoff %g outside (0, Nyquist)", fs, ratio, f)
				}
			}
		}
	}
}

func TestRescheduleUpdatesPhaseIncrement(t *testing.T) {
	e := newTestEngine(t, WithWindowLength(1024))

	e.reschedule(2)
	if want := twoPi / 1024; math.Abs(e.deltaOmega-want) > 1e-15 {
		t.Errorf("deltaOmega at ratio 2 = %g, want %g", e.deltaOmega, want)
	}
	e.reschedule(0.5)
	if want := -twoPi / 2048; math.Abs(e.deltaOmega-want) > 1e-15 {
		t.Errorf("deltaOmega at ratio 0.5 = %g, want %g", e.deltaOmega, want)
	}
	e.reschedule(1)
	if e.deltaOmega != 0 {
		t.Errorf("deltaOmega at ratio 1 = %g, want 0", e.deltaOmega)
	}
}

func TestRescheduleCache(t *testing.T) {
	e := newTestEngine(t)
	in := zeroBlock(64)
	out := zeroBlock(64)

	// The first block always schedules; later blocks at the same ratio
	// must not.
	for i := 0; i < 5; i++ {
		if err := e.ProcessFloat64(in, out); err != nil {
			t.Fatal(err)
		}
	}
	if e.reschedules != 1 {
		t.Fatalf("reschedules after 5 constant-ratio blocks = %d, want 1", e.reschedules)
	}

	e.params.SetPitch(0.5)
	if err := e.ProcessFloat64(in, out); err != nil {
		t.Fatal(err)
	}
	if e.reschedules != 2 {
		t.Fatalf("reschedules after ratio change = %d, want 2", e.reschedules)
	}
	if err := e.ProcessFloat64(in, out); err != nil {
		t.Fatal(err)
	}
	if e.reschedules != 2 {
		t.Fatalf("reschedules after repeated ratio = %d, want 2", e.reschedules)
	}

	// A sample rate change invalidates the cache even at an unchanged ratio.
	if err := e.SetSampleRate(48000); err != nil {
		t.Fatal(err)
	}
	if err := e.ProcessFloat64(in, out); err != nil {
		t.Fatal(err)
	}
	if e.reschedules != 3 {
		t.Fatalf("reschedules after sample rate change = %d, want 3", e.reschedules)
	}
}

func zeroBlock(frames int) [][]float64 {
	b := make([][]float64, ChannelCount)
	for ch := range b {
		b[ch] = make([]float64, frames)
	}
	return b
}
