package dynamics

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-analog/internal/testutil"
)

func TestVCABelowThresholdUnity(t *testing.T) {
	v, err := NewVCA(48000, 1)
	if err != nil {
		t.Fatal(err)
	}

	in := testutil.DeterministicSine(1000, 48000, 0.01, 9600)
	p := VCAParams{ThresholdDB: -20, Ratio: 4, AttackMs: 15, ReleaseMs: 200}
	out := make([]float64, len(in))
	for i, x := range in {
		out[i] = v.Process(x, 0, p)
	}

	testutil.RequireFinite(t, out)
	if gr := v.GainReduction(0); gr < -0.5 {
		t.Errorf("below-threshold gain reduction: got %v dB, want near 0", gr)
	}

	ratio := rms(out[4800:]) / rms(in[4800:])
	if math.Abs(ratio-1) > 0.05 {
		t.Errorf("below-threshold level: got ratio %v, want near 1", ratio)
	}
}

func TestVCACompressesAboveThreshold(t *testing.T) {
	v, err := NewVCA(48000, 1)
	if err != nil {
		t.Fatal(err)
	}

	in := testutil.DeterministicSine(1000, 48000, 0.5, 48000)
	p := VCAParams{ThresholdDB: -30, Ratio: 10, AttackMs: 15, ReleaseMs: 200}
	for _, x := range in {
		v.Process(x, 0, p)
	}

	if gr := v.GainReduction(0); gr > -6 {
		t.Errorf("above-threshold gain reduction: got %v dB, want < -6", gr)
	}
}

func TestVCAGainComputer(t *testing.T) {
	const (
		thresholdDB = -20.0
		ratio       = 4.0
	)
	slope := 1 - 1/ratio

	tests := []struct {
		name     string
		levelDB  float64
		overEasy bool
		want     float64
		eps      float64
	}{
		{"far below hard", -40, false, 0, 1e-12},
		{"at threshold hard", -20, false, 0, 1e-9},
		{"10 over hard", -10, false, 10 * slope, 1e-9},
		{"below knee overeasy", -26, true, 0, 1e-12},
		{"knee end overeasy", -15, true, 5 * slope, 1e-9},
		{"10 over overeasy", -10, true, 10 * slope, 1e-9},
	}

	for _, tt := range tests {
		level := decibelsToGain(tt.levelDB)
		got := vcaGainComputer(level, thresholdDB, ratio, tt.overEasy)
		if math.Abs(got-tt.want) > tt.eps+1e-6 {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestVCAGainComputerKneeMonotonic(t *testing.T) {
	prev := -1.0
	for over := -6.0; over <= 6.0; over += 0.25 {
		level := decibelsToGain(-20 + over)
		got := vcaGainComputer(level, -20, 8, true)
		if got < prev-1e-9 {
			t.Fatalf("OverEasy knee not monotonic at %v dB over: %v < %v", over, got, prev)
		}
		prev = got
	}
}

func TestVCAInfinityRatioRepresentation(t *testing.T) {
	// Ratio 120 stands in for infinity: at 10 dB over threshold the
	// reduction approaches the full overshoot.
	level := decibelsToGain(-10.0)
	got := vcaGainComputer(level, -20, 120, false)
	if math.Abs(got-10*(1-1.0/120)) > 1e-6 {
		t.Errorf("limiting ratio: got %v, want near 10", got)
	}
}
