package eq

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-analog/internal/testutil"
)

func renderSaturated(t *testing.T, console Console, seed int64, freq, amp, drive float64, n int) []float64 {
	t.Helper()
	s, err := NewSSLSaturation(48000, WithSeed(seed))
	if err != nil {
		t.Fatal(err)
	}
	s.SetConsole(console)

	in := testutil.DeterministicSine(freq, 48000, amp, n)
	out := make([]float64, len(in))
	for i, x := range in {
		out[i] = s.Process(x, drive)
	}
	return out
}

func TestSSLSaturationZeroDrivePassThrough(t *testing.T) {
	s, err := NewSSLSaturation(48000)
	if err != nil {
		t.Fatal(err)
	}

	in := testutil.DeterministicSine(1000, 48000, 0.8, 512)
	for i, x := range in {
		if got := s.Process(x, 0); got != x {
			t.Fatalf("sample %d: got %v, want dry %v", i, got, x)
		}
	}
}

func TestSSLSaturationNaNInputReturnsSilence(t *testing.T) {
	s, err := NewSSLSaturation(48000)
	if err != nil {
		t.Fatal(err)
	}

	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if got := s.Process(bad, 0.8); got != 0 {
			t.Errorf("Process(%v) = %v, want 0", bad, got)
		}
	}
}

func TestSSLSaturationRejectsBadSampleRate(t *testing.T) {
	for _, sr := range []float64{0, -48000, math.NaN(), math.Inf(1)} {
		if _, err := NewSSLSaturation(sr); err == nil {
			t.Errorf("NewSSLSaturation(%v): expected error", sr)
		}
	}
}

func TestSSLSaturationSeedDeterminism(t *testing.T) {
	a := renderSaturated(t, ConsoleESeries, 42, 1000, 0.5, 0.7, 4800)
	b := renderSaturated(t, ConsoleESeries, 42, 1000, 0.5, 0.7, 4800)
	testutil.RequireSliceNearlyEqual(t, a, b, 0)

	c := renderSaturated(t, ConsoleESeries, 43, 1000, 0.5, 0.7, 4800)
	diff, err := testutil.MaxAbsDiff(a, c)
	if err != nil {
		t.Fatal(err)
	}
	if diff == 0 {
		t.Error("different seeds produced identical renders")
	}
}

func TestSSLSaturationHarmonicSignature(t *testing.T) {
	eSeries := testutil.HarmonicLevels(
		renderSaturated(t, ConsoleESeries, 7, 1000, 0.5, 0.6, 32768), 1000, 48000, 4)
	if eSeries == nil {
		t.Fatal("no harmonic analysis for E-Series render")
	}
	if eSeries[1] <= eSeries[2] {
		t.Errorf("E-Series should be 2nd-dominant: H2 %v <= H3 %v", eSeries[1], eSeries[2])
	}

	gSeries := testutil.HarmonicLevels(
		renderSaturated(t, ConsoleGSeries, 7, 1000, 0.5, 0.6, 32768), 1000, 48000, 4)
	if gSeries == nil {
		t.Fatal("no harmonic analysis for G-Series render")
	}
	if gSeries[2] <= gSeries[1] {
		t.Errorf("G-Series should be 3rd-dominant: H3 %v <= H2 %v", gSeries[2], gSeries[1])
	}
}

func TestSSLSaturationBacksOffAtHighFrequencies(t *testing.T) {
	low := testutil.HarmonicLevels(
		renderSaturated(t, ConsoleESeries, 7, 1000, 0.25, 0.5, 32768), 1000, 48000, 3)
	high := testutil.HarmonicLevels(
		renderSaturated(t, ConsoleESeries, 7, 6000, 0.25, 0.5, 32768), 6000, 48000, 3)
	if low == nil || high == nil {
		t.Fatal("no harmonic analysis")
	}

	// The HF-content estimator trims the drive on bright material, so
	// the 6 kHz tone distorts less than the 1 kHz tone.
	if high[1] >= low[1] {
		t.Errorf("HF drive reduction missing: H2 at 6 kHz %v >= H2 at 1 kHz %v", high[1], low[1])
	}
}

func TestSSLSaturationBlocksDC(t *testing.T) {
	out := renderSaturated(t, ConsoleESeries, 7, 1000, 0.6, 0.9, 48000)

	sum := 0.0
	tail := out[24000:]
	for _, v := range tail {
		sum += v
	}
	if mean := math.Abs(sum / float64(len(tail))); mean > 0.005 {
		t.Errorf("residual DC offset %v after blocker", mean)
	}
}
