package dynamics

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-analog/internal/testutil"
)

func TestAntiAliasingUnpreparedPassThrough(t *testing.T) {
	var aa AntiAliasing

	for _, x := range []float64{0, 0.5, -1.2, 3} {
		if got := aa.PreProcess(x, 0); got != x {
			t.Errorf("PreProcess(%v): got %v, want pass-through", x, got)
		}
		if got := aa.PostProcess(x, 0); got != x {
			t.Errorf("PostProcess(%v): got %v, want pass-through", x, got)
		}
	}
	if aa.Latency() != 0 {
		t.Errorf("unprepared latency: got %d, want 0", aa.Latency())
	}
}

func TestAntiAliasingPostProcessBlocksDC(t *testing.T) {
	var aa AntiAliasing
	if err := aa.Prepare(48000, 1); err != nil {
		t.Fatal(err)
	}

	var out float64
	for i := 0; i < 20000; i++ {
		out = aa.PostProcess(0.5, 0)
	}

	if math.Abs(out) > 0.05 {
		t.Errorf("DC not blocked: settled at %v", out)
	}
}

func TestAntiAliasingUpDownRoundTrip(t *testing.T) {
	var aa AntiAliasing
	if err := aa.Prepare(48000, 1); err != nil {
		t.Fatal(err)
	}

	in := testutil.DeterministicSine(1000, 48000, 0.5, 1024)
	os := make([]float64, 2048)
	out := make([]float64, 1024)

	aa.Upsample2x(in, os, 0)
	aa.Downsample2x(os, out, 0)

	testutil.RequireFinite(t, out)

	// Compare steady-state RMS, skipping the filter transient.
	inRMS := rms(in[512:])
	outRMS := rms(out[512:])
	if math.Abs(outRMS-inRMS)/inRMS > 0.2 {
		t.Errorf("round trip RMS: got %v, want about %v", outRMS, inRMS)
	}
}

func TestAntiAliasingPrepareRejectsBadInput(t *testing.T) {
	var aa AntiAliasing
	if err := aa.Prepare(0, 2); err == nil {
		t.Error("zero sample rate: want error")
	}
	if err := aa.Prepare(48000, 0); err == nil {
		t.Error("zero channels: want error")
	}
}

func TestCubicClip(t *testing.T) {
	tests := []struct {
		name string
		in   float64
	}{
		{"small positive", 0.2},
		{"small negative", -0.3},
		{"knee region", 0.5},
		{"hard region", 0.9},
		{"way over", 5},
		{"way under", -5},
	}

	for _, tt := range tests {
		got := cubicClip(tt.in)
		if math.Abs(got) > 1 {
			t.Errorf("%s: |cubicClip(%v)| = %v exceeds 1", tt.name, tt.in, got)
		}
		if math.Abs(tt.in) < 1.0/3.0 && got != tt.in {
			t.Errorf("%s: linear region altered %v -> %v", tt.name, tt.in, got)
		}
	}
}

func rms(data []float64) float64 {
	sum := 0.0
	for _, v := range data {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(data)))
}
