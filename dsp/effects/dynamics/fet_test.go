package dynamics

import (
	"testing"

	"github.com/cwbudde/algo-analog/internal/testutil"
)

func TestFETQuietSignalNearUnity(t *testing.T) {
	f, err := NewFET(48000, 1)
	if err != nil {
		t.Fatal(err)
	}

	// -40 dBFS stays far under the fixed -10 dBFS threshold.
	in := testutil.DeterministicSine(1000, 48000, 0.01, 9600)
	out := make([]float64, len(in))
	p := FETParams{AttackMs: 0.4, ReleaseMs: 200, RatioIndex: 0}
	for i, x := range in {
		out[i] = f.Process(x, 0, p)
	}

	testutil.RequireFinite(t, out)
	if gr := f.GainReduction(0); gr < -0.5 {
		t.Errorf("quiet signal gain reduction: got %v dB, want near 0", gr)
	}
}

func TestFETCompressesWhenDriven(t *testing.T) {
	f, err := NewFET(48000, 1)
	if err != nil {
		t.Fatal(err)
	}

	in := testutil.DeterministicSine(1000, 48000, 0.5, 24000)
	p := FETParams{InputGainDB: 20, AttackMs: 0.4, ReleaseMs: 200, RatioIndex: 1}
	out := make([]float64, len(in))
	for i, x := range in {
		out[i] = f.Process(x, 0, p)
	}

	testutil.RequireFinite(t, out)
	if gr := f.GainReduction(0); gr > -3 {
		t.Errorf("driven signal gain reduction: got %v dB, want < -3", gr)
	}
}

func TestFETAllButtonsStaysBounded(t *testing.T) {
	f, err := NewFET(48000, 1)
	if err != nil {
		t.Fatal(err)
	}

	in := testutil.DeterministicNoise(3, 1.0, 24000)
	p := FETParams{
		InputGainDB:          20,
		AttackMs:             0.02,
		ReleaseMs:            50,
		RatioIndex:           4,
		TransientSensitivity: 50,
	}
	out := make([]float64, len(in))
	for i, x := range in {
		out[i] = f.Process(x, 0, p)
	}

	testutil.RequireFinite(t, out)
	for i, v := range out {
		if v > outputHardLimit || v < -outputHardLimit {
			t.Fatalf("sample %d: output %v outside hard limit", i, v)
		}
	}
	if gr := f.GainReduction(0); gr > 0 {
		t.Errorf("all-buttons gain reduction: got %v dB, want <= 0", gr)
	}
}

func TestFETRatioIndexOutOfRange(t *testing.T) {
	f, err := NewFET(48000, 1)
	if err != nil {
		t.Fatal(err)
	}

	p := FETParams{InputGainDB: 10, AttackMs: 0.4, ReleaseMs: 200, RatioIndex: -2}
	out := f.Process(0.5, 0, p)
	if out != out || out > outputHardLimit || out < -outputHardLimit {
		t.Errorf("out-of-range ratio index: got %v", out)
	}
}

func TestAllButtonsCurve(t *testing.T) {
	tests := []struct {
		overDb float64
		want   float64
		eps    float64
	}{
		{0, 0, 1e-12},
		{3, 1, 1e-9},
		{10, 6.25, 1e-9},
		{20, 15.75, 1e-9},
		{100, fetMaxReductionDB, 1e-12},
	}

	for _, tt := range tests {
		if got := allButtonsCurve(tt.overDb); got < tt.want-tt.eps || got > tt.want+tt.eps {
			t.Errorf("allButtonsCurve(%v) = %v, want %v", tt.overDb, got, tt.want)
		}
	}
}
