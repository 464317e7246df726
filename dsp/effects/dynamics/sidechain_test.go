package dynamics

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-analog/internal/testutil"
)

func TestSidechainFilterAttenuatesLows(t *testing.T) {
	var f SidechainFilter
	if err := f.Prepare(48000, 1); err != nil {
		t.Fatal(err)
	}

	in := testutil.DeterministicSine(30, 48000, 1.0, 9600)
	out := make([]float64, len(in))
	f.ProcessBlock(in, out, 0)

	// 30 Hz against the default 80 Hz corner should drop well below
	// half amplitude once settled.
	ratio := rms(out[4800:]) / rms(in[4800:])
	if ratio > 0.5 {
		t.Errorf("30 Hz attenuation: got ratio %v, want < 0.5", ratio)
	}
}

func TestSidechainFilterPassesHighs(t *testing.T) {
	var f SidechainFilter
	if err := f.Prepare(48000, 1); err != nil {
		t.Fatal(err)
	}

	in := testutil.DeterministicSine(1000, 48000, 1.0, 9600)
	out := make([]float64, len(in))
	f.ProcessBlock(in, out, 0)

	ratio := rms(out[4800:]) / rms(in[4800:])
	if ratio < 0.9 {
		t.Errorf("1 kHz passband: got ratio %v, want > 0.9", ratio)
	}
}

func TestSidechainFilterFrequencyClamp(t *testing.T) {
	var f SidechainFilter
	if err := f.Prepare(48000, 1); err != nil {
		t.Fatal(err)
	}

	f.SetFrequency(5)
	if got := f.Frequency(); got != minSidechainHPHz {
		t.Errorf("below range: got %v, want %v", got, minSidechainHPHz)
	}

	f.SetFrequency(10000)
	if got := f.Frequency(); got != maxSidechainHPHz {
		t.Errorf("above range: got %v, want %v", got, maxSidechainHPHz)
	}
}

func TestSidechainFilterHysteresis(t *testing.T) {
	var f SidechainFilter
	if err := f.Prepare(48000, 1); err != nil {
		t.Fatal(err)
	}

	f.SetFrequency(100)
	f.SetFrequency(100.05)
	if got := f.Frequency(); got != 100 {
		t.Errorf("sub-hysteresis change applied: got %v, want 100", got)
	}
}

func TestSidechainFilterRetuneKeepsState(t *testing.T) {
	var f SidechainFilter
	if err := f.Prepare(48000, 2); err != nil {
		t.Fatal(err)
	}

	in := testutil.DeterministicSine(30, 48000, 1.0, 2048)
	for ch := 0; ch < 2; ch++ {
		for _, x := range in {
			f.Process(x, ch)
		}
	}

	before := [2][2]float64{f.sections[0].State(), f.sections[1].State()}
	f.SetFrequency(120)
	for ch := 0; ch < 2; ch++ {
		if got := f.sections[ch].State(); got != before[ch] {
			t.Errorf("channel %d: state after retune = %v, want %v", ch, got, before[ch])
		}
	}
}

func TestSidechainFilterBlockWritesOutputOnly(t *testing.T) {
	var f SidechainFilter
	if err := f.Prepare(48000, 1); err != nil {
		t.Fatal(err)
	}

	in := testutil.DeterministicSine(1000, 48000, 1.0, 512)
	orig := append([]float64(nil), in...)
	out := make([]float64, len(in))
	f.ProcessBlock(in, out, 0)

	for i := range in {
		if in[i] != orig[i] {
			t.Fatalf("input[%d] mutated: got %v, want %v", i, in[i], orig[i])
		}
	}
	if rms(out) == 0 {
		t.Error("output block left empty")
	}
}

func TestSidechainFilterInvalidChannelPassThrough(t *testing.T) {
	var f SidechainFilter
	if err := f.Prepare(48000, 1); err != nil {
		t.Fatal(err)
	}

	if got := f.Process(0.7, 5); got != 0.7 {
		t.Errorf("invalid channel: got %v, want pass-through", got)
	}
}

func TestResampleSidechain(t *testing.T) {
	tests := []struct {
		name string
		src  []float64
		dst  int
		want []float64
	}{
		{"upsample 2x", []float64{0, 1}, 4, []float64{0, 0.5, 1, 1}},
		{"same length", []float64{1, 2, 3}, 3, []float64{1, 2, 3}},
		{"downsample", []float64{0, 1, 2, 3}, 2, []float64{0, 2}},
	}

	for _, tt := range tests {
		dst := make([]float64, tt.dst)
		resampleSidechain(tt.src, dst)
		for i := range dst {
			if math.Abs(dst[i]-tt.want[i]) > 1e-12 {
				t.Errorf("%s: dst[%d] = %v, want %v", tt.name, i, dst[i], tt.want[i])
			}
		}
	}
}
