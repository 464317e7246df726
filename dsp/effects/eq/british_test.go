package eq

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-analog/internal/testutil"
)

// britishGainAt renders a steady sine through the EQ and reports the
// RMS gain once the filters have settled.
func britishGainAt(t *testing.T, p BritishParams, freq float64) float64 {
	t.Helper()
	e, err := NewBritishEQ(48000)
	if err != nil {
		t.Fatal(err)
	}

	in := testutil.DeterministicSine(freq, 48000, 0.25, 19200)
	buf := append([]float64(nil), in...)
	e.ProcessBlock(buf, p)
	return sineRMS(buf[9600:]) / sineRMS(in[9600:])
}

func TestBritishEQFlatIsIdentity(t *testing.T) {
	p := DefaultBritishParams()
	p.Series = SeriesG // no transformer phase shift on the G path

	e, err := NewBritishEQ(48000)
	if err != nil {
		t.Fatal(err)
	}

	in := testutil.DeterministicSine(1000, 48000, 0.5, 2048)
	buf := append([]float64(nil), in...)
	e.ProcessBlock(buf, p)
	testutil.RequireSliceNearlyEqual(t, buf, in, 1e-9)
}

func TestBritishEQRejectsBadSampleRate(t *testing.T) {
	for _, sr := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if _, err := NewBritishEQ(sr); err == nil {
			t.Errorf("NewBritishEQ(%v): expected error", sr)
		}
	}
}

func TestBritishEQLFShelfBoost(t *testing.T) {
	p := DefaultBritishParams()
	p.LFGain = 12

	if g := britishGainAt(t, p, 40); g < 2.5 {
		t.Errorf("+12 dB LF shelf: gain at 40 Hz %v, want > 2.5", g)
	}
	if g := britishGainAt(t, p, 5000); math.Abs(g-1) > 0.15 {
		t.Errorf("+12 dB LF shelf: gain at 5 kHz %v, want near unity", g)
	}
}

func TestBritishEQHighpassRollsOffSub(t *testing.T) {
	p := DefaultBritishParams()
	p.HPFEnabled = true
	p.HPFFreq = 100

	if g := britishGainAt(t, p, 20); g > 0.2 {
		t.Errorf("100 Hz HPF: gain at 20 Hz %v, want < 0.2", g)
	}
	if g := britishGainAt(t, p, 1000); g < 0.9 {
		t.Errorf("100 Hz HPF: gain at 1 kHz %v, want near unity", g)
	}
}

func TestBritishEQLowpassRollsOffHighs(t *testing.T) {
	p := DefaultBritishParams()
	p.LPFEnabled = true
	p.LPFFreq = 5000

	if g := britishGainAt(t, p, 15000); g > 0.3 {
		t.Errorf("5 kHz LPF: gain at 15 kHz %v, want < 0.3", g)
	}
}

func TestBritishEQGSeriesSharpensWithGain(t *testing.T) {
	p := DefaultBritishParams()
	p.HMGain = 15
	p.HMFreq = 1000
	p.HMQ = 0.7

	pE := p
	pE.Series = SeriesE
	pG := p
	pG.Series = SeriesG

	// Proportional Q narrows the G-Series bell, so one octave off
	// center the E-Series boost is wider.
	gE := britishGainAt(t, pE, 2000)
	gG := britishGainAt(t, pG, 2000)
	if gE <= gG {
		t.Errorf("gain at 2 kHz: E-Series %v should exceed G-Series %v", gE, gG)
	}
}

func TestBritishEQAutoGainCompensates(t *testing.T) {
	p := DefaultBritishParams()
	p.LFGain = 12

	boosted := britishGainAt(t, p, 100)
	p.AutoGain = true
	compensated := britishGainAt(t, p, 100)

	if compensated >= boosted*0.85 {
		t.Errorf("auto gain left level at %v of %v, want clear reduction", compensated, boosted)
	}
}

func TestBritishEQNaNInputZeroed(t *testing.T) {
	e, err := NewBritishEQ(48000)
	if err != nil {
		t.Fatal(err)
	}

	buf := testutil.DeterministicSine(1000, 48000, 0.5, 256)
	buf[5] = math.NaN()
	buf[6] = math.Inf(1)
	e.ProcessBlock(buf, DefaultBritishParams())

	if buf[5] != 0 || buf[6] != 0 {
		t.Errorf("invalid samples not zeroed: %v, %v", buf[5], buf[6])
	}
	testutil.RequireFinite(t, buf)
}

func TestBritishEQResetRestoresRender(t *testing.T) {
	e, err := NewBritishEQ(48000, WithSeed(11))
	if err != nil {
		t.Fatal(err)
	}

	p := DefaultBritishParams()
	p.Saturation = 0.7
	p.LMGain = 6

	in := testutil.DeterministicSine(500, 48000, 0.5, 2400)
	first := append([]float64(nil), in...)
	e.ProcessBlock(first, p)

	e.Reset()
	second := append([]float64(nil), in...)
	e.ProcessBlock(second, p)

	testutil.RequireSliceNearlyEqual(t, first, second, 0)
}

func sineRMS(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(data)))
}
