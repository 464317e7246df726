package eq

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-analog/internal/testutil"
)

func renderPultec(t *testing.T, p PultecParams, seed int64, freq, amp float64, n int) []float64 {
	t.Helper()
	eq, err := NewPultec(48000, WithSeed(seed))
	if err != nil {
		t.Fatal(err)
	}

	buf := testutil.DeterministicSine(freq, 48000, amp, n)
	eq.ProcessBlock(buf, p)
	return buf
}

// pultecGainAt reports the settled RMS gain for a steady sine.
func pultecGainAt(t *testing.T, p PultecParams, freq float64) float64 {
	t.Helper()
	in := testutil.DeterministicSine(freq, 48000, 0.15, 19200)
	out := renderPultec(t, p, defaultSeed, freq, 0.15, 19200)
	return sineRMS(out[9600:]) / sineRMS(in[9600:])
}

func TestPultecBypassLeavesBuffer(t *testing.T) {
	eq, err := NewPultec(48000)
	if err != nil {
		t.Fatal(err)
	}

	p := DefaultPultecParams()
	p.Bypass = true
	buf := testutil.DeterministicSine(1000, 48000, 0.8, 512)
	want := append([]float64(nil), buf...)
	eq.ProcessBlock(buf, p)
	testutil.RequireSliceNearlyEqual(t, buf, want, 0)
}

func TestPultecRejectsBadSampleRate(t *testing.T) {
	for _, sr := range []float64{0, -44100, math.NaN(), math.Inf(1)} {
		if _, err := NewPultec(sr); err == nil {
			t.Errorf("NewPultec(%v): expected error", sr)
		}
	}
}

func TestPultecLFBoostRaisesBass(t *testing.T) {
	p := DefaultPultecParams()
	p.TubeDrive = 0
	p.LFBoostGain = 8
	p.LFBoostFreq = 60

	if g := pultecGainAt(t, p, 60); g < 1.5 {
		t.Errorf("LF boost 8 at 60 Hz: gain %v, want > 1.5", g)
	}
	if g := pultecGainAt(t, p, 5000); g > 1.3 {
		t.Errorf("LF boost 8 at 60 Hz: gain at 5 kHz %v, want near unity", g)
	}
}

func TestPultecBoostCutInteraction(t *testing.T) {
	p := DefaultPultecParams()
	p.TubeDrive = 0
	p.LFBoostGain = 5
	p.LFBoostFreq = 100

	boostOnly := pultecGainAt(t, p, 70)
	p.LFAttenGain = 5
	boostAndCut := pultecGainAt(t, p, 70)

	// The shelf cut sits at 0.7x the boost frequency, carving back the
	// low end underneath the resonant bump.
	if boostAndCut >= boostOnly {
		t.Errorf("boost+cut gain %v at 70 Hz not below boost-only %v", boostAndCut, boostOnly)
	}
}

func TestPultecHFBoostBandwidth(t *testing.T) {
	p := DefaultPultecParams()
	p.TubeDrive = 0
	p.HFBoostGain = 8
	p.HFBoostFreq = 8000

	p.HFBoostBandwidth = 0
	sharp := pultecGainAt(t, p, 4000)
	p.HFBoostBandwidth = 1
	broad := pultecGainAt(t, p, 4000)

	// An octave below center, the broad setting still lifts the signal
	// while the sharp one has fallen back toward unity.
	if broad <= sharp {
		t.Errorf("gain at 4 kHz: broad %v should exceed sharp %v", broad, sharp)
	}
}

func TestPultecHFAttenShelf(t *testing.T) {
	p := DefaultPultecParams()
	p.TubeDrive = 0
	p.HFAttenGain = 8
	p.HFAttenFreq = 10000

	if g := pultecGainAt(t, p, 15000); g > 0.5 {
		t.Errorf("HF atten 8: gain at 15 kHz %v, want < 0.5", g)
	}
}

func TestPultecMidDipCutsMids(t *testing.T) {
	p := DefaultPultecParams()
	p.TubeDrive = 0
	p.MidDip = 8
	p.MidDipFreq = 700

	if g := pultecGainAt(t, p, 700); g > 0.7 {
		t.Errorf("mid dip 8 at 700 Hz: gain %v, want < 0.7", g)
	}

	p.MidEnabled = false
	if g := pultecGainAt(t, p, 700); g < 0.8 {
		t.Errorf("mid section disabled: gain %v, want near unity", g)
	}
}

func TestPultecTubeDriveAddsHarmonics(t *testing.T) {
	thd := func(drive float64) float64 {
		p := DefaultPultecParams()
		p.TubeDrive = drive
		out := renderPultec(t, p, defaultSeed, 1000, 0.4, 32768)
		return testutil.THDRatio(out, 1000, 48000, 5)
	}

	if thd(0.9) <= thd(0) {
		t.Errorf("tube drive 0.9 THD %v not above clean THD %v", thd(0.9), thd(0))
	}
}

func TestPultecSeedDeterminism(t *testing.T) {
	p := DefaultPultecParams()
	p.LFBoostGain = 5
	p.LFBoostFreq = 60

	a := renderPultec(t, p, 5, 60, 0.3, 4800)
	b := renderPultec(t, p, 5, 60, 0.3, 4800)
	testutil.RequireSliceNearlyEqual(t, a, b, 0)

	c := renderPultec(t, p, 9, 60, 0.3, 4800)
	diff, err := testutil.MaxAbsDiff(a, c)
	if err != nil {
		t.Fatal(err)
	}
	if diff == 0 {
		t.Error("different seeds produced identical renders")
	}
}

func TestPultecSnapsToSwitchPositions(t *testing.T) {
	p := DefaultPultecParams()
	p.LFBoostGain = 6
	p.LFBoostFreq = 28 // between switch positions, snaps to 30

	snapped := p
	snapped.LFBoostFreq = 30

	a := renderPultec(t, p, 3, 60, 0.3, 2400)
	b := renderPultec(t, snapped, 3, 60, 0.3, 2400)
	testutil.RequireSliceNearlyEqual(t, a, b, 0)
}

func TestPultecNaNInputZeroed(t *testing.T) {
	eq, err := NewPultec(48000)
	if err != nil {
		t.Fatal(err)
	}

	buf := testutil.DeterministicSine(1000, 48000, 0.5, 256)
	buf[7] = math.NaN()
	eq.ProcessBlock(buf, DefaultPultecParams())

	if buf[7] != 0 {
		t.Errorf("invalid sample not zeroed: %v", buf[7])
	}
	testutil.RequireFinite(t, buf)
}
