package dynamics

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-analog/internal/testutil"
)

func TestDigitalSteadyStateGain(t *testing.T) {
	d, err := NewDigital(48000, 1)
	if err != nil {
		t.Fatal(err)
	}

	// DC at 0.5 is -6.02 dBFS. With threshold -20 and ratio 4 the exact
	// reduction is (13.979 dB) * (1 - 1/4) = 10.48 dB.
	p := DigitalParams{ThresholdDB: -20, Ratio: 4, AttackMs: 1, ReleaseMs: 100, Mix: 1}
	var out float64
	for i := 0; i < 48000; i++ {
		out = d.Process(0.5, 0, p, 0.5)
	}

	over := gainToDecibels(0.5) - p.ThresholdDB
	want := 0.5 * decibelsToGain(-over*(1-1/p.Ratio))
	if math.Abs(out-want) > want*0.02 {
		t.Errorf("steady-state output: got %v, want %v", out, want)
	}
}

func TestDigitalLookaheadDelaysAudio(t *testing.T) {
	d, err := NewDigital(48000, 1)
	if err != nil {
		t.Fatal(err)
	}

	in := testutil.Impulse(1000, 0)
	p := DigitalParams{ThresholdDB: 0, Ratio: 1, AttackMs: 1, ReleaseMs: 100, LookaheadMs: 5, Mix: 0}
	out := make([]float64, len(in))
	for i, x := range in {
		out[i] = d.Process(x, 0, p, x)
	}

	const wantDelay = 240 // 5 ms at 48 kHz
	for i := 0; i < wantDelay; i++ {
		if out[i] != 0 {
			t.Fatalf("sample %d: got %v before the lookahead delay elapsed", i, out[i])
		}
	}
	if out[wantDelay] != 1 {
		t.Errorf("sample %d: got %v, want the delayed impulse", wantDelay, out[wantDelay])
	}
	if got := d.LookaheadSamples(); got != wantDelay {
		t.Errorf("LookaheadSamples: got %d, want %d", got, wantDelay)
	}
}

func TestDigitalMixZeroReturnsDelayedDry(t *testing.T) {
	d, err := NewDigital(48000, 1)
	if err != nil {
		t.Fatal(err)
	}

	// Heavy compression engaged, but mix 0 keeps the dry path.
	p := DigitalParams{ThresholdDB: -40, Ratio: 10, KneeDB: 6, AttackMs: 0.1, ReleaseMs: 50, Mix: 0}
	in := testutil.DeterministicSine(1000, 48000, 0.9, 4800)
	for _, x := range in {
		if got := d.Process(x, 0, p, x); got != x {
			t.Fatalf("mix 0: got %v, want dry %v", got, x)
		}
	}
}

func TestDigitalSoftKneeContinuity(t *testing.T) {
	// The knee must meet the hard curve at both edges without a jump.
	const (
		thr   = -20.0
		ratio = 4.0
		knee  = 12.0
	)

	reductionAt := func(levelDB float64) float64 {
		d, err := NewDigital(48000, 1)
		if err != nil {
			t.Fatal(err)
		}
		p := DigitalParams{ThresholdDB: thr, Ratio: ratio, KneeDB: knee, AttackMs: 0.1, ReleaseMs: 1000, Mix: 1}
		level := decibelsToGain(levelDB)
		for i := 0; i < 48000; i++ {
			d.Process(level, 0, p, level)
		}
		return -d.GainReduction(0)
	}

	atKneeStart := reductionAt(thr - knee/2)
	if atKneeStart > 0.1 {
		t.Errorf("reduction %v dB at knee start, want near 0", atKneeStart)
	}

	atKneeEnd := reductionAt(thr + knee/2)
	wantEnd := (knee / 2) * (1 - 1/ratio)
	if math.Abs(atKneeEnd-wantEnd) > 0.2 {
		t.Errorf("reduction %v dB at knee end, want %v", atKneeEnd, wantEnd)
	}
}

func TestDigitalAdaptiveReleaseRecoversFaster(t *testing.T) {
	run := func(adaptive bool) float64 {
		d, err := NewDigital(48000, 1)
		if err != nil {
			t.Fatal(err)
		}
		p := DigitalParams{ThresholdDB: -30, Ratio: 8, AttackMs: 0.1, ReleaseMs: 500, Mix: 1, AdaptiveRelease: adaptive}

		// Burst then silence: adaptive release shortens the tail.
		for i := 0; i < 4800; i++ {
			d.Process(1.0, 0, p, 1.0)
		}
		for i := 0; i < 2400; i++ {
			d.Process(0, 0, p, 0)
		}
		return d.GainReduction(0)
	}

	if run(true) < run(false) {
		t.Error("adaptive release did not recover at least as fast as fixed release")
	}
}
