package tape

import (
	"math"

	"github.com/cwbudde/algo-analog/dsp/core"
)

// transformerStage colors the signal the way an audio transformer does:
// DC-blocked coupling, core asymmetry producing even harmonics, gentle
// exponential limiting near the saturation flux, and on output stages a
// low-frequency resonance from the core inductance.
type transformerStage struct {
	output bool

	dcBlockCoeff float64
	dcState      float64

	hystDecay float64
	hystState float64
	prevInput float64

	lfCoeff float64
	lfState float64
}

func (t *transformerStage) prepare(sampleRate float64, output bool) {
	t.output = output
	t.dcBlockCoeff = 1 - 20*math.Pi/sampleRate
	t.lfCoeff = 1 - math.Exp(-2*math.Pi*50/sampleRate)
	t.hystDecay = core.Clamp(1-220.5/sampleRate, 0.95, 0.9999)
	t.reset()
}

func (t *transformerStage) process(input, drive float64) float64 {
	signal := input

	blocked := signal - t.dcState
	t.dcState = signal*(1-t.dcBlockCoeff) + t.dcState*t.dcBlockCoeff
	signal = blocked

	// Residual core magnetization makes the B-H curve asymmetric, so
	// even harmonics appear at all levels.
	asym := 0.8 * drive
	if asym > 1e-4 {
		signal *= 1 + asym*signal
	}

	threshold := 0.95
	if t.output {
		threshold = 0.92
	}
	if abs := math.Abs(signal); abs > threshold {
		excess := abs - threshold
		headroom := 1 - threshold
		limited := threshold + headroom*(1-math.Exp(-excess*2/headroom))
		signal = math.Copysign(limited, signal)
	}

	if t.output && drive > 0.01 {
		t.lfState += (signal - t.lfState) * t.lfCoeff
		signal += t.lfState * 0.15 * drive
	}

	hystAmount := 0.002
	if t.output {
		hystAmount = 0.005
	}
	t.hystState = t.hystState*t.hystDecay + (signal-t.prevInput)*hystAmount*drive
	signal += t.hystState
	t.prevInput = signal

	return signal
}

func (t *transformerStage) reset() {
	t.dcState = 0
	t.hystState = 0
	t.prevInput = 0
	t.lfState = 0
}
