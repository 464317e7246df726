package eq

import "math"

// transformerProfile describes one audio transformer: how hard it
// saturates, how much the low end drives the core, where the winding
// inductance rolls off, and the harmonic fingerprint it leaves.
type transformerProfile struct {
	saturation        float64
	lowFreqSaturation float64
	hfRolloffHz       float64
	dcBlockHz         float64
	h2, h3, h4        float64
}

// transformerColor is the line transformer stage at the edges of the
// tube EQ. Low frequencies saturate the core harder than highs, so the
// drive is steered by the same HF estimator the console stage uses.
type transformerColor struct {
	profile transformerProfile

	hfCoeff float64
	hfState float64
	dcCoeff float64
	dcX1    float64
	dcY1    float64
	hf      hfEstimator
}

func (t *transformerColor) prepare(profile transformerProfile, sampleRate float64) {
	t.profile = profile
	w := 2 * math.Pi * profile.hfRolloffHz / sampleRate
	t.hfCoeff = w / (w + 1)
	t.dcCoeff = 1 - 2*math.Pi*profile.dcBlockHz/sampleRate
	t.reset()
}

func (t *transformerColor) reset() {
	t.hfState = 0
	t.dcX1 = 0
	t.dcY1 = 0
	t.hf.reset()
}

func (t *transformerColor) process(input float64) float64 {
	hfContent := t.hf.process(input)

	// Core physics: low frequencies saturate more.
	lfMultiplier := t.profile.lowFreqSaturation * (1 - hfContent*0.5)
	driven := input * lfMultiplier
	saturated := math.Tanh(driven)

	output := input + (saturated-input)*t.profile.saturation

	x2 := output * output
	output += t.profile.h2*x2 + t.profile.h3*x2*output + t.profile.h4*x2*x2

	// Winding inductance limits the top end.
	t.hfState += t.hfCoeff * (output - t.hfState)
	output = t.hfState

	y := output - t.dcX1 + t.dcCoeff*t.dcY1
	t.dcX1 = output
	t.dcY1 = y
	return y
}
