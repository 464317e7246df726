package dynamics

import (
	"fmt"
	"math"
)

const (
	// log2Of10Div20 is the conversion factor for dB to log2: log2(10) / 20.
	log2Of10Div20 = 0.166096404744

	// epsilon guards divisions in envelope and ratio math.
	epsilon = 1e-4

	// outputHardLimit is the absolute ceiling applied at every engine output.
	outputHardLimit = 2.0

	// silenceFloorDB is reported for gains at or below zero.
	silenceFloorDB = -100.0

	// Transient detection shared by the Opto and Bus program-dependent
	// release models.
	transientMultiplier    = 2.5
	transientWindowSeconds = 0.1
	transientNormalizeN    = 10.0
)

// validateSampleRate rejects non-positive or non-finite sample rates.
func validateSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("sample rate must be positive and finite: %f", sampleRate)
	}
	return nil
}

// validateChannelCount rejects non-positive channel counts.
func validateChannelCount(numChannels int) error {
	if numChannels < 1 {
		return fmt.Errorf("channel count must be at least 1: %d", numChannels)
	}
	return nil
}

// decibelsToGain converts dB to a linear gain factor.
func decibelsToGain(db float64) float64 {
	return mathPower10(db / 20)
}

// gainToDecibels converts a linear gain factor to dB, returning
// silenceFloorDB for non-positive gains.
func gainToDecibels(gain float64) float64 {
	if gain <= 0 {
		return silenceFloorDB
	}
	return mathLog2(gain) / log2Of10Div20
}

// onePoleCoeff computes the feedback coefficient of a one-pole smoother
// with the given time constant in seconds.
func onePoleCoeff(seconds, sampleRate float64) float64 {
	if seconds <= 0 || sampleRate <= 0 {
		return 0
	}
	return mathExp(-1 / (seconds * sampleRate))
}

// sanitizeEnvelope resets a blown-up envelope to unity gain.
func sanitizeEnvelope(env float64) float64 {
	if math.IsNaN(env) || math.IsInf(env, 0) {
		return 1
	}
	return env
}

// clamp limits value to [lo, hi].
func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// hardLimit clips a sample to the engine output ceiling.
func hardLimit(x float64) float64 {
	return clamp(x, -outputHardLimit, outputHardLimit)
}

// transientTracker estimates how densely transients occur in the program
// material. Density near 0 means sustained material, near 1 means a run
// of closely spaced transients inside the last tracking window.
type transientTracker struct {
	peakLevel     float64
	averageLevel  float64
	count         int
	density       float64
	windowCounter int
	windowSamples int
}

func newTransientTracker(sampleRate float64) transientTracker {
	return transientTracker{
		windowSamples: int(transientWindowSeconds * sampleRate),
	}
}

// observe feeds one input sample and updates the density estimate.
func (t *transientTracker) observe(absInput float64) {
	prevPeak := t.peakLevel
	t.peakLevel = math.Max(t.peakLevel*0.999, absInput)
	t.averageLevel = t.averageLevel*0.9999 + absInput*0.0001

	inputChange := t.peakLevel - prevPeak
	if inputChange > t.averageLevel*transientMultiplier {
		t.count++
	}

	t.windowCounter++
	if t.windowSamples > 0 && t.windowCounter >= t.windowSamples {
		t.density = clamp(float64(t.count)/transientNormalizeN, 0, 1)
		t.count = 0
		t.windowCounter = 0
	}
}

func (t *transientTracker) reset() {
	t.peakLevel = 0
	t.averageLevel = 0
	t.count = 0
	t.density = 0
	t.windowCounter = 0
}
