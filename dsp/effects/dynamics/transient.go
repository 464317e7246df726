package dynamics

import "math"

// transientShaper compares a fast and a slow envelope to detect attack
// transients. The FET all-buttons mode uses the resulting modifier to let
// transients punch through the otherwise crushed envelope.
type transientShaper struct {
	channels []transientShaperChannel

	fastAttackCoeff  float64
	fastReleaseCoeff float64
	slowAttackCoeff  float64
	slowReleaseCoeff float64
	holdSamples      int
}

type transientShaperChannel struct {
	fastEnvelope float64
	slowEnvelope float64
	peakHold     float64
	holdCounter  int
}

func newTransientShaper(sampleRate float64, numChannels int) *transientShaper {
	return &transientShaper{
		channels: make([]transientShaperChannel, numChannels),

		// Fast envelope ~0.5 ms attack / 20 ms release, slow envelope
		// ~10 ms attack / 100 ms release, 5 ms peak hold.
		fastAttackCoeff:  onePoleCoeff(0.0005, sampleRate),
		fastReleaseCoeff: onePoleCoeff(0.020, sampleRate),
		slowAttackCoeff:  onePoleCoeff(0.010, sampleRate),
		slowReleaseCoeff: onePoleCoeff(0.100, sampleRate),
		holdSamples:      int(0.005 * sampleRate),
	}
}

// process returns a modifier >= 1. Unity means no transient; larger
// values scale back the compression for the current sample. Sensitivity
// runs 0..100.
func (t *transientShaper) process(input float64, channel int, sensitivity float64) float64 {
	if channel < 0 || channel >= len(t.channels) {
		return 1
	}

	ch := &t.channels[channel]
	absInput := math.Abs(input)

	if absInput > ch.fastEnvelope {
		ch.fastEnvelope = t.fastAttackCoeff*ch.fastEnvelope + (1-t.fastAttackCoeff)*absInput
	} else {
		ch.fastEnvelope = t.fastReleaseCoeff*ch.fastEnvelope + (1-t.fastReleaseCoeff)*absInput
	}

	if absInput > ch.slowEnvelope {
		ch.slowEnvelope = t.slowAttackCoeff*ch.slowEnvelope + (1-t.slowAttackCoeff)*absInput
	} else {
		ch.slowEnvelope = t.slowReleaseCoeff*ch.slowEnvelope + (1-t.slowReleaseCoeff)*absInput
	}

	switch {
	case absInput > ch.peakHold:
		ch.peakHold = absInput
		ch.holdCounter = t.holdSamples
	case ch.holdCounter > 0:
		ch.holdCounter--
	default:
		ch.peakHold *= 0.9995
	}

	transientRatio := 1.0
	if ch.slowEnvelope > epsilon {
		transientRatio = ch.fastEnvelope / ch.slowEnvelope
	}

	if transientRatio <= 1 {
		return 1
	}

	transientAmount := math.Min((transientRatio-1)*2, 2)
	return 1 + transientAmount*(sensitivity/100)
}

func (t *transientShaper) reset() {
	for i := range t.channels {
		t.channels[i] = transientShaperChannel{}
	}
}
