package dynamics

import (
	"math"

	"github.com/cwbudde/algo-analog/dsp/delay"
)

// maxLookaheadSeconds bounds the Digital engine's lookahead delay.
const maxLookaheadSeconds = 0.010

// DigitalParams is the per-sample parameter snapshot for the Digital
// engine.
type DigitalParams struct {
	ThresholdDB float64
	Ratio       float64
	KneeDB      float64
	AttackMs    float64
	ReleaseMs   float64
	// LookaheadMs delays the audio path up to 10 ms so the detector
	// sees peaks before they arrive.
	LookaheadMs float64
	// Mix blends the delayed dry signal with the compressed signal.
	Mix          float64
	OutputGainDB float64
	// AdaptiveRelease shortens the release on sudden reduction jumps.
	AdaptiveRelease bool
}

// Digital is a transparent feedforward compressor: exact dB-domain gain
// computer with a quadratic soft knee, peak detection from the
// sidechain sample, user timing, lookahead, and no added harmonics.
type Digital struct {
	sampleRate   float64
	maxLookahead int
	channels     []digitalChannel

	lookaheadSamples int
}

type digitalChannel struct {
	envelope      float64
	prevReduction float64
	line          *delay.Line
}

// NewDigital creates a digital compressor for the given sample rate and
// channel count.
func NewDigital(sampleRate float64, numChannels int) (*Digital, error) {
	if err := validateSampleRate(sampleRate); err != nil {
		return nil, err
	}
	if err := validateChannelCount(numChannels); err != nil {
		return nil, err
	}

	maxLookahead := int(math.Ceil(maxLookaheadSeconds * sampleRate))
	d := &Digital{
		sampleRate:   sampleRate,
		maxLookahead: maxLookahead,
		channels:     make([]digitalChannel, numChannels),
	}
	for i := range d.channels {
		line, err := delay.New(maxLookahead + 1)
		if err != nil {
			return nil, err
		}
		d.channels[i] = digitalChannel{envelope: 1, line: line}
	}
	return d, nil
}

// Process compresses one sample on the given channel, detecting from
// the supplied sidechain sample.
func (d *Digital) Process(input float64, channel int, p DigitalParams, sidechain float64) float64 {
	if channel < 0 || channel >= len(d.channels) {
		return input
	}
	ch := &d.channels[channel]

	lookahead := int(math.Round(p.LookaheadMs / 1000 * d.sampleRate))
	lookahead = int(clamp(float64(lookahead), 0, float64(d.maxLookahead-1)))
	if channel == 0 {
		d.lookaheadSamples = lookahead
	}

	delayedInput := input
	if lookahead > 0 {
		delayedInput = ch.line.Read(lookahead)
		ch.line.Write(input)
	}

	// Exact dB-domain gain computer on the current (undelayed)
	// sidechain sample.
	detection := math.Max(math.Abs(sidechain), 1e-5)
	detectionDb := gainToDecibels(detection)

	ratio := math.Max(p.Ratio, 1)
	knee := math.Max(p.KneeDB, 0)
	kneeStart := p.ThresholdDB - knee/2
	kneeEnd := p.ThresholdDB + knee/2

	reduction := 0.0
	switch {
	case knee > 0 && detectionDb > kneeStart && detectionDb < kneeEnd:
		kneePos := (detectionDb - kneeStart) / knee
		effRatio := 1 + (ratio-1)*kneePos*kneePos
		reduction = (detectionDb - p.ThresholdDB) * (1 - 1/effRatio) * kneePos
	case detectionDb >= kneeEnd:
		reduction = (detectionDb - p.ThresholdDB) * (1 - 1/ratio)
	}
	reduction = math.Max(reduction, 0)

	releaseTime := math.Max(0.001, p.ReleaseMs/1000)
	if p.AdaptiveRelease {
		transientAmount := reduction - ch.prevReduction
		if transientAmount > 3 {
			releaseTime *= 0.3
		}
	}
	ch.prevReduction = reduction
	attackTime := math.Max(1e-5, p.AttackMs/1000)

	targetEnv := decibelsToGain(-reduction)
	if targetEnv < ch.envelope {
		coeff := onePoleCoeff(attackTime, d.sampleRate)
		ch.envelope = coeff*ch.envelope + (1-coeff)*targetEnv
	} else {
		coeff := onePoleCoeff(releaseTime, d.sampleRate)
		ch.envelope = coeff*ch.envelope + (1-coeff)*targetEnv
	}
	ch.envelope = clamp(sanitizeEnvelope(ch.envelope), 0.0001, 1)

	compressed := delayedInput * ch.envelope
	mix := clamp(p.Mix, 0, 1)
	blended := delayedInput*(1-mix) + compressed*mix

	return hardLimit(blended * decibelsToGain(p.OutputGainDB))
}

// LookaheadSamples returns the delay currently imposed on the audio
// path, for latency reporting.
func (d *Digital) LookaheadSamples() int {
	return d.lookaheadSamples
}

// GainReduction returns the current reduction for the channel in dB.
func (d *Digital) GainReduction(channel int) float64 {
	if channel < 0 || channel >= len(d.channels) {
		return 0
	}
	return gainToDecibels(d.channels[channel].envelope)
}

// Reset restores all channels to their idle state.
func (d *Digital) Reset() {
	for i := range d.channels {
		d.channels[i].envelope = 1
		d.channels[i].prevReduction = 0
		d.channels[i].line.Reset()
	}
	d.lookaheadSamples = 0
}
