package dynamics

import "math"

const (
	busSidechainHPHz  = 60.0
	busMaxReductionDB = 20.0
)

// Stepped hardware timing. A release index equal to len(busReleaseTimes)
// selects auto-release.
var (
	busAttackTimes  = [6]float64{0.0001, 0.0003, 0.001, 0.003, 0.010, 0.030}
	busReleaseTimes = [4]float64{0.100, 0.300, 0.600, 1.200}
)

// BusParams is the per-sample parameter snapshot for the Bus engine.
type BusParams struct {
	ThresholdDB float64
	// Ratio is the actual ratio (2, 4, or 10 on the hardware).
	Ratio float64
	// AttackIndex selects 0.1/0.3/1/3/10/30 ms.
	AttackIndex int
	// ReleaseIndex selects 0.1/0.3/0.6/1.2 s; the next index enables
	// auto-release.
	ReleaseIndex int
	MakeupDB     float64
	// Mix blends the dry input with the compressed signal, 0..1.
	Mix float64
}

// Bus models a stereo bus compressor: feedforward detection from a
// 60 Hz-highpassed sidechain, stepped timing, and a program-dependent
// auto-release.
type Bus struct {
	sampleRate float64
	channels   []busChannel
	hpAlpha    float64
}

type busChannel struct {
	envelope  float64
	prevGR    float64
	prevLevel float64
	hpState   float64
	hpPrev    float64
}

// NewBus creates a bus compressor for the given sample rate and channel
// count.
func NewBus(sampleRate float64, numChannels int) (*Bus, error) {
	if err := validateSampleRate(sampleRate); err != nil {
		return nil, err
	}
	if err := validateChannelCount(numChannels); err != nil {
		return nil, err
	}

	b := &Bus{
		sampleRate: sampleRate,
		channels:   make([]busChannel, numChannels),
		hpAlpha:    math.Min(1, busSidechainHPHz/sampleRate),
	}
	b.Reset()
	return b, nil
}

// Process compresses one sample on the given channel.
func (b *Bus) Process(input float64, channel int, p BusParams) float64 {
	if channel < 0 || channel >= len(b.channels) {
		return input
	}
	ch := &b.channels[channel]

	// Inline 60 Hz sidechain highpass keeps kick energy out of the
	// detector.
	ch.hpState = input - ch.hpPrev + ch.hpState*(1-b.hpAlpha)
	ch.hpPrev = input
	detection := math.Abs(ch.hpState)

	ratio := math.Max(p.Ratio, 1)
	threshold := decibelsToGain(p.ThresholdDB)

	reduction := 0.0
	if detection > threshold {
		overDb := gainToDecibels(detection / threshold)
		reduction = clamp(overDb*(1-1/ratio), 0, busMaxReductionDB)
	}

	attackIdx := p.AttackIndex
	if attackIdx < 0 {
		attackIdx = 0
	} else if attackIdx >= len(busAttackTimes) {
		attackIdx = len(busAttackTimes) - 1
	}
	attackTime := busAttackTimes[attackIdx]
	releaseTime := b.releaseTime(ch, p, detection, reduction)

	// The hardware RC network approximates the exponential with a
	// first-order step, clamped short of unity.
	attackCoeff := clamp(1-1/(attackTime*b.sampleRate), 0, 0.9999)
	releaseCoeff := clamp(1-1/(releaseTime*b.sampleRate), 0, 0.9999)

	targetEnv := decibelsToGain(-reduction)
	if targetEnv < ch.envelope {
		ch.envelope = attackCoeff*ch.envelope + (1-attackCoeff)*targetEnv
	} else {
		ch.envelope = releaseCoeff*ch.envelope + (1-releaseCoeff)*targetEnv
	}

	// 10% gain reduction hysteresis.
	currentGR := 1 - sanitizeEnvelope(ch.envelope)
	currentGR = 0.9*currentGR + 0.1*ch.prevGR
	ch.prevGR = currentGR
	ch.envelope = clamp(1-currentGR, 0.0001, 1)

	compressed := input * ch.envelope
	compressed = b.harmonics(compressed, math.Abs(compressed), reduction)
	compressed *= decibelsToGain(p.MakeupDB)

	mix := clamp(p.Mix, 0, 1)
	return hardLimit(input*(1-mix) + compressed*mix)
}

// releaseTime resolves the stepped or auto release in seconds.
func (b *Bus) releaseTime(ch *busChannel, p BusParams, detection, reduction float64) float64 {
	if p.ReleaseIndex >= 0 && p.ReleaseIndex < len(busReleaseTimes) {
		return busReleaseTimes[p.ReleaseIndex]
	}

	// Auto: sustained material under deep reduction releases slower
	// (150-450 ms), transient material recovers fast.
	signalDelta := math.Abs(detection - ch.prevLevel)
	ch.prevLevel = ch.prevLevel*0.95 + detection*0.05
	transientDensity := clamp(signalDelta*20, 0, 1)
	compressionFactor := clamp(reduction/12, 0, 1)
	sustainedFactor := (1 - transientDensity) * compressionFactor
	return 0.15 + sustainedFactor*0.30
}

// harmonics applies the console-bus THD curve: 85% second order, 15%
// third, growing from 0.01% at rest to 0.1% at 12 dB reduction.
func (b *Bus) harmonics(compressed, level, reduction float64) float64 {
	if level <= 0.01 {
		return compressed
	}

	var thdPercent float64
	switch {
	case reduction < 0.1:
		thdPercent = 0.01
	case reduction <= 6:
		thdPercent = 0.01 + (reduction/6)*0.04
	case reduction <= 12:
		thdPercent = 0.05 + ((reduction-6)/6)*0.05
	default:
		thdPercent = 0.1
	}
	thd := thdPercent / 100

	sign := 1.0
	if compressed < 0 {
		sign = -1
	}
	abs := math.Abs(compressed)

	h2 := abs * abs * (thd * 0.85)
	h3 := abs * abs * abs * (thd * 0.15)
	processed := compressed + compressed*compressed*sign*h2 + compressed*compressed*compressed*h3

	if pabs := math.Abs(processed); pabs > 0.95 {
		sat := 0.95 + 0.05*math.Tanh((pabs-0.95)*0.7)
		processed = sign * sat
	}
	return processed
}

// GainReduction returns the current reduction for the channel in dB.
func (b *Bus) GainReduction(channel int) float64 {
	if channel < 0 || channel >= len(b.channels) {
		return 0
	}
	return gainToDecibels(b.channels[channel].envelope)
}

// Reset restores all channels to their idle state.
func (b *Bus) Reset() {
	for i := range b.channels {
		b.channels[i] = busChannel{envelope: 1}
	}
}
