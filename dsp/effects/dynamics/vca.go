package dynamics

import "math"

const (
	vcaMaxReductionDB  = 60.0
	vcaReleaseRateDBps = 120.0
	vcaOverEasyKneeDB  = 10.0
)

// VCAParams is the per-sample parameter snapshot for the VCA engine.
type VCAParams struct {
	ThresholdDB float64
	// Ratio runs 1..120; 120 stands in for infinity.
	Ratio float64
	// AttackMs is the attack knob, 0..15 ms; it scales the
	// program-dependent attack rather than setting it directly.
	AttackMs float64
	// ReleaseMs blends against the constant-slope program release.
	ReleaseMs    float64
	OutputGainDB float64
	// OverEasy enables the parabolic 10 dB soft knee.
	OverEasy bool
}

// VCA models a feedforward VCA compressor with true RMS detection. The
// RMS window adapts between 5 and 15 ms with transient content, and the
// release blends a constant 120 dB/s slope with the user time.
type VCA struct {
	sampleRate float64
	channels   []vcaChannel
}

type vcaChannel struct {
	envelope       float64
	rms            float64
	signalEnvelope float64
	envelopeRate   float64
	prevDetection  float64
	overshoot      float64
}

// NewVCA creates a VCA compressor for the given sample rate and channel
// count.
func NewVCA(sampleRate float64, numChannels int) (*VCA, error) {
	if err := validateSampleRate(sampleRate); err != nil {
		return nil, err
	}
	if err := validateChannelCount(numChannels); err != nil {
		return nil, err
	}

	v := &VCA{
		sampleRate: sampleRate,
		channels:   make([]vcaChannel, numChannels),
	}
	v.Reset()
	return v, nil
}

// Process compresses one sample on the given channel.
func (v *VCA) Process(input float64, channel int, p VCAParams) float64 {
	if channel < 0 || channel >= len(v.channels) {
		return input
	}
	ch := &v.channels[channel]

	detection := math.Abs(input)

	// Adaptive RMS window: transient-heavy material shrinks the window
	// from 15 ms down to 5 ms.
	ch.envelopeRate = ch.envelopeRate*0.95 + math.Abs(detection-ch.prevDetection)*0.05
	ch.prevDetection = detection
	transientFactor := clamp(ch.envelopeRate*10, 0, 1)
	rmsTime := 0.015 - transientFactor*0.010

	rmsAlpha := onePoleCoeff(rmsTime, v.sampleRate)
	ch.rms = ch.rms*rmsAlpha + detection*detection*(1-rmsAlpha)
	rmsLevel := mathSqrt(ch.rms)
	ch.signalEnvelope = ch.signalEnvelope*0.99 + rmsLevel*0.01

	ratio := clamp(p.Ratio, 1, 120)
	reduction := vcaGainComputer(rmsLevel, p.ThresholdDB, ratio, p.OverEasy)

	// Program-dependent attack scaled by the attack knob.
	programAttack := 0.015
	switch {
	case reduction <= 0.1:
	case reduction <= 10:
		programAttack = 0.015
	case reduction <= 20:
		programAttack = 0.005
	default:
		programAttack = 0.003
	}
	attackScale := clamp(p.AttackMs/15, 0, 1)
	attackTime := clamp(programAttack*attackScale, 0.0001, 0.050)

	// Release blends the constant 120 dB/s program slope with the user
	// time once the knob moves past ~10 ms.
	userRelease := p.ReleaseMs / 1000
	programRelease := math.Max(0.008, reduction/vcaReleaseRateDBps)
	blend := clamp((userRelease-0.01)/0.5, 0, 1)
	releaseTime := programRelease*(1-blend) + userRelease*blend

	targetGain := decibelsToGain(-reduction)
	if targetGain < ch.envelope {
		coeff := onePoleCoeff(attackTime, v.sampleRate)
		ch.envelope = coeff*ch.envelope + (1-coeff)*targetGain

		// Fast heavy attacks overshoot by 1-2 dB before settling,
		// matching the VCA control voltage slew.
		if attackTime < 0.005 && reduction > 5 {
			overshootFactor := (0.005 - attackTime) / 0.004
			reductionFactor := clamp(reduction/20, 0, 1)
			ch.overshoot = overshootFactor * reductionFactor * 0.02
		} else {
			ch.overshoot *= 0.95
		}
	} else {
		coeff := onePoleCoeff(releaseTime, v.sampleRate)
		ch.envelope = coeff*ch.envelope + (1-coeff)*targetGain
		ch.overshoot *= 0.98
	}

	ch.envelope = clamp(sanitizeEnvelope(ch.envelope), 0.0001, 1)
	envWithOvershoot := clamp(ch.envelope*(1+ch.overshoot), 0.0001, 1)

	compressed := input * envWithOvershoot
	processed := v.harmonics(compressed, rmsLevel, reduction)

	return hardLimit(processed * decibelsToGain(p.OutputGainDB))
}

// vcaGainComputer returns the reduction in dB for an RMS level, with an
// optional OverEasy parabolic knee of 10 dB centered on the threshold.
func vcaGainComputer(rmsLevel, thresholdDB, ratio float64, overEasy bool) float64 {
	if rmsLevel <= 0 {
		return 0
	}
	levelDb := gainToDecibels(rmsLevel)
	over := levelDb - thresholdDB
	slope := 1 - 1/ratio

	var reduction float64
	if overEasy {
		kneeStart := -vcaOverEasyKneeDB / 2
		kneeEnd := vcaOverEasyKneeDB / 2
		switch {
		case over <= kneeStart:
			reduction = 0
		case over < kneeEnd:
			kneePos := (over - kneeStart) / vcaOverEasyKneeDB
			reduction = over * kneePos * kneePos * slope
		default:
			reduction = kneeEnd*slope + (over-kneeEnd)*slope
		}
	} else {
		if over <= 0 {
			return 0
		}
		reduction = over * slope
	}

	return clamp(reduction, 0, vcaMaxReductionDB)
}

// harmonics applies the sub-1% THD VCA shaping, active only under
// meaningful gain reduction.
func (v *VCA) harmonics(compressed, level, reduction float64) float64 {
	abs := math.Abs(compressed)
	if level <= 0.01 || reduction <= 2 {
		return compressed
	}
	if gainToDecibels(level) <= -30 {
		return compressed
	}

	sign := 1.0
	if compressed < 0 {
		sign = -1
	}

	compressionFactor := math.Min(1, reduction/30)
	h2Scale := 0.0075 / (abs*abs + epsilon)
	processed := compressed + compressed*compressed*sign*(abs*abs*h2Scale*compressionFactor)

	if reduction > 10 {
		h3Scale := (0.005 * 0.05) / (abs*abs*abs + epsilon)
		processed += compressed * compressed * compressed * (abs * abs * abs * h3Scale * compressionFactor)
	}

	if pabs := math.Abs(processed); pabs > 1.5 {
		vcaSat := 1.5 + math.Tanh((pabs-1.5)*0.3)*0.2
		processed = sign * vcaSat
	}

	return processed
}

// GainReduction returns the current reduction for the channel in dB.
func (v *VCA) GainReduction(channel int) float64 {
	if channel < 0 || channel >= len(v.channels) {
		return 0
	}
	return gainToDecibels(v.channels[channel].envelope)
}

// Reset restores all channels to their idle state.
func (v *VCA) Reset() {
	for i := range v.channels {
		v.channels[i] = vcaChannel{envelope: 1}
	}
}
