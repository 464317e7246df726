package dynamics

import "math"

const (
	studioVCAMaxReductionDB = 40.0
	studioVCASoftKneeDB     = 6.0
	studioVCARMSWindowSec   = 0.010
)

// StudioVCAParams is the per-sample parameter snapshot for the
// StudioVCA engine.
type StudioVCAParams struct {
	ThresholdDB float64
	Ratio       float64
	// AttackMs runs 0.3..75 ms, linear.
	AttackMs float64
	// ReleaseMs runs 100..4000 ms, linear.
	ReleaseMs    float64
	OutputGainDB float64
}

// StudioVCA is a clean feedforward VCA compressor with a fixed 10 ms
// RMS detector fed from an external sidechain sample and a quadratic
// 6 dB soft knee evaluated in the linear domain.
type StudioVCA struct {
	sampleRate float64
	rmsCoeff   float64
	channels   []studioVCAChannel
}

type studioVCAChannel struct {
	envelope float64
	rms      float64
}

// NewStudioVCA creates a studio VCA compressor for the given sample
// rate and channel count.
func NewStudioVCA(sampleRate float64, numChannels int) (*StudioVCA, error) {
	if err := validateSampleRate(sampleRate); err != nil {
		return nil, err
	}
	if err := validateChannelCount(numChannels); err != nil {
		return nil, err
	}

	s := &StudioVCA{
		sampleRate: sampleRate,
		rmsCoeff:   onePoleCoeff(studioVCARMSWindowSec, sampleRate),
		channels:   make([]studioVCAChannel, numChannels),
	}
	s.Reset()
	return s, nil
}

// Process compresses one sample on the given channel, detecting from
// the supplied sidechain sample.
func (s *StudioVCA) Process(input float64, channel int, p StudioVCAParams, sidechain float64) float64 {
	if channel < 0 || channel >= len(s.channels) {
		return input
	}
	ch := &s.channels[channel]

	ch.rms = s.rmsCoeff*ch.rms + (1-s.rmsCoeff)*sidechain*sidechain
	detection := mathSqrt(ch.rms)

	ratio := math.Max(p.Ratio, 1)
	threshold := decibelsToGain(p.ThresholdDB)

	// Quadratic knee evaluated in the linear domain: the effective
	// ratio ramps from 1:1 at -3 dB below threshold to full at +3 dB.
	kneeStart := threshold * decibelsToGain(-studioVCASoftKneeDB/2)
	kneeEnd := threshold * decibelsToGain(studioVCASoftKneeDB/2)

	reduction := 0.0
	if detection > kneeStart {
		overDb := gainToDecibels(math.Max(detection, epsilon) / threshold)
		if detection < kneeEnd {
			kneePos := (detection - kneeStart) / (kneeEnd - kneeStart)
			effRatio := 1 + (ratio-1)*kneePos*kneePos
			reduction = overDb * (1 - 1/effRatio)
		} else {
			reduction = overDb * (1 - 1/ratio)
		}
		reduction = clamp(reduction, 0, studioVCAMaxReductionDB)
	}

	attackTime := clamp(p.AttackMs/1000, 0.0003, 0.075)
	releaseTime := clamp(p.ReleaseMs/1000, 0.1, 4)

	targetEnv := decibelsToGain(-reduction)
	if targetEnv < ch.envelope {
		coeff := onePoleCoeff(attackTime, s.sampleRate)
		ch.envelope = coeff*ch.envelope + (1-coeff)*targetEnv
	} else {
		coeff := onePoleCoeff(releaseTime, s.sampleRate)
		ch.envelope = coeff*ch.envelope + (1-coeff)*targetEnv
	}
	ch.envelope = clamp(sanitizeEnvelope(ch.envelope), 0.001, 1)

	compressed := input * ch.envelope

	if abs := math.Abs(compressed); abs > 0.8 {
		sign := 1.0
		if compressed < 0 {
			sign = -1
		}
		softClip := 0.8 + 0.2*math.Tanh((abs-0.8)*5)
		compressed = sign * softClip
	}

	return hardLimit(compressed * decibelsToGain(p.OutputGainDB))
}

// GainReduction returns the current reduction for the channel in dB.
func (s *StudioVCA) GainReduction(channel int) float64 {
	if channel < 0 || channel >= len(s.channels) {
		return 0
	}
	return gainToDecibels(s.channels[channel].envelope)
}

// Reset restores all channels to their idle state.
func (s *StudioVCA) Reset() {
	for i := range s.channels {
		s.channels[i] = studioVCAChannel{envelope: 1}
	}
}
