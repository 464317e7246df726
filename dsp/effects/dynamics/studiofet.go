package dynamics

import "math"

const (
	studioFETThresholdDB   = -10.0
	studioFETHarmonicScale = 0.3
)

// studioFETRatios mirrors the FET selector; index 4 trades all-buttons
// for a clean 100:1 limit curve.
var studioFETRatios = [5]float64{4, 8, 12, 20, 100}

// StudioFETParams is the per-sample parameter snapshot for the
// StudioFET engine.
type StudioFETParams struct {
	InputGainDB  float64
	OutputGainDB float64
	// AttackMs runs 0.02..0.8 ms on a logarithmic taper.
	AttackMs float64
	// ReleaseMs runs 50..1100 ms on a logarithmic taper.
	ReleaseMs float64
	// RatioIndex selects 4:1, 8:1, 12:1, 20:1, or 100:1.
	RatioIndex int
}

// StudioFET is the cleaner studio variant of the FET engine: same
// logarithmic timing tapers, but feedforward detection from an external
// sidechain sample, no program dependence, and harmonics at 30% scale.
type StudioFET struct {
	sampleRate float64
	channels   []studioFETChannel
}

type studioFETChannel struct {
	envelope float64
}

// NewStudioFET creates a studio FET compressor for the given sample
// rate and channel count.
func NewStudioFET(sampleRate float64, numChannels int) (*StudioFET, error) {
	if err := validateSampleRate(sampleRate); err != nil {
		return nil, err
	}
	if err := validateChannelCount(numChannels); err != nil {
		return nil, err
	}

	s := &StudioFET{
		sampleRate: sampleRate,
		channels:   make([]studioFETChannel, numChannels),
	}
	s.Reset()
	return s, nil
}

// Process compresses one sample on the given channel, detecting from
// the supplied sidechain sample.
func (s *StudioFET) Process(input float64, channel int, p StudioFETParams, sidechain float64) float64 {
	if channel < 0 || channel >= len(s.channels) {
		return input
	}
	ch := &s.channels[channel]

	inputGain := decibelsToGain(p.InputGainDB)
	gained := input * inputGain
	detection := math.Abs(sidechain) * inputGain

	ratioIndex := p.RatioIndex
	if ratioIndex < 0 || ratioIndex >= len(studioFETRatios) {
		ratioIndex = 0
	}
	ratio := studioFETRatios[ratioIndex]

	threshold := decibelsToGain(studioFETThresholdDB)
	reduction := 0.0
	if detection > threshold {
		overDb := gainToDecibels(detection / threshold)
		reduction = math.Min(overDb*(1-1/ratio), fetMaxReductionDB)
	}

	attackNorm := clamp(p.AttackMs/0.8, 0, 1)
	releaseNorm := clamp(p.ReleaseMs/1100, 0, 1)
	attackTime := fetMinAttackSec * math.Pow(fetMaxAttackSec/fetMinAttackSec, attackNorm)
	releaseTime := fetMinReleaseSec * math.Pow(fetMaxReleaseSec/fetMinReleaseSec, releaseNorm)

	targetEnv := decibelsToGain(-reduction)
	if targetEnv < ch.envelope {
		coeff := onePoleCoeff(attackTime, s.sampleRate)
		ch.envelope = coeff*ch.envelope + (1-coeff)*targetEnv
	} else {
		coeff := onePoleCoeff(releaseTime, s.sampleRate)
		ch.envelope = coeff*ch.envelope + (1-coeff)*targetEnv
	}
	ch.envelope = clamp(sanitizeEnvelope(ch.envelope), 0.001, 1)

	compressed := gained * ch.envelope

	// Subtle even-order color, scaled well below the vintage unit.
	abs := math.Abs(compressed)
	if abs > 0.01 && reduction > 0.5 {
		sign := 1.0
		if compressed < 0 {
			sign = -1
		}
		harmonicAmount := reduction / fetMaxReductionDB * studioFETHarmonicScale
		compressed += sign * abs * abs * harmonicAmount * 0.002
	}

	return hardLimit(compressed * decibelsToGain(p.OutputGainDB))
}

// GainReduction returns the current reduction for the channel in dB.
func (s *StudioFET) GainReduction(channel int) float64 {
	if channel < 0 || channel >= len(s.channels) {
		return 0
	}
	return gainToDecibels(s.channels[channel].envelope)
}

// Reset restores all channels to their idle state.
func (s *StudioFET) Reset() {
	for i := range s.channels {
		s.channels[i] = studioFETChannel{envelope: 1}
	}
}
