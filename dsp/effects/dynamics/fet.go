package dynamics

import "math"

const (
	fetThresholdDB      = -10.0
	fetMaxReductionDB   = 30.0
	fetAllButtonsAttack = 0.0001

	fetMinAttackSec  = 0.000020
	fetMaxAttackSec  = 0.000800
	fetMinReleaseSec = 0.050
	fetMaxReleaseSec = 1.100
)

// fetRatios maps the ratio selector to the FET feedback ratio. Index 4
// is the all-buttons mode.
var fetRatios = [5]float64{4, 8, 12, 20, 120}

// FETParams is the per-sample parameter snapshot for the FET engine.
type FETParams struct {
	// InputGainDB drives the signal into the fixed -10 dBFS threshold.
	InputGainDB float64
	// OutputGainDB is the post-compression makeup gain.
	OutputGainDB float64
	// AttackMs runs 0.02..0.8 ms on a logarithmic taper.
	AttackMs float64
	// ReleaseMs runs 50..1100 ms on a logarithmic taper.
	ReleaseMs float64
	// RatioIndex selects 4:1, 8:1, 12:1, 20:1, or all-buttons (4).
	RatioIndex int
	// TransientSensitivity (0..100) lets transients punch through the
	// all-buttons envelope.
	TransientSensitivity float64
}

// FET models a feedback FET compressor with a fixed internal threshold.
// The amount of compression is set by driving the input gain, attack
// times reach into the microsecond range, and the all-buttons mode
// combines a near-instant attack with an overdriven transfer curve.
type FET struct {
	sampleRate float64
	channels   []fetChannel
	shaper     *transientShaper

	allButtonsAttackCoeff float64
	hfCoeff               float64
}

type fetChannel struct {
	envelope      float64
	prevLevel     float64
	prevReduction float64
	prevGR        float64
	prevOutput    float64
}

// NewFET creates a FET compressor for the given sample rate and channel
// count.
func NewFET(sampleRate float64, numChannels int) (*FET, error) {
	if err := validateSampleRate(sampleRate); err != nil {
		return nil, err
	}
	if err := validateChannelCount(numChannels); err != nil {
		return nil, err
	}

	f := &FET{
		sampleRate:            sampleRate,
		channels:              make([]fetChannel, numChannels),
		shaper:                newTransientShaper(sampleRate, numChannels),
		allButtonsAttackCoeff: onePoleCoeff(fetAllButtonsAttack, sampleRate),
		hfCoeff:               mathExp(-2 * math.Pi * 20000 / sampleRate),
	}
	f.Reset()
	return f, nil
}

// Process compresses one sample on the given channel.
func (f *FET) Process(input float64, channel int, p FETParams) float64 {
	if channel < 0 || channel >= len(f.channels) {
		return input
	}
	ch := &f.channels[channel]

	allButtons := p.RatioIndex >= len(fetRatios)-1
	ratioIndex := p.RatioIndex
	if ratioIndex < 0 || ratioIndex >= len(fetRatios) {
		ratioIndex = 0
	}
	ratio := fetRatios[ratioIndex]

	amplified := input * decibelsToGain(p.InputGainDB)
	compressed := amplified * ch.envelope
	detection := math.Abs(compressed)

	threshold := decibelsToGain(fetThresholdDB)
	reduction := 0.0
	if detection > threshold {
		overThreshDb := gainToDecibels(detection / threshold)
		if allButtons {
			reduction = allButtonsCurve(overThreshDb)
		} else {
			reduction = math.Min(overThreshDb*(1-1/ratio), fetMaxReductionDB)
		}
	}

	attackTime, releaseTime := f.timing(ch, p, detection, reduction, allButtons)
	ch.prevLevel = detection
	ch.prevReduction = reduction

	targetEnv := decibelsToGain(-reduction)
	if targetEnv < ch.envelope {
		attackCoeff := onePoleCoeff(attackTime, f.sampleRate)
		if allButtons {
			attackCoeff = f.allButtonsAttackCoeff
		}
		ch.envelope = attackCoeff*ch.envelope + (1-attackCoeff)*targetEnv
	} else {
		releaseCoeff := onePoleCoeff(releaseTime, f.sampleRate)
		if allButtons {
			releaseCoeff *= 0.98
		}
		ch.envelope = releaseCoeff*ch.envelope + (1-releaseCoeff)*targetEnv
	}

	// Gain reduction hysteresis smooths FET switching artifacts.
	currentGR := 1 - sanitizeEnvelope(ch.envelope)
	currentGR = 0.85*currentGR + 0.15*ch.prevGR
	ch.prevGR = currentGR
	ch.envelope = clamp(1-currentGR, 0.001, 1)

	if allButtons && p.TransientSensitivity > 0 {
		modifier := f.shaper.process(amplified, channel, p.TransientSensitivity)
		ch.envelope = clamp(ch.envelope*modifier, 0.001, 1)
	}

	output := amplified * ch.envelope
	output = f.harmonics(output, reduction, allButtons)

	// Output transformer high-frequency loss.
	c := f.hfCoeff * 0.05
	ch.prevOutput = output*(1-c) + ch.prevOutput*c
	if math.IsNaN(ch.prevOutput) || math.IsInf(ch.prevOutput, 0) {
		ch.prevOutput = 0
	}

	return hardLimit(ch.prevOutput * decibelsToGain(p.OutputGainDB))
}

// timing derives the program-dependent attack and release times.
func (f *FET) timing(ch *fetChannel, p FETParams, detection, reduction float64, allButtons bool) (attack, release float64) {
	// Logarithmic taper across the hardware ranges.
	attackNorm := clamp(p.AttackMs/0.8, 0, 1)
	releaseNorm := clamp(p.ReleaseMs/1100, 0, 1)
	attack = fetMinAttackSec * math.Pow(fetMaxAttackSec/fetMinAttackSec, attackNorm)
	release = fetMinReleaseSec * math.Pow(fetMaxReleaseSec/fetMinReleaseSec, releaseNorm)

	if allButtons {
		attack = math.Min(attack, 0.0001)
		release *= 0.7
		release *= 1 + clamp(reduction/20, 0, 1)*0.3
		return attack, release
	}

	// Program dependence: sudden level jumps speed up the attack and
	// slow the release; sustained reduction scales both.
	programFactor := clamp(1+reduction*0.05, 0.5, 2)
	signalDelta := math.Abs(detection - ch.prevLevel)
	if signalDelta > 0.1 {
		attack *= 0.8
		release *= 1.2
	} else {
		attack *= programFactor
		release *= programFactor
	}
	return attack, release
}

// harmonics applies the GR-dependent FET distortion.
func (f *FET) harmonics(output, reduction float64, allButtons bool) float64 {
	if reduction <= 3 || math.Abs(output) <= 0.001 {
		return output
	}

	multiplier := 1.0
	if allButtons {
		multiplier = 3.0
	}
	grAmount := clamp(reduction/20, 0, 1)

	tanhDrive := 1 + grAmount*multiplier*0.5
	distorted := math.Tanh(output*tanhDrive) / tanhDrive
	blend := 0.2 + grAmount*0.3
	output = output*(1-blend) + distorted*blend

	sign := 1.0
	if output < 0 {
		sign = -1
	}

	harmonicScale := 0.2 + grAmount*0.8
	h2 := output * output * (0.0010 * multiplier * harmonicScale)
	h3 := output * output * output * (0.00075 * multiplier * harmonicScale * harmonicScale)
	h5 := math.Pow(output, 5) * (0.00015 * multiplier * grAmount * grAmount)
	output += h2*sign + h3 + h5

	if abs := math.Abs(output); abs > 1.5 {
		output = sign * (1.5 + math.Tanh((abs-1.5)*0.2)*0.5)
	}
	return output
}

// allButtonsCurve is the measured all-buttons transfer: gentle below
// 3 dB over threshold, steepening through 10 dB, then near-limiting.
func allButtonsCurve(overDb float64) float64 {
	var reduction float64
	switch {
	case overDb < 3:
		reduction = overDb * 0.33
	case overDb < 10:
		t := (overDb - 3) / 7
		reduction = 1 + (overDb-3)*(0.75+t*0.15)
	default:
		reduction = 6.25 + (overDb-10)*0.95
	}
	return math.Min(reduction, fetMaxReductionDB)
}

// GainReduction returns the current reduction for the channel in dB.
func (f *FET) GainReduction(channel int) float64 {
	if channel < 0 || channel >= len(f.channels) {
		return 0
	}
	return gainToDecibels(f.channels[channel].envelope)
}

// Reset restores all channels to their idle state.
func (f *FET) Reset() {
	for i := range f.channels {
		f.channels[i] = fetChannel{envelope: 1}
	}
	f.shaper.reset()
}
