package dynamics

import "math"

// T4B photocell model constants. The cell combines a fast photoresistor
// response with a slow phosphor persistence that keeps glowing after the
// signal drops.
const (
	t4bFastAttack      = 0.010
	t4bFastRelease     = 0.060
	t4bSlowPersistence = 0.200
	t4bMemoryCoupling  = 0.4

	optoAttackTime     = 0.010
	optoReleaseFastMin = 0.040
	optoReleaseFastMax = 0.080
	optoReleaseSlowMin = 0.5
	optoReleaseSlowMax = 5.0
)

// OptoParams is the per-sample parameter snapshot for the Opto engine.
type OptoParams struct {
	// PeakReduction drives the sidechain gain, 0..100.
	PeakReduction float64
	// GainDB is the output tube stage gain, -40..+40 dB.
	GainDB float64
	// Limit switches to the high-ratio limit curve with a small
	// feedforward blend in the detector.
	Limit bool
	// Oversampled enables the 4th-order tube harmonic, which is only
	// safe when the engine runs on an oversampled signal.
	Oversampled bool
}

// Opto models an optical feedback compressor. Gain reduction follows the
// light emitted by the program signal itself, so the attack is fixed and
// the release is a two-stage, program-dependent recovery.
type Opto struct {
	sampleRate float64
	channels   []optoChannel

	fastAttackCoeff float64
	slowCoeff       float64
	attackCoeff     float64
	hfCoeff         float64
}

type optoChannel struct {
	envelope   float64
	fastMemory float64
	slowMemory float64
	prevInput  float64
	hfFilter   float64

	maxReduction float64
	holdCounter  float64

	releasePhase      bool
	releaseStartLevel float64

	transformerState float64

	transients transientTracker
}

// NewOpto creates an optical compressor for the given sample rate and
// channel count.
func NewOpto(sampleRate float64, numChannels int) (*Opto, error) {
	if err := validateSampleRate(sampleRate); err != nil {
		return nil, err
	}
	if err := validateChannelCount(numChannels); err != nil {
		return nil, err
	}

	o := &Opto{
		sampleRate:      sampleRate,
		channels:        make([]optoChannel, numChannels),
		fastAttackCoeff: onePoleCoeff(t4bFastAttack, sampleRate),
		slowCoeff:       onePoleCoeff(t4bSlowPersistence, sampleRate),
		attackCoeff:     onePoleCoeff(optoAttackTime, sampleRate),
		hfCoeff:         mathExp(-2 * math.Pi * 20000 / sampleRate),
	}
	o.Reset()
	return o, nil
}

// Process compresses one sample on the given channel. Out-of-range
// channels pass through unchanged.
func (o *Opto) Process(input float64, channel int, p OptoParams) float64 {
	if channel < 0 || channel >= len(o.channels) {
		return input
	}
	ch := &o.channels[channel]

	// Feedback topology: the detector listens to the compressed output.
	compressed := input * ch.envelope
	sidechain := compressed
	if p.Limit {
		sidechain = 0.04*input + 0.96*compressed
	}

	sidechainGain := decibelsToGain(clamp(p.PeakReduction, 0, 100) * 0.4)
	detection := math.Abs(sidechain * sidechainGain)

	// Photocell high-frequency rolloff. Non-finite detector values are
	// dropped here so they cannot poison the cell memories.
	if math.IsNaN(detection) || math.IsInf(detection, 0) {
		detection = 0
		ch.hfFilter = 0
	}
	ch.hfFilter = ch.hfFilter*0.7 + detection*0.3
	detection = ch.hfFilter

	// T4B dual memory: fast cell with attack/release branches, slow
	// phosphor persistence always smoothing, coupled at 40%.
	inputDelta := math.Abs(input - ch.prevInput)
	ch.prevInput = input

	releaseScale := 1.0
	if inputDelta > 0.05 {
		releaseScale = 0.6
	}
	fastReleaseCoeff := onePoleCoeff(t4bFastRelease*releaseScale, o.sampleRate)

	if detection > ch.fastMemory {
		ch.fastMemory = o.fastAttackCoeff*ch.fastMemory + (1-o.fastAttackCoeff)*detection
	} else {
		ch.fastMemory = fastReleaseCoeff*ch.fastMemory + (1-fastReleaseCoeff)*detection
	}
	ch.slowMemory = o.slowCoeff*ch.slowMemory + (1-o.slowCoeff)*detection

	lightLevel := ch.fastMemory + ch.slowMemory*t4bMemoryCoupling

	// Dynamic threshold drops slightly on hot input so the knee stays
	// progressive.
	threshold := 0.5 - clamp(math.Abs(input)*0.3, 0, 0.2)

	reduction := 0.0
	if lightLevel > threshold {
		excess := (lightLevel - threshold) / (threshold + epsilon)

		lightIntensity := clamp(ch.maxReduction/30, 0, 1)
		maxRatio := 10.0
		if p.Limit {
			maxRatio = 20.0
		}
		programRatio := 3 + (maxRatio-3)*math.Log10(1+lightIntensity*9)
		variableRatio := programRatio * (1 + excess*8)

		reduction = math.Min(20*math.Log10(1+excess*variableRatio), 40)
	}

	// Gain reduction history feeds the program-dependent release.
	if reduction > 0.5 {
		ch.maxReduction = math.Max(ch.maxReduction, reduction)
		ch.holdCounter = math.Min(ch.holdCounter+1, 10*o.sampleRate)
	} else {
		ch.maxReduction *= 0.9999
		ch.holdCounter *= 0.999
	}

	ch.transients.observe(math.Abs(input))

	targetEnv := decibelsToGain(-reduction)
	if targetEnv < ch.envelope {
		// Attack: fixed optical lag.
		ch.envelope = o.attackCoeff*ch.envelope + (1-o.attackCoeff)*targetEnv
		ch.releasePhase = false
	} else {
		if !ch.releasePhase {
			ch.releasePhase = true
			ch.releaseStartLevel = ch.envelope
		}

		// Two-stage release: the first half of the recovery is fast
		// (40-80 ms), the remainder crawls back over 0.5-5 s depending
		// on how long and how hard the cell was lit.
		recovery := (ch.envelope - ch.releaseStartLevel) / (1 - ch.releaseStartLevel + epsilon)

		var releaseTime float64
		if recovery < 0.5 {
			depth := clamp(ch.maxReduction/20, 0, 1)
			releaseTime = (optoReleaseFastMin + depth*(optoReleaseFastMax-optoReleaseFastMin)) *
				(1 - ch.transients.density*0.4)
		} else {
			lightIntensity := clamp(ch.maxReduction/30, 0, 1)
			timeHeld := clamp(ch.holdCounter/(2*o.sampleRate), 0, 1)
			transientFactor := 1 + (1-ch.transients.density)*0.3
			releaseTime = (optoReleaseSlowMin + lightIntensity*timeHeld*(optoReleaseSlowMax-optoReleaseSlowMin)) *
				transientFactor
		}

		releaseCoeff := onePoleCoeff(releaseTime, o.sampleRate)
		ch.envelope = releaseCoeff*ch.envelope + (1-releaseCoeff)*targetEnv
	}

	ch.envelope = clamp(sanitizeEnvelope(ch.envelope), 0.0001, 1)

	return o.outputStage(input, input*ch.envelope, channel, p)
}

// outputStage applies the tube makeup amplifier and output transformer.
func (o *Opto) outputStage(input, compressed float64, channel int, p OptoParams) float64 {
	ch := &o.channels[channel]

	driven := compressed * decibelsToGain(clamp(p.GainDB, -40, 40))
	saturated := driven

	absDriven := math.Abs(driven)
	if absDriven > 0.001 {
		levelDb := gainToDecibels(absDriven)
		if levelDb > -40 {
			// Tube THD target: 0.25% at nominal level, 0.5% when hot.
			thd := 0.0025
			if levelDb > 6 {
				thd = 0.005
			}

			sign := 1.0
			if driven < 0 {
				sign = -1
			}

			h2 := absDriven * absDriven * (thd * 0.85)
			h3 := absDriven * absDriven * absDriven * (thd * 0.12)
			saturated += driven*driven*sign*h2 + driven*driven*driven*h3
			if p.Oversampled {
				h4 := absDriven * absDriven * absDriven * absDriven * (thd * 0.03)
				saturated += driven * driven * driven * driven * sign * h4
			}
		}

		absInput := math.Abs(input)
		if absInput > 0.8 {
			sign := 1.0
			if input < 0 {
				sign = -1
			}
			tubeSat := 0.8 + 0.2*math.Tanh((absInput-0.8)*0.7)
			saturated = sign * tubeSat * (saturated / absInput)
		}
	}

	// Output transformer high-frequency loss.
	c := o.hfCoeff * 0.05
	ch.transformerState = saturated*(1-c) + ch.transformerState*c
	if math.IsNaN(ch.transformerState) || math.IsInf(ch.transformerState, 0) {
		ch.transformerState = 0
	}

	return hardLimit(ch.transformerState)
}

// GainReduction returns the current reduction for the channel in dB
// (zero or negative).
func (o *Opto) GainReduction(channel int) float64 {
	if channel < 0 || channel >= len(o.channels) {
		return 0
	}
	return gainToDecibels(o.channels[channel].envelope)
}

// Reset restores all channels to their idle state.
func (o *Opto) Reset() {
	for i := range o.channels {
		o.channels[i] = optoChannel{
			envelope:   1,
			transients: newTransientTracker(o.sampleRate),
		}
	}
}
