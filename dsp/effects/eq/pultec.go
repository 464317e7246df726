package eq

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-analog/dsp/core"
	"github.com/cwbudde/algo-analog/dsp/filter/biquad"
	"github.com/cwbudde/algo-analog/dsp/filter/design"
)

// Stepped frequency positions of the hardware selector switches.
var (
	LFBoostFrequencies = []float64{20, 30, 60, 100}
	HFBoostFrequencies = []float64{3000, 4000, 5000, 8000, 10000, 12000, 16000}
	HFAttenFrequencies = []float64{5000, 10000, 20000}
	MidLowFrequencies  = []float64{200, 300, 500, 700, 1000}
	MidDipFrequencies  = []float64{200, 300, 500, 700, 1000, 1500, 2000}
	MidHighFrequencies = []float64{1500, 2000, 3000, 4000, 5000}
)

// PultecParams is the parameter snapshot for the tube program EQ. Gain
// knobs run 0..10 like the hardware; frequency selections snap to the
// nearest switch position.
type PultecParams struct {
	// Low section: boost (0-10, ~0-14 dB peak) and attenuation
	// (0-10, ~0-16 dB shelf) share the LC network and interact.
	LFBoostGain float64
	LFBoostFreq float64
	LFAttenGain float64

	// HF boost: resonant peak, 0-10 maps to ~0-16 dB.
	HFBoostGain float64
	HFBoostFreq float64
	// HFBoostBandwidth runs 0 (sharp) to 1 (broad).
	HFBoostBandwidth float64

	// HF attenuation shelf, 0-10 maps to ~0-20 dB cut.
	HFAttenGain float64
	HFAttenFreq float64

	// Mid section, the MEQ-style dip/peak bands.
	MidEnabled  bool
	MidLowFreq  float64
	MidLowPeak  float64
	MidDipFreq  float64
	MidDip      float64
	MidHighFreq float64
	MidHighPeak float64

	InputGainDB  float64
	OutputGainDB float64
	// TubeDrive is the make-up stage saturation amount, 0..1.
	TubeDrive float64
	Bypass    bool
}

// DefaultPultecParams returns the hardware rest position.
func DefaultPultecParams() PultecParams {
	return PultecParams{
		LFBoostFreq:      60,
		HFBoostFreq:      8000,
		HFBoostBandwidth: 0.5,
		HFAttenFreq:      10000,
		MidEnabled:       true,
		MidLowFreq:       500,
		MidDipFreq:       700,
		MidHighFreq:      3000,
		TubeDrive:        0.3,
	}
}

// Pultec is a single-channel passive tube EQ: transformer input, LC
// boost/cut low section with the classic boost/atten interaction,
// inductor-colored HF boost, mid dip/peak bands, a triode make-up
// stage, and a transformer output.
type Pultec struct {
	sampleRate float64
	seed       int64

	lfBoost biquad.Section
	lfAtten biquad.Section
	hfBoost biquad.Section
	hfAtten biquad.Section

	midLowPeak  biquad.Section
	midDip      biquad.Section
	midHighPeak biquad.Section

	// lfInductor sits in the LC boost path; hfInductor colors the HF
	// boost. The Q inductors only shape coefficients.
	lfInductor  *inductorModel
	hfInductor  *inductorModel
	lfQInductor *inductorModel
	hfQInductor *inductorModel

	// LC network state.
	boostState1   float64
	boostState2   float64
	attenState    float64
	interactionHP float64
	interactionLP float64
	lfShelfState  float64

	tube           tubeStage
	inTransformer  transformerColor
	outTransformer transformerColor

	// Snapped switch positions, refreshed on retune.
	lfFreq float64

	last  PultecParams
	tuned bool
}

// NewPultec creates a single-channel tube program EQ.
func NewPultec(sampleRate float64, opts ...Option) (*Pultec, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("eq: sample rate must be positive and finite: %v", sampleRate)
	}

	cfg := applyOptions(opts)
	p := &Pultec{
		sampleRate:  sampleRate,
		seed:        cfg.seed,
		lfInductor:  newInductorModel(cfg.seed),
		hfInductor:  newInductorModel(cfg.seed + 1),
		lfQInductor: newInductorModel(cfg.seed),
		hfQInductor: newInductorModel(cfg.seed + 1),
	}

	p.tube.prepare(sampleRate)
	p.inTransformer.prepare(transformerProfile{
		saturation:        0.15,
		lowFreqSaturation: 1.3,
		hfRolloffHz:       22000,
		dcBlockHz:         10,
		h2:                0.02,
		h3:                0.005,
		h4:                0.001,
	}, sampleRate)
	p.outTransformer.prepare(transformerProfile{
		saturation:        0.12,
		lowFreqSaturation: 1.2,
		hfRolloffHz:       20000,
		dcBlockHz:         8,
		h2:                0.015,
		h3:                0.004,
		h4:                0.001,
	}, sampleRate)

	return p, nil
}

// SampleRate reports the rate the engine was built for.
func (p *Pultec) SampleRate() float64 { return p.sampleRate }

// InductorLevel reports the RMS level seen by the LC boost inductor,
// for program-dependent metering.
func (p *Pultec) InductorLevel() float64 { return p.lfInductor.rms() }

// Reset clears all filter, network, and analog-stage state.
func (p *Pultec) Reset() {
	p.lfBoost.Reset()
	p.lfAtten.Reset()
	p.hfBoost.Reset()
	p.hfAtten.Reset()
	p.midLowPeak.Reset()
	p.midDip.Reset()
	p.midHighPeak.Reset()

	p.lfInductor.reset()
	p.hfInductor.reset()

	p.boostState1 = 0
	p.boostState2 = 0
	p.attenState = 0
	p.interactionHP = 0
	p.interactionLP = 0
	p.lfShelfState = 0

	p.tube.reset()
	p.inTransformer.reset()
	p.outTransformer.reset()
}

// ProcessBlock runs the EQ in place.
func (p *Pultec) ProcessBlock(buf []float64, params PultecParams) {
	if params.Bypass {
		return
	}

	if !p.tuned || params != p.last {
		p.updateFilters(params)
		p.last = params
		p.tuned = true
	}

	inGain := 1.0
	if math.Abs(params.InputGainDB) > 0.01 {
		inGain = core.DBToLinear(params.InputGainDB)
	}
	outGain := 1.0
	if math.Abs(params.OutputGainDB) > 0.01 {
		outGain = core.DBToLinear(params.OutputGainDB)
	}

	for i, sample := range buf {
		sample *= inGain

		if math.IsNaN(sample) || math.IsInf(sample, 0) {
			buf[i] = 0
			continue
		}

		sample = p.inTransformer.process(sample)

		sample = p.processLFNetwork(sample, params.LFBoostGain, params.LFAttenGain)

		// The IIR sections sit alongside the LC network for an
		// accurate steady-state response; blend the two.
		if params.LFBoostGain > 0.01 {
			sample = sample*0.4 + p.lfBoost.ProcessSample(sample)*0.6
		}
		if params.LFAttenGain > 0.01 {
			sample = p.lfAtten.ProcessSample(sample)
		}

		if params.HFBoostGain > 0.01 {
			hfSample := p.hfInductor.nonlinearity(sample, params.HFBoostGain*0.2)
			sample = sample*0.3 + p.hfBoost.ProcessSample(hfSample)*0.7
		}
		if params.HFAttenGain > 0.01 {
			sample = p.hfAtten.ProcessSample(sample)
		}

		if params.MidEnabled {
			if params.MidLowPeak > 0.01 {
				sample = p.midLowPeak.ProcessSample(sample)
			}
			if params.MidDip > 0.01 {
				sample = p.midDip.ProcessSample(sample)
			}
			if params.MidHighPeak > 0.01 {
				sample = p.midHighPeak.ProcessSample(sample)
			}
		}

		if params.TubeDrive > 0.01 {
			sample = p.tube.process(sample)
		}

		sample = p.outTransformer.process(sample)

		if math.IsNaN(sample) || math.IsInf(sample, 0) {
			sample = 0
		}
		buf[i] = sample * outGain
	}
}

// processLFNetwork is the shared LC tank: a resonant SVF boost, a
// one-pole shelf cut at 0.7x the boost frequency, and, when both are
// engaged, the interaction bump above the boost frequency plus the
// low-mid scoop that makes the boost+atten trick work.
func (p *Pultec) processLFNetwork(input, boostGain, attenGain float64) float64 {
	if boostGain < 0.01 && attenGain < 0.01 {
		return input
	}
	if math.IsNaN(input) || math.IsInf(input, 0) {
		input = 0
	}

	sr := p.sampleRate
	frequency := core.Clamp(p.lfFreq, 10, sr*0.1)

	effectiveQ := p.lfInductor.frequencyDependentQ(frequency, 0.55)
	effectiveQ = math.Max(effectiveQ, 0.2)

	cutShelfFreq := frequency * 0.7
	interactionFreq := frequency * 1.5

	output := input

	if boostGain > 0.01 {
		omega := math.Min(2*math.Pi*frequency/sr, 0.45)
		alpha := core.Clamp(math.Sin(omega)/(2*effectiveQ), 0.01, 0.95)

		invQ := 1 / effectiveQ
		hp := input - p.boostState1*invQ - p.boostState2
		bp := hp*alpha + p.boostState1
		lp := bp*alpha + p.boostState2

		p.boostState1 = core.Clamp(bp, -8, 8)
		p.boostState2 = core.Clamp(lp, -8, 8)

		boostLinear := core.DBToLinear(boostGain*1.4) - 1
		output = input + bp*boostLinear

		output = p.lfInductor.nonlinearity(output, boostGain*0.3)
	}

	if attenGain > 0.01 {
		wc := math.Min(2*math.Pi*cutShelfFreq/sr, 0.35)
		g := math.Tan(wc * 0.5)
		gain := core.Clamp(g/(1+g), 0.01, 0.99)

		p.attenState += gain * (output - p.attenState)
		p.attenState = core.Clamp(p.attenState, -8, 8)

		attenFactor := core.DBToLinear(-attenGain * 1.6)
		output -= p.attenState * (1 - attenFactor)
	}

	if boostGain > 0.01 && attenGain > 0.01 {
		strength := math.Min(boostGain, attenGain) * 0.15

		omega := math.Min(2*math.Pi*interactionFreq/sr, 0.4)
		const intAlpha = 0.02
		p.interactionHP = p.interactionHP*(1-intAlpha) + input*intAlpha
		p.interactionLP = p.interactionLP*0.99 + (input-p.interactionHP)*0.01

		bump := core.Clamp(p.interactionLP*strength*math.Sin(omega), -0.3, 0.3)
		output += bump

		scoopOmega := math.Min(2*math.Pi*frequency*0.5/sr, 0.3)
		p.lfShelfState = p.lfShelfState*0.995 + input*0.005
		output -= p.lfShelfState * strength * 0.5 * math.Sin(scoopOmega)
	}

	if math.IsNaN(output) || math.IsInf(output, 0) {
		return input
	}
	return output
}

func (p *Pultec) updateFilters(params PultecParams) {
	sr := p.sampleRate

	p.lfFreq = nearestStep(params.LFBoostFreq, LFBoostFrequencies)
	hfBoostFreq := nearestStep(params.HFBoostFreq, HFBoostFrequencies)
	hfAttenFreq := nearestStep(params.HFAttenFreq, HFAttenFrequencies)
	midLowFreq := nearestStep(params.MidLowFreq, MidLowFrequencies)
	midDipFreq := nearestStep(params.MidDipFreq, MidDipFrequencies)
	midHighFreq := nearestStep(params.MidHighFreq, MidHighFrequencies)

	lfWarped := preWarpFrequency(p.lfFreq, sr)
	lfQ := p.lfQInductor.frequencyDependentQ(p.lfFreq, 0.5)
	p.lfBoost.Coefficients = pultecPeak(lfWarped, params.LFBoostGain*1.4, lfQ, sr)
	p.lfAtten.Coefficients = design.LowShelf(lfWarped, -params.LFAttenGain*1.6, 0.7, sr)

	// Bandwidth knob: sharp (Q 2.5) down to broad (Q 0.5).
	baseQ := 2.5 - 2*core.Clamp(params.HFBoostBandwidth, 0, 1)
	hfQ := p.hfQInductor.frequencyDependentQ(hfBoostFreq, baseQ)
	p.hfBoost.Coefficients = pultecPeak(preWarpFrequency(hfBoostFreq, sr), params.HFBoostGain*1.6, hfQ, sr)
	p.hfAtten.Coefficients = design.HighShelf(preWarpFrequency(hfAttenFreq, sr), -params.HFAttenGain*2, 0.6, sr)

	p.midLowPeak.Coefficients = pultecPeak(preWarpFrequency(midLowFreq, sr), params.MidLowPeak*1.2, 1.2, sr)
	p.midDip.Coefficients = pultecPeak(preWarpFrequency(midDipFreq, sr), -params.MidDip, 0.8, sr)
	p.midHighPeak.Coefficients = pultecPeak(preWarpFrequency(midHighFreq, sr), params.MidHighPeak*1.2, 1.4, sr)

	p.tube.setDrive(params.TubeDrive)
}

// pultecPeak is the RBJ peak with the Q broadened the way the inductor
// loads the passive network.
func pultecPeak(freq, gainDB, q, sampleRate float64) biquad.Coefficients {
	return design.Peak(freq, gainDB, q*0.85, sampleRate)
}

// nearestStep snaps a requested frequency to the closest switch
// position.
func nearestStep(freq float64, steps []float64) float64 {
	best := steps[0]
	bestDist := math.Abs(freq - best)
	for _, s := range steps[1:] {
		if d := math.Abs(freq - s); d < bestDist {
			best = s
			bestDist = d
		}
	}
	return best
}
