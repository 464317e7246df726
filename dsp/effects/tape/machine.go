package tape

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-analog/dsp/core"
	"github.com/cwbudde/algo-analog/dsp/filter/biquad"
	"github.com/cwbudde/algo-analog/dsp/filter/design"
)

const (
	denormalFloor     = 1e-8
	softClipThreshold = 0.95
	biasUpdateEpsilon = 0.01
	maxCalibrationDB  = 9.0
	lfTrimCornerHz    = 120.0
)

// Params is the per-sample parameter snapshot for a Machine. Continuous
// values are clamped on the audio path rather than validated.
type Params struct {
	Model       Model
	Formulation Formulation
	Speed       Speed
	EQ          EQStandard
	Path        SignalPath

	// Bias sets the AC bias current, 0..1. More bias boosts highs
	// going onto tape and linearizes the hysteresis loop.
	Bias float64
	// SaturationDepth drives the tape and transformer stages, 0..1.
	SaturationDepth float64
	// WowFlutter scales the transport pitch modulation, 0..1.
	WowFlutter float64
	// NoiseEnabled gates the hiss generator; disabled contributes
	// exactly nothing.
	NoiseEnabled bool
	NoiseAmount  float64
	// CalibrationDB is the operating level (0/3/6/9 dB): hotter
	// calibration leaves less headroom before the tape saturates.
	CalibrationDB float64
	InputTrimDB   float64
	OutputTrimDB  float64
}

// Option configures a Machine.
type Option func(*Machine)

// WithSeed sets the seed for noise and flutter jitter.
func WithSeed(seed int64) Option {
	return func(m *Machine) { m.seed = seed }
}

// Machine is one channel of the tape emulation. Processing is
// single-threaded; the meter accessors may be called from other
// goroutines.
type Machine struct {
	sampleRate float64
	seed       int64

	preEmphasis emphasisFilter
	deEmphasis  emphasisFilter
	headBump    biquad.Section
	hfLoss1     biquad.Section
	hfLoss2     biquad.Section
	gapLoss     biquad.Section
	biasFilter  biquad.Section
	dcBlocker   biquad.Section
	phaseSmear  biquad.Section

	hysteresis hysteresisProcessor
	saturator  tapeSaturator
	inputXfmr  transformerStage
	outputXfmr transformerStage
	head       playbackHead
	wowFlutter *wowFlutter
	motor      *motorFlutter
	noise      *noiseGenerator

	lfTrimCoeff float64
	lfTrimState float64

	lastModel Model
	lastForm  Formulation
	lastSpeed Speed
	lastEQ    EQStandard
	lastBias  float64

	machineChars MachineCharacteristics
	tapeChars    TapeCharacteristics
	speedChars   SpeedCharacteristics

	inputLevelBits  atomic.Uint64
	outputLevelBits atomic.Uint64
	gainReduceBits  atomic.Uint64
}

// NewMachine creates a tape machine for the given sample rate.
func NewMachine(sampleRate float64, opts ...Option) (*Machine, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("tape: sample rate must be positive and finite: %v", sampleRate)
	}

	m := &Machine{
		sampleRate: sampleRate,
		seed:       1,
		lastModel:  -1,
		lastForm:   -1,
		lastSpeed:  -1,
		lastEQ:     -1,
		lastBias:   -1,
	}
	for _, opt := range opts {
		opt(m)
	}

	wf, err := newWowFlutter(sampleRate, m.seed)
	if err != nil {
		return nil, err
	}
	m.wowFlutter = wf
	m.motor = newMotorFlutter(sampleRate, m.seed+1)
	m.noise = newNoiseGenerator(sampleRate, Speed15IPS, m.seed+2)

	m.inputXfmr.prepare(sampleRate, false)
	m.outputXfmr.prepare(sampleRate, true)
	m.head.prepare(sampleRate)
	m.lfTrimCoeff = onePoleRise(lfTrimCornerHz, sampleRate)
	m.dcBlocker.Coefficients = design.Highpass(25, 0.707, sampleRate)
	m.saturator.lastGain = 1

	return m, nil
}

// updateFilters retunes every coefficient set from the characteristic
// tables. Called edge-triggered from the audio path, so it must stay
// allocation-free; section state is preserved across retunes.
func (m *Machine) updateFilters(p Params) {
	mc := p.Model.Characteristics()
	tc := p.Formulation.Characteristics()
	sc := p.Speed.Characteristics()
	m.machineChars = mc
	m.tapeChars = tc
	m.speedChars = sc

	tauNum, tauDen := emphasisTimeConstants(p.EQ, p.Speed)
	m.preEmphasis.set(tauNum, tauDen, m.sampleRate)
	m.deEmphasis.set(tauDen, tauNum, m.sampleRate)

	bumpFreq := mc.HeadBumpFreq
	bumpGain := mc.HeadBumpGain * sc.HeadBumpMultiplier
	bumpQ := mc.HeadBumpQ
	switch p.Speed {
	case Speed7_5IPS:
		bumpFreq *= 0.65
		bumpGain *= 1.4
		bumpQ *= 1.3
	case Speed30IPS:
		bumpFreq *= 1.5
		bumpGain *= 0.7
		bumpQ *= 0.8
	}
	bumpGain *= tc.LFEmphasis * 0.8
	bumpFreq = core.Clamp(bumpFreq, 30, 120)
	bumpQ = core.Clamp(bumpQ, 0.7, 2.0)
	bumpGain = core.Clamp(bumpGain, 1.5, 5.0)
	m.headBump.Coefficients = design.Peak(bumpFreq, bumpGain, bumpQ, m.sampleRate)

	maxFilterFreq := m.sampleRate * 0.45
	hfCutoff := math.Min(mc.HFRolloffFreq*sc.HFExtension*tc.HFLoss, maxFilterFreq)
	m.hfLoss1.Coefficients = design.Lowpass(hfCutoff, 0.707, m.sampleRate)
	hfShelfFreq := math.Min(hfCutoff*0.6, maxFilterFreq)
	m.hfLoss2.Coefficients = design.HighShelf(hfShelfFreq, -2*tc.HFLoss, 0.5, m.sampleRate)

	gapFreq, gapGain := 12000.0, -1.5
	switch p.Speed {
	case Speed7_5IPS:
		gapFreq, gapGain = 8000, -3
	case Speed30IPS:
		gapFreq, gapGain = 15000, -0.5
	}
	m.gapLoss.Coefficients = design.HighShelf(gapFreq, gapGain, 0.707, m.sampleRate)

	bias := core.Clamp(p.Bias, 0, 1)
	m.biasFilter.Coefficients = design.HighShelf(6000+bias*4000, bias*3, 0.707, m.sampleRate)

	m.phaseSmear.Coefficients = design.FirstOrderAllpass(3000*(1-mc.PhaseShift*10), m.sampleRate)

	m.saturator.updateCoefficients(mc.CompressionAttack, mc.CompressionRelease, m.sampleRate)
	m.noise.prepare(m.sampleRate, p.Speed)
}

// ProcessSample runs one sample through the machine.
func (m *Machine) ProcessSample(input float64, p Params) float64 {
	return m.process(input, p, 0, false)
}

// ProcessBlock runs a block in place.
func (m *Machine) ProcessBlock(buf []float64, p Params) {
	for i, x := range buf {
		buf[i] = m.process(x, p, 0, false)
	}
}

func (m *Machine) process(input float64, p Params, sharedMod float64, useShared bool) float64 {
	if p.Path == PathThru {
		return input
	}
	if math.IsNaN(input) || math.Abs(input) < denormalFloor {
		return 0
	}

	storeLevel(&m.inputLevelBits, math.Abs(input))

	if p.Model != m.lastModel || p.Speed != m.lastSpeed || p.Formulation != m.lastForm ||
		p.EQ != m.lastEQ || math.Abs(p.Bias-m.lastBias) > biasUpdateEpsilon {
		m.updateFilters(p)
		m.lastModel = p.Model
		m.lastSpeed = p.Speed
		m.lastForm = p.Formulation
		m.lastEQ = p.EQ
		m.lastBias = p.Bias
	}

	processTape := p.Path == PathRepro || p.Path == PathSync
	gapWidth := m.machineChars.GapWidthMicrons
	if p.Path == PathSync {
		// Record heads have roughly twice the playback gap.
		gapWidth *= 2
	}

	depth := core.Clamp(p.SaturationDepth, 0, 1)
	bias := core.Clamp(p.Bias, 0, 1)

	calGain := core.DBToLinear(core.Clamp(p.CalibrationDB, 0, maxCalibrationDB))
	signal := input * core.DBToLinear(p.InputTrimDB) * 0.95 / calGain

	if m.machineChars.HasTransformers {
		signal = m.inputXfmr.process(signal, depth*0.3)
	}

	signal = m.preEmphasis.process(signal)

	if processTape {
		if bias > 0 {
			signal = m.biasFilter.ProcessSample(signal)
		}

		// Higher bias linearizes the loop, trading distortion for
		// headroom.
		hystAmount := m.tapeChars.HysteresisAmount * (1 - bias*0.5)
		signal = m.hysteresis.process(signal, hystAmount, m.tapeChars.HysteresisAsymmetry, m.tapeChars.SaturationPoint)

		signal = generateHarmonics(signal, m.machineChars.SaturationHarmonics, depth)

		signal = m.saturator.process(signal, m.machineChars.SaturationKnee, m.machineChars.CompressionRatio)

		signal = m.gapLoss.ProcessSample(signal)

		m.lfTrimState += (signal - m.lfTrimState) * m.lfTrimCoeff
		signal += m.lfTrimState * (m.tapeChars.LFEmphasis - 1)

		signal = m.hfLoss1.ProcessSample(signal)
		signal = m.hfLoss2.ProcessSample(signal)
		if p.Path == PathSync {
			signal = m.hfLoss1.ProcessSample(signal)
		}

		signal = m.headBump.ProcessSample(signal)

		if p.WowFlutter > 0 {
			amount := core.Clamp(p.WowFlutter, 0, 1)
			motorMod := m.motor.flutter(m.machineChars.MotorQuality*amount, m.speedChars.FlutterRate)
			mod := sharedMod
			if !useShared {
				mod = m.wowFlutter.modulation(amount*0.7, amount*0.3, m.speedChars.WowRate, m.speedChars.FlutterRate)
			}
			signal = m.wowFlutter.process(signal, mod+motorMod*5)
		}

		signal = m.head.process(signal, gapWidth, p.Speed)
	}

	signal = m.deEmphasis.process(signal)
	signal = m.phaseSmear.ProcessSample(signal)

	if m.machineChars.HasTransformers {
		signal = m.outputXfmr.process(signal, depth*0.15)
	}

	if processTape && p.NoiseEnabled && p.NoiseAmount > 0.001 {
		level := core.DBToLinear(m.tapeChars.NoiseFloorDB) *
			m.speedChars.NoiseReduction * core.Clamp(p.NoiseAmount, 0, 1)
		signal += m.noise.generate(level, m.tapeChars.ModulationNoise, signal)
	}

	signal = m.dcBlocker.ProcessSample(signal)
	signal = softClip(signal, softClipThreshold) * core.DBToLinear(p.OutputTrimDB)

	if math.IsNaN(signal) || math.IsInf(signal, 0) {
		signal = 0
	}

	storeLevel(&m.outputLevelBits, math.Abs(signal))
	storeLevel(&m.gainReduceBits, math.Max(0, math.Abs(input)-math.Abs(signal)))
	return signal
}

// InputLevel returns the absolute level of the last processed input
// sample.
func (m *Machine) InputLevel() float64 {
	return math.Float64frombits(m.inputLevelBits.Load())
}

// OutputLevel returns the absolute level of the last output sample.
func (m *Machine) OutputLevel() float64 {
	return math.Float64frombits(m.outputLevelBits.Load())
}

// GainReduction returns the linear level drop through the machine.
func (m *Machine) GainReduction() float64 {
	return math.Float64frombits(m.gainReduceBits.Load())
}

// Reset clears all filter and transport state and reseeds the random
// sources, without reallocating.
func (m *Machine) Reset() {
	m.preEmphasis.reset()
	m.deEmphasis.reset()
	m.headBump.Reset()
	m.hfLoss1.Reset()
	m.hfLoss2.Reset()
	m.gapLoss.Reset()
	m.biasFilter.Reset()
	m.dcBlocker.Reset()
	m.phaseSmear.Reset()

	m.hysteresis.reset()
	m.saturator.reset()
	m.inputXfmr.reset()
	m.outputXfmr.reset()
	m.head.reset()
	m.wowFlutter.reset(m.seed)
	m.motor.reset(m.seed + 1)
	m.noise.reset(m.seed + 2)
	m.lfTrimState = 0

	m.lastModel = -1
	m.lastForm = -1
	m.lastSpeed = -1
	m.lastEQ = -1
	m.lastBias = -1
}

// SampleRate returns the configured sample rate in Hz.
func (m *Machine) SampleRate() float64 { return m.sampleRate }

// softClip limits the final output with a tanh knee above the
// threshold; output magnitude never exceeds 1.
func softClip(x, threshold float64) float64 {
	a := math.Abs(x)
	if a <= threshold {
		return x
	}
	headroom := 1 - threshold
	return math.Copysign(threshold+headroom*math.Tanh((a-threshold)/headroom), x)
}

func storeLevel(meter *atomic.Uint64, level float64) {
	if math.IsNaN(level) || math.IsInf(level, 0) {
		level = 0
	}
	meter.Store(math.Float64bits(level))
}
