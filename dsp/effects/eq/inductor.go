package eq

import (
	"math"
	"math/rand"

	"github.com/cwbudde/algo-analog/dsp/core"
)

// inductorModel emulates the iron-core inductors of a passive LC EQ:
// frequency-dependent Q (core losses at LF, skin effect at HF), a
// Langevin-style B-H saturation curve with RMS-tracked threshold, and
// flux memory that gives the hysteresis its asymmetry. Component
// tolerances are seeded, so each "unit" has its own character.
type inductorModel struct {
	qVariation   float64
	satVariation float64

	prevInput       float64
	hysteresisState float64
	coreFlux        float64
	rmsLevel        float64
}

func newInductorModel(seed int64) *inductorModel {
	rng := rand.New(rand.NewSource(seed))
	return &inductorModel{
		qVariation:   0.95 + rng.Float64()*0.1,
		satVariation: 0.98 + rng.Float64()*0.04,
	}
}

func (m *inductorModel) reset() {
	m.prevInput = 0
	m.hysteresisState = 0
	m.coreFlux = 0
	m.rmsLevel = 0
}

// frequencyDependentQ scales a base Q by the measured loss curve: the
// core is lossy below 100 Hz, optimal around 300 Hz, and loses Q again
// above 3 kHz as skin effect sets in.
func (m *inductorModel) frequencyDependentQ(frequency, baseQ float64) float64 {
	var mult float64
	switch {
	case frequency < 20:
		mult = 0.5
	case frequency < 60:
		mult = 0.5 + (frequency-20)/40*0.25
	case frequency < 100:
		mult = 0.75 + (frequency-60)/40*0.15
	case frequency < 300:
		mult = 0.9 + (frequency-100)/200*0.1
	case frequency < 1000:
		mult = 1.0 - (frequency-300)/700*0.15
	case frequency < 3000:
		mult = 0.85 - (frequency-1000)/2000*0.15
	case frequency < 10000:
		mult = 0.7 - (frequency-3000)/7000*0.2
	default:
		t := math.Min((frequency-10000)/10000, 1)
		mult = 0.5 - t*0.2
	}
	return baseQ * mult * m.qVariation
}

// nonlinearity runs one sample through the core saturation and
// hysteresis model. Hot program lowers the saturation threshold, a
// crude stand-in for core heating.
func (m *inductorModel) nonlinearity(input, drive float64) float64 {
	if math.IsNaN(input) || math.IsInf(input, 0) {
		return 0
	}

	const rmsCoeff = 0.9995
	m.rmsLevel = m.rmsLevel*rmsCoeff + input*input*(1-rmsCoeff)
	rms := math.Sqrt(m.rmsLevel)

	threshold := (0.65 - rms*0.15) * m.satVariation
	threshold = math.Max(threshold, 0.35)

	saturated := input
	abs := math.Abs(input)
	if abs > threshold {
		excess := (abs - threshold) / (1 - threshold)
		langevin := math.Tanh(excess * 2.5 * (1 + drive))
		compressed := threshold + langevin*(1-threshold)*0.7
		saturated = math.Copysign(compressed, input)

		// Core asymmetry shows up as 2nd harmonic, with a touch of 3rd
		// at high drive.
		saturated += 0.03 * drive * excess * input * abs
		saturated += 0.008 * drive * drive * excess * input * input * input
	}

	delta := saturated - m.prevInput
	m.coreFlux = m.coreFlux*0.97 + delta*(0.08*drive)
	m.coreFlux = core.Clamp(m.coreFlux, -0.15, 0.15)

	m.hysteresisState = m.hysteresisState*0.92 + m.coreFlux*0.08
	output := saturated + m.hysteresisState*0.5

	m.prevInput = input
	return output
}

func (m *inductorModel) rms() float64 {
	return math.Sqrt(m.rmsLevel)
}
