package eq

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/algo-analog/dsp/core"
)

// Console selects the harmonic voicing of the saturation stage.
type Console int

const (
	// ConsoleESeries is the brown-knob voicing: transformer coupled,
	// warmer, dominated by the 2nd harmonic.
	ConsoleESeries Console = iota
	// ConsoleGSeries is the black-knob voicing: transformerless,
	// cleaner, dominated by the 3rd harmonic.
	ConsoleGSeries
)

// Per-stage drive multipliers and harmonic injection thresholds. The
// E-Series circuit starts coloring at a lower level than the G-Series.
const (
	sslInputTransformerDrive  = 4.0
	sslOpAmpDrive             = 5.0
	sslOutputTransformerDrive = 2.0

	sslThresholdESeries = 0.6
	sslThresholdGSeries = 0.45

	sslESecondInput = 0.12
	sslESecondOpAmp = 0.10
	sslGSecond      = 0.02
	sslGThird       = 0.10

	sslNoiseFloor    = 0.00003162 // -90 dB
	sslDCBlockerHz   = 5.0
	sslToleranceSpan = 0.05
)

// SSLSaturation is a three-stage console saturation model: input
// transformer, op-amp gain stage, and (E-Series only) output
// transformer. Each instance carries seeded component tolerances so no
// two "units" sound exactly alike unless built with the same seed.
type SSLSaturation struct {
	console    Console
	sampleRate float64
	seed       int64

	transformerTol float64
	opAmpTol       float64
	outputTol      float64

	hf    hfEstimator
	dc    dcBlocker
	noise *rand.Rand
}

// NewSSLSaturation creates a single-channel saturation stage.
func NewSSLSaturation(sampleRate float64, opts ...Option) (*SSLSaturation, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("eq: sample rate must be positive and finite: %v", sampleRate)
	}

	cfg := applyOptions(opts)
	s := &SSLSaturation{
		sampleRate: sampleRate,
		seed:       cfg.seed,
	}

	rng := rand.New(rand.NewSource(cfg.seed))
	s.transformerTol = 1 + (rng.Float64()*2-1)*sslToleranceSpan
	s.opAmpTol = 1 + (rng.Float64()*2-1)*sslToleranceSpan
	s.outputTol = 1 + (rng.Float64()*2-1)*sslToleranceSpan
	s.noise = rand.New(rand.NewSource(rng.Int63()))

	s.dc.prepare(sslDCBlockerHz, sampleRate)
	return s, nil
}

// SetConsole switches the harmonic voicing.
func (s *SSLSaturation) SetConsole(c Console) { s.console = c }

// Console reports the active voicing.
func (s *SSLSaturation) Console() Console { return s.console }

// Reset clears filter and estimator state and reseeds the noise source.
func (s *SSLSaturation) Reset() {
	s.hf.reset()
	s.dc.reset()
	rng := rand.New(rand.NewSource(s.seed))
	rng.Float64()
	rng.Float64()
	rng.Float64()
	s.noise = rand.New(rand.NewSource(rng.Int63()))
}

// Process saturates one sample with the given drive amount (0..1). A
// non-finite input returns silence; a non-finite intermediate result
// returns the dry sample.
func (s *SSLSaturation) Process(input, drive float64) float64 {
	if math.IsNaN(input) || math.IsInf(input, 0) {
		return 0
	}
	if drive < 0.001 {
		return input
	}

	// Pre-saturation limiting keeps extreme peaks from aliasing hard.
	limited := input
	if abs := math.Abs(input); abs > 0.95 {
		compressed := 0.95 + math.Tanh((abs-0.95)*3)*0.05
		limited = math.Copysign(compressed, input)
	}

	// Bright material gets progressively less drive.
	hfContent := s.hf.process(limited)
	effectiveDrive := drive * (1 - hfContent*(0.25+drive*0.35))

	transformed := s.inputTransformer(limited, effectiveDrive*s.transformerTol)
	opAmpOut := s.opAmpStage(transformed, effectiveDrive*s.opAmpTol)

	output := opAmpOut
	if s.console == ConsoleESeries {
		output = s.outputTransformer(opAmpOut, drive*0.7*s.outputTol)
	}

	noiseLevel := sslNoiseFloor * (1 + drive*0.5)
	output += (s.noise.Float64()*2 - 1) * noiseLevel

	output = s.dc.process(output)

	wet := core.Clamp(drive*1.4, 0, 1)
	result := input*(1-wet) + output*wet
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return input
	}
	return result
}

func (s *SSLSaturation) threshold() float64 {
	if s.console == ConsoleESeries {
		return sslThresholdESeries
	}
	return sslThresholdGSeries
}

// inputTransformer stays linear at normal levels and compresses
// progressively when driven, emphasizing even harmonics.
func (s *SSLSaturation) inputTransformer(input, drive float64) float64 {
	transformerDrive := 1 + drive*sslInputTransformerDrive
	driven := input * transformerDrive

	abs := math.Abs(driven)
	var saturated float64
	switch {
	case abs < 0.9:
		saturated = driven
	case abs < 1.5:
		excess := abs - 0.9
		saturated = math.Copysign(0.9+excess*(1-excess*0.15), driven)
	default:
		excess := abs - 1.5
		saturated = math.Copysign(1.5+math.Tanh(excess*1.5)*0.3, driven)
	}

	threshold := s.threshold()
	if abs > threshold {
		amount := core.Clamp((abs-threshold)/(1.2-threshold), 0, 1)
		if s.console == ConsoleESeries {
			saturated += saturated * saturated * (sslESecondInput * amount)
		} else {
			saturated += saturated * saturated * (sslGSecond * amount)
			saturated += saturated * saturated * saturated * (sslGThird * amount)
		}
	}

	return saturated / transformerDrive
}

// opAmpStage clips asymmetrically: the positive rail saturates at a
// slightly different level than the negative one.
func (s *SSLSaturation) opAmpStage(input, drive float64) float64 {
	opAmpDrive := 1 + drive*sslOpAmpDrive
	driven := input * opAmpDrive

	clipHardness := 1.5
	if s.console == ConsoleGSeries {
		clipHardness = 2.0
	}

	var output float64
	if driven > 0 {
		switch {
		case driven < 1:
			output = driven
		case driven < 1.8:
			excess := driven - 1
			output = 1 + excess*(1-excess*0.2)
		default:
			output = 1.5 + math.Tanh((driven-1.8)*clipHardness)*0.3
		}
	} else {
		switch {
		case driven > -1:
			output = driven
		case driven > -1.9:
			excess := -driven - 1
			output = -1 - excess*(1-excess*0.18)
		default:
			output = -1.55 + math.Tanh((driven+1.9)*clipHardness)*0.3
		}
	}

	threshold := s.threshold()
	if abs := math.Abs(driven); abs > threshold {
		amount := core.Clamp((abs-threshold)/(1.5-threshold), 0, 1)
		if s.console == ConsoleESeries {
			output += output * output * math.Copysign(sslESecondOpAmp*amount, output)
		} else {
			output += output * output * math.Copysign(sslGSecond*amount, output)
			output += output * output * output * (sslGThird * amount)
		}
	}

	return output / opAmpDrive
}

// outputTransformer adds a final touch of even harmonics on the
// E-Series path. It saturates earlier but much softer than the input
// transformer.
func (s *SSLSaturation) outputTransformer(input, drive float64) float64 {
	transformerDrive := 1 + drive*sslOutputTransformerDrive
	driven := input * transformerDrive

	abs := math.Abs(driven)
	var saturated float64
	switch {
	case abs < 0.5:
		saturated = driven
	case abs < 0.9:
		excess := abs - 0.5
		saturated = math.Copysign(0.5+excess*(1-excess*0.25), driven)
	default:
		excess := abs - 0.9
		saturated = math.Copysign(0.9+math.Tanh(excess*1.5)*0.15, driven)
	}

	saturated += saturated * saturated * 0.05

	return saturated / transformerDrive
}
