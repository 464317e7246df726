package signal

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/algo-analog/dsp/core"
)

// Generator creates deterministic signals from a shared configuration.
type Generator struct {
	cfg  core.ProcessorConfig
	seed int64
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed sets deterministic random seed for noise generation.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// NewGenerator creates a configured signal generator.
func NewGenerator(opts ...core.ProcessorOption) *Generator {
	return &Generator{
		cfg:  core.ApplyProcessorOptions(opts...),
		seed: 1,
	}
}

// NewGeneratorWithOptions creates a configured signal generator with signal-specific options.
func NewGeneratorWithOptions(coreOpts []core.ProcessorOption, opts ...Option) *Generator {
	g := &Generator{
		cfg:  core.ApplyProcessorOptions(coreOpts...),
		seed: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Config returns the generator processor configuration.
func (g *Generator) Config() core.ProcessorConfig {
	return g.cfg
}

// SetSeed replaces the noise seed.
func (g *Generator) SetSeed(seed int64) {
	g.seed = seed
}

// Seed returns the current noise seed.
func (g *Generator) Seed() int64 {
	return g.seed
}

// Sine generates a sine wave.
func (g *Generator) Sine(freqHz, amplitude float64, samples int) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("sine samples must be > 0: %d", samples)
	}
	if g.cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sine sample rate must be > 0: %f", g.cfg.SampleRate)
	}
	out := make([]float64, samples)
	step := 2 * math.Pi * freqHz / g.cfg.SampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out, nil
}

// Multisine generates a sum of sine components whose amplitudes total
// amplitude.
func (g *Generator) Multisine(freqsHz []float64, amplitude float64, samples int) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("multisine samples must be > 0: %d", samples)
	}
	if len(freqsHz) == 0 {
		return nil, fmt.Errorf("multisine needs at least one frequency")
	}
	if g.cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("multisine sample rate must be > 0: %f", g.cfg.SampleRate)
	}
	out := make([]float64, samples)
	scale := amplitude / float64(len(freqsHz))
	for _, f := range freqsHz {
		step := 2 * math.Pi * f / g.cfg.SampleRate
		for i := range out {
			out[i] += scale * math.Sin(step*float64(i))
		}
	}
	return out, nil
}

// Impulse generates a block that is zero except for one sample of the
// given amplitude at position.
func (g *Generator) Impulse(amplitude float64, samples, position int) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("impulse samples must be > 0: %d", samples)
	}
	if position < 0 || position >= samples {
		return nil, fmt.Errorf("impulse position out of range [0, %d): %d", samples, position)
	}
	out := make([]float64, samples)
	out[position] = amplitude
	return out, nil
}

// LinearSweep generates a sine sweep whose frequency moves linearly
// from f0 to f1 over the block.
func (g *Generator) LinearSweep(f0, f1, amplitude float64, samples int) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("sweep samples must be > 0: %d", samples)
	}
	if g.cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sweep sample rate must be > 0: %f", g.cfg.SampleRate)
	}
	out := make([]float64, samples)
	phase := 0.0
	for i := range out {
		out[i] = amplitude * math.Sin(phase)
		t := float64(i) / float64(samples)
		f := f0 + (f1-f0)*t
		phase += 2 * math.Pi * f / g.cfg.SampleRate
	}
	return out, nil
}

// LogSweep generates a sine sweep whose frequency moves exponentially
// from f0 to f1 over the block. Both frequencies must be positive.
func (g *Generator) LogSweep(f0, f1, amplitude float64, samples int) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("sweep samples must be > 0: %d", samples)
	}
	if g.cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sweep sample rate must be > 0: %f", g.cfg.SampleRate)
	}
	if f0 <= 0 || f1 <= 0 {
		return nil, fmt.Errorf("log sweep frequencies must be > 0: %f, %f", f0, f1)
	}
	out := make([]float64, samples)
	ratio := f1 / f0
	phase := 0.0
	for i := range out {
		out[i] = amplitude * math.Sin(phase)
		t := float64(i) / float64(samples)
		f := f0 * math.Pow(ratio, t)
		phase += 2 * math.Pi * f / g.cfg.SampleRate
	}
	return out, nil
}

// WhiteNoise generates deterministic white noise in [-amplitude, amplitude].
func (g *Generator) WhiteNoise(amplitude float64, samples int) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("noise samples must be > 0: %d", samples)
	}
	if amplitude < 0 {
		return nil, fmt.Errorf("noise amplitude must be >= 0: %f", amplitude)
	}
	out := make([]float64, samples)
	rng := rand.New(rand.NewSource(g.seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out, nil
}

// Normalize scales data to target peak amplitude and returns a new slice.
func Normalize(data []float64, targetPeak float64) ([]float64, error) {
	if targetPeak < 0 {
		return nil, fmt.Errorf("normalize target peak must be >= 0: %f", targetPeak)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("normalize input must not be empty")
	}

	maxAbs := 0.0
	for _, v := range data {
		av := math.Abs(v)
		if av > maxAbs {
			maxAbs = av
		}
	}

	out := make([]float64, len(data))
	if maxAbs == 0 || targetPeak == 0 {
		return out, nil
	}

	scale := targetPeak / maxAbs
	for i, v := range data {
		out[i] = v * scale
	}
	return out, nil
}

// Clip limits every sample to [lo, hi] and returns a new slice.
func Clip(data []float64, lo, hi float64) ([]float64, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("clip input must not be empty")
	}
	if lo > hi {
		return nil, fmt.Errorf("clip bounds inverted: [%f, %f]", lo, hi)
	}
	out := make([]float64, len(data))
	for i, v := range data {
		switch {
		case v < lo:
			out[i] = lo
		case v > hi:
			out[i] = hi
		default:
			out[i] = v
		}
	}
	return out, nil
}

// RemoveDC subtracts the mean from data and returns a new slice.
func RemoveDC(data []float64) ([]float64, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("remove DC input must not be empty")
	}
	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))

	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = v - mean
	}
	return out, nil
}

// EnvelopeFollower tracks the rectified input with separate attack and
// release smoothing coefficients in (0, 1].
func EnvelopeFollower(data []float64, attack, release float64) ([]float64, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("envelope follower input must not be empty")
	}
	if attack <= 0 || attack > 1 {
		return nil, fmt.Errorf("envelope follower attack must be in (0, 1]: %f", attack)
	}
	if release <= 0 || release > 1 {
		return nil, fmt.Errorf("envelope follower release must be in (0, 1]: %f", release)
	}

	out := make([]float64, len(data))
	env := 0.0
	for i, x := range data {
		a := math.Abs(x)
		coeff := release
		if a > env {
			coeff = attack
		}
		env += (a - env) * coeff
		out[i] = env
	}
	return out, nil
}
