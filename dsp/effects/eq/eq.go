package eq

import (
	"math"

	"github.com/cwbudde/algo-analog/dsp/core"
)

const defaultSeed = 1

type settings struct {
	seed int64
}

// Option configures an engine at construction time.
type Option func(*settings)

// WithSeed sets the seed for per-instance component tolerances and
// noise sources. The default seed is 1.
func WithSeed(seed int64) Option {
	return func(s *settings) { s.seed = seed }
}

func applyOptions(opts []Option) settings {
	s := settings{seed: defaultSeed}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// preWarpFrequency compensates bilinear-transform frequency cramping
// so a band tuned near Nyquist lands on its analog center frequency.
func preWarpFrequency(freq, sampleRate float64) float64 {
	nyquist := sampleRate / 2
	safe := math.Min(freq, nyquist*0.98)
	safe = math.Max(safe, 1)
	omega := math.Pi * safe / sampleRate
	warped := sampleRate / math.Pi * math.Tan(omega)
	return math.Min(math.Max(warped, 1), nyquist*0.99)
}

// dcBlocker is a first-order highpass used to strip the offset that
// asymmetric waveshaping leaves behind.
type dcBlocker struct {
	coeff float64
	x1    float64
	y1    float64
}

func (d *dcBlocker) prepare(cutoffHz, sampleRate float64) {
	rc := 1 / (2 * math.Pi * cutoffHz)
	d.coeff = rc / (rc + 1/sampleRate)
}

func (d *dcBlocker) process(input float64) float64 {
	out := input - d.x1 + d.coeff*d.y1
	d.x1 = input
	d.y1 = out
	return out
}

func (d *dcBlocker) reset() {
	d.x1 = 0
	d.y1 = 0
}

// hfEstimator tracks high-frequency content with a first difference
// smoothed by a one-pole lowpass. Saturation stages use it to back off
// drive on bright material and keep aliasing down.
type hfEstimator struct {
	lastSample float64
	estimate   float64
}

const (
	hfEstimatorSmoothing = 0.95
	hfEstimatorScale     = 3.0
)

func (h *hfEstimator) process(input float64) float64 {
	diff := math.Abs(input - h.lastSample)
	h.lastSample = input
	h.estimate = h.estimate*hfEstimatorSmoothing + diff*(1-hfEstimatorSmoothing)
	return core.Clamp(h.estimate*hfEstimatorScale, 0, 1)
}

func (h *hfEstimator) reset() {
	h.lastSample = 0
	h.estimate = 0
}
