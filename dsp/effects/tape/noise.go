package tape

import (
	"math"
	"math/rand"

	"github.com/cwbudde/algo-analog/dsp/filter/biquad"
	"github.com/cwbudde/algo-analog/dsp/filter/design"
)

// noiseGenerator produces tape hiss: seeded white noise through Paul
// Kellett's six-stage pink filter, a speed-dependent spectral tilt,
// signal-modulated floor rise, and a 4 kHz scrape-flutter band from
// head-to-tape contact.
type noiseGenerator struct {
	rng *rand.Rand

	// Pink filter state.
	b0, b1, b2, b3, b4, b5, b6 float64

	tiltCoeff float64
	tiltState float64

	envCoeff float64
	envelope float64

	scrape biquad.Section
}

func newNoiseGenerator(sampleRate float64, speed Speed, seed int64) *noiseGenerator {
	n := &noiseGenerator{rng: rand.New(rand.NewSource(seed))}
	n.prepare(sampleRate, speed)
	return n
}

func (n *noiseGenerator) prepare(sampleRate float64, speed Speed) {
	// Slower transports concentrate more noise energy at low
	// frequencies.
	tiltFreq := 1500.0
	switch speed {
	case Speed7_5IPS:
		tiltFreq = 800
	case Speed30IPS:
		tiltFreq = 3000
	}
	n.tiltCoeff = onePoleRise(tiltFreq, sampleRate)
	n.envCoeff = onePoleRise(100, sampleRate)
	n.scrape.Coefficients = design.Bandpass(4000, 2, sampleRate)
}

func (n *noiseGenerator) generate(noiseFloor, modulationAmount, signal float64) float64 {
	white := n.rng.NormFloat64()

	n.b0 = 0.99886*n.b0 + white*0.0555179
	n.b1 = 0.99332*n.b1 + white*0.0750759
	n.b2 = 0.96900*n.b2 + white*0.1538520
	n.b3 = 0.86650*n.b3 + white*0.3104856
	n.b4 = 0.55000*n.b4 + white*0.5329522
	n.b5 = -0.7616*n.b5 - white*0.0168980
	pink := (n.b0 + n.b1 + n.b2 + n.b3 + n.b4 + n.b5 + n.b6 + white*0.5362) * 0.11
	n.b6 = white * 0.115926

	n.tiltState += (pink - n.tiltState) * n.tiltCoeff
	tilted := pink - n.tiltState*0.5

	n.envelope += (math.Abs(signal) - n.envelope) * n.envCoeff
	modulated := tilted * (1 + n.envelope*modulationAmount*8)

	scrape := n.scrape.ProcessSample(n.rng.NormFloat64())

	return modulated*noiseFloor + scrape*noiseFloor*0.15
}

func (n *noiseGenerator) reset(seed int64) {
	n.rng = rand.New(rand.NewSource(seed))
	n.b0, n.b1, n.b2, n.b3, n.b4, n.b5, n.b6 = 0, 0, 0, 0, 0, 0, 0
	n.tiltState = 0
	n.envelope = 0
	n.scrape.Reset()
}
