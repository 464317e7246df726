package tape

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/algo-analog/dsp/core"
	"github.com/cwbudde/algo-analog/dsp/delay"
)

// wowFlutterBaseDelay keeps the modulated read position safely inside
// the buffer; wow swings +-10 samples and flutter +-2 around it.
const wowFlutterBaseDelay = 20.0

// onePoleRise returns the per-sample smoothing coefficient for a
// one-pole lowpass with the given corner.
func onePoleRise(freqHz, sampleRate float64) float64 {
	return 1 - math.Exp(-2*math.Pi*freqHz/sampleRate)
}

// wowFlutter is the transport pitch modulation: a slow wow sine, a
// faster flutter sine, and seeded random scrape, all driving a
// fractional delay line.
type wowFlutter struct {
	line         *delay.Line
	wowPhase     float64
	flutterPhase float64
	rng          *rand.Rand
	sampleRate   float64
}

func newWowFlutter(sampleRate float64, seed int64) (*wowFlutter, error) {
	size := int(sampleRate * 0.05)
	if size < 64 {
		size = 64
	}
	line, err := delay.New(size)
	if err != nil {
		return nil, fmt.Errorf("wow/flutter delay: %w", err)
	}
	return &wowFlutter{
		line:       line,
		rng:        rand.New(rand.NewSource(seed)),
		sampleRate: sampleRate,
	}, nil
}

// modulation advances the oscillators and returns the current delay
// offset in samples.
func (w *wowFlutter) modulation(wowAmount, flutterAmount, wowRate, flutterRate float64) float64 {
	wowMod := math.Sin(w.wowPhase) * wowAmount * 10
	flutterMod := math.Sin(w.flutterPhase) * flutterAmount * 2
	randomMod := (w.rng.Float64()*2 - 1) * flutterAmount * 0.5

	w.wowPhase += 2 * math.Pi * wowRate / w.sampleRate
	if w.wowPhase > 2*math.Pi {
		w.wowPhase -= 2 * math.Pi
	}
	w.flutterPhase += 2 * math.Pi * flutterRate / w.sampleRate
	if w.flutterPhase > 2*math.Pi {
		w.flutterPhase -= 2 * math.Pi
	}

	return wowMod + flutterMod + randomMod
}

// process delays the sample by the base delay plus the modulation.
func (w *wowFlutter) process(input, modulationSamples float64) float64 {
	w.line.Write(input)
	total := core.Clamp(wowFlutterBaseDelay+modulationSamples, 1, float64(w.line.Len()-4))
	return w.line.ReadFractional(total)
}

func (w *wowFlutter) reset(seed int64) {
	w.line.Reset()
	w.wowPhase = 0
	w.flutterPhase = 0
	w.rng = rand.New(rand.NewSource(seed))
}

// motorFlutter is the capstan and bearing contribution: harmonics at
// one, two, and three times the transport flutter rate plus seeded
// jitter. Returned in delay samples; the caller scales it.
type motorFlutter struct {
	phase      float64
	rng        *rand.Rand
	sampleRate float64
}

func newMotorFlutter(sampleRate float64, seed int64) *motorFlutter {
	return &motorFlutter{
		rng:        rand.New(rand.NewSource(seed)),
		sampleRate: sampleRate,
	}
}

func (m *motorFlutter) flutter(quality, rateHz float64) float64 {
	if quality < 0.001 {
		return 0
	}

	m.phase += 2 * math.Pi * rateHz / m.sampleRate
	if m.phase > 2*math.Pi {
		m.phase -= 2 * math.Pi
	}

	base := quality * 0.0004
	mod := math.Sin(m.phase)*0.5 + math.Sin(2*m.phase)*0.3 + math.Sin(3*m.phase)*0.2
	jitter := (m.rng.Float64()*2 - 1) * 0.1
	return (mod + jitter) * base
}

func (m *motorFlutter) reset(seed int64) {
	m.phase = 0
	m.rng = rand.New(rand.NewSource(seed))
}
