package eq

import (
	"math"

	"github.com/cwbudde/algo-analog/dsp/core"
)

// tubeStage models the triode make-up amplifier of a passive EQ: an
// asymmetric plate curve, grid-conduction compression on hot peaks, a
// cathode follower output with its slow bypass-cap recovery, and a slew
// limit standing in for the output stage bandwidth.
type tubeStage struct {
	sampleRate   float64
	drive        float64
	maxSlew      float64
	cathodeAlpha float64

	prevSample     float64
	cathodeVoltage float64
	gridCurrent    float64
	dc             dcBlocker
}

const (
	tubeDCBlockerHz     = 8.0
	tubeCathodeBypassHz = 20.0
)

func (t *tubeStage) prepare(sampleRate float64) {
	t.sampleRate = sampleRate
	t.maxSlew = 150000.0 / sampleRate
	t.cathodeAlpha = 1 - math.Exp(-2*math.Pi*tubeCathodeBypassHz/sampleRate)
	t.dc.prepare(tubeDCBlockerHz, sampleRate)
	t.reset()
}

func (t *tubeStage) reset() {
	t.prevSample = 0
	t.cathodeVoltage = 0
	t.gridCurrent = 0
	t.dc.reset()
}

func (t *tubeStage) setDrive(drive float64) {
	t.drive = core.Clamp(drive, 0, 1)
}

func (t *tubeStage) process(input float64) float64 {
	if t.drive < 0.01 {
		return input
	}

	driveGain := 1 + t.drive*4
	driven := input * driveGain

	// Grid conduction: positive swings past the bias point draw grid
	// current and compress the stage.
	gridAmount := math.Max(0, driven) * 0.15
	t.gridCurrent = t.gridCurrent*0.9 + gridAmount*0.1
	compression := 1 / (1 + t.gridCurrent*t.drive*2)

	var plate float64
	if driven >= 0 {
		x := driven * compression
		switch {
		case x < 0.4:
			plate = x * 1.05
		case x < 0.8:
			u := (x - 0.4) / 0.4
			plate = 0.42 + 0.38*(u-0.15*u*u)
		default:
			plate = 0.78 + 0.15*math.Tanh((x-0.8)*2)
		}
	} else {
		// The negative half saturates earlier: the tube heads toward
		// cutoff.
		x := -driven * compression
		switch {
		case x < 0.3:
			plate = -x * 0.95
		case x < 0.7:
			u := (x - 0.3) / 0.4
			plate = -(0.285 + 0.35*(u-0.2*u*u))
		default:
			plate = -(0.62 + 0.2*math.Tanh((x-0.7)*3))
		}
	}

	t.cathodeVoltage += (plate - t.cathodeVoltage) * t.cathodeAlpha
	output := plate*0.95 + t.cathodeVoltage*0.05

	// Grid-cathode diode limit on the follower.
	if output > 0.9 {
		output = 0.9 + 0.08*math.Tanh((output-0.9)*3)
	}

	h2 := 0.04 * t.drive * output * math.Abs(output)
	h3 := 0.015 * t.drive * output * output * output
	h4 := 0.005 * t.drive * math.Abs(output*output*output*output) * math.Copysign(1, output)
	output += h2 + h3 + h4

	if delta := output - t.prevSample; math.Abs(delta) > t.maxSlew {
		output = t.prevSample + math.Copysign(t.maxSlew, delta)
	}

	output *= (1 / driveGain) * (1 + t.drive*0.4)
	output = t.dc.process(output)

	t.prevSample = output
	return output
}
