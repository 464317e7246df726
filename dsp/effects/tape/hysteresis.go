package tape

import "math"

const hysteresisDCPole = 0.995

// hysteresisProcessor is an asymmetric tanh magnetization loop. A leaky
// integrator carries remanent flux so the transfer depends on signal
// history, and a one-pole DC blocker removes the offset the asymmetry
// introduces.
type hysteresisProcessor struct {
	state     float64
	prevInput float64
	dcState   float64
	dcPrev    float64
}

// process shapes one sample. amount sets loop depth, asymmetry skews the
// curve toward even harmonics, saturation is the flux ceiling: lower
// ceilings clip earlier.
func (h *hysteresisProcessor) process(input, amount, asymmetry, saturation float64) float64 {
	if amount <= 0 {
		return input
	}
	if saturation < 0.1 {
		saturation = 0.1
	}

	drive := 1 + amount*4

	// Remanent flux follows the rate of change and decays slowly.
	delta := input - h.prevInput
	h.state = h.state*(1-amount*0.05) + delta*amount
	h.prevInput = input

	biased := (input*drive + h.state*0.3) / saturation
	shaped := math.Tanh(biased+asymmetry*biased*biased) * saturation / drive

	blocked := shaped - h.dcPrev + hysteresisDCPole*h.dcState
	h.dcPrev = shaped
	h.dcState = blocked
	return blocked
}

func (h *hysteresisProcessor) reset() {
	h.state = 0
	h.prevInput = 0
	h.dcState = 0
	h.dcPrev = 0
}
