package tape

import "math"

// tapeSaturator is the gentle program compression tape applies near its
// flux ceiling: an envelope follower with a soft knee at the machine's
// saturation point and a very low ratio.
type tapeSaturator struct {
	envelope     float64
	attackCoeff  float64
	releaseCoeff float64
	lastGain     float64
}

func (s *tapeSaturator) updateCoefficients(attackMs, releaseMs, sampleRate float64) {
	attackMs = math.Max(0.001, attackMs)
	releaseMs = math.Max(0.001, releaseMs)
	s.attackCoeff = math.Exp(-1 / (attackMs * 0.001 * sampleRate))
	s.releaseCoeff = math.Exp(-1 / (releaseMs * 0.001 * sampleRate))
	if s.lastGain == 0 {
		s.lastGain = 1
	}
}

func (s *tapeSaturator) process(input, threshold, ratio float64) float64 {
	target := math.Abs(input)
	rate := s.releaseCoeff
	if target > s.envelope {
		rate = s.attackCoeff
	}
	s.envelope = target + (s.envelope-target)*rate

	gain := 1.0
	if s.envelope > threshold && s.envelope > 1e-4 {
		excess := s.envelope - threshold
		gain = (threshold + excess*(1-ratio)) / s.envelope
	}
	s.lastGain = gain
	return input * gain
}

func (s *tapeSaturator) reset() {
	s.envelope = 0
	s.lastGain = 1
}
