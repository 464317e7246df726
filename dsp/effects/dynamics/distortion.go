package dynamics

import "math"

// DistortionType selects the output distortion flavor applied after
// compression and makeup gain.
type DistortionType int

const (
	// DistortionOff bypasses the output distortion stage.
	DistortionOff DistortionType = iota
	// DistortionSoft is tape-like tanh saturation.
	DistortionSoft
	// DistortionHard is transistor-style asymmetric clipping.
	DistortionHard
	// DistortionClip is a plain digital hard clip.
	DistortionClip
)

// applyDistortion shapes one sample. Amount runs 0..1; zero returns the
// input unchanged.
func applyDistortion(input float64, distType DistortionType, amount float64) float64 {
	if distType == DistortionOff || amount <= 0 {
		return input
	}

	switch distType {
	case DistortionSoft:
		return math.Tanh(input * (1 + amount))

	case DistortionHard:
		// Asymmetric knee: the negative threshold sits 10% lower.
		threshold := 0.7 / (0.5 + amount*0.5)
		negThreshold := threshold * 0.9
		wet := input
		if wet > threshold {
			diff := wet - threshold
			normDiff := diff / (1 - threshold)
			wet = threshold + diff/(1+normDiff*normDiff)
		} else if wet < -negThreshold {
			diff := math.Abs(wet) - negThreshold
			normDiff := diff / (1 - negThreshold)
			wet = -negThreshold - diff/(1+normDiff*normDiff)
		}
		return wet

	case DistortionClip:
		ceiling := 1 / (0.5 + amount*0.5)
		return clamp(input, -ceiling, ceiling)

	default:
		return input
	}
}
