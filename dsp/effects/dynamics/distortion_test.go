package dynamics

import (
	"math"
	"testing"
)

func TestApplyDistortion(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		distType DistortionType
		amount   float64
		want     float64
		eps      float64
	}{
		{"off identity", 0.9, DistortionOff, 1, 0.9, 0},
		{"zero amount identity", 0.9, DistortionSoft, 0, 0.9, 0},
		{"soft tanh", 0.5, DistortionSoft, 1, math.Tanh(1.0), 1e-12},
		{"hard positive knee", 0.9, DistortionHard, 1, 0.838462, 1e-5},
		{"hard negative knee", -0.9, DistortionHard, 1, -0.806183, 1e-5},
		{"hard below knee", 0.5, DistortionHard, 1, 0.5, 0},
		{"clip ceiling", 1.5, DistortionClip, 1, 1.0, 1e-12},
		{"clip floor", -1.5, DistortionClip, 1, -1.0, 1e-12},
		{"clip passes small", 0.3, DistortionClip, 1, 0.3, 0},
	}

	for _, tt := range tests {
		got := applyDistortion(tt.input, tt.distType, tt.amount)
		if math.Abs(got-tt.want) > tt.eps {
			t.Errorf("%s: applyDistortion(%v) = %v, want %v", tt.name, tt.input, got, tt.want)
		}
	}
}

func TestDistortionHardAsymmetry(t *testing.T) {
	pos := applyDistortion(0.9, DistortionHard, 1)
	neg := applyDistortion(-0.9, DistortionHard, 1)
	if math.Abs(neg) >= pos {
		t.Errorf("negative side should clip earlier: |%v| >= %v", neg, pos)
	}
}

func TestDistortionSoftBounded(t *testing.T) {
	for x := -5.0; x <= 5.0; x += 0.1 {
		if out := applyDistortion(x, DistortionSoft, 1); math.Abs(out) > 1 {
			t.Fatalf("soft distortion unbounded at %v: %v", x, out)
		}
	}
}
