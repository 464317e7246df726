package tape

import "github.com/cwbudde/algo-analog/dsp/core"

// generateHarmonics adds 2nd through 6th order Chebyshev content scaled
// by the machine profile and the saturation depth. The even-order
// polynomials are shifted to pass through zero so silence stays silent;
// the shift only moves DC, which the output blocker removes anyway.
func generateHarmonics(input float64, profile [5]float64, depth float64) float64 {
	if depth <= 0 {
		return input
	}

	x := core.Clamp(input, -1, 1)
	x2 := x * x
	x3 := x2 * x
	x4 := x2 * x2
	x5 := x4 * x
	x6 := x4 * x2

	t2 := 2 * x2
	t3 := 4*x3 - 3*x
	t4 := 8*x4 - 8*x2
	t5 := 16*x5 - 20*x3 + 5*x
	t6 := 32*x6 - 48*x4 + 18*x2

	h := profile[0]*t2 + profile[1]*t3 + profile[2]*t4 + profile[3]*t5 + profile[4]*t6
	return input + h*depth
}
