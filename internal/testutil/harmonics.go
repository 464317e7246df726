package testutil

import (
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	vecmath "github.com/cwbudde/algo-vecmath"
)

// HarmonicLevels measures the levels of the fundamental and its overtones in
// a time-domain signal. The returned slice holds linear magnitudes indexed by
// harmonic number starting at 1 (the fundamental), normalized so that the
// fundamental is 1.0. It returns nil when the signal is empty or the
// fundamental cannot be resolved.
//
// A Hann window is applied before the FFT; each harmonic is summed over
// +/-2 bins to absorb window leakage.
func HarmonicLevels(signal []float64, fundamentalHz, sampleRate float64, maxHarmonics int) []float64 {
	if len(signal) == 0 || fundamentalHz <= 0 || sampleRate <= 0 || maxHarmonics < 1 {
		return nil
	}

	fftSize := 1
	for fftSize < len(signal) {
		fftSize <<= 1
	}

	windowed := make([]float64, len(signal))
	copy(windowed, signal)
	vecmath.MulBlockInPlace(windowed, hann(len(signal)))

	in := make([]complex128, fftSize)
	for i, v := range windowed {
		in[i] = complex(v, 0)
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil
	}

	out := make([]complex128, fftSize)
	if err := plan.Forward(out, in); err != nil {
		return nil
	}

	binCount := fftSize/2 + 1
	re := make([]float64, binCount)
	im := make([]float64, binCount)
	for i := range re {
		re[i] = real(out[i])
		im[i] = imag(out[i])
	}

	mags := make([]float64, binCount)
	vecmath.Magnitude(mags, re, im)

	binHz := sampleRate / float64(fftSize)
	fundamentalBin := int(math.Round(fundamentalHz / binHz))
	if fundamentalBin < 1 || fundamentalBin >= binCount {
		return nil
	}

	levels := make([]float64, 0, maxHarmonics)
	for k := 1; k <= maxHarmonics; k++ {
		bin := k * fundamentalBin
		if bin >= binCount {
			break
		}
		levels = append(levels, sumAround(mags, bin, 2))
	}

	if len(levels) == 0 || levels[0] <= 0 {
		return nil
	}

	fundamental := levels[0]
	for i := range levels {
		levels[i] /= fundamental
	}

	return levels
}

// THDRatio returns the total harmonic distortion of signal as a linear ratio
// (sum of harmonic magnitudes 2..maxHarmonics over the fundamental).
func THDRatio(signal []float64, fundamentalHz, sampleRate float64, maxHarmonics int) float64 {
	levels := HarmonicLevels(signal, fundamentalHz, sampleRate, maxHarmonics)
	if len(levels) < 2 {
		return 0
	}

	sum := 0.0
	for _, v := range levels[1:] {
		sum += v * v
	}

	return math.Sqrt(sum)
}

func hann(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

func sumAround(mags []float64, bin, spread int) float64 {
	lo := bin - spread
	if lo < 0 {
		lo = 0
	}
	hi := bin + spread
	if hi >= len(mags) {
		hi = len(mags) - 1
	}

	sum := 0.0
	for i := lo; i <= hi; i++ {
		sum += mags[i]
	}
	return sum
}
