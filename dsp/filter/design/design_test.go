package design

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-analog/dsp/filter/biquad"
)

func TestPeakGainAtCenter(t *testing.T) {
	tests := []struct {
		name   string
		freq   float64
		gainDB float64
		q      float64
	}{
		{"boost 6dB", 1000, 6, 1.0},
		{"cut 6dB", 1000, -6, 1.0},
		{"boost 12dB narrow", 4000, 12, 4.0},
		{"cut 12dB wide", 250, -12, 0.5},
	}

	const sr = 48000.0

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Peak(tt.freq, tt.gainDB, tt.q, sr)

			got := c.MagnitudeDB(tt.freq, sr)
			if math.Abs(got-tt.gainDB) > 0.01 {
				t.Errorf("gain at center: got %v dB, want %v dB", got, tt.gainDB)
			}
		})
	}
}

func TestShelfGainAtExtremes(t *testing.T) {
	const sr = 48000.0

	low := LowShelf(200, 9, defaultQ, sr)
	if got := low.MagnitudeDB(10, sr); math.Abs(got-9) > 0.2 {
		t.Errorf("low shelf gain at 10 Hz: got %v dB, want 9 dB", got)
	}
	if got := low.MagnitudeDB(20000, sr); math.Abs(got) > 0.2 {
		t.Errorf("low shelf gain at 20 kHz: got %v dB, want 0 dB", got)
	}

	high := HighShelf(8000, -6, defaultQ, sr)
	if got := high.MagnitudeDB(20000, sr); math.Abs(got+6) > 0.3 {
		t.Errorf("high shelf gain at 20 kHz: got %v dB, want -6 dB", got)
	}
	if got := high.MagnitudeDB(20, sr); math.Abs(got) > 0.2 {
		t.Errorf("high shelf gain at 20 Hz: got %v dB, want 0 dB", got)
	}
}

func TestLowpassHighpassCorner(t *testing.T) {
	const sr = 48000.0

	lp := Lowpass(1000, defaultQ, sr)
	if got := lp.MagnitudeDB(1000, sr); math.Abs(got+3.01) > 0.1 {
		t.Errorf("lowpass corner: got %v dB, want -3.01 dB", got)
	}

	hp := Highpass(1000, defaultQ, sr)
	if got := hp.MagnitudeDB(1000, sr); math.Abs(got+3.01) > 0.1 {
		t.Errorf("highpass corner: got %v dB, want -3.01 dB", got)
	}
}

func TestAllpassUnityMagnitude(t *testing.T) {
	const sr = 48000.0

	tests := []struct {
		name   string
		coeffs biquad.Coefficients
	}{
		{"second order", Allpass(500, 0.9, sr)},
		{"first order", FirstOrderAllpass(200, sr)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, f := range []float64{20, 200, 2000, 20000} {
				if got := tt.coeffs.MagnitudeDB(f, sr); math.Abs(got) > 0.001 {
					t.Errorf("allpass magnitude at %v Hz: got %v dB, want 0 dB", f, got)
				}
			}
		})
	}
}

func TestInvalidFrequencyReturnsZero(t *testing.T) {
	tests := []struct {
		name string
		freq float64
		sr   float64
	}{
		{"zero freq", 0, 48000},
		{"negative freq", -100, 48000},
		{"at nyquist", 24000, 48000},
		{"above nyquist", 30000, 48000},
		{"NaN freq", math.NaN(), 48000},
		{"zero sample rate", 1000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Lowpass(tt.freq, defaultQ, tt.sr)
			if c.B0 != 0 || c.B1 != 0 || c.B2 != 0 || c.A1 != 0 || c.A2 != 0 {
				t.Errorf("expected zero coefficients, got %+v", c)
			}
		})
	}
}

func TestNonPositiveQFallsBackToDefault(t *testing.T) {
	want := Lowpass(1000, defaultQ, 48000)
	got := Lowpass(1000, -1, 48000)
	if got != want {
		t.Errorf("q=-1 did not fall back to default: got %+v, want %+v", got, want)
	}
}

func TestBilinearTransform(t *testing.T) {
	const sr = 48000.0

	// Identical numerator and denominator give a flat 0 dB response.
	flat := BilinearTransform([3]float64{1, 0.5, 2}, [3]float64{1, 0.5, 2}, sr)
	for _, f := range []float64{20, 1000, 10000} {
		if got := flat.MagnitudeDB(f, sr); math.Abs(got) > 1e-9 {
			t.Errorf("flat prototype at %v Hz: got %v dB, want 0 dB", f, got)
		}
	}

	// A pre-warped RC lowpass prototype matches the first-order design.
	w0 := 2 * sr * math.Tan(math.Pi*1000/sr)
	rc := BilinearTransform([3]float64{0, 0, w0}, [3]float64{0, 1, w0}, sr)
	ref := FirstOrderLowpass(1000, sr)
	for _, f := range []float64{20, 1000, 10000} {
		got := rc.MagnitudeDB(f, sr)
		want := ref.MagnitudeDB(f, sr)
		if math.Abs(got-want) > 1e-6 {
			t.Errorf("RC lowpass at %v Hz: got %v dB, want %v dB", f, got, want)
		}
	}

	// Degenerate sample rate returns zero coefficients.
	if d := BilinearTransform([3]float64{1, 1, 1}, [3]float64{1, 1, 1}, 0); d != (biquad.Coefficients{}) {
		t.Errorf("degenerate sample rate: got %+v", d)
	}
}
