package dynamics

import (
	"math"

	"github.com/cwbudde/algo-analog/dsp/filter/biquad"
	"github.com/cwbudde/algo-analog/dsp/filter/design"
)

const (
	maxAntiAliasCutoff = 20000.0
	nyquistSafety      = 0.45
	halfbandOrder      = 8
)

// AntiAliasing bundles the filtering that keeps nonlinear engine stages
// from folding harmonics back below Nyquist: a gentle pre-saturation
// rolloff, a post-saturation rolloff with cubic soft clipping and DC
// blocking, and 2x oversampling helpers.
//
// The zero value passes samples through unchanged until Prepare is called.
type AntiAliasing struct {
	sampleRate  float64
	filterCoeff float64

	preState  []float64
	postState []float64
	dcState   []float64
	dcPrev    []float64

	up   []*biquad.Chain
	down []*biquad.Chain
}

// Prepare configures the per-channel filter state for the given sample
// rate. The rolloff cutoff is min(20 kHz, 45% of the sample rate).
func (a *AntiAliasing) Prepare(sampleRate float64, numChannels int) error {
	if err := validateSampleRate(sampleRate); err != nil {
		return err
	}
	if err := validateChannelCount(numChannels); err != nil {
		return err
	}

	a.sampleRate = sampleRate
	cutoff := math.Min(maxAntiAliasCutoff, sampleRate*nyquistSafety)
	a.filterCoeff = mathExp(-2 * math.Pi * cutoff / sampleRate)

	a.preState = make([]float64, numChannels)
	a.postState = make([]float64, numChannels)
	a.dcState = make([]float64, numChannels)
	a.dcPrev = make([]float64, numChannels)

	// Halfband filters run at the 2x rate with the corner at the native
	// safety cutoff.
	coeffs := design.ButterworthLP(cutoff, halfbandOrder, 2*sampleRate)
	a.up = make([]*biquad.Chain, numChannels)
	a.down = make([]*biquad.Chain, numChannels)
	for ch := 0; ch < numChannels; ch++ {
		a.up[ch] = biquad.NewChain(coeffs)
		a.down[ch] = biquad.NewChain(coeffs)
	}

	return nil
}

// Prepared reports whether Prepare has been called successfully.
func (a *AntiAliasing) Prepared() bool {
	return a.sampleRate > 0 && len(a.preState) > 0
}

// PreProcess applies a gentle high-frequency rolloff before saturation.
func (a *AntiAliasing) PreProcess(input float64, channel int) float64 {
	if channel < 0 || channel >= len(a.preState) {
		return input
	}

	c := a.filterCoeff * 0.1
	a.preState[channel] = input*(1-c) + a.preState[channel]*c
	return a.preState[channel]
}

// PostProcess removes residual aliases after saturation, applies a cubic
// soft clip, and blocks DC introduced by asymmetric waveshaping.
func (a *AntiAliasing) PostProcess(input float64, channel int) float64 {
	if channel < 0 || channel >= len(a.postState) {
		return input
	}

	c := a.filterCoeff * 0.05
	a.postState[channel] = input*(1-c) + a.postState[channel]*c

	filtered := a.postState[channel]
	clipped := cubicClip(filtered)

	dcBlocked := clipped - a.dcPrev[channel] + a.dcState[channel]*0.995
	a.dcPrev[channel] = clipped
	a.dcState[channel] = dcBlocked

	return dcBlocked
}

// Upsample2x zero-stuffs in into out (which must hold 2*len(in) samples)
// and runs the halfband lowpass for the channel.
func (a *AntiAliasing) Upsample2x(in, out []float64, channel int) {
	if channel < 0 || channel >= len(a.up) || len(out) < 2*len(in) {
		return
	}

	for i, x := range in {
		out[2*i] = 2 * x
		out[2*i+1] = 0
	}
	a.up[channel].ProcessBlock(out[:2*len(in)])
}

// Downsample2x filters the oversampled in (modifying it) and decimates
// every second sample into out, which must hold len(in)/2 samples.
func (a *AntiAliasing) Downsample2x(in, out []float64, channel int) {
	if channel < 0 || channel >= len(a.down) || len(out) < len(in)/2 {
		return
	}

	a.down[channel].ProcessBlock(in)
	for i := 0; i < len(in)/2; i++ {
		out[i] = in[2*i]
	}
}

// Latency returns the oversampling path delay in samples at the native
// rate. The IIR halfband pair contributes roughly one sample per
// second-order section.
func (a *AntiAliasing) Latency() int {
	if len(a.up) == 0 {
		return 0
	}
	return halfbandOrder / 2
}

// Reset clears all per-channel filter state.
func (a *AntiAliasing) Reset() {
	for ch := range a.preState {
		a.preState[ch] = 0
		a.postState[ch] = 0
		a.dcState[ch] = 0
		a.dcPrev[ch] = 0
	}
	for _, chain := range a.up {
		chain.Reset()
	}
	for _, chain := range a.down {
		chain.Reset()
	}
}

// cubicClip applies a cubic soft knee between 1/3 and 2/3 with hard
// clipping above.
func cubicClip(x float64) float64 {
	abs := math.Abs(x)
	switch {
	case abs < 1.0/3.0:
		return x
	case abs > 2.0/3.0:
		if x > 0 {
			return 1
		}
		return -1
	default:
		sign := 1.0
		if x < 0 {
			sign = -1
		}
		return sign * (abs - abs*abs*abs/3)
	}
}
