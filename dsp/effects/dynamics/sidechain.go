package dynamics

import (
	"math"

	"github.com/cwbudde/algo-analog/dsp/filter/biquad"
	"github.com/cwbudde/algo-analog/dsp/filter/design"
)

const (
	// Sidechain highpass frequency range. The default keeps low-end
	// energy from pumping the detector.
	minSidechainHPHz     = 20.0
	maxSidechainHPHz     = 500.0
	defaultSidechainHPHz = 80.0

	// Frequency changes below this delta skip the coefficient update.
	sidechainHPHysteresisHz = 0.1
)

// SidechainFilter is a per-channel Butterworth highpass applied to the
// detector signal before any compressor engine sees it.
type SidechainFilter struct {
	sampleRate  float64
	currentFreq float64
	sections    []biquad.Section
}

// Prepare sizes the per-channel filter state and installs the default
// 80 Hz corner.
func (f *SidechainFilter) Prepare(sampleRate float64, numChannels int) error {
	if err := validateSampleRate(sampleRate); err != nil {
		return err
	}
	if err := validateChannelCount(numChannels); err != nil {
		return err
	}

	f.sampleRate = sampleRate
	f.sections = make([]biquad.Section, numChannels)
	f.currentFreq = 0
	f.SetFrequency(defaultSidechainHPHz)
	return nil
}

// SetFrequency moves the highpass corner, clamped to [20, 500] Hz.
// Requests within 0.1 Hz of the current corner are ignored so repeated
// per-block updates stay free.
func (f *SidechainFilter) SetFrequency(freq float64) {
	freq = clamp(freq, minSidechainHPHz, maxSidechainHPHz)
	if math.Abs(freq-f.currentFreq) <= sidechainHPHysteresisHz {
		return
	}

	f.currentFreq = freq
	if f.sampleRate <= 0 {
		return
	}

	coeffs := design.Highpass(freq, 0, f.sampleRate)
	for ch := range f.sections {
		state := f.sections[ch].State()
		f.sections[ch] = biquad.Section{Coefficients: coeffs}
		f.sections[ch].SetState(state)
	}
}

// Frequency returns the current corner frequency in Hz.
func (f *SidechainFilter) Frequency() float64 {
	return f.currentFreq
}

// Process runs one sample of the given channel through the highpass.
// Out-of-range channels pass through unchanged.
func (f *SidechainFilter) Process(input float64, channel int) float64 {
	if channel < 0 || channel >= len(f.sections) {
		return input
	}
	return f.sections[channel].ProcessSample(input)
}

// ProcessBlock filters a block for one channel. in and out may alias.
func (f *SidechainFilter) ProcessBlock(in, out []float64, channel int) {
	if channel < 0 || channel >= len(f.sections) {
		copy(out, in)
		return
	}
	f.sections[channel].ProcessBlockTo(out, in)
}

// Reset clears all per-channel filter state.
func (f *SidechainFilter) Reset() {
	for ch := range f.sections {
		f.sections[ch].Reset()
	}
}

// resampleSidechain linearly interpolates a native-rate sidechain block
// onto dst, which may run at a different (typically 2x) rate. Every
// engine loop consumes sidechain samples through this one code path so
// direct and oversampled processing cannot drift apart.
func resampleSidechain(src, dst []float64) {
	if len(src) == 0 || len(dst) == 0 {
		return
	}

	ratio := float64(len(src)) / float64(len(dst))
	maxIdx := len(src) - 1
	for i := range dst {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= maxIdx {
			dst[i] = src[maxIdx]
			continue
		}
		frac := pos - float64(idx)
		dst[i] = src[idx] + frac*(src[idx+1]-src[idx])
	}
}
