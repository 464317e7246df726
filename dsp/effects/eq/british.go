package eq

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-analog/dsp/core"
	"github.com/cwbudde/algo-analog/dsp/filter/biquad"
	"github.com/cwbudde/algo-analog/dsp/filter/design"
)

// Series selects the British console generation being modeled.
type Series int

const (
	// SeriesE is the brown-knob console: transformer coupled, fixed
	// filter Q, shelf-only LF/HF bands.
	SeriesE Series = iota
	// SeriesG is the black-knob console: transformerless, proportional
	// Q that sharpens with gain, bell option on the outer bands.
	SeriesG
)

const (
	britishHPFQ          = 0.54
	britishShelfBaseQ    = 0.7
	britishPhaseShiftHz  = 200.0
	britishHMFreqCapE    = 7000.0
	britishPreWarpAbove  = 3000.0
	britishAutoGainClamp = 12.0
)

// BritishParams is the parameter snapshot for the British console EQ.
type BritishParams struct {
	HPFFreq    float64
	HPFEnabled bool
	LPFFreq    float64
	LPFEnabled bool

	// LF band: shelf by default, bell on the G-Series when LFBell is
	// set.
	LFGain float64
	LFFreq float64
	LFBell bool

	LMGain float64
	LMFreq float64
	LMQ    float64

	HMGain float64
	HMFreq float64
	HMQ    float64

	HFGain float64
	HFFreq float64
	HFBell bool

	Series Series
	// Saturation is the console drive amount, 0..1.
	Saturation float64
	// AutoGain applies bandwidth-weighted loudness compensation for
	// the band gains, clamped to +/-12 dB.
	AutoGain     bool
	InputGainDB  float64
	OutputGainDB float64
}

// DefaultBritishParams returns the channel-strip rest position: all
// bands flat, filters parked at the extremes.
func DefaultBritishParams() BritishParams {
	return BritishParams{
		HPFFreq: 20,
		LPFFreq: 20000,
		LFFreq:  100,
		LMFreq:  600,
		LMQ:     0.7,
		HMFreq:  2000,
		HMQ:     0.7,
		HFFreq:  8000,
	}
}

// BritishEQ is a single-channel 4-band console EQ with highpass and
// lowpass filters, series-dependent Q behavior, and a console
// saturation stage on the output.
type BritishEQ struct {
	sampleRate float64

	hpf1 biquad.Section
	hpf2 biquad.Section
	lpf  biquad.Section

	lf biquad.Section
	lm biquad.Section
	hm biquad.Section
	hf biquad.Section

	// Transformer phase rotation, E-Series path only.
	phase biquad.Section

	sat *SSLSaturation

	last  BritishParams
	tuned bool
}

// NewBritishEQ creates a single-channel British console EQ.
func NewBritishEQ(sampleRate float64, opts ...Option) (*BritishEQ, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("eq: sample rate must be positive and finite: %v", sampleRate)
	}

	sat, err := NewSSLSaturation(sampleRate, opts...)
	if err != nil {
		return nil, err
	}

	e := &BritishEQ{
		sampleRate: sampleRate,
		sat:        sat,
	}
	e.phase.Coefficients = design.FirstOrderAllpass(britishPhaseShiftHz, sampleRate)
	return e, nil
}

// SampleRate reports the rate the engine was built for.
func (e *BritishEQ) SampleRate() float64 { return e.sampleRate }

// Reset clears all filter and saturation state. Tuning survives.
func (e *BritishEQ) Reset() {
	e.hpf1.Reset()
	e.hpf2.Reset()
	e.lpf.Reset()
	e.lf.Reset()
	e.lm.Reset()
	e.hm.Reset()
	e.hf.Reset()
	e.phase.Reset()
	e.sat.Reset()
}

// ProcessBlock runs the EQ in place. Filter coefficients are retuned
// only when the parameter snapshot changes, so filter state survives
// untouched across blocks with stable settings.
func (e *BritishEQ) ProcessBlock(buf []float64, p BritishParams) {
	if !e.tuned || p != e.last {
		e.updateFilters(p)
		e.last = p
		e.tuned = true
	}

	inGain := 1.0
	if math.Abs(p.InputGainDB) > 0.01 {
		inGain = core.DBToLinear(p.InputGainDB)
	}

	for i, sample := range buf {
		sample *= inGain

		if math.IsNaN(sample) || math.IsInf(sample, 0) {
			buf[i] = 0
			continue
		}

		if p.HPFEnabled {
			sample = e.hpf1.ProcessSample(sample)
			sample = e.hpf2.ProcessSample(sample)
		}

		sample = e.lf.ProcessSample(sample)
		sample = e.lm.ProcessSample(sample)
		sample = e.hm.ProcessSample(sample)
		sample = e.hf.ProcessSample(sample)

		if p.LPFEnabled {
			sample = e.lpf.ProcessSample(sample)
		}

		if p.Series == SeriesE {
			sample = e.phase.ProcessSample(sample)
		}

		if p.Saturation > 0.001 {
			sample = e.sat.Process(sample, p.Saturation)
		}

		if math.IsNaN(sample) || math.IsInf(sample, 0) {
			sample = 0
		}
		buf[i] = sample
	}

	outGain := 1.0
	if math.Abs(p.OutputGainDB) > 0.01 {
		outGain = core.DBToLinear(p.OutputGainDB)
	}
	if p.AutoGain {
		outGain *= core.DBToLinear(autoGainCompensationDB(p))
	}
	if outGain != 1 {
		for i := range buf {
			buf[i] *= outGain
		}
	}
}

func (e *BritishEQ) updateFilters(p BritishParams) {
	sr := e.sampleRate

	if p.Series == SeriesG {
		e.sat.SetConsole(ConsoleGSeries)
	} else {
		e.sat.SetConsole(ConsoleESeries)
	}

	// HPF: first-order plus second-order stage, 18 dB/oct total.
	e.hpf1.Coefficients = design.FirstOrderHighpass(p.HPFFreq, sr)
	e.hpf2.Coefficients = design.Highpass(p.HPFFreq, britishHPFQ, sr)

	// LPF: the G-Series filter rings slightly more.
	lpfFreq := p.LPFFreq
	if lpfFreq > sr*0.3 {
		lpfFreq = preWarpFrequency(lpfFreq, sr)
	}
	lpfQ := 1 / math.Sqrt2
	if p.Series == SeriesG {
		lpfQ = 0.8
	}
	e.lpf.Coefficients = design.Lowpass(lpfFreq, lpfQ, sr)

	// LF band.
	if p.Series == SeriesG && p.LFBell {
		e.lf.Coefficients = design.Peak(p.LFFreq, p.LFGain, peakQ(p.Series, britishShelfBaseQ, p.LFGain), sr)
	} else {
		e.lf.Coefficients = design.LowShelf(p.LFFreq, p.LFGain, shelfQ(p.Series, britishShelfBaseQ), sr)
	}

	// LM band.
	lmQ := p.LMQ
	if p.Series == SeriesG {
		lmQ = dynamicQ(p.LMGain, lmQ)
	}
	e.lm.Coefficients = design.Peak(p.LMFreq, p.LMGain, peakQ(p.Series, lmQ, p.LMGain), sr)

	// HM band: the E-Series band tops out at 7 kHz.
	hmFreq := p.HMFreq
	hmQ := p.HMQ
	if p.Series == SeriesG {
		hmQ = dynamicQ(p.HMGain, hmQ)
	} else if hmFreq > britishHMFreqCapE {
		hmFreq = britishHMFreqCapE
	}
	if hmFreq > britishPreWarpAbove {
		hmFreq = preWarpFrequency(hmFreq, sr)
	}
	e.hm.Coefficients = design.Peak(hmFreq, p.HMGain, peakQ(p.Series, hmQ, p.HMGain), sr)

	// HF band is always close enough to Nyquist to need warping.
	hfFreq := preWarpFrequency(p.HFFreq, sr)
	if p.Series == SeriesG && p.HFBell {
		e.hf.Coefficients = design.Peak(hfFreq, p.HFGain, peakQ(p.Series, britishShelfBaseQ, p.HFGain), sr)
	} else {
		e.hf.Coefficients = design.HighShelf(hfFreq, p.HFGain, shelfQ(p.Series, britishShelfBaseQ), sr)
	}
}

// shelfQ applies the series-specific shelf Q scaling: the G-Series
// shelves are steeper, the E-Series shelves broader.
func shelfQ(series Series, q float64) float64 {
	if series == SeriesG {
		return q * 1.4
	}
	return q * 0.65
}

// peakQ applies the G-Series proportional-Q law: boosts sharpen faster
// than cuts.
func peakQ(series Series, q, gainDB float64) float64 {
	if series == SeriesG && math.Abs(gainDB) > 0.1 {
		gainFactor := math.Abs(gainDB) / 15
		if gainDB > 0 {
			q *= 1 + gainFactor*1.2
		} else {
			q *= 1 + gainFactor*0.6
		}
	}
	return core.Clamp(q, 0.1, 10)
}

// dynamicQ widens the base Q with gain on the G-Series mid bands.
func dynamicQ(gainDB, baseQ float64) float64 {
	scale := 2.0
	if gainDB < 0 {
		scale = 1.5
	}
	q := baseQ * (1 + math.Abs(gainDB)/20*scale)
	return core.Clamp(q, 0.5, 8)
}

// autoGainCompensationDB estimates the loudness change from the band
// gains, weighting each by its approximate bandwidth, and returns the
// inverse as a correction.
func autoGainCompensationDB(p BritishParams) float64 {
	lfBandwidth := 0.5
	if p.Series == SeriesG && p.LFBell {
		lfBandwidth = 0.3
	}
	hfBandwidth := 0.6
	if p.Series == SeriesG && p.HFBell {
		hfBandwidth = 0.3
	}

	lmQ := math.Max(p.LMQ, 0.1)
	hmQ := math.Max(p.HMQ, 0.1)

	total := p.LFGain*lfBandwidth +
		p.LMGain*math.Min(0.7/lmQ, 0.5) +
		p.HMGain*math.Min(0.7/hmQ, 0.5) +
		p.HFGain*hfBandwidth

	return core.Clamp(-total, -britishAutoGainClamp, britishAutoGainClamp)
}
