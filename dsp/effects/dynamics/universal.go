package dynamics

import (
	"math"
	"math/rand"
	"sync/atomic"

	"github.com/cwbudde/algo-analog/dsp/delay"
)

// Mode selects the active compressor engine.
type Mode int

const (
	// ModeOpto is the optical feedback compressor.
	ModeOpto Mode = iota
	// ModeFET is the vintage feedback FET compressor.
	ModeFET
	// ModeVCA is the feedforward RMS VCA compressor.
	ModeVCA
	// ModeBus is the stereo bus compressor.
	ModeBus
	// ModeStudioFET is the sidechain-driven studio FET variant.
	ModeStudioFET
	// ModeStudioVCA is the sidechain-driven studio VCA variant.
	ModeStudioVCA
	// ModeDigital is the transparent lookahead compressor.
	ModeDigital
)

const (
	defaultSampleRate = 44100.0
	defaultBlockSize  = 512
	defaultChannels   = 2

	grHistorySize        = 256
	grHistoryEveryBlocks = 3

	noiseFloorLevel  = 0.0001 // -80 dBFS
	meterFloorDB     = -60.0
	makeupSmoothSec  = 0.05
	maxAutoMakeupLin = 4.0 // +12 dB
)

// Params is the orchestrator-level parameter snapshot consumed by
// ProcessBlock. Engine snapshots are carried by value; only the fields
// for the selected Mode are read.
type Params struct {
	Mode Mode

	Opto      OptoParams
	FET       FETParams
	VCA       VCAParams
	Bus       BusParams
	StudioFET StudioFETParams
	StudioVCA StudioVCAParams
	Digital   DigitalParams

	// Bypass short-circuits the whole block.
	Bypass bool
	// Mix blends dry input against the processed signal, 0..1.
	Mix float64
	// StereoLink blends independent and max-linked detection, 0..1.
	StereoLink float64
	// SidechainHPHz moves the detector highpass corner; values <= 0
	// keep the 80 Hz default.
	SidechainHPHz float64
	// AutoMakeup compensates roughly half the gain reduction.
	AutoMakeup bool
	// Distortion and DistortionAmount drive the output shaper.
	Distortion       DistortionType
	DistortionAmount float64
	// LookaheadMs delays the audio path for all modes, up to 10 ms.
	LookaheadMs float64
	// SidechainListen routes the filtered detector signal to the
	// output instead of the processed audio.
	SidechainListen bool
	// NoiseFloor adds a seeded -80 dBFS noise bed.
	NoiseFloor bool
	// Oversample runs the engines at twice the native rate.
	Oversample bool
}

// Option configures a UniversalCompressor.
type Option func(*UniversalCompressor)

// WithChannels sets the channel count used by Prepare.
func WithChannels(numChannels int) Option {
	return func(u *UniversalCompressor) { u.numChannels = numChannels }
}

// WithBlockSize sets the maximum block size used to presize buffers.
func WithBlockSize(blockSize int) Option {
	return func(u *UniversalCompressor) { u.blockSize = blockSize }
}

// WithSeed sets the seed for the noise floor generator.
func WithSeed(seed int64) Option {
	return func(u *UniversalCompressor) { u.seed = seed }
}

// UniversalCompressor hosts the seven engines behind a common block
// interface: shared sidechain filtering, stereo linking, lookahead,
// oversampling, auto-makeup, output distortion, and lock-free metering.
//
// Processing is single-threaded; the meter accessors may be called from
// other goroutines.
type UniversalCompressor struct {
	sampleRate  float64
	numChannels int
	blockSize   int
	seed        int64

	opto      *Opto
	fet       *FET
	vca       *VCA
	bus       *Bus
	studioFET *StudioFET
	studioVCA *StudioVCA
	digital   *Digital

	sidechainFilter SidechainFilter
	antiAliasing    AntiAliasing
	lookahead       []*delay.Line
	maxLookahead    int

	dry      [][]float64
	filtered [][]float64
	linked   [][]float64
	osBuf    []float64
	osOut    []float64
	scBuf    []float64

	makeupGain  float64
	makeupCoeff float64

	noise *rand.Rand

	inputMeterBits  atomic.Uint64
	outputMeterBits atomic.Uint64
	grMeterBits     atomic.Uint64

	grHistory        []float64
	grHistoryPos     int
	grHistoryCounter int
}

// NewUniversalCompressor creates an orchestrator prepared for the given
// sample rate. Channel count defaults to 2 and block size to 512.
func NewUniversalCompressor(sampleRate float64, opts ...Option) (*UniversalCompressor, error) {
	if err := validateSampleRate(sampleRate); err != nil {
		return nil, err
	}

	u := &UniversalCompressor{
		numChannels: defaultChannels,
		blockSize:   defaultBlockSize,
		seed:        1,
	}
	for _, opt := range opts {
		opt(u)
	}

	if err := u.Prepare(sampleRate, u.numChannels, u.blockSize); err != nil {
		return nil, err
	}
	return u, nil
}

// Prepare sizes every engine and buffer for the given configuration.
// Non-positive values fall back to 44100 Hz, 2 channels, and 512-sample
// blocks. Steady-state processing is allocation-free afterwards.
func (u *UniversalCompressor) Prepare(sampleRate float64, numChannels, blockSize int) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		sampleRate = defaultSampleRate
	}
	if numChannels <= 0 {
		numChannels = defaultChannels
	}
	if blockSize <= 0 {
		blockSize = defaultBlockSize
	}

	u.sampleRate = sampleRate
	u.numChannels = numChannels
	u.blockSize = blockSize

	var err error
	if u.opto, err = NewOpto(sampleRate, numChannels); err != nil {
		return err
	}
	if u.fet, err = NewFET(sampleRate, numChannels); err != nil {
		return err
	}
	if u.vca, err = NewVCA(sampleRate, numChannels); err != nil {
		return err
	}
	if u.bus, err = NewBus(sampleRate, numChannels); err != nil {
		return err
	}
	if u.studioFET, err = NewStudioFET(sampleRate, numChannels); err != nil {
		return err
	}
	if u.studioVCA, err = NewStudioVCA(sampleRate, numChannels); err != nil {
		return err
	}
	if u.digital, err = NewDigital(sampleRate, numChannels); err != nil {
		return err
	}

	if err = u.sidechainFilter.Prepare(sampleRate, numChannels); err != nil {
		return err
	}
	if err = u.antiAliasing.Prepare(sampleRate, numChannels); err != nil {
		return err
	}

	u.maxLookahead = int(math.Ceil(maxLookaheadSeconds * sampleRate))
	u.lookahead = make([]*delay.Line, numChannels)
	for ch := range u.lookahead {
		if u.lookahead[ch], err = delay.New(u.maxLookahead + 1); err != nil {
			return err
		}
	}

	u.dry = makeBuffers(numChannels, blockSize)
	u.filtered = makeBuffers(numChannels, blockSize)
	u.linked = makeBuffers(numChannels, blockSize)
	u.osBuf = make([]float64, 2*blockSize)
	u.osOut = make([]float64, blockSize)
	u.scBuf = make([]float64, 2*blockSize)

	u.makeupGain = 1
	u.makeupCoeff = onePoleCoeff(makeupSmoothSec, sampleRate)

	u.noise = rand.New(rand.NewSource(u.seed))

	u.grHistory = make([]float64, grHistorySize)
	u.grHistoryPos = 0
	u.grHistoryCounter = 0

	u.storeMeter(&u.inputMeterBits, meterFloorDB)
	u.storeMeter(&u.outputMeterBits, meterFloorDB)
	u.storeMeter(&u.grMeterBits, 0)

	return nil
}

// ProcessBlock compresses buf in place. sidechain optionally supplies an
// external detector signal for the StudioFET, StudioVCA, and Digital
// modes; pass nil to detect from the main input.
func (u *UniversalCompressor) ProcessBlock(buf, sidechain [][]float64, p Params) {
	if len(buf) == 0 || len(buf[0]) == 0 || p.Bypass {
		return
	}

	numChannels := len(buf)
	if numChannels > u.numChannels {
		numChannels = u.numChannels
	}
	numSamples := len(buf[0])
	if numSamples > u.blockSize {
		numSamples = u.blockSize
	}

	mix := clamp(p.Mix, 0, 1)
	needsDry := mix < 1
	if needsDry {
		for ch := 0; ch < numChannels; ch++ {
			copy(u.dry[ch][:numSamples], buf[ch][:numSamples])
		}
	}

	u.storeMeter(&u.inputMeterBits, peakDB(buf, numChannels, numSamples))

	// Detector path: optional external source, highpass, stereo link.
	hpFreq := p.SidechainHPHz
	if hpFreq <= 0 {
		hpFreq = defaultSidechainHPHz
	}
	u.sidechainFilter.SetFrequency(hpFreq)

	source := buf
	if len(sidechain) > 0 && len(sidechain[0]) >= numSamples {
		source = sidechain
	}
	for ch := 0; ch < numChannels; ch++ {
		src := source[ch%len(source)]
		u.sidechainFilter.ProcessBlock(src[:numSamples], u.filtered[ch][:numSamples], ch)
	}

	link := clamp(p.StereoLink, 0, 1)
	useStereoLink := link > 0.01 && numChannels >= 2
	if useStereoLink {
		left := u.filtered[0]
		right := u.filtered[1]
		for i := 0; i < numSamples; i++ {
			l := math.Abs(left[i])
			r := math.Abs(right[i])
			maxLevel := math.Max(l, r)
			u.linked[0][i] = l*(1-link) + maxLevel*link
			u.linked[1][i] = r*(1-link) + maxLevel*link
		}
		for ch := 2; ch < numChannels; ch++ {
			copy(u.linked[ch][:numSamples], u.filtered[ch][:numSamples])
		}
	}

	// Global lookahead delays the audio path for every mode.
	if p.LookaheadMs > 0 && u.maxLookahead > 0 {
		samples := int(math.Round(p.LookaheadMs / 1000 * u.sampleRate))
		samples = int(clamp(float64(samples), 0, float64(u.maxLookahead-1)))
		if samples > 0 {
			for ch := 0; ch < numChannels; ch++ {
				line := u.lookahead[ch]
				data := buf[ch]
				for i := 0; i < numSamples; i++ {
					delayed := line.Read(samples)
					line.Write(data[i])
					data[i] = delayed
				}
			}
		}
	}

	if p.SidechainListen {
		for ch := 0; ch < numChannels; ch++ {
			copy(buf[ch][:numSamples], u.filtered[ch][:numSamples])
		}
		u.storeMeter(&u.outputMeterBits, peakDB(buf, numChannels, numSamples))
		u.storeMeter(&u.grMeterBits, 0)
		return
	}

	for ch := 0; ch < numChannels; ch++ {
		detector := u.filtered[ch]
		if useStereoLink {
			detector = u.linked[ch]
		}
		u.processChannel(buf[ch][:numSamples], detector[:numSamples], ch, p)
	}

	// Combined gain reduction, metering, and history.
	gr := u.currentGainReduction(p.Mode, numChannels)
	u.storeMeter(&u.grMeterBits, gr)
	u.grHistoryCounter++
	if u.grHistoryCounter >= grHistoryEveryBlocks {
		u.grHistoryCounter = 0
		u.grHistory[u.grHistoryPos] = gr
		u.grHistoryPos = (u.grHistoryPos + 1) % len(u.grHistory)
	}

	// Auto-makeup recovers about half the reduction, smoothed so the
	// level ride is inaudible.
	targetMakeup := 1.0
	if p.AutoMakeup && gr < -0.5 {
		targetMakeup = clamp(decibelsToGain(-gr*0.5), 1, maxAutoMakeupLin)
	}
	for i := 0; i < numSamples; i++ {
		u.makeupGain = u.makeupCoeff*u.makeupGain + (1-u.makeupCoeff)*targetMakeup
		for ch := 0; ch < numChannels; ch++ {
			buf[ch][i] *= u.makeupGain
		}
	}

	if p.Distortion != DistortionOff && p.DistortionAmount > 0 {
		amount := clamp(p.DistortionAmount, 0, 1)
		for ch := 0; ch < numChannels; ch++ {
			data := buf[ch]
			for i := 0; i < numSamples; i++ {
				data[i] = applyDistortion(data[i], p.Distortion, amount)
			}
		}
	}

	u.storeMeter(&u.outputMeterBits, peakDB(buf, numChannels, numSamples))

	if needsDry {
		for ch := 0; ch < numChannels; ch++ {
			wet := buf[ch]
			dry := u.dry[ch]
			for i := 0; i < numSamples; i++ {
				wet[i] = dry[i]*(1-mix) + wet[i]*mix
			}
		}
	}

	if p.NoiseFloor {
		for ch := 0; ch < numChannels; ch++ {
			data := buf[ch]
			for i := 0; i < numSamples; i++ {
				data[i] += (u.noise.Float64()*2 - 1) * noiseFloorLevel
			}
		}
	}
}

// processChannel dispatches one channel to the active engine, either
// directly or through the 2x oversampling path. Both paths consume the
// detector through resampleSidechain.
func (u *UniversalCompressor) processChannel(data, detector []float64, ch int, p Params) {
	n := len(data)

	if p.Oversample && u.antiAliasing.Prepared() {
		os := u.osBuf[:2*n]
		sc := u.scBuf[:2*n]
		u.antiAliasing.Upsample2x(data, os, ch)
		resampleSidechain(detector, sc)
		u.runEngine(os, sc, ch, p, true)
		u.antiAliasing.Downsample2x(os, u.osOut[:n], ch)
		copy(data, u.osOut[:n])
		return
	}

	sc := u.scBuf[:n]
	resampleSidechain(detector, sc)
	u.runEngine(data, sc, ch, p, false)
}

// runEngine executes the per-sample loop for the selected mode.
func (u *UniversalCompressor) runEngine(data, sc []float64, ch int, p Params, oversampled bool) {
	switch p.Mode {
	case ModeOpto:
		op := p.Opto
		op.Oversampled = oversampled
		for i := range data {
			data[i] = u.opto.Process(data[i], ch, op)
		}
	case ModeFET:
		for i := range data {
			data[i] = u.fet.Process(data[i], ch, p.FET)
		}
	case ModeVCA:
		for i := range data {
			data[i] = u.vca.Process(data[i], ch, p.VCA)
		}
	case ModeBus:
		for i := range data {
			data[i] = u.bus.Process(data[i], ch, p.Bus)
		}
	case ModeStudioFET:
		for i := range data {
			data[i] = u.studioFET.Process(data[i], ch, p.StudioFET, sc[i])
		}
	case ModeStudioVCA:
		for i := range data {
			data[i] = u.studioVCA.Process(data[i], ch, p.StudioVCA, sc[i])
		}
	case ModeDigital:
		for i := range data {
			data[i] = u.digital.Process(data[i], ch, p.Digital, sc[i])
		}
	}
}

// currentGainReduction returns the worst-case (most negative) reduction
// across channels for the active mode.
func (u *UniversalCompressor) currentGainReduction(mode Mode, numChannels int) float64 {
	gr := 0.0
	for ch := 0; ch < numChannels; ch++ {
		var g float64
		switch mode {
		case ModeOpto:
			g = u.opto.GainReduction(ch)
		case ModeFET:
			g = u.fet.GainReduction(ch)
		case ModeVCA:
			g = u.vca.GainReduction(ch)
		case ModeBus:
			g = u.bus.GainReduction(ch)
		case ModeStudioFET:
			g = u.studioFET.GainReduction(ch)
		case ModeStudioVCA:
			g = u.studioVCA.GainReduction(ch)
		case ModeDigital:
			g = u.digital.GainReduction(ch)
		}
		if g < gr {
			gr = g
		}
	}
	return gr
}

// InputLevelDB returns the last block's input peak in dBFS.
func (u *UniversalCompressor) InputLevelDB() float64 {
	return math.Float64frombits(u.inputMeterBits.Load())
}

// OutputLevelDB returns the last block's output peak in dBFS.
func (u *UniversalCompressor) OutputLevelDB() float64 {
	return math.Float64frombits(u.outputMeterBits.Load())
}

// GainReductionDB returns the last block's combined gain reduction in
// dB (zero or negative).
func (u *UniversalCompressor) GainReductionDB() float64 {
	return math.Float64frombits(u.grMeterBits.Load())
}

// GRHistory copies the gain reduction history ring into dst, oldest
// first, and returns the number of entries copied.
func (u *UniversalCompressor) GRHistory(dst []float64) int {
	n := len(dst)
	if n > len(u.grHistory) {
		n = len(u.grHistory)
	}
	for i := 0; i < n; i++ {
		dst[i] = u.grHistory[(u.grHistoryPos+len(u.grHistory)-n+i)%len(u.grHistory)]
	}
	return n
}

// Latency returns the worst-case processing delay in samples: the full
// lookahead allowance plus the oversampling filters.
func (u *UniversalCompressor) Latency() int {
	return u.maxLookahead + u.antiAliasing.Latency()
}

// SampleRate returns the prepared sample rate in Hz.
func (u *UniversalCompressor) SampleRate() float64 { return u.sampleRate }

// Reset clears all engine and filter state without reallocating.
func (u *UniversalCompressor) Reset() {
	u.opto.Reset()
	u.fet.Reset()
	u.vca.Reset()
	u.bus.Reset()
	u.studioFET.Reset()
	u.studioVCA.Reset()
	u.digital.Reset()
	u.sidechainFilter.Reset()
	u.antiAliasing.Reset()
	for _, line := range u.lookahead {
		line.Reset()
	}
	u.makeupGain = 1
	u.noise = rand.New(rand.NewSource(u.seed))
	for i := range u.grHistory {
		u.grHistory[i] = 0
	}
	u.grHistoryPos = 0
	u.grHistoryCounter = 0
}

// storeMeter clamps a meter value finite and stores its bits.
func (u *UniversalCompressor) storeMeter(meter *atomic.Uint64, db float64) {
	if math.IsNaN(db) || math.IsInf(db, 0) {
		db = meterFloorDB
	}
	meter.Store(math.Float64bits(db))
}

// peakDB scans the block peak across channels and converts to dBFS with
// a -60 dB floor.
func peakDB(buf [][]float64, numChannels, numSamples int) float64 {
	peak := 0.0
	for ch := 0; ch < numChannels; ch++ {
		data := buf[ch]
		for i := 0; i < numSamples; i++ {
			if a := math.Abs(data[i]); a > peak {
				peak = a
			}
		}
	}
	if peak <= 1e-5 {
		return meterFloorDB
	}
	return gainToDecibels(peak)
}

func makeBuffers(numChannels, blockSize int) [][]float64 {
	bufs := make([][]float64, numChannels)
	for ch := range bufs {
		bufs[ch] = make([]float64, blockSize)
	}
	return bufs
}
