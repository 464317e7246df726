package tape

// playbackHead models the repro head's gap loss as a short comb against
// the direct signal plus a two-pole contour resonance around 740 Hz.
// Wider gaps (or Sync playback through the record head) read a longer
// delay and lose more top end.
type playbackHead struct {
	gapLine  [64]float64
	gapIndex int

	resonanceCoeff float64
	res1, res2     float64

	sampleRate float64
}

func (h *playbackHead) prepare(sampleRate float64) {
	h.sampleRate = sampleRate
	const contourHz = 740.0
	h.resonanceCoeff = onePoleRise(contourHz, sampleRate)
	h.reset()
}

func (h *playbackHead) process(input, gapWidthMicrons float64, speed Speed) float64 {
	cmPerSec := speed.centimetersPerSecond()

	delayMs := gapWidthMicrons * 0.0001 / cmPerSec * 1000
	delaySamples := delayMs * 0.001 * h.sampleRate
	if max := float64(len(h.gapLine) - 1); delaySamples > max {
		delaySamples = max
	}

	h.gapLine[h.gapIndex] = input
	readIndex := (h.gapIndex - int(delaySamples) + len(h.gapLine)) % len(h.gapLine)
	delayed := h.gapLine[readIndex]
	h.gapIndex = (h.gapIndex + 1) % len(h.gapLine)

	gapEffect := input*0.98 + delayed*0.02

	h.res1 += (gapEffect - h.res1) * h.resonanceCoeff
	h.res2 += (h.res1 - h.res2) * h.resonanceCoeff
	return gapEffect + (h.res1-h.res2)*0.15
}

func (h *playbackHead) reset() {
	for i := range h.gapLine {
		h.gapLine[i] = 0
	}
	h.gapIndex = 0
	h.res1 = 0
	h.res2 = 0
}
