package tape

// emphasisFilter is a first-order shelving network defined by two time
// constants, discretized with the bilinear transform. tauNum > tauDen
// boosts high frequencies (record emphasis); swapping them yields the
// complementary playback cut.
type emphasisFilter struct {
	b0, b1, a1 float64
	z1         float64
}

func (e *emphasisFilter) set(tauNumUs, tauDenUs, sampleRate float64) {
	k := 2 * sampleRate
	tn := tauNumUs * 1e-6
	td := tauDenUs * 1e-6
	a0 := 1 + td*k
	e.b0 = (1 + tn*k) / a0
	e.b1 = (1 - tn*k) / a0
	e.a1 = (1 - td*k) / a0
}

func (e *emphasisFilter) process(x float64) float64 {
	y := e.b0*x + e.z1
	e.z1 = e.b1*x - e.a1*y
	return y
}

func (e *emphasisFilter) reset() {
	e.z1 = 0
}
