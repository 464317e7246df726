package tape

import "github.com/cwbudde/algo-analog/dsp/core"

// Stereo couples two machines into a stereo pair. Transport modulation
// is generated once per sample and shared so both channels stay time
// aligned, and a machine-dependent amount of the opposite track bleeds
// into each channel one sample late.
type Stereo struct {
	left  *Machine
	right *Machine

	// Shared wow/flutter modulation source; its delay line is unused.
	transport *wowFlutter

	prevLeft  float64
	prevRight float64
}

// NewStereo creates a stereo pair. The seed from WithSeed derives the
// left, right, and shared-transport random sources, so equal seeds give
// bit-identical renders.
func NewStereo(sampleRate float64, opts ...Option) (*Stereo, error) {
	probe := &Machine{seed: 1}
	for _, opt := range opts {
		opt(probe)
	}
	seed := probe.seed

	left, err := NewMachine(sampleRate, WithSeed(seed))
	if err != nil {
		return nil, err
	}
	right, err := NewMachine(sampleRate, WithSeed(seed+10))
	if err != nil {
		return nil, err
	}
	transport, err := newWowFlutter(sampleRate, seed+20)
	if err != nil {
		return nil, err
	}

	return &Stereo{left: left, right: right, transport: transport}, nil
}

// ProcessBlock runs both channels in place with shared transport
// modulation and crosstalk.
func (s *Stereo) ProcessBlock(left, right []float64, p Params) {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}

	if p.Path == PathThru {
		return
	}

	sc := p.Speed.Characteristics()
	cross := core.DBToLinear(p.Model.Characteristics().CrosstalkDB)
	amount := core.Clamp(p.WowFlutter, 0, 1)

	for i := 0; i < n; i++ {
		mod := 0.0
		if amount > 0 {
			mod = s.transport.modulation(amount*0.7, amount*0.3, sc.WowRate, sc.FlutterRate)
		}

		l := s.left.process(left[i], p, mod, true)
		r := s.right.process(right[i], p, mod, true)

		left[i] = l + s.prevRight*cross
		right[i] = r + s.prevLeft*cross
		s.prevLeft = l
		s.prevRight = r
	}
}

// Left returns the left-channel machine, for metering.
func (s *Stereo) Left() *Machine { return s.left }

// Right returns the right-channel machine, for metering.
func (s *Stereo) Right() *Machine { return s.right }

// Reset clears both channels and the shared transport state.
func (s *Stereo) Reset() {
	s.left.Reset()
	s.right.Reset()
	s.transport.reset(s.left.seed + 20)
	s.prevLeft = 0
	s.prevRight = 0
}
