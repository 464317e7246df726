package tape

// Model selects the emulated transport and electronics.
type Model int

const (
	// ModelSwiss800 is a transformerless precision multitrack,
	// odd-harmonic dominant with very low crosstalk.
	ModelSwiss800 Model = iota
	// ModelSwiss24 is the later 24-track revision, cleaner still.
	ModelSwiss24
	// ModelAmerican440 is a transformer-coupled mastering deck with
	// pronounced head bump and even-harmonic color.
	ModelAmerican440
	// ModelAmericanJ16 is a 16-track tracking machine, moderately
	// colored.
	ModelAmericanJ16
)

// Formulation selects the tape stock.
type Formulation int

const (
	// FormulationClassic111 is the oldest low-output stock: soft
	// saturation, high noise.
	FormulationClassic111 Formulation = iota
	// FormulationModern456 is the classic high-output workhorse.
	FormulationModern456
	// FormulationHighOutputGP9 is the hottest modern formulation.
	FormulationHighOutputGP9
	// FormulationVintage250 is a mid-era studio stock.
	FormulationVintage250
)

// Speed selects the transport speed.
type Speed int

const (
	// Speed7_5IPS runs at 7.5 inches per second.
	Speed7_5IPS Speed = iota
	// Speed15IPS runs at 15 inches per second.
	Speed15IPS
	// Speed30IPS runs at 30 inches per second.
	Speed30IPS
)

// EQStandard selects the record/playback emphasis network.
type EQStandard int

const (
	// EQNAB is the American standard.
	EQNAB EQStandard = iota
	// EQCCIR is the European standard.
	EQCCIR
	// EQAES is the 30 ips studio standard with minimal emphasis.
	EQAES
)

// SignalPath selects which part of the machine the signal traverses.
type SignalPath int

const (
	// PathRepro runs the full record, tape, and playback-head chain.
	PathRepro SignalPath = iota
	// PathSync plays back through the record head: wider gap, duller.
	PathSync
	// PathInput passes only the electronics (transformers and EQ).
	PathInput
	// PathThru bypasses the machine entirely.
	PathThru
)

// MachineCharacteristics describes a transport and its electronics.
type MachineCharacteristics struct {
	HeadBumpFreq float64 // Hz
	HeadBumpGain float64 // dB
	HeadBumpQ    float64

	HFRolloffFreq float64 // Hz

	SaturationKnee      float64
	SaturationHarmonics [5]float64 // 2nd through 6th

	CompressionRatio   float64
	CompressionAttack  float64 // ms
	CompressionRelease float64 // ms

	PhaseShift float64

	CrosstalkDB float64 // adjacent-track bleed

	HasTransformers bool
	GapWidthMicrons float64
	MotorQuality    float64 // higher = more transport flutter
}

// TapeCharacteristics describes a tape formulation.
type TapeCharacteristics struct {
	Coercivity      float64
	Retentivity     float64
	SaturationPoint float64

	HysteresisAmount    float64
	HysteresisAsymmetry float64

	NoiseFloorDB    float64
	ModulationNoise float64

	LFEmphasis float64
	HFLoss     float64
}

// SpeedCharacteristics describes how transport speed shifts the response.
type SpeedCharacteristics struct {
	HeadBumpMultiplier float64
	HFExtension        float64
	NoiseReduction     float64
	FlutterRate        float64 // Hz
	WowRate            float64 // Hz
}

// Characteristics returns the fixed profile for the model.
func (m Model) Characteristics() MachineCharacteristics {
	switch m {
	case ModelSwiss24:
		return MachineCharacteristics{
			HeadBumpFreq:        45,
			HeadBumpGain:        2.5,
			HeadBumpQ:           0.9,
			HFRolloffFreq:       24000,
			SaturationKnee:      0.94,
			SaturationHarmonics: [5]float64{0.002, 0.024, 0.001, 0.004, 0.0004},
			CompressionRatio:    0.025,
			CompressionAttack:   0.06,
			CompressionRelease:  35,
			PhaseShift:          0.010,
			CrosstalkDB:         -72,
			HasTransformers:     false,
			GapWidthMicrons:     2.2,
			MotorQuality:        0.15,
		}
	case ModelAmerican440:
		return MachineCharacteristics{
			HeadBumpFreq:        62,
			HeadBumpGain:        4.5,
			HeadBumpQ:           1.4,
			HFRolloffFreq:       18000,
			SaturationKnee:      0.85,
			SaturationHarmonics: [5]float64{0.008, 0.032, 0.003, 0.004, 0.002},
			CompressionRatio:    0.05,
			CompressionAttack:   0.15,
			CompressionRelease:  80,
			PhaseShift:          0.040,
			CrosstalkDB:         -55,
			HasTransformers:     true,
			GapWidthMicrons:     3.5,
			MotorQuality:        0.6,
		}
	case ModelAmericanJ16:
		return MachineCharacteristics{
			HeadBumpFreq:        55,
			HeadBumpGain:        4.0,
			HeadBumpQ:           1.2,
			HFRolloffFreq:       20000,
			SaturationKnee:      0.88,
			SaturationHarmonics: [5]float64{0.006, 0.028, 0.002, 0.004, 0.0015},
			CompressionRatio:    0.04,
			CompressionAttack:   0.12,
			CompressionRelease:  60,
			PhaseShift:          0.030,
			CrosstalkDB:         -60,
			HasTransformers:     true,
			GapWidthMicrons:     3.2,
			MotorQuality:        0.45,
		}
	default: // ModelSwiss800
		return MachineCharacteristics{
			HeadBumpFreq:        48,
			HeadBumpGain:        3.0,
			HeadBumpQ:           1.0,
			HFRolloffFreq:       22000,
			SaturationKnee:      0.92,
			SaturationHarmonics: [5]float64{0.003, 0.030, 0.001, 0.005, 0.0005},
			CompressionRatio:    0.03,
			CompressionAttack:   0.08,
			CompressionRelease:  40,
			PhaseShift:          0.015,
			CrosstalkDB:         -70,
			HasTransformers:     false,
			GapWidthMicrons:     2.5,
			MotorQuality:        0.2,
		}
	}
}

// Characteristics returns the fixed profile for the formulation.
func (f Formulation) Characteristics() TapeCharacteristics {
	switch f {
	case FormulationClassic111:
		return TapeCharacteristics{
			Coercivity:          0.65,
			Retentivity:         0.70,
			SaturationPoint:     0.76,
			HysteresisAmount:    0.20,
			HysteresisAsymmetry: 0.040,
			NoiseFloorDB:        -52,
			ModulationNoise:     0.040,
			LFEmphasis:          1.20,
			HFLoss:              0.85,
		}
	case FormulationHighOutputGP9:
		return TapeCharacteristics{
			Coercivity:          0.92,
			Retentivity:         0.95,
			SaturationPoint:     0.96,
			HysteresisAmount:    0.06,
			HysteresisAsymmetry: 0.010,
			NoiseFloorDB:        -64,
			ModulationNoise:     0.015,
			LFEmphasis:          1.05,
			HFLoss:              0.96,
		}
	case FormulationVintage250:
		return TapeCharacteristics{
			Coercivity:          0.70,
			Retentivity:         0.75,
			SaturationPoint:     0.80,
			HysteresisAmount:    0.18,
			HysteresisAsymmetry: 0.035,
			NoiseFloorDB:        -55,
			ModulationNoise:     0.035,
			LFEmphasis:          1.18,
			HFLoss:              0.87,
		}
	default: // FormulationModern456
		return TapeCharacteristics{
			Coercivity:          0.78,
			Retentivity:         0.82,
			SaturationPoint:     0.88,
			HysteresisAmount:    0.12,
			HysteresisAsymmetry: 0.020,
			NoiseFloorDB:        -60,
			ModulationNoise:     0.025,
			LFEmphasis:          1.12,
			HFLoss:              0.92,
		}
	}
}

// Characteristics returns the fixed profile for the speed.
func (s Speed) Characteristics() SpeedCharacteristics {
	switch s {
	case Speed7_5IPS:
		return SpeedCharacteristics{
			HeadBumpMultiplier: 1.5,
			HFExtension:        0.7,
			NoiseReduction:     1.0,
			FlutterRate:        3.5,
			WowRate:            0.33,
		}
	case Speed30IPS:
		return SpeedCharacteristics{
			HeadBumpMultiplier: 0.7,
			HFExtension:        1.3,
			NoiseReduction:     0.5,
			FlutterRate:        7.0,
			WowRate:            0.8,
		}
	default: // Speed15IPS
		return SpeedCharacteristics{
			HeadBumpMultiplier: 1.0,
			HFExtension:        1.0,
			NoiseReduction:     0.7,
			FlutterRate:        5.0,
			WowRate:            0.5,
		}
	}
}

// centimetersPerSecond returns the linear tape speed.
func (s Speed) centimetersPerSecond() float64 {
	switch s {
	case Speed7_5IPS:
		return 19.05
	case Speed30IPS:
		return 76.2
	default:
		return 38.1
	}
}

// emphasisTimeConstants returns the record-emphasis zero and pole time
// constants in microseconds. The depth is the practical 6-10 dB rather
// than the full broadcast specification, which keeps gain staging sane
// while preserving the spectral tilt.
func emphasisTimeConstants(eq EQStandard, speed Speed) (tauNumUs, tauDenUs float64) {
	switch eq {
	case EQCCIR:
		switch speed {
		case Speed7_5IPS:
			return 175, 70
		case Speed30IPS:
			return 36, 17.5
		default:
			return 88, 35
		}
	case EQAES:
		return 35, 17.5
	default: // NAB
		switch speed {
		case Speed7_5IPS:
			return 225, 90
		case Speed30IPS:
			return 44, 17.5
		default:
			return 125, 50
		}
	}
}
