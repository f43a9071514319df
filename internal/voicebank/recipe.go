package voicebank

// Instrument selects one of the fixed synthesis recipes. The set is closed;
// every switch over it is exhaustive.
type Instrument int

const (
	Lead Instrument = iota
	Bass
	Percussion
	Pad
)

func (i Instrument) String() string {
	switch i {
	case Lead:
		return "lead"
	case Bass:
		return "bass"
	case Percussion:
		return "percussion"
	case Pad:
		return "pad"
	}
	return "unknown"
}

type waveKind int

const (
	waveSine waveKind = iota
	waveTriangle
	wavePulse // 25% duty
	waveSaw
	waveNoise
)

// Recipe is a fixed timbre profile: oscillator shape, ADSR envelope, gain,
// stereo placement, and optional detuned second oscillator / vibrato.
// Recipes are chosen once per instrument and never vary per call beyond
// pitch, velocity and duration.
type Recipe struct {
	Wave    waveKind
	Attack  float64 // seconds to full level
	Decay   float64 // seconds from full level to sustain
	Sustain float64 // sustain level, 0-1
	Release float64 // seconds from sustain to silence
	Gain    float64
	Pan     float64 // -64 (left) .. 64 (right)

	Detune       float64 // ratio offset for a second oscillator (0 = single)
	VibratoDepth float64 // semitones
	VibratoRate  float64 // Hz
}

func recipeFor(inst Instrument) Recipe {
	switch inst {
	case Bass:
		return Recipe{
			Wave:    waveTriangle,
			Attack:  0.008,
			Decay:   0.10,
			Sustain: 0.85,
			Release: 0.12,
			Gain:    0.9,
			Pan:     0,
		}
	case Percussion:
		return Recipe{
			Wave:    waveNoise,
			Attack:  0.001,
			Decay:   0.09,
			Sustain: 0,
			Release: 0.06,
			Gain:    0.7,
			Pan:     -10,
		}
	case Pad:
		return Recipe{
			Wave:         waveSaw,
			Attack:       0.18,
			Decay:        0.25,
			Sustain:      0.75,
			Release:      0.60,
			Gain:         0.45,
			Pan:          14,
			Detune:       0.006,
			VibratoDepth: 0.12,
			VibratoRate:  4.5,
		}
	default: // Lead
		return Recipe{
			Wave:    wavePulse,
			Attack:  0.005,
			Decay:   0.12,
			Sustain: 0.70,
			Release: 0.15,
			Gain:    0.6,
			Pan:     8,
		}
	}
}
