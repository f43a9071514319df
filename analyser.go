package songforge

import (
	"math"
	"sync"

	"github.com/cbegin/songforge-go/internal/dsp"
)

const (
	analyserFFTSize = 2048
	// SpectrumBins is the fixed length of AudioAnalysis.Spectrum.
	SpectrumBins = analyserFFTSize / 2
	// WaveformSize is the fixed length of AudioAnalysis.Waveform.
	WaveformSize = 1024

	// byte-frequency mapping ramp, in dB
	analyserFloorDB = -96.0
)

// AudioAnalysis is a transient snapshot of the currently playing signal:
// WaveformSize time-domain samples in [-1,1] and SpectrumBins magnitude
// bins scaled to [0,255]. The underlying buffers are owned by the Analyser
// and overwritten in place on every Refresh; callers must treat the view as
// read-only and must not retain it across frames.
type AudioAnalysis struct {
	Waveform []float32
	Spectrum []uint8
}

// Analyser maintains one rolling snapshot of the live signal. Push runs on
// the audio render path (keep it the only writer of the ring); Refresh and
// Snapshot are for the visualization consumer, typically once per animation
// frame.
type Analyser struct {
	mu   sync.Mutex
	fft  *dsp.FFT
	ring []float32 // mono mixdown, len analyserFFTSize
	pos  int

	scratch []float32 // time-ordered copy of ring
	mags    []float32
	wave    []float32
	spec    []uint8
}

func NewAnalyser() *Analyser {
	return &Analyser{
		fft:     dsp.NewFFT(analyserFFTSize),
		ring:    make([]float32, analyserFFTSize),
		scratch: make([]float32, analyserFFTSize),
		mags:    make([]float32, SpectrumBins),
		wave:    make([]float32, WaveformSize),
		spec:    make([]uint8, SpectrumBins),
	}
}

// Push mixes an interleaved stereo buffer down to mono into the rolling
// window. Called from the audio thread; brief and non-blocking.
func (a *Analyser) Push(stereo []float32) {
	a.mu.Lock()
	for i := 0; i+1 < len(stereo); i += 2 {
		a.ring[a.pos] = (stereo[i] + stereo[i+1]) * 0.5
		a.pos++
		if a.pos == len(a.ring) {
			a.pos = 0
		}
	}
	a.mu.Unlock()
}

// Refresh recomputes the snapshot from the current window. When nothing has
// been pushed the snapshot stays all-silent but keeps its fixed size.
func (a *Analyser) Refresh() {
	a.mu.Lock()
	defer a.mu.Unlock()

	// oldest-to-newest copy of the ring
	n := copy(a.scratch, a.ring[a.pos:])
	copy(a.scratch[n:], a.ring[:a.pos])

	copy(a.wave, a.scratch[len(a.scratch)-WaveformSize:])

	a.fft.Magnitudes(a.scratch, a.mags)
	for i, m := range a.mags {
		db := 20 * math.Log10(float64(m)+1e-12)
		v := (db - analyserFloorDB) / -analyserFloorDB * 255
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		a.spec[i] = uint8(v)
	}
}

// Snapshot returns the most recently computed view without recomputation.
// Always fixed-length, all-silent before any playback.
func (a *Analyser) Snapshot() AudioAnalysis {
	a.mu.Lock()
	defer a.mu.Unlock()
	return AudioAnalysis{Waveform: a.wave, Spectrum: a.spec}
}
