// Package voicebank owns synthesis voices. Each voice is one sounding note
// with its own start/release lifecycle, scheduled against the bank's sample
// clock so onsets are sample-accurate regardless of host timer jitter.
package voicebank

import (
	"math"
	"sync"
	"sync/atomic"
)

const twoPi = math.Pi * 2

type Params struct {
	Polyphony   int
	MasterGain  float64
	VelocityAmp float64
}

func DefaultParams() Params {
	return Params{
		Polyphony:   64,
		MasterGain:  0.5,
		VelocityAmp: 0.8,
	}
}

type envState int

const (
	envAttack envState = iota
	envDecay
	envSustain
	envRelease
	envOff
)

type voice struct {
	active       bool
	id           int
	rec          Recipe
	velocity     float64
	freq         float64
	phase        float64
	phase2       float64 // detuned second oscillator
	vibPhase     float64
	env          float64
	envState     envState
	startFrame   int64
	releaseFrame int64
	noiseLFSR    uint16
	noisePhase   float64
}

// Bank renders all voices into interleaved stereo and advances its own
// clock one frame per rendered sample pair. Trigger and ReleaseAll are safe
// from any goroutine; critical sections are short.
type Bank struct {
	mu         sync.Mutex
	sampleRate float64
	params     Params
	voices     []voice
	nextID     int
	masterGain uint64 // float64 bits, read atomically on the render path
	clock      int64
}

func New(sampleRate int, params Params) *Bank {
	if params.Polyphony <= 0 {
		params.Polyphony = 64
	}
	b := &Bank{
		sampleRate: float64(sampleRate),
		params:     params,
		voices:     make([]voice, params.Polyphony),
		masterGain: math.Float64bits(params.MasterGain),
	}
	for i := range b.voices {
		b.voices[i].noiseLFSR = uint16(0xACE1 + i*97)
	}
	return b
}

// SetMasterGain sets the output gain scalar. Lock-free; takes effect on the
// next rendered frame.
func (b *Bank) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	atomic.StoreUint64(&b.masterGain, math.Float64bits(gain))
}

func (b *Bank) masterGainValue() float64 {
	return math.Float64frombits(atomic.LoadUint64(&b.masterGain))
}

// Now returns the bank clock in seconds: the amount of audio rendered since
// creation. This is the reference clock for lookahead scheduling.
func (b *Bank) Now() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return float64(b.clock) / b.sampleRate
}

// Trigger schedules one voice: sounding from at (seconds on the bank clock,
// may be in the future), entering release at at+dur. Non-blocking. Beyond
// the polyphony cap the quietest voice is stolen silently; best-effort
// polyphony is an accepted degradation, not a fault.
func (b *Bank) Trigger(inst Instrument, note int, velocity float64, at, dur float64) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := int64(at*b.sampleRate + 0.5)
	if start < b.clock {
		start = b.clock // late dispatch degrades to "now"
	}
	release := start + int64(dur*b.sampleRate+0.5)

	slot := b.stealVoice()
	id := b.nextID
	b.nextID++
	seed := b.voices[slot].noiseLFSR
	if seed == 0 {
		seed = 0xACE1
	}
	b.voices[slot] = voice{
		active:       true,
		id:           id,
		rec:          recipeFor(inst),
		velocity:     clamp(velocity, 0, 1),
		freq:         midiToFreq(note),
		env:          0,
		envState:     envAttack,
		startFrame:   start,
		releaseFrame: release,
		noiseLFSR:    seed,
	}
	return id
}

// ReleaseAll forces every active voice into release and cancels voices that
// have not started sounding yet. The only way to guarantee silence.
func (b *Bank) ReleaseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.voices {
		v := &b.voices[i]
		if !v.active {
			continue
		}
		if b.clock < v.startFrame {
			v.active = false
			continue
		}
		if v.envState != envRelease {
			v.envState = envRelease
		}
	}
}

// ActiveVoices returns the number of voices still sounding or scheduled,
// including release tails. Used to detect when playback has fully ended.
func (b *Bank) ActiveVoices() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for i := range b.voices {
		if b.voices[i].active {
			n++
		}
	}
	return n
}

// stealVoice returns a free slot, or the quietest active voice when the
// bank is full. Caller holds b.mu.
func (b *Bank) stealVoice() int {
	for i := range b.voices {
		if !b.voices[i].active {
			return i
		}
	}
	quiet := 0
	minEnv := b.voices[0].env
	for i := 1; i < len(b.voices); i++ {
		if b.voices[i].env < minEnv {
			minEnv = b.voices[i].env
			quiet = i
		}
	}
	return quiet
}

// Process renders len(dst)/2 frames of interleaved stereo into dst and
// advances the bank clock.
func (b *Bank) Process(dst []float32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	gain := b.masterGainValue()
	frames := len(dst) / 2
	for f := 0; f < frames; f++ {
		var l, r float64
		for i := range b.voices {
			v := &b.voices[i]
			if !v.active || b.clock < v.startFrame {
				continue
			}
			if b.clock >= v.releaseFrame && v.envState < envRelease {
				v.envState = envRelease
			}
			b.advanceEnv(v)
			if v.envState == envOff {
				v.active = false
				continue
			}
			sig := b.renderVoice(v)
			sig *= gain * v.rec.Gain * (0.2 + v.velocity*b.params.VelocityAmp) * v.env
			angle := ((v.rec.Pan + 64.0) / 128.0) * (math.Pi / 2.0)
			l += sig * math.Cos(angle)
			r += sig * math.Sin(angle)
		}
		dst[f*2] = float32(clamp(l, -1, 1))
		dst[f*2+1] = float32(clamp(r, -1, 1))
		b.clock++
	}
}

func (b *Bank) advanceEnv(v *voice) {
	switch v.envState {
	case envAttack:
		step := 1.0 / (v.rec.Attack * b.sampleRate)
		if step <= 0 {
			step = 1
		}
		v.env += step
		if v.env >= 1 {
			v.env = 1
			v.envState = envDecay
		}
	case envDecay:
		step := (1 - v.rec.Sustain) / (v.rec.Decay * b.sampleRate)
		if step <= 0 {
			step = 1
		}
		v.env -= step
		if v.env <= v.rec.Sustain {
			v.env = v.rec.Sustain
			v.envState = envSustain
		}
	case envSustain:
	case envRelease:
		ref := v.rec.Sustain
		if ref <= 0 {
			ref = 1
		}
		step := ref / (v.rec.Release * b.sampleRate)
		if step <= 0 {
			step = 1
		}
		v.env -= step
		if v.env <= 0.0001 {
			v.env = 0
			v.envState = envOff
		}
	}
}

func (b *Bank) renderVoice(v *voice) float64 {
	freq := v.freq
	if v.rec.VibratoDepth > 0 {
		v.vibPhase += twoPi * v.rec.VibratoRate / b.sampleRate
		if v.vibPhase > twoPi {
			v.vibPhase -= twoPi
		}
		freq *= math.Pow(2, v.rec.VibratoDepth*math.Sin(v.vibPhase)/12.0)
	}

	var s float64
	switch v.rec.Wave {
	case waveSine:
		s = math.Sin(v.phase)
	case waveTriangle:
		s = 2.0*math.Abs(2.0*v.phase/twoPi-1.0) - 1.0
	case wavePulse:
		if v.phase < math.Pi/2 {
			s = 1.0
		} else {
			s = -1.0
		}
	case waveSaw:
		s = 1.0 - 2.0*v.phase/twoPi
		if v.rec.Detune != 0 {
			s = (s + (1.0 - 2.0*v.phase2/twoPi)) * 0.5
			v.phase2 += twoPi * freq * (1 + v.rec.Detune) / b.sampleRate
			if v.phase2 > twoPi {
				v.phase2 -= twoPi
			}
		}
	case waveNoise:
		// LFSR stepped at a pitch-derived rate; higher notes sound brighter.
		v.noisePhase += freq * 16.0 / b.sampleRate
		for v.noisePhase >= 1 {
			v.noisePhase--
			v.noiseLFSR = (v.noiseLFSR >> 1) ^ (-(v.noiseLFSR & 1) & 0xB400)
		}
		return float64(v.noiseLFSR)/float64(0x7FFF)*2.0 - 1.0
	}
	v.phase += twoPi * freq / b.sampleRate
	if v.phase > twoPi {
		v.phase -= twoPi
	}
	return s
}

func midiToFreq(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
