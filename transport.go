package songforge

import (
	"fmt"
	"sync"
	"time"

	"github.com/cbegin/songforge-go/internal/audio"
	"github.com/cbegin/songforge-go/internal/voicebank"
)

// TransportState is the playback state machine: STOPPED or PLAYING.
type TransportState int

const (
	StateStopped TransportState = iota
	StatePlaying
)

func (s TransportState) String() string {
	if s == StatePlaying {
		return "playing"
	}
	return "stopped"
}

const (
	// lookaheadInterval is how often the dispatch loop polls.
	lookaheadInterval = 25 * time.Millisecond
	// lookaheadWindow is how far ahead of the bank clock events are
	// dispatched, in seconds. Events carry their exact future start time,
	// so the actual onset is sample-accurate; dispatching at the due time
	// instead would risk audible jitter from timer scheduling.
	lookaheadWindow = 0.12
)

// Transport drives live playback of one composition. Load replaces the
// active composition (stopping any playback in flight), Play starts the
// lookahead loop, Stop silences everything and rewinds the schedule so the
// next Play restarts from the top. Only one session plays at a time.
type Transport struct {
	mu         sync.Mutex
	sampleRate int
	analyser   *Analyser
	volume     float64

	comp       *Composition
	schedule   []scheduledNote
	dispatched []bool
	remaining  int

	state TransportState
	bank  *voicebank.Bank
	out   *audio.Output
	quit  chan struct{}
	done  chan struct{}
}

// tapSource renders the bank and feeds the analyser on the audio thread.
type tapSource struct {
	bank     *voicebank.Bank
	analyser *Analyser
}

func (s *tapSource) Process(dst []float32) {
	s.bank.Process(dst)
	if s.analyser != nil {
		s.analyser.Push(dst)
	}
}

// Load validates the composition and makes it the active one, discarding
// any prior composition and stopping live playback. All-or-nothing: on a
// validation error the previously loaded composition stays active.
func (t *Transport) Load(c *Composition) error {
	sched, err := buildSchedule(c)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StatePlaying {
		t.stopLocked()
	}
	t.comp = c
	t.schedule = sched
	t.dispatched = make([]bool, len(sched))
	t.remaining = len(sched)
	return nil
}

// Play starts playback from the top of the active composition. Playing
// while already playing stops the prior session first; two schedules never
// overlap.
func (t *Transport) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.comp == nil {
		return fmt.Errorf("%w: no composition loaded", ErrInvalidComposition)
	}
	if t.state == StatePlaying {
		t.stopLocked()
	}
	for i := range t.dispatched {
		t.dispatched[i] = false
	}
	t.remaining = len(t.schedule)

	// A fresh bank per session keeps voice and envelope state from
	// leaking between plays.
	params := voicebank.DefaultParams()
	bank := voicebank.New(t.sampleRate, params)
	bank.SetMasterGain(params.MasterGain * t.volume)

	out, err := audio.NewOutput(t.sampleRate, &tapSource{bank: bank, analyser: t.analyser})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAudioInit, err)
	}

	t.bank = bank
	t.out = out
	t.quit = make(chan struct{})
	t.done = make(chan struct{})
	t.state = StatePlaying
	out.Play()
	go t.run(t.quit, bank)
	return nil
}

// run is the lookahead loop: the only writer of dispatch state. It never
// blocks mid-dispatch, only between polling intervals.
func (t *Transport) run(quit chan struct{}, bank *voicebank.Bank) {
	ticker := time.NewTicker(lookaheadInterval)
	defer ticker.Stop()
	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			if t.step(bank) {
				t.Stop()
				return
			}
		}
	}
}

// step dispatches every undispatched event whose start falls inside
// [now, now+lookaheadWindow], with its exact engine-clock start time.
// Reports true once everything is dispatched and all voices have decayed.
func (t *Transport) step(bank *voicebank.Bank) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StatePlaying || t.bank != bank {
		return false // stale loop from a replaced session
	}
	horizon := bank.Now() + lookaheadWindow
	for i := range t.schedule {
		if t.dispatched[i] || t.schedule[i].Start > horizon {
			continue
		}
		ev := t.schedule[i]
		bank.Trigger(ev.Instrument, ev.Note, ev.Velocity, ev.Start, ev.Duration)
		t.dispatched[i] = true
		t.remaining--
	}
	return t.remaining == 0 && bank.ActiveVoices() == 0
}

// Stop halts the lookahead loop, forces every voice into release, closes
// the output, and marks the whole schedule dispatched so the next Play
// restarts cleanly. Safe to call from any goroutine, at any time, in any
// state.
func (t *Transport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopLocked()
}

func (t *Transport) stopLocked() error {
	if t.state == StateStopped {
		return nil
	}
	close(t.quit)
	t.quit = nil
	t.bank.ReleaseAll()
	for i := range t.dispatched {
		t.dispatched[i] = true
	}
	t.remaining = 0
	var err error
	if t.out != nil {
		err = t.out.Close()
		t.out = nil
	}
	t.bank = nil
	t.state = StateStopped
	if t.done != nil {
		close(t.done)
		t.done = nil
	}
	return err
}

// Wait blocks until the current playback ends, either by running out of
// notes or by Stop. Returns immediately if nothing is playing.
func (t *Transport) Wait() {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (t *Transport) State() TransportState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Position returns the output position in seconds: what the listener
// actually hears right now. Zero when stopped.
func (t *Transport) Position() float64 {
	t.mu.Lock()
	out := t.out
	t.mu.Unlock()
	if out == nil {
		return 0
	}
	return out.Position().Seconds()
}

// SetMasterVolume sets the runtime volume scalar. 1.0 is default; negative
// values clamp to silence. Takes effect immediately on a live session.
func (t *Transport) SetMasterVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.volume = volume
	if t.bank != nil {
		t.bank.SetMasterGain(voicebank.DefaultParams().MasterGain * volume)
	}
}

func (t *Transport) MasterVolume() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.volume
}
