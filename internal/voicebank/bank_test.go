package voicebank

import (
	"math"
	"testing"
)

const testRate = 44100

func processSeconds(b *Bank, seconds float64) []float32 {
	frames := int(seconds * testRate)
	out := make([]float32, frames*2)
	b.Process(out)
	return out
}

func maxAbs(buf []float32) float64 {
	var peak float64
	for _, s := range buf {
		if a := math.Abs(float64(s)); a > peak {
			peak = a
		}
	}
	return peak
}

func TestVoiceLifecycle(t *testing.T) {
	b := New(testRate, DefaultParams())
	b.Trigger(Lead, 69, 0.8, 0, 0.1)
	if got := b.ActiveVoices(); got != 1 {
		t.Fatalf("active voices after trigger = %d, want 1", got)
	}
	out := processSeconds(b, 1.0)
	if maxAbs(out) == 0 {
		t.Fatal("triggered voice produced silence")
	}
	if got := b.ActiveVoices(); got != 0 {
		t.Fatalf("active voices after release tail = %d, want 0", got)
	}
}

func TestFutureTriggerStaysSilentUntilDue(t *testing.T) {
	b := New(testRate, DefaultParams())
	b.Trigger(Bass, 45, 1, 0.5, 0.2)
	before := processSeconds(b, 0.25)
	if peak := maxAbs(before); peak != 0 {
		t.Fatalf("audio before scheduled start: peak %v", peak)
	}
	if got := b.ActiveVoices(); got != 1 {
		t.Fatalf("scheduled voice should count as active, got %d", got)
	}
	after := processSeconds(b, 0.5)
	if maxAbs(after) == 0 {
		t.Fatal("no audio after scheduled start")
	}
}

func TestReleaseAllGuaranteesSilence(t *testing.T) {
	b := New(testRate, DefaultParams())
	for note := 60; note < 72; note++ {
		b.Trigger(Pad, note, 0.9, 0, 10)
	}
	b.Trigger(Lead, 80, 0.9, 5, 1) // scheduled, not yet started
	processSeconds(b, 0.3)
	b.ReleaseAll()
	// longest release is under a second; after that everything must be gone
	processSeconds(b, 1.0)
	if got := b.ActiveVoices(); got != 0 {
		t.Fatalf("active voices after ReleaseAll and tail = %d, want 0", got)
	}
}

func TestPolyphonyCapStealsSilently(t *testing.T) {
	params := DefaultParams()
	params.Polyphony = 4
	b := New(testRate, params)
	for note := 40; note < 56; note++ {
		b.Trigger(Lead, note, 0.5, 0, 2)
	}
	if got := b.ActiveVoices(); got > 4 {
		t.Fatalf("active voices = %d, want at most 4", got)
	}
	// stolen voices degrade output, never corrupt it
	out := processSeconds(b, 0.2)
	if maxAbs(out) == 0 {
		t.Fatal("bank silent despite active voices")
	}
}

func TestOutputStaysBounded(t *testing.T) {
	b := New(testRate, DefaultParams())
	for note := 36; note < 84; note += 3 {
		b.Trigger(Pad, note, 1, 0, 1)
		b.Trigger(Bass, note, 1, 0, 1)
	}
	out := processSeconds(b, 0.5)
	if peak := maxAbs(out); peak > 1 {
		t.Fatalf("output peak %v exceeds 1.0", peak)
	}
}

func TestEveryInstrumentProducesAudio(t *testing.T) {
	for _, inst := range []Instrument{Lead, Bass, Percussion, Pad} {
		b := New(testRate, DefaultParams())
		b.Trigger(inst, 60, 0.8, 0, 0.3)
		out := processSeconds(b, 0.5)
		if maxAbs(out) == 0 {
			t.Errorf("%v recipe produced silence", inst)
		}
	}
}

func TestMasterGainSilence(t *testing.T) {
	b := New(testRate, DefaultParams())
	b.SetMasterGain(0)
	b.Trigger(Lead, 69, 1, 0, 0.5)
	out := processSeconds(b, 0.3)
	if peak := maxAbs(out); peak != 0 {
		t.Fatalf("gain 0 should silence output, peak %v", peak)
	}
}

func TestClockAdvancesWithRenderedAudio(t *testing.T) {
	b := New(testRate, DefaultParams())
	if now := b.Now(); now != 0 {
		t.Fatalf("fresh bank clock = %v, want 0", now)
	}
	processSeconds(b, 0.25)
	if now := b.Now(); math.Abs(now-0.25) > 1e-6 {
		t.Fatalf("clock after 0.25s of audio = %v", now)
	}
}
