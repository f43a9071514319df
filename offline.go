package songforge

import (
	"errors"
	"sort"

	"github.com/viterin/vek/vek32"

	"github.com/cbegin/songforge-go/internal/voicebank"
)

const (
	renderBlockFrames  = 512
	releaseTailSeconds = 1.0
)

// RenderComposition renders the whole composition to an interleaved stereo
// buffer with no dependency on wall-clock time. Each call owns an
// independent voice bank, so concurrent renders (and renders during live
// playback) never interfere. The result uses the same recipes and the same
// schedule source as the transport, and is peak-normalized only when the
// absolute peak exceeds 1.0.
func RenderComposition(c *Composition, sampleRate int) ([]float32, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	sched, err := buildSchedule(c)
	if err != nil {
		return nil, err
	}
	total := scheduleEnd(sched) + releaseTailSeconds
	frames := int(float64(sampleRate)*total + 0.5)
	out := make([]float32, frames*2)

	sorted := make([]scheduledNote, len(sched))
	copy(sorted, sched)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	bank := voicebank.New(sampleRate, voicebank.DefaultParams())
	idx := 0
	for block := 0; block < frames; block += renderBlockFrames {
		n := renderBlockFrames
		if block+n > frames {
			n = frames - block
		}
		blockEnd := float64(block+n) / float64(sampleRate)
		for idx < len(sorted) && sorted[idx].Start < blockEnd {
			ev := sorted[idx]
			bank.Trigger(ev.Instrument, ev.Note, ev.Velocity, ev.Start, ev.Duration)
			idx++
		}
		bank.Process(out[block*2 : (block+n)*2])
	}

	normalizePeak(out)
	return out, nil
}

// normalizePeak scales the whole buffer down so the absolute peak is 1.0.
// No scaling when the peak is already within range; relative dynamics are
// always preserved.
func normalizePeak(buf []float32) {
	if len(buf) == 0 {
		return
	}
	peak := vek32.Max(buf)
	if neg := -vek32.Min(buf); neg > peak {
		peak = neg
	}
	if peak > 1 {
		vek32.MulNumber_Inplace(buf, 1/peak)
	}
}
