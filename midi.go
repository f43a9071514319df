package songforge

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/cbegin/songforge-go/internal/timegrid"
)

// TicksPerBeat is the SMF division written to every exported file.
const TicksPerBeat = 480

// maxTick is the largest absolute tick a variable-length quantity can
// carry (28 payload bits). Events beyond it cannot be represented in a
// standard MIDI file.
const maxTick = 0x0FFFFFFF

// midiChannelProgram is the fixed export mapping per instrument kind.
// Percussion lands on channel 9 (the General MIDI drum channel) and carries
// no program change.
func midiChannelProgram(k InstrumentKind) (channel, program byte, hasProgram bool) {
	switch k {
	case InstrumentBass:
		return 1, 38, true // synth bass
	case InstrumentPad:
		return 2, 88, true // new age pad
	case InstrumentPercussion:
		return 9, 0, false
	default:
		return 0, 80, true // square lead
	}
}

// EncodeMIDI serializes the composition as a standard MIDI file: one header
// chunk (format 1), one tempo meta track, then one chunk per Track. Chunk
// length fields are written only after each body is fully assembled.
func EncodeMIDI(c *Composition) ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Write([]byte("MThd"))
	binary.Write(&buf, binary.BigEndian, uint32(6))
	binary.Write(&buf, binary.BigEndian, uint16(1)) // simultaneous tracks
	binary.Write(&buf, binary.BigEndian, uint16(1+len(c.Tracks)))
	binary.Write(&buf, binary.BigEndian, uint16(TicksPerBeat))

	writeTrackChunk(&buf, encodeTempoTrack(c.Tempo))
	for i := range c.Tracks {
		body, err := encodeTrack(&c.Tracks[i], c.Tempo)
		if err != nil {
			return nil, err
		}
		writeTrackChunk(&buf, body)
	}
	return buf.Bytes(), nil
}

func encodeTempoTrack(tempo float64) []byte {
	var body bytes.Buffer
	usPerBeat := uint32(math.Round(60e6 / tempo))
	writeVarLen(&body, 0)
	body.Write([]byte{0xFF, 0x51, 0x03, byte(usPerBeat >> 16), byte(usPerBeat >> 8), byte(usPerBeat)})
	writeEndOfTrack(&body)
	return body.Bytes()
}

// midiSub is one note-on or note-off sub-event resolved to an absolute tick.
type midiSub struct {
	tick uint32
	off  bool
	key  byte
	vel  byte
}

func encodeTrack(tr *Track, tempo float64) ([]byte, error) {
	channel, program, hasProgram := midiChannelProgram(tr.Instrument)

	subs := make([]midiSub, 0, len(tr.Notes)*2)
	for _, n := range tr.Notes {
		key, _ := ParsePitch(n.Pitch)
		startSec, _ := timegrid.ParsePosition(n.Start, tempo)
		durSec, _ := timegrid.ParseDuration(n.Duration, tempo)
		startTick := secondsToTicks(startSec, tempo)
		durTick := secondsToTicks(durSec, tempo)
		if durTick == 0 {
			durTick = 1
		}
		if startTick+durTick > maxTick {
			return nil, fmt.Errorf("%w: track %q note %s at %s ends at tick %d, beyond the MIDI file limit %d",
				ErrExport, tr.Name, n.Pitch, n.Start, startTick+durTick, uint64(maxTick))
		}
		vel := byte(math.Round(clamp01(n.Velocity) * 127))
		subs = append(subs,
			midiSub{tick: uint32(startTick), key: byte(key), vel: vel},
			midiSub{tick: uint32(startTick + durTick), off: true, key: byte(key)},
		)
	}
	// off before on at the same tick, so back-to-back repeats of a pitch
	// never read as overlapping
	sort.SliceStable(subs, func(i, j int) bool {
		if subs[i].tick != subs[j].tick {
			return subs[i].tick < subs[j].tick
		}
		return subs[i].off && !subs[j].off
	})

	var body bytes.Buffer
	if tr.Name != "" {
		writeVarLen(&body, 0)
		body.Write([]byte{0xFF, 0x03})
		writeVarLen(&body, uint32(len(tr.Name)))
		body.WriteString(tr.Name)
	}
	if hasProgram {
		writeVarLen(&body, 0)
		body.Write([]byte{0xC0 | channel, program})
	}
	var prev uint32
	for _, s := range subs {
		writeVarLen(&body, s.tick-prev)
		prev = s.tick
		if s.off {
			body.Write([]byte{0x80 | channel, s.key, 0})
		} else {
			body.Write([]byte{0x90 | channel, s.key, s.vel})
		}
	}
	writeEndOfTrack(&body)
	return body.Bytes(), nil
}

// secondsToTicks is wide on purpose so far-future positions overflow the
// representable range visibly instead of wrapping.
func secondsToTicks(seconds, tempo float64) uint64 {
	return uint64(math.Round(seconds * tempo / 60 * TicksPerBeat))
}

// writeTrackChunk writes an MTrk header carrying the length of the already
// assembled body; lengths are never guessed ahead of encoding.
func writeTrackChunk(buf *bytes.Buffer, body []byte) {
	buf.Write([]byte("MTrk"))
	binary.Write(buf, binary.BigEndian, uint32(len(body)))
	buf.Write(body)
}

func writeEndOfTrack(body *bytes.Buffer) {
	writeVarLen(body, 0)
	body.Write([]byte{0xFF, 0x2F, 0x00})
}

// writeVarLen emits a delta time as a variable-length quantity: base-128,
// big-endian, continuation bit on every byte but the last. Five bytes
// covers the full uint32 range even though encoded ticks are capped at
// maxTick (four bytes).
func writeVarLen(buf *bytes.Buffer, v uint32) {
	var b [5]byte
	i := 4
	b[i] = byte(v & 0x7F)
	for v >>= 7; v > 0; v >>= 7 {
		i--
		b[i] = byte(v&0x7F) | 0x80
	}
	buf.Write(b[i:])
}
