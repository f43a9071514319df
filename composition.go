// Package songforge turns a symbolic musical description into audible sound,
// a visualization feed, and portable WAV / MIDI export artifacts.
package songforge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cbegin/songforge-go/internal/timegrid"
	"github.com/cbegin/songforge-go/internal/voicebank"
)

// InstrumentKind selects a fixed synthesis recipe and a fixed MIDI export
// channel/program. The set is closed; adding a kind is a compile-time change.
type InstrumentKind int

const (
	InstrumentLead InstrumentKind = iota
	InstrumentBass
	InstrumentPercussion
	InstrumentPad
	numInstrumentKinds
)

func (k InstrumentKind) String() string {
	switch k {
	case InstrumentLead:
		return "lead"
	case InstrumentBass:
		return "bass"
	case InstrumentPercussion:
		return "percussion"
	case InstrumentPad:
		return "pad"
	}
	return "unknown"
}

func (k InstrumentKind) valid() bool {
	return k >= InstrumentLead && k < numInstrumentKinds
}

// MarshalText implements encoding.TextMarshaler for JSON.
func (k InstrumentKind) MarshalText() ([]byte, error) {
	if !k.valid() {
		return nil, fmt.Errorf("unknown instrument kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for JSON.
func (k *InstrumentKind) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "lead":
		*k = InstrumentLead
	case "bass":
		*k = InstrumentBass
	case "percussion":
		*k = InstrumentPercussion
	case "pad":
		*k = InstrumentPad
	default:
		return fmt.Errorf("unknown instrument kind %q", string(text))
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (k InstrumentKind) MarshalYAML() (interface{}, error) {
	if !k.valid() {
		return nil, fmt.Errorf("unknown instrument kind %d", int(k))
	}
	return k.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (k *InstrumentKind) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return k.UnmarshalText([]byte(s))
}

// NoteEvent is one timed note. Pitch is a symbolic note name plus octave
// ("A4", "F#2", "Bb3"); Start is a bar:beat:sixteenth token; Duration uses
// the Nn/Nm grammar. Velocity is clamped into [0,1] at schedule time.
type NoteEvent struct {
	Pitch    string  `json:"pitch" yaml:"pitch"`
	Duration string  `json:"duration" yaml:"duration"`
	Start    string  `json:"startTime" yaml:"start"`
	Velocity float64 `json:"velocity" yaml:"velocity"`
}

// Track is an ordered sequence of note events played by one instrument.
// Notes keep authoring order and may overlap in time. Color is a
// presentation hint the engine ignores.
type Track struct {
	Name       string         `json:"name" yaml:"name"`
	Instrument InstrumentKind `json:"instrumentKind" yaml:"instrument"`
	Notes      []NoteEvent    `json:"notes" yaml:"notes"`
	Color      string         `json:"colorHint,omitempty" yaml:"color,omitempty"`
}

// Composition is the full symbolic description. Scale, Mood and Description
// are presentation-only. A composition with zero tracks is legal and renders
// silence.
type Composition struct {
	Title       string  `json:"title" yaml:"title"`
	Tempo       float64 `json:"tempo" yaml:"tempo"`
	Scale       string  `json:"scaleName,omitempty" yaml:"scale,omitempty"`
	Mood        string  `json:"moodLabel,omitempty" yaml:"mood,omitempty"`
	Tracks      []Track `json:"tracks" yaml:"tracks"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
}

var noteSemitones = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

// ParsePitch converts a symbolic note name plus octave into a MIDI semitone
// index. A4 is 69; the valid result range is [0,127].
func ParsePitch(pitch string) (int, error) {
	s := strings.TrimSpace(pitch)
	if len(s) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrPitchOutOfRange, pitch)
	}
	letter := s[0]
	if letter >= 'a' && letter <= 'g' {
		letter -= 'a' - 'A'
	}
	base, ok := noteSemitones[letter]
	if !ok {
		return 0, fmt.Errorf("%w: %q does not name a note", ErrPitchOutOfRange, pitch)
	}
	rest := s[1:]
	accidental := 0
	switch rest[0] {
	case '#':
		accidental = 1
		rest = rest[1:]
	case 'b':
		accidental = -1
		rest = rest[1:]
	}
	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("%w: %q has no octave", ErrPitchOutOfRange, pitch)
	}
	note := (octave+1)*12 + base + accidental
	if note < 0 || note > 127 {
		return 0, fmt.Errorf("%w: %q maps to semitone %d", ErrPitchOutOfRange, pitch, note)
	}
	return note, nil
}

// Validate checks the composition structurally: positive tempo, known
// instrument kinds, parseable pitch and time tokens on every note. The check
// is all-or-nothing; the first offending field is identified in the error.
func (c *Composition) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil composition", ErrInvalidComposition)
	}
	if c.Tempo <= 0 {
		return fmt.Errorf("%w: tempo %v (must be > 0)", ErrInvalidComposition, c.Tempo)
	}
	for ti, tr := range c.Tracks {
		if !tr.Instrument.valid() {
			return fmt.Errorf("%w: track %d (%q): unknown instrument kind", ErrInvalidComposition, ti, tr.Name)
		}
		for ni, n := range tr.Notes {
			if _, err := ParsePitch(n.Pitch); err != nil {
				return fmt.Errorf("track %d (%q) note %d: %w", ti, tr.Name, ni, err)
			}
			if _, err := timegrid.ParsePosition(n.Start, c.Tempo); err != nil {
				return fmt.Errorf("track %d (%q) note %d startTime: %w", ti, tr.Name, ni, err)
			}
			if _, err := timegrid.ParseDuration(n.Duration, c.Tempo); err != nil {
				return fmt.Errorf("track %d (%q) note %d duration: %w", ti, tr.Name, ni, err)
			}
		}
	}
	return nil
}

// scheduledNote is one note event resolved to absolute engine time.
type scheduledNote struct {
	Instrument voicebank.Instrument
	Note       int
	Velocity   float64
	Start      float64 // seconds
	Duration   float64 // seconds
}

func bankInstrument(k InstrumentKind) voicebank.Instrument {
	switch k {
	case InstrumentBass:
		return voicebank.Bass
	case InstrumentPercussion:
		return voicebank.Percussion
	case InstrumentPad:
		return voicebank.Pad
	default:
		return voicebank.Lead
	}
}

// buildSchedule resolves every note of every track to absolute seconds.
// Transport and the offline renderer derive their schedules through this one
// path, so live and exported timing always agree.
func buildSchedule(c *Composition) ([]scheduledNote, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	var sched []scheduledNote
	for _, tr := range c.Tracks {
		for _, n := range tr.Notes {
			note, _ := ParsePitch(n.Pitch)
			start, _ := timegrid.ParsePosition(n.Start, c.Tempo)
			dur, _ := timegrid.ParseDuration(n.Duration, c.Tempo)
			sched = append(sched, scheduledNote{
				Instrument: bankInstrument(tr.Instrument),
				Note:       note,
				Velocity:   clamp01(n.Velocity),
				Start:      start,
				Duration:   dur,
			})
		}
	}
	return sched, nil
}

// scheduleEnd returns the latest start+duration across all notes.
func scheduleEnd(sched []scheduledNote) float64 {
	var end float64
	for _, ev := range sched {
		if e := ev.Start + ev.Duration; e > end {
			end = e
		}
	}
	return end
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ParseComposition decodes and validates a JSON composition, the format the
// generation service emits.
func ParseComposition(data []byte) (*Composition, error) {
	var c Composition
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidComposition, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// ParseCompositionYAML decodes and validates a YAML composition.
func ParseCompositionYAML(data []byte) (*Composition, error) {
	var c Composition
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidComposition, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadCompositionFile reads a composition from disk, choosing the decoder by
// file extension (.yaml/.yml, otherwise JSON).
func LoadCompositionFile(path string) (*Composition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseCompositionYAML(data)
	default:
		return ParseComposition(data)
	}
}
