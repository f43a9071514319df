package songforge

import (
	"errors"
	"testing"
)

func TestParsePitch(t *testing.T) {
	cases := []struct {
		pitch string
		want  int
	}{
		{"A4", 69},
		{"a4", 69},
		{"C4", 60},
		{"C#4", 61},
		{"Db4", 61},
		{"Bb3", 58},
		{"C-1", 0},
		{"G9", 127},
		{"E2", 40},
	}
	for _, tc := range cases {
		got, err := ParsePitch(tc.pitch)
		if err != nil {
			t.Fatalf("ParsePitch(%q): %v", tc.pitch, err)
		}
		if got != tc.want {
			t.Errorf("ParsePitch(%q) = %d, want %d", tc.pitch, got, tc.want)
		}
	}
}

func TestParsePitchRejectsBadInput(t *testing.T) {
	for _, pitch := range []string{"", "A", "H4", "G#9", "Cb-1", "A#", "4A", "A4.5"} {
		if _, err := ParsePitch(pitch); !errors.Is(err, ErrPitchOutOfRange) {
			t.Errorf("ParsePitch(%q) error = %v, want ErrPitchOutOfRange", pitch, err)
		}
	}
}

func testComposition() *Composition {
	return &Composition{
		Title: "Test Phrase",
		Tempo: 120,
		Tracks: []Track{
			{
				Name:       "melody",
				Instrument: InstrumentLead,
				Notes: []NoteEvent{
					{Pitch: "A4", Duration: "4n", Start: "0:0:0", Velocity: 0.8},
					{Pitch: "C5", Duration: "8n", Start: "0:1:0", Velocity: 0.6},
				},
			},
			{
				Name:       "kick",
				Instrument: InstrumentPercussion,
				Notes: []NoteEvent{
					{Pitch: "C2", Duration: "16n", Start: "0:0:0", Velocity: 1},
				},
			},
		},
	}
}

func TestValidateAcceptsWellFormed(t *testing.T) {
	if err := testComposition().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateIsAllOrNothing(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Composition)
		want   error
	}{
		{"zero tempo", func(c *Composition) { c.Tempo = 0 }, ErrInvalidComposition},
		{"negative tempo", func(c *Composition) { c.Tempo = -90 }, ErrInvalidComposition},
		{"bad pitch", func(c *Composition) { c.Tracks[0].Notes[1].Pitch = "X9" }, ErrPitchOutOfRange},
		{"bad start", func(c *Composition) { c.Tracks[1].Notes[0].Start = "0:0" }, ErrMalformedTimeToken},
		{"bad duration", func(c *Composition) { c.Tracks[0].Notes[0].Duration = "4q" }, ErrMalformedTimeToken},
		{"bad instrument", func(c *Composition) { c.Tracks[0].Instrument = InstrumentKind(9) }, ErrInvalidComposition},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := testComposition()
			tc.mutate(c)
			if err := c.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("Validate error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestZeroTrackCompositionIsLegal(t *testing.T) {
	c := &Composition{Title: "empty", Tempo: 90}
	if err := c.Validate(); err != nil {
		t.Fatalf("empty composition should validate: %v", err)
	}
	sched, err := buildSchedule(c)
	if err != nil {
		t.Fatal(err)
	}
	if len(sched) != 0 {
		t.Fatalf("schedule for empty composition has %d events", len(sched))
	}
}

func TestBuildScheduleResolvesTimes(t *testing.T) {
	sched, err := buildSchedule(testComposition())
	if err != nil {
		t.Fatal(err)
	}
	if len(sched) != 3 {
		t.Fatalf("schedule length = %d, want 3", len(sched))
	}
	first := sched[0]
	if first.Note != 69 || first.Start != 0 || first.Duration != 0.5 {
		t.Fatalf("first event = %+v, want note 69 start 0 duration 0.5", first)
	}
	if end := scheduleEnd(sched); end != 0.75 {
		t.Fatalf("schedule end = %v, want 0.75", end)
	}
}

func TestBuildScheduleClampsVelocity(t *testing.T) {
	c := testComposition()
	c.Tracks[0].Notes[0].Velocity = 1.7
	c.Tracks[0].Notes[1].Velocity = -0.3
	sched, err := buildSchedule(c)
	if err != nil {
		t.Fatal(err)
	}
	if sched[0].Velocity != 1 {
		t.Errorf("velocity 1.7 clamped to %v, want 1", sched[0].Velocity)
	}
	if sched[1].Velocity != 0 {
		t.Errorf("velocity -0.3 clamped to %v, want 0", sched[1].Velocity)
	}
}

func TestParseCompositionJSON(t *testing.T) {
	data := []byte(`{
		"title": "Neon Dusk",
		"tempo": 100,
		"scaleName": "A minor",
		"tracks": [
			{
				"name": "bassline",
				"instrumentKind": "bass",
				"colorHint": "#33ddff",
				"notes": [
					{"pitch": "A2", "duration": "2n", "startTime": "0:0:0", "velocity": 0.9}
				]
			}
		]
	}`)
	c, err := ParseComposition(data)
	if err != nil {
		t.Fatalf("ParseComposition: %v", err)
	}
	if c.Tracks[0].Instrument != InstrumentBass {
		t.Errorf("instrument = %v, want bass", c.Tracks[0].Instrument)
	}
	if c.Tracks[0].Notes[0].Start != "0:0:0" {
		t.Errorf("startTime = %q", c.Tracks[0].Notes[0].Start)
	}
}

func TestParseCompositionJSONRejectsGarbage(t *testing.T) {
	if _, err := ParseComposition([]byte(`{"tempo": `)); !errors.Is(err, ErrInvalidComposition) {
		t.Fatalf("error = %v, want ErrInvalidComposition", err)
	}
	if _, err := ParseComposition([]byte(`{"title":"x","tempo":0,"tracks":[]}`)); !errors.Is(err, ErrInvalidComposition) {
		t.Fatalf("error = %v, want ErrInvalidComposition", err)
	}
}

func TestParseCompositionYAML(t *testing.T) {
	data := []byte(`
title: Morning Pad
tempo: 80
tracks:
  - name: warmth
    instrument: pad
    notes:
      - {pitch: "C3", duration: "1m", start: "0:0:0", velocity: 0.5}
      - {pitch: "G3", duration: "1m", start: "1:0:0", velocity: 0.5}
`)
	c, err := ParseCompositionYAML(data)
	if err != nil {
		t.Fatalf("ParseCompositionYAML: %v", err)
	}
	if c.Tracks[0].Instrument != InstrumentPad {
		t.Errorf("instrument = %v, want pad", c.Tracks[0].Instrument)
	}
	if len(c.Tracks[0].Notes) != 2 {
		t.Errorf("notes = %d, want 2", len(c.Tracks[0].Notes))
	}
}

func TestInstrumentKindRoundTrip(t *testing.T) {
	for _, k := range []InstrumentKind{InstrumentLead, InstrumentBass, InstrumentPercussion, InstrumentPad} {
		text, err := k.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var back InstrumentKind
		if err := back.UnmarshalText(text); err != nil {
			t.Fatal(err)
		}
		if back != k {
			t.Errorf("round trip %v -> %s -> %v", k, text, back)
		}
	}
	var k InstrumentKind
	if err := k.UnmarshalText([]byte("theremin")); err == nil {
		t.Error("unknown kind should not unmarshal")
	}
}
