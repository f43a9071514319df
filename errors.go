package songforge

import (
	"errors"

	"github.com/cbegin/songforge-go/internal/timegrid"
)

// Error taxonomy. All validation failures are detected at load time, before
// any scheduling or rendering begins; a composition that fails validation is
// never partially loaded.
var (
	// ErrMalformedTimeToken reports a startTime or duration token outside
	// the bar:beat:sixteenth / Nn / Nm grammar.
	ErrMalformedTimeToken = timegrid.ErrMalformedToken

	// ErrPitchOutOfRange reports a pitch that does not name a note or whose
	// semitone index falls outside [0,127].
	ErrPitchOutOfRange = errors.New("pitch out of range")

	// ErrInvalidComposition reports a non-positive tempo or a structurally
	// incomplete composition.
	ErrInvalidComposition = errors.New("invalid composition")

	// ErrAudioInit reports that the audio output device or context could
	// not start. It is surfaced once per Play and is not retried.
	ErrAudioInit = errors.New("audio output init failed")

	// ErrExport reports an encoding failure. A failed export never touches
	// live playback state.
	ErrExport = errors.New("export failed")
)
