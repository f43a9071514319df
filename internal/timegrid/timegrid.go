// Package timegrid converts symbolic musical time into absolute seconds.
//
// Positions use the form "bar:beat:sixteenth" with non-negative integer
// fields and a fixed 4/4 meter. Durations use a suffix grammar: "Nn" is a
// 1/N note, "Nm" is N whole measures. All conversions are pure functions of
// (token, tempo), so real-time and offline schedules derived from the same
// composition are identical.
package timegrid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedToken reports a position or duration token outside the
// grammar. Callers must reject the owning event rather than approximate.
var ErrMalformedToken = errors.New("malformed time token")

// BeatDuration returns the length of one beat in seconds.
func BeatDuration(tempo float64) float64 {
	return 60.0 / tempo
}

// ParsePosition converts a "bar:beat:sixteenth" token into absolute seconds.
func ParsePosition(token string, tempo float64) (float64, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q (want bar:beat:sixteenth)", ErrMalformedToken, token)
	}
	var fields [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: %q (field %d)", ErrMalformedToken, token, i)
		}
		fields[i] = n
	}
	beat := BeatDuration(tempo)
	bars, beats, sixteenths := fields[0], fields[1], fields[2]
	return float64(bars)*4*beat + float64(beats)*beat + float64(sixteenths)*beat/4, nil
}

// ParseDuration converts a duration token into seconds. "4n" at 120 BPM is
// one beat (0.5s); "2m" is two whole measures (4s).
func ParseDuration(token string, tempo float64) (float64, error) {
	if len(token) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedToken, token)
	}
	suffix := token[len(token)-1]
	n, err := strconv.Atoi(token[:len(token)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedToken, token)
	}
	beat := BeatDuration(tempo)
	switch suffix {
	case 'n':
		return 4 * beat / float64(n), nil
	case 'm':
		return float64(n) * 4 * beat, nil
	default:
		return 0, fmt.Errorf("%w: %q (unknown suffix %q)", ErrMalformedToken, token, string(suffix))
	}
}
