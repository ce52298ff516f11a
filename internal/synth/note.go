package synth

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrBadPitch    = errors.New("bad pitch symbol")
	ErrBadDuration = errors.New("bad duration token")
)

var pitchClasses = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// NoteNumber converts scientific pitch notation ("C3", "Db3", "F#4", "Bb4")
// to a MIDI note number. C4 is 60 and A4 is 69.
func NoteNumber(symbol string) (int, error) {
	s := strings.TrimSpace(symbol)
	if len(s) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrBadPitch, symbol)
	}
	pc, ok := pitchClasses[byte(strings.ToUpper(s[:1])[0])]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrBadPitch, symbol)
	}
	rest := s[1:]
	for len(rest) > 0 && (rest[0] == '#' || rest[0] == 'b') {
		if rest[0] == '#' {
			pc++
		} else {
			pc--
		}
		rest = rest[1:]
	}
	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadPitch, symbol)
	}
	n := (octave+1)*12 + pc
	if n < 0 || n > 127 {
		return 0, fmt.Errorf("%w: %q out of MIDI range", ErrBadPitch, symbol)
	}
	return n, nil
}

// NoteFrequency returns the equal-tempered frequency of a pitch symbol.
func NoteFrequency(symbol string) (float64, error) {
	n, err := NoteNumber(symbol)
	if err != nil {
		return 0, err
	}
	return MIDIToFreq(n), nil
}

func MIDIToFreq(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}

// DurationSeconds resolves a note-value token against a tempo. "4n" is one
// beat, "8n" half a beat, "1m" one 4/4 measure; a trailing dot adds half.
func DurationSeconds(token string, bpm float64) (float64, error) {
	if bpm <= 0 {
		return 0, fmt.Errorf("%w: bpm %v", ErrBadDuration, bpm)
	}
	t := strings.TrimSpace(token)
	dotted := strings.HasSuffix(t, ".")
	t = strings.TrimSuffix(t, ".")
	if len(t) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrBadDuration, token)
	}
	unit := t[len(t)-1]
	div, err := strconv.Atoi(t[:len(t)-1])
	if err != nil || div <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadDuration, token)
	}
	beat := 60 / bpm
	var sec float64
	switch unit {
	case 'n':
		sec = beat * 4 / float64(div)
	case 'm':
		sec = beat * 4 * float64(div)
	default:
		return 0, fmt.Errorf("%w: %q", ErrBadDuration, token)
	}
	if dotted {
		sec *= 1.5
	}
	return sec, nil
}
