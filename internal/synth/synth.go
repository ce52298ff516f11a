package synth

import (
	"fmt"
	"math"
)

const twoPi = math.Pi * 2

type Waveform int

const (
	WaveSine Waveform = iota
	WaveTriangle
	WaveSquare
	WaveSawtooth
)

// ParseWaveform maps an oscillator name to a Waveform.
func ParseWaveform(name string) (Waveform, error) {
	switch name {
	case "", "sine":
		return WaveSine, nil
	case "triangle":
		return WaveTriangle, nil
	case "square":
		return WaveSquare, nil
	case "sawtooth", "saw":
		return WaveSawtooth, nil
	}
	return 0, fmt.Errorf("unknown oscillator %q", name)
}

// Synth is a monophonic oscillator with an ADSR envelope. A NoteOn while a
// note is sounding retriggers the envelope from its current level.
type Synth struct {
	sampleRate float64
	wave       Waveform
	env        envGen
	freq       float64
	phase      float64 // [0, 1)
	velocity   float64
}

func New(sampleRate int, wave Waveform, env Envelope) *Synth {
	return &Synth{
		sampleRate: float64(sampleRate),
		wave:       wave,
		env:        newEnvGen(env, float64(sampleRate)),
	}
}

func (s *Synth) NoteOn(freq, velocity float64) {
	s.freq = freq
	s.velocity = clamp(velocity, 0, 1)
	s.env.gate()
}

func (s *Synth) NoteOff() {
	s.env.release()
}

func (s *Synth) Active() bool {
	return s.env.active()
}

// Frequency returns the frequency of the last note.
func (s *Synth) Frequency() float64 {
	return s.freq
}

// Render produces one mono sample.
func (s *Synth) Render() float32 {
	if !s.env.active() {
		return 0
	}
	env := s.env.next()
	var sig float64
	switch s.wave {
	case WaveTriangle:
		if s.phase < 0.5 {
			sig = 4*s.phase - 1
		} else {
			sig = 3 - 4*s.phase
		}
	case WaveSquare:
		if s.phase < 0.5 {
			sig = 1
		} else {
			sig = -1
		}
	case WaveSawtooth:
		sig = 2*s.phase - 1
	default:
		sig = math.Sin(twoPi * s.phase)
	}
	s.phase += s.freq / s.sampleRate
	for s.phase >= 1 {
		s.phase -= 1
	}
	return float32(sig * env * s.velocity)
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
