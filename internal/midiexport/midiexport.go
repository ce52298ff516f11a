// Package midiexport writes scheduler trigger logs as Standard MIDI Files.
package midiexport

import (
	"fmt"
	"io"
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/genradio-go/internal/schedule"
	"github.com/cbegin/genradio-go/internal/synth"
)

// Resolution is the number of MIDI ticks per quarter note.
const Resolution = 960

const (
	drumChannel  = 9
	noiseChannel = 3
	noiseKey     = 24 // C1
)

// drumKeys are GM percussion keys for drum 1 and 2.
var drumKeys = []uint8{36, 38}

type note struct {
	start, end uint32
	key, vel   uint8
}

type track struct {
	name    string
	channel uint8
	notes   []note
}

// Write encodes events as a format 1 SMF with a tempo track followed by one
// track per voice that fired. Tick t of the scheduler maps to t/tickRate
// seconds of music at bpm.
func Write(w io.Writer, events []schedule.Event, tickRate int, bpm float64) error {
	if tickRate <= 0 || bpm <= 0 {
		return fmt.Errorf("midiexport: tick rate %d and bpm %v must be positive", tickRate, bpm)
	}
	perSec := bpm / 60 * Resolution
	toTicks := func(sec float64) uint32 {
		return uint32(math.Round(sec * perSec))
	}

	var order []string
	tracks := map[string]*track{}
	for _, ev := range events {
		tr, ok := tracks[ev.Voice]
		if !ok {
			tr = &track{name: ev.Voice}
			switch ev.Class {
			case schedule.Harmonic:
				tr.channel = uint8(ev.Index)
			case schedule.Drum:
				tr.channel = drumChannel
			case schedule.Noise:
				tr.channel = noiseChannel
			}
			tracks[ev.Voice] = tr
			order = append(order, ev.Voice)
		}
		start := toTicks(float64(ev.Tick) / float64(tickRate))
		n := note{start: start, end: start + max(toTicks(ev.Duration), 1)}
		switch ev.Kind {
		case schedule.EventNote:
			key, err := synth.NoteNumber(ev.Pitch)
			if err != nil {
				return fmt.Errorf("midiexport: %s: %w", ev.Voice, err)
			}
			n.key, n.vel = uint8(key), 100
		case schedule.EventHit:
			n.key = drumKeys[ev.Index%len(drumKeys)]
			n.vel = velocity(ev.Amplitude)
		case schedule.EventBurst:
			n.key, n.vel = noiseKey, 64
		}
		tr.notes = append(tr.notes, n)
	}

	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(Resolution)

	var tempo smf.Track
	tempo.Add(0, smf.MetaMeter(4, 4))
	tempo.Add(0, smf.MetaTempo(bpm))
	tempo.Close(0)
	if err := sm.Add(tempo); err != nil {
		return fmt.Errorf("midiexport: tempo track: %w", err)
	}
	for _, name := range order {
		if err := sm.Add(tracks[name].encode()); err != nil {
			return fmt.Errorf("midiexport: track %s: %w", name, err)
		}
	}
	_, err := sm.WriteTo(w)
	return err
}

// encode turns the notes into delta-timed messages. Voices are monophonic,
// so a note is cut short when the next one starts.
func (t *track) encode() smf.Track {
	type msg struct {
		at  uint32
		off bool
		m   midi.Message
	}
	sort.SliceStable(t.notes, func(i, j int) bool { return t.notes[i].start < t.notes[j].start })
	var msgs []msg
	for i, n := range t.notes {
		end := n.end
		if i+1 < len(t.notes) && t.notes[i+1].start < end {
			end = t.notes[i+1].start
		}
		if end <= n.start {
			continue
		}
		msgs = append(msgs,
			msg{at: n.start, m: midi.NoteOn(t.channel, n.key, n.vel)},
			msg{at: end, off: true, m: midi.NoteOff(t.channel, n.key)},
		)
	}
	// Offs sort before ons at the same tick.
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].at != msgs[j].at {
			return msgs[i].at < msgs[j].at
		}
		return msgs[i].off && !msgs[j].off
	})

	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName(t.name))
	var last uint32
	for _, m := range msgs {
		tr.Add(m.at-last, m.m)
		last = m.at
	}
	tr.Close(0)
	return tr
}

func velocity(amp float64) uint8 {
	v := math.Round(amp * 127)
	if v < 1 {
		return 1
	}
	if v > 127 {
		return 127
	}
	return uint8(v)
}
