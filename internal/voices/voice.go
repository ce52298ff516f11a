package voices

import (
	"math"

	"github.com/cbegin/genradio-go/internal/effects"
	"github.com/cbegin/genradio-go/internal/lfo"
	"github.com/cbegin/genradio-go/internal/synth"
)

// pending is a gate change scheduled for an absolute frame. Offs carry the
// generation of the note they end so a retriggered voice is not cut short.
type pending struct {
	frame uint64
	on    bool
	gen   uint64
	freq  float64
	vel   float64
}

type queue struct {
	events []pending
	gen    uint64 // generation of the sounding note
	next   uint64 // last generation handed out
}

func (q *queue) schedule(start, length uint64, freq, vel float64) {
	q.next++
	q.events = append(q.events,
		pending{frame: start, on: true, gen: q.next, freq: freq, vel: vel},
		pending{frame: start + length, gen: q.next},
	)
}

type gater interface {
	gateOn(freq, vel float64)
	gateOff()
}

// due applies every event whose frame has been reached.
func (q *queue) due(frame uint64, g gater) {
	if len(q.events) == 0 {
		return
	}
	kept := q.events[:0]
	for _, ev := range q.events {
		if ev.frame > frame {
			kept = append(kept, ev)
			continue
		}
		if ev.on {
			q.gen = ev.gen
			g.gateOn(ev.freq, ev.vel)
		} else if ev.gen == q.gen {
			g.gateOff()
		}
	}
	q.events = kept
}

// HarmonicVoice is an oscillator synth with its filter, reverb and gain.
type HarmonicVoice struct {
	Name   string
	reg    *Registry
	synth  *synth.Synth
	Filter *effects.Filter
	Reverb *effects.Reverb
	Gain   *effects.Gain
	chain  *effects.Chain
	volume *lfo.LFO // nil unless the volume LFO is enabled
	q      queue
	pitch  string
}

// PlayNote schedules pitch for durationSec seconds starting at audio time at.
// Unknown pitches are ignored.
func (v *HarmonicVoice) PlayNote(pitch string, durationSec, at float64) {
	freq, err := synth.NoteFrequency(pitch)
	if err != nil {
		v.reg.log.Warn("dropping note", "voice", v.Name, "pitch", pitch, "err", err)
		return
	}
	v.reg.mu.Lock()
	defer v.reg.mu.Unlock()
	start, length := v.reg.frames(at, durationSec)
	v.q.schedule(start, length, freq, 1)
	v.pitch = pitch
}

func (v *HarmonicVoice) gateOn(freq, vel float64) { v.synth.NoteOn(freq, vel) }
func (v *HarmonicVoice) gateOff()                 { v.synth.NoteOff() }

func (v *HarmonicVoice) render(frame uint64, l, r []float32) {
	sr := float64(v.reg.sampleRate)
	for i := range l {
		v.q.due(frame+uint64(i), v)
		s := v.synth.Render()
		l[i], r[i] = v.chain.Process(s, s)
		if v.volume != nil {
			g := float32(dbToGain(v.volume.Sample(sr)))
			l[i] *= g
			r[i] *= g
		}
	}
}

// DrumVoice is a white-noise hit with its own pitch shifter and reverb. Its
// output feeds the shared drum bus.
type DrumVoice struct {
	Name       string
	reg        *Registry
	noise      *synth.NoiseSynth
	PitchShift *effects.PitchShift
	Reverb     *effects.Reverb
	Gain       *effects.Gain
	chain      *effects.Chain
	q          queue
}

// PlayHit schedules a hit lasting the note value token at the registry bpm.
// An unparseable token falls back to the configured drum duration.
func (v *DrumVoice) PlayHit(token string, at, amplitude float64) {
	sec, err := synth.DurationSeconds(token, v.reg.bpm)
	if err != nil {
		v.reg.log.Warn("bad drum duration", "voice", v.Name, "token", token, "err", err)
		sec = v.reg.drumSec
	}
	v.reg.mu.Lock()
	defer v.reg.mu.Unlock()
	start, length := v.reg.frames(at, sec)
	v.q.schedule(start, length, 0, amplitude)
}

func (v *DrumVoice) SetPitchShift(semitones float64) {
	v.PitchShift.SetSemitones(semitones)
}

func (v *DrumVoice) gateOn(_, vel float64) { v.noise.NoteOn(vel) }
func (v *DrumVoice) gateOff()              { v.noise.NoteOff() }

func (v *DrumVoice) render(frame uint64, l, r []float32) {
	for i := range l {
		v.q.due(frame+uint64(i), v)
		s := v.noise.Render()
		l[i], r[i] = v.chain.Process(s, s)
	}
}

// NoiseVoice is the filtered, distorted brown-noise bed.
type NoiseVoice struct {
	Name       string
	reg        *Registry
	noise      *synth.NoiseSynth
	Filter     *effects.Filter
	Distortion *effects.Distortion
	Reverb     *effects.Reverb
	Gain       *effects.Gain
	chain      *effects.Chain
	q          queue
}

func (v *NoiseVoice) PlayBurst(durationSec, at float64) {
	v.reg.mu.Lock()
	defer v.reg.mu.Unlock()
	start, length := v.reg.frames(at, durationSec)
	v.q.schedule(start, length, 0, 1)
}

func (v *NoiseVoice) gateOn(_, vel float64) { v.noise.NoteOn(vel) }
func (v *NoiseVoice) gateOff()              { v.noise.NoteOff() }

func (v *NoiseVoice) render(frame uint64, l, r []float32) {
	for i := range l {
		v.q.due(frame+uint64(i), v)
		s := v.noise.Render()
		l[i], r[i] = v.chain.Process(s, s)
	}
}

// DrumBus is the delay and filter every drum voice is summed into.
type DrumBus struct {
	Delay  *effects.Delay
	Filter *effects.Filter
	chain  *effects.Chain
}

func (b *DrumBus) SetDelayTime(sec float64)  { b.Delay.SetDelayTime(sec) }
func (b *DrumBus) SetFeedback(ratio float64) { b.Delay.SetFeedback(ratio) }

// SetHighpassCutoff moves the bus filter cutoff, whichever type the filter is.
func (b *DrumBus) SetHighpassCutoff(hz float64) { b.Filter.SetCutoff(hz) }

func dbToGain(db float64) float64 {
	return math.Pow(10, db/20)
}
