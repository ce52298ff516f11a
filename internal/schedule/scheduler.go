package schedule

import (
	"errors"
	"fmt"

	"github.com/cbegin/genradio-go/internal/config"
	"github.com/cbegin/genradio-go/internal/synth"
)

type Class int

const (
	Harmonic Class = iota
	Drum
	Noise
)

func (c Class) String() string {
	switch c {
	case Harmonic:
		return "harmonic"
	case Drum:
		return "drum"
	case Noise:
		return "noise"
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

// Voice is the scheduling view of one sound generator.
type Voice struct {
	Name       string
	Class      Class
	Index      int // position within its class
	Interval   int // ticks between trigger opportunities, always > 0
	Candidates []int
}

// ActiveNote records the last pitch a harmonic voice played.
type ActiveNote struct {
	Pitch       string
	FiredAtTick uint64
}

// EffectParams mirrors the live values on the shared drum bus and the
// per-drum pitch shifters.
type EffectParams struct {
	DelayTime    float64
	Feedback     float64
	Cutoff       float64
	CutoffTarget float64
	PitchShift   []float64
}

// State is everything the scheduler mutates. It is owned by a single
// goroutine; callers get copies through Scheduler.State.
type State struct {
	Tick      uint64
	Voices    []Voice
	LastNotes []ActiveNote
	Effects   EffectParams
}

func (s State) clone() State {
	out := s
	out.Voices = make([]Voice, len(s.Voices))
	copy(out.Voices, s.Voices)
	out.LastNotes = make([]ActiveNote, len(s.LastNotes))
	copy(out.LastNotes, s.LastNotes)
	out.Effects.PitchShift = make([]float64, len(s.Effects.PitchShift))
	copy(out.Effects.PitchShift, s.Effects.PitchShift)
	return out
}

// HarmonicTrigger plays a pitched note for durationSec starting at audio time at.
type HarmonicTrigger interface {
	PlayNote(pitch string, durationSec, at float64)
}

// DrumTrigger plays a fixed-length hit and owns the voice's pitch shifter.
type DrumTrigger interface {
	PlayHit(token string, at, amplitude float64)
	SetPitchShift(semitones float64)
}

// NoiseTrigger plays a noise burst.
type NoiseTrigger interface {
	PlayBurst(durationSec, at float64)
}

// DrumBus exposes the delay and filter shared by all drum voices.
type DrumBus interface {
	SetDelayTime(sec float64)
	SetFeedback(ratio float64)
	SetHighpassCutoff(hz float64)
}

// Targets is the set of capabilities the scheduler drives.
type Targets struct {
	Harmonic []HarmonicTrigger
	Drums    []DrumTrigger
	Noise    NoiseTrigger
	Bus      DrumBus
}

type EventKind int

const (
	EventNote EventKind = iota
	EventHit
	EventBurst
)

// Event describes one voice firing.
type Event struct {
	Kind         EventKind
	Tick         uint64
	Voice        string
	Class        Class
	Index        int
	Pitch        string  // harmonic only
	Duration     float64 // seconds
	Amplitude    float64 // drum only
	At           float64 // audio time the trigger was anchored to
	NextInterval int
	Effects      EffectParams // drum only, values after the jitter
}

var ErrTargets = errors.New("scheduler targets do not match voices")

// Scheduler decides once per tick which voices fire. Each voice fires on
// tick t iff t is a multiple of its current interval; after firing the
// interval is redrawn from that voice's own candidate set.
type Scheduler struct {
	cfg          config.Config
	state        State
	targets      Targets
	picker       *Picker
	now          func() float64
	drumDuration float64
}

// NewState builds the initial state from the configuration: voices in the
// fixed order harmonic 1-3, drum 1-2, noise.
func NewState(cfg config.Config) State {
	var st State
	for i, v := range cfg.Harmonic.Voices {
		st.Voices = append(st.Voices, Voice{
			Name:       v.Name,
			Class:      Harmonic,
			Index:      i,
			Interval:   v.Interval,
			Candidates: append([]int(nil), v.Candidates...),
		})
	}
	for i, v := range cfg.Drum.Voices {
		st.Voices = append(st.Voices, Voice{
			Name:       v.Name,
			Class:      Drum,
			Index:      i,
			Interval:   v.Interval,
			Candidates: append([]int(nil), v.Candidates...),
		})
	}
	st.Voices = append(st.Voices, Voice{
		Name:       cfg.Noise.Name,
		Class:      Noise,
		Interval:   cfg.Noise.Interval,
		Candidates: append([]int(nil), cfg.Noise.Candidates...),
	})
	st.LastNotes = make([]ActiveNote, len(cfg.Harmonic.Voices))
	st.Effects = EffectParams{
		DelayTime:    cfg.Drum.Bus.DelayTime,
		Feedback:     cfg.Drum.Bus.Feedback,
		Cutoff:       cfg.Drum.Bus.Cutoff,
		CutoffTarget: cfg.Drum.Bus.Cutoff,
		PitchShift:   make([]float64, len(cfg.Drum.Voices)),
	}
	return st
}

// New creates a scheduler. now reports the audio clock in seconds and is
// used as the schedule anchor for every trigger.
func New(cfg config.Config, targets Targets, picker *Picker, now func() float64) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(targets.Harmonic) != len(cfg.Harmonic.Voices) || len(targets.Drums) != len(cfg.Drum.Voices) ||
		targets.Noise == nil || targets.Bus == nil {
		return nil, ErrTargets
	}
	dur, err := drumSeconds(cfg)
	if err != nil {
		return nil, err
	}
	if now == nil {
		now = func() float64 { return 0 }
	}
	if picker == nil {
		picker = NewPicker(0)
	}
	return &Scheduler{
		cfg:          cfg,
		state:        NewState(cfg),
		targets:      targets,
		picker:       picker,
		now:          now,
		drumDuration: dur,
	}, nil
}

// Step advances the clock by one tick and evaluates it. The first evaluated
// tick is 1, so no voice fires the instant playback begins.
func (s *Scheduler) Step() []Event {
	s.state.Tick++
	return s.Evaluate(s.state.Tick)
}

// Evaluate runs the trigger checks for tick t without moving the clock.
func (s *Scheduler) Evaluate(t uint64) []Event {
	var events []Event
	for i := range s.state.Voices {
		v := &s.state.Voices[i]
		if t%uint64(v.Interval) != 0 {
			continue
		}
		var ev Event
		switch v.Class {
		case Harmonic:
			ev = s.fireHarmonic(v, t)
		case Drum:
			ev = s.fireDrum(v, t)
		case Noise:
			ev = s.fireNoise(v, t)
		}
		events = append(events, ev)
	}
	return events
}

func (s *Scheduler) fireHarmonic(v *Voice, t uint64) Event {
	pitch := Choose(s.picker, s.cfg.Scale)
	dur := s.picker.Uniform(s.cfg.Harmonic.Duration)
	at := s.now()
	s.targets.Harmonic[v.Index].PlayNote(pitch, dur, at)
	s.state.LastNotes[v.Index] = ActiveNote{Pitch: pitch, FiredAtTick: t}
	v.Interval = Choose(s.picker, v.Candidates)
	return Event{
		Kind:         EventNote,
		Tick:         t,
		Voice:        v.Name,
		Class:        Harmonic,
		Index:        v.Index,
		Pitch:        pitch,
		Duration:     dur,
		At:           at,
		NextInterval: v.Interval,
	}
}

func (s *Scheduler) fireDrum(v *Voice, t uint64) Event {
	dc := s.cfg.Drum
	fx := &s.state.Effects
	drum := s.targets.Drums[v.Index]

	fx.PitchShift[v.Index] = s.picker.Uniform(dc.PitchShift)
	drum.SetPitchShift(fx.PitchShift[v.Index])
	amp := s.picker.Uniform(dc.Amplitude)
	at := s.now()
	drum.PlayHit(dc.Duration, at, amp)
	v.Interval = Choose(s.picker, v.Candidates)

	if v.Index == 0 {
		fx.Cutoff = s.picker.Uniform(dc.Cutoff)
		s.targets.Bus.SetHighpassCutoff(fx.Cutoff)
	} else {
		// Later drums only record a target cutoff. Whether it should reach the
		// live filter is undecided, so it stays behind apply_target_cutoff.
		fx.CutoffTarget = s.picker.Uniform(dc.TargetCutoff)
		if dc.ApplyTargetCutoff {
			fx.Cutoff = fx.CutoffTarget
			s.targets.Bus.SetHighpassCutoff(fx.Cutoff)
		}
	}
	fx.DelayTime = s.picker.Uniform(dc.DelayTime)
	s.targets.Bus.SetDelayTime(fx.DelayTime)
	fx.Feedback = s.picker.Uniform(dc.Feedback)
	s.targets.Bus.SetFeedback(fx.Feedback)

	snap := *fx
	snap.PitchShift = append([]float64(nil), fx.PitchShift...)
	return Event{
		Kind:         EventHit,
		Tick:         t,
		Voice:        v.Name,
		Class:        Drum,
		Index:        v.Index,
		Duration:     s.drumDuration,
		Amplitude:    amp,
		At:           at,
		NextInterval: v.Interval,
		Effects:      snap,
	}
}

func (s *Scheduler) fireNoise(v *Voice, t uint64) Event {
	dur := s.picker.Uniform(s.cfg.Noise.Duration)
	at := s.now()
	s.targets.Noise.PlayBurst(dur, at)
	v.Interval = Choose(s.picker, v.Candidates)
	return Event{
		Kind:         EventBurst,
		Tick:         t,
		Voice:        v.Name,
		Class:        Noise,
		Duration:     dur,
		At:           at,
		NextInterval: v.Interval,
	}
}

// State returns a copy of the scheduler state.
func (s *Scheduler) State() State {
	return s.state.clone()
}

// Tick returns the current clock value.
func (s *Scheduler) Tick() uint64 {
	return s.state.Tick
}

// SetInterval overrides a voice's current interval. Non-positive values are
// rejected so the positive-interval invariant holds.
func (s *Scheduler) SetInterval(voice int, interval int) error {
	if voice < 0 || voice >= len(s.state.Voices) {
		return fmt.Errorf("voice %d out of range", voice)
	}
	if interval <= 0 {
		return fmt.Errorf("interval %d must be positive", interval)
	}
	s.state.Voices[voice].Interval = interval
	return nil
}

func drumSeconds(cfg config.Config) (float64, error) {
	return synth.DurationSeconds(cfg.Drum.Duration, cfg.BPM)
}
