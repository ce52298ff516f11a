// Package voices builds the six sound generators, their effect chains and
// the shared drum bus, and renders them to interleaved stereo.
package voices

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/viterin/vek/vek32"

	"github.com/cbegin/genradio-go/internal/config"
	"github.com/cbegin/genradio-go/internal/effects"
	"github.com/cbegin/genradio-go/internal/lfo"
	"github.com/cbegin/genradio-go/internal/schedule"
	"github.com/cbegin/genradio-go/internal/synth"
)

// pitchWindowSec is the pitch shifter window.
const pitchWindowSec = 0.1

// Registry owns every voice. Trigger methods may be called from the scheduler
// goroutine while Process runs on the audio goroutine.
type Registry struct {
	mu         sync.Mutex
	log        *slog.Logger
	sampleRate int
	bpm        float64
	drumSec    float64
	frame      atomic.Uint64 // frames rendered so far

	Harmonic [3]*HarmonicVoice
	Drums    [2]*DrumVoice
	Noise    *NoiseVoice
	Bus      *DrumBus

	masterGain *effects.Gain
	master     *effects.Chain
	volume     atomic.Uint32 // float32 bits
	meter      Meter

	voiceL, voiceR []float32
	busL, busR     []float32
	mixL, mixR     []float32
}

// Option configures CreateVoices.
type Option func(*Registry)

// WithLogger sets the logger used for dropped triggers.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// CreateVoices allocates every synth and effect described by cfg. Random
// construction parameters (harmonic attack and decay, drum gains, LFO rates,
// noise seeds) are drawn from picker.
func CreateVoices(cfg config.Config, sampleRate int, picker *schedule.Picker, opts ...Option) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate %d must be positive", sampleRate)
	}
	if picker == nil {
		picker = schedule.NewPicker(0)
	}
	drumSec, err := synth.DurationSeconds(cfg.Drum.Duration, cfg.BPM)
	if err != nil {
		return nil, err
	}
	r := &Registry{
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		sampleRate: sampleRate,
		bpm:        cfg.BPM,
		drumSec:    drumSec,
	}
	for _, o := range opts {
		o(r)
	}
	r.SetVolume(1)

	// Attack and decay are drawn once and shared by all harmonic voices.
	henv := synth.Envelope{
		Attack:  picker.Uniform(cfg.Harmonic.Attack),
		Decay:   picker.Uniform(cfg.Harmonic.Decay),
		Sustain: cfg.Harmonic.Sustain,
		Release: cfg.Harmonic.Release,
	}
	for i, hc := range cfg.Harmonic.Voices {
		wave, err := synth.ParseWaveform(hc.Oscillator)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", hc.Name, err)
		}
		v := &HarmonicVoice{
			Name:   hc.Name,
			reg:    r,
			synth:  synth.New(sampleRate, wave, henv),
			Filter: effects.NewFilter(sampleRate, effects.Lowpass, cfg.Harmonic.FilterCutoff),
			Reverb: newReverb(sampleRate, hc.Reverb),
			Gain:   effects.NewGain(hc.Gain),
		}
		v.chain = effects.NewChain(v.Filter, v.Reverb, v.Gain)
		if vl := cfg.Harmonic.VolumeLFO; vl.Enabled {
			v.volume = lfo.New(picker.Uniform(vl.Rate), vl.MinDB, vl.MaxDB, lfo.WaveSine)
			v.volume.Start()
		}
		r.Harmonic[i] = v
	}

	denv := envelope(cfg.Drum.Envelope)
	for i, dc := range cfg.Drum.Voices {
		v := &DrumVoice{
			Name:       dc.Name,
			reg:        r,
			noise:      synth.NewNoise(sampleRate, synth.NoiseWhite, denv, picker.Uint64()),
			PitchShift: effects.NewPitchShift(sampleRate, 0, pitchWindowSec),
			Reverb:     newReverb(sampleRate, dc.Reverb),
			Gain:       effects.NewGain(picker.Uniform(cfg.Drum.Gain)),
		}
		v.chain = effects.NewChain(v.PitchShift, v.Reverb, v.Gain)
		r.Drums[i] = v
	}

	bc := cfg.Drum.Bus
	kind, err := effects.ParseFilterType(bc.Filter)
	if err != nil {
		return nil, fmt.Errorf("drum bus: %w", err)
	}
	r.Bus = &DrumBus{
		Delay:  effects.NewDelay(sampleRate, bc.DelayTime, bc.Feedback, 0, float32(bc.Wet)),
		Filter: effects.NewFilter(sampleRate, kind, bc.Cutoff),
	}
	r.Bus.chain = effects.NewChain(r.Bus.Delay, r.Bus.Filter)

	nc := cfg.Noise
	color, err := synth.ParseNoiseColor(nc.Color)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", nc.Name, err)
	}
	r.Noise = &NoiseVoice{
		Name:       nc.Name,
		reg:        r,
		noise:      synth.NewNoise(sampleRate, color, envelope(nc.Envelope), picker.Uint64()),
		Filter:     effects.NewFilter(sampleRate, effects.Lowpass, nc.FilterCutoff),
		Distortion: effects.NewDistortion(nc.Distortion.Amount, float32(nc.Distortion.Wet)),
		Reverb:     newReverb(sampleRate, nc.Reverb),
		Gain:       effects.NewGain(nc.Gain),
	}
	r.Noise.chain = effects.NewChain(r.Noise.Filter, r.Noise.Distortion, r.Noise.Reverb, r.Noise.Gain)

	r.masterGain = effects.NewGain(cfg.Master.Gain)
	r.master = effects.NewChain(r.masterGain)
	for _, ec := range cfg.Master.Effects {
		e, err := effects.New(ec.Type, ec.Params, sampleRate)
		if err != nil {
			return nil, fmt.Errorf("master: %w", err)
		}
		r.master.Add(e)
	}
	return r, nil
}

func newReverb(sampleRate int, rc config.Reverb) *effects.Reverb {
	return effects.NewReverb(sampleRate, rc.Decay, rc.PreDelay, float32(rc.Wet))
}

func envelope(e config.Envelope) synth.Envelope {
	return synth.Envelope{Attack: e.Attack, Decay: e.Decay, Sustain: e.Sustain, Release: e.Release}
}

// Targets exposes the registry as the capabilities the scheduler drives.
func (r *Registry) Targets() schedule.Targets {
	t := schedule.Targets{Noise: r.Noise, Bus: r.Bus}
	for _, v := range r.Harmonic {
		t.Harmonic = append(t.Harmonic, v)
	}
	for _, v := range r.Drums {
		t.Drums = append(t.Drums, v)
	}
	return t
}

func (r *Registry) SampleRate() int { return r.sampleRate }

// Now returns the audio clock: seconds of audio rendered so far.
func (r *Registry) Now() float64 {
	return float64(r.frame.Load()) / float64(r.sampleRate)
}

// frames converts a start time and duration to frames. Starts in the past
// are moved to the next frame to be rendered. Called with mu held.
func (r *Registry) frames(at, durationSec float64) (start, length uint64) {
	now := r.frame.Load()
	start = now
	if at > 0 {
		if f := uint64(math.Round(at * float64(r.sampleRate))); f > now {
			start = f
		}
	}
	if durationSec > 0 {
		length = uint64(math.Round(durationSec * float64(r.sampleRate)))
	}
	return start, length
}

// SetVolume sets the output volume applied after the master chain.
func (r *Registry) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	r.volume.Store(math.Float32bits(float32(v)))
}

func (r *Registry) Volume() float64 {
	return float64(math.Float32frombits(r.volume.Load()))
}

// Level returns the meter reading of the most recent block.
func (r *Registry) Level() Level {
	return r.meter.Load()
}

// VoiceStatus is a display snapshot of one voice.
type VoiceStatus struct {
	Name   string
	Active bool
	Pitch  string // last pitch, harmonic voices only
}

// Status reports which voices are sounding, in scheduler order.
func (r *Registry) Status() []VoiceStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]VoiceStatus, 0, 6)
	for _, v := range r.Harmonic {
		out = append(out, VoiceStatus{Name: v.Name, Active: v.synth.Active(), Pitch: v.pitch})
	}
	for _, v := range r.Drums {
		out = append(out, VoiceStatus{Name: v.Name, Active: v.noise.Active()})
	}
	return append(out, VoiceStatus{Name: r.Noise.Name, Active: r.Noise.noise.Active()})
}

func (r *Registry) ensure(frames int) {
	if cap(r.mixL) >= frames {
		return
	}
	r.voiceL = make([]float32, frames)
	r.voiceR = make([]float32, frames)
	r.busL = make([]float32, frames)
	r.busR = make([]float32, frames)
	r.mixL = make([]float32, frames)
	r.mixR = make([]float32, frames)
}

// Process renders interleaved stereo samples into dst.
func (r *Registry) Process(dst []float32) {
	frames := len(dst) / 2
	if frames == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensure(frames)

	start := r.frame.Load()
	vl, vr := r.voiceL[:frames], r.voiceR[:frames]
	mixL := vek32.Zeros_Into(r.mixL, frames)
	mixR := vek32.Zeros_Into(r.mixR, frames)
	busL := vek32.Zeros_Into(r.busL, frames)
	busR := vek32.Zeros_Into(r.busR, frames)

	for _, v := range r.Harmonic {
		v.render(start, vl, vr)
		vek32.Add_Inplace(mixL, vl)
		vek32.Add_Inplace(mixR, vr)
	}
	for _, v := range r.Drums {
		v.render(start, vl, vr)
		vek32.Add_Inplace(busL, vl)
		vek32.Add_Inplace(busR, vr)
	}
	for i := range busL {
		busL[i], busR[i] = r.Bus.chain.Process(busL[i], busR[i])
	}
	vek32.Add_Inplace(mixL, busL)
	vek32.Add_Inplace(mixR, busR)
	r.Noise.render(start, vl, vr)
	vek32.Add_Inplace(mixL, vl)
	vek32.Add_Inplace(mixR, vr)

	for i := range mixL {
		mixL[i], mixR[i] = r.master.Process(mixL[i], mixR[i])
	}
	vol := math.Float32frombits(r.volume.Load())
	vek32.MulNumber_Inplace(mixL, vol)
	vek32.MulNumber_Inplace(mixR, vol)
	for i := 0; i < frames; i++ {
		dst[i*2] = clip(mixL[i])
		dst[i*2+1] = clip(mixR[i])
	}
	for i := frames * 2; i < len(dst); i++ {
		dst[i] = 0
	}
	r.meter.update(mixL, mixR, r.voiceL[:frames])
	r.frame.Add(uint64(frames))
}

func clip(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	if math.IsNaN(float64(v)) {
		return 0
	}
	return v
}
