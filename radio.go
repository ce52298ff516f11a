// Package genradio is an endless generative music station: six voices
// triggered at random intervals by a 30 Hz scheduler.
package genradio

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	intaudio "github.com/cbegin/genradio-go/internal/audio"
	"github.com/cbegin/genradio-go/internal/config"
	"github.com/cbegin/genradio-go/internal/schedule"
	"github.com/cbegin/genradio-go/internal/uptime"
	"github.com/cbegin/genradio-go/internal/voices"
)

// Event is a voice firing, delivered through Watch.
type Event = schedule.Event

// Event kinds.
const (
	EventNote  = schedule.EventNote
	EventHit   = schedule.EventHit
	EventBurst = schedule.EventBurst
)

// RadioState is the lifecycle of a Radio.
type RadioState int

const (
	// AwaitingStart renders the display but triggers nothing.
	AwaitingStart RadioState = iota
	// Running evaluates the scheduler on every tick. There is no way back to
	// AwaitingStart.
	Running
	// Stopped is the state after Stop: the output is closed and nothing fires.
	Stopped
)

func (s RadioState) String() string {
	switch s {
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	}
	return "awaiting start"
}

// DefaultSampleRate is the output rate used by the commands.
const DefaultSampleRate = 44100

// ErrAudioStart wraps failures to open the audio output.
var ErrAudioStart = errors.New("could not start audio")

// ErrStopped is returned by Start after Stop.
var ErrStopped = errors.New("radio stopped")

// Frame is what the display draws on one tick.
type Frame struct {
	Title          string
	Description    string
	ElapsedMinutes int64
	Running        bool
}

// Elapsed formats the uptime line.
func (f Frame) Elapsed() string {
	return uptime.Label(f.ElapsedMinutes)
}

// Display is the visual surface. Render is called on every tick; HidePrompt
// is called once, the first time audio starts.
type Display interface {
	Render(Frame)
	HidePrompt()
}

// OutputFactory opens an audio output pulling from src.
type OutputFactory func(sampleRate int, src intaudio.SampleSource) (intaudio.Output, error)

// EbitenOutput plays through the ebiten audio context.
func EbitenOutput(sampleRate int, src intaudio.SampleSource) (intaudio.Output, error) {
	return intaudio.NewPlayer(sampleRate, src)
}

// OtoOutput plays directly through oto.
func OtoOutput(sampleRate int, src intaudio.SampleSource) (intaudio.Output, error) {
	return intaudio.NewOtoPlayer(sampleRate, src)
}

// RadioOption configures a Radio.
type RadioOption func(*radioConfig)

type radioConfig struct {
	cfg       config.Config
	seed      uint64
	seeded    bool
	sampleTap func([]float32)
	display   Display
	logger    *slog.Logger
	output    OutputFactory
	clock     func() time.Time
	volume    float64
}

func defaultRadioConfig() radioConfig {
	return radioConfig{
		cfg:    config.Default(),
		logger: slog.Default(),
		output: EbitenOutput,
		clock:  time.Now,
		volume: 1,
	}
}

// WithConfig replaces the compiled-in configuration.
func WithConfig(cfg config.Config) RadioOption {
	return func(rc *radioConfig) {
		rc.cfg = cfg
	}
}

// WithSeed makes every random draw reproducible.
func WithSeed(seed uint64) RadioOption {
	return func(rc *radioConfig) {
		rc.seed = seed
		rc.seeded = true
	}
}

// WithSampleTap installs a callback invoked with each generated stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) RadioOption {
	return func(rc *radioConfig) {
		rc.sampleTap = tap
	}
}

// WithDisplay sets the surface that receives a Frame on every tick.
func WithDisplay(d Display) RadioOption {
	return func(rc *radioConfig) {
		rc.display = d
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) RadioOption {
	return func(rc *radioConfig) {
		if l != nil {
			rc.logger = l
		}
	}
}

// WithOutput replaces the audio backend. The default is EbitenOutput.
func WithOutput(f OutputFactory) RadioOption {
	return func(rc *radioConfig) {
		if f != nil {
			rc.output = f
		}
	}
}

// WithClock sets the wall clock used for the elapsed-time line.
func WithClock(now func() time.Time) RadioOption {
	return func(rc *radioConfig) {
		if now != nil {
			rc.clock = now
		}
	}
}

// WithMasterVolume sets the initial output volume. 1.0 is unity.
func WithMasterVolume(v float64) RadioOption {
	return func(rc *radioConfig) {
		rc.volume = v
	}
}

// Radio ties the voices, the scheduler, the display and the audio output
// together. Tick is meant to be called tickRate times per second by a single
// goroutine; audio is rendered on the output's goroutine.
type Radio struct {
	mu           sync.Mutex
	cfg          config.Config
	sampleRate   int
	state        RadioState
	registry     *voices.Registry
	sched        *schedule.Scheduler
	uptime       uptime.Reporter
	display      Display
	promptHidden bool
	newOutput    OutputFactory
	output       intaudio.Output
	sampleTap    func([]float32)
	log          *slog.Logger
	eventCh      chan Event
	eventChMu    sync.Mutex
}

// tapSource renders the registry and hands each buffer to the sample tap.
type tapSource struct {
	reg *voices.Registry
	tap func([]float32)
}

func (s tapSource) Process(dst []float32) {
	s.reg.Process(dst)
	if s.tap != nil {
		s.tap(dst)
	}
}

// NewRadio builds the voices and the scheduler. The radio starts in
// AwaitingStart; call Start to open the audio output.
func NewRadio(sampleRate int, opts ...RadioOption) (*Radio, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	rc := defaultRadioConfig()
	for _, opt := range opts {
		opt(&rc)
	}
	if !rc.seeded {
		rc.seed = rand.Uint64()
	}
	reg, sched, err := build(rc.cfg, sampleRate, rc.seed, rc.logger, nil)
	if err != nil {
		return nil, err
	}
	start, err := rc.cfg.Start()
	if err != nil {
		return nil, err
	}
	reg.SetVolume(rc.volume)
	rc.logger.Debug("radio created", "sample_rate", sampleRate, "seed", rc.seed)
	return &Radio{
		cfg:        rc.cfg,
		sampleRate: sampleRate,
		registry:   reg,
		sched:      sched,
		uptime:     uptime.Reporter{Start: start, Now: rc.clock},
		display:    rc.display,
		newOutput:  rc.output,
		sampleTap:  rc.sampleTap,
		log:        rc.logger,
	}, nil
}

// build wires a registry and a scheduler that share one seeded picker. A nil
// clock anchors triggers to the registry's audio clock.
func build(cfg config.Config, sampleRate int, seed uint64, log *slog.Logger, clock func() float64) (*voices.Registry, *schedule.Scheduler, error) {
	picker := schedule.NewPicker(seed)
	reg, err := voices.CreateVoices(cfg, sampleRate, picker, voices.WithLogger(log))
	if err != nil {
		return nil, nil, err
	}
	if clock == nil {
		clock = reg.Now
	}
	sched, err := schedule.New(cfg, reg.Targets(), picker, clock)
	if err != nil {
		return nil, nil, err
	}
	return reg, sched, nil
}

// Start opens the audio output and begins scheduling. It is a no-op while
// running. If the output cannot be opened the radio stays in AwaitingStart
// and Start may be called again. After Stop it returns ErrStopped.
func (r *Radio) Start() error {
	r.mu.Lock()
	switch r.state {
	case Running:
		r.mu.Unlock()
		return nil
	case Stopped:
		r.mu.Unlock()
		return ErrStopped
	}
	out, err := r.newOutput(r.sampleRate, tapSource{reg: r.registry, tap: r.sampleTap})
	if err != nil {
		r.mu.Unlock()
		r.log.Warn("audio start failed", "err", err)
		return fmt.Errorf("%w: %w", ErrAudioStart, err)
	}
	out.Play()
	r.output = out
	r.state = Running
	hide := !r.promptHidden
	r.promptHidden = true
	d := r.display
	r.mu.Unlock()

	r.log.Info("radio started", "sample_rate", r.sampleRate)
	if hide && d != nil {
		d.HidePrompt()
	}
	return nil
}

// Tick advances one display frame. While running, the scheduler is stepped
// and fired voices are published on the Watch channel.
func (r *Radio) Tick() Frame {
	r.mu.Lock()
	frame := Frame{
		Title:          r.cfg.Title,
		Description:    r.cfg.Description,
		ElapsedMinutes: r.uptime.Minutes(),
		Running:        r.state == Running,
	}
	var events []Event
	if r.state == Running {
		events = r.sched.Step()
	}
	d := r.display
	r.mu.Unlock()

	for _, ev := range events {
		r.log.Debug("trigger", "voice", ev.Voice, "tick", ev.Tick, "pitch", ev.Pitch,
			"duration", ev.Duration, "next_interval", ev.NextInterval)
		r.sendEvent(ev)
	}
	if d != nil {
		d.Render(frame)
	}
	return frame
}

func (r *Radio) sendEvent(ev Event) {
	r.eventChMu.Lock()
	ch := r.eventCh
	r.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full; drop event
		}
	}
}

// Watch returns a channel that receives every voice firing. The channel is
// buffered (cap 64) and events are dropped when it is full. Only the most
// recent Watch channel receives events.
func (r *Radio) Watch() <-chan Event {
	ch := make(chan Event, 64)
	r.eventChMu.Lock()
	r.eventCh = ch
	r.eventChMu.Unlock()
	return ch
}

// Stop closes the audio output and moves the radio to Stopped for good.
// Later ticks still render frames but never fire a voice. Calling Stop again
// does nothing.
func (r *Radio) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Stopped {
		return nil
	}
	r.state = Stopped
	if r.output == nil {
		return nil
	}
	err := r.output.Stop()
	r.output = nil
	r.log.Info("radio stopped")
	return err
}

// State reports the lifecycle state.
func (r *Radio) State() RadioState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// SetMasterVolume sets runtime volume scalar. 1.0 is default.
func (r *Radio) SetMasterVolume(volume float64) {
	r.registry.SetVolume(volume)
}

// MasterVolume returns the current output volume.
func (r *Radio) MasterVolume() float64 {
	return r.registry.Volume()
}

// SampleRate returns the output rate in Hz.
func (r *Radio) SampleRate() int { return r.sampleRate }

// Config returns the configuration the radio was built with.
func (r *Radio) Config() config.Config { return r.cfg }

// Snapshot is a read-only view for display surfaces.
type Snapshot struct {
	State        RadioState
	Scheduler    schedule.State
	Voices       []voices.VoiceStatus
	Level        voices.Level
	AudioSeconds float64
}

// Snapshot copies the scheduler state and the live voice and meter readings.
func (r *Radio) Snapshot() Snapshot {
	r.mu.Lock()
	st := r.state
	sched := r.sched.State()
	r.mu.Unlock()
	return Snapshot{
		State:        st,
		Scheduler:    sched,
		Voices:       r.registry.Status(),
		Level:        r.registry.Level(),
		AudioSeconds: r.registry.Now(),
	}
}
