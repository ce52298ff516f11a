package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cbegin/genradio-go/internal/synth"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// SessionStartLayout is the layout of the session_start key, read in local time.
const SessionStartLayout = "2006-01-02T15:04:05"

//go:embed default.yaml
var defaultYAML []byte

type (
	// Range is an inclusive numeric interval.
	Range struct {
		Min float64 `yaml:"min"`
		Max float64 `yaml:"max"`
	}

	Config struct {
		TickRate     int      `yaml:"tick_rate"`
		BPM          float64  `yaml:"bpm"`
		SessionStart string   `yaml:"session_start"`
		Title        string   `yaml:"title"`
		Description  string   `yaml:"description"`
		Scale        []string `yaml:"scale"`
		Harmonic     Harmonic `yaml:"harmonic"`
		Drum         Drum     `yaml:"drum"`
		Noise        Noise    `yaml:"noise"`
		Master       Master   `yaml:"master"`
	}

	Harmonic struct {
		Duration     Range           `yaml:"duration"`
		Attack       Range           `yaml:"attack"`
		Decay        Range           `yaml:"decay"`
		Sustain      float64         `yaml:"sustain"`
		Release      float64         `yaml:"release"`
		FilterCutoff float64         `yaml:"filter_cutoff"`
		VolumeLFO    VolumeLFO       `yaml:"volume_lfo"`
		Voices       []HarmonicVoice `yaml:"voices"`
	}

	VolumeLFO struct {
		Enabled bool    `yaml:"enabled"`
		Rate    Range   `yaml:"rate"`
		MinDB   float64 `yaml:"min_db"`
		MaxDB   float64 `yaml:"max_db"`
	}

	HarmonicVoice struct {
		Name       string  `yaml:"name"`
		Oscillator string  `yaml:"oscillator"`
		Interval   int     `yaml:"interval"`
		Candidates []int   `yaml:"candidates"`
		Reverb     Reverb  `yaml:"reverb"`
		Gain       float64 `yaml:"gain"`
	}

	Drum struct {
		Duration          string      `yaml:"duration"`
		Amplitude         Range       `yaml:"amplitude"`
		PitchShift        Range       `yaml:"pitch_shift"`
		DelayTime         Range       `yaml:"delay_time"`
		Feedback          Range       `yaml:"feedback"`
		Cutoff            Range       `yaml:"cutoff"`
		TargetCutoff      Range       `yaml:"target_cutoff"`
		ApplyTargetCutoff bool        `yaml:"apply_target_cutoff"`
		Gain              Range       `yaml:"gain"`
		Envelope          Envelope    `yaml:"envelope"`
		Bus               DrumBus     `yaml:"bus"`
		Voices            []DrumVoice `yaml:"voices"`
	}

	DrumBus struct {
		DelayTime float64 `yaml:"delay_time"`
		Feedback  float64 `yaml:"feedback"`
		Wet       float64 `yaml:"wet"`
		Filter    string  `yaml:"filter"`
		Cutoff    float64 `yaml:"cutoff"`
	}

	DrumVoice struct {
		Name       string `yaml:"name"`
		Interval   int    `yaml:"interval"`
		Candidates []int  `yaml:"candidates"`
		Reverb     Reverb `yaml:"reverb"`
	}

	Noise struct {
		Name         string     `yaml:"name"`
		Color        string     `yaml:"color"`
		Duration     Range      `yaml:"duration"`
		Interval     int        `yaml:"interval"`
		Candidates   []int      `yaml:"candidates"`
		Envelope     Envelope   `yaml:"envelope"`
		FilterCutoff float64    `yaml:"filter_cutoff"`
		Distortion   Distortion `yaml:"distortion"`
		Reverb       Reverb     `yaml:"reverb"`
		Gain         float64    `yaml:"gain"`
	}

	Master struct {
		Gain    float64  `yaml:"gain"`
		Effects []Effect `yaml:"effects"`
	}

	// Effect names an extra effect appended to a chain, see effects.New.
	Effect struct {
		Type   string    `yaml:"type"`
		Params []float64 `yaml:"params"`
	}

	Envelope struct {
		Attack  float64 `yaml:"attack"`
		Decay   float64 `yaml:"decay"`
		Sustain float64 `yaml:"sustain"`
		Release float64 `yaml:"release"`
	}

	Reverb struct {
		Decay    float64 `yaml:"decay"`
		PreDelay float64 `yaml:"pre_delay"`
		Wet      float64 `yaml:"wet"`
	}

	Distortion struct {
		Amount float64 `yaml:"amount"`
		Wet    float64 `yaml:"wet"`
	}
)

// Default returns the compiled-in configuration.
func Default() Config {
	var cfg Config
	if err := decode(bytes.NewReader(defaultYAML), &cfg); err != nil {
		panic(fmt.Errorf("failed to unmarshal default config: %w", err))
	}
	return cfg
}

// Load reads a YAML file on top of the defaults. Keys missing from the file
// keep their default value; unknown keys are an error.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	cfg := Default()
	if err := decode(f, &cfg); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadUser reads genradio/config.yml from the user config directory. exists
// is false when there is no such file, in which case the defaults are returned.
func LoadUser() (cfg Config, exists bool, err error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return Default(), false, nil
	}
	path := filepath.Join(dir, "genradio", "config.yml")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), false, nil
	}
	cfg, err = Load(path)
	return cfg, true, err
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Start parses SessionStart in the local time zone.
func (c Config) Start() (time.Time, error) {
	t, err := time.ParseInLocation(SessionStartLayout, c.SessionStart, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: session_start: %v", ErrInvalidConfig, err)
	}
	return t, nil
}

// Validate checks the invariants the scheduler and registry rely on: every
// interval is positive, every candidate set is non-empty and every range is
// ordered.
func (c Config) Validate() error {
	if c.TickRate <= 0 {
		return fmt.Errorf("%w: tick_rate must be positive", ErrInvalidConfig)
	}
	if c.BPM <= 0 {
		return fmt.Errorf("%w: bpm must be positive", ErrInvalidConfig)
	}
	if _, err := c.Start(); err != nil {
		return err
	}
	if len(c.Scale) == 0 {
		return fmt.Errorf("%w: scale is empty", ErrInvalidConfig)
	}
	for _, p := range c.Scale {
		if _, err := synth.NoteFrequency(p); err != nil {
			return fmt.Errorf("%w: scale: %v", ErrInvalidConfig, err)
		}
	}
	if len(c.Harmonic.Voices) != 3 {
		return fmt.Errorf("%w: want 3 harmonic voices, got %d", ErrInvalidConfig, len(c.Harmonic.Voices))
	}
	if len(c.Drum.Voices) != 2 {
		return fmt.Errorf("%w: want 2 drum voices, got %d", ErrInvalidConfig, len(c.Drum.Voices))
	}
	if _, err := synth.DurationSeconds(c.Drum.Duration, c.BPM); err != nil {
		return fmt.Errorf("%w: drum.duration: %v", ErrInvalidConfig, err)
	}

	ranges := map[string]Range{
		"harmonic.duration":        c.Harmonic.Duration,
		"harmonic.attack":          c.Harmonic.Attack,
		"harmonic.decay":           c.Harmonic.Decay,
		"drum.amplitude":           c.Drum.Amplitude,
		"drum.pitch_shift":         c.Drum.PitchShift,
		"drum.delay_time":          c.Drum.DelayTime,
		"drum.feedback":            c.Drum.Feedback,
		"drum.cutoff":              c.Drum.Cutoff,
		"drum.target_cutoff":       c.Drum.TargetCutoff,
		"drum.gain":                c.Drum.Gain,
		"noise.duration":           c.Noise.Duration,
		"harmonic.volume_lfo.rate": c.Harmonic.VolumeLFO.Rate,
	}
	for name, r := range ranges {
		if r.Min > r.Max {
			return fmt.Errorf("%w: %s min %v > max %v", ErrInvalidConfig, name, r.Min, r.Max)
		}
	}

	for _, v := range c.Harmonic.Voices {
		if err := checkIntervals(v.Name, v.Interval, v.Candidates); err != nil {
			return err
		}
	}
	for _, v := range c.Drum.Voices {
		if err := checkIntervals(v.Name, v.Interval, v.Candidates); err != nil {
			return err
		}
	}
	return checkIntervals(c.Noise.Name, c.Noise.Interval, c.Noise.Candidates)
}

func checkIntervals(name string, interval int, candidates []int) error {
	if interval <= 0 {
		return fmt.Errorf("%w: %s: interval %d must be positive", ErrInvalidConfig, name, interval)
	}
	if len(candidates) == 0 {
		return fmt.Errorf("%w: %s: no candidate intervals", ErrInvalidConfig, name)
	}
	for _, c := range candidates {
		if c <= 0 {
			return fmt.Errorf("%w: %s: candidate interval %d must be positive", ErrInvalidConfig, name, c)
		}
	}
	return nil
}

// Contains reports whether v lies in [Min, Max].
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}
