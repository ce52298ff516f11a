package schedule

import (
	"errors"
	"slices"
	"testing"

	"github.com/cbegin/genradio-go/internal/config"
)

type noteCall struct {
	pitch    string
	duration float64
	at       float64
}

type fakeHarmonic struct{ calls []noteCall }

func (f *fakeHarmonic) PlayNote(pitch string, d, at float64) {
	f.calls = append(f.calls, noteCall{pitch, d, at})
}

type hitCall struct {
	token string
	at    float64
	amp   float64
}

type fakeDrum struct {
	hits  []hitCall
	pitch []float64
}

func (f *fakeDrum) PlayHit(token string, at, amp float64) {
	f.hits = append(f.hits, hitCall{token, at, amp})
}
func (f *fakeDrum) SetPitchShift(st float64) { f.pitch = append(f.pitch, st) }

type fakeNoise struct{ bursts []float64 }

func (f *fakeNoise) PlayBurst(d, at float64) { f.bursts = append(f.bursts, d) }

type fakeBus struct {
	delay, feedback, cutoff []float64
}

func (f *fakeBus) SetDelayTime(s float64)       { f.delay = append(f.delay, s) }
func (f *fakeBus) SetFeedback(r float64)        { f.feedback = append(f.feedback, r) }
func (f *fakeBus) SetHighpassCutoff(hz float64) { f.cutoff = append(f.cutoff, hz) }

type rig struct {
	sched    *Scheduler
	harmonic [3]*fakeHarmonic
	drums    [2]*fakeDrum
	noise    *fakeNoise
	bus      *fakeBus
}

func newRig(t *testing.T, cfg config.Config, seed uint64) *rig {
	t.Helper()
	r := &rig{noise: &fakeNoise{}, bus: &fakeBus{}}
	var targets Targets
	for i := range r.harmonic {
		r.harmonic[i] = &fakeHarmonic{}
		targets.Harmonic = append(targets.Harmonic, r.harmonic[i])
	}
	for i := range r.drums {
		r.drums[i] = &fakeDrum{}
		targets.Drums = append(targets.Drums, r.drums[i])
	}
	targets.Noise = r.noise
	targets.Bus = r.bus
	s, err := New(cfg, targets, NewPicker(seed), func() float64 { return 1.5 })
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	r.sched = s
	return r
}

func TestFiresIffTickIsMultipleOfInterval(t *testing.T) {
	r := newRig(t, config.Default(), 1)
	fired := map[string]int{}
	for tick := uint64(1); tick <= 20000; tick++ {
		before := r.sched.State()
		events := r.sched.Step()
		got := map[string]bool{}
		for _, ev := range events {
			got[ev.Voice] = true
		}
		for _, v := range before.Voices {
			want := tick%uint64(v.Interval) == 0
			if got[v.Name] != want {
				t.Fatalf("tick %d voice %s interval %d: fired=%v, want %v", tick, v.Name, v.Interval, got[v.Name], want)
			}
			if want {
				fired[v.Name]++
			}
		}
	}
	for _, v := range r.sched.State().Voices {
		if fired[v.Name] == 0 {
			t.Errorf("voice %s never fired in 20000 ticks", v.Name)
		}
	}
}

func TestIntervalRedrawnFromOwnCandidates(t *testing.T) {
	cfg := config.Default()
	r := newRig(t, cfg, 2)
	for tick := 0; tick < 20000; tick++ {
		for _, ev := range r.sched.Step() {
			var set []int
			for _, v := range r.sched.State().Voices {
				if v.Name == ev.Voice {
					set = v.Candidates
					if v.Interval != ev.NextInterval {
						t.Fatalf("%s interval %d, event says %d", v.Name, v.Interval, ev.NextInterval)
					}
				}
			}
			if !slices.Contains(set, ev.NextInterval) {
				t.Fatalf("%s redrew interval %d outside %v", ev.Voice, ev.NextInterval, set)
			}
		}
	}
	// Harmonic 3 must never pick the short intervals only harmonic 1/2 own.
	for _, c := range []int{30, 15, 5} {
		if slices.Contains(cfg.Harmonic.Voices[2].Candidates, c) {
			t.Fatalf("default harmonic 3 candidates unexpectedly contain %d", c)
		}
	}
}

func TestIntervalUnchangedUntilFire(t *testing.T) {
	r := newRig(t, config.Default(), 3)
	for tick := 1; tick < 60; tick++ {
		if evs := r.sched.Step(); len(evs) != 0 {
			t.Fatalf("tick %d fired %d events before any interval elapsed", tick, len(evs))
		}
	}
	st := r.sched.State()
	want := []int{120, 130, 140, 60, 70, 196}
	for i, v := range st.Voices {
		if v.Interval != want[i] {
			t.Fatalf("voice %s interval = %d, want initial %d", v.Name, v.Interval, want[i])
		}
	}
}

func TestHarmonicFirstFiresAtTick120(t *testing.T) {
	r := newRig(t, config.Default(), 4)
	var first uint64
	for first == 0 {
		for _, ev := range r.sched.Step() {
			if ev.Voice == "Harmonic 1" {
				first = ev.Tick
			}
		}
	}
	if first != 120 {
		t.Fatalf("first Harmonic 1 firing at tick %d, want 120", first)
	}
	if secs := float64(first) / float64(config.Default().TickRate); secs != 4 {
		t.Fatalf("first firing %v s after start, want 4", secs)
	}
	next := r.sched.State().Voices[0].Interval
	var second uint64
	for second == 0 {
		for _, ev := range r.sched.Step() {
			if ev.Voice == "Harmonic 1" {
				second = ev.Tick
			}
		}
	}
	// The next multiple of the redrawn interval after 120.
	want := (120/uint64(next) + 1) * uint64(next)
	if second != want {
		t.Fatalf("second firing at %d, want %d (interval %d)", second, want, next)
	}
}

func TestTriggerParametersInRange(t *testing.T) {
	cfg := config.Default()
	r := newRig(t, cfg, 5)
	for i := 0; i < 30000; i++ {
		r.sched.Step()
	}
	for i, h := range r.harmonic {
		if len(h.calls) == 0 {
			t.Fatalf("harmonic %d never played", i)
		}
		for _, c := range h.calls {
			if !slices.Contains(cfg.Scale, c.pitch) {
				t.Fatalf("pitch %q not in scale", c.pitch)
			}
			if !cfg.Harmonic.Duration.Contains(c.duration) {
				t.Fatalf("harmonic duration %v outside %v", c.duration, cfg.Harmonic.Duration)
			}
			if c.at != 1.5 {
				t.Fatalf("schedule anchor = %v, want audio clock 1.5", c.at)
			}
		}
	}
	for i, d := range r.drums {
		if len(d.hits) == 0 {
			t.Fatalf("drum %d never hit", i)
		}
		for _, h := range d.hits {
			if h.token != "8n" {
				t.Fatalf("drum token %q, want 8n", h.token)
			}
			if !cfg.Drum.Amplitude.Contains(h.amp) {
				t.Fatalf("drum amplitude %v outside %v", h.amp, cfg.Drum.Amplitude)
			}
		}
		for _, p := range d.pitch {
			if p < -3 || p > 3 {
				t.Fatalf("pitch shift %v outside [-3, 3]", p)
			}
		}
		if len(d.pitch) != len(d.hits) {
			t.Fatalf("drum %d: %d pitch updates for %d hits", i, len(d.pitch), len(d.hits))
		}
	}
	for _, b := range r.noise.bursts {
		if !cfg.Noise.Duration.Contains(b) {
			t.Fatalf("noise duration %v outside %v", b, cfg.Noise.Duration)
		}
	}
	for _, v := range r.bus.delay {
		if v < 0.05 || v > 0.5 {
			t.Fatalf("delay time %v outside [0.05, 0.5]", v)
		}
	}
	for _, v := range r.bus.feedback {
		if v < 0.05 || v > 0.6 {
			t.Fatalf("feedback %v outside [0.05, 0.6]", v)
		}
	}
}

func TestDrumOneJittersSharedBus(t *testing.T) {
	cfg := config.Default()
	r := newRig(t, cfg, 6)
	// Move drum 2 out of the way so tick 60 is drum 1 alone.
	if err := r.sched.SetInterval(4, 7919); err != nil {
		t.Fatal(err)
	}
	evs := r.sched.Evaluate(60)
	if len(evs) != 1 || evs[0].Voice != "Drum 1" {
		t.Fatalf("tick 60 events = %+v, want Drum 1 only", evs)
	}
	fx := r.sched.State().Effects
	if fx.DelayTime < 0.05 || fx.DelayTime > 0.5 {
		t.Errorf("delay %v", fx.DelayTime)
	}
	if fx.Feedback < 0.05 || fx.Feedback > 0.6 {
		t.Errorf("feedback %v", fx.Feedback)
	}
	if fx.Cutoff < 4000 || fx.Cutoff > 10000 {
		t.Errorf("cutoff %v", fx.Cutoff)
	}
	if fx.PitchShift[0] < -3 || fx.PitchShift[0] > 3 {
		t.Errorf("pitch shift %v", fx.PitchShift[0])
	}
	if len(r.bus.cutoff) != 1 || r.bus.cutoff[0] != fx.Cutoff {
		t.Errorf("bus cutoff calls = %v, want [%v]", r.bus.cutoff, fx.Cutoff)
	}
	if !slices.Contains([]int{60, 70, 80, 90, 100, 10, 30}, r.sched.State().Voices[3].Interval) {
		t.Errorf("drum 1 interval %d not in candidate set", r.sched.State().Voices[3].Interval)
	}
}

func TestDrumTwoRecordsTargetCutoffOnly(t *testing.T) {
	cfg := config.Default()
	r := newRig(t, cfg, 7)
	if err := r.sched.SetInterval(3, 7919); err != nil {
		t.Fatal(err)
	}
	evs := r.sched.Evaluate(70)
	if len(evs) != 1 || evs[0].Voice != "Drum 2" {
		t.Fatalf("tick 70 events = %+v, want Drum 2 only", evs)
	}
	fx := r.sched.State().Effects
	if fx.CutoffTarget < 200 || fx.CutoffTarget > 1200 {
		t.Errorf("target cutoff %v outside [200, 1200]", fx.CutoffTarget)
	}
	if fx.Cutoff != cfg.Drum.Bus.Cutoff {
		t.Errorf("live cutoff changed to %v", fx.Cutoff)
	}
	if len(r.bus.cutoff) != 0 {
		t.Errorf("drum 2 touched the live filter: %v", r.bus.cutoff)
	}
	if len(r.bus.delay) != 1 || len(r.bus.feedback) != 1 {
		t.Errorf("drum 2 should still jitter delay and feedback")
	}
}

func TestDrumTwoAppliesTargetWhenEnabled(t *testing.T) {
	cfg := config.Default()
	cfg.Drum.ApplyTargetCutoff = true
	r := newRig(t, cfg, 8)
	if err := r.sched.SetInterval(3, 7919); err != nil {
		t.Fatal(err)
	}
	r.sched.Evaluate(70)
	fx := r.sched.State().Effects
	if fx.Cutoff != fx.CutoffTarget {
		t.Fatalf("cutoff %v, want target %v", fx.Cutoff, fx.CutoffTarget)
	}
	if len(r.bus.cutoff) != 1 || r.bus.cutoff[0] != fx.CutoffTarget {
		t.Fatalf("bus cutoff calls = %v", r.bus.cutoff)
	}
}

func TestFixedEvaluationOrder(t *testing.T) {
	r := newRig(t, config.Default(), 9)
	for i := 0; i < 6; i++ {
		if err := r.sched.SetInterval(i, 1); err != nil {
			t.Fatal(err)
		}
	}
	evs := r.sched.Evaluate(1)
	var names []string
	for _, ev := range evs {
		names = append(names, ev.Voice)
	}
	want := []string{"Harmonic 1", "Harmonic 2", "Harmonic 3", "Drum 1", "Drum 2", "Noise"}
	if !slices.Equal(names, want) {
		t.Fatalf("order = %v, want %v", names, want)
	}
	if last := r.sched.State().LastNotes[1]; last.FiredAtTick != 1 || last.Pitch == "" {
		t.Fatalf("last note for harmonic 2 = %+v", last)
	}
}

func TestSeedDeterminism(t *testing.T) {
	run := func(seed uint64) []Event {
		r := newRig(t, config.Default(), seed)
		var all []Event
		for i := 0; i < 5000; i++ {
			all = append(all, r.sched.Step()...)
		}
		return all
	}
	a, b := run(11), run(11)
	if len(a) != len(b) {
		t.Fatalf("event counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Tick != b[i].Tick || a[i].Voice != b[i].Voice || a[i].Pitch != b[i].Pitch || a[i].Duration != b[i].Duration {
			t.Fatalf("event %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestNewRejectsMismatchedTargets(t *testing.T) {
	_, err := New(config.Default(), Targets{}, NewPicker(1), nil)
	if !errors.Is(err, ErrTargets) {
		t.Fatalf("err = %v, want ErrTargets", err)
	}
}

func TestSetIntervalRejectsNonPositive(t *testing.T) {
	r := newRig(t, config.Default(), 1)
	if err := r.sched.SetInterval(0, 0); err == nil {
		t.Fatal("expected error for zero interval")
	}
	if err := r.sched.SetInterval(9, 10); err == nil {
		t.Fatal("expected error for unknown voice")
	}
}

func TestStateIsACopy(t *testing.T) {
	r := newRig(t, config.Default(), 1)
	st := r.sched.State()
	st.Voices[0].Interval = -1
	st.Effects.PitchShift[0] = 99
	again := r.sched.State()
	if again.Voices[0].Interval != 120 || again.Effects.PitchShift[0] != 0 {
		t.Fatal("mutating a State copy leaked into the scheduler")
	}
}

func TestChooseCoversSet(t *testing.T) {
	p := NewPicker(3)
	set := []int{120, 110, 130, 160, 90}
	seen := map[int]bool{}
	for i := 0; i < 1000; i++ {
		v := Choose(p, set)
		if !slices.Contains(set, v) {
			t.Fatalf("Choose returned %d", v)
		}
		seen[v] = true
	}
	if len(seen) != len(set) {
		t.Fatalf("Choose covered %d of %d values", len(seen), len(set))
	}
}

func TestUniformDegenerateRange(t *testing.T) {
	p := NewPicker(1)
	if v := p.Uniform(config.Range{Min: 4, Max: 4}); v != 4 {
		t.Fatalf("Uniform([4,4]) = %v", v)
	}
}
