package effects

import (
	"errors"
	"math"
	"testing"
)

func TestDelayProducesOutput(t *testing.T) {
	d := NewDelay(44100, 0.1, 0.5, 0, 0.5)
	// Feed a pulse and check delayed output appears
	d.Process(1.0, 1.0)
	for i := 0; i < 4409; i++ { // ~100ms at 44100Hz
		d.Process(0, 0)
	}
	l, r := d.Process(0, 0)
	if math.Abs(float64(l)) < 0.01 || math.Abs(float64(r)) < 0.01 {
		t.Errorf("expected delayed output, got l=%f r=%f", l, r)
	}
}

func TestDelayTimeChangesAtRuntime(t *testing.T) {
	d := NewDelay(1000, 0.1, 0, 0, 1)
	d.SetDelayTime(0.05)
	if got := d.DelayTime(); got != 0.05 {
		t.Fatalf("delay time = %v, want 0.05", got)
	}
	d.Process(1, 1)
	var hit int
	for i := 1; i < 200; i++ {
		if l, _ := d.Process(0, 0); l > 0.5 {
			hit = i
			break
		}
	}
	if hit != 50 {
		t.Fatalf("echo at sample %d, want 50", hit)
	}
}

func TestDelayClampsParameters(t *testing.T) {
	d := NewDelay(1000, 5, 2, 0, 0.4)
	if got := d.DelayTime(); got != maxDelaySec {
		t.Errorf("delay time = %v, want clamp to %v", got, maxDelaySec)
	}
	if got := d.Feedback(); got != 0.95 {
		t.Errorf("feedback = %v, want clamp to 0.95", got)
	}
	d.SetFeedback(-1)
	if got := d.Feedback(); got != 0 {
		t.Errorf("feedback = %v, want clamp to 0", got)
	}
}

func TestReverbProducesOutput(t *testing.T) {
	r := NewReverb(44100, 2, 0.01, 0.5)
	// Feed impulse
	r.Process(1.0, 1.0)
	// After some samples, reverb tail should be present
	var maxOut float32
	for i := 0; i < 10000; i++ {
		l, _ := r.Process(0, 0)
		if l > maxOut {
			maxOut = l
		}
	}
	if maxOut < 0.001 {
		t.Error("expected reverb tail")
	}
}

func TestReverbPreDelaySilence(t *testing.T) {
	r := NewReverb(1000, 2, 0.1, 1)
	r.Process(1, 1)
	// Nothing may come out before pre-delay plus the shortest comb.
	for i := 0; i < 100; i++ {
		if l, _ := r.Process(0, 0); l != 0 {
			t.Fatalf("sample %d = %v during pre-delay", i, l)
		}
	}
}

func TestReverbLongerDecayRingsLonger(t *testing.T) {
	tail := func(decay float64) float64 {
		r := NewReverb(8000, decay, 0, 1)
		r.Process(1, 1)
		for i := 0; i < 8000; i++ {
			r.Process(0, 0)
		}
		var e float64
		for i := 0; i < 800; i++ {
			l, _ := r.Process(0, 0)
			e += float64(l * l)
		}
		return e
	}
	if short, long := tail(0.5), tail(8); long <= short {
		t.Fatalf("tail energy after 1s: decay 8s = %g, decay 0.5s = %g", long, short)
	}
}

func TestDistortionBounded(t *testing.T) {
	d := NewDistortion(1, 1)
	for _, in := range []float32{-4, -1, -0.5, 0, 0.5, 1, 4} {
		l, r := d.Process(in, in)
		if math.Abs(float64(l)) > 1.0 || math.Abs(float64(r)) > 1.0 {
			t.Errorf("distortion(%v) = %v out of bounds", in, l)
		}
	}
	l, _ := d.Process(0.5, 0.5)
	if math.Abs(float64(l)) < 0.01 {
		t.Error("expected non-zero distortion output")
	}
}

func TestChainAppliesEffectsInOrder(t *testing.T) {
	c := NewChain(
		NewGain(0.5),
		NewDistortion(0.2, 1),
	)
	c.Add(NewGain(2))
	if c.Len() != 3 {
		t.Fatalf("chain len = %d, want 3", c.Len())
	}
	l, r := c.Process(0.5, 0.5)
	if l == 0 || r == 0 {
		t.Error("chain should produce output")
	}
}

func TestFilterLowpassPassesDCBlocksNyquist(t *testing.T) {
	f := NewFilter(44100, Lowpass, 500)
	var l float32
	for i := 0; i < 5000; i++ {
		l, _ = f.Process(0.5, 0.5)
	}
	if math.Abs(float64(l)-0.5) > 0.01 {
		t.Errorf("lowpass DC = %v, want 0.5", l)
	}
	f.Reset()
	var peak float64
	for i := 0; i < 5000; i++ {
		in := float32(1)
		if i%2 == 1 {
			in = -1
		}
		l, _ = f.Process(in, in)
		if i > 1000 {
			peak = math.Max(peak, math.Abs(float64(l)))
		}
	}
	if peak > 0.05 {
		t.Errorf("lowpass nyquist peak = %v, want attenuated", peak)
	}
}

func TestFilterHighpassBlocksDC(t *testing.T) {
	f := NewFilter(44100, Highpass, 4000)
	var l float32
	for i := 0; i < 5000; i++ {
		l, _ = f.Process(0.5, 0.5)
	}
	if math.Abs(float64(l)) > 0.01 {
		t.Errorf("highpass DC = %v, want ~0", l)
	}
}

func TestFilterCutoffRuntime(t *testing.T) {
	f := NewFilter(44100, Highpass, 200)
	f.SetCutoff(9000)
	if got := f.Cutoff(); got != 9000 {
		t.Fatalf("cutoff = %v, want 9000", got)
	}
	f.SetCutoff(1e9)
	if got := f.Cutoff(); got >= 22050 {
		t.Fatalf("cutoff = %v, want below nyquist", got)
	}
	if ft, err := ParseFilterType("hp"); err != nil || ft != Highpass {
		t.Fatalf("ParseFilterType(hp) = %v, %v", ft, err)
	}
}

// zeroCrossings counts sign changes, a cheap pitch estimate.
func zeroCrossings(samples []float32) int {
	n := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] < 0) != (samples[i] < 0) {
			n++
		}
	}
	return n
}

func TestPitchShiftOctaveUp(t *testing.T) {
	const sr = 8000
	run := func(semi float64) int {
		p := NewPitchShift(sr, semi, 0.05)
		out := make([]float32, sr)
		for i := range out {
			in := float32(math.Sin(2 * math.Pi * 200 * float64(i) / sr))
			out[i], _ = p.Process(in, in)
		}
		return zeroCrossings(out[sr/4:])
	}
	base, up := run(0), run(12)
	ratio := float64(up) / float64(base)
	if ratio < 1.7 || ratio > 2.3 {
		t.Fatalf("octave-up crossing ratio = %.2f (base %d, up %d), want ~2", ratio, base, up)
	}
}

func TestPitchShiftClamp(t *testing.T) {
	p := NewPitchShift(44100, 0, 0.1)
	p.SetSemitones(-3)
	if got := p.Semitones(); got != -3 {
		t.Fatalf("semitones = %v, want -3", got)
	}
	p.SetSemitones(100)
	if got := p.Semitones(); got != 24 {
		t.Fatalf("semitones = %v, want 24", got)
	}
}

func TestCompressorReducesLoud(t *testing.T) {
	c := NewCompressor(44100, -10, 4, 1, 50, 0)
	// Feed loud signal repeatedly to let envelope settle
	var out float32
	for i := 0; i < 1000; i++ {
		out, _ = c.Process(1.0, 1.0)
	}
	if out >= 1.0 {
		t.Errorf("compressor should reduce loud signals, got %f", out)
	}
	if c.GainReductionDB() >= 0 {
		t.Errorf("gain reduction = %v, want negative", c.GainReductionDB())
	}
}

func TestCompressorLeavesQuietAlone(t *testing.T) {
	c := NewCompressor(44100, -10, 4, 1, 50, 0)
	for i := 0; i < 1000; i++ {
		if out, _ := c.Process(0.1, 0.1); out != 0.1 {
			t.Fatalf("quiet sample %d = %v, want 0.1", i, out)
		}
	}
}

func TestGainClamp(t *testing.T) {
	g := NewGain(-1)
	if g.Level() != 0 {
		t.Fatalf("level = %v, want 0", g.Level())
	}
	g.SetLevel(0.3)
	l, _ := g.Process(1, 1)
	if math.Abs(float64(l)-0.3) > 1e-6 {
		t.Fatalf("gain output = %v, want 0.3", l)
	}
}

func TestNewByName(t *testing.T) {
	for _, kind := range []string{"delay", "reverb", "dist", "comp", "gain", "lowpass", "highpass", "pitch"} {
		e, err := New(kind, nil, 44100)
		if err != nil {
			t.Fatalf("New(%q): %v", kind, err)
		}
		e.Process(0.1, 0.1)
		e.Reset()
	}
	f, err := New("hp", []float64{4000}, 44100)
	if err != nil {
		t.Fatal(err)
	}
	if got := f.(*Filter).Cutoff(); got != 4000 {
		t.Fatalf("hp cutoff = %v, want 4000", got)
	}
	if _, err := New("flanger", nil, 44100); !errors.Is(err, ErrUnknownEffect) {
		t.Fatalf("New(flanger) err = %v, want ErrUnknownEffect", err)
	}
}
