package effects

import (
	"fmt"
	"math"
)

type FilterType int

const (
	Lowpass FilterType = iota
	Highpass
)

func ParseFilterType(name string) (FilterType, error) {
	switch name {
	case "", "lowpass", "lp":
		return Lowpass, nil
	case "highpass", "hp":
		return Highpass, nil
	}
	return 0, fmt.Errorf("unknown filter type %q", name)
}

func (t FilterType) String() string {
	if t == Highpass {
		return "highpass"
	}
	return "lowpass"
}

// Filter is a 12 dB/oct filter built from two cascaded one-pole stages. The
// cutoff can be changed from another goroutine while the filter runs.
type Filter struct {
	kind       FilterType
	sampleRate float64
	cutoff     atomicFloat
	lastCutoff float64
	alpha      float32
	l1, l2     float32 // left stage state
	r1, r2     float32 // right stage state
}

func NewFilter(sampleRate int, kind FilterType, cutoffHz float64) *Filter {
	f := &Filter{kind: kind, sampleRate: float64(sampleRate)}
	f.SetCutoff(cutoffHz)
	f.updateAlpha()
	return f
}

// SetCutoff sets the cutoff frequency in Hz, clamped to [10, nyquist).
func (f *Filter) SetCutoff(hz float64) {
	f.cutoff.Store(clamp64(hz, 10, f.sampleRate/2-1))
}

func (f *Filter) Cutoff() float64 {
	return f.cutoff.Load()
}

func (f *Filter) Type() FilterType {
	return f.kind
}

func (f *Filter) updateAlpha() {
	c := f.cutoff.Load()
	f.lastCutoff = c
	rc := 1.0 / (2.0 * math.Pi * c)
	dt := 1.0 / f.sampleRate
	f.alpha = float32(dt / (rc + dt))
}

func (f *Filter) Process(l, r float32) (float32, float32) {
	if f.cutoff.Load() != f.lastCutoff {
		f.updateAlpha()
	}
	a := f.alpha
	if f.kind == Highpass {
		f.l1 += a * (l - f.l1)
		hl := l - f.l1
		f.l2 += a * (hl - f.l2)
		f.r1 += a * (r - f.r1)
		hr := r - f.r1
		f.r2 += a * (hr - f.r2)
		return hl - f.l2, hr - f.r2
	}
	f.l1 += a * (l - f.l1)
	f.l2 += a * (f.l1 - f.l2)
	f.r1 += a * (r - f.r1)
	f.r2 += a * (f.r1 - f.r2)
	return f.l2, f.r2
}

func (f *Filter) Reset() {
	f.l1, f.l2, f.r1, f.r2 = 0, 0, 0, 0
}
