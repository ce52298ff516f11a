package effects

import "math"

// Reverb is a Schroeder-style reverb: a pre-delay line feeding four parallel
// comb filters and two series allpass filters. Comb feedback is derived from
// the requested decay so the tail falls 60 dB in decaySec.
type Reverb struct {
	pre     []float32
	prePos  int
	combs   [4]combFilter
	allpass [2]allpassFilter
	wet     float32
}

type combFilter struct {
	buf    []float32
	pos    int
	fb     float32
	damp   float32
	filter float32
}

type allpassFilter struct {
	buf []float32
	pos int
	fb  float32
}

// Comb lengths in seconds; mutually prime at common sample rates.
var combSeconds = [4]float64{0.0297, 0.0371, 0.0411, 0.0437}
var allpassSeconds = [2]float64{0.0050, 0.0017}

// NewReverb creates a reverb effect.
// decaySec: RT60 of the tail in seconds
// preDelaySec: delay before the tail starts
// wet: wet/dry mix 0..1
func NewReverb(sampleRate int, decaySec, preDelaySec float64, wet float32) *Reverb {
	sr := float64(sampleRate)
	if decaySec < 0.01 {
		decaySec = 0.01
	}
	r := &Reverb{
		pre: make([]float32, maxInt(int(preDelaySec*sr), 1)),
		wet: clamp(wet, 0, 1),
	}
	for i := range r.combs {
		n := maxInt(int(combSeconds[i]*sr), 1)
		g := math.Pow(10, -3*float64(n)/(decaySec*sr))
		r.combs[i] = combFilter{
			buf:  make([]float32, n),
			fb:   clamp(float32(g), 0, 0.98),
			damp: 0.2,
		}
	}
	for i := range r.allpass {
		r.allpass[i] = allpassFilter{
			buf: make([]float32, maxInt(int(allpassSeconds[i]*sr), 1)),
			fb:  0.5,
		}
	}
	return r
}

func (r *Reverb) Process(l, r2 float32) (float32, float32) {
	mono := (l + r2) * 0.5
	delayed := r.pre[r.prePos]
	r.pre[r.prePos] = mono
	r.prePos++
	if r.prePos >= len(r.pre) {
		r.prePos = 0
	}
	var out float32
	for i := range r.combs {
		out += r.combs[i].process(delayed)
	}
	out *= 0.25
	for i := range r.allpass {
		out = r.allpass[i].process(out)
	}
	return l*(1-r.wet) + out*r.wet, r2*(1-r.wet) + out*r.wet
}

func (r *Reverb) Reset() {
	for i := range r.pre {
		r.pre[i] = 0
	}
	r.prePos = 0
	for i := range r.combs {
		for j := range r.combs[i].buf {
			r.combs[i].buf[j] = 0
		}
		r.combs[i].pos = 0
		r.combs[i].filter = 0
	}
	for i := range r.allpass {
		for j := range r.allpass[i].buf {
			r.allpass[i].buf[j] = 0
		}
		r.allpass[i].pos = 0
	}
}

// process runs one sample through a lowpass-damped feedback comb.
func (c *combFilter) process(in float32) float32 {
	out := c.buf[c.pos]
	c.filter = out*(1-c.damp) + c.filter*c.damp
	c.buf[c.pos] = in + c.filter*c.fb
	c.pos++
	if c.pos >= len(c.buf) {
		c.pos = 0
	}
	return out
}

func (a *allpassFilter) process(in float32) float32 {
	bufOut := a.buf[a.pos]
	out := -in + bufOut
	a.buf[a.pos] = in + bufOut*a.fb
	a.pos++
	if a.pos >= len(a.buf) {
		a.pos = 0
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
