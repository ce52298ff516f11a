package effects

import "math"

// PitchShift transposes audio with two crossfaded read taps sweeping through a
// short delay line. The shift can be changed while it runs.
type PitchShift struct {
	sampleRate float64
	window     float64 // window length in samples
	bufL, bufR []float32
	pos        int
	phase      float64 // [0, 1)
	semitones  atomicFloat
}

// NewPitchShift creates a pitch shifter with a window of windowSec seconds
// (0.1 is a good default).
func NewPitchShift(sampleRate int, semitones, windowSec float64) *PitchShift {
	window := math.Max(windowSec*float64(sampleRate), 16)
	size := int(window) + 4
	p := &PitchShift{
		sampleRate: float64(sampleRate),
		window:     window,
		bufL:       make([]float32, size),
		bufR:       make([]float32, size),
	}
	p.SetSemitones(semitones)
	return p
}

// SetSemitones sets the transposition, clamped to two octaves either way.
func (p *PitchShift) SetSemitones(st float64) {
	p.semitones.Store(clamp64(st, -24, 24))
}

func (p *PitchShift) Semitones() float64 {
	return p.semitones.Load()
}

func (p *PitchShift) read(buf []float32, delay float64) float32 {
	size := len(buf)
	readPos := float64(p.pos) - delay
	for readPos < 0 {
		readPos += float64(size)
	}
	idx := int(readPos)
	frac := float32(readPos - float64(idx))
	idx2 := idx + 1
	if idx2 >= size {
		idx2 = 0
	}
	return buf[idx]*(1-frac) + buf[idx2]*frac
}

func (p *PitchShift) Process(l, r float32) (float32, float32) {
	p.bufL[p.pos] = l
	p.bufR[p.pos] = r

	ratio := math.Pow(2, p.semitones.Load()/12)
	p.phase += (1 - ratio) / p.window
	p.phase -= math.Floor(p.phase)

	ph2 := p.phase + 0.5
	if ph2 >= 1 {
		ph2 -= 1
	}
	d1 := 1 + p.phase*p.window
	d2 := 1 + ph2*p.window
	// Triangular crossfade; the two gains always sum to one.
	g1 := float32(1 - math.Abs(2*p.phase-1))
	g2 := 1 - g1

	outL := p.read(p.bufL, d1)*g1 + p.read(p.bufL, d2)*g2
	outR := p.read(p.bufR, d1)*g1 + p.read(p.bufR, d2)*g2

	p.pos++
	if p.pos >= len(p.bufL) {
		p.pos = 0
	}
	return outL, outR
}

func (p *PitchShift) Reset() {
	for i := range p.bufL {
		p.bufL[i] = 0
		p.bufR[i] = 0
	}
	p.pos = 0
	p.phase = 0
}
