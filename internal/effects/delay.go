package effects

// maxDelaySec bounds the runtime-adjustable delay time.
const maxDelaySec = 1.0

// Delay is a stereo feedback delay whose time and feedback can be changed
// while it runs. Setters are lock-free and may be called from any goroutine.
type Delay struct {
	sampleRate float64
	bufL, bufR []float32
	pos        int
	delaySec   atomicFloat
	feedback   atomicFloat
	cross      float32
	wet        float32
}

// NewDelay creates a delay effect.
// delaySec: delay time in seconds (0..1)
// feedback: feedback amount 0..0.95
// cross: cross-channel feedback 0..1
// wet: wet/dry mix 0..1
func NewDelay(sampleRate int, delaySec, feedback float64, cross, wet float32) *Delay {
	size := int(maxDelaySec*float64(sampleRate)) + 2
	d := &Delay{
		sampleRate: float64(sampleRate),
		bufL:       make([]float32, size),
		bufR:       make([]float32, size),
		cross:      clamp(cross, 0, 1),
		wet:        clamp(wet, 0, 1),
	}
	d.SetDelayTime(delaySec)
	d.SetFeedback(feedback)
	return d
}

// SetDelayTime sets the delay in seconds, clamped to [1 sample, 1s].
func (d *Delay) SetDelayTime(sec float64) {
	d.delaySec.Store(clamp64(sec, 1/d.sampleRate, maxDelaySec))
}

func (d *Delay) DelayTime() float64 {
	return d.delaySec.Load()
}

// SetFeedback sets the feedback ratio, clamped to [0, 0.95].
func (d *Delay) SetFeedback(ratio float64) {
	d.feedback.Store(clamp64(ratio, 0, 0.95))
}

func (d *Delay) Feedback() float64 {
	return d.feedback.Load()
}

func (d *Delay) Process(l, r float32) (float32, float32) {
	size := len(d.bufL)
	delay := d.delaySec.Load() * d.sampleRate
	fb := float32(d.feedback.Load())

	// Fractional read behind the write head.
	readPos := float64(d.pos) - delay
	for readPos < 0 {
		readPos += float64(size)
	}
	idx := int(readPos)
	frac := float32(readPos - float64(idx))
	idx2 := idx + 1
	if idx2 >= size {
		idx2 = 0
	}
	delL := d.bufL[idx]*(1-frac) + d.bufL[idx2]*frac
	delR := d.bufR[idx]*(1-frac) + d.bufR[idx2]*frac

	fbL := delL*fb*(1-d.cross) + delR*fb*d.cross
	fbR := delR*fb*(1-d.cross) + delL*fb*d.cross
	d.bufL[d.pos] = l + fbL
	d.bufR[d.pos] = r + fbR
	d.pos++
	if d.pos >= size {
		d.pos = 0
	}
	return l*(1-d.wet) + delL*d.wet, r*(1-d.wet) + delR*d.wet
}

func (d *Delay) Reset() {
	for i := range d.bufL {
		d.bufL[i] = 0
		d.bufR[i] = 0
	}
	d.pos = 0
}
