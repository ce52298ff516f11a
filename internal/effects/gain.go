package effects

// Gain scales both channels. The level can be changed while it runs.
type Gain struct {
	level atomicFloat
}

func NewGain(level float64) *Gain {
	g := &Gain{}
	g.SetLevel(level)
	return g
}

// SetLevel sets the linear gain; negative values clamp to zero.
func (g *Gain) SetLevel(level float64) {
	if level < 0 {
		level = 0
	}
	g.level.Store(level)
}

func (g *Gain) Level() float64 {
	return g.level.Load()
}

func (g *Gain) Process(l, r float32) (float32, float32) {
	k := float32(g.level.Load())
	return l * k, r * k
}

func (g *Gain) Reset() {}
