package synth

type envState int

const (
	envAttack envState = iota
	envDecay
	envSustain
	envRelease
	envOff
)

// Envelope holds ADSR times in seconds and the sustain level (0..1).
type Envelope struct {
	Attack  float64
	Decay   float64
	Sustain float64
	Release float64
}

// envGen is a linear ADSR generator. Release starts from the current level so
// a note released during its attack does not jump.
type envGen struct {
	Envelope
	sampleRate   float64
	state        envState
	level        float64
	releaseLevel float64
}

func newEnvGen(env Envelope, sampleRate float64) envGen {
	return envGen{Envelope: env, sampleRate: sampleRate, state: envOff}
}

func (g *envGen) gate() {
	g.state = envAttack
}

func (g *envGen) release() {
	if g.state == envOff || g.state == envRelease {
		return
	}
	g.state = envRelease
	g.releaseLevel = g.level
}

func (g *envGen) active() bool {
	return g.state != envOff
}

func (g *envGen) next() float64 {
	switch g.state {
	case envAttack:
		g.level += g.step(1, g.Attack)
		if g.level >= 1 {
			g.level = 1
			g.state = envDecay
		}
	case envDecay:
		g.level -= g.step(1-g.Sustain, g.Decay)
		if g.level <= g.Sustain {
			g.level = g.Sustain
			g.state = envSustain
		}
	case envSustain:
		if g.Sustain <= 0 {
			g.level = 0
			g.state = envOff
		}
	case envRelease:
		g.level -= g.step(g.releaseLevel, g.Release)
		if g.level <= 0.0001 {
			g.level = 0
			g.state = envOff
		}
	case envOff:
		g.level = 0
	}
	return g.level
}

// step returns the per-sample increment to cover span in sec seconds.
func (g *envGen) step(span, sec float64) float64 {
	if sec <= 0 || g.sampleRate <= 0 {
		return 1
	}
	s := span / (sec * g.sampleRate)
	if s <= 0 {
		return 1
	}
	return s
}
