package synth

import (
	"fmt"
	"math/rand/v2"
)

type NoiseColor int

const (
	NoiseWhite NoiseColor = iota
	NoisePink
	NoiseBrown
)

func ParseNoiseColor(name string) (NoiseColor, error) {
	switch name {
	case "", "white":
		return NoiseWhite, nil
	case "pink":
		return NoisePink, nil
	case "brown", "brownian":
		return NoiseBrown, nil
	}
	return 0, fmt.Errorf("unknown noise type %q", name)
}

// NoiseSynth is a noise source gated by an ADSR envelope.
type NoiseSynth struct {
	color    NoiseColor
	env      envGen
	rng      *rand.Rand
	velocity float64
	brown    float64
	pink     [7]float64
}

func NewNoise(sampleRate int, color NoiseColor, env Envelope, seed uint64) *NoiseSynth {
	return &NoiseSynth{
		color: color,
		env:   newEnvGen(env, float64(sampleRate)),
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (n *NoiseSynth) NoteOn(velocity float64) {
	n.velocity = clamp(velocity, 0, 1)
	n.env.gate()
}

func (n *NoiseSynth) NoteOff() {
	n.env.release()
}

func (n *NoiseSynth) Active() bool {
	return n.env.active()
}

func (n *NoiseSynth) Render() float32 {
	if !n.env.active() {
		return 0
	}
	env := n.env.next()
	return float32(n.sample() * env * n.velocity)
}

func (n *NoiseSynth) sample() float64 {
	white := n.rng.Float64()*2 - 1
	switch n.color {
	case NoiseBrown:
		// Leaky integrator keeps the walk bounded.
		n.brown = (n.brown + 0.02*white) / 1.02
		return n.brown * 3.5
	case NoisePink:
		// Paul Kellet's economy filter.
		p := &n.pink
		p[0] = 0.99886*p[0] + white*0.0555179
		p[1] = 0.99332*p[1] + white*0.0750759
		p[2] = 0.96900*p[2] + white*0.1538520
		p[3] = 0.86650*p[3] + white*0.3104856
		p[4] = 0.55000*p[4] + white*0.5329522
		p[5] = -0.7616*p[5] - white*0.0168980
		out := p[0] + p[1] + p[2] + p[3] + p[4] + p[5] + p[6] + white*0.5362
		p[6] = white * 0.115926
		return out * 0.11
	default:
		return white
	}
}
