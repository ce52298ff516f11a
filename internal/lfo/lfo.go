package lfo

import "math"

// Waveform constants.
const (
	WaveSaw      = 0
	WaveSquare   = 1
	WaveTriangle = 2
	WaveRandom   = 3
	WaveSine     = 4
)

// LFO is a low-frequency oscillator that produces per-sample modulation
// swinging between min and max.
type LFO struct {
	min, max float64
	rateHz   float64
	waveform int
	phase    float64 // current phase [0, 1)
	randVal  float64 // held random value for sample-and-hold
	started  bool
}

// New returns an LFO oscillating between min and max at rateHz.
func New(rateHz, min, max float64, waveform int) *LFO {
	l := &LFO{}
	l.Set(rateHz, min, max, waveform)
	return l
}

// Set configures the LFO parameters.
func (l *LFO) Set(rateHz, min, max float64, waveform int) {
	if min > max {
		min, max = max, min
	}
	l.min = min
	l.max = max
	l.rateHz = rateHz
	if waveform < WaveSaw || waveform > WaveSine {
		waveform = WaveSine
	}
	l.waveform = waveform
}

// Start begins oscillation. A stopped LFO holds its minimum.
func (l *LFO) Start() { l.started = true }

// Stop halts oscillation and resets the phase.
func (l *LFO) Stop() {
	l.started = false
	l.Reset()
}

// Sample advances the LFO by one sample and returns a value in [min, max].
func (l *LFO) Sample(sampleRate float64) float64 {
	if !l.Active() || sampleRate == 0 {
		return l.min
	}

	// Unit waveform in [-1, 1]
	var waveVal float64
	switch l.waveform {
	case WaveSaw:
		waveVal = 1.0 - 2.0*l.phase
	case WaveSquare:
		if l.phase < 0.5 {
			waveVal = 1.0
		} else {
			waveVal = -1.0
		}
	case WaveRandom:
		waveVal = l.randVal
	case WaveTriangle:
		if l.phase < 0.5 {
			waveVal = 4.0*l.phase - 1.0
		} else {
			waveVal = 3.0 - 4.0*l.phase
		}
	default:
		waveVal = math.Sin(2 * math.Pi * l.phase)
	}

	oldPhase := l.phase
	l.phase += l.rateHz / sampleRate
	for l.phase >= 1.0 {
		l.phase -= 1.0
	}

	// Sample-and-hold picks a new value at each cycle boundary.
	if l.waveform == WaveRandom && l.phase < oldPhase {
		v := math.Sin(l.phase*12345.6789+l.randVal*67890.1234) * 2.0
		v -= math.Floor(v)
		l.randVal = v*2.0 - 1.0
	}

	mid := (l.min + l.max) / 2
	return mid + waveVal*(l.max-l.min)/2
}

// Active returns true once started with a non-zero rate and range.
func (l *LFO) Active() bool {
	return l.started && l.rateHz != 0 && l.max != l.min
}

// Reset zeros the LFO phase.
func (l *LFO) Reset() {
	l.phase = 0
	l.randVal = 0
}
