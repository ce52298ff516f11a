package effects

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownEffect = errors.New("unknown effect")

// New builds an effect by name from positional parameters. Missing
// parameters take the defaults noted below. Supported kinds: delay, reverb,
// dist, comp, gain, lowpass, highpass, pitch.
func New(kind string, params []float64, sampleRate int) (Effector, error) {
	getParam := func(idx int, def float64) float64 {
		if idx < len(params) {
			return params[idx]
		}
		return def
	}
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "delay":
		return NewDelay(sampleRate,
			getParam(0, 0.25),         // delay sec
			getParam(1, 0.4),          // feedback
			float32(getParam(2, 0.2)), // cross
			float32(getParam(3, 0.3)), // wet
		), nil
	case "reverb":
		return NewReverb(sampleRate,
			getParam(0, 3),            // decay sec
			getParam(1, 0.01),         // pre-delay sec
			float32(getParam(2, 0.3)), // wet
		), nil
	case "dist", "distortion":
		return NewDistortion(
			getParam(0, 0.4),        // amount
			float32(getParam(1, 1)), // wet
		), nil
	case "comp", "compressor":
		return NewCompressor(sampleRate,
			getParam(0, -20), // threshold dB
			getParam(1, 4),   // ratio
			getParam(2, 5),   // attack ms
			getParam(3, 100), // release ms
			getParam(4, 0),   // makeup dB
		), nil
	case "gain":
		return NewGain(getParam(0, 1)), nil
	case "lowpass", "lp":
		return NewFilter(sampleRate, Lowpass, getParam(0, 2000)), nil
	case "highpass", "hp":
		return NewFilter(sampleRate, Highpass, getParam(0, 200)), nil
	case "pitch", "pitchshift":
		return NewPitchShift(sampleRate, getParam(0, 0), getParam(1, 0.1)), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEffect, kind)
}
