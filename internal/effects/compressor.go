package effects

import "math"

// Compressor is a stereo-linked feed-forward compressor working in dB. Both
// channels receive the same gain so the stereo image does not wander.
type Compressor struct {
	thresholdDB float64
	ratio       float64
	attack      float64 // smoothing coefficient
	release     float64 // smoothing coefficient
	makeup      float32
	envDB       float64 // smoothed gain reduction in dB (<= 0)
}

// NewCompressor creates a compressor effect.
// thresholdDB: threshold in dB (e.g., -20)
// ratio: compression ratio (e.g., 4 for 4:1)
// attackMs: attack time in ms
// releaseMs: release time in ms
// makeupDB: makeup gain in dB
func NewCompressor(sampleRate int, thresholdDB, ratio, attackMs, releaseMs, makeupDB float64) *Compressor {
	sr := float64(sampleRate)
	if ratio < 1 {
		ratio = 1
	}
	return &Compressor{
		thresholdDB: thresholdDB,
		ratio:       ratio,
		attack:      math.Exp(-1.0 / (math.Max(attackMs, 0.01) * sr / 1000.0)),
		release:     math.Exp(-1.0 / (math.Max(releaseMs, 0.01) * sr / 1000.0)),
		makeup:      float32(math.Pow(10, makeupDB/20)),
	}
}

func (c *Compressor) Process(l, r float32) (float32, float32) {
	peak := math.Max(math.Abs(float64(l)), math.Abs(float64(r)))
	var target float64
	if peak > 1e-6 {
		levelDB := 20 * math.Log10(peak)
		if over := levelDB - c.thresholdDB; over > 0 {
			target = -over * (1 - 1/c.ratio)
		}
	}
	// Gain reduction moves with the attack coefficient, recovery with release.
	if target < c.envDB {
		c.envDB = c.attack*c.envDB + (1-c.attack)*target
	} else {
		c.envDB = c.release*c.envDB + (1-c.release)*target
	}
	g := float32(math.Pow(10, c.envDB/20)) * c.makeup
	return l * g, r * g
}

// GainReductionDB returns the current gain reduction (<= 0).
func (c *Compressor) GainReductionDB() float64 {
	return c.envDB
}

func (c *Compressor) Reset() {
	c.envDB = 0
}
