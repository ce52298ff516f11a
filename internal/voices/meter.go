package voices

import (
	"math"
	"sync/atomic"

	"github.com/viterin/vek/vek32"
)

// Level is a block measurement of the master output.
type Level struct {
	Peak float32 // largest absolute sample, either channel
	RMS  float32
}

// DB returns the RMS level in decibels, floored at -96.
func (l Level) DB() float64 {
	if l.RMS <= 0 {
		return -96
	}
	return math.Max(20*math.Log10(float64(l.RMS)), -96)
}

// Meter holds the latest Level for readers on other goroutines.
type Meter struct {
	peak, rms atomic.Uint32
}

func (m *Meter) Load() Level {
	return Level{
		Peak: math.Float32frombits(m.peak.Load()),
		RMS:  math.Float32frombits(m.rms.Load()),
	}
}

// update measures l and r using tmp as scratch space of the same length.
func (m *Meter) update(l, r, tmp []float32) {
	if len(l) == 0 {
		return
	}
	power := (vek32.Mean(vek32.Mul_Into(tmp, l, l)) + vek32.Mean(vek32.Mul_Into(tmp, r, r))) / 2
	copy(tmp, l)
	vek32.Abs_Inplace(tmp)
	peak := vek32.Max(tmp)
	copy(tmp, r)
	vek32.Abs_Inplace(tmp)
	peak = max(peak, vek32.Max(tmp))
	m.peak.Store(math.Float32bits(peak))
	m.rms.Store(math.Float32bits(float32(math.Sqrt(float64(power)))))
}
