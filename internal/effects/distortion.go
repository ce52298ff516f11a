package effects

import "math"

// Distortion is a waveshaper using the classic
// (3+k)*x*20deg / (pi + k*|x|) curve, k = amount*100.
type Distortion struct {
	k   float64
	wet float32
}

// NewDistortion creates a distortion effect.
// amount: 0..1 drive
// wet: wet/dry mix 0..1
func NewDistortion(amount float64, wet float32) *Distortion {
	return &Distortion{
		k:   clamp64(amount, 0, 1) * 100,
		wet: clamp(wet, 0, 1),
	}
}

func (d *Distortion) shape(x float32) float32 {
	const deg = math.Pi / 180
	v := float64(clamp(x, -1, 1))
	return float32((3 + d.k) * v * 20 * deg / (math.Pi + d.k*math.Abs(v)))
}

func (d *Distortion) Process(l, r float32) (float32, float32) {
	return l*(1-d.wet) + d.shape(l)*d.wet, r*(1-d.wet) + d.shape(r)*d.wet
}

func (d *Distortion) Reset() {}
