package schedule

import (
	"math/rand/v2"

	"github.com/cbegin/genradio-go/internal/config"
)

// Picker draws uniformly from ranges and finite sets. Callers guarantee the
// ranges are ordered and the sets non-empty (config.Validate).
type Picker struct {
	rng *rand.Rand
}

// NewPicker returns a Picker with a fixed seed.
func NewPicker(seed uint64) *Picker {
	return &Picker{rng: rand.New(rand.NewPCG(seed, seed^0xda942042e4dd58b5))}
}

// NewPickerFrom wraps an existing source, e.g. a stub in tests.
func NewPickerFrom(src rand.Source) *Picker {
	return &Picker{rng: rand.New(src)}
}

// Uniform returns a value in [r.Min, r.Max].
func (p *Picker) Uniform(r config.Range) float64 {
	return r.Min + p.rng.Float64()*(r.Max-r.Min)
}

// Choose returns one element of set with equal probability.
func Choose[T any](p *Picker, set []T) T {
	return set[p.rng.IntN(len(set))]
}

// Uint64 returns a raw value, used to seed per-voice noise sources.
func (p *Picker) Uint64() uint64 {
	return p.rng.Uint64()
}
