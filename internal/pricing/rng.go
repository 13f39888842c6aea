package pricing

import (
	"math"
	"math/rand/v2"
)

// Source supplies uniform draws in [0, 1). Injected so historical backfills
// and tests are reproducible; production wiring uses NewSource.
type Source interface {
	Float64() float64
}

// NewSource returns a Source backed by math/rand/v2 with the given seed.
func NewSource(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// normal draws from a normal distribution with mean 0 and the given standard
// deviation, using the Box-Muller transform over two independent uniforms.
func normal(src Source, stdDev float64) float64 {
	u1 := src.Float64()
	for u1 == 0 {
		u1 = src.Float64()
	}
	u2 := src.Float64()
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
	return z * stdDev
}
