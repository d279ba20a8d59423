package predictor

import (
	"math/rand/v2"
	"sync"
)

const (
	fallbackPositiveRate = 0.3
	fallbackMinProb      = 10.0
	fallbackMaxProb      = 90.0
)

// Fallback draws stand-in predictions when no trained model can score a row:
// label 1 with probability 0.3, and a probability uniform in [10, 90).
type Fallback struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewFallback uses src for its draws; nil seeds a fresh PCG from the runtime.
func NewFallback(src rand.Source) *Fallback {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Fallback{rng: rand.New(src)}
}

// NewSeededFallback is deterministic for a given seed.
func NewSeededFallback(seed uint64) *Fallback {
	return NewFallback(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func (f *Fallback) Draw() (label int, probability float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draw()
}

func (f *Fallback) DrawN(n int) ([]int, []float64) {
	labels := make([]int, n)
	probs := make([]float64, n)
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i < n; i++ {
		labels[i], probs[i] = f.draw()
	}
	return labels, probs
}

func (f *Fallback) draw() (int, float64) {
	label := 0
	if f.rng.Float64() < fallbackPositiveRate {
		label = 1
	}
	return label, fallbackMinProb + (fallbackMaxProb-fallbackMinProb)*f.rng.Float64()
}
