// Package prng provides a small deterministic generator so that random
// tables and texts reproduce across platforms for a given seed.
package prng

// Source is a 64-bit linear congruential generator.
type Source struct {
	state uint64
}

// New returns a Source seeded with seed.
func New(seed uint64) *Source {
	return &Source{state: seed}
}

// Uint64 advances the generator. Multiplier and increment are Knuth's MMIX constants.
func (s *Source) Uint64() uint64 {
	s.state = s.state*6364136223846793005 + 1442695040888963407
	return s.state
}

// Intn returns a value in [0, n). It returns 0 when n <= 0.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	// high bits of an LCG are better distributed than the low ones
	return int((s.Uint64() >> 11) % uint64(n))
}

// Float64 returns a value in [0, 1) with 53 bits of precision.
func (s *Source) Float64() float64 {
	return float64(s.Uint64()>>11) / (1 << 53)
}

// Shuffle performs an in-place Fisher-Yates shuffle of n elements.
func (s *Source) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		swap(i, s.Intn(i+1))
	}
}
