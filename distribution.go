package shannon

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Distribution is an immutable probability mass function over an ordered
// alphabet of unique symbols.
type Distribution struct {
	symbols []string
	probs   []float64
	index   map[string]int
}

// Normalize builds a Distribution by dividing every weight by their total.
//
// The total must be positive and every weight finite and non-negative.
// Symbols keep the order they were given in.
func Normalize(symbols []string, weights []float64) (*Distribution, error) {
	if len(symbols) != len(weights) {
		return nil, fmt.Errorf("%w: %d symbols but %d weights", ErrInvalidDistribution, len(symbols), len(weights))
	}
	total, err := weightTotal(weights)
	if err != nil {
		return nil, err
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: total weight %g", ErrInvalidDistribution, total)
	}

	probs := make([]float64, len(weights))
	for i, w := range weights {
		probs[i] = w / total
	}
	return newDistribution(append([]string(nil), symbols...), probs)
}

// FromCounts builds a Distribution from occurrence counts. Symbols are ordered
// by count, highest first, with ties broken by symbol.
func FromCounts(counts map[string]int) (*Distribution, error) {
	symbols := make([]string, 0, len(counts))
	for s, c := range counts {
		if c < 0 {
			return nil, fmt.Errorf("%w: negative count %d for %q", ErrInvalidDistribution, c, s)
		}
		symbols = append(symbols, s)
	}
	sort.Slice(symbols, func(i, j int) bool {
		ci, cj := counts[symbols[i]], counts[symbols[j]]
		if ci != cj {
			return ci > cj
		}
		return symbols[i] < symbols[j]
	})

	weights := make([]float64, len(symbols))
	for i, s := range symbols {
		weights[i] = float64(counts[s])
	}
	return Normalize(symbols, weights)
}

// Uniform returns n equiprobable symbols labelled prefix1..prefixN.
func Uniform(n int, prefix string) (*Distribution, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: uniform over %d symbols", ErrEmptyAlphabet, n)
	}
	symbols := make([]string, n)
	weights := make([]float64, n)
	for i := range symbols {
		symbols[i] = prefix + strconv.Itoa(i+1)
		weights[i] = 1
	}
	return Normalize(symbols, weights)
}

// Geometric returns symbols a1..aN with p(a_i) = 0.5^i, where the last
// symbol also absorbs the remaining 0.5^N so the total is exactly 1.
func Geometric(n int) (*Distribution, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: geometric over %d symbols", ErrEmptyAlphabet, n)
	}
	symbols := make([]string, n)
	probs := make([]float64, n)
	for i := range symbols {
		symbols[i] = "a" + strconv.Itoa(i+1)
		probs[i] = math.Ldexp(1, -(i + 1))
	}
	probs[n-1] += math.Ldexp(1, -n)
	return newDistribution(symbols, probs)
}

func newDistribution(symbols []string, probs []float64) (*Distribution, error) {
	index := make(map[string]int, len(symbols))
	for i, s := range symbols {
		if _, ok := index[s]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSymbol, s)
		}
		index[s] = i
	}
	return &Distribution{symbols: symbols, probs: probs, index: index}, nil
}

// weightTotal validates weights and returns their compensated sum.
func weightTotal(weights []float64) (float64, error) {
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return 0, fmt.Errorf("%w: weight %d is %g", ErrInvalidDistribution, i, w)
		}
		if w < 0 {
			return 0, fmt.Errorf("%w: weight %d is negative (%g)", ErrInvalidDistribution, i, w)
		}
	}
	return sum(weights), nil
}

// sum adds values with Neumaier compensation.
func sum(values []float64) float64 {
	var s, c float64
	for _, v := range values {
		t := s + v
		if math.Abs(s) >= math.Abs(v) {
			c += (s - t) + v
		} else {
			c += (v - t) + s
		}
		s = t
	}
	return s + c
}

// Entropy returns -Σ p·log2(p) in bits over the entries with p > Epsilon.
// The result is never negative.
func Entropy(probs []float64) float64 {
	terms := make([]float64, 0, len(probs))
	for _, p := range probs {
		if p > Epsilon {
			terms = append(terms, -p*math.Log2(p))
		}
	}
	h := sum(terms)
	if h < 0 {
		return 0
	}
	return h
}

// Len returns the alphabet size.
func (d *Distribution) Len() int { return len(d.symbols) }

// Symbols returns a copy of the alphabet in order.
func (d *Distribution) Symbols() []string { return append([]string(nil), d.symbols...) }

// Probabilities returns a copy of the probabilities in alphabet order.
func (d *Distribution) Probabilities() []float64 { return append([]float64(nil), d.probs...) }

// Symbol returns the i-th symbol.
func (d *Distribution) Symbol(i int) string { return d.symbols[i] }

// At returns the probability of the i-th symbol.
func (d *Distribution) At(i int) float64 { return d.probs[i] }

// Prob returns the probability of symbol s and whether s is in the alphabet.
func (d *Distribution) Prob(s string) (float64, bool) {
	i, ok := d.index[s]
	if !ok {
		return 0, false
	}
	return d.probs[i], true
}

// Entropy returns the Shannon entropy of d in bits.
func (d *Distribution) Entropy() float64 { return Entropy(d.probs) }

// MaxEntropy returns log2 of the alphabet size, the entropy of a uniform
// distribution over the same alphabet.
func (d *Distribution) MaxEntropy() float64 {
	if len(d.probs) == 0 {
		return 0
	}
	return math.Log2(float64(len(d.probs)))
}

// Redundancy returns 1 - H/Hmax. A single-symbol alphabet has no redundancy.
func (d *Distribution) Redundancy() float64 {
	hmax := d.MaxEntropy()
	if hmax == 0 {
		return 0
	}
	return 1 - d.Entropy()/hmax
}

// Information returns the information content in bits of a message of n
// symbols drawn from d.
func (d *Distribution) Information(n int) float64 {
	return d.Entropy() * float64(n)
}

// TransmissionRate returns the information rate in bits per time unit when
// symbol i takes durations[i] time units to transmit.
func (d *Distribution) TransmissionRate(durations []float64) (float64, error) {
	if len(durations) != len(d.probs) {
		return 0, fmt.Errorf("%w: %d durations for %d symbols", ErrInvalidDistribution, len(durations), len(d.probs))
	}
	weighted := make([]float64, len(durations))
	for i, t := range durations {
		if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
			return 0, fmt.Errorf("%w: duration %d is %g", ErrInvalidDistribution, i, t)
		}
		weighted[i] = d.probs[i] * t
	}
	mean := sum(weighted)
	if mean <= 0 {
		return 0, fmt.Errorf("%w: mean duration %g", ErrInvalidDistribution, mean)
	}
	return d.Entropy() / mean, nil
}

// Sorted returns a copy of d ordered by descending probability. Symbols with
// equal probability keep their relative order.
func (d *Distribution) Sorted() *Distribution {
	order := descendingOrder(d.probs)
	symbols := make([]string, len(order))
	probs := make([]float64, len(order))
	index := make(map[string]int, len(order))
	for i, j := range order {
		symbols[i] = d.symbols[j]
		probs[i] = d.probs[j]
		index[symbols[i]] = i
	}
	return &Distribution{symbols: symbols, probs: probs, index: index}
}

func descendingOrder(probs []float64) []int {
	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return probs[order[i]] > probs[order[j]]
	})
	return order
}
