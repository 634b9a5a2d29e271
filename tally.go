package shannon

import "sort"

// TallyEntry is one symbol of a Tally with its count and relative frequency.
type TallyEntry struct {
	Symbol string
	Count  int
	Prob   float64
}

// Tally holds per-symbol occurrence counts of a finite symbol sequence.
type Tally struct {
	Total   int
	Entries []TallyEntry // count descending, then symbol ascending
}

// TallyText counts every rune of text as a one-rune symbol.
func TallyText(text string) *Tally {
	counts := make(map[string]int)
	total := 0
	for _, r := range text {
		counts[string(r)]++
		total++
	}
	return newTally(counts, total)
}

// TallySymbols counts the symbols of seq.
func TallySymbols(seq []string) *Tally {
	counts := make(map[string]int)
	for _, s := range seq {
		counts[s]++
	}
	return newTally(counts, len(seq))
}

func newTally(counts map[string]int, total int) *Tally {
	t := &Tally{Total: total, Entries: make([]TallyEntry, 0, len(counts))}
	for s, c := range counts {
		t.Entries = append(t.Entries, TallyEntry{Symbol: s, Count: c, Prob: float64(c) / float64(total)})
	}
	sort.Slice(t.Entries, func(i, j int) bool {
		if t.Entries[i].Count != t.Entries[j].Count {
			return t.Entries[i].Count > t.Entries[j].Count
		}
		return t.Entries[i].Symbol < t.Entries[j].Symbol
	})
	return t
}

// Distribution converts the tally to a Distribution in the same order.
// An empty tally is ErrInvalidDistribution.
func (t *Tally) Distribution() (*Distribution, error) {
	symbols := make([]string, len(t.Entries))
	weights := make([]float64, len(t.Entries))
	for i, e := range t.Entries {
		symbols[i] = e.Symbol
		weights[i] = float64(e.Count)
	}
	return Normalize(symbols, weights)
}

// Entropy returns the per-symbol entropy of the tally in bits, 0 when empty.
func (t *Tally) Entropy() float64 {
	probs := make([]float64, len(t.Entries))
	for i, e := range t.Entries {
		probs[i] = e.Prob
	}
	return Entropy(probs)
}

// Information returns the total information of the tallied sequence in bits.
func (t *Tally) Information() float64 {
	return t.Entropy() * float64(t.Total)
}

// FromText tallies text rune by rune and returns its Distribution.
func FromText(text string) (*Distribution, error) {
	return TallyText(text).Distribution()
}
