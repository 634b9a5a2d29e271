package shannon

import (
	"fmt"
	"math"
	"strings"

	"github.com/seiflotfy/shannon/codetrie"
)

const (
	defaultSeparator = " "
	// singleCode is the codeword given to the only symbol of a one-symbol
	// alphabet. Such a code carries no information but keeps every codeword
	// non-empty.
	singleCode = "0"
)

// Config holds configuration for code construction.
type Config struct {
	Separator string // codeword delimiter for EncodeString/DecodeString (default " ")
}

// Option is a functional option for configuring code construction.
type Option func(*Config)

// WithSeparator sets the delimiter placed between codewords by EncodeString.
// It must be non-empty and must not contain '0' or '1'.
func WithSeparator(sep string) Option {
	return func(c *Config) {
		c.Separator = sep
	}
}

func resolveConfig(opts []Option) (Config, error) {
	cfg := Config{Separator: defaultSeparator}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := validateSeparator(cfg.Separator); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateSeparator(sep string) error {
	if sep == "" || strings.ContainsAny(sep, "01") {
		return fmt.Errorf("%w: %q", ErrInvalidSeparator, sep)
	}
	return nil
}

// Entry is one row of a CodeTable.
type Entry struct {
	Symbol string
	Prob   float64
	Code   string
}

// CodeTable is an immutable bijection between symbols and the codewords of a
// binary prefix code. It is safe for concurrent use. The zero value holds no
// codes; fill it with ReadFrom.
type CodeTable struct {
	symbols   []string  // descending probability
	probs     []float64 // normalized, same order as symbols
	codes     []string
	bySymbol  map[string]int
	byCode    map[string]int
	trie      *codetrie.Trie
	separator string
}

// Build constructs the Shannon-Fano code of d.
func Build(d *Distribution, opts ...Option) (*CodeTable, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil distribution", ErrInvalidDistribution)
	}
	return BuildWeights(d.symbols, d.probs, opts...)
}

// BuildWeights constructs the Shannon-Fano code for symbols with the given
// non-negative weights. Weights need not sum to one.
//
// Symbols are sorted once by descending weight, ties keeping input order, and
// the sorted alphabet is split recursively at the first index where the
// running weight reaches half of the range's weight.
func BuildWeights(symbols []string, weights []float64, opts ...Option) (*CodeTable, error) {
	if len(symbols) == 0 {
		return nil, ErrEmptyAlphabet
	}
	if len(symbols) != len(weights) {
		return nil, fmt.Errorf("%w: %d symbols but %d weights", ErrInvalidDistribution, len(symbols), len(weights))
	}
	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, err
	}
	total, err := weightTotal(weights)
	if err != nil {
		return nil, err
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: total weight %g", ErrInvalidDistribution, total)
	}

	order := descendingOrder(weights)
	sortedSymbols := make([]string, len(order))
	sortedProbs := make([]float64, len(order))
	for i, j := range order {
		sortedSymbols[i] = symbols[j]
		sortedProbs[i] = weights[j] / total
	}
	return newCodeTable(sortedSymbols, sortedProbs, assignCodes(sortedProbs), cfg.Separator)
}

type span struct{ lo, hi int } // half-open

// assignCodes returns the Shannon-Fano codewords for probs, which must be
// sorted in descending order.
func assignCodes(probs []float64) []string {
	n := len(probs)
	if n == 1 {
		return []string{singleCode}
	}

	codes := make([][]byte, n)
	stack := []span{{0, n}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.hi-s.lo < 2 {
			continue
		}

		split := splitIndex(probs[s.lo:s.hi]) + s.lo
		for i := s.lo; i < s.hi; i++ {
			if i <= split {
				codes[i] = append(codes[i], '0')
			} else {
				codes[i] = append(codes[i], '1')
			}
		}
		stack = append(stack, span{split + 1, s.hi}, span{s.lo, split + 1})
	}

	out := make([]string, n)
	for i, c := range codes {
		out[i] = string(c)
	}
	return out
}

// splitIndex returns the last index of the left group for a range of at
// least two probabilities: the smallest i whose cumulative sum reaches half
// of the range total, capped so the right group keeps at least one element.
func splitIndex(probs []float64) int {
	var total float64
	for _, p := range probs {
		total += p
	}
	half := total / 2
	last := len(probs) - 2

	var acc float64
	for i, p := range probs {
		acc += p
		if acc >= half {
			return min(i, last)
		}
	}
	return last
}

// newCodeTable assembles the lookups and checks the bijection and prefix
// property. It is shared by construction and deserialization.
func newCodeTable(symbols []string, probs []float64, codes []string, separator string) (*CodeTable, error) {
	t := &CodeTable{
		symbols:   symbols,
		probs:     probs,
		codes:     codes,
		bySymbol:  make(map[string]int, len(symbols)),
		byCode:    make(map[string]int, len(symbols)),
		trie:      codetrie.New(),
		separator: separator,
	}
	for i, s := range symbols {
		if _, ok := t.bySymbol[s]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSymbol, s)
		}
		if err := t.trie.Insert(codes[i], i); err != nil {
			return nil, fmt.Errorf("symbol %q: %w", s, err)
		}
		t.bySymbol[s] = i
		t.byCode[codes[i]] = i
	}
	return t, nil
}

// Len returns the number of symbols.
func (t *CodeTable) Len() int { return len(t.symbols) }

// Symbols returns the alphabet in code order (descending probability).
func (t *CodeTable) Symbols() []string { return append([]string(nil), t.symbols...) }

// Separator returns the codeword delimiter used by EncodeString.
func (t *CodeTable) Separator() string { return t.separator }

// Code returns the codeword of symbol s.
func (t *CodeTable) Code(s string) (string, bool) {
	i, ok := t.bySymbol[s]
	if !ok {
		return "", false
	}
	return t.codes[i], true
}

// Symbol returns the symbol whose codeword is code.
func (t *CodeTable) Symbol(code string) (string, bool) {
	i, ok := t.byCode[code]
	if !ok {
		return "", false
	}
	return t.symbols[i], true
}

// Entries returns the table rows in code order.
func (t *CodeTable) Entries() []Entry {
	out := make([]Entry, len(t.symbols))
	for i := range t.symbols {
		out[i] = Entry{Symbol: t.symbols[i], Prob: t.probs[i], Code: t.codes[i]}
	}
	return out
}

// Encode maps each symbol of seq to its codeword.
func (t *CodeTable) Encode(seq []string) ([]string, error) {
	out := make([]string, len(seq))
	for i, s := range seq {
		j, ok := t.bySymbol[s]
		if !ok {
			return nil, fmt.Errorf("%w: %q at position %d", ErrUnknownSymbol, s, i)
		}
		out[i] = t.codes[j]
	}
	return out, nil
}

// Decode maps each codeword back to its symbol.
func (t *CodeTable) Decode(codes []string) ([]string, error) {
	out := make([]string, len(codes))
	for i, c := range codes {
		j, ok := t.byCode[c]
		if !ok {
			return nil, fmt.Errorf("%w: %q at position %d", ErrUnknownCode, c, i)
		}
		out[i] = t.symbols[j]
	}
	return out, nil
}

// EncodeString encodes every rune of text as a one-rune symbol and joins the
// codewords with the table's separator.
func (t *CodeTable) EncodeString(text string) (string, error) {
	var b strings.Builder
	pos := 0
	for _, r := range text {
		j, ok := t.bySymbol[string(r)]
		if !ok {
			return "", fmt.Errorf("%w: %q at position %d", ErrUnknownSymbol, string(r), pos)
		}
		if pos > 0 {
			b.WriteString(t.separator)
		}
		b.WriteString(t.codes[j])
		pos++
	}
	return b.String(), nil
}

// DecodeString reverses EncodeString. Empty units between repeated or
// trailing separators are ignored.
func (t *CodeTable) DecodeString(encoded string) (string, error) {
	var b strings.Builder
	for i, unit := range strings.Split(encoded, t.separator) {
		if unit == "" {
			continue
		}
		j, ok := t.byCode[unit]
		if !ok {
			return "", fmt.Errorf("%w: %q at unit %d", ErrUnknownCode, unit, i)
		}
		b.WriteString(t.symbols[j])
	}
	return b.String(), nil
}

// EncodeBits concatenates the codewords of seq without delimiters.
func (t *CodeTable) EncodeBits(seq []string) (string, error) {
	codes, err := t.Encode(seq)
	if err != nil {
		return "", err
	}
	return strings.Join(codes, ""), nil
}

// DecodeBits splits a concatenated bit string into symbols by walking the
// code trie. A trailing partial codeword is ErrUnknownCode.
func (t *CodeTable) DecodeBits(bits string) ([]string, error) {
	if t.trie == nil {
		return nil, fmt.Errorf("%w: table is not built", ErrCorruptTable)
	}
	var out []string
	for off := 0; off < len(bits); {
		id, n, ok := t.trie.Match(bits[off:])
		if !ok {
			if off+n == len(bits) {
				return nil, fmt.Errorf("%w: truncated codeword %q at bit %d", ErrUnknownCode, bits[off:], off)
			}
			return nil, fmt.Errorf("%w: no codeword at bit %d", ErrUnknownCode, off)
		}
		out = append(out, t.symbols[id])
		off += n
	}
	return out, nil
}

// AverageLength returns the expected codeword length in bits per symbol.
func (t *CodeTable) AverageLength() float64 {
	terms := make([]float64, len(t.codes))
	for i, c := range t.codes {
		terms[i] = t.probs[i] * float64(len(c))
	}
	return sum(terms)
}

// Efficiency returns the ratio of the source entropy to the average codeword
// length. It is at most 1 for every table with more than one symbol.
func (t *CodeTable) Efficiency() float64 {
	avg := t.AverageLength()
	if avg == 0 {
		return 0
	}
	return Entropy(t.probs) / avg
}

// KraftSum returns Σ 2^-len(code). A prefix code always has a Kraft sum of at
// most one.
func (t *CodeTable) KraftSum() float64 {
	terms := make([]float64, len(t.codes))
	for i, c := range t.codes {
		terms[i] = math.Ldexp(1, -len(c))
	}
	return sum(terms)
}
