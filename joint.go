package shannon

import (
	"fmt"
	"math"
	"strconv"

	"github.com/seiflotfy/shannon/internal/prng"
)

// Axis names one of the two variables of a Joint.
type Axis int

const (
	AxisA Axis = iota // rows
	AxisB             // columns
)

func (a Axis) String() string {
	switch a {
	case AxisA:
		return "A"
	case AxisB:
		return "B"
	default:
		return "Axis(" + strconv.Itoa(int(a)) + ")"
	}
}

// Other returns the opposite axis.
func (a Axis) Other() Axis {
	if a == AxisA {
		return AxisB
	}
	return AxisA
}

// Joint is an immutable joint distribution P(A,B). Row i is A = rows[i],
// column j is B = cols[j].
type Joint struct {
	rows []string
	cols []string
	p    [][]float64
}

// NewJoint normalizes weights into a joint distribution. Nil label slices
// default to A0..An and B0..Bm.
func NewJoint(rows, cols []string, weights [][]float64) (*Joint, error) {
	if len(weights) == 0 || len(weights[0]) == 0 {
		return nil, fmt.Errorf("%w: empty joint table", ErrInvalidDistribution)
	}
	n, m := len(weights), len(weights[0])
	flat := make([]float64, 0, n*m)
	for i, row := range weights {
		if len(row) != m {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidDistribution, i, len(row), m)
		}
		flat = append(flat, row...)
	}
	total, err := weightTotal(flat)
	if err != nil {
		return nil, err
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: total weight %g", ErrInvalidDistribution, total)
	}

	if rows, err = jointLabels(rows, n, "A"); err != nil {
		return nil, err
	}
	if cols, err = jointLabels(cols, m, "B"); err != nil {
		return nil, err
	}

	p := make([][]float64, n)
	for i := range p {
		p[i] = make([]float64, m)
		for j := range p[i] {
			p[i][j] = weights[i][j] / total
		}
	}
	return &Joint{rows: rows, cols: cols, p: p}, nil
}

func jointLabels(labels []string, n int, prefix string) ([]string, error) {
	if labels == nil {
		labels = make([]string, n)
		for i := range labels {
			labels[i] = prefix + strconv.Itoa(i)
		}
		return labels, nil
	}
	if len(labels) != n {
		return nil, fmt.Errorf("%w: %d %s labels for %d entries", ErrInvalidDistribution, len(labels), prefix, n)
	}
	seen := make(map[string]bool, n)
	for _, l := range labels {
		if seen[l] {
			return nil, fmt.Errorf("%w: %s label %q", ErrDuplicateSymbol, prefix, l)
		}
		seen[l] = true
	}
	return append([]string(nil), labels...), nil
}

// RandomJoint returns a rows x cols joint distribution with weights drawn
// uniformly from [0, 1). The same seed always yields the same table.
func RandomJoint(rows, cols int, seed uint64) (*Joint, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("%w: %dx%d joint table", ErrInvalidDistribution, rows, cols)
	}
	src := prng.New(seed)
	weights := make([][]float64, rows)
	for i := range weights {
		weights[i] = make([]float64, cols)
		for j := range weights[i] {
			weights[i][j] = src.Float64()
		}
	}
	return NewJoint(nil, nil, weights)
}

// Rows returns the number of A values.
func (j *Joint) Rows() int { return len(j.rows) }

// Cols returns the number of B values.
func (j *Joint) Cols() int { return len(j.cols) }

// Labels returns a copy of the labels along axis.
func (j *Joint) Labels(axis Axis) []string {
	if axis == AxisA {
		return append([]string(nil), j.rows...)
	}
	return append([]string(nil), j.cols...)
}

// At returns P(A = rows[i], B = cols[k]).
func (j *Joint) At(i, k int) float64 { return j.p[i][k] }

// Matrix returns a copy of the normalized table.
func (j *Joint) Matrix() [][]float64 {
	out := make([][]float64, len(j.p))
	for i, row := range j.p {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// Entropy returns the joint entropy H(A,B) in bits.
func (j *Joint) Entropy() float64 {
	flat := make([]float64, 0, len(j.rows)*len(j.cols))
	for _, row := range j.p {
		flat = append(flat, row...)
	}
	return Entropy(flat)
}

// Marginals returns P(A) (row sums) and P(B) (column sums).
func (j *Joint) Marginals() (a, b *Distribution) {
	return j.Marginal(AxisA), j.Marginal(AxisB)
}

// Marginal returns the distribution of the variable on axis.
func (j *Joint) Marginal(axis Axis) *Distribution {
	var probs []float64
	if axis == AxisA {
		probs = make([]float64, len(j.rows))
		for i, row := range j.p {
			probs[i] = sum(row)
		}
	} else {
		probs = make([]float64, len(j.cols))
		col := make([]float64, len(j.rows))
		for k := range j.cols {
			for i := range j.rows {
				col[i] = j.p[i][k]
			}
			probs[k] = sum(col)
		}
	}
	// labels were validated unique by NewJoint
	d, _ := newDistribution(j.Labels(axis), probs)
	return d
}

// slice returns the joint probabilities with the given axis fixed at x.
func (j *Joint) slice(given Axis, x int) []float64 {
	if given == AxisA {
		return append([]float64(nil), j.p[x]...)
	}
	out := make([]float64, len(j.rows))
	for i := range j.rows {
		out[i] = j.p[i][x]
	}
	return out
}

// ConditionalTable holds, for every value x of the conditioning variable, the
// distribution of the other variable given x. Where P(x) <= Epsilon the
// conditional is undefined and stored as the all-zero vector.
type ConditionalTable struct {
	Given   Axis
	labels  []string // conditioning values
	of      []string // values of the other variable
	slices  [][]float64
	defined []bool
}

// Conditional returns P(other | given) for every value of the given axis.
// Conditional(AxisB) is P(A|B), one slice per column.
func (j *Joint) Conditional(given Axis) *ConditionalTable {
	marginal := j.Marginal(given)
	t := &ConditionalTable{
		Given:   given,
		labels:  j.Labels(given),
		of:      j.Labels(given.Other()),
		slices:  make([][]float64, marginal.Len()),
		defined: make([]bool, marginal.Len()),
	}
	for x := range t.slices {
		s := j.slice(given, x)
		px := marginal.At(x)
		if px > Epsilon {
			for k := range s {
				s[k] /= px
			}
			t.defined[x] = true
		} else {
			for k := range s {
				s[k] = 0
			}
		}
		t.slices[x] = s
	}
	return t
}

// Len returns the number of conditioning values.
func (t *ConditionalTable) Len() int { return len(t.slices) }

// Label returns the x-th conditioning value.
func (t *ConditionalTable) Label(x int) string { return t.labels[x] }

// Labels returns the values of the conditioned variable, in slice order.
func (t *ConditionalTable) Labels() []string { return append([]string(nil), t.of...) }

// Slice returns a copy of the conditional distribution for the x-th value.
func (t *ConditionalTable) Slice(x int) []float64 { return append([]float64(nil), t.slices[x]...) }

// Defined reports whether the x-th conditioning value has positive probability.
func (t *ConditionalTable) Defined(x int) bool { return t.defined[x] }

// ConditionalEntropy returns H(other | given) in bits.
// ConditionalEntropy(AxisB) is H(A|B).
func (j *Joint) ConditionalEntropy(given Axis) float64 {
	h, _ := ConditionalEntropy(j, j.Marginal(given), given)
	return h
}

// ConditionalEntropy computes Σ_x p(x)·H(other | x) from j and an already
// derived marginal of the given axis. Terms with p(x) <= Epsilon contribute
// nothing.
func ConditionalEntropy(j *Joint, marginal *Distribution, given Axis) (float64, error) {
	if j == nil || marginal == nil {
		return 0, fmt.Errorf("%w: nil joint table or marginal", ErrInvalidDistribution)
	}
	n := len(j.rows)
	if given == AxisB {
		n = len(j.cols)
	}
	if marginal.Len() != n {
		return 0, fmt.Errorf("%w: marginal has %d values, axis %s has %d", ErrInvalidDistribution, marginal.Len(), given, n)
	}

	terms := make([]float64, 0, n)
	for x := 0; x < n; x++ {
		px := marginal.At(x)
		if px <= Epsilon {
			continue
		}
		s := j.slice(given, x)
		for k := range s {
			s[k] /= px
		}
		terms = append(terms, px*Entropy(s))
	}
	return sum(terms), nil
}

// MutualInformation returns I(A;B) = H(A) + H(B) - H(A,B), clamped at zero to
// absorb rounding.
func (j *Joint) MutualInformation() float64 {
	a, b := j.Marginals()
	mi := a.Entropy() + b.Entropy() - j.Entropy()
	return math.Max(mi, 0)
}
