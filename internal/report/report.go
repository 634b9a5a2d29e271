// Package report renders analyses as plain-text reports.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/seiflotfy/shannon"
)

// errWriter remembers the first write error so report bodies can print
// unconditionally.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, v ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, v...)
}

// Analysis is the entropy summary of one text.
type Analysis struct {
	Title       string
	Tally       *shannon.Tally
	Entropy     float64 // bits per symbol
	Information float64 // bits
}

// Analyze tallies text and computes its entropy and information.
func Analyze(title, text string) Analysis {
	t := shannon.TallyText(text)
	return Analysis{
		Title:       title,
		Tally:       t,
		Entropy:     t.Entropy(),
		Information: t.Information(),
	}
}

// WriteAnalysis writes the per-symbol table and totals of a.
func WriteAnalysis(w io.Writer, a Analysis) error {
	ew := &errWriter{w: w}
	ew.printf("=== %s ===\n", a.Title)
	ew.printf("Text length: %d symbols\n", a.Tally.Total)
	if ew.err != nil {
		return ew.err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	fmt.Fprintln(tw, "Symbol\t| Count\t| Probability")
	for _, e := range a.Tally.Entries {
		fmt.Fprintf(tw, "%q\t| %d\t| %.6f\n", e.Symbol, e.Count, e.Prob)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	ew.printf("Entropy (H): %.4f bits/symbol\n", a.Entropy)
	ew.printf("Information (I): %.2f bits (~%.2f bytes)\n\n", a.Information, a.Information/8)
	return ew.err
}

// WriteMatrix writes a labelled matrix with six decimals per cell.
func WriteMatrix(w io.Writer, title string, rows, cols []string, m [][]float64) error {
	ew := &errWriter{w: w}
	ew.printf("%s\n", title)
	ew.printf("%6s", "")
	for _, c := range cols {
		ew.printf(" %9s", c)
	}
	ew.printf("\n")
	for i, r := range rows {
		ew.printf("%4s  ", r)
		for k := range cols {
			ew.printf(" %9.6f", m[i][k])
		}
		ew.printf("\n")
	}
	ew.printf("\n")
	return ew.err
}

func conditionalMatrix(j *shannon.Joint, given shannon.Axis) [][]float64 {
	ct := j.Conditional(given)
	m := make([][]float64, j.Rows())
	for i := range m {
		m[i] = make([]float64, j.Cols())
	}
	for x := 0; x < ct.Len(); x++ {
		for y, p := range ct.Slice(x) {
			if given == shannon.AxisB {
				m[y][x] = p
			} else {
				m[x][y] = p
			}
		}
	}
	return m
}

// WriteJoint writes the joint table, its marginals and conditionals, the
// entropies and the chain-rule checks.
func WriteJoint(w io.Writer, j *shannon.Joint) error {
	rows, cols := j.Labels(shannon.AxisA), j.Labels(shannon.AxisB)
	a, b := j.Marginals()
	hA, hB, hAB := a.Entropy(), b.Entropy(), j.Entropy()
	hAgivenB := j.ConditionalEntropy(shannon.AxisB)
	hBgivenA := j.ConditionalEntropy(shannon.AxisA)

	ew := &errWriter{w: w}
	ew.printf("=== Joint probabilities P(A,B) ===\n\n")
	if ew.err != nil {
		return ew.err
	}
	if err := WriteMatrix(w, "P(A,B):", rows, cols, j.Matrix()); err != nil {
		return err
	}

	ew.printf("=== Marginals ===\n")
	for i, p := range a.Probabilities() {
		ew.printf(" P(%s) = %.6f\n", rows[i], p)
	}
	ew.printf("\n")
	for i, p := range b.Probabilities() {
		ew.printf(" P(%s) = %.6f\n", cols[i], p)
	}
	ew.printf("\n=== Conditional probabilities ===\n")
	if ew.err != nil {
		return ew.err
	}
	if err := WriteMatrix(w, "P(A|B): columns fix B", rows, cols, conditionalMatrix(j, shannon.AxisB)); err != nil {
		return err
	}
	if err := WriteMatrix(w, "P(B|A): rows fix A", rows, cols, conditionalMatrix(j, shannon.AxisA)); err != nil {
		return err
	}

	ew.printf("=== Entropies (bits) ===\n")
	ew.printf("H(A)       = %.6f\n", hA)
	ew.printf("H(B)       = %.6f\n", hB)
	ew.printf("H(A,B)     = %.6f\n", hAB)
	ew.printf("H(A|B)     = %.6f\n", hAgivenB)
	ew.printf("H(B|A)     = %.6f\n", hBgivenA)
	ew.printf("I(A;B)     = %.6f\n\n", j.MutualInformation())

	ew.printf("=== Chain rule ===\n")
	ew.printf("H(B) + H(A|B) = %.6f\n", hB+hAgivenB)
	ew.printf("H(A) + H(B|A) = %.6f\n", hA+hBgivenA)
	ew.printf("H(A,B) - H(A) = %.6f\n", hAB-hA)
	ew.printf("H(A,B) - H(B) = %.6f\n", hAB-hB)
	return ew.err
}

// WriteDistribution writes the probabilities of d with its entropy and
// redundancy. When durations is non-nil the transmission rate is added.
func WriteDistribution(w io.Writer, title string, d *shannon.Distribution, durations []float64) error {
	ew := &errWriter{w: w}
	ew.printf("=== %s ===\n", title)
	ew.printf("Symbols k = %d\n", d.Len())
	for i := 0; i < d.Len(); i++ {
		ew.printf("   %s: P=%.10f\n", d.Symbol(i), d.At(i))
	}
	ew.printf("Entropy: H = %.8f bits/symbol (max %.8f)\n", d.Entropy(), d.MaxEntropy())
	ew.printf("Redundancy: %.8f\n", d.Redundancy())
	if durations != nil {
		rate, err := d.TransmissionRate(durations)
		if err != nil {
			return err
		}
		ew.printf("Transmission rate: R = %.8f bits/time unit\n", rate)
	}
	ew.printf("\n")
	return ew.err
}

// WriteCodeTable writes every codeword of t with the code's average length,
// efficiency and Kraft sum.
func WriteCodeTable(w io.Writer, t *shannon.CodeTable) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	fmt.Fprintln(tw, "Symbol\t| Probability\t| Code\t| Length")
	for _, e := range t.Entries() {
		fmt.Fprintf(tw, "%s\t| %.10f\t| %s\t| %d\n", quoteIfBlank(e.Symbol), e.Prob, e.Code, len(e.Code))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	ew := &errWriter{w: w}
	ew.printf("Average length: %.6f bits/symbol\n", t.AverageLength())
	ew.printf("Efficiency: %.6f\n", t.Efficiency())
	ew.printf("Kraft sum: %.6f\n\n", t.KraftSum())
	return ew.err
}

// WriteMessage writes a message with its encoded and decoded forms.
func WriteMessage(w io.Writer, message, encoded, decoded string) error {
	ew := &errWriter{w: w}
	ew.printf("Message: %s\n", message)
	ew.printf("Encoded: %s\n", encoded)
	ew.printf("Decoded: %s\n", decoded)
	ew.printf("Round trip: %v\n\n", message == decoded)
	return ew.err
}

func quoteIfBlank(s string) string {
	if strings.TrimSpace(s) == "" || strings.ContainsAny(s, "\t\n") {
		return fmt.Sprintf("%q", s)
	}
	return s
}
