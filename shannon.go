// Package shannon computes information-theoretic quantities over discrete
// symbol distributions and builds Shannon-Fano prefix codes.
//
// Entropy figures come from a Distribution (one variable) or a Joint (two
// variables). A CodeTable is built from symbol probabilities and maps symbol
// sequences to codewords and back:
//
//	d, _ := shannon.Geometric(12)
//	table, _ := shannon.Build(d)
//	codes, _ := table.Encode([]string{"a1", "a3"})
//	syms, _ := table.Decode(codes)
//
// All values are immutable after construction and safe for concurrent reads.
package shannon

import "errors"

const (
	// Epsilon is the probability at or below which an entry counts as zero in
	// every entropy sum.
	Epsilon = 1e-12
	// Tolerance bounds how far a normalized distribution may drift from 1.
	Tolerance = 1e-9
)

var (
	// ErrInvalidDistribution indicates weights that cannot be normalized:
	// a non-positive total, a negative or non-finite weight, or mismatched shapes.
	ErrInvalidDistribution = errors.New("invalid distribution")
	// ErrDuplicateSymbol indicates a symbol repeated within one alphabet.
	ErrDuplicateSymbol = errors.New("duplicate symbol")
	// ErrEmptyAlphabet indicates code construction over zero symbols.
	ErrEmptyAlphabet = errors.New("empty alphabet")
	// ErrUnknownSymbol indicates an encode request for a symbol absent from the table.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrUnknownCode indicates a decoded unit that matches no codeword.
	ErrUnknownCode = errors.New("unknown code")
	// ErrInvalidSeparator indicates a codeword separator that is empty or
	// contains a code bit.
	ErrInvalidSeparator = errors.New("invalid separator")
	// ErrCorruptTable indicates a serialized code table that fails validation.
	ErrCorruptTable = errors.New("corrupt code table")
)
