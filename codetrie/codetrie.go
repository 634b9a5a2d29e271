// Package codetrie provides a binary trie over prefix-code codewords.
//
// A Trie accepts a codeword only if it keeps the set prefix-free, so a
// successful sequence of Insert calls proves the prefix property. Match walks
// a concatenated bit string one codeword at a time.
package codetrie

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCode indicates an empty codeword or one with a character
	// other than '0' and '1'.
	ErrInvalidCode = errors.New("invalid codeword")
	// ErrPrefixConflict indicates a codeword that is a prefix of, equal to,
	// or prefixed by a codeword already in the trie.
	ErrPrefixConflict = errors.New("codeword prefix conflict")
)

const none = -1

type node struct {
	child [2]int32
	id    int
	leaf  bool
}

// Trie is a binary trie whose leaves carry caller-assigned ids.
// The zero value is not usable; call New.
type Trie struct {
	nodes []node
	size  int
}

// New returns an empty trie.
func New() *Trie {
	return &Trie{nodes: []node{newNode()}}
}

func newNode() node {
	return node{child: [2]int32{none, none}}
}

func bit(c byte) (int, bool) {
	switch c {
	case '0':
		return 0, true
	case '1':
		return 1, true
	}
	return 0, false
}

// Insert adds code with the given id. The trie is left unchanged on error.
func (t *Trie) Insert(code string, id int) error {
	if len(code) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidCode)
	}
	for i := 0; i < len(code); i++ {
		if _, ok := bit(code[i]); !ok {
			return fmt.Errorf("%w: %q at offset %d", ErrInvalidCode, code, i)
		}
	}

	// Check pass: walk the existing path without allocating.
	cur := 0
	for i := 0; i < len(code); i++ {
		if t.nodes[cur].leaf {
			return fmt.Errorf("%w: %q extends %q", ErrPrefixConflict, code, code[:i])
		}
		b, _ := bit(code[i])
		next := t.nodes[cur].child[b]
		if next == none {
			cur = none
			break
		}
		cur = int(next)
	}
	if cur != none {
		if t.nodes[cur].leaf {
			return fmt.Errorf("%w: %q already present", ErrPrefixConflict, code)
		}
		return fmt.Errorf("%w: %q is a prefix of an existing codeword", ErrPrefixConflict, code)
	}

	cur = 0
	for i := 0; i < len(code); i++ {
		b, _ := bit(code[i])
		next := t.nodes[cur].child[b]
		if next == none {
			t.nodes = append(t.nodes, newNode())
			next = int32(len(t.nodes) - 1)
			t.nodes[cur].child[b] = next
		}
		cur = int(next)
	}
	t.nodes[cur].leaf = true
	t.nodes[cur].id = id
	t.size++
	return nil
}

// Lookup returns the id of code if it is a codeword of the trie.
func (t *Trie) Lookup(code string) (int, bool) {
	if len(code) == 0 {
		return 0, false
	}
	cur := 0
	for i := 0; i < len(code); i++ {
		b, ok := bit(code[i])
		if !ok {
			return 0, false
		}
		next := t.nodes[cur].child[b]
		if next == none {
			return 0, false
		}
		cur = int(next)
	}
	if !t.nodes[cur].leaf {
		return 0, false
	}
	return t.nodes[cur].id, true
}

// Match finds the codeword at the start of bits.
//
// On success it returns the codeword's id and length. On failure n is the
// number of bits consumed before the walk left the trie or ran out of input.
func (t *Trie) Match(bits string) (id, n int, ok bool) {
	cur := 0
	for i := 0; i < len(bits); i++ {
		b, valid := bit(bits[i])
		if !valid {
			return 0, i, false
		}
		next := t.nodes[cur].child[b]
		if next == none {
			return 0, i, false
		}
		cur = int(next)
		if t.nodes[cur].leaf {
			return t.nodes[cur].id, i + 1, true
		}
	}
	return 0, len(bits), false
}

// Len returns the number of codewords.
func (t *Trie) Len() int { return t.size }

// Complete reports whether every internal node has two children, i.e. the
// codeword set satisfies the Kraft inequality with equality.
func (t *Trie) Complete() bool {
	if t.size == 0 {
		return false
	}
	for _, n := range t.nodes {
		if n.leaf {
			continue
		}
		if n.child[0] == none || n.child[1] == none {
			return false
		}
	}
	return true
}
