// Package detect finds occurrences of vocabulary phrases in transcripts.
//
// Three independent strategies contribute counts: an exact substring
// matcher, a fuzzy sliding-window matcher whose raw matches pass through a
// proximity deduplicator, and a semantic matcher comparing sentence and
// phrase embeddings. Each strategy produces a Table; the tables of one
// document are summed into its combined table.
package detect

import "fmt"

// Strategy identifies the matcher an occurrence came from.
type Strategy int

const (
	Exact Strategy = iota
	Fuzzy
	Semantic
)

func (s Strategy) String() string {
	switch s {
	case Exact:
		return "exact"
	case Fuzzy:
		return "fuzzy"
	case Semantic:
		return "semantic"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy parses a strategy name as used in configuration.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "exact":
		return Exact, nil
	case "fuzzy":
		return Fuzzy, nil
	case "semantic":
		return Semantic, nil
	}
	return 0, fmt.Errorf("unknown detection strategy %q", name)
}

// NoPosition marks an occurrence without token position.
const NoPosition = -1

// Occurrence is one detected instance of a phrase.
type Occurrence struct {
	Phrase   int // vocabulary position
	Text     string
	Score    float64 // similarity in [0,1]; 1 for exact matches
	Strategy Strategy
	Position int // window start; only set on raw fuzzy matches
}

// Table maps vocabulary position to a non-negative count. Its length
// always equals the vocabulary size, so phrases never seen are present
// with count zero.
type Table []int

// NewTable returns a zeroed table for a vocabulary of size n.
func NewTable(n int) Table {
	return make(Table, n)
}

// Inc increments the count of phrase i.
func (t Table) Inc(i int) { t[i]++ }

// Add adds other into t element-wise. Both tables must have equal length.
func (t Table) Add(other Table) {
	for i, c := range other {
		t[i] += c
	}
}

// Total returns the sum of all counts.
func (t Table) Total() int {
	n := 0
	for _, c := range t {
		n += c
	}
	return n
}

// Clone returns a copy of t.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	copy(out, t)
	return out
}

// Sum returns a new table holding the element-wise sum of tables.
func Sum(n int, tables ...Table) Table {
	out := NewTable(n)
	for _, t := range tables {
		out.Add(t)
	}
	return out
}

// countOccurrences builds a table from occurrences.
func countOccurrences(n int, occs []Occurrence) Table {
	t := NewTable(n)
	for _, o := range occs {
		t.Inc(o.Phrase)
	}
	return t
}
