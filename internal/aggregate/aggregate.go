// Package aggregate folds per-document detection tables into grouped,
// length-normalized statistics.
//
// Grouping is a pure fold: an Accumulator can be fed rows in any order and
// merged with other accumulators, and Summaries always come back sorted by
// key, so repeated runs over the same rows produce identical output.
package aggregate

import (
	"fmt"
	"sort"
	"time"

	"github.com/TobiSchelling/ClicheCounter/internal/detect"
	"github.com/TobiSchelling/ClicheCounter/internal/vocab"
)

// Common normalization units.
const (
	Per1000  = 1000
	Per10000 = 10000
)

// Row is one scored document with its attribution.
type Row struct {
	DocumentID   string
	Organization string
	Speaker      string
	Published    *time.Time
	Counts       detect.Table
	Tokens       int
}

// Rate returns the document's occurrences per k tokens, 0 without tokens.
func (r Row) Rate(k float64) float64 {
	return rate(r.Counts.Total(), r.Tokens, k)
}

// Key identifies a group. Fields unused by the grouping are empty.
type Key struct {
	Organization string
	Speaker      string
	Period       string
}

func (k Key) String() string {
	s := k.Organization
	if k.Speaker != "" {
		s += " / " + k.Speaker
	}
	if k.Period != "" {
		s += " @ " + k.Period
	}
	return s
}

// Less orders keys by organization, speaker, then period.
func (k Key) Less(o Key) bool {
	if k.Organization != o.Organization {
		return k.Organization < o.Organization
	}
	if k.Speaker != o.Speaker {
		return k.Speaker < o.Speaker
	}
	return k.Period < o.Period
}

// KeyFunc maps a row to its group. ok=false leaves the row out.
type KeyFunc func(r Row) (key Key, ok bool)

// ByOrganization groups by organization.
func ByOrganization(r Row) (Key, bool) {
	return Key{Organization: r.Organization}, true
}

// BySpeaker groups by organization and speaker.
func BySpeaker(r Row) (Key, bool) {
	return Key{Organization: r.Organization, Speaker: r.Speaker}, true
}

// ByBucket groups by organization and time bucket. Rows without a
// publication time are left out.
func ByBucket(b Bucket) KeyFunc {
	return func(r Row) (Key, bool) {
		if r.Published == nil {
			return Key{}, false
		}
		return Key{Organization: r.Organization, Period: b.Label(*r.Published)}, true
	}
}

// Summary is the aggregate of one group.
type Summary struct {
	Key       Key
	Counts    detect.Table
	Total     int
	Tokens    int
	Documents int
}

// Rate returns Total per k tokens. A group without tokens has rate 0.
func (s Summary) Rate(k float64) float64 {
	return rate(s.Total, s.Tokens, k)
}

// PhraseRate returns the count of phrase i per k tokens.
func (s Summary) PhraseRate(i int, k float64) float64 {
	return rate(s.Counts[i], s.Tokens, k)
}

// PhraseCount pairs a phrase with its count.
type PhraseCount struct {
	Phrase string
	Count  int
}

// Phrases returns every phrase with its count, in vocabulary order.
func (s Summary) Phrases(v *vocab.Vocabulary) []PhraseCount {
	out := make([]PhraseCount, len(s.Counts))
	for i, c := range s.Counts {
		out[i] = PhraseCount{Phrase: v.Phrase(i), Count: c}
	}
	return out
}

func rate(total, tokens int, k float64) float64 {
	if tokens <= 0 {
		return 0
	}
	return float64(total) * k / float64(tokens)
}

// Accumulator folds rows into per-key summaries.
type Accumulator struct {
	n       int
	key     KeyFunc
	groups  map[Key]*Summary
	skipped int
}

// NewAccumulator returns an empty accumulator for a vocabulary of size n.
func NewAccumulator(n int, key KeyFunc) *Accumulator {
	return &Accumulator{n: n, key: key, groups: make(map[Key]*Summary)}
}

// Add folds one row in. Rows the key function rejects are counted as
// skipped.
func (a *Accumulator) Add(r Row) error {
	if len(r.Counts) != a.n {
		return fmt.Errorf("row %s: table has %d phrases, want %d", r.DocumentID, len(r.Counts), a.n)
	}
	k, ok := a.key(r)
	if !ok {
		a.skipped++
		return nil
	}
	s := a.group(k)
	s.Counts.Add(r.Counts)
	s.Total += r.Counts.Total()
	s.Tokens += r.Tokens
	s.Documents++
	return nil
}

// Merge folds other into a. Both must use the same vocabulary size; the
// key functions are assumed to match.
func (a *Accumulator) Merge(other *Accumulator) error {
	if other.n != a.n {
		return fmt.Errorf("merging accumulators of %d and %d phrases", a.n, other.n)
	}
	for k, o := range other.groups {
		s := a.group(k)
		s.Counts.Add(o.Counts)
		s.Total += o.Total
		s.Tokens += o.Tokens
		s.Documents += o.Documents
	}
	a.skipped += other.skipped
	return nil
}

// Skipped returns the number of rows left out by the key function.
func (a *Accumulator) Skipped() int { return a.skipped }

// Summaries returns a copy of every group, sorted by key.
func (a *Accumulator) Summaries() []Summary {
	out := make([]Summary, 0, len(a.groups))
	for _, s := range a.groups {
		c := *s
		c.Counts = s.Counts.Clone()
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Less(out[j].Key) })
	return out
}

func (a *Accumulator) group(k Key) *Summary {
	s, ok := a.groups[k]
	if !ok {
		s = &Summary{Key: k, Counts: detect.NewTable(a.n)}
		a.groups[k] = s
	}
	return s
}

// Summarize folds rows with key and returns the sorted summaries.
func Summarize(n int, rows []Row, key KeyFunc) ([]Summary, error) {
	acc := NewAccumulator(n, key)
	for _, r := range rows {
		if err := acc.Add(r); err != nil {
			return nil, err
		}
	}
	return acc.Summaries(), nil
}
