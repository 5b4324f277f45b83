package detect

import "sort"

// Deduplicate collapses raw fuzzy matches of the same phrase whose window
// positions lie closer than radius to each other (|a-b| < radius).
//
// It is a single online greedy pass over raw in input order. For each
// match, the accepted matches of the same phrase that conflict with it are
// collected. With no conflicts it is accepted. Otherwise it replaces all of
// them if its score is strictly higher than every one, and is discarded if
// not, so ties keep the earlier match.
//
// Properties: no two survivors of one phrase conflict, the result is never
// longer than raw, and input without conflicts is returned in full whatever
// its order. For clusters of three or more conflicting matches the outcome
// depends on input order; that is the documented greedy behavior, not a
// global optimum.
//
// The result is sorted by position, then phrase, and keeps positions;
// callers strip them with StripPositions.
func Deduplicate(raw []Occurrence, radius int) []Occurrence {
	accepted := make(map[int][]Occurrence)

	for _, m := range raw {
		kept := accepted[m.Phrase]
		var conflicts []int
		for i, k := range kept {
			if abs(m.Position-k.Position) < radius {
				conflicts = append(conflicts, i)
			}
		}
		if len(conflicts) == 0 {
			accepted[m.Phrase] = append(kept, m)
			continue
		}
		better := true
		for _, i := range conflicts {
			if m.Score <= kept[i].Score {
				better = false
				break
			}
		}
		if !better {
			continue
		}
		next := kept[:0:0]
		ci := 0
		for i, k := range kept {
			if ci < len(conflicts) && conflicts[ci] == i {
				ci++
				continue
			}
			next = append(next, k)
		}
		accepted[m.Phrase] = append(next, m)
	}

	var out []Occurrence
	for _, kept := range accepted {
		out = append(out, kept...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].Phrase < out[j].Phrase
	})
	return out
}

// StripPositions clears the token position of every occurrence in place.
func StripPositions(occs []Occurrence) []Occurrence {
	for i := range occs {
		occs[i].Position = NoPosition
	}
	return occs
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
