package aggregate

import (
	"sort"
)

// Point is one organization in one time bucket of a timeline.
type Point struct {
	Organization string
	Period       string
	Total        int
	Tokens       int
	Rate         float64

	CumTotal  int
	CumTokens int
	CumRate   float64

	// Rank is the 1-based position among organizations in this bucket by
	// cumulative rate, highest first, ties by organization name.
	Rank int
}

// Timeline builds the full organization x bucket grid over the dated rows:
// every organization appears in every bucket seen in the data, with zero
// counts where it has no documents. Cumulative figures run over buckets in
// chronological order. Points are sorted by period, then rank.
func Timeline(rows []Row, b Bucket, k float64) []Point {
	type cell struct{ total, tokens int }
	cells := make(map[Key]*cell)
	orgSet := make(map[string]bool)
	periodSet := make(map[string]bool)

	for _, r := range rows {
		if r.Published == nil {
			continue
		}
		key := Key{Organization: r.Organization, Period: b.Label(*r.Published)}
		c, ok := cells[key]
		if !ok {
			c = &cell{}
			cells[key] = c
		}
		c.total += r.Counts.Total()
		c.tokens += r.Tokens
		orgSet[r.Organization] = true
		periodSet[key.Period] = true
	}

	orgs := sortedKeys(orgSet)
	periods := sortedKeys(periodSet)

	points := make([]Point, 0, len(orgs)*len(periods))
	for _, org := range orgs {
		cumTotal, cumTokens := 0, 0
		for _, period := range periods {
			p := Point{Organization: org, Period: period}
			if c, ok := cells[Key{Organization: org, Period: period}]; ok {
				p.Total, p.Tokens = c.total, c.tokens
			}
			cumTotal += p.Total
			cumTokens += p.Tokens
			p.Rate = rate(p.Total, p.Tokens, k)
			p.CumTotal, p.CumTokens = cumTotal, cumTokens
			p.CumRate = rate(cumTotal, cumTokens, k)
			points = append(points, p)
		}
	}

	sort.Slice(points, func(i, j int) bool {
		x, y := points[i], points[j]
		if x.Period != y.Period {
			return x.Period < y.Period
		}
		if x.CumRate != y.CumRate {
			return x.CumRate > y.CumRate
		}
		return x.Organization < y.Organization
	})
	for i := range points {
		if i > 0 && points[i].Period == points[i-1].Period {
			points[i].Rank = points[i-1].Rank + 1
		} else {
			points[i].Rank = 1
		}
	}
	return points
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
