// Package report turns aggregated detection results into a markdown
// report and CSV exports.
package report

import (
	"fmt"
	"strings"

	"github.com/TobiSchelling/ClicheCounter/internal/aggregate"
	"github.com/TobiSchelling/ClicheCounter/internal/database"
	"github.com/TobiSchelling/ClicheCounter/internal/vocab"
)

// favouritesShown is the number of favourite phrases listed per group.
const favouritesShown = 3

// Options controls grouping and ranking.
type Options struct {
	Normalization float64
	Bucket        aggregate.Bucket
	Rank          aggregate.RankOptions
}

func (o Options) unit() string {
	return fmt.Sprintf("per %s words", formatCount(int(o.Normalization)))
}

// Report is a composed report.
type Report struct {
	Title    string
	TLDR     []string
	Markdown string
}

// Compose builds the markdown report for rows.
func Compose(title string, rows []aggregate.Row, v *vocab.Vocabulary, opts Options) (*Report, error) {
	k := opts.Normalization
	n := v.Len()

	orgs, err := aggregate.Summarize(n, rows, aggregate.ByOrganization)
	if err != nil {
		return nil, err
	}
	speakers, err := aggregate.Summarize(n, rows, aggregate.BySpeaker)
	if err != nil {
		return nil, err
	}
	overall, err := aggregate.Summarize(n, rows, func(aggregate.Row) (aggregate.Key, bool) {
		return aggregate.Key{}, true
	})
	if err != nil {
		return nil, err
	}

	r := &Report{Title: title}
	r.TLDR = tldr(rows, orgs, speakers, overall, v, opts)

	var sections []string
	sections = append(sections, "# "+title)
	sections = append(sections, "## TL;DR\n\n"+bullets(r.TLDR))
	if len(rows) == 0 {
		r.Markdown = strings.Join(sections, "\n\n") + "\n"
		return r, nil
	}

	sections = append(sections, "## Organizations\n\n"+rankTable(orgs, v, opts, false))
	sections = append(sections, "## Speakers\n\n"+rankTable(speakers, v, opts, true))
	sections = append(sections, "## Favourite phrases\n\n"+favouritesSection(speakers, v))
	if len(overall) == 1 {
		sections = append(sections, "## Phrases\n\n"+phraseTable(overall[0], v, k))
	}
	if tl := timelineSection(rows, opts); tl != "" {
		sections = append(sections, tl)
	}

	r.Markdown = strings.Join(sections, "\n\n---\n\n") + "\n"
	return r, nil
}

func tldr(rows []aggregate.Row, orgs, speakers, overall []aggregate.Summary, v *vocab.Vocabulary, opts Options) []string {
	if len(rows) == 0 {
		return []string{"No transcripts have been analysed yet."}
	}
	k := opts.Normalization
	total := overall[0]

	lines := []string{fmt.Sprintf("%d transcripts, %s words, %d phrase occurrences (%.1f %s).",
		total.Documents, formatCount(total.Tokens), total.Total, total.Rate(k), opts.unit())}

	if ranked := aggregate.Rank(orgs, k, opts.Rank); len(ranked) > 0 {
		top := ranked[0]
		lines = append(lines, fmt.Sprintf("Most clichéd organization: **%s** at %.1f %s.",
			top.Key.Organization, top.Rate, opts.unit()))
		if len(ranked) > 1 {
			last := ranked[len(ranked)-1]
			lines = append(lines, fmt.Sprintf("Least clichéd organization: **%s** at %.1f %s.",
				last.Key.Organization, last.Rate, opts.unit()))
		}
	}
	if ranked := aggregate.Rank(speakers, k, opts.Rank); len(ranked) > 0 {
		top := ranked[0]
		lines = append(lines, fmt.Sprintf("Most clichéd speaker: **%s** (%s) at %.1f %s.",
			top.Key.Speaker, top.Key.Organization, top.Rate, opts.unit()))
	}
	if pc, ok := aggregate.MostUsed(total, v); ok {
		lines = append(lines, fmt.Sprintf("Most used phrase overall: \"%s\" (%d times).", pc.Phrase, pc.Count))
	}
	return lines
}

func rankTable(sums []aggregate.Summary, v *vocab.Vocabulary, opts Options, withSpeaker bool) string {
	ranked := aggregate.Rank(sums, opts.Normalization, opts.Rank)
	if len(ranked) == 0 {
		return "_No groups above the minimum volume._"
	}

	var sb strings.Builder
	if withSpeaker {
		sb.WriteString("| # | Speaker | Organization | Transcripts | Words | Clichés | Rate | Favourite |\n")
		sb.WriteString("|---|---|---|---:|---:|---:|---:|---|\n")
	} else {
		sb.WriteString("| # | Organization | Transcripts | Words | Clichés | Rate | Favourite |\n")
		sb.WriteString("|---|---|---:|---:|---:|---:|---|\n")
	}
	for _, r := range ranked {
		fav := "-"
		if pc, ok := aggregate.MostUsed(r.Summary, v); ok {
			fav = fmt.Sprintf("%s (%d)", pc.Phrase, pc.Count)
		}
		if withSpeaker {
			fmt.Fprintf(&sb, "| %d | %s | %s | %d | %s | %d | %.1f | %s |\n",
				r.Position, cell(r.Key.Speaker), cell(r.Key.Organization), r.Documents,
				formatCount(r.Tokens), r.Total, r.Rate, cell(fav))
		} else {
			fmt.Fprintf(&sb, "| %d | %s | %d | %s | %d | %.1f | %s |\n",
				r.Position, cell(r.Key.Organization), r.Documents,
				formatCount(r.Tokens), r.Total, r.Rate, cell(fav))
		}
	}
	fmt.Fprintf(&sb, "\nRates are %s.", opts.unit())
	return sb.String()
}

func favouritesSection(speakers []aggregate.Summary, v *vocab.Vocabulary) string {
	var sb strings.Builder
	for _, s := range speakers {
		favs := aggregate.Favourites(s, v)
		if len(favs) == 0 {
			continue
		}
		if len(favs) > favouritesShown {
			favs = favs[:favouritesShown]
		}
		var parts []string
		for _, f := range favs {
			parts = append(parts, fmt.Sprintf("\"%s\" × %d", f.Phrase, f.Count))
		}
		fmt.Fprintf(&sb, "- **%s** (%s): %s\n", s.Key.Speaker, s.Key.Organization, strings.Join(parts, ", "))
	}
	if sb.Len() == 0 {
		return "_No phrases detected._"
	}
	return strings.TrimRight(sb.String(), "\n")
}

func phraseTable(total aggregate.Summary, v *vocab.Vocabulary, k float64) string {
	var sb strings.Builder
	sb.WriteString("| Phrase | Count | Rate |\n|---|---:|---:|\n")
	for i, pc := range total.Phrases(v) {
		if pc.Count == 0 {
			continue
		}
		fmt.Fprintf(&sb, "| %s | %d | %.2f |\n", cell(pc.Phrase), pc.Count, total.PhraseRate(i, k))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func timelineSection(rows []aggregate.Row, opts Options) string {
	points := aggregate.Timeline(rows, opts.Bucket, opts.Normalization)
	if len(points) == 0 {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Timeline (%s)\n\n", opts.Bucket)
	sb.WriteString("Cumulative rate standings at the end of each period.\n\n")
	sb.WriteString("| Period | Standings |\n|---|---|\n")

	var period string
	var standings []string
	flush := func() {
		if period != "" {
			fmt.Fprintf(&sb, "| %s | %s |\n", database.FormatPeriodDisplay(period), strings.Join(standings, ", "))
		}
	}
	for _, p := range points {
		if p.Period != period {
			flush()
			period, standings = p.Period, nil
		}
		standings = append(standings, fmt.Sprintf("%d. %s (%.1f)", p.Rank, cell(p.Organization), p.CumRate))
	}
	flush()
	return strings.TrimRight(sb.String(), "\n")
}

func bullets(lines []string) string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = "- " + l
	}
	return strings.Join(out, "\n")
}

// cell escapes pipes for markdown table cells.
func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// formatCount renders n with thousands separators.
func formatCount(n int) string {
	s := fmt.Sprintf("%d", n)
	if n < 0 {
		return "-" + formatCount(-n)
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}
