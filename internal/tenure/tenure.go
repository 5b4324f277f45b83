// Package tenure attributes documents to speakers by publication date.
//
// An organization's tenures are normalized once (blacklisted speakers
// removed, each open or overlapping end clipped to the successor's start)
// and then queried by binary search.
package tenure

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"time"
)

// Unknown is the speaker assigned when no tenure covers a date.
const Unknown = "Unknown"

// Tenure is one speaker's period at an organization. A nil End means the
// tenure is ongoing.
type Tenure struct {
	Organization string
	Speaker      string
	Start        time.Time
	End          *time.Time
}

// Covers reports whether t falls within the tenure, bounds inclusive.
func (tn Tenure) Covers(t time.Time) bool {
	if t.Before(tn.Start) {
		return false
	}
	return tn.End == nil || !t.After(*tn.End)
}

// Options controls normalization.
type Options struct {
	Blacklist []string
	// MinDays drops finished tenures shorter than this many days.
	MinDays int
}

// Index answers speaker lookups for an organization and date.
type Index struct {
	byOrg map[string][]Tenure
}

// NewIndex normalizes tenures and builds the lookup index.
func NewIndex(tenures []Tenure, opts Options) *Index {
	ix := &Index{byOrg: make(map[string][]Tenure)}
	for _, tn := range Normalize(tenures, opts) {
		ix.byOrg[tn.Organization] = append(ix.byOrg[tn.Organization], tn)
	}
	return ix
}

// Normalize removes blacklisted speakers and too-short stints, sorts the
// remainder by organization and start, and sets each tenure's end to its
// successor's start when the end is missing or later.
func Normalize(tenures []Tenure, opts Options) []Tenure {
	blocked := make(map[string]bool, len(opts.Blacklist))
	for _, name := range opts.Blacklist {
		blocked[name] = true
	}

	out := make([]Tenure, 0, len(tenures))
	removed := 0
	for _, tn := range tenures {
		if blocked[tn.Speaker] {
			removed++
			continue
		}
		if opts.MinDays > 0 && tn.End != nil && tn.End.Sub(tn.Start) < time.Duration(opts.MinDays)*24*time.Hour {
			removed++
			continue
		}
		out = append(out, tn)
	}
	if removed > 0 {
		log.Printf("Removed %d blacklisted or short tenures", removed)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Organization != out[j].Organization {
			return out[i].Organization < out[j].Organization
		}
		return out[i].Start.Before(out[j].Start)
	})

	for i := 0; i+1 < len(out); i++ {
		next := out[i+1]
		if next.Organization != out[i].Organization {
			continue
		}
		if out[i].End == nil || out[i].End.After(next.Start) {
			end := next.Start
			out[i].End = &end
		}
	}

	// An end before its own start cannot be covered by any date.
	valid := out[:0]
	for _, tn := range out {
		if tn.End != nil && tn.End.Before(tn.Start) {
			continue
		}
		valid = append(valid, tn)
	}
	return valid
}

// Assign returns the speaker whose tenure at org covers t, or Unknown.
// On a handover date covered by two tenures the earlier one wins.
func (ix *Index) Assign(org string, t time.Time) string {
	tenures := ix.byOrg[org]
	// Normalized ends are non-decreasing, so the first tenure ending at or
	// after t is the only candidate.
	i := sort.Search(len(tenures), func(i int) bool {
		end := tenures[i].End
		return end == nil || !end.Before(t)
	})
	if i < len(tenures) && tenures[i].Covers(t) {
		return tenures[i].Speaker
	}
	return Unknown
}

// Tenures returns the normalized tenures of org.
func (ix *Index) Tenures(org string) []Tenure {
	return append([]Tenure(nil), ix.byOrg[org]...)
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}

// ParseDate accepts a plain date, RFC 3339 or "YYYY-MM-DD hh:mm:ss".
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// ReadCSV reads tenures from CSV with a header row naming the columns
// club, manager, start_date and end_date (organization, speaker, start and
// end are accepted too). Rows without a start date are skipped; an empty
// end date means ongoing.
func ReadCSV(r io.Reader) ([]Tenure, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading tenure header: %w", err)
	}
	col := columnIndex(header)
	orgCol, okOrg := col.find("club", "organization")
	speakerCol, okSpeaker := col.find("manager", "speaker")
	startCol, okStart := col.find("start_date", "start")
	endCol, _ := col.find("end_date", "end")
	if !okOrg || !okSpeaker || !okStart {
		return nil, errors.New("tenure CSV needs club, manager and start_date columns")
	}

	var tenures []Tenure
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading tenure line %d: %w", line, err)
		}
		startRaw := field(rec, startCol)
		if startRaw == "" {
			continue
		}
		start, err := ParseDate(startRaw)
		if err != nil {
			return nil, fmt.Errorf("tenure line %d: %w", line, err)
		}
		tn := Tenure{
			Organization: field(rec, orgCol),
			Speaker:      field(rec, speakerCol),
			Start:        start,
		}
		if endRaw := field(rec, endCol); endRaw != "" {
			end, err := ParseDate(endRaw)
			if err != nil {
				return nil, fmt.Errorf("tenure line %d: %w", line, err)
			}
			tn.End = &end
		}
		tenures = append(tenures, tn)
	}
	return tenures, nil
}

type columnIndex []string

func (c columnIndex) find(names ...string) (int, bool) {
	for _, name := range names {
		for i, h := range c {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i, true
			}
		}
	}
	return -1, false
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
