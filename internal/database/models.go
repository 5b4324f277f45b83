package database

import (
	"time"

	"github.com/TobiSchelling/ClicheCounter/internal/tenure"
)

// Transcript sources.
const (
	SourceCSV      = "csv"
	SourcePlaylist = "playlist"
	SourceFile     = "file"
)

// Transcript is one collected transcript.
type Transcript struct {
	ID            int64
	URL           string
	VideoID       *string
	Organization  string
	Speaker       *string
	Label         *string
	PublishedDate *string
	Text          *string
	TextFetched   bool
	Source        string
	CollectedAt   *string
}

// Published parses PublishedDate. It returns nil when the date is missing
// or unparseable.
func (t Transcript) Published() *time.Time {
	if t.PublishedDate == nil || *t.PublishedDate == "" {
		return nil
	}
	p, err := tenure.ParseDate(*t.PublishedDate)
	if err != nil {
		return nil
	}
	return &p
}

// Detection holds the per-strategy counts of one phrase in one transcript.
type Detection struct {
	Phrase   string
	Exact    int
	Fuzzy    int
	Semantic int
}

// Total returns the combined count.
func (d Detection) Total() int { return d.Exact + d.Fuzzy + d.Semantic }

// TranscriptStats summarizes the last detection of a transcript.
type TranscriptStats struct {
	TranscriptID      int64
	TokenCount        int
	TotalCount        int
	SemanticAvailable bool
	Error             *string
	DetectedAt        *string
}

// ScoredTranscript is a transcript with its detection results, ready for
// aggregation.
type ScoredTranscript struct {
	Transcript
	TokenCount        int
	SemanticAvailable bool
	Counts            map[string]int // phrase -> combined count
}

// PhraseTotal is the combined count of a phrase for one organization.
type PhraseTotal struct {
	Organization string
	Phrase       string
	Count        int
}

// Run holds metadata about a pipeline run.
type Run struct {
	ID         string
	StartedAt  string
	FinishedAt *string
	Documents  int
	Failed     int
	Status     string
}

// Report is a stored markdown report.
type Report struct {
	ID           int64
	RunID        string
	Title        string
	BodyMarkdown string
	GeneratedAt  *string
}

// Stats contains aggregate database statistics.
type Stats struct {
	Transcripts   int
	WithText      int
	Detected      int
	Organizations int
	Tenures       int
	Runs          int
	Reports       int
}
