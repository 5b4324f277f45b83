package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/TobiSchelling/ClicheCounter/internal/aggregate"
	"github.com/TobiSchelling/ClicheCounter/internal/database"
	"github.com/TobiSchelling/ClicheCounter/internal/vocab"
)

// Data is the input of a CSV export.
type Data struct {
	Transcripts []database.ScoredTranscript
	Rows        []aggregate.Row // parallel to Transcripts
	Vocab       *vocab.Vocabulary
	Options     Options
}

// Export file names.
const (
	TranscriptsFile   = "cliches_by_transcript.csv"
	FavouritesFile    = "favourite_cliches.csv"
	SpeakersFile      = "cliches_by_speaker.csv"
	OrganizationsFile = "cliches_by_organization.csv"
	TimelineFile      = "cliches_timeline.csv"
)

// WriteCSV writes the per-transcript, favourite-phrase, speaker,
// organization and timeline tables to dir and returns the written paths.
func WriteCSV(dir string, d *Data) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	writers := []struct {
		name  string
		write func(*Data) [][]string
	}{
		{TranscriptsFile, transcriptRecords},
		{FavouritesFile, favouriteRecords},
		{SpeakersFile, speakerRecords},
		{OrganizationsFile, organizationRecords},
		{TimelineFile, timelineRecords},
	}

	var paths []string
	for _, w := range writers {
		path := filepath.Join(dir, w.name)
		if err := writeFile(path, w.write(d)); err != nil {
			return paths, fmt.Errorf("writing %s: %w", w.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (d *Data) rateColumn() string {
	return fmt.Sprintf("cliches_per_%d_words", int(d.Options.Normalization))
}

func transcriptRecords(d *Data) [][]string {
	records := [][]string{{
		"organization", "speaker", "label", "url", "publish_date", d.Options.Bucket.String(),
		"word_count", "cliche_count", d.rateColumn(), "semantic_available",
	}}
	for i, st := range d.Transcripts {
		row := d.Rows[i]
		bucket := ""
		if row.Published != nil {
			bucket = d.Options.Bucket.Label(*row.Published)
		}
		records = append(records, []string{
			row.Organization,
			row.Speaker,
			deref(st.Label),
			st.URL,
			deref(st.PublishedDate),
			bucket,
			strconv.Itoa(row.Tokens),
			strconv.Itoa(row.Counts.Total()),
			formatRate(row.Rate(d.Options.Normalization)),
			strconv.FormatBool(st.SemanticAvailable),
		})
	}
	return records
}

func favouriteRecords(d *Data) [][]string {
	records := [][]string{{"organization", "speaker", "cliche", "count"}}
	sums, err := aggregate.Summarize(d.Vocab.Len(), d.Rows, aggregate.BySpeaker)
	if err != nil {
		return records
	}
	for _, s := range sums {
		for _, f := range aggregate.Favourites(s, d.Vocab) {
			records = append(records, []string{s.Key.Organization, s.Key.Speaker, f.Phrase, strconv.Itoa(f.Count)})
		}
	}
	return records
}

func speakerRecords(d *Data) [][]string {
	records := [][]string{{"organization", "speaker", "transcripts", "cliche_count", "word_count", d.rateColumn()}}
	sums, err := aggregate.Summarize(d.Vocab.Len(), d.Rows, aggregate.BySpeaker)
	if err != nil {
		return records
	}
	for _, s := range sums {
		records = append(records, []string{
			s.Key.Organization, s.Key.Speaker, strconv.Itoa(s.Documents),
			strconv.Itoa(s.Total), strconv.Itoa(s.Tokens), formatRate(s.Rate(d.Options.Normalization)),
		})
	}
	return records
}

func organizationRecords(d *Data) [][]string {
	records := [][]string{{"organization", "transcripts", "cliche_count", "word_count", d.rateColumn(), "rank"}}
	sums, err := aggregate.Summarize(d.Vocab.Len(), d.Rows, aggregate.ByOrganization)
	if err != nil {
		return records
	}
	for _, r := range aggregate.Rank(sums, d.Options.Normalization, aggregate.RankOptions{MinTokens: d.Options.Rank.MinTokens}) {
		records = append(records, []string{
			r.Key.Organization, strconv.Itoa(r.Documents), strconv.Itoa(r.Total),
			strconv.Itoa(r.Tokens), formatRate(r.Rate), strconv.Itoa(r.Position),
		})
	}
	return records
}

func timelineRecords(d *Data) [][]string {
	records := [][]string{{
		"organization", d.Options.Bucket.String(), "cliche_count", "word_count", d.rateColumn(),
		"cum_cliche_count", "cum_word_count", "cum_" + d.rateColumn(), "rank",
	}}
	for _, p := range aggregate.Timeline(d.Rows, d.Options.Bucket, d.Options.Normalization) {
		records = append(records, []string{
			p.Organization, p.Period, strconv.Itoa(p.Total), strconv.Itoa(p.Tokens), formatRate(p.Rate),
			strconv.Itoa(p.CumTotal), strconv.Itoa(p.CumTokens), formatRate(p.CumRate), strconv.Itoa(p.Rank),
		})
	}
	return records
}

func formatRate(r float64) string {
	return strconv.FormatFloat(r, 'f', 4, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
