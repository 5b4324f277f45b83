package collect

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/TobiSchelling/ClicheCounter/internal/database"
)

// transcriptColumns are the header names of a transcript CSV export.
var transcriptColumns = []string{
	"club", "manager", "playlist_label", "video_id", "video_url", "transcript_text", "publish_date",
}

// ImportCSVFile imports transcripts from a CSV file.
func ImportCSVFile(db *database.DB, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return ImportCSV(db, f)
}

// ImportCSV imports transcripts from CSV with a header row. The columns
// club, video_url and transcript_text are required; manager,
// playlist_label, video_id and publish_date are optional. Rows without a
// URL fall back to the video ID; rows with neither are skipped.
func ImportCSV(db *database.DB, r io.Reader) (*Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, required := range []string{"club", "video_url", "transcript_text"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("CSV is missing column %q (expected %s)", required, strings.Join(transcriptColumns, ", "))
		}
	}

	get := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	optional := func(s string) *string {
		if s == "" {
			return nil
		}
		return &s
	}

	res := newResult()
	skipped := 0
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, fmt.Errorf("reading CSV line %d: %w", line, err)
		}

		url := get(rec, "video_url")
		vid := get(rec, "video_id")
		if url == "" && vid != "" {
			url = "https://www.youtube.com/watch?v=" + vid
		}
		org := get(rec, "club")
		if url == "" || org == "" {
			skipped++
			continue
		}

		t := database.Transcript{
			URL:           url,
			VideoID:       optional(vid),
			Organization:  org,
			Speaker:       optional(get(rec, "manager")),
			Label:         optional(get(rec, "playlist_label")),
			PublishedDate: optional(get(rec, "publish_date")),
			Text:          optional(get(rec, "transcript_text")),
			Source:        database.SourceCSV,
		}
		if err := res.record(db, t); err != nil {
			return res, fmt.Errorf("storing CSV line %d: %w", line, err)
		}
	}

	if skipped > 0 {
		log.Printf("Skipped %d CSV rows without club or URL", skipped)
	}
	log.Printf("CSV import complete: %d rows, %d new, %d duplicates", res.TotalFound, res.NewTranscripts, res.Duplicates)
	return res, nil
}
