package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/TobiSchelling/ClicheCounter/internal/tenure"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(s string) *string { return &s }

func insertTestTranscript(t *testing.T, db *DB, url, org string, text *string) int64 {
	t.Helper()
	id, err := db.InsertTranscript(Transcript{
		URL:           url,
		Organization:  org,
		PublishedDate: ptr("2024-09-02"),
		Text:          text,
	})
	if err != nil {
		t.Fatalf("InsertTranscript: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected non-zero id for %s", url)
	}
	return id
}

func TestInsertTranscript(t *testing.T) {
	db := openTestDB(t)
	id := insertTestTranscript(t, db, "https://youtube.com/watch?v=a", "Arsenal", ptr("we are over the moon"))

	tr, err := db.GetTranscriptByID(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Organization != "Arsenal" {
		t.Errorf("expected Arsenal, got %q", tr.Organization)
	}
	if !tr.TextFetched {
		t.Error("expected text_fetched to be set for transcripts imported with text")
	}
	if tr.Source != SourceCSV {
		t.Errorf("expected default source %q, got %q", SourceCSV, tr.Source)
	}
	if p := tr.Published(); p == nil || p.Month() != time.September {
		t.Errorf("unexpected published date %v", p)
	}
}

func TestInsertDuplicateTranscript(t *testing.T) {
	db := openTestDB(t)
	insertTestTranscript(t, db, "https://dup", "A", nil)
	id, err := db.InsertTranscript(Transcript{URL: "https://dup", Organization: "B"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 0 {
		t.Error("expected 0 for duplicate transcript")
	}
}

func TestGetTranscriptByIDMissing(t *testing.T) {
	db := openTestDB(t)
	tr, err := db.GetTranscriptByID(42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr != nil {
		t.Error("expected nil for missing transcript")
	}
}

func TestTranscriptsNeedingFetch(t *testing.T) {
	db := openTestDB(t)
	id := insertTestTranscript(t, db, "https://a", "A", nil)
	insertTestTranscript(t, db, "https://b", "A", ptr("Some text"))

	needing, err := db.GetTranscriptsNeedingFetch()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(needing) != 1 || needing[0].ID != id {
		t.Fatalf("expected only transcript %d to need fetching, got %+v", id, needing)
	}

	if err := db.UpdateTranscriptText(id, "Fetched text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	needing, _ = db.GetTranscriptsNeedingFetch()
	if len(needing) != 0 {
		t.Errorf("expected nothing to fetch, got %d", len(needing))
	}

	id3 := insertTestTranscript(t, db, "https://c", "A", nil)
	if err := db.MarkFetchAttempted(id3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	needing, _ = db.GetTranscriptsNeedingFetch()
	if len(needing) != 0 {
		t.Error("expected attempted fetch to be skipped")
	}
}

func TestDetectionLifecycle(t *testing.T) {
	db := openTestDB(t)
	a := insertTestTranscript(t, db, "https://a", "Arsenal", ptr("over the moon"))
	b := insertTestTranscript(t, db, "https://b", "Burnley", ptr("park the bus"))
	insertTestTranscript(t, db, "https://c", "Burnley", nil)

	pending, err := db.GetTranscriptsForDetection(false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 transcripts to detect, got %d", len(pending))
	}

	err = db.SaveDetection(
		TranscriptStats{TranscriptID: a, TokenCount: 3, TotalCount: 2, SemanticAvailable: true},
		[]Detection{{Phrase: "over the moon", Exact: 1, Fuzzy: 1}, {Phrase: "park the bus"}},
	)
	if err != nil {
		t.Fatalf("SaveDetection: %v", err)
	}
	errText := "embedding failed"
	err = db.SaveDetection(
		TranscriptStats{TranscriptID: b, TokenCount: 3, TotalCount: 1, Error: &errText},
		[]Detection{{Phrase: "park the bus", Exact: 1}},
	)
	if err != nil {
		t.Fatalf("SaveDetection: %v", err)
	}

	pending, _ = db.GetTranscriptsForDetection(false)
	if len(pending) != 0 {
		t.Errorf("expected no pending transcripts, got %d", len(pending))
	}
	all, _ := db.GetTranscriptsForDetection(true)
	if len(all) != 2 {
		t.Errorf("expected 2 transcripts when re-detecting all, got %d", len(all))
	}

	dets, err := db.GetDetections(a)
	if err != nil {
		t.Fatalf("GetDetections: %v", err)
	}
	if len(dets) != 1 || dets[0].Total() != 2 {
		t.Errorf("expected one stored detection with total 2, got %+v", dets)
	}

	stats, err := db.GetTranscriptStats(b)
	if err != nil {
		t.Fatalf("GetTranscriptStats: %v", err)
	}
	if stats == nil || stats.SemanticAvailable || stats.Error == nil {
		t.Errorf("unexpected stats %+v", stats)
	}

	scored, err := db.GetScoredTranscripts()
	if err != nil {
		t.Fatalf("GetScoredTranscripts: %v", err)
	}
	if len(scored) != 2 {
		t.Fatalf("expected 2 scored transcripts, got %d", len(scored))
	}
	if scored[0].Counts["over the moon"] != 2 || scored[0].TokenCount != 3 {
		t.Errorf("unexpected first scored transcript %+v", scored[0])
	}

	totals, err := db.GetPhraseTotals()
	if err != nil {
		t.Fatalf("GetPhraseTotals: %v", err)
	}
	want := []PhraseTotal{
		{Organization: "Arsenal", Phrase: "over the moon", Count: 2},
		{Organization: "Burnley", Phrase: "park the bus", Count: 1},
	}
	if len(totals) != len(want) {
		t.Fatalf("expected %d totals, got %+v", len(want), totals)
	}
	for i := range want {
		if totals[i] != want[i] {
			t.Errorf("total %d: expected %+v, got %+v", i, want[i], totals[i])
		}
	}
}

func TestDetectionIncludesEmptyText(t *testing.T) {
	db := openTestDB(t)
	empty := insertTestTranscript(t, db, "https://empty", "Arsenal", ptr(""))
	insertTestTranscript(t, db, "https://stub", "Arsenal", nil)

	needing, err := db.GetTranscriptsNeedingFetch()
	if err != nil {
		t.Fatalf("GetTranscriptsNeedingFetch: %v", err)
	}
	if len(needing) != 1 || needing[0].URL != "https://stub" {
		t.Errorf("expected only the stub to need fetching, got %+v", needing)
	}

	pending, err := db.GetTranscriptsForDetection(false)
	if err != nil {
		t.Fatalf("GetTranscriptsForDetection: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != empty {
		t.Fatalf("expected the empty transcript to be pending, got %+v", pending)
	}

	if err := db.SaveDetection(TranscriptStats{TranscriptID: empty, SemanticAvailable: true}, nil); err != nil {
		t.Fatalf("SaveDetection: %v", err)
	}
	pending, _ = db.GetTranscriptsForDetection(false)
	if len(pending) != 0 {
		t.Errorf("expected nothing pending after detection, got %d", len(pending))
	}
}

func TestSaveDetectionReplaces(t *testing.T) {
	db := openTestDB(t)
	id := insertTestTranscript(t, db, "https://a", "A", ptr("text"))

	_ = db.SaveDetection(TranscriptStats{TranscriptID: id, TokenCount: 1, TotalCount: 3},
		[]Detection{{Phrase: "x", Exact: 3}})
	_ = db.SaveDetection(TranscriptStats{TranscriptID: id, TokenCount: 1, TotalCount: 1},
		[]Detection{{Phrase: "y", Fuzzy: 1}})

	dets, _ := db.GetDetections(id)
	if len(dets) != 1 || dets[0].Phrase != "y" {
		t.Errorf("expected detections to be replaced, got %+v", dets)
	}
}

func TestTenuresRoundTrip(t *testing.T) {
	db := openTestDB(t)
	end := time.Date(2024, 5, 21, 0, 0, 0, 0, time.UTC)
	in := []tenure.Tenure{
		{Organization: "Chelsea", Speaker: "Pochettino", Start: time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC), End: &end},
		{Organization: "Chelsea", Speaker: "Maresca", Start: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)},
	}
	if err := db.ReplaceTenures(in); err != nil {
		t.Fatalf("ReplaceTenures: %v", err)
	}
	if err := db.ReplaceTenures(in); err != nil {
		t.Fatalf("ReplaceTenures again: %v", err)
	}

	out, err := db.GetTenures()
	if err != nil {
		t.Fatalf("GetTenures: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 tenures, got %d", len(out))
	}
	if out[0].Speaker != "Pochettino" || out[0].End == nil || !out[0].End.Equal(end) {
		t.Errorf("unexpected first tenure %+v", out[0])
	}
	if out[1].End != nil {
		t.Error("expected open-ended tenure")
	}
}

func TestRunsAndReports(t *testing.T) {
	db := openTestDB(t)
	if err := db.StartRun("run-1"); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := db.FinishRun("run-1", 10, 1, RunComplete); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	runs, err := db.GetRuns()
	if err != nil {
		t.Fatalf("GetRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].Documents != 10 || runs[0].Failed != 1 || runs[0].Status != RunComplete {
		t.Errorf("unexpected runs %+v", runs)
	}
	if runs[0].FinishedAt == nil {
		t.Error("expected finished_at to be set")
	}

	id, err := db.InsertReport("run-1", "Cliché report", "# Report")
	if err != nil {
		t.Fatalf("InsertReport: %v", err)
	}
	r, err := db.GetReport(id)
	if err != nil || r == nil {
		t.Fatalf("GetReport: %v", err)
	}
	if r.BodyMarkdown != "# Report" {
		t.Errorf("unexpected body %q", r.BodyMarkdown)
	}

	latest, _ := db.GetLatestReport()
	if latest == nil || latest.ID != id {
		t.Errorf("expected latest report %d, got %+v", id, latest)
	}
	all, _ := db.GetAllReports()
	if len(all) != 1 || all[0].BodyMarkdown != "" {
		t.Errorf("expected one report listing without body, got %+v", all)
	}

	missing, err := db.GetReport(999)
	if err != nil || missing != nil {
		t.Errorf("expected nil for missing report, got %+v, %v", missing, err)
	}
}

func TestGetStats(t *testing.T) {
	db := openTestDB(t)
	insertTestTranscript(t, db, "https://a", "A", ptr("text"))
	insertTestTranscript(t, db, "https://b", "B", nil)

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.Transcripts != 2 || stats.WithText != 1 || stats.Organizations != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestGetOrganizations(t *testing.T) {
	db := openTestDB(t)
	insertTestTranscript(t, db, "https://a", "Burnley", nil)
	insertTestTranscript(t, db, "https://b", "Arsenal", nil)
	insertTestTranscript(t, db, "https://c", "Arsenal", nil)

	orgs, err := db.GetOrganizations()
	if err != nil {
		t.Fatalf("GetOrganizations: %v", err)
	}
	if len(orgs) != 2 || orgs[0] != "Arsenal" {
		t.Errorf("unexpected organizations %v", orgs)
	}
}

func TestFormatPeriodDisplay(t *testing.T) {
	tests := map[string]string{
		"2024-01-15": "Week of Jan 15, 2024",
		"2024-01":    "Jan 2024",
		"whenever":   "whenever",
	}
	for in, want := range tests {
		if got := FormatPeriodDisplay(in); got != want {
			t.Errorf("FormatPeriodDisplay(%q) = %q, want %q", in, got, want)
		}
	}
}
