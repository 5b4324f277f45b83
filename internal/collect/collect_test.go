package collect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TobiSchelling/ClicheCounter/internal/config"
	"github.com/TobiSchelling/ClicheCounter/internal/database"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

const playlistFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015" xmlns="http://www.w3.org/2005/Atom">
  <title>Press conferences</title>
  <entry>
    <id>yt:video:abc123</id>
    <yt:videoId>abc123</yt:videoId>
    <title>Pre-match press conference</title>
    <link rel="alternate" href="https://www.youtube.com/watch?v=abc123"/>
    <published>2024-09-13T12:00:00+00:00</published>
  </entry>
  <entry>
    <id>yt:video:def456</id>
    <title>Post-match reaction</title>
    <link rel="alternate" href="https://www.youtube.com/watch?v=def456"/>
    <published>2024-09-14T18:30:00+00:00</published>
  </entry>
</feed>`

func TestCollectPlaylist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		w.Write([]byte(playlistFeed))
	}))
	defer srv.Close()

	cfg := &config.Config{}
	cfg.Sources.Playlists = []config.Playlist{
		{Organization: "Arsenal", Speaker: "Mikel Arteta", Label: "Press", URL: srv.URL},
	}
	db := openTestDB(t)
	c := NewCollector(cfg, db)
	if !c.HasSources() {
		t.Fatal("expected configured sources")
	}

	res := c.Collect(context.Background())
	if res.NewTranscripts != 2 {
		t.Fatalf("expected 2 new transcripts, got %d", res.NewTranscripts)
	}
	if res.Organizations["Arsenal"] != 2 {
		t.Errorf("expected 2 for Arsenal, got %v", res.Organizations)
	}

	again := c.Collect(context.Background())
	if again.Duplicates != 2 || again.NewTranscripts != 0 {
		t.Errorf("expected 2 duplicates on second run, got %+v", again)
	}

	transcripts, err := db.GetTranscripts("Arsenal")
	if err != nil {
		t.Fatalf("GetTranscripts: %v", err)
	}
	first := transcripts[0]
	if first.VideoID == nil || *first.VideoID != "abc123" {
		t.Errorf("expected video id abc123, got %v", first.VideoID)
	}
	if first.PublishedDate == nil || *first.PublishedDate != "2024-09-13" {
		t.Errorf("unexpected published date %v", first.PublishedDate)
	}
	if first.Speaker == nil || *first.Speaker != "Mikel Arteta" {
		t.Errorf("unexpected speaker %v", first.Speaker)
	}
	if first.Source != database.SourcePlaylist || first.Text != nil {
		t.Errorf("expected a playlist stub without text, got %+v", first)
	}
	// The second entry has no yt:videoId; the ID comes from the watch URL.
	if transcripts[1].VideoID == nil || *transcripts[1].VideoID != "def456" {
		t.Errorf("expected video id from URL, got %v", transcripts[1].VideoID)
	}
}

func TestCollectFailingFeedIsSkipped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	cfg := &config.Config{}
	cfg.Sources.Playlists = []config.Playlist{{Organization: "A", URL: srv.URL}}
	res := NewCollector(cfg, openTestDB(t)).Collect(context.Background())
	if res.TotalFound != 0 {
		t.Errorf("expected nothing collected, got %+v", res)
	}
}

func TestImportCSV(t *testing.T) {
	data := `club,manager,playlist_label,video_id,video_url,transcript_text,publish_date
Arsenal,Mikel Arteta,Press,abc,https://www.youtube.com/watch?v=abc,"We are over the moon, honestly.",2024-09-13
Burnley,,Press,def,,"They will park the bus.",2024-09-14
Chelsea,,,,,no url here,2024-09-15
`
	db := openTestDB(t)
	res, err := ImportCSV(db, strings.NewReader(data))
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if res.NewTranscripts != 2 {
		t.Fatalf("expected 2 new transcripts, got %+v", res)
	}

	burnley, _ := db.GetTranscripts("Burnley")
	if len(burnley) != 1 {
		t.Fatalf("expected one Burnley transcript, got %d", len(burnley))
	}
	if burnley[0].URL != "https://www.youtube.com/watch?v=def" {
		t.Errorf("expected URL built from video id, got %q", burnley[0].URL)
	}
	if burnley[0].Speaker != nil {
		t.Errorf("expected no speaker, got %q", *burnley[0].Speaker)
	}
	if burnley[0].Text == nil || *burnley[0].Text != "They will park the bus." {
		t.Errorf("unexpected text %v", burnley[0].Text)
	}

	res, err = ImportCSV(db, strings.NewReader(data))
	if err != nil {
		t.Fatalf("second ImportCSV: %v", err)
	}
	if res.Duplicates != 2 {
		t.Errorf("expected 2 duplicates, got %+v", res)
	}
}

func TestImportCSVMissingColumns(t *testing.T) {
	_, err := ImportCSV(openTestDB(t), strings.NewReader("club,video_url\nA,https://x\n"))
	if err == nil || !strings.Contains(err.Error(), "transcript_text") {
		t.Errorf("expected missing column error, got %v", err)
	}
}

func TestImportPathDirectory(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "week1.txt"), []byte("  At the end of the day we won.\n"), 0o644)
	os.WriteFile(filepath.Join(dir, "week2.txt"), []byte("Over the moon."), 0o644)
	os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0o644)

	db := openTestDB(t)
	res, err := ImportPath(db, dir, FileOptions{Organization: "Arsenal", PublishedDate: "2024-09-13"})
	if err != nil {
		t.Fatalf("ImportPath: %v", err)
	}
	if res.NewTranscripts != 2 {
		t.Fatalf("expected 2 imported files, got %+v", res)
	}

	transcripts, _ := db.GetTranscripts("Arsenal")
	var labels []string
	for _, tr := range transcripts {
		labels = append(labels, *tr.Label)
		if tr.Source != database.SourceFile {
			t.Errorf("expected file source, got %q", tr.Source)
		}
		if !strings.HasPrefix(tr.URL, "file://") {
			t.Errorf("expected file URL, got %q", tr.URL)
		}
	}
	joined := strings.Join(labels, ",")
	if !strings.Contains(joined, "week1") || !strings.Contains(joined, "week2") {
		t.Errorf("expected labels from file names, got %v", labels)
	}
}

func TestImportPathRequiresOrganization(t *testing.T) {
	if _, err := ImportPath(openTestDB(t), t.TempDir(), FileOptions{}); err == nil {
		t.Error("expected error without organization")
	}
}

func TestReadTranscriptFileUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "talk.docx")
	os.WriteFile(path, []byte("x"), 0o644)
	if _, err := ReadTranscriptFile(path); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestStripHTML(t *testing.T) {
	got := stripHTML("<p>We&#39;re <b>over</b> the moon &amp; proud</p>")
	if got != "We're over the moon & proud" {
		t.Errorf("unexpected %q", got)
	}
}
