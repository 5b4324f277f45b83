package collect

import (
	"context"
	"log"

	"github.com/TobiSchelling/ClicheCounter/internal/config"
	"github.com/TobiSchelling/ClicheCounter/internal/database"
)

// Result holds the results of a collection run.
type Result struct {
	TotalFound     int
	NewTranscripts int
	Duplicates     int
	Organizations  map[string]int
}

func newResult() *Result {
	return &Result{Organizations: make(map[string]int)}
}

func (r *Result) record(db *database.DB, t database.Transcript) error {
	r.TotalFound++
	id, err := db.InsertTranscript(t)
	if err != nil {
		return err
	}
	if id > 0 {
		r.NewTranscripts++
		r.Organizations[t.Organization]++
	} else {
		r.Duplicates++
	}
	return nil
}

// Collector gathers transcript stubs from the configured playlist feeds.
type Collector struct {
	db     *database.DB
	parser *PlaylistParser
}

// NewCollector creates a new transcript collector.
func NewCollector(cfg *config.Config, db *database.DB) *Collector {
	c := &Collector{db: db}
	if len(cfg.Sources.Playlists) > 0 {
		playlists := make([]Playlist, len(cfg.Sources.Playlists))
		for i, p := range cfg.Sources.Playlists {
			playlists[i] = Playlist{
				URL:          p.URL,
				Organization: p.Organization,
				Speaker:      p.Speaker,
				Label:        p.Label,
			}
		}
		c.parser = NewPlaylistParser(playlists)
	}
	return c
}

// HasSources reports whether any playlist is configured.
func (c *Collector) HasSources() bool { return c.parser != nil }

// Collect collects transcript stubs from all configured playlists.
func (c *Collector) Collect(ctx context.Context) *Result {
	r := newResult()
	if c.parser == nil {
		log.Println("No playlists configured")
		return r
	}

	log.Println("Collecting from playlist feeds...")
	for _, entry := range c.parser.ParseAll(ctx) {
		if err := r.record(c.db, entry.transcript()); err != nil {
			log.Printf("Failed to store %s: %v", entry.URL, err)
		}
	}

	log.Printf("Collection complete: %d found, %d new, %d duplicates", r.TotalFound, r.NewTranscripts, r.Duplicates)
	return r
}
