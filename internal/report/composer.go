package report

import (
	"log"

	"github.com/TobiSchelling/ClicheCounter/internal/database"
	"github.com/TobiSchelling/ClicheCounter/internal/tenure"
	"github.com/TobiSchelling/ClicheCounter/internal/vocab"
)

// Composer composes reports from the stored detections and saves them.
type Composer struct {
	db      *database.DB
	vocab   *vocab.Vocabulary
	tenures tenure.Options
	opts    Options
}

// NewComposer creates a new report composer.
func NewComposer(db *database.DB, v *vocab.Vocabulary, tenures tenure.Options, opts Options) *Composer {
	return &Composer{db: db, vocab: v, tenures: tenures, opts: opts}
}

// Build loads the stored detections and composes the report without
// saving it.
func (c *Composer) Build(title string) (*Report, error) {
	data, err := c.Load()
	if err != nil {
		return nil, err
	}
	return Compose(title, data.Rows, c.vocab, c.opts)
}

// ComposeReport composes the report for a run and stores it.
func (c *Composer) ComposeReport(runID, title string) (*database.Report, error) {
	r, err := c.Build(title)
	if err != nil {
		return nil, err
	}
	id, err := c.db.InsertReport(runID, r.Title, r.Markdown)
	if err != nil {
		return nil, err
	}
	log.Printf("Report composed: %s", r.Title)
	return c.db.GetReport(id)
}

// Load reads the stored detections and tenures into an export data set.
func (c *Composer) Load() (*Data, error) {
	scored, err := c.db.GetScoredTranscripts()
	if err != nil {
		return nil, err
	}
	stored, err := c.db.GetTenures()
	if err != nil {
		return nil, err
	}
	ix := tenure.NewIndex(stored, c.tenures)
	return &Data{
		Transcripts: scored,
		Rows:        Rows(scored, c.vocab, ix),
		Vocab:       c.vocab,
		Options:     c.opts,
	}, nil
}
