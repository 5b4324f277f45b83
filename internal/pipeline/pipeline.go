package pipeline

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/TobiSchelling/ClicheCounter/internal/collect"
	"github.com/TobiSchelling/ClicheCounter/internal/config"
	"github.com/TobiSchelling/ClicheCounter/internal/database"
	"github.com/TobiSchelling/ClicheCounter/internal/detect"
	"github.com/TobiSchelling/ClicheCounter/internal/embedding"
	"github.com/TobiSchelling/ClicheCounter/internal/fetch"
	"github.com/TobiSchelling/ClicheCounter/internal/observe"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	RunID    string
	ReportID int64
	Steps    []StepResult
}

// Failed reports whether any step failed.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// DetectResult summarizes a detection pass.
type DetectResult struct {
	Documents           int
	Occurrences         int
	SemanticUnavailable int
	Failures            []detect.Failure
}

// Pipeline orchestrates the 5-step collect, fetch, detect, aggregate and
// report run.
type Pipeline struct {
	cfg     *config.Config
	db      *database.DB
	metrics *observe.Metrics

	newEmbedder func() (embedding.Embedder, func() error, error)
}

// New creates a new pipeline. metrics may be nil.
func New(cfg *config.Config, db *database.DB, metrics *observe.Metrics) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		db:      db,
		metrics: metrics,
		newEmbedder: func() (embedding.Embedder, func() error, error) {
			return embedding.New(EmbeddingSettings(cfg))
		},
	}
}

// Run executes the full 5-step pipeline.
func (p *Pipeline) Run(ctx context.Context) *Result {
	r := &Result{RunID: uuid.NewString()}
	if err := p.db.StartRun(r.RunID); err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Run", Err: fmt.Errorf("recording run: %w", err)})
		return r
	}

	// Step 1: Collect
	r.Steps = append(r.Steps, p.runCollect(ctx))

	// Step 2: Fetch transcript text
	r.Steps = append(r.Steps, p.runFetch(ctx))

	// Step 3: Detect
	det, step := p.runDetect(ctx)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		p.finish(r.RunID, det, database.RunFailed)
		return r
	}

	// Step 4: Aggregate
	step = p.runAggregate()
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		p.finish(r.RunID, det, database.RunFailed)
		return r
	}

	// Step 5: Report
	step, r.ReportID = p.runReport(r.RunID)
	r.Steps = append(r.Steps, step)

	status := database.RunComplete
	if step.Err != nil {
		status = database.RunFailed
	}
	p.finish(r.RunID, det, status)
	return r
}

func (p *Pipeline) finish(runID string, det *DetectResult, status string) {
	docs, failed := 0, 0
	if det != nil {
		docs, failed = det.Documents, len(det.Failures)
	}
	if err := p.db.FinishRun(runID, docs, failed, status); err != nil {
		log.Printf("Failed to record run %s: %v", runID, err)
	}
}

// DryRun shows what would be done without executing.
func (p *Pipeline) DryRun() *Result {
	r := &Result{}

	r.Steps = append(r.Steps, StepResult{
		Name:    "Collect",
		Summary: fmt.Sprintf("[dry-run] %d playlist feeds configured", len(p.cfg.Sources.Playlists)),
	})

	needing, _ := p.db.GetTranscriptsNeedingFetch()
	r.Steps = append(r.Steps, StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("[dry-run] %d transcripts need text fetching", len(needing)),
	})

	pending, _ := p.db.GetTranscriptsForDetection(false)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Detect",
		Summary: fmt.Sprintf("[dry-run] %d transcripts need detection (strategies: %v)", len(pending), p.cfg.Detection.Strategies),
	})

	scored, _ := p.db.GetScoredTranscripts()
	r.Steps = append(r.Steps, StepResult{
		Name:    "Aggregate",
		Summary: fmt.Sprintf("[dry-run] %d transcripts already detected", len(scored)),
	})

	r.Steps = append(r.Steps, StepResult{
		Name:    "Report",
		Summary: fmt.Sprintf("[dry-run] Would compose %q", reportTitle(database.GetToday())),
	})
	return r
}

func (p *Pipeline) runCollect(ctx context.Context) StepResult {
	log.Println("Step 1/5: Collecting transcripts...")
	collector := collect.NewCollector(p.cfg, p.db)
	result := collector.Collect(ctx)
	return StepResult{
		Name:    "Collect",
		Summary: fmt.Sprintf("Found %d new transcripts (%d total, %d duplicates)", result.NewTranscripts, result.TotalFound, result.Duplicates),
	}
}

func (p *Pipeline) runFetch(ctx context.Context) StepResult {
	log.Println("Step 2/5: Fetching transcript text...")
	fetcher := fetch.NewTranscriptFetcher(p.db, 15*time.Second)
	result := fetcher.FetchMissingText(ctx)
	return StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("Fetched %d transcripts, %d failed", result.Fetched, result.Failed),
	}
}

func (p *Pipeline) runDetect(ctx context.Context) (*DetectResult, StepResult) {
	log.Println("Step 3/5: Detecting phrases...")
	det, err := p.Detect(ctx, false)
	if err != nil {
		return det, StepResult{Name: "Detect", Err: err}
	}
	summary := fmt.Sprintf("Analysed %d transcripts: %d occurrences, %d failed", det.Documents, det.Occurrences, len(det.Failures))
	if det.SemanticUnavailable > 0 {
		summary += fmt.Sprintf(", semantic unavailable for %d", det.SemanticUnavailable)
	}
	return det, StepResult{Name: "Detect", Summary: summary}
}

func (p *Pipeline) runAggregate() StepResult {
	log.Println("Step 4/5: Aggregating...")
	composer, err := NewComposer(p.cfg, p.db)
	if err != nil {
		return StepResult{Name: "Aggregate", Err: err}
	}
	data, err := composer.Load()
	if err != nil {
		return StepResult{Name: "Aggregate", Err: err}
	}
	orgs := make(map[string]bool)
	speakers := make(map[string]bool)
	for _, row := range data.Rows {
		orgs[row.Organization] = true
		speakers[row.Organization+"\x00"+row.Speaker] = true
	}
	return StepResult{
		Name:    "Aggregate",
		Summary: fmt.Sprintf("%d transcripts across %d organizations and %d speakers", len(data.Rows), len(orgs), len(speakers)),
	}
}

func (p *Pipeline) runReport(runID string) (StepResult, int64) {
	log.Println("Step 5/5: Composing report...")
	composer, err := NewComposer(p.cfg, p.db)
	if err != nil {
		return StepResult{Name: "Report", Err: err}, 0
	}
	stored, err := composer.ComposeReport(runID, reportTitle(database.GetToday()))
	if err != nil {
		return StepResult{Name: "Report", Err: err}, 0
	}
	return StepResult{
		Name:    "Report",
		Summary: fmt.Sprintf("Report composed: %s", stored.Title),
	}, stored.ID
}

// Detect runs detection over transcripts with text and stores the
// results. Unless all is set, only transcripts without stored results are
// processed. Per-document failures are collected, not returned.
func (p *Pipeline) Detect(ctx context.Context, all bool) (*DetectResult, error) {
	v, err := LoadVocabulary(p.cfg)
	if err != nil {
		return nil, err
	}
	opts, err := DetectOptions(p.cfg)
	if err != nil {
		return nil, err
	}
	opts.Metrics = p.metrics

	semantic := p.cfg.SemanticEnabled()
	if semantic {
		emb, closeEmbedder, err := p.newEmbedder()
		if err != nil {
			return nil, err
		}
		defer closeEmbedder()
		if emb == nil {
			return nil, fmt.Errorf("semantic strategy enabled but no embedding provider configured")
		}
		if v, err = v.Embed(ctx, emb); err != nil {
			return nil, err
		}
		opts.Embedder = emb
	}

	detector, err := detect.New(v, opts)
	if err != nil {
		return nil, err
	}

	transcripts, err := p.db.GetTranscriptsForDetection(all)
	if err != nil {
		return nil, fmt.Errorf("loading transcripts: %w", err)
	}
	res := &DetectResult{}
	if len(transcripts) == 0 {
		log.Println("No transcripts need detection")
		return res, nil
	}

	docs := make([]detect.Document, len(transcripts))
	for i, t := range transcripts {
		docs[i] = detect.Document{ID: strconv.FormatInt(t.ID, 10), Text: *t.Text}
	}

	log.Printf("Detecting phrases in %d transcripts...", len(docs))
	results, failures, err := detector.DetectAll(ctx, docs, p.cfg.Detection.Workers)
	if err != nil {
		return nil, err
	}
	res.Failures = failures

	for i, dr := range results {
		if dr == nil {
			continue
		}
		if err := p.save(transcripts[i].ID, v.Phrases(), dr, semantic); err != nil {
			res.Failures = append(res.Failures, detect.Failure{DocumentID: dr.DocumentID, Err: err})
			continue
		}
		res.Documents++
		res.Occurrences += dr.Combined.Total()
		if dr.SemanticUnavailable {
			res.SemanticUnavailable++
		}
	}

	for _, f := range res.Failures {
		log.Printf("Detection failed for transcript %s: %v", f.DocumentID, f.Err)
	}
	log.Printf("Detection complete: %d transcripts, %d occurrences, %d failed", res.Documents, res.Occurrences, len(res.Failures))
	return res, nil
}

func (p *Pipeline) save(id int64, phrases []string, dr *detect.Result, semantic bool) error {
	dets := make([]database.Detection, len(phrases))
	for i, phrase := range phrases {
		dets[i] = database.Detection{
			Phrase:   phrase,
			Exact:    dr.Exact[i],
			Fuzzy:    dr.Fuzzy[i],
			Semantic: dr.Semantic[i],
		}
	}
	stats := database.TranscriptStats{
		TranscriptID:      id,
		TokenCount:        dr.Tokens,
		TotalCount:        dr.Combined.Total(),
		SemanticAvailable: semantic && !dr.SemanticUnavailable,
	}
	if dr.SemanticErr != nil {
		msg := dr.SemanticErr.Error()
		stats.Error = &msg
	}
	return p.db.SaveDetection(stats, dets)
}
