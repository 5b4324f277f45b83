package detect

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Failure records a document the batch could not process.
type Failure struct {
	DocumentID string
	Err        error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.DocumentID, f.Err)
}

// DetectAll runs Detect over docs with at most workers documents in
// flight (workers < 1 means runtime.NumCPU). Results are returned in
// input order; a failed document leaves a nil entry and is listed in the
// failures. Only context cancellation aborts the batch.
func (d *Detector) DetectAll(ctx context.Context, docs []Document, workers int) ([]*Result, []Failure, error) {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	results := make([]*Result, len(docs))
	errs := make([]error, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, doc := range docs {
		g.Go(func() error {
			res, err := d.Detect(gctx, doc)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				errs[i] = err
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var failures []Failure
	for i, err := range errs {
		if err != nil {
			failures = append(failures, Failure{DocumentID: docs[i].ID, Err: err})
		}
	}
	return results, failures, nil
}
