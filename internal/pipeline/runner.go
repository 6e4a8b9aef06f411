package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// BatchResult aggregates one Run per requested location. Failures are
// isolated: one location's error never aborts the others.
type BatchResult struct {
	SuccessCount int       `json:"success_count"`
	TotalCount   int       `json:"total_count"`
	Results      []*Output `json:"results"`
	Errors       []Record  `json:"errors,omitempty"`
}

// RunAll generates comments for every location concurrently, bounded by the
// configured worker pool size. Results keep the order of the input slice;
// failed locations leave a nil slot and an error record.
func (p *Pipeline) RunAll(ctx context.Context, locations []string, target *time.Time) *BatchResult {
	res := &BatchResult{
		TotalCount: len(locations),
		Results:    make([]*Output, len(locations)),
	}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	workers := p.cfg.WorkerPoolSize
	if workers <= 0 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, name := range locations {
		g.Go(func() error {
			out, err := p.Run(ctx, name, target)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				kind := KindOf(err)
				if kind == "" {
					kind = KindWeatherProvider
				}
				res.Errors = append(res.Errors, newRecord(kind, StageOutput,
					fmt.Sprintf("%s: %v", name, err)))
				return nil
			}
			res.Results[i] = out
			res.SuccessCount++
			return nil
		})
	}
	g.Wait()
	return res
}
