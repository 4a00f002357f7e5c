package upload

import (
	"context"

	"github.com/dmitrijs2005/mediax/internal/client/models"
	"golang.org/x/sync/errgroup"
)

type Job struct {
	Title string
	File  File
}

type Result struct {
	Job  Job
	Item *models.MediaItem
	Err  error
}

// UploadAll runs jobs concurrently, at most limit at a time (no limit when
// limit <= 0). Jobs are independent: one failing does not stop the others.
// Results are in job order.
func (p *Pipeline) UploadAll(ctx context.Context, jobs []Job, limit int, onProgress func(job int, v float64)) []Result {
	results := make([]Result, len(jobs))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, job := range jobs {
		g.Go(func() error {
			var fn func(float64)
			if onProgress != nil {
				fn = func(v float64) { onProgress(i, v) }
			}
			item, err := p.Upload(ctx, job.Title, job.File, fn)
			results[i] = Result{Job: job, Item: item, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
