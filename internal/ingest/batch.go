package ingest

import (
	"context"

	"go.uber.org/zap"

	"github.com/mwhitford/wp-harvester/internal/metrics"
)

// ItemResult records the outcome of one link within a batch run.
type ItemResult struct {
	URL    string `json:"url"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// BatchResult summarizes a batch run.
type BatchResult struct {
	Processed int          `json:"processed"`
	Results   []ItemResult `json:"results"`
}

// BatchRunner ingests every unprocessed Article link in one pass.
//
// Each link is handled independently: a failure is recorded in the
// result set and the run moves on. There is no pre-insert existence
// check and no rollback, so a failed link can leave an article row
// without a processed_at stamp.
type BatchRunner struct {
	ingester *Ingester
	logger   *zap.Logger
}

// NewBatchRunner wires a BatchRunner.
func NewBatchRunner(ingester *Ingester, logger *zap.Logger) *BatchRunner {
	return &BatchRunner{ingester: ingester, logger: logger}
}

// Run ingests all unprocessed Article links. Only a storage failure
// while listing the links aborts the run.
func (r *BatchRunner) Run(ctx context.Context) (BatchResult, error) {
	links, err := r.ingester.links.UnprocessedArticles(ctx)
	if err != nil {
		return BatchResult{}, err
	}

	result := BatchResult{Results: make([]ItemResult, 0, len(links))}
	for _, link := range links {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if _, _, err := r.ingester.ingestOne(ctx, link); err != nil {
			metrics.IngestErrors.Inc()
			r.logger.Warn("batch ingestion failed", zap.String("href", link.Href), zap.Error(err))
			result.Results = append(result.Results, ItemResult{
				URL:    link.Href,
				Status: "error",
				Error:  err.Error(),
			})
			continue
		}
		result.Processed++
		result.Results = append(result.Results, ItemResult{URL: link.Href, Status: "success"})
	}
	return result, nil
}
