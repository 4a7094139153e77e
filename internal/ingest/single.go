package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mwhitford/wp-harvester/internal/harvest"
	"github.com/mwhitford/wp-harvester/internal/metrics"
)

// Outcome reports the result of a single-link run.
type Outcome struct {
	Message string `json:"message"`
	Link    string `json:"link,omitempty"`
}

// SingleRunner ingests the oldest unprocessed Article link.
//
// Unlike the batch policy it guards against duplicates up front: when
// an article with the same canonical link already exists, the link is
// stamped processed without re-scraping. When ingestion fails after
// the article row was created, the row is deleted so a retry of the
// same link starts clean.
type SingleRunner struct {
	ingester *Ingester
	logger   *zap.Logger
}

// NewSingleRunner wires a SingleRunner.
func NewSingleRunner(ingester *Ingester, logger *zap.Logger) *SingleRunner {
	return &SingleRunner{ingester: ingester, logger: logger}
}

// Run ingests at most one link. An empty backlog is not an error.
func (r *SingleRunner) Run(ctx context.Context) (Outcome, error) {
	link, err := r.ingester.links.OldestUnprocessedArticle(ctx)
	if err != nil {
		if errors.Is(err, harvest.ErrNoWork) {
			return Outcome{Message: "no unprocessed article links"}, nil
		}
		return Outcome{}, err
	}

	if _, err := r.ingester.content.ArticleByLink(ctx, link.Href); err == nil {
		if err := r.ingester.links.MarkProcessed(ctx, link.Href, r.ingester.clock.Now()); err != nil {
			return Outcome{}, err
		}
		r.logger.Info("article already ingested", zap.String("href", link.Href))
		return Outcome{Message: "article already ingested", Link: link.Href}, nil
	} else if !errors.Is(err, harvest.ErrNotFound) {
		return Outcome{}, err
	}

	if _, inserted, err := r.ingester.ingestOne(ctx, link); err != nil {
		metrics.IngestErrors.Inc()
		if inserted {
			if delErr := r.ingester.content.DeleteArticleByLink(ctx, link.Href); delErr != nil {
				r.logger.Error("compensating delete failed",
					zap.String("href", link.Href),
					zap.Error(delErr),
				)
				return Outcome{}, fmt.Errorf("ingest %s: %w (compensating delete: %v)", link.Href, err, delErr)
			}
			r.logger.Info("compensating delete applied", zap.String("href", link.Href))
		}
		return Outcome{}, err
	}
	return Outcome{Message: "article ingested", Link: link.Href}, nil
}
