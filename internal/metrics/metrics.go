// Package metrics registers the harvester's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LinksDiscovered tracks the number of new links persisted by the frontier.
	LinksDiscovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_links_discovered_total",
		Help: "The total number of new links persisted as pending.",
	})
	// PagesFetched tracks the number of successful page fetches.
	PagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_pages_fetched_total",
		Help: "The total number of pages fetched successfully.",
	})
	// FetchErrors tracks the number of fetches that resulted in an error.
	FetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_fetch_errors_total",
		Help: "The total number of failed page fetches.",
	})
	// ArticlesIngested tracks fully ingested articles.
	ArticlesIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_articles_ingested_total",
		Help: "The total number of articles fully ingested.",
	})
	// IngestErrors tracks per-link ingestion failures.
	IngestErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_ingest_errors_total",
		Help: "The total number of article ingestion failures.",
	})
	// TaxonomyRows tracks tag/category rows derived from link shape.
	TaxonomyRows = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_taxonomy_rows_total",
		Help: "The total number of tag and category rows derived from links.",
	})
)
