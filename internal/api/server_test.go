package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mwhitford/wp-harvester/internal/classify"
	"github.com/mwhitford/wp-harvester/internal/crawl"
	"github.com/mwhitford/wp-harvester/internal/harvest"
	"github.com/mwhitford/wp-harvester/internal/ingest"
)

type stubCrawler struct {
	maintenance crawl.MaintenanceResult
	result      crawl.Result
	maintainErr error
	runErr      error
}

func (c *stubCrawler) Maintain(context.Context) (crawl.MaintenanceResult, error) {
	return c.maintenance, c.maintainErr
}

func (c *stubCrawler) Run(context.Context) (crawl.Result, error) {
	return c.result, c.runErr
}

type stubAssigner struct {
	assigned int
	err      error
}

func (a *stubAssigner) Run(context.Context) (int, error) { return a.assigned, a.err }

type stubTaxonomy struct {
	result classify.TaxonomyResult
	err    error
}

func (t *stubTaxonomy) Run(context.Context) (classify.TaxonomyResult, error) {
	return t.result, t.err
}

type stubBatch struct {
	result ingest.BatchResult
	err    error
}

func (b *stubBatch) Run(context.Context) (ingest.BatchResult, error) { return b.result, b.err }

type stubSingle struct {
	outcome ingest.Outcome
	err     error
}

func (s *stubSingle) Run(context.Context) (ingest.Outcome, error) { return s.outcome, s.err }

type stubPinger struct{ err error }

func (p *stubPinger) Ping(context.Context) error { return p.err }

func newTestServer(crawler Crawler, assigner Assigner, taxonomy TaxonomyRunner, batch BatchIngestor, single SingleIngestor, pinger Pinger) *Server {
	return NewServer(crawler, assigner, taxonomy, batch, single, pinger, zap.NewNop())
}

func doRequest(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	s := newTestServer(&stubCrawler{}, &stubAssigner{}, &stubTaxonomy{}, &stubBatch{}, &stubSingle{}, nil)
	rec := doRequest(t, s, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestReadyzChecksStorage(t *testing.T) {
	t.Parallel()

	s := newTestServer(&stubCrawler{}, &stubAssigner{}, &stubTaxonomy{}, &stubBatch{}, &stubSingle{},
		&stubPinger{err: errors.New("connection refused")})
	rec := doRequest(t, s, "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s = newTestServer(&stubCrawler{}, &stubAssigner{}, &stubTaxonomy{}, &stubBatch{}, &stubSingle{},
		&stubPinger{})
	rec = doRequest(t, s, "/readyz")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCrawlReturnsDiscoveredLinks(t *testing.T) {
	t.Parallel()

	crawler := &stubCrawler{
		maintenance: crawl.MaintenanceResult{DuplicatesRemoved: 2, FilesForced: 1},
		result: crawl.Result{
			Discovered: 3,
			Processed: []crawl.ProcessedLink{
				{Href: "https://legacy.example.com/", Status: harvest.StatusVisited},
				{Href: "https://legacy.example.com/broken", Status: harvest.StatusError},
			},
		},
	}
	s := newTestServer(crawler, &stubAssigner{}, &stubTaxonomy{}, &stubBatch{}, &stubSingle{}, nil)

	rec := doRequest(t, s, "/v1/crawl")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Discovered int `json:"discovered"`
		Links      []struct {
			Href   string `json:"href"`
			Status int    `json:"status"`
		} `json:"links"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 3, body.Discovered)
	require.Len(t, body.Links, 2)
	require.Equal(t, int(harvest.StatusError), body.Links[1].Status)
}

func TestCrawlStorageErrorIs500(t *testing.T) {
	t.Parallel()

	s := newTestServer(&stubCrawler{runErr: errors.New("storage down")},
		&stubAssigner{}, &stubTaxonomy{}, &stubBatch{}, &stubSingle{}, nil)
	rec := doRequest(t, s, "/v1/crawl")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "storage down")
}

func TestClassifyReportsCounts(t *testing.T) {
	t.Parallel()

	s := newTestServer(&stubCrawler{}, &stubAssigner{assigned: 7},
		&stubTaxonomy{result: classify.TaxonomyResult{Tags: 4, Categories: 2, Rejected: 1}},
		&stubBatch{}, &stubSingle{}, nil)

	rec := doRequest(t, s, "/v1/classify")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
	require.Equal(t, float64(7), body["assigned"])
	require.Equal(t, float64(4), body["tags"])
}

func TestBatchEmbedsPerItemFailures(t *testing.T) {
	t.Parallel()

	batch := &stubBatch{result: ingest.BatchResult{
		Processed: 1,
		Results: []ingest.ItemResult{
			{URL: "https://legacy.example.com/a", Status: "success"},
			{URL: "https://legacy.example.com/b", Status: "error", Error: "content container not found"},
		},
	}}
	s := newTestServer(&stubCrawler{}, &stubAssigner{}, &stubTaxonomy{}, batch, &stubSingle{}, nil)

	rec := doRequest(t, s, "/v1/articles/batch")
	require.Equal(t, http.StatusOK, rec.Code)

	var body ingest.BatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Processed)
	require.Len(t, body.Results, 2)
	require.Equal(t, "error", body.Results[1].Status)
}

func TestSingleExtract(t *testing.T) {
	t.Parallel()

	s := newTestServer(&stubCrawler{}, &stubAssigner{}, &stubTaxonomy{}, &stubBatch{},
		&stubSingle{outcome: ingest.Outcome{Message: "article ingested", Link: "https://legacy.example.com/a"}}, nil)

	rec := doRequest(t, s, "/v1/articles/next")
	require.Equal(t, http.StatusOK, rec.Code)

	var body ingest.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "article ingested", body.Message)
	require.Equal(t, "https://legacy.example.com/a", body.Link)
}

func TestSingleExtractFailureIs500(t *testing.T) {
	t.Parallel()

	s := newTestServer(&stubCrawler{}, &stubAssigner{}, &stubTaxonomy{}, &stubBatch{},
		&stubSingle{err: errors.New("ingest failed")}, nil)
	rec := doRequest(t, s, "/v1/articles/next")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()

	s := newTestServer(&stubCrawler{}, &stubAssigner{}, &stubTaxonomy{}, &stubBatch{}, &stubSingle{}, nil)
	s.router.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := doRequest(t, s, "/boom")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "internal server error")
}
