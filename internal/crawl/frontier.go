// Package crawl implements the persisted breadth-first link-discovery loop.
package crawl

import (
	"context"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/mwhitford/wp-harvester/internal/extract"
	"github.com/mwhitford/wp-harvester/internal/harvest"
	"github.com/mwhitford/wp-harvester/internal/metrics"
)

// Frontier drives the link-discovery loop for a single origin. The
// in-memory visited/toVisit working sets are rehydrated from the link
// store at the start of every Run; nothing is shared across runs.
type Frontier struct {
	links   harvest.LinkStore
	fetcher harvest.Fetcher
	origin  *url.URL
	root    string
	logger  *zap.Logger
}

// ProcessedLink reports the final status of one link handled in a run.
type ProcessedLink struct {
	Href   string         `json:"href"`
	Status harvest.Status `json:"status"`
}

// Result summarizes one crawl run.
type Result struct {
	Discovered int             `json:"discovered"`
	Processed  []ProcessedLink `json:"links"`
}

// MaintenanceResult summarizes one maintenance pass.
type MaintenanceResult struct {
	DuplicatesRemoved   int64 `json:"duplicates_removed"`
	DenormalizedRemoved int64 `json:"denormalized_removed"`
	FilesForced         int64 `json:"files_forced"`
}

// New builds a Frontier rooted at the given origin URL.
func New(links harvest.LinkStore, fetcher harvest.Fetcher, root string, logger *zap.Logger) (*Frontier, error) {
	origin, err := url.Parse(root)
	if err != nil {
		return nil, fmt.Errorf("parse origin root: %w", err)
	}
	if origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("origin root %q must be an absolute URL", root)
	}
	return &Frontier{
		links:   links,
		fetcher: fetcher,
		origin:  origin,
		root:    harvest.Normalize(root),
		logger:  logger,
	}, nil
}

// runState is the per-run working set: hrefs already visited, hrefs
// queued or otherwise accounted for, and the ordered frontier.
type runState struct {
	visited map[string]struct{}
	known   map[string]struct{}
	queue   []string
}

func (s *runState) push(href string) {
	s.known[href] = struct{}{}
	s.queue = append(s.queue, href)
}

func (s *runState) pop() string {
	href := s.queue[0]
	s.queue = s.queue[1:]
	return href
}

// Run resumes the crawl from persisted state and loops until the
// frontier drains. A single fetch failure marks that link Error and the
// loop proceeds; a storage error halts the run. Throughput is throttled
// only by the fetcher's fixed inter-request delay.
func (f *Frontier) Run(ctx context.Context) (Result, error) {
	var res Result

	state, err := f.rehydrate(ctx)
	if err != nil {
		return res, err
	}

	if len(state.queue) == 0 {
		if _, ok := state.visited[f.root]; !ok {
			if _, err := f.links.InsertPending(ctx, []string{f.root}); err != nil {
				return res, fmt.Errorf("seed root link: %w", err)
			}
			state.push(f.root)
			f.logger.Info("frontier seeded with origin root", zap.String("root", f.root))
		}
	}

	for len(state.queue) > 0 {
		if ctx.Err() != nil {
			return res, fmt.Errorf("crawl interrupted: %w", ctx.Err())
		}
		href := state.pop()
		status, discovered, err := f.visit(ctx, state, href)
		if err != nil {
			return res, err
		}
		res.Discovered += discovered
		res.Processed = append(res.Processed, ProcessedLink{Href: href, Status: status})
	}

	return res, nil
}

func (f *Frontier) rehydrate(ctx context.Context) (*runState, error) {
	state := &runState{
		visited: map[string]struct{}{},
		known:   map[string]struct{}{},
	}
	visited, err := f.links.ListByStatus(ctx, harvest.StatusVisited)
	if err != nil {
		return nil, fmt.Errorf("rehydrate visited set: %w", err)
	}
	for _, link := range visited {
		state.visited[link.Href] = struct{}{}
		state.known[link.Href] = struct{}{}
	}
	pending, err := f.links.ListByStatus(ctx, harvest.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("rehydrate frontier: %w", err)
	}
	for _, link := range pending {
		state.push(link.Href)
	}
	return state, nil
}

// visit fetches one frontier item, persists its new status, and queues
// newly discovered same-origin links.
func (f *Frontier) visit(ctx context.Context, state *runState, href string) (harvest.Status, int, error) {
	page, err := f.fetcher.Fetch(ctx, href)
	if err != nil {
		if ctx.Err() != nil {
			return 0, 0, fmt.Errorf("crawl interrupted: %w", ctx.Err())
		}
		metrics.FetchErrors.Inc()
		f.logger.Warn("fetch failed", zap.String("href", href), zap.Error(err))
		if uerr := f.links.UpsertStatus(ctx, href, harvest.StatusError); uerr != nil {
			return 0, 0, fmt.Errorf("mark %s as error: %w", href, uerr)
		}
		return harvest.StatusError, 0, nil
	}
	metrics.PagesFetched.Inc()

	hrefs, err := f.extractLinks(page)
	if err != nil {
		f.logger.Warn("link extraction failed", zap.String("href", href), zap.Error(err))
		if uerr := f.links.UpsertStatus(ctx, href, harvest.StatusError); uerr != nil {
			return 0, 0, fmt.Errorf("mark %s as error: %w", href, uerr)
		}
		return harvest.StatusError, 0, nil
	}

	discovered := 0
	var fresh []string
	for _, candidate := range hrefs {
		if _, ok := state.known[candidate]; ok {
			continue
		}
		if candidate == href {
			continue
		}
		if harvest.IsFileHref(candidate) {
			if err := f.links.UpsertStatus(ctx, candidate, harvest.StatusFile); err != nil {
				return 0, 0, fmt.Errorf("persist file link %s: %w", candidate, err)
			}
			state.known[candidate] = struct{}{}
			discovered++
			continue
		}
		fresh = append(fresh, candidate)
	}
	if len(fresh) > 0 {
		inserted, err := f.links.InsertPending(ctx, fresh)
		if err != nil {
			return 0, 0, fmt.Errorf("persist discovered links: %w", err)
		}
		discovered += inserted
		for _, candidate := range fresh {
			state.push(candidate)
		}
	}
	metrics.LinksDiscovered.Add(float64(discovered))

	if err := f.links.UpsertStatus(ctx, href, harvest.StatusVisited); err != nil {
		return 0, 0, fmt.Errorf("mark %s as visited: %w", href, err)
	}
	state.visited[href] = struct{}{}
	state.known[href] = struct{}{}

	f.logger.Debug("link visited",
		zap.String("href", href),
		zap.Int("discovered", discovered),
	)
	return harvest.StatusVisited, discovered, nil
}

// extractLinks pulls every same-origin anchor href out of the page,
// resolved against the page URL and normalized.
func (f *Frontier) extractLinks(page harvest.Page) ([]string, error) {
	doc, err := extract.Document(page.Body)
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(page.URL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	seen := map[string]struct{}{}
	var out []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		ref, err := url.Parse(a.AttrOr("href", ""))
		if err != nil {
			return
		}
		abs := harvest.Normalize(base.ResolveReference(ref).String())
		if !harvest.SameOrigin(f.origin, abs) {
			return
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	})
	return out, nil
}

// Maintain runs the idempotent cleanup pass: exact-duplicate rows,
// rows redundant with their normalized form, and file-extension rows
// not yet forced to File status. Safe before or after any crawl.
func (f *Frontier) Maintain(ctx context.Context) (MaintenanceResult, error) {
	var res MaintenanceResult

	dups, err := f.links.DeleteDuplicates(ctx)
	if err != nil {
		return res, fmt.Errorf("delete duplicate links: %w", err)
	}
	res.DuplicatesRemoved = dups

	all, err := f.links.ListAll(ctx)
	if err != nil {
		return res, fmt.Errorf("list links: %w", err)
	}
	var denormalized []string
	for _, link := range all {
		if harvest.Normalize(link.Href) != link.Href {
			denormalized = append(denormalized, link.Href)
		}
	}
	if len(denormalized) > 0 {
		removed, err := f.links.DeleteByHref(ctx, denormalized)
		if err != nil {
			return res, fmt.Errorf("delete denormalized links: %w", err)
		}
		res.DenormalizedRemoved = removed
	}

	forced, err := f.links.ForceFileStatus(ctx, harvest.FileExtensionPattern())
	if err != nil {
		return res, fmt.Errorf("force file status: %w", err)
	}
	res.FilesForced = forced

	if res.DuplicatesRemoved > 0 || res.DenormalizedRemoved > 0 || res.FilesForced > 0 {
		f.logger.Info("link maintenance applied",
			zap.Int64("duplicates_removed", res.DuplicatesRemoved),
			zap.Int64("denormalized_removed", res.DenormalizedRemoved),
			zap.Int64("files_forced", res.FilesForced),
		)
	}
	return res, nil
}
