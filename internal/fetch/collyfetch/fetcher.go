// Package collyfetch implements harvest.Fetcher using gocolly.
package collyfetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/mwhitford/wp-harvester/internal/harvest"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// Delay is the fixed wait between consecutive fetches, respecting
	// the origin's rate tolerance. Zero disables the wait.
	Delay time.Duration
}

// Fetcher implements harvest.Fetcher using the Colly collector.
// Fetch serializes requests: each call waits until the configured
// delay since the previous fetch has elapsed.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector

	mu        sync.Mutex
	lastFetch time.Time
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.WithTransport(newHTTPTransport())

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
	}
}

// Fetch executes a single HTTP GET after honoring the inter-request delay.
func (f *Fetcher) Fetch(ctx context.Context, url string) (harvest.Page, error) {
	if err := f.waitTurn(ctx); err != nil {
		return harvest.Page{}, err
	}

	var (
		result   harvest.Page
		fetchErr error
	)
	collector := f.buildCollector(&result, &fetchErr)

	if err := f.runCollector(ctx, collector, url, &fetchErr); err != nil {
		return harvest.Page{}, err
	}
	return result, nil
}

// waitTurn blocks until the delay since the previous fetch has elapsed
// or the context is canceled.
func (f *Fetcher) waitTurn(ctx context.Context) error {
	f.mu.Lock()
	wait := f.cfg.Delay - time.Since(f.lastFetch)
	f.lastFetch = time.Now().Add(wait)
	f.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("fetch delay canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func (f *Fetcher) buildCollector(result *harvest.Page, fetchErr *error) *colly.Collector {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	timeout := f.cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collector.SetRequestTimeout(timeout)

	collector.OnResponse(func(r *colly.Response) {
		*result = harvest.Page{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
		}
	})
	collector.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
	return collector
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("visit %s: %w", url, err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("fetch %s: %w", url, *fetchErr)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
