// Package ingest turns Article links into persisted articles,
// taxonomy relationships, and comments.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/mwhitford/wp-harvester/internal/extract"
	"github.com/mwhitford/wp-harvester/internal/harvest"
	"github.com/mwhitford/wp-harvester/internal/metrics"
)

// ArchiveConfig controls optional raw-HTML archiving of article pages
// before extraction. A nil store disables archiving.
type ArchiveConfig struct {
	Prefix      string
	ContentType string
}

// Notification is the payload published after a successful ingestion.
type Notification struct {
	ArticleID int64  `json:"article_id"`
	OldID     int64  `json:"old_id"`
	Link      string `json:"link"`
}

// Ingester performs the full per-link ingestion sequence shared by
// both runner policies.
type Ingester struct {
	fetcher   harvest.Fetcher
	extractor *extract.Extractor
	links     harvest.LinkStore
	content   harvest.ContentStore
	publisher harvest.Publisher
	blobs     harvest.BlobStore
	clock     harvest.Clock
	logger    *zap.Logger

	topic   string
	archive ArchiveConfig
}

// New wires an Ingester. blobs may be nil to disable page archiving.
func New(
	fetcher harvest.Fetcher,
	extractor *extract.Extractor,
	links harvest.LinkStore,
	content harvest.ContentStore,
	publisher harvest.Publisher,
	blobs harvest.BlobStore,
	clock harvest.Clock,
	topic string,
	archive ArchiveConfig,
	logger *zap.Logger,
) *Ingester {
	return &Ingester{
		fetcher:   fetcher,
		extractor: extractor,
		links:     links,
		content:   content,
		publisher: publisher,
		blobs:     blobs,
		clock:     clock,
		logger:    logger,
		topic:     topic,
		archive:   archive,
	}
}

// ingestOne fetches, extracts, and persists one article link, then
// stamps processed_at and publishes a notification. It reports whether
// an article row was created so callers can compensate after partial
// failures.
func (i *Ingester) ingestOne(ctx context.Context, link harvest.Link) (id int64, inserted bool, err error) {
	page, err := i.fetcher.Fetch(ctx, link.Href)
	if err != nil {
		return 0, false, fmt.Errorf("fetch %s: %w", link.Href, err)
	}
	i.archivePage(ctx, page)

	doc, err := extract.Document(page.Body)
	if err != nil {
		return 0, false, fmt.Errorf("parse %s: %w", link.Href, err)
	}
	article, err := i.extractor.Extract(doc, link.Href)
	if err != nil {
		return 0, false, fmt.Errorf("extract %s: %w", link.Href, err)
	}

	id, err = i.content.InsertArticle(ctx, harvest.Article{
		OldID:     article.OldID,
		Title:     article.Title,
		Content:   article.ContentHTML,
		Link:      link.Href,
		Images:    article.Images,
		CreatedAt: article.PublishedAt,
	})
	if err != nil {
		return 0, false, err
	}

	for _, name := range article.Categories {
		categoryID, err := i.content.UpsertCategoryID(ctx, name)
		if err != nil {
			return id, true, err
		}
		if err := i.content.LinkArticleCategory(ctx, id, categoryID); err != nil {
			return id, true, err
		}
	}
	for _, name := range article.Tags {
		tagID, err := i.content.UpsertTagID(ctx, name, Slugify(name))
		if err != nil {
			return id, true, err
		}
		if err := i.content.LinkArticleTag(ctx, id, tagID); err != nil {
			return id, true, err
		}
	}
	if err := i.content.InsertComments(ctx, id, article.Comments); err != nil {
		return id, true, err
	}

	if err := i.links.MarkProcessed(ctx, link.Href, i.clock.Now()); err != nil {
		return id, true, err
	}
	metrics.ArticlesIngested.Inc()

	i.notify(ctx, Notification{ArticleID: id, OldID: article.OldID, Link: link.Href})
	return id, true, nil
}

// archivePage stores the raw response body when archiving is enabled.
// Archive failures are logged and never fail the ingestion.
func (i *Ingester) archivePage(ctx context.Context, page harvest.Page) {
	if i.blobs == nil {
		return
	}
	uri, err := i.blobs.PutObject(ctx, i.archivePath(page.URL), i.archive.ContentType, bytes.NewReader(page.Body))
	if err != nil {
		i.logger.Warn("page archive failed", zap.String("url", page.URL), zap.Error(err))
		return
	}
	i.logger.Debug("page archived", zap.String("url", page.URL), zap.String("uri", uri))
}

func (i *Ingester) archivePath(pageURL string) string {
	key := "index"
	if u, err := url.Parse(pageURL); err == nil {
		if trimmed := strings.Trim(u.Path, "/"); trimmed != "" {
			key = trimmed
		}
	}
	if i.archive.Prefix == "" {
		return key + ".html"
	}
	return i.archive.Prefix + "/" + key + ".html"
}

// notify publishes the ingestion event. Notification failures are
// logged only: the article is already fully persisted.
func (i *Ingester) notify(ctx context.Context, n Notification) {
	if i.publisher == nil {
		return
	}
	if _, err := i.publisher.Publish(ctx, i.topic, n); err != nil {
		i.logger.Warn("ingestion notification failed",
			zap.String("link", n.Link),
			zap.Error(err),
		)
	}
}

var (
	slugStripExpr    = regexp.MustCompile(`[^a-z0-9-]+`)
	slugCollapseExpr = regexp.MustCompile(`-{2,}`)
)

// Slugify derives a URL-safe slug from a tag's display name.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = slugStripExpr.ReplaceAllString(slug, "")
	slug = slugCollapseExpr.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
