package harvest

import (
	"context"
	"io"
	"time"
)

// Fetcher retrieves one page, honoring the configured inter-request
// delay between calls.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// Clock abstracts time.Now for deterministic tests.
type Clock interface {
	Now() time.Time
}

// LinkStore persists the found_links table.
type LinkStore interface {
	ListByStatus(ctx context.Context, status Status) ([]Link, error)
	ListAll(ctx context.Context) ([]Link, error)
	// InsertPending inserts hrefs as Pending, skipping any href already
	// present, and returns the number actually inserted.
	InsertPending(ctx context.Context, hrefs []string) (int, error)
	// UpsertStatus inserts the href if missing and sets its status.
	UpsertStatus(ctx context.Context, href string, status Status) error
	MarkProcessed(ctx context.Context, href string, at time.Time) error
	UnprocessedArticles(ctx context.Context) ([]Link, error)
	// OldestUnprocessedArticle returns ErrNoWork when nothing is pending.
	OldestUnprocessedArticle(ctx context.Context) (Link, error)
	DeleteDuplicates(ctx context.Context) (int64, error)
	DeleteByHref(ctx context.Context, hrefs []string) (int64, error)
	// ForceFileStatus sets File status on every href matching the given
	// case-insensitive pattern, regardless of prior state.
	ForceFileStatus(ctx context.Context, pattern string) (int64, error)
}

// ContentStore persists articles, taxonomy rows, junctions, and comments.
type ContentStore interface {
	// ArticleByLink returns ErrNotFound when no article has the link.
	ArticleByLink(ctx context.Context, link string) (Article, error)
	InsertArticle(ctx context.Context, a Article) (int64, error)
	DeleteArticleByLink(ctx context.Context, link string) error
	// UpsertTagID and UpsertCategoryID insert-or-no-op by unique name
	// and always return the row id.
	UpsertTagID(ctx context.Context, name, slug string) (int64, error)
	UpsertCategoryID(ctx context.Context, name string) (int64, error)
	// InsertTag and InsertCategory skip silently on a name conflict and
	// never touch an existing row's description.
	InsertTag(ctx context.Context, name, slug string) error
	InsertCategory(ctx context.Context, name string) error
	LinkArticleTag(ctx context.Context, articleID, tagID int64) error
	LinkArticleCategory(ctx context.Context, articleID, categoryID int64) error
	InsertComments(ctx context.Context, articleID int64, comments []CommentDoc) error
}

// Publisher notifies downstream consumers, such as the out-of-band
// enhancement stage, about fully ingested articles.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// BlobStore archives raw page snapshots.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}
