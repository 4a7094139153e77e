// Package harvest defines the core domain types shared across subsystems.
package harvest

import "time"

// AbsentID is the sentinel stored when a numeric source identifier
// cannot be parsed out of the page markup. WordPress identifiers start
// at 1, so zero is unambiguous.
const AbsentID int64 = 0

// Link is one row of the found_links table.
type Link struct {
	Href        string     `json:"href"`
	Status      Status     `json:"status"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Article is one persisted article row.
type Article struct {
	ID        int64     `json:"id"`
	OldID     int64     `json:"old_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Link      string    `json:"link"`
	Images    []string  `json:"images"`
	CreatedAt time.Time `json:"created_at"`
}

// Tag is one row of the tags table.
type Tag struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
}

// Category is one row of the categories table.
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ArticleDoc is the normalized output of extracting a single article
// page. Taxonomy entries are display names only; resolution to row IDs
// happens during ingestion.
type ArticleDoc struct {
	OldID       int64
	Title       string
	Link        string
	PublishedAt time.Time
	ContentHTML string
	Images      []string
	Categories  []string
	Tags        []string
	Comments    []CommentDoc
	RelatedIDs  []int64
}

// CommentDoc is one extracted comment: author, ordered paragraph
// texts, the source-system id, and the parsed publish timestamp.
type CommentDoc struct {
	OldID      int64
	Author     string
	Paragraphs []string
	CreatedAt  time.Time
}

// Page is the raw result of fetching one URL.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
}
