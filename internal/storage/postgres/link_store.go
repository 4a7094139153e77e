package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mwhitford/wp-harvester/internal/harvest"
)

// LinkStore implements harvest.LinkStore on top of the found_links table.
type LinkStore struct {
	db DB
}

// NewLinkStore wires a LinkStore to a pool or mock.
func NewLinkStore(db DB) *LinkStore {
	return &LinkStore{db: db}
}

const linkColumns = "href, status, processed_at, created_at"

// ListByStatus returns links in the given status, oldest first. The
// ordering approximates the frontier's insertion order; it is not a
// strict FIFO guarantee across restarts.
func (s *LinkStore) ListByStatus(ctx context.Context, status harvest.Status) ([]harvest.Link, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM found_links
		WHERE status = $1
		ORDER BY created_at, href;
	`
	rows, err := s.db.Query(ctx, query, int(status))
	if err != nil {
		return nil, fmt.Errorf("list links by status: %w", err)
	}
	return scanLinks(rows)
}

// ListAll returns every link row.
func (s *LinkStore) ListAll(ctx context.Context) ([]harvest.Link, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM found_links
		ORDER BY created_at, href;
	`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return scanLinks(rows)
}

// InsertPending persists hrefs as Pending, skipping any href already
// present, and reports how many were actually inserted.
func (s *LinkStore) InsertPending(ctx context.Context, hrefs []string) (int, error) {
	inserted := 0
	for _, href := range hrefs {
		tag, err := s.db.Exec(ctx, `
			INSERT INTO found_links (href, status)
			VALUES ($1, $2)
			ON CONFLICT (href) DO NOTHING;
		`, href, int(harvest.StatusPending))
		if err != nil {
			return inserted, fmt.Errorf("insert pending link %s: %w", href, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// UpsertStatus inserts the href when missing and sets its status.
func (s *LinkStore) UpsertStatus(ctx context.Context, href string, status harvest.Status) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO found_links (href, status)
		VALUES ($1, $2)
		ON CONFLICT (href) DO UPDATE SET status = EXCLUDED.status;
	`, href, int(status))
	if err != nil {
		return fmt.Errorf("upsert link status: %w", err)
	}
	return nil
}

// MarkProcessed stamps processed_at after a full successful ingestion.
func (s *LinkStore) MarkProcessed(ctx context.Context, href string, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE found_links SET processed_at = $2 WHERE href = $1;
	`, href, at)
	if err != nil {
		return fmt.Errorf("mark link processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return harvest.ErrNotFound
	}
	return nil
}

// UnprocessedArticles returns article links not yet ingested, oldest first.
func (s *LinkStore) UnprocessedArticles(ctx context.Context) ([]harvest.Link, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM found_links
		WHERE status = $1 AND processed_at IS NULL
		ORDER BY created_at, href;
	`
	rows, err := s.db.Query(ctx, query, int(harvest.StatusArticle))
	if err != nil {
		return nil, fmt.Errorf("list unprocessed articles: %w", err)
	}
	return scanLinks(rows)
}

// OldestUnprocessedArticle returns the single oldest unprocessed
// article link, or harvest.ErrNoWork.
func (s *LinkStore) OldestUnprocessedArticle(ctx context.Context) (harvest.Link, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM found_links
		WHERE status = $1 AND processed_at IS NULL
		ORDER BY created_at, href
		LIMIT 1;
	`
	var link harvest.Link
	var status int
	err := s.db.QueryRow(ctx, query, int(harvest.StatusArticle)).Scan(
		&link.Href,
		&status,
		&link.ProcessedAt,
		&link.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return harvest.Link{}, harvest.ErrNoWork
		}
		return harvest.Link{}, fmt.Errorf("select oldest unprocessed article: %w", err)
	}
	link.Status = harvest.Status(status)
	return link, nil
}

// DeleteDuplicates removes exact-duplicate href rows, keeping the
// earliest physical row. A no-op once the unique constraint exists;
// kept for recovery from pre-constraint data.
func (s *LinkStore) DeleteDuplicates(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM found_links a
		USING found_links b
		WHERE a.href = b.href AND a.ctid > b.ctid;
	`)
	if err != nil {
		return 0, fmt.Errorf("delete duplicate links: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteByHref removes the given rows.
func (s *LinkStore) DeleteByHref(ctx context.Context, hrefs []string) (int64, error) {
	if len(hrefs) == 0 {
		return 0, nil
	}
	tag, err := s.db.Exec(ctx, `
		DELETE FROM found_links WHERE href = ANY($1);
	`, hrefs)
	if err != nil {
		return 0, fmt.Errorf("delete links: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ForceFileStatus sets File status on every href matching the pattern,
// regardless of prior state.
func (s *LinkStore) ForceFileStatus(ctx context.Context, pattern string) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE found_links SET status = $1 WHERE href ~* $2 AND status <> $1;
	`, int(harvest.StatusFile), pattern)
	if err != nil {
		return 0, fmt.Errorf("force file status: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanLinks(rows pgx.Rows) ([]harvest.Link, error) {
	defer rows.Close()
	var links []harvest.Link
	for rows.Next() {
		var link harvest.Link
		var status int
		if err := rows.Scan(&link.Href, &status, &link.ProcessedAt, &link.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan link row: %w", err)
		}
		link.Status = harvest.Status(status)
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate link rows: %w", err)
	}
	return links, nil
}
