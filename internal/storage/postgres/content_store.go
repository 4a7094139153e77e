package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mwhitford/wp-harvester/internal/harvest"
)

// ContentStore implements harvest.ContentStore over the articles,
// tags, categories, junction, and comments tables.
type ContentStore struct {
	db DB
}

// NewContentStore wires a ContentStore to a pool or mock.
func NewContentStore(db DB) *ContentStore {
	return &ContentStore{db: db}
}

// ArticleByLink looks up an article by its unique canonical link.
func (s *ContentStore) ArticleByLink(ctx context.Context, link string) (harvest.Article, error) {
	query := `
		SELECT id, old_id, title, content, link, images, created_at
		FROM articles
		WHERE link = $1;
	`
	var a harvest.Article
	err := s.db.QueryRow(ctx, query, link).Scan(
		&a.ID,
		&a.OldID,
		&a.Title,
		&a.Content,
		&a.Link,
		&a.Images,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return harvest.Article{}, harvest.ErrNotFound
		}
		return harvest.Article{}, fmt.Errorf("select article by link: %w", err)
	}
	return a, nil
}

// InsertArticle creates one article row and returns its id.
func (s *ContentStore) InsertArticle(ctx context.Context, a harvest.Article) (int64, error) {
	query := `
		INSERT INTO articles (old_id, title, content, link, images, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id;
	`
	var id int64
	err := s.db.QueryRow(ctx, query,
		a.OldID,
		a.Title,
		a.Content,
		a.Link,
		a.Images,
		a.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert article: %w", err)
	}
	return id, nil
}

// DeleteArticleByLink removes an article row; comments cascade.
func (s *ContentStore) DeleteArticleByLink(ctx context.Context, link string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM articles WHERE link = $1;`, link); err != nil {
		return fmt.Errorf("delete article by link: %w", err)
	}
	return nil
}

// UpsertTagID inserts a tag by unique name or returns the existing id.
func (s *ContentStore) UpsertTagID(ctx context.Context, name, slug string) (int64, error) {
	query := `
		INSERT INTO tags (name, slug)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id;
	`
	var id int64
	if err := s.db.QueryRow(ctx, query, name, slug).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert tag %q: %w", name, err)
	}
	return id, nil
}

// UpsertCategoryID inserts a category by unique name or returns the
// existing id.
func (s *ContentStore) UpsertCategoryID(ctx context.Context, name string) (int64, error) {
	query := `
		INSERT INTO categories (name)
		VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id;
	`
	var id int64
	if err := s.db.QueryRow(ctx, query, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert category %q: %w", name, err)
	}
	return id, nil
}

// InsertTag inserts a tag row, skipping silently on an existing name.
// An existing row's description is never touched.
func (s *ContentStore) InsertTag(ctx context.Context, name, slug string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO tags (name, slug)
		VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING;
	`, name, slug)
	if err != nil {
		return fmt.Errorf("insert tag %q: %w", name, err)
	}
	return nil
}

// InsertCategory inserts a category row, skipping silently on an
// existing name.
func (s *ContentStore) InsertCategory(ctx context.Context, name string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO categories (name)
		VALUES ($1)
		ON CONFLICT (name) DO NOTHING;
	`, name)
	if err != nil {
		return fmt.Errorf("insert category %q: %w", name, err)
	}
	return nil
}

// LinkArticleTag inserts one junction row, tolerating replays.
func (s *ContentStore) LinkArticleTag(ctx context.Context, articleID, tagID int64) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO article_tags (article_id, tag_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING;
	`, articleID, tagID)
	if err != nil {
		return fmt.Errorf("link article %d to tag %d: %w", articleID, tagID, err)
	}
	return nil
}

// LinkArticleCategory inserts one junction row, tolerating replays.
func (s *ContentStore) LinkArticleCategory(ctx context.Context, articleID, categoryID int64) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO article_categories (article_id, category_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING;
	`, articleID, categoryID)
	if err != nil {
		return fmt.Errorf("link article %d to category %d: %w", articleID, categoryID, err)
	}
	return nil
}

// InsertComments bulk-inserts the article's comments.
func (s *ContentStore) InsertComments(ctx context.Context, articleID int64, comments []harvest.CommentDoc) error {
	for _, c := range comments {
		_, err := s.db.Exec(ctx, `
			INSERT INTO comments (old_id, author, content, created_at, article_id)
			VALUES ($1, $2, $3, $4, $5);
		`, c.OldID, c.Author, c.Paragraphs, c.CreatedAt, articleID)
		if err != nil {
			return fmt.Errorf("insert comment by %q: %w", c.Author, err)
		}
	}
	return nil
}
