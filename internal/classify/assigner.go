// Package classify derives link categories and taxonomy rows from URL shape.
package classify

import (
	"context"
	"fmt"
	"net/url"
	"regexp"

	"go.uber.org/zap"

	"github.com/mwhitford/wp-harvester/internal/harvest"
)

var (
	tagPathExpr      = regexp.MustCompile(`^/tag/([a-z0-9-]+)(?:/page/\d+)?/?$`)
	categoryPathExpr = regexp.MustCompile(`^/category/([a-z0-9-]+)(?:/page/\d+)?/?$`)
	pagingPathExpr   = regexp.MustCompile(`^/page/\d+/?$`)
	authorPathExpr   = regexp.MustCompile(`^/author/`)
	archivePathExpr  = regexp.MustCompile(`^/\d{4}(?:/\d{2}){0,2}/?$`)
)

// Assigner promotes Visited links to a terminal category based on href
// shape. Precedence, first match wins: binary file extension, tag,
// category; listing and utility pages stay Visited; every other
// non-empty path is an article.
type Assigner struct {
	links  harvest.LinkStore
	logger *zap.Logger
}

// NewAssigner builds an Assigner.
func NewAssigner(links harvest.LinkStore, logger *zap.Logger) *Assigner {
	return &Assigner{links: links, logger: logger}
}

// Run classifies every Visited link and returns the number promoted.
func (a *Assigner) Run(ctx context.Context) (int, error) {
	visited, err := a.links.ListByStatus(ctx, harvest.StatusVisited)
	if err != nil {
		return 0, fmt.Errorf("list visited links: %w", err)
	}

	assigned := 0
	for _, link := range visited {
		target := Assign(link.Href)
		if target == harvest.StatusVisited {
			continue
		}
		if err := a.links.UpsertStatus(ctx, link.Href, target); err != nil {
			return assigned, fmt.Errorf("assign %s to %s: %w", link.Href, target, err)
		}
		a.logger.Debug("link classified",
			zap.String("href", link.Href),
			zap.Stringer("status", target),
		)
		assigned++
	}
	return assigned, nil
}

// Assign returns the terminal status for a visited href, or
// StatusVisited when the link is a listing/utility page that carries
// no extractable content of its own.
func Assign(href string) harvest.Status {
	if harvest.IsFileHref(href) {
		return harvest.StatusFile
	}
	u, err := url.Parse(href)
	if err != nil {
		return harvest.StatusVisited
	}
	path := u.Path
	switch {
	case tagPathExpr.MatchString(path):
		return harvest.StatusTag
	case categoryPathExpr.MatchString(path):
		return harvest.StatusCategory
	case path == "" || path == "/":
		return harvest.StatusVisited
	case pagingPathExpr.MatchString(path),
		authorPathExpr.MatchString(path),
		archivePathExpr.MatchString(path):
		return harvest.StatusVisited
	default:
		return harvest.StatusArticle
	}
}
