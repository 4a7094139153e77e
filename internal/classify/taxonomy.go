package classify

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/mwhitford/wp-harvester/internal/harvest"
	"github.com/mwhitford/wp-harvester/internal/metrics"
)

// Taxonomy derives tag and category rows from links already classified
// as Tag or Category. Links whose href no longer matches the expected
// slug shape are marked Error and stay excluded until manually reset.
type Taxonomy struct {
	links   harvest.LinkStore
	content harvest.ContentStore
	logger  *zap.Logger
}

// TaxonomyResult summarizes one classifier run.
type TaxonomyResult struct {
	Tags       int `json:"tags"`
	Categories int `json:"categories"`
	Rejected   int `json:"rejected"`
}

// NewTaxonomy builds a Taxonomy classifier.
func NewTaxonomy(links harvest.LinkStore, content harvest.ContentStore, logger *zap.Logger) *Taxonomy {
	return &Taxonomy{links: links, content: content, logger: logger}
}

// Run processes every Tag- and Category-status link. Row inserts skip
// silently on an existing name and never update its description.
func (t *Taxonomy) Run(ctx context.Context) (TaxonomyResult, error) {
	var res TaxonomyResult

	tags, err := t.links.ListByStatus(ctx, harvest.StatusTag)
	if err != nil {
		return res, fmt.Errorf("list tag links: %w", err)
	}
	for _, link := range tags {
		slug, ok := slugFrom(link.Href, tagPathExpr)
		if !ok {
			if err := t.reject(ctx, link.Href); err != nil {
				return res, err
			}
			res.Rejected++
			continue
		}
		if err := t.content.InsertTag(ctx, Humanize(slug), slug); err != nil {
			return res, fmt.Errorf("insert tag %q: %w", slug, err)
		}
		metrics.TaxonomyRows.Inc()
		res.Tags++
	}

	categories, err := t.links.ListByStatus(ctx, harvest.StatusCategory)
	if err != nil {
		return res, fmt.Errorf("list category links: %w", err)
	}
	for _, link := range categories {
		slug, ok := slugFrom(link.Href, categoryPathExpr)
		if !ok {
			if err := t.reject(ctx, link.Href); err != nil {
				return res, err
			}
			res.Rejected++
			continue
		}
		if err := t.content.InsertCategory(ctx, Humanize(slug)); err != nil {
			return res, fmt.Errorf("insert category %q: %w", slug, err)
		}
		metrics.TaxonomyRows.Inc()
		res.Categories++
	}

	return res, nil
}

func (t *Taxonomy) reject(ctx context.Context, href string) error {
	t.logger.Warn("taxonomy slug mismatch", zap.String("href", href))
	if err := t.links.UpsertStatus(ctx, href, harvest.StatusError); err != nil {
		return fmt.Errorf("mark %s as error: %w", href, err)
	}
	return nil
}

func slugFrom(href string, expr *regexp.Regexp) (string, bool) {
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	match := expr.FindStringSubmatch(u.Path)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// Humanize turns a slug into a display name: dashes become spaces and
// each word is title-cased ("node-based-design" -> "Node Based Design").
func Humanize(slug string) string {
	words := strings.Split(strings.ReplaceAll(slug, "-", " "), " ")
	for i, word := range words {
		if word == "" {
			continue
		}
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
