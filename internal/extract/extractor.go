// Package extract parses one article page into the normalized
// article + comments structure.
package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mwhitford/wp-harvester/internal/harvest"
)

// Selectors for the origin's WordPress theme. The container is an
// invariant of well-formed pages; everything below it is best-effort.
const (
	containerSel = "div[id^='post-']"
	titleSel     = "h2 a"
	dateSel      = "small.post-date"
	entrySel     = "div.entry"
	relatedSel   = "div.related-posts"
	categorySel  = "span.cat-links a"
	tagSel       = "span.tag-links a"
	commentSel   = "ol.commentlist > li"
)

// Date layouts used by the origin. Article headers carry an ordinal
// suffix ("June 3rd, 2019"); comment timestamps include time of day.
const (
	articleDateLayout = "January 2, 2006"
	commentDateLayout = "January 2, 2006 at 3:04 pm"
)

var (
	digitExpr   = regexp.MustCompile(`\d+`)
	ordinalExpr = regexp.MustCompile(`(\d{1,2})(st|nd|rd|th)\b`)
)

// Extractor turns fetched article HTML into a harvest.ArticleDoc.
type Extractor struct {
	clock harvest.Clock
}

// New wires a clock used for date-parse fallbacks.
func New(clock harvest.Clock) *Extractor {
	return &Extractor{clock: clock}
}

// Document parses raw page bytes into a goquery document.
func Document(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// Extract locates the canonical content container and pulls out the
// article, its taxonomy names, comments, and related-article ids.
// A missing container is fatal for the request; unparseable dates and
// ids are recovered locally.
func (e *Extractor) Extract(doc *goquery.Document, pageURL string) (harvest.ArticleDoc, error) {
	container := doc.Find(containerSel).First()
	if container.Length() == 0 {
		return harvest.ArticleDoc{}, fmt.Errorf("%s: %w", pageURL, harvest.ErrNoContainer)
	}

	art := harvest.ArticleDoc{
		OldID: parseID(container.AttrOr("id", "")),
	}

	heading := container.Find(titleSel).First()
	art.Title = strings.TrimSpace(heading.Text())
	art.Link = heading.AttrOr("href", "")
	if art.Link == "" {
		art.Link = pageURL
	}

	art.PublishedAt = e.parseArticleDate(container.Find(dateSel).First().Text())

	entry := container.Find(entrySel).First()
	if entry.Length() == 0 {
		entry = container
	}

	related := entry.Find(relatedSel)
	related.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		if id := parseID(a.AttrOr("href", "")); id != harvest.AbsentID {
			art.RelatedIDs = append(art.RelatedIDs, id)
		}
	})
	related.Remove()

	html, err := entry.Html()
	if err != nil {
		return harvest.ArticleDoc{}, fmt.Errorf("%s: read content: %w", pageURL, err)
	}
	art.ContentHTML = strings.TrimSpace(html)

	entry.Find("img").Each(func(_ int, img *goquery.Selection) {
		if src := strings.TrimSpace(img.AttrOr("src", "")); src != "" {
			art.Images = append(art.Images, src)
		}
	})

	container.Find(categorySel).Each(func(_ int, a *goquery.Selection) {
		if name := strings.TrimSpace(a.Text()); name != "" {
			art.Categories = append(art.Categories, name)
		}
	})
	container.Find(tagSel).Each(func(_ int, a *goquery.Selection) {
		if name := strings.TrimSpace(a.Text()); name != "" {
			art.Tags = append(art.Tags, name)
		}
	})

	doc.Find(commentSel).Each(func(_ int, li *goquery.Selection) {
		art.Comments = append(art.Comments, e.extractComment(li))
	})

	return art, nil
}

func (e *Extractor) extractComment(li *goquery.Selection) harvest.CommentDoc {
	c := harvest.CommentDoc{
		OldID:  parseID(li.AttrOr("id", "")),
		Author: strings.TrimSpace(li.Find("cite").First().Text()),
	}
	li.Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := strings.TrimSpace(p.Text()); text != "" {
			c.Paragraphs = append(c.Paragraphs, text)
		}
	})
	c.CreatedAt = e.parseCommentDate(li.Find(".comment-meta").First().Text())
	return c
}

// parseArticleDate handles the long form "June 3rd, 2019". Publish
// dates are metadata, not identity keys, so a mismatch falls back to
// the current time instead of aborting the extraction.
func (e *Extractor) parseArticleDate(raw string) time.Time {
	cleaned := ordinalExpr.ReplaceAllString(strings.TrimSpace(raw), "$1")
	if t, err := time.Parse(articleDateLayout, cleaned); err == nil {
		return t.UTC()
	}
	return e.clock.Now()
}

// parseCommentDate handles the second origin format, which includes
// time of day ("June 5, 2019 at 10:14 am"). Same fallback policy.
func (e *Extractor) parseCommentDate(raw string) time.Time {
	if t, err := time.Parse(commentDateLayout, strings.TrimSpace(raw)); err == nil {
		return t.UTC()
	}
	return e.clock.Now()
}

// parseID pulls the first run of digits out of the input. Unparseable
// input yields harvest.AbsentID.
func parseID(raw string) int64 {
	match := digitExpr.FindString(raw)
	if match == "" {
		return harvest.AbsentID
	}
	id, err := strconv.ParseInt(match, 10, 64)
	if err != nil {
		return harvest.AbsentID
	}
	return id
}
