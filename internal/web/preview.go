package web

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

const (
	RequestTimeout  = 20 * time.Second
	MaxResponseSize = 1 * 1024 * 1024 // 1MB
)

var ErrNotHTML = errors.New("preview: not an html page")

// Preview is the OpenGraph summary of a media source page.
type Preview struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	SiteName    string `json:"site_name"`
}

type Previewer struct {
	c *colly.Collector
}

func NewPreviewer(timeout time.Duration) *Previewer {
	if timeout <= 0 {
		timeout = RequestTimeout
	}
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.Async(false),
		colly.MaxBodySize(MaxResponseSize),
	)
	_ = c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 2,
	})
	c.SetRequestTimeout(timeout)
	return &Previewer{c: c}
}

// Preview visits rawURL and reads its OpenGraph metadata.
func (p *Previewer) Preview(ctx context.Context, rawURL string) (*Preview, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return nil, errors.New("url must start with http:// or https://")
	}

	// Clones share the HTTP backend and limits but not callbacks, so
	// concurrent previews do not see each other's handlers.
	c := p.c.Clone()
	c.Context = ctx
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", NextUserAgent())
		r.Headers.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})

	var out *Preview
	c.OnHTML("html", func(e *colly.HTMLElement) {
		pv := extractPreview(e.DOM)
		pv.URL = e.Request.URL.String()
		out = &pv
	})

	if err := c.Visit(rawURL); err != nil {
		return nil, fmt.Errorf("preview %s: %w", rawURL, err)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if out == nil {
		return nil, ErrNotHTML
	}
	return out, nil
}

func extractPreview(doc *goquery.Selection) Preview {
	meta := func(selectors ...string) string {
		for _, sel := range selectors {
			if v := strings.TrimSpace(doc.Find(sel).First().AttrOr("content", "")); v != "" {
				return v
			}
		}
		return ""
	}
	pv := Preview{
		Title:       meta(`meta[property="og:title"]`, `meta[name="twitter:title"]`),
		Description: meta(`meta[property="og:description"]`, `meta[name="description"]`),
		Image:       meta(`meta[property="og:image"]`, `meta[name="twitter:image"]`),
		SiteName:    meta(`meta[property="og:site_name"]`),
	}
	if pv.Title == "" {
		pv.Title = singleLine(doc.Find("head > title").First().Text())
	}
	return pv
}

// singleLine trims and collapses internal whitespace/newlines to single spaces.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
