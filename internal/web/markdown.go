package web

import (
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
)

// DescriptionMarkdown renders an HTML media description as Markdown.
// Plain text is returned trimmed.
func DescriptionMarkdown(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	doc.Find("script, style, noscript, iframe, object, embed, form").Remove()
	plain := singleLine(doc.Find("body").Text())

	body, err := doc.Find("body").Html()
	if err != nil {
		return plain
	}
	md, err := htmltomarkdown.ConvertString(body)
	if err != nil {
		return plain
	}
	return strings.TrimSpace(md)
}
