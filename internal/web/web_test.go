package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const videoPage = `<!doctype html>
<html><head>
<title>  Fallback
  Title </title>
<meta property="og:title" content="Never Gonna Give You Up">
<meta property="og:description" content="Official video">
<meta property="og:image" content="https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg">
<meta property="og:site_name" content="YouTube">
</head><body><p>body</p></body></html>`

func TestExtractPreview(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(videoPage))
	require.NoError(t, err)

	pv := extractPreview(doc.Selection)
	assert.Equal(t, "Never Gonna Give You Up", pv.Title)
	assert.Equal(t, "Official video", pv.Description)
	assert.Equal(t, "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg", pv.Image)
	assert.Equal(t, "YouTube", pv.SiteName)
}

func TestExtractPreview_Fallbacks(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><head>
<title>
  Plain   page
</title>
<meta name="description" content="described">
</head></html>`))
	require.NoError(t, err)

	pv := extractPreview(doc.Selection)
	assert.Equal(t, "Plain page", pv.Title)
	assert.Equal(t, "described", pv.Description)
	assert.Empty(t, pv.Image)
}

func TestPreviewer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/watch":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(videoPage))
		case "/thumb.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write([]byte{0xff, 0xd8, 0xff})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	p := NewPreviewer(2 * time.Second)

	pv, err := p.Preview(context.Background(), server.URL+"/watch?v=dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "Never Gonna Give You Up", pv.Title)
	assert.Equal(t, server.URL+"/watch?v=dQw4w9WgXcQ", pv.URL)

	_, err = p.Preview(context.Background(), server.URL+"/thumb.jpg")
	assert.ErrorIs(t, err, ErrNotHTML)

	_, err = p.Preview(context.Background(), server.URL+"/missing")
	assert.Error(t, err)

	_, err = p.Preview(context.Background(), "youtube.com/watch")
	assert.Error(t, err)
}

func TestPreviewer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPreviewer(0).Preview(ctx, "https://example.com")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDescriptionMarkdown(t *testing.T) {
	assert.Equal(t, "plain text", DescriptionMarkdown("  plain text \n"))

	md := DescriptionMarkdown(`<p>Hello <strong>world</strong></p><script>alert(1)</script><p><a href="https://example.com/x">link</a></p>`)
	assert.Contains(t, md, "**world**")
	assert.Contains(t, md, "[link](https://example.com/x)")
	assert.NotContains(t, md, "alert")
}

func TestNextUserAgent(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seen[NextUserAgent()] = true
	}
	assert.Greater(t, len(seen), 1)
	for ua := range seen {
		assert.Contains(t, userAgents, ua)
	}
}
