package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/extractio/extractio/internal/api"
	"github.com/extractio/extractio/internal/extractio"
	"github.com/extractio/extractio/internal/web"
)

// MediaHandler returns the handler for the "extractio-media" tool.
func MediaHandler(svc Extractio) Handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if ctx.Err() != nil {
			return mcp.NewToolResultError(ctx.Err().Error()), nil
		}
		loc, err := locate(req)
		if err != nil {
			return failure("extractio-media", err), nil
		}
		res, meta, err := svc.Media(ctx, loc)
		if err != nil {
			return failure("extractio-media", err), nil
		}
		if res.Kind == api.KindNotFound {
			return mcp.NewToolResultText(fmt.Sprintf("No media found for %s.", loc)), nil
		}
		return mcp.NewToolResultText(formatMedia(res.Media, meta)), nil
	}
}

func formatMedia(m *api.Media, meta extractio.Meta) string {
	var sb strings.Builder
	sb.WriteString("# ")
	sb.WriteString(m.Title)
	sb.WriteString("\n\n")
	if m.Author != "" {
		sb.WriteString("By ")
		sb.WriteString(m.Author)
		sb.WriteString("\n")
	}
	if m.Duration > 0 {
		sb.WriteString("Duration: ")
		sb.WriteString(formatDuration(m.Duration))
		sb.WriteString("\n")
	}
	if m.Views > 0 {
		sb.WriteString(fmt.Sprintf("Views: %d\n", m.Views))
	}
	if m.Thumbnail != "" {
		sb.WriteString("Thumbnail: ")
		sb.WriteString(m.Thumbnail)
		sb.WriteString("\n")
	}
	if desc := web.DescriptionMarkdown(m.Description); desc != "" {
		sb.WriteString("\n")
		sb.WriteString(desc)
		sb.WriteString("\n")
	}
	if len(m.Formats) > 0 {
		sb.WriteString("\n## Downloads\n")
		for _, f := range m.Formats {
			sb.WriteString(fmt.Sprintf("- %s %s", f.Quality, f.MimeType))
			if f.Size > 0 {
				sb.WriteString(" (" + formatSize(f.Size) + ")")
			}
			sb.WriteString(": ")
			sb.WriteString(f.URL)
			sb.WriteString("\n")
		}
	}
	sb.WriteString(sourceLine(meta))
	return sb.String()
}

func formatDuration(seconds int) string {
	h, m, s := seconds/3600, seconds/60%60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

func sourceLine(meta extractio.Meta) string {
	if meta.FromCache {
		return "\n_(served from cache)_"
	}
	return ""
}
