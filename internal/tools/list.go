package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/extractio/extractio/internal/api"
	"github.com/extractio/extractio/internal/extractio"
)

// TrendHandler returns the handler for the "extractio-trend" tool.
func TrendHandler(svc Extractio) Handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		list, meta, err := svc.Trend(ctx)
		if err != nil {
			return failure("extractio-trend", err), nil
		}
		return mcp.NewToolResultText(formatMediaList(list, meta, "Nothing is trending right now.")), nil
	}
}

// RelatedHandler returns the handler for the "extractio-related" tool.
func RelatedHandler(svc Extractio) Handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		loc, err := locate(req)
		if err != nil {
			return failure("extractio-related", err), nil
		}
		list, meta, err := svc.Related(ctx, loc)
		if err != nil {
			return failure("extractio-related", err), nil
		}
		return mcp.NewToolResultText(formatMediaList(list, meta, "No related content.")), nil
	}
}

// formatMediaList renders an ordered list with one watch link per item.
func formatMediaList(list []api.Media, meta extractio.Meta, empty string) string {
	if len(list) == 0 {
		return empty
	}
	var sb strings.Builder
	for i, m := range list {
		sb.WriteString(fmt.Sprintf("%d. %s\n   https://www.youtube.com/watch?v=%s", i+1, m.Title, m.Identifier))
		if m.Author != "" {
			sb.WriteString("\n   ")
			sb.WriteString(m.Author)
		}
		if i < len(list)-1 {
			sb.WriteString("\n\n")
		}
	}
	sb.WriteString(sourceLine(meta))
	return sb.String()
}
