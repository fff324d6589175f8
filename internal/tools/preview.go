package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/extractio/extractio/internal/web"
)

// PreviewHandler returns the handler for the "extractio-preview" tool.
func PreviewHandler(svc Extractio) Handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		loc, err := locate(req)
		if err != nil {
			return failure("extractio-preview", err), nil
		}
		pv, _, err := svc.Preview(ctx, loc)
		if err != nil {
			return failure("extractio-preview", err), nil
		}
		return mcp.NewToolResultText(formatPreview(pv)), nil
	}
}

func formatPreview(pv web.Preview) string {
	var sb strings.Builder
	if pv.Title != "" {
		sb.WriteString("# ")
		sb.WriteString(pv.Title)
		sb.WriteString("\n\n")
	}
	if pv.Description != "" {
		sb.WriteString(pv.Description)
		sb.WriteString("\n\n")
	}
	if pv.Image != "" {
		sb.WriteString("Image: ")
		sb.WriteString(pv.Image)
		sb.WriteString("\n")
	}
	sb.WriteString("Source: ")
	sb.WriteString(pv.URL)
	return sb.String()
}
