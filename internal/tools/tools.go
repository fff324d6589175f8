package tools

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/extractio/extractio/internal/api"
	"github.com/extractio/extractio/internal/cache"
	"github.com/extractio/extractio/internal/extractio"
	"github.com/extractio/extractio/internal/logger"
	"github.com/extractio/extractio/internal/media"
	"github.com/extractio/extractio/internal/web"
)

// Extractio is the data the tools render. *extractio.Service implements it.
type Extractio interface {
	Trend(ctx context.Context) ([]api.Media, extractio.Meta, error)
	Media(ctx context.Context, loc media.Locator) (api.MediaResult, extractio.Meta, error)
	Related(ctx context.Context, loc media.Locator) ([]api.Media, extractio.Meta, error)
	Preview(ctx context.Context, loc media.Locator) (web.Preview, extractio.Meta, error)
}

var _ Extractio = (*extractio.Service)(nil)

type Handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// locate reads and parses the "url" argument.
func locate(req mcp.CallToolRequest) (media.Locator, error) {
	raw, err := req.RequireString("url")
	if err != nil {
		return media.Locator{}, err
	}
	return media.Parse(raw)
}

// failure turns an error into a tool error the user can act on.
func failure(tool string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, media.ErrUnsupportedPlatform):
		return mcp.NewToolResultError("Only YouTube links are supported.")
	case errors.Is(err, media.ErrInvalidLocator):
		return mcp.NewToolResultError("That does not look like a YouTube video link.")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return mcp.NewToolResultError(err.Error())
	case errors.Is(err, cache.ErrFetchFailed):
		logger.Errorf("%s: %v", tool, err)
		return mcp.NewToolResultError("Extractio is unavailable right now, please try again later. (" + err.Error() + ")")
	default:
		logger.Errorf("%s: %v", tool, err)
		return mcp.NewToolResultError(err.Error())
	}
}
