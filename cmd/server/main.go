package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/extractio/extractio/internal/api"
	"github.com/extractio/extractio/internal/cache"
	"github.com/extractio/extractio/internal/config"
	"github.com/extractio/extractio/internal/extractio"
	"github.com/extractio/extractio/internal/logger"
	"github.com/extractio/extractio/internal/tools"
	"github.com/extractio/extractio/internal/web"
)

const daemonBinary = "extractio-cache"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Log.Path); err != nil {
		panic(err)
	}
	defer logger.Close()
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))

	logger.Infof("Starting Extractio MCP server, api %s", cfg.API.BaseURL)

	kv := connectOrStartCache(cfg.Cache.Socket)

	var opts []cache.Option
	if cfg.Cache.TouchOnHit {
		opts = append(opts, cache.WithTouchOnHit())
	}
	svc := extractio.NewService(
		cache.NewManager(kv, opts...),
		api.NewClient(cfg.API.BaseURL, cfg.API.Timeout),
		web.NewPreviewer(cfg.Server.Preview),
		cfg.TTL,
	)

	s := server.NewMCPServer(
		cfg.Server.Name,
		"0.1.0",
		server.WithRecovery(),
		server.WithToolCapabilities(false),
	)

	urlArg := mcp.WithString("url", mcp.Required(), mcp.Description("YouTube video URL, e.g. https://www.youtube.com/watch?v=..."))

	s.AddTool(mcp.NewTool("extractio-media",
		mcp.WithDescription("Looks up a YouTube video on Extractio and lists its metadata and download formats. Results are cached for up to an hour."),
		urlArg,
	), server.ToolHandlerFunc(tools.MediaHandler(svc)))

	s.AddTool(mcp.NewTool("extractio-related",
		mcp.WithDescription("Lists content related to a YouTube video."),
		urlArg,
	), server.ToolHandlerFunc(tools.RelatedHandler(svc)))

	s.AddTool(mcp.NewTool("extractio-trend",
		mcp.WithDescription("Lists media currently trending on Extractio. Refreshed once a day."),
	), server.ToolHandlerFunc(tools.TrendHandler(svc)))

	s.AddTool(mcp.NewTool("extractio-preview",
		mcp.WithDescription("Reads the title, description and thumbnail from a YouTube video page."),
		urlArg,
	), server.ToolHandlerFunc(tools.PreviewHandler(svc)))
	logger.Infof("Registered extractio tools")

	logger.Infof("Starting MCP server on stdio")
	if err := server.ServeStdio(s); err != nil {
		logger.Errorf("server error: %v", err)
	}
}

// connectOrStartCache returns a client of the cache daemon, starting the
// daemon if needed. When it cannot be reached the server keeps a process
// local cache.
func connectOrStartCache(sock string) cache.KV {
	client := cache.NewClient(sock)
	err := client.Ping()
	if err == nil {
		logger.Infof("Connected to cache daemon at %s", sock)
		return client
	}
	logger.Warnf("Failed to connect to cache daemon: %v, attempting to start daemon", err)

	if err := startCacheDaemon(); err != nil {
		logger.Errorf("Failed to start cache daemon: %v", err)
		return cache.NewMemory()
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if client.Ping() == nil {
			logger.Infof("Cache daemon started, connected at %s", sock)
			return client
		}
		time.Sleep(200 * time.Millisecond)
	}
	logger.Errorf("Cache daemon did not come up at %s, using in-memory cache", sock)
	return cache.NewMemory()
}

func startCacheDaemon() error {
	candidates := []string{}
	// 1) Next to this executable
	if exePath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exePath), daemonBinary))
	}
	// 2) PATH
	if path, err := exec.LookPath(daemonBinary); err == nil {
		candidates = append(candidates, path)
	}
	// 3) Current working directory
	candidates = append(candidates, "./"+daemonBinary)

	for _, bin := range candidates {
		if _, err := os.Stat(bin); err != nil {
			continue
		}
		cmd := exec.Command(bin)
		cmd.Env = os.Environ()
		return cmd.Start()
	}
	return exec.ErrNotFound
}
