package main

import (
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/extractio/extractio/internal/cache"
	"github.com/extractio/extractio/internal/config"
	"github.com/extractio/extractio/internal/logger"
)

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

	sock := cfg.Cache.Socket
	// Ensure socket dir exists and remove stale socket
	_ = os.MkdirAll(filepath.Dir(sock), 0o755)
	_ = os.Remove(sock)

	l, err := net.Listen("unix", sock)
	if err != nil {
		panic(err)
	}
	_ = os.Chmod(sock, 0o600)

	_ = os.MkdirAll(filepath.Dir(cfg.Cache.DBPath), 0o755)
	store, err := cache.Open(cfg.Cache.DBPath, cache.Options{Bucket: cfg.Cache.Bucket})
	if err != nil {
		_ = l.Close()
		panic(err)
	}
	defer store.Close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Infof("Cache daemon shutting down")
		_ = l.Close()
	}()

	logger.Infof("Cache daemon serving %s on %s", cfg.Cache.DBPath, sock)
	if err := cache.Serve(l, store); err != nil {
		logger.Errorf("cache daemon: %v", err)
	}
}
