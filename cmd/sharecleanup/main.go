/*
Package main
File: main.go
Description: One-shot job that purges expired share links from the configured
store and logs store statistics before and after. Meant for cron when the
server's own janitor is disabled or the store is shared between instances.
*/

package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/everforgeworks/growcalc/internal/config"
	"github.com/everforgeworks/growcalc/internal/share"
)

func main() {
	if err := run(); err != nil {
		slog.Error("cleanup failed", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := "config/server.yaml"
	if p := os.Getenv("GROWCALC_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadServer(cfgPath)
	if err != nil {
		return err
	}
	if cfg.Share.Backend == config.BackendMemory {
		slog.Info("memory share backend has no shared state, nothing to clean")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	store, err := share.OpenStore(ctx, cfg.Share)
	if err != nil {
		return err
	}
	defer store.Close()
	svc := share.NewService(store, cfg.Share.TTL)

	slog.Info("starting cleanup of expired shared results", "backend", cfg.Share.Backend)

	before, err := svc.Stats(ctx)
	if err != nil {
		return err
	}
	slog.Info("stats before cleanup", "total", before.Total, "active", before.Active, "expired", before.Expired)

	deleted, err := svc.Cleanup(ctx)
	if err != nil {
		return err
	}

	after, err := svc.Stats(ctx)
	if err != nil {
		return err
	}
	slog.Info("stats after cleanup", "total", after.Total, "active", after.Active, "expired", after.Expired)

	if deleted > 0 {
		slog.Info("cleaned up expired shared results", "deleted", deleted)
	} else {
		slog.Info("no expired results found")
	}
	return nil
}
