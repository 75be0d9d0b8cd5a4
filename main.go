/*
Package main
File: main.go
Description: Server entry point. Loads the plant catalog, opens the share
store, starts the real-time WebSocket hub and serves the calculator API.
SIGHUP reloads the catalog without a restart.
*/

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/everforgeworks/growcalc/internal/api"
	"github.com/everforgeworks/growcalc/internal/config"
	"github.com/everforgeworks/growcalc/internal/notify"
	"github.com/everforgeworks/growcalc/internal/share"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Configuration
	cfgPath := "config/server.yaml"
	if p := os.Getenv("GROWCALC_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadServer(cfgPath)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Reference data
	cat, err := cfg.Catalog.Open()
	if err != nil {
		return err
	}
	slog.Info("catalog loaded",
		"plants", len(cat.Plants()),
		"variants", len(cat.Variants()),
		"mutations", len(cat.Mutations()),
	)

	// 3. Share persistence and its side channels
	store, err := share.OpenStore(ctx, cfg.Share)
	if err != nil {
		return err
	}
	defer store.Close()

	hub := api.NewHub()
	opts := []share.ServiceOption{
		share.WithBaseURL(cfg.Share.PublicBaseURL),
		share.WithPublisher(hub),
	}
	if d := notify.NewDiscord(cfg.Discord.WebhookURL, cfg.Discord.Username, cfg.Discord.Timeout); d != nil {
		opts = append(opts, share.WithNotifier(d))
		slog.Info("discord notifications enabled")
	}
	shares := share.NewService(store, cfg.Share.TTL, opts...)

	// 4. HTTP
	server := api.NewServer(cat, shares, hub, api.Options{
		MaxQuantity:      cfg.MaxQuantity,
		MaxBatchItems:    cfg.MaxBatchItems,
		BatchConcurrency: cfg.BatchConcurrency,
	})
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("growcalc server live", "addr", cfg.Addr(), "share_backend", cfg.Share.Backend)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	// 5. Real-time hub
	g.Go(func() error { return hub.Run(gctx) })

	// 6. Share janitor (janitor_every: 0 turns it off)
	if cfg.Share.JanitorEvery > 0 {
		g.Go(func() error { return shares.RunJanitor(gctx, cfg.Share.JanitorEvery) })
	}

	// 7. Hot-reload: SIGHUP re-reads the catalog from its configured source
	g.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGHUP)
		defer signal.Stop(sigChan)
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-sigChan:
				next, err := cfg.Catalog.Open()
				if err != nil {
					slog.Error("catalog reload failed, keeping current catalog", "err", err)
					continue
				}
				server.Reload(next)
				slog.Info("catalog reloaded", "plants", len(next.Plants()))
			}
		}
	})

	return g.Wait()
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}
