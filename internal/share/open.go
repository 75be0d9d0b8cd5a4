package share

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/everforgeworks/growcalc/internal/config"
)

// OpenStore builds the Store selected by cfg.Backend. Postgres migrations
// run first when cfg.MigrateOnStart is set.
func OpenStore(ctx context.Context, cfg config.ShareConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemoryStore(cfg.JanitorEvery), nil

	case config.BackendRedis:
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		store, err := OpenRedis(dialCtx, cfg.Redis.URL, cfg.Redis.KeyPrefix)
		if err != nil {
			return nil, err
		}
		slog.Info("share store: redis", "prefix", store.prefix)
		return store, nil

	case config.BackendPostgres:
		dsn := cfg.DSN()
		if cfg.MigrateOnStart {
			if err := RunMigrations(ctx, dsn); err != nil {
				return nil, err
			}
		}
		store, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		slog.Info("share store: postgres")
		return store, nil
	}
	return nil, fmt.Errorf("unknown share backend %q", cfg.Backend)
}
