package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/storygraph/internal/config"
	"github.com/dgallion1/storygraph/internal/graphstore"
	"github.com/dgallion1/storygraph/internal/pathstore"
)

// OpenStore opens the graph store selected by cfg.StoreBackend. The caller
// closes it.
func OpenStore(ctx context.Context, cfg config.Config, log *slog.Logger) (graphstore.Store, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		s, err := graphstore.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		log.Info("graph store opened", "backend", cfg.StoreBackend, "path", cfg.SQLitePath)
		return s, nil
	case config.BackendPathstore:
		client := pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey)
		log.Info("graph store opened", "backend", cfg.StoreBackend, "url", cfg.PathstoreURL)
		return pathstore.NewGraphStore(client), nil
	case config.BackendMemory:
		log.Warn("graph store is in memory; graphs are lost on exit")
		return graphstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
