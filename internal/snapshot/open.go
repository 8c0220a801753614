package snapshot

import (
	"context"
	"fmt"

	"github.com/vanshika/creditscore/internal/config"
	"github.com/vanshika/creditscore/internal/graph"
)

// Open builds the Adapter selected by cfg.StoreDriver. The returned close
// func releases the medium; it is never nil. The graph driver requires
// client to be non-nil.
func Open(ctx context.Context, cfg config.FlowConfig, client graph.Client) (*Adapter, func() error, error) {
	noop := func() error { return nil }

	switch cfg.StoreDriver {
	case "memory":
		return New(NewMemoryKV(), cfg.StorageKey), noop, nil
	case "", "file":
		return New(NewFileKV(cfg.StorePath), cfg.StorageKey), noop, nil
	case "sqlite":
		kv, err := OpenSQLiteKV(ctx, cfg.StorePath)
		if err != nil {
			return nil, noop, err
		}
		return New(kv, cfg.StorageKey), kv.Close, nil
	case "graph":
		if client == nil {
			return nil, noop, fmt.Errorf("graph store requires a graph client")
		}
		return New(NewGraphKV(client), cfg.StorageKey), noop, nil
	default:
		return nil, noop, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}
