package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kikuchi0790/ukfr-smbc-app-sub000/pkg/types"
)

// Config selects and parameterizes the backend.
type Config struct {
	LocalPath   string // path to the SQLite index file
	RemoteURL   string // Postgres connection string; empty disables the remote backend
	RemoteTable string
	Dimension   int
	Boost       float64
	// QueryTimeout bounds each remote database round trip; zero selects
	// DefaultQueryTimeout.
	QueryTimeout time.Duration
}

// Open constructs the passage index. When a remote backend is configured but
// unreachable, it falls back once to the local backend; only total
// unavailability is an error.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.RemoteURL != "" {
		remote, err := OpenRemote(ctx, cfg.RemoteURL, cfg.RemoteTable, cfg.Dimension, cfg.QueryTimeout)
		if err == nil {
			logger.Info("passage index ready", "backend", "remote", "table", cfg.RemoteTable)
			return New(remote, cfg.Boost, logger), nil
		}
		if cfg.LocalPath == "" {
			return nil, err
		}
		logger.Warn("remote passage index unreachable, falling back to local", "error", err)
	}

	if cfg.LocalPath == "" {
		return nil, fmt.Errorf("%w: no backend configured", types.ErrIndexUnavailable)
	}

	local, err := OpenLocal(cfg.LocalPath)
	if err != nil {
		return nil, err
	}
	count, _ := local.Count(ctx)
	logger.Info("passage index ready", "backend", "local", "passages", count, "dimension", local.Dimension())
	return New(local, cfg.Boost, logger), nil
}
