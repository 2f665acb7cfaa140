package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/kikuchi0790/ukfr-smbc-app-sub000/internal/cache"
	"github.com/kikuchi0790/ukfr-smbc-app-sub000/internal/config"
	"github.com/kikuchi0790/ukfr-smbc-app-sub000/internal/embedder"
	"github.com/kikuchi0790/ukfr-smbc-app-sub000/internal/expand"
	"github.com/kikuchi0790/ukfr-smbc-app-sub000/internal/fusion"
	"github.com/kikuchi0790/ukfr-smbc-app-sub000/internal/index"
	"github.com/kikuchi0790/ukfr-smbc-app-sub000/internal/retriever"
	"github.com/kikuchi0790/ukfr-smbc-app-sub000/pkg/types"
)

const (
	// ServerName is the MCP server name
	ServerName = "passagerag"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// retrievalService answers retrieval requests. *retriever.Service
// satisfies it.
type retrievalService interface {
	Retrieve(ctx context.Context, req types.RetrieveRequest) (*types.RetrieveResponse, error)
}

// indexStatter reports index health. *index.Index satisfies it.
type indexStatter interface {
	Stat(ctx context.Context) (index.Status, error)
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp     *server.MCPServer
	service retrievalService
	index   indexStatter
	results *cache.Cache
	closers []func() error

	embProvider      string
	embModel         string
	expansionEnabled bool
}

// NewServer assembles the retrieval pipeline from configuration and
// registers the MCP tools.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %v", errs)
	}

	idx, err := index.Open(context.Background(), index.Config{
		LocalPath:    cfg.Index.LocalPath,
		RemoteURL:    cfg.Index.RemoteURL,
		RemoteTable:  cfg.Index.RemoteTable,
		Dimension:    cfg.Index.VectorDim,
		Boost:        cfg.Index.Boost,
		QueryTimeout: time.Duration(cfg.Index.QueryTimeoutSeconds) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open passage index: %w", err)
	}

	// An unset provider is resolved from the environment, falling back to
	// the deterministic local embedder.
	var emb embedder.Embedder
	if cfg.Embedding.Provider == "" {
		emb, err = embedder.NewFromEnv()
	} else {
		emb, err = embedder.New(embedder.Config{
			Provider:  cfg.Embedding.Provider,
			APIKey:    cfg.Embedding.APIKey,
			BaseURL:   cfg.Embedding.BaseURL,
			Model:     cfg.Embedding.Model,
			CacheSize: cfg.Embedding.CacheSize,
			RPS:       cfg.Embedding.RateLimit,
		})
	}
	if err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	// Expansion is optional; the pipeline runs single-phrasing without it.
	var expander retriever.Expander
	if cfg.Expansion.Enabled {
		collaborator, err := expand.New(cfg.Expansion.APIKey, cfg.Expansion.BaseURL, cfg.Expansion.Model, logger)
		if err != nil {
			_ = idx.Close()
			_ = emb.Close()
			return nil, fmt.Errorf("failed to initialize query expansion: %w", err)
		}
		expander = collaborator
	}

	results := cache.New(cfg.Cache.Capacity, time.Duration(cfg.Cache.TTLHours)*time.Hour)
	service := retriever.New(emb, fusion.New(idx, cfg.Retrieval.ConsensusBoost, logger), expander, results, retriever.Options{
		DefaultK:      cfg.Retrieval.DefaultK,
		MinScore:      cfg.Retrieval.MinScore,
		SingleLambda:  cfg.Retrieval.SingleLambda,
		MultiLambda:   cfg.Retrieval.MultiLambda,
		EmbedTimeout:  time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
		ExpandTimeout: time.Duration(cfg.Expansion.TimeoutSeconds) * time.Second,
	}, logger)

	s := &Server{
		mcp:              server.NewMCPServer(ServerName, ServerVersion),
		service:          service,
		index:            idx,
		results:          results,
		closers:          []func() error{idx.Close, emb.Close},
		embProvider:      emb.Provider(),
		embModel:         emb.Model(),
		expansionEnabled: cfg.Expansion.Enabled,
	}
	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer s.close()
	return server.ServeStdio(s.mcp)
}

func (s *Server) close() {
	for _, c := range s.closers {
		_ = c()
	}
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(retrievePassagesTool(), s.handleRetrievePassages)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
