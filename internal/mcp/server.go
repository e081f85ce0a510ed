package mcp

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/fileindex-mcp/internal/config"
	"github.com/dshills/fileindex-mcp/internal/embedder"
	"github.com/dshills/fileindex-mcp/internal/indexer"
	"github.com/dshills/fileindex-mcp/internal/searcher"
	"github.com/dshills/fileindex-mcp/internal/store"
)

const (
	// ServerName is the MCP server name
	ServerName = "fileindex-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with the indexing pipeline and search
// engine.
type Server struct {
	mcp     *server.MCPServer
	store   store.Store
	emb     embedder.Embedder
	indexer *indexer.Indexer
	engine  *searcher.Engine
	watch   bool
}

// NewServer builds the full application from configuration: embedder,
// store, pipeline, search engine, and tool registrations.
func NewServer(ctx context.Context, cfg *config.AppConfig) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	emb, err := buildEmbedder(cfg.Embedder)
	if err != nil {
		return nil, fmt.Errorf("initialize embedder: %w", err)
	}

	st, err := buildStore(ctx, cfg.Store, emb)
	if err != nil {
		_ = emb.Close()
		return nil, fmt.Errorf("initialize store: %w", err)
	}

	s := &Server{
		mcp:   server.NewMCPServer(ServerName, ServerVersion),
		store: st,
		emb:   emb,
		indexer: indexer.New(st, indexer.Options{
			Root:         cfg.Index.Root,
			Workers:      cfg.Index.Workers,
			SnapshotPath: cfg.Index.SnapshotPath,
		}),
		engine: searcher.NewEngine(st),
		watch:  cfg.Index.Watch,
	}
	s.registerTools()
	return s, nil
}

// Serve starts the pipeline and runs the MCP server on stdio until the
// client disconnects.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.indexer.Start(ctx); err != nil {
		return err
	}
	if s.watch {
		if err := s.indexer.Watch(); err != nil {
			return err
		}
	}
	return server.ServeStdio(s.mcp)
}

// Shutdown drains the pipeline, flushes pending upserts, and releases the
// store and embedder handles.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.indexer.Shutdown(ctx)
	if cerr := s.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if cerr := s.emb.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (s *Server) registerTools() {
	s.mcp.AddTool(indexFilesTool(), s.handleIndexFiles)
	s.mcp.AddTool(searchFilesTool(), s.handleSearchFiles)
	s.mcp.AddTool(indexStatusTool(), s.handleIndexStatus)
}

func buildEmbedder(cfg config.EmbedderConfig) (embedder.Embedder, error) {
	switch cfg.Provider {
	case "openai":
		return embedder.New(embedder.Config{
			Provider:  embedder.ProviderOpenAI,
			APIKey:    os.Getenv(cfg.APIKeyEnv),
			Model:     cfg.Model,
			BaseURL:   cfg.BaseURL,
			CacheSize: 10000,
		})
	default:
		return embedder.New(embedder.Config{
			Provider:  embedder.ProviderLocal,
			CacheSize: 10000,
		})
	}
}

func buildStore(ctx context.Context, cfg config.StoreConfig, emb embedder.Embedder) (store.Store, error) {
	switch cfg.Type {
	case "qdrant":
		qcfg := store.QdrantConfig{URL: cfg.Qdrant.URL}
		if cfg.Qdrant.APIKeyEnv != "" {
			qcfg.APIKey = os.Getenv(cfg.Qdrant.APIKeyEnv)
		}
		if cfg.Qdrant.TimeoutSecs > 0 {
			qcfg.Timeout = time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second
		}
		return store.NewQdrant(ctx, qcfg, emb)
	default:
		return store.NewMemory(emb), nil
	}
}
