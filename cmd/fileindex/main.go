package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dshills/fileindex-mcp/internal/config"
	"github.com/dshills/fileindex-mcp/internal/mcp"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

const shutdownTimeout = 30 * time.Second

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if *showVersion {
		fmt.Printf("FileIndex MCP Server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		os.Exit(0)
	}

	// Log to stderr; stdout is reserved for the MCP protocol.
	log.SetOutput(os.Stderr)
	log.Printf("FileIndex MCP Server v%s starting...", version)

	var (
		cfg  *config.AppConfig
		from string
		err  error
	)
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		from = *configPath
	} else {
		cfg, from, err = config.LoadDefault()
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if from != "" {
		log.Printf("Loaded config from %s", from)
	}
	if cfg.Index.Root == "" {
		if cfg.Index.Root, err = os.Getwd(); err != nil {
			log.Fatalf("Failed to resolve working directory: %v", err)
		}
	}
	log.Printf("Index root: %s, store: %s, embedder: %s",
		cfg.Index.Root, cfg.Store.Type, cfg.Embedder.Provider)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, err := mcp.NewServer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		log.Println("MCP server ready, listening on stdio...")
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
		shutdown(server, sigChan)
	case err := <-errChan:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
		shutdown(server, sigChan)
	}

	log.Println("Server stopped")
}

// shutdown drains the pipeline and flushes pending work. A second signal
// or a blown deadline force-exits: the crash-recovery spool replays
// whatever did not make it out.
func shutdown(server *mcp.Server, sigChan chan os.Signal) {
	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
		close(done)
	}()

	select {
	case <-done:
	case sig := <-sigChan:
		log.Printf("Received second signal %v, forcing exit", sig)
		os.Exit(1)
	case <-time.After(shutdownTimeout):
		log.Println("Shutdown deadline exceeded, forcing exit")
		os.Exit(1)
	}
}
