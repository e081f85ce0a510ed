package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/fileindex-mcp/internal/indexer"
	"github.com/dshills/fileindex-mcp/internal/searcher"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeIndexingInProgress = -32002 // A full-tree walk is already running
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
)

// handleIndexFiles handles the index_files tool invocation
func (s *Server) handleIndexFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	watch := getBoolDefault(args, "watch", false)

	enqueued, err := s.indexer.WalkTree(ctx)
	if errors.Is(err, indexer.ErrWalkInProgress) {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "an index walk is already running", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "index walk failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if watch {
		if err := s.indexer.Watch(); err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to start watcher", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	// Results the new walk produces must not be served from cache.
	s.engine.ClearCache()

	response := map[string]interface{}{
		"enqueued": enqueued,
		"watching": s.indexer.Stats().Watching,
		"message":  "indexing runs in the background; poll index_status for progress",
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchFiles handles the search_files tool invocation
func (s *Server) handleSearchFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	resp, err := s.engine.Search(ctx, searcher.SearchRequest{
		Query:    query,
		Limit:    limit,
		UseCache: true,
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, r := range resp.Results {
		entry := map[string]interface{}{
			"identity":              r.Identity,
			"rank":                  r.Rank,
			"total_score":           r.TotalScore,
			"metadata_score":        r.MetadataScore,
			"content_score":         r.ContentScore,
			"raw_metadata_distance": r.RawMetadataDistance,
			"raw_content_distance":  r.RawContentDistance,
		}
		if r.Metadata != nil {
			entry["file"] = map[string]interface{}{
				"name":        r.Metadata.Name,
				"path":        r.Metadata.Path,
				"parent_dir":  r.Metadata.ParentDir,
				"extension":   r.Metadata.Extension,
				"size_bytes":  r.Metadata.SizeBytes,
				"modified_at": r.Metadata.ModifiedAt,
				"mime_type":   r.Metadata.MIMEType,
			}
		}
		results = append(results, entry)
	}

	response := map[string]interface{}{
		"query":         query,
		"results":       results,
		"total_results": resp.TotalResults,
		"cache_hit":     resp.CacheHit,
		"duration_ms":   resp.Duration.Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIndexStatus handles the index_status tool invocation
func (s *Server) handleIndexStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats := s.indexer.Stats()

	response := map[string]interface{}{
		"queue": map[string]interface{}{
			"depth":           stats.Queue.QueueDepth,
			"total_added":     stats.Queue.TotalAdded,
			"total_processed": stats.Queue.TotalProcessed,
			"total_failed":    stats.Queue.TotalFailed,
			"is_processing":   stats.Queue.IsProcessing,
			"percent_done":    fmt.Sprintf("%.1f", stats.Queue.PercentDone),
			"rate_per_sec":    fmt.Sprintf("%.1f", stats.Queue.Rate),
		},
		"outcomes": map[string]interface{}{
			"succeeded": stats.Outcomes.Succeeded,
			"skipped":   stats.Outcomes.Skipped,
			"hidden":    stats.Outcomes.Hidden,
			"too_large": stats.Outcomes.TooLarge,
			"failed":    stats.Outcomes.Failed,
		},
		"pending_flush": stats.PendingFlush,
		"watching":      stats.Watching,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}
