package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mstanton/lumina/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeNoCredential  = -32001 // No API key configured for enrichment
	ErrorCodeEmptyQuery    = -32004 // Query parameter is empty
)

// handleSearchBookmarks handles the search_bookmarks tool invocation
func (s *Server) handleSearchBookmarks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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

	limit := getIntDefault(args, "limit", 20)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	result, err := s.searcher.Search(ctx, query)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	shown := result.Bookmarks
	if len(shown) > limit {
		shown = shown[:limit]
	}

	items := make([]map[string]interface{}, len(shown))
	for i, b := range shown {
		item := map[string]interface{}{
			"id":    b.ID,
			"title": b.Title,
			"url":   b.URL,
		}
		if score, ok := result.SemanticScores[types.MetadataKey(b.ID)]; ok {
			item["semantic_score"] = score
		}
		if score, ok := result.MatchScores[types.MetadataKey(b.ID)]; ok {
			item["match_score"] = score
		}
		items[i] = item
	}

	response := map[string]interface{}{
		"query":         result.Query,
		"outcome":       string(result.Outcome),
		"total_results": len(result.Bookmarks),
		"results":       items,
	}
	if result.RerankError != "" {
		response["rerank_error"] = result.RerankError
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleEnrichBookmarks handles the enrich_bookmarks tool invocation
func (s *Server) handleEnrichBookmarks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.enricher == nil {
		return nil, newMCPError(ErrorCodeNoCredential, "enrichment requires a configured GEMINI_API_KEY", nil)
	}

	args, _ := request.Params.Arguments.(map[string]interface{})

	var ids []string
	if rawIDs, ok := args["bookmark_ids"].([]interface{}); ok {
		for _, raw := range rawIDs {
			id, ok := raw.(string)
			if !ok || id == "" {
				return nil, newMCPError(ErrorCodeInvalidParams, "bookmark_ids must be non-empty strings", nil)
			}
			ids = append(ids, id)
		}
	}
	force, _ := args["force"].(bool)

	var stats *enrichStats
	if len(ids) == 0 {
		raw, err := s.enricher.ProcessAll(ctx, force)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "enrichment failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		stats = &enrichStats{raw.Processed, raw.Failed, raw.Skipped, raw.Duration.Milliseconds()}
	} else {
		raw, err := s.enricher.ProcessBatch(ctx, ids, force)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "enrichment failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		stats = &enrichStats{raw.Processed, raw.Failed, raw.Skipped, raw.Duration.Milliseconds()}
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"processed":   stats.processed,
		"failed":      stats.failed,
		"skipped":     stats.skipped,
		"duration_ms": stats.durationMs,
	})), nil
}

type enrichStats struct {
	processed  int
	failed     int
	skipped    int
	durationMs int64
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to read enrichment status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	total := len(s.source.Bookmarks())
	enriched := counts[types.StatusSuccess]

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"total_bookmarks": total,
		"enriched":        enriched,
		"loading":         counts[types.StatusLoading],
		"errors":          counts[types.StatusError],
		"pending":         total - enriched - counts[types.StatusLoading] - counts[types.StatusError],
	})), nil
}

// newMCPError creates an MCP protocol error
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

// formatJSON renders a response map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
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
