package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// searchBookmarksTool returns the tool definition for search_bookmarks
func searchBookmarksTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_bookmarks",
		Description: "Search bookmarks with natural language, keyword, or cross-lingual queries",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language, keywords, or another language)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     20,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"query"},
		},
	}
}

// enrichBookmarksTool returns the tool definition for enrich_bookmarks
func enrichBookmarksTool() mcp.Tool {
	return mcp.Tool{
		Name:        "enrich_bookmarks",
		Description: "Generate AI summaries, tags, keywords, and embeddings for bookmarks",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"bookmark_ids": map[string]interface{}{
					"type":        "array",
					"description": "Bookmark ids to enrich; omit to enrich the entire collection",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "Re-enrich bookmarks that already have a successful record",
					"default":     false,
				},
			},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report bookmark collection size and enrichment progress",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
