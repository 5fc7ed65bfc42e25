// Package mcp implements the Model Context Protocol server exposing
// bookmark search and enrichment as tools.
//
// Three tools are registered:
//   - search_bookmarks: run the full retrieval pipeline for a query
//   - enrich_bookmarks: summarize, tag, and embed bookmarks
//   - get_status: report enrichment progress
//
// The server speaks MCP over stdio; all logging goes to stderr.
package mcp
