// Package types provides shared type definitions for the Lumina bookmark
// search server.
//
// This package defines domain types used across multiple components of
// Lumina, including bookmarks, enrichment metadata, rerank candidates, and
// search results.
//
// # Core Types
//
// Bookmark is a url-bearing node flattened out of the browser bookmark tree:
//
//	b := types.Bookmark{
//	    ID:    "42",
//	    Title: "Tesla Model Y",
//	    URL:   "https://www.tesla.com/modely",
//	}
//
// Metadata is the enrichment record the background process maintains per
// bookmark, keyed in the store by "bookmark_<id>":
//
//	meta := &types.Metadata{
//	    Status:   types.StatusSuccess,
//	    Summary:  "Official product page for the Tesla Model Y.",
//	    Keywords: "electric car EV 电车 tesla suv",
//	}
//
// Records move from loading to success (summary, tags, keywords, and
// embedding populated) or to error (Error populated).
//
// # Search Results
//
// SearchResult is the settled output of one search pipeline generation and
// records which path produced the ordering:
//
//	res.Outcome == types.OutcomeReranked // external reranker ordering
//	res.Outcome == types.OutcomeFallback // local blended scoring
//	res.Outcome == types.OutcomeShowAll  // short query, unfiltered list
//
// Result orderings never contain ids outside the bookmark snapshot they
// were computed over, and never contain duplicates.
package types
