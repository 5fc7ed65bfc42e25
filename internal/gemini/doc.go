// Package gemini implements the Gemini REST API client used for bookmark
// enrichment and search: text embeddings, page summarization, and
// candidate reranking.
//
// All three operations retry transient failures (429, 5xx) with
// exponential backoff and treat safety rejections and malformed model
// output as permanent. Embeddings are cached in-memory by content hash.
//
// The client never parses beyond the fields it consumes; response shapes
// live next to the methods that decode them.
package gemini
