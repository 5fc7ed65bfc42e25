// Package search implements the multi-stage bookmark retrieval pipeline.
//
// A query flows through four stages:
//   - Vector scoring: cosine similarity between the query embedding and
//     each bookmark's stored embedding
//   - Candidate selection: a bounded, high-recall pool built from semantic
//     and lexical signals
//   - Reranking: an external LLM ordering over the candidate pool
//   - Fallback ranking: a deterministic local blend of exact-phrase,
//     term-coverage, and semantic signals used when reranking is
//     unavailable or returns nothing usable
//
// # Basic Usage
//
//	o := search.NewOrchestrator(source, store, embedder, reranker)
//
//	res, err := o.Search(ctx, "electric cars")
//	for _, b := range res.Bookmarks {
//	    fmt.Println(b.Title, b.URL)
//	}
//
// # Interactive Usage
//
// SetQuery debounces keystroke-level input and delivers settled results on
// the Results channel. Each submission starts a new generation; results
// from superseded generations are discarded rather than cancelled, so a
// slow embedding or rerank call can never clobber a newer query's outcome.
//
//	go func() {
//	    for res := range o.Results() {
//	        render(res)
//	    }
//	}()
//	o.SetQuery("electr")
//	o.SetQuery("electric cars") // supersedes the previous generation
//
// # Degradation
//
// Every external failure downgrades rather than aborts: a failed embedding
// call yields lexical-only candidates, a failed or empty rerank yields the
// local fallback ordering with a user-visible rerank error, and a query
// shorter than two characters (or a missing API credential) yields the
// unfiltered bookmark list.
package search
