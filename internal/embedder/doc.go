// Package embedder turns query text into fixed-length vectors through an
// external embedding provider. The engine is agnostic to the provider and
// requires only a fixed per-index dimensionality.
//
// Three providers are available: OpenAI (production), Jina, and a
// deterministic local provider for offline development and tests. All
// providers share a content-hash LRU cache, retry with exponential backoff,
// and an optional client-side rate limit.
package embedder
