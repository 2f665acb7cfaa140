// Package rank implements the numeric core of retrieval: cosine similarity
// scoring and Maximal Marginal Relevance (MMR) diverse top-k selection.
package rank
