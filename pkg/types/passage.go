package types

import (
	"errors"
	"fmt"
)

// PassageRecord is one pre-embedded excerpt of study material. Records are
// produced by the offline indexing pipeline and are read-only at runtime.
// (MaterialID, PageNumber, ChunkIndex) is unique across the corpus.
type PassageRecord struct {
	ID             string // stable key: materialId#page-chunkIndex
	MaterialID     string
	PageNumber     int // 1-based
	Offset         int // character offset within the page
	ChunkIndex     int
	PlainText      string
	NormalizedText string
	Embedding      []float32
}

// Key returns the stable record key derived from material, page and chunk.
func (r *PassageRecord) Key() string {
	return fmt.Sprintf("%s#%d-%d", r.MaterialID, r.PageNumber, r.ChunkIndex)
}

// Validate checks the record invariants.
func (r *PassageRecord) Validate() error {
	if r.MaterialID == "" {
		return errors.New("material ID is required")
	}
	if r.PageNumber < 1 {
		return fmt.Errorf("page number must be >= 1, got %d", r.PageNumber)
	}
	if r.ChunkIndex < 0 {
		return fmt.Errorf("chunk index must be >= 0, got %d", r.ChunkIndex)
	}
	if r.PlainText == "" {
		return errors.New("plain text cannot be empty")
	}
	if len(r.Embedding) == 0 {
		return errors.New("embedding cannot be empty")
	}
	return nil
}

// RetrievedPassage is the caller-facing result shape. It is ephemeral and
// never persisted.
type RetrievedPassage struct {
	MaterialID string  `json:"materialId"`
	Page       int     `json:"page"`
	Quote      string  `json:"quote"`
	Score      float64 `json:"score"`
	Offset     int     `json:"offset"`
}

// Candidate pairs a passage record with its relevance score for a single
// query embedding. Candidates carry their vectors so diversity penalties can
// be computed without further backend round trips.
type Candidate struct {
	Record PassageRecord
	Score  float64
}

// Retrieved converts the candidate to the caller-facing shape.
func (c *Candidate) Retrieved() RetrievedPassage {
	return RetrievedPassage{
		MaterialID: c.Record.MaterialID,
		Page:       c.Record.PageNumber,
		Quote:      c.Record.PlainText,
		Score:      c.Score,
		Offset:     c.Record.Offset,
	}
}

// SearchOptions bound a single backend search.
type SearchOptions struct {
	K          int      // maximum passages to return
	MMRLambda  float64  // relevance/diversity tradeoff in [0,1]
	MinScore   float64  // minimum relevance score
	BoostTerms []string // advisory lexical signals; retrieval succeeds with zero matches
}
