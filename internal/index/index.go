package index

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/kikuchi0790/ukfr-smbc-app-sub000/internal/rank"
	"github.com/kikuchi0790/ukfr-smbc-app-sub000/pkg/types"
)

const (
	// minCandidatePool is the floor for the oversized candidate pool
	// fetched per search so diversity selection has material to work with.
	minCandidatePool = 20
	// poolMultiplier scales the requested k into the candidate pool size.
	poolMultiplier = 4
	// DefaultBoost is the multiplicative score boost for candidates whose
	// text contains a matched lexical signal.
	DefaultBoost = 1.05
)

// Backend is the uniform candidate source implemented by the local and
// remote variants. Candidates come back ordered by descending relevance,
// carrying their vectors.
type Backend interface {
	Candidates(ctx context.Context, queryEmbedding []float32, limit int) ([]types.Candidate, error)
	Dimension() int
	Count(ctx context.Context) (int, error)
	Kind() string
	Close() error
}

// Index wraps a backend with the scoring pipeline: lexical boost, minimum
// score threshold and MMR diversity selection.
type Index struct {
	backend Backend
	boost   float64
	logger  *slog.Logger
}

// New wraps a backend. A non-positive boost falls back to DefaultBoost.
func New(backend Backend, boost float64, logger *slog.Logger) *Index {
	if boost <= 0 {
		boost = DefaultBoost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{backend: backend, boost: boost, logger: logger}
}

// Backend returns the wrapped backend.
func (ix *Index) Backend() Backend { return ix.backend }

// Close releases backend resources.
func (ix *Index) Close() error { return ix.backend.Close() }

// Search returns up to opts.K passages ordered by descending final score.
// An empty index or k <= 0 yields an empty slice, never an error.
func (ix *Index) Search(ctx context.Context, queryEmbedding []float32, opts types.SearchOptions) ([]types.RetrievedPassage, error) {
	if opts.K <= 0 {
		return []types.RetrievedPassage{}, nil
	}

	poolSize := opts.K * poolMultiplier
	if poolSize < minCandidatePool {
		poolSize = minCandidatePool
	}

	pool, err := ix.backend.Candidates(ctx, queryEmbedding, poolSize)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return []types.RetrievedPassage{}, nil
	}

	applyBoost(pool, opts.BoostTerms, ix.boost)

	if opts.MinScore > 0 {
		kept := pool[:0]
		for _, c := range pool {
			if c.Score >= opts.MinScore {
				kept = append(kept, c)
			}
		}
		pool = kept
	}

	selected := rank.SelectMMR(pool, opts.K, opts.MMRLambda)

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Score > selected[j].Score
	})

	passages := make([]types.RetrievedPassage, len(selected))
	for i := range selected {
		passages[i] = selected[i].Retrieved()
	}
	return passages, nil
}

// applyBoost multiplies the score of every candidate whose normalized text
// contains at least one signal term. The boost applies once per candidate
// regardless of how many terms match.
func applyBoost(pool []types.Candidate, terms []string, boost float64) {
	if len(terms) == 0 {
		return
	}
	for i := range pool {
		text := pool[i].Record.NormalizedText
		if text == "" {
			text = strings.ToLower(pool[i].Record.PlainText)
		}
		for _, term := range terms {
			if term != "" && strings.Contains(text, term) {
				pool[i].Score *= boost
				break
			}
		}
	}
}

// Status summarizes the index for reporting.
type Status struct {
	Kind      string
	Passages  int
	Dimension int
}

// Stat reports the backend kind, passage count and vector dimensionality.
func (ix *Index) Stat(ctx context.Context) (Status, error) {
	count, err := ix.backend.Count(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Kind:      ix.backend.Kind(),
		Passages:  count,
		Dimension: ix.backend.Dimension(),
	}, nil
}
