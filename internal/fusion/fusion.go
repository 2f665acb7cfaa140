// Package fusion merges retrieval results from several phrasings of the
// same question. Passages that more than one phrasing surfaces are the
// strongest evidence, so they are boosted and ranked first.
package fusion

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/kikuchi0790/ukfr-smbc-app-sub000/pkg/types"
)

// DefaultConsensusBoost multiplies a passage's best score once per extra
// phrasing that independently retrieves it.
const DefaultConsensusBoost = 1.1

// Searcher runs one embedded query against the passage index.
// *index.Index satisfies it.
type Searcher interface {
	Search(ctx context.Context, queryEmbedding []float32, opts types.SearchOptions) ([]types.RetrievedPassage, error)
}

// SubQuery is one phrasing of the question, already embedded.
type SubQuery struct {
	Phrasing  string
	Embedding []float32
	Options   types.SearchOptions
}

// Fuser fans sub-queries out over the index and merges the results.
type Fuser struct {
	searcher Searcher
	boost    float64
	logger   *slog.Logger
}

// New creates a Fuser. A non-positive boost falls back to
// DefaultConsensusBoost, a nil logger to slog.Default.
func New(searcher Searcher, boost float64, logger *slog.Logger) *Fuser {
	if boost <= 0 {
		boost = DefaultConsensusBoost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fuser{searcher: searcher, boost: boost, logger: logger}
}

// merged accumulates evidence for one passage key across sub-queries.
type merged struct {
	passage   types.RetrievedPassage
	bestScore float64
	queryHits int
}

func passageKey(p types.RetrievedPassage) string {
	return fmt.Sprintf("%s|%d|%d", p.MaterialID, p.Page, p.Offset)
}

// Retrieve runs all sub-queries concurrently and merges their results into
// at most k passages. A sub-query that fails is logged and dropped; only
// when every sub-query fails does Retrieve return an error. Passages are
// ordered by the number of phrasings that retrieved them, then by score.
func (f *Fuser) Retrieve(ctx context.Context, queries []SubQuery, k int) ([]types.RetrievedPassage, error) {
	if len(queries) == 0 || k <= 0 {
		return []types.RetrievedPassage{}, nil
	}

	results := make([][]types.RetrievedPassage, len(queries))
	errs := make([]error, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			passages, err := f.searcher.Search(gctx, q.Embedding, q.Options)
			if err != nil {
				// Degrade to the surviving phrasings rather than
				// failing the whole retrieval.
				f.logger.Warn("sub-query failed", "phrasing", q.Phrasing, "error", err)
				errs[i] = err
				return nil
			}
			results[i] = passages
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed == len(queries) {
		return nil, fmt.Errorf("all %d sub-queries failed: %w", failed, errs[0])
	}

	byKey := make(map[string]*merged)
	order := make([]string, 0)
	for _, passages := range results {
		seenHere := make(map[string]bool, len(passages))
		for _, p := range passages {
			key := passageKey(p)
			m, ok := byKey[key]
			if !ok {
				m = &merged{passage: p, bestScore: p.Score}
				byKey[key] = m
				order = append(order, key)
				seenHere[key] = true
				m.queryHits = 1
				continue
			}
			if p.Score > m.bestScore {
				m.bestScore = p.Score
				m.passage = p
			}
			// A duplicate within one result list is not consensus.
			if !seenHere[key] {
				seenHere[key] = true
				m.queryHits++
			}
		}
	}

	fused := make([]types.RetrievedPassage, 0, len(order))
	for _, key := range order {
		m := byKey[key]
		p := m.passage
		p.Score = m.bestScore
		// The boost compounds: each extra confirming phrasing multiplies
		// the score again.
		for hit := 1; hit < m.queryHits; hit++ {
			p.Score *= f.boost
		}
		fused = append(fused, p)
	}

	hits := func(p types.RetrievedPassage) int { return byKey[passageKey(p)].queryHits }
	sort.SliceStable(fused, func(i, j int) bool {
		hi, hj := hits(fused[i]), hits(fused[j])
		if hi != hj {
			return hi > hj
		}
		return fused[i].Score > fused[j].Score
	})

	if len(fused) > k {
		fused = fused[:k]
	}
	return fused, nil
}
