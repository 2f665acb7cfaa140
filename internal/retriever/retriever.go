// Package retriever orchestrates a retrieval request end to end: validate,
// normalize, check the cache, expand the question into alternative
// phrasings, embed, search, fuse, optionally rerank, and cache the result.
// Downstream failures degrade the response instead of failing it; only a
// bad request is an error.
package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/kikuchi0790/ukfr-smbc-app-sub000/internal/cache"
	"github.com/kikuchi0790/ukfr-smbc-app-sub000/internal/expand"
	"github.com/kikuchi0790/ukfr-smbc-app-sub000/internal/fusion"
	"github.com/kikuchi0790/ukfr-smbc-app-sub000/internal/hybrid"
	"github.com/kikuchi0790/ukfr-smbc-app-sub000/pkg/types"
)

const (
	// DefaultK is used when the request leaves K unset.
	DefaultK = 5
	// MaxK bounds the requested passage count.
	MaxK = 20
	// MaxQuestionChars bounds the question length.
	MaxQuestionChars = 2000

	// DefaultSingleLambda favors relevance when only one phrasing searches.
	DefaultSingleLambda = 0.7
	// DefaultMultiLambda favors diversity within each phrasing when fusion
	// will surface cross-phrasing consensus anyway.
	DefaultMultiLambda = 0.5
	// multiKFactor widens each phrasing's result list so fusion has
	// overlap to detect.
	multiKFactor = 2

	// rerankConfidence gates which collaborator judgements are blended.
	rerankConfidence = 0.6
	// rerankWeight is the share of the blended score the collaborator
	// judgement contributes.
	rerankWeight = 0.3

	// defaultCallTimeout bounds each embedding and collaborator call.
	defaultCallTimeout = 10 * time.Second
)

// Embedder turns one query phrasing into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Expander is the optional LLM collaborator. Both operations are advisory.
type Expander interface {
	ExpandQuery(ctx context.Context, question, explanation string) ([]string, error)
	Rerank(ctx context.Context, question string, quotes []string, pages []int) ([]expand.RankSignal, error)
}

// Fuser merges multi-phrasing search results. *fusion.Fuser satisfies it.
type Fuser interface {
	Retrieve(ctx context.Context, queries []fusion.SubQuery, k int) ([]types.RetrievedPassage, error)
}

// Options tune the retrieval pipeline.
type Options struct {
	DefaultK int
	MinScore float64

	// SingleLambda and MultiLambda are the MMR relevance weights for the
	// single- and multi-phrasing paths.
	SingleLambda float64
	MultiLambda  float64

	// EmbedTimeout and ExpandTimeout bound each embedding call and each
	// collaborator call. A call that overruns is treated like any other
	// failure of that call: dropped or degraded, never a hang.
	EmbedTimeout  time.Duration
	ExpandTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.DefaultK <= 0 {
		o.DefaultK = DefaultK
	}
	if o.SingleLambda <= 0 {
		o.SingleLambda = DefaultSingleLambda
	}
	if o.MultiLambda <= 0 {
		o.MultiLambda = DefaultMultiLambda
	}
	if o.EmbedTimeout <= 0 {
		o.EmbedTimeout = defaultCallTimeout
	}
	if o.ExpandTimeout <= 0 {
		o.ExpandTimeout = defaultCallTimeout
	}
	return o
}

// Service answers retrieval requests.
type Service struct {
	embedder Embedder
	fuser    Fuser
	expander Expander // nil disables advanced search
	results  *cache.Cache
	opts     Options
	logger   *slog.Logger
}

// New assembles the retrieval service. expander may be nil, in which case
// advanced search requests run the standard single-phrasing pipeline.
func New(embedder Embedder, fuser Fuser, expander Expander, results *cache.Cache, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		embedder: embedder,
		fuser:    fuser,
		expander: expander,
		results:  results,
		opts:     opts.withDefaults(),
		logger:   logger,
	}
}

// Retrieve runs the pipeline for one request. It returns an error only for
// an invalid request; downstream failures produce a response with Fallback
// set and an empty passage list.
func (s *Service) Retrieve(ctx context.Context, req types.RetrieveRequest) (*types.RetrieveResponse, error) {
	k, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	normalized := Normalize(req.Question)
	key := cache.Key(req.StableID, normalized)
	if passages, ok := s.results.Get(key); ok {
		s.logger.Debug("cache hit", "key", key)
		return &types.RetrieveResponse{Passages: passages, Cached: true}, nil
	}

	phrasings := s.phrasings(ctx, req, normalized)
	boostTerms := hybrid.Extract(req.Question).Terms()

	queries := s.embedPhrasings(ctx, phrasings, k, boostTerms)
	if len(queries) == 0 {
		s.logger.Error("retrieval degraded", "error",
			fmt.Errorf("%w: no phrasing could be embedded", types.ErrEmbeddingFailure))
		return degraded(types.ErrEmbeddingFailure.Error()), nil
	}

	passages, err := s.fuser.Retrieve(ctx, queries, k)
	if err != nil {
		s.logger.Error("search failed", "error", err)
		return degraded("search unavailable"), nil
	}

	if req.UseAdvancedSearch && s.expander != nil {
		passages = s.rerank(ctx, req.Question, passages)
	}

	s.results.Set(key, passages)
	return &types.RetrieveResponse{Passages: passages, Cached: false}, nil
}

// validate checks the request and resolves the effective passage count.
func (s *Service) validate(req types.RetrieveRequest) (int, error) {
	if req.Question == "" {
		return 0, fmt.Errorf("%w: question is empty", types.ErrInvalidRequest)
	}
	if len(req.Question) > MaxQuestionChars {
		return 0, fmt.Errorf("%w: question exceeds %d characters", types.ErrInvalidRequest, MaxQuestionChars)
	}
	if req.K < 0 || req.K > MaxK {
		return 0, fmt.Errorf("%w: k must be in [0,%d], got %d", types.ErrInvalidRequest, MaxK, req.K)
	}
	if req.K == 0 {
		return s.opts.DefaultK, nil
	}
	return req.K, nil
}

// phrasings returns the normalized question plus, for advanced search, the
// collaborator's alternative phrasings. Expansion failure is advisory.
func (s *Service) phrasings(ctx context.Context, req types.RetrieveRequest, normalized string) []string {
	phrasings := []string{normalized}
	if !req.UseAdvancedSearch || s.expander == nil {
		return phrasings
	}

	ectx, cancel := context.WithTimeout(ctx, s.opts.ExpandTimeout)
	defer cancel()
	expanded, err := s.expander.ExpandQuery(ectx, req.Question, "")
	if err != nil {
		s.logger.Warn("query expansion failed, using original phrasing", "error", err)
		return phrasings
	}

	seen := map[string]bool{normalized: true}
	for _, p := range expanded {
		n := Normalize(p)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		phrasings = append(phrasings, n)
	}
	return phrasings
}

// embedPhrasings embeds every phrasing concurrently and builds the
// sub-queries. A phrasing whose embedding fails is dropped.
func (s *Service) embedPhrasings(ctx context.Context, phrasings []string, k int, boostTerms []string) []fusion.SubQuery {
	searchK := k
	mmrLambda := s.opts.SingleLambda
	minScore := s.opts.MinScore
	if len(phrasings) > 1 {
		searchK = k * multiKFactor
		mmrLambda = s.opts.MultiLambda
		// Fusion rescues borderline passages that several phrasings
		// agree on, so each phrasing filters less aggressively.
		minScore = s.opts.MinScore * 0.8
	}

	embeddings := make([][]float32, len(phrasings))
	var wg sync.WaitGroup
	for i, p := range phrasings {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ectx, cancel := context.WithTimeout(ctx, s.opts.EmbedTimeout)
			defer cancel()
			vec, err := s.embedder.Embed(ectx, p)
			if err != nil {
				s.logger.Warn("embedding failed, dropping phrasing", "error", err)
				return
			}
			embeddings[i] = vec
		}()
	}
	wg.Wait()

	queries := make([]fusion.SubQuery, 0, len(phrasings))
	for i, p := range phrasings {
		if embeddings[i] == nil {
			continue
		}
		queries = append(queries, fusion.SubQuery{
			Phrasing:  p,
			Embedding: embeddings[i],
			Options: types.SearchOptions{
				K:          searchK,
				MMRLambda:  mmrLambda,
				MinScore:   minScore,
				BoostTerms: boostTerms,
			},
		})
	}
	return queries
}

// rerank blends high-confidence collaborator judgements into the scores and
// re-sorts. Rerank failure keeps the fused order.
func (s *Service) rerank(ctx context.Context, question string, passages []types.RetrievedPassage) []types.RetrievedPassage {
	if len(passages) == 0 {
		return passages
	}

	quotes := make([]string, len(passages))
	pages := make([]int, len(passages))
	for i, p := range passages {
		quotes[i] = p.Quote
		pages[i] = p.Page
	}

	rctx, cancel := context.WithTimeout(ctx, s.opts.ExpandTimeout)
	defer cancel()
	signals, err := s.expander.Rerank(rctx, question, quotes, pages)
	if err != nil {
		s.logger.Warn("rerank failed, keeping fused order", "error", err)
		return passages
	}

	byPage := make(map[int]expand.RankSignal, len(signals))
	for _, sig := range signals {
		if sig.Confidence >= rerankConfidence {
			byPage[sig.Page] = sig
		}
	}
	if len(byPage) == 0 {
		return passages
	}

	for i := range passages {
		if sig, ok := byPage[passages[i].Page]; ok {
			passages[i].Score = (1-rerankWeight)*passages[i].Score + rerankWeight*sig.Score
		}
	}
	sort.SliceStable(passages, func(i, j int) bool {
		return passages[i].Score > passages[j].Score
	})
	return passages
}

func degraded(reason string) *types.RetrieveResponse {
	return &types.RetrieveResponse{
		Passages: []types.RetrievedPassage{},
		Fallback: true,
		Error:    reason,
	}
}
