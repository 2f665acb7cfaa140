package index

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/kikuchi0790/ukfr-smbc-app-sub000/pkg/types"
)

const (
	// DefaultRemoteTable is the pgvector table holding the passage corpus.
	DefaultRemoteTable = "passages"
	// remoteConnectTimeout bounds the construction-time reachability check.
	remoteConnectTimeout = 5 * time.Second
	// DefaultQueryTimeout bounds each per-search database round trip.
	DefaultQueryTimeout = 5 * time.Second
)

// Remote is the vector-database backend. It issues one approximate-nearest-
// neighbor query per search against an oversized candidate pool and fetches
// candidate vectors alongside scores, so diversity penalties can be computed
// client-side without extra round trips.
type Remote struct {
	pool         *pgxpool.Pool
	table        string
	dim          int
	queryTimeout time.Duration
}

// OpenRemote connects to the remote vector database and verifies it is
// reachable. An unreachable backend fails construction so the caller can
// fall back to the local index. queryTimeout bounds every subsequent
// query; a non-positive value selects DefaultQueryTimeout.
func OpenRemote(ctx context.Context, connString, table string, dim int, queryTimeout time.Duration) (*Remote, error) {
	if table == "" {
		table = DefaultRemoteTable
	}
	if queryTimeout <= 0 {
		queryTimeout = DefaultQueryTimeout
	}

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("%w: remote backend: %v", types.ErrIndexUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, remoteConnectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: remote backend unreachable: %v", types.ErrIndexUnavailable, err)
	}

	return &Remote{pool: pool, table: table, dim: dim, queryTimeout: queryTimeout}, nil
}

// remoteRow is the decoded wire shape of one candidate. Every payload field
// is nullable; defaults are applied explicitly rather than trusting the wire.
type remoteRow struct {
	MaterialID     *string
	PageNumber     *int32
	ChunkIndex     *int32
	Offset         *int32
	PlainText      *string
	NormalizedText *string
	Embedding      pgvector.Vector
	Score          float64
}

// toCandidate validates and defaults the decoded payload: a missing or
// out-of-range page number defaults to 1, missing offsets and chunk indexes
// to 0, and a missing normalized text to the lowercased plain text.
func (rr *remoteRow) toCandidate() types.Candidate {
	r := types.PassageRecord{
		PageNumber: 1,
		Embedding:  rr.Embedding.Slice(),
	}
	if rr.MaterialID != nil {
		r.MaterialID = *rr.MaterialID
	}
	if rr.PageNumber != nil && *rr.PageNumber >= 1 {
		r.PageNumber = int(*rr.PageNumber)
	}
	if rr.ChunkIndex != nil && *rr.ChunkIndex >= 0 {
		r.ChunkIndex = int(*rr.ChunkIndex)
	}
	if rr.Offset != nil && *rr.Offset >= 0 {
		r.Offset = int(*rr.Offset)
	}
	if rr.PlainText != nil {
		r.PlainText = *rr.PlainText
	}
	if rr.NormalizedText != nil && *rr.NormalizedText != "" {
		r.NormalizedText = *rr.NormalizedText
	} else {
		r.NormalizedText = strings.ToLower(r.PlainText)
	}
	r.ID = r.Key()

	return types.Candidate{Record: r, Score: rr.Score}
}

// Candidates runs one ANN query ordered by cosine distance and returns up to
// limit scored candidates with their vectors.
func (r *Remote) Candidates(ctx context.Context, queryEmbedding []float32, limit int) ([]types.Candidate, error) {
	if limit <= 0 {
		return []types.Candidate{}, nil
	}

	query := fmt.Sprintf(`
		SELECT material_id, page_number, chunk_index, chunk_offset,
		       plain_text, normalized_text, embedding,
		       1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`, r.table)

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, query, pgvector.NewVector(queryEmbedding), limit)
	if err != nil {
		return nil, fmt.Errorf("remote candidate query: %w", err)
	}
	defer rows.Close()

	candidates := make([]types.Candidate, 0, limit)
	for rows.Next() {
		var rr remoteRow
		if err := rows.Scan(&rr.MaterialID, &rr.PageNumber, &rr.ChunkIndex, &rr.Offset,
			&rr.PlainText, &rr.NormalizedText, &rr.Embedding, &rr.Score); err != nil {
			return nil, fmt.Errorf("scan remote candidate: %w", err)
		}
		candidates = append(candidates, rr.toCandidate())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read remote candidates: %w", err)
	}

	return candidates, nil
}

// Dimension returns the configured embedding dimensionality.
func (r *Remote) Dimension() int { return r.dim }

// Count reports the passage count in the remote table.
func (r *Remote) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var count int
	query := fmt.Sprintf("SELECT count(*) FROM %s", r.table)
	if err := r.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("remote count: %w", err)
	}
	return count, nil
}

// Kind identifies the backend variant.
func (r *Remote) Kind() string { return "remote" }

// Close releases the connection pool.
func (r *Remote) Close() error {
	r.pool.Close()
	return nil
}
