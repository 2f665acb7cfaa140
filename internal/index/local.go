package index

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sort"

	"github.com/kikuchi0790/ukfr-smbc-app-sub000/internal/rank"
	"github.com/kikuchi0790/ukfr-smbc-app-sub000/pkg/types"
)

// Local is the in-memory backend. The full record set is loaded once at
// construction and is read-only afterwards, so searches need no locking.
type Local struct {
	records []types.PassageRecord
	dim     int
}

// NewLocal builds a local backend from an in-process record set, validating
// every record, the (material, page, chunk) uniqueness invariant and
// embedding dimensionality consistency.
func NewLocal(records []types.PassageRecord) (*Local, error) {
	dim := 0
	seen := make(map[string]struct{}, len(records))
	for i := range records {
		r := &records[i]
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("record %d (%s): %w", i, r.ID, err)
		}
		if dim == 0 {
			dim = len(r.Embedding)
		} else if len(r.Embedding) != dim {
			return nil, fmt.Errorf("record %s: embedding dimension %d, index dimension %d", r.ID, len(r.Embedding), dim)
		}
		key := r.Key()
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate passage key %s", key)
		}
		seen[key] = struct{}{}
		if r.ID == "" {
			r.ID = key
		}
	}
	return &Local{records: records, dim: dim}, nil
}

// OpenLocal loads the persisted index file at path. A missing or malformed
// file fails construction explicitly; the backend is never silently empty.
func OpenLocal(path string) (*Local, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: index file %q: %v", types.ErrIndexUnavailable, path, err)
	}

	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("%w: open index file %q: %v", types.ErrIndexUnavailable, path, err)
	}
	defer func() { _ = db.Close() }()

	rows, err := db.Query(`
		SELECT id, material_id, page_number, chunk_index, chunk_offset,
		       plain_text, normalized_text, embedding
		FROM passages
		ORDER BY material_id, page_number, chunk_index`)
	if err != nil {
		return nil, fmt.Errorf("%w: read index file %q: %v", types.ErrIndexUnavailable, path, err)
	}
	defer func() { _ = rows.Close() }()

	var records []types.PassageRecord
	for rows.Next() {
		var r types.PassageRecord
		var blob []byte
		if err := rows.Scan(&r.ID, &r.MaterialID, &r.PageNumber, &r.ChunkIndex,
			&r.Offset, &r.PlainText, &r.NormalizedText, &blob); err != nil {
			return nil, fmt.Errorf("%w: scan index row: %v", types.ErrIndexUnavailable, err)
		}
		r.Embedding = DeserializeVector(blob)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read index rows: %v", types.ErrIndexUnavailable, err)
	}

	local, err := NewLocal(records)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed index file %q: %v", types.ErrIndexUnavailable, path, err)
	}
	return local, nil
}

// Candidates scores every record against the query embedding and returns the
// top limit by descending similarity. An empty index returns an empty slice.
func (l *Local) Candidates(ctx context.Context, queryEmbedding []float32, limit int) ([]types.Candidate, error) {
	if limit <= 0 || len(l.records) == 0 {
		return []types.Candidate{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates := make([]types.Candidate, 0, len(l.records))
	for i := range l.records {
		score := rank.CosineSimilarity(queryEmbedding, l.records[i].Embedding)
		candidates = append(candidates, types.Candidate{
			Record: l.records[i],
			Score:  score,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if limit < len(candidates) {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// Dimension returns the embedding dimensionality of the loaded corpus.
func (l *Local) Dimension() int { return l.dim }

// Count reports the number of loaded passages.
func (l *Local) Count(ctx context.Context) (int, error) { return len(l.records), nil }

// Kind identifies the backend variant.
func (l *Local) Kind() string { return "local" }

// Close is a no-op; the record set lives in process memory.
func (l *Local) Close() error { return nil }
