package index

import (
	"testing"

	"github.com/pgvector/pgvector-go"
)

func strp(s string) *string { return &s }
func i32p(i int32) *int32   { return &i }

func TestRemoteRowToCandidate(t *testing.T) {
	t.Run("complete payload", func(t *testing.T) {
		rr := remoteRow{
			MaterialID:     strp("Checkpoint"),
			PageNumber:     i32p(42),
			ChunkIndex:     i32p(1),
			Offset:         i32p(310),
			PlainText:      strp("The FSCS limit is £85,000."),
			NormalizedText: strp("the fscs limit is £85,000."),
			Embedding:      pgvector.NewVector([]float32{0.1, 0.2}),
			Score:          0.92,
		}

		c := rr.toCandidate()
		if c.Record.MaterialID != "Checkpoint" || c.Record.PageNumber != 42 {
			t.Errorf("record = %+v, want Checkpoint p42", c.Record)
		}
		if c.Record.Offset != 310 || c.Record.ChunkIndex != 1 {
			t.Errorf("offset/chunk = %d/%d, want 310/1", c.Record.Offset, c.Record.ChunkIndex)
		}
		if c.Record.ID != "Checkpoint#42-1" {
			t.Errorf("ID = %q, want Checkpoint#42-1", c.Record.ID)
		}
		if c.Score != 0.92 {
			t.Errorf("score = %v, want 0.92", c.Score)
		}
		if len(c.Record.Embedding) != 2 {
			t.Errorf("embedding length = %d, want 2", len(c.Record.Embedding))
		}
	})

	t.Run("missing page number defaults to 1", func(t *testing.T) {
		rr := remoteRow{
			MaterialID: strp("Checkpoint"),
			PlainText:  strp("text"),
			Embedding:  pgvector.NewVector([]float32{1}),
			Score:      0.5,
		}
		c := rr.toCandidate()
		if c.Record.PageNumber != 1 {
			t.Errorf("page = %d, want 1", c.Record.PageNumber)
		}
		if c.Record.Offset != 0 || c.Record.ChunkIndex != 0 {
			t.Errorf("offset/chunk = %d/%d, want 0/0", c.Record.Offset, c.Record.ChunkIndex)
		}
	})

	t.Run("out of range page number defaults to 1", func(t *testing.T) {
		rr := remoteRow{
			PageNumber: i32p(0),
			Embedding:  pgvector.NewVector([]float32{1}),
		}
		if got := rr.toCandidate().Record.PageNumber; got != 1 {
			t.Errorf("page = %d, want 1", got)
		}
	})

	t.Run("missing normalized text falls back to lowered plain text", func(t *testing.T) {
		rr := remoteRow{
			PlainText: strp("The FCA Handbook"),
			Embedding: pgvector.NewVector([]float32{1}),
		}
		if got := rr.toCandidate().Record.NormalizedText; got != "the fca handbook" {
			t.Errorf("normalized = %q, want lowered plain text", got)
		}
	})
}
