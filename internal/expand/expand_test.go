package expand

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChat struct {
	content string
	err     error
	lastReq openai.ChatCompletionRequest
}

func (s *stubChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.lastReq = req
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: s.content}},
		},
	}, nil
}

func newStubCollaborator(stub *stubChat) *Collaborator {
	return &Collaborator{client: stub, model: DefaultModel, logger: slog.Default()}
}

func TestExpandQuery(t *testing.T) {
	t.Run("parses phrasings", func(t *testing.T) {
		stub := &stubChat{content: `["what does the FSCS cover", "deposit protection limits"]`}
		c := newStubCollaborator(stub)

		phrasings, err := c.ExpandQuery(context.Background(), "What is the FSCS limit?", "")
		require.NoError(t, err)
		assert.Equal(t, []string{"what does the FSCS cover", "deposit protection limits"}, phrasings)
	})

	t.Run("strips code fence", func(t *testing.T) {
		stub := &stubChat{content: "```json\n[\"alternative phrasing\"]\n```"}
		c := newStubCollaborator(stub)

		phrasings, err := c.ExpandQuery(context.Background(), "question", "")
		require.NoError(t, err)
		assert.Equal(t, []string{"alternative phrasing"}, phrasings)
	})

	t.Run("caps and drops blanks", func(t *testing.T) {
		stub := &stubChat{content: `["a", "", "b", "c", "d"]`}
		c := newStubCollaborator(stub)

		phrasings, err := c.ExpandQuery(context.Background(), "question", "")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, phrasings)
	})

	t.Run("includes explanation in prompt", func(t *testing.T) {
		stub := &stubChat{content: `["x"]`}
		c := newStubCollaborator(stub)

		_, err := c.ExpandQuery(context.Background(), "question", "because COBS applies")
		require.NoError(t, err)
		require.Len(t, stub.lastReq.Messages, 2)
		assert.Contains(t, stub.lastReq.Messages[1].Content, "because COBS applies")
	})

	t.Run("propagates API error", func(t *testing.T) {
		stub := &stubChat{err: errors.New("rate limited")}
		c := newStubCollaborator(stub)

		_, err := c.ExpandQuery(context.Background(), "question", "")
		assert.Error(t, err)
	})

	t.Run("rejects malformed output", func(t *testing.T) {
		stub := &stubChat{content: "Sure! Here are some phrasings:"}
		c := newStubCollaborator(stub)

		_, err := c.ExpandQuery(context.Background(), "question", "")
		assert.Error(t, err)
	})
}

func TestRerank(t *testing.T) {
	t.Run("parses signals", func(t *testing.T) {
		stub := &stubChat{content: `[{"page": 12, "score": 0.9, "confidence": 0.8}, {"page": 30, "score": 0.2, "confidence": 0.9}]`}
		c := newStubCollaborator(stub)

		signals, err := c.Rerank(context.Background(), "question", []string{"quote a", "quote b"}, []int{12, 30})
		require.NoError(t, err)
		require.Len(t, signals, 2)
		assert.Equal(t, 12, signals[0].Page)
		assert.InDelta(t, 0.9, signals[0].Score, 1e-9)
		assert.InDelta(t, 0.9, signals[1].Confidence, 1e-9)
	})

	t.Run("no passages no call", func(t *testing.T) {
		stub := &stubChat{err: errors.New("should not be called")}
		c := newStubCollaborator(stub)

		signals, err := c.Rerank(context.Background(), "question", nil, nil)
		require.NoError(t, err)
		assert.Nil(t, signals)
	})

	t.Run("numbers passages with pages", func(t *testing.T) {
		stub := &stubChat{content: `[]`}
		c := newStubCollaborator(stub)

		_, err := c.Rerank(context.Background(), "q", []string{"first", "second"}, []int{4, 7})
		require.NoError(t, err)
		assert.Contains(t, stub.lastReq.Messages[1].Content, "1. (page 4) first")
		assert.Contains(t, stub.lastReq.Messages[1].Content, "2. (page 7) second")
	})
}

func TestNew(t *testing.T) {
	t.Run("requires key", func(t *testing.T) {
		_, err := New("", "", "", nil)
		assert.Error(t, err)
	})

	t.Run("defaults model", func(t *testing.T) {
		c, err := New("sk-test", "", "", nil)
		require.NoError(t, err)
		assert.Equal(t, DefaultModel, c.model)
	})
}
