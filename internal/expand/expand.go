// Package expand wraps the LLM collaborator that rephrases questions into
// alternative query phrasings and reranks retrieved passages. Both
// operations are advisory: a failure is reported to the caller, who logs it
// and continues the pipeline without the enhancement.
package expand

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultModel handles expansion and reranking.
	DefaultModel = "gpt-4o-mini"
	// maxPhrasings caps the phrasings accepted from the model.
	maxPhrasings = 3
	// httpTimeout caps every chat-completion round trip so a stalled model
	// degrades the request instead of hanging it.
	httpTimeout = 30 * time.Second
)

// chatClient is the slice of the OpenAI client the collaborator needs,
// extracted so tests can stub completions.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// RankSignal is one reranking judgement for a passage page.
type RankSignal struct {
	Page       int     `json:"page"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

// Collaborator calls the LLM for expansion and reranking.
type Collaborator struct {
	client chatClient
	model  string
	logger *slog.Logger
}

// New creates a collaborator backed by the OpenAI chat API. baseURL
// overrides the endpoint when non-empty.
func New(apiKey, baseURL, model string, logger *slog.Logger) (*Collaborator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("expansion collaborator: API key not set")
	}
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.HTTPClient = &http.Client{Timeout: httpTimeout}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &Collaborator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}, nil
}

const expandSystemPrompt = `You rephrase UK Financial Regulation exam questions for semantic search.
Given a question, produce up to 2 alternative phrasings that surface the same
study material: expand abbreviations, name the regulator or sourcebook
involved, and prefer the terminology of the FCA Handbook. Respond with a JSON
array of strings only.`

// ExpandQuery asks the model for alternative phrasings of the question,
// optionally grounded in the answer explanation. The original question is
// not included in the result.
func (c *Collaborator) ExpandQuery(ctx context.Context, question, explanation string) ([]string, error) {
	user := question
	if explanation != "" {
		user = fmt.Sprintf("%s\n\nAnswer explanation for context:\n%s", question, explanation)
	}

	content, err := c.complete(ctx, expandSystemPrompt, user)
	if err != nil {
		return nil, fmt.Errorf("expand query: %w", err)
	}

	var phrasings []string
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &phrasings); err != nil {
		return nil, fmt.Errorf("expand query: malformed model output: %w", err)
	}

	out := make([]string, 0, maxPhrasings)
	for _, p := range phrasings {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
		if len(out) == maxPhrasings {
			break
		}
	}
	return out, nil
}

const rerankSystemPrompt = `You judge how well study-material passages answer a UK Financial Regulation
exam question. For each numbered passage, reply with its page, a relevance
score between 0 and 1, and your confidence between 0 and 1. Respond with a
JSON array of objects with keys "page", "score" and "confidence" only.`

// Rerank asks the model to judge passage relevance. Pages absent from the
// reply carry no signal; callers blend only high-confidence judgements.
func (c *Collaborator) Rerank(ctx context.Context, question string, quotes []string, pages []int) ([]RankSignal, error) {
	if len(quotes) == 0 {
		return nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nPassages:\n", question)
	for i, quote := range quotes {
		page := 0
		if i < len(pages) {
			page = pages[i]
		}
		fmt.Fprintf(&b, "%d. (page %d) %s\n", i+1, page, quote)
	}

	content, err := c.complete(ctx, rerankSystemPrompt, b.String())
	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}

	var signals []RankSignal
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &signals); err != nil {
		return nil, fmt.Errorf("rerank: malformed model output: %w", err)
	}
	return signals, nil
}

func (c *Collaborator) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}

// stripCodeFence removes a surrounding markdown code fence, which chat
// models add despite instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
