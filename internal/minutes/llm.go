package minutes

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/atriumverse/atrium/internal/config"
)

const summaryPrompt = "Summarize this meeting transcript into concise minutes. " +
	"List the key decisions, action items with owners, and open questions."

// LLMClient summarizes transcripts through an OpenAI-compatible chat
// completions endpoint.
type LLMClient struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
}

func NewLLMClient(cfg config.MeetingConfig) *LLMClient {
	return &LLMClient{
		endpoint: cfg.LLMEndpoint,
		apiKey:   cfg.LLMAPIKey,
		model:    cfg.LLMModel,
		http:     &http.Client{Timeout: cfg.LLMTimeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *LLMClient) Summarize(ctx context.Context, transcript string) (string, error) {
	if c.endpoint == "" {
		return "", fmt.Errorf("llm endpoint not configured")
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: summaryPrompt},
			{Role: "user", Content: transcript},
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode llm request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build llm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call llm: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("llm returned %d: %s", resp.StatusCode, snippet)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode llm response: %w", err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("llm returned no content")
	}
	return out.Choices[0].Message.Content, nil
}
