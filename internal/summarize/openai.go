// Package summarize provides Summarizer adapters: an OpenAI-compatible API
// client and a static stand-in for development without credentials.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"recapbot/internal/domain"
)

const defaultHTTPTimeout = 60 * time.Second

const systemPrompt = `You summarize group chat conversations that plan a trip, a recipe, or an errand.
Respond with JSON only, no prose, in this exact shape:
{"summary": "<one or two sentence summary>", "items": ["<item>", ...]}
"items" is the shopping or packing list the participants will need. Always include at least one item.`

// OpenAI calls an OpenAI-compatible chat completions API. It never returns
// an error: any failure degrades to a fixed usable summary.
type OpenAI struct {
	apiKey  string
	apiBase string
	model   string
	client  *http.Client
	logger  *slog.Logger
}

type OpenAIConfig struct {
	APIKey  string
	APIBase string
	Model   string
	Logger  *slog.Logger
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	return &OpenAI{
		apiKey:  cfg.APIKey,
		apiBase: strings.TrimRight(cfg.APIBase, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: defaultHTTPTimeout},
		logger:  cfg.Logger,
	}
}

type oaiRequest struct {
	Model       string       `json:"model"`
	Messages    []oaiMessage `json:"messages"`
	Temperature float64      `json:"temperature"`
	Stream      bool         `json:"stream"`
}

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiResponse struct {
	Choices []struct {
		Message oaiMessage `json:"message"`
	} `json:"choices"`
}

// payload is the JSON shape the model is instructed to produce.
type payload struct {
	Summary string   `json:"summary"`
	Items   []string `json:"items"`
}

func (o *OpenAI) Summarize(ctx context.Context, transcript string) (domain.Summary, error) {
	content, err := o.complete(ctx, transcript)
	if err != nil {
		o.logger.Warn("summarization request failed, using degraded summary", "err", err)
		return Degraded(), nil
	}

	var p payload
	if err := json.Unmarshal([]byte(stripFences(content)), &p); err != nil {
		o.logger.Warn("summarization response was not valid JSON, using degraded summary", "err", err)
		return Degraded(), nil
	}
	if strings.TrimSpace(p.Summary) == "" {
		p.Summary = Degraded().Text
	}
	if len(p.Items) == 0 {
		p.Items = Degraded().Items
	}
	return domain.Summary{Text: p.Summary, Items: p.Items}, nil
}

func (o *OpenAI) complete(ctx context.Context, transcript string) (string, error) {
	body := oaiRequest{
		Model: o.model,
		Messages: []oaiMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: transcript},
		},
		Temperature: 0.2,
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.apiBase+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("summarizer request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("summarizer %d: %s", resp.StatusCode, string(respBody))
	}

	var oaiResp oaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&oaiResp); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if len(oaiResp.Choices) == 0 {
		return "", fmt.Errorf("summarizer returned no choices")
	}
	return oaiResp.Choices[0].Message.Content, nil
}

// stripFences removes a surrounding markdown code fence, which models add
// despite the JSON-only instruction.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Degraded is the summary used when the real service is unreachable or
// answers with garbage. It always carries at least one item.
func Degraded() domain.Summary {
	return domain.Summary{
		Text:  "The conversation could not be summarized right now, please try again later.",
		Items: []string{"general supplies"},
	}
}
