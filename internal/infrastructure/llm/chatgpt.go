package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"NewsAnalyzer/internal/config"
	"NewsAnalyzer/internal/ports"
)

// ChatGPTClient implements ports.ZeroShotClassifier backed by OpenAI-compatible APIs.
type ChatGPTClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ ports.ZeroShotClassifier = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration.
func NewChatGPTClient(cfg config.ChatGPTConfig) *ChatGPTClient {
	return &ChatGPTClient{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ClassifyZeroShot asks the model for a probability per label and returns them best first.
func (c *ChatGPTClient) ClassifyZeroShot(ctx context.Context, text string, labels []string) ([]ports.LabelScore, error) {
	if c == nil {
		return nil, fmt.Errorf("chatgpt client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return nil, fmt.Errorf("chatgpt client misconfigured")
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("no candidate labels")
	}

	body, err := json.Marshal(map[string]any{
		"model":           c.model,
		"temperature":     0,
		"response_format": map[string]string{"type": "json_object"},
		"messages": []map[string]string{
			{"role": "system", "content": safePrompt(c.systemPrompt, labels)},
			{"role": "user", "content": text},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("chatgpt error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode chatgpt response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("empty chatgpt response")
	}

	return parseLabelScores(parsed.Choices[0].Message.Content, labels)
}

func parseLabelScores(content string, labels []string) ([]ports.LabelScore, error) {
	var scores map[string]float64
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &scores); err != nil {
		return nil, fmt.Errorf("decode label scores: %w", err)
	}

	out := make([]ports.LabelScore, 0, len(labels))
	for _, label := range labels {
		score, ok := scores[label]
		if !ok {
			return nil, fmt.Errorf("label %q missing from model output", label)
		}
		out = append(out, ports.LabelScore{Label: label, Score: score})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

func safePrompt(prompt string, labels []string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		prompt = "You assess news articles."
	}
	return prompt + " Classify the user's text against these labels: " + strings.Join(labels, ", ") +
		". Reply with a JSON object mapping every label to a probability between 0 and 1; the probabilities must sum to 1."
}
