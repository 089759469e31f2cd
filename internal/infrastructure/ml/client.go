package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"NewsAnalyzer/internal/config"
	"NewsAnalyzer/internal/ports"
)

// Client talks to a Hugging Face compatible inference service for both
// sentiment and zero-shot classification.
type Client struct {
	endpoint         string
	apiToken         string
	sentimentModel   string
	reliabilityModel string
	http             *http.Client
}

var _ ports.SentimentClassifier = (*Client)(nil)
var _ ports.ZeroShotClassifier = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(cfg config.ScoringConfig) *Client {
	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint:         strings.TrimRight(cfg.InferenceURL, "/"),
		apiToken:         cfg.APIToken,
		sentimentModel:   cfg.SentimentModel,
		reliabilityModel: cfg.ReliabilityModel,
		http:             &http.Client{Timeout: timeout},
	}
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// ClassifySentiment runs the text-classification model and returns its ranking as-is.
func (c *Client) ClassifySentiment(ctx context.Context, text string) ([]ports.LabelScore, error) {
	payload := map[string]any{
		"inputs":  text,
		"options": map[string]any{"wait_for_model": true},
	}

	var raw json.RawMessage
	if err := c.post(ctx, c.sentimentModel, payload, &raw); err != nil {
		return nil, err
	}

	// The inference API nests results per input for batched calls.
	var nested [][]labelScore
	if err := json.Unmarshal(raw, &nested); err == nil && len(nested) > 0 {
		return toPorts(nested[0]), nil
	}
	var flat []labelScore
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("decode sentiment response: %w", err)
	}
	return toPorts(flat), nil
}

// ClassifyZeroShot asks the NLI model to choose among labels.
func (c *Client) ClassifyZeroShot(ctx context.Context, text string, labels []string) ([]ports.LabelScore, error) {
	payload := map[string]any{
		"inputs": text,
		"parameters": map[string]any{
			"candidate_labels": labels,
		},
		"options": map[string]any{"wait_for_model": true},
	}

	var resp struct {
		Labels []string  `json:"labels"`
		Scores []float64 `json:"scores"`
	}
	if err := c.post(ctx, c.reliabilityModel, payload, &resp); err != nil {
		return nil, err
	}
	if len(resp.Labels) != len(resp.Scores) {
		return nil, fmt.Errorf("zero-shot response has %d labels and %d scores", len(resp.Labels), len(resp.Scores))
	}

	out := make([]ports.LabelScore, 0, len(resp.Labels))
	for i, label := range resp.Labels {
		out = append(out, ports.LabelScore{Label: label, Score: resp.Scores[i]})
	}
	return out, nil
}

func toPorts(items []labelScore) []ports.LabelScore {
	out := make([]ports.LabelScore, 0, len(items))
	for _, item := range items {
		out = append(out, ports.LabelScore{Label: item.Label, Score: item.Score})
	}
	return out
}

func (c *Client) post(ctx context.Context, model string, payload any, v any) error {
	if c.endpoint == "" || model == "" {
		return fmt.Errorf("inference client misconfigured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/"+model, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return fmt.Errorf("unexpected status %s, close body: %v", resp.Status, closeErr)
		}
		return fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	return nil
}
