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

	"github.com/Shaizy-S/AutoSentiment/internal/domain"
	"github.com/Shaizy-S/AutoSentiment/internal/ports"
)

// Client talks to an external inference service that scores aspect sentiment.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
}

var _ ports.SentimentScorer = (*Client)(nil)

type scoreRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Aspect   string `json:"aspect"`
	Span     string `json:"span"`
	Rating   int    `json:"rating,omitempty"`
}

type scoreResponse struct {
	Score      *float64 `json:"score"`
	Confidence float64  `json:"confidence"`
}

// NewClient creates a reusable HTTP client. model names the served model and is part of the analyzer version.
func NewClient(endpoint, apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if model == "" {
		model = "remote"
	}
	return &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		apiKey:   apiKey,
		model:    model,
		http:     &http.Client{Timeout: timeout},
	}
}

// Name identifies the served model.
func (c *Client) Name() string {
	return "ml/" + c.model
}

// Score sends the review and the mention to /score.
func (c *Client) Score(ctx context.Context, review domain.NormalizedReview, m domain.AspectMention) (domain.AspectSentiment, error) {
	payload := scoreRequest{
		Text:     review.Text,
		Language: string(review.Language),
		Aspect:   string(m.Aspect),
		Span:     m.Span.Text,
		Rating:   review.Rating,
	}

	var resp scoreResponse
	if err := c.post(ctx, "/score", payload, &resp); err != nil {
		if ctx.Err() != nil {
			return domain.AspectSentiment{}, ctx.Err()
		}
		return domain.AspectSentiment{}, fmt.Errorf("%w: %s: %w", domain.ErrAnalyzer, c.Name(), err)
	}
	if resp.Score == nil {
		return domain.AspectSentiment{}, fmt.Errorf("%w: %s: response without score", domain.ErrAnalyzer, c.Name())
	}

	return domain.AspectSentiment{
		ReviewID:   review.ID,
		Aspect:     m.Aspect,
		Score:      min(1, max(-1, *resp.Score)),
		Confidence: min(1, max(0, resp.Confidence)) * m.Confidence,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
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
