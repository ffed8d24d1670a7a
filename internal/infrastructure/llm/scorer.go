// Package llm scores aspect sentiment with an OpenAI model through structured outputs.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/Shaizy-S/AutoSentiment/internal/domain"
	"github.com/Shaizy-S/AutoSentiment/internal/ports"
)

// DefaultModel is used when the configuration names none.
const DefaultModel = "gpt-4o-mini"

const instructions = `You rate product reviews written in Hindi, Marathi or romanized Hinglish.
Given a review and one product aspect, return the sentiment the reviewer expresses about that aspect only.
score is in [-1, 1]: -1 very negative, 0 neutral or not discussed, 1 very positive.
confidence is in [0, 1] and reflects how clearly the review discusses the aspect.
Account for negation (नहीं, नाही, not) and intensifiers (बहुत, खूप, very).`

type verdict struct {
	Score      float64 `json:"score" jsonschema:"required,minimum=-1,maximum=1,description=Aspect sentiment from -1 to 1"`
	Confidence float64 `json:"confidence" jsonschema:"required,minimum=0,maximum=1"`
	Rationale  string  `json:"rationale" jsonschema:"required,description=One short sentence"`
}

var verdictSchema = generateSchema[verdict]()

// Config holds OpenAI client settings.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	// MaxRetries is handed to the SDK; negative keeps the SDK default.
	MaxRetries int
}

// Scorer asks the model for one aspect verdict per call.
type Scorer struct {
	client *openai.Client
	model  string
}

var _ ports.SentimentScorer = (*Scorer)(nil)

// NewScorer builds the OpenAI client.
func NewScorer(cfg Config) (*Scorer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm scorer: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	client := openai.NewClient(opts...)
	return &Scorer{client: &client, model: cfg.Model}, nil
}

// Name identifies the model.
func (s *Scorer) Name() string {
	return "openai/" + s.model
}

// Score returns the model verdict for the mention; the result confidence is scaled by the mention confidence.
func (s *Scorer) Score(ctx context.Context, review domain.NormalizedReview, m domain.AspectMention) (domain.AspectSentiment, error) {
	params := responses.ResponseNewParams{
		Model:           s.model,
		MaxOutputTokens: openai.Int(200),
		Instructions:    openai.String(instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(prompt(review, m), responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:        "AspectSentiment",
					Schema:      verdictSchema,
					Strict:      openai.Bool(true),
					Description: openai.String("Sentiment toward one product aspect"),
					Type:        "json_schema",
				},
			},
		},
	}

	resp, err := s.client.Responses.New(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return domain.AspectSentiment{}, ctx.Err()
		}
		return domain.AspectSentiment{}, fmt.Errorf("%w: %s: %w", domain.ErrAnalyzer, s.Name(), err)
	}

	var out verdict
	if err := decodeModelJSON(resp.OutputText(), &out); err != nil {
		return domain.AspectSentiment{}, fmt.Errorf("%w: %s: %w", domain.ErrAnalyzer, s.Name(), err)
	}

	return domain.AspectSentiment{
		ReviewID:   review.ID,
		Aspect:     m.Aspect,
		Score:      min(1, max(-1, out.Score)),
		Confidence: min(1, max(0, out.Confidence)) * m.Confidence,
	}, nil
}

func prompt(review domain.NormalizedReview, m domain.AspectMention) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Aspect: %s\n", m.Aspect)
	fmt.Fprintf(&b, "Mentioned as: %s\n", m.Span.Text)
	fmt.Fprintf(&b, "Language: %s\n", review.Language)
	if review.HasRating() {
		fmt.Fprintf(&b, "Star rating: %d/5\n", review.Rating)
	}
	fmt.Fprintf(&b, "Review:\n%s", review.Text)
	return b.String()
}

// decodeModelJSON tolerates a fenced code block around the JSON document.
func decodeModelJSON(raw string, v any) error {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return errors.New("empty model output")
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode model output: %w", err)
	}
	return nil
}
