package httpapi

import (
	"encoding/json"
	"io"
	"math"
	"time"

	"github.com/Shaizy-S/AutoSentiment/internal/domain"
)

type compareRequest struct {
	Products []string        `json:"products"`
	Options  *compareOptions `json:"options,omitempty"`
}

type compareOptions struct {
	MaxReviewsPerProduct int      `json:"max_reviews_per_product"`
	TimeoutMs            int      `json:"timeout_ms"`
	Languages            []string `json:"languages"`
}

func (r compareRequest) toDomain() domain.ComparisonRequest {
	req := domain.ComparisonRequest{Products: r.Products}
	if r.Options == nil {
		return req
	}
	req.Options.MaxReviewsPerProduct = r.Options.MaxReviewsPerProduct
	req.Options.Timeout = time.Duration(r.Options.TimeoutMs) * time.Millisecond
	for _, l := range r.Options.Languages {
		req.Options.Languages = append(req.Options.Languages, domain.Language(l))
	}
	return req
}

type compareResponse struct {
	QueryID   string            `json:"query_id"`
	Products  []productResponse `json:"products"`
	Winner    string            `json:"winner,omitempty"`
	Ranking   []string          `json:"ranking"`
	Versions  domain.Versions   `json:"versions"`
	ElapsedMs int64             `json:"elapsed_ms"`
}

type productResponse struct {
	Name        string               `json:"name"`
	Status      domain.ProductStatus `json:"status"`
	Reason      string               `json:"reason,omitempty"`
	Overall     *float64             `json:"overall"`
	Sentiment   string               `json:"sentiment,omitempty"`
	ReviewCount int                  `json:"review_count"`
	Aspects     []domain.AspectScore `json:"aspects"`
	Strengths   []domain.Aspect      `json:"strengths"`
	Weaknesses  []domain.Aspect      `json:"weaknesses"`
	Reviews     []reviewResponse     `json:"reviews"`
}

type reviewResponse struct {
	Text     string          `json:"text"`
	Rating   int             `json:"rating,omitempty"`
	Aspect   domain.Aspect   `json:"aspect"`
	Language domain.Language `json:"language"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func toResponse(res domain.ComparisonResult) compareResponse {
	out := compareResponse{
		QueryID:   res.QueryID,
		Products:  make([]productResponse, 0, len(res.Products)),
		Winner:    res.Winner,
		Ranking:   append([]string{}, res.Ranking...),
		Versions:  res.Versions,
		ElapsedMs: res.Elapsed.Milliseconds(),
	}
	for _, p := range res.Products {
		out.Products = append(out.Products, toProduct(p))
	}
	return out
}

func toProduct(p domain.ProductReport) productResponse {
	pr := productResponse{
		Name:       p.Query.RawName,
		Status:     p.Status,
		Reason:     p.Reason,
		Aspects:    []domain.AspectScore{},
		Strengths:  append([]domain.Aspect{}, p.Strengths...),
		Weaknesses: append([]domain.Aspect{}, p.Weaknesses...),
		Reviews:    make([]reviewResponse, 0, len(p.Samples)),
	}
	if a := p.Analysis; a != nil {
		pr.Aspects = append(pr.Aspects, a.Aspects...)
		pr.ReviewCount = a.ReviewCount
		if a.HasOverall {
			v := math.Round(a.Overall*10) / 10
			pr.Overall = &v
			pr.Sentiment = a.SentimentLabel()
		}
	}
	for _, s := range p.Samples {
		pr.Reviews = append(pr.Reviews, reviewResponse{Text: s.Text, Rating: s.Rating, Aspect: s.Aspect, Language: s.Language})
	}
	return pr
}

// EncodeResult writes res in the API response shape.
func EncodeResult(w io.Writer, res domain.ComparisonResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(toResponse(res))
}
