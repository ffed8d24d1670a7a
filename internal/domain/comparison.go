package domain

import "time"

// ProductStatus is the per-product outcome of a comparison.
type ProductStatus string

const (
	StatusOK        ProductStatus = "ok"
	StatusFailed    ProductStatus = "failed"
	StatusCancelled ProductStatus = "cancelled"
)

// ComparisonOptions tune a single comparison request.
type ComparisonOptions struct {
	MaxReviewsPerProduct int
	Timeout              time.Duration
	Languages            []Language
}

// ComparisonRequest is the validated input of the orchestrator.
type ComparisonRequest struct {
	Products []string
	Options  ComparisonOptions
}

// ProductReport is one product entry of a ComparisonResult.
type ProductReport struct {
	Query      ProductQuery
	Status     ProductStatus
	Reason     string
	Analysis   *ProductAnalysis
	Strengths  []Aspect
	Weaknesses []Aspect
	Samples    []SampleReview
}

// ComparisonResult is the cross-product output of one request.
type ComparisonResult struct {
	QueryID  string
	Products []ProductReport
	Ranking  []string
	Winner   string
	Versions Versions
	Elapsed  time.Duration
}

// HasWinner reports whether at least two products produced an overall score.
func (c ComparisonResult) HasWinner() bool {
	return c.Winner != ""
}
