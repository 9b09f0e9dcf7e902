package domain

import "time"

// Job is the envelope passed between pipeline stages. Every stage returns a new
// Job with its own output attached and leaves earlier outputs untouched.
type Job struct {
	Platform      string
	ConditionHint string

	Detection    *DetectionResult
	VisualSearch *VisualSearchResult
	Analysis     *ProductAnalysis
	Draft        *Listing
	Adapted      *Listing
	Refinement   *Refinement
}

// PlatformListing is the finished listing for one target platform.
type PlatformListing struct {
	Platform      string          `json:"platform"`
	Listing       Listing         `json:"listing"`
	QualityReport QualityReport   `json:"quality_report"`
	RefinedReport QualityReport   `json:"refined_report"`
	Iterations    int             `json:"iterations"`
	Repairs       []RepairOutcome `json:"repairs,omitempty"`
}

// GenerationResult is everything produced for one request.
type GenerationResult struct {
	ID        string            `json:"id"`
	CreatedAt time.Time         `json:"created_at"`
	Analysis  ProductAnalysis   `json:"analysis"`
	Draft     Listing           `json:"draft"`
	Platforms []PlatformListing `json:"platforms"`
}

// GeneratedListing is the persisted form of one platform listing.
type GeneratedListing struct {
	ID           string    `json:"id"`
	RequestID    string    `json:"request_id"`
	Platform     string    `json:"platform"`
	ProductName  string    `json:"product_name"`
	Listing      Listing   `json:"listing"`
	OverallScore float64   `json:"overall_score"`
	CreatedAt    time.Time `json:"created_at"`
}
