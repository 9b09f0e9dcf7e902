package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// CanonicalCondition is the condition assumed when nothing better is known.
const CanonicalCondition = "good condition"

// ProductAnalysis is the canonical record the listing pipeline starts from.
type ProductAnalysis struct {
	ProductInformation ProductInformation `json:"product_information"`
	MarketAnalysis     *MarketAnalysis    `json:"market_analysis"`
	TechnicalDetails   *TechnicalDetails  `json:"technical_details"`
	Metadata           Metadata           `json:"metadata"`
}

// ProductInformation identifies the product shown in the picture.
type ProductInformation struct {
	ProductName     string           `json:"product_name"`
	Condition       string           `json:"condition"`
	MainCategory    string           `json:"main_category"`
	DetectedObjects []DetectedObject `json:"detected_objects"`
	VisualMatches   []VisualMatch    `json:"visual_matches"`
}

// MarketAnalysis summarizes comparable offers found by visual search.
type MarketAnalysis struct {
	PriceRange          *PriceRange         `json:"price_range,omitempty"`
	SimilarProducts     []string            `json:"similar_products"`
	MarketCategories    []string            `json:"market_categories"`
	Competitiveness     string              `json:"price_competitiveness,omitempty"`
	CompetitionAnalysis CompetitionAnalysis `json:"competition_analysis"`
}

// PriceCompetitiveness reports market_analysis.price_competitiveness, or
// competition_analysis.price_competitiveness when the former is unset.
func (m *MarketAnalysis) PriceCompetitiveness() string {
	if m == nil {
		return ""
	}
	if v := strings.TrimSpace(m.Competitiveness); v != "" {
		return v
	}
	return m.CompetitionAnalysis.PriceCompetitiveness
}

// CompetitionAnalysis values.
const (
	PriceCompetitive = "competitive"
	PriceUnknown     = "unknown"

	SaturationHigh   = "high"
	SaturationMedium = "medium"
	SaturationLow    = "low"
)

// CompetitionAnalysis describes how crowded the market is.
type CompetitionAnalysis struct {
	MarketSaturation     string `json:"market_saturation"`
	PriceCompetitiveness string `json:"price_competitiveness"`
}

// PriceRange is the observed market price span. Average is optional.
type PriceRange struct {
	Min     float64  `json:"min"`
	Max     float64  `json:"max"`
	Average *float64 `json:"average,omitempty"`
}

// TechnicalDetails groups specification data extracted from comparables.
type TechnicalDetails struct {
	Specifications []string          `json:"specifications"`
	Dimensions     map[string]string `json:"dimensions"`
	Features       []string          `json:"features"`
}

// Metadata describes how the analysis was produced.
type Metadata struct {
	Version         string    `json:"version"`
	ConfidenceScore float64   `json:"confidence_score"`
	Timestamp       time.Time `json:"timestamp"`
}

// naiveLayouts are accepted for timestamps written without a zone offset.
// Such values are read as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON accepts RFC 3339 timestamps as well as ISO 8601 ones
// without a zone offset. An empty or null timestamp leaves Timestamp zero.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	type plain Metadata
	var raw struct {
		plain
		Timestamp *string `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Metadata(raw.plain)
	m.Timestamp = time.Time{}
	if raw.Timestamp == nil || strings.TrimSpace(*raw.Timestamp) == "" {
		return nil
	}
	ts, err := ParseTimestamp(*raw.Timestamp)
	if err != nil {
		return err
	}
	m.Timestamp = ts
	return nil
}

// ParseTimestamp parses an RFC 3339 or zone-less ISO 8601 timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, nil
	}
	for _, layout := range naiveLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q: unsupported format", s)
}
