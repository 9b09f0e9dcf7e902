// Package aggregator merges detection and visual-search results into one
// canonical ProductAnalysis.
package aggregator

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"LensInventory/internal/domain"
	"LensInventory/internal/ports"
)

const (
	analysisVersion    = "1.0"
	maxSimilarProducts = 5
	highSaturation     = 5
	mediumSaturation   = 2
)

var (
	priceExpr     = regexp.MustCompile(`\d+(?:\.\d+)?`)
	dimensionExpr = regexp.MustCompile(`(?i)^\s*(dimensions?|size|weight|height|width|depth)\s*:\s*(.+?)\s*$`)
)

// Hints carry caller-supplied facts that override derived ones.
type Hints struct {
	Condition string
}

// Aggregator builds ProductAnalysis records.
type Aggregator struct {
	now func() time.Time
}

// New returns an aggregator stamping records with now; nil uses time.Now.
func New(now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{now: now}
}

// Aggregate merges both collaborator answers. Missing data stays empty so
// that the copywriter can reject it.
func (a *Aggregator) Aggregate(detection domain.DetectionResult, visual domain.VisualSearchResult, hints Hints) domain.ProductAnalysis {
	matches := cleanMatches(visual.VisualMatches)

	mainSubject := detection.MainSubject
	if mainSubject == "" {
		mainSubject = domain.MainSubject(detection.Objects)
	}

	name := mainSubject
	if len(matches) > 0 && matches[0].Title != "" {
		name = matches[0].Title
	}

	condition := strings.TrimSpace(hints.Condition)
	if condition == "" {
		condition = domain.CanonicalCondition
	}

	return domain.ProductAnalysis{
		ProductInformation: domain.ProductInformation{
			ProductName:     name,
			Condition:       condition,
			MainCategory:    mainSubject,
			DetectedObjects: detection.Objects,
			VisualMatches:   matches,
		},
		MarketAnalysis:   marketAnalysis(matches),
		TechnicalDetails: technicalDetails(matches),
		Metadata: domain.Metadata{
			Version:         analysisVersion,
			ConfidenceScore: confidence(detection.Objects),
			Timestamp:       a.now().UTC(),
		},
	}
}

func marketAnalysis(matches []domain.VisualMatch) *domain.MarketAnalysis {
	var (
		prices     []float64
		similar    []string
		categories []string
		seen       = map[string]struct{}{}
	)
	for _, m := range matches {
		if p, ok := ParsePrice(m.Price); ok {
			prices = append(prices, p)
		}
		if m.Title != "" && len(similar) < maxSimilarProducts {
			similar = append(similar, m.Title)
		}
		if m.Category != "" {
			if _, ok := seen[m.Category]; !ok {
				seen[m.Category] = struct{}{}
				categories = append(categories, m.Category)
			}
		}
	}

	out := &domain.MarketAnalysis{
		SimilarProducts:  similar,
		MarketCategories: categories,
		CompetitionAnalysis: domain.CompetitionAnalysis{
			MarketSaturation:     saturation(len(matches)),
			PriceCompetitiveness: domain.PriceUnknown,
		},
	}
	if len(prices) > 0 {
		out.PriceRange = priceRange(prices)
		out.CompetitionAnalysis.PriceCompetitiveness = domain.PriceCompetitive
	}
	return out
}

func priceRange(prices []float64) *domain.PriceRange {
	lo, hi, sum := prices[0], prices[0], 0.0
	for _, p := range prices {
		lo = math.Min(lo, p)
		hi = math.Max(hi, p)
		sum += p
	}
	avg := round2(sum / float64(len(prices)))
	return &domain.PriceRange{Min: lo, Max: hi, Average: &avg}
}

func saturation(matches int) string {
	switch {
	case matches >= highSaturation:
		return domain.SaturationHigh
	case matches >= mediumSaturation:
		return domain.SaturationMedium
	default:
		return domain.SaturationLow
	}
}

func technicalDetails(matches []domain.VisualMatch) *domain.TechnicalDetails {
	var specs, features []string
	for _, m := range matches {
		specs = append(specs, m.Specifications...)
		features = append(features, m.Features...)
	}
	specs = unique(specs)

	dims := map[string]string{}
	for _, s := range specs {
		if parts := dimensionExpr.FindStringSubmatch(s); parts != nil {
			key := strings.ToLower(parts[1])
			if _, ok := dims[key]; !ok {
				dims[key] = parts[2]
			}
		}
	}

	return &domain.TechnicalDetails{
		Specifications: specs,
		Dimensions:     dims,
		Features:       unique(features),
	}
}

func confidence(objects []domain.DetectedObject) float64 {
	if len(objects) == 0 {
		return 0
	}
	sum := 0.0
	for _, o := range objects {
		sum += o.Confidence
	}
	return round2(sum / float64(len(objects)))
}

// ParsePrice extracts the first number from a display price such as "$1,299.99".
func ParsePrice(raw string) (float64, bool) {
	match := priceExpr.FindString(strings.ReplaceAll(raw, ",", ""))
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Flatten removes markup and entities from collaborator text and collapses whitespace.
func Flatten(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func cleanMatches(matches []domain.VisualMatch) []domain.VisualMatch {
	out := make([]domain.VisualMatch, 0, len(matches))
	for _, m := range matches {
		m.Title = Flatten(m.Title)
		m.Category = Flatten(m.Category)
		m.Specifications = flattenAll(m.Specifications)
		m.Features = flattenAll(m.Features)
		out = append(out, m)
	}
	return out
}

func flattenAll(items []string) []string {
	if items == nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if v := Flatten(item); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func unique(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Stage aggregates the job's collaborator results.
type Stage struct {
	Aggregator *Aggregator
}

var _ ports.Stage = Stage{}

func (Stage) Name() string { return "aggregate" }

func (s Stage) Execute(job domain.Job) (domain.Job, error) {
	if job.Detection == nil {
		return job, fmt.Errorf("aggregate analysis: no detection result")
	}
	var visual domain.VisualSearchResult
	if job.VisualSearch != nil {
		visual = *job.VisualSearch
	}
	analysis := s.Aggregator.Aggregate(*job.Detection, visual, Hints{Condition: job.ConditionHint})
	job.Analysis = &analysis
	return job, nil
}
