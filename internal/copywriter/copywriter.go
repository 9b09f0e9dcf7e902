// Package copywriter turns a ProductAnalysis into a first listing draft.
package copywriter

import (
	"fmt"
	"strconv"
	"strings"

	"LensInventory/internal/domain"
	"LensInventory/internal/ports"
	"LensInventory/internal/textfit"
)

const (
	titleSeparator     = " | "
	maxSpecifications  = 5
	maxHighlights      = 5
	competitivePoint   = "Competitive Price"
	mainSectionHeader  = "Key features:"
	techSectionHeader  = "Technical details:"
	fallbackCallToShop = "Contact us for more information!"
)

// Synthesize builds a listing draft. Required fields are never defaulted:
// their absence is reported as a *domain.MissingFieldError.
func Synthesize(analysis domain.ProductAnalysis) (domain.Listing, error) {
	info := analysis.ProductInformation
	switch {
	case strings.TrimSpace(info.ProductName) == "":
		return domain.Listing{}, &domain.MissingFieldError{Field: "product_information.product_name"}
	case strings.TrimSpace(info.Condition) == "":
		return domain.Listing{}, &domain.MissingFieldError{Field: "product_information.condition"}
	case analysis.MarketAnalysis == nil:
		return domain.Listing{}, &domain.MissingFieldError{Field: "market_analysis"}
	case analysis.TechnicalDetails == nil:
		return domain.Listing{}, &domain.MissingFieldError{Field: "technical_details"}
	}

	market := analysis.MarketAnalysis
	tech := analysis.TechnicalDetails

	return domain.Listing{
		Title:        title(info, market),
		Description:  description(info, market, tech),
		Highlights:   highlights(info, tech),
		Tags:         tags(info, market),
		CallToAction: callToAction(market),
	}, nil
}

func title(info domain.ProductInformation, market *domain.MarketAnalysis) string {
	condition := info.Condition
	if strings.EqualFold(strings.TrimSpace(condition), domain.CanonicalCondition) {
		condition = ""
	}
	usp := ""
	if market.PriceCompetitiveness() == domain.PriceCompetitive {
		usp = competitivePoint
	}
	return joinNonEmpty(titleSeparator, info.ProductName, condition, usp)
}

func description(info domain.ProductInformation, market *domain.MarketAnalysis, tech *domain.TechnicalDetails) string {
	hook := fmt.Sprintf("Discover this superb %s in %s!", info.ProductName, info.Condition)

	var main string
	if len(tech.Specifications) > 0 {
		specs := tech.Specifications
		if len(specs) > maxSpecifications {
			specs = specs[:maxSpecifications]
		}
		lines := []string{mainSectionHeader}
		for _, s := range specs {
			lines = append(lines, "- "+s)
		}
		main = strings.Join(lines, "\n")
	}

	var technical string
	if len(tech.Features) > 0 {
		lines := []string{techSectionHeader}
		for _, f := range tech.Features {
			lines = append(lines, "• "+f)
		}
		technical = strings.Join(lines, "\n")
	}

	var pricing string
	if market.PriceRange != nil {
		pricing = fmt.Sprintf("Market price between %s€ and %s€",
			formatPrice(market.PriceRange.Min), formatPrice(market.PriceRange.Max))
	}

	return joinNonEmpty(textfit.ParagraphSeparator, hook, main, technical, pricing)
}

func highlights(info domain.ProductInformation, tech *domain.TechnicalDetails) []string {
	features := tech.Features
	if len(features) > maxHighlights {
		features = features[:maxHighlights]
	}
	out := make([]string, 0, len(features)+1)
	out = append(out, features...)
	out = append(out, domain.ConditionHighlightPrefix+info.Condition)
	return out
}

func tags(info domain.ProductInformation, market *domain.MarketAnalysis) domain.Tags {
	items := append([]string{}, market.MarketCategories...)
	items = append(items, strings.ToLower(info.ProductName), strings.ToLower(info.Condition))
	return domain.NewTags(items...)
}

func callToAction(market *domain.MarketAnalysis) string {
	if market.PriceRange == nil || market.PriceRange.Average == nil {
		return fallbackCallToShop
	}
	return fmt.Sprintf("Yours for only %s€! Contact us now!", formatPrice(*market.PriceRange.Average))
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// Stage runs Synthesize on the job's analysis.
type Stage struct{}

var _ ports.Stage = Stage{}

func (Stage) Name() string { return "copywrite" }

func (Stage) Execute(job domain.Job) (domain.Job, error) {
	if job.Analysis == nil {
		return job, &domain.MissingFieldError{Field: "product_analysis"}
	}
	draft, err := Synthesize(*job.Analysis)
	if err != nil {
		return job, fmt.Errorf("synthesize listing: %w", err)
	}
	job.Draft = &draft
	return job, nil
}
