package copywriter

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"LensInventory/internal/domain"
)

func canonAnalysis() domain.ProductAnalysis {
	avg := 649.5
	return domain.ProductAnalysis{
		ProductInformation: domain.ProductInformation{
			ProductName: "Canon EOS 80D",
			Condition:   "good condition",
		},
		MarketAnalysis: &domain.MarketAnalysis{
			PriceRange:       &domain.PriceRange{Min: 499, Max: 799.99, Average: &avg},
			MarketCategories: []string{"cameras", "photography"},
			CompetitionAnalysis: domain.CompetitionAnalysis{
				MarketSaturation:     domain.SaturationMedium,
				PriceCompetitiveness: domain.PriceCompetitive,
			},
		},
		TechnicalDetails: &domain.TechnicalDetails{
			Specifications: []string{"24.2 MP APS-C sensor", "45-point AF", "1080p video", "Wi-Fi", "ISO 100-16000", "Weight: 730 g"},
			Features:       []string{"Vari-angle touchscreen", "Dual Pixel AF"},
		},
	}
}

func TestSynthesizeCanonScenario(t *testing.T) {
	t.Parallel()

	listing, err := Synthesize(canonAnalysis())
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}

	if listing.Title != "Canon EOS 80D | Competitive Price" {
		t.Fatalf("title = %q", listing.Title)
	}

	wantDescription := strings.Join([]string{
		"Discover this superb Canon EOS 80D in good condition!",
		"Key features:\n- 24.2 MP APS-C sensor\n- 45-point AF\n- 1080p video\n- Wi-Fi\n- ISO 100-16000",
		"Technical details:\n• Vari-angle touchscreen\n• Dual Pixel AF",
		"Market price between 499€ and 799.99€",
	}, "\n\n")
	if diff := cmp.Diff(wantDescription, listing.Description); diff != "" {
		t.Fatalf("description mismatch (-want +got):\n%s", diff)
	}

	wantHighlights := []string{"Vari-angle touchscreen", "Dual Pixel AF", "Condition: good condition"}
	if diff := cmp.Diff(wantHighlights, listing.Highlights); diff != "" {
		t.Fatalf("highlights mismatch (-want +got):\n%s", diff)
	}

	wantTags := domain.Tags{"cameras", "canon eos 80d", "good condition", "photography"}
	if diff := cmp.Diff(wantTags, listing.Tags); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}

	if listing.CallToAction != "Yours for only 649.5€! Contact us now!" {
		t.Fatalf("cta = %q", listing.CallToAction)
	}
}

func TestSynthesizeDecodedTopLevelCompetitiveness(t *testing.T) {
	t.Parallel()

	raw := `{
		"product_information": {"product_name": "Canon EOS 80D", "condition": "good condition"},
		"market_analysis": {"price_competitiveness": "competitive"},
		"technical_details": {"specifications": ["24.2 MP APS-C sensor"], "features": []},
		"metadata": {"version": "1.0", "confidence_score": 0.8, "timestamp": "2024-05-01T10:00:00.123456"}
	}`
	var analysis domain.ProductAnalysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	listing, err := Synthesize(analysis)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if listing.Title != "Canon EOS 80D | Competitive Price" {
		t.Fatalf("title = %q", listing.Title)
	}
}

func TestSynthesizeKeepsNonCanonicalCondition(t *testing.T) {
	t.Parallel()

	a := canonAnalysis()
	a.ProductInformation.Condition = "like new"
	a.MarketAnalysis.CompetitionAnalysis.PriceCompetitiveness = domain.PriceUnknown
	a.MarketAnalysis.PriceRange = nil

	listing, err := Synthesize(a)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if listing.Title != "Canon EOS 80D | like new" {
		t.Fatalf("title = %q", listing.Title)
	}
	if strings.Contains(listing.Description, "Market price") {
		t.Fatal("market section must be omitted without a price range")
	}
	if listing.CallToAction != "Contact us for more information!" {
		t.Fatalf("cta = %q", listing.CallToAction)
	}
}

func TestSynthesizeOmitsEmptySections(t *testing.T) {
	t.Parallel()

	a := canonAnalysis()
	a.TechnicalDetails = &domain.TechnicalDetails{}
	a.MarketAnalysis.PriceRange = nil

	listing, err := Synthesize(a)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if listing.Description != "Discover this superb Canon EOS 80D in good condition!" {
		t.Fatalf("description = %q", listing.Description)
	}
	if diff := cmp.Diff([]string{"Condition: good condition"}, listing.Highlights); diff != "" {
		t.Fatalf("highlights (-want +got):\n%s", diff)
	}
}

func TestSynthesizeMissingFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		field  string
		mutate func(a *domain.ProductAnalysis)
	}{
		{"product_information.product_name", func(a *domain.ProductAnalysis) { a.ProductInformation.ProductName = "" }},
		{"product_information.condition", func(a *domain.ProductAnalysis) { a.ProductInformation.Condition = " " }},
		{"market_analysis", func(a *domain.ProductAnalysis) { a.MarketAnalysis = nil }},
		{"technical_details", func(a *domain.ProductAnalysis) { a.TechnicalDetails = nil }},
	}

	for _, tt := range tests {
		a := canonAnalysis()
		tt.mutate(&a)

		_, err := Synthesize(a)
		var missing *domain.MissingFieldError
		if !errors.As(err, &missing) {
			t.Fatalf("%s: err = %v; want MissingFieldError", tt.field, err)
		}
		if missing.Field != tt.field {
			t.Fatalf("field = %q; want %q", missing.Field, tt.field)
		}
	}
}

func TestStageAttachesDraft(t *testing.T) {
	t.Parallel()

	a := canonAnalysis()
	out, err := Stage{}.Execute(domain.Job{Analysis: &a})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out.Draft == nil || out.Draft.Title == "" {
		t.Fatal("draft not attached")
	}

	if _, err := (Stage{}).Execute(domain.Job{}); !domain.IsMissingField(err) {
		t.Fatalf("err = %v; want MissingFieldError", err)
	}
}
