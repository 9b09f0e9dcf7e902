package parser

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"LensInventory/internal/domain"
	"LensInventory/internal/ports"
)

const (
	userAgent   = "LensInventory/1.0"
	maxSpecs    = 10
	maxFeatures = 10
)

// ProductPage fetches a visual match's product page and lifts specification
// tables and feature lists out of its markup.
type ProductPage struct {
	client *http.Client
}

var _ ports.ProductEnricher = (*ProductPage)(nil)

// NewProductPage wires an HTTP client; a nil client gets a 10 second timeout.
func NewProductPage(client *http.Client) *ProductPage {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &ProductPage{client: client}
}

// Enrich returns the match with page specifications and features appended.
// Fields the match already carries are kept.
func (p *ProductPage) Enrich(ctx context.Context, match domain.VisualMatch) (domain.VisualMatch, error) {
	if match.Link == "" {
		return match, nil
	}

	doc, err := p.fetchDocument(ctx, match.Link)
	if err != nil {
		return match, fmt.Errorf("enrich %s: %w", match.Link, err)
	}

	page := extractPage(doc)
	out := match
	out.Specifications = appendUnique(append([]string{}, match.Specifications...), page.specs...)
	out.Features = appendUnique(append([]string{}, match.Features...), page.features...)
	if out.Price == "" {
		out.Price = page.price
	}
	if out.Category == "" {
		out.Category = page.category
	}
	return out, nil
}

func (p *ProductPage) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("product page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

type pageDetails struct {
	specs    []string
	features []string
	price    string
	category string
}

func extractPage(doc *goquery.Document) pageDetails {
	var page pageDetails

	doc.Find("table tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		cells := tr.Find("th, td")
		if cells.Length() < 2 {
			return true
		}
		if spec := specLine(cells.Eq(0).Text(), cells.Eq(1).Text()); spec != "" {
			page.specs = appendUnique(page.specs, spec)
		}
		return len(page.specs) < maxSpecs
	})

	doc.Find("dl dt").EachWithBreak(func(_ int, dt *goquery.Selection) bool {
		if len(page.specs) >= maxSpecs {
			return false
		}
		if spec := specLine(dt.Text(), dt.Next().Filter("dd").Text()); spec != "" {
			page.specs = appendUnique(page.specs, spec)
		}
		return true
	})

	doc.Find(`[class*="feature"] li, [id*="feature"] li`).EachWithBreak(func(_ int, li *goquery.Selection) bool {
		if text := clean(li.Text()); text != "" {
			page.features = appendUnique(page.features, text)
		}
		return len(page.features) < maxFeatures
	})

	if price, ok := doc.Find(`[itemprop="price"]`).First().Attr("content"); ok {
		page.price = clean(price)
	} else {
		page.price = clean(doc.Find(`[itemprop="price"]`).First().Text())
	}

	crumbs := doc.Find(`[class*="breadcrumb"] li, [class*="breadcrumb"] a`)
	if crumbs.Length() > 0 {
		page.category = clean(crumbs.Last().Text())
	}

	return page
}

func specLine(label, value string) string {
	label = strings.TrimSuffix(clean(label), ":")
	value = clean(value)
	if label == "" || value == "" {
		return ""
	}
	return label + ": " + value
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func appendUnique(dst []string, items ...string) []string {
	for _, item := range items {
		dup := false
		for _, existing := range dst {
			if strings.EqualFold(existing, item) {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, item)
		}
	}
	return dst
}
