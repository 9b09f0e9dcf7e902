package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"LensInventory/internal/adapter"
	"LensInventory/internal/domain"
	"LensInventory/internal/platform"
	"LensInventory/internal/quality"
	"LensInventory/internal/rules"
)

var testNow = time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC)

type fakeDetector struct {
	result domain.DetectionResult
	err    error
}

func (f fakeDetector) Detect(context.Context, []byte) (domain.DetectionResult, error) {
	return f.result, f.err
}

type fakeSearcher struct {
	result domain.VisualSearchResult
	err    error
}

func (f fakeSearcher) Search(context.Context, domain.VisualQuery) (domain.VisualSearchResult, error) {
	return f.result, f.err
}

type fakeEnricher struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeEnricher) Enrich(_ context.Context, m domain.VisualMatch) (domain.VisualMatch, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	m.Features = append(m.Features, "Enriched feature")
	return m, nil
}

type fakeRepository struct {
	mu     sync.Mutex
	saved  []domain.GeneratedListing
	cutoff time.Time
}

func (f *fakeRepository) SaveGenerated(_ context.Context, listings []domain.GeneratedListing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, listings...)
	return nil
}

func (f *fakeRepository) Recent(_ context.Context, limit int) ([]domain.GeneratedListing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > len(f.saved) {
		limit = len(f.saved)
	}
	return append([]domain.GeneratedListing{}, f.saved[:limit]...), nil
}

func (f *fakeRepository) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoff = cutoff
	return 2, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	platforms []string
	err       error
}

func (f *fakePublisher) Publish(_ context.Context, l domain.PlatformListing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.platforms = append(f.platforms, l.Platform)
	return f.err
}

func newService(deps ListingDeps) *ListingService {
	book := rules.MustDefault()
	deps.Adapter = adapter.New(book)
	deps.Auditor = quality.NewAuditor(book, quality.DefaultOptions(), nil)
	deps.Now = func() time.Time { return testNow }
	if deps.Platforms == nil {
		deps.Platforms = []string{platform.Facebook, platform.Instagram, platform.Leboncoin}
	}
	return NewListingService(deps)
}

func canonAnalysis() domain.ProductAnalysis {
	avg := 649.0
	return domain.ProductAnalysis{
		ProductInformation: domain.ProductInformation{ProductName: "Canon EOS 80D", Condition: "good condition"},
		MarketAnalysis: &domain.MarketAnalysis{
			PriceRange:          &domain.PriceRange{Min: 499, Max: 799, Average: &avg},
			MarketCategories:    []string{"camera"},
			CompetitionAnalysis: domain.CompetitionAnalysis{PriceCompetitiveness: domain.PriceCompetitive},
		},
		TechnicalDetails: &domain.TechnicalDetails{
			Specifications: []string{"24.2 MP sensor"},
			Features:       []string{"Wi-Fi", "Dual Pixel AF"},
		},
	}
}

func TestFromAnalysisFollowsRequestedOrder(t *testing.T) {
	t.Parallel()

	repo := &fakeRepository{}
	pub := &fakePublisher{}
	svc := newService(ListingDeps{Repository: repo, Publisher: pub})

	res, err := svc.FromAnalysis(context.Background(), "req-1", canonAnalysis(),
		[]string{"Instagram", "facebook", "INSTAGRAM", "myspace"})
	if err != nil {
		t.Fatalf("from analysis: %v", err)
	}

	var got []string
	for _, pl := range res.Platforms {
		got = append(got, pl.Platform)
		if pl.RefinedReport.OverallScore < pl.QualityReport.OverallScore {
			t.Fatalf("%s: refined score dropped", pl.Platform)
		}
		if len(pl.RefinedReport.Checks) != 6 {
			t.Fatalf("%s: %d checks", pl.Platform, len(pl.RefinedReport.Checks))
		}
	}
	if diff := cmp.Diff([]string{"instagram", "facebook", "myspace"}, got); diff != "" {
		t.Fatalf("platforms (-want +got):\n%s", diff)
	}

	if res.ID != "req-1" || !res.CreatedAt.Equal(testNow) {
		t.Fatalf("result header = %s %v", res.ID, res.CreatedAt)
	}
	if res.Draft.Title != "Canon EOS 80D | Competitive Price" {
		t.Fatalf("draft title = %q", res.Draft.Title)
	}
	if res.Platforms[1].Listing.CallToAction != "👉 Click for more info!" {
		t.Fatalf("facebook cta = %q", res.Platforms[1].Listing.CallToAction)
	}
	if res.Platforms[2].Listing.CallToAction != res.Draft.CallToAction {
		t.Fatal("unknown platform must keep the draft call to action")
	}

	if len(repo.saved) != 3 {
		t.Fatalf("saved %d listings; want 3", len(repo.saved))
	}
	for _, rec := range repo.saved {
		if rec.RequestID != "req-1" || rec.ID == "" || rec.ProductName != "Canon EOS 80D" {
			t.Fatalf("record = %+v", rec)
		}
	}
	if len(pub.platforms) != 3 {
		t.Fatalf("published %v", pub.platforms)
	}
}

func TestFromAnalysisDefaultsPlatformsAndID(t *testing.T) {
	t.Parallel()

	svc := newService(ListingDeps{})
	res, err := svc.FromAnalysis(context.Background(), "", canonAnalysis(), nil)
	if err != nil {
		t.Fatalf("from analysis: %v", err)
	}
	if res.ID == "" {
		t.Fatal("expected a generated id")
	}
	if len(res.Platforms) != 3 || res.Platforms[0].Platform != platform.Facebook {
		t.Fatalf("platforms = %+v", res.Platforms)
	}
}

func TestFromAnalysisMissingField(t *testing.T) {
	t.Parallel()

	a := canonAnalysis()
	a.TechnicalDetails = nil

	_, err := newService(ListingDeps{}).FromAnalysis(context.Background(), "", a, nil)
	if !domain.IsMissingField(err) {
		t.Fatalf("err = %v; want MissingFieldError", err)
	}
}

func TestFromImage(t *testing.T) {
	t.Parallel()

	enricher := &fakeEnricher{}
	svc := newService(ListingDeps{
		Detector: fakeDetector{result: domain.NewDetectionResult([]domain.DetectedObject{{Class: "camera", Confidence: 0.9}})},
		Searcher: fakeSearcher{result: domain.VisualSearchResult{VisualMatches: []domain.VisualMatch{
			{Title: "Canon EOS 80D", Link: "https://shop.example/80d", Price: "$650", Category: "Cameras"},
			{Title: "Canon EOS 80D kit", Price: "$700"},
		}}},
		Enricher: enricher,
	})

	res, err := svc.FromImage(context.Background(), ImageRequest{Image: []byte("jpeg"), Condition: "like new", Platforms: []string{platform.Leboncoin}})
	if err != nil {
		t.Fatalf("from image: %v", err)
	}
	if enricher.calls != 1 {
		t.Fatalf("enricher calls = %d; want 1", enricher.calls)
	}
	info := res.Analysis.ProductInformation
	if info.ProductName != "Canon EOS 80D" || info.Condition != "like new" {
		t.Fatalf("product = %+v", info)
	}
	if diff := cmp.Diff([]string{"Enriched feature"}, res.Analysis.TechnicalDetails.Features); diff != "" {
		t.Fatalf("features (-want +got):\n%s", diff)
	}
	if res.Draft.Title != "Canon EOS 80D | like new | Competitive Price" {
		t.Fatalf("draft title = %q", res.Draft.Title)
	}
}

func TestFromImageSearchFailureDegrades(t *testing.T) {
	t.Parallel()

	svc := newService(ListingDeps{
		Detector: fakeDetector{result: domain.NewDetectionResult([]domain.DetectedObject{{Class: "bicycle", Confidence: 0.8}})},
		Searcher: fakeSearcher{err: errors.New("quota exceeded")},
	})

	res, err := svc.FromImage(context.Background(), ImageRequest{Image: []byte("jpeg"), Platforms: []string{platform.Facebook}})
	if err != nil {
		t.Fatalf("from image: %v", err)
	}
	if res.Analysis.ProductInformation.ProductName != "bicycle" {
		t.Fatalf("product name = %q", res.Analysis.ProductInformation.ProductName)
	}
	if got := res.Platforms[0].Listing.PlatformSpecific[platform.BlockMarketplaceCategory]; got != "Vehicles" {
		t.Fatalf("marketplace category = %v", got)
	}
}

func TestFromImageDetectionFailureAborts(t *testing.T) {
	t.Parallel()

	svc := newService(ListingDeps{
		Detector: fakeDetector{err: errors.New("model offline")},
		Searcher: fakeSearcher{},
	})

	_, err := svc.FromImage(context.Background(), ImageRequest{Image: []byte("jpeg")})
	if !IsUpstream(err) {
		t.Fatalf("err = %v; want upstream error", err)
	}
}

func TestFromImageNeedsImage(t *testing.T) {
	t.Parallel()

	_, err := newService(ListingDeps{}).FromImage(context.Background(), ImageRequest{})
	if !errors.Is(err, ErrNoImage) {
		t.Fatalf("err = %v; want ErrNoImage", err)
	}
}

func TestRecent(t *testing.T) {
	t.Parallel()

	items, err := newService(ListingDeps{}).Recent(context.Background(), 10)
	if err != nil || items != nil {
		t.Fatalf("without repository: %v, %v", items, err)
	}

	repo := &fakeRepository{saved: []domain.GeneratedListing{{ID: "a"}, {ID: "b"}}}
	items, err = newService(ListingDeps{Repository: repo}).Recent(context.Background(), 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(items) != 1 || items[0].ID != "a" {
		t.Fatalf("items = %+v", items)
	}
}
