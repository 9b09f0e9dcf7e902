package ports

import (
	"context"
	"time"

	"LensInventory/internal/domain"
)

// Stage is one step of the listing pipeline. Execute returns a new Job and
// must not modify values attached by earlier stages.
type Stage interface {
	Name() string
	Execute(job domain.Job) (domain.Job, error)
}

// ObjectDetector labels the regions of a product picture.
type ObjectDetector interface {
	Detect(ctx context.Context, image []byte) (domain.DetectionResult, error)
}

// VisualSearcher finds market comparables for a picture.
type VisualSearcher interface {
	Search(ctx context.Context, query domain.VisualQuery) (domain.VisualSearchResult, error)
}

// ProductEnricher fills in specifications and features from a comparable's product page.
type ProductEnricher interface {
	Enrich(ctx context.Context, match domain.VisualMatch) (domain.VisualMatch, error)
}

// ListingRepository persists generated listings.
type ListingRepository interface {
	SaveGenerated(ctx context.Context, listings []domain.GeneratedListing) error
	Recent(ctx context.Context, limit int) ([]domain.GeneratedListing, error)
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Publisher pushes a finished listing to a notification channel.
type Publisher interface {
	Publish(ctx context.Context, listing domain.PlatformListing) error
}

// Scheduler controls when background jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
