package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"LensInventory/internal/adapter"
	"LensInventory/internal/aggregator"
	"LensInventory/internal/copywriter"
	"LensInventory/internal/domain"
	"LensInventory/internal/platform"
	"LensInventory/internal/ports"
	"LensInventory/internal/quality"
)

const enrichConcurrency = 3

// ErrNoImage is returned when a request carries neither image bytes nor an image URL.
var ErrNoImage = errors.New("image or image url is required")

// UpstreamError wraps a failure of an external collaborator.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsUpstream reports whether err was caused by an external collaborator.
func IsUpstream(err error) bool {
	var target *UpstreamError
	return errors.As(err, &target)
}

// ListingDeps wires collaborators and core components into the listing service.
// Detector, Searcher, Enricher, Repository and Publisher are optional.
type ListingDeps struct {
	Detector   ports.ObjectDetector
	Searcher   ports.VisualSearcher
	Enricher   ports.ProductEnricher
	Repository ports.ListingRepository
	Publisher  ports.Publisher

	Aggregator *aggregator.Aggregator
	Adapter    *adapter.Adapter
	Auditor    *quality.Auditor

	Platforms []string
	Logger    *slog.Logger
	Now       func() time.Time
}

// ImageRequest asks for listings generated from a product picture.
type ImageRequest struct {
	RequestID string
	Image     []byte
	ImageURL  string
	Condition string
	Platforms []string
}

// ListingService turns pictures or analyses into platform listings.
type ListingService struct {
	detector   ports.ObjectDetector
	searcher   ports.VisualSearcher
	enricher   ports.ProductEnricher
	repository ports.ListingRepository
	publisher  ports.Publisher

	fromImage    *Pipeline
	fromAnalysis *Pipeline
	perTarget    *Pipeline

	platforms []string
	logger    *slog.Logger
	now       func() time.Time
}

// NewListingService constructs the listing use case.
func NewListingService(deps ListingDeps) *ListingService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	agg := deps.Aggregator
	if agg == nil {
		agg = aggregator.New(now)
	}

	return &ListingService{
		detector:   deps.Detector,
		searcher:   deps.Searcher,
		enricher:   deps.Enricher,
		repository: deps.Repository,
		publisher:  deps.Publisher,
		fromImage: NewPipeline(deps.Logger,
			aggregator.Stage{Aggregator: agg},
			copywriter.Stage{},
		),
		fromAnalysis: NewPipeline(deps.Logger, copywriter.Stage{}),
		perTarget: NewPipeline(deps.Logger,
			adapter.Stage{Adapter: deps.Adapter},
			quality.Stage{Auditor: deps.Auditor},
		),
		platforms: deps.Platforms,
		logger:    deps.Logger,
		now:       now,
	}
}

// FromImage runs detection and visual search, then the full listing pipeline.
func (s *ListingService) FromImage(ctx context.Context, req ImageRequest) (domain.GenerationResult, error) {
	if len(req.Image) == 0 && req.ImageURL == "" {
		return domain.GenerationResult{}, ErrNoImage
	}

	detection, visual, err := s.analyzeImage(ctx, req)
	if err != nil {
		return domain.GenerationResult{}, err
	}

	visual.VisualMatches = s.enrich(ctx, visual.VisualMatches)

	job, err := s.fromImage.Run(ctx, domain.Job{
		ConditionHint: req.Condition,
		Detection:     &detection,
		VisualSearch:  &visual,
	})
	if err != nil {
		return domain.GenerationResult{}, fmt.Errorf("build draft: %w", err)
	}

	return s.finish(ctx, req.RequestID, job, req.Platforms)
}

// FromAnalysis skips the collaborators and starts from a ready analysis.
func (s *ListingService) FromAnalysis(ctx context.Context, requestID string, analysis domain.ProductAnalysis, platforms []string) (domain.GenerationResult, error) {
	job, err := s.fromAnalysis.Run(ctx, domain.Job{Analysis: &analysis})
	if err != nil {
		return domain.GenerationResult{}, fmt.Errorf("build draft: %w", err)
	}
	return s.finish(ctx, requestID, job, platforms)
}

// Recent lists the latest stored listings.
func (s *ListingService) Recent(ctx context.Context, limit int) ([]domain.GeneratedListing, error) {
	if s.repository == nil {
		return nil, nil
	}
	items, err := s.repository.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load recent listings: %w", err)
	}
	return items, nil
}

func (s *ListingService) analyzeImage(ctx context.Context, req ImageRequest) (domain.DetectionResult, domain.VisualSearchResult, error) {
	var (
		detection domain.DetectionResult
		visual    domain.VisualSearchResult
	)

	g, gctx := errgroup.WithContext(ctx)
	if s.detector != nil && len(req.Image) > 0 {
		g.Go(func() error {
			res, err := s.detector.Detect(gctx, req.Image)
			if err != nil {
				return &UpstreamError{Service: "object detection", Err: err}
			}
			detection = res
			return nil
		})
	}
	if s.searcher != nil {
		g.Go(func() error {
			res, err := s.searcher.Search(gctx, domain.VisualQuery{ImageURL: req.ImageURL, Image: req.Image})
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.warn("visual search failed, continuing without matches", "error", err)
				return nil
			}
			visual = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return detection, visual, fmt.Errorf("analyze image: %w", err)
	}
	return detection, visual, nil
}

func (s *ListingService) enrich(ctx context.Context, matches []domain.VisualMatch) []domain.VisualMatch {
	if s.enricher == nil || len(matches) == 0 {
		return matches
	}

	out := make([]domain.VisualMatch, len(matches))
	copy(out, matches)

	var g errgroup.Group
	g.SetLimit(enrichConcurrency)
	for i := range out {
		if out[i].Link == "" {
			continue
		}
		i := i
		g.Go(func() error {
			enriched, err := s.enricher.Enrich(ctx, out[i])
			if err != nil {
				s.debug("enrich match", "link", out[i].Link, "error", err)
				return nil
			}
			out[i] = enriched
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *ListingService) finish(ctx context.Context, requestID string, job domain.Job, requested []string) (domain.GenerationResult, error) {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	targets := s.targets(requested)

	listings := make([]domain.PlatformListing, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			targetJob := job
			targetJob.Platform = target
			out, err := s.perTarget.Run(gctx, targetJob)
			if err != nil {
				return fmt.Errorf("platform %s: %w", target, err)
			}
			ref := out.Refinement
			listings[i] = domain.PlatformListing{
				Platform:      target,
				Listing:       ref.Listing,
				QualityReport: ref.Initial,
				RefinedReport: ref.Final,
				Iterations:    ref.Iterations,
				Repairs:       ref.Repairs,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.GenerationResult{}, err
	}

	result := domain.GenerationResult{
		ID:        requestID,
		CreatedAt: s.now().UTC(),
		Analysis:  *job.Analysis,
		Draft:     *job.Draft,
		Platforms: listings,
	}

	s.persist(ctx, result)
	s.publish(ctx, result)
	return result, nil
}

// targets normalises requested platform identifiers, falling back to the
// configured defaults. Request order is kept and duplicates are dropped.
func (s *ListingService) targets(requested []string) []string {
	if len(requested) == 0 {
		requested = s.platforms
	}
	seen := map[string]struct{}{}
	out := make([]string, 0, len(requested))
	for _, id := range requested {
		key := platform.Key(id)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

func (s *ListingService) persist(ctx context.Context, result domain.GenerationResult) {
	if s.repository == nil || len(result.Platforms) == 0 {
		return
	}
	records := make([]domain.GeneratedListing, 0, len(result.Platforms))
	for _, pl := range result.Platforms {
		records = append(records, domain.GeneratedListing{
			ID:           uuid.NewString(),
			RequestID:    result.ID,
			Platform:     pl.Platform,
			ProductName:  result.Analysis.ProductInformation.ProductName,
			Listing:      pl.Listing,
			OverallScore: pl.RefinedReport.OverallScore,
			CreatedAt:    result.CreatedAt,
		})
	}
	if err := s.repository.SaveGenerated(ctx, records); err != nil {
		s.warn("persist listings", "request_id", result.ID, "error", err)
	}
}

func (s *ListingService) publish(ctx context.Context, result domain.GenerationResult) {
	if s.publisher == nil {
		return
	}
	for _, pl := range result.Platforms {
		if err := s.publisher.Publish(ctx, pl); err != nil {
			s.warn("publish listing", "request_id", result.ID, "platform", pl.Platform, "error", err)
		}
	}
}

func (s *ListingService) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *ListingService) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
