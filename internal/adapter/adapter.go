// Package adapter reshapes a listing draft to fit one marketplace.
package adapter

import (
	"fmt"
	"sort"
	"strings"

	"LensInventory/internal/domain"
	"LensInventory/internal/platform"
	"LensInventory/internal/ports"
	"LensInventory/internal/rules"
	"LensInventory/internal/textfit"
)

const (
	storyFeatureCount = 3
	storyPriceDisplay = "Price on request"
	storyCallToAction = "Swipe Up ⬆️"
)

// StoryFormat is the condensed projection used for story posts.
type StoryFormat struct {
	Headline     string   `json:"headline"`
	PriceDisplay string   `json:"price_display"`
	KeyFeatures  []string `json:"key_features"`
	StoryCTA     string   `json:"story_cta"`
}

// Adapter applies platform profiles from a compiled rule book.
type Adapter struct {
	book *rules.Book
}

// New creates an adapter bound to book.
func New(book *rules.Book) *Adapter {
	return &Adapter{book: book}
}

// Adapt returns a copy of listing reshaped for platformID. Unknown platforms
// get the listing back unchanged.
func (a *Adapter) Adapt(listing domain.Listing, platformID string) domain.Listing {
	profile, ok := a.book.Platforms().Resolve(platformID)
	if !ok {
		return listing
	}

	out := listing.Clone()
	out.Title = textfit.Words(listing.Title, profile.TitleLengthLimit)

	description := listing.Description
	if profile.EmojiEnrichment {
		for _, e := range a.book.Emoji() {
			description = e.Decorate(description)
		}
	}
	out.Description = textfit.Paragraphs(description, profile.DescriptionLengthLimit)

	if profile.HighlightPrefix != "" {
		for i, h := range out.Highlights {
			out.Highlights[i] = profile.HighlightPrefix + h
		}
	}

	formatted := formatTags(listing.Tags, profile)
	out.Tags = selectTags(formatted, profile.TagsCountLimit)

	if profile.CTATemplate != "" {
		out.CallToAction = profile.CTATemplate
	}

	if blocks := a.blocks(listing, formatted, profile); len(blocks) > 0 {
		if out.PlatformSpecific == nil {
			out.PlatformSpecific = make(map[string]any, len(blocks))
		}
		for k, v := range blocks {
			out.PlatformSpecific[k] = v
		}
	}

	return out
}

func (a *Adapter) blocks(listing domain.Listing, formatted []string, profile platform.Profile) map[string]any {
	out := map[string]any{}

	if profile.HasBlock(platform.BlockHashtagGroups) {
		groups := textfit.Groups(formatted, profile.HashtagGroupBudget)
		joined := make([]string, 0, len(groups))
		for _, g := range groups {
			joined = append(joined, strings.Join(g, " "))
		}
		out[platform.BlockHashtagGroups] = joined
	}

	if profile.HasBlock(platform.BlockStoryFormat) {
		features := listing.Highlights
		if len(features) > storyFeatureCount {
			features = features[:storyFeatureCount]
		}
		out[platform.BlockStoryFormat] = StoryFormat{
			Headline:     textfit.Words(listing.Title, profile.StoryHeadlineLimit),
			PriceDisplay: storyPriceDisplay,
			KeyFeatures:  append([]string{}, features...),
			StoryCTA:     storyCallToAction,
		}
	}

	if profile.HasBlock(platform.BlockMarketplaceCategory) {
		out[platform.BlockMarketplaceCategory] = a.book.MarketplaceCategory(strings.Join(listing.Tags, ", "), listing.Title)
	}

	if profile.HasBlock(platform.BlockConditionCategory) {
		out[platform.BlockConditionCategory] = a.conditionCategory(listing)
	}

	return out
}

func (a *Adapter) conditionCategory(listing domain.Listing) string {
	for _, h := range listing.Highlights {
		if phrase, ok := strings.CutPrefix(h, domain.ConditionHighlightPrefix); ok {
			if c, ok := a.book.ConditionCategory(phrase); ok {
				return c
			}
		}
	}
	for _, tag := range listing.Tags {
		if c, ok := a.book.ConditionCategory(tag); ok {
			return c
		}
	}
	return rules.ConditionGood
}

// formatTags applies the profile's tag formatting. Tags that collapse to the
// same formatted value are kept once, in first-seen order.
func formatTags(tags domain.Tags, profile platform.Profile) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		if profile.HashtagFormatting {
			tag = Hashtag(tag)
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// Hashtag turns a tag into a single #word.
func Hashtag(tag string) string {
	return "#" + strings.Join(strings.Fields(strings.TrimLeft(tag, "#")), "")
}

// selectTags keeps the limit shortest tags, ties broken lexicographically.
func selectTags(tags []string, limit int) domain.Tags {
	ranked := append([]string{}, tags...)
	sort.SliceStable(ranked, func(i, j int) bool {
		li, lj := textfit.Len(ranked[i]), textfit.Len(ranked[j])
		if li != lj {
			return li < lj
		}
		return ranked[i] < ranked[j]
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return domain.NewTags(ranked...)
}

// Stage adapts the job's draft for the job's platform.
type Stage struct {
	Adapter *Adapter
}

var _ ports.Stage = Stage{}

func (Stage) Name() string { return "adapt" }

func (s Stage) Execute(job domain.Job) (domain.Job, error) {
	if job.Draft == nil {
		return job, fmt.Errorf("adapt listing for %s: no draft", job.Platform)
	}
	adapted := s.Adapter.Adapt(*job.Draft, job.Platform)
	job.Adapted = &adapted
	return job, nil
}
