package platform

import (
	"fmt"
	"sort"
	"strings"
)

// Platform identifiers shipped with the default rule book.
const (
	Facebook  = "facebook"
	Instagram = "instagram"
	Leboncoin = "leboncoin"
)

// Platform-specific blocks an adapter may attach to a listing.
const (
	BlockHashtagGroups       = "hashtag_groups"
	BlockStoryFormat         = "story_format"
	BlockMarketplaceCategory = "marketplace_category"
	BlockConditionCategory   = "condition_category"
)

// Profile describes the structural constraints of one marketplace.
type Profile struct {
	ID                     string   `yaml:"id" json:"id"`
	TitleLengthLimit       int      `yaml:"titleLengthLimit" json:"title_length_limit"`
	DescriptionLengthLimit int      `yaml:"descriptionLengthLimit" json:"description_length_limit"`
	TagsCountLimit         int      `yaml:"tagsCountLimit" json:"tags_count_limit"`
	ForbiddenWords         []string `yaml:"forbiddenWords" json:"forbidden_words,omitempty"`
	CTATemplate            string   `yaml:"ctaTemplate" json:"cta_template,omitempty"`
	EmojiEnrichment        bool     `yaml:"emojiEnrichment" json:"emoji_enrichment"`
	HashtagFormatting      bool     `yaml:"hashtagFormatting" json:"hashtag_formatting"`
	HighlightPrefix        string   `yaml:"highlightPrefix" json:"highlight_prefix,omitempty"`
	HashtagGroupBudget     int      `yaml:"hashtagGroupBudget" json:"hashtag_group_budget,omitempty"`
	StoryHeadlineLimit     int      `yaml:"storyHeadlineLimit" json:"story_headline_limit,omitempty"`
	Blocks                 []string `yaml:"blocks" json:"blocks,omitempty"`
}

// HasBlock reports whether the profile asks for the named platform block.
func (p Profile) HasBlock(name string) bool {
	for _, b := range p.Blocks {
		if b == name {
			return true
		}
	}
	return false
}

// Validate rejects profiles that would force the adapter to guess a constraint.
func (p Profile) Validate() error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return fmt.Errorf("profile id is empty")
	case p.TitleLengthLimit <= 0:
		return fmt.Errorf("profile %s: title length limit must be positive", p.ID)
	case p.DescriptionLengthLimit <= 0:
		return fmt.Errorf("profile %s: description length limit must be positive", p.ID)
	case p.TagsCountLimit <= 0:
		return fmt.Errorf("profile %s: tags count limit must be positive", p.ID)
	case p.HasBlock(BlockHashtagGroups) && p.HashtagGroupBudget <= 0:
		return fmt.Errorf("profile %s: hashtag groups need a positive budget", p.ID)
	case p.HasBlock(BlockStoryFormat) && p.StoryHeadlineLimit <= 0:
		return fmt.Errorf("profile %s: story format needs a positive headline limit", p.ID)
	}
	return nil
}

// Key normalises a caller-supplied platform identifier.
func Key(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Registry keeps a mapping from platform identifiers to their profiles.
// It is filled once at startup and only read afterwards.
type Registry struct {
	profiles map[string]Profile
}

// NewRegistry builds a registry holding the given profiles.
func NewRegistry(profiles ...Profile) *Registry {
	r := &Registry{profiles: map[string]Profile{}}
	for _, p := range profiles {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a profile.
func (r *Registry) Register(profile Profile) {
	if r.profiles == nil {
		r.profiles = map[string]Profile{}
	}
	profile.ID = Key(profile.ID)
	r.profiles[profile.ID] = profile
}

// Resolve returns the profile for id; unknown identifiers report false.
func (r *Registry) Resolve(id string) (Profile, bool) {
	if r == nil {
		return Profile{}, false
	}
	p, ok := r.profiles[Key(id)]
	return p, ok
}

// IDs lists the registered platform identifiers in sorted order.
func (r *Registry) IDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.profiles))
	for id := range r.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Profiles lists the registered profiles ordered by identifier.
func (r *Registry) Profiles() []Profile {
	ids := r.IDs()
	out := make([]Profile, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.profiles[id])
	}
	return out
}
