// Package rules holds the static tables the pipeline runs on: platform
// profiles, spelling and grammar corrections, emoji keywords and category
// lookups. Tables are loaded once at startup and compiled into an immutable
// Book that is safe for concurrent reads.
package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"LensInventory/internal/platform"
)

// Condition categories understood by marketplaces.
const (
	ConditionNew     = "new"
	ConditionLikeNew = "like-new"
	ConditionGood    = "good"
	ConditionFair    = "fair"
	ConditionPoor    = "poor"
)

// DefaultMarketplaceCategory is used when no keyword matches.
const DefaultMarketplaceCategory = "Other"

// Rules is the editable, YAML-decodable form of the rule book.
type Rules struct {
	Platforms             []platform.Profile `yaml:"platforms"`
	Misspellings          []Correction       `yaml:"misspellings"`
	Grammar               []Correction       `yaml:"grammar"`
	Emoji                 []EmojiRule        `yaml:"emoji"`
	Conditions            []ConditionRule    `yaml:"conditions"`
	MarketplaceCategories []CategoryRule     `yaml:"marketplaceCategories"`
	Thresholds            Thresholds         `yaml:"thresholds"`
}

// Correction pairs a mistake with its fix. For grammar rules Mistake is a regular expression.
type Correction struct {
	Mistake    string `yaml:"mistake"`
	Correction string `yaml:"correction"`
}

// EmojiRule prefixes the first occurrence of Keyword with Emoji.
type EmojiRule struct {
	Keyword string `yaml:"keyword"`
	Emoji   string `yaml:"emoji"`
}

// ConditionRule maps condition phrases onto a canonical condition category.
type ConditionRule struct {
	Category string   `yaml:"category"`
	Phrases  []string `yaml:"phrases"`
}

// CategoryRule maps keywords onto a marketplace category.
type CategoryRule struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// Thresholds are the numeric limits used by the quality checks.
type Thresholds struct {
	MinDescriptionLength int `yaml:"minDescriptionLength"`
	MinWordCount         int `yaml:"minWordCount"`
}

// Load reads a YAML rule file and overlays it on the defaults.
// An empty path returns the defaults.
func Load(path string) (Rules, error) {
	base := Default()
	if path == "" {
		return base, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules %s: %w", path, err)
	}

	var fileRules Rules
	if err := yaml.Unmarshal(raw, &fileRules); err != nil {
		return Rules{}, fmt.Errorf("parse rules %s: %w", path, err)
	}

	return merge(base, fileRules), nil
}

func merge(base, override Rules) Rules {
	if len(override.Platforms) > 0 {
		byID := make(map[string]int, len(base.Platforms))
		for i, p := range base.Platforms {
			byID[platform.Key(p.ID)] = i
		}
		for _, p := range override.Platforms {
			if i, ok := byID[platform.Key(p.ID)]; ok {
				base.Platforms[i] = p
				continue
			}
			base.Platforms = append(base.Platforms, p)
		}
	}

	if len(override.Misspellings) > 0 {
		base.Misspellings = override.Misspellings
	}
	if len(override.Grammar) > 0 {
		base.Grammar = override.Grammar
	}
	if len(override.Emoji) > 0 {
		base.Emoji = override.Emoji
	}
	if len(override.Conditions) > 0 {
		base.Conditions = override.Conditions
	}
	if len(override.MarketplaceCategories) > 0 {
		base.MarketplaceCategories = override.MarketplaceCategories
	}

	if override.Thresholds.MinDescriptionLength > 0 {
		base.Thresholds.MinDescriptionLength = override.Thresholds.MinDescriptionLength
	}
	if override.Thresholds.MinWordCount > 0 {
		base.Thresholds.MinWordCount = override.Thresholds.MinWordCount
	}

	return base
}

// Default returns the built-in rule tables.
func Default() Rules {
	return Rules{
		Platforms: []platform.Profile{
			{
				ID:                     platform.Facebook,
				TitleLengthLimit:       100,
				DescriptionLengthLimit: 5000,
				TagsCountLimit:         30,
				ForbiddenWords:         []string{"free", "urgent"},
				CTATemplate:            "👉 Click for more info!",
				Blocks:                 []string{platform.BlockMarketplaceCategory, platform.BlockConditionCategory},
			},
			{
				ID:                     platform.Instagram,
				TitleLengthLimit:       80,
				DescriptionLengthLimit: 2200,
				TagsCountLimit:         30,
				CTATemplate:            "DM for more info 📩",
				EmojiEnrichment:        true,
				HashtagFormatting:      true,
				HighlightPrefix:        "✨ ",
				HashtagGroupBudget:     500,
				StoryHeadlineLimit:     40,
				Blocks:                 []string{platform.BlockHashtagGroups, platform.BlockStoryFormat},
			},
			{
				ID:                     platform.Leboncoin,
				TitleLengthLimit:       70,
				DescriptionLengthLimit: 4000,
				TagsCountLimit:         15,
				CTATemplate:            "Contact me for more information",
			},
		},
		Misspellings: []Correction{
			{Mistake: "recieve", Correction: "receive"},
			{Mistake: "seperate", Correction: "separate"},
			{Mistake: "definately", Correction: "definitely"},
			{Mistake: "accomodate", Correction: "accommodate"},
			{Mistake: "occured", Correction: "occurred"},
			{Mistake: "excelent", Correction: "excellent"},
			{Mistake: "garantee", Correction: "guarantee"},
			{Mistake: "condtion", Correction: "condition"},
			{Mistake: "beleive", Correction: "believe"},
			{Mistake: "untill", Correction: "until"},
		},
		Grammar: []Correction{
			{Mistake: `\bcould of\b`, Correction: "could have"},
			{Mistake: `\bshould of\b`, Correction: "should have"},
			{Mistake: `\bwould of\b`, Correction: "would have"},
			{Mistake: `\balot\b`, Correction: "a lot"},
			{Mistake: `\birregardless\b`, Correction: "regardless"},
		},
		Emoji: []EmojiRule{
			{Keyword: "price", Emoji: "💰"},
			{Keyword: "quality", Emoji: "✨"},
			{Keyword: "new", Emoji: "🆕"},
			{Keyword: "contact", Emoji: "📱"},
			{Keyword: "delivery", Emoji: "🚚"},
		},
		Conditions: []ConditionRule{
			{Category: ConditionNew, Phrases: []string{"new", "brand new", "sealed", "new with tags"}},
			{Category: ConditionLikeNew, Phrases: []string{"like new", "very good condition", "mint", "excellent condition"}},
			{Category: ConditionGood, Phrases: []string{"good condition", "good", "used - good"}},
			{Category: ConditionFair, Phrases: []string{"fair condition", "fair", "acceptable", "used"}},
			{Category: ConditionPoor, Phrases: []string{"for parts", "poor", "not working", "broken"}},
		},
		MarketplaceCategories: []CategoryRule{
			{Category: "Electronics", Keywords: []string{"camera", "phone", "cell phone", "laptop", "tablet", "tv", "console", "headphones", "keyboard", "mouse", "remote"}},
			{Category: "Home & Garden", Keywords: []string{"chair", "couch", "sofa", "table", "dining table", "bed", "lamp", "vase", "clock", "potted plant"}},
			{Category: "Vehicles", Keywords: []string{"bicycle", "bike", "motorcycle", "car", "scooter"}},
			{Category: "Clothing & Accessories", Keywords: []string{"handbag", "backpack", "tie", "suitcase", "umbrella", "shoes", "jacket", "watch"}},
			{Category: "Sporting Goods", Keywords: []string{"skis", "snowboard", "skateboard", "surfboard", "tennis racket", "sports ball", "baseball glove"}},
			{Category: "Toys & Games", Keywords: []string{"teddy bear", "toy", "lego", "board game", "kite"}},
			{Category: "Books, Movies & Music", Keywords: []string{"book", "guitar", "vinyl", "piano"}},
		},
		Thresholds: Thresholds{
			MinDescriptionLength: 100,
			MinWordCount:         50,
		},
	}
}
