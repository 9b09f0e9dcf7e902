package domain

import (
	"encoding/json"
	"slices"
	"sort"
	"strings"
)

// ConditionHighlightPrefix starts the highlight line that states the item condition.
const ConditionHighlightPrefix = "Condition: "

// Listing is the generated marketplace advertisement.
type Listing struct {
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	Highlights       []string       `json:"highlights"`
	Tags             Tags           `json:"tags"`
	CallToAction     string         `json:"call_to_action"`
	PlatformSpecific map[string]any `json:"platform_specific,omitempty"`
}

// Clone returns a copy that shares no slices or maps with l.
func (l Listing) Clone() Listing {
	out := l
	out.Highlights = slices.Clone(l.Highlights)
	out.Tags = slices.Clone(l.Tags)
	if l.PlatformSpecific != nil {
		out.PlatformSpecific = make(map[string]any, len(l.PlatformSpecific))
		for k, v := range l.PlatformSpecific {
			out.PlatformSpecific[k] = v
		}
	}
	return out
}

// SameText reports whether both listings carry identical text fields.
func (l Listing) SameText(other Listing) bool {
	return l.Title == other.Title &&
		l.Description == other.Description &&
		l.CallToAction == other.CallToAction &&
		slices.Equal(l.Highlights, other.Highlights) &&
		slices.Equal(l.Tags, other.Tags)
}

// Tags is a set of tags kept deduplicated and lexicographically sorted.
type Tags []string

// NewTags builds a tag set, dropping blanks and duplicates.
func NewTags(items ...string) Tags {
	seen := make(map[string]struct{}, len(items))
	out := make(Tags, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}

// Contains reports set membership.
func (t Tags) Contains(tag string) bool {
	for _, item := range t {
		if item == tag {
			return true
		}
	}
	return false
}

// Union returns a new set holding the tags of both sets.
func (t Tags) Union(other Tags) Tags {
	return NewTags(append(slices.Clone(t), other...)...)
}

// MarshalJSON always emits the normalised set.
func (t Tags) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string(NewTags(t...)))
}

// UnmarshalJSON accepts any string array and normalises it.
func (t *Tags) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = NewTags(raw...)
	return nil
}
