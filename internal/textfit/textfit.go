// Package textfit packs words, paragraphs and tags into character budgets.
//
// Every packer is greedy and order preserving: units are taken left to right and
// a unit is never split or reordered.
package textfit

import (
	"strings"
	"unicode/utf8"
)

// ParagraphSeparator delimits paragraphs in listing descriptions.
const ParagraphSeparator = "\n\n"

// Len counts characters, not bytes.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}

// Words shortens text to at most limit characters by keeping whole words.
// Packing stops at the first word that does not fit, so the result may be empty.
func Words(text string, limit int) string {
	if Len(text) <= limit {
		return text
	}
	return strings.Join(pack(strings.Fields(text), limit, 1), " ")
}

// Paragraphs shortens text to at most limit characters by keeping whole paragraphs.
func Paragraphs(text string, limit int) string {
	if Len(text) <= limit {
		return text
	}
	return strings.Join(pack(strings.Split(text, ParagraphSeparator), limit, 2), ParagraphSeparator)
}

func pack(units []string, limit, overhead int) []string {
	kept := make([]string, 0, len(units))
	used := 0
	for _, unit := range units {
		cost := Len(unit) + overhead
		if used+cost > limit {
			break
		}
		kept = append(kept, unit)
		used += cost
	}
	return kept
}

// Groups splits items into consecutive groups whose space-joined length stays
// within budget. An item that is longer than the budget on its own becomes a
// singleton group, so the groups always partition the input.
func Groups(items []string, budget int) [][]string {
	var (
		groups  [][]string
		current []string
		used    int
	)
	for _, item := range items {
		cost := Len(item) + 1
		if len(current) > 0 && used+cost > budget {
			groups = append(groups, current)
			current, used = nil, 0
		}
		current = append(current, item)
		used += cost
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}
