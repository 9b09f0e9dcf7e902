package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"LensInventory/internal/platform"
)

// Replacement is a compiled correction rule.
type Replacement struct {
	Mistake    string
	Correction string
	re         *regexp.Regexp
}

// Find reports whether text contains the mistake.
func (r Replacement) Find(text string) bool {
	return r.re != nil && r.re.MatchString(text)
}

// Apply replaces every occurrence of the mistake. The first letter of each
// replaced occurrence keeps its case.
func (r Replacement) Apply(text string) string {
	if r.re == nil {
		return text
	}
	return r.re.ReplaceAllStringFunc(text, func(match string) string {
		return MatchCase(match, r.Correction)
	})
}

// MatchCase upper-cases the first letter of repl when src starts with an upper-case letter.
func MatchCase(src, repl string) string {
	first, _ := utf8.DecodeRuneInString(src)
	if repl == "" || !unicode.IsUpper(first) {
		return repl
	}
	r, size := utf8.DecodeRuneInString(repl)
	return string(unicode.ToUpper(r)) + repl[size:]
}

// Emoji is a compiled emoji enrichment rule.
type Emoji struct {
	Keyword string
	Symbol  string
	re      *regexp.Regexp
}

// Decorate prefixes the first case-insensitive occurrence of the keyword with the symbol.
func (e Emoji) Decorate(text string) string {
	loc := e.re.FindStringIndex(text)
	if loc == nil {
		return text
	}
	return text[:loc[0]] + e.Symbol + " " + text[loc[0]:]
}

type category struct {
	name string
	re   *regexp.Regexp
}

// Book is the compiled, read-only rule set. Build one with Rules.Compile and
// share it between goroutines.
type Book struct {
	platforms   *platform.Registry
	spelling    []Replacement
	grammar     []Replacement
	emoji       []Emoji
	conditions  map[string]string
	marketplace []category
	thresholds  Thresholds
	skipped     []error
}

// Compile validates the tables and builds a Book. Malformed platform profiles
// are left out of the registry and reported by Book.Skipped; any other
// malformed rule fails compilation.
func (r Rules) Compile() (*Book, error) {
	b := &Book{
		platforms:  platform.NewRegistry(),
		conditions: map[string]string{},
		thresholds: r.Thresholds,
	}

	for _, p := range r.Platforms {
		if err := p.Validate(); err != nil {
			b.skipped = append(b.skipped, err)
			continue
		}
		b.platforms.Register(p)
	}

	for _, c := range r.Misspellings {
		if c.Mistake == "" {
			return nil, fmt.Errorf("compile spelling rule: empty mistake")
		}
		if strings.Contains(strings.ToLower(c.Correction), strings.ToLower(c.Mistake)) {
			return nil, fmt.Errorf("compile spelling rule %q: correction contains the mistake", c.Mistake)
		}
		b.spelling = append(b.spelling, Replacement{
			Mistake:    c.Mistake,
			Correction: c.Correction,
			re:         regexp.MustCompile(`(?i)` + regexp.QuoteMeta(c.Mistake)),
		})
	}

	for _, c := range r.Grammar {
		re, err := CompilePattern(c.Mistake)
		if err != nil {
			return nil, fmt.Errorf("compile grammar rule: %w", err)
		}
		if re.MatchString(c.Correction) {
			return nil, fmt.Errorf("compile grammar rule %q: correction matches the pattern", c.Mistake)
		}
		b.grammar = append(b.grammar, Replacement{Mistake: c.Mistake, Correction: c.Correction, re: re})
	}

	for _, e := range r.Emoji {
		if strings.TrimSpace(e.Keyword) == "" || e.Emoji == "" {
			return nil, fmt.Errorf("compile emoji rule %q: keyword and emoji are required", e.Keyword)
		}
		b.emoji = append(b.emoji, Emoji{
			Keyword: e.Keyword,
			Symbol:  e.Emoji,
			re:      regexp.MustCompile(`(?i)` + regexp.QuoteMeta(e.Keyword)),
		})
	}

	for _, c := range r.Conditions {
		if !knownCondition(c.Category) {
			return nil, fmt.Errorf("compile condition rule: unknown category %q", c.Category)
		}
		for _, phrase := range c.Phrases {
			b.conditions[normalisePhrase(phrase)] = c.Category
		}
	}

	for _, c := range r.MarketplaceCategories {
		if len(c.Keywords) == 0 {
			continue
		}
		alts := make([]string, 0, len(c.Keywords))
		for _, kw := range c.Keywords {
			alts = append(alts, regexp.QuoteMeta(strings.TrimSpace(kw)))
		}
		b.marketplace = append(b.marketplace, category{
			name: c.Category,
			re:   regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`),
		})
	}

	if b.thresholds.MinDescriptionLength <= 0 || b.thresholds.MinWordCount <= 0 {
		return nil, errors.New("compile thresholds: limits must be positive")
	}

	return b, nil
}

// CompilePattern compiles a grammar pattern case-insensitively.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, errors.New("empty pattern")
	}
	re, err := regexp.Compile(`(?i)` + pattern)
	if err != nil {
		return nil, fmt.Errorf("pattern %q: %w", pattern, err)
	}
	return re, nil
}

func knownCondition(c string) bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

func normalisePhrase(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Platforms returns the registry of valid platform profiles.
func (b *Book) Platforms() *platform.Registry { return b.platforms }

// Spelling returns the compiled spelling corrections.
func (b *Book) Spelling() []Replacement { return b.spelling }

// Grammar returns the compiled grammar corrections.
func (b *Book) Grammar() []Replacement { return b.grammar }

// GrammarRule finds a grammar rule by its source pattern.
func (b *Book) GrammarRule(pattern string) (Replacement, bool) {
	for _, g := range b.grammar {
		if g.Mistake == pattern {
			return g, true
		}
	}
	return Replacement{}, false
}

// Emoji returns the compiled emoji rules in table order.
func (b *Book) Emoji() []Emoji { return b.emoji }

// Thresholds returns the quality thresholds.
func (b *Book) Thresholds() Thresholds { return b.thresholds }

// Skipped lists the validation errors of profiles left out of the registry.
func (b *Book) Skipped() []error { return b.skipped }

// ConditionCategory maps a condition phrase onto its category.
func (b *Book) ConditionCategory(phrase string) (string, bool) {
	c, ok := b.conditions[normalisePhrase(phrase)]
	return c, ok
}

// MarketplaceCategory returns the first category whose keywords occur in any
// of the texts, checked in order. Texts are tried one at a time so that
// earlier texts take precedence.
func (b *Book) MarketplaceCategory(texts ...string) string {
	for _, text := range texts {
		for _, c := range b.marketplace {
			if c.re.MatchString(text) {
				return c.name
			}
		}
	}
	return DefaultMarketplaceCategory
}

// MustDefault compiles the built-in tables. It panics if they are malformed.
func MustDefault() *Book {
	b, err := Default().Compile()
	if err != nil {
		panic(err)
	}
	return b
}
