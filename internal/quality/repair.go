package quality

import (
	"regexp"
	"strings"
	"unicode"

	"LensInventory/internal/domain"
	"LensInventory/internal/rules"
)

// Listing fields named by missing_field issues.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldHighlights  = "highlights"
	FieldTags        = "tags"
)

const fallbackLimit = 5

// repairFunc applies one issue to the listing in place. An unusable payload
// yields a *domain.RepairFailure and leaves the listing unchanged.
type repairFunc func(book *rules.Book, l *domain.Listing, issue domain.Issue) error

var repairs = map[domain.IssueKind]repairFunc{
	domain.IssueMisspelling:     fixSpelling,
	domain.IssueGrammar:         fixGrammar,
	domain.IssueMissingField:    fillField,
	domain.IssueMissingKeywords: appendKeywords,
}

func fixSpelling(_ *rules.Book, l *domain.Listing, issue domain.Issue) error {
	if issue.Mistake == "" {
		return failure(domain.CheckSpelling, issue, "no mistake in payload")
	}
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(issue.Mistake))
	replaceAll(l, re, issue.Correction)
	return nil
}

func fixGrammar(book *rules.Book, l *domain.Listing, issue domain.Issue) error {
	if rule, ok := book.GrammarRule(issue.Mistake); ok && rule.Correction == issue.Correction {
		l.Title = rule.Apply(l.Title)
		l.Description = rule.Apply(l.Description)
		return nil
	}
	re, err := rules.CompilePattern(issue.Mistake)
	if err != nil {
		return failure(domain.CheckGrammar, issue, err.Error())
	}
	replaceAll(l, re, issue.Correction)
	return nil
}

func replaceAll(l *domain.Listing, re *regexp.Regexp, correction string) {
	fix := func(match string) string { return rules.MatchCase(match, correction) }
	l.Title = re.ReplaceAllStringFunc(l.Title, fix)
	l.Description = re.ReplaceAllStringFunc(l.Description, fix)
}

func fillField(_ *rules.Book, l *domain.Listing, issue domain.Issue) error {
	switch issue.Field {
	case FieldHighlights:
		if len(l.Highlights) == 0 {
			l.Highlights = fallbackHighlights(*l)
		}
	case FieldTags:
		if len(l.Tags) == 0 {
			l.Tags = fallbackTags(l.Title)
		}
	case "":
		return failure(domain.CheckCompleteness, issue, "no field in payload")
	}
	return nil
}

func appendKeywords(_ *rules.Book, l *domain.Listing, issue domain.Issue) error {
	if len(issue.Keywords) == 0 {
		return failure(domain.CheckSEO, issue, "no keywords in payload")
	}
	for _, kw := range issue.Keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" || containsPhrase(l.Title+"\n"+l.Description, kw) {
			continue
		}
		if l.Description == "" {
			l.Description = kw
			continue
		}
		l.Description += " " + kw
	}
	return nil
}

func failure(check string, issue domain.Issue, reason string) error {
	return &domain.RepairFailure{Check: check, Kind: issue.Kind, Reason: reason}
}

// fallbackHighlights uses the description's bullet lines, or the title when there are none.
func fallbackHighlights(l domain.Listing) []string {
	var out []string
	for _, line := range strings.Split(l.Description, "\n") {
		line = strings.TrimSpace(line)
		for _, bullet := range []string{"- ", "• "} {
			if item, ok := strings.CutPrefix(line, bullet); ok && strings.TrimSpace(item) != "" {
				out = append(out, strings.TrimSpace(item))
				break
			}
		}
		if len(out) == fallbackLimit {
			break
		}
	}
	if len(out) == 0 && strings.TrimSpace(l.Title) != "" {
		out = []string{strings.TrimSpace(l.Title)}
	}
	return out
}

// fallbackTags takes the first distinct title words that carry a letter or digit.
func fallbackTags(title string) domain.Tags {
	seen := map[string]struct{}{}
	var words []string
	for _, w := range strings.Fields(strings.ToLower(title)) {
		if !strings.ContainsFunc(w, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		words = append(words, w)
		if len(words) == fallbackLimit {
			break
		}
	}
	return domain.NewTags(words...)
}
