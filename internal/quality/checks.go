package quality

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"LensInventory/internal/domain"
	"LensInventory/internal/platform"
	"LensInventory/internal/rules"
	"LensInventory/internal/textfit"
)

// Subject is the listing under audit together with its target profile.
type Subject struct {
	Listing  domain.Listing
	Platform string
	Profile  platform.Profile
	Known    bool
}

func (s Subject) text() string {
	return s.Listing.Title + "\n" + s.Listing.Description
}

type check struct {
	name      string
	failScore float64
	inspect   func(Subject) []domain.Issue
}

// run evaluates the check. A panic inside inspect fails only this check.
func (c check) run(s Subject) (result domain.CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			result = domain.CheckResult{
				Name:   c.name,
				Passed: false,
				Score:  0,
				Issues: []domain.Issue{{
					Kind:   domain.IssueCheckFault,
					Detail: fmt.Sprintf("check %s aborted: %v", c.name, r),
				}},
			}
		}
	}()

	issues := c.inspect(s)
	if len(issues) == 0 {
		return domain.CheckResult{Name: c.name, Passed: true, Score: 1, Issues: []domain.Issue{}}
	}
	return domain.CheckResult{Name: c.name, Passed: false, Score: c.failScore, Issues: issues}
}

func defaultChecks(book *rules.Book) []check {
	th := book.Thresholds()
	return []check{
		{name: domain.CheckSpelling, failScore: 0.8, inspect: spelling(book)},
		{name: domain.CheckGrammar, failScore: 0.8, inspect: grammar(book)},
		{name: domain.CheckCompleteness, failScore: 0.7, inspect: completeness(th.MinDescriptionLength)},
		{name: domain.CheckConsistency, failScore: 0.9, inspect: consistency},
		{name: domain.CheckSEO, failScore: 0.8, inspect: seo(th.MinWordCount)},
		{name: domain.CheckCompliance, failScore: 0.7, inspect: compliance},
	}
}

func spelling(book *rules.Book) func(Subject) []domain.Issue {
	return func(s Subject) []domain.Issue {
		var issues []domain.Issue
		text := s.text()
		for _, r := range book.Spelling() {
			if !r.Find(text) {
				continue
			}
			issues = append(issues, domain.Issue{
				Kind:       domain.IssueMisspelling,
				Detail:     fmt.Sprintf("misspelled word %q", r.Mistake),
				Suggestion: fmt.Sprintf("replace with %q", r.Correction),
				Mistake:    r.Mistake,
				Correction: r.Correction,
			})
		}
		return issues
	}
}

func grammar(book *rules.Book) func(Subject) []domain.Issue {
	return func(s Subject) []domain.Issue {
		var issues []domain.Issue
		text := s.text()
		for _, r := range book.Grammar() {
			if !r.Find(text) {
				continue
			}
			issues = append(issues, domain.Issue{
				Kind:       domain.IssueGrammar,
				Detail:     fmt.Sprintf("phrase matches %s", r.Mistake),
				Suggestion: fmt.Sprintf("use %q", r.Correction),
				Mistake:    r.Mistake,
				Correction: r.Correction,
			})
		}
		return issues
	}
}

func completeness(minDescription int) func(Subject) []domain.Issue {
	return func(s Subject) []domain.Issue {
		l := s.Listing
		var issues []domain.Issue
		missing := func(field string) {
			issues = append(issues, domain.Issue{
				Kind:   domain.IssueMissingField,
				Detail: fmt.Sprintf("field %s is missing or empty", field),
				Field:  field,
			})
		}

		if strings.TrimSpace(l.Title) == "" {
			missing(FieldTitle)
		}
		if strings.TrimSpace(l.Description) == "" {
			missing(FieldDescription)
		} else if n := textfit.Len(l.Description); n < minDescription {
			issues = append(issues, domain.Issue{
				Kind:       domain.IssueDescriptionTooShort,
				Detail:     fmt.Sprintf("description has %d characters, minimum is %d", n, minDescription),
				Suggestion: "describe the product in more detail",
				Actual:     n,
				Limit:      minDescription,
			})
		}
		if len(l.Highlights) == 0 {
			missing(FieldHighlights)
		}
		if len(l.Tags) == 0 {
			missing(FieldTags)
		}
		return issues
	}
}

func consistency(s Subject) []domain.Issue {
	l := s.Listing
	var issues []domain.Issue

	titleTokens := tokens(l.Title)
	descTokens := tokens(l.Description)
	shared := false
	for tok := range titleTokens {
		if _, ok := descTokens[tok]; ok {
			shared = true
			break
		}
	}
	if !shared {
		issues = append(issues, domain.Issue{
			Kind:       domain.IssueDisconnected,
			Detail:     "title and description share no words",
			Suggestion: "mention the product name in the description",
		})
	}

	title := strings.ToLower(l.Title)
	description := strings.ToLower(l.Description)
	for _, tag := range l.Tags {
		needle := strings.ToLower(keyword(tag))
		if strings.Contains(title, needle) || strings.Contains(description, needle) {
			continue
		}
		issues = append(issues, domain.Issue{
			Kind:    domain.IssueIrrelevantTag,
			Detail:  fmt.Sprintf("tag %q does not appear in the title or description", tag),
			Mistake: tag,
		})
	}
	return issues
}

func seo(minWords int) func(Subject) []domain.Issue {
	return func(s Subject) []domain.Issue {
		l := s.Listing
		var issues []domain.Issue

		if missing := missingKeywords(l); len(missing) > 0 {
			issues = append(issues, domain.Issue{
				Kind:       domain.IssueMissingKeywords,
				Detail:     fmt.Sprintf("keywords missing from the content: %s", strings.Join(missing, ", ")),
				Suggestion: "work the keywords into the description",
				Keywords:   missing,
			})
		}

		if n := len(strings.Fields(l.Description)); n < minWords {
			issues = append(issues, domain.Issue{
				Kind:   domain.IssueContentTooShort,
				Detail: fmt.Sprintf("description has %d words, minimum is %d", n, minWords),
				Actual: n,
				Limit:  minWords,
			})
		}
		return issues
	}
}

func compliance(s Subject) []domain.Issue {
	if !s.Known {
		return nil
	}
	l := s.Listing
	p := s.Profile
	var issues []domain.Issue

	if n := textfit.Len(l.Title); n > p.TitleLengthLimit {
		issues = append(issues, domain.Issue{
			Kind:   domain.IssueTitleTooLong,
			Detail: fmt.Sprintf("title has %d characters, %s allows %d", n, p.ID, p.TitleLengthLimit),
			Actual: n,
			Limit:  p.TitleLengthLimit,
		})
	}

	text := strings.ToLower(s.text())
	for _, word := range p.ForbiddenWords {
		if word == "" || !strings.Contains(text, strings.ToLower(word)) {
			continue
		}
		issues = append(issues, domain.Issue{
			Kind:    domain.IssueForbiddenWord,
			Detail:  fmt.Sprintf("%s forbids the word %q", p.ID, word),
			Mistake: word,
		})
	}

	if n := textfit.Len(l.Description); n > p.DescriptionLengthLimit {
		issues = append(issues, domain.Issue{
			Kind:   domain.IssueDescriptionTooLong,
			Detail: fmt.Sprintf("description has %d characters, %s allows %d", n, p.ID, p.DescriptionLengthLimit),
			Actual: n,
			Limit:  p.DescriptionLengthLimit,
		})
	}

	if n := len(l.Tags); n > p.TagsCountLimit {
		issues = append(issues, domain.Issue{
			Kind:   domain.IssueTooManyTags,
			Detail: fmt.Sprintf("%d tags, %s allows %d", n, p.ID, p.TagsCountLimit),
			Actual: n,
			Limit:  p.TagsCountLimit,
		})
	}
	return issues
}

// missingKeywords lists the tags that do not occur as whole words in the
// title or description, in tag order.
func missingKeywords(l domain.Listing) []string {
	text := l.Title + "\n" + l.Description
	var missing []string
	for _, tag := range l.Tags {
		kw := keyword(tag)
		if kw == "" || containsPhrase(text, kw) {
			continue
		}
		missing = append(missing, kw)
	}
	return missing
}

// keyword strips hashtag formatting from a tag.
func keyword(tag string) string {
	return strings.TrimSpace(strings.TrimLeft(tag, "#"))
}

// containsPhrase reports whether phrase occurs in text, ignoring case, with
// no letter or number directly before or after it.
func containsPhrase(text, phrase string) bool {
	text, phrase = strings.ToLower(text), strings.ToLower(phrase)
	if phrase == "" {
		return true
	}
	for from := 0; from < len(text); {
		i := strings.Index(text[from:], phrase)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(phrase)
		before, _ := utf8.DecodeLastRuneInString(text[:start])
		after, _ := utf8.DecodeRuneInString(text[end:])
		if (start == 0 || !isWordRune(before)) && (end == len(text) || !isWordRune(after)) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		from = start + size
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}

func tokens(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		out[f] = struct{}{}
	}
	return out
}
