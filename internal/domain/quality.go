package domain

import (
	"fmt"
	"strings"
)

// Quality check names, in audit order.
const (
	CheckSpelling     = "spelling"
	CheckGrammar      = "grammar"
	CheckCompleteness = "completeness"
	CheckConsistency  = "consistency"
	CheckSEO          = "seo"
	CheckCompliance   = "compliance"
)

// IssueKind tags the payload carried by an Issue.
type IssueKind string

const (
	IssueMisspelling         IssueKind = "misspelling"
	IssueGrammar             IssueKind = "grammar"
	IssueMissingField        IssueKind = "missing_field"
	IssueDescriptionTooShort IssueKind = "description_too_short"
	IssueDisconnected        IssueKind = "title_description_disconnected"
	IssueIrrelevantTag       IssueKind = "irrelevant_tag"
	IssueMissingKeywords     IssueKind = "missing_keywords"
	IssueContentTooShort     IssueKind = "content_too_short"
	IssueTitleTooLong        IssueKind = "title_too_long"
	IssueDescriptionTooLong  IssueKind = "description_too_long"
	IssueTooManyTags         IssueKind = "too_many_tags"
	IssueForbiddenWord       IssueKind = "forbidden_word"
	IssueCheckFault          IssueKind = "check_fault"
)

// Issue is a structured diagnostic. Which optional fields are set depends on Kind:
// misspelling and grammar carry Mistake/Correction, missing_field carries Field,
// missing_keywords carries Keywords, length issues carry Actual/Limit,
// irrelevant_tag and forbidden_word carry the offending text in Mistake.
type Issue struct {
	Kind       IssueKind `json:"kind"`
	Detail     string    `json:"detail"`
	Suggestion string    `json:"suggestion,omitempty"`
	Field      string    `json:"field,omitempty"`
	Mistake    string    `json:"mistake,omitempty"`
	Correction string    `json:"correction,omitempty"`
	Keywords   []string  `json:"keywords,omitempty"`
	Actual     int       `json:"actual,omitempty"`
	Limit      int       `json:"limit,omitempty"`
}

func (i Issue) String() string {
	if i.Suggestion == "" {
		return i.Detail
	}
	return fmt.Sprintf("%s (%s)", i.Detail, i.Suggestion)
}

// CheckResult is the outcome of one quality check.
type CheckResult struct {
	Name   string  `json:"name"`
	Passed bool    `json:"passed"`
	Score  float64 `json:"score"`
	Issues []Issue `json:"issues"`
}

// QualityReport aggregates every check run against a listing.
type QualityReport struct {
	OverallScore float64       `json:"overall_score"`
	Checks       []CheckResult `json:"checks"`
	Platform     string        `json:"platform"`
}

// Passed reports whether every check passed.
func (r QualityReport) Passed() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// Check returns the named result.
func (r QualityReport) Check(name string) (CheckResult, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return CheckResult{}, false
}

// Failing lists the names of failed checks.
func (r QualityReport) Failing() []string {
	var names []string
	for _, c := range r.Checks {
		if !c.Passed {
			names = append(names, c.Name)
		}
	}
	return names
}

func (r QualityReport) String() string {
	failing := r.Failing()
	if len(failing) == 0 {
		return fmt.Sprintf("%s: %.2f, all checks passed", r.Platform, r.OverallScore)
	}
	return fmt.Sprintf("%s: %.2f, failing %s", r.Platform, r.OverallScore, strings.Join(failing, ","))
}

// RepairOutcome records one attempted correction.
type RepairOutcome struct {
	Iteration int       `json:"iteration"`
	Check     string    `json:"check"`
	Kind      IssueKind `json:"kind"`
	Applied   bool      `json:"applied"`
	Error     string    `json:"error,omitempty"`
}

// Refinement is the audited, possibly repaired listing for one platform.
type Refinement struct {
	Listing    Listing         `json:"listing"`
	Initial    QualityReport   `json:"quality_report"`
	Final      QualityReport   `json:"refined_report"`
	Iterations int             `json:"iterations"`
	Repairs    []RepairOutcome `json:"repairs,omitempty"`
}
