// Package quality audits adapted listings against the rule book and repairs
// what it can in a bounded refine loop.
package quality

import (
	"fmt"
	"log/slog"

	"LensInventory/internal/domain"
	"LensInventory/internal/ports"
	"LensInventory/internal/rules"
)

// Options bound the refine loop.
type Options struct {
	// MaxIterations caps repair passes. 1 gives a single audit-repair-audit cycle.
	MaxIterations int
	// ScoreThreshold stops the loop once the overall score reaches it.
	ScoreThreshold float64
}

// DefaultOptions returns the loop bounds used when none are configured.
func DefaultOptions() Options {
	return Options{MaxIterations: 3, ScoreThreshold: 1.0}
}

// Auditor runs the six quality checks and the repairs bound to their issues.
type Auditor struct {
	book   *rules.Book
	checks []check
	opts   Options
	logger *slog.Logger
}

// NewAuditor builds an auditor over a compiled rule book.
func NewAuditor(book *rules.Book, opts Options, logger *slog.Logger) *Auditor {
	def := DefaultOptions()
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = def.MaxIterations
	}
	if opts.ScoreThreshold <= 0 || opts.ScoreThreshold > 1 {
		opts.ScoreThreshold = def.ScoreThreshold
	}
	return &Auditor{
		book:   book,
		checks: defaultChecks(book),
		opts:   opts,
		logger: logger,
	}
}

// Audit runs every check against listing for platformID.
func (a *Auditor) Audit(listing domain.Listing, platformID string) domain.QualityReport {
	profile, known := a.book.Platforms().Resolve(platformID)
	subject := Subject{Listing: listing, Platform: platformID, Profile: profile, Known: known}

	report := domain.QualityReport{
		Checks:   make([]domain.CheckResult, 0, len(a.checks)),
		Platform: platformID,
	}
	total := 0.0
	for _, c := range a.checks {
		result := c.run(subject)
		total += result.Score
		report.Checks = append(report.Checks, result)
	}
	if len(a.checks) > 0 {
		report.OverallScore = total / float64(len(a.checks))
	}
	return report
}

// Repair applies one pass of corrections for every failed check in report and
// returns the repaired copy. listing itself is never modified.
func (a *Auditor) Repair(listing domain.Listing, report domain.QualityReport, iteration int) (domain.Listing, []domain.RepairOutcome) {
	out := listing.Clone()
	var outcomes []domain.RepairOutcome

	for _, result := range report.Checks {
		if result.Passed {
			continue
		}
		for _, issue := range result.Issues {
			fix, ok := repairs[issue.Kind]
			if !ok {
				continue
			}
			before := out.Clone()
			outcome := domain.RepairOutcome{Iteration: iteration, Check: result.Name, Kind: issue.Kind}
			if err := fix(a.book, &out, issue); err != nil {
				out = before
				outcome.Error = err.Error()
				a.warn("repair failed", "check", result.Name, "kind", issue.Kind, "error", err)
			} else {
				outcome.Applied = !before.SameText(out)
			}
			outcomes = append(outcomes, outcome)
		}
	}
	return out, outcomes
}

// Refine audits listing and runs repair passes until the score reaches the
// threshold, a pass changes nothing or stops improving, or the iteration cap
// is hit. A pass that would lower the score is discarded.
func (a *Auditor) Refine(listing domain.Listing, platformID string) domain.Refinement {
	current := listing.Clone()
	report := a.Audit(current, platformID)
	ref := domain.Refinement{Initial: report}

	for i := 1; i <= a.opts.MaxIterations; i++ {
		if report.Passed() || report.OverallScore >= a.opts.ScoreThreshold {
			break
		}

		candidate, outcomes := a.Repair(current, report, i)
		ref.Repairs = append(ref.Repairs, outcomes...)
		ref.Iterations = i

		if candidate.SameText(current) {
			break
		}

		next := a.Audit(candidate, platformID)
		if next.OverallScore < report.OverallScore {
			a.debug("repair pass discarded", "platform", platformID, "iteration", i,
				"before", report.OverallScore, "after", next.OverallScore)
			break
		}

		improved := next.OverallScore > report.OverallScore
		current, report = candidate, next
		if !improved {
			break
		}
	}

	ref.Listing = current
	ref.Final = report
	a.debug("refined listing", "platform", platformID, "initial", ref.Initial.OverallScore,
		"final", ref.Final.OverallScore, "iterations", ref.Iterations)
	return ref
}

func (a *Auditor) debug(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}

func (a *Auditor) warn(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Warn(msg, args...)
	}
}

// Stage audits and refines the job's adapted listing.
type Stage struct {
	Auditor *Auditor
}

var _ ports.Stage = Stage{}

func (Stage) Name() string { return "audit" }

func (s Stage) Execute(job domain.Job) (domain.Job, error) {
	if job.Adapted == nil {
		return job, fmt.Errorf("audit listing for %s: no adapted listing", job.Platform)
	}
	ref := s.Auditor.Refine(*job.Adapted, job.Platform)
	job.Refinement = &ref
	return job, nil
}
