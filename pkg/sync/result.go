package sync

import (
	"fmt"
	"strings"

	"github.com/churchmedia/pewsync/pkg/reconciler"
)

// Result collects the reports of a multi-job run in execution order.
type Result struct {
	Jobs    []string                      // Jobs in the order they ran
	Reports map[string]*reconciler.Report // Report per job
	Errors  map[string]error              // Systemic error per aborted job
	DryRun  bool                          // Whether this was a dry run
}

// NewResult creates an empty result.
func NewResult(dryRun bool) *Result {
	return &Result{
		Reports: make(map[string]*reconciler.Report),
		Errors:  make(map[string]error),
		DryRun:  dryRun,
	}
}

// Add records the outcome of one job.
func (r *Result) Add(job string, report *reconciler.Report, err error) {
	r.Jobs = append(r.Jobs, job)
	if report != nil {
		r.Reports[job] = report
	}
	if err != nil {
		r.Errors[job] = err
	}
}

// HasChanges returns true if any job wrote (or would write) anything.
func (r *Result) HasChanges() bool {
	for _, report := range r.Reports {
		if report.HasChanges() {
			return true
		}
	}
	return false
}

// HasFailures returns true if any job aborted or failed a record.
func (r *Result) HasFailures() bool {
	if len(r.Errors) > 0 {
		return true
	}
	for _, report := range r.Reports {
		if report.Failed > 0 {
			return true
		}
	}
	return false
}

// Summary returns a human-readable summary of the run.
func (r *Result) Summary() string {
	if len(r.Jobs) == 0 {
		return "No jobs ran"
	}

	var created, updated, skipped, failed int
	for _, report := range r.Reports {
		created += report.Created
		updated += report.Updated
		skipped += report.Skipped
		failed += report.Failed
	}

	summary := fmt.Sprintf("%d jobs: %d created, %d updated, %d skipped, %d failed",
		len(r.Jobs), created, updated, skipped, failed)

	var parts []string
	if r.DryRun {
		parts = append(parts, "(Dry run)")
	}
	if len(r.Errors) > 0 {
		parts = append(parts, fmt.Sprintf("(%d aborted)", len(r.Errors)))
	}
	if len(parts) > 0 {
		summary += " " + strings.Join(parts, " ")
	}
	return summary
}
