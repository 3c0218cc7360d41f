package output

import (
	"io"

	"github.com/churchmedia/pewsync"
	"github.com/churchmedia/pewsync/internal/cmd/globals"
	"github.com/churchmedia/pewsync/internal/cmd/table"
	"github.com/churchmedia/pewsync/pkg/reconciler"
	"github.com/churchmedia/pewsync/pkg/sync"
)

// FormatResult writes a multi-job result. Tables get one row per job
// followed by the failed records and ambiguous names of each job.
func FormatResult(w io.Writer, result *sync.Result, flags *globals.Flags) error {
	format := Format(flags.Output)
	formatter := NewFormatter(format)
	if !format.IsTable() {
		return formatter.Format(w, outcomes(result))
	}

	if err := formatter.Format(w, table.ResultToTableData(result, format == FormatWide || flags.Verbose)); err != nil {
		return err
	}
	for _, job := range result.Jobs {
		report := result.Reports[job]
		if report == nil {
			continue
		}
		if err := formatProblems(w, formatter, report); err != nil {
			return err
		}
	}
	return nil
}

// JobOutcome is the serialized form of one job of a multi-job run.
type JobOutcome struct {
	Job    string             `json:"job" yaml:"job"`
	Report *reconciler.Report `json:"report,omitempty" yaml:"report,omitempty"`
	Error  string             `json:"error,omitempty" yaml:"error,omitempty"`
}

func outcomes(result *sync.Result) []JobOutcome {
	out := make([]JobOutcome, 0, len(result.Jobs))
	for _, job := range result.Jobs {
		o := JobOutcome{Job: job, Report: result.Reports[job]}
		if err := result.Errors[job]; err != nil {
			o.Error = err.Error()
		}
		out = append(out, o)
	}
	return out
}

// FormatReport writes a single job report.
func FormatReport(w io.Writer, report *reconciler.Report, flags *globals.Flags) error {
	format := Format(flags.Output)
	formatter := NewFormatter(format)
	if !format.IsTable() {
		return formatter.Format(w, report)
	}
	if err := formatter.Format(w, table.ReportToTableData(report)); err != nil {
		return err
	}
	return formatProblems(w, formatter, report)
}

func formatProblems(w io.Writer, formatter Formatter, report *reconciler.Report) error {
	if len(report.Failures) > 0 {
		if err := formatter.Format(w, table.FailuresToTableData(report)); err != nil {
			return err
		}
	}
	if len(report.Ambiguities) > 0 {
		if err := formatter.Format(w, table.AmbiguitiesToTableData(report)); err != nil {
			return err
		}
	}
	return nil
}

// FormatJobs writes the job list.
func FormatJobs(w io.Writer, jobs []pewsync.JobInfo, flags *globals.Flags) error {
	format := Format(flags.Output)
	formatter := NewFormatter(format)

	var data any = jobs
	if format.IsTable() {
		data = table.JobsToTableData(jobs, format == FormatWide)
	}
	return formatter.Format(w, data)
}

// FormatSchema writes the fields of a collection.
func FormatSchema(w io.Writer, schema *pewsync.Schema, flags *globals.Flags) error {
	format := Format(flags.Output)
	formatter := NewFormatter(format)

	var data any = schema
	if format.IsTable() {
		data = table.SchemaToTableData(schema)
	}
	return formatter.Format(w, data)
}

// FormatAny handles the common pattern of formatting any data type for output.
// This is useful for commands with custom data structures.
func FormatAny(w io.Writer, data any, flags *globals.Flags) error {
	return NewFormatter(Format(flags.Output)).Format(w, data)
}
