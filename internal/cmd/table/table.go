// Package table provides common table formatting utilities for CLI commands.
package table

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/churchmedia/pewsync"
	"github.com/churchmedia/pewsync/internal/cmd/emoji"
	"github.com/churchmedia/pewsync/pkg/reconciler"
	"github.com/churchmedia/pewsync/pkg/sync"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data represents table formatting data to avoid import cycles.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align // Optional: column alignment
}

// maxCell bounds free text in table cells.
const maxCell = 60

// ResultToTableData converts a multi-job result to one row per job.
func ResultToTableData(result *sync.Result, showDetails bool) Data {
	headers := []string{"", "Job", "Collection", "Created", "Updated", "Skipped", "Failed"}
	if showDetails {
		headers = append(headers, "Entities", "Dropped Fields", "Duration", "Error")
	}
	align := []Align{AlignCenter, AlignLeft, AlignLeft, AlignRight, AlignRight, AlignRight, AlignRight}
	if showDetails {
		align = append(align, AlignRight, AlignLeft, AlignRight, AlignLeft)
	}

	rows := make([][]string, 0, len(result.Jobs))
	for _, job := range result.Jobs {
		report := result.Reports[job]
		err := result.Errors[job]

		row := []string{Status(report, err), job}
		if report == nil {
			row = append(row, "-", "-", "-", "-", "-")
		} else {
			row = append(row,
				report.Collection,
				strconv.Itoa(report.Created),
				strconv.Itoa(report.Updated),
				strconv.Itoa(report.Skipped),
				strconv.Itoa(report.Failed),
			)
		}

		if showDetails {
			entities, dropped, duration := "-", "-", "-"
			if report != nil {
				entities = strconv.Itoa(report.EntitiesCreated)
				dropped = JoinOrDash(report.DroppedFields)
				duration = FormatDuration(report.Duration)
			}
			errText := "-"
			if err != nil {
				errText = Truncate(err.Error(), maxCell)
			}
			row = append(row, entities, dropped, duration, errText)
		}
		rows = append(rows, row)
	}

	return Data{Headers: headers, Rows: rows, ColumnAlignment: align}
}

// ReportToTableData converts a single report to a key-value table.
func ReportToTableData(report *reconciler.Report) Data {
	rows := [][]string{
		{"Job", report.Job},
		{"Collection", report.Collection},
		{"Dry Run", strconv.FormatBool(report.DryRun)},
		{"Created", strconv.Itoa(report.Created)},
		{"Updated", strconv.Itoa(report.Updated)},
		{"Skipped", strconv.Itoa(report.Skipped)},
		{"Failed", strconv.Itoa(report.Failed)},
		{"Entities Created", strconv.Itoa(report.EntitiesCreated)},
		{"Dropped Fields", JoinOrDash(report.DroppedFields)},
		{"Duration", FormatDuration(report.Duration)},
	}
	if report.Aborted {
		rows = append(rows, []string{"Aborted", fmt.Sprintf("yes (%d unsubmitted)", report.Unsubmitted)})
	}
	return Data{
		Headers:         []string{"Property", "Value"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft},
	}
}

// FailuresToTableData lists the failed records of a report.
func FailuresToTableData(report *reconciler.Report) Data {
	rows := make([][]string, 0, len(report.Failures))
	for _, f := range report.Failures {
		rows = append(rows, []string{f.Key, string(f.Stage), Truncate(f.Error, maxCell)})
	}
	return Data{Headers: []string{"Key", "Stage", "Error"}, Rows: rows}
}

// AmbiguitiesToTableData lists the entity names that matched by key but
// not by text.
func AmbiguitiesToTableData(report *reconciler.Report) Data {
	rows := make([][]string, 0, len(report.Ambiguities))
	for _, a := range report.Ambiguities {
		rows = append(rows, []string{a.Store, a.Existing, a.Incoming})
	}
	return Data{Headers: []string{"Store", "Existing", "Incoming"}, Rows: rows}
}

// JobsToTableData converts job descriptions to table format.
func JobsToTableData(jobs []pewsync.JobInfo, showDetails bool) Data {
	headers := []string{"Name", "Source", "Target", "Policy"}
	if showDetails {
		headers = append(headers, "Description")
	}

	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		row := []string{j.Name, j.Source, j.Target, j.Policy.Name()}
		if showDetails {
			row = append(row, Truncate(j.Description, maxCell))
		}
		rows = append(rows, row)
	}
	return Data{Headers: headers, Rows: rows}
}

// SchemaToTableData converts collection fields to table format.
func SchemaToTableData(schema *pewsync.Schema) Data {
	rows := make([][]string, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		required := ""
		if f.Required {
			required = emoji.Success
		}
		rows = append(rows, []string{f.Slug, f.DisplayName, f.Type, required})
	}
	return Data{
		Headers:         []string{"Slug", "Name", "Type", "Required"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignLeft, AlignCenter},
	}
}

// Status returns the status symbol for a job outcome.
func Status(report *reconciler.Report, err error) string {
	switch {
	case err != nil:
		return emoji.Error
	case report == nil:
		return emoji.Unknown
	case report.Failed > 0 || len(report.Ambiguities) > 0:
		return emoji.Warning
	case !report.HasChanges():
		return emoji.Optional
	default:
		return emoji.Success
	}
}

// JoinOrDash joins values with commas, or returns "-" when empty.
func JoinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}

// FormatDuration rounds a duration for display.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
