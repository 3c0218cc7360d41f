package table

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/churchmedia/pewsync/internal/cmd/emoji"
	"github.com/churchmedia/pewsync/pkg/entity"
	"github.com/churchmedia/pewsync/pkg/reconciler"
	"github.com/churchmedia/pewsync/pkg/sync"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name   string
		report *reconciler.Report
		err    error
		want   string
	}{
		{"aborted", &reconciler.Report{Aborted: true}, errors.New("boom"), emoji.Error},
		{"no report", nil, nil, emoji.Unknown},
		{"failures", &reconciler.Report{Created: 1, Failed: 1}, nil, emoji.Warning},
		{"ambiguous", &reconciler.Report{Ambiguities: []entity.Ambiguity{{Key: "k"}}}, nil, emoji.Warning},
		{"unchanged", &reconciler.Report{Skipped: 4}, nil, emoji.Optional},
		{"changed", &reconciler.Report{Updated: 2}, nil, emoji.Success},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.report, tt.err))
		})
	}
}

func TestResultToTableData(t *testing.T) {
	result := sync.NewResult(true)
	result.Add("events", &reconciler.Report{Collection: "events", Created: 2, DroppedFields: []string{"rsvp-link"}}, nil)
	result.Add("submissions", nil, errors.New("no credentials"))

	data := ResultToTableData(result, true)
	assert.Len(t, data.Headers, 11)
	assert.Len(t, data.ColumnAlignment, 11)
	assert.Equal(t, []string{emoji.Success, "events", "events", "2", "0", "0", "0", "0", "rsvp-link", "-", "-"}, data.Rows[0])
	assert.Equal(t, emoji.Error, data.Rows[1][0])
	assert.Equal(t, "no credentials", data.Rows[1][10])
}

func TestReportToTableData(t *testing.T) {
	data := ReportToTableData(&reconciler.Report{Job: "sermons", Aborted: true, Unsubmitted: 7})
	last := data.Rows[len(data.Rows)-1]
	assert.Equal(t, []string{"Aborted", "yes (7 unsubmitted)"}, last)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "-", JoinOrDash(nil))
	assert.Equal(t, "a, b", JoinOrDash([]string{"a", "b"}))
	assert.Equal(t, "-", FormatDuration(0))
	assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond))
	assert.Equal(t, "1.5s", FormatDuration(1520*time.Millisecond))
	assert.Equal(t, "abcdefg", Truncate("abcdefg", 7))
	assert.Equal(t, "abcd...", Truncate("abcdefghij", 7))
}
