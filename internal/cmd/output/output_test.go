package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churchmedia/pewsync"
	"github.com/churchmedia/pewsync/internal/cmd/globals"
	"github.com/churchmedia/pewsync/pkg/reconciler"
	"github.com/churchmedia/pewsync/pkg/sync"
)

func sampleResult() *sync.Result {
	result := sync.NewResult(false)
	result.Add("speakers", &reconciler.Report{
		Job:        "speakers",
		Collection: "sermons",
		Updated:    3,
		Skipped:    1,
		Failed:     1,
		Duration:   1500 * time.Millisecond,
		Failures:   []reconciler.Failure{{Key: "easter-2024", Stage: reconciler.StageReference, Error: "speaker store unavailable"}},
	}, nil)
	result.Add("submissions", nil, errors.New("supabase credentials are not configured"))
	return result
}

func TestFormatResultTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatResult(&buf, sampleResult(), &globals.Flags{Output: "table"}))

	out := buf.String()
	assert.Contains(t, out, "speakers")
	assert.Contains(t, out, "submissions")
	assert.Contains(t, out, "easter-2024")
	assert.Contains(t, out, "reference")
}

func TestFormatResultJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatResult(&buf, sampleResult(), &globals.Flags{Output: "json"}))

	var got []JobOutcome
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "speakers", got[0].Job)
	assert.Equal(t, 3, got[0].Report.Updated)
	assert.Nil(t, got[1].Report)
	assert.Equal(t, "supabase credentials are not configured", got[1].Error)
}

func TestFormatSchemaYAML(t *testing.T) {
	schema := &pewsync.Schema{
		CollectionID: "c1",
		DisplayName:  "Sermons",
		Fields:       []pewsync.SchemaField{{Slug: "name", DisplayName: "Name", Type: "PlainText", Required: true}},
	}

	var buf bytes.Buffer
	require.NoError(t, FormatSchema(&buf, schema, &globals.Flags{Output: "yaml"}))
	assert.Contains(t, buf.String(), "collection_id: c1")
	assert.Contains(t, buf.String(), "- slug: name")

	buf.Reset()
	require.NoError(t, FormatSchema(&buf, schema, &globals.Flags{Output: "table"}))
	assert.Contains(t, buf.String(), "PlainText")
}

func TestFormatJobs(t *testing.T) {
	jobs := []pewsync.JobInfo{{Name: "events", Source: "Planning Center calendar", Target: "Webflow events", Policy: reconciler.PolicyUpsert, Description: "Publish events"}}

	var buf bytes.Buffer
	require.NoError(t, FormatJobs(&buf, jobs, &globals.Flags{Output: "wide"}))
	assert.Contains(t, buf.String(), "Upsert")
	assert.Contains(t, buf.String(), "Publish events")
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"table", "JSON", "yaml", "wide", ""} {
		_, err := ParseFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseFormat("csv")
	assert.Error(t, err)

	assert.Equal(t, FormatYAML, DetectFormat("YAML"))
}

func TestTableFormatterReflection(t *testing.T) {
	type row struct {
		JobName string `json:"job_name"`
		Count   int
		hidden  string
	}

	var buf bytes.Buffer
	f := &TableFormatter{}
	require.NoError(t, f.Format(&buf, []row{{JobName: "events", Count: 2, hidden: "x"}}))
	assert.Contains(t, strings.ToUpper(buf.String()), "JOB NAME")
	assert.Contains(t, buf.String(), "events")

	buf.Reset()
	require.NoError(t, f.Format(&buf, map[string]int{"a": 1}))
	assert.JSONEq(t, `{"a":1}`, buf.String())
}
