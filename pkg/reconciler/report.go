package reconciler

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/churchmedia/pewsync/pkg/entity"
)

// Stage names the step at which a record failed.
type Stage string

// Failure stages.
const (
	StageIdentity  Stage = "identity"
	StageReference Stage = "reference"
	StageProject   Stage = "projection"
	StageWrite     Stage = "write"
)

// Failure describes one record that did not reach the remote collection.
type Failure struct {
	Key   string `json:"key" yaml:"key"`
	Stage Stage  `json:"stage" yaml:"stage"`
	Error string `json:"error" yaml:"error"`
}

// Report is the structured summary of one run. Dry runs produce the same
// shape with writes counted as would-create and would-update.
type Report struct {
	Job             string             `json:"job,omitempty" yaml:"job,omitempty"`
	Collection      string             `json:"collection" yaml:"collection"`
	Created         int                `json:"created" yaml:"created"`
	Updated         int                `json:"updated" yaml:"updated"`
	Skipped         int                `json:"skipped" yaml:"skipped"`
	Failed          int                `json:"failed" yaml:"failed"`
	DroppedFields   []string           `json:"dropped_fields" yaml:"dropped_fields"`
	DryRun          bool               `json:"dry_run" yaml:"dry_run"`
	EntitiesCreated int                `json:"entities_created" yaml:"entities_created"`
	Unsubmitted     int                `json:"unsubmitted" yaml:"unsubmitted"`
	Aborted         bool               `json:"aborted" yaml:"aborted"`
	Duration        time.Duration      `json:"duration" yaml:"duration"`
	Failures        []Failure          `json:"failures,omitempty" yaml:"failures,omitempty"`
	Ambiguities     []entity.Ambiguity `json:"ambiguities,omitempty" yaml:"ambiguities,omitempty"`

	dropped map[string]struct{}
}

func newReport(collection string, dryRun bool) *Report {
	return &Report{
		Collection:    collection,
		DryRun:        dryRun,
		DroppedFields: []string{},
		dropped:       make(map[string]struct{}),
	}
}

func (r *Report) drop(names []string) {
	for _, n := range names {
		if _, ok := r.dropped[n]; ok {
			continue
		}
		r.dropped[n] = struct{}{}
		r.DroppedFields = append(r.DroppedFields, n)
	}
}

func (r *Report) fail(key string, stage Stage, err error) {
	r.Failed++
	r.Failures = append(r.Failures, Failure{Key: key, Stage: stage, Error: err.Error()})
}

func (r *Report) finish(start time.Time) {
	slices.Sort(r.DroppedFields)
	r.Duration = time.Since(start)
}

// Total returns the number of records that reached a terminal state.
func (r *Report) Total() int {
	return r.Created + r.Updated + r.Skipped + r.Failed
}

// HasChanges reports whether the run wrote (or would write) anything.
func (r *Report) HasChanges() bool {
	return r.Created > 0 || r.Updated > 0 || r.EntitiesCreated > 0
}

// Summary returns a one-line human readable summary.
func (r *Report) Summary() string {
	var b strings.Builder
	if r.DryRun {
		b.WriteString("[dry run] ")
	}
	fmt.Fprintf(&b, "%s: %d created, %d updated, %d skipped, %d failed",
		r.Collection, r.Created, r.Updated, r.Skipped, r.Failed)
	if r.EntitiesCreated > 0 {
		fmt.Fprintf(&b, ", %d entities created", r.EntitiesCreated)
	}
	if len(r.DroppedFields) > 0 {
		fmt.Fprintf(&b, ", dropped fields: %s", strings.Join(r.DroppedFields, ", "))
	}
	if r.Aborted {
		fmt.Fprintf(&b, " (aborted, %d unsubmitted)", r.Unsubmitted)
	}
	return b.String()
}
