// Package pewsync publishes church media and attendance data into Webflow
// CMS collections and a Supabase database from Planning Center, Webflow
// itself and media pipeline output files.
//
// A Syncer runs named jobs. Each job reads candidates from a feed and
// reconciles them against a remote collection: existing records are
// indexed by natural key, referenced entities are resolved or created,
// fields are projected onto the live schema and writes are batched.
//
//	s, err := pewsync.New(
//	    pewsync.WithWebflow(os.Getenv("WEBFLOW_TOKEN")),
//	)
//	report, err := s.Sync(ctx, "speakers", sync.WithDryRun(true))
package pewsync

import (
	"context"
	"net/http"

	"github.com/churchmedia/pewsync/internal/jobs"
	"github.com/churchmedia/pewsync/pkg/constants"
	"github.com/churchmedia/pewsync/pkg/reconciler"
	pkgsync "github.com/churchmedia/pewsync/pkg/sync"
)

// Syncer runs reconciliation jobs against the configured services.
type Syncer interface {
	// Sync runs one job and returns its report. The report is returned
	// even when the run aborts.
	Sync(ctx context.Context, job string, opts ...pkgsync.Option) (*reconciler.Report, error)

	// SyncAll runs jobs in order. An empty list runs every job.
	SyncAll(ctx context.Context, names []string, opts ...pkgsync.Option) *pkgsync.Result

	// Schema returns the fields of a Webflow collection.
	Schema(ctx context.Context, collectionID string) (*Schema, error)

	// Jobs describes the available jobs in run order.
	Jobs() []JobInfo

	// OnJobCompleted registers a callback for finished or aborted jobs
	OnJobCompleted(JobCompletedHook)

	// OnRecordFailed registers a callback for every failed record
	OnRecordFailed(RecordFailedHook)
}

// JobInfo describes a job.
type JobInfo struct {
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description" yaml:"description"`
	Source      string            `json:"source" yaml:"source"`
	Target      string            `json:"target" yaml:"target"`
	Policy      reconciler.Policy `json:"policy" yaml:"policy"`
}

// syncer is the internal implementation of the Syncer interface
type syncer struct {
	config *config
	hooks  *hooks
}

// New creates a Syncer with the given options. Services without
// credentials stay unconfigured; jobs that need them fail when run.
func New(opts ...Option) (Syncer, error) {
	s := &syncer{
		config: defaultConfig(),
		hooks:  newHooks(),
	}
	if err := s.options(opts...); err != nil {
		return nil, err
	}
	if s.config.httpClient == nil {
		s.config.httpClient = &http.Client{Timeout: constants.DefaultHTTPTimeout}
	}
	return s, nil
}

// Jobs describes the available jobs in run order.
func (s *syncer) Jobs() []JobInfo {
	all := jobs.All()
	infos := make([]JobInfo, len(all))
	for i, j := range all {
		infos[i] = JobInfo{
			Name:        j.Name,
			Description: j.Description,
			Source:      j.Source,
			Target:      j.Target,
			Policy:      j.Policy,
		}
	}
	return infos
}
