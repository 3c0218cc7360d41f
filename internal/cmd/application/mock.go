// Package application provides test doubles for the command application
// interface.
package application

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/churchmedia/pewsync"
	"github.com/churchmedia/pewsync/internal/cmd/globals"
	"github.com/churchmedia/pewsync/internal/jobs"
	"github.com/churchmedia/pewsync/pkg/errors"
	"github.com/churchmedia/pewsync/pkg/reconciler"
	"github.com/churchmedia/pewsync/pkg/sync"
)

// Mock provides a mock implementation of the command Application.
// Each method can be customized by setting the corresponding field.
// If a field is nil, the method returns a default/zero value.
//
//	stub := &application.SyncerStub{JobList: ...}
//	mock := &application.Mock{Stub: stub}
//	cmd := jobs.NewCommand(mock)
type Mock struct {
	Stub        *SyncerStub
	SyncerErr   error
	LoggerFunc  func() *zerolog.Logger
	FlagsValue  *globals.Flags
	JobsValue   *jobs.Config
	DryRunValue bool
	VersionFunc func() string
}

// Syncer returns the stub syncer or SyncerErr.
func (m *Mock) Syncer(...pewsync.Option) (pewsync.Syncer, error) {
	if m.SyncerErr != nil {
		return nil, m.SyncerErr
	}
	if m.Stub == nil {
		m.Stub = &SyncerStub{}
	}
	return m.Stub, nil
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// Flags returns the configured flags or table output defaults.
func (m *Mock) Flags() *globals.Flags {
	if m.FlagsValue != nil {
		return m.FlagsValue
	}
	return &globals.Flags{Output: "table"}
}

// JobConfig returns the configured job config or the defaults.
func (m *Mock) JobConfig() *jobs.Config {
	if m.JobsValue != nil {
		return m.JobsValue
	}
	return jobs.DefaultConfig()
}

// DryRun returns the configured dry run default.
func (m *Mock) DryRun() bool {
	return m.DryRunValue
}

// Version returns version using the mock function or "dev".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "dev"
}

// Commit returns "unknown".
func (m *Mock) Commit() string { return "unknown" }

// Date returns "unknown".
func (m *Mock) Date() string { return "unknown" }

// BuiltBy returns "test".
func (m *Mock) BuiltBy() string { return "test" }

// SyncerStub is an in-memory Syncer that records the runs it was asked
// for.
type SyncerStub struct {
	// SyncFunc produces the outcome of a run. When nil every run
	// succeeds with an empty report.
	SyncFunc func(ctx context.Context, job string, opts *sync.Options) (*reconciler.Report, error)
	Schemas  map[string]*pewsync.Schema
	JobList  []pewsync.JobInfo

	Calls   []string
	Options []*sync.Options
}

// Sync records the run and returns the outcome of SyncFunc.
func (s *SyncerStub) Sync(ctx context.Context, job string, opts ...sync.Option) (*reconciler.Report, error) {
	options := sync.Defaults().Apply(opts...)
	s.Calls = append(s.Calls, job)
	s.Options = append(s.Options, options)
	if s.SyncFunc != nil {
		return s.SyncFunc(ctx, job, options)
	}
	return &reconciler.Report{Job: job, DryRun: options.DryRun}, nil
}

// SyncAll runs Sync for each name, or for every job in JobList.
func (s *SyncerStub) SyncAll(ctx context.Context, names []string, opts ...sync.Option) *sync.Result {
	options := sync.Defaults().Apply(opts...)
	if len(names) == 0 {
		for _, j := range s.JobList {
			names = append(names, j.Name)
		}
	}
	result := sync.NewResult(options.DryRun)
	for _, name := range names {
		report, err := s.Sync(ctx, name, opts...)
		result.Add(name, report, err)
		if err != nil && options.FailFast {
			break
		}
	}
	return result
}

// Schema returns the schema registered for collectionID.
func (s *SyncerStub) Schema(_ context.Context, collectionID string) (*pewsync.Schema, error) {
	if schema, ok := s.Schemas[collectionID]; ok {
		return schema, nil
	}
	return nil, errors.NewNotFoundError("collection", collectionID)
}

// Jobs returns JobList.
func (s *SyncerStub) Jobs() []pewsync.JobInfo { return s.JobList }

// OnJobCompleted is a no-op.
func (s *SyncerStub) OnJobCompleted(pewsync.JobCompletedHook) {}

// OnRecordFailed is a no-op.
func (s *SyncerStub) OnRecordFailed(pewsync.RecordFailedHook) {}
