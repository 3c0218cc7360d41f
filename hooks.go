package pewsync

import (
	"sync"

	"github.com/churchmedia/pewsync/pkg/reconciler"
)

// Hook function types for run events
type (
	// JobCompletedHook is called when a job finishes or aborts. report
	// may be nil when the job could not start.
	JobCompletedHook func(job string, report *reconciler.Report, err error)

	// RecordFailedHook is called once per failed record of a job
	RecordFailedHook func(job string, failure reconciler.Failure)
)

// hooks manages event callbacks for runs
type hooks struct {
	mu             sync.RWMutex
	onJobCompleted []JobCompletedHook
	onRecordFailed []RecordFailedHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnJobCompleted registers a callback for finished jobs
func (h *hooks) OnJobCompleted(fn JobCompletedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onJobCompleted = append(h.onJobCompleted, fn)
}

// OnRecordFailed registers a callback for failed records
func (h *hooks) OnRecordFailed(fn RecordFailedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onRecordFailed = append(h.onRecordFailed, fn)
}

// triggerJobCompleted fans a job outcome out to the registered hooks
func (h *hooks) triggerJobCompleted(job string, report *reconciler.Report, err error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if report != nil {
		for _, failure := range report.Failures {
			for _, hook := range h.onRecordFailed {
				hook(job, failure)
			}
		}
	}
	for _, hook := range h.onJobCompleted {
		hook(job, report, err)
	}
}

// OnJobCompleted registers a callback for finished or aborted jobs
func (s *syncer) OnJobCompleted(fn JobCompletedHook) {
	s.hooks.OnJobCompleted(fn)
}

// OnRecordFailed registers a callback for every failed record
func (s *syncer) OnRecordFailed(fn RecordFailedHook) {
	s.hooks.OnRecordFailed(fn)
}
