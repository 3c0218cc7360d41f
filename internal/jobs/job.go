// Package jobs wires the remote sources into named reconciliation runs.
package jobs

import (
	"context"
	"slices"

	"github.com/churchmedia/pewsync/internal/sources/planningcenter"
	"github.com/churchmedia/pewsync/internal/sources/supabase"
	"github.com/churchmedia/pewsync/internal/sources/webflow"
	"github.com/churchmedia/pewsync/pkg/errors"
	"github.com/churchmedia/pewsync/pkg/logging"
	"github.com/churchmedia/pewsync/pkg/reconciler"
	"github.com/churchmedia/pewsync/pkg/sources"
	"github.com/churchmedia/pewsync/pkg/sync"
)

// Service is a remote system a job talks to.
type Service string

// Services.
const (
	ServiceWebflow        Service = "webflow"
	ServicePlanningCenter Service = "planningcenter"
	ServiceSupabase       Service = "supabase"
	ServiceLocal          Service = "local"
)

// Env carries the clients and configuration jobs are built from.
// Clients a job does not need may be nil.
type Env struct {
	Config         *Config
	Webflow        *webflow.Client
	PlanningCenter *planningcenter.Client
	Supabase       *supabase.Client
}

func (e *Env) check(job Job) error {
	if e == nil || e.Config == nil {
		return errors.NewConfigError("jobs", "no configuration", nil)
	}
	for _, svc := range job.Requires {
		missing := false
		switch svc {
		case ServiceWebflow:
			missing = e.Webflow == nil
		case ServicePlanningCenter:
			missing = e.PlanningCenter == nil
		case ServiceSupabase:
			missing = e.Supabase == nil
		}
		if missing {
			return &errors.ConfigError{Component: job.Name, Message: string(svc) + " credentials are not configured"}
		}
	}
	return nil
}

// Plan is a job resolved against an Env: what to read, where to write
// and how.
type Plan struct {
	Target  sources.Collection
	Feed    sources.Feed
	Options []reconciler.Option
}

// Job is a named reconciliation.
type Job struct {
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description" yaml:"description"`
	Source      string            `json:"source" yaml:"source"`
	Target      string            `json:"target" yaml:"target"`
	Policy      reconciler.Policy `json:"policy" yaml:"policy"`
	Requires    []Service         `json:"requires" yaml:"requires"`

	plan func(env *Env) (*Plan, error)
}

// Plan builds the job against env.
func (j Job) Plan(env *Env) (*Plan, error) {
	if err := env.check(j); err != nil {
		return nil, err
	}
	return j.plan(env)
}

var registry = []Job{
	submissionsJob,
	eventsJob,
	speakersJob,
	preachersJob,
	sermonsJob,
}

// All returns every job in display order.
func All() []Job {
	return slices.Clone(registry)
}

// Names returns the job names in display order.
func Names() []string {
	names := make([]string, len(registry))
	for i, j := range registry {
		names[i] = j.Name
	}
	return names
}

// Get returns the job called name.
func Get(name string) (Job, bool) {
	for _, j := range registry {
		if j.Name == name {
			return j, true
		}
	}
	return Job{}, false
}

// Run plans and runs one job. The report is returned even when the run
// aborts.
func Run(ctx context.Context, env *Env, name string, opts *sync.Options) (*reconciler.Report, error) {
	if opts == nil {
		opts = sync.Defaults()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	job, ok := Get(name)
	if !ok {
		return nil, errors.NewNotFoundError("job", name)
	}
	plan, err := job.Plan(env)
	if err != nil {
		return nil, err
	}

	driver, err := reconciler.New(plan.Target, append(plan.Options, opts.ReconcilerOptions()...)...)
	if err != nil {
		return nil, err
	}

	ctx = logging.WithJob(ctx, name)
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	report, err := driver.Run(ctx, plan.Feed)
	if report != nil {
		report.Job = name
	}
	return report, err
}
