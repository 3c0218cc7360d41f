package pewsync

import (
	"context"

	"github.com/churchmedia/pewsync/internal/jobs"
	"github.com/churchmedia/pewsync/internal/sources/planningcenter"
	"github.com/churchmedia/pewsync/internal/sources/supabase"
	"github.com/churchmedia/pewsync/internal/sources/webflow"
	"github.com/churchmedia/pewsync/pkg/logging"
	"github.com/churchmedia/pewsync/pkg/reconciler"
	pkgsync "github.com/churchmedia/pewsync/pkg/sync"
)

// Sync runs one job with clients built for this run.
func (s *syncer) Sync(ctx context.Context, job string, opts ...pkgsync.Option) (*reconciler.Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	options := pkgsync.Defaults().Apply(opts...)
	if err := options.Validate(); err != nil {
		return nil, err
	}

	report, err := jobs.Run(ctx, s.env(options), job, options)
	s.logOutcome(ctx, job, report, err)
	s.hooks.triggerJobCompleted(job, report, err)
	return report, err
}

// SyncAll runs jobs in order. With FailFast the first aborted job stops
// the rest.
func (s *syncer) SyncAll(ctx context.Context, names []string, opts ...pkgsync.Option) *pkgsync.Result {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(names) == 0 {
		names = jobs.Names()
	}

	options := pkgsync.Defaults().Apply(opts...)
	result := pkgsync.NewResult(options.DryRun)
	for _, name := range names {
		report, err := s.Sync(ctx, name, opts...)
		result.Add(name, report, err)
		if err != nil && options.FailFast {
			break
		}
	}
	return result
}

// env builds the service clients for one run. Page size and pacing come
// from the run options; the form submissions walk is additionally capped
// by the configured page limit.
func (s *syncer) env(options *pkgsync.Options) *jobs.Env {
	cfg := s.config
	env := &jobs.Env{Config: cfg.jobs}
	pageOpts := options.PaginateOptions()

	if cfg.webflowToken != "" {
		wopts := []webflow.Option{
			webflow.WithHTTPClient(cfg.httpClient),
			webflow.WithPageSize(options.PageSize),
			webflow.WithPaginateOptions(pageOpts...),
		}
		if cfg.webflowBaseURL != "" {
			wopts = append(wopts, webflow.WithBaseURL(cfg.webflowBaseURL))
		}
		env.Webflow = webflow.New(cfg.webflowToken, wopts...)
	}

	if cfg.pcoAppID != "" {
		popts := []planningcenter.Option{
			planningcenter.WithHTTPClient(cfg.httpClient),
			planningcenter.WithPageSize(options.PageSize),
			planningcenter.WithPaginateOptions(pageOpts...),
			planningcenter.WithFormPageLimit(cfg.jobs.PlanningCenter.MaxPages),
		}
		if cfg.pcoBaseURL != "" {
			popts = append(popts, planningcenter.WithBaseURL(cfg.pcoBaseURL))
		}
		if cfg.pcoClock != nil {
			popts = append(popts, planningcenter.WithClock(cfg.pcoClock))
		}
		env.PlanningCenter = planningcenter.New(cfg.pcoAppID, cfg.pcoSecret, popts...)
	}

	if cfg.supabaseURL != "" {
		env.Supabase = supabase.New(cfg.supabaseURL, cfg.supabaseKey,
			supabase.WithHTTPClient(cfg.httpClient),
			supabase.WithPageSize(options.PageSize),
			supabase.WithPaginateOptions(pageOpts...),
		)
	}
	return env
}

func (s *syncer) logOutcome(ctx context.Context, job string, report *reconciler.Report, err error) {
	logger := logging.FromContext(ctx)
	if report == nil {
		logger.Error().Err(err).Str("job", job).Msg("Job could not start")
		return
	}
	event := logger.Info()
	if err != nil {
		event = logger.Error().Err(err)
	}
	event.Str("job", job).
		Int("created", report.Created).
		Int("updated", report.Updated).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Int("entities_created", report.EntitiesCreated).
		Bool("dry_run", report.DryRun).
		Dur("duration", report.Duration).
		Msg("Job finished")
}
