package pewsync

import (
	"net/http"
	"time"

	"github.com/churchmedia/pewsync/internal/jobs"
	"github.com/churchmedia/pewsync/pkg/errors"
)

// Option is a function that configures a Syncer
type Option func(*config) error

// config holds the credentials and endpoints a Syncer builds clients from.
type config struct {
	webflowToken   string
	webflowBaseURL string

	pcoAppID   string
	pcoSecret  string
	pcoBaseURL string
	pcoClock   func() time.Time

	supabaseURL string
	supabaseKey string

	jobs       *jobs.Config
	httpClient *http.Client
}

func defaultConfig() *config {
	return &config{jobs: jobs.DefaultConfig()}
}

// options applies the given options to the syncer.
func (s *syncer) options(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(s.config); err != nil {
			return err
		}
	}
	return nil
}

// WithWebflow configures the Webflow API token.
func WithWebflow(token string) Option {
	return func(c *config) error {
		c.webflowToken = token
		return nil
	}
}

// WithWebflowBaseURL overrides the Webflow API root.
func WithWebflowBaseURL(u string) Option {
	return func(c *config) error {
		c.webflowBaseURL = u
		return nil
	}
}

// WithPlanningCenter configures the Planning Center personal access token.
func WithPlanningCenter(appID, secret string) Option {
	return func(c *config) error {
		if (appID == "") != (secret == "") {
			return errors.NewConfigError("planningcenter", "app id and secret must be set together", nil)
		}
		c.pcoAppID = appID
		c.pcoSecret = secret
		return nil
	}
}

// WithPlanningCenterBaseURL overrides the Planning Center API root.
func WithPlanningCenterBaseURL(u string) Option {
	return func(c *config) error {
		c.pcoBaseURL = u
		return nil
	}
}

// WithClock sets the clock used to pick future event instances.
func WithClock(now func() time.Time) Option {
	return func(c *config) error {
		c.pcoClock = now
		return nil
	}
}

// WithSupabase configures the Supabase project URL and service role key.
func WithSupabase(projectURL, serviceKey string) Option {
	return func(c *config) error {
		if (projectURL == "") != (serviceKey == "") {
			return errors.NewConfigError("supabase", "project url and service key must be set together", nil)
		}
		c.supabaseURL = projectURL
		c.supabaseKey = serviceKey
		return nil
	}
}

// WithJobConfig replaces the job configuration (collection ids, field
// mappings, replacements).
func WithJobConfig(cfg *jobs.Config) Option {
	return func(c *config) error {
		if cfg == nil {
			return errors.NewConfigError("jobs", "job config is nil", nil)
		}
		c.jobs = cfg
		return nil
	}
}

// WithHTTPClient sets the HTTP client shared by every service.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) error {
		c.httpClient = hc
		return nil
	}
}
