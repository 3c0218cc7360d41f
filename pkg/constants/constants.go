// Package constants provides shared constants used throughout pewsync.
// This includes timeouts, remote limits, file permissions, and the default
// API endpoints of the services pewsync talks to.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for HTTP requests to remote APIs
	DefaultHTTPTimeout = 30 * time.Second

	// SyncTimeout is the default upper bound for a single reconciliation run
	SyncTimeout = 30 * time.Minute

	// ShutdownTimeout bounds graceful shutdown after a failed command
	ShutdownTimeout = 5 * time.Second

	// DefaultPageDelay is the pause between page fetches (cooperative rate limit)
	DefaultPageDelay = 300 * time.Millisecond
)

// File permission constants define standard Unix file permissions
const (
	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Limit constants define remote limits and defaults
const (
	// MaxBatchSize is the largest number of items a remote accepts in one bulk write
	MaxBatchSize = 100

	// DefaultBatchSize is the number of writes per bulk call
	DefaultBatchSize = MaxBatchSize

	// DefaultPageSize is the default number of items per page for paginated reads
	DefaultPageSize = 100

	// MaxPageSize is the largest page the remotes serve
	MaxPageSize = 100

	// DefaultFormPageLimit is how many pages of form submissions (newest
	// first) one import reads
	DefaultFormPageLimit = 5

	// BreakerFailureThreshold is the number of consecutive remote failures
	// that opens a circuit breaker
	BreakerFailureThreshold = 5

	// BreakerOpenTimeout is how long an open breaker rejects calls before probing
	BreakerOpenTimeout = 30 * time.Second
)

// Remote API endpoints
const (
	// WebflowAPIBase is the Webflow Data API v2 root
	WebflowAPIBase = "https://api.webflow.com/v2"

	// WebflowAPIVersion is sent in the accept-version header
	WebflowAPIVersion = "2.0.0"

	// PlanningCenterAPIBase is the Planning Center API root
	PlanningCenterAPIBase = "https://api.planningcenteronline.com"
)

// Placeholder values
const (
	// DefaultEntitySlug is used when a display name slugifies to nothing
	DefaultEntitySlug = "entity"

	// DryRunIDPrefix prefixes ids handed out for entities or records a dry run would create
	DryRunIDPrefix = "dry-run:"

	// EmptyDescription stands in for a missing event description
	EmptyDescription = "—"
)
