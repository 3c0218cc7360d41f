// Package emoji provides symbol constants for CLI output.
// These symbols create a consistent visual language across all command-line commands.
package emoji

// Symbol constants for CLI output provide a consistent visual language across commands.
const (
	// Success represents a job that completed and wrote (or would write) changes.
	Success = "✓"

	// Error represents an aborted job or a job that could not start.
	Error = "✗"

	// Warning represents a completed job with failed records or ambiguous names.
	Warning = "!"

	// Optional represents a job that found nothing to change.
	Optional = "-"

	// Unknown represents an indeterminate outcome.
	Unknown = "?"

	// Info represents informational messages.
	Info = "i"
)
