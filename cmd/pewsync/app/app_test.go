package app

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churchmedia/pewsync"
	"github.com/churchmedia/pewsync/internal/cmd/application"
	"github.com/churchmedia/pewsync/internal/jobs"
)

func newTestApp(t *testing.T, opts ...Option) *App {
	t.Helper()
	app, err := New("1.0.0", "abc123", "2026-01-01", "test", opts...)
	require.NoError(t, err)
	return app
}

// TestApp_New verifies app initialization.
func TestApp_New(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, "1.0.0", app.Version())
	assert.Equal(t, "abc123", app.Commit())
	assert.Equal(t, "2026-01-01", app.Date())
	assert.Equal(t, "test", app.BuiltBy())
	assert.NotNil(t, app.Logger())
	assert.NotNil(t, app.Config())
	assert.NotNil(t, app.JobConfig())
}

// TestApp_Syncer_Singleton verifies that Syncer() returns the same instance.
func TestApp_Syncer_Singleton(t *testing.T) {
	app := newTestApp(t, WithConfig(&Config{WebflowToken: "tok"}))

	s1, err := app.Syncer()
	require.NoError(t, err)
	s2, err := app.Syncer()
	require.NoError(t, err)
	assert.Same(t, s1, s2)

	custom, err := app.Syncer(pewsync.WithWebflowBaseURL("http://localhost"))
	require.NoError(t, err)
	assert.NotSame(t, s1, custom)
}

// TestApp_SyncerOptions verifies half-configured credentials are rejected.
func TestApp_SyncerOptions(t *testing.T) {
	app := newTestApp(t, WithConfig(&Config{PlanningCenterAppID: "app"}))
	_, err := app.Syncer()
	assert.Error(t, err)
}

// TestApp_Execute verifies command wiring through the root command.
func TestApp_Execute(t *testing.T) {
	stub := &application.SyncerStub{JobList: []pewsync.JobInfo{{Name: "events"}}}
	app := newTestApp(t, WithConfig(&Config{Jobs: jobs.DefaultConfig()}), WithSyncer(stub))

	root := app.createRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"jobs", "-o", "json"})
	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), `"name": "events"`)
	assert.Equal(t, "json", app.Flags().Output)

	out.Reset()
	root = app.createRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"sync", "events", "--dry-run"})
	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Equal(t, []string{"events"}, stub.Calls)
	assert.True(t, stub.Options[0].DryRun)
}

// TestApp_Version verifies the version command output.
func TestApp_Version(t *testing.T) {
	app := newTestApp(t)
	root := app.createRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version", "-v"})
	require.NoError(t, root.ExecuteContext(context.Background()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, "pewsync 1.0.0", lines[0])
	assert.Contains(t, out.String(), "commit:   abc123")
}
