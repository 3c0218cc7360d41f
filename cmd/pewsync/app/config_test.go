package app

import (
	"os"
	"path/filepath"
	"testing"
)

// TestLoadConfig verifies basic config loading.
func TestLoadConfig(t *testing.T) {
	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if config == nil {
		t.Fatal("LoadConfig() returned nil config")
	}
	if config.LogFormat == "" {
		t.Error("LogFormat not set to default")
	}
	if config.Jobs == nil || config.Jobs.Webflow.PreacherField != "preacher-2" {
		t.Error("job defaults not applied")
	}
}

// TestConfig_Credentials verifies the credential environment variables.
func TestConfig_Credentials(t *testing.T) {
	t.Setenv("WEBFLOW_TOKEN", "wf-token")
	t.Setenv("PCO_APP_ID", "app")
	t.Setenv("PCO_SECRET", "secret")
	t.Setenv("SUPABASE_URL", "https://project.supabase.co")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service-key")
	t.Setenv("DRY_RUN", "true")

	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config.WebflowToken != "wf-token" {
		t.Errorf("WebflowToken = %q, want wf-token", config.WebflowToken)
	}
	if config.PlanningCenterAppID != "app" || config.PlanningCenterSecret != "secret" {
		t.Errorf("Planning Center credentials = %q/%q", config.PlanningCenterAppID, config.PlanningCenterSecret)
	}
	if config.SupabaseURL != "https://project.supabase.co" || config.SupabaseKey != "service-key" {
		t.Errorf("Supabase credentials = %q/%q", config.SupabaseURL, config.SupabaseKey)
	}
	if !config.DryRun {
		t.Error("DRY_RUN not loaded")
	}
}

// TestConfig_CollectionOverrides verifies the collection id variables.
func TestConfig_CollectionOverrides(t *testing.T) {
	t.Setenv("COLLECTION_ID", "sermons-env")
	t.Setenv("SPEAKERS_COLLECTION_ID", "speakers-env")

	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if got := config.Jobs.Webflow.SermonsCollection; got != "sermons-env" {
		t.Errorf("SermonsCollection = %s, want sermons-env", got)
	}
	if got := config.Jobs.Webflow.SpeakersCollection; got != "speakers-env" {
		t.Errorf("SpeakersCollection = %s, want speakers-env", got)
	}
}

// TestConfig_File verifies config file sections.
func TestConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pewsync.yaml")
	content := `
webflow:
  events_collection: events-123
  speaker_slug: guest
planning_center:
  form_id: "999"
  max_pages: 3
supabase:
  people_table: members
sermons_file: /data/sermons.yaml
preacher_replacements:
  - from: Pastor Dan
    to: Dan Smith
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	jobs := config.Jobs
	if jobs.Webflow.EventsCollection != "events-123" {
		t.Errorf("EventsCollection = %s", jobs.Webflow.EventsCollection)
	}
	if jobs.Webflow.SpeakerSlug != "guest" {
		t.Errorf("SpeakerSlug = %s", jobs.Webflow.SpeakerSlug)
	}
	if jobs.Webflow.PreacherField != "preacher-2" {
		t.Errorf("PreacherField default lost: %s", jobs.Webflow.PreacherField)
	}
	if jobs.PlanningCenter.FormID != "999" || jobs.PlanningCenter.MaxPages != 3 {
		t.Errorf("PlanningCenter = %+v", jobs.PlanningCenter)
	}
	if jobs.Supabase.PeopleTable != "members" || jobs.Supabase.SubmissionsTable != "submissions" {
		t.Errorf("Supabase = %+v", jobs.Supabase)
	}
	if jobs.SermonsFile != "/data/sermons.yaml" {
		t.Errorf("SermonsFile = %s", jobs.SermonsFile)
	}
	if got := jobs.PreacherReplacements; len(got) != 1 || got["Pastor Dan"] != "Dan Smith" {
		t.Errorf("PreacherReplacements = %v", got)
	}
}

// TestConfig_FileErrors verifies that an explicit config file must load.
func TestConfig_FileErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("preacher_replacements:\n  Shamus: Shamus Drake\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for map-shaped preacher_replacements")
	}
}

// TestConfig_LoggingOptions verifies logging configuration.
func TestConfig_LoggingOptions(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_OUTPUT", "stdout")

	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config.EnvLogLevel != "debug" {
		t.Errorf("EnvLogLevel = %s, want debug", config.EnvLogLevel)
	}
	if config.LogFormat != "json" {
		t.Errorf("LogFormat = %s, want json", config.LogFormat)
	}
	if config.LogOutput != "stdout" {
		t.Errorf("LogOutput = %s, want stdout", config.LogOutput)
	}
}
