package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/churchmedia/pewsync/internal/jobs"
	"github.com/churchmedia/pewsync/pkg/errors"
)

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Output  string

	// Config file
	ConfigFile string

	// Credentials
	WebflowToken         string
	PlanningCenterAppID  string
	PlanningCenterSecret string
	SupabaseURL          string
	SupabaseKey          string

	// Run defaults
	DryRun bool

	// Job configuration (collection ids, field mappings, replacements)
	Jobs *jobs.Config

	// Logging configuration
	LogLevel    string // from --log-level
	EnvLogLevel string // from LOG_LEVEL
	LogFormat   string
	LogOutput   string
}

// envBindings maps config keys to the environment variables the sync
// scripts have always read.
var envBindings = map[string]string{
	"webflow_token":               "WEBFLOW_TOKEN",
	"pco_app_id":                  "PCO_APP_ID",
	"pco_secret":                  "PCO_SECRET",
	"supabase_url":                "SUPABASE_URL",
	"supabase_service_role_key":   "SUPABASE_SERVICE_ROLE_KEY",
	"dry_run":                     "DRY_RUN",
	"sermons_file":                "SERMONS_FILE",
	"webflow.sermons_collection":  "COLLECTION_ID",
	"webflow.speakers_collection": "SPEAKERS_COLLECTION_ID",
	"webflow.events_collection":   "EVENTS_COLLECTION_ID",
	"planning_center.form_id":     "PCO_FORM_ID",
	"supabase.submissions_table":  "SUPABASE_SUBMISSIONS_TABLE",
	"supabase.people_table":       "SUPABASE_PEOPLE_TABLE",
	"planning_center.max_pages":   "PCO_MAX_PAGES",
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Config file (configFile, or ~/.pewsync.yaml, or ./.pewsync.yaml)
// 5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	bindEnv(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".pewsync")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, errors.NewConfigError("config", "cannot read config file", err)
		}
	}

	jobCfg, err := loadJobConfig(v)
	if err != nil {
		return nil, err
	}

	return &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no-color"),
		Output:  v.GetString("output"),

		ConfigFile: v.ConfigFileUsed(),

		WebflowToken:         v.GetString("webflow_token"),
		PlanningCenterAppID:  v.GetString("pco_app_id"),
		PlanningCenterSecret: v.GetString("pco_secret"),
		SupabaseURL:          v.GetString("supabase_url"),
		SupabaseKey:          v.GetString("supabase_service_role_key"),

		DryRun: v.GetBool("dry_run"),
		Jobs:   jobCfg,

		EnvLogLevel: os.Getenv("LOG_LEVEL"),
		LogFormat:   getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput:   getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}, nil
}

// loadJobConfig overlays the config file sections and env overrides on the
// default job configuration.
func loadJobConfig(v *viper.Viper) (*jobs.Config, error) {
	cfg := jobs.DefaultConfig()

	sections := map[string]any{
		"webflow":         &cfg.Webflow,
		"planning_center": &cfg.PlanningCenter,
		"supabase":        &cfg.Supabase,
	}
	for key, target := range sections {
		if !v.IsSet(key) {
			continue
		}
		if err := v.UnmarshalKey(key, target); err != nil {
			return nil, errors.NewConfigError("config", "invalid "+key+" section", err)
		}
	}

	// Nested keys bound to env vars are not merged by UnmarshalKey.
	override(&cfg.Webflow.SermonsCollection, v.GetString("webflow.sermons_collection"))
	override(&cfg.Webflow.SpeakersCollection, v.GetString("webflow.speakers_collection"))
	override(&cfg.Webflow.EventsCollection, v.GetString("webflow.events_collection"))
	override(&cfg.PlanningCenter.FormID, v.GetString("planning_center.form_id"))
	override(&cfg.Supabase.SubmissionsTable, v.GetString("supabase.submissions_table"))
	override(&cfg.Supabase.PeopleTable, v.GetString("supabase.people_table"))
	override(&cfg.SermonsFile, v.GetString("sermons_file"))
	if v.IsSet("planning_center.max_pages") {
		cfg.PlanningCenter.MaxPages = v.GetInt("planning_center.max_pages")
	}

	if v.IsSet("preacher_replacements") {
		replacements, err := parseReplacements(v.Get("preacher_replacements"))
		if err != nil {
			return nil, err
		}
		cfg.PreacherReplacements = replacements
	}
	return cfg, nil
}

// parseReplacements reads a list of {from, to} pairs. A list is used
// because viper lowercases map keys and replacements match exact text.
func parseReplacements(raw any) (map[string]string, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, errors.NewConfigError("config", "preacher_replacements must be a list of {from, to} pairs", nil)
	}
	out := make(map[string]string, len(items))
	for i, item := range items {
		pair, ok := item.(map[string]any)
		if !ok {
			return nil, errors.NewConfigError("config", fmt.Sprintf("preacher_replacements[%d] is not a mapping", i), nil)
		}
		from, _ := pair["from"].(string)
		to, _ := pair["to"].(string)
		if from == "" || to == "" {
			return nil, errors.NewConfigError("config", fmt.Sprintf("preacher_replacements[%d] needs from and to", i), nil)
		}
		out[from] = to
	}
	return out, nil
}

func override(field *string, value string) {
	if value != "" {
		*field = value
	}
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, output, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if output != "" {
		c.Output = output
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads environment variables from .env files.
// .env.local is loaded first so its values win; godotenv never overrides
// variables that are already set.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

// bindEnv explicitly binds the credential and id variables to Viper.
func bindEnv(v *viper.Viper) {
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			// Log warning but continue - this isn't critical
			fmt.Fprintf(os.Stderr, "Warning: failed to bind environment variable %s: %v\n", env, err)
		}
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
