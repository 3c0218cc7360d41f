package jobs

import (
	"github.com/churchmedia/pewsync/pkg/constants"
	"github.com/churchmedia/pewsync/pkg/errors"
)

// Config holds the ids, field names and mappings the jobs run with.
// Defaults reproduce the church's current setup.
type Config struct {
	Webflow        WebflowConfig        `mapstructure:"webflow" yaml:"webflow" json:"webflow"`
	PlanningCenter PlanningCenterConfig `mapstructure:"planning_center" yaml:"planning_center" json:"planning_center"`
	Supabase       SupabaseConfig       `mapstructure:"supabase" yaml:"supabase" json:"supabase"`

	// PreacherReplacements maps exact preacher text to its corrected form.
	PreacherReplacements map[string]string `mapstructure:"preacher_replacements" yaml:"preacher_replacements" json:"preacher_replacements"`

	// SermonsFile is the media pipeline output read by the sermons job.
	SermonsFile string `mapstructure:"sermons_file" yaml:"sermons_file" json:"sermons_file"`
}

// WebflowConfig names the CMS collections and fields.
type WebflowConfig struct {
	SermonsCollection  string `mapstructure:"sermons_collection" yaml:"sermons_collection" json:"sermons_collection"`
	SpeakersCollection string `mapstructure:"speakers_collection" yaml:"speakers_collection" json:"speakers_collection"`
	EventsCollection   string `mapstructure:"events_collection" yaml:"events_collection" json:"events_collection"`
	PreacherField      string `mapstructure:"preacher_field" yaml:"preacher_field" json:"preacher_field"`
	SpeakerField       string `mapstructure:"speaker_field" yaml:"speaker_field" json:"speaker_field"`
	SpeakerSlug        string `mapstructure:"speaker_slug" yaml:"speaker_slug" json:"speaker_slug"`
}

// PlanningCenterConfig names the connect card form and maps its field ids
// to submission columns.
type PlanningCenterConfig struct {
	FormID        string            `mapstructure:"form_id" yaml:"form_id" json:"form_id"`
	FormFields    map[string]string `mapstructure:"form_fields" yaml:"form_fields" json:"form_fields"`
	BooleanFields []string          `mapstructure:"boolean_fields" yaml:"boolean_fields" json:"boolean_fields"`
	MaxPages      int               `mapstructure:"max_pages" yaml:"max_pages" json:"max_pages"` // 0 reads every page
}

// SupabaseConfig names the tables submissions land in.
type SupabaseConfig struct {
	SubmissionsTable string `mapstructure:"submissions_table" yaml:"submissions_table" json:"submissions_table"`
	PeopleTable      string `mapstructure:"people_table" yaml:"people_table" json:"people_table"`
}

// DefaultConfig returns the production configuration. Collection ids other
// than sermons come from the environment.
func DefaultConfig() *Config {
	return &Config{
		Webflow: WebflowConfig{
			SermonsCollection: "6671ed65cb61325256e73270",
			PreacherField:     "preacher-2",
			SpeakerField:      "speaker",
			SpeakerSlug:       "speaker",
		},
		PlanningCenter: PlanningCenterConfig{
			FormID: "167650",
			FormFields: map[string]string{
				"1128354": "submission_date",
				"1128358": "service_time",
				"1128356": "attendance_status",
				"1128357": "welcome_note",
				"1128355": "prayer_request",
				"1128353": "phone_number",
				"5027006": "share_with_elders_only",
			},
			BooleanFields: []string{"share_with_elders_only"},
			MaxPages:      constants.DefaultFormPageLimit,
		},
		Supabase: SupabaseConfig{
			SubmissionsTable: "submissions",
			PeopleTable:      "people",
		},
		PreacherReplacements: map[string]string{
			"Joshua de Koning": "Josh de Koning",
			"Shamus":           "Shamus Drake",
			"Dr Andy Snider":   "Andy Snider",
		},
	}
}

// requireSetting fails with a ConfigError naming setting when value is empty.
func requireSetting(setting, value string) error {
	if value == "" {
		return errors.NewConfigError("jobs", setting+" is not set", nil)
	}
	return nil
}
