package jobs

import (
	"strings"

	"github.com/churchmedia/pewsync/internal/sources/local"
	"github.com/churchmedia/pewsync/internal/sources/webflow"
	"github.com/churchmedia/pewsync/pkg/entity"
	"github.com/churchmedia/pewsync/pkg/reconciler"
	"github.com/churchmedia/pewsync/pkg/records"
)

var sermonsJob = Job{
	Name:        "sermons",
	Description: "Publish sermons from the media pipeline output",
	Source:      "sermons file (YAML or JSON)",
	Target:      "Webflow sermons",
	Policy:      reconciler.PolicyUpsert,
	Requires:    []Service{ServiceLocal, ServiceWebflow},
	plan:        planSermons,
}

func planSermons(env *Env) (*Plan, error) {
	cfg := env.Config
	if err := requireSetting("sermons_file", cfg.SermonsFile); err != nil {
		return nil, err
	}
	if err := requireSetting("webflow.sermons_collection", cfg.Webflow.SermonsCollection); err != nil {
		return nil, err
	}
	sermons := webflow.NewCollection(env.Webflow, "sermons", cfg.Webflow.SermonsCollection)

	opts := []reconciler.Option{
		reconciler.WithBulkIndex(sermons.KeyFunc()),
		reconciler.WithPolicy(reconciler.PolicyUpsert),
	}
	speakerStore := ""
	if cfg.Webflow.SpeakersCollection != "" {
		speakers := webflow.NewEntityStore(webflow.NewCollection(env.Webflow, "speakers", cfg.Webflow.SpeakersCollection), "name")
		speakerStore = speakers.Name()
		opts = append(opts, reconciler.WithEntityStore(speakers, entity.WithPlaceholder(cfg.Webflow.SpeakerSlug)))
	}

	mapper := func(row records.Fields) records.Candidate {
		return SermonCandidate(row, cfg.Webflow, speakerStore)
	}
	return &Plan{
		Target:  sermons,
		Feed:    local.New("sermons", mapper, local.WithPath(cfg.SermonsFile)),
		Options: opts,
	}, nil
}

// SermonSlug joins title and date into a slug.
func SermonSlug(title, date string) string {
	return entity.Slugify(title+"-"+date, "")
}

// SermonCandidate maps a pipeline row (title, preacher, passage, date and
// media links) to a sermon item. A row without a title has no key.
// With an empty speakerStore no speaker reference is requested.
func SermonCandidate(row records.Fields, cfg WebflowConfig, speakerStore string) records.Candidate {
	title := strings.TrimSpace(row.String("title"))
	preacher := records.NormalizeName(row.String("preacher"))
	passage := strings.TrimSpace(row.String("passage"))
	slug := SermonSlug(title, row.String("date"))

	fields := records.NewFields(
		"name", title,
		"slug", slug,
		"description", passage+" | "+preacher,
		"vimeo-url", row.String("vimeo_url"),
		"spreaker-url", row.String("spreaker_url"),
		"thumbnail-url", row.String("thumbnail_url"),
	)
	if preacher != "" {
		fields = fields.Set(cfg.PreacherField, preacher)
	}

	cand := records.Candidate{Key: records.IDKey(slug), Fields: fields}
	if title == "" {
		cand.Key = ""
	}
	if preacher != "" && speakerStore != "" {
		cand.Refs = []records.Reference{{Field: cfg.SpeakerField, Store: speakerStore, Name: preacher}}
	}
	return cand
}
