package jobs

import (
	"context"
	"iter"

	"github.com/churchmedia/pewsync/internal/sources/webflow"
	"github.com/churchmedia/pewsync/pkg/identity"
	"github.com/churchmedia/pewsync/pkg/reconciler"
	"github.com/churchmedia/pewsync/pkg/records"
	"github.com/churchmedia/pewsync/pkg/sources"
)

var preachersJob = Job{
	Name:        "preachers",
	Description: "Correct preacher names on sermons",
	Source:      "Webflow sermons",
	Target:      "Webflow sermons",
	Policy:      reconciler.PolicyUpdateOnly,
	Requires:    []Service{ServiceWebflow},
	plan:        planPreachers,
}

func planPreachers(env *Env) (*Plan, error) {
	cfg := env.Config
	if err := requireSetting("webflow.sermons_collection", cfg.Webflow.SermonsCollection); err != nil {
		return nil, err
	}
	sermons := webflow.NewCollection(env.Webflow, "sermons", cfg.Webflow.SermonsCollection)

	return &Plan{
		Target: sermons,
		Feed:   preacherFeed(sermons, sermons.KeyFunc(), cfg.Webflow.PreacherField, cfg.PreacherReplacements),
		Options: []reconciler.Option{
			reconciler.WithBulkIndex(sermons.KeyFunc()),
			reconciler.WithPolicy(reconciler.PolicyUpdateOnly),
		},
	}, nil
}

func preacherFeed(sermons scanner, keyFn identity.KeyFunc, field string, replacements map[string]string) sources.Feed {
	return sources.FeedFunc{
		FeedName: "webflow/sermons/" + field,
		Fn: func(ctx context.Context) iter.Seq2[records.Candidate, error] {
			return func(yield func(records.Candidate, error) bool) {
				for rec, err := range sermons.Scan(ctx) {
					if err != nil {
						yield(records.Candidate{}, err)
						return
					}
					cand, ok := PreacherCandidate(rec, keyFn(rec), field, replacements)
					if !ok {
						continue
					}
					if !yield(cand, nil) {
						return
					}
				}
			}
		},
	}
}

// PreacherCandidate rewrites the preacher field of a sermon when its exact
// text has a replacement.
func PreacherCandidate(rec records.RemoteRecord, key records.NaturalKey, field string, replacements map[string]string) (records.Candidate, bool) {
	current := rec.Fields.String(field)
	if current == "" {
		return records.Candidate{}, false
	}
	replacement, ok := replacements[current]
	if !ok {
		return records.Candidate{}, false
	}
	return records.Candidate{
		Key:      key,
		TargetID: rec.ID,
		Fields:   records.NewFields(field, replacement),
	}, true
}
