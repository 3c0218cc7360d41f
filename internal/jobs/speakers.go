package jobs

import (
	"context"
	"iter"

	"github.com/churchmedia/pewsync/internal/sources/webflow"
	"github.com/churchmedia/pewsync/pkg/entity"
	"github.com/churchmedia/pewsync/pkg/identity"
	"github.com/churchmedia/pewsync/pkg/reconciler"
	"github.com/churchmedia/pewsync/pkg/records"
	"github.com/churchmedia/pewsync/pkg/sources"
)

var speakersJob = Job{
	Name:        "speakers",
	Description: "Link sermons to speaker items using their preacher text",
	Source:      "Webflow sermons",
	Target:      "Webflow sermons",
	Policy:      reconciler.PolicyFillEmpty,
	Requires:    []Service{ServiceWebflow},
	plan:        planSpeakers,
}

type scanner interface {
	Scan(ctx context.Context) iter.Seq2[records.RemoteRecord, error]
}

func planSpeakers(env *Env) (*Plan, error) {
	cfg := env.Config.Webflow
	if err := requireSetting("webflow.sermons_collection", cfg.SermonsCollection); err != nil {
		return nil, err
	}
	if err := requireSetting("webflow.speakers_collection", cfg.SpeakersCollection); err != nil {
		return nil, err
	}
	sermons := webflow.NewCollection(env.Webflow, "sermons", cfg.SermonsCollection)
	speakers := webflow.NewEntityStore(webflow.NewCollection(env.Webflow, "speakers", cfg.SpeakersCollection), "name")

	return &Plan{
		Target: sermons,
		Feed:   speakerFeed(sermons, sermons.KeyFunc(), cfg, speakers.Name()),
		Options: []reconciler.Option{
			reconciler.WithBulkIndex(sermons.KeyFunc()),
			reconciler.WithPolicy(reconciler.PolicyFillEmpty),
			reconciler.WithEntityStore(speakers, entity.WithPlaceholder(cfg.SpeakerSlug)),
		},
	}, nil
}

func speakerFeed(sermons scanner, keyFn identity.KeyFunc, cfg WebflowConfig, store string) sources.Feed {
	return sources.FeedFunc{
		FeedName: "webflow/sermons/" + cfg.PreacherField,
		Fn: func(ctx context.Context) iter.Seq2[records.Candidate, error] {
			return func(yield func(records.Candidate, error) bool) {
				for rec, err := range sermons.Scan(ctx) {
					if err != nil {
						yield(records.Candidate{}, err)
						return
					}
					cand, ok := SpeakerCandidate(rec, keyFn(rec), cfg, store)
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

// SpeakerCandidate asks for the speaker reference of a sermon to be filled
// from its preacher text. Sermons without preacher text are left out.
func SpeakerCandidate(rec records.RemoteRecord, key records.NaturalKey, cfg WebflowConfig, store string) (records.Candidate, bool) {
	preacher := records.NormalizeName(rec.Fields.String(cfg.PreacherField))
	if preacher == "" {
		return records.Candidate{}, false
	}
	return records.Candidate{
		Key:      key,
		TargetID: rec.ID,
		Refs: []records.Reference{{
			Field: cfg.SpeakerField,
			Store: store,
			Name:  preacher,
		}},
	}, true
}
