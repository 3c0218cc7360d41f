package jobs

import (
	"context"
	"io"
	"iter"
	"strings"

	"golang.org/x/net/html"

	"github.com/churchmedia/pewsync/internal/sources/planningcenter"
	"github.com/churchmedia/pewsync/internal/sources/webflow"
	"github.com/churchmedia/pewsync/pkg/constants"
	"github.com/churchmedia/pewsync/pkg/entity"
	"github.com/churchmedia/pewsync/pkg/identity"
	"github.com/churchmedia/pewsync/pkg/logging"
	"github.com/churchmedia/pewsync/pkg/reconciler"
	"github.com/churchmedia/pewsync/pkg/records"
	"github.com/churchmedia/pewsync/pkg/sources"
)

var eventsJob = Job{
	Name:        "events",
	Description: "Publish upcoming Church Center events",
	Source:      "Planning Center calendar",
	Target:      "Webflow events",
	Policy:      reconciler.PolicyUpsert,
	Requires:    []Service{ServicePlanningCenter, ServiceWebflow},
	plan:        planEvents,
}

func planEvents(env *Env) (*Plan, error) {
	cfg := env.Config
	if err := requireSetting("webflow.events_collection", cfg.Webflow.EventsCollection); err != nil {
		return nil, err
	}
	target := webflow.NewCollection(env.Webflow, "events", cfg.Webflow.EventsCollection)
	pco := env.PlanningCenter

	return &Plan{
		Target: target,
		Feed: sources.FeedFunc{
			FeedName: "planningcenter/events",
			Fn: func(ctx context.Context) iter.Seq2[records.Candidate, error] {
				return eventCandidates(ctx, pco)
			},
		},
		Options: eventOptions(target.KeyFunc()),
	}, nil
}

// eventOptions compares timestamps by instant and keeps Webflow's hosted
// image, since Webflow echoes neither back in the form it was sent.
func eventOptions(keyFn identity.KeyFunc) []reconciler.Option {
	return []reconciler.Option{
		reconciler.WithBulkIndex(keyFn),
		reconciler.WithPolicy(reconciler.PolicyUpsert),
		reconciler.WithComparer("start-date-time", reconciler.SameInstant),
		reconciler.WithComparer("end-date-time", reconciler.SameInstant),
		reconciler.WithComparer("image", reconciler.KeepRemote),
	}
}

type instanceFinder interface {
	Events(ctx context.Context) iter.Seq2[planningcenter.Event, error]
	NextInstance(ctx context.Context, eventID string) (*planningcenter.EventInstance, error)
}

// eventCandidates yields visible events that have an upcoming instance.
func eventCandidates(ctx context.Context, pco instanceFinder) iter.Seq2[records.Candidate, error] {
	return func(yield func(records.Candidate, error) bool) {
		logger := logging.FromContext(ctx)
		for ev, err := range pco.Events(ctx) {
			if err != nil {
				yield(records.Candidate{}, err)
				return
			}
			if !ev.VisibleInChurchCenter {
				continue
			}
			inst, err := pco.NextInstance(ctx, ev.ID)
			if err != nil {
				yield(records.Candidate{}, err)
				return
			}
			if inst == nil {
				logger.Debug().Str("event", ev.Name).Msg("No upcoming instance")
				continue
			}
			if !yield(EventCandidate(ev, inst), nil) {
				return
			}
		}
	}
}

// EventSlug is the slug of name joined with the date part of startsAt.
func EventSlug(name, startsAt string) string {
	date, _, _ := strings.Cut(startsAt, "T")
	return entity.Slugify(name+"-"+date, "")
}

// EventCandidate maps an event and its next instance to a Webflow event item.
func EventCandidate(ev planningcenter.Event, inst *planningcenter.EventInstance) records.Candidate {
	slug := EventSlug(ev.Name, inst.StartsAtRaw)
	key := records.IDKey(slug)
	if strings.TrimSpace(ev.Name) == "" {
		key = ""
	}
	return records.Candidate{
		Key: key,
		Fields: records.NewFields(
			"name", ev.Name,
			"slug", slug,
			"start-date-time", inst.StartsAtRaw,
			"end-date-time", inst.EndsAtRaw,
			"location", inst.Location,
			"description", CleanDescription(ev.Description),
			"short-description", ev.Summary,
			"image", ev.ImageURL,
			"rsvp-link", inst.ChurchCenterURL,
		),
	}
}

// CleanDescription flattens event HTML to text. Line breaks become
// newlines and links keep their target after the link text. An empty
// description becomes a dash.
func CleanDescription(s string) string {
	if s == "" {
		return constants.EmptyDescription
	}
	var b strings.Builder
	var href string
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				logging.Debug().Err(z.Err()).Msg("Malformed event description")
			}
			return strings.TrimSpace(b.String())
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.Data {
			case "br":
				b.WriteByte('\n')
			case "a":
				for _, attr := range tok.Attr {
					if attr.Key == "href" {
						href = attr.Val
					}
				}
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) == "a" && href != "" {
				b.WriteString(" (" + href + ")")
				href = ""
			}
		}
	}
}
