package jobs

import (
	"context"
	"iter"
	"slices"
	"strings"

	"github.com/churchmedia/pewsync/internal/sources/planningcenter"
	"github.com/churchmedia/pewsync/internal/sources/supabase"
	"github.com/churchmedia/pewsync/pkg/logging"
	"github.com/churchmedia/pewsync/pkg/reconciler"
	"github.com/churchmedia/pewsync/pkg/records"
	"github.com/churchmedia/pewsync/pkg/sources"
)

// PeopleKeyColumn is the people column holding the Planning Center person id.
const PeopleKeyColumn = "planning_center_id"

var submissionsJob = Job{
	Name:        "submissions",
	Description: "Import connect card submissions and their people",
	Source:      "Planning Center form submissions",
	Target:      "Supabase submissions",
	Policy:      reconciler.PolicyCreateOnly,
	Requires:    []Service{ServicePlanningCenter, ServiceSupabase},
	plan:        planSubmissions,
}

func planSubmissions(env *Env) (*Plan, error) {
	cfg := env.Config
	if err := requireSetting("planning_center.form_id", cfg.PlanningCenter.FormID); err != nil {
		return nil, err
	}
	people := supabase.NewEntityStore(
		supabase.NewTable(env.Supabase, cfg.Supabase.PeopleTable, PeopleKeyColumn), PeopleKeyColumn)
	target := newKnownKeys(supabase.NewTable(env.Supabase, cfg.Supabase.SubmissionsTable, "submission_id"))

	pco := env.PlanningCenter
	formID := cfg.PlanningCenter.FormID
	return &Plan{
		Target: target,
		Feed: sources.FeedFunc{
			FeedName: "planningcenter/forms/" + formID,
			Fn: func(ctx context.Context) iter.Seq2[records.Candidate, error] {
				answers := &answerLoader{
					target: target,
					values: func(ctx context.Context, id string) (map[string]string, error) {
						return pco.SubmissionValues(ctx, formID, id)
					},
				}
				return submissionCandidates(ctx, pco.SubmissionList(ctx, formID), cfg.PlanningCenter, people.Name(), answers)
			},
		},
		Options: []reconciler.Option{
			reconciler.WithPointIndex(),
			reconciler.WithPolicy(reconciler.PolicyCreateOnly),
			reconciler.WithEntityStore(people),
		},
	}, nil
}

// answerLoader fetches the answers of submissions the target does not
// hold yet. Submissions already imported are yielded by key alone.
type answerLoader struct {
	target sources.Collection
	values func(ctx context.Context, submissionID string) (map[string]string, error)
}

// submissionCandidates maps submissions to rows, skipping those without a
// person. With answers set, values are fetched only for new submissions.
func submissionCandidates(ctx context.Context, seq iter.Seq2[planningcenter.Submission, error], cfg PlanningCenterConfig, peopleStore string, answers *answerLoader) iter.Seq2[records.Candidate, error] {
	return func(yield func(records.Candidate, error) bool) {
		for sub, err := range seq {
			if err != nil {
				yield(records.Candidate{}, err)
				return
			}
			if sub.Person == nil || sub.Person.ID == "" {
				logging.FromContext(ctx).Warn().Str("submission_id", sub.ID).Msg("Skipping submission without person")
				continue
			}
			if answers != nil && sub.Values == nil {
				key := records.IDKey(sub.ID)
				existing, err := answers.target.ExistsByKey(ctx, key)
				if err != nil {
					yield(records.Candidate{}, err)
					return
				}
				if existing != nil {
					if !yield(records.Candidate{Key: key}, nil) {
						return
					}
					continue
				}
				if sub.Values, err = answers.values(ctx, sub.ID); err != nil {
					yield(records.Candidate{}, err)
					return
				}
			}
			cand, _ := SubmissionCandidate(sub, cfg, peopleStore)
			if !yield(cand, nil) {
				return
			}
		}
	}
}

// knownKeys memoizes existence answers so the feed and the driver ask
// the target once per key. It is owned by one run.
type knownKeys struct {
	sources.Collection
	found map[records.NaturalKey]*records.RemoteRecord
}

func newKnownKeys(c sources.Collection) *knownKeys {
	return &knownKeys{Collection: c, found: make(map[records.NaturalKey]*records.RemoteRecord)}
}

// ExistsByKey asks the wrapped collection about key once.
func (k *knownKeys) ExistsByKey(ctx context.Context, key records.NaturalKey) (*records.RemoteRecord, error) {
	if rec, ok := k.found[key]; ok {
		return rec, nil
	}
	rec, err := k.Collection.ExistsByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	k.found[key] = rec
	return rec, nil
}

// SubmissionCandidate maps one submission to a submissions row whose
// person_id references the people store. It reports false when the
// submission has no person.
func SubmissionCandidate(sub planningcenter.Submission, cfg PlanningCenterConfig, peopleStore string) (records.Candidate, bool) {
	if sub.Person == nil || sub.Person.ID == "" {
		return records.Candidate{}, false
	}

	fields := records.NewFields("submission_id", sub.ID)
	for _, fieldID := range sortedKeys(cfg.FormFields) {
		column := cfg.FormFields[fieldID]
		value, ok := sub.Values[fieldID]
		switch {
		case slices.Contains(cfg.BooleanFields, column):
			fields = fields.Set(column, ok && strings.ToLower(strings.TrimSpace(value)) == "true")
		case ok:
			fields = fields.Set(column, value)
		default:
			fields = fields.Set(column, nil)
		}
	}
	fields = fields.Set("created_at", sub.CreatedAt)

	return records.Candidate{
		Key:    records.IDKey(sub.ID),
		Fields: fields,
		Refs: []records.Reference{{
			Field:      "person_id",
			Store:      peopleStore,
			Name:       sub.Person.ID,
			Attributes: PersonRow(sub.Person),
		}},
	}, true
}

// PersonRow maps a Planning Center person to a people row. The row id and
// planning_center_id are filled by the store.
func PersonRow(p *planningcenter.Person) records.Fields {
	return records.NewFields(
		"first_name", p.FirstName,
		"last_name", p.LastName,
		"full_name", p.Name,
		"email", nullable(p.Email),
		"gender", nullable(p.Gender),
		"membership_status", nullable(p.Membership),
		"avatar_url", nullable(p.Avatar),
		"directory_status", nullable(p.DirectoryStatus),
		"status", nullable(p.Status),
		"created_at", nullable(p.CreatedAt),
		"updated_at", nullable(p.UpdatedAt),
	)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
