package planningcenter

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/churchmedia/pewsync/pkg/paginate"
	"github.com/churchmedia/pewsync/pkg/records"
)

// Resource is a JSON:API resource object.
type Resource struct {
	Type          string                  `json:"type"`
	ID            string                  `json:"id"`
	Attributes    records.Fields          `json:"attributes"`
	Relationships map[string]Relationship `json:"relationships,omitempty"`

	included map[string]Resource
}

// Related returns the id of the to-one relationship rel.
func (r Resource) Related(rel string) (ResourceRef, bool) {
	ref, ok := r.Relationships[rel]
	if !ok || ref.Data == nil {
		return ResourceRef{}, false
	}
	return *ref.Data, true
}

// Include returns the included resource the relationship rel points to.
func (r Resource) Include(rel string) (Resource, bool) {
	ref, ok := r.Related(rel)
	if !ok {
		return Resource{}, false
	}
	inc, ok := r.included[includeKey(ref.Type, ref.ID)]
	return inc, ok
}

func includeKey(typ, id string) string { return typ + "/" + id }

// ResourceRef identifies a resource.
type ResourceRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Relationship is a relationship object. To-many data is ignored.
type Relationship struct {
	Data *ResourceRef `json:"-"`
}

// UnmarshalJSON accepts to-one, null and to-many data.
func (r *Relationship) UnmarshalJSON(data []byte) error {
	var raw struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d := bytes.TrimSpace(raw.Data)
	if len(d) == 0 || d[0] != '{' {
		r.Data = nil
		return nil
	}
	var ref ResourceRef
	if err := json.Unmarshal(d, &ref); err != nil {
		return err
	}
	r.Data = &ref
	return nil
}

// Document is a JSON:API list document.
type Document struct {
	Data     []Resource `json:"data"`
	Included []Resource `json:"included"`
	paginate.Envelope
}

// Person is the subset of a Planning Center person used downstream.
type Person struct {
	ID              string
	FirstName       string
	LastName        string
	Name            string
	Email           string
	Gender          string
	Membership      string
	Avatar          string
	DirectoryStatus string
	Status          string
	CreatedAt       string
	UpdatedAt       string
}

func personFrom(r Resource) *Person {
	a := r.Attributes
	return &Person{
		ID:              r.ID,
		FirstName:       a.String("first_name"),
		LastName:        a.String("last_name"),
		Name:            a.String("name"),
		Email:           a.String("login_identifier"),
		Gender:          a.String("gender"),
		Membership:      a.String("membership"),
		Avatar:          a.String("avatar"),
		DirectoryStatus: a.String("directory_status"),
		Status:          a.String("status"),
		CreatedAt:       a.String("created_at"),
		UpdatedAt:       a.String("updated_at"),
	}
}

// Submission is one form submission with its answers keyed by form field id.
type Submission struct {
	ID        string
	CreatedAt string
	Person    *Person // nil when the submission has no person
	Values    map[string]string
}

// Event is a calendar event.
type Event struct {
	ID                    string
	Name                  string
	Summary               string
	Description           string
	ImageURL              string
	VisibleInChurchCenter bool
}

func eventFrom(r Resource) Event {
	visible, _ := r.Attributes.Get("visible_in_church_center")
	v, _ := visible.(bool)
	return Event{
		ID:                    r.ID,
		Name:                  r.Attributes.String("name"),
		Summary:               r.Attributes.String("summary"),
		Description:           r.Attributes.String("description"),
		ImageURL:              r.Attributes.String("image_url"),
		VisibleInChurchCenter: v,
	}
}

// EventInstance is one occurrence of an event.
type EventInstance struct {
	ID              string
	StartsAt        time.Time
	EndsAt          time.Time
	Location        string
	ChurchCenterURL string

	// Raw timestamps as sent, used for display and slugs.
	StartsAtRaw string
	EndsAtRaw   string
}
