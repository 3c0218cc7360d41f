package records

import "sort"

// RemoteRecord is a locally cached copy of a record owned by a remote collection.
type RemoteRecord struct {
	ID       string `json:"id"`
	Fields   Fields `json:"fields"`
	Draft    bool   `json:"draft,omitempty"`
	Archived bool   `json:"archived,omitempty"`
}

// SchemaFieldSet is the set of field names a remote collection currently accepts.
type SchemaFieldSet struct {
	names map[string]struct{}
}

// NewSchema builds a SchemaFieldSet from field names.
func NewSchema(names ...string) SchemaFieldSet {
	s := SchemaFieldSet{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		if n != "" {
			s.names[n] = struct{}{}
		}
	}
	return s
}

// Has reports whether the schema accepts name.
func (s SchemaFieldSet) Has(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Len returns the number of accepted field names.
func (s SchemaFieldSet) Len() int { return len(s.names) }

// Names returns the accepted field names sorted.
func (s SchemaFieldSet) Names() []string {
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Reference asks for Field to be filled with the id of the entity Name in
// Store, creating it with Attributes when absent.
type Reference struct {
	Field      string
	Store      string
	Name       string
	Attributes Fields
}

// Candidate is one incoming record from a source feed.
// TargetID optionally pins the remote record to update.
type Candidate struct {
	Key      NaturalKey
	TargetID string
	Fields   Fields
	Refs     []Reference
}

// EntityDraft describes a referenced entity to create.
type EntityDraft struct {
	Name   string
	Slug   string
	Fields Fields
}
