// Package projector narrows a write payload to the fields a remote schema
// currently accepts.
package projector

import "github.com/churchmedia/pewsync/pkg/records"

// Project returns the candidate fields present in schema, in candidate
// order, and the names of the fields it dropped, also in candidate order.
// It never fails and never modifies candidate.
func Project(candidate records.Fields, schema records.SchemaFieldSet) (records.Fields, []string) {
	accepted := make(records.Fields, 0, len(candidate))
	var dropped []string
	for _, f := range candidate {
		if schema.Has(f.Name) {
			accepted = append(accepted, f)
			continue
		}
		dropped = append(dropped, f.Name)
	}
	return accepted, dropped
}
