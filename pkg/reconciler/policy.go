package reconciler

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/churchmedia/pewsync/pkg/records"
)

// Policy decides what happens to a candidate whose key already exists.
type Policy string

const (
	// PolicyCreateOnly skips existing keys.
	PolicyCreateOnly Policy = "create-only"
	// PolicyUpsert updates existing keys with the fields whose value changed.
	PolicyUpsert Policy = "upsert"
	// PolicyFillEmpty updates existing keys only where the remote field is empty.
	PolicyFillEmpty Policy = "fill-empty"
	// PolicyUpdateOnly behaves like PolicyUpsert but fails keys that do not exist.
	PolicyUpdateOnly Policy = "update-only"
)

// Policies lists every supported policy.
var Policies = []Policy{PolicyCreateOnly, PolicyUpsert, PolicyFillEmpty, PolicyUpdateOnly}

// String returns the policy identifier.
func (p Policy) String() string { return string(p) }

// Name returns a human readable name.
func (p Policy) Name() string {
	words := strings.Split(p.String(), "-")
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}

// ParsePolicy parses a policy identifier.
func ParsePolicy(s string) (Policy, error) {
	for _, p := range Policies {
		if string(p) == strings.ToLower(strings.TrimSpace(s)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown policy %q", s)
}

// creates reports whether a missing key may be created.
func (p Policy) creates() bool { return p != PolicyUpdateOnly }

// updates reports whether an existing key may be updated.
func (p Policy) updates() bool { return p != PolicyCreateOnly }

// changes returns the subset of incoming that should be written over remote.
// comparers override value equality per field.
func (p Policy) changes(remote, incoming records.Fields, comparers map[string]Comparer) records.Fields {
	var out records.Fields
	for _, f := range incoming {
		current, ok := remote.Get(f.Name)
		switch p {
		case PolicyFillEmpty:
			if ok && !isEmpty(current) {
				continue
			}
			if isEmpty(f.Value) {
				continue
			}
		default:
			same := sameValue
			if eq, found := comparers[f.Name]; found {
				same = eq
			}
			if ok && same(current, f.Value) {
				continue
			}
		}
		out = append(out, f)
	}
	return out
}

var equateEmpty = cmpopts.EquateEmpty()

// sameValue compares two field values after a JSON round trip so that
// numeric types and nested containers from different decoders compare equal.
func sameValue(a, b any) bool {
	return cmp.Equal(normalize(a), normalize(b), equateEmpty)
}

func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

func isEmpty(v any) bool {
	switch t := normalize(v).(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}
