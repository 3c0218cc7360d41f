package reconciler

import (
	"strings"
	"time"
)

// Comparer reports whether the remote value already reflects the incoming
// one, in which case the field is not written.
type Comparer func(remote, incoming any) bool

// SameInstant compares timestamps by the instant they name, so
// "2024-06-07T18:00:00Z" and "2024-06-07T18:00:00.000Z" are equal. Values
// that are not RFC 3339 strings fall back to plain value equality.
func SameInstant(remote, incoming any) bool {
	a, okA := instant(remote)
	b, okB := instant(incoming)
	if okA && okB {
		return a.Equal(b)
	}
	return sameValue(remote, incoming)
}

// KeepRemote treats any non-empty remote value as current. Remotes that
// re-host uploads (images, files) never echo the incoming value back.
func KeepRemote(remote, incoming any) bool {
	return !isEmpty(remote) || isEmpty(incoming)
}

func instant(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	return t, err == nil
}
