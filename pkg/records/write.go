package records

// Op is the kind of remote write.
type Op int

const (
	// OpCreate inserts a new remote record.
	OpCreate Op = iota
	// OpUpdate modifies an existing remote record by id.
	OpUpdate
)

// String returns the lowercase op name.
func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// PendingWrite is a projected write waiting for batch submission.
// It is consumed exactly once.
type PendingWrite struct {
	Key      NaturalKey
	Op       Op
	TargetID string // empty for creates
	Fields   Fields
}

// ItemResult is the per-item outcome of a bulk write call.
// ID is the remote identifier of the created or updated record.
type ItemResult struct {
	ID  string
	Err error
}
