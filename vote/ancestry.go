package vote

// AncestryPredicate is the external block-tree collaborator named in
// §4.1: a total, pure function over block numbers. The core never
// constructs one itself; it receives one at session-open time from the
// detector that already resolved the two conflicting commits.
type AncestryPredicate interface {
	// IsAncestor reports whether b is an ancestor of, or equal to, other.
	IsAncestor(b, other BlockNumber) bool
}

// AncestryFunc adapts a plain function to AncestryPredicate, the way this
// codebase's lineage adapts bare funcs to single-method collaborator
// interfaces (see blockchain.Synchronizer callers).
type AncestryFunc func(b, other BlockNumber) bool

func (f AncestryFunc) IsAncestor(b, other BlockNumber) bool {
	return f(b, other)
}

// Unrelated reports whether neither block is an ancestor of the other,
// the precondition Registry.Open enforces on the two conflicting blocks
// (invariant 1).
func Unrelated(pred AncestryPredicate, a, b BlockNumber) bool {
	return !pred.IsAncestor(a, b) && !pred.IsAncestor(b, a)
}
