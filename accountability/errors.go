package accountability

import "github.com/pkg/errors"

// Open-time input invariant errors (§6, §7 InputInvariant).
var (
	ErrSameBlock = errors.New("accountability: commits target the same block")
	ErrAncestors = errors.New("accountability: one commit's block is an ancestor of the other's")
	ErrSameRound = errors.New("accountability: commits are for the same round")
)

// Session-lifecycle errors.
var (
	ErrUnknownInstance    = errors.New("accountability: no session with this instance id")
	ErrAlreadyTerminated  = errors.New("accountability: session is terminated")
	ErrDeadlineExpired    = errors.New("accountability: query deadline expired with no valid responses")
	ErrInvariantViolation = errors.New("accountability: invariant violation")
)
