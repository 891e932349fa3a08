// Package accountability implements the Session State and Protocol Driver:
// the per-conflict state machine that walks backward through two
// committees' vote history until it can union together enough votes to
// name equivocators. It supersedes this codebase's hotstuff package the
// way hotstuff.Protocol drove round transitions off Pacer ticks and vote
// quorums - here the driving events are validated query responses and
// tick(now) deadline checks instead of a liveness pacer.
package accountability

import (
	"time"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/op/go-logging"

	"github.com/gagarinchain/accountability/query"
	"github.com/gagarinchain/accountability/vote"
)

var log = logging.MustGetLogger("accountability")

// InstanceID names one conflict-resolution session, derived deterministically
// from the two commits that opened it (see deriveInstanceID) so independent
// observers that see the same conflict agree on its id without coordination.
type InstanceID uint64

// Phase is the SessionPhase from §3/§4.4.
type Phase uint8

const (
	AwaitingFirstQuery Phase = iota
	WalkingBack
	AwaitingStep2
	AwaitingStep3
	Terminated
)

func (p Phase) String() string {
	switch p {
	case AwaitingFirstQuery:
		return "awaiting_first_query"
	case WalkingBack:
		return "walking_back"
	case AwaitingStep2:
		return "awaiting_step2"
	case AwaitingStep3:
		return "awaiting_step3"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// VerdictReason distinguishes how a session reached Terminated, mirroring
// the three terminal causes named across §4.4, §5 and §7.
type VerdictReason uint8

const (
	VerdictEquivocators VerdictReason = iota
	VerdictByzantineTimeout
	VerdictAborted
)

// Verdict is the terminal output of a session.
type Verdict struct {
	Reason       VerdictReason
	Equivocators []vote.VoterID
	Byzantine    []vote.VoterID // addressees blamed for a deadline with zero valid responses
}

// Session is the Session from §3: one conflict instance, its two anchoring
// commits, its phase, its ordered query history and its accumulated
// equivocations. Queries is kept as a treemap ordered by round ascending,
// matching §6's "the map is ordered by round ascending for deterministic
// hashing" requirement - the same ordered-map type rpc/adapter.go already
// pulls in from this pack's dependency set for its own ordered collections.
type Session struct {
	ID InstanceID

	BlockEarlier  vote.BlockNumber
	RoundEarlier  vote.RoundNumber
	CommitEarlier *vote.Commit

	BlockLater  vote.BlockNumber
	RoundLater  vote.RoundNumber
	CommitLater *vote.Commit

	Committee *vote.Committee
	Ancestry  vote.AncestryPredicate

	Phase Phase

	// Queries maps vote.RoundNumber -> *query.State, ordered by round.
	Queries *treemap.Map

	Equivocations []Equivocation
	// ByzantineCandidates records responders whose answer failed semantic
	// validation (§7 SemanticInvalid: "flagged as a candidate Byzantine
	// actor but not (yet) an equivocator").
	ByzantineCandidates map[vote.VoterID]struct{}

	Verdict *Verdict

	// current is the one outstanding query a session is ever waiting on,
	// per the single-threaded cooperative model in §5. It is tracked
	// separately from Queries because round numbers decrease monotonically
	// as the Driver walks backward, so the highest round in Queries is the
	// *first* query ever sent, not the current one; the step-2 and step-3
	// queries additionally share a round number (both at round r), so
	// Queries.Get(r) after the step-3 query is sent returns the step-3
	// state, superseding the already-consumed step-2 entry.
	current *query.State

	// stepTwoPrevotes holds the step-2 prevote response S while the
	// session is AwaitingStep3, so it can be unioned with the step-3
	// response T on arrival (§4.4 AwaitingStep3).
	stepTwoPrevotes vote.VoteSet

	ResponseDeadline time.Duration
	OpenedAt         int64 // unix seconds, supplied by the caller at open
}

func roundComparator(a, b interface{}) int {
	ra, rb := a.(vote.RoundNumber), b.(vote.RoundNumber)
	switch {
	case ra < rb:
		return -1
	case ra > rb:
		return 1
	default:
		return 0
	}
}

func newQueriesMap() *treemap.Map {
	return treemap.NewWith(roundComparator)
}

// currentQuery returns the one QueryState still awaiting resolution.
func (s *Session) currentQuery() *query.State {
	return s.current
}

// dispatch records q as both the session's current outstanding query and
// an entry in the ordered, round-keyed history used for snapshots.
func (s *Session) dispatch(q *query.State) {
	s.Queries.Put(q.Round, q)
	s.current = q
}

// AllAdmittedVotes returns the union of every QueryState's admitted votes
// plus both commits' precommits, the universe an equivocation scan checks
// a newly admitted vote against (§4.3: "across admitted_votes of any query
// and across both commits").
func (s *Session) AllAdmittedVotes() vote.VoteSet {
	all := vote.NewVoteSet()
	if s.stepTwoPrevotes != nil {
		// The step-3 query's dispatch overwrites the step-2 query's entry
		// in Queries (both live at round r), so the step-2 response has to
		// be retained here to stay visible to the equivocation scan.
		all = all.Union(s.stepTwoPrevotes)
	}
	if s.CommitEarlier != nil {
		all = all.Union(s.CommitEarlier.Precommits)
	}
	if s.CommitLater != nil {
		all = all.Union(s.CommitLater.Precommits)
	}
	it := s.Queries.Iterator()
	for it.Next() {
		qs := it.Value().(*query.State)
		all = all.Union(qs.AdmittedVotes)
	}
	return all
}

// IsTerminated reports whether further responses must be rejected (§4.4
// Terminated: "absorbs further responses by rejecting them").
func (s *Session) IsTerminated() bool {
	return s.Phase == Terminated
}
