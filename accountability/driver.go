package accountability

import (
	"time"

	"github.com/pkg/errors"

	"github.com/gagarinchain/accountability/query"
	"github.com/gagarinchain/accountability/validate"
	"github.com/gagarinchain/accountability/vote"
)

// ErrNoSuchQuery is returned by HandleResponse when a payload's round does
// not match any query this session has ever dispatched - neither the
// current query nor a historical one.
var ErrNoSuchQuery = errors.New("accountability: no query at this round")

func attachDeadline(q *query.State, now int64, window int64) {
	q.Deadline = now + window
}

// newSession constructs a Session in its initial AwaitingFirstQuery phase
// without dispatching the first query yet; the Registry calls dispatchFirstQuery
// once construction has validated the open-time invariants.
func newSession(id InstanceID, blockEarlier vote.BlockNumber, roundEarlier vote.RoundNumber, commitEarlier *vote.Commit, blockLater vote.BlockNumber, roundLater vote.RoundNumber, commitLater *vote.Commit, committee *vote.Committee, ancestry vote.AncestryPredicate, responseDeadline time.Duration, now int64) *Session {
	return &Session{
		ID:                  id,
		BlockEarlier:        blockEarlier,
		RoundEarlier:        roundEarlier,
		CommitEarlier:       commitEarlier,
		BlockLater:          blockLater,
		RoundLater:          roundLater,
		CommitLater:         commitLater,
		Committee:           committee,
		Ancestry:            ancestry,
		Phase:               AwaitingFirstQuery,
		Queries:             newQueriesMap(),
		ByzantineCandidates: make(map[vote.VoterID]struct{}),
		ResponseDeadline:    responseDeadline,
		OpenedAt:            now,
	}
}

// dispatchFirstQuery implements §4.4's AwaitingFirstQuery entry: it emits
// WhyEstimateMissing{round = r'-1, target_block = B} addressed to
// commit_later's voters, unless r' = r+1 (the Scenario D fast path), in
// which case it emits the step-2 query directly at round r and skips
// WalkingBack entirely.
func (s *Session) dispatchFirstQuery() {
	addressees := s.CommitLater.Voters()
	if s.RoundLater == s.RoundEarlier+1 {
		q := query.NewState(query.WhyEstimateMissing, s.RoundEarlier, s.BlockEarlier, addressees)
		s.dispatch(q)
		attachDeadline(q, s.OpenedAt, int64(s.ResponseDeadline.Seconds()))
		s.Phase = AwaitingStep2
		return
	}
	q := query.NewState(query.WhyEstimateMissing, s.RoundLater-1, s.BlockEarlier, addressees)
	s.dispatch(q)
	attachDeadline(q, s.OpenedAt, int64(s.ResponseDeadline.Seconds()))
	s.Phase = WalkingBack
}

// HandleResponse implements submit_response (§6) for one session: it
// validates the response against the query its round addresses, admits it
// on success, scans for equivocations, and - only when the response
// resolves the currently outstanding query - advances the state machine.
// A response to a round this session already walked past is still admitted
// and scanned (it may surface a fresh equivocation) but never re-triggers a
// phase transition, matching §4.4's "additional responses may still
// surface new equivocations" tie-break.
func (s *Session) HandleResponse(validator *validate.Validator, responder vote.VoterID, payload vote.VoteSet, now int64) error {
	if s.IsTerminated() {
		return ErrAlreadyTerminated
	}

	_, round, homogeneous := payload.SameKind()
	if !homogeneous {
		return errors.Wrap(validate.ErrMalformedResponse, "mixed vote kinds in one response")
	}

	var q *query.State
	if s.current != nil && s.current.Round == round {
		q = s.current
	} else if v, ok := s.Queries.Get(round); ok {
		q = v.(*query.State)
	}
	if q == nil {
		return errors.Wrapf(ErrNoSuchQuery, "round %d", round)
	}

	if err := validator.Validate(q, s.BlockEarlier, responder, payload); err != nil {
		if errors.Is(err, validate.ErrSemanticInvalid) {
			s.ByzantineCandidates[responder] = struct{}{}
		}
		return err
	}

	wasCurrent := q == s.current
	q.Admit(responder, payload)
	s.recordEquivocations(payload)

	if wasCurrent {
		s.advance(q, now)
	}
	return nil
}

// advance runs the phase transition attached to the query that was just
// resolved. It is only called when q is the session's current query.
func (s *Session) advance(q *query.State, now int64) {
	switch s.Phase {
	case WalkingBack:
		s.advanceWalkingBack(q, now)
	case AwaitingStep2:
		s.advanceStep2(q, now)
	case AwaitingStep3:
		s.advanceStep3(q)
	default:
		log.Errorf("session %d: advance called in unexpected phase %s", s.ID, s.Phase)
	}
}

// advanceWalkingBack implements §4.4 WalkingBack(q)'s on-receipt rule: walk
// one round earlier while q (the round just answered) is still above r+1,
// otherwise hand off to step-2 handling at round r.
func (s *Session) advanceWalkingBack(q *query.State, now int64) {
	if q.Round > s.RoundEarlier+1 {
		next := query.NewState(query.WhyEstimateMissing, q.Round-1, s.BlockEarlier, s.CommitLater.Voters())
		s.dispatch(next)
		attachDeadline(next, now, int64(s.ResponseDeadline.Seconds()))
		return
	}

	s.Phase = AwaitingStep2
	step2 := query.NewState(query.WhyEstimateMissing, s.RoundEarlier, s.BlockEarlier, s.CommitLater.Voters())
	s.dispatch(step2)
	attachDeadline(step2, now, int64(s.ResponseDeadline.Seconds()))
}

// advanceStep2 implements §4.4's step-2 handling: a precommit answer
// cross-checked against commit_earlier's precommits terminates the session
// immediately; a prevote answer opens the step-3 PrevotesSeen query.
func (s *Session) advanceStep2(q *query.State, now int64) {
	kind, _, homogeneous := q.AdmittedVotes.SameKind()
	if !homogeneous {
		log.Errorf("session %d: step-2 query %d has non-homogeneous admitted votes despite validator gating", s.ID, q.Round)
		return
	}

	switch kind {
	case vote.Precommit:
		s.finalize(VerdictEquivocators)
	case vote.Prevote:
		s.stepTwoPrevotes = q.AdmittedVotes
		s.Phase = AwaitingStep3
		step3 := query.NewState(query.PrevotesSeen, s.RoundEarlier, 0, s.CommitEarlier.Voters())
		s.dispatch(step3)
		attachDeadline(step3, now, int64(s.ResponseDeadline.Seconds()))
	}
}

// advanceStep3 implements §4.4's AwaitingStep3: on a validated prevote
// response T, union it with the step-2 prevotes S and terminate - the
// equivocation scan already ran against s.stepTwoPrevotes inside
// recordEquivocations, since that set is part of AllAdmittedVotes.
func (s *Session) advanceStep3(q *query.State) {
	_ = q
	s.finalize(VerdictEquivocators)
}

// finalize transitions the session to Terminated and freezes its verdict.
func (s *Session) finalize(reason VerdictReason) {
	s.Phase = Terminated
	s.Verdict = &Verdict{Reason: reason, Equivocators: equivocationVoters(s.Equivocations)}
	log.Infof("session %d terminated: %d equivocator(s)", s.ID, len(s.Verdict.Equivocators))
}

// Tick implements tick(now) (§5, §6): if the current query's deadline has
// elapsed with zero valid responses, the entire addressee set is marked
// Byzantine and the session terminates (§4.4's no-response tie-break).
func (s *Session) Tick(now int64) {
	if s.IsTerminated() {
		return
	}
	q := s.current
	if q == nil || q.Deadline == 0 || now < q.Deadline {
		return
	}
	if q.HasValidResponse() {
		return
	}
	q.ByzantineAll = true
	s.Phase = Terminated
	s.Verdict = &Verdict{Reason: VerdictByzantineTimeout, Byzantine: q.AddresseeList()}
	log.Warningf("session %d: query at round %d expired with no valid responses, %d addressee(s) marked Byzantine", s.ID, q.Round, len(s.Verdict.Byzantine))
}

// Abort implements abort(instance) (§5, §6): an external collaborator may
// reconcile the conflict out-of-band, in which case the session terminates
// without a verdict of equivocators.
func (s *Session) Abort() {
	if s.IsTerminated() {
		return
	}
	s.Phase = Terminated
	s.Verdict = &Verdict{Reason: VerdictAborted}
	log.Infof("session %d aborted", s.ID)
}
