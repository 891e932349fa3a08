// Package validate implements the Response Validator: the gate every
// submitted response must pass before it is admitted into a QueryState.
// It is grounded on this codebase's committee-membership and vote
// validation idioms (blockchain.Validator, hotstuff's per-vote checks in
// Protocol.OnReceiveVote) but is deliberately a pure, stateless checker -
// it never mutates session state itself.
package validate

import (
	"github.com/op/go-logging"
	"github.com/pkg/errors"

	"github.com/gagarinchain/accountability/query"
	"github.com/gagarinchain/accountability/supermajority"
	"github.com/gagarinchain/accountability/vote"
)

var log = logging.MustGetLogger("validate")

// Validator checks a submitted response against a query's addressees and
// §4.3's semantic rules. It is constructed once per session, over the
// committee and ancestry predicate captured at session open.
type Validator struct {
	committee *vote.Committee
	ancestry  vote.AncestryPredicate
}

func New(committee *vote.Committee, ancestry vote.AncestryPredicate) *Validator {
	return &Validator{committee: committee, ancestry: ancestry}
}

// Validate checks (session, query, responder, payload) per §4.3 and
// returns the error kind from §7 on rejection. On success the caller is
// responsible for admitting payload into q (Validate has no side
// effects, matching the "response-level errors are local" recovery
// policy: nothing is mutated on the rejection path).
func (v *Validator) Validate(q *query.State, blockEarlier vote.BlockNumber, responder vote.VoterID, payload vote.VoteSet) error {
	if !q.IsAddressee(responder) {
		return errors.Wrapf(ErrUnauthorizedResponder, "voter %s", responder)
	}

	if len(payload) == 0 {
		return errors.Wrap(ErrMalformedResponse, "empty payload")
	}

	kind, round, homogeneous := payload.SameKind()
	if !homogeneous {
		return errors.Wrap(ErrMalformedResponse, "mixed vote kinds in one response")
	}
	if round != q.Round {
		return errors.Wrapf(ErrMalformedResponse, "response round %d does not match query round %d", round, q.Round)
	}

	switch q.Kind {
	case query.WhyEstimateMissing:
		if supermajority.Evaluate(v.committee, q.AddresseeList(), payload, q.TargetBlock, v.ancestry) {
			log.Warningf("responder %s submitted a WhyEstimateMissing answer that does not rule out a supermajority for %d", responder, q.TargetBlock)
			return errors.Wrap(ErrSemanticInvalid, "response could still yield a supermajority for target_block")
		}
	case query.PrevotesSeen:
		if kind != vote.Prevote {
			return errors.Wrap(ErrMalformedResponse, "PrevotesSeen response must consist of prevotes")
		}
		if !supermajority.DemonstratesSupermajority(v.committee, q.AddresseeList(), payload, blockEarlier, v.ancestry) {
			log.Warningf("responder %s submitted a PrevotesSeen answer without a supermajority for %d", responder, blockEarlier)
			return errors.Wrap(ErrSemanticInvalid, "response does not demonstrate a supermajority for block_earlier")
		}
	default:
		return errors.Errorf("validate: unknown query kind %v", q.Kind)
	}

	return nil
}
