package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gagarinchain/accountability/query"
	"github.com/gagarinchain/accountability/vote"
)

func ids(n int) []vote.VoterID {
	out := make([]vote.VoterID, n)
	for i := range out {
		out[i][0] = byte(i) + 1
	}
	return out
}

func straightAncestry() vote.AncestryPredicate {
	return vote.AncestryFunc(func(b, other vote.BlockNumber) bool { return b == other })
}

func TestValidateRejectsUnauthorizedResponder(t *testing.T) {
	voters := ids(4)
	committee := vote.NewUniformCommittee(voters...)
	v := New(committee, straightAncestry())

	q := query.NewState(query.WhyEstimateMissing, 3, 2, voters[:3])
	payload := vote.NewVoteSet(vote.Vote{Voter: voters[0], Target: 1, Kind: vote.Precommit, Round: 3})

	err := v.Validate(q, 2, voters[3], payload)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorizedResponder)
}

func TestValidateAcceptsImpossibleSupermajorityAnswer(t *testing.T) {
	voters := ids(4)
	committee := vote.NewUniformCommittee(voters...)
	v := New(committee, straightAncestry())

	q := query.NewState(query.WhyEstimateMissing, 3, 2, voters[:3])
	payload := vote.NewVoteSet(
		vote.Vote{Voter: voters[0], Target: 1, Kind: vote.Precommit, Round: 3},
		vote.Vote{Voter: voters[1], Target: 1, Kind: vote.Precommit, Round: 3},
		vote.Vote{Voter: voters[2], Target: 1, Kind: vote.Precommit, Round: 3},
	)

	require.NoError(t, v.Validate(q, 2, voters[0], payload))
}

func TestValidateRejectsSemanticallyPossibleAnswer(t *testing.T) {
	voters := ids(4)
	committee := vote.NewUniformCommittee(voters...)
	v := New(committee, straightAncestry())

	q := query.NewState(query.WhyEstimateMissing, 3, 2, voters[:3])
	// All three addressees vote for block 2: clearly compatible, so the
	// response fails to demonstrate impossibility.
	payload := vote.NewVoteSet(
		vote.Vote{Voter: voters[0], Target: 2, Kind: vote.Precommit, Round: 3},
		vote.Vote{Voter: voters[1], Target: 2, Kind: vote.Precommit, Round: 3},
		vote.Vote{Voter: voters[2], Target: 2, Kind: vote.Precommit, Round: 3},
	)

	err := v.Validate(q, 2, voters[0], payload)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSemanticInvalid)
}

func TestValidateRejectsMixedKind(t *testing.T) {
	voters := ids(3)
	committee := vote.NewUniformCommittee(voters...)
	v := New(committee, straightAncestry())

	q := query.NewState(query.WhyEstimateMissing, 1, 2, voters)
	payload := vote.NewVoteSet(
		vote.Vote{Voter: voters[0], Target: 1, Kind: vote.Prevote, Round: 1},
		vote.Vote{Voter: voters[1], Target: 1, Kind: vote.Precommit, Round: 1},
	)

	err := v.Validate(q, 2, voters[0], payload)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestValidatePrevotesSeenRequiresPrevotesAndSupermajority(t *testing.T) {
	voters := ids(4)
	committee := vote.NewUniformCommittee(voters...)
	v := New(committee, straightAncestry())

	q := query.NewState(query.PrevotesSeen, 1, 0, voters[:3])
	bad := vote.NewVoteSet(vote.Vote{Voter: voters[0], Target: 4, Kind: vote.Precommit, Round: 1})
	err := v.Validate(q, 4, voters[0], bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)

	good := vote.NewVoteSet(
		vote.Vote{Voter: voters[0], Target: 4, Kind: vote.Prevote, Round: 1},
		vote.Vote{Voter: voters[1], Target: 4, Kind: vote.Prevote, Round: 1},
		vote.Vote{Voter: voters[2], Target: 4, Kind: vote.Prevote, Round: 1},
	)
	require.NoError(t, v.Validate(q, 4, voters[0], good))
}
