package supermajority

import (
	"testing"

	"github.com/gagarinchain/accountability/vote"
	"github.com/stretchr/testify/assert"
)

func ids(n byte) []vote.VoterID {
	out := make([]vote.VoterID, n)
	for i := range out {
		out[i][0] = byte(i) + 1
	}
	return out
}

func straightAncestry() vote.AncestryPredicate {
	return vote.AncestryFunc(func(b, other vote.BlockNumber) bool { return b == other })
}

func TestImpossibleForClosedSetScenarioA(t *testing.T) {
	// Scenario A: round-3 response {A,B,D precommits -> 1}, asked about
	// whether block 2 could have a supermajority. None of the votes are
	// for block 2, so it is impossible.
	voters := ids(4) // A B C D
	committee := vote.NewUniformCommittee(voters...)
	universe := []vote.VoterID{voters[0], voters[1], voters[3]} // A B D addressed
	votes := vote.NewVoteSet(
		vote.Vote{Voter: voters[0], Target: 1, Kind: vote.Precommit, Round: 3},
		vote.Vote{Voter: voters[1], Target: 1, Kind: vote.Precommit, Round: 3},
		vote.Vote{Voter: voters[3], Target: 1, Kind: vote.Precommit, Round: 3},
	)
	assert.True(t, ImpossibleForClosedSet(committee, universe, votes, 2, straightAncestry()))
}

func TestCouldSupermajorityWithUnknownVoters(t *testing.T) {
	voters := ids(4)
	committee := vote.NewUniformCommittee(voters...)
	votes := vote.NewVoteSet(
		vote.Vote{Voter: voters[0], Target: 4, Kind: vote.Prevote, Round: 1},
		vote.Vote{Voter: voters[1], Target: 4, Kind: vote.Prevote, Round: 1},
	)
	// Only 2 of 4 observed, both compatible. The other 2 are unknown and
	// could push weight to 4 >= threshold(3), so it is still possible.
	assert.True(t, Evaluate(committee, voters, votes, 4, straightAncestry()))
}

func TestCouldSupermajorityFalseWhenIncompatibleDominates(t *testing.T) {
	voters := ids(4)
	committee := vote.NewUniformCommittee(voters...)
	votes := vote.NewVoteSet(
		vote.Vote{Voter: voters[0], Target: 9, Kind: vote.Prevote, Round: 1},
		vote.Vote{Voter: voters[1], Target: 9, Kind: vote.Prevote, Round: 1},
		vote.Vote{Voter: voters[2], Target: 9, Kind: vote.Prevote, Round: 1},
	)
	// 3 voters incompatible with target 4, only 1 unknown: compatible=0,
	// unknown=1, total=4, threshold=3 -> 1 < 3, impossible.
	assert.False(t, Evaluate(committee, voters, votes, 4, straightAncestry()))
}
