package vote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func id(b byte) VoterID {
	var v VoterID
	v[0] = b
	return v
}

func TestSupermajorityThresholdMatchesWorkedScenarios(t *testing.T) {
	// Scenario A/B/C in the spec fix total weight 4 with threshold 3.
	assert.EqualValues(t, 3, SupermajorityThreshold(4))
	assert.EqualValues(t, 1, SupermajorityThreshold(1))
	assert.EqualValues(t, 3, SupermajorityThreshold(3))
}

func TestCommitteeWeightOfDedupsVoter(t *testing.T) {
	c := NewUniformCommittee(id(1), id(2), id(3), id(4))
	votes := NewVoteSet(
		Vote{Voter: id(1), Target: 1, Kind: Precommit, Round: 1},
		Vote{Voter: id(1), Target: 2, Kind: Precommit, Round: 1},
	)
	assert.EqualValues(t, 1, c.WeightOf(votes))
}

func TestVoteSetSameKindRejectsMixed(t *testing.T) {
	s := NewVoteSet(
		Vote{Voter: id(1), Target: 1, Kind: Prevote, Round: 1},
		Vote{Voter: id(2), Target: 1, Kind: Precommit, Round: 1},
	)
	_, _, ok := s.SameKind()
	assert.False(t, ok)
}

func TestNewCommitRequiresSupermajority(t *testing.T) {
	committee := NewUniformCommittee(id(1), id(2), id(3), id(4))
	ancestry := AncestryFunc(func(b, other BlockNumber) bool { return b <= other })

	_, err := buildCommit(committee, ancestry, id(1), id(2))
	require.Error(t, err)

	c, err := buildCommit(committee, ancestry, id(1), id(2), id(3))
	require.NoError(t, err)
	assert.EqualValues(t, 2, c.Block)
}

func buildCommit(committee *Committee, ancestry AncestryPredicate, voters ...VoterID) (*Commit, error) {
	set := make(VoteSet, len(voters))
	for _, v := range voters {
		set.Add(Vote{Voter: v, Target: 2, Kind: Precommit, Round: 1})
	}
	return NewCommit(2, 1, set, committee, ancestry)
}
