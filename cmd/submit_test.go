package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gagarinchain/accountability/vote"
)

func TestResponseVoteToVote(t *testing.T) {
	var voter vote.VoterID
	voter[0] = 0xaa

	rv := responseVote{Target: 3, Kind: "prevote", Round: 1}
	v, err := rv.toVote(voter)
	require.NoError(t, err)
	assert.Equal(t, voter, v.Voter)
	assert.Equal(t, vote.Prevote, v.Kind)
	assert.Equal(t, vote.BlockNumber(3), v.Target)
	assert.Equal(t, vote.RoundNumber(1), v.Round)
}

func TestResponseVoteToVote_UnknownKind(t *testing.T) {
	var voter vote.VoterID
	_, err := responseVote{Kind: "abstain"}.toVote(voter)
	assert.Error(t, err)
}
