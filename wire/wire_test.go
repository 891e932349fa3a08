package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gagarinchain/accountability/query"
	"github.com/gagarinchain/accountability/vote"
)

func TestResponseRoundTrip(t *testing.T) {
	var a, b vote.VoterID
	a[0], b[0] = 1, 2

	resp := Response{
		Instance: 7,
		Round:    3,
		Kind:     vote.Precommit,
		Votes: vote.NewVoteSet(
			vote.Vote{Voter: a, Target: 1, Kind: vote.Precommit, Round: 3},
			vote.Vote{Voter: b, Target: 1, Kind: vote.Precommit, Round: 3},
		),
	}

	encoded, err := EncodeResponse(resp)
	require.NoError(t, err)

	decoded, err := DecodeResponse(encoded)
	require.NoError(t, err)

	assert.Equal(t, resp.Instance, decoded.Instance)
	assert.Equal(t, resp.Round, decoded.Round)
	assert.Equal(t, resp.Kind, decoded.Kind)
	assert.Equal(t, len(resp.Votes), len(decoded.Votes))
}

func TestEncodeResponseRejectsMixedKind(t *testing.T) {
	var a vote.VoterID
	a[0] = 1
	resp := Response{
		Instance: 1,
		Round:    1,
		Kind:     vote.Precommit,
		Votes:    vote.NewVoteSet(vote.Vote{Voter: a, Target: 1, Kind: vote.Prevote, Round: 1}),
	}
	_, err := EncodeResponse(resp)
	assert.Error(t, err)
}

func TestQueryDescriptorRoundTrip(t *testing.T) {
	var a vote.VoterID
	a[0] = 9
	d := query.Descriptor{
		Instance:    42,
		Kind:        query.PrevotesSeen,
		Round:       5,
		TargetBlock: 0,
		Addressees:  []vote.VoterID{a},
	}
	encoded, err := EncodeQueryDescriptor(d)
	require.NoError(t, err)

	decoded, err := DecodeQueryDescriptor(encoded)
	require.NoError(t, err)
	assert.Equal(t, d.Instance, decoded.Instance)
	assert.Equal(t, d.Kind, decoded.Kind)
	assert.Equal(t, d.Round, decoded.Round)
	require.Len(t, decoded.Addressees, 1)
	assert.Equal(t, a, decoded.Addressees[0])
}

func TestHashResponseDeterministic(t *testing.T) {
	var a vote.VoterID
	a[0] = 3
	resp := Response{Instance: 1, Round: 1, Kind: vote.Prevote, Votes: vote.NewVoteSet(vote.Vote{Voter: a, Target: 1, Kind: vote.Prevote, Round: 1})}
	h1, err := HashResponse(resp)
	require.NoError(t, err)
	h2, err := HashResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}
