package accountability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gagarinchain/accountability/validate"
	"github.com/gagarinchain/accountability/vote"
)

// forkAncestry models a small forked chain used across every scenario
// below: 0 -> 1 -> 2 -> 4 is one branch (carrying block_earlier, 2, and its
// honest continuation, 4); 0 -> 5 -> 8 is the conflicting branch (carrying
// block_later, 8). This is the "external collaborator" ancestry predicate
// §4.1 says the core treats as total and pure.
func forkAncestry() vote.AncestryPredicate {
	parent := map[vote.BlockNumber]vote.BlockNumber{
		1: 0,
		2: 1,
		4: 2,
		5: 0,
		8: 5,
	}
	return vote.AncestryFunc(func(b, other vote.BlockNumber) bool {
		for cur := other; ; {
			if cur == b {
				return true
			}
			p, ok := parent[cur]
			if !ok {
				return false
			}
			cur = p
		}
	})
}

func namedVoters(n int) []vote.VoterID {
	out := make([]vote.VoterID, n)
	for i := range out {
		out[i][0] = byte('A' + i)
	}
	return out
}

func votes(kind vote.Kind, round vote.RoundNumber, pairs map[vote.VoterID]vote.BlockNumber) vote.VoteSet {
	s := vote.NewVoteSet()
	for voter, target := range pairs {
		s.Add(vote.Vote{Voter: voter, Target: target, Kind: kind, Round: round})
	}
	return s
}

// scenarioABCommittee builds the {A,B,C,D} committee and the two
// conflicting commits shared by Scenarios A, B, C and E: commit_earlier for
// block 2 at round 1, commit_later for block 8 at round 4.
func scenarioABCommittee(t *testing.T) (a, b, c, d vote.VoterID, committee *vote.Committee, commitEarlier, commitLater *vote.Commit) {
	voters := namedVoters(4)
	a, b, c, d = voters[0], voters[1], voters[2], voters[3]
	committee = vote.NewUniformCommittee(a, b, c, d)
	ancestry := forkAncestry()

	var err error
	commitEarlier, err = vote.NewCommit(2, 1, votes(vote.Precommit, 1, map[vote.VoterID]vote.BlockNumber{a: 2, b: 2, c: 2}), committee, ancestry)
	require.NoError(t, err)
	commitLater, err = vote.NewCommit(8, 4, votes(vote.Precommit, 4, map[vote.VoterID]vote.BlockNumber{a: 8, b: 8, d: 8}), committee, ancestry)
	require.NoError(t, err)
	return
}

func TestScenarioA_PrecommitPathTerminatesAtStep2(t *testing.T) {
	a, b, _, d, committee, commitEarlier, commitLater := scenarioABCommittee(t)
	ancestry := forkAncestry()
	v := validate.New(committee, ancestry)
	reg := NewRegistry(time.Hour)

	id, err := reg.Open(commitEarlier, commitLater, committee, ancestry, time.Minute, 1000)
	require.NoError(t, err)

	// round 3, round 2, round 1: each time {A, B, D} answer precommits -> 1.
	evidence := votes(vote.Precommit, 3, map[vote.VoterID]vote.BlockNumber{a: 1, b: 1, d: 1})
	require.NoError(t, reg.SubmitResponse(v, id, a, evidence, 1001))

	evidence = votes(vote.Precommit, 2, map[vote.VoterID]vote.BlockNumber{a: 1, b: 1, d: 1})
	require.NoError(t, reg.SubmitResponse(v, id, a, evidence, 1002))

	evidence = votes(vote.Precommit, 1, map[vote.VoterID]vote.BlockNumber{a: 1, b: 1, d: 1})
	require.NoError(t, reg.SubmitResponse(v, id, a, evidence, 1003))

	verdict, err := reg.Verdict(id)
	require.NoError(t, err)
	require.NotNil(t, verdict)
	assert.Equal(t, VerdictEquivocators, verdict.Reason)
	assert.ElementsMatch(t, []vote.VoterID{a, b}, verdict.Equivocators)
}

func TestScenarioB_PrevotePathRequiresStep3(t *testing.T) {
	a, b, c, d, committee, commitEarlier, commitLater := scenarioABCommittee(t)
	ancestry := forkAncestry()
	v := validate.New(committee, ancestry)
	reg := NewRegistry(time.Hour)

	id, err := reg.Open(commitEarlier, commitLater, committee, ancestry, time.Minute, 1000)
	require.NoError(t, err)

	require.NoError(t, reg.SubmitResponse(v, id, a, votes(vote.Precommit, 3, map[vote.VoterID]vote.BlockNumber{a: 1, b: 1, d: 1}), 1001))
	require.NoError(t, reg.SubmitResponse(v, id, a, votes(vote.Precommit, 2, map[vote.VoterID]vote.BlockNumber{a: 1, b: 1, d: 1}), 1002))

	// Round 1 response is prevotes this time, not precommits.
	require.NoError(t, reg.SubmitResponse(v, id, a, votes(vote.Prevote, 1, map[vote.VoterID]vote.BlockNumber{a: 1, b: 1, d: 5}), 1003))

	snap, err := reg.State(id)
	require.NoError(t, err)
	assert.Equal(t, AwaitingStep3, snap.Phase)

	require.NoError(t, reg.SubmitResponse(v, id, a, votes(vote.Prevote, 1, map[vote.VoterID]vote.BlockNumber{a: 4, b: 4, c: 2}), 1004))

	verdict, err := reg.Verdict(id)
	require.NoError(t, err)
	require.NotNil(t, verdict)
	assert.ElementsMatch(t, []vote.VoterID{a, b}, verdict.Equivocators)
}

func TestScenarioC_NoResponseTimeout(t *testing.T) {
	a, b, _, d, committee, commitEarlier, commitLater := scenarioABCommittee(t)
	ancestry := forkAncestry()
	reg := NewRegistry(time.Hour)

	id, err := reg.Open(commitEarlier, commitLater, committee, ancestry, time.Minute, 1000)
	require.NoError(t, err)

	reg.Tick(1000 + int64(time.Minute.Seconds()) + 1)

	verdict, err := reg.Verdict(id)
	require.NoError(t, err)
	require.NotNil(t, verdict)
	assert.Equal(t, VerdictByzantineTimeout, verdict.Reason)
	assert.ElementsMatch(t, []vote.VoterID{a, b, d}, verdict.Byzantine)
}

func TestScenarioD_FastPathWhenLaterRoundIsEarlierPlusOne(t *testing.T) {
	voters := namedVoters(4)
	a, b, c, d := voters[0], voters[1], voters[2], voters[3]
	committee := vote.NewUniformCommittee(a, b, c, d)
	ancestry := forkAncestry()

	commitEarlier, err := vote.NewCommit(2, 1, votes(vote.Precommit, 1, map[vote.VoterID]vote.BlockNumber{a: 2, b: 2, c: 2}), committee, ancestry)
	require.NoError(t, err)
	commitLater, err := vote.NewCommit(8, 2, votes(vote.Precommit, 2, map[vote.VoterID]vote.BlockNumber{a: 8, b: 8, d: 8}), committee, ancestry)
	require.NoError(t, err)

	v := validate.New(committee, ancestry)
	reg := NewRegistry(time.Hour)

	id, err := reg.Open(commitEarlier, commitLater, committee, ancestry, time.Minute, 1000)
	require.NoError(t, err)

	snap, err := reg.State(id)
	require.NoError(t, err)
	assert.Equal(t, AwaitingStep2, snap.Phase)
	require.Len(t, snap.Queries, 1)
	assert.EqualValues(t, 1, snap.Queries[0].Round)

	require.NoError(t, reg.SubmitResponse(v, id, a, votes(vote.Precommit, 1, map[vote.VoterID]vote.BlockNumber{a: 1, b: 1, d: 1}), 1001))

	verdict, err := reg.Verdict(id)
	require.NoError(t, err)
	require.NotNil(t, verdict)
	assert.ElementsMatch(t, []vote.VoterID{a, b}, verdict.Equivocators)
}

func TestScenarioE_SemanticallyInvalidResponseLeavesQueryOpen(t *testing.T) {
	a, b, _, d, committee, commitEarlier, commitLater := scenarioABCommittee(t)
	ancestry := forkAncestry()
	v := validate.New(committee, ancestry)
	reg := NewRegistry(time.Hour)

	id, err := reg.Open(commitEarlier, commitLater, committee, ancestry, time.Minute, 1000)
	require.NoError(t, err)

	// A claims round-3 precommits for block 4, a descendant of block 2: this
	// could still yield a supermajority for B, so it must be rejected.
	bad := votes(vote.Precommit, 3, map[vote.VoterID]vote.BlockNumber{a: 4, b: 4, d: 4})
	err = reg.SubmitResponse(v, id, a, bad, 1001)
	require.Error(t, err)
	assert.ErrorIs(t, err, validate.ErrSemanticInvalid)

	snap, err := reg.State(id)
	require.NoError(t, err)
	assert.Equal(t, WalkingBack, snap.Phase)
	require.Len(t, snap.Queries, 1)
	assert.Empty(t, snap.Queries[0].Responded)

	good := votes(vote.Precommit, 3, map[vote.VoterID]vote.BlockNumber{a: 1, b: 1, d: 1})
	require.NoError(t, reg.SubmitResponse(v, id, b, good, 1002))
}

func TestScenarioF_MixedKindResponseRejected(t *testing.T) {
	a, b, _, _, committee, commitEarlier, commitLater := scenarioABCommittee(t)
	ancestry := forkAncestry()
	v := validate.New(committee, ancestry)
	reg := NewRegistry(time.Hour)

	id, err := reg.Open(commitEarlier, commitLater, committee, ancestry, time.Minute, 1000)
	require.NoError(t, err)

	mixed := vote.NewVoteSet(
		vote.Vote{Voter: a, Target: 1, Kind: vote.Prevote, Round: 3},
		vote.Vote{Voter: b, Target: 1, Kind: vote.Precommit, Round: 3},
	)
	err = reg.SubmitResponse(v, id, a, mixed, 1001)
	require.Error(t, err)
	assert.ErrorIs(t, err, validate.ErrMalformedResponse)

	snap, err := reg.State(id)
	require.NoError(t, err)
	assert.Empty(t, snap.Queries[0].Responded)
}

func TestOpenRejectsSameBlock(t *testing.T) {
	voters := namedVoters(3)
	committee := vote.NewUniformCommittee(voters...)
	ancestry := forkAncestry()
	commit, err := vote.NewCommit(2, 1, votes(vote.Precommit, 1, map[vote.VoterID]vote.BlockNumber{voters[0]: 2, voters[1]: 2, voters[2]: 2}), committee, ancestry)
	require.NoError(t, err)

	reg := NewRegistry(time.Hour)
	_, err = reg.Open(commit, commit, committee, ancestry, time.Minute, 0)
	assert.ErrorIs(t, err, ErrSameBlock)
}

func TestOpenRejectsAncestorRelation(t *testing.T) {
	voters := namedVoters(3)
	committee := vote.NewUniformCommittee(voters...)
	ancestry := forkAncestry()
	commitParent, err := vote.NewCommit(1, 1, votes(vote.Precommit, 1, map[vote.VoterID]vote.BlockNumber{voters[0]: 1, voters[1]: 1, voters[2]: 1}), committee, ancestry)
	require.NoError(t, err)
	commitChild, err := vote.NewCommit(2, 2, votes(vote.Precommit, 2, map[vote.VoterID]vote.BlockNumber{voters[0]: 2, voters[1]: 2, voters[2]: 2}), committee, ancestry)
	require.NoError(t, err)

	reg := NewRegistry(time.Hour)
	_, err = reg.Open(commitParent, commitChild, committee, ancestry, time.Minute, 0)
	assert.ErrorIs(t, err, ErrAncestors)
}

func TestAbortTerminatesSessionWithoutVerdictEquivocators(t *testing.T) {
	_, _, _, _, committee, commitEarlier, commitLater := scenarioABCommittee(t)
	ancestry := forkAncestry()
	reg := NewRegistry(time.Hour)

	id, err := reg.Open(commitEarlier, commitLater, committee, ancestry, time.Minute, 1000)
	require.NoError(t, err)

	require.NoError(t, reg.Abort(id))

	verdict, err := reg.Verdict(id)
	require.NoError(t, err)
	require.NotNil(t, verdict)
	assert.Equal(t, VerdictAborted, verdict.Reason)
	assert.Empty(t, verdict.Equivocators)
}
