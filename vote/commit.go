package vote

import "github.com/pkg/errors"

// ErrCommitUnderweight is returned by NewCommit when the supplied
// precommits do not carry supermajority weight for the committee, which
// would violate the Commit invariant in §3.
var ErrCommitUnderweight = errors.New("commit: precommits do not carry supermajority weight")

// ErrCommitEmpty is returned by NewCommit when no precommits are given.
var ErrCommitEmpty = errors.New("commit: no precommits")

// ErrCommitMixedRound is returned when the supplied precommits do not all
// target the same round.
var ErrCommitMixedRound = errors.New("commit: precommits span more than one round")

// Commit is a supermajority-weight collection of precommits, all for one
// round, all consistent with a single finalized block (the invariant in
// §3: weight(voters(commit)) >= supermajority threshold).
type Commit struct {
	Block      BlockNumber
	Round      RoundNumber
	Precommits VoteSet
}

// NewCommit validates and constructs a Commit from a raw set of
// precommits. ancestry is used to check that every precommit's target is
// block or a descendant of it, as the data model requires ("for one
// round all targeting the same block or a descendant").
func NewCommit(block BlockNumber, round RoundNumber, precommits VoteSet, committee *Committee, ancestry AncestryPredicate) (*Commit, error) {
	if len(precommits) == 0 {
		return nil, ErrCommitEmpty
	}

	consistent := make(VoteSet, len(precommits))
	for v := range precommits {
		if v.Kind != Precommit {
			return nil, errors.New("commit: vote set contains a non-precommit")
		}
		if v.Round != round {
			return nil, ErrCommitMixedRound
		}
		if !ancestry.IsAncestor(block, v.Target) {
			return nil, errors.Errorf("commit: precommit for %d is not a descendant of %d", v.Target, block)
		}
		consistent.Add(v)
	}

	if committee.WeightOf(consistent) < committee.SupermajorityThreshold() {
		return nil, ErrCommitUnderweight
	}

	return &Commit{Block: block, Round: round, Precommits: consistent}, nil
}

// Voters returns the distinct voters backing the commit.
func (c *Commit) Voters() []VoterID {
	seen := make(map[VoterID]struct{}, len(c.Precommits))
	out := make([]VoterID, 0, len(c.Precommits))
	for v := range c.Precommits {
		if _, ok := seen[v.Voter]; ok {
			continue
		}
		seen[v.Voter] = struct{}{}
		out = append(out, v.Voter)
	}
	return out
}
