// Package supermajority implements the pure predicate the accountable
// safety protocol uses to decide whether a set of votes could, or
// provably could not, yield a supermajority for a given block. It has no
// side effects and no dependency on session state, the same way
// blockchain.QuorumCertificate.IsValid is a pure check against a
// committee and a weight threshold.
package supermajority

import "github.com/gagarinchain/accountability/vote"

// CouldSupermajority is the pure operation from §4.2: true iff
// compatibleWeight, combined with unknownWeight (the weight of voters
// whose vote is not yet observed and so might turn out compatible),
// could reach the committee's supermajority threshold for totalWeight.
func CouldSupermajority(totalWeight, compatibleWeight, unknownWeight vote.Weight) bool {
	return compatibleWeight+unknownWeight >= vote.SupermajorityThreshold(totalWeight)
}

// Evaluate is the convenience form callers actually use: given the
// weighted voter universe a query addressed (e.g. commit_later's
// voters), the votes admitted so far, and a target block, it reports
// whether that evidence could still yield a supermajority for target.
//
// "Compatible" follows §4.2 literally: a vote is compatible with target
// if its own target is target or a descendant of target, per ancestry.
// A universe member who cast no vote in votes is "unknown", not
// "incompatible" - their vote might still arrive and be compatible.
// universe only gates which votes count toward compatibleWeight/
// unknownWeight; the threshold itself is against the session's fixed
// committee.Total() (§4.1), not the addressed subset's summed weight.
func Evaluate(committee *vote.Committee, universe []vote.VoterID, votes vote.VoteSet, target vote.BlockNumber, ancestry vote.AncestryPredicate) bool {
	var compatibleWeight, unknownWeight vote.Weight
	inUniverse := make(map[vote.VoterID]struct{}, len(universe))
	for _, id := range universe {
		inUniverse[id] = struct{}{}
	}

	voted := make(map[vote.VoterID]bool, len(votes))
	for v := range votes {
		if _, ok := inUniverse[v.Voter]; !ok {
			continue
		}
		compatible := ancestry.IsAncestor(target, v.Target)
		if compatible && !voted[v.Voter] {
			compatibleWeight += committee.Weight(v.Voter)
		}
		voted[v.Voter] = voted[v.Voter] || compatible
	}

	for id := range inUniverse {
		if _, cast := votesByVoter(votes)[id]; !cast {
			unknownWeight += committee.Weight(id)
		}
	}

	return CouldSupermajority(committee.Total(), compatibleWeight, unknownWeight)
}

func votesByVoter(votes vote.VoteSet) map[vote.VoterID]struct{} {
	m := make(map[vote.VoterID]struct{}, len(votes))
	for v := range votes {
		m[v.Voter] = struct{}{}
	}
	return m
}

// DemonstratesSupermajority reports whether votes carries supermajority
// weight for target by itself - the positive check a PrevotesSeen
// response must satisfy (§4.3: "a set T of prevotes for round with a
// supermajority for the earlier finalized block"). universe is accepted
// for symmetry with Evaluate/ImpossibleForClosedSet but does not gate
// votes here: a PrevotesSeen answer may legitimately cite prevotes cast
// by any committee member, not only the query's addressees. The
// threshold is against the session's fixed committee.Total() (§4.1), not
// any subset's summed weight.
func DemonstratesSupermajority(committee *vote.Committee, universe []vote.VoterID, votes vote.VoteSet, target vote.BlockNumber, ancestry vote.AncestryPredicate) bool {
	var compatibleWeight vote.Weight
	seen := make(map[vote.VoterID]bool, len(votes))
	for v := range votes {
		if seen[v.Voter] {
			continue
		}
		if ancestry.IsAncestor(target, v.Target) {
			compatibleWeight += committee.Weight(v.Voter)
			seen[v.Voter] = true
		}
	}
	return compatibleWeight >= vote.SupermajorityThreshold(committee.Total())
}

// ImpossibleForClosedSet implements the "closed set" reading of §4.2 for
// WhyEstimateMissing answers (the Response Validator itself checks those
// answers with Evaluate): the
// respondent's payload S is claimed to be their complete view of the
// round, so there is no unknownWeight term - any voter absent from S is
// treated as having voted incompatibly, not as unknown. universe is
// accepted for symmetry with Evaluate but does not gate votes here, for
// the same reason as DemonstratesSupermajority. It returns true iff S
// provably cannot yield a supermajority for target under that
// closed-world assumption. The threshold is against the session's fixed
// committee.Total() (§4.1), not any subset's summed weight.
func ImpossibleForClosedSet(committee *vote.Committee, universe []vote.VoterID, votes vote.VoteSet, target vote.BlockNumber, ancestry vote.AncestryPredicate) bool {
	var compatibleWeight vote.Weight
	seen := make(map[vote.VoterID]bool, len(votes))
	for v := range votes {
		if seen[v.Voter] {
			continue
		}
		if ancestry.IsAncestor(target, v.Target) {
			compatibleWeight += committee.Weight(v.Voter)
			seen[v.Voter] = true
		}
	}
	return !CouldSupermajority(committee.Total(), compatibleWeight, 0)
}
