package accountability

import "github.com/gagarinchain/accountability/vote"

// Equivocation is the Equivocation from §3: one voter's two signed votes at
// the same round and kind with distinct targets. This is the slasheable
// unit the whole core exists to produce; adapted from hotstuff/slash.go's
// DoubleVoteEquivocation, which only stubbed the type without a detector.
type Equivocation struct {
	Voter   vote.VoterID
	Round   vote.RoundNumber
	Kind    vote.Kind
	TargetA vote.BlockNumber
	TargetB vote.BlockNumber
}

// scanForEquivocations implements §4.3's incremental scan: for each vote in
// fresh, look for any vote already in existing that shares round, kind and
// voter but names a different target, and emit an Equivocation for every
// such pair. It is also how §4.4's step-2/step-3 "union and look for
// distinct targets" rules are realized, since existing there is exactly
// union(S, precommits(commit_earlier)) or union(T, S_prevotes) - the
// general rule subsumes both specific ones, and additionally cross-checks
// against commit_later's own precommits per the supplemented
// cross-check-against-both-commits rule.
func scanForEquivocations(existing vote.VoteSet, fresh vote.VoteSet) []Equivocation {
	var found []Equivocation
	targets := make(map[vote.VoterID]map[vote.RoundNumber]map[vote.Kind]map[vote.BlockNumber]struct{})
	index := func(v vote.Vote) {
		byRound, ok := targets[v.Voter]
		if !ok {
			byRound = make(map[vote.RoundNumber]map[vote.Kind]map[vote.BlockNumber]struct{})
			targets[v.Voter] = byRound
		}
		byKind, ok := byRound[v.Round]
		if !ok {
			byKind = make(map[vote.Kind]map[vote.BlockNumber]struct{})
			byRound[v.Round] = byKind
		}
		byTarget, ok := byKind[v.Kind]
		if !ok {
			byTarget = make(map[vote.BlockNumber]struct{})
			byKind[v.Kind] = byTarget
		}
		byTarget[v.Target] = struct{}{}
	}
	for v := range existing {
		index(v)
	}

	seen := make(map[Equivocation]struct{})
	for v := range fresh {
		byRound, ok := targets[v.Voter]
		if !ok {
			index(v)
			continue
		}
		byKind, ok := byRound[v.Round]
		if !ok {
			index(v)
			continue
		}
		byTarget, ok := byKind[v.Kind]
		if !ok {
			index(v)
			continue
		}
		for other := range byTarget {
			if other == v.Target {
				continue
			}
			eq := canonicalizeEquivocation(Equivocation{Voter: v.Voter, Round: v.Round, Kind: v.Kind, TargetA: other, TargetB: v.Target})
			if _, dup := seen[eq]; dup {
				continue
			}
			seen[eq] = struct{}{}
			found = append(found, eq)
		}
		index(v)
	}
	return found
}

// canonicalizeEquivocation orders TargetA/TargetB so the same equivocating
// pair always compares equal regardless of which vote was "fresh", keeping
// the equivocations set free of order-dependent duplicates (§8 property 5:
// equivocations only grows, never grows the same fact twice).
func canonicalizeEquivocation(e Equivocation) Equivocation {
	if e.TargetA > e.TargetB {
		e.TargetA, e.TargetB = e.TargetB, e.TargetA
	}
	return e
}

// equivocationVoters returns the distinct voters named across eqs, the
// verdict's equivocators list.
func equivocationVoters(eqs []Equivocation) []vote.VoterID {
	seen := make(map[vote.VoterID]struct{}, len(eqs))
	var out []vote.VoterID
	for _, e := range eqs {
		if _, ok := seen[e.Voter]; ok {
			continue
		}
		seen[e.Voter] = struct{}{}
		out = append(out, e.Voter)
	}
	return out
}

// recordEquivocations appends newly discovered equivocations (scanned
// against everything admitted so far, including both commits) to the
// session's append-only equivocation set, skipping ones already recorded.
func (s *Session) recordEquivocations(fresh vote.VoteSet) {
	existing := s.AllAdmittedVotes()
	found := scanForEquivocations(existing, fresh)
	if len(found) == 0 {
		return
	}
	already := make(map[Equivocation]struct{}, len(s.Equivocations))
	for _, e := range s.Equivocations {
		already[e] = struct{}{}
	}
	for _, e := range found {
		if _, ok := already[e]; ok {
			continue
		}
		already[e] = struct{}{}
		s.Equivocations = append(s.Equivocations, e)
		log.Warningf("session %d: voter %s equivocated at round %d (%s): %d vs %d", s.ID, e.Voter, e.Round, e.Kind, e.TargetA, e.TargetB)
	}
}
