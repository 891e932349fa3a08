package accountability

import (
	"sort"

	"github.com/gagarinchain/accountability/query"
	"github.com/gagarinchain/accountability/vote"
)

// QuerySnapshot is one entry of state(instance)'s query view: one per
// query the session has dispatched, resolved or still outstanding, keyed
// by round (at round r the step-3 query replaces the step-2 one).
type QuerySnapshot struct {
	Round       vote.RoundNumber
	Kind        query.Kind
	TargetBlock vote.BlockNumber
	Addressees  []vote.VoterID
	Responded   []vote.VoterID
}

// Snapshot is the SessionSnapshot from §6: phase, the query history
// (outstanding query included), accumulated equivocations, everything a
// participant needs to
// independently reconstruct the verdict (§2's "fully observable").
type Snapshot struct {
	ID            InstanceID
	Phase         Phase
	BlockEarlier  vote.BlockNumber
	RoundEarlier  vote.RoundNumber
	BlockLater    vote.BlockNumber
	RoundLater    vote.RoundNumber
	Queries       []QuerySnapshot
	Equivocations []Equivocation
	Verdict       *Verdict
}

func snapshotOf(s *Session) Snapshot {
	snap := Snapshot{
		ID:            s.ID,
		Phase:         s.Phase,
		BlockEarlier:  s.BlockEarlier,
		RoundEarlier:  s.RoundEarlier,
		BlockLater:    s.BlockLater,
		RoundLater:    s.RoundLater,
		Equivocations: append([]Equivocation(nil), s.Equivocations...),
		Verdict:       s.Verdict,
	}

	it := s.Queries.Iterator()
	for it.Next() {
		qs := it.Value().(*query.State)
		responded := make([]vote.VoterID, 0, len(qs.Responses))
		for voter := range qs.Responses {
			responded = append(responded, voter)
		}
		sort.Slice(responded, func(i, j int) bool { return less(responded[i], responded[j]) })

		addressees := qs.AddresseeList()
		sort.Slice(addressees, func(i, j int) bool { return less(addressees[i], addressees[j]) })

		snap.Queries = append(snap.Queries, QuerySnapshot{
			Round:       qs.Round,
			Kind:        qs.Kind,
			TargetBlock: qs.TargetBlock,
			Addressees:  addressees,
			Responded:   responded,
		})
	}
	return snap
}

func less(a, b vote.VoterID) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
