// Package query holds the shapes shared between the Response Validator
// and the Protocol Driver: a QueryKind, the outgoing QueryDescriptor, and
// the per-round QueryState that accumulates validated responses. Keeping
// these in their own package lets accountability (the Driver/Session/
// Registry) and validate (the Response Validator) both depend on them
// without depending on each other.
package query

import "github.com/gagarinchain/accountability/vote"

// Kind is the QueryKind from §3: the two questions the protocol ever asks.
type Kind uint8

const (
	// WhyEstimateMissing asks why a round's estimate did not include
	// target_block; a valid answer is a set of same-kind votes for
	// round that cannot yield a supermajority for target_block.
	WhyEstimateMissing Kind = iota
	// PrevotesSeen asks for the prevotes a round's precommitters saw;
	// a valid answer is a set of prevotes for round with a
	// supermajority for the earlier finalized block.
	PrevotesSeen
)

func (k Kind) String() string {
	switch k {
	case WhyEstimateMissing:
		return "why_estimate_missing"
	case PrevotesSeen:
		return "prevotes_seen"
	default:
		return "unknown"
	}
}

// Descriptor is the QueryDescriptor from §6: everything an outer
// transport needs to disseminate one outgoing query. TargetBlock is
// meaningless (and left zero) for PrevotesSeen, per the wire format note.
type Descriptor struct {
	Instance    uint64
	Kind        Kind
	Round       vote.RoundNumber
	TargetBlock vote.BlockNumber
	Addressees  []vote.VoterID
}

// State is the QueryState from §3: one outstanding or resolved query and
// everything admitted in answer to it.
type State struct {
	Kind          Kind
	Round         vote.RoundNumber
	TargetBlock   vote.BlockNumber
	Addressees    map[vote.VoterID]struct{}
	Responses     map[vote.VoterID]vote.VoteSet
	AdmittedVotes vote.VoteSet
	Deadline      int64 // unix seconds; zero means no deadline attached yet
	ByzantineAll  bool  // set by the deadline-expired rule: every addressee marked Byzantine
}

// NewState creates an open QueryState for the given kind/round/target
// addressed to addressees.
func NewState(kind Kind, round vote.RoundNumber, target vote.BlockNumber, addressees []vote.VoterID) *State {
	set := make(map[vote.VoterID]struct{}, len(addressees))
	for _, id := range addressees {
		set[id] = struct{}{}
	}
	return &State{
		Kind:          kind,
		Round:         round,
		TargetBlock:   target,
		Addressees:    set,
		Responses:     make(map[vote.VoterID]vote.VoteSet),
		AdmittedVotes: vote.NewVoteSet(),
	}
}

func (s *State) IsAddressee(id vote.VoterID) bool {
	_, ok := s.Addressees[id]
	return ok
}

// HasValidResponse reports whether at least one responder's payload has
// been admitted, the condition the Driver needs to advance past a query.
func (s *State) HasValidResponse() bool {
	return len(s.Responses) > 0
}

// Admit records a validated response from responder and unions its votes
// into AdmittedVotes (§4.3: "admitted payload is added to
// query.admitted_votes (union semantics)").
func (s *State) Admit(responder vote.VoterID, payload vote.VoteSet) {
	s.Responses[responder] = payload
	s.AdmittedVotes = s.AdmittedVotes.Union(payload)
}

// AddresseeList returns the addressees in no particular order.
func (s *State) AddresseeList() []vote.VoterID {
	out := make([]vote.VoterID, 0, len(s.Addressees))
	for id := range s.Addressees {
		out = append(out, id)
	}
	return out
}

func (s *State) Descriptor(instance uint64) Descriptor {
	return Descriptor{
		Instance:    instance,
		Kind:        s.Kind,
		Round:       s.Round,
		TargetBlock: s.TargetBlock,
		Addressees:  s.AddresseeList(),
	}
}
