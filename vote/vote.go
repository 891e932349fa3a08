package vote

import (
	"fmt"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("vote")

// RoundNumber is a monotonically increasing, non-negative GRANDPA round.
type RoundNumber uint64

// BlockNumber identifies a block by height; ancestry between two block
// numbers is resolved by an external AncestryPredicate, never by comparing
// the numbers directly.
type BlockNumber uint64

// VoterID is the opaque identity of a voter, as it appears on the wire.
// Signatures are verified before a Vote reaches this package (see Vote),
// so VoterID carries no key material, only the 32-byte identity used to
// key the committee and weight tables.
type VoterID [32]byte

func (id VoterID) String() string {
	return fmt.Sprintf("%x", id[:8])
}

// Kind distinguishes the two GRANDPA vote categories. A single response or
// QueryState must never mix kinds (invariant 4 in the data model).
type Kind uint8

const (
	Prevote Kind = iota
	Precommit
)

func (k Kind) String() string {
	switch k {
	case Prevote:
		return "prevote"
	case Precommit:
		return "precommit"
	default:
		return "unknown"
	}
}

// Vote is a single signed vote, already stripped of its signature by the
// external verifier named in the purpose & scope section.
type Vote struct {
	Voter  VoterID
	Target BlockNumber
	Kind   Kind
	Round  RoundNumber
}

// Equals compares votes by value, ignoring nothing: two votes are equal
// only if voter, target, kind and round all match.
func (v Vote) Equals(o Vote) bool {
	return v.Voter == o.Voter && v.Target == o.Target && v.Kind == o.Kind && v.Round == o.Round
}

// VoteSet is a set of votes, keyed by the whole vote (voter, target, kind,
// round) so the same voter can appear more than once within a round and
// kind when voting for distinct targets -
// that duplication is exactly what an Equivocation records.
type VoteSet map[Vote]struct{}

func NewVoteSet(votes ...Vote) VoteSet {
	s := make(VoteSet, len(votes))
	for _, v := range votes {
		s[v] = struct{}{}
	}
	return s
}

func (s VoteSet) Add(v Vote) {
	s[v] = struct{}{}
}

func (s VoteSet) Contains(v Vote) bool {
	_, ok := s[v]
	return ok
}

// Union returns a new VoteSet containing every vote present in s or other.
func (s VoteSet) Union(other VoteSet) VoteSet {
	u := make(VoteSet, len(s)+len(other))
	for v := range s {
		u[v] = struct{}{}
	}
	for v := range other {
		u[v] = struct{}{}
	}
	return u
}

// SameKind reports whether every vote in the set shares kind and round;
// homogeneity (invariant 4) is checked with this before a set is admitted.
func (s VoteSet) SameKind() (Kind, RoundNumber, bool) {
	first := true
	var k Kind
	var r RoundNumber
	for v := range s {
		if first {
			k, r = v.Kind, v.Round
			first = false
			continue
		}
		if v.Kind != k || v.Round != r {
			return k, r, false
		}
	}
	return k, r, !first
}

// Slice returns the votes in s in no particular order; callers that need a
// deterministic order (e.g. for hashing) must sort the result themselves.
func (s VoteSet) Slice() []Vote {
	out := make([]Vote, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	return out
}
