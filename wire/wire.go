// Package wire implements the canonical, bit-exact encoding from §6: SSZ
// marshaling of fixed-shape structs, then Keccak-256 hashing of the
// marshaled bytes - the same marshal-then-hash idiom
// blockchain.HashHeader uses for block headers, applied here to votes,
// responses, query descriptors and persisted session records so that every
// observer computing the same bytes computes the same hash (§5, §9).
package wire

import (
	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/go-ssz"
	"golang.org/x/crypto/sha3"

	"github.com/gagarinchain/accountability/query"
	"github.com/gagarinchain/accountability/vote"
)

var log = logging.MustGetLogger("wire")

var errMixedResponse = errors.New("wire: response mixes vote kinds or rounds")

// Keccak256 hashes data the way blockchain.HashHeader hashes a
// ssz-marshaled header: crypto.Keccak256(bytes).
func Keccak256(data []byte) [32]byte {
	var out [32]byte
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	copy(out[:], h.Sum(nil))
	return out
}

// sszVote is the wire shape of vote.Vote: Vote := { voter: [u8;32], target: u64 }
// plus the kind/round fields a Response groups at the envelope level.
type sszVote struct {
	Voter  [32]byte
	Target uint64
	Kind   uint8
	Round  uint64
}

func toSszVote(v vote.Vote) sszVote {
	return sszVote{Voter: v.Voter, Target: uint64(v.Target), Kind: uint8(v.Kind), Round: uint64(v.Round)}
}

func fromSszVote(s sszVote) vote.Vote {
	return vote.Vote{Voter: s.Voter, Target: vote.BlockNumber(s.Target), Kind: vote.Kind(s.Kind), Round: vote.RoundNumber(s.Round)}
}

// sszResponse is the wire shape of Response from §6:
// Response := { instance: u64, round: u64, kind: u8, votes: [Vote] }
type sszResponse struct {
	Instance uint64
	Round    uint64
	Kind     uint8
	Votes    []sszVote
}

// Response is the decoded, domain-level form of a wire response.
type Response struct {
	Instance uint64
	Round    vote.RoundNumber
	Kind     vote.Kind
	Votes    vote.VoteSet
}

// EncodeResponse marshals r into the canonical §6 byte layout. It
// returns an error if r mixes vote kinds or rounds, since "a response
// MUST NOT mix kinds" is a wire-level constraint, not just a validator
// rule.
func EncodeResponse(r Response) ([]byte, error) {
	raw := sszResponse{Instance: r.Instance, Round: uint64(r.Round), Kind: uint8(r.Kind)}
	for v := range r.Votes {
		if v.Kind != r.Kind || v.Round != r.Round {
			return nil, errMixedResponse
		}
		raw.Votes = append(raw.Votes, toSszVote(v))
	}
	return ssz.Marshal(raw)
}

// DecodeResponse unmarshals the canonical §6 byte layout back into a
// Response. It performs no semantic validation - that is the Response
// Validator's job; DecodeResponse only reconstructs the wire shape.
func DecodeResponse(data []byte) (Response, error) {
	var raw sszResponse
	if err := ssz.Unmarshal(data, &raw); err != nil {
		return Response{}, err
	}
	votes := make(vote.VoteSet, len(raw.Votes))
	for _, v := range raw.Votes {
		votes.Add(fromSszVote(v))
	}
	return Response{
		Instance: raw.Instance,
		Round:    vote.RoundNumber(raw.Round),
		Kind:     vote.Kind(raw.Kind),
		Votes:    votes,
	}, nil
}

// sszQueryDescriptor is the wire shape of QueryDescriptor from §6.
type sszQueryDescriptor struct {
	Instance    uint64
	QueryKind   uint8
	Round       uint64
	TargetBlock uint64
	Addressees  [][32]byte
}

// EncodeQueryDescriptor marshals d into the canonical §6 byte layout.
func EncodeQueryDescriptor(d query.Descriptor) ([]byte, error) {
	raw := sszQueryDescriptor{
		Instance:    d.Instance,
		QueryKind:   uint8(d.Kind),
		Round:       uint64(d.Round),
		TargetBlock: uint64(d.TargetBlock),
	}
	for _, a := range d.Addressees {
		raw.Addressees = append(raw.Addressees, [32]byte(a))
	}
	return ssz.Marshal(raw)
}

// DecodeQueryDescriptor unmarshals the canonical §6 byte layout.
func DecodeQueryDescriptor(data []byte) (query.Descriptor, error) {
	var raw sszQueryDescriptor
	if err := ssz.Unmarshal(data, &raw); err != nil {
		return query.Descriptor{}, err
	}
	d := query.Descriptor{
		Instance:    raw.Instance,
		Kind:        query.Kind(raw.QueryKind),
		Round:       vote.RoundNumber(raw.Round),
		TargetBlock: vote.BlockNumber(raw.TargetBlock),
	}
	for _, a := range raw.Addressees {
		d.Addressees = append(d.Addressees, vote.VoterID(a))
	}
	return d, nil
}

// VoteRecord is the exported form of sszVote, used wherever a persisted
// structure outside this file needs to build a vote list field by field
// (accountability.Session.ToRecord, RestoreSession).
type VoteRecord = sszVote

// VoteToRecord and VoteFromRecord expose the Vote<->wire conversion used
// internally by EncodeResponse/DecodeResponse to callers assembling a
// SessionRecord instead of a Response.
func VoteToRecord(v vote.Vote) VoteRecord   { return toSszVote(v) }
func VoteFromRecord(r VoteRecord) vote.Vote { return fromSszVote(r) }

// CommitRecord is the wire shape of a Commit (§3): a block, the round
// every precommit targets, and the precommits themselves.
type CommitRecord struct {
	Block      uint64
	Round      uint64
	Precommits []VoteRecord
}

// QueryRecord is one entry of a persisted Session's queries_by_round (§6's
// persisted state layout), carrying enough of query.State to reconstruct
// it: what was asked, who it was asked of, who answered, what was
// admitted, and whether its deadline already ran out.
type QueryRecord struct {
	Round         uint64
	Kind          uint8
	TargetBlock   uint64
	Addressees    [][32]byte
	Responded     [][32]byte
	AdmittedVotes []VoteRecord
	Deadline      int64
	ByzantineAll  bool
}

// EquivocationRecord is the wire shape of accountability.Equivocation.
type EquivocationRecord struct {
	Voter   [32]byte
	Round   uint64
	Kind    uint8
	TargetA uint64
	TargetB uint64
}

// SessionRecord is the persisted state layout from §6:
// { id, earlier_commit, later_commit, phase_tag, queries_by_round, equivocations },
// plus the verdict and bookkeeping fields a restarted registry needs to
// resume a session exactly where it left off. It is itself the ssz-marshaled
// shape, the same way sszResponse and sszQueryDescriptor double as both
// the in-memory and wire representations.
type SessionRecord struct {
	ID InstanceID

	BlockEarlier  uint64
	RoundEarlier  uint64
	CommitEarlier CommitRecord

	BlockLater  uint64
	RoundLater  uint64
	CommitLater CommitRecord

	PhaseTag uint8
	Queries  []QueryRecord

	Equivocations []EquivocationRecord

	HasVerdict    bool
	VerdictReason uint8
	Equivocators  [][32]byte
	Byzantine     [][32]byte

	StepTwoPrevotes []VoteRecord

	OpenedAt                int64
	ResponseDeadlineSeconds int64
}

// InstanceID mirrors accountability.InstanceID without importing that
// package (wire sits below accountability in the import graph; the
// Registry's persistence path converts at the boundary).
type InstanceID uint64

// EncodeSessionRecord marshals a persisted session into the canonical §6
// byte layout, the same ssz-then-store idiom storage.BlockPersister used
// for blocks, applied here to whole sessions instead.
func EncodeSessionRecord(r SessionRecord) ([]byte, error) {
	return ssz.Marshal(r)
}

// DecodeSessionRecord unmarshals the canonical §6 byte layout back into a
// SessionRecord.
func DecodeSessionRecord(data []byte) (SessionRecord, error) {
	var r SessionRecord
	if err := ssz.Unmarshal(data, &r); err != nil {
		return SessionRecord{}, err
	}
	return r, nil
}

// HashResponse returns the Keccak-256 digest of the canonical encoding
// of r, used to key a deterministic, publicly-agreed acceptance order
// (§4.4's determinism requirement) when the outer transport does not
// already provide one.
func HashResponse(r Response) ([32]byte, error) {
	b, err := EncodeResponse(r)
	if err != nil {
		return [32]byte{}, err
	}
	return Keccak256(b), nil
}
