package accountability

import (
	"time"

	"github.com/gagarinchain/accountability/query"
	"github.com/gagarinchain/accountability/vote"
	"github.com/gagarinchain/accountability/wire"
)

// ToRecord projects the session into the persisted state layout from §6,
// ready for wire.EncodeSessionRecord. It is the same whole-object-to-record
// conversion storage.BlockPersister.Persist performs on a Block before
// handing it to leveldb.
func (s *Session) ToRecord() wire.SessionRecord {
	rec := wire.SessionRecord{
		ID:                      wire.InstanceID(s.ID),
		BlockEarlier:            uint64(s.BlockEarlier),
		RoundEarlier:            uint64(s.RoundEarlier),
		BlockLater:              uint64(s.BlockLater),
		RoundLater:              uint64(s.RoundLater),
		PhaseTag:                uint8(s.Phase),
		OpenedAt:                s.OpenedAt,
		ResponseDeadlineSeconds: int64(s.ResponseDeadline.Seconds()),
	}

	if s.CommitEarlier != nil {
		rec.CommitEarlier = commitToRecord(s.CommitEarlier)
	}
	if s.CommitLater != nil {
		rec.CommitLater = commitToRecord(s.CommitLater)
	}

	it := s.Queries.Iterator()
	for it.Next() {
		rec.Queries = append(rec.Queries, queryToRecord(it.Value().(*query.State)))
	}

	for _, eq := range s.Equivocations {
		rec.Equivocations = append(rec.Equivocations, wire.EquivocationRecord{
			Voter:   eq.Voter,
			Round:   uint64(eq.Round),
			Kind:    uint8(eq.Kind),
			TargetA: uint64(eq.TargetA),
			TargetB: uint64(eq.TargetB),
		})
	}

	if s.Verdict != nil {
		rec.HasVerdict = true
		rec.VerdictReason = uint8(s.Verdict.Reason)
		rec.Equivocators = voterIDsToBytes(s.Verdict.Equivocators)
		rec.Byzantine = voterIDsToBytes(s.Verdict.Byzantine)
	}

	if s.stepTwoPrevotes != nil {
		rec.StepTwoPrevotes = votesToRecords(s.stepTwoPrevotes)
	}

	return rec
}

// RestoreSession rebuilds a Session from its persisted record plus the
// collaborators a restarted process must supply fresh: the committee and
// ancestry predicate are captured at open time and never serialized (§5's
// "captured once at session open" design note), so the caller re-supplies
// them from whatever chain/committee source it used originally.
func RestoreSession(rec wire.SessionRecord, committee *vote.Committee, ancestry vote.AncestryPredicate) *Session {
	s := &Session{
		ID:                  InstanceID(rec.ID),
		BlockEarlier:        vote.BlockNumber(rec.BlockEarlier),
		RoundEarlier:        vote.RoundNumber(rec.RoundEarlier),
		CommitEarlier:       commitFromRecord(rec.CommitEarlier),
		BlockLater:          vote.BlockNumber(rec.BlockLater),
		RoundLater:          vote.RoundNumber(rec.RoundLater),
		CommitLater:         commitFromRecord(rec.CommitLater),
		Committee:           committee,
		Ancestry:            ancestry,
		Phase:               Phase(rec.PhaseTag),
		Queries:             newQueriesMap(),
		ByzantineCandidates: make(map[vote.VoterID]struct{}),
		ResponseDeadline:    time.Duration(rec.ResponseDeadlineSeconds) * time.Second,
		OpenedAt:            rec.OpenedAt,
	}

	var current *query.State
	for _, qr := range rec.Queries {
		qs := queryFromRecord(qr)
		s.Queries.Put(qs.Round, qs)
		current = qs
	}
	s.current = current

	for _, er := range rec.Equivocations {
		s.Equivocations = append(s.Equivocations, Equivocation{
			Voter:   er.Voter,
			Round:   vote.RoundNumber(er.Round),
			Kind:    vote.Kind(er.Kind),
			TargetA: vote.BlockNumber(er.TargetA),
			TargetB: vote.BlockNumber(er.TargetB),
		})
	}

	if len(rec.StepTwoPrevotes) > 0 {
		s.stepTwoPrevotes = votesFromRecords(rec.StepTwoPrevotes)
	}

	if rec.HasVerdict {
		s.Verdict = &Verdict{
			Reason:       VerdictReason(rec.VerdictReason),
			Equivocators: voterIDsFromBytes(rec.Equivocators),
			Byzantine:    voterIDsFromBytes(rec.Byzantine),
		}
	}

	return s
}

func commitToRecord(c *vote.Commit) wire.CommitRecord {
	return wire.CommitRecord{
		Block:      uint64(c.Block),
		Round:      uint64(c.Round),
		Precommits: votesToRecords(c.Precommits),
	}
}

func commitFromRecord(r wire.CommitRecord) *vote.Commit {
	if len(r.Precommits) == 0 {
		return nil
	}
	return &vote.Commit{
		Block:      vote.BlockNumber(r.Block),
		Round:      vote.RoundNumber(r.Round),
		Precommits: votesFromRecords(r.Precommits),
	}
}

func queryToRecord(qs *query.State) wire.QueryRecord {
	rec := wire.QueryRecord{
		Round:         uint64(qs.Round),
		Kind:          uint8(qs.Kind),
		TargetBlock:   uint64(qs.TargetBlock),
		AdmittedVotes: votesToRecords(qs.AdmittedVotes),
		Deadline:      qs.Deadline,
		ByzantineAll:  qs.ByzantineAll,
	}
	for id := range qs.Addressees {
		rec.Addressees = append(rec.Addressees, [32]byte(id))
	}
	for id := range qs.Responses {
		rec.Responded = append(rec.Responded, [32]byte(id))
	}
	return rec
}

func queryFromRecord(r wire.QueryRecord) *query.State {
	addressees := make([]vote.VoterID, 0, len(r.Addressees))
	for _, a := range r.Addressees {
		addressees = append(addressees, vote.VoterID(a))
	}
	qs := query.NewState(query.Kind(r.Kind), vote.RoundNumber(r.Round), vote.BlockNumber(r.TargetBlock), addressees)
	qs.AdmittedVotes = votesFromRecords(r.AdmittedVotes)
	qs.Deadline = r.Deadline
	qs.ByzantineAll = r.ByzantineAll
	// Responses only needs to record who answered for HasValidResponse and
	// the state snapshot; the per-responder payload is already folded into
	// AdmittedVotes, so it is not worth a second copy in the record.
	for _, id := range r.Responded {
		qs.Responses[vote.VoterID(id)] = nil
	}
	return qs
}

func votesToRecords(votes vote.VoteSet) []wire.VoteRecord {
	out := make([]wire.VoteRecord, 0, len(votes))
	for v := range votes {
		out = append(out, wire.VoteToRecord(v))
	}
	return out
}

func votesFromRecords(records []wire.VoteRecord) vote.VoteSet {
	out := vote.NewVoteSet()
	for _, r := range records {
		out.Add(wire.VoteFromRecord(r))
	}
	return out
}

func voterIDsToBytes(ids []vote.VoterID) [][32]byte {
	out := make([][32]byte, 0, len(ids))
	for _, id := range ids {
		out = append(out, [32]byte(id))
	}
	return out
}

func voterIDsFromBytes(raw [][32]byte) []vote.VoterID {
	out := make([]vote.VoterID, 0, len(raw))
	for _, r := range raw {
		out = append(out, vote.VoterID(r))
	}
	return out
}
