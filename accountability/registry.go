package accountability

import (
	"bytes"
	"encoding/binary"
	"sort"
	"sync"
	"time"

	"github.com/gagarinchain/accountability/query"
	"github.com/gagarinchain/accountability/validate"
	"github.com/gagarinchain/accountability/vote"
	"github.com/gagarinchain/accountability/wire"
)

// Registry is the Session Registry from §4.5: it creates sessions on
// open(), looks them up by InstanceID, enumerates active (non-Terminated)
// sessions, and purges terminated ones after a retention window. It
// supersedes hotstuff/protocol.go's role of owning the live Protocol state
// - here the registry owns many independent Session state machines instead
// of one running consensus protocol, behind a single exclusive-write /
// many-read lock as §5 requires.
type Registry struct {
	mu        sync.RWMutex
	sessions  map[InstanceID]*Session
	retention time.Duration
}

// NewRegistry builds an empty Registry. retention is how long a Terminated
// session is kept before Purge removes it (§4.5, §6).
func NewRegistry(retention time.Duration) *Registry {
	return &Registry{
		sessions:  make(map[InstanceID]*Session),
		retention: retention,
	}
}

// Open implements open(commit_earlier, commit_later) (§6). It accepts the
// two commits in either order, determines which is earlier by round, and
// rejects the InputInvariant violations named in §7: same block, ancestor
// relation, or same round. Reopening the same conflict (same pair of
// commits) is idempotent and returns the existing instance id.
func (r *Registry) Open(commitA, commitB *vote.Commit, committee *vote.Committee, ancestry vote.AncestryPredicate, responseDeadline time.Duration, now int64) (InstanceID, error) {
	if commitA.Block == commitB.Block {
		return 0, ErrSameBlock
	}
	if ancestry.IsAncestor(commitA.Block, commitB.Block) || ancestry.IsAncestor(commitB.Block, commitA.Block) {
		return 0, ErrAncestors
	}
	if commitA.Round == commitB.Round {
		return 0, ErrSameRound
	}

	earlier, later := commitA, commitB
	if earlier.Round > later.Round {
		earlier, later = later, earlier
	}

	id := deriveInstanceID(earlier, later)

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[id]; ok {
		return existing.ID, nil
	}

	session := newSession(id, earlier.Block, earlier.Round, earlier, later.Block, later.Round, later, committee, ancestry, responseDeadline, now)
	session.dispatchFirstQuery()
	r.sessions[id] = session

	log.Infof("opened session %d: block %d@round %d vs block %d@round %d", id, earlier.Block, earlier.Round, later.Block, later.Round)
	return id, nil
}

// OpenDegenerate implements the §4.4 tie-break for r' = r: two commits at
// the same round can never both be valid unless at least one third of the
// voter set signed both, so the conflict is resolved immediately by
// unioning the two commits' precommits rather than by opening a
// query-driven session.
func (r *Registry) OpenDegenerate(commitA, commitB *vote.Commit) (InstanceID, error) {
	if commitA.Block == commitB.Block {
		return 0, ErrSameBlock
	}
	if commitA.Round != commitB.Round {
		return 0, ErrSameRound
	}

	id := deriveInstanceID(commitA, commitB)
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[id]; ok {
		return existing.ID, nil
	}

	session := &Session{
		ID:            id,
		BlockEarlier:  commitA.Block,
		RoundEarlier:  commitA.Round,
		CommitEarlier: commitA,
		BlockLater:    commitB.Block,
		RoundLater:    commitB.Round,
		CommitLater:   commitB,
		Queries:       newQueriesMap(),
	}
	session.recordEquivocations(commitB.Precommits)
	session.finalize(VerdictEquivocators)
	r.sessions[id] = session

	log.Infof("opened degenerate session %d for same-round conflict at round %d", id, commitA.Round)
	return id, nil
}

func (r *Registry) get(id InstanceID) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrUnknownInstance
	}
	return s, nil
}

// SubmitResponse implements submit_response (§6).
func (r *Registry) SubmitResponse(validator *validate.Validator, id InstanceID, responder vote.VoterID, payload vote.VoteSet, now int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return ErrUnknownInstance
	}
	return s.HandleResponse(validator, responder, payload, now)
}

// Tick implements tick(now) (§5, §6) across every active session.
func (r *Registry) Tick(now int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		s.Tick(now)
	}
}

// Abort implements abort(instance) (§5, §6).
func (r *Registry) Abort(id InstanceID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return ErrUnknownInstance
	}
	s.Abort()
	return nil
}

// ActiveInstances implements active_instances() (§6): every session not
// yet Terminated.
func (r *Registry) ActiveInstances() []InstanceID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]InstanceID, 0, len(r.sessions))
	for id, s := range r.sessions {
		if !s.IsTerminated() {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Restore re-inserts a session rebuilt from persisted state (§6) into the
// registry, used once at startup for every id the session store lists.
// Sessions restored this way keep whatever id they were opened under, so
// a duplicate Restore for the same id overwrites the earlier one.
func (r *Registry) Restore(session *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session
}

// Session returns the live session named by id, for collaborators that
// need more than a Snapshot - the storage package's SessionStore persists
// directly from this rather than from a read-only projection.
func (r *Registry) Session(id InstanceID) (*Session, error) {
	return r.get(id)
}

// State implements state(instance) (§6).
func (r *Registry) State(id InstanceID) (Snapshot, error) {
	s, err := r.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return snapshotOf(s), nil
}

// PendingQueries implements pending_queries(instance) (§6): the single
// outstanding QueryDescriptor, if any, for the outer transport to
// disseminate.
func (r *Registry) PendingQueries(id InstanceID) ([]query.Descriptor, error) {
	s, err := r.get(id)
	if err != nil {
		return nil, err
	}
	if s.IsTerminated() || s.current == nil {
		return nil, nil
	}
	return []query.Descriptor{s.current.Descriptor(uint64(id))}, nil
}

// Verdict implements verdict(instance) (§6): nil until the session has
// terminated.
func (r *Registry) Verdict(id InstanceID) (*Verdict, error) {
	s, err := r.get(id)
	if err != nil {
		return nil, err
	}
	if !s.IsTerminated() {
		return nil, nil
	}
	return s.Verdict, nil
}

// Purge implements the retention half of §4.5: drop every Terminated
// session whose termination happened at least r.retention before now.
// The actual termination time is not recorded, so Purge measures from the
// deadline of the session's last dispatched query, or from OpenedAt when
// the session never dispatched one.
func (r *Registry) Purge(now int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.sessions {
		if !s.IsTerminated() {
			continue
		}
		finishedAt := s.OpenedAt
		if s.current != nil {
			finishedAt = s.current.Deadline
		}
		if now-finishedAt >= int64(r.retention.Seconds()) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

func deriveInstanceID(earlier, later *vote.Commit) InstanceID {
	buf := appendCommit(nil, earlier)
	buf = appendCommit(buf, later)
	h := wire.Keccak256(buf)
	return InstanceID(binary.BigEndian.Uint64(h[:8]))
}

func appendCommit(buf []byte, c *vote.Commit) []byte {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(c.Block))
	buf = append(buf, n[:]...)
	binary.BigEndian.PutUint64(n[:], uint64(c.Round))
	buf = append(buf, n[:]...)

	voters := c.Voters()
	sort.Slice(voters, func(i, j int) bool { return bytes.Compare(voters[i][:], voters[j][:]) < 0 })
	for _, v := range voters {
		buf = append(buf, v[:]...)
	}
	return buf
}
