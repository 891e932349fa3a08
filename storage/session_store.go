package storage

import (
	"encoding/binary"

	"github.com/gagarinchain/accountability/accountability"
	"github.com/gagarinchain/accountability/vote"
	"github.com/gagarinchain/accountability/wire"
)

// SessionStore persists accountability sessions keyed by InstanceID. The
// CLI commands save a session after each open/submit-response/tick/abort
// so a restarted process can resume every session where it left off.
type SessionStore struct {
	store Store
}

func NewSessionStore(store Store) *SessionStore {
	return &SessionStore{store: store}
}

func instanceKey(id accountability.InstanceID) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], uint64(id))
	return k[:]
}

// Save writes s's persisted state layout (§6) to the store, overwriting
// any prior record for the same instance.
func (s *SessionStore) Save(session *accountability.Session) error {
	rec := session.ToRecord()
	data, err := wire.EncodeSessionRecord(rec)
	if err != nil {
		return err
	}
	return s.store.Put(Session, instanceKey(session.ID), data)
}

// Load reads back the session named by id, re-attaching committee and
// ancestry since those are never serialized (§5).
func (s *SessionStore) Load(id accountability.InstanceID, committee *vote.Committee, ancestry vote.AncestryPredicate) (*accountability.Session, error) {
	data, err := s.store.Get(Session, instanceKey(id))
	if err != nil {
		return nil, err
	}
	rec, err := wire.DecodeSessionRecord(data)
	if err != nil {
		return nil, err
	}
	return accountability.RestoreSession(rec, committee, ancestry), nil
}

// Delete removes a session's persisted record. Registry.Purge does not
// call it; purging only affects the in-memory registry.
func (s *SessionStore) Delete(id accountability.InstanceID) error {
	return s.store.Delete(Session, instanceKey(id))
}

// ListIDs enumerates every persisted instance id, used to repopulate a
// Registry's in-memory map on process restart.
func (s *SessionStore) ListIDs() []accountability.InstanceID {
	keys := s.store.Keys(Session, nil)
	ids := make([]accountability.InstanceID, 0, len(keys))
	for _, k := range keys {
		if len(k) != 8 {
			continue
		}
		ids = append(ids, accountability.InstanceID(binary.BigEndian.Uint64(k)))
	}
	return ids
}

// Close releases the underlying store's resources.
func (s *SessionStore) Close() error {
	return s.store.Close()
}
