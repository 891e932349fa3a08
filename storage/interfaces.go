// Package storage persists accountability sessions to LevelDB, the same
// resource-type-prefixed key scheme common/storage.go's StorageImpl uses
// for blocks and pacer state, applied here to the §6 persisted state
// layout instead.
package storage

import "github.com/syndtr/goleveldb/leveldb"

// ResourceType is a one-byte prefix distinguishing the record kinds this
// package stores, the same prefixing scheme storage.ResourceType uses.
type ResourceType byte

const (
	Session   = ResourceType(0x0)
	Retention = ResourceType(0x1)
)

// Store is the persistence surface the Registry needs: put/get/delete/
// enumerate keyed records, plus Stats for operational visibility the way
// StorageImpl.Stats exposes leveldb.DBStats.
type Store interface {
	Put(rtype ResourceType, key []byte, value []byte) error
	Get(rtype ResourceType, key []byte) (value []byte, err error)
	Contains(rtype ResourceType, key []byte) bool
	Delete(rtype ResourceType, key []byte) error
	Keys(rtype ResourceType, keyPrefix []byte) [][]byte
	Stats() *leveldb.DBStats
	Close() error
}
