package storage

import (
	"path"

	"github.com/op/go-logging"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	lstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var log = logging.MustGetLogger("storage")

const dbName = "accountability"

// LevelStore implements Store over a LevelDB handle, built the same way
// common/storage.go's NewStorage builds StorageImpl: an empty path opens
// an in-memory database (tests), a non-empty one opens (and recovers, if
// corrupted) a file-backed database under path/accountability.
type LevelStore struct {
	db *leveldb.DB
}

// Open builds a LevelStore at dir. dir == "" opens an in-memory database.
func Open(dir string) (*LevelStore, error) {
	var opts opt.Options
	var db *leveldb.DB
	var err error

	if dir == "" {
		db, err = leveldb.Open(lstorage.NewMemStorage(), &opts)
	} else {
		p := path.Join(dir, dbName)
		db, err = leveldb.OpenFile(p, &opts)
		if errors.IsCorrupted(err) && !opts.GetReadOnly() {
			log.Warningf("recovering corrupted database at %s", p)
			db, err = leveldb.RecoverFile(p, &opts)
		}
		if err == nil {
			log.Debugf("opened session store at %s", p)
		}
	}
	if err != nil {
		return nil, err
	}
	return &LevelStore{db: db}, nil
}

func prefixedKey(rtype ResourceType, key []byte) []byte {
	k := make([]byte, 0, 1+len(key))
	k = append(k, byte(rtype))
	return append(k, key...)
}

func (s *LevelStore) Put(rtype ResourceType, key []byte, value []byte) error {
	return s.db.Put(prefixedKey(rtype, key), value, &opt.WriteOptions{})
}

func (s *LevelStore) Get(rtype ResourceType, key []byte) ([]byte, error) {
	return s.db.Get(prefixedKey(rtype, key), &opt.ReadOptions{})
}

func (s *LevelStore) Contains(rtype ResourceType, key []byte) bool {
	ok, _ := s.db.Has(prefixedKey(rtype, key), &opt.ReadOptions{})
	return ok
}

func (s *LevelStore) Delete(rtype ResourceType, key []byte) error {
	return s.db.Delete(prefixedKey(rtype, key), &opt.WriteOptions{})
}

func (s *LevelStore) Keys(rtype ResourceType, keyPrefix []byte) [][]byte {
	prefix := prefixedKey(rtype, keyPrefix)
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	var keys [][]byte
	for iter.Next() {
		k := iter.Key()
		cp := make([]byte, len(k)-1)
		copy(cp, k[1:]) // drop the resource-type prefix byte
		keys = append(keys, cp)
	}
	return keys
}

func (s *LevelStore) Stats() *leveldb.DBStats {
	stats := &leveldb.DBStats{}
	if err := s.db.Stats(stats); err != nil {
		log.Error(err)
		return nil
	}
	return stats
}

func (s *LevelStore) Close() error {
	return s.db.Close()
}
