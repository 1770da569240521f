package broadcast

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/dgraph-io/badger"
	cm "github.com/mosaicnetworks/relay/src/common"
	"github.com/sirupsen/logrus"
)

const (
	valuePrefix = "value"
)

// BadgerStore is an InmemStore backed by a badger database. Every accepted
// value is also written to the database under a sequence key, so the order
// of acceptance survives a restart.
type BadgerStore struct {
	inmemStore *InmemStore
	db         *badger.DB
	path       string

	mu     sync.Mutex
	seq    uint64
	closed bool
}

func openDB(path string, logger *logrus.Entry) (*badger.DB, error) {
	opts := badger.DefaultOptions(path)
	opts.SyncWrites = false
	if logger != nil {
		opts.Logger = logger.WithField("component", "badger")
	}
	return badger.Open(opts)
}

// NewBadgerStore creates a store on an empty database. Values left in path by
// a previous run are dropped.
func NewBadgerStore(dedup bool, path string, logger *logrus.Entry) (*BadgerStore, error) {
	handle, err := openDB(path, logger)
	if err != nil {
		return nil, err
	}

	if err := handle.DropAll(); err != nil {
		handle.Close()
		return nil, err
	}

	return &BadgerStore{
		inmemStore: NewInmemStore(dedup),
		db:         handle,
		path:       path,
	}, nil
}

// LoadBadgerStore opens an existing database and reloads its values, in the
// order they were first accepted.
func LoadBadgerStore(dedup bool, path string, logger *logrus.Entry) (*BadgerStore, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	handle, err := openDB(path, logger)
	if err != nil {
		return nil, err
	}

	store := &BadgerStore{
		inmemStore: NewInmemStore(dedup),
		db:         handle,
		path:       path,
	}

	if err := store.bootstrap(); err != nil {
		handle.Close()
		return nil, err
	}

	return store, nil
}

// LoadOrCreateBadgerStore loads the database in path if there is one, and
// creates a new one otherwise.
func LoadOrCreateBadgerStore(dedup bool, path string, logger *logrus.Entry) (*BadgerStore, error) {
	store, err := LoadBadgerStore(dedup, path, logger)

	if err != nil {
		store, err = NewBadgerStore(dedup, path, logger)

		if err != nil {
			return nil, err
		}
	}

	return store, nil
}

//==============================================================================
//Keys

func valueKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s_%020d", valuePrefix, seq))
}

//==============================================================================
//Implement the Store interface

// Add implements the Store interface. The value is written to the database
// before it becomes visible in memory.
func (s *BadgerStore) Add(v int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, cm.NewStoreErr("Value", cm.Closed, strconv.Itoa(v))
	}

	if s.inmemStore.Dedup() && s.inmemStore.Contains(v) {
		return false, nil
	}

	key := valueKey(s.seq)
	if err := s.dbSetValue(key, v); err != nil {
		return false, mapError(err, "Value", string(key))
	}
	s.seq++

	return s.inmemStore.Add(v)
}

// Values implements the Store interface.
func (s *BadgerStore) Values() ([]int, error) {
	return s.inmemStore.Values()
}

// Len implements the Store interface.
func (s *BadgerStore) Len() int {
	return s.inmemStore.Len()
}

// Dedup implements the Store interface.
func (s *BadgerStore) Dedup() bool {
	return s.inmemStore.Dedup()
}

// Close implements the Store interface.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.inmemStore.Close(); err != nil {
		return err
	}
	return s.db.Close()
}

// Path returns the directory of the database.
func (s *BadgerStore) Path() string {
	return s.path
}

//==============================================================================
//DB Methods

func (s *BadgerStore) dbSetValue(key []byte, v int) error {
	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	if err := tx.Set(key, []byte(strconv.Itoa(v))); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *BadgerStore) dbValues() ([]int, error) {
	res := []int{}
	prefix := []byte(valuePrefix + "_")

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			v, err := strconv.Atoi(string(raw))
			if err != nil {
				return cm.WrapStoreErr("Value", cm.Corrupt, string(item.Key()), err)
			}
			res = append(res, v)
		}
		return nil
	})

	return res, err
}

// bootstrap replays the persisted values into the in-memory store. Under
// deduplication, repeated values written by an earlier run without it are
// loaded once.
func (s *BadgerStore) bootstrap() error {
	values, err := s.dbValues()
	if err != nil {
		return err
	}

	for _, v := range values {
		if _, err := s.inmemStore.Add(v); err != nil {
			return err
		}
	}
	s.seq = uint64(len(values))

	return nil
}

func isDBKeyNotFound(err error) bool {
	return err == badger.ErrKeyNotFound
}

func mapError(err error, name, key string) error {
	if err != nil {
		if isDBKeyNotFound(err) {
			return cm.NewStoreErr(name, cm.KeyNotFound, key)
		}
		if _, ok := err.(cm.StoreErr); ok {
			return err
		}
		return cm.WrapStoreErr(name, cm.Io, key, err)
	}
	return err
}
