package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

// Codec encodes map keys for the byte-oriented Badger backend.
type Codec[K comparable] interface {
	Encode(K) []byte
	Decode([]byte) (K, error)
}

// DB wraps a shared Badger database. All BadgerMaps of one process share
// a single DB and are separated by a name prefix.
type DB struct {
	badgerDB *badger.DB
	log      *logrus.Logger
}

// OpenDB opens (or creates) a Badger database at path.
func OpenDB(path string, log *logrus.Logger) (*DB, error) {
	if log == nil {
		log = logrus.New()
	}
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.SyncWrites = false

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger store at %s: %w", path, err)
	}
	return &DB{badgerDB: db, log: log}, nil
}

// Close flushes and closes the underlying database.
func (d *DB) Close() error {
	return d.badgerDB.Close()
}

// RunGC runs Badger's value-log garbage collection until ctx-free
// completion of one pass. Meant to be called periodically.
func (d *DB) RunGC() {
	for {
		if err := d.badgerDB.RunValueLogGC(0.5); err != nil {
			return
		}
	}
}

// BadgerMap is a durable Map on a shared Badger database. Values are
// stored as JSON; expiry uses Badger's native entry TTL.
type BadgerMap[K comparable, V any] struct {
	db     *DB
	prefix []byte
	codec  Codec[K]
}

// NewBadgerMap creates a named map on db. The name keeps this map's keys
// separate from other maps sharing the database.
func NewBadgerMap[K comparable, V any](db *DB, name string, codec Codec[K]) *BadgerMap[K, V] {
	return &BadgerMap[K, V]{db: db, prefix: []byte(name + keySeparator), codec: codec}
}

func (m *BadgerMap[K, V]) key(k K) []byte {
	return append(append([]byte{}, m.prefix...), m.codec.Encode(k)...)
}

func (m *BadgerMap[K, V]) Get(k K) (V, bool, error) {
	var zero V
	var raw []byte
	err := m.db.badgerDB.View(func(txn *badger.Txn) error {
		item, err := txn.Get(m.key(k))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("badger get: %w", err)
	}
	var v V
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, false, fmt.Errorf("decoding stored value: %w", err)
	}
	return v, true, nil
}

func (m *BadgerMap[K, V]) Set(k K, v V, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding value: %w", err)
	}
	return m.db.badgerDB.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(m.key(k), raw)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

func (m *BadgerMap[K, V]) SetAll(entries map[K]V, ttl time.Duration) error {
	wb := m.db.badgerDB.NewWriteBatch()
	defer wb.Cancel()
	for k, v := range entries {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding value: %w", err)
		}
		e := badger.NewEntry(m.key(k), raw)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		if err := wb.SetEntry(e); err != nil {
			return fmt.Errorf("badger batch set: %w", err)
		}
	}
	return wb.Flush()
}

func (m *BadgerMap[K, V]) Delete(k K) (bool, error) {
	present, err := m.Has(k)
	if err != nil {
		return false, err
	}
	err = m.db.badgerDB.Update(func(txn *badger.Txn) error {
		return txn.Delete(m.key(k))
	})
	if err != nil {
		return false, fmt.Errorf("badger delete: %w", err)
	}
	return present, nil
}

func (m *BadgerMap[K, V]) Has(k K) (bool, error) {
	err := m.db.badgerDB.View(func(txn *badger.Txn) error {
		_, err := txn.Get(m.key(k))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("badger get: %w", err)
	}
	return true, nil
}

func (m *BadgerMap[K, V]) Keys() ([]K, error) {
	var keys []K
	err := m.db.badgerDB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(m.prefix); it.ValidForPrefix(m.prefix); it.Next() {
			raw := it.Item().KeyCopy(nil)
			k, err := m.codec.Decode(raw[len(m.prefix):])
			if err != nil {
				m.db.log.WithError(err).Warn("skipping undecodable storage key")
				continue
			}
			keys = append(keys, k)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger scan: %w", err)
	}
	return keys, nil
}

func (m *BadgerMap[K, V]) GetAll(keys []K) (map[K]V, error) {
	out := make(map[K]V, len(keys))
	err := m.db.badgerDB.View(func(txn *badger.Txn) error {
		for _, k := range keys {
			item, err := txn.Get(m.key(k))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			var v V
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("decoding stored value: %w", err)
			}
			out[k] = v
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger bulk get: %w", err)
	}
	return out, nil
}

func (m *BadgerMap[K, V]) Size() (int, error) {
	n := 0
	err := m.db.badgerDB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(m.prefix); it.ValidForPrefix(m.prefix); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("badger scan: %w", err)
	}
	return n, nil
}

func (m *BadgerMap[K, V]) Clear() error {
	keys, err := m.Keys()
	if err != nil {
		return err
	}
	wb := m.db.badgerDB.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(m.key(k)); err != nil {
			return fmt.Errorf("badger batch delete: %w", err)
		}
	}
	return wb.Flush()
}
