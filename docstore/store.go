// Package docstore implements the illustrative RocksDB-backed document
// store behind the MM worker chain (spec.md's original MongoDB worker,
// reworked per SPEC_FULL.md §4.10 onto an embedded engine this repo can
// actually ship without an external database). Documents are JSON
// objects keyed by "<db>/<collection>/<id>", written with
// github.com/tecbot/gorocksdb the same way consumer/store-rocksdb uses
// it for its observed RocksDB instances.
package docstore

import (
	"github.com/pkg/errors"
	rocks "github.com/tecbot/gorocksdb"
)

// Store wraps a single RocksDB instance holding every db/collection's
// documents in one keyspace, partitioned by key prefix.
type Store struct {
	db *rocks.DB
	ro *rocks.ReadOptions
	wo *rocks.WriteOptions
	o  *rocks.Options
}

// Open creates (if necessary) and opens the RocksDB instance at dir.
func Open(dir string) (*Store, error) {
	o := rocks.NewDefaultOptions()
	o.SetCreateIfMissing(true)

	db, err := rocks.OpenDb(o, dir)
	if err != nil {
		o.Destroy()
		return nil, errors.Wrapf(err, "opening rocksdb at %q", dir)
	}

	wo := rocks.NewDefaultWriteOptions()
	wo.SetSync(true)

	return &Store{
		db: db,
		ro: rocks.NewDefaultReadOptions(),
		wo: wo,
		o:  o,
	}, nil
}

// Close releases the database and its option handles.
func (s *Store) Close() {
	s.db.Close()
	s.ro.Destroy()
	s.wo.Destroy()
	s.o.Destroy()
}

func docKey(db, collection, id string) []byte {
	return []byte(db + "/" + collection + "/" + id)
}

func collectionPrefix(db, collection string) []byte {
	return []byte(db + "/" + collection + "/")
}

// Put writes doc at the given db/collection/id key.
func (s *Store) Put(db, collection, id string, doc []byte) error {
	return errors.Wrap(s.db.Put(s.wo, docKey(db, collection, id), doc), "rocksdb put")
}

// Get reads the document stored at db/collection/id. A nil slice with a
// nil error means no such document exists.
func (s *Store) Get(db, collection, id string) ([]byte, error) {
	slice, err := s.db.Get(s.ro, docKey(db, collection, id))
	if err != nil {
		return nil, errors.Wrap(err, "rocksdb get")
	}
	defer slice.Free()
	if slice.Data() == nil {
		return nil, nil
	}
	out := make([]byte, slice.Size())
	copy(out, slice.Data())
	return out, nil
}

// Delete removes the document stored at db/collection/id. Deleting a
// missing key is not an error, matching RocksDB's own semantics.
func (s *Store) Delete(db, collection, id string) error {
	return errors.Wrap(s.db.Delete(s.wo, docKey(db, collection, id)), "rocksdb delete")
}

// ScanCollection calls visit(id, doc) for every document in db/collection,
// in key order, until visit returns false or the scan is exhausted.
func (s *Store) ScanCollection(db, collection string, visit func(id string, doc []byte) bool) error {
	prefix := collectionPrefix(db, collection)

	it := s.db.NewIterator(s.ro)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := it.Key()
		value := it.Value()

		id := string(key.Data()[len(prefix):])
		doc := make([]byte, value.Size())
		copy(doc, value.Data())

		key.Free()
		value.Free()

		if !visit(id, doc) {
			break
		}
	}
	return errors.Wrap(it.Err(), "rocksdb iterator")
}
