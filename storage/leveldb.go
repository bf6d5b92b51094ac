package storage

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDB implements DB on top of goleveldb, the durable backend
// alongside the in-memory MemDB.
type LevelDB struct {
	db *leveldb.DB
}

// NewLevelDB opens (or creates) a LevelDB database at path.
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, newErr(ErrBackend, fmt.Sprintf("open leveldb %q", path), err)
	}
	return &LevelDB{db: db}, nil
}

func (l *LevelDB) Get(key []byte) ([]byte, error) {
	val, err := l.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, newErr(ErrNotFound, fmt.Sprintf("key %x", key), nil)
	}
	if err != nil {
		return nil, newErr(ErrIO, fmt.Sprintf("get %x", key), err)
	}
	return val, nil
}

func (l *LevelDB) Set(key, value []byte) error {
	if err := l.db.Put(key, value, nil); err != nil {
		return newErr(ErrIO, fmt.Sprintf("set %x", key), err)
	}
	return nil
}

func (l *LevelDB) Delete(key []byte) error {
	if err := l.db.Delete(key, nil); err != nil {
		return newErr(ErrIO, fmt.Sprintf("delete %x", key), err)
	}
	return nil
}

func (l *LevelDB) NewIterator(prefix []byte) Iterator {
	return &levelIterator{it: l.db.NewIterator(util.BytesPrefix(prefix), nil)}
}

func (l *LevelDB) Close() error {
	if err := l.db.Close(); err != nil {
		return newErr(ErrIO, "close leveldb", err)
	}
	return nil
}

type levelIterator struct {
	it iterator.Iterator
}

func (i *levelIterator) Next() bool       { return i.it.Next() }
func (i *levelIterator) Key() []byte      { return i.it.Key() }
func (i *levelIterator) Value() []byte    { return i.it.Value() }
func (i *levelIterator) Release()         { i.it.Release() }
func (i *levelIterator) Error() error     { return i.it.Error() }

// levelBatch implements Batch over a goleveldb *leveldb.Batch.
type levelBatch struct {
	db    *leveldb.DB
	batch *leveldb.Batch
}

func (l *LevelDB) NewBatch() Batch {
	return &levelBatch{db: l.db, batch: new(leveldb.Batch)}
}

func (b *levelBatch) Set(key, value []byte) { b.batch.Put(key, value) }
func (b *levelBatch) Delete(key []byte)     { b.batch.Delete(key) }
func (b *levelBatch) Reset()                { b.batch.Reset() }
func (b *levelBatch) Write() error {
	if err := b.db.Write(b.batch, nil); err != nil {
		return newErr(ErrIO, "write batch", err)
	}
	return nil
}
