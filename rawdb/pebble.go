package rawdb

import (
	"github.com/cockroachdb/pebble"
)

// PebbleDB is the production Database implementation, backed by an
// embedded Pebble LSM store. This is the only on-disk engine this module
// ships (see DESIGN.md's Open Question resolution): one durable format,
// one write path, no legacy/alternate-engine branching to maintain.
type PebbleDB struct {
	db *pebble.DB
}

// OpenPebble opens (creating if necessary) a Pebble database at dir.
func OpenPebble(dir string) (*PebbleDB, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleDB{db: db}, nil
}

func (p *PebbleDB) Get(key []byte) ([]byte, error) {
	v, closer, err := p.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	closer.Close()
	return cp, nil
}

func (p *PebbleDB) Has(key []byte) (bool, error) {
	_, closer, err := p.db.Get(key)
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	closer.Close()
	return true, nil
}

func (p *PebbleDB) Put(key, value []byte) error {
	return p.db.Set(key, value, pebble.Sync)
}

func (p *PebbleDB) Delete(key []byte) error {
	return p.db.Delete(key, pebble.Sync)
}

func (p *PebbleDB) Close() error { return p.db.Close() }

func (p *PebbleDB) NewBatch() Batch {
	return &pebbleBatch{db: p.db, batch: p.db.NewBatch()}
}

// NewIterator walks keys lexicographically starting at start (or prefix
// itself if start is shorter/absent), stopping once the key no longer
// carries prefix.
func (p *PebbleDB) NewIterator(prefix, start []byte) Iterator {
	lower := append([]byte{}, prefix...)
	if len(start) > len(lower) {
		lower = append([]byte{}, start...)
	}
	upper := upperBound(prefix)
	it, err := p.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return &errIterator{err: err}
	}
	return &pebbleIterator{it: it, prefix: prefix, started: false}
}

// upperBound computes the exclusive upper bound for a prefix scan by
// incrementing the last non-0xff byte, matching Pebble's own idiom for
// bounded prefix iteration.
func upperBound(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}
	upper := append([]byte{}, prefix...)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] == 0xff {
			upper = upper[:i]
			continue
		}
		upper[i]++
		return upper
	}
	return nil
}

type pebbleIterator struct {
	it      *pebble.Iterator
	prefix  []byte
	started bool
}

func (it *pebbleIterator) Next() bool {
	if !it.started {
		it.started = true
		return it.it.First()
	}
	return it.it.Next()
}

func (it *pebbleIterator) Key() []byte   { return it.it.Key() }
func (it *pebbleIterator) Value() []byte { return it.it.Value() }
func (it *pebbleIterator) Release()      { it.it.Close() }

type errIterator struct{ err error }

func (it *errIterator) Next() bool    { return false }
func (it *errIterator) Key() []byte   { return nil }
func (it *errIterator) Value() []byte { return nil }
func (it *errIterator) Release()      {}

type pebbleBatch struct {
	db    *pebble.DB
	batch *pebble.Batch
}

func (b *pebbleBatch) Put(key, value []byte) error {
	return b.batch.Set(key, value, nil)
}

func (b *pebbleBatch) Delete(key []byte) error {
	return b.batch.Delete(key, nil)
}

func (b *pebbleBatch) ValueSize() int { return len(b.batch.Repr()) }

func (b *pebbleBatch) Write() error {
	return b.db.Apply(b.batch, pebble.Sync)
}

func (b *pebbleBatch) Reset() {
	b.batch.Reset()
}
