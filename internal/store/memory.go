package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store. Every record carries a version number;
// a transaction snapshots the versions of its declared keys, buffers its
// writes, and at commit re-validates every declared version under the
// store lock. A mismatch rejects the whole transaction with ErrConflict.
//
// Versions are drawn from a store-wide commit counter, never per key: a
// key deleted and recreated gets a version no in-flight transaction can
// have snapshotted, so validation catches the recreate the same as any
// other concurrent write.
type Memory struct {
	mu    sync.RWMutex
	clock uint64
	recs  map[Key]memRecord
}

type memRecord struct {
	version uint64
	data    []byte
}

func NewMemory() *Memory {
	return &Memory{recs: make(map[Key]memRecord)}
}

func (m *Memory) Run(ctx context.Context, keys []Key, fn func(Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	txn := &memTxn{
		snapshot: make(map[Key]memRecord, len(keys)),
		declared: make(map[Key]bool, len(keys)),
		pending:  make(map[Key]pendingWrite),
	}

	m.mu.RLock()
	for _, k := range keys {
		txn.declared[k] = true
		if rec, ok := m.recs[k]; ok {
			data := make([]byte, len(rec.data))
			copy(data, rec.data)
			txn.snapshot[k] = memRecord{version: rec.version, data: data}
		}
	}
	m.mu.RUnlock()

	if err := fn(txn); err != nil {
		return err
	}
	if len(txn.pending) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Validate every declared key, not just the written ones: a read
	// that fed the transaction's logic is stale the same way a write is.
	for k := range txn.declared {
		snap, had := txn.snapshot[k]
		cur, has := m.recs[k]
		if had != has || (had && snap.version != cur.version) {
			return ErrConflict
		}
	}

	m.clock++
	for k, w := range txn.pending {
		if w.delete {
			delete(m.recs, k)
			continue
		}
		m.recs[k] = memRecord{version: m.clock, data: w.data}
	}
	return nil
}

func (m *Memory) Get(ctx context.Context, k Key) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.recs[k]
	if !ok {
		return nil, ErrNotFound
	}
	data := make([]byte, len(rec.data))
	copy(data, rec.data)
	return data, nil
}

func (m *Memory) Close() error { return nil }

type pendingWrite struct {
	data   []byte
	delete bool
}

type memTxn struct {
	snapshot map[Key]memRecord
	declared map[Key]bool
	pending  map[Key]pendingWrite
}

func (t *memTxn) Get(k Key) ([]byte, error) {
	if !t.declared[k] {
		return nil, ErrUndeclared
	}
	if w, ok := t.pending[k]; ok {
		if w.delete {
			return nil, ErrNotFound
		}
		return w.data, nil
	}
	rec, ok := t.snapshot[k]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.data, nil
}

func (t *memTxn) Create(k Key, rec []byte) error {
	if !t.declared[k] {
		return ErrUndeclared
	}
	if t.exists(k) {
		return ErrExists
	}
	t.pending[k] = pendingWrite{data: cloneBytes(rec)}
	return nil
}

func (t *memTxn) Update(k Key, rec []byte) error {
	if !t.declared[k] {
		return ErrUndeclared
	}
	if !t.exists(k) {
		return ErrNotFound
	}
	t.pending[k] = pendingWrite{data: cloneBytes(rec)}
	return nil
}

func (t *memTxn) Delete(k Key) error {
	if !t.declared[k] {
		return ErrUndeclared
	}
	if !t.exists(k) {
		return ErrNotFound
	}
	t.pending[k] = pendingWrite{delete: true}
	return nil
}

func (t *memTxn) exists(k Key) bool {
	if w, ok := t.pending[k]; ok {
		return !w.delete
	}
	_, ok := t.snapshot[k]
	return ok
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
