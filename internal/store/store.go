// Package store provides the record store backing the TPC-C entities: a
// flat keyspace of independently addressable records with atomic commit of
// a declared read/write set and optimistic per-record conflict detection.
package store

import (
	"context"
	"encoding/hex"

	"github.com/pkg/errors"
)

// KeySize is the width of a derived record key.
const KeySize = 32

// Key addresses exactly one record. Keys are derived deterministically
// from an entity's primary-key fields, so two records with the same key
// fields always resolve to the same storage location.
type Key [KeySize]byte

func (k Key) String() string {
	return hex.EncodeToString(k[:8])
}

var (
	// ErrNotFound is returned when a declared key has no record.
	ErrNotFound = errors.New("store: record not found")

	// ErrExists is returned when creating a key that already holds a record.
	ErrExists = errors.New("store: record already exists")

	// ErrConflict is returned when a declared key was concurrently
	// mutated between the transaction's read phase and its commit. The
	// transaction is fully rolled back; the caller may retry.
	ErrConflict = errors.New("store: conflicting concurrent write")

	// ErrUndeclared is returned when a transaction touches a key it did
	// not declare up front.
	ErrUndeclared = errors.New("store: key not in declared set")
)

// Txn is the view a transaction handler gets over its declared key set.
// Reads observe a consistent snapshot taken when the transaction began;
// writes are buffered and become visible only if the whole transaction
// commits.
type Txn interface {
	Get(k Key) ([]byte, error)
	Create(k Key, rec []byte) error
	Update(k Key, rec []byte) error
	Delete(k Key) error
}

// Store persists records and commits each transaction's declared
// reads/writes as one unit, or not at all.
type Store interface {
	// Run executes fn over a snapshot of the declared keys and commits
	// its buffered writes atomically. If any declared key changed
	// between snapshot and commit, nothing is applied and Run returns
	// ErrConflict. If fn returns an error, nothing is applied and that
	// error is returned unchanged.
	Run(ctx context.Context, keys []Key, fn func(Txn) error) error

	// Get reads a single record outside of any transaction.
	Get(ctx context.Context, k Key) ([]byte, error)

	Close() error
}
