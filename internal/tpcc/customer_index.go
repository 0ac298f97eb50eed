package tpcc

import (
	"context"
	"sort"

	"github.com/ttraveller7/tpcc-kv-bench/internal/store"
)

// The record store has no native secondary indexes, so customer lookup by
// last name goes through an explicit side structure: one bounded record
// per (warehouse, district, hash of last name) holding the candidate
// customer ids in sorted order.

// Insert adds a customer id to the index, keeping the id list sorted.
// Returns ErrCustomerIndexFull once the record holds MaxIndexCustomers
// candidates; the record never grows past its fixed layout.
func (ix *CustomerNameIndex) Insert(cid uint64) error {
	if len(ix.CustomerIDs) >= MaxIndexCustomers {
		return ErrCustomerIndexFull
	}
	pos := sort.Search(len(ix.CustomerIDs), func(i int) bool {
		return ix.CustomerIDs[i] >= cid
	})
	ix.CustomerIDs = append(ix.CustomerIDs, 0)
	copy(ix.CustomerIDs[pos+1:], ix.CustomerIDs[pos:])
	ix.CustomerIDs[pos] = cid
	return nil
}

// Middle returns the middle candidate of the sorted list, the customer
// TPC-C designates for a by-last-name lookup. Returns store.ErrNotFound
// when the list is empty.
func (ix *CustomerNameIndex) Middle() (uint64, error) {
	n := len(ix.CustomerIDs)
	if n == 0 {
		return 0, store.ErrNotFound
	}
	return ix.CustomerIDs[(n+1)/2-1], nil
}

// ResolveCustomerByLastName reads the index outside any transaction and
// returns the designated customer id. Callers use this to compute the
// customer key they must declare before running Payment or Order-Status
// with a last-name lookup.
func ResolveCustomerByLastName(ctx context.Context, st store.Store, wid, did uint64, last string) (uint64, error) {
	raw, err := st.Get(ctx, CustomerIndexKey(wid, did, LastNameHash(last)))
	if err != nil {
		return 0, err
	}
	ix, err := UnmarshalCustomerNameIndex(raw)
	if err != nil {
		return 0, err
	}
	return ix.Middle()
}

// resolveIndexedCustomer re-runs the index resolution inside a
// transaction and checks it still lands on the customer whose key the
// caller declared. A mismatch means the index moved between the caller's
// resolution and execution.
func resolveIndexedCustomer(txn store.Txn, wid, did uint64, last string, declaredCID uint64) error {
	raw, err := txn.Get(CustomerIndexKey(wid, did, LastNameHash(last)))
	if err != nil {
		return err
	}
	ix, err := UnmarshalCustomerNameIndex(raw)
	if err != nil {
		return err
	}
	cid, err := ix.Middle()
	if err != nil {
		return err
	}
	if cid != declaredCID {
		return ErrCustomerMismatch
	}
	return nil
}
