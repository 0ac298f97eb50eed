package tpcc

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/ttraveller7/tpcc-kv-bench/internal/store"
)

// Record keys are SHA-256 over an entity tag followed by the primary-key
// fields as little-endian u64, in a fixed order. The field order is part
// of the addressing scheme; changing it changes every record's location.

func deriveKey(tag string, fields ...uint64) store.Key {
	h := sha256.New()
	h.Write([]byte(tag))
	var buf [8]byte
	for _, f := range fields {
		binary.LittleEndian.PutUint64(buf[:], f)
		h.Write(buf[:])
	}
	var k store.Key
	h.Sum(k[:0])
	return k
}

func WarehouseKey(wid uint64) store.Key {
	return deriveKey("warehouse", wid)
}

func DistrictKey(wid, did uint64) store.Key {
	return deriveKey("district", wid, did)
}

func CustomerKey(wid, did, cid uint64) store.Key {
	return deriveKey("customer", wid, did, cid)
}

func ItemKey(iid uint64) store.Key {
	return deriveKey("item", iid)
}

func StockKey(wid, iid uint64) store.Key {
	return deriveKey("stock", wid, iid)
}

func OrderKey(wid, did, oid uint64) store.Key {
	return deriveKey("order", wid, did, oid)
}

func NewOrderKey(wid, did, oid uint64) store.Key {
	return deriveKey("new_order", wid, did, oid)
}

func HistoryKey(wid, did, hid uint64) store.Key {
	return deriveKey("history", wid, did, hid)
}

// LastNameHash fixes the digest used both inside the index record and in
// its key derivation.
func LastNameHash(last string) [32]byte {
	return sha256.Sum256([]byte(last))
}

func CustomerIndexKey(wid, did uint64, lastNameHash [32]byte) store.Key {
	h := sha256.New()
	h.Write([]byte("idx_c_last"))
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], wid)
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], did)
	h.Write(buf[:])
	h.Write(lastNameHash[:])
	var k store.Key
	h.Sum(k[:0])
	return k
}
