package tpcc

import (
	"github.com/pkg/errors"

	"github.com/ttraveller7/tpcc-kv-bench/internal/store"
)

// Typed read/write helpers over a transaction's declared key set.

func readWarehouse(txn store.Txn, wid uint64) (*Warehouse, error) {
	raw, err := txn.Get(WarehouseKey(wid))
	if err != nil {
		return nil, errors.Wrapf(err, "warehouse %d", wid)
	}
	return UnmarshalWarehouse(raw)
}

func writeWarehouse(txn store.Txn, w *Warehouse) error {
	raw, err := w.Marshal()
	if err != nil {
		return err
	}
	return txn.Update(WarehouseKey(w.WID), raw)
}

func readDistrict(txn store.Txn, wid, did uint64) (*District, error) {
	raw, err := txn.Get(DistrictKey(wid, did))
	if err != nil {
		return nil, errors.Wrapf(err, "district %d-%d", wid, did)
	}
	return UnmarshalDistrict(raw)
}

func writeDistrict(txn store.Txn, d *District) error {
	raw, err := d.Marshal()
	if err != nil {
		return err
	}
	return txn.Update(DistrictKey(d.WID, d.DID), raw)
}

func readCustomer(txn store.Txn, wid, did, cid uint64) (*Customer, error) {
	raw, err := txn.Get(CustomerKey(wid, did, cid))
	if err != nil {
		return nil, errors.Wrapf(err, "customer %d-%d-%d", wid, did, cid)
	}
	return UnmarshalCustomer(raw)
}

func writeCustomer(txn store.Txn, c *Customer) error {
	raw, err := c.Marshal()
	if err != nil {
		return err
	}
	return txn.Update(CustomerKey(c.WID, c.DID, c.CID), raw)
}

func readItem(txn store.Txn, iid uint64) (*Item, error) {
	raw, err := txn.Get(ItemKey(iid))
	if err != nil {
		return nil, errors.Wrapf(err, "item %d", iid)
	}
	return UnmarshalItem(raw)
}

func readStock(txn store.Txn, wid, iid uint64) (*Stock, error) {
	raw, err := txn.Get(StockKey(wid, iid))
	if err != nil {
		return nil, errors.Wrapf(err, "stock %d-%d", wid, iid)
	}
	return UnmarshalStock(raw)
}

func writeStock(txn store.Txn, s *Stock) error {
	raw, err := s.Marshal()
	if err != nil {
		return err
	}
	return txn.Update(StockKey(s.WID, s.IID), raw)
}

func readOrder(txn store.Txn, wid, did, oid uint64) (*Order, error) {
	raw, err := txn.Get(OrderKey(wid, did, oid))
	if err != nil {
		return nil, errors.Wrapf(err, "order %d-%d-%d", wid, did, oid)
	}
	return UnmarshalOrder(raw)
}

func writeOrder(txn store.Txn, o *Order) error {
	raw, err := o.Marshal()
	if err != nil {
		return err
	}
	return txn.Update(OrderKey(o.WID, o.DID, o.OID), raw)
}
