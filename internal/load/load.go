// Package load populates the record store with the initial TPC-C data
// set: warehouses, districts, customers (with the last-name index),
// items, and stock.
package load

import (
	"context"
	"log"
	"time"

	"github.com/pkg/errors"

	"github.com/ttraveller7/tpcc-kv-bench/internal/store"
	"github.com/ttraveller7/tpcc-kv-bench/internal/tpcc"
	"github.com/ttraveller7/tpcc-kv-bench/internal/workload"
)

// Initial values per the load rules, all money in cents.
const (
	warehouseYTD       = 30000000
	districtYTD        = 3000000
	customerBalance    = -1000
	customerYTDPayment = 1000
	customerPaymentCnt = 1
	customerCreditLim  = 5000000
)

// defaultBatch bounds how many records one commit creates.
const defaultBatch = 128

type Config struct {
	Warehouses uint64
	Items      uint64
	Seed       int64
	BatchSize  int
	Logs       *log.Logger
}

// Load writes the full initial data set. Batches are independent
// commits; rerunning against a populated store fails with ErrExists.
func Load(ctx context.Context, st store.Store, cfg Config) error {
	if cfg.Warehouses == 0 {
		return errors.New("load: need at least one warehouse")
	}
	if cfg.Items == 0 {
		cfg.Items = tpcc.TotalItems
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatch
	}

	gen := workload.NewGenerator(cfg.Seed, cfg.Warehouses, cfg.Items)
	b := &batcher{ctx: ctx, st: st, limit: cfg.BatchSize}
	start := time.Now()

	if err := loadItems(b, gen, cfg.Items); err != nil {
		return err
	}
	cfg.Logs.Printf("loaded %d items", cfg.Items)

	for wid := uint64(1); wid <= cfg.Warehouses; wid++ {
		if err := loadWarehouse(b, gen, wid, cfg.Items); err != nil {
			return err
		}
		cfg.Logs.Printf("loaded warehouse %d", wid)
	}
	if err := b.flush(); err != nil {
		return err
	}
	cfg.Logs.Printf("load finished in %v", time.Since(start).Round(time.Millisecond))
	return nil
}

func loadItems(b *batcher, gen *workload.Generator, items uint64) error {
	for iid := uint64(1); iid <= items; iid++ {
		item := &tpcc.Item{
			IID:   iid,
			ImID:  iid,
			Name:  gen.Alnum(14, 24),
			Price: gen.Price(),
			Data:  gen.DataString(),
		}
		rec, err := item.Marshal()
		if err != nil {
			return err
		}
		if err := b.add(tpcc.ItemKey(iid), rec); err != nil {
			return errors.Wrapf(err, "item %d", iid)
		}
	}
	return nil
}

func loadWarehouse(b *batcher, gen *workload.Generator, wid, items uint64) error {
	warehouse := &tpcc.Warehouse{
		WID:     wid,
		Name:    gen.Alnum(6, 10),
		Street1: gen.Alnum(10, 20),
		Street2: gen.Alnum(10, 20),
		City:    gen.Alnum(10, 20),
		State:   gen.Alnum(2, 2),
		Zip:     gen.Digits(9),
		Tax:     gen.Tax(),
		YTD:     warehouseYTD,
	}
	rec, err := warehouse.Marshal()
	if err != nil {
		return err
	}
	if err := b.add(tpcc.WarehouseKey(wid), rec); err != nil {
		return errors.Wrapf(err, "warehouse %d", wid)
	}

	if err := loadStock(b, gen, wid, items); err != nil {
		return err
	}
	for did := uint64(1); did <= tpcc.DistrictsPerWarehouse; did++ {
		if err := loadDistrict(b, gen, wid, did); err != nil {
			return err
		}
	}
	return nil
}

func loadStock(b *batcher, gen *workload.Generator, wid, items uint64) error {
	for iid := uint64(1); iid <= items; iid++ {
		stock := &tpcc.Stock{
			WID:      wid,
			IID:      iid,
			Quantity: gen.StockQuantity(),
			Data:     gen.DataString(),
		}
		for i := range stock.Dists {
			stock.Dists[i] = gen.Alnum(24, 24)
		}
		rec, err := stock.Marshal()
		if err != nil {
			return err
		}
		if err := b.add(tpcc.StockKey(wid, iid), rec); err != nil {
			return errors.Wrapf(err, "stock %d/%d", wid, iid)
		}
	}
	return nil
}

func loadDistrict(b *batcher, gen *workload.Generator, wid, did uint64) error {
	district := &tpcc.District{
		WID:     wid,
		DID:     did,
		Name:    gen.Alnum(6, 10),
		Street1: gen.Alnum(10, 20),
		Street2: gen.Alnum(10, 20),
		City:    gen.Alnum(10, 20),
		State:   gen.Alnum(2, 2),
		Zip:     gen.Digits(9),
		Tax:     gen.Tax(),
		YTD:     districtYTD,
		NextOID: tpcc.FirstOrderID,
	}
	rec, err := district.Marshal()
	if err != nil {
		return err
	}
	if err := b.add(tpcc.DistrictKey(wid, did), rec); err != nil {
		return errors.Wrapf(err, "district %d/%d", wid, did)
	}
	return loadCustomers(b, gen, wid, did)
}

func loadCustomers(b *batcher, gen *workload.Generator, wid, did uint64) error {
	now := time.Now().Unix()
	byLast := make(map[string]*tpcc.CustomerNameIndex)

	for cid := uint64(1); cid <= tpcc.CustomersPerDistrict; cid++ {
		last := gen.LoadLastName(cid)
		credit := tpcc.GoodCredit
		if gen.BadCredit() {
			credit = tpcc.BadCredit
		}
		customer := &tpcc.Customer{
			WID:        wid,
			DID:        did,
			CID:        cid,
			First:      gen.Alnum(8, 16),
			Middle:     "OE",
			Last:       last,
			Street1:    gen.Alnum(10, 20),
			Street2:    gen.Alnum(10, 20),
			City:       gen.Alnum(10, 20),
			State:      gen.Alnum(2, 2),
			Zip:        gen.Digits(9),
			Phone:      gen.Digits(16),
			Since:      now,
			Credit:     credit,
			CreditLim:  customerCreditLim,
			Discount:   gen.Discount(),
			Balance:    customerBalance,
			YTDPayment: customerYTDPayment,
			PaymentCnt: customerPaymentCnt,
			Data:       gen.Alnum(26, 50),
		}
		rec, err := customer.Marshal()
		if err != nil {
			return err
		}
		if err := b.add(tpcc.CustomerKey(wid, did, cid), rec); err != nil {
			return errors.Wrapf(err, "customer %d/%d/%d", wid, did, cid)
		}

		ix, ok := byLast[last]
		if !ok {
			ix = &tpcc.CustomerNameIndex{WID: wid, DID: did, LastNameHash: tpcc.LastNameHash(last)}
			byLast[last] = ix
		}
		// A full index drops the overflow ids; lookups only ever need the
		// candidates it holds.
		if err := ix.Insert(cid); err != nil && !errors.Is(err, tpcc.ErrCustomerIndexFull) {
			return err
		}
	}

	for last, ix := range byLast {
		rec, err := ix.Marshal()
		if err != nil {
			return err
		}
		key := tpcc.CustomerIndexKey(wid, did, ix.LastNameHash)
		if err := b.add(key, rec); err != nil {
			return errors.Wrapf(err, "name index %d/%d %q", wid, did, last)
		}
	}
	return nil
}

// batcher groups pending creates and commits them in one transaction per
// batch.
type batcher struct {
	ctx   context.Context
	st    store.Store
	limit int
	keys  []store.Key
	recs  [][]byte
}

func (b *batcher) add(k store.Key, rec []byte) error {
	b.keys = append(b.keys, k)
	b.recs = append(b.recs, rec)
	if len(b.keys) >= b.limit {
		return b.flush()
	}
	return nil
}

func (b *batcher) flush() error {
	if len(b.keys) == 0 {
		return nil
	}
	keys, recs := b.keys, b.recs
	b.keys, b.recs = nil, nil
	return b.st.Run(b.ctx, keys, func(txn store.Txn) error {
		for i, k := range keys {
			if err := txn.Create(k, recs[i]); err != nil {
				return err
			}
		}
		return nil
	})
}
