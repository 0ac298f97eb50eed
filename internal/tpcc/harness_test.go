package tpcc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ttraveller7/tpcc-kv-bench/internal/store"
)

// Seed layout shared by the transaction tests: one warehouse with ten
// districts, ten customers and twenty items, plus remote stock under a
// second warehouse id.
const (
	seedWID       = 1
	seedRemoteWID = 2
	seedDID       = 3
	seedCID       = 7

	seedWTax     = 1000 // 10%
	seedDTax     = 500  // 5%
	seedDiscount = 2000 // 20%

	seedPrice    = 100 // cents, every item
	seedStockQty = 50
	seedItems    = 20
	seedLast     = "BARBARBAR" // customers 5, 7 and 9
)

func create(t *testing.T, st store.Store, k store.Key, rec []byte) {
	t.Helper()
	err := st.Run(context.Background(), []store.Key{k}, func(txn store.Txn) error {
		return txn.Create(k, rec)
	})
	require.NoError(t, err)
}

func newSeededStore(t *testing.T) *store.Memory {
	t.Helper()
	st := store.NewMemory()

	warehouse := &Warehouse{
		WID:  seedWID,
		Name: "Wmain",
		City: "Singapore",
		Tax:  seedWTax,
		YTD:  30000000,
	}
	rec, err := warehouse.Marshal()
	require.NoError(t, err)
	create(t, st, WarehouseKey(seedWID), rec)

	for did := uint64(1); did <= DistrictsPerWarehouse; did++ {
		district := &District{
			WID:     seedWID,
			DID:     did,
			Name:    "Dmain",
			Tax:     seedDTax,
			YTD:     3000000,
			NextOID: FirstOrderID,
		}
		rec, err := district.Marshal()
		require.NoError(t, err)
		create(t, st, DistrictKey(seedWID, did), rec)
	}

	for cid := uint64(1); cid <= 10; cid++ {
		last := "OUGHTPRIESE"
		if cid == 5 || cid == 7 || cid == 9 {
			last = seedLast
		}
		credit := GoodCredit
		if cid == 8 {
			credit = BadCredit
		}
		customer := &Customer{
			WID:        seedWID,
			DID:        seedDID,
			CID:        cid,
			First:      "Pat",
			Middle:     "OE",
			Last:       last,
			Since:      1600000000,
			Credit:     credit,
			CreditLim:  5000000,
			Discount:   seedDiscount,
			Balance:    -1000,
			YTDPayment: 1000,
			PaymentCnt: 1,
			Data:       "seeded",
		}
		rec, err := customer.Marshal()
		require.NoError(t, err)
		create(t, st, CustomerKey(seedWID, seedDID, cid), rec)
	}

	index := &CustomerNameIndex{
		WID:          seedWID,
		DID:          seedDID,
		LastNameHash: LastNameHash(seedLast),
		CustomerIDs:  []uint64{5, 7, 9},
	}
	rec, err = index.Marshal()
	require.NoError(t, err)
	create(t, st, CustomerIndexKey(seedWID, seedDID, index.LastNameHash), rec)

	for iid := uint64(1); iid <= seedItems; iid++ {
		item := &Item{IID: iid, ImID: iid, Name: "widget", Price: seedPrice, Data: "plain"}
		rec, err := item.Marshal()
		require.NoError(t, err)
		create(t, st, ItemKey(iid), rec)

		for _, wid := range []uint64{seedWID, seedRemoteWID} {
			stock := &Stock{WID: wid, IID: iid, Quantity: seedStockQty, Data: "plain"}
			for d := range stock.Dists {
				stock.Dists[d] = "distinfo"
			}
			rec, err := stock.Marshal()
			require.NoError(t, err)
			create(t, st, StockKey(wid, iid), rec)
		}
	}
	return st
}

func getWarehouse(t *testing.T, st store.Store, wid uint64) *Warehouse {
	t.Helper()
	raw, err := st.Get(context.Background(), WarehouseKey(wid))
	require.NoError(t, err)
	w, err := UnmarshalWarehouse(raw)
	require.NoError(t, err)
	return w
}

func getDistrict(t *testing.T, st store.Store, wid, did uint64) *District {
	t.Helper()
	raw, err := st.Get(context.Background(), DistrictKey(wid, did))
	require.NoError(t, err)
	d, err := UnmarshalDistrict(raw)
	require.NoError(t, err)
	return d
}

func getCustomer(t *testing.T, st store.Store, wid, did, cid uint64) *Customer {
	t.Helper()
	raw, err := st.Get(context.Background(), CustomerKey(wid, did, cid))
	require.NoError(t, err)
	c, err := UnmarshalCustomer(raw)
	require.NoError(t, err)
	return c
}

func getStock(t *testing.T, st store.Store, wid, iid uint64) *Stock {
	t.Helper()
	raw, err := st.Get(context.Background(), StockKey(wid, iid))
	require.NoError(t, err)
	s, err := UnmarshalStock(raw)
	require.NoError(t, err)
	return s
}

func getOrder(t *testing.T, st store.Store, wid, did, oid uint64) *Order {
	t.Helper()
	raw, err := st.Get(context.Background(), OrderKey(wid, did, oid))
	require.NoError(t, err)
	o, err := UnmarshalOrder(raw)
	require.NoError(t, err)
	return o
}

func setStockQuantity(t *testing.T, st store.Store, wid, iid, qty uint64) {
	t.Helper()
	k := StockKey(wid, iid)
	err := st.Run(context.Background(), []store.Key{k}, func(txn store.Txn) error {
		raw, err := txn.Get(k)
		if err != nil {
			return err
		}
		stock, err := UnmarshalStock(raw)
		if err != nil {
			return err
		}
		stock.Quantity = qty
		if raw, err = stock.Marshal(); err != nil {
			return err
		}
		return txn.Update(k, raw)
	})
	require.NoError(t, err)
}

// runNewOrder commits one order and returns its result.
func runNewOrder(t *testing.T, st store.Store, args *NewOrderArgs) *NewOrderResult {
	t.Helper()
	var result *NewOrderResult
	err := st.Run(context.Background(), NewOrderKeys(args), func(txn store.Txn) error {
		var err error
		result, err = NewOrder(txn, testNow(), args)
		return err
	})
	require.NoError(t, err)
	return result
}

func testNow() time.Time {
	return time.Unix(1700000000, 0)
}
