package tpcc

import (
	"context"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/ttraveller7/tpcc-kv-bench/internal/store"
)

func fiveLines() []OrderLineInput {
	return []OrderLineInput{
		{ItemID: 1, SupplyWID: seedWID, Quantity: 3},
		{ItemID: 2, SupplyWID: seedWID, Quantity: 4},
		{ItemID: 3, SupplyWID: seedWID, Quantity: 2},
		{ItemID: 4, SupplyWID: seedWID, Quantity: 1},
		{ItemID: 5, SupplyWID: seedWID, Quantity: 5},
	}
}

func TestNewOrderCommit(t *testing.T) {
	st := newSeededStore(t)
	args := &NewOrderArgs{WID: seedWID, DID: seedDID, CID: seedCID, OID: FirstOrderID, Lines: fiveLines()}

	result := runNewOrder(t, st, args)

	// 15 units at 100 cents; then 10% warehouse tax, 5% district tax and
	// a 20% discount applied in that order with integer division.
	require.Equal(t, uint64(1500), result.Total)
	require.Equal(t, uint64(1385), result.TaxedTotal)
	require.True(t, result.AllLocal)
	require.Equal(t, 5, result.LineCount)
	require.Equal(t, uint64(FirstOrderID), result.OID)

	district := getDistrict(t, st, seedWID, seedDID)
	require.Equal(t, uint64(FirstOrderID+1), district.NextOID)

	order := getOrder(t, st, seedWID, seedDID, FirstOrderID)
	require.Equal(t, uint64(seedCID), order.CID)
	require.Nil(t, order.CarrierID)
	require.True(t, order.AllLocal)
	require.Len(t, order.Lines, 5)
	require.Equal(t, uint8(1), order.Lines[0].Number)
	require.Equal(t, uint64(300), order.Lines[0].Amount)
	require.Equal(t, "distinfo", order.Lines[0].DistInfo)
	require.Nil(t, order.Lines[0].DeliveryD)

	raw, err := st.Get(context.Background(), NewOrderKey(seedWID, seedDID, FirstOrderID))
	require.NoError(t, err)
	entry, err := UnmarshalNewOrderEntry(raw)
	require.NoError(t, err)
	require.Equal(t, uint64(FirstOrderID), entry.OID)

	// Stock drawn down for every line, counters bumped.
	stock := getStock(t, st, seedWID, 1)
	require.Equal(t, uint64(seedStockQty-3), stock.Quantity)
	require.Equal(t, uint64(3), stock.YTD)
	require.Equal(t, uint32(1), stock.OrderCnt)
	require.Equal(t, uint32(0), stock.RemoteCnt)
}

func TestNewOrderSequentialIDs(t *testing.T) {
	st := newSeededStore(t)
	for i := 0; i < 3; i++ {
		args := &NewOrderArgs{
			WID: seedWID, DID: seedDID, CID: seedCID,
			OID:   FirstOrderID + uint64(i),
			Lines: fiveLines(),
		}
		result := runNewOrder(t, st, args)
		require.Equal(t, uint64(FirstOrderID+uint64(i)), result.OID)
	}
	district := getDistrict(t, st, seedWID, seedDID)
	require.Equal(t, uint64(FirstOrderID+3), district.NextOID)
}

func TestNewOrderStaleOrderID(t *testing.T) {
	st := newSeededStore(t)
	args := &NewOrderArgs{WID: seedWID, DID: seedDID, CID: seedCID, OID: FirstOrderID + 5, Lines: fiveLines()}

	err := st.Run(context.Background(), NewOrderKeys(args), func(txn store.Txn) error {
		_, err := NewOrder(txn, testNow(), args)
		return err
	})
	require.True(t, errors.Is(err, ErrOrderIDMismatch))
	require.True(t, Retryable(err))

	district := getDistrict(t, st, seedWID, seedDID)
	require.Equal(t, uint64(FirstOrderID), district.NextOID)
}

func TestNewOrderRemoteLine(t *testing.T) {
	st := newSeededStore(t)
	lines := fiveLines()
	lines[2].SupplyWID = seedRemoteWID
	args := &NewOrderArgs{WID: seedWID, DID: seedDID, CID: seedCID, OID: FirstOrderID, Lines: lines}

	result := runNewOrder(t, st, args)
	require.False(t, result.AllLocal)

	remote := getStock(t, st, seedRemoteWID, 3)
	require.Equal(t, uint32(1), remote.RemoteCnt)
	local := getStock(t, st, seedWID, 1)
	require.Equal(t, uint32(0), local.RemoteCnt)
}

func TestNewOrderDuplicateItemLines(t *testing.T) {
	st := newSeededStore(t)
	lines := fiveLines()
	for i := range lines {
		lines[i].ItemID = 9
		lines[i].Quantity = 2
	}
	args := &NewOrderArgs{WID: seedWID, DID: seedDID, CID: seedCID, OID: FirstOrderID, Lines: lines}

	result := runNewOrder(t, st, args)
	require.Equal(t, uint64(5*2*seedPrice), result.Total)

	// All five lines hit the same stock record; the effects accumulate
	// within the one transaction.
	stock := getStock(t, st, seedWID, 9)
	require.Equal(t, uint64(seedStockQty-10), stock.Quantity)
	require.Equal(t, uint64(10), stock.YTD)
	require.Equal(t, uint32(5), stock.OrderCnt)
}

func TestNewOrderValidation(t *testing.T) {
	st := newSeededStore(t)

	short := &NewOrderArgs{WID: seedWID, DID: seedDID, CID: seedCID, OID: FirstOrderID, Lines: fiveLines()[:4]}
	err := st.Run(context.Background(), NewOrderKeys(short), func(txn store.Txn) error {
		_, err := NewOrder(txn, testNow(), short)
		return err
	})
	require.True(t, errors.Is(err, ErrInvalidOrderLineCount))
	require.False(t, Retryable(err))

	badQty := &NewOrderArgs{WID: seedWID, DID: seedDID, CID: seedCID, OID: FirstOrderID, Lines: fiveLines()}
	badQty.Lines[1].Quantity = 11
	err = st.Run(context.Background(), NewOrderKeys(badQty), func(txn store.Txn) error {
		_, err := NewOrder(txn, testNow(), badQty)
		return err
	})
	require.True(t, errors.Is(err, ErrInvalidQuantity))

	// Nothing committed by either rejection.
	district := getDistrict(t, st, seedWID, seedDID)
	require.Equal(t, uint64(FirstOrderID), district.NextOID)
	stock := getStock(t, st, seedWID, 1)
	require.Equal(t, uint64(seedStockQty), stock.Quantity)
}

func TestNewOrderMissingItem(t *testing.T) {
	st := newSeededStore(t)
	lines := fiveLines()
	lines[4].ItemID = seedItems + 100 // never loaded
	args := &NewOrderArgs{WID: seedWID, DID: seedDID, CID: seedCID, OID: FirstOrderID, Lines: lines}

	err := st.Run(context.Background(), NewOrderKeys(args), func(txn store.Txn) error {
		_, err := NewOrder(txn, testNow(), args)
		return err
	})
	require.True(t, errors.Is(err, store.ErrNotFound))

	// The earlier lines' stock writes rolled back with the transaction.
	stock := getStock(t, st, seedWID, 1)
	require.Equal(t, uint64(seedStockQty), stock.Quantity)
	district := getDistrict(t, st, seedWID, seedDID)
	require.Equal(t, uint64(FirstOrderID), district.NextOID)
}

func TestNewOrderRestockBranches(t *testing.T) {
	// One order whose lines straddle the restock floor: above it the
	// stock drains, at or below it wraps back into operating range by
	// +91. Lines 2 and 5 sit exactly on the qty+10 boundary.
	st := newSeededStore(t)
	stocks := []uint64{50, 13, 12, 5, 20}
	for i, q := range stocks {
		setStockQuantity(t, st, seedWID, uint64(i+1), q)
	}
	args := &NewOrderArgs{
		WID: seedWID, DID: seedDID, CID: seedCID, OID: FirstOrderID,
		Lines: []OrderLineInput{
			{ItemID: 1, SupplyWID: seedWID, Quantity: 3},
			{ItemID: 2, SupplyWID: seedWID, Quantity: 3},
			{ItemID: 3, SupplyWID: seedWID, Quantity: 3},
			{ItemID: 4, SupplyWID: seedWID, Quantity: 4},
			{ItemID: 5, SupplyWID: seedWID, Quantity: 10},
		},
	}
	runNewOrder(t, st, args)

	want := []uint64{47, 10, 100, 92, 10}
	for i, w := range want {
		stock := getStock(t, st, seedWID, uint64(i+1))
		require.Equal(t, w, stock.Quantity, "item %d: stock %d qty %d", i+1, stocks[i], args.Lines[i].Quantity)
	}
}

func TestNewOrderRestockProperty(t *testing.T) {
	// After any committed order, each line's stock matches the rule and
	// stays positive, never exceeding the original plus the wrap amount.
	rnd := rand.New(rand.NewSource(42))
	st := newSeededStore(t)
	for trial := 0; trial < 40; trial++ {
		stocks := make([]uint64, 5)
		lines := make([]OrderLineInput, 5)
		for i := range lines {
			stocks[i] = uint64(rnd.Intn(150))
			lines[i] = OrderLineInput{
				ItemID:    uint64(i + 1),
				SupplyWID: seedWID,
				Quantity:  uint8(1 + rnd.Intn(10)),
			}
			setStockQuantity(t, st, seedWID, uint64(i+1), stocks[i])
		}
		args := &NewOrderArgs{
			WID: seedWID, DID: seedDID, CID: seedCID,
			OID:   FirstOrderID + uint64(trial),
			Lines: lines,
		}
		runNewOrder(t, st, args)

		for i, ln := range lines {
			qty := uint64(ln.Quantity)
			want := stocks[i] + 91 - qty
			if stocks[i] >= qty+10 {
				want = stocks[i] - qty
			}
			got := getStock(t, st, seedWID, ln.ItemID).Quantity
			require.Equal(t, want, got, "trial %d item %d: stock %d qty %d", trial, ln.ItemID, stocks[i], qty)
			require.Greater(t, got, uint64(0))
			require.LessOrEqual(t, got, stocks[i]+91)
		}
	}
}

func TestNewOrderInvalidDistrict(t *testing.T) {
	st := newSeededStore(t)
	for _, did := range []uint64{0, DistrictsPerWarehouse + 1} {
		args := &NewOrderArgs{WID: seedWID, DID: did, CID: seedCID, OID: FirstOrderID, Lines: fiveLines()}
		err := st.Run(context.Background(), NewOrderKeys(args), func(txn store.Txn) error {
			_, err := NewOrder(txn, testNow(), args)
			return err
		})
		require.True(t, errors.Is(err, ErrInvalidDistrict), "district %d", did)
		require.False(t, Retryable(err))
	}
}

func TestApplyTaxAndDiscount(t *testing.T) {
	// 10000 cents, 10% + 5% taxes, then 20% off:
	// 10000 -> 11000 -> 11550 -> 9240.
	got, err := applyTaxAndDiscount(10000, 1000, 500, 2000)
	require.NoError(t, err)
	require.Equal(t, uint64(9240), got)

	// Integer division truncates at each step.
	got, err = applyTaxAndDiscount(1500, 1000, 500, 2000)
	require.NoError(t, err)
	require.Equal(t, uint64(1385), got)

	// No taxes, no discount: unchanged.
	got, err = applyTaxAndDiscount(777, 0, 0, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(777), got)

	// Full discount zeroes the total.
	got, err = applyTaxAndDiscount(777, 0, 0, BasisPoints)
	require.NoError(t, err)
	require.Equal(t, uint64(0), got)
}
