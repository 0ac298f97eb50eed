package tpcc

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/ttraveller7/tpcc-kv-bench/internal/store"
)

func runOrderStatus(t *testing.T, st store.Store, args *OrderStatusArgs) (*OrderStatusResult, error) {
	t.Helper()
	var result *OrderStatusResult
	err := st.Run(context.Background(), OrderStatusKeys(args), func(txn store.Txn) error {
		var err error
		result, err = OrderStatus(txn, args)
		return err
	})
	return result, err
}

func TestOrderStatusCustomerOnly(t *testing.T) {
	st := newSeededStore(t)
	result, err := runOrderStatus(t, st, &OrderStatusArgs{WID: seedWID, DID: seedDID, CID: seedCID})
	require.NoError(t, err)
	require.Equal(t, uint64(seedCID), result.CID)
	require.Equal(t, seedLast, result.Last)
	require.Equal(t, int64(-1000), result.Balance)
	require.Nil(t, result.Order)
}

func TestOrderStatusWithOrder(t *testing.T) {
	st := newSeededStore(t)
	runNewOrder(t, st, &NewOrderArgs{
		WID: seedWID, DID: seedDID, CID: seedCID, OID: FirstOrderID, Lines: fiveLines(),
	})

	oid := uint64(FirstOrderID)
	result, err := runOrderStatus(t, st, &OrderStatusArgs{
		WID: seedWID, DID: seedDID, CID: seedCID, OrderID: &oid,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Order)
	require.Equal(t, oid, result.Order.OID)
	require.Nil(t, result.Order.CarrierID)
	require.Len(t, result.Order.Lines, 5)
	require.Equal(t, uint64(1), result.Order.Lines[0].IID)
	require.Nil(t, result.Order.Lines[0].DeliveryD)

	// After delivery the same query shows the carrier and timestamps.
	_, err = runDeliveryDistrict(t, st, &DeliveryDistrictArgs{
		WID: seedWID, DID: seedDID, OID: oid, CID: seedCID, CarrierID: 6,
	})
	require.NoError(t, err)

	result, err = runOrderStatus(t, st, &OrderStatusArgs{
		WID: seedWID, DID: seedDID, CID: seedCID, OrderID: &oid,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Order.CarrierID)
	require.Equal(t, uint64(6), *result.Order.CarrierID)
	require.NotNil(t, result.Order.Lines[0].DeliveryD)
}

func TestOrderStatusByLastName(t *testing.T) {
	st := newSeededStore(t)
	cid, err := ResolveCustomerByLastName(context.Background(), st, seedWID, seedDID, seedLast)
	require.NoError(t, err)

	result, err := runOrderStatus(t, st, &OrderStatusArgs{
		WID: seedWID, DID: seedDID, CID: cid, ByLastName: true, LastName: seedLast,
	})
	require.NoError(t, err)
	require.Equal(t, uint64(7), result.CID)

	// A stale declared customer is rejected before any read.
	_, err = runOrderStatus(t, st, &OrderStatusArgs{
		WID: seedWID, DID: seedDID, CID: 9, ByLastName: true, LastName: seedLast,
	})
	require.True(t, errors.Is(err, ErrCustomerMismatch))
}

func TestOrderStatusLeavesStateUntouched(t *testing.T) {
	st := newSeededStore(t)
	before := getCustomer(t, st, seedWID, seedDID, seedCID)

	_, err := runOrderStatus(t, st, &OrderStatusArgs{WID: seedWID, DID: seedDID, CID: seedCID})
	require.NoError(t, err)

	after := getCustomer(t, st, seedWID, seedDID, seedCID)
	require.Equal(t, before, after)
}

func TestCustomerNameIndexMiddle(t *testing.T) {
	ix := &CustomerNameIndex{}
	_, err := ix.Middle()
	require.True(t, errors.Is(err, store.ErrNotFound))

	require.NoError(t, ix.Insert(10))
	require.NoError(t, ix.Insert(2))
	require.NoError(t, ix.Insert(7))

	// Kept sorted; ceil(n/2)-th candidate designated.
	require.Equal(t, []uint64{2, 7, 10}, ix.CustomerIDs)
	cid, err := ix.Middle()
	require.NoError(t, err)
	require.Equal(t, uint64(7), cid)

	require.NoError(t, ix.Insert(4))
	cid, err = ix.Middle()
	require.NoError(t, err)
	require.Equal(t, uint64(4), cid)
}

func TestCustomerNameIndexFull(t *testing.T) {
	ix := &CustomerNameIndex{}
	for i := uint64(1); i <= MaxIndexCustomers; i++ {
		require.NoError(t, ix.Insert(i))
	}
	err := ix.Insert(MaxIndexCustomers + 1)
	require.True(t, errors.Is(err, ErrCustomerIndexFull))
	require.Len(t, ix.CustomerIDs, MaxIndexCustomers)
}
