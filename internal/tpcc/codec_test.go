package tpcc

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestCodecFixedSizes(t *testing.T) {
	// Record size depends only on the entity type, never the content.
	small := &Customer{WID: 1, DID: 1, CID: 1}
	big := &Customer{WID: 1, DID: 1, CID: 1, First: "Alexandrina", Last: "CALLYATIONEING",
		Data: "a much longer customer data payload"}
	a, err := small.Marshal()
	require.NoError(t, err)
	b, err := big.Marshal()
	require.NoError(t, err)
	require.Equal(t, len(a), len(b))
}

func TestCodecStringCapacity(t *testing.T) {
	w := &Warehouse{WID: 1, Name: "elevenchars"} // cap is ten
	_, err := w.Marshal()
	require.True(t, errors.Is(err, ErrStringTooLong))

	w.Name = "tencharsxx"
	raw, err := w.Marshal()
	require.NoError(t, err)
	got, err := UnmarshalWarehouse(raw)
	require.NoError(t, err)
	require.Equal(t, "tencharsxx", got.Name)
}

func TestCodecOrderRoundTrip(t *testing.T) {
	carrier := uint64(3)
	deliveryD := int64(1700000123)
	order := &Order{
		WID: 1, DID: 2, OID: 3001, CID: 42,
		EntryD:    1700000000,
		CarrierID: &carrier,
		AllLocal:  false,
		Lines:     make([]OrderLine, MaxOrderLines),
	}
	for i := range order.Lines {
		order.Lines[i] = OrderLine{
			Number: uint8(i + 1), IID: uint64(i + 100), SupplyWID: 1,
			Quantity: 5, Amount: 500, DistInfo: "info",
		}
	}
	order.Lines[0].DeliveryD = &deliveryD

	raw, err := order.Marshal()
	require.NoError(t, err)
	got, err := UnmarshalOrder(raw)
	require.NoError(t, err)
	require.Equal(t, order.OID, got.OID)
	require.NotNil(t, got.CarrierID)
	require.Equal(t, carrier, *got.CarrierID)
	require.Len(t, got.Lines, MaxOrderLines)
	require.Equal(t, deliveryD, *got.Lines[0].DeliveryD)
	require.Nil(t, got.Lines[1].DeliveryD)

	// A minimal order serializes to the same size as a full one.
	short := &Order{WID: 1, DID: 2, OID: 3002, CID: 1, Lines: make([]OrderLine, MinOrderLines)}
	for i := range short.Lines {
		short.Lines[i] = OrderLine{Number: uint8(i + 1), IID: 1, SupplyWID: 1, Quantity: 1, Amount: 100}
	}
	rawShort, err := short.Marshal()
	require.NoError(t, err)
	require.Equal(t, len(raw), len(rawShort))
}

func TestCodecStockRoundTrip(t *testing.T) {
	s := &Stock{WID: 2, IID: 17, Quantity: 86, YTD: 120, OrderCnt: 3, RemoteCnt: 1, Data: "ORIGINAL"}
	for i := range s.Dists {
		s.Dists[i] = "d"
	}
	raw, err := s.Marshal()
	require.NoError(t, err)
	got, err := UnmarshalStock(raw)
	require.NoError(t, err)
	require.Equal(t, s, got)
}

func TestCodecCustomerCreditRoundTrip(t *testing.T) {
	c := &Customer{WID: 1, DID: 1, CID: 8, Credit: BadCredit, Balance: -250000}
	raw, err := c.Marshal()
	require.NoError(t, err)
	got, err := UnmarshalCustomer(raw)
	require.NoError(t, err)
	require.Equal(t, BadCredit, got.Credit)
	require.Equal(t, int64(-250000), got.Balance)
}

func TestCodecTruncatedRecord(t *testing.T) {
	w := &Warehouse{WID: 1}
	raw, err := w.Marshal()
	require.NoError(t, err)

	_, err = UnmarshalWarehouse(raw[:len(raw)-4])
	require.True(t, errors.Is(err, ErrBadRecord))
	_, err = UnmarshalWarehouse(nil)
	require.True(t, errors.Is(err, ErrBadRecord))
}

func TestCodecIndexRoundTrip(t *testing.T) {
	ix := &CustomerNameIndex{WID: 1, DID: 9, LastNameHash: LastNameHash("PRESBARESE"),
		CustomerIDs: []uint64{4, 88, 1200}}
	raw, err := ix.Marshal()
	require.NoError(t, err)
	got, err := UnmarshalCustomerNameIndex(raw)
	require.NoError(t, err)
	require.Equal(t, ix, got)
}
