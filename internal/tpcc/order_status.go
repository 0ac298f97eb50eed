package tpcc

import (
	"github.com/ttraveller7/tpcc-kv-bench/internal/store"
)

// OrderStatusArgs selects a customer (directly or through the last-name
// index) and optionally one of their orders.
type OrderStatusArgs struct {
	WID        uint64
	DID        uint64
	CID        uint64
	ByLastName bool
	LastName   string
	OrderID    *uint64 // most recent order, if the caller tracked it
}

type OrderStatusResult struct {
	CID     uint64
	First   string
	Middle  string
	Last    string
	Balance int64

	Order *OrderDetail
}

type OrderDetail struct {
	OID       uint64
	EntryD    int64
	CarrierID *uint64
	Lines     []OrderLineStatus
}

type OrderLineStatus struct {
	IID       uint64
	SupplyWID uint64
	Quantity  uint8
	Amount    uint64
	DeliveryD *int64
}

func OrderStatusKeys(args *OrderStatusArgs) []store.Key {
	keys := []store.Key{CustomerKey(args.WID, args.DID, args.CID)}
	if args.ByLastName {
		keys = append(keys, CustomerIndexKey(args.WID, args.DID, LastNameHash(args.LastName)))
	}
	if args.OrderID != nil {
		keys = append(keys, OrderKey(args.WID, args.DID, *args.OrderID))
	}
	return keys
}

// OrderStatus returns the customer's identity and balance plus, when an
// order reference was supplied, that order's header and lines. Read-only:
// the handler issues no writes, so any number may run concurrently.
func OrderStatus(txn store.Txn, args *OrderStatusArgs) (*OrderStatusResult, error) {
	if args.ByLastName {
		if err := resolveIndexedCustomer(txn, args.WID, args.DID, args.LastName, args.CID); err != nil {
			return nil, err
		}
	}

	customer, err := readCustomer(txn, args.WID, args.DID, args.CID)
	if err != nil {
		return nil, err
	}

	result := &OrderStatusResult{
		CID:     customer.CID,
		First:   customer.First,
		Middle:  customer.Middle,
		Last:    customer.Last,
		Balance: customer.Balance,
	}

	if args.OrderID != nil {
		order, err := readOrder(txn, args.WID, args.DID, *args.OrderID)
		if err != nil {
			return nil, err
		}
		detail := &OrderDetail{
			OID:       order.OID,
			EntryD:    order.EntryD,
			CarrierID: order.CarrierID,
			Lines:     make([]OrderLineStatus, 0, len(order.Lines)),
		}
		for _, ln := range order.Lines {
			detail.Lines = append(detail.Lines, OrderLineStatus{
				IID:       ln.IID,
				SupplyWID: ln.SupplyWID,
				Quantity:  ln.Quantity,
				Amount:    ln.Amount,
				DeliveryD: ln.DeliveryD,
			})
		}
		result.Order = detail
	}

	return result, nil
}
