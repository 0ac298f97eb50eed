package tpcc

import (
	stderrors "errors"
	"time"

	"github.com/pkg/errors"

	"github.com/ttraveller7/tpcc-kv-bench/internal/store"
)

// DeliveryTriple names the records one district's delivery touches. The
// caller identifies the oldest undelivered order (lowest order id with a
// live NewOrder entry) and its customer; the core does not scan for it.
type DeliveryTriple struct {
	DID uint64
	OID uint64
	CID uint64
}

// DeliveryDistrictArgs is the per-partition form: one district per call.
type DeliveryDistrictArgs struct {
	WID       uint64
	DID       uint64
	OID       uint64
	CID       uint64
	CarrierID uint64
}

// DeliveryArgs is the batch form: several districts in one atomic unit.
// More expensive per call; a full 10-district batch is the worst case.
type DeliveryArgs struct {
	WID       uint64
	CarrierID uint64
	Districts []DeliveryTriple
}

// DeliveryDistrictResult reports the delivered order id, or nil when the
// district had nothing to deliver.
type DeliveryDistrictResult struct {
	DID          uint64
	DeliveredOID *uint64
}

func DeliveryDistrictKeys(args *DeliveryDistrictArgs) []store.Key {
	return []store.Key{
		DistrictKey(args.WID, args.DID),
		NewOrderKey(args.WID, args.DID, args.OID),
		OrderKey(args.WID, args.DID, args.OID),
		CustomerKey(args.WID, args.DID, args.CID),
	}
}

func DeliveryKeys(args *DeliveryArgs) []store.Key {
	keys := make([]store.Key, 0, 1+3*len(args.Districts))
	keys = append(keys, WarehouseKey(args.WID))
	for _, t := range args.Districts {
		keys = append(keys,
			NewOrderKey(args.WID, t.DID, t.OID),
			OrderKey(args.WID, t.DID, t.OID),
			CustomerKey(args.WID, t.DID, t.CID),
		)
	}
	return keys
}

// DeliveryDistrict delivers the given order in one district: sets the
// carrier id and every line's delivery timestamp, credits the customer
// with the order's line total, and deletes the undelivered-queue entry —
// all in the same commit. A missing queue entry means nothing to deliver
// and is not an error; an order whose carrier id is already set is a hard
// rejection.
func DeliveryDistrict(txn store.Txn, now time.Time, args *DeliveryDistrictArgs) (*DeliveryDistrictResult, error) {
	if args.CarrierID < MinCarrierID || args.CarrierID > MaxCarrierID {
		return nil, errors.Wrapf(ErrInvalidCarrierID, "carrier %d", args.CarrierID)
	}

	delivered, err := deliverOne(txn, now, args.WID, args.CarrierID, DeliveryTriple{
		DID: args.DID, OID: args.OID, CID: args.CID,
	})
	if err != nil {
		return nil, err
	}
	result := &DeliveryDistrictResult{DID: args.DID}
	if delivered {
		oid := args.OID
		result.DeliveredOID = &oid
	}
	return result, nil
}

// Delivery is the batch form: the same per-district logic repeated over
// the caller-supplied triples, committed as one unit.
func Delivery(txn store.Txn, now time.Time, args *DeliveryArgs) ([]DeliveryDistrictResult, error) {
	if args.CarrierID < MinCarrierID || args.CarrierID > MaxCarrierID {
		return nil, errors.Wrapf(ErrInvalidCarrierID, "carrier %d", args.CarrierID)
	}

	results := make([]DeliveryDistrictResult, 0, len(args.Districts))
	for _, t := range args.Districts {
		delivered, err := deliverOne(txn, now, args.WID, args.CarrierID, t)
		if err != nil {
			return nil, err
		}
		r := DeliveryDistrictResult{DID: t.DID}
		if delivered {
			oid := t.OID
			r.DeliveredOID = &oid
		}
		results = append(results, r)
	}
	return results, nil
}

func deliverOne(txn store.Txn, now time.Time, wid, carrierID uint64, t DeliveryTriple) (bool, error) {
	// The NewOrder entry's existence is the sole undelivered signal.
	if _, err := txn.Get(NewOrderKey(wid, t.DID, t.OID)); err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	order, err := readOrder(txn, wid, t.DID, t.OID)
	if err != nil {
		return false, err
	}
	if order.CarrierID != nil {
		return false, errors.Wrapf(ErrOrderAlreadyDelivered, "order %d-%d-%d carrier %d",
			wid, t.DID, t.OID, *order.CarrierID)
	}
	if order.CID != t.CID {
		return false, errors.Wrapf(ErrDeliveryMismatch, "order %d-%d-%d belongs to customer %d, not %d",
			wid, t.DID, t.OID, order.CID, t.CID)
	}

	carrier := carrierID
	order.CarrierID = &carrier
	deliveryD := now.Unix()
	var total uint64
	for i := range order.Lines {
		d := deliveryD
		order.Lines[i].DeliveryD = &d
		if total, err = checkedAddU64(total, order.Lines[i].Amount); err != nil {
			return false, err
		}
	}
	if err := writeOrder(txn, order); err != nil {
		return false, err
	}

	customer, err := readCustomer(txn, wid, t.DID, t.CID)
	if err != nil {
		return false, err
	}
	if customer.Balance, err = checkedAddI64(customer.Balance, int64(total)); err != nil {
		return false, err
	}
	if customer.DeliveryCnt, err = checkedAddU32(customer.DeliveryCnt, 1); err != nil {
		return false, err
	}
	if err := writeCustomer(txn, customer); err != nil {
		return false, err
	}

	return true, txn.Delete(NewOrderKey(wid, t.DID, t.OID))
}
