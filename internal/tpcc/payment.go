package tpcc

import (
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/ttraveller7/tpcc-kv-bench/internal/store"
)

// PaymentArgs carries the Payment inputs. The paying customer may live in
// a different warehouse/district than the one receiving the payment. When
// ByLastName is set, CID must be the id the caller resolved through the
// last-name index (ResolveCustomerByLastName); the handler re-checks the
// resolution against the index record.
type PaymentArgs struct {
	WID        uint64
	DID        uint64
	CID        uint64
	CWID       uint64
	CDID       uint64
	HID        uint64
	Amount     uint64 // cents
	ByLastName bool
	LastName   string
}

// PaymentKeys declares warehouse and district (write), the customer
// (write), the history record (create), and the last-name index (read)
// when the lookup flag is set.
func PaymentKeys(args *PaymentArgs) []store.Key {
	keys := []store.Key{
		WarehouseKey(args.WID),
		DistrictKey(args.WID, args.DID),
		CustomerKey(args.CWID, args.CDID, args.CID),
		HistoryKey(args.WID, args.DID, args.HID),
	}
	if args.ByLastName {
		keys = append(keys, CustomerIndexKey(args.CWID, args.CDID, LastNameHash(args.LastName)))
	}
	return keys
}

// Payment adds the amount to the warehouse and district year-to-date
// totals, subtracts it from the customer balance, and appends a History
// record. Every balance mutation is a checked addition; overflow is fatal
// for the transaction.
func Payment(txn store.Txn, now time.Time, args *PaymentArgs) error {
	if args.Amount == 0 {
		return errors.Wrap(ErrInvalidPaymentAmount, "zero amount")
	}
	// The balance debit negates the amount, so it must fit in int64.
	if args.Amount > math.MaxInt64 {
		return errors.Wrapf(ErrInvalidPaymentAmount, "amount %d", args.Amount)
	}

	if args.ByLastName {
		if err := resolveIndexedCustomer(txn, args.CWID, args.CDID, args.LastName, args.CID); err != nil {
			return err
		}
	}

	warehouse, err := readWarehouse(txn, args.WID)
	if err != nil {
		return err
	}
	district, err := readDistrict(txn, args.WID, args.DID)
	if err != nil {
		return err
	}
	customer, err := readCustomer(txn, args.CWID, args.CDID, args.CID)
	if err != nil {
		return err
	}

	if warehouse.YTD, err = checkedAddU64(warehouse.YTD, args.Amount); err != nil {
		return err
	}
	if district.YTD, err = checkedAddU64(district.YTD, args.Amount); err != nil {
		return err
	}

	if customer.Balance, err = checkedAddI64(customer.Balance, -int64(args.Amount)); err != nil {
		return err
	}
	if customer.YTDPayment, err = checkedAddU64(customer.YTDPayment, args.Amount); err != nil {
		return err
	}
	if customer.PaymentCnt, err = checkedAddU32(customer.PaymentCnt, 1); err != nil {
		return err
	}

	if customer.Credit == BadCredit {
		audit := fmt.Sprintf("C_ID=%d C_D_ID=%d C_W_ID=%d D_ID=%d W_ID=%d H_AMT=%d|",
			args.CID, args.CDID, args.CWID, args.DID, args.WID, args.Amount)
		data := audit + customer.Data
		if len(data) > capCustomerData {
			data = data[:capCustomerData]
		}
		customer.Data = data
	}

	if err := writeWarehouse(txn, warehouse); err != nil {
		return err
	}
	if err := writeDistrict(txn, district); err != nil {
		return err
	}
	if err := writeCustomer(txn, customer); err != nil {
		return err
	}

	history := &History{
		CWID:   args.CWID,
		CDID:   args.CDID,
		CID:    args.CID,
		WID:    args.WID,
		DID:    args.DID,
		HID:    args.HID,
		Date:   now.Unix(),
		Amount: args.Amount,
		Data:   warehouse.Name + "    " + district.Name,
	}
	raw, err := history.Marshal()
	if err != nil {
		return err
	}
	return txn.Create(HistoryKey(args.WID, args.DID, args.HID), raw)
}
