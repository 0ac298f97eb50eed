package tpcc

import (
	"time"

	"github.com/pkg/errors"

	"github.com/ttraveller7/tpcc-kv-bench/internal/store"
)

// OrderLineInput is one requested line of a New-Order.
type OrderLineInput struct {
	ItemID    uint64
	SupplyWID uint64
	Quantity  uint8
}

// NewOrderArgs carries the New-Order inputs. OID must be the district's
// current next-order-id; the caller reads it when building the declared
// key set and retries with a fresh value if the counter moved.
type NewOrderArgs struct {
	WID   uint64
	DID   uint64
	CID   uint64
	OID   uint64
	Lines []OrderLineInput
}

type NewOrderResult struct {
	OrderKey   store.Key
	OID        uint64
	Total      uint64 // cents, before tax and discount
	TaxedTotal uint64 // cents, after warehouse tax, district tax, discount
	AllLocal   bool
	LineCount  int
}

// NewOrderKeys is the transaction's declared key set: warehouse read,
// district read+write, customer read, one item+stock pair per line, and
// the order/new-order records to create.
func NewOrderKeys(args *NewOrderArgs) []store.Key {
	keys := make([]store.Key, 0, 5+2*len(args.Lines))
	keys = append(keys,
		WarehouseKey(args.WID),
		DistrictKey(args.WID, args.DID),
		CustomerKey(args.WID, args.DID, args.CID),
		OrderKey(args.WID, args.DID, args.OID),
		NewOrderKey(args.WID, args.DID, args.OID),
	)
	for _, ln := range args.Lines {
		keys = append(keys, ItemKey(ln.ItemID), StockKey(ln.SupplyWID, ln.ItemID))
	}
	return keys
}

// NewOrder executes the New-Order transaction: assigns the next order id
// in the district, applies the restock rule to every line's stock, and
// creates the Order (with embedded lines) and its undelivered-queue
// entry. The district counter increment is the only write every call
// makes to shared hot state; everything else touches per-line or
// per-order records.
func NewOrder(txn store.Txn, now time.Time, args *NewOrderArgs) (*NewOrderResult, error) {
	if args.DID < 1 || args.DID > DistrictsPerWarehouse {
		return nil, errors.Wrapf(ErrInvalidDistrict, "district %d", args.DID)
	}
	if len(args.Lines) < MinOrderLines || len(args.Lines) > MaxOrderLines {
		return nil, errors.Wrapf(ErrInvalidOrderLineCount, "%d lines", len(args.Lines))
	}
	for _, ln := range args.Lines {
		if ln.Quantity < MinQuantity || ln.Quantity > MaxQuantity {
			return nil, errors.Wrapf(ErrInvalidQuantity, "item %d quantity %d", ln.ItemID, ln.Quantity)
		}
	}

	warehouse, err := readWarehouse(txn, args.WID)
	if err != nil {
		return nil, err
	}
	district, err := readDistrict(txn, args.WID, args.DID)
	if err != nil {
		return nil, err
	}
	customer, err := readCustomer(txn, args.WID, args.DID, args.CID)
	if err != nil {
		return nil, err
	}

	if args.OID != district.NextOID {
		return nil, errors.Wrapf(ErrOrderIDMismatch, "got %d, district is at %d", args.OID, district.NextOID)
	}

	// The serialization point: every New-Order in this district writes
	// this field, so the store totally orders them.
	next, err := checkedAddU64(district.NextOID, 1)
	if err != nil {
		return nil, ErrOrderIDOverflow
	}
	district.NextOID = next
	if err := writeDistrict(txn, district); err != nil {
		return nil, err
	}

	var (
		total    uint64
		allLocal = true
		lines    = make([]OrderLine, 0, len(args.Lines))
	)
	for i, in := range args.Lines {
		item, err := readItem(txn, in.ItemID)
		if err != nil {
			return nil, err
		}
		if item.IID != in.ItemID {
			return nil, errors.Wrapf(ErrItemMismatch, "line %d wants item %d, record holds %d", i+1, in.ItemID, item.IID)
		}

		stock, err := readStock(txn, in.SupplyWID, in.ItemID)
		if err != nil {
			return nil, err
		}
		if stock.WID != in.SupplyWID || stock.IID != in.ItemID {
			return nil, errors.Wrapf(ErrStockMismatch, "line %d wants (%d,%d), record holds (%d,%d)",
				i+1, in.SupplyWID, in.ItemID, stock.WID, stock.IID)
		}

		// Restock rule: draw down when comfortably above the floor,
		// otherwise wrap the quantity back into operating range.
		qty := uint64(in.Quantity)
		if stock.Quantity >= qty+10 {
			stock.Quantity -= qty
		} else {
			stock.Quantity = stock.Quantity + 91 - qty
		}

		if stock.YTD, err = checkedAddU64(stock.YTD, qty); err != nil {
			return nil, err
		}
		if stock.OrderCnt, err = checkedAddU32(stock.OrderCnt, 1); err != nil {
			return nil, err
		}
		if in.SupplyWID != args.WID {
			if stock.RemoteCnt, err = checkedAddU32(stock.RemoteCnt, 1); err != nil {
				return nil, err
			}
			allLocal = false
		}
		if err := writeStock(txn, stock); err != nil {
			return nil, err
		}

		amount, err := checkedMulU64(item.Price, qty)
		if err != nil {
			return nil, err
		}
		if total, err = checkedAddU64(total, amount); err != nil {
			return nil, err
		}

		lines = append(lines, OrderLine{
			Number:    uint8(i + 1),
			IID:       in.ItemID,
			SupplyWID: in.SupplyWID,
			Quantity:  in.Quantity,
			Amount:    amount,
			DistInfo:  stock.Dists[args.DID-1],
		})
	}

	taxed, err := applyTaxAndDiscount(total, warehouse.Tax, district.Tax, customer.Discount)
	if err != nil {
		return nil, err
	}

	order := &Order{
		WID:      args.WID,
		DID:      args.DID,
		OID:      args.OID,
		CID:      args.CID,
		EntryD:   now.Unix(),
		AllLocal: allLocal,
		Lines:    lines,
	}
	raw, err := order.Marshal()
	if err != nil {
		return nil, err
	}
	orderKey := OrderKey(args.WID, args.DID, args.OID)
	if err := txn.Create(orderKey, raw); err != nil {
		return nil, err
	}

	entry := &NewOrderEntry{
		WID:       args.WID,
		DID:       args.DID,
		OID:       args.OID,
		CreatedAt: now.Unix(),
	}
	if raw, err = entry.Marshal(); err != nil {
		return nil, err
	}
	if err := txn.Create(NewOrderKey(args.WID, args.DID, args.OID), raw); err != nil {
		return nil, err
	}

	return &NewOrderResult{
		OrderKey:   orderKey,
		OID:        args.OID,
		Total:      total,
		TaxedTotal: taxed,
		AllLocal:   allLocal,
		LineCount:  len(lines),
	}, nil
}

// applyTaxAndDiscount multiplies the order total through warehouse tax,
// district tax, and customer discount in that fixed order, all in integer
// basis points.
func applyTaxAndDiscount(total, wTax, dTax, discount uint64) (uint64, error) {
	out, err := checkedMulU64(total, BasisPoints+wTax)
	if err != nil {
		return 0, err
	}
	out /= BasisPoints
	if out, err = checkedMulU64(out, BasisPoints+dTax); err != nil {
		return 0, err
	}
	out /= BasisPoints
	if out, err = checkedMulU64(out, BasisPoints-discount); err != nil {
		return 0, err
	}
	return out / BasisPoints, nil
}
