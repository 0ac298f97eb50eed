package tpcc

import (
	"github.com/pkg/errors"

	"github.com/ttraveller7/tpcc-kv-bench/internal/store"
)

// StockLevelArgs names the stock records to examine. TPC-C wants the
// items of the district's last 20 orders; the caller is responsible for
// presenting that set, the core does not discover it.
type StockLevelArgs struct {
	WID       uint64
	DID       uint64
	Threshold uint64
	ItemIDs   []uint64
}

type StockLevelResult struct {
	Checked        int
	BelowThreshold int
	NextOID        uint64 // informational district context
}

func StockLevelKeys(args *StockLevelArgs) []store.Key {
	keys := make([]store.Key, 0, 1+len(args.ItemIDs))
	keys = append(keys, DistrictKey(args.WID, args.DID))
	for _, iid := range args.ItemIDs {
		keys = append(keys, StockKey(args.WID, iid))
	}
	return keys
}

// StockLevel counts how many of the supplied stock records sit below the
// threshold. Read-only.
func StockLevel(txn store.Txn, args *StockLevelArgs) (*StockLevelResult, error) {
	if args.Threshold == 0 {
		return nil, errors.Wrap(ErrInvalidThreshold, "zero threshold")
	}

	district, err := readDistrict(txn, args.WID, args.DID)
	if err != nil {
		return nil, err
	}

	result := &StockLevelResult{NextOID: district.NextOID}
	for _, iid := range args.ItemIDs {
		stock, err := readStock(txn, args.WID, iid)
		if err != nil {
			return nil, err
		}
		result.Checked++
		if stock.Quantity < args.Threshold {
			result.BelowThreshold++
		}
	}
	return result, nil
}
