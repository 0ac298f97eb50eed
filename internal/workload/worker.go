package workload

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/ttraveller7/tpcc-kv-bench/internal/store"
	"github.com/ttraveller7/tpcc-kv-bench/internal/tpcc"
)

// Latencies collects every successful transaction's latency in
// milliseconds for the end-of-run percentile report.
type Latencies struct {
	mu sync.Mutex
	ms []float64
}

func (l *Latencies) Add(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ms = append(l.ms, float64(d.Microseconds())/1000.0)
}

func (l *Latencies) Values() []float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]float64, len(l.ms))
	copy(out, l.ms)
	return out
}

// Worker executes the transaction mix against the store until its
// context is cancelled.
type Worker struct {
	id    int
	st    store.Store
	gen   *Generator
	state *State
	bench *tpcc.Bench
	lat   *Latencies
	logs  *log.Logger

	deliveryBatch bool // alternates batch and per-partition delivery
}

func NewWorker(id int, st store.Store, gen *Generator, state *State, bench *tpcc.Bench, lat *Latencies, logs *log.Logger) *Worker {
	return &Worker{
		id:    id,
		st:    st,
		gen:   gen,
		state: state,
		bench: bench,
		lat:   lat,
		logs:  logs,
	}
}

// Run loops over the mix until ctx is done. A panic in one transaction is
// recovered and counted as a failure rather than taking the worker down.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		w.runOne(ctx)
	}
}

func (w *Worker) runOne(ctx context.Context) {
	t := w.gen.NextTxType()

	defer func() {
		if r := recover(); r != nil {
			w.logs.Printf("worker %d: %s panicked: %v", w.id, t, r)
			w.bench.Record(t, 0, false, 0)
		}
	}()

	start := time.Now()
	var (
		retries int
		err     error
	)
	switch t {
	case tpcc.TxNewOrder:
		retries, err = w.execNewOrder(ctx)
	case tpcc.TxPayment:
		retries, err = w.execPayment(ctx)
	case tpcc.TxOrderStatus:
		retries, err = w.execOrderStatus(ctx)
	case tpcc.TxDelivery:
		retries, err = w.execDelivery(ctx)
	case tpcc.TxStockLevel:
		retries, err = w.execStockLevel(ctx)
	}
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() == nil {
			w.logs.Printf("worker %d: %s failed: %v", w.id, t, err)
		}
		w.bench.Record(t, elapsed, false, retries)
		return
	}
	w.bench.Record(t, elapsed, true, retries)
	w.lat.Add(elapsed)
}

// nextOrderID reads the district's order counter outside the transaction.
// The handler re-checks the value in-transaction, so a stale read simply
// costs one retry.
func (w *Worker) nextOrderID(ctx context.Context, wid, did uint64) (uint64, error) {
	raw, err := w.st.Get(ctx, tpcc.DistrictKey(wid, did))
	if err != nil {
		return 0, errors.Wrapf(err, "read district %d/%d", wid, did)
	}
	district, err := tpcc.UnmarshalDistrict(raw)
	if err != nil {
		return 0, err
	}
	return district.NextOID, nil
}

func (w *Worker) execNewOrder(ctx context.Context) (int, error) {
	wid := w.gen.WarehouseID()
	did := w.gen.DistrictID()
	cid := w.gen.CustomerID()
	lines := w.gen.OrderLines(wid)

	var result *tpcc.NewOrderResult
	retries, err := RetryTxn(func() error {
		oid, err := w.nextOrderID(ctx, wid, did)
		if err != nil {
			return err
		}
		args := &tpcc.NewOrderArgs{WID: wid, DID: did, CID: cid, OID: oid, Lines: lines}
		return w.st.Run(ctx, tpcc.NewOrderKeys(args), func(txn store.Txn) error {
			result, err = tpcc.NewOrder(txn, time.Now(), args)
			return err
		})
	})
	if err != nil {
		return retries, err
	}

	items := make([]uint64, 0, len(lines))
	for _, ln := range lines {
		items = append(items, ln.ItemID)
	}
	w.state.NoteNewOrder(wid, did, result.OID, cid, items)
	return retries, nil
}

func (w *Worker) execPayment(ctx context.Context) (int, error) {
	wid := w.gen.WarehouseID()
	did := w.gen.DistrictID()
	cwid, cdid := w.gen.PaymentCustomer(wid, did)

	args := &tpcc.PaymentArgs{
		WID:    wid,
		DID:    did,
		CWID:   cwid,
		CDID:   cdid,
		HID:    w.state.NextHistoryID(),
		Amount: w.gen.PaymentAmount(),
	}
	if w.gen.ByLastName() {
		last := w.gen.LastName()
		cid, err := tpcc.ResolveCustomerByLastName(ctx, w.st, cwid, cdid, last)
		if err != nil {
			return 0, errors.Wrapf(err, "resolve %q", last)
		}
		args.ByLastName = true
		args.LastName = last
		args.CID = cid
	} else {
		args.CID = w.gen.CustomerID()
	}

	return RetryTxn(func() error {
		return w.st.Run(ctx, tpcc.PaymentKeys(args), func(txn store.Txn) error {
			return tpcc.Payment(txn, time.Now(), args)
		})
	})
}

func (w *Worker) execOrderStatus(ctx context.Context) (int, error) {
	wid := w.gen.WarehouseID()
	did := w.gen.DistrictID()

	args := &tpcc.OrderStatusArgs{WID: wid, DID: did}
	if w.gen.ByLastName() {
		last := w.gen.LastName()
		cid, err := tpcc.ResolveCustomerByLastName(ctx, w.st, wid, did, last)
		if err != nil {
			return 0, errors.Wrapf(err, "resolve %q", last)
		}
		args.ByLastName = true
		args.LastName = last
		args.CID = cid
	} else if oid, cid, ok := w.state.OldestUndelivered(wid, did); ok {
		// Ask about an order this run created so the result has lines.
		args.CID = cid
		args.OrderID = &oid
	} else {
		args.CID = w.gen.CustomerID()
	}

	return RetryTxn(func() error {
		return w.st.Run(ctx, tpcc.OrderStatusKeys(args), func(txn store.Txn) error {
			_, err := tpcc.OrderStatus(txn, args)
			return err
		})
	})
}

func (w *Worker) execDelivery(ctx context.Context) (int, error) {
	wid := w.gen.WarehouseID()
	carrier := w.gen.CarrierID()

	w.deliveryBatch = !w.deliveryBatch
	if w.deliveryBatch {
		return w.execDeliveryBatch(ctx, wid, carrier)
	}
	return w.execDeliveryDistrict(ctx, wid, carrier)
}

func (w *Worker) execDeliveryBatch(ctx context.Context, wid, carrier uint64) (int, error) {
	triples := w.state.DeliveryBatch(wid)
	if len(triples) == 0 {
		return 0, nil // nothing queued anywhere in the warehouse
	}
	args := &tpcc.DeliveryArgs{WID: wid, CarrierID: carrier, Districts: triples}

	var results []tpcc.DeliveryDistrictResult
	retries, err := RetryTxn(func() error {
		return w.st.Run(ctx, tpcc.DeliveryKeys(args), func(txn store.Txn) error {
			var err error
			results, err = tpcc.Delivery(txn, time.Now(), args)
			return err
		})
	})
	if err != nil {
		return retries, err
	}
	for _, r := range results {
		if r.DeliveredOID != nil {
			w.state.MarkDelivered(wid, r.DID, *r.DeliveredOID)
		}
	}
	return retries, nil
}

func (w *Worker) execDeliveryDistrict(ctx context.Context, wid, carrier uint64) (int, error) {
	did := w.gen.DistrictID()
	oid, cid, ok := w.state.OldestUndelivered(wid, did)
	if !ok {
		return 0, nil
	}
	args := &tpcc.DeliveryDistrictArgs{WID: wid, DID: did, OID: oid, CID: cid, CarrierID: carrier}

	var result *tpcc.DeliveryDistrictResult
	retries, err := RetryTxn(func() error {
		return w.st.Run(ctx, tpcc.DeliveryDistrictKeys(args), func(txn store.Txn) error {
			var err error
			result, err = tpcc.DeliveryDistrict(txn, time.Now(), args)
			return err
		})
	})
	if err != nil {
		return retries, err
	}
	if result.DeliveredOID != nil {
		w.state.MarkDelivered(wid, did, *result.DeliveredOID)
	}
	return retries, nil
}

func (w *Worker) execStockLevel(ctx context.Context) (int, error) {
	wid := w.gen.WarehouseID()
	did := w.gen.DistrictID()

	args := &tpcc.StockLevelArgs{
		WID:       wid,
		DID:       did,
		Threshold: w.gen.StockThreshold(),
		ItemIDs:   w.state.RecentItems(wid, did),
	}
	return RetryTxn(func() error {
		return w.st.Run(ctx, tpcc.StockLevelKeys(args), func(txn store.Txn) error {
			_, err := tpcc.StockLevel(txn, args)
			return err
		})
	})
}
