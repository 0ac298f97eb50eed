package tpcc

import (
	"sync"
	"time"
)

// TxType identifies one of the five TPC-C transactions.
type TxType int

const (
	TxNewOrder TxType = iota
	TxPayment
	TxOrderStatus
	TxDelivery
	TxStockLevel
	numTxTypes
)

func (t TxType) String() string {
	switch t {
	case TxNewOrder:
		return "new-order"
	case TxPayment:
		return "payment"
	case TxOrderStatus:
		return "order-status"
	case TxDelivery:
		return "delivery"
	case TxStockLevel:
		return "stock-level"
	default:
		return "unknown"
	}
}

// Latency histogram bucket upper bounds.
var histBounds = [numHistBuckets - 1]time.Duration{
	100 * time.Microsecond,
	500 * time.Microsecond,
	time.Millisecond,
	5 * time.Millisecond,
	10 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
}

const numHistBuckets = 10

// TxMetrics aggregates one transaction type's outcomes.
type TxMetrics struct {
	Count     uint64
	Success   uint64
	Fail      uint64
	Conflicts uint64

	LatencySum time.Duration
	LatencyMin time.Duration
	LatencyMax time.Duration
	Histogram  [numHistBuckets]uint64
}

// Stats is a point-in-time copy of the aggregator's counters.
type Stats struct {
	PerType [numTxTypes]TxMetrics

	Successful uint64
	Failed     uint64
	Conflicts  uint64

	LatencySum time.Duration
	LatencyMin time.Duration
	LatencyMax time.Duration
}

// TpmC is the benchmark's primary metric: successful New-Order
// transactions per minute.
func (s *Stats) TpmC(elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(s.PerType[TxNewOrder].Success) / elapsed.Minutes()
}

// Bench records per-transaction outcomes from any number of goroutines.
// Plain monotonic counters; no transaction semantics.
type Bench struct {
	mu    sync.Mutex
	stats Stats
}

func NewBench() *Bench {
	return &Bench{}
}

// Record notes one transaction execution. Retries feed the conflict
// counter: each retry corresponds to one optimistic rejection at the
// store.
func (b *Bench) Record(t TxType, latency time.Duration, success bool, retries int) {
	if t < 0 || t >= numTxTypes {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	m := &b.stats.PerType[t]
	m.Count++
	if success {
		m.Success++
		b.stats.Successful++
	} else {
		m.Fail++
		b.stats.Failed++
	}
	if retries > 0 {
		m.Conflicts += uint64(retries)
		b.stats.Conflicts += uint64(retries)
	}

	m.LatencySum += latency
	if m.LatencyMin == 0 || latency < m.LatencyMin {
		m.LatencyMin = latency
	}
	if latency > m.LatencyMax {
		m.LatencyMax = latency
	}
	m.Histogram[histBucket(latency)]++

	b.stats.LatencySum += latency
	if b.stats.LatencyMin == 0 || latency < b.stats.LatencyMin {
		b.stats.LatencyMin = latency
	}
	if latency > b.stats.LatencyMax {
		b.stats.LatencyMax = latency
	}
}

// Reset reinitializes every counter to zero.
func (b *Bench) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats = Stats{}
}

// Snapshot returns a copy of the current counters.
func (b *Bench) Snapshot() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

func histBucket(latency time.Duration) int {
	for i, bound := range histBounds {
		if latency < bound {
			return i
		}
	}
	return numHistBuckets - 1
}
