package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
	"github.com/olekukonko/tablewriter"

	"github.com/ttraveller7/tpcc-kv-bench/internal/load"
	"github.com/ttraveller7/tpcc-kv-bench/internal/store"
	"github.com/ttraveller7/tpcc-kv-bench/internal/tpcc"
	"github.com/ttraveller7/tpcc-kv-bench/internal/workload"
)

var logs = log.New(os.Stdout, "[tpccbench] ", 0)

func main() {
	var (
		storeKind  = flag.String("store", "memory", "record store backend: memory or postgres")
		warehouses = flag.Uint64("warehouses", 1, "number of warehouses to load")
		items      = flag.Uint64("items", tpcc.TotalItems, "number of items to load")
		workers    = flag.Int("workers", runtime.NumCPU(), "concurrent benchmark workers")
		duration   = flag.Duration("duration", 60*time.Second, "measured run length")
		seed       = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		skipLoad   = flag.Bool("skip-load", false, "assume the store is already populated")
	)
	flag.Parse()

	runID := uuid.NewString()
	logs.Printf("run %s starting. store=%s warehouses=%d workers=%d duration=%v NumOfCPU=%v",
		runID, *storeKind, *warehouses, *workers, *duration, runtime.NumCPU())

	st, err := openStore(*storeKind)
	if err != nil {
		logs.Printf("open store failed: %v", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx := context.Background()
	if !*skipLoad {
		err := load.Load(ctx, st, load.Config{
			Warehouses: *warehouses,
			Items:      *items,
			Seed:       *seed,
			Logs:       logs,
		})
		if err != nil {
			logs.Printf("load failed: %v", err)
			os.Exit(1)
		}
	}

	bench := tpcc.NewBench()
	lat := &workload.Latencies{}
	state := workload.NewState()

	runCtx, cancel := context.WithTimeout(ctx, *duration)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		gen := workload.NewGenerator(*seed+int64(i)+1, *warehouses, *items)
		wlogs := log.New(os.Stdout, fmt.Sprintf("[worker #%v] ", i), 0)
		w := workload.NewWorker(i, st, gen, state, bench, lat, wlogs)
		logs.Printf("starting worker #%v", i)
		go func() {
			defer wg.Done()
			w.Run(runCtx)
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)
	logs.Printf("all workers joined after %v", elapsed.Round(time.Millisecond))

	report(bench.Snapshot(), lat.Values(), elapsed)
}

func openStore(kind string) (store.Store, error) {
	switch kind {
	case "memory":
		return store.NewMemory(), nil
	case "postgres":
		return store.OpenPG(store.PGFromEnv())
	default:
		return nil, fmt.Errorf("unknown store backend %q", kind)
	}
}

func report(s tpcc.Stats, latencies []float64, elapsed time.Duration) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("TX", "COUNT", "OK", "FAIL", "CONFLICTS", "AVG MS", "MAX MS")
	for t := tpcc.TxType(0); t < tpcc.TxType(len(s.PerType)); t++ {
		m := s.PerType[t]
		avg := 0.0
		if m.Success > 0 {
			avg = float64(m.LatencySum.Milliseconds()) / float64(m.Success)
		}
		table.Append([]string{
			t.String(),
			fmt.Sprintf("%d", m.Count),
			fmt.Sprintf("%d", m.Success),
			fmt.Sprintf("%d", m.Fail),
			fmt.Sprintf("%d", m.Conflicts),
			fmt.Sprintf("%.2f", avg),
			fmt.Sprintf("%.2f", float64(m.LatencyMax.Milliseconds())),
		})
	}
	table.Render()

	throughput := float64(s.Successful) / elapsed.Seconds()
	avgLatency, _ := stats.Mean(latencies)
	medianLatency, _ := stats.Median(latencies)
	nintyFivePercentile, _ := stats.Percentile(latencies, 95.0)
	nintyNinePercentile, _ := stats.Percentile(latencies, 99.0)

	logs.Printf("success=%v fail=%v conflicts=%v", s.Successful, s.Failed, s.Conflicts)
	logs.Printf("throughput=%.2f txn/s tpmC=%.2f", throughput, s.TpmC(elapsed))
	logs.Printf("latency ms: avg=%.2f median=%.2f p95=%.2f p99=%.2f",
		avgLatency, medianLatency, nintyFivePercentile, nintyNinePercentile)
}
