package workload

import (
	"time"

	"github.com/pkg/errors"

	"github.com/ttraveller7/tpcc-kv-bench/internal/tpcc"
)

const (
	// RetryTimes bounds the attempts for one logical transaction.
	RetryTimes = 10
	// BackoffTime is slept between attempts.
	BackoffTime = 2 * time.Millisecond
)

// RetryTxn runs op until it succeeds, fails with a non-retryable error,
// or exhausts the retry budget. It returns the number of retries (zero
// when the first attempt succeeds) alongside the final error.
func RetryTxn(op func() error) (int, error) {
	var err error
	for i := 0; i < RetryTimes; i++ {
		err = op()
		if err == nil || !tpcc.Retryable(err) {
			return i, err
		}
		time.Sleep(BackoffTime)
	}
	return RetryTimes, errors.Wrap(err, "transaction exceeds retry limit")
}
