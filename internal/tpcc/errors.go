package tpcc

import (
	stderrors "errors"
	"math"

	"github.com/pkg/errors"

	"github.com/ttraveller7/tpcc-kv-bench/internal/store"
)

// Input validation errors, rejected before any read.
var (
	ErrInvalidOrderLineCount = errors.New("tpcc: order must have 5-15 lines")
	ErrInvalidQuantity       = errors.New("tpcc: quantity must be 1-10")
	ErrInvalidDistrict       = errors.New("tpcc: district id must be 1-10")
	ErrInvalidCarrierID      = errors.New("tpcc: carrier id must be 1-10")
	ErrInvalidThreshold      = errors.New("tpcc: stock threshold must be positive")
	ErrInvalidPaymentAmount  = errors.New("tpcc: payment amount must be positive")
	ErrStringTooLong         = errors.New("tpcc: string exceeds field capacity")
)

// Referential errors, detected during the read phase.
var (
	ErrItemMismatch     = errors.New("tpcc: item record does not match order line")
	ErrStockMismatch    = errors.New("tpcc: stock record does not match order line")
	ErrCustomerMismatch = errors.New("tpcc: resolved customer does not match declared key")
	ErrOrderIDMismatch  = errors.New("tpcc: order id does not match district counter")
	ErrDeliveryMismatch = errors.New("tpcc: delivery triple does not match order")
)

// Arithmetic errors: a checked addition or subtraction would wrap. Fatal
// for the transaction, never retried.
var (
	ErrOrderIDOverflow = errors.New("tpcc: district order id counter exhausted")
	ErrBalanceOverflow = errors.New("tpcc: balance arithmetic overflow")
)

// Domain-state errors.
var (
	ErrOrderAlreadyDelivered = errors.New("tpcc: order already delivered")
	ErrCustomerIndexFull     = errors.New("tpcc: customer last-name index full")
)

// ErrorClass attributes a rejection so the benchmark can count it
// correctly.
type ErrorClass int

const (
	ClassNone ErrorClass = iota
	ClassValidation
	ClassReferential
	ClassArithmetic
	ClassConflict
	ClassDomainState
	ClassInternal
)

func (c ErrorClass) String() string {
	switch c {
	case ClassNone:
		return "ok"
	case ClassValidation:
		return "validation"
	case ClassReferential:
		return "referential"
	case ClassArithmetic:
		return "arithmetic"
	case ClassConflict:
		return "conflict"
	case ClassDomainState:
		return "domain"
	default:
		return "internal"
	}
}

// Classify maps an error to its class from the taxonomy.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ClassNone
	case isAny(err, ErrInvalidOrderLineCount, ErrInvalidQuantity, ErrInvalidDistrict,
		ErrInvalidCarrierID, ErrInvalidThreshold, ErrInvalidPaymentAmount, ErrStringTooLong):
		return ClassValidation
	case isAny(err, ErrItemMismatch, ErrStockMismatch, ErrCustomerMismatch,
		ErrOrderIDMismatch, ErrDeliveryMismatch, store.ErrNotFound, store.ErrExists):
		return ClassReferential
	case isAny(err, ErrOrderIDOverflow, ErrBalanceOverflow):
		return ClassArithmetic
	case stderrors.Is(err, store.ErrConflict):
		return ClassConflict
	case isAny(err, ErrOrderAlreadyDelivered, ErrCustomerIndexFull):
		return ClassDomainState
	default:
		return ClassInternal
	}
}

// Retryable reports whether the caller should retry the transaction with
// fresh inputs. Conflicts are transient by definition; an order id
// mismatch means the district counter moved under the caller and a
// re-read resolves it.
func Retryable(err error) bool {
	return stderrors.Is(err, store.ErrConflict) || stderrors.Is(err, ErrOrderIDMismatch)
}

func isAny(err error, targets ...error) bool {
	for _, t := range targets {
		if stderrors.Is(err, t) {
			return true
		}
	}
	return false
}

func checkedAddU64(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrBalanceOverflow
	}
	return a + b, nil
}

func checkedMulU64(a, b uint64) (uint64, error) {
	if a != 0 && b > math.MaxUint64/a {
		return 0, ErrBalanceOverflow
	}
	return a * b, nil
}

func checkedAddI64(a, b int64) (int64, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, ErrBalanceOverflow
	}
	return a + b, nil
}

func checkedAddU32(a, b uint32) (uint32, error) {
	if a > math.MaxUint32-b {
		return 0, ErrBalanceOverflow
	}
	return a + b, nil
}
