// Package workload drives the benchmark: it generates randomized, skewed
// transaction inputs according to the TPC-C mix and executes them against
// the record store with caller-driven retry.
package workload

import (
	"math/rand"

	"github.com/ttraveller7/tpcc-kv-bench/internal/tpcc"
)

// Transaction mix percentages.
const (
	newOrderFreq    = 45
	paymentFreq     = 43
	orderStatusFreq = 4
	deliveryFreq    = 4
	// stock-level takes the remainder
)

// Input distribution constants per TPC-C v5.11.
const (
	remoteLinePercent   = 1  // order lines supplied by a remote warehouse
	remotePayPercent    = 15 // payments for a customer of another warehouse
	byLastNamePercent   = 60 // customer lookups by last name
	minPaymentCents     = 100
	maxPaymentCents     = 500000
	minStockThreshold   = 10
	maxStockThreshold   = 20
	nuRandALastName     = 255
	nuRandACustomer     = 1023
	nuRandAItem         = 8191
	lastNameKeyRange    = 999
)

var lastNameSyllables = [10]string{
	"BAR", "OUGHT", "ABLE", "PRI", "PRES", "ESE", "ANTI", "CALLY", "ATION", "EING",
}

// LastNameFor builds a TPC-C last name from a number in [0, 999]: one
// syllable per decimal digit.
func LastNameFor(num uint64) string {
	return lastNameSyllables[num/100%10] + lastNameSyllables[num/10%10] + lastNameSyllables[num%10]
}

// Generator produces one worker's randomized inputs. Not safe for
// concurrent use; give each worker its own.
type Generator struct {
	rnd        *rand.Rand
	warehouses uint64
	items      uint64

	// NURand C constants, fixed per generation run.
	cLast     uint64
	cCustomer uint64
	cItem     uint64
}

func NewGenerator(seed int64, warehouses, items uint64) *Generator {
	rnd := rand.New(rand.NewSource(seed))
	return &Generator{
		rnd:        rnd,
		warehouses: warehouses,
		items:      items,
		cLast:      uint64(rnd.Intn(256)),
		cCustomer:  uint64(rnd.Intn(1024)),
		cItem:      uint64(rnd.Intn(8192)),
	}
}

// NextTxType draws a transaction type from the 45/43/4/4/4 mix.
func (g *Generator) NextTxType() tpcc.TxType {
	p := g.rnd.Intn(100)
	switch {
	case p < newOrderFreq:
		return tpcc.TxNewOrder
	case p < newOrderFreq+paymentFreq:
		return tpcc.TxPayment
	case p < newOrderFreq+paymentFreq+orderStatusFreq:
		return tpcc.TxOrderStatus
	case p < newOrderFreq+paymentFreq+orderStatusFreq+deliveryFreq:
		return tpcc.TxDelivery
	default:
		return tpcc.TxStockLevel
	}
}

// nuRand is TPC-C's non-uniform random: skewed toward a hot subset of
// [x, y] while still covering the whole range.
func (g *Generator) nuRand(a, c, x, y uint64) uint64 {
	return ((g.uniform(0, a) | g.uniform(x, y)) + c) % (y - x + 1) + x
}

func (g *Generator) uniform(lo, hi uint64) uint64 {
	return lo + uint64(g.rnd.Int63n(int64(hi-lo+1)))
}

func (g *Generator) WarehouseID() uint64 {
	return g.uniform(1, g.warehouses)
}

func (g *Generator) DistrictID() uint64 {
	return g.uniform(1, tpcc.DistrictsPerWarehouse)
}

func (g *Generator) CustomerID() uint64 {
	return g.nuRand(nuRandACustomer, g.cCustomer, 1, tpcc.CustomersPerDistrict)
}

func (g *Generator) ItemID() uint64 {
	return g.nuRand(nuRandAItem, g.cItem, 1, g.items)
}

// LastName draws a skewed last name for lookups.
func (g *Generator) LastName() string {
	return LastNameFor(g.nuRand(nuRandALastName, g.cLast, 0, lastNameKeyRange))
}

// LoadLastName assigns the last name for customer cid during the load
// phase: the first 1000 customers get each name once, the rest draw from
// the skewed distribution.
func (g *Generator) LoadLastName(cid uint64) string {
	if cid <= 1000 {
		return LastNameFor(cid - 1)
	}
	return LastNameFor(g.nuRand(nuRandALastName, g.cLast, 0, lastNameKeyRange))
}

func (g *Generator) CarrierID() uint64 {
	return g.uniform(tpcc.MinCarrierID, tpcc.MaxCarrierID)
}

func (g *Generator) PaymentAmount() uint64 {
	return g.uniform(minPaymentCents, maxPaymentCents)
}

func (g *Generator) StockThreshold() uint64 {
	return g.uniform(minStockThreshold, maxStockThreshold)
}

func (g *Generator) ByLastName() bool {
	return g.rnd.Intn(100) < byLastNamePercent
}

// OrderLines draws 5-15 lines for a New-Order at homeWID: skewed item
// ids, quantities 1-10, and the occasional remote supply warehouse when
// more than one warehouse exists.
func (g *Generator) OrderLines(homeWID uint64) []tpcc.OrderLineInput {
	n := int(g.uniform(tpcc.MinOrderLines, tpcc.MaxOrderLines))
	lines := make([]tpcc.OrderLineInput, 0, n)
	for i := 0; i < n; i++ {
		supply := homeWID
		if g.warehouses > 1 && g.rnd.Intn(100) < remoteLinePercent {
			for supply == homeWID {
				supply = g.WarehouseID()
			}
		}
		lines = append(lines, tpcc.OrderLineInput{
			ItemID:    g.ItemID(),
			SupplyWID: supply,
			Quantity:  uint8(g.uniform(tpcc.MinQuantity, tpcc.MaxQuantity)),
		})
	}
	return lines
}

// PaymentCustomer picks the paying customer's warehouse/district: 85%
// home district, 15% a customer of some other warehouse.
func (g *Generator) PaymentCustomer(wid, did uint64) (cwid, cdid uint64) {
	if g.warehouses > 1 && g.rnd.Intn(100) < remotePayPercent {
		cwid = wid
		for cwid == wid {
			cwid = g.WarehouseID()
		}
		return cwid, g.DistrictID()
	}
	return wid, did
}

const alnum = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Alnum returns a random string with length in [lo, hi].
func (g *Generator) Alnum(lo, hi int) string {
	n := lo + g.rnd.Intn(hi-lo+1)
	b := make([]byte, n)
	for i := range b {
		b[i] = alnum[g.rnd.Intn(len(alnum))]
	}
	return string(b)
}

// Digits returns a random numeric string of length n.
func (g *Generator) Digits(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('0' + g.rnd.Intn(10))
	}
	return string(b)
}

// DataString returns filler data; roughly 10% contain "ORIGINAL" per the
// load rules.
func (g *Generator) DataString() string {
	s := g.Alnum(26, 50)
	if g.rnd.Intn(10) == 0 {
		pos := g.rnd.Intn(len(s) - 8)
		s = s[:pos] + "ORIGINAL" + s[pos+8:]
	}
	return s
}

func (g *Generator) Price() uint64 {
	return g.uniform(100, 10000)
}

func (g *Generator) StockQuantity() uint64 {
	return g.uniform(10, 100)
}

func (g *Generator) Discount() uint64 {
	return g.uniform(0, 5000)
}

func (g *Generator) Tax() uint64 {
	return g.uniform(0, 2000)
}

func (g *Generator) BadCredit() bool {
	return g.rnd.Intn(10) == 0
}
