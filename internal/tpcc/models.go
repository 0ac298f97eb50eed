// Package tpcc implements the TPC-C entity schema and the five
// transaction handlers over a key-addressed record store, plus the
// benchmark aggregator that summarizes their execution.
package tpcc

// Scale constants per TPC-C v5.11.
const (
	DistrictsPerWarehouse = 10
	CustomersPerDistrict  = 3000
	TotalItems            = 100000

	MinOrderLines = 5
	MaxOrderLines = 15
	MinQuantity   = 1
	MaxQuantity   = 10

	MinCarrierID = 1
	MaxCarrierID = 10

	// First order id assigned after the load phase (3000 loaded orders).
	FirstOrderID = 3001

	// Basis points: 10000 = 100%.
	BasisPoints = 10000
)

// Field capacities, matching the fixed record layouts.
const (
	capName         = 10
	capStreet       = 20
	capCity         = 20
	capState        = 2
	capZip          = 9
	capPhone        = 16
	capFirst        = 16
	capMiddle       = 2
	capLast         = 16
	capCustomerData = 500
	capItemName     = 24
	capMiscData     = 50
	capDistInfo     = 24

	// MaxIndexCustomers bounds the last-name index; insertion past this
	// is rejected.
	MaxIndexCustomers = 20
)

// CreditStatus is a customer's credit standing.
type CreditStatus uint8

const (
	GoodCredit CreditStatus = iota
	BadCredit
)

// Warehouse is mutated by every Payment directed at it (YTD).
type Warehouse struct {
	WID     uint64
	Name    string
	Street1 string
	Street2 string
	City    string
	State   string
	Zip     string
	Tax     uint64 // basis points
	YTD     uint64 // cents
}

// District carries the next_order_id counter, the serialization point
// for every New-Order in the district.
type District struct {
	WID     uint64
	DID     uint64
	Name    string
	Street1 string
	Street2 string
	City    string
	State   string
	Zip     string
	Tax     uint64 // basis points
	YTD     uint64 // cents
	NextOID uint64
}

type Customer struct {
	WID         uint64
	DID         uint64
	CID         uint64
	First       string
	Middle      string
	Last        string
	Street1     string
	Street2     string
	City        string
	State       string
	Zip         string
	Phone       string
	Since       int64
	Credit      CreditStatus
	CreditLim   uint64
	Discount    uint64 // basis points
	Balance     int64  // cents, may be negative
	YTDPayment  uint64 // cents
	PaymentCnt  uint32
	DeliveryCnt uint32
	Data        string
}

// Item is read-only after the load phase.
type Item struct {
	IID   uint64
	ImID  uint64
	Name  string
	Price uint64 // cents
	Data  string
}

type Stock struct {
	WID       uint64
	IID       uint64
	Quantity  uint64
	Dists     [DistrictsPerWarehouse]string // per-district distribution info
	YTD       uint64
	OrderCnt  uint32
	RemoteCnt uint32
	Data      string
}

// Order embeds its lines; separate order-line records would cost one
// extra lookup per line.
type Order struct {
	WID       uint64
	DID       uint64
	OID       uint64
	CID       uint64
	EntryD    int64
	CarrierID *uint64 // unset until Delivery
	AllLocal  bool
	Lines     []OrderLine
}

type OrderLine struct {
	Number    uint8
	IID       uint64
	SupplyWID uint64
	DeliveryD *int64
	Quantity  uint8
	Amount    uint64 // cents
	DistInfo  string
}

// NewOrderEntry marks its order undelivered. Its existence is the sole
// signal Delivery acts on; deleting it and setting the order's carrier id
// happen in the same commit.
type NewOrderEntry struct {
	WID       uint64
	DID       uint64
	OID       uint64
	CreatedAt int64
}

// History is write-once.
type History struct {
	CWID   uint64
	CDID   uint64
	CID    uint64
	WID    uint64
	DID    uint64
	HID    uint64
	Date   int64
	Amount uint64
	Data   string
}

// CustomerNameIndex maps hash(last name) within a district to the
// candidate customer ids carrying that name, kept sorted.
type CustomerNameIndex struct {
	WID          uint64
	DID          uint64
	LastNameHash [32]byte
	CustomerIDs  []uint64
}
