package workload

import (
	"sync"

	"github.com/ttraveller7/tpcc-kv-bench/internal/tpcc"
)

// recentOrderWindow is how many of a district's latest orders feed the
// stock-level item set.
const recentOrderWindow = 20

type districtRef struct {
	wid uint64
	did uint64
}

type orderRef struct {
	oid   uint64
	cid   uint64
	items []uint64
}

// State is the shared, mutable bookkeeping all workers maintain about
// orders they created: which ones still await delivery and which items
// the latest orders touched. The record store has no scans, so the
// driver itself carries the order ids that Delivery and Stock-Level need.
type State struct {
	mu          sync.Mutex
	undelivered map[districtRef][]orderRef
	recent      map[districtRef][][]uint64
	nextHID     uint64
}

func NewState() *State {
	return &State{
		undelivered: make(map[districtRef][]orderRef),
		recent:      make(map[districtRef][][]uint64),
	}
}

// NoteNewOrder records a freshly committed order for later delivery and
// stock-level queries.
func (s *State) NoteNewOrder(wid, did, oid, cid uint64, items []uint64) {
	d := districtRef{wid: wid, did: did}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.undelivered[d] = append(s.undelivered[d], orderRef{oid: oid, cid: cid, items: items})
	window := append(s.recent[d], items)
	if len(window) > recentOrderWindow {
		window = window[len(window)-recentOrderWindow:]
	}
	s.recent[d] = window
}

// OldestUndelivered peeks each district's delivery candidate without
// removing it; the worker pops it with MarkDelivered only after the
// transaction commits.
func (s *State) OldestUndelivered(wid, did uint64) (oid, cid uint64, ok bool) {
	d := districtRef{wid: wid, did: did}
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.undelivered[d]
	if len(q) == 0 {
		return 0, 0, false
	}
	return q[0].oid, q[0].cid, true
}

// DeliveryBatch assembles one triple per district of wid that has an
// undelivered order.
func (s *State) DeliveryBatch(wid uint64) []tpcc.DeliveryTriple {
	s.mu.Lock()
	defer s.mu.Unlock()
	var triples []tpcc.DeliveryTriple
	for did := uint64(1); did <= tpcc.DistrictsPerWarehouse; did++ {
		q := s.undelivered[districtRef{wid: wid, did: did}]
		if len(q) == 0 {
			continue
		}
		triples = append(triples, tpcc.DeliveryTriple{DID: did, OID: q[0].oid, CID: q[0].cid})
	}
	return triples
}

// MarkDelivered pops the district's queue head if it matches oid.
func (s *State) MarkDelivered(wid, did, oid uint64) {
	d := districtRef{wid: wid, did: did}
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.undelivered[d]
	if len(q) > 0 && q[0].oid == oid {
		s.undelivered[d] = q[1:]
	}
}

// RecentItems returns the distinct item ids of the district's latest
// orders.
func (s *State) RecentItems(wid, did uint64) []uint64 {
	d := districtRef{wid: wid, did: did}
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[uint64]struct{})
	var items []uint64
	for _, order := range s.recent[d] {
		for _, id := range order {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			items = append(items, id)
		}
	}
	return items
}

// NextHistoryID hands out a unique id for a payment's history record.
func (s *State) NextHistoryID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextHID++
	return s.nextHID
}
