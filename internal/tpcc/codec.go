package tpcc

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Every entity encodes to a fixed-size little-endian layout: integers at
// their natural width, strings as u32 length + zero-padded capacity,
// optional fields as a tag byte + payload, and bounded vectors as a u32
// count + a fixed number of slots. Record size depends only on the entity
// type, never on its contents.

// ErrBadRecord reports a record whose bytes do not fit its entity layout.
var ErrBadRecord = errors.New("tpcc: malformed record")

const (
	strHeader = 4

	warehouseSize = 8 + // wid
		strHeader + capName +
		2*(strHeader+capStreet) +
		strHeader + capCity +
		strHeader + capState +
		strHeader + capZip +
		8 + 8 // tax, ytd

	districtSize = 8 + 8 + // wid, did
		strHeader + capName +
		2*(strHeader+capStreet) +
		strHeader + capCity +
		strHeader + capState +
		strHeader + capZip +
		8 + 8 + 8 // tax, ytd, next oid

	customerSize = 8 + 8 + 8 + // wid, did, cid
		strHeader + capFirst +
		strHeader + capMiddle +
		strHeader + capLast +
		2*(strHeader+capStreet) +
		strHeader + capCity +
		strHeader + capState +
		strHeader + capZip +
		strHeader + capPhone +
		8 + // since
		1 + // credit
		8 + 8 + // credit limit, discount
		8 + 8 + 4 + 4 + // balance, ytd payment, payment cnt, delivery cnt
		strHeader + capCustomerData

	itemSize = 8 + 8 + // iid, im id
		strHeader + capItemName +
		8 + // price
		strHeader + capMiscData

	stockSize = 8 + 8 + 8 + // wid, iid, quantity
		DistrictsPerWarehouse*(strHeader+capDistInfo) +
		8 + 4 + 4 + // ytd, order cnt, remote cnt
		strHeader + capMiscData

	orderLineSize = 1 + // number
		8 + 8 + // iid, supply wid
		1 + 8 + // optional delivery date
		1 + // quantity
		8 + // amount
		strHeader + capDistInfo

	orderSize = 8 + 8 + 8 + 8 + // wid, did, oid, cid
		8 + // entry date
		1 + 8 + // optional carrier
		1 + // line count
		1 + // all local
		4 + MaxOrderLines*orderLineSize

	newOrderSize = 8 + 8 + 8 + 8 // wid, did, oid, created at

	historySize = 8 + 8 + 8 + // cwid, cdid, cid
		8 + 8 + // wid, did
		8 + 8 + 8 + // hid, date, amount
		strHeader + capDistInfo

	customerIndexSize = 8 + 8 + // wid, did
		32 + // last name hash
		4 + MaxIndexCustomers*8
)

type recEncoder struct {
	buf []byte
	err error
}

func newRecEncoder(size int) *recEncoder {
	return &recEncoder{buf: make([]byte, 0, size)}
}

func (e *recEncoder) u8(v uint8) {
	e.buf = append(e.buf, v)
}

func (e *recEncoder) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *recEncoder) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *recEncoder) i64(v int64) {
	e.u64(uint64(v))
}

func (e *recEncoder) boolean(v bool) {
	if v {
		e.u8(1)
	} else {
		e.u8(0)
	}
}

func (e *recEncoder) str(s string, capacity int) {
	if len(s) > capacity {
		e.err = errors.Wrapf(ErrStringTooLong, "%q exceeds %d bytes", s, capacity)
		return
	}
	e.u32(uint32(len(s)))
	e.buf = append(e.buf, s...)
	e.buf = append(e.buf, make([]byte, capacity-len(s))...)
}

func (e *recEncoder) optU64(v *uint64) {
	if v == nil {
		e.u8(0)
		e.u64(0)
		return
	}
	e.u8(1)
	e.u64(*v)
}

func (e *recEncoder) optI64(v *int64) {
	if v == nil {
		e.u8(0)
		e.i64(0)
		return
	}
	e.u8(1)
	e.i64(*v)
}

func (e *recEncoder) raw(b []byte) {
	e.buf = append(e.buf, b...)
}

func (e *recEncoder) finish(size int) ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	if len(e.buf) != size {
		return nil, errors.Wrapf(ErrBadRecord, "encoded %d bytes, layout is %d", len(e.buf), size)
	}
	return e.buf, nil
}

type recDecoder struct {
	buf []byte
	off int
	err error
}

func newRecDecoder(b []byte, size int) *recDecoder {
	d := &recDecoder{buf: b}
	if len(b) != size {
		d.err = errors.Wrapf(ErrBadRecord, "record is %d bytes, layout is %d", len(b), size)
	}
	return d
}

func (d *recDecoder) u8() uint8 {
	if d.err != nil || d.off+1 > len(d.buf) {
		d.fail()
		return 0
	}
	v := d.buf[d.off]
	d.off++
	return v
}

func (d *recDecoder) u32() uint32 {
	if d.err != nil || d.off+4 > len(d.buf) {
		d.fail()
		return 0
	}
	v := binary.LittleEndian.Uint32(d.buf[d.off:])
	d.off += 4
	return v
}

func (d *recDecoder) u64() uint64 {
	if d.err != nil || d.off+8 > len(d.buf) {
		d.fail()
		return 0
	}
	v := binary.LittleEndian.Uint64(d.buf[d.off:])
	d.off += 8
	return v
}

func (d *recDecoder) i64() int64 {
	return int64(d.u64())
}

func (d *recDecoder) boolean() bool {
	return d.u8() != 0
}

func (d *recDecoder) str(capacity int) string {
	n := int(d.u32())
	if d.err != nil || n > capacity || d.off+capacity > len(d.buf) {
		d.fail()
		return ""
	}
	s := string(d.buf[d.off : d.off+n])
	d.off += capacity
	return s
}

func (d *recDecoder) optU64() *uint64 {
	set := d.u8() != 0
	v := d.u64()
	if !set || d.err != nil {
		return nil
	}
	return &v
}

func (d *recDecoder) optI64() *int64 {
	set := d.u8() != 0
	v := d.i64()
	if !set || d.err != nil {
		return nil
	}
	return &v
}

func (d *recDecoder) bytes32() [32]byte {
	var out [32]byte
	if d.err != nil || d.off+32 > len(d.buf) {
		d.fail()
		return out
	}
	copy(out[:], d.buf[d.off:])
	d.off += 32
	return out
}

func (d *recDecoder) fail() {
	if d.err == nil {
		d.err = errors.Wrapf(ErrBadRecord, "truncated at offset %d", d.off)
	}
}

func (w *Warehouse) Marshal() ([]byte, error) {
	e := newRecEncoder(warehouseSize)
	e.u64(w.WID)
	e.str(w.Name, capName)
	e.str(w.Street1, capStreet)
	e.str(w.Street2, capStreet)
	e.str(w.City, capCity)
	e.str(w.State, capState)
	e.str(w.Zip, capZip)
	e.u64(w.Tax)
	e.u64(w.YTD)
	return e.finish(warehouseSize)
}

func UnmarshalWarehouse(b []byte) (*Warehouse, error) {
	d := newRecDecoder(b, warehouseSize)
	w := &Warehouse{
		WID:     d.u64(),
		Name:    d.str(capName),
		Street1: d.str(capStreet),
		Street2: d.str(capStreet),
		City:    d.str(capCity),
		State:   d.str(capState),
		Zip:     d.str(capZip),
		Tax:     d.u64(),
		YTD:     d.u64(),
	}
	return w, d.err
}

func (dt *District) Marshal() ([]byte, error) {
	e := newRecEncoder(districtSize)
	e.u64(dt.WID)
	e.u64(dt.DID)
	e.str(dt.Name, capName)
	e.str(dt.Street1, capStreet)
	e.str(dt.Street2, capStreet)
	e.str(dt.City, capCity)
	e.str(dt.State, capState)
	e.str(dt.Zip, capZip)
	e.u64(dt.Tax)
	e.u64(dt.YTD)
	e.u64(dt.NextOID)
	return e.finish(districtSize)
}

func UnmarshalDistrict(b []byte) (*District, error) {
	d := newRecDecoder(b, districtSize)
	dt := &District{
		WID:     d.u64(),
		DID:     d.u64(),
		Name:    d.str(capName),
		Street1: d.str(capStreet),
		Street2: d.str(capStreet),
		City:    d.str(capCity),
		State:   d.str(capState),
		Zip:     d.str(capZip),
		Tax:     d.u64(),
		YTD:     d.u64(),
		NextOID: d.u64(),
	}
	return dt, d.err
}

func (c *Customer) Marshal() ([]byte, error) {
	e := newRecEncoder(customerSize)
	e.u64(c.WID)
	e.u64(c.DID)
	e.u64(c.CID)
	e.str(c.First, capFirst)
	e.str(c.Middle, capMiddle)
	e.str(c.Last, capLast)
	e.str(c.Street1, capStreet)
	e.str(c.Street2, capStreet)
	e.str(c.City, capCity)
	e.str(c.State, capState)
	e.str(c.Zip, capZip)
	e.str(c.Phone, capPhone)
	e.i64(c.Since)
	e.u8(uint8(c.Credit))
	e.u64(c.CreditLim)
	e.u64(c.Discount)
	e.i64(c.Balance)
	e.u64(c.YTDPayment)
	e.u32(c.PaymentCnt)
	e.u32(c.DeliveryCnt)
	e.str(c.Data, capCustomerData)
	return e.finish(customerSize)
}

func UnmarshalCustomer(b []byte) (*Customer, error) {
	d := newRecDecoder(b, customerSize)
	c := &Customer{
		WID:         d.u64(),
		DID:         d.u64(),
		CID:         d.u64(),
		First:       d.str(capFirst),
		Middle:      d.str(capMiddle),
		Last:        d.str(capLast),
		Street1:     d.str(capStreet),
		Street2:     d.str(capStreet),
		City:        d.str(capCity),
		State:       d.str(capState),
		Zip:         d.str(capZip),
		Phone:       d.str(capPhone),
		Since:       d.i64(),
		Credit:      CreditStatus(d.u8()),
		CreditLim:   d.u64(),
		Discount:    d.u64(),
		Balance:     d.i64(),
		YTDPayment:  d.u64(),
		PaymentCnt:  d.u32(),
		DeliveryCnt: d.u32(),
		Data:        d.str(capCustomerData),
	}
	return c, d.err
}

func (i *Item) Marshal() ([]byte, error) {
	e := newRecEncoder(itemSize)
	e.u64(i.IID)
	e.u64(i.ImID)
	e.str(i.Name, capItemName)
	e.u64(i.Price)
	e.str(i.Data, capMiscData)
	return e.finish(itemSize)
}

func UnmarshalItem(b []byte) (*Item, error) {
	d := newRecDecoder(b, itemSize)
	i := &Item{
		IID:   d.u64(),
		ImID:  d.u64(),
		Name:  d.str(capItemName),
		Price: d.u64(),
		Data:  d.str(capMiscData),
	}
	return i, d.err
}

func (s *Stock) Marshal() ([]byte, error) {
	e := newRecEncoder(stockSize)
	e.u64(s.WID)
	e.u64(s.IID)
	e.u64(s.Quantity)
	for _, dist := range s.Dists {
		e.str(dist, capDistInfo)
	}
	e.u64(s.YTD)
	e.u32(s.OrderCnt)
	e.u32(s.RemoteCnt)
	e.str(s.Data, capMiscData)
	return e.finish(stockSize)
}

func UnmarshalStock(b []byte) (*Stock, error) {
	d := newRecDecoder(b, stockSize)
	s := &Stock{
		WID:      d.u64(),
		IID:      d.u64(),
		Quantity: d.u64(),
	}
	for i := range s.Dists {
		s.Dists[i] = d.str(capDistInfo)
	}
	s.YTD = d.u64()
	s.OrderCnt = d.u32()
	s.RemoteCnt = d.u32()
	s.Data = d.str(capMiscData)
	return s, d.err
}

func (o *Order) Marshal() ([]byte, error) {
	if len(o.Lines) > MaxOrderLines {
		return nil, errors.Wrapf(ErrInvalidOrderLineCount, "%d lines", len(o.Lines))
	}
	e := newRecEncoder(orderSize)
	e.u64(o.WID)
	e.u64(o.DID)
	e.u64(o.OID)
	e.u64(o.CID)
	e.i64(o.EntryD)
	e.optU64(o.CarrierID)
	e.u8(uint8(len(o.Lines)))
	e.boolean(o.AllLocal)
	e.u32(uint32(len(o.Lines)))
	for _, ln := range o.Lines {
		e.u8(ln.Number)
		e.u64(ln.IID)
		e.u64(ln.SupplyWID)
		e.optI64(ln.DeliveryD)
		e.u8(ln.Quantity)
		e.u64(ln.Amount)
		e.str(ln.DistInfo, capDistInfo)
	}
	e.raw(make([]byte, (MaxOrderLines-len(o.Lines))*orderLineSize))
	return e.finish(orderSize)
}

func UnmarshalOrder(b []byte) (*Order, error) {
	d := newRecDecoder(b, orderSize)
	o := &Order{
		WID:       d.u64(),
		DID:       d.u64(),
		OID:       d.u64(),
		CID:       d.u64(),
		EntryD:    d.i64(),
		CarrierID: d.optU64(),
	}
	olCnt := d.u8()
	o.AllLocal = d.boolean()
	n := int(d.u32())
	if d.err == nil && (n > MaxOrderLines || int(olCnt) != n) {
		return nil, errors.Wrapf(ErrBadRecord, "order line count %d/%d", olCnt, n)
	}
	o.Lines = make([]OrderLine, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		o.Lines = append(o.Lines, OrderLine{
			Number:    d.u8(),
			IID:       d.u64(),
			SupplyWID: d.u64(),
			DeliveryD: d.optI64(),
			Quantity:  d.u8(),
			Amount:    d.u64(),
			DistInfo:  d.str(capDistInfo),
		})
	}
	return o, d.err
}

func (n *NewOrderEntry) Marshal() ([]byte, error) {
	e := newRecEncoder(newOrderSize)
	e.u64(n.WID)
	e.u64(n.DID)
	e.u64(n.OID)
	e.i64(n.CreatedAt)
	return e.finish(newOrderSize)
}

func UnmarshalNewOrderEntry(b []byte) (*NewOrderEntry, error) {
	d := newRecDecoder(b, newOrderSize)
	n := &NewOrderEntry{
		WID:       d.u64(),
		DID:       d.u64(),
		OID:       d.u64(),
		CreatedAt: d.i64(),
	}
	return n, d.err
}

func (h *History) Marshal() ([]byte, error) {
	e := newRecEncoder(historySize)
	e.u64(h.CWID)
	e.u64(h.CDID)
	e.u64(h.CID)
	e.u64(h.WID)
	e.u64(h.DID)
	e.u64(h.HID)
	e.i64(h.Date)
	e.u64(h.Amount)
	e.str(h.Data, capDistInfo)
	return e.finish(historySize)
}

func UnmarshalHistory(b []byte) (*History, error) {
	d := newRecDecoder(b, historySize)
	h := &History{
		CWID:   d.u64(),
		CDID:   d.u64(),
		CID:    d.u64(),
		WID:    d.u64(),
		DID:    d.u64(),
		HID:    d.u64(),
		Date:   d.i64(),
		Amount: d.u64(),
		Data:   d.str(capDistInfo),
	}
	return h, d.err
}

func (ix *CustomerNameIndex) Marshal() ([]byte, error) {
	if len(ix.CustomerIDs) > MaxIndexCustomers {
		return nil, errors.Wrapf(ErrCustomerIndexFull, "%d candidates", len(ix.CustomerIDs))
	}
	e := newRecEncoder(customerIndexSize)
	e.u64(ix.WID)
	e.u64(ix.DID)
	e.raw(ix.LastNameHash[:])
	e.u32(uint32(len(ix.CustomerIDs)))
	for _, cid := range ix.CustomerIDs {
		e.u64(cid)
	}
	e.raw(make([]byte, (MaxIndexCustomers-len(ix.CustomerIDs))*8))
	return e.finish(customerIndexSize)
}

func UnmarshalCustomerNameIndex(b []byte) (*CustomerNameIndex, error) {
	d := newRecDecoder(b, customerIndexSize)
	ix := &CustomerNameIndex{
		WID:          d.u64(),
		DID:          d.u64(),
		LastNameHash: d.bytes32(),
	}
	n := int(d.u32())
	if d.err == nil && n > MaxIndexCustomers {
		return nil, errors.Wrapf(ErrBadRecord, "index candidate count %d", n)
	}
	ix.CustomerIDs = make([]uint64, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		ix.CustomerIDs = append(ix.CustomerIDs, d.u64())
	}
	return ix, d.err
}
