package key

import (
	"github.com/holiman/uint256"
)

// Packed is the 128-bit ordered book/fill-ledger key:
//
//	(dunits << 96) | (epoch << 64) | id
//
// for the order book, and
//
//	(orderID << 32) | arrivalCounter
//
// for the fill ledger (see Fill below). Only the low 128 bits of the
// underlying uint256 are ever set; the wider type is used because the
// standard library has no native 128-bit integer and uint256.Int already
// gives us correct shifts, ORs and a total order via Cmp.
type Packed struct {
	v uint256.Int
}

// Pack builds an order-book key from (dunits, epoch, id) per spec.md §3:
// smaller discount sorts first, then older epoch, then lower id.
func Pack(dunits uint32, epoch uint32, id uint64) Packed {
	var v uint256.Int
	v.SetUint64(uint64(dunits))
	v.Lsh(&v, 96)

	var e uint256.Int
	e.SetUint64(uint64(epoch))
	e.Lsh(&e, 64)
	v.Or(&v, &e)

	var i uint256.Int
	i.SetUint64(id)
	v.Or(&v, &i)

	return Packed{v: v}
}

// Fill builds a fill-ledger key from (orderID, arrivalCounter): all fills for
// a given order occupy the contiguous range [Fill(orderID,1), Fill(orderID, 2^32-1)].
func Fill(orderID uint64, arrival uint32) Packed {
	var v uint256.Int
	v.SetUint64(orderID)
	v.Lsh(&v, 32)

	var a uint256.Int
	a.SetUint64(uint64(arrival))
	v.Or(&v, &a)

	return Packed{v: v}
}

// FillRangeLo is the inclusive lower bound of order id's fill range.
func FillRangeLo(orderID uint64) Packed { return Fill(orderID, 1) }

// FillRangeHi is the inclusive upper bound of order id's fill range.
func FillRangeHi(orderID uint64) Packed { return Fill(orderID, 0xFFFFFFFF) }

// Less reports whether p sorts strictly before o.
func (p Packed) Less(o Packed) bool { return p.v.Lt(&o.v) }

// Equal reports value equality.
func (p Packed) Equal(o Packed) bool { return p.v.Eq(&o.v) }

// Compare reports whether a sorts strictly before b, for use as a btree.Less
// adapter.
func Compare(a, b Packed) bool { return a.Less(b) }

// String renders the key in hex, for logs.
func (p Packed) String() string { return p.v.Hex() }
