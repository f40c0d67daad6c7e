// Package fillledger implements the fill ledger: a second ordered map, keyed
// so that every order's fills occupy a contiguous ascending range, recording
// either an unstake-receipt handle or a raw LSU amount per fill.
//
// Grounded on the same btree.BTreeG ordered-map idiom as internal/book
// (teacher's internal/engine/orderbook.go), keyed here by key.Fill(orderID,
// arrivalCounter) instead of discount priority.
package fillledger

import (
	"github.com/tidwall/btree"

	"github.com/liquify/liquify-engine/internal/key"
	"github.com/liquify/liquify-engine/internal/money"
)

// Kind tags which variant a Fill entry holds.
type Kind int

const (
	// KindUnstakeReceipt means the fill was auto-unstaked: the maker will
	// receive a validator unstake-receipt NFT (id), out of vault Resource.
	KindUnstakeReceipt Kind = iota
	// KindLSU means the fill parked raw LSU Amount in vault Resource.
	KindLSU
)

// Fill is the tagged variant {UnstakeReceipt(resource,id) | LSU(resource,amount)}.
type Fill struct {
	Kind     Kind
	Resource string // external resource address of the LSU or receipt kind
	ReceiptID uint64 // valid when Kind == KindUnstakeReceipt
	Amount   money.Amount // valid when Kind == KindLSU
}

type entry struct {
	k key.Packed
	v Fill
}

func less(a, b entry) bool { return a.k.Less(b.k) }

// Ledger is the ordered map key.Packed -> Fill.
type Ledger struct {
	tree *btree.BTreeG[entry]
}

// New returns an empty fill ledger.
func New() *Ledger {
	return &Ledger{tree: btree.NewBTreeG(less)}
}

// Insert records a fill at k. k must be unique (guaranteed by the
// process-wide, never-reset arrival counter).
func (l *Ledger) Insert(k key.Packed, f Fill) {
	l.tree.Set(entry{k: k, v: f})
}

// Remove deletes the fill at k.
func (l *Ledger) Remove(k key.Packed) {
	l.tree.Delete(entry{k: k})
}

// Range visits every fill for orderID in strictly increasing arrival order,
// calling fn(key, fill) until fn returns false or the range is exhausted.
func (l *Ledger) Range(orderID uint64, fn func(k key.Packed, f Fill) bool) {
	lo := entry{k: key.FillRangeLo(orderID)}
	hi := entry{k: key.FillRangeHi(orderID)}
	l.tree.Ascend(lo, func(e entry) bool {
		if hi.k.Less(e.k) {
			return false
		}
		return fn(e.k, e.v)
	})
}

// Count returns the number of fill-ledger entries in orderID's range. Used
// by invariant checks (spec.md I5) and tests; not on the matching hot path.
func (l *Ledger) Count(orderID uint64) int {
	n := 0
	l.Range(orderID, func(key.Packed, Fill) bool {
		n++
		return true
	})
	return n
}

// Len returns the total number of fill-ledger entries across all orders.
func (l *Ledger) Len() int { return l.tree.Len() }
