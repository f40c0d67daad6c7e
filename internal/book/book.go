// Package book implements the ordered buy-book: a single ordered map from
// packed (discount, epoch, id) key to order id, iterated ascending so that
// the lowest discount, oldest epoch, lowest id is always visited first.
//
// This mirrors the teacher's PriceLevels = btree.BTreeG[*PriceLevel] in
// internal/engine/orderbook.go, but keyed directly on the packed priority
// value instead of a float64 price, since this domain's priority already
// folds tie-breaks into the key itself.
package book

import (
	"github.com/tidwall/btree"

	"github.com/liquify/liquify-engine/internal/key"
)

type entry struct {
	k  key.Packed
	id uint64
}

func less(a, b entry) bool { return a.k.Less(b.k) }

// Book is the ordered map key.Packed -> order id.
type Book struct {
	tree *btree.BTreeG[entry]
}

// New returns an empty book.
func New() *Book {
	return &Book{tree: btree.NewBTreeG(less)}
}

// Insert adds k -> id. k must not already be present (the caller's
// monotonic id counter guarantees this).
func (b *Book) Insert(k key.Packed, id uint64) {
	b.tree.Set(entry{k: k, id: id})
}

// Remove deletes k if present; it is a no-op otherwise.
func (b *Book) Remove(k key.Packed) {
	b.tree.Delete(entry{k: k})
}

// Get returns the order id stored at k, and whether it was present.
func (b *Book) Get(k key.Packed) (uint64, bool) {
	e, ok := b.tree.Get(entry{k: k})
	return e.id, ok
}

// Len returns the number of live orders in the book.
func (b *Book) Len() int { return b.tree.Len() }

// Visit walks the book ascending from the lowest key, calling fn(key, id)
// for each entry until fn returns false or the book is exhausted.
func (b *Book) Visit(fn func(k key.Packed, id uint64) bool) {
	b.tree.Scan(func(e entry) bool {
		return fn(e.k, e.id)
	})
}

// FindKey does a linear scan for the current key of a given order id. This
// is the teacher-sanctioned fallback spec.md §9 allows ("Implementations may
// optionally maintain an id -> key side map to skip the linear scan;
// behaviour must be identical") — callers that need this on a hot path
// should maintain their own id->key map instead; the engine does (see
// internal/engine's idToKey index).
func (b *Book) FindKey(id uint64) (key.Packed, bool) {
	var found key.Packed
	ok := false
	b.tree.Scan(func(e entry) bool {
		if e.id == id {
			found = e.k
			ok = true
			return false
		}
		return true
	})
	return found, ok
}
