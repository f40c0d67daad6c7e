// Package automation tracks the set of live orders with auto_refill=true,
// spec.md §3 invariant 8 and §4.7. Grounded on the original Scrypto source's
// automated_liquidity KeyValueStore<u64, NonFungibleGlobalId> plus its
// swap-with-last removal strategy, which keeps the live slot range dense
// (slots 1..nextSlot-1 are always exactly the live set, with no holes).
package automation

// Index is the dense slot -> orderID side index.
type Index struct {
	slots    map[uint64]uint64 // slot -> orderID
	orderPos map[uint64]uint64 // orderID -> slot, for O(1) removal lookup
	nextSlot uint64
}

// New returns an empty index whose first slot is 1.
func New() *Index {
	return &Index{
		slots:    make(map[uint64]uint64),
		orderPos: make(map[uint64]uint64),
		nextSlot: 1,
	}
}

// Add registers orderID as automated. No-op if already present.
func (idx *Index) Add(orderID uint64) {
	if _, ok := idx.orderPos[orderID]; ok {
		return
	}
	slot := idx.nextSlot
	idx.slots[slot] = orderID
	idx.orderPos[orderID] = slot
	idx.nextSlot++
}

// Remove deregisters orderID, swapping the last live slot into the freed one
// so the live range stays dense. No-op if orderID was not present.
func (idx *Index) Remove(orderID uint64) {
	slot, ok := idx.orderPos[orderID]
	if !ok {
		return
	}
	delete(idx.orderPos, orderID)
	delete(idx.slots, slot)

	lastSlot := idx.nextSlot - 1
	if lastSlot == 0 {
		return
	}
	if slot != lastSlot {
		if lastOrderID, ok := idx.slots[lastSlot]; ok {
			idx.slots[slot] = lastOrderID
			idx.orderPos[lastOrderID] = slot
			delete(idx.slots, lastSlot)
		}
	}
	idx.nextSlot--
}

// Contains reports whether orderID is currently tracked as automated.
func (idx *Index) Contains(orderID uint64) bool {
	_, ok := idx.orderPos[orderID]
	return ok
}

// Len returns the number of live automated orders.
func (idx *Index) Len() int { return len(idx.orderPos) }

// Each visits every live automated order id; order of visitation is
// unspecified (it is a dense slot map, not a priority structure).
func (idx *Index) Each(fn func(orderID uint64)) {
	for _, id := range idx.slots {
		fn(id)
	}
}
