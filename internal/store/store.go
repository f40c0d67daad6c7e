// Package store holds the order store: an immutable order header (NFT-shaped
// data keyed by integer id) and a separate mutable order body, per spec.md
// §3/§4.4.
package store

import (
	"fmt"

	"github.com/liquify/liquify-engine/internal/money"
)

// Header is the maker receipt's immutable data, save for the two automation
// fields which update_automation is allowed to mutate (spec.md §3).
type Header struct {
	Discount        money.Amount // discount ∈ D, immutable
	AutoUnstake     bool         // immutable
	AutoRefill      bool         // mutable
	RefillThreshold money.Amount // mutable
	ImageURL        string       // cosmetic, immutable
}

// Body is the order's mutable fill/liquidity state.
type Body struct {
	Available      money.Amount // base tokens still offered
	Filled         money.Amount // base tokens already paid out
	FillsToCollect uint64       // uncollected fill-ledger entries
	LastAddedEpoch uint32       // epoch stamped at latest (re)insertion
}

func (b Body) String() string {
	return fmt.Sprintf(
		"available=%s filled=%s fillsToCollect=%d lastAddedEpoch=%d",
		b.Available, b.Filled, b.FillsToCollect, b.LastAddedEpoch,
	)
}

// Store is the keyed map of order id -> (Header, Body). Header is written
// once at Open; only SetAutomation is allowed to touch it afterwards.
//
// Id allocation lives one level up, in the engine: the same monotonic
// counter that mints a fresh order id here also draws the tie-break id
// embedded in a rekeyed book entry after increase/cycle (matching the
// original source's single liquidity_receipt_counter, reused for both
// purposes).
type Store struct {
	headers map[uint64]Header
	bodies  map[uint64]Body
}

// New returns an empty store.
func New() *Store {
	return &Store{
		headers: make(map[uint64]Header),
		bodies:  make(map[uint64]Body),
	}
}

// Open stores header and body under id, which the caller has already
// allocated. The header is never mutated except through SetAutomation.
func (s *Store) Open(id uint64, header Header, body Body) {
	s.headers[id] = header
	s.bodies[id] = body
}

// Header returns the immutable header for id.
func (s *Store) Header(id uint64) (Header, bool) {
	h, ok := s.headers[id]
	return h, ok
}

// Body returns the mutable body for id.
func (s *Store) Body(id uint64) (Body, bool) {
	b, ok := s.bodies[id]
	return b, ok
}

// SetBody overwrites the body for id.
func (s *Store) SetBody(id uint64, body Body) {
	s.bodies[id] = body
}

// SetAutomation is the only header mutation path: it updates AutoRefill and
// RefillThreshold and leaves every other header field untouched.
func (s *Store) SetAutomation(id uint64, autoRefill bool, refillThreshold money.Amount) bool {
	h, ok := s.headers[id]
	if !ok {
		return false
	}
	h.AutoRefill = autoRefill
	h.RefillThreshold = refillThreshold
	s.headers[id] = h
	return true
}

// Exists reports whether id was ever opened.
func (s *Store) Exists(id uint64) bool {
	_, ok := s.headers[id]
	return ok
}
