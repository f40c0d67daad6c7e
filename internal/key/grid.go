// Package key packs order priority into a single ordered 128-bit value and
// defines the closed discount grid every order's discount must belong to.
package key

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNotOnGrid is returned when a requested discount does not sit on a
// 0.00025 step between 0 and 0.05.
var ErrNotOnGrid = errors.New("discount is not on the supported grid")

// Step is the spacing between adjacent grid discounts: D = {Step*i | i in [0,200]}.
var Step = decimal.New(25, -5) // 0.00025

// Slots is the number of discount buckets (0..=200 inclusive).
const Slots = 201

var ten000 = decimal.NewFromInt(10000)

// Slot returns i such that discount == Step*i, the dense bucket-index array
// position for this discount. Returns ErrNotOnGrid if discount is not an
// exact multiple of Step in [0, Slots).
func Slot(discount decimal.Decimal) (uint16, error) {
	if discount.IsNegative() {
		return 0, fmt.Errorf("%w: %s", ErrNotOnGrid, discount)
	}
	ratio := discount.Div(Step)
	i := ratio.Floor()
	if !ratio.Equal(i) {
		return 0, fmt.Errorf("%w: %s", ErrNotOnGrid, discount)
	}
	n := i.IntPart()
	if n < 0 || n >= Slots {
		return 0, fmt.Errorf("%w: %s", ErrNotOnGrid, discount)
	}
	return uint16(n), nil
}

// DiscountAt returns the canonical decimal for a grid slot (inverse of Slot).
func DiscountAt(slot uint16) decimal.Decimal {
	return Step.Mul(decimal.NewFromInt(int64(slot)))
}

// Dunits returns floor(discount*10000), the packed-key priority field. This
// is distinct from Slot: the step between adjacent grid discounts in dunits
// space is 2.5, so Dunits values are not contiguous, but flooring preserves
// strict ordering and injectivity across the grid (matching the original
// Scrypto source's CombinedKey::new packing exactly).
func Dunits(discount decimal.Decimal) (uint32, error) {
	if _, err := Slot(discount); err != nil {
		return 0, err
	}
	return uint32(discount.Mul(ten000).Floor().IntPart()), nil
}
