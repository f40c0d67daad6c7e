// Package money centralises the fixed-point decimal type used for every
// base-token and LSU amount in the engine, so no package reaches for
// float64 (spec.md §9: "all arithmetic is fixed-point decimal").
package money

import "github.com/shopspring/decimal"

// Amount is a non-negative (by convention, not by type) fixed-point quantity
// of base tokens or LSUs.
type Amount = decimal.Decimal

// Zero is the additive identity.
var Zero = decimal.Zero

// One is the multiplicative identity.
var One = decimal.NewFromInt(1)
