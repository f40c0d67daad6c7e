// Package engine implements the core of spec.md: the ordered buy-book, the
// matching algorithm, the fill ledger, and the liquidity lifecycle
// operations, all as methods on a single Engine instance (spec.md §6
// "Persistent state layout").
//
// Every public method here is the Go analogue of a transactional ledger
// call: it runs to completion on the calling goroutine, validates its
// inputs up front, and either commits every staged mutation or returns an
// error having committed nothing (spec.md §5, §7).
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/liquify/liquify-engine/internal/automation"
	"github.com/liquify/liquify-engine/internal/book"
	"github.com/liquify/liquify-engine/internal/fillledger"
	"github.com/liquify/liquify-engine/internal/key"
	"github.com/liquify/liquify-engine/internal/money"
	"github.com/liquify/liquify-engine/internal/store"
	"github.com/liquify/liquify-engine/internal/validator"
	"github.com/liquify/liquify-engine/internal/vault"
)

// Params holds the admin-tunable parameters of spec.md §6, with the
// defaults it documents.
type Params struct {
	PlatformFee         money.Amount // fraction, default 0
	CycleFee            money.Amount // flat base-token amount, default 5
	MinLiquidity        money.Amount // default 10_000
	MinRefillThreshold  money.Amount // default 10_000
	SmallOrderThreshold money.Amount // default 0 in tests
	ComponentStatus     bool         // gate on add_liquidity
	ReceiptImageURL     string
}

// DefaultParams returns the admin defaults spec.md §6 documents.
func DefaultParams() Params {
	return Params{
		PlatformFee:         money.Zero,
		CycleFee:            decimal.NewFromInt(5),
		MinLiquidity:        decimal.NewFromInt(10000),
		MinRefillThreshold:  decimal.NewFromInt(10000),
		SmallOrderThreshold: money.Zero,
		ComponentStatus:     true,
		ReceiptImageURL:     "https://liquify.example/receipt.png",
	}
}

// Engine is the persistent state layout of spec.md §6.
type Engine struct {
	mu sync.Mutex

	baseResource string // resource address of the base token (XRD-analogue)

	book       *book.Book
	fills      *fillledger.Ledger
	store      *store.Store
	vaults     *vault.Bank
	auto       *automation.Index
	idToKey    map[uint64]key.Packed
	validators *validator.Registry

	baseVault money.Amount
	feeVault  money.Amount

	idCounter   uint64
	fillCounter uint32

	bucketIndex [key.Slots]money.Amount

	totalVolume money.Amount
	totalLocked money.Amount

	params Params

	currentEpoch func() uint32
}

// New constructs an empty engine. baseResource is the resource address
// add_liquidity/increase_liquidity buckets must carry (the XRD-analogue);
// currentEpoch supplies the host ledger's notion of the current epoch
// (spec.md treats epoch progression as an external clock) — pass a fixed or
// incrementable function in tests.
func New(baseResource string, validators *validator.Registry, currentEpoch func() uint32, params Params) *Engine {
	return &Engine{
		baseResource: baseResource,
		book:         book.New(),
		fills:        fillledger.New(),
		store:        store.New(),
		vaults:       vault.NewBank(),
		auto:         automation.New(),
		idToKey:      make(map[uint64]key.Packed),
		validators:   validators,
		baseVault:    money.Zero,
		feeVault:     money.Zero,
		idCounter:    1,
		fillCounter:  1,
		totalVolume:  money.Zero,
		totalLocked:  money.Zero,
		params:       params,
		currentEpoch: currentEpoch,
	}
}

func (e *Engine) nextID() uint64 {
	id := e.idCounter
	e.idCounter++
	return id
}

func (e *Engine) nextFillArrival() uint32 {
	n := e.fillCounter
	e.fillCounter++
	return n
}

// --- Read-only queries (spec.md §6 / SPEC_FULL §C.1) -----------------------

// GetLiquidityData returns the current body for a receipt id.
func (e *Engine) GetLiquidityData(id uint64) (store.Body, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.store.Body(id)
	if !ok {
		return store.Body{}, fmt.Errorf("%w: %d", ErrUnknownOrder, id)
	}
	return b, nil
}

// GetClaimableXRD sums the claim_amount of every matured unstake-receipt
// fill on id's range, ignoring LSU fills, per spec.md §4.7 cycle's
// claimable computation. It does not mutate anything.
func (e *Engine) GetClaimableXRD(ctx context.Context, id uint64) (money.Amount, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.store.Exists(id) {
		return money.Zero, fmt.Errorf("%w: %d", ErrUnknownOrder, id)
	}
	return e.claimableXRD(ctx, id)
}

func (e *Engine) claimableXRD(ctx context.Context, id uint64) (money.Amount, error) {
	total := money.Zero
	var rangeErr error
	e.fills.Range(id, func(_ key.Packed, f fillledger.Fill) bool {
		if f.Kind != fillledger.KindUnstakeReceipt {
			return true
		}
		v, err := e.validators.ByReceiptResource(f.Resource)
		if err != nil {
			rangeErr = fmt.Errorf("%w: %v", ErrValidatorMetadata, err)
			return false
		}
		meta, err := v.ReceiptMetadata(ctx, f.ReceiptID)
		if err != nil {
			rangeErr = fmt.Errorf("%w: %v", ErrValidatorMetadata, err)
			return false
		}
		if e.currentEpoch() >= meta.ClaimEpoch {
			total = total.Add(meta.ClaimAmount)
		}
		return true
	})
	if rangeErr != nil {
		return money.Zero, rangeErr
	}
	return total, nil
}

// GetBookDepth reports the bucket-index total at a discount (spec.md §4.3
// depth query), for introspection/tests.
func (e *Engine) GetBookDepth(discount money.Amount) (money.Amount, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	slot, err := key.Slot(discount)
	if err != nil {
		return money.Zero, err
	}
	return e.bucketIndex[slot], nil
}

// GetAutomationIndexSize reports the live count of auto_refill orders.
func (e *Engine) GetAutomationIndexSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.auto.Len()
}

// TotalLocked returns Σ available over all live orders (spec.md invariant I1).
func (e *Engine) TotalLocked() money.Amount {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalLocked
}

// TotalVolume returns the running total of net base tokens paid out to takers.
func (e *Engine) TotalVolume() money.Amount {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalVolume
}

// --- Admin operations (spec.md §4.8) ---------------------------------------
// Auth is enforced by the transport layer (internal/netsrv), not here; see
// ErrAdminRequired's doc comment.

// SetComponentStatus toggles whether add_liquidity accepts new deposits.
func (e *Engine) SetComponentStatus(status bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.params.ComponentStatus = status
	log.Info().Bool("status", status).Msg("component status updated")
}

// SetPlatformFee updates the taker-side platform fee fraction.
func (e *Engine) SetPlatformFee(fee money.Amount) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.params.PlatformFee = fee
	log.Info().Str("fee", fee.String()).Msg("platform fee updated")
}

// SetCycleFee updates the flat fee charged on each cycle_liquidity call.
func (e *Engine) SetCycleFee(fee money.Amount) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.params.CycleFee = fee
	log.Info().Str("fee", fee.String()).Msg("cycle fee updated")
}

// SetMinLiquidity updates the minimum deposit for add/increase.
func (e *Engine) SetMinLiquidity(min money.Amount) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.params.MinLiquidity = min
}

// SetMinRefillThreshold updates the minimum auto_refill threshold.
func (e *Engine) SetMinRefillThreshold(min money.Amount) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.params.MinRefillThreshold = min
}

// SetSmallOrderThreshold updates the small-order skip policy's threshold.
func (e *Engine) SetSmallOrderThreshold(min money.Amount) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.params.SmallOrderThreshold = min
}

// SetReceiptImageURL updates the cosmetic image stamped on newly minted
// receipts; existing receipts are unaffected (matches spec.md: image_url is
// immutable per-receipt, this only changes the default for future opens).
func (e *Engine) SetReceiptImageURL(url string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.params.ReceiptImageURL = url
}

// CollectPlatformFees drains the fee vault to the caller.
func (e *Engine) CollectPlatformFees() money.Amount {
	e.mu.Lock()
	defer e.mu.Unlock()
	amt := e.feeVault
	e.feeVault = money.Zero
	return amt
}
