// Package validator models the host ledger's validator interface: the one
// external collaborator the matching engine calls out to (spec.md §6). It is
// out of scope for the engine's own correctness, but the engine needs a
// concrete implementation to run against, so this package provides an
// in-memory SimValidator alongside the Validator interface the engine
// actually depends on.
package validator

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"github.com/liquify/liquify-engine/internal/money"
)

// ErrNotLSU is returned when a resource is not recognised as any validator's
// pool unit.
var ErrNotLSU = errors.New("not a validator LSU")

// ErrNotReceipt is returned when a resource/id is not a known unstake
// receipt.
var ErrNotReceipt = errors.New("not an unstake receipt")

// Receipt is an unstake-receipt NFT's externally-visible metadata.
type Receipt struct {
	Resource    string
	ID          uint64
	ClaimAmount money.Amount
	ClaimEpoch  uint32
}

// Validator is the external interface the matching engine calls: redemption
// rate lookup, unstake, and claim, plus the metadata lookups spec.md §6
// requires (validator<->pool_unit association, claim_amount/claim_epoch on a
// receipt).
type Validator interface {
	// Address identifies this validator.
	Address() string
	// PoolUnit is the LSU resource this validator issues.
	PoolUnit() string
	// RedemptionValue returns the current XRD value of 1 LSU.
	RedemptionValue(ctx context.Context) (money.Amount, error)
	// Unstake converts amount LSU into a freshly minted unstake receipt,
	// maturing once the validator's unbonding period has passed.
	Unstake(ctx context.Context, amount money.Amount) (Receipt, error)
	// ClaimXRD redeems a matured receipt for base tokens. The caller must
	// have already confirmed claimEpoch has passed.
	ClaimXRD(ctx context.Context, receiptID uint64) (money.Amount, error)
	// ReceiptMetadata looks up a previously issued receipt by id without
	// consuming it (used by get_claimable_xrd / cycle's claimable scan).
	ReceiptMetadata(ctx context.Context, receiptID uint64) (Receipt, error)
}

// Registry resolves an LSU or receipt resource address to its owning
// Validator, and caches the immutable validator<->pool_unit association via
// an LRU (this mapping never changes once a validator is created, unlike the
// redemption rate which spec.md §4.6 requires be sampled fresh every call).
type Registry struct {
	byLSU     map[string]Validator
	byReceipt map[string]Validator
	cache     *lru.Cache[string, string] // lsu resource -> validator address, cached lookups only
}

// NewRegistry returns a registry over the given validators.
func NewRegistry(validators ...Validator) *Registry {
	r := &Registry{
		byLSU:     make(map[string]Validator),
		byReceipt: make(map[string]Validator),
	}
	cache, err := lru.New[string, string](256)
	if err != nil {
		// 256 is a positive literal; lru.New only errors on size<=0.
		panic(fmt.Errorf("validator registry: %w", err))
	}
	r.cache = cache
	for _, v := range validators {
		r.Register(v)
	}
	return r
}

// Register adds a validator the registry can resolve LSUs/receipts against.
func (r *Registry) Register(v Validator) {
	r.byLSU[v.PoolUnit()] = v
	r.cache.Add(v.PoolUnit(), v.Address())
}

// RegisterReceiptResource associates a receipt resource address with its
// issuing validator, so ReceiptMetadata lookups can be routed.
func (r *Registry) RegisterReceiptResource(receiptResource string, v Validator) {
	r.byReceipt[receiptResource] = v
}

// ByLSU resolves the validator that issues lsuResource. Returns ErrNotLSU if
// no registered validator's pool_unit matches, matching spec.md §4.6 step 1
// ("resolving its validator metadata and checking V.pool_unit == lsu_resource").
func (r *Registry) ByLSU(lsuResource string) (Validator, error) {
	if v, ok := r.byLSU[lsuResource]; ok {
		return v, nil
	}
	if addr, ok := r.cache.Get(lsuResource); ok {
		log.Debug().Str("lsu", lsuResource).Str("validator", addr).Msg("validator metadata cache hit with stale registry entry")
	}
	return nil, fmt.Errorf("%w: %s", ErrNotLSU, lsuResource)
}

// ByReceiptResource resolves the validator that issued receiptResource.
func (r *Registry) ByReceiptResource(receiptResource string) (Validator, error) {
	v, ok := r.byReceipt[receiptResource]
	if !ok {
		return nil, fmt.Errorf("%w: resource %s", ErrNotReceipt, receiptResource)
	}
	return v, nil
}
