package validator

import (
	"context"
	"fmt"
	"sync"

	"github.com/liquify/liquify-engine/internal/money"
)

// SimValidator is an in-memory stand-in for a real Radix validator
// component: there is no on-chain validator to call from a Go process, so
// the daemon and tests run against this deterministic simulation instead
// (spec.md §1 treats the validator as a given external service).
type SimValidator struct {
	mu sync.Mutex

	address         string
	poolUnit        string
	receiptResource string
	rate            money.Amount
	unbondingEpochs uint32

	currentEpoch func() uint32

	receipts  map[uint64]Receipt
	nextID    uint64
	claimable map[uint64]money.Amount // receiptID -> XRD held, pending claim
}

// NewSimValidator constructs a simulated validator. currentEpoch lets tests
// control the clock without depending on wall time.
func NewSimValidator(address, poolUnit, receiptResource string, rate money.Amount, unbondingEpochs uint32, currentEpoch func() uint32) *SimValidator {
	return &SimValidator{
		address:         address,
		poolUnit:        poolUnit,
		receiptResource: receiptResource,
		rate:            rate,
		unbondingEpochs: unbondingEpochs,
		currentEpoch:    currentEpoch,
		receipts:        make(map[uint64]Receipt),
		nextID:          1,
		claimable:       make(map[uint64]money.Amount),
	}
}

// Address implements Validator.
func (s *SimValidator) Address() string { return s.address }

// PoolUnit implements Validator.
func (s *SimValidator) PoolUnit() string { return s.poolUnit }

// ReceiptResource returns this validator's unstake-receipt resource address.
func (s *SimValidator) ReceiptResource() string { return s.receiptResource }

// SetRedemptionValue lets admin/test code move the exchange rate between
// calls; within a single engine call the rate is sampled once and held.
func (s *SimValidator) SetRedemptionValue(rate money.Amount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rate = rate
}

// RedemptionValue implements Validator.
func (s *SimValidator) RedemptionValue(ctx context.Context) (money.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate, nil
}

// Unstake implements Validator: mints a receipt worth amount*rate XRD,
// maturing unbondingEpochs from the current epoch.
func (s *SimValidator) Unstake(ctx context.Context, amount money.Amount) (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	claimAmount := amount.Mul(s.rate)
	id := s.nextID
	s.nextID++

	r := Receipt{
		Resource:    s.receiptResource,
		ID:          id,
		ClaimAmount: claimAmount,
		ClaimEpoch:  s.currentEpoch() + s.unbondingEpochs,
	}
	s.receipts[id] = r
	return r, nil
}

// ClaimXRD implements Validator: redeems a matured receipt.
func (s *SimValidator) ClaimXRD(ctx context.Context, receiptID uint64) (money.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.receipts[receiptID]
	if !ok {
		return money.Zero, fmt.Errorf("%w: id %d", ErrNotReceipt, receiptID)
	}
	if s.currentEpoch() < r.ClaimEpoch {
		return money.Zero, fmt.Errorf("receipt %d not yet matured (claim epoch %d, now %d)", receiptID, r.ClaimEpoch, s.currentEpoch())
	}
	delete(s.receipts, receiptID)
	return r.ClaimAmount, nil
}

// ReceiptMetadata implements Validator.
func (s *SimValidator) ReceiptMetadata(ctx context.Context, receiptID uint64) (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.receipts[receiptID]
	if !ok {
		return Receipt{}, fmt.Errorf("%w: id %d", ErrNotReceipt, receiptID)
	}
	return r, nil
}
