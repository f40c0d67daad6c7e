package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/liquify/liquify-engine/internal/fillledger"
	"github.com/liquify/liquify-engine/internal/key"
	"github.com/liquify/liquify-engine/internal/money"
	"github.com/liquify/liquify-engine/internal/store"
)

// Deposit is the Go stand-in for a resource-tagged bucket: a resource
// address and an amount, the two fields every lifecycle call validates
// before touching engine state.
type Deposit struct {
	Resource string
	Amount   money.Amount
}

func (e *Engine) requireBase(d Deposit) error {
	if d.Resource != e.baseResource {
		return fmt.Errorf("%w: expected %s, got %s", ErrWrongResource, e.baseResource, d.Resource)
	}
	return nil
}

func (e *Engine) applyBucketDelta(discount money.Amount, delta money.Amount) error {
	slot, err := key.Slot(discount)
	if err != nil {
		return err
	}
	e.bucketIndex[slot] = e.bucketIndex[slot].Add(delta)
	return nil
}

// AddLiquidity opens a new order, per spec.md §4.7's five-argument form
// (the source's two- vs five-argument add_liquidity inconsistency is
// resolved here in favor of the five-argument form the interface layer
// documents).
func (e *Engine) AddLiquidity(deposit Deposit, discount money.Amount, autoUnstake, autoRefill bool, refillThreshold money.Amount) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.params.ComponentStatus {
		return 0, ErrComponentClosed
	}
	if err := e.requireBase(deposit); err != nil {
		return 0, err
	}
	if deposit.Amount.LessThan(e.params.MinLiquidity) {
		return 0, fmt.Errorf("%w: %s < %s", ErrBelowMinLiquidity, deposit.Amount, e.params.MinLiquidity)
	}
	dunits, err := key.Dunits(discount)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrDiscountNotOnGrid, discount)
	}
	if autoRefill {
		if refillThreshold.LessThan(e.params.MinRefillThreshold) {
			return 0, fmt.Errorf("%w: %s < %s", ErrBelowMinRefillThresh, refillThreshold, e.params.MinRefillThreshold)
		}
		if !autoUnstake {
			return 0, ErrAutoRefillNeedsUnstk
		}
	}

	id := e.nextID()
	epoch := e.currentEpoch()

	header := store.Header{
		Discount:        discount,
		AutoUnstake:     autoUnstake,
		AutoRefill:      autoRefill,
		RefillThreshold: refillThreshold,
		ImageURL:        e.params.ReceiptImageURL,
	}
	body := store.Body{
		Available:      deposit.Amount,
		Filled:         money.Zero,
		FillsToCollect: 0,
		LastAddedEpoch: epoch,
	}
	e.store.Open(id, header, body)

	k := key.Pack(dunits, epoch, id)
	e.book.Insert(k, id)
	e.idToKey[id] = k

	if err := e.applyBucketDelta(discount, deposit.Amount); err != nil {
		return 0, err
	}

	if autoRefill {
		e.auto.Add(id)
	}

	e.baseVault = e.baseVault.Add(deposit.Amount)
	e.totalLocked = e.totalLocked.Add(deposit.Amount)

	log.Info().Uint64("id", id).Str("discount", discount.String()).Str("amount", deposit.Amount.String()).Msg("liquidity added")
	return id, nil
}

// IncreaseLiquidity adds deposit.Amount to an existing order and rekeys it
// at a new id and the current epoch, losing its queue position at that
// discount (spec.md §4.7).
func (e *Engine) IncreaseLiquidity(id uint64, deposit Deposit) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireBase(deposit); err != nil {
		return err
	}
	if deposit.Amount.LessThan(e.params.MinLiquidity) {
		return fmt.Errorf("%w: %s < %s", ErrBelowMinLiquidity, deposit.Amount, e.params.MinLiquidity)
	}

	header, ok := e.store.Header(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownOrder, id)
	}
	body, ok := e.store.Body(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownOrder, id)
	}

	e.removeFromBook(id)

	epoch := e.currentEpoch()
	newID := e.nextID()
	dunits, err := key.Dunits(header.Discount)
	if err != nil {
		return err
	}
	k := key.Pack(dunits, epoch, newID)
	e.book.Insert(k, id)
	e.idToKey[id] = k

	body.Available = body.Available.Add(deposit.Amount)
	body.LastAddedEpoch = epoch
	e.store.SetBody(id, body)

	if err := e.applyBucketDelta(header.Discount, deposit.Amount); err != nil {
		return err
	}

	e.baseVault = e.baseVault.Add(deposit.Amount)
	e.totalLocked = e.totalLocked.Add(deposit.Amount)

	log.Info().Uint64("id", id).Str("amount", deposit.Amount.String()).Msg("liquidity increased")
	return nil
}

// removeFromBook deletes id's current book entry using the idToKey side
// index (spec.md §9 sanctions this as an alternative to the linear scan
// book.FindKey provides).
func (e *Engine) removeFromBook(id uint64) {
	if k, ok := e.idToKey[id]; ok {
		e.book.Remove(k)
		delete(e.idToKey, id)
		return
	}
	if k, ok := e.book.FindKey(id); ok {
		e.book.Remove(k)
	}
}

// UpdateAutomation toggles auto_refill/refill_threshold on an existing
// order, maintaining the automation side index (spec.md §4.7).
func (e *Engine) UpdateAutomation(id uint64, autoRefill bool, refillThreshold money.Amount) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	header, ok := e.store.Header(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownOrder, id)
	}
	if autoRefill {
		if refillThreshold.LessThan(e.params.MinRefillThreshold) {
			return fmt.Errorf("%w: %s < %s", ErrBelowMinRefillThresh, refillThreshold, e.params.MinRefillThreshold)
		}
		if !header.AutoUnstake {
			return ErrAutoRefillNeedsUnstk
		}
	}

	if autoRefill && !header.AutoRefill {
		e.auto.Add(id)
	} else if !autoRefill && header.AutoRefill {
		e.auto.Remove(id)
	}

	e.store.SetAutomation(id, autoRefill, refillThreshold)
	return nil
}

// RemoveLiquidity closes out every id in the bucket's entire available
// balance and returns the total base-token amount released. available == 0
// on a given id is treated as a benign no-op (spec.md §9 open-question
// resolution), not an error, unless the id was never opened at all.
func (e *Engine) RemoveLiquidity(ids []uint64) (money.Amount, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(ids) == 0 {
		return money.Zero, ErrEmptyBucket
	}
	for _, id := range ids {
		if !e.store.Exists(id) {
			return money.Zero, fmt.Errorf("%w: %d", ErrUnknownOrder, id)
		}
	}

	total := money.Zero
	for _, id := range ids {
		header, ok := e.store.Header(id)
		if !ok {
			return money.Zero, fmt.Errorf("%w: %d", ErrUnknownOrder, id)
		}
		body, ok := e.store.Body(id)
		if !ok {
			return money.Zero, fmt.Errorf("%w: %d", ErrUnknownOrder, id)
		}
		if body.Available.IsZero() {
			continue
		}

		amount := body.Available

		if header.AutoRefill {
			e.auto.Remove(id)
			header.AutoRefill = false
			e.store.SetAutomation(id, false, header.RefillThreshold)
		}

		e.removeFromBook(id)

		if err := e.applyBucketDelta(header.Discount, amount.Neg()); err != nil {
			return money.Zero, err
		}

		body.Available = money.Zero
		e.store.SetBody(id, body)

		e.baseVault = e.baseVault.Sub(amount)
		e.totalLocked = e.totalLocked.Sub(amount)
		total = total.Add(amount)

		log.Info().Uint64("id", id).Str("amount", amount.String()).Msg("liquidity removed")
	}

	return total, nil
}

// CycleLiquidity claims every matured unstake-receipt fill on an
// auto_refill+auto_unstake order, subtracts the cycle fee, and re-opens the
// order at its original discount with a fresh epoch and id (spec.md §4.7).
// Any LSU fill present aborts the cycle rather than being silently skipped
// (spec.md §9: "the source's behaviour is to abort").
func (e *Engine) CycleLiquidity(ctx context.Context, id uint64) (money.Amount, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	header, ok := e.store.Header(id)
	if !ok {
		return money.Zero, fmt.Errorf("%w: %d", ErrUnknownOrder, id)
	}
	body, ok := e.store.Body(id)
	if !ok {
		return money.Zero, fmt.Errorf("%w: %d", ErrUnknownOrder, id)
	}
	if !header.AutoRefill || !header.AutoUnstake {
		return money.Zero, ErrNotAutoRefillOrUnstk
	}

	// Defensive only: a KindLSU fill can't actually occur here, since
	// matching.go only ever produces one for auto_unstake=false orders, and
	// the AutoUnstake check above already rejected those.
	var hitLSU bool
	e.fills.Range(id, func(_ key.Packed, f fillledger.Fill) bool {
		if f.Kind == fillledger.KindLSU {
			hitLSU = true
			return false
		}
		return true
	})
	if hitLSU {
		return money.Zero, ErrCycleHitLSUFill
	}

	claimable, err := e.claimableXRD(ctx, id)
	if err != nil {
		return money.Zero, err
	}
	if claimable.LessThan(header.RefillThreshold) {
		return money.Zero, fmt.Errorf("%w: claimable %s < threshold %s", ErrThresholdNotMet, claimable, header.RefillThreshold)
	}

	var claimErr error
	var toRemove []key.Packed
	claimed := money.Zero
	e.fills.Range(id, func(k key.Packed, f fillledger.Fill) bool {
		v, verr := e.validators.ByReceiptResource(f.Resource)
		if verr != nil {
			claimErr = fmt.Errorf("%w: %v", ErrValidatorMetadata, verr)
			return false
		}
		meta, merr := v.ReceiptMetadata(ctx, f.ReceiptID)
		if merr != nil {
			claimErr = fmt.Errorf("%w: %v", ErrValidatorMetadata, merr)
			return false
		}
		if e.currentEpoch() < meta.ClaimEpoch {
			return true
		}
		amt, cerr := v.ClaimXRD(ctx, f.ReceiptID)
		if cerr != nil {
			claimErr = fmt.Errorf("%w: %v", ErrValidatorMetadata, cerr)
			return false
		}
		claimed = claimed.Add(amt)
		toRemove = append(toRemove, k)
		return true
	})
	if claimErr != nil {
		return money.Zero, claimErr
	}
	for _, k := range toRemove {
		e.fills.Remove(k)
	}
	body.FillsToCollect -= uint64(len(toRemove))

	fee := e.params.CycleFee
	if claimed.LessThan(fee) {
		fee = claimed
	}
	e.feeVault = e.feeVault.Add(fee)
	remainder := claimed.Sub(fee)

	e.removeFromBook(id)

	epoch := e.currentEpoch()
	newID := e.nextID()
	dunits, err := key.Dunits(header.Discount)
	if err != nil {
		return money.Zero, err
	}
	k := key.Pack(dunits, epoch, newID)
	e.book.Insert(k, id)
	e.idToKey[id] = k

	body.Available = body.Available.Add(remainder)
	body.LastAddedEpoch = epoch
	e.store.SetBody(id, body)

	if err := e.applyBucketDelta(header.Discount, remainder); err != nil {
		return money.Zero, err
	}

	e.baseVault = e.baseVault.Add(remainder)
	e.totalLocked = e.totalLocked.Add(remainder)

	log.Info().Uint64("id", id).Str("claimed", claimed.String()).Str("remainder", remainder.String()).Msg("liquidity cycled")
	return remainder, nil
}

// CollectFills drains up to maxFills fill-ledger entries, in total, across
// every id in the bucket into the vault bank's withdrawal side, returning
// each released artifact. Unfinished collection is not an error: remaining
// fills persist for a later call (spec.md §4.7); calling with maxFills==0
// is a no-op.
func (e *Engine) CollectFills(ids []uint64, maxFills uint64) ([]fillledger.Fill, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(ids) == 0 {
		return nil, ErrEmptyBucket
	}
	for _, id := range ids {
		if !e.store.Exists(id) {
			return nil, fmt.Errorf("%w: %d", ErrUnknownOrder, id)
		}
	}

	var collected []fillledger.Fill

	for _, id := range ids {
		if uint64(len(collected)) >= maxFills {
			break
		}
		body, ok := e.store.Body(id)
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownOrder, id)
		}
		if body.FillsToCollect == 0 {
			continue
		}

		var toRemove []key.Packed
		var withdrawErr error
		e.fills.Range(id, func(k key.Packed, f fillledger.Fill) bool {
			if uint64(len(collected)) >= maxFills {
				return false
			}
			switch f.Kind {
			case fillledger.KindLSU:
				withdrawErr = e.vaults.WithdrawFungible(f.Resource, f.Amount)
			case fillledger.KindUnstakeReceipt:
				withdrawErr = e.vaults.WithdrawNFT(f.Resource, f.ReceiptID)
			}
			if withdrawErr != nil {
				return false
			}
			collected = append(collected, f)
			toRemove = append(toRemove, k)
			return true
		})
		if withdrawErr != nil {
			return nil, fmt.Errorf("collect fills: %w", withdrawErr)
		}
		for _, k := range toRemove {
			e.fills.Remove(k)
		}
		body.FillsToCollect -= uint64(len(toRemove))
		e.store.SetBody(id, body)
	}

	return collected, nil
}

// BurnClosedReceipts reports which of the given ids are fully drained
// (available == 0 && fills_to_collect == 0) and therefore eligible to be
// burned by the caller; ids not fully drained are skipped, not aborted
// (spec.md §7 "recoverable degradation... handled by skipping rather than
// aborting").
func (e *Engine) BurnClosedReceipts(ids []uint64) ([]uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var closed []uint64
	for _, id := range ids {
		body, ok := e.store.Body(id)
		if !ok {
			continue
		}
		if body.Available.IsZero() && body.FillsToCollect == 0 {
			closed = append(closed, id)
		}
	}
	return closed, nil
}
