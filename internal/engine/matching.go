package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/liquify/liquify-engine/internal/fillledger"
	"github.com/liquify/liquify-engine/internal/key"
	"github.com/liquify/liquify-engine/internal/money"
	"github.com/liquify/liquify-engine/internal/store"
	"github.com/liquify/liquify-engine/internal/validator"
)

// MatchResult is what a match call hands back to the taker: the base
// tokens received and the LSU remainder that found no counterparty.
type MatchResult struct {
	BasePaid  money.Amount
	LSURemain money.Amount
}

// pendingUnstakeSegment is a batched auto_unstake LSU amount awaiting a
// single V.Unstake call, keyed by the fill-ledger slot reserved for its
// eventual receipt (spec.md §9 "auto-unstake batching").
type pendingUnstakeSegment struct {
	fillKey key.Packed
	amount  money.Amount
}

// pendingLSUSegment is an auto_unstake=false LSU fill awaiting deposit into
// the vault bank once the walk's non-vault updates have been committed.
type pendingLSUSegment struct {
	fillKey  key.Packed
	resource string
	amount   money.Amount
}

// Unstake walks the book ascending from the lowest key, matching lsu
// against standing orders up to maxIterations visits (a skipped order still
// costs one), per spec.md §4.6.
func (e *Engine) Unstake(ctx context.Context, lsu Deposit, maxIterations uint8) (MatchResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	v, err := e.validators.ByLSU(lsu.Resource)
	if err != nil {
		return MatchResult{}, fmt.Errorf("%w: %v", ErrNotAnLSU, err)
	}

	var keys []key.Packed
	e.book.Visit(func(k key.Packed, _ uint64) bool {
		if uint8(len(keys)) >= maxIterations {
			return false
		}
		keys = append(keys, k)
		return true
	})

	return e.processUnstake(ctx, v, lsu, keys, true)
}

// UnstakeOffLedger matches lsu against an externally supplied candidate key
// list, consumed in order; unknown keys are silently ignored and do not
// consume iteration budget (spec.md §4.6).
func (e *Engine) UnstakeOffLedger(ctx context.Context, lsu Deposit, keys []key.Packed) (MatchResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	v, err := e.validators.ByLSU(lsu.Resource)
	if err != nil {
		return MatchResult{}, fmt.Errorf("%w: %v", ErrNotAnLSU, err)
	}

	return e.processUnstake(ctx, v, lsu, keys, false)
}

// processUnstake is the algorithm shared by Unstake and UnstakeOffLedger
// (spec.md §4.6 "Common algorithm"). onBookKeys indicates the keys came
// from book iteration (always present) vs. an off-ledger list (may be
// stale); the distinction only affects logging, not behavior, since both
// modes already tolerate an absent key by skipping it.
func (e *Engine) processUnstake(ctx context.Context, v validator.Validator, lsu Deposit, keys []key.Packed, onBookKeys bool) (MatchResult, error) {
	rate, err := v.RedemptionValue(ctx)
	if err != nil {
		return MatchResult{}, err
	}

	remainingLSU := lsu.Amount
	remainingValue := remainingLSU.Mul(rate)
	basePaid := money.Zero

	type bodyUpdate struct {
		id   uint64
		body store.Body
	}
	type bookRemoval struct {
		id uint64
		k  key.Packed
	}
	var bookRemovals []bookRemoval
	var bodyUpdates []bodyUpdate
	bucketDeltas := make(map[uint16]money.Amount)
	var lsuSegments []pendingLSUSegment
	var unstakeSegments []pendingUnstakeSegment

	for _, k := range keys {
		if remainingLSU.IsZero() {
			break
		}

		id, ok := e.book.Get(k)
		if !ok {
			continue
		}
		header, ok := e.store.Header(id)
		if !ok {
			continue
		}
		body, ok := e.store.Body(id)
		if !ok {
			continue
		}
		avail := body.Available

		if header.AutoUnstake && remainingValue.LessThan(e.params.SmallOrderThreshold) {
			continue
		}

		vAsk := remainingValue.Mul(money.One.Sub(header.Discount))

		var takeLSU, pay, newAvail money.Amount
		if vAsk.LessThanOrEqual(avail) {
			takeLSU = remainingLSU
			pay = vAsk
			newAvail = avail.Sub(pay)
		} else {
			ratio := avail.Div(vAsk)
			takeLSU = remainingLSU.Mul(ratio)
			pay = avail
			newAvail = money.Zero
		}

		remainingLSU = remainingLSU.Sub(takeLSU)
		remainingValue = remainingLSU.Mul(rate)
		basePaid = basePaid.Add(pay)

		if newAvail.IsZero() {
			bookRemovals = append(bookRemovals, bookRemoval{id: id, k: k})
		}
		body.Filled = body.Filled.Add(pay)
		body.Available = newAvail
		body.FillsToCollect++
		bodyUpdates = append(bodyUpdates, bodyUpdate{id: id, body: body})

		slot, serr := key.Slot(header.Discount)
		if serr != nil {
			return MatchResult{}, serr
		}
		bucketDeltas[slot] = bucketDeltas[slot].Sub(pay)

		fillKey := key.Fill(id, e.nextFillArrival())
		if header.AutoUnstake {
			unstakeSegments = append(unstakeSegments, pendingUnstakeSegment{fillKey: fillKey, amount: takeLSU})
		} else {
			lsuSegments = append(lsuSegments, pendingLSUSegment{fillKey: fillKey, resource: lsu.Resource, amount: takeLSU})
		}
	}

	// Commit the non-vault staged updates first (spec.md §4.6 step 4).
	for _, r := range bookRemovals {
		e.book.Remove(r.k)
		delete(e.idToKey, r.id)
	}
	for _, u := range bodyUpdates {
		e.store.SetBody(u.id, u.body)
	}
	for slot, delta := range bucketDeltas {
		e.bucketIndex[slot] = e.bucketIndex[slot].Add(delta)
	}

	for _, seg := range lsuSegments {
		e.vaults.DepositFungible(seg.resource, seg.amount)
		e.fills.Insert(seg.fillKey, fillledger.Fill{Kind: fillledger.KindLSU, Resource: seg.resource, Amount: seg.amount})
	}

	if len(unstakeSegments) > 0 {
		for _, seg := range unstakeSegments {
			receipt, uerr := v.Unstake(ctx, seg.amount)
			if uerr != nil {
				return MatchResult{}, fmt.Errorf("batched unstake: %w", uerr)
			}
			e.vaults.DepositNFT(receipt.Resource, receipt.ID)
			e.fills.Insert(seg.fillKey, fillledger.Fill{Kind: fillledger.KindUnstakeReceipt, Resource: receipt.Resource, ReceiptID: receipt.ID})
		}
	}

	e.totalLocked = e.totalLocked.Sub(basePaid)
	e.baseVault = e.baseVault.Sub(basePaid)

	fee := basePaid.Mul(e.params.PlatformFee)
	e.feeVault = e.feeVault.Add(fee)
	netPaid := basePaid.Sub(fee)
	e.totalVolume = e.totalVolume.Add(netPaid)

	log.Info().
		Str("lsu_in", lsu.Amount.String()).
		Str("lsu_remaining", remainingLSU.String()).
		Str("base_out", netPaid.String()).
		Bool("on_book_keys", onBookKeys).
		Msg("unstake matched")

	return MatchResult{BasePaid: netPaid, LSURemain: remainingLSU}, nil
}
