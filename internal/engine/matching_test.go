package engine

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liquify/liquify-engine/internal/key"
)

func TestUnstakeRejectsUnknownLSU(t *testing.T) {
	e, _, _ := newTestEngine(t)
	_, err := e.Unstake(context.Background(), Deposit{Resource: "not_an_lsu", Amount: decimal.NewFromInt(100)}, 10)
	assert.ErrorIs(t, err, ErrNotAnLSU)
}

func TestUnstakeTotalVolumeTracksNetNotGrossPayout(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.SetPlatformFee(decimal.RequireFromString("0.1"))
	mustAdd(t, e, "1000", "0", false, false, "0")

	res, err := e.Unstake(context.Background(), Deposit{Resource: testLSU, Amount: decimal.NewFromInt(100)}, 10)
	require.NoError(t, err)
	assert.True(t, res.BasePaid.Equal(decimal.NewFromInt(90)), "taker receives gross minus platform fee")
	assert.True(t, e.TotalVolume().Equal(decimal.NewFromInt(90)), "total_volume must track net payout, not gross")
	assert.True(t, e.TotalLocked().Equal(decimal.NewFromInt(900)), "total_locked still tracks gross payout removed from the book")
}

func TestUnstakeFullFillAgainstSingleOrder(t *testing.T) {
	e, _, _ := newTestEngine(t)
	// rate 1.0, discount 0 -> no discount applied: 100 LSU buys 100 base.
	id := mustAdd(t, e, "1000", "0", false, false, "0")

	res, err := e.Unstake(context.Background(), Deposit{Resource: testLSU, Amount: decimal.NewFromInt(100)}, 10)
	require.NoError(t, err)
	assert.True(t, res.LSURemain.IsZero())
	assert.True(t, res.BasePaid.Equal(decimal.NewFromInt(100)))

	body, err := e.GetLiquidityData(id)
	require.NoError(t, err)
	assert.True(t, body.Available.Equal(decimal.NewFromInt(900)))
	assert.True(t, body.Filled.Equal(decimal.NewFromInt(100)))
	assert.EqualValues(t, 1, body.FillsToCollect)
}

func TestUnstakePartialFillExhaustsOrderExactly(t *testing.T) {
	e, _, _ := newTestEngine(t)
	id := mustAdd(t, e, "100", "0", false, false, "0")

	// ask for 1000 LSU worth 1000 base but only 100 base is available:
	// the order should be fully consumed and the taker gets a remainder.
	res, err := e.Unstake(context.Background(), Deposit{Resource: testLSU, Amount: decimal.NewFromInt(1000)}, 10)
	require.NoError(t, err)
	assert.True(t, res.BasePaid.Equal(decimal.NewFromInt(100)), "pay must equal exactly what was available, no rounding loss")
	assert.True(t, res.LSURemain.Equal(decimal.NewFromInt(900)))

	body, err := e.GetLiquidityData(id)
	require.NoError(t, err)
	assert.True(t, body.Available.IsZero())

	depth, err := e.GetBookDepth(decimal.Zero)
	require.NoError(t, err)
	assert.True(t, depth.IsZero())
}

func TestUnstakeAppliesDiscount(t *testing.T) {
	e, _, _ := newTestEngine(t)
	// discount 0.01 -> 1 LSU (worth 1 base at rate 1.0) asks for 0.99 base.
	mustAdd(t, e, "1000", "0.01", false, false, "0")

	res, err := e.Unstake(context.Background(), Deposit{Resource: testLSU, Amount: decimal.NewFromInt(100)}, 10)
	require.NoError(t, err)
	assert.True(t, res.BasePaid.Equal(decimal.NewFromInt(99)))
	assert.True(t, res.LSURemain.IsZero())
}

func TestUnstakeSmallOrderSkipPolicy(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.SetSmallOrderThreshold(decimal.NewFromInt(50))

	autoUnstakeID := mustAdd(t, e, "1000", "0", true, false, "0")
	manualID := mustAdd(t, e, "1000", "0.01", false, false, "0")

	// autoUnstake order's discount (0) sorts first; remainingValue starts at
	// 10 base, below the 50 threshold, so it must be skipped even though it
	// sorts first, and the manual order (never skipped) fills instead.
	res, err := e.Unstake(context.Background(), Deposit{Resource: testLSU, Amount: decimal.NewFromInt(10)}, 10)
	require.NoError(t, err)
	assert.True(t, res.LSURemain.IsZero())

	autoBody, err := e.GetLiquidityData(autoUnstakeID)
	require.NoError(t, err)
	assert.True(t, autoBody.Available.Equal(decimal.NewFromInt(1000)), "small auto_unstake order must be skipped, not filled")

	manualBody, err := e.GetLiquidityData(manualID)
	require.NoError(t, err)
	assert.False(t, manualBody.Available.Equal(decimal.NewFromInt(1000)), "manual order is never skipped regardless of size")
}

func TestUnstakeMaxIterationsCapsVisitedOrders(t *testing.T) {
	e, _, _ := newTestEngine(t)
	mustAdd(t, e, "100", "0", false, false, "0")
	mustAdd(t, e, "100", "0.0025", false, false, "0")

	res, err := e.Unstake(context.Background(), Deposit{Resource: testLSU, Amount: decimal.NewFromInt(1000)}, 1)
	require.NoError(t, err)
	// Only the first order (100 base) should be touched; the rest of the
	// LSU comes back unmatched despite a second order existing.
	assert.True(t, res.BasePaid.Equal(decimal.NewFromInt(100)))
	assert.True(t, res.LSURemain.Equal(decimal.NewFromInt(900)))
}

func TestUnstakeOffLedgerIgnoresUnknownKeys(t *testing.T) {
	e, _, _ := newTestEngine(t)
	mustAdd(t, e, "1000", "0", false, false, "0")

	stale := key.Pack(0, 1, 999) // never inserted
	res, err := e.UnstakeOffLedger(context.Background(), Deposit{Resource: testLSU, Amount: decimal.NewFromInt(50)}, []key.Packed{stale})
	require.NoError(t, err)
	assert.True(t, res.LSURemain.Equal(decimal.NewFromInt(50)), "a stale candidate key must be skipped, not matched")
}

func TestUnstakeOffLedgerMatchesGivenKey(t *testing.T) {
	e, _, _ := newTestEngine(t)
	id := mustAdd(t, e, "1000", "0", false, false, "0")
	k, ok := e.book.FindKey(id)
	require.True(t, ok)

	res, err := e.UnstakeOffLedger(context.Background(), Deposit{Resource: testLSU, Amount: decimal.NewFromInt(50)}, []key.Packed{k})
	require.NoError(t, err)
	assert.True(t, res.LSURemain.IsZero())
	assert.True(t, res.BasePaid.Equal(decimal.NewFromInt(50)))
}

func TestUnstakeAutoUnstakeDepositsReceiptNotRawLSU(t *testing.T) {
	e, _, _ := newTestEngine(t)
	mustAdd(t, e, "1000", "0", true, false, "0")

	_, err := e.Unstake(context.Background(), Deposit{Resource: testLSU, Amount: decimal.NewFromInt(100)}, 10)
	require.NoError(t, err)

	lsuBalance, _ := e.vaults.Balance(testLSU)
	assert.True(t, lsuBalance.IsZero(), "auto_unstake fills must not park raw LSU in the vault")

	_, nftCount := e.vaults.Balance(testReceipt)
	assert.Equal(t, 1, nftCount)
}

func TestUnstakeManualFillDepositsRawLSU(t *testing.T) {
	e, _, _ := newTestEngine(t)
	mustAdd(t, e, "1000", "0", false, false, "0")

	_, err := e.Unstake(context.Background(), Deposit{Resource: testLSU, Amount: decimal.NewFromInt(100)}, 10)
	require.NoError(t, err)

	lsuBalance, _ := e.vaults.Balance(testLSU)
	assert.True(t, lsuBalance.Equal(decimal.NewFromInt(100)))
}

func TestCollectFillsDrainsAcrossBucket(t *testing.T) {
	e, _, _ := newTestEngine(t)
	id1 := mustAdd(t, e, "1000", "0", false, false, "0")
	id2 := mustAdd(t, e, "1000", "0.0025", false, false, "0")

	_, err := e.Unstake(context.Background(), Deposit{Resource: testLSU, Amount: decimal.NewFromInt(200)}, 10)
	require.NoError(t, err)

	fills, err := e.CollectFills([]uint64{id1, id2}, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, fills)

	b1, _ := e.GetLiquidityData(id1)
	b2, _ := e.GetLiquidityData(id2)
	assert.EqualValues(t, 0, b1.FillsToCollect)
	assert.EqualValues(t, 0, b2.FillsToCollect)
}

func TestCollectFillsRespectsMaxFillsAcrossIDs(t *testing.T) {
	e, _, _ := newTestEngine(t)
	id1 := mustAdd(t, e, "100", "0", false, false, "0")
	id2 := mustAdd(t, e, "100", "0.0025", false, false, "0")

	for i := 0; i < 3; i++ {
		_, err := e.Unstake(context.Background(), Deposit{Resource: testLSU, Amount: decimal.NewFromInt(3)}, 10)
		require.NoError(t, err)
	}

	fills, err := e.CollectFills([]uint64{id1, id2}, 1)
	require.NoError(t, err)
	assert.Len(t, fills, 1)
}

func TestCycleLiquidityHappyPathAfterMaturity(t *testing.T) {
	e, _, epoch := newTestEngine(t)
	id := mustAdd(t, e, "1000", "0", true, true, "50")
	ctx := context.Background()

	_, err := e.Unstake(ctx, Deposit{Resource: testLSU, Amount: decimal.NewFromInt(500)}, 10)
	require.NoError(t, err)

	*epoch += 20

	remainder, err := e.CycleLiquidity(ctx, id)
	require.NoError(t, err)
	assert.False(t, remainder.IsNegative())
}

func TestCycleLiquidityRejectsIneligibleOrder(t *testing.T) {
	e, _, _ := newTestEngine(t)
	id := mustAdd(t, e, "1000", "0", false, false, "0")
	_, err := e.CycleLiquidity(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotAutoRefillOrUnstk)
}

func TestCycleLiquidityRejectsBelowThreshold(t *testing.T) {
	e, _, _ := newTestEngine(t)
	id := mustAdd(t, e, "1000", "0", true, true, "1000000")
	_, err := e.CycleLiquidity(context.Background(), id)
	assert.ErrorIs(t, err, ErrThresholdNotMet)
}
