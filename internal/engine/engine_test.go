package engine

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liquify/liquify-engine/internal/validator"
)

const (
	testBaseResource = "resource_xrd"
	testLSU          = "resource_lsu1"
	testReceipt      = "resource_unstake1"
)

func newTestEngine(t *testing.T) (*Engine, *validator.SimValidator, *uint32) {
	t.Helper()
	epoch := uint32(1)
	currentEpoch := func() uint32 { return epoch }

	sim := validator.NewSimValidator("validator1", testLSU, testReceipt, decimal.RequireFromString("1.0"), 10, currentEpoch)
	reg := validator.NewRegistry(sim)
	reg.RegisterReceiptResource(testReceipt, sim)

	params := DefaultParams()
	params.MinLiquidity = decimal.NewFromInt(100)
	params.MinRefillThreshold = decimal.NewFromInt(50)

	return New(testBaseResource, reg, currentEpoch, params), sim, &epoch
}

func mustAdd(t *testing.T, e *Engine, amount, discount string, autoUnstake, autoRefill bool, refillThreshold string) uint64 {
	t.Helper()
	id, err := e.AddLiquidity(
		Deposit{Resource: testBaseResource, Amount: decimal.RequireFromString(amount)},
		decimal.RequireFromString(discount),
		autoUnstake, autoRefill,
		decimal.RequireFromString(refillThreshold),
	)
	require.NoError(t, err)
	return id
}

func TestAddLiquidityRejectsWrongResource(t *testing.T) {
	e, _, _ := newTestEngine(t)
	_, err := e.AddLiquidity(Deposit{Resource: "not_xrd", Amount: decimal.NewFromInt(1000)}, decimal.Zero, false, false, decimal.Zero)
	assert.ErrorIs(t, err, ErrWrongResource)
}

func TestAddLiquidityRejectsBelowMin(t *testing.T) {
	e, _, _ := newTestEngine(t)
	_, err := e.AddLiquidity(Deposit{Resource: testBaseResource, Amount: decimal.NewFromInt(1)}, decimal.Zero, false, false, decimal.Zero)
	assert.ErrorIs(t, err, ErrBelowMinLiquidity)
}

func TestAddLiquidityRejectsOffGridDiscount(t *testing.T) {
	e, _, _ := newTestEngine(t)
	_, err := e.AddLiquidity(Deposit{Resource: testBaseResource, Amount: decimal.NewFromInt(1000)}, decimal.RequireFromString("0.0001"), false, false, decimal.Zero)
	assert.ErrorIs(t, err, ErrDiscountNotOnGrid)
}

func TestAddLiquidityAutoRefillRequiresAutoUnstake(t *testing.T) {
	e, _, _ := newTestEngine(t)
	_, err := e.AddLiquidity(Deposit{Resource: testBaseResource, Amount: decimal.NewFromInt(1000)}, decimal.Zero, false, true, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, ErrAutoRefillNeedsUnstk)
}

func TestAddLiquidityAutoRefillBelowMinThreshold(t *testing.T) {
	e, _, _ := newTestEngine(t)
	_, err := e.AddLiquidity(Deposit{Resource: testBaseResource, Amount: decimal.NewFromInt(1000)}, decimal.Zero, true, true, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrBelowMinRefillThresh)
}

func TestAddLiquidityHappyPath(t *testing.T) {
	e, _, _ := newTestEngine(t)
	id := mustAdd(t, e, "1000", "0.01", true, true, "100")

	body, err := e.GetLiquidityData(id)
	require.NoError(t, err)
	assert.True(t, body.Available.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, 1, e.GetAutomationIndexSize())

	depth, err := e.GetBookDepth(decimal.RequireFromString("0.01"))
	require.NoError(t, err)
	assert.True(t, depth.Equal(decimal.NewFromInt(1000)))

	assert.True(t, e.TotalLocked().Equal(decimal.NewFromInt(1000)))
}

func TestIncreaseLiquidityRekeysAtNewEpoch(t *testing.T) {
	e, _, epoch := newTestEngine(t)
	id := mustAdd(t, e, "1000", "0.01", false, false, "0")

	*epoch = 2
	err := e.IncreaseLiquidity(id, Deposit{Resource: testBaseResource, Amount: decimal.NewFromInt(500)})
	require.NoError(t, err)

	body, err := e.GetLiquidityData(id)
	require.NoError(t, err)
	assert.True(t, body.Available.Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, uint32(2), body.LastAddedEpoch)

	depth, err := e.GetBookDepth(decimal.RequireFromString("0.01"))
	require.NoError(t, err)
	assert.True(t, depth.Equal(decimal.NewFromInt(1500)))
}

func TestIncreaseLiquidityUnknownOrder(t *testing.T) {
	e, _, _ := newTestEngine(t)
	err := e.IncreaseLiquidity(999, Deposit{Resource: testBaseResource, Amount: decimal.NewFromInt(500)})
	assert.ErrorIs(t, err, ErrUnknownOrder)
}

func TestUpdateAutomationTracksIndex(t *testing.T) {
	e, _, _ := newTestEngine(t)
	id := mustAdd(t, e, "1000", "0.01", true, false, "0")

	err := e.UpdateAutomation(id, true, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.Equal(t, 1, e.GetAutomationIndexSize())

	err = e.UpdateAutomation(id, false, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, 0, e.GetAutomationIndexSize())
}

func TestUpdateAutomationRequiresAutoUnstake(t *testing.T) {
	e, _, _ := newTestEngine(t)
	id := mustAdd(t, e, "1000", "0.01", false, false, "0")
	err := e.UpdateAutomation(id, true, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, ErrAutoRefillNeedsUnstk)
}

func TestRemoveLiquidityReturnsTotalAndZeroesBody(t *testing.T) {
	e, _, _ := newTestEngine(t)
	id1 := mustAdd(t, e, "1000", "0.01", false, false, "0")
	id2 := mustAdd(t, e, "2000", "0.02", false, false, "0")

	total, err := e.RemoveLiquidity([]uint64{id1, id2})
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(3000)))

	body, err := e.GetLiquidityData(id1)
	require.NoError(t, err)
	assert.True(t, body.Available.IsZero())

	assert.True(t, e.TotalLocked().IsZero())
}

func TestRemoveLiquidityEmptyBucket(t *testing.T) {
	e, _, _ := newTestEngine(t)
	_, err := e.RemoveLiquidity(nil)
	assert.ErrorIs(t, err, ErrEmptyBucket)
}

func TestRemoveLiquidityAlreadyZeroIsNoop(t *testing.T) {
	e, _, _ := newTestEngine(t)
	id := mustAdd(t, e, "1000", "0.01", false, false, "0")
	_, err := e.RemoveLiquidity([]uint64{id})
	require.NoError(t, err)

	total, err := e.RemoveLiquidity([]uint64{id})
	require.NoError(t, err)
	assert.True(t, total.IsZero(), "removing an already-drained order a second time is a benign no-op")
}

func TestRemoveLiquidityUnknownOrder(t *testing.T) {
	e, _, _ := newTestEngine(t)
	_, err := e.RemoveLiquidity([]uint64{999})
	assert.ErrorIs(t, err, ErrUnknownOrder)
}

func TestBurnClosedReceiptsSkipsUndrained(t *testing.T) {
	e, _, _ := newTestEngine(t)
	id1 := mustAdd(t, e, "1000", "0.01", false, false, "0")
	id2 := mustAdd(t, e, "1000", "0.02", false, false, "0")
	_, err := e.RemoveLiquidity([]uint64{id1})
	require.NoError(t, err)

	closed, err := e.BurnClosedReceipts([]uint64{id1, id2})
	require.NoError(t, err)
	assert.Equal(t, []uint64{id1}, closed)
}

func TestGetClaimableXRDSumsOnlyMaturedUnstakeFills(t *testing.T) {
	e, _, epoch := newTestEngine(t)
	_ = mustAdd(t, e, "1000", "0", true, false, "0")

	ctx := context.Background()
	res, err := e.Unstake(ctx, Deposit{Resource: testLSU, Amount: decimal.NewFromInt(500)}, 10)
	require.NoError(t, err)
	require.True(t, res.LSURemain.IsZero())

	claimable, err := e.GetClaimableXRD(ctx, findOnlyOrder(t, e))
	require.NoError(t, err)
	assert.True(t, claimable.IsZero(), "receipt has not matured yet")

	*epoch += 10
	claimable, err = e.GetClaimableXRD(ctx, findOnlyOrder(t, e))
	require.NoError(t, err)
	assert.False(t, claimable.IsZero())
}

// findOnlyOrder assumes exactly one order was ever opened in e and returns
// its id (order ids are minted from 1).
func findOnlyOrder(t *testing.T, e *Engine) uint64 {
	t.Helper()
	if e.store.Exists(1) {
		return 1
	}
	t.Fatal("expected order id 1 to exist")
	return 0
}
