package validator

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnstakeThenClaimAfterMaturity(t *testing.T) {
	epoch := uint32(1)
	currentEpoch := func() uint32 { return epoch }

	sim := NewSimValidator("v1", "lsu1", "receipt1", decimal.RequireFromString("1.1"), 5, currentEpoch)
	ctx := context.Background()

	receipt, err := sim.Unstake(ctx, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, receipt.ClaimAmount.Equal(decimal.RequireFromString("110")))
	assert.Equal(t, uint32(6), receipt.ClaimEpoch)

	_, err = sim.ClaimXRD(ctx, receipt.ID)
	assert.Error(t, err, "should not be claimable before maturity")

	epoch = 6
	amt, err := sim.ClaimXRD(ctx, receipt.ID)
	require.NoError(t, err)
	assert.True(t, amt.Equal(decimal.RequireFromString("110")))

	_, err = sim.ClaimXRD(ctx, receipt.ID)
	assert.ErrorIs(t, err, ErrNotReceipt, "receipt is consumed on claim")
}

func TestReceiptMetadataDoesNotConsume(t *testing.T) {
	epoch := uint32(1)
	sim := NewSimValidator("v1", "lsu1", "receipt1", decimal.RequireFromString("1.0"), 1, func() uint32 { return epoch })
	ctx := context.Background()

	receipt, err := sim.Unstake(ctx, decimal.NewFromInt(50))
	require.NoError(t, err)

	meta, err := sim.ReceiptMetadata(ctx, receipt.ID)
	require.NoError(t, err)
	assert.True(t, meta.ClaimAmount.Equal(decimal.NewFromInt(50)))

	_, err = sim.ReceiptMetadata(ctx, receipt.ID)
	assert.NoError(t, err, "metadata lookup must not consume the receipt")
}

func TestRegistryResolvesByLSUAndReceipt(t *testing.T) {
	sim := NewSimValidator("v1", "lsu1", "receipt1", decimal.RequireFromString("1.0"), 1, func() uint32 { return 1 })
	reg := NewRegistry(sim)
	reg.RegisterReceiptResource("receipt1", sim)

	got, err := reg.ByLSU("lsu1")
	require.NoError(t, err)
	assert.Equal(t, sim, got)

	got, err = reg.ByReceiptResource("receipt1")
	require.NoError(t, err)
	assert.Equal(t, sim, got)

	_, err = reg.ByLSU("unknown")
	assert.ErrorIs(t, err, ErrNotLSU)

	_, err = reg.ByReceiptResource("unknown")
	assert.ErrorIs(t, err, ErrNotReceipt)
}
