package vault

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFungibleDepositWithdraw(t *testing.T) {
	b := NewBank()
	b.DepositFungible("lsu1", decimal.NewFromInt(100))

	fungible, nfts := b.Balance("lsu1")
	assert.True(t, fungible.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 0, nfts)

	require.NoError(t, b.WithdrawFungible("lsu1", decimal.NewFromInt(40)))
	fungible, _ = b.Balance("lsu1")
	assert.True(t, fungible.Equal(decimal.NewFromInt(60)))
}

func TestWithdrawFungibleInsufficientBalance(t *testing.T) {
	b := NewBank()
	b.DepositFungible("lsu1", decimal.NewFromInt(10))
	err := b.WithdrawFungible("lsu1", decimal.NewFromInt(20))
	assert.Error(t, err)
}

func TestWithdrawFungibleUnknownResource(t *testing.T) {
	b := NewBank()
	err := b.WithdrawFungible("nope", decimal.NewFromInt(1))
	assert.Error(t, err)
}

func TestNFTDepositWithdraw(t *testing.T) {
	b := NewBank()
	b.DepositNFT("receipt1", 7)

	v, ok := b.Get("receipt1")
	require.True(t, ok)
	assert.True(t, v.Holds(7))
	assert.Equal(t, 1, v.NFTCount())

	require.NoError(t, b.WithdrawNFT("receipt1", 7))
	assert.False(t, v.Holds(7))

	err := b.WithdrawNFT("receipt1", 7)
	assert.Error(t, err)
}

func TestWithdrawNFTUnknownResource(t *testing.T) {
	b := NewBank()
	err := b.WithdrawNFT("nope", 1)
	assert.Error(t, err)
}

func TestGetUnknownResource(t *testing.T) {
	b := NewBank()
	_, ok := b.Get("nope")
	assert.False(t, ok)
}
