package fillledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liquify/liquify-engine/internal/key"
)

func TestInsertRangeIsContiguousPerOrder(t *testing.T) {
	l := New()
	l.Insert(key.Fill(1, 1), Fill{Kind: KindLSU, Resource: "lsu", Amount: decimal.NewFromInt(1)})
	l.Insert(key.Fill(1, 2), Fill{Kind: KindLSU, Resource: "lsu", Amount: decimal.NewFromInt(2)})
	l.Insert(key.Fill(2, 1), Fill{Kind: KindLSU, Resource: "lsu", Amount: decimal.NewFromInt(99)})

	assert.Equal(t, 2, l.Count(1))
	assert.Equal(t, 1, l.Count(2))
	assert.Equal(t, 3, l.Len())

	var seen []decimal.Decimal
	l.Range(1, func(_ key.Packed, f Fill) bool {
		seen = append(seen, f.Amount)
		return true
	})
	require.Len(t, seen, 2)
	assert.True(t, seen[0].Equal(decimal.NewFromInt(1)))
	assert.True(t, seen[1].Equal(decimal.NewFromInt(2)))
}

func TestRemove(t *testing.T) {
	l := New()
	k := key.Fill(1, 1)
	l.Insert(k, Fill{Kind: KindUnstakeReceipt, Resource: "r", ReceiptID: 5})
	l.Remove(k)
	assert.Equal(t, 0, l.Count(1))
}

func TestRangeStopsEarly(t *testing.T) {
	l := New()
	l.Insert(key.Fill(1, 1), Fill{Kind: KindLSU})
	l.Insert(key.Fill(1, 2), Fill{Kind: KindLSU})
	l.Insert(key.Fill(1, 3), Fill{Kind: KindLSU})

	n := 0
	l.Range(1, func(key.Packed, Fill) bool {
		n++
		return n < 2
	})
	assert.Equal(t, 2, n)
}
