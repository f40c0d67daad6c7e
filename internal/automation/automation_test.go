package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddContainsLen(t *testing.T) {
	idx := New()
	idx.Add(1)
	idx.Add(2)
	idx.Add(3)

	assert.True(t, idx.Contains(1))
	assert.True(t, idx.Contains(2))
	assert.True(t, idx.Contains(3))
	assert.Equal(t, 3, idx.Len())
}

func TestAddIsIdempotent(t *testing.T) {
	idx := New()
	idx.Add(1)
	idx.Add(1)
	assert.Equal(t, 1, idx.Len())
}

func TestRemoveSwapsWithLastKeepingDenseRange(t *testing.T) {
	idx := New()
	idx.Add(1)
	idx.Add(2)
	idx.Add(3)

	idx.Remove(1) // frees slot 1; slot 3 (order 3) swaps in

	assert.False(t, idx.Contains(1))
	assert.True(t, idx.Contains(2))
	assert.True(t, idx.Contains(3))
	assert.Equal(t, 2, idx.Len())

	var seen []uint64
	idx.Each(func(orderID uint64) { seen = append(seen, orderID) })
	assert.ElementsMatch(t, []uint64{2, 3}, seen)
}

func TestRemoveLastElement(t *testing.T) {
	idx := New()
	idx.Add(1)
	idx.Remove(1)
	assert.Equal(t, 0, idx.Len())
	assert.False(t, idx.Contains(1))
}

func TestRemoveUnknownIsNoop(t *testing.T) {
	idx := New()
	idx.Add(1)
	idx.Remove(999)
	assert.Equal(t, 1, idx.Len())
}

func TestReAddAfterRemove(t *testing.T) {
	idx := New()
	idx.Add(1)
	idx.Remove(1)
	idx.Add(2)
	assert.True(t, idx.Contains(2))
	assert.Equal(t, 1, idx.Len())
}
