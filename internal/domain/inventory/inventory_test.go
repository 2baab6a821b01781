package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeduct(t *testing.T) {
	item, err := NewItem("1", 10, 3)
	require.NoError(t, err)

	shortfall, err := item.Deduct(4)
	require.NoError(t, err)
	assert.Zero(t, shortfall)
	assert.Equal(t, 6, item.Quantity)
}

func TestDeductClampsAtZero(t *testing.T) {
	item, err := NewItem("1", 2, 3)
	require.NoError(t, err)

	shortfall, err := item.Deduct(5)
	require.NoError(t, err)
	assert.Equal(t, 3, shortfall)
	assert.Zero(t, item.Quantity)
}

func TestDeductRejectsNonPositive(t *testing.T) {
	item, err := NewItem("1", 2, 0)
	require.NoError(t, err)

	_, err = item.Deduct(0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, 2, item.Quantity)
}

func TestLowStock(t *testing.T) {
	item, err := NewItem("1", 4, 3)
	require.NoError(t, err)
	assert.False(t, item.LowStock())

	_, err = item.Deduct(1)
	require.NoError(t, err)
	assert.True(t, item.LowStock())
}

func TestRestock(t *testing.T) {
	item, err := NewItem("1", 0, 3)
	require.NoError(t, err)

	assert.ErrorIs(t, item.Restock(0), ErrInvalidQuantity)
	require.NoError(t, item.Restock(25))
	assert.Equal(t, 25, item.Quantity)
}
