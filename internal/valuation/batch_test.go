package valuation

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeBatch_PartialFailure(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	reqs := []Request{
		{Plant: "Carrot", Variant: "Normal", Weight: 0.24, Quantity: 2},                              // 18 * 2
		{Plant: "Durian", Variant: "Normal", Weight: 1, Quantity: 5},                                 // unknown plant
		{Plant: "Carrot", Variant: "Gold", Mutations: []string{"Plasma"}, Weight: 0.24, Quantity: 1}, // 18*20*5
		{Plant: "Carrot", Variant: "Normal", Weight: -1, Quantity: 1},                                // invalid weight
	}

	out := e.ComputeBatch(context.Background(), reqs)
	require.Len(t, out.Items, len(reqs))

	for i, it := range out.Items {
		assert.Equal(t, i, it.Index)
	}

	require.True(t, out.Items[0].OK())
	assert.Equal(t, int64(36), out.Items[0].Result.TotalValue)

	assert.False(t, out.Items[1].OK())
	assert.ErrorIs(t, out.Items[1].Err, ErrNotFound)
	assert.Contains(t, out.Items[1].Error, "Durian")

	require.True(t, out.Items[2].OK())
	assert.Equal(t, int64(1800), out.Items[2].Result.TotalValue)

	assert.ErrorIs(t, out.Items[3].Err, ErrInvalidArgument)

	assert.Equal(t, int64(36+1800), out.TotalValue)
	assert.Equal(t, int64(3), out.TotalUnits)
	assert.InDelta(t, float64(1836)/3, out.AveragePerUnit, 1e-9)
	assert.Equal(t, 2, out.Succeeded)
	assert.Equal(t, 2, out.Failed)
}

func TestComputeBatch_Empty(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	out := e.ComputeBatch(context.Background(), nil)
	assert.Empty(t, out.Items)
	assert.Zero(t, out.TotalValue)
	assert.Zero(t, out.TotalUnits)
	assert.Zero(t, out.AveragePerUnit)

	out = e.ComputeBatch(context.Background(), []Request{{Plant: "Nope", Variant: "Normal", Weight: 1, Quantity: 1}})
	assert.Equal(t, 1, out.Failed)
	assert.Zero(t, out.AveragePerUnit, "no succeeding units must not divide by zero")
}

func TestComputeBatch_OrderMatchesInput(t *testing.T) {
	t.Parallel()

	for _, limit := range []int{1, 3, 64} {
		t.Run(fmt.Sprintf("limit %d", limit), func(t *testing.T) {
			e := New(newTestEngine(t).catalog, WithConcurrency(limit))

			reqs := make([]Request, 50)
			for i := range reqs {
				reqs[i] = Request{Plant: "Carrot", Variant: "Normal", Weight: 0.24, Quantity: i + 1}
			}

			out := e.ComputeBatch(context.Background(), reqs)
			var sum int64
			for i, it := range out.Items {
				require.True(t, it.OK())
				assert.Equal(t, i+1, it.Result.Quantity)
				assert.Equal(t, int64(18*(i+1)), it.Result.TotalValue)
				sum += it.Result.TotalValue
			}
			assert.Equal(t, sum, out.TotalValue)
			assert.Equal(t, int64(50*51/2), out.TotalUnits)
		})
	}
}

func TestComputeBatch_CancelledContext(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := e.ComputeBatch(ctx, []Request{
		{Plant: "Carrot", Variant: "Normal", Weight: 0.24, Quantity: 1},
		{Plant: "Carrot", Variant: "Normal", Weight: 0.24, Quantity: 1},
	})
	assert.Equal(t, 2, out.Failed)
	for _, it := range out.Items {
		assert.ErrorIs(t, it.Err, context.Canceled)
	}
	assert.Zero(t, out.TotalValue)
}

func TestComputeBatch_CappedItemsAggregateUnclamped(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	capped := Request{Plant: "Giant", Variant: "Rainbow", Mutations: []string{"Cosmic"}, Weight: 100, Quantity: 2}
	out := e.ComputeBatch(context.Background(), []Request{capped, capped})

	require.Equal(t, 2, out.Succeeded)
	assert.True(t, out.Items[0].Result.Capped)
	assert.Equal(t, 4*MaxValue, out.TotalValue)
	assert.Equal(t, float64(MaxValue), out.AveragePerUnit)
}

func TestComputeBatch_QuantityCeilingIsPerItem(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, WithMaxQuantity(5))

	out := e.ComputeBatch(context.Background(), []Request{
		{Plant: "Carrot", Variant: "Normal", Weight: 0.24, Quantity: 2},
		{Plant: "Carrot", Variant: "Normal", Weight: 0.24, Quantity: 6},
	})
	require.Len(t, out.Items, 2)

	require.True(t, out.Items[0].OK())
	assert.ErrorIs(t, out.Items[1].Err, ErrInvalidArgument)
	assert.Contains(t, out.Items[1].Error, "at most 5")
	assert.Equal(t, 1, out.Succeeded)
	assert.Equal(t, 1, out.Failed)
	assert.Equal(t, int64(36), out.TotalValue)
}
