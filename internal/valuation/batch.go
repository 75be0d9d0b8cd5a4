package valuation

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"
)

// BatchItem is the outcome of one request inside a batch, at the same
// position as its request.
type BatchItem struct {
	Index  int     `json:"index"`
	Result *Result `json:"result,omitempty"`
	Err    error   `json:"-"`
	Error  string  `json:"error,omitempty"`
}

// OK reports whether the item was valued successfully.
func (i BatchItem) OK() bool {
	return i.Result != nil
}

// BatchResult aggregates the succeeding items of a batch.
type BatchResult struct {
	Items          []BatchItem `json:"items"`
	TotalValue     int64       `json:"total_value"`
	TotalUnits     int64       `json:"total_units"`
	AveragePerUnit float64     `json:"average_per_unit"`
	Succeeded      int         `json:"succeeded"`
	Failed         int         `json:"failed"`
}

// ComputeBatch values every request independently. A failing item is
// recorded in its slot and never stops the others. Items not yet started
// when ctx is cancelled fail with the context error.
func (e *Engine) ComputeBatch(ctx context.Context, reqs []Request) BatchResult {
	items := make([]BatchItem, len(reqs))

	var g errgroup.Group
	g.SetLimit(e.concurrency)

	for i, req := range reqs {
		g.Go(func() error {
			items[i].Index = i
			if err := ctx.Err(); err != nil {
				items[i].Err = err
				return nil
			}
			res, err := e.Compute(req)
			if err != nil {
				items[i].Err = err
				return nil
			}
			items[i].Result = &res
			return nil
		})
	}
	_ = g.Wait()

	return aggregate(items)
}

// aggregate sums the succeeding items in input order.
func aggregate(items []BatchItem) BatchResult {
	out := BatchResult{Items: items}

	for i := range items {
		it := &items[i]
		if it.Err == nil && it.Result != nil {
			if out.TotalValue > math.MaxInt64-it.Result.TotalValue {
				it.Result = nil
				it.Err = invalid("batch", "total value overflows at item %d", i)
			} else {
				out.TotalValue += it.Result.TotalValue
				out.TotalUnits += int64(it.Result.Quantity)
			}
		}
		if it.Err != nil {
			it.Error = it.Err.Error()
			out.Failed++
			continue
		}
		out.Succeeded++
	}

	if out.TotalUnits > 0 {
		out.AveragePerUnit = float64(out.TotalValue) / float64(out.TotalUnits)
	}
	return out
}
