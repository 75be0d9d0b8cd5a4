/*
Package valuation
File: engine.go
Description:
    The valuation engine turns a plant, a variant, a set of mutations and a
    weight into an in-game sale value.

    Formula:
        mutationMulti = 1 + sum(mutation.ValueMulti - 1)   (additive stacking)
        raw           = BasePrice * (weight / BaseWeight) * variant * mutationMulti
        final         = round-half-up(raw), clamped to MaxValue
        total         = final * quantity                    (not clamped)

    The engine holds no mutable state. Every method is safe to call from any
    number of goroutines without coordination.
*/

package valuation

import (
	"math"

	"github.com/everforgeworks/growcalc/internal/catalog"
)

// MaxValue is the largest per-unit value the game economy can represent.
const MaxValue int64 = 1_000_000_000_000

// DefaultConcurrency bounds how many batch items are computed at once.
const DefaultConcurrency = 8

// Catalog is the read-only lookup surface the engine needs.
type Catalog interface {
	Plant(name string) (catalog.Plant, error)
	Variant(name string) (catalog.Variant, error)
	Mutation(name string) (catalog.Mutation, error)
}

// Request is one valuation query.
type Request struct {
	Plant     string   `json:"plant_name"`
	Variant   string   `json:"variant"`
	Mutations []string `json:"mutations"`
	Weight    float64  `json:"weight"`       // kg, must be finite and > 0
	Quantity  int      `json:"plant_amount"` // must be >= 1
}

// Result is the full breakdown of a successful valuation.
type Result struct {
	Plant     string   `json:"plant_name"`
	Variant   string   `json:"variant"`
	Weight    float64  `json:"weight"`
	Mutations []string `json:"mutations"` // deduplicated, first-seen order
	Quantity  int      `json:"plant_amount"`

	MutationMultiplier float64 `json:"mutation_multiplier"`
	BaseValue          float64 `json:"base_value"`   // BasePrice * variant * mutation multiplier
	WeightRatio        float64 `json:"weight_ratio"` // weight / BaseWeight
	FinalValue         int64   `json:"final_value"`  // per unit, 0..MaxValue
	TotalValue         int64   `json:"total_value"`  // FinalValue * Quantity
	Capped             bool    `json:"capped"`       // raw value exceeded MaxValue
}

// Multiplier is the outcome of aggregating a mutation set on its own.
type Multiplier struct {
	Mutations []string `json:"mutations"`
	Value     float64  `json:"multiplier"`
	Count     int      `json:"total_mutations"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithConcurrency sets the batch fan-out limit. Values below 1 mean sequential.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.concurrency = n
	}
}

// WithMaxQuantity rejects requests whose quantity exceeds n. Zero or a
// negative n leaves quantity unbounded.
func WithMaxQuantity(n int) Option {
	return func(e *Engine) {
		if n < 0 {
			n = 0
		}
		e.maxQuantity = n
	}
}

// Engine computes plant values against an injected catalog.
type Engine struct {
	catalog     Catalog
	concurrency int
	maxQuantity int // 0 = unbounded
}

// New returns an Engine reading reference data from cat.
func New(cat Catalog, opts ...Option) *Engine {
	e := &Engine{catalog: cat, concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compute values a single request. It returns either a complete Result or an
// error matching ErrInvalidArgument or ErrNotFound, never both.
func (e *Engine) Compute(req Request) (Result, error) {
	// 1. Validate numeric input before touching the catalog.
	if math.IsNaN(req.Weight) || math.IsInf(req.Weight, 0) {
		return Result{}, invalid("weight", "must be a finite number")
	}
	if req.Weight <= 0 {
		return Result{}, invalid("weight", "must be greater than zero, got %v", req.Weight)
	}
	if req.Quantity < 1 {
		return Result{}, invalid("quantity", "must be at least 1, got %d", req.Quantity)
	}
	if e.maxQuantity > 0 && req.Quantity > e.maxQuantity {
		return Result{}, invalid("quantity", "must be at most %d, got %d", e.maxQuantity, req.Quantity)
	}

	// 2. Resolve reference records.
	plant, err := e.catalog.Plant(req.Plant)
	if err != nil {
		return Result{}, err
	}
	variant, err := e.catalog.Variant(req.Variant)
	if err != nil {
		return Result{}, err
	}

	// 3. Aggregate mutations (dedup + additive stacking).
	mult, err := e.MutationMultiplier(req.Mutations)
	if err != nil {
		return Result{}, err
	}

	// 4. Raw value.
	ratio := req.Weight / plant.BaseWeight
	raw := plant.BasePrice * ratio * variant.Multiplier * mult.Value
	if math.IsNaN(raw) || raw < 0 {
		return Result{}, invalid("weight", "produces an unrepresentable value")
	}

	// 5. Round half up, then clamp to the economy ceiling.
	final, capped := clamp(math.Round(raw))

	// 6. Total for the whole stack.
	if final > 0 && int64(req.Quantity) > math.MaxInt64/final {
		return Result{}, invalid("quantity", "total value overflows for %d units", req.Quantity)
	}

	return Result{
		Plant:              plant.Name,
		Variant:            variant.Name,
		Weight:             req.Weight,
		Mutations:          mult.Mutations,
		Quantity:           req.Quantity,
		MutationMultiplier: mult.Value,
		BaseValue:          plant.BasePrice * variant.Multiplier * mult.Value,
		WeightRatio:        ratio,
		FinalValue:         final,
		TotalValue:         final * int64(req.Quantity),
		Capped:             capped,
	}, nil
}

// MutationMultiplier aggregates a mutation set without a plant. Duplicate
// names count once; an unknown name fails the whole call with ErrNotFound.
// Compute uses this same function so both paths share one formula.
func (e *Engine) MutationMultiplier(names []string) (Multiplier, error) {
	unique := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	total := 1.0

	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		m, err := e.catalog.Mutation(name)
		if err != nil {
			return Multiplier{}, err
		}
		seen[name] = struct{}{}
		unique = append(unique, m.Name)
		total += m.ValueMulti - 1
	}

	return Multiplier{Mutations: unique, Value: total, Count: len(unique)}, nil
}

// clamp converts a rounded, non-negative value to int64 and applies MaxValue.
func clamp(rounded float64) (int64, bool) {
	if rounded > float64(MaxValue) {
		return MaxValue, true
	}
	return int64(rounded), false
}
