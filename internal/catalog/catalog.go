/*
Package catalog
File: catalog.go
Description:
    The Plant Catalog: an immutable lookup table over plants, variants and
    mutations. A Catalog is built once (see loader.go) and then shared by
    reference between every request; nothing here mutates after New returns,
    so no locking is needed.

    Lookups are exact-match. Trimming, URL-decoding and case handling belong
    to the caller.
*/

package catalog

import (
	"errors"
	"fmt"
	"math"
)

// NormalVariant is the variant whose multiplier must be exactly 1.
const NormalVariant = "Normal"

// Default weight band factors applied to a plant's base weight.
const (
	DefaultWeightLowFactor  = 0.7
	DefaultWeightHighFactor = 1.6
)

// ErrNotFound is matched by every *NotFoundError.
var ErrNotFound = errors.New("not found")

// Kind names the record family a lookup was made against.
type Kind string

const (
	KindPlant    Kind = "plant"
	KindVariant  Kind = "variant"
	KindMutation Kind = "mutation"
)

// NotFoundError reports an unknown name together with the kind of record requested.
type NotFoundError struct {
	Kind Kind
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// Is lets errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Option tunes a Catalog at construction time.
type Option func(*Catalog) error

// WithWeightFactors overrides the proportional weight band used by WeightRange.
func WithWeightFactors(low, high float64) Option {
	return func(c *Catalog) error {
		if !positiveFinite(low) || !positiveFinite(high) || high < low {
			return fmt.Errorf("invalid weight factors %v..%v", low, high)
		}
		c.weightLow = low
		c.weightHigh = high
		return nil
	}
}

// Catalog holds the reference data. Safe for concurrent use.
type Catalog struct {
	plants    []Plant
	variants  []Variant
	mutations []Mutation

	plantIdx    map[string]int
	variantIdx  map[string]int
	mutationIdx map[string]int

	weightLow  float64
	weightHigh float64
}

// New validates data and builds a Catalog from it. Malformed records are
// rejected here so they can never surface at computation time.
func New(data Data, opts ...Option) (*Catalog, error) {
	c := &Catalog{
		plants:      make([]Plant, 0, len(data.Plants)),
		variants:    make([]Variant, 0, len(data.Variants)),
		mutations:   make([]Mutation, 0, len(data.Mutations)),
		plantIdx:    make(map[string]int, len(data.Plants)),
		variantIdx:  make(map[string]int, len(data.Variants)),
		mutationIdx: make(map[string]int, len(data.Mutations)),
		weightLow:   DefaultWeightLowFactor,
		weightHigh:  DefaultWeightHighFactor,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	// 1. Plants
	for i, p := range data.Plants {
		if p.Name == "" {
			return nil, fmt.Errorf("plant #%d: empty name", i)
		}
		if _, dup := c.plantIdx[p.Name]; dup {
			return nil, fmt.Errorf("plant %q: duplicate name", p.Name)
		}
		if !positiveFinite(p.BasePrice) {
			return nil, fmt.Errorf("plant %q: base price must be positive, got %v", p.Name, p.BasePrice)
		}
		if !positiveFinite(p.BaseWeight) {
			return nil, fmt.Errorf("plant %q: base weight must be positive, got %v", p.Name, p.BaseWeight)
		}
		c.plantIdx[p.Name] = len(c.plants)
		c.plants = append(c.plants, p)
	}

	// 2. Variants
	for i, v := range data.Variants {
		if v.Name == "" {
			return nil, fmt.Errorf("variant #%d: empty name", i)
		}
		if _, dup := c.variantIdx[v.Name]; dup {
			return nil, fmt.Errorf("variant %q: duplicate name", v.Name)
		}
		if !positiveFinite(v.Multiplier) || v.Multiplier < 1 {
			return nil, fmt.Errorf("variant %q: multiplier must be >= 1, got %v", v.Name, v.Multiplier)
		}
		if v.Name == NormalVariant && v.Multiplier != 1 {
			return nil, fmt.Errorf("variant %q: multiplier must be exactly 1, got %v", v.Name, v.Multiplier)
		}
		c.variantIdx[v.Name] = len(c.variants)
		c.variants = append(c.variants, v)
	}
	if _, ok := c.variantIdx[NormalVariant]; !ok {
		return nil, fmt.Errorf("variant %q missing", NormalVariant)
	}

	// 3. Mutations
	for i, m := range data.Mutations {
		if m.Name == "" {
			return nil, fmt.Errorf("mutation #%d: empty name", i)
		}
		if _, dup := c.mutationIdx[m.Name]; dup {
			return nil, fmt.Errorf("mutation %q: duplicate name", m.Name)
		}
		if !positiveFinite(m.ValueMulti) || m.ValueMulti < 1 {
			return nil, fmt.Errorf("mutation %q: value multi must be >= 1, got %v", m.Name, m.ValueMulti)
		}
		c.mutationIdx[m.Name] = len(c.mutations)
		c.mutations = append(c.mutations, m)
	}

	return c, nil
}

// Plant returns the plant record for name.
func (c *Catalog) Plant(name string) (Plant, error) {
	i, ok := c.plantIdx[name]
	if !ok {
		return Plant{}, &NotFoundError{Kind: KindPlant, Name: name}
	}
	return c.plants[i], nil
}

// Variant returns the variant record for name.
func (c *Catalog) Variant(name string) (Variant, error) {
	i, ok := c.variantIdx[name]
	if !ok {
		return Variant{}, &NotFoundError{Kind: KindVariant, Name: name}
	}
	return c.variants[i], nil
}

// Mutation returns the mutation record for name.
func (c *Catalog) Mutation(name string) (Mutation, error) {
	i, ok := c.mutationIdx[name]
	if !ok {
		return Mutation{}, &NotFoundError{Kind: KindMutation, Name: name}
	}
	return c.mutations[i], nil
}

// Plants returns every plant in load order. The slice is a copy.
func (c *Catalog) Plants() []Plant {
	return append([]Plant(nil), c.plants...)
}

// Variants returns every variant in load order. The slice is a copy.
func (c *Catalog) Variants() []Variant {
	return append([]Variant(nil), c.variants...)
}

// Mutations returns every mutation in load order. The slice is a copy.
func (c *Catalog) Mutations() []Mutation {
	return append([]Mutation(nil), c.mutations...)
}

// WeightRange derives the plausible weight band for a plant. It is advisory:
// the valuation engine accepts any positive weight.
func (c *Catalog) WeightRange(plantName string) (WeightRange, error) {
	p, err := c.Plant(plantName)
	if err != nil {
		return WeightRange{}, err
	}
	return WeightRange{
		Min:  round4(p.BaseWeight * c.weightLow),
		Max:  round4(p.BaseWeight * c.weightHigh),
		Base: p.BaseWeight,
	}, nil
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
