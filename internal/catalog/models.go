/*
Package catalog
File: models.go
Description:
    Defines the static reference records (plants, variants, mutations) that
    every valuation is computed from. These map directly to the catalog YAML
    file and to the JSON API responses.

    No logic is performed here; this file is strictly for type definitions.
*/

package catalog

// Plant is one harvestable crop and its reference sale data.
type Plant struct {
	Name       string  `yaml:"name" json:"name"`               // Unique display name (e.g., "Carrot")
	BasePrice  float64 `yaml:"base_price" json:"base_price"`   // Sale price at BaseWeight, Normal variant, no mutations
	BaseWeight float64 `yaml:"base_weight" json:"base_weight"` // Reference weight in kg
	Rarity     string  `yaml:"rarity" json:"rarity"`           // Descriptive label only, never used in arithmetic
}

// Variant is a rarity tier applying a flat multiplier to the value.
type Variant struct {
	Name       string  `yaml:"name" json:"name"`             // e.g. "Normal", "Gold"
	Multiplier float64 `yaml:"multiplier" json:"multiplier"` // >= 1, "Normal" is exactly 1
}

// Mutation is an environmental modifier. ValueMulti is "1 + bonus":
// a mutation with ValueMulti 5 adds +4 to the combined mutation multiplier.
type Mutation struct {
	Name       string  `yaml:"name" json:"name"`
	ValueMulti float64 `yaml:"value_multi" json:"value_multi"`
}

// WeightRange is the plausible weight band of a plant, for UI guidance only.
type WeightRange struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Base float64 `json:"base"`
}

// Data is the root document of a catalog file.
type Data struct {
	Plants    []Plant    `yaml:"plants"`
	Variants  []Variant  `yaml:"variants"`
	Mutations []Mutation `yaml:"mutations"`
}
