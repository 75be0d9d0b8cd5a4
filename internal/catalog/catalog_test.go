package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testData() Data {
	return Data{
		Plants: []Plant{
			{Name: "Carrot", BasePrice: 18, BaseWeight: 0.24, Rarity: "Common"},
			{Name: "Apple", BasePrice: 248, BaseWeight: 2.85, Rarity: "Legendary"},
		},
		Variants: []Variant{
			{Name: "Normal", Multiplier: 1},
			{Name: "Gold", Multiplier: 20},
		},
		Mutations: []Mutation{
			{Name: "Wet", ValueMulti: 2},
			{Name: "Plasma", ValueMulti: 5},
		},
	}
}

func TestNew_Lookups(t *testing.T) {
	t.Parallel()

	c, err := New(testData())
	require.NoError(t, err)

	p, err := c.Plant("Carrot")
	require.NoError(t, err)
	assert.Equal(t, 18.0, p.BasePrice)
	assert.Equal(t, 0.24, p.BaseWeight)

	v, err := c.Variant("Gold")
	require.NoError(t, err)
	assert.Equal(t, 20.0, v.Multiplier)

	m, err := c.Mutation("Plasma")
	require.NoError(t, err)
	assert.Equal(t, 5.0, m.ValueMulti)
}

func TestCatalog_NotFound(t *testing.T) {
	t.Parallel()

	c, err := New(testData())
	require.NoError(t, err)

	tests := []struct {
		name   string
		lookup func() error
		kind   Kind
		key    string
	}{
		{"plant", func() error { _, err := c.Plant("Durian"); return err }, KindPlant, "Durian"},
		{"plant is case sensitive", func() error { _, err := c.Plant("carrot"); return err }, KindPlant, "carrot"},
		{"variant", func() error { _, err := c.Variant("Bronze"); return err }, KindVariant, "Bronze"},
		{"mutation", func() error { _, err := c.Mutation("Soggy"); return err }, KindMutation, "Soggy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.lookup()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNotFound))

			var nf *NotFoundError
			require.True(t, errors.As(err, &nf))
			assert.Equal(t, tt.kind, nf.Kind)
			assert.Equal(t, tt.key, nf.Name)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestCatalog_ListsKeepOrder(t *testing.T) {
	t.Parallel()

	c, err := New(testData())
	require.NoError(t, err)

	plants := c.Plants()
	require.Len(t, plants, 2)
	assert.Equal(t, "Carrot", plants[0].Name)
	assert.Equal(t, "Apple", plants[1].Name)

	// Callers cannot mutate the catalog through the returned slice.
	plants[0].BasePrice = 1
	p, _ := c.Plant("Carrot")
	assert.Equal(t, 18.0, p.BasePrice)

	assert.Equal(t, []Variant{{"Normal", 1}, {"Gold", 20}}, c.Variants())
	assert.Equal(t, []Mutation{{"Wet", 2}, {"Plasma", 5}}, c.Mutations())
}

func TestNew_RejectsMalformedData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(d *Data)
		wantErr string
	}{
		{"empty plant name", func(d *Data) { d.Plants[0].Name = "" }, "empty name"},
		{"duplicate plant", func(d *Data) { d.Plants[1].Name = "Carrot" }, "duplicate"},
		{"zero base price", func(d *Data) { d.Plants[0].BasePrice = 0 }, "base price"},
		{"negative base weight", func(d *Data) { d.Plants[0].BaseWeight = -1 }, "base weight"},
		{"variant below one", func(d *Data) { d.Variants[1].Multiplier = 0.5 }, "multiplier"},
		{"normal not one", func(d *Data) { d.Variants[0].Multiplier = 2 }, "exactly 1"},
		{"normal missing", func(d *Data) { d.Variants = d.Variants[1:] }, "missing"},
		{"mutation below one", func(d *Data) { d.Mutations[0].ValueMulti = 0.9 }, "value multi"},
		{"duplicate mutation", func(d *Data) { d.Mutations[1].Name = "Wet" }, "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testData()
			tt.mutate(&d)
			_, err := New(d)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCatalog_WeightRange(t *testing.T) {
	t.Parallel()

	c, err := New(testData())
	require.NoError(t, err)

	wr, err := c.WeightRange("Carrot")
	require.NoError(t, err)
	assert.Equal(t, WeightRange{Min: 0.168, Max: 0.384, Base: 0.24}, wr)

	c2, err := New(testData(), WithWeightFactors(0.5, 2))
	require.NoError(t, err)
	wr, err = c2.WeightRange("Apple")
	require.NoError(t, err)
	assert.InDelta(t, 1.425, wr.Min, 1e-9)
	assert.InDelta(t, 5.7, wr.Max, 1e-9)

	_, err = c.WeightRange("Durian")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = New(testData(), WithWeightFactors(2, 1))
	assert.Error(t, err)
}

func TestLoad_YAML(t *testing.T) {
	t.Parallel()

	doc := `
plants:
  - {name: Carrot, base_price: 18, base_weight: 0.24, rarity: Common}
variants:
  - {name: Normal, multiplier: 1}
mutations:
  - {name: Wet, value_multi: 2}
`
	c, err := Load(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Len(t, c.Plants(), 1)

	_, err = Load(strings.NewReader("plants:\n  - {name: Carrot, price: 3}\n"))
	assert.Error(t, err, "unknown fields are rejected")
}

func TestLoadJSON_KeepsDocumentOrder(t *testing.T) {
	t.Parallel()

	plants := []byte(`{"Tomato": {"base_weight": 0.44, "base_price": 27, "rarity": 3},
		"Carrot": {"base_weight": 0.24, "base_price": 18, "rarity": 1}}`)
	variants := []byte(`{"Normal": {"multiplier": 1}, "Gold": {"multiplier": 20}}`)
	mutations := []byte(`{"Wet": {"value_multi": 2}}`)

	c, err := LoadJSON(plants, variants, mutations)
	require.NoError(t, err)

	ps := c.Plants()
	require.Len(t, ps, 2)
	assert.Equal(t, "Tomato", ps[0].Name)
	assert.Equal(t, "Carrot", ps[1].Name)
	assert.Equal(t, "1", ps[1].Rarity)

	_, err = LoadJSON([]byte(`{"Carrot":`), variants, mutations)
	assert.Error(t, err)
}

func TestDefault_EmbeddedCatalog(t *testing.T) {
	t.Parallel()

	var wg sync.WaitGroup
	results := make([]*Catalog, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := Default()
			assert.NoError(t, err)
			results[i] = c
		}()
	}
	wg.Wait()

	for _, c := range results {
		assert.Same(t, results[0], c, "embedded catalog must be loaded once")
	}

	c := results[0]
	carrot, err := c.Plant("Carrot")
	require.NoError(t, err)
	assert.Equal(t, 18.0, carrot.BasePrice)
	assert.Equal(t, 0.24, carrot.BaseWeight)

	assert.Len(t, c.Variants(), 4)
	gold, err := c.Variant("Gold")
	require.NoError(t, err)
	assert.Equal(t, 20.0, gold.Multiplier)

	assert.Greater(t, len(c.Mutations()), 30)
}

func TestOpen(t *testing.T) {
	t.Parallel()

	def, err := Default()
	require.NoError(t, err)

	c, err := Open("", "yaml")
	require.NoError(t, err)
	assert.Same(t, def, c)

	c, err = Open("", "yaml", WithWeightFactors(0.5, 2))
	require.NoError(t, err)
	assert.NotSame(t, def, c)
	wr, err := c.WeightRange("Carrot")
	require.NoError(t, err)
	assert.Equal(t, WeightRange{Min: 0.12, Max: 0.48, Base: 0.24}, wr)

	_, err = Open(t.TempDir(), "json")
	assert.ErrorContains(t, err, "plants.json")

	_, err = Open(t.TempDir()+"/missing.yaml", "yaml")
	assert.Error(t, err)
}

func TestOpen_JSONDirBeyondEmbedded(t *testing.T) {
	t.Parallel()

	def, err := Default()
	require.NoError(t, err)
	_, err = def.Plant("Moon Blossom")
	require.Error(t, err)

	dir := t.TempDir()
	files := map[string]string{
		"plants.json":    `{"Carrot": {"base_weight": 0.24, "base_price": 18}, "Moon Blossom": {"base_weight": 3, "base_price": 60000}}`,
		"variants.json":  `{"Normal": {"multiplier": 1}}`,
		"mutations.json": `{"Moonlit": {"value_multi": 2}}`,
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}

	c, err := Open(dir, "json")
	require.NoError(t, err)
	p, err := c.Plant("Moon Blossom")
	require.NoError(t, err)
	assert.Equal(t, 60000.0, p.BasePrice)
	_, err = c.Mutation("Moonlit")
	assert.NoError(t, err)
}
