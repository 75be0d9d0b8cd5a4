/*
Package catalog
File: loader.go
Description:
    Reads catalog data from disk or from the copy embedded in the binary.

    Two formats are understood:
    1. The native YAML document (catalog.yaml) with plants/variants/mutations lists.
    2. The legacy per-kind JSON maps (plants.json, variants.json, mutations.json)
       keyed by name, e.g. {"Carrot": {"base_weight": 0.24, "base_price": 18, "rarity": 1}}.
       These are walked with gjson so the document order survives into the
       catalog's list order.
*/

package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embeddedYAML []byte

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the catalog embedded in the binary. The first call parses
// it; concurrent first callers wait for that single load.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Load(bytes.NewReader(embeddedYAML))
	})
	return defaultCatalog, defaultErr
}

// Open loads a catalog from path in the given format ("yaml" or "json").
// An empty path selects the embedded catalog, rebuilt with opts when any are
// given.
func Open(path, format string, opts ...Option) (*Catalog, error) {
	switch {
	case path == "" && len(opts) == 0:
		return Default()
	case path == "":
		return Load(bytes.NewReader(embeddedYAML), opts...)
	case format == "json":
		return LoadJSONDir(path, opts...)
	}
	return LoadFile(path, opts...)
}

// Load decodes a YAML catalog document. Unknown keys are rejected.
func Load(r io.Reader, opts ...Option) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var data Data
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	return New(data, opts...)
}

// LoadFile loads a YAML catalog from path.
func LoadFile(path string, opts ...Option) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog %s: %w", path, err)
	}
	defer f.Close()

	c, err := Load(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading catalog %s: %w", path, err)
	}
	return c, nil
}

// LoadJSONDir loads plants.json, variants.json and mutations.json from dir.
func LoadJSONDir(dir string, opts ...Option) (*Catalog, error) {
	files := [3][]byte{}
	for i, name := range []string{"plants.json", "variants.json", "mutations.json"} {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		files[i] = b
	}
	return LoadJSON(files[0], files[1], files[2], opts...)
}

// LoadJSON builds a catalog from the three legacy JSON maps.
func LoadJSON(plantsJSON, variantsJSON, mutationsJSON []byte, opts ...Option) (*Catalog, error) {
	for name, b := range map[string][]byte{
		"plants":    plantsJSON,
		"variants":  variantsJSON,
		"mutations": mutationsJSON,
	} {
		if !gjson.ValidBytes(b) {
			return nil, fmt.Errorf("%s: invalid JSON", name)
		}
	}

	var data Data

	gjson.ParseBytes(plantsJSON).ForEach(func(k, v gjson.Result) bool {
		data.Plants = append(data.Plants, Plant{
			Name:       k.String(),
			BasePrice:  v.Get("base_price").Float(),
			BaseWeight: v.Get("base_weight").Float(),
			Rarity:     v.Get("rarity").String(),
		})
		return true
	})

	gjson.ParseBytes(variantsJSON).ForEach(func(k, v gjson.Result) bool {
		data.Variants = append(data.Variants, Variant{
			Name:       k.String(),
			Multiplier: v.Get("multiplier").Float(),
		})
		return true
	})

	gjson.ParseBytes(mutationsJSON).ForEach(func(k, v gjson.Result) bool {
		data.Mutations = append(data.Mutations, Mutation{
			Name:       k.String(),
			ValueMulti: v.Get("value_multi").Float(),
		})
		return true
	})

	return New(data, opts...)
}
