package config

import "github.com/everforgeworks/growcalc/internal/catalog"

// Open loads the catalog this config points at. Weight factors are only
// applied when they differ from the catalog defaults, so the default setup
// shares the embedded catalog instance.
func (c CatalogConfig) Open() (*catalog.Catalog, error) {
	var opts []catalog.Option
	if c.WeightLowFactor != catalog.DefaultWeightLowFactor || c.WeightHighFactor != catalog.DefaultWeightHighFactor {
		opts = append(opts, catalog.WithWeightFactors(c.WeightLowFactor, c.WeightHighFactor))
	}
	return catalog.Open(c.Path, c.Format, opts...)
}
