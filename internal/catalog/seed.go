// Package catalog holds the fixed product list the shop starts with.
package catalog

import (
	_ "embed"
	"fmt"

	"bikeshop/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedYAML []byte

type seedFile struct {
	Products []models.Product `yaml:"products"`
}

// SeedProducts returns a fresh copy of the initial catalog.
func SeedProducts() ([]models.Product, error) {
	return Parse(seedYAML)
}

// Parse decodes a catalog document and rejects entries without a name or with a negative price.
func Parse(data []byte) ([]models.Product, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog seed: %w", err)
	}
	for i, p := range f.Products {
		if p.Name == "" {
			return nil, fmt.Errorf("catalog seed entry %d has no name", i)
		}
		if p.Price < 0 {
			return nil, fmt.Errorf("catalog seed entry %q has a negative price", p.Name)
		}
	}
	return f.Products, nil
}
