// Package catalog holds the read-only asset catalog: unit cost and
// per-mine income for every asset type.
package catalog

import (
	"fmt"
	"math"
	"os"

	"tapminer/internal/domain"

	"gopkg.in/yaml.v2"
)

// Catalog is immutable after construction and safe for concurrent use.
type Catalog struct {
	items []domain.AssetType
	byID  map[string]domain.AssetType
}

type fileFormat struct {
	Assets []domain.AssetType `yaml:"assets"`
}

var defaultAssets = []domain.AssetType{
	{ID: "pickaxe", Name: "Pickaxe", Cost: 50, Income: 1},
	{ID: "drill", Name: "Drill", Cost: 250, Income: 6},
	{ID: "excavator", Name: "Excavator", Cost: 1000, Income: 28},
	{ID: "mine_shaft", Name: "Mine Shaft", Cost: 5000, Income: 150},
	{ID: "quarry", Name: "Quarry", Cost: 25000, Income: 800},
}

// New validates items and builds a catalog preserving their order.
func New(items []domain.AssetType) (*Catalog, error) {
	c := &Catalog{
		items: make([]domain.AssetType, 0, len(items)),
		byID:  make(map[string]domain.AssetType, len(items)),
	}
	for i, it := range items {
		if it.ID == "" {
			return nil, fmt.Errorf("asset at index %d missing id", i)
		}
		if _, dup := c.byID[it.ID]; dup {
			return nil, fmt.Errorf("asset %q defined twice", it.ID)
		}
		if it.Cost < 0 || it.Income < 0 {
			return nil, fmt.Errorf("asset %q has negative cost or income", it.ID)
		}
		if it.Name == "" {
			it.Name = it.ID
		}
		c.items = append(c.items, it)
		c.byID[it.ID] = it
	}
	return c, nil
}

// Default returns the compiled-in catalog.
func Default() *Catalog {
	c, err := New(defaultAssets)
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads a YAML catalog file; an empty path yields Default().
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a catalog in the `assets:` list format.
func Parse(data []byte) (*Catalog, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unable to parse catalog: %w", err)
	}
	if len(f.Assets) == 0 {
		return nil, fmt.Errorf("catalog has no assets")
	}
	return New(f.Assets)
}

func (c *Catalog) Get(id string) (domain.AssetType, bool) {
	it, ok := c.byID[id]
	return it, ok
}

// All returns a copy in catalog order.
func (c *Catalog) All() []domain.AssetType {
	out := make([]domain.AssetType, len(c.items))
	copy(out, c.items)
	return out
}

// PassiveIncome sums quantity × income over owned assets. Ids missing from
// the catalog contribute nothing. The sum saturates at math.MaxInt64.
func (c *Catalog) PassiveIncome(assets domain.Assets) int64 {
	var total int64
	for id, qty := range assets {
		it, ok := c.byID[id]
		if !ok || qty <= 0 || it.Income == 0 {
			continue
		}
		if qty > (math.MaxInt64-total)/it.Income {
			return math.MaxInt64
		}
		total += qty * it.Income
	}
	return total
}
