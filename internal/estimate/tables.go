package estimate

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var defaultTablesYAML []byte

// BasePrice maps a category keyword to a base USD price.
type BasePrice struct {
	Category string  `yaml:"category"`
	Price    float64 `yaml:"price"`
}

// Jitter bounds the random multiplier applied to every estimate.
type Jitter struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// DemoBucket selects a catalog group when hash%100 < Below.
type DemoBucket struct {
	Group string `yaml:"group"`
	Below int    `yaml:"below"`
}

// DemoProduct is one canned analysis in the demo catalog.
type DemoProduct struct {
	Group               string   `yaml:"group"`
	ProductName         string   `yaml:"product_name"`
	Brand               string   `yaml:"brand"`
	Category            string   `yaml:"category"`
	Model               string   `yaml:"model"`
	KeyFeatures         []string `yaml:"key_features"`
	EstimatedPriceRange string   `yaml:"estimated_price_range"`
}

// Demo holds the catalog used when an image cannot be fetched.
type Demo struct {
	Confidence string        `yaml:"confidence"`
	Buckets    []DemoBucket  `yaml:"buckets"`
	Catalog    []DemoProduct `yaml:"catalog"`
}

// Tables is the read-only configuration of the estimator and demo catalog.
type Tables struct {
	DefaultBasePrice  float64     `yaml:"default_base_price"`
	PremiumMultiplier float64     `yaml:"premium_multiplier"`
	Jitter            Jitter      `yaml:"jitter"`
	BasePrices        []BasePrice `yaml:"base_prices"`
	PremiumBrands     []string    `yaml:"premium_brands"`
	Demo              Demo        `yaml:"demo"`

	groups map[string][]DemoProduct
}

// ParseTables decodes and validates a tables document.
func ParseTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse estimate tables: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, fmt.Errorf("invalid estimate tables: %w", err)
	}

	t.groups = make(map[string][]DemoProduct)
	for _, p := range t.Demo.Catalog {
		t.groups[p.Group] = append(t.groups[p.Group], p)
	}
	return &t, nil
}

func (t *Tables) validate() error {
	if t.DefaultBasePrice <= 0 {
		return errors.New("default_base_price must be positive")
	}
	if t.PremiumMultiplier <= 0 {
		return errors.New("premium_multiplier must be positive")
	}
	if t.Jitter.Min <= 0 || t.Jitter.Max <= t.Jitter.Min {
		return fmt.Errorf("jitter range [%v, %v) is empty", t.Jitter.Min, t.Jitter.Max)
	}
	for _, bp := range t.BasePrices {
		if bp.Category == "" || bp.Price <= 0 {
			return fmt.Errorf("bad base price entry %q", bp.Category)
		}
	}

	if len(t.Demo.Buckets) == 0 {
		return errors.New("demo buckets are empty")
	}
	groups := make(map[string]bool)
	for _, p := range t.Demo.Catalog {
		groups[p.Group] = true
	}
	prev := 0
	for _, b := range t.Demo.Buckets {
		if b.Below <= prev {
			return fmt.Errorf("demo bucket %q bound %d is not increasing", b.Group, b.Below)
		}
		if !groups[b.Group] {
			return fmt.Errorf("demo bucket %q has no catalog products", b.Group)
		}
		prev = b.Below
	}
	if prev != 100 {
		return fmt.Errorf("demo buckets end at %d, want 100", prev)
	}
	return nil
}

var defaultTables = sync.OnceValues(func() (*Tables, error) {
	return ParseTables(defaultTablesYAML)
})

// DefaultTables returns the embedded tables, parsed once.
func DefaultTables() (*Tables, error) {
	return defaultTables()
}
