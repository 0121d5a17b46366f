// Package catalog matches a budget against fixed price lists so that a
// projected spend can be shown as something concrete to buy.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind identifies one of the product catalogs.
type Kind string

const (
	Car    Kind = "car"
	Laptop Kind = "laptop"
	Phone  Kind = "phone"
)

const imageBase = "https://dummyimage.com/300x180/ffffff/111111.png&text="

var (
	ErrEmptyCatalog   = errors.New("catalog is empty")
	ErrNegativePrice  = errors.New("catalog item has negative price")
	ErrMissingCatalog = errors.New("catalog missing")
)

//go:embed catalogs.yaml
var defaultCatalogs []byte

// Item is a purchasable product.
type Item struct {
	Brand string  `yaml:"brand" json:"brand"`
	Model string  `yaml:"model" json:"model"`
	Price float64 `yaml:"price" json:"price"`
}

// Name is the display name, e.g. "Toyota Corolla".
func (i Item) Name() string {
	return strings.TrimSpace(i.Brand + " " + i.Model)
}

// Catalog is an immutable price list sorted ascending by price.
type Catalog struct {
	kind  Kind
	items []Item
}

// New validates items and returns them as a sorted catalog. Items with equal
// prices keep their relative order.
func New(kind Kind, items []Item) (*Catalog, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%s: %w", kind, ErrEmptyCatalog)
	}
	sorted := make([]Item, len(items))
	copy(sorted, items)
	for _, it := range sorted {
		if it.Price < 0 {
			return nil, fmt.Errorf("%s %q: %w", kind, it.Name(), ErrNegativePrice)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Price < sorted[j].Price
	})
	return &Catalog{kind: kind, items: sorted}, nil
}

// Kind returns the catalog kind.
func (c *Catalog) Kind() Kind {
	return c.kind
}

// Items returns a copy of the sorted items.
func (c *Catalog) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Pick returns the most expensive item whose price is within budget. When
// nothing is affordable the cheapest item is returned, so Pick always
// yields an item.
func (c *Catalog) Pick(budget float64) Item {
	// first index with price > budget
	n := sort.Search(len(c.items), func(i int) bool {
		return c.items[i].Price > budget
	})
	if n == 0 {
		return c.items[0]
	}
	return c.items[n-1]
}

// Affordable reports whether item fits in budget.
func Affordable(item Item, budget float64) bool {
	return item.Price <= budget
}

// ImageURL builds a placeholder product image URL.
func ImageURL(kind Kind, item Item) string {
	text := item.Model
	if kind == Car {
		text = item.Brand + " " + item.Model
	}
	if strings.TrimSpace(text) == "" {
		text = "Product"
	}
	return imageBase + url.QueryEscape(text)
}

// Set groups the catalogs shown on the dashboard.
type Set struct {
	Car    *Catalog
	Laptop *Catalog
	Phone  *Catalog
}

type fileFormat struct {
	Car    []Item `yaml:"car"`
	Laptop []Item `yaml:"laptop"`
	Phone  []Item `yaml:"phone"`
}

// Default returns the built-in catalogs.
func Default() (*Set, error) {
	return Parse(defaultCatalogs)
}

// Load reads catalogs from a YAML file. An empty path yields the defaults.
func Load(path string) (*Set, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	set, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog file %s: %w", path, err)
	}
	return set, nil
}

// Parse decodes a YAML document with car, laptop and phone lists.
func Parse(data []byte) (*Set, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalogs: %w", err)
	}
	var (
		set  Set
		errs []error
		err  error
	)
	if set.Car, err = New(Car, f.Car); err != nil {
		errs = append(errs, err)
	}
	if set.Laptop, err = New(Laptop, f.Laptop); err != nil {
		errs = append(errs, err)
	}
	if set.Phone, err = New(Phone, f.Phone); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &set, nil
}

// Get returns the catalog of the given kind.
func (s *Set) Get(kind Kind) (*Catalog, error) {
	var c *Catalog
	switch kind {
	case Car:
		c = s.Car
	case Laptop:
		c = s.Laptop
	case Phone:
		c = s.Phone
	}
	if c == nil {
		return nil, fmt.Errorf("%s: %w", kind, ErrMissingCatalog)
	}
	return c, nil
}
