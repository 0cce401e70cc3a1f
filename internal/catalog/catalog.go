// Package catalog holds the read-only set of rentable units, grouped into
// categories. A Catalog is immutable after Parse/Load and safe for
// concurrent use without locking.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed listings.yaml
var defaultCatalog []byte

var ErrUnknownCategory = errors.New("catalog: unknown category")

type Listing struct {
	ID          string   `yaml:"id"`
	Category    string   `yaml:"-"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Images      []string `yaml:"images"`
}

type Category struct {
	Key      string    `yaml:"key"`
	Title    string    `yaml:"title"`
	Summary  string    `yaml:"summary"`
	Keywords []string  `yaml:"keywords"`
	Listings []Listing `yaml:"listings"`
}

type file struct {
	Categories []Category `yaml:"categories"`
}

type Catalog struct {
	categories []Category
	byKey      map[string]int
	byID       map[string]*Listing
	keywords   map[string]string
	duplicates []string
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a YAML catalog from path. An empty path yields Default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	return New(f.Categories)
}

// New indexes categories in the given order. Listing ids are expected to be
// unique across the whole catalog; when they are not, the first occurrence
// wins lookups and the id is reported by Duplicates.
func New(categories []Category) (*Catalog, error) {
	c := &Catalog{
		categories: make([]Category, 0, len(categories)),
		byKey:      make(map[string]int, len(categories)),
		byID:       make(map[string]*Listing),
		keywords:   make(map[string]string),
	}

	for _, cat := range categories {
		key := strings.TrimSpace(cat.Key)
		if key == "" {
			return nil, fmt.Errorf("catalog: category with empty key")
		}
		if _, ok := c.byKey[key]; ok {
			return nil, fmt.Errorf("catalog: duplicate category %q", key)
		}
		cat.Key = key
		if cat.Title == "" {
			cat.Title = key
		}
		listings := make([]Listing, len(cat.Listings))
		for i, l := range cat.Listings {
			l.Category = key
			l.Images = append([]string(nil), l.Images...)
			listings[i] = l
		}
		cat.Listings = listings
		cat.Keywords = append([]string(nil), cat.Keywords...)

		c.byKey[key] = len(c.categories)
		c.categories = append(c.categories, cat)
	}

	for i := range c.categories {
		cat := &c.categories[i]
		for _, kw := range cat.Keywords {
			kw = normalize(kw)
			if kw == "" {
				continue
			}
			if _, ok := c.keywords[kw]; !ok {
				c.keywords[kw] = cat.Key
			}
		}
		for j := range cat.Listings {
			l := &cat.Listings[j]
			if l.ID == "" {
				return nil, fmt.Errorf("catalog: listing without id in category %q", cat.Key)
			}
			if _, ok := c.byID[l.ID]; ok {
				c.duplicates = append(c.duplicates, l.ID)
				continue
			}
			c.byID[l.ID] = l
		}
	}

	return c, nil
}

// Categories returns the categories in catalog order.
func (c *Catalog) Categories() []Category {
	return append([]Category(nil), c.categories...)
}

func (c *Catalog) Category(key string) (Category, error) {
	i, ok := c.byKey[key]
	if !ok {
		return Category{}, fmt.Errorf("%w: %q", ErrUnknownCategory, key)
	}
	return c.categories[i], nil
}

func (c *Catalog) HasCategory(key string) bool {
	_, ok := c.byKey[key]
	return ok
}

// Listing looks up a listing by id across all categories.
func (c *Catalog) Listing(id string) (Listing, bool) {
	l, ok := c.byID[id]
	if !ok {
		return Listing{}, false
	}
	return *l, true
}

// MatchKeyword maps free text such as "studios" or "1 BHK" to a category key.
func (c *Catalog) MatchKeyword(text string) (string, bool) {
	key, ok := c.keywords[normalize(text)]
	return key, ok
}

// Duplicates lists listing ids that appeared more than once, in the order
// the repeats were found.
func (c *Catalog) Duplicates() []string {
	return append([]string(nil), c.duplicates...)
}

func (c *Catalog) Size() int {
	return len(c.byID)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
