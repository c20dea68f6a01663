// Package catalog holds the in-memory food table and the text search over it.
package catalog

import (
	"regexp"
	"sort"
	"strings"

	"github.com/lrdgdown-eng/etiquetado/internal/nutrients"
	"github.com/lrdgdown-eng/etiquetado/internal/textnorm"
)

// FoodRecord is one food row with nutrient amounts per ReferenceQuantity g/ml
type FoodRecord struct {
	Name              string            `json:"name"`
	NormalizedName    string            `json:"normalized_name"`
	ReferenceQuantity float64           `json:"reference_quantity"`
	Nutrients         nutrients.Profile `json:"nutrients"`
	Custom            bool              `json:"custom"`
}

// NewFoodRecord builds a record with its derived search key
func NewFoodRecord(name string, referenceQuantity float64, profile nutrients.Profile, custom bool) FoodRecord {
	name = strings.TrimSpace(name)
	if profile == nil {
		profile = nutrients.Profile{}
	}
	return FoodRecord{
		Name:              name,
		NormalizedName:    textnorm.Normalize(name),
		ReferenceQuantity: referenceQuantity,
		Nutrients:         profile,
		Custom:            custom,
	}
}

// Reference returns the record's usable reference quantity (100 when missing or invalid)
func (f FoodRecord) Reference() float64 {
	return nutrients.ReferenceOrDefault(f.ReferenceQuantity)
}

// ScaledTo returns the record's nutrients for quantity g/ml
func (f FoodRecord) ScaledTo(quantity float64) nutrients.Profile {
	return nutrients.Scale(f.Nutrients, f.Reference(), quantity)
}

// Per100 returns the record's nutrients per 100 g/ml
func (f FoodRecord) Per100() nutrients.Profile {
	return f.ScaledTo(100)
}

// Catalog is the ordered food table: built-in rows first, then custom rows.
// A Catalog is never mutated after construction; WithCustom returns a new one.
type Catalog struct {
	foods   []FoodRecord
	columns []nutrients.Key
}

// New creates a catalog from records in table order. columns is the nutrient
// column order used by results views; nil falls back to the standard keys.
func New(records []FoodRecord, columns []nutrients.Key) *Catalog {
	if len(columns) == 0 {
		columns = nutrients.Standard
	}
	foods := make([]FoodRecord, len(records))
	copy(foods, records)
	cols := make([]nutrients.Key, len(columns))
	copy(cols, columns)
	return &Catalog{foods: foods, columns: cols}
}

// WithCustom returns a catalog made of c's built-in rows followed by custom
func (c *Catalog) WithCustom(custom []FoodRecord) *Catalog {
	records := make([]FoodRecord, 0, len(c.foods)+len(custom))
	for _, f := range c.foods {
		if !f.Custom {
			records = append(records, f)
		}
	}
	for _, f := range custom {
		f.Custom = true
		records = append(records, f)
	}
	return New(records, c.columns)
}

// Len returns the number of records
func (c *Catalog) Len() int {
	return len(c.foods)
}

// Foods returns a copy of every record in table order
func (c *Catalog) Foods() []FoodRecord {
	out := make([]FoodRecord, len(c.foods))
	copy(out, c.foods)
	return out
}

// Custom returns the user-added records in table order
func (c *Catalog) Custom() []FoodRecord {
	out := []FoodRecord{}
	for _, f := range c.foods {
		if f.Custom {
			out = append(out, f)
		}
	}
	return out
}

// Columns returns the nutrient column order of the imported table
func (c *Catalog) Columns() []nutrients.Key {
	out := make([]nutrients.Key, len(c.columns))
	copy(out, c.columns)
	return out
}

// Find returns the first record, in table order, whose normalized name contains
// the normalized query. The boolean is false when nothing matches.
func (c *Catalog) Find(query string) (FoodRecord, bool) {
	needle := textnorm.Normalize(query)
	for _, f := range c.foods {
		if strings.Contains(f.NormalizedName, needle) {
			return f, true
		}
	}
	return FoodRecord{}, false
}

// Lookup returns the first record whose trimmed name equals name exactly
func (c *Catalog) Lookup(name string) (FoodRecord, bool) {
	name = strings.TrimSpace(name)
	for _, f := range c.foods {
		if f.Name == name {
			return f, true
		}
	}
	return FoodRecord{}, false
}

var nonFoodPatterns = []*regexp.Regexp{
	// section headers such as "1 Frutas" or "2.3 Lácteos"
	regexp.MustCompile(`^\s*\d+(\.\d+)*\s+[A-Za-zÁÉÍÓÚáéíóúñÑ]`),
	// numbered bibliography entries such as "12. Schmidt ..."
	regexp.MustCompile(`^\s*\d+\.\s+[A-Za-z]`),
	// calculation notes such as "3. Valor calculado"
	regexp.MustCompile(`^\s*\d+\.\s+Valor`),
}

// IsSelectableName reports whether name looks like a food rather than a
// section header or bibliography line
func IsSelectableName(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	for _, pattern := range nonFoodPatterns {
		if pattern.MatchString(name) {
			return false
		}
	}
	return true
}

// SelectableNames returns the de-duplicated food names offered for preparations,
// sorted by normalized name
func (c *Catalog) SelectableNames() []string {
	seen := make(map[string]struct{}, len(c.foods))
	var names []string
	for _, f := range c.foods {
		name := strings.TrimSpace(f.Name)
		if !IsSelectableName(name) {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	sort.SliceStable(names, func(i, j int) bool {
		return textnorm.Normalize(names[i]) < textnorm.Normalize(names[j])
	})
	return names
}

// FilterNames keeps the names whose normalized form contains the normalized query.
// An empty query keeps every name.
func FilterNames(names []string, query string) []string {
	needle := textnorm.Normalize(query)
	if needle == "" {
		return names
	}
	var out []string
	for _, name := range names {
		if strings.Contains(textnorm.Normalize(name), needle) {
			out = append(out, name)
		}
	}
	return out
}
