// Package warning decides which "high in" front-of-pack warning labels apply
// to a product from its nutrients per 100 g or 100 ml.
package warning

import (
	"errors"
	"fmt"
	"sort"

	"github.com/lrdgdown-eng/etiquetado/internal/nutrients"
	"github.com/lrdgdown-eng/etiquetado/internal/textnorm"
)

var (
	// ErrUnknownPhase is returned for a threshold table name that is not registered
	ErrUnknownPhase = errors.New("unknown regulatory phase")
	// ErrUnknownProductType is returned when a product type cannot be parsed
	ErrUnknownProductType = errors.New("unknown product type")
)

// Label is one warning label
type Label string

// Labels in their fixed output order
const (
	HighInCalories     Label = "HIGH_IN_CALORIES"
	HighInSugars       Label = "HIGH_IN_SUGARS"
	HighInSaturatedFat Label = "HIGH_IN_SATURATED_FAT"
	HighInSodium       Label = "HIGH_IN_SODIUM"
)

// Order is the fixed output order of labels
var Order = []Label{HighInCalories, HighInSugars, HighInSaturatedFat, HighInSodium}

// Text returns the label as printed on the package
func (l Label) Text() string {
	switch l {
	case HighInCalories:
		return "ALTO EN CALORÍAS"
	case HighInSugars:
		return "ALTO EN AZÚCARES"
	case HighInSaturatedFat:
		return "ALTO EN GRASAS SATURADAS"
	case HighInSodium:
		return "ALTO EN SODIO"
	default:
		return string(l)
	}
}

// nutrientFor is the per-100 nutrient each label is measured against
var nutrientFor = map[Label]nutrients.Key{
	HighInCalories:     nutrients.Energy,
	HighInSugars:       nutrients.Sugars,
	HighInSaturatedFat: nutrients.SaturatedFat,
	HighInSodium:       nutrients.Sodium,
}

// ProductType selects the threshold column: solids per 100 g, liquids per 100 ml
type ProductType string

const (
	Solid  ProductType = "solid"
	Liquid ProductType = "liquid"
)

// ParseProductType accepts English and Spanish names, accents and case ignored
func ParseProductType(s string) (ProductType, error) {
	switch textnorm.Normalize(s) {
	case "solid", "solido", "s":
		return Solid, nil
	case "liquid", "liquido", "l":
		return Liquid, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProductType, s)
	}
}

// Thresholds are the per-100 limits at or above which each label applies
type Thresholds map[Label]float64

// Table is one regulatory phase: thresholds per product type
type Table struct {
	Name   string                     `json:"name"`
	Limits map[ProductType]Thresholds `json:"limits"`
}

// Classifier applies a threshold table. The table is data; swapping phases
// never touches the comparison.
type Classifier struct {
	table Table
}

// NewClassifier creates a classifier for the given table
func NewClassifier(table Table) *Classifier {
	return &Classifier{table: table}
}

// Table returns the classifier's threshold table
func (c *Classifier) Table() Table {
	return c.table
}

// Classify returns the labels triggered by profileAt100 in fixed order.
// Comparisons are inclusive and missing nutrients read as 0. productType must
// come from ParseProductType; a type without limits in the table triggers nothing.
func (c *Classifier) Classify(profileAt100 nutrients.Profile, productType ProductType) []Label {
	limits := c.table.Limits[productType]
	labels := []Label{}
	for _, label := range Order {
		limit, ok := limits[label]
		if !ok {
			continue
		}
		if profileAt100.Get(nutrientFor[label]) >= limit {
			labels = append(labels, label)
		}
	}
	return labels
}

// Texts maps labels to their printed text
func Texts(labels []Label) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = l.Text()
	}
	return out
}

// Regulatory phases of the Chilean food labelling law (Ley 20.606). Phase 3 is current.
var (
	Phase1 = Table{
		Name: "phase1",
		Limits: map[ProductType]Thresholds{
			Solid:  {HighInCalories: 350, HighInSugars: 22.5, HighInSaturatedFat: 6, HighInSodium: 800},
			Liquid: {HighInCalories: 100, HighInSugars: 6, HighInSaturatedFat: 3, HighInSodium: 100},
		},
	}
	Phase2 = Table{
		Name: "phase2",
		Limits: map[ProductType]Thresholds{
			Solid:  {HighInCalories: 300, HighInSugars: 15, HighInSaturatedFat: 5, HighInSodium: 500},
			Liquid: {HighInCalories: 80, HighInSugars: 5, HighInSaturatedFat: 3, HighInSodium: 100},
		},
	}
	Phase3 = Table{
		Name: "phase3",
		Limits: map[ProductType]Thresholds{
			Solid:  {HighInCalories: 275, HighInSugars: 10, HighInSaturatedFat: 4, HighInSodium: 400},
			Liquid: {HighInCalories: 70, HighInSugars: 5, HighInSaturatedFat: 3, HighInSodium: 100},
		},
	}
)

var phases = map[string]Table{
	Phase1.Name: Phase1,
	Phase2.Name: Phase2,
	Phase3.Name: Phase3,
}

// DefaultPhase is the phase in force
const DefaultPhase = "phase3"

// LookupPhase returns the registered table for name ("" means DefaultPhase)
func LookupPhase(name string) (Table, error) {
	if name == "" {
		name = DefaultPhase
	}
	table, ok := phases[textnorm.Normalize(name)]
	if !ok {
		return Table{}, fmt.Errorf("%w: %q", ErrUnknownPhase, name)
	}
	return table, nil
}

// PhaseNames lists the registered phases
func PhaseNames() []string {
	names := make([]string, 0, len(phases))
	for name := range phases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
