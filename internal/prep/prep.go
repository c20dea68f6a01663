// Package prep aggregates the nutrients of multi-ingredient preparations.
package prep

import (
	"errors"
	"math"

	"github.com/lrdgdown-eng/etiquetado/internal/catalog"
	"github.com/lrdgdown-eng/etiquetado/internal/nutrients"
)

var (
	// ErrEmptyPreparation is returned when no ingredient was selected
	ErrEmptyPreparation = errors.New("preparation has no ingredients")
	// ErrZeroWeight is returned when the ingredient quantities add up to zero
	ErrZeroWeight = errors.New("preparation total weight is zero")
)

// DefaultServingSize is used when a preparation has no declared serving and no weight
const DefaultServingSize = 200.0

// Ingredient is one food and the g/ml of it that goes into a preparation
type Ingredient struct {
	Food     catalog.FoodRecord `json:"food"`
	Quantity float64            `json:"quantity"`
}

// Preparation is a transient composite dish
type Preparation struct {
	Name                 string       `json:"name"`
	Ingredients          []Ingredient `json:"ingredients"`
	ServingSize          float64      `json:"serving_size"`
	ServingsPerContainer int          `json:"servings_per_container"`
	ServingDescription   string       `json:"serving_description"`
}

// Result holds the composite profile at three bases
type Result struct {
	Total       nutrients.Profile `json:"total"`
	TotalWeight float64           `json:"total_weight"`
	Per100      nutrients.Profile `json:"per_100"`
	PerServing  nutrients.Profile `json:"per_serving"`
	ServingSize float64           `json:"serving_size"`
}

func usable(quantity float64) bool {
	return quantity > 0 && !math.IsInf(quantity, 0)
}

// Aggregate sums each ingredient's nutrients scaled to its quantity.
// Ingredients with quantity <= 0 contribute nothing, neither nutrients nor weight.
func Aggregate(ingredients []Ingredient) (nutrients.Profile, float64) {
	total := nutrients.Profile{}
	weight := 0.0
	for _, ing := range ingredients {
		if !usable(ing.Quantity) {
			continue
		}
		factor := ing.Quantity / ing.Food.Reference()
		total.AddScaled(ing.Food.Nutrients, factor)
		weight += ing.Quantity
	}
	return total, weight
}

// TotalWeight returns the sum of the usable ingredient quantities
func TotalWeight(ingredients []Ingredient) float64 {
	weight := 0.0
	for _, ing := range ingredients {
		if usable(ing.Quantity) {
			weight += ing.Quantity
		}
	}
	return weight
}

// DefaultServing returns the serving offered when the caller declares none:
// the integer part of the total weight, or 200 when there is no weight
func DefaultServing(ingredients []Ingredient) float64 {
	weight := TotalWeight(ingredients)
	if weight <= 0 {
		return DefaultServingSize
	}
	return math.Trunc(weight)
}

// Validate checks the preconditions for computing a preparation
func Validate(ingredients []Ingredient) error {
	if len(ingredients) == 0 {
		return ErrEmptyPreparation
	}
	if TotalWeight(ingredients) <= 0 {
		return ErrZeroWeight
	}
	return nil
}

// Compute validates the preparation and derives its per-100 and per-serving
// profiles, treating the aggregate as a profile with reference quantity = total weight
func Compute(p Preparation) (*Result, error) {
	if err := Validate(p.Ingredients); err != nil {
		return nil, err
	}

	total, weight := Aggregate(p.Ingredients)
	serving := p.ServingSize
	if serving <= 0 {
		serving = DefaultServing(p.Ingredients)
	}

	return &Result{
		Total:       total,
		TotalWeight: weight,
		Per100:      nutrients.Scale(total, weight, 100),
		PerServing:  nutrients.Scale(total, weight, serving),
		ServingSize: serving,
	}, nil
}
