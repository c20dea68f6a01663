package prep

import (
	"testing"

	"github.com/lrdgdown-eng/etiquetado/internal/catalog"
	"github.com/lrdgdown-eng/etiquetado/internal/nutrients"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func food(name string, ref float64, p nutrients.Profile) catalog.FoodRecord {
	return catalog.NewFoodRecord(name, ref, p, false)
}

func TestAggregate(t *testing.T) {
	ingredients := []Ingredient{
		{Food: food("A", 100, nutrients.Profile{nutrients.Sugars: 10, nutrients.Energy: 50}), Quantity: 100},
		{Food: food("B", 100, nutrients.Profile{nutrients.Sugars: 0, nutrients.Energy: 200}), Quantity: 50},
	}

	total, weight := Aggregate(ingredients)
	assert.Equal(t, 150.0, weight)
	assert.InDelta(t, 10.0, total[nutrients.Sugars], 1e-9)
	assert.InDelta(t, 150.0, total[nutrients.Energy], 1e-9)
}

func TestAggregate_InvalidReferenceDefaultsTo100(t *testing.T) {
	ingredients := []Ingredient{
		{Food: food("Sin base", 0, nutrients.Profile{nutrients.Sodium: 400}), Quantity: 50},
		{Food: food("Base 250", 250, nutrients.Profile{nutrients.Sodium: 500}), Quantity: 50},
	}

	total, _ := Aggregate(ingredients)
	assert.InDelta(t, 200.0+100.0, total[nutrients.Sodium], 1e-9)
}

func TestAggregate_NonPositiveQuantitiesContributeNothing(t *testing.T) {
	ingredients := []Ingredient{
		{Food: food("A", 100, nutrients.Profile{nutrients.Energy: 100}), Quantity: 0},
		{Food: food("B", 100, nutrients.Profile{nutrients.Energy: 100}), Quantity: -20},
		{Food: food("C", 100, nutrients.Profile{nutrients.Energy: 100}), Quantity: 30},
	}

	total, weight := Aggregate(ingredients)
	assert.Equal(t, 30.0, weight)
	assert.InDelta(t, 30.0, total[nutrients.Energy], 1e-9)
}

func TestAggregate_OrderIndependent(t *testing.T) {
	ingredients := []Ingredient{
		{Food: food("A", 100, nutrients.Profile{nutrients.Sugars: 10.3, nutrients.Sodium: 3}), Quantity: 33.3},
		{Food: food("B", 80, nutrients.Profile{nutrients.Sugars: 1.7, nutrients.Fiber: 2}), Quantity: 120},
		{Food: food("C", 0, nutrients.Profile{nutrients.Sodium: 480, nutrients.Energy: 12}), Quantity: 7.5},
	}
	reversed := []Ingredient{ingredients[2], ingredients[1], ingredients[0]}
	rotated := []Ingredient{ingredients[1], ingredients[2], ingredients[0]}

	want, wantWeight := Aggregate(ingredients)
	for _, perm := range [][]Ingredient{reversed, rotated} {
		got, weight := Aggregate(perm)
		assert.InDelta(t, wantWeight, weight, 1e-9)
		for k, v := range want {
			assert.InDelta(t, v, got[k], 1e-9, "key %s", k)
		}
	}
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, Validate(nil), ErrEmptyPreparation)
	assert.ErrorIs(t, Validate([]Ingredient{{Food: food("A", 100, nil), Quantity: 0}}), ErrZeroWeight)
	assert.NoError(t, Validate([]Ingredient{{Food: food("A", 100, nil), Quantity: 1}}))
}

func TestCompute_SugarsPer100(t *testing.T) {
	p := Preparation{
		Name: "Leche con plátano",
		Ingredients: []Ingredient{
			{Food: food("A", 100, nutrients.Profile{nutrients.Sugars: 10}), Quantity: 100},
			{Food: food("B", 100, nutrients.Profile{nutrients.Sugars: 0}), Quantity: 50},
		},
		ServingSize: 200,
	}

	result, err := Compute(p)
	require.NoError(t, err)

	assert.Equal(t, 150.0, result.TotalWeight)
	assert.InDelta(t, 6.6667, result.Per100[nutrients.Sugars], 1e-4)
	assert.Equal(t, 6.67, nutrients.RoundTo(result.Per100[nutrients.Sugars], 2))
	assert.InDelta(t, 13.3333, result.PerServing[nutrients.Sugars], 1e-4)
	assert.Equal(t, 200.0, result.ServingSize)
}

func TestCompute_DefaultServing(t *testing.T) {
	p := Preparation{
		Ingredients: []Ingredient{
			{Food: food("A", 100, nutrients.Profile{nutrients.Energy: 100}), Quantity: 150.7},
		},
	}

	result, err := Compute(p)
	require.NoError(t, err)
	assert.Equal(t, 150.0, result.ServingSize)
}

func TestCompute_ValidationErrors(t *testing.T) {
	_, err := Compute(Preparation{})
	assert.ErrorIs(t, err, ErrEmptyPreparation)

	_, err = Compute(Preparation{Ingredients: []Ingredient{{Food: food("A", 100, nil), Quantity: 0}}})
	assert.ErrorIs(t, err, ErrZeroWeight)
}

func TestDefaultServing(t *testing.T) {
	assert.Equal(t, DefaultServingSize, DefaultServing(nil))
	assert.Equal(t, 250.0, DefaultServing([]Ingredient{{Quantity: 100}, {Quantity: 150.9}}))
}
