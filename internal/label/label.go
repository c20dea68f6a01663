// Package label builds the nutrition facts label from per-100 nutrient values.
//
// Format builds the structured label table. Its per-serving column is always
// recomputed from the per-100 values. Simplified builds the rows of the
// downloadable image, which prints the caller's per-serving values and shows
// sodium without decimals.
package label

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lrdgdown-eng/etiquetado/internal/nutrients"
)

// Title is the label header
const Title = "INFORMACIÓN NUTRICIONAL"

// Options toggles the optional label sections
type Options struct {
	FatBreakdown   bool `json:"fat_breakdown"`
	Fiber          bool `json:"fiber"`
	Micronutrients bool `json:"micronutrients"`
}

// Row is one line of the main table
type Row struct {
	Key         nutrients.Key `json:"key"`
	DisplayName string        `json:"display_name"`
	Per100      float64       `json:"per_100"`
	PerServing  float64       `json:"per_serving"`
	Decimals    int           `json:"decimals"`
	Indent      bool          `json:"indent,omitempty"`
}

// Per100Text formats the per-100 value with the row precision
func (r Row) Per100Text() string {
	return formatFixed(r.Per100, r.Decimals)
}

// PerServingText formats the per-serving value with the row precision
func (r Row) PerServingText() string {
	return formatFixed(r.PerServing, r.Decimals)
}

// MicroRow is one line of the micronutrient block, per serving only
type MicroRow struct {
	Key         nutrients.Key `json:"key"`
	DisplayName string        `json:"display_name"`
	Unit        string        `json:"unit"`
	PerServing  float64       `json:"per_serving"`
	Decimals    int           `json:"decimals"`
}

// Text formats the row as "Name: value unit"
func (m MicroRow) Text() string {
	return fmt.Sprintf("%s: %s %s", m.DisplayName, formatFixed(m.PerServing, m.Decimals), m.Unit)
}

// Label is the structured nutrition facts label
type Label struct {
	ProductName          string     `json:"product_name,omitempty"`
	ServingText          string     `json:"serving_text"`
	ServingSize          float64    `json:"serving_size"`
	ServingsPerContainer int        `json:"servings_per_container"`
	Rows                 []Row      `json:"rows"`
	Micronutrients       []MicroRow `json:"micronutrients,omitempty"`
}

// Input is everything the formatter needs. PerServing is accepted for callers
// that already computed it but is never used for the main rows.
type Input struct {
	ProductName          string
	Per100               nutrients.Profile
	PerServing           nutrients.Profile
	ServingSize          float64
	ServingsPerContainer int
	ServingDescription   string
	Options              Options
}

type rowSpec struct {
	key      nutrients.Key
	name     string
	decimals int
	indent   bool
}

var (
	leadingRows = []rowSpec{
		{nutrients.Energy, "Energía (kcal)", 0, false},
		{nutrients.Protein, "Proteínas (g)", 1, false},
		{nutrients.TotalFat, "Grasa Total (g)", 1, false},
		{nutrients.SaturatedFat, "Saturadas (g)", 1, true},
	}
	fatBreakdownRows = []rowSpec{
		{nutrients.MonounsaturatedFat, "Monoinsaturadas (g)", 1, true},
		{nutrients.PolyunsaturatedFat, "Poliinsaturadas (g)", 1, true},
		{nutrients.TransFat, "Trans (g)", 2, true},
	}
	trailingRows = []rowSpec{
		{nutrients.Carbohydrate, "H. de C. Disp. (g)", 1, false},
		{nutrients.Sugars, "Azúcares Totales (g)", 1, false},
		{nutrients.Sodium, "Sodio (mg)", 1, false},
	}
	fiberRow = rowSpec{nutrients.Fiber, "Fibra Alimentaria (g)", 1, false}

	microRows = []struct {
		key      nutrients.Key
		name     string
		unit     string
		decimals int
	}{
		{nutrients.Calcium, "Calcio", "mg", 0},
		{nutrients.Iron, "Hierro", "mg", 1},
		{nutrients.Zinc, "Zinc", "mg", 2},
		{nutrients.VitaminD, "Vitamina D", "µg", 2},
		{nutrients.VitaminB12, "Vitamina B12", "µg", 2},
		{nutrients.Folate, "Folatos", "µg", 1},
	}
)

// Format builds the structured label. Every per-serving value is
// per100 * servingSize / 100 regardless of in.PerServing.
func Format(in Input) Label {
	specs := append([]rowSpec{}, leadingRows...)
	if in.Options.FatBreakdown {
		specs = append(specs, fatBreakdownRows...)
	}
	specs = append(specs, trailingRows...)
	if in.Options.Fiber {
		specs = append(specs, fiberRow)
	}

	rows := make([]Row, 0, len(specs))
	for _, spec := range specs {
		per100 := in.Per100.Get(spec.key)
		rows = append(rows, Row{
			Key:         spec.key,
			DisplayName: spec.name,
			Per100:      per100,
			PerServing:  nutrients.PerServing(per100, in.ServingSize),
			Decimals:    spec.decimals,
			Indent:      spec.indent,
		})
	}

	var micros []MicroRow
	if in.Options.Micronutrients {
		for _, spec := range microRows {
			micros = append(micros, MicroRow{
				Key:         spec.key,
				DisplayName: spec.name,
				Unit:        spec.unit,
				PerServing:  nutrients.PerServing(in.Per100.Get(spec.key), in.ServingSize),
				Decimals:    spec.decimals,
			})
		}
	}

	return Label{
		ProductName:          in.ProductName,
		ServingText:          ServingText(in.ServingDescription, in.ServingSize),
		ServingSize:          in.ServingSize,
		ServingsPerContainer: in.ServingsPerContainer,
		Rows:                 rows,
		Micronutrients:       micros,
	}
}

// ServingText renders "{description} ({size} g/ml)", or "{size} g/ml" without a description
func ServingText(description string, size float64) string {
	description = strings.TrimSpace(description)
	amount := FormatQuantity(size) + " g/ml"
	if description == "" {
		return amount
	}
	return fmt.Sprintf("%s (%s)", description, amount)
}

// FormatQuantity prints a g/ml quantity without trailing zeros
func FormatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

func formatFixed(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}
