// Package nutrients defines nutrient profiles and the linear scaling applied to them.
package nutrients

import (
	"math"
	"strconv"
	"strings"

	"github.com/lrdgdown-eng/etiquetado/internal/textnorm"
)

// Key identifies a nutrient inside a Profile
type Key string

// Nutrient keys understood by the classifier and the label formatter
const (
	Energy             Key = "energy"
	Protein            Key = "protein"
	TotalFat           Key = "totalFat"
	SaturatedFat       Key = "saturatedFat"
	MonounsaturatedFat Key = "monounsaturatedFat"
	PolyunsaturatedFat Key = "polyunsaturatedFat"
	TransFat           Key = "transFat"
	Carbohydrate       Key = "carbohydrate"
	Sugars             Key = "sugars"
	Fiber              Key = "fiber"
	Sodium             Key = "sodium"
	Calcium            Key = "calcium"
	Iron               Key = "iron"
	Zinc               Key = "zinc"
	VitaminD           Key = "vitaminD"
	VitaminB12         Key = "vitaminB12"
	Folate             Key = "folate"
)

// DefaultReferenceQuantity is the g/ml basis assumed when a food has no usable one
const DefaultReferenceQuantity = 100.0

// ReferenceQuantityHeader is the spreadsheet column holding a food's reference quantity
const ReferenceQuantityHeader = "Cantidad(g/ml)"

// Standard lists the known keys in spreadsheet column order
var Standard = []Key{
	Energy, Protein, TotalFat, SaturatedFat, MonounsaturatedFat, PolyunsaturatedFat,
	TransFat, Carbohydrate, Sugars, Fiber, Sodium, Calcium, Iron, Zinc, VitaminD,
	VitaminB12, Folate,
}

var headers = map[Key]string{
	Energy:             "Energía(kcal)",
	Protein:            "Proteínas (g)",
	TotalFat:           "Lípidos totales (g)",
	SaturatedFat:       "AG Sat (g)",
	MonounsaturatedFat: "AG Mono (g)",
	PolyunsaturatedFat: "AG Poli (g)",
	TransFat:           "AG Trans (g)",
	Carbohydrate:       "HdeC disp (g)",
	Sugars:             "Azúcares totales (g)",
	Fiber:              "Fibra Total (g)",
	Sodium:             "Sodio (mg)",
	Calcium:            "Calcio (mg)",
	Iron:               "Hierro (mg)",
	Zinc:               "Zinc (mg)",
	VitaminD:           "Vit D (ug)",
	VitaminB12:         "Vit B12 (ug)",
	Folate:             "Folatos (ug)",
}

// byHeader indexes headers by their normalized form without spaces,
// so "Energía (kcal)" and "energia(kcal)" resolve to the same key
var byHeader = func() map[string]Key {
	index := make(map[string]Key, len(headers))
	for key, header := range headers {
		index[headerKey(header)] = key
	}
	return index
}()

// hidden columns are descriptive spreadsheet columns never shown in results
var hidden = map[string]bool{
	headerKey("Columna1"): true,
	headerKey("Fuente"):   true,
}

func headerKey(header string) string {
	return strings.ReplaceAll(textnorm.Normalize(header), " ", "")
}

// Header returns the spreadsheet header used to persist a key
func Header(k Key) string {
	if h, ok := headers[k]; ok {
		return h
	}
	return string(k)
}

// KeyForHeader maps a table header to a nutrient key. Unknown headers map to
// themselves (trimmed) and report false.
func KeyForHeader(header string) (Key, bool) {
	if key, ok := byHeader[headerKey(header)]; ok {
		return key, true
	}
	return Key(strings.TrimSpace(header)), false
}

// IsReferenceHeader reports whether header names the reference quantity column
func IsReferenceHeader(header string) bool {
	return headerKey(header) == headerKey(ReferenceQuantityHeader)
}

// IsHidden reports whether a column is descriptive and excluded from results views
func IsHidden(k Key) bool {
	return hidden[headerKey(string(k))]
}

// Sanitize forces a value into the profile invariant: finite and non-negative
func Sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// ParseValue coerces a spreadsheet cell to a nutrient value. Blank, non-numeric
// and trace markers ("-", "tr") become 0; a lone comma is read as the decimal separator.
func ParseValue(cell string) float64 {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0
	}
	if strings.Contains(cell, ",") && !strings.Contains(cell, ".") {
		cell = strings.Replace(cell, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0
	}
	return Sanitize(v)
}

// ReferenceOrDefault returns q when it is a usable reference quantity, otherwise 100
func ReferenceOrDefault(q float64) float64 {
	if math.IsNaN(q) || math.IsInf(q, 0) || q <= 0 {
		return DefaultReferenceQuantity
	}
	return q
}

// LookupKey resolves a user-supplied nutrient name: a standard key such as
// "sugars" (case-insensitive) or one of the spreadsheet headers
func LookupKey(name string) (Key, bool) {
	for _, k := range Standard {
		if strings.EqualFold(strings.TrimSpace(name), string(k)) {
			return k, true
		}
	}
	if k, ok := byHeader[headerKey(name)]; ok {
		return k, true
	}
	return "", false
}
