package catalog

import (
	"strconv"
	"strings"

	"github.com/lrdgdown-eng/etiquetado/internal/nutrients"
	"github.com/lrdgdown-eng/etiquetado/internal/query"
	"github.com/lrdgdown-eng/etiquetado/internal/textnorm"
)

// Column headers of the food name and of the derived search key
const (
	NameHeader           = "Alimento"
	NormalizedNameHeader = "Alimento_normalizado"
)

// FromTable converts an imported table into records and the nutrient column order.
// The first column is the food name whatever its header; every other column is
// numeric with unparseable cells read as 0. Rows without a name are skipped.
func FromTable(table *query.Table, custom bool) ([]FoodRecord, []nutrients.Key) {
	if table == nil || len(table.Columns) == 0 {
		return nil, nil
	}

	refCol := -1
	keys := make([]nutrients.Key, len(table.Columns))
	var columns []nutrients.Key
	for i, header := range table.Columns {
		if i == 0 {
			continue
		}
		switch {
		case nutrients.IsReferenceHeader(header):
			refCol = i
		case textnorm.Normalize(header) == textnorm.Normalize(NormalizedNameHeader):
			// derived column written by older stores
		default:
			key, _ := nutrients.KeyForHeader(header)
			if key == "" || nutrients.IsHidden(key) {
				continue
			}
			keys[i] = key
			columns = append(columns, key)
		}
	}

	records := make([]FoodRecord, 0, len(table.Rows))
	for r := range table.Rows {
		name := strings.TrimSpace(table.Cell(r, 0))
		if name == "" {
			continue
		}

		reference := nutrients.DefaultReferenceQuantity
		if refCol >= 0 {
			reference = nutrients.ParseValue(table.Cell(r, refCol))
		}

		profile := nutrients.Profile{}
		for c, key := range keys {
			if key == "" {
				continue
			}
			profile[key] += nutrients.ParseValue(table.Cell(r, c))
		}
		records = append(records, NewFoodRecord(name, reference, profile, custom))
	}
	return records, columns
}

// ToTable writes records in the persisted column shape: name, reference
// quantity, then one column per nutrient key in columns order
func ToTable(records []FoodRecord, columns []nutrients.Key) *query.Table {
	if len(columns) == 0 {
		columns = nutrients.Standard
	}

	header := []string{NameHeader, nutrients.ReferenceQuantityHeader}
	for _, key := range columns {
		header = append(header, nutrients.Header(key))
	}

	table := &query.Table{Columns: header}
	for _, f := range records {
		row := []string{f.Name, formatNumber(f.Reference())}
		for _, key := range columns {
			row = append(row, formatNumber(f.Nutrients.Get(key)))
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
