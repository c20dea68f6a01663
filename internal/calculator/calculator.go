// Package calculator runs the label pipeline: search, scale, classify and format.
package calculator

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lrdgdown-eng/etiquetado/internal/catalog"
	"github.com/lrdgdown-eng/etiquetado/internal/label"
	"github.com/lrdgdown-eng/etiquetado/internal/nutrients"
	"github.com/lrdgdown-eng/etiquetado/internal/prep"
	"github.com/lrdgdown-eng/etiquetado/internal/warning"
)

// ErrFoodNotFound is returned when a query or ingredient name matches no food
var ErrFoodNotFound = errors.New("food not found")

const (
	// DefaultServingSize is used when a single-food request declares no serving
	DefaultServingSize = 100.0
	// DefaultServingDescription is the household measure offered by default
	DefaultServingDescription = "1 porción"
	// ResultDecimals is the rounding of the per-serving results view
	ResultDecimals = 2
)

// ServingRequest describes how a food or preparation is served and labelled
type ServingRequest struct {
	ServingSize          float64             `json:"serving_size"`
	ServingsPerContainer int                 `json:"servings_per_container"`
	ServingDescription   string              `json:"serving_description"`
	ProductType          warning.ProductType `json:"product_type"`
	Options              label.Options       `json:"options"`
}

// IngredientRequest names a catalog food and the g/ml of it used
type IngredientRequest struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
}

// PreparationRequest is a named dish built from catalog foods. A zero
// ServingSize falls back to the preparation's default serving.
type PreparationRequest struct {
	Name        string              `json:"name"`
	Ingredients []IngredientRequest `json:"ingredients"`
	Serving     ServingRequest      `json:"serving"`
}

// ResultRow is one column of the per-serving results view
type ResultRow struct {
	Key    nutrients.Key `json:"key"`
	Header string        `json:"header"`
	Value  float64       `json:"value"`
}

// Output is the result set shared by single foods and preparations
type Output struct {
	ServingSize  float64               `json:"serving_size"`
	Per100       nutrients.Profile     `json:"per_100"`
	PerServing   nutrients.Profile     `json:"per_serving"`
	Results      []ResultRow           `json:"results"`
	Warnings     []warning.Label       `json:"warnings"`
	WarningTexts []string              `json:"warning_texts"`
	Label        label.Label           `json:"label"`
	Simplified   label.SimplifiedLabel `json:"simplified"`
}

// FoodResult is the outcome of a single-food request
type FoodResult struct {
	Food catalog.FoodRecord `json:"food"`
	Output
}

// PreparationResult is the outcome of a preparation request
type PreparationResult struct {
	Name        string            `json:"name"`
	Ingredients []prep.Ingredient `json:"ingredients"`
	TotalWeight float64           `json:"total_weight"`
	Total       nutrients.Profile `json:"total"`
	Output
}

// Calculator binds a catalog and a classifier. It holds no mutable state;
// use WithCatalog to get a calculator over a rebuilt catalog.
type Calculator struct {
	catalog    *catalog.Catalog
	classifier *warning.Classifier
	log        *slog.Logger
}

// New creates a calculator
func New(cat *catalog.Catalog, classifier *warning.Classifier, logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{catalog: cat, classifier: classifier, log: logger}
}

// WithCatalog returns a calculator sharing c's classifier over cat
func (c *Calculator) WithCatalog(cat *catalog.Catalog) *Calculator {
	return &Calculator{catalog: cat, classifier: c.classifier, log: c.log}
}

// Catalog returns the catalog the calculator searches
func (c *Calculator) Catalog() *catalog.Catalog {
	return c.catalog
}

// Classifier returns the warning classifier in use
func (c *Calculator) Classifier() *warning.Classifier {
	return c.classifier
}

// Search returns the first food matching query
func (c *Calculator) Search(query string) (catalog.FoodRecord, error) {
	food, ok := c.catalog.Find(query)
	if !ok {
		return catalog.FoodRecord{}, fmt.Errorf("%w: %q", ErrFoodNotFound, query)
	}
	return food, nil
}

// Food computes the per-serving values, warnings and labels for the first food matching query
func (c *Calculator) Food(query string, req ServingRequest) (*FoodResult, error) {
	start := time.Now()
	c.log.Debug("Computing food label", "query", query, "serving_size", req.ServingSize)

	food, err := c.Search(query)
	if err != nil {
		c.log.Info("No food matched", "query", query)
		return nil, err
	}

	req, err = withDefaults(req, DefaultServingSize)
	if err != nil {
		return nil, err
	}
	per100 := food.Per100()
	out := c.output(food.Name, per100, req)

	c.log.Info("Computed food label",
		"food", food.Name,
		"serving_size", req.ServingSize,
		"warnings", len(out.Warnings),
		"duration", time.Since(start))

	return &FoodResult{Food: food, Output: out}, nil
}

// Preparation resolves the ingredients by exact name and computes the composite label
func (c *Calculator) Preparation(req PreparationRequest) (*PreparationResult, error) {
	start := time.Now()
	c.log.Debug("Computing preparation label", "name", req.Name, "ingredients", len(req.Ingredients))

	ingredients := make([]prep.Ingredient, 0, len(req.Ingredients))
	for _, in := range req.Ingredients {
		food, ok := c.catalog.Lookup(in.Name)
		if !ok {
			return nil, fmt.Errorf("%w: ingredient %q", ErrFoodNotFound, in.Name)
		}
		ingredients = append(ingredients, prep.Ingredient{Food: food, Quantity: in.Quantity})
	}

	result, err := prep.Compute(prep.Preparation{
		Name:                 req.Name,
		Ingredients:          ingredients,
		ServingSize:          req.Serving.ServingSize,
		ServingsPerContainer: req.Serving.ServingsPerContainer,
		ServingDescription:   req.Serving.ServingDescription,
	})
	if err != nil {
		c.log.Error("Invalid preparation", "name", req.Name, "error", err)
		return nil, fmt.Errorf("failed to compute preparation: %w", err)
	}

	serving, err := withDefaults(req.Serving, result.ServingSize)
	if err != nil {
		return nil, err
	}
	out := c.output(strings.TrimSpace(req.Name), result.Per100, serving)

	c.log.Info("Computed preparation label",
		"name", req.Name,
		"total_weight", result.TotalWeight,
		"serving_size", serving.ServingSize,
		"warnings", len(out.Warnings),
		"duration", time.Since(start))

	return &PreparationResult{
		Name:        req.Name,
		Ingredients: ingredients,
		TotalWeight: result.TotalWeight,
		Total:       result.Total,
		Output:      out,
	}, nil
}

func withDefaults(req ServingRequest, servingSize float64) (ServingRequest, error) {
	if req.ServingSize <= 0 {
		req.ServingSize = servingSize
	}
	if req.ServingsPerContainer < 1 {
		req.ServingsPerContainer = 1
	}
	if strings.TrimSpace(req.ServingDescription) == "" {
		req.ServingDescription = DefaultServingDescription
	}
	if req.ProductType == "" {
		req.ProductType = warning.Solid
	}
	pt, err := warning.ParseProductType(string(req.ProductType))
	if err != nil {
		return req, err
	}
	req.ProductType = pt
	return req, nil
}

func (c *Calculator) output(name string, per100 nutrients.Profile, req ServingRequest) Output {
	perServing := nutrients.Scale(per100, 100, req.ServingSize)
	rounded := perServing.Round(ResultDecimals)
	labels := c.classifier.Classify(per100, req.ProductType)

	structured := label.Format(label.Input{
		ProductName:          name,
		Per100:               per100,
		PerServing:           perServing,
		ServingSize:          req.ServingSize,
		ServingsPerContainer: req.ServingsPerContainer,
		ServingDescription:   req.ServingDescription,
		Options:              req.Options,
	})

	simplified := label.Simplified(label.SimplifiedInput{
		ProductName:          name,
		ServingSize:          req.ServingSize,
		ServingsPerContainer: req.ServingsPerContainer,
		ServingText:          structured.ServingText,
		PerServing:           rounded,
		Per100:               per100,
		IncludeFiber:         req.Options.Fiber,
		IncludeTrans:         req.Options.FatBreakdown,
	})

	return Output{
		ServingSize:  req.ServingSize,
		Per100:       per100,
		PerServing:   perServing,
		Results:      c.resultsView(rounded),
		Warnings:     labels,
		WarningTexts: warning.Texts(labels),
		Label:        structured,
		Simplified:   simplified,
	}
}

// resultsView lists every visible catalog column with its rounded per-serving value
func (c *Calculator) resultsView(rounded nutrients.Profile) []ResultRow {
	columns := c.catalog.Columns()
	rows := make([]ResultRow, 0, len(columns))
	for _, key := range columns {
		if nutrients.IsHidden(key) {
			continue
		}
		rows = append(rows, ResultRow{Key: key, Header: nutrients.Header(key), Value: rounded.Get(key)})
	}
	return rows
}
