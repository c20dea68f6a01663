package mcpgo

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/lrdgdown-eng/etiquetado/internal/calculator"
	"github.com/lrdgdown-eng/etiquetado/internal/catalog"
	"github.com/lrdgdown-eng/etiquetado/internal/label"
	"github.com/lrdgdown-eng/etiquetado/internal/nutrients"
	"github.com/lrdgdown-eng/etiquetado/internal/warning"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// SearchFoodResponse is the result of search_food
type SearchFoodResponse struct {
	Found  bool                `json:"found"`
	Food   *catalog.FoodRecord `json:"food,omitempty"`
	Per100 nutrients.Profile   `json:"per_100,omitempty"`
}

// ListFoodsResponse is the result of list_foods
type ListFoodsResponse struct {
	Count int      `json:"count"`
	Total int      `json:"total"`
	Names []string `json:"names"`
}

// CustomFoodResponse is the result of the custom food tools
type CustomFoodResponse struct {
	Name     string              `json:"name"`
	Affected int                 `json:"affected"`
	Food     *catalog.FoodRecord `json:"food,omitempty"`
}

// preparationArgs binds the preparation_label arguments
type preparationArgs struct {
	Name                 string                         `json:"name"`
	Ingredients          []calculator.IngredientRequest `json:"ingredients"`
	ServingSize          float64                        `json:"serving_size"`
	ServingsPerContainer int                            `json:"servings_per_container"`
	ServingDescription   string                         `json:"serving_description"`
	ProductType          string                         `json:"product_type"`
	FatBreakdown         bool                           `json:"fat_breakdown"`
	Fiber                bool                           `json:"fiber"`
	Micronutrients       bool                           `json:"micronutrients"`
}

// customFoodArgs binds the add/edit custom food arguments
type customFoodArgs struct {
	Name      string             `json:"name"`
	NewName   string             `json:"new_name"`
	Nutrients map[string]float64 `json:"nutrients"`
}

func servingOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("servings_per_container",
			mcp.Description("Servings per container (default: 1)"),
			mcp.DefaultNumber(1),
			mcp.Min(1),
		),
		mcp.WithString("serving_description",
			mcp.Description("Household measure, e.g. '1 taza' (default: '1 porción')"),
		),
		mcp.WithString("product_type",
			mcp.Description("Selects the warning thresholds: per 100 g for solids, per 100 ml for liquids"),
			mcp.Enum("solid", "liquid"),
			mcp.DefaultString("solid"),
		),
		mcp.WithBoolean("fat_breakdown",
			mcp.Description("Show monounsaturated, polyunsaturated and trans fat rows"),
		),
		mcp.WithBoolean("fiber",
			mcp.Description("Show the dietary fiber row"),
		),
		mcp.WithBoolean("micronutrients",
			mcp.Description("Show calcium, iron, zinc, vitamin D, vitamin B12 and folate per serving"),
		),
	}
}

func nutrientsProperty() mcp.PropertyOption {
	names := make([]string, len(nutrients.Standard))
	for i, k := range nutrients.Standard {
		names[i] = string(k)
	}
	return mcp.Description(fmt.Sprintf("Nutrient values per 100 g/ml keyed by nutrient (%v). Values must be >= 0.", names))
}

func (s *Server) addTools() {
	searchTool := mcp.NewTool("search_food",
		mcp.WithDescription("Find the first catalog food whose name contains the query, ignoring accents and case."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.Description("Text to search for in food names"),
		),
		mcp.WithOutputSchema[SearchFoodResponse](),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.mcpServer.AddTool(searchTool, s.handleSearchFood)

	listTool := mcp.NewTool("list_foods",
		mcp.WithDescription("List selectable food names in alphabetical order, optionally filtered by a substring."),
		mcp.WithString("filter",
			mcp.Description("Optional substring, accents and case ignored"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of names (default: 50, max: 500)"),
			mcp.DefaultNumber(defaultListLimit),
			mcp.Min(1),
			mcp.Max(maxListLimit),
		),
		mcp.WithOutputSchema[ListFoodsResponse](),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.mcpServer.AddTool(listTool, s.handleListFoods)

	foodOpts := []mcp.ToolOption{
		mcp.WithDescription("Compute the nutrition facts label and ALTO EN warnings for one food and a serving size."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.Description("Food name or part of it"),
		),
		mcp.WithNumber("serving_size",
			mcp.Description("Serving size in g/ml (default: 100)"),
			mcp.DefaultNumber(calculator.DefaultServingSize),
			mcp.Min(1),
		),
	}
	foodOpts = append(foodOpts, servingOptions()...)
	foodOpts = append(foodOpts,
		mcp.WithOutputSchema[calculator.FoodResult](),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.mcpServer.AddTool(mcp.NewTool("food_label", foodOpts...), s.handleFoodLabel)

	prepOpts := []mcp.ToolOption{
		mcp.WithDescription("Compute the nutrition facts label and ALTO EN warnings for a preparation made of catalog foods. Ingredient names must match catalog names exactly."),
		mcp.WithString("name",
			mcp.Description("Preparation name printed on the label"),
		),
		mcp.WithArray("ingredients",
			mcp.Required(),
			mcp.MinItems(1),
			mcp.Description("Ingredients with their quantity in g/ml"),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":     map[string]any{"type": "string", "description": "Exact catalog food name"},
					"quantity": map[string]any{"type": "number", "minimum": 0, "description": "Quantity in g/ml"},
				},
				"required": []string{"name", "quantity"},
			}),
		),
		mcp.WithNumber("serving_size",
			mcp.Description("Serving size in g/ml (default: total weight, or 200 when it is 0)"),
		),
	}
	prepOpts = append(prepOpts, servingOptions()...)
	prepOpts = append(prepOpts,
		mcp.WithOutputSchema[calculator.PreparationResult](),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.mcpServer.AddTool(mcp.NewTool("preparation_label", prepOpts...), s.handlePreparationLabel)

	addTool := mcp.NewTool("add_custom_food",
		mcp.WithDescription("Add a custom food to the catalog. Values are per 100 g/ml."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.Description("Food name"),
		),
		mcp.WithObject("nutrients", nutrientsProperty()),
		mcp.WithOutputSchema[CustomFoodResponse](),
	)
	s.mcpServer.AddTool(addTool, s.handleAddCustomFood)

	editTool := mcp.NewTool("edit_custom_food",
		mcp.WithDescription("Edit every custom food with this exact name: rename it and/or replace the given nutrient values."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.Description("Current food name"),
		),
		mcp.WithString("new_name",
			mcp.Description("New name (default: unchanged)"),
		),
		mcp.WithObject("nutrients", nutrientsProperty()),
		mcp.WithOutputSchema[CustomFoodResponse](),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.mcpServer.AddTool(editTool, s.handleEditCustomFood)

	deleteTool := mcp.NewTool("delete_custom_food",
		mcp.WithDescription("Delete every custom food with this exact name."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.Description("Food name"),
		),
		mcp.WithOutputSchema[CustomFoodResponse](),
		mcp.WithDestructiveHintAnnotation(true),
	)
	s.mcpServer.AddTool(deleteTool, s.handleDeleteCustomFood)
}

// structuredResult returns both structured content and a JSON text fallback
func (s *Server) structuredResult(tool string, response any) *mcp.CallToolResult {
	responseJSON, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		s.log.Error("Failed to marshal response", "tool", tool, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal response: %v", err))
	}

	s.log.Debug("Returning structured result", "tool", tool, "response_size", len(responseJSON))
	return mcp.NewToolResultStructured(response, string(responseJSON))
}

func servingFrom(request mcp.CallToolRequest, servingSize float64) (calculator.ServingRequest, error) {
	productType, err := warning.ParseProductType(request.GetString("product_type", string(warning.Solid)))
	if err != nil {
		return calculator.ServingRequest{}, err
	}
	return calculator.ServingRequest{
		ServingSize:          servingSize,
		ServingsPerContainer: request.GetInt("servings_per_container", 1),
		ServingDescription:   request.GetString("serving_description", ""),
		ProductType:          productType,
		Options: label.Options{
			FatBreakdown:   request.GetBool("fat_breakdown", false),
			Fiber:          request.GetBool("fiber", false),
			Micronutrients: request.GetBool("micronutrients", false),
		},
	}, nil
}

func parseNutrients(raw map[string]float64) (nutrients.Profile, error) {
	profile := nutrients.Profile{}
	unknown := []string{}
	for name, v := range raw {
		key, ok := nutrients.LookupKey(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		profile[key] = v
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown nutrients: %v", unknown)
	}
	return profile, nil
}

func (s *Server) handleSearchFood(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil || query == "" {
		s.log.Warn("handleSearchFood: Missing 'query' parameter", "error", err)
		return mcp.NewToolResultError("Missing required parameter 'query'"), nil
	}

	s.log.Debug("MCP SearchFood called", "query", query)

	response := SearchFoodResponse{}
	if food, err := s.app.Calculator().Search(query); err == nil {
		response.Found = true
		response.Food = &food
		response.Per100 = food.Per100()
	}

	return s.structuredResult("search_food", response), nil
}

func (s *Server) handleListFoods(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := request.GetString("filter", "")
	limit := request.GetInt("limit", defaultListLimit)
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	s.log.Debug("MCP ListFoods called", "filter", filter, "limit", limit)

	names := catalog.FilterNames(s.app.Calculator().Catalog().SelectableNames(), filter)
	total := len(names)
	if len(names) > limit {
		names = names[:limit]
	}

	return s.structuredResult("list_foods", ListFoodsResponse{Count: len(names), Total: total, Names: names}), nil
}

func (s *Server) handleFoodLabel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil || query == "" {
		s.log.Warn("handleFoodLabel: Missing 'query' parameter", "error", err)
		return mcp.NewToolResultError("Missing required parameter 'query'"), nil
	}

	serving, err := servingFrom(request, request.GetFloat("serving_size", calculator.DefaultServingSize))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.log.Debug("MCP FoodLabel called", "query", query, "serving_size", serving.ServingSize)

	result, err := s.app.Calculator().Food(query, serving)
	if err != nil {
		s.log.Info("Food label failed", "query", query, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Food label failed: %v", err)), nil
	}

	return s.structuredResult("food_label", result), nil
}

func (s *Server) handlePreparationLabel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args preparationArgs
	if err := request.BindArguments(&args); err != nil {
		s.log.Warn("handlePreparationLabel: Invalid arguments", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
	}

	serving, err := servingFrom(request, args.ServingSize)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.log.Debug("MCP PreparationLabel called", "name", args.Name, "ingredients", len(args.Ingredients))

	result, err := s.app.Calculator().Preparation(calculator.PreparationRequest{
		Name:        args.Name,
		Ingredients: args.Ingredients,
		Serving:     serving,
	})
	if err != nil {
		s.log.Info("Preparation label failed", "name", args.Name, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Preparation label failed: %v", err)), nil
	}

	return s.structuredResult("preparation_label", result), nil
}

func (s *Server) bindCustomFood(request mcp.CallToolRequest) (customFoodArgs, nutrients.Profile, error) {
	var args customFoodArgs
	if err := request.BindArguments(&args); err != nil {
		return args, nil, fmt.Errorf("invalid arguments: %w", err)
	}
	profile, err := parseNutrients(args.Nutrients)
	if err != nil {
		return args, nil, err
	}
	return args, profile, nil
}

func (s *Server) handleAddCustomFood(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, profile, err := s.bindCustomFood(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	record, err := s.app.AddCustom(ctx, args.Name, profile)
	if err != nil {
		s.log.Warn("Add custom food failed", "name", args.Name, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Add custom food failed: %v", err)), nil
	}

	s.log.Info("Custom food added", "name", record.Name)
	return s.structuredResult("add_custom_food", CustomFoodResponse{Name: record.Name, Affected: 1, Food: &record}), nil
}

func (s *Server) handleEditCustomFood(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, profile, err := s.bindCustomFood(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	n, err := s.app.EditCustom(ctx, args.Name, args.NewName, profile)
	if err != nil {
		s.log.Warn("Edit custom food failed", "name", args.Name, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Edit custom food failed: %v", err)), nil
	}

	name := args.NewName
	if name == "" {
		name = args.Name
	}
	s.log.Info("Custom food edited", "name", args.Name, "new_name", name, "affected", n)
	return s.structuredResult("edit_custom_food", CustomFoodResponse{Name: name, Affected: n}), nil
}

func (s *Server) handleDeleteCustomFood(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil || name == "" {
		return mcp.NewToolResultError("Missing required parameter 'name'"), nil
	}

	n, err := s.app.DeleteCustom(ctx, name)
	if err != nil {
		s.log.Warn("Delete custom food failed", "name", name, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Delete custom food failed: %v", err)), nil
	}

	s.log.Info("Custom food deleted", "name", name, "affected", n)
	return s.structuredResult("delete_custom_food", CustomFoodResponse{Name: name, Affected: n}), nil
}
