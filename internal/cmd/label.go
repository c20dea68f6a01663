package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lrdgdown-eng/etiquetado/internal/calculator"
	"github.com/lrdgdown-eng/etiquetado/internal/catalog"
	"github.com/lrdgdown-eng/etiquetado/internal/label"
	"github.com/lrdgdown-eng/etiquetado/internal/nutrients"
	"github.com/lrdgdown-eng/etiquetado/internal/server"
	"github.com/lrdgdown-eng/etiquetado/internal/warning"
)

// servingFlags are the label options shared by label and prepare
type servingFlags struct {
	size         float64
	servings     int
	description  string
	productType  string
	fatBreakdown bool
	fiber        bool
	micros       bool
	simplified   bool
	jsonOutput   bool
}

func (f *servingFlags) register(cmd *cobra.Command, defaultSize float64, sizeUsage string) {
	flags := cmd.Flags()
	flags.Float64Var(&f.size, "size", defaultSize, sizeUsage)
	flags.IntVar(&f.servings, "servings", 1, "Servings per container")
	flags.StringVar(&f.description, "description", calculator.DefaultServingDescription, "Household measure printed before the serving size")
	flags.StringVarP(&f.productType, "type", "t", string(warning.Solid), "Product type for the warning thresholds: solid or liquid")
	flags.BoolVar(&f.fatBreakdown, "fat-breakdown", false, "Show monounsaturated, polyunsaturated and trans fat rows")
	flags.BoolVar(&f.fiber, "fiber", false, "Show the dietary fiber row")
	flags.BoolVar(&f.micros, "micros", false, "Show micronutrients per serving")
	flags.BoolVar(&f.simplified, "simplified", false, "Print the simplified label table instead of the full label")
	flags.BoolVar(&f.jsonOutput, "json", false, "Print the full result as JSON")
}

func (f *servingFlags) request() (calculator.ServingRequest, error) {
	productType, err := warning.ParseProductType(f.productType)
	if err != nil {
		return calculator.ServingRequest{}, err
	}
	if f.size < 0 {
		return calculator.ServingRequest{}, fmt.Errorf("invalid --size %v: must be >= 0", f.size)
	}
	return calculator.ServingRequest{
		ServingSize:          f.size,
		ServingsPerContainer: f.servings,
		ServingDescription:   f.description,
		ProductType:          productType,
		Options: label.Options{
			FatBreakdown:   f.fatBreakdown,
			Fiber:          f.fiber,
			Micronutrients: f.micros,
		},
	}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printOutput writes the label followed by the warning seals
func printOutput(w io.Writer, out calculator.Output, simplified bool) error {
	var err error
	if simplified {
		err = label.RenderSimplified(w, out.Simplified)
	} else {
		err = label.Render(w, out.Label)
	}
	if err != nil {
		return fmt.Errorf("failed to render label: %w", err)
	}

	fmt.Fprintln(w)
	if len(out.WarningTexts) == 0 {
		_, err = fmt.Fprintln(w, "Sin sellos de advertencia")
		return err
	}
	for _, text := range out.WarningTexts {
		if _, err := fmt.Fprintf(w, "[%s]\n", text); err != nil {
			return err
		}
	}
	return nil
}

// printFood writes the per-100 values of the catalog columns
func printFood(w io.Writer, food catalog.FoodRecord, columns []nutrients.Key) error {
	fmt.Fprintf(w, "%s (por 100 g/ml)\n", food.Name)
	per100 := food.Per100()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, k := range columns {
		fmt.Fprintf(tw, "%s\t%s\n", nutrients.Header(k), label.FormatQuantity(nutrients.RoundTo(per100.Get(k), calculator.ResultDecimals)))
	}
	return tw.Flush()
}

func newSearchCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find the first food whose name contains the query",
		Long: `Find the first food, in table order, whose name contains the query.
Accents and case are ignored, so "platano" finds "Plátano".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return withApp(cmd, func(app *server.App) error {
				calc := app.Calculator()
				food, err := calc.Search(query)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd.OutOrStdout(), food)
				}
				return printFood(cmd.OutOrStdout(), food, calc.Catalog().Columns())
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the food record as JSON")
	return cmd
}

func newFoodsCmd() *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "foods",
		Short: "List the foods that can be used in preparations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *server.App) error {
				names := catalog.FilterNames(app.Calculator().Catalog().SelectableNames(), filter)
				for _, name := range names {
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Only names containing this text (accents and case ignored)")
	return cmd
}

func newLabelCmd() *cobra.Command {
	var flags servingFlags

	cmd := &cobra.Command{
		Use:   "label <query>",
		Short: "Print the nutrition facts label for one food",
		Long: `Print the nutrition facts label and ALTO EN warnings for the first food
matching the query, for the given serving size in g/ml.`,
		Example: `  etiquetado label platano --size 120
  etiquetado label "leche entera" --size 200 --type liquid --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request()
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")
			return withApp(cmd, func(app *server.App) error {
				result, err := app.Calculator().Food(query, req)
				if err != nil {
					return err
				}
				if flags.jsonOutput {
					return writeJSON(cmd.OutOrStdout(), result)
				}
				return printOutput(cmd.OutOrStdout(), result.Output, flags.simplified)
			})
		},
	}

	flags.register(cmd, calculator.DefaultServingSize, "Serving size in g/ml")
	return cmd
}

// parseIngredient reads "name=quantity"; the name may itself contain '='
func parseIngredient(s string) (calculator.IngredientRequest, error) {
	i := strings.LastIndex(s, "=")
	if i <= 0 {
		return calculator.IngredientRequest{}, fmt.Errorf("invalid ingredient %q: expected name=quantity", s)
	}
	quantity, err := strconv.ParseFloat(strings.TrimSpace(s[i+1:]), 64)
	if err != nil {
		return calculator.IngredientRequest{}, fmt.Errorf("invalid quantity in ingredient %q: %w", s, err)
	}
	return calculator.IngredientRequest{Name: strings.TrimSpace(s[:i]), Quantity: quantity}, nil
}

func newPrepareCmd() *cobra.Command {
	var (
		flags       servingFlags
		name        string
		ingredients []string
	)

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Print the nutrition facts label for a preparation",
		Long: `Print the nutrition facts label and ALTO EN warnings for a preparation made
of catalog foods. Ingredient names must match a catalog name exactly (see "foods").
Without --size the serving is the whole preparation.`,
		Example: `  etiquetado prepare --name "Batido" -i "Plátano=100" -i "Leche entera=200" --size 250`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request()
			if err != nil {
				return err
			}
			prep := calculator.PreparationRequest{Name: name, Serving: req}
			for _, raw := range ingredients {
				in, err := parseIngredient(raw)
				if err != nil {
					return err
				}
				prep.Ingredients = append(prep.Ingredients, in)
			}

			return withApp(cmd, func(app *server.App) error {
				result, err := app.Calculator().Preparation(prep)
				if err != nil {
					return err
				}
				if flags.jsonOutput {
					return writeJSON(cmd.OutOrStdout(), result)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Peso total: %s g/ml\n\n", label.FormatQuantity(result.TotalWeight))
				return printOutput(cmd.OutOrStdout(), result.Output, flags.simplified)
			})
		},
	}

	flags.register(cmd, 0, "Serving size in g/ml (default: total weight)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Preparation name printed on the label")
	cmd.Flags().StringArrayVarP(&ingredients, "ingredient", "i", nil, "Ingredient as name=quantity in g/ml (repeatable)")
	cmd.MarkFlagRequired("ingredient")
	return cmd
}
