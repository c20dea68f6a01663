package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lrdgdown-eng/etiquetado/internal/label"
	"github.com/lrdgdown-eng/etiquetado/internal/nutrients"
	"github.com/lrdgdown-eng/etiquetado/internal/server"
)

// parseNutrientValues reads repeated key=value pairs. Keys are standard
// nutrient keys or table headers.
func parseNutrientValues(pairs []string) (nutrients.Profile, error) {
	profile := nutrients.Profile{}
	for _, pair := range pairs {
		i := strings.LastIndex(pair, "=")
		if i <= 0 {
			return nil, fmt.Errorf("invalid value %q: expected nutrient=value", pair)
		}
		key, ok := nutrients.LookupKey(pair[:i])
		if !ok {
			return nil, fmt.Errorf("unknown nutrient %q", strings.TrimSpace(pair[:i]))
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(pair[i+1:]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", key, err)
		}
		profile[key] = v
	}
	return profile, nil
}

func nutrientKeyList() string {
	keys := make([]string, len(nutrients.Standard))
	for i, k := range nutrients.Standard {
		keys[i] = string(k)
	}
	return strings.Join(keys, ", ")
}

func newCustomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "custom",
		Short: "Manage custom foods",
		Long: `Custom foods are stored next to the catalog (CUSTOM_STORE=csv or sqlite)
and are searchable like any catalog food. Values are per 100 g/ml.

Nutrient keys: ` + nutrientKeyList(),
	}

	cmd.AddCommand(newCustomListCmd(), newCustomAddCmd(), newCustomEditCmd(), newCustomDeleteCmd())
	return cmd
}

func newCustomListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List custom foods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *server.App) error {
				foods := app.Calculator().Catalog().Custom()
				if jsonOutput {
					return writeJSON(cmd.OutOrStdout(), foods)
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				for _, f := range foods {
					keys := make([]string, 0, len(f.Nutrients))
					for k, v := range f.Nutrients {
						if v != 0 {
							keys = append(keys, fmt.Sprintf("%s=%s", k, label.FormatQuantity(v)))
						}
					}
					sort.Strings(keys)
					fmt.Fprintf(tw, "%s\t%s\n", f.Name, strings.Join(keys, " "))
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the custom foods as JSON")
	return cmd
}

func newCustomAddCmd() *cobra.Command {
	var values []string

	cmd := &cobra.Command{
		Use:     "add <name>",
		Short:   "Add a custom food",
		Example: `  etiquetado custom add "Queque casero" --set energy=380 --set sugars=30 --set sodium=250`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := parseNutrientValues(values)
			if err != nil {
				return err
			}
			return withApp(cmd, func(app *server.App) error {
				record, err := app.AddCustom(cmd.Context(), args[0], profile)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Added %q\n", record.Name)
				return err
			})
		},
	}

	cmd.Flags().StringArrayVar(&values, "set", nil, "Nutrient value per 100 g/ml as key=value (repeatable)")
	return cmd
}

func newCustomEditCmd() *cobra.Command {
	var (
		rename string
		values []string
	)

	cmd := &cobra.Command{
		Use:   "edit <name>",
		Short: "Rename a custom food or change its values",
		Long: `Edit every custom food with exactly this name. Only the nutrients given
with --set change; the others keep their values.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := parseNutrientValues(values)
			if err != nil {
				return err
			}
			return withApp(cmd, func(app *server.App) error {
				n, err := app.EditCustom(cmd.Context(), args[0], rename, profile)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Edited %d food(s)\n", n)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&rename, "rename", "", "New name")
	cmd.Flags().StringArrayVar(&values, "set", nil, "Nutrient value per 100 g/ml as key=value (repeatable)")
	return cmd
}

func newCustomDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete every custom food with this name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *server.App) error {
				n, err := app.DeleteCustom(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d food(s)\n", n)
				return err
			})
		},
	}
}
