package commands

import (
	"strings"

	"ingredient-engine/internal/core/nutrition"

	"github.com/spf13/cobra"
)

func (c *CLI) newNutritionCmd() *cobra.Command {
	var servings int

	cmd := &cobra.Command{
		Use:     "nutrition <name=quantity>...",
		Short:   "Calculate recipe nutrition from ingredient lines",
		Example: `  ingredientctl nutrition --servings 2 "ức gà=500g" "hành lá=2 muỗng canh"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines := ParseLines(args)
			return c.withApp(cmd, func(a Application) error {
				res, err := a.Aggregate(cmd.Context(), lines, servings)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().IntVarP(&servings, "servings", "s", 0, "Number of servings for per-serving totals")

	return cmd
}

// ParseLines 將 "名稱=數量" 參數轉成食材行，沒有 "=" 時數量留空（預設 100 克）
func ParseLines(args []string) []nutrition.Line {
	lines := make([]nutrition.Line, 0, len(args))
	for _, arg := range args {
		name, quantity, _ := strings.Cut(arg, "=")
		lines = append(lines, nutrition.Line{
			SourceText:   strings.TrimSpace(name),
			QuantityText: strings.TrimSpace(quantity),
		})
	}
	return lines
}
