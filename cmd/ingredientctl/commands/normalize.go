package commands

import (
	"fmt"
	"strings"

	"ingredient-engine/internal/core/ingredient"

	"github.com/spf13/cobra"
)

func (c *CLI) newNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <text>",
		Short: "Print the normalized cache key for an ingredient name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			key := ingredient.Normalize(text)
			if key == "" {
				return ingredient.NewInvalidIngredientError(text, "no usable characters")
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), key)
			return err
		},
	}
}
