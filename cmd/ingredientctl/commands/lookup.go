package commands

import (
	"strings"

	"github.com/spf13/cobra"
)

func (c *CLI) newLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <text>",
		Short: "Resolve an ingredient through the dictionary, cache and AI fallback",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a Application) error {
				res, err := a.Lookup(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

func (c *CLI) newPromoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote <text>",
		Short: "Move a translation cache entry into the permanent dictionary",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a Application) error {
				res, err := a.Promote(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}
