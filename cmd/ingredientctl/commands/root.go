// Package commands 實作 ingredientctl 的子命令。
package commands

import (
	"context"
	"encoding/json"
	"io"

	"ingredient-engine/internal/core/lookup"
	"ingredient-engine/internal/core/nutrition"

	"github.com/spf13/cobra"
)

// Application 命令需要的服務
type Application interface {
	Lookup(ctx context.Context, sourceText string) (*lookup.Result, error)
	Promote(ctx context.Context, sourceText string) (*lookup.Result, error)
	Aggregate(ctx context.Context, lines []nutrition.Line, servings int) (*nutrition.Result, error)
}

// Factory 依設定檔路徑建立服務，回傳的 close 函式由命令結束時呼叫
type Factory func(ctx context.Context, configFile string, verbose bool) (Application, func() error, error)

// CLI ingredientctl 命令列介面
type CLI struct {
	factory    Factory
	rootCmd    *cobra.Command
	configFile string
	verbose    bool
}

// New 創建命令列介面
func New(factory Factory, version string) *CLI {
	rootCmd := &cobra.Command{
		Use:           "ingredientctl",
		Short:         "Inspect and operate the ingredient translation cache",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	c := &CLI{
		factory: factory,
		rootCmd: rootCmd,
	}
	rootCmd.PersistentFlags().StringVarP(&c.configFile, "config", "c", "", "Path to a config file (default: ./config.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Write service logs to stdout and logs/app.log")

	rootCmd.AddCommand(c.newNormalizeCmd())
	rootCmd.AddCommand(c.newLookupCmd())
	rootCmd.AddCommand(c.newNutritionCmd())
	rootCmd.AddCommand(c.newPromoteCmd())

	return c
}

// Execute 以指定的 context 執行命令
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs 設定命令參數（測試用）
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput 設定輸出（測試用）
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// withApp 建立服務、執行 fn，結束時釋放資源
func (c *CLI) withApp(cmd *cobra.Command, fn func(Application) error) (err error) {
	a, closeFn, err := c.factory(cmd.Context(), c.configFile, c.verbose)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeFn(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(a)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
