package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"ingredient-engine/cmd/ingredientctl/commands"
	"ingredient-engine/internal/app"
	"ingredient-engine/internal/core/lookup"
	"ingredient-engine/internal/core/nutrition"
	"ingredient-engine/internal/infrastructure/config"
	"ingredient-engine/internal/pkg/common"
)

var version = "dev"

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := commands.New(openEngine, version)
	cli.SetArgs(args)
	cli.SetOutput(stdout, stderr)

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// openEngine 載入設定並開啟儲存，verbose 時才初始化 logger
func openEngine(ctx context.Context, configFile string, verbose bool) (commands.Application, func() error, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if verbose {
		if err := common.InitLogger(cfg.LogLevel); err != nil {
			return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	return &engine{app: a}, func() error {
		common.Sync()
		return a.Close()
	}, nil
}

type engine struct {
	app *app.App
}

func (e *engine) Lookup(ctx context.Context, sourceText string) (*lookup.Result, error) {
	return e.app.Lookup.Lookup(ctx, sourceText)
}

func (e *engine) Promote(ctx context.Context, sourceText string) (*lookup.Result, error) {
	return e.app.Lookup.Promote(ctx, sourceText)
}

func (e *engine) Aggregate(ctx context.Context, lines []nutrition.Line, servings int) (*nutrition.Result, error) {
	return e.app.Aggregator.Aggregate(ctx, lines, servings)
}
