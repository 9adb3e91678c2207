// Package nutrition 將食譜食材逐行解析後換算成整份與每人份的營養總和。
package nutrition

import (
	"context"
	"fmt"
	"strings"

	"ingredient-engine/internal/core/ingredient"
	"ingredient-engine/internal/core/lookup"
	"ingredient-engine/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency 同時解析的食材行數
const DefaultConcurrency = 8

// 缺漏原因
const (
	ReasonNoNutrition = "no_nutrition_data"
	ReasonEmptyLine   = "empty_line"
)

// Resolver 解析單一食材名稱
type Resolver interface {
	Lookup(ctx context.Context, sourceText string) (*lookup.Result, error)
}

// Line 一行食材輸入
type Line struct {
	SourceText   string `json:"source_text"`
	QuantityText string `json:"quantity_text"`
}

// LineResult 一行食材的換算結果
type LineResult struct {
	SourceText    string                 `json:"source_text"`
	QuantityText  string                 `json:"quantity_text"`
	NormalizedKey string                 `json:"normalized_key"`
	Translation   ingredient.Translation `json:"translation"`
	Provenance    ingredient.Provenance  `json:"provenance"`
	Quantity      Quantity               `json:"quantity"`
	Grams         float64                `json:"grams"`
	Nutrition     ingredient.Nutrition   `json:"nutrition"`
}

// MissingIngredient 無法計入總和的食材
type MissingIngredient struct {
	SourceText string `json:"source_text"`
	Reason     string `json:"reason"`
}

// ProvenanceCounts 各來源的解析行數
type ProvenanceCounts struct {
	Dictionary int `json:"dictionary"`
	Cache      int `json:"cache"`
	AI         int `json:"ai"`
}

// Result 彙總結果
type Result struct {
	PerRecipe        ingredient.Nutrition  `json:"per_recipe"`
	PerServing       *ingredient.Nutrition `json:"per_serving,omitempty"`
	Servings         int                   `json:"servings,omitempty"`
	Breakdown        []LineResult          `json:"breakdown"`
	Missing          []MissingIngredient   `json:"missing_ingredients,omitempty"`
	ProvenanceCounts ProvenanceCounts      `json:"provenance_counts"`
}

// Options 彙總設定
type Options struct {
	Concurrency int
	Units       *UnitTable
}

// Aggregator 營養彙總器
type Aggregator struct {
	resolver    Resolver
	units       *UnitTable
	concurrency int
}

// NewAggregator 創建營養彙總器，未指定換算表時使用內嵌的預設表
func NewAggregator(resolver Resolver, opts Options) (*Aggregator, error) {
	units := opts.Units
	if units == nil {
		var err error
		units, err = DefaultUnits()
		if err != nil {
			return nil, err
		}
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Aggregator{
		resolver:    resolver,
		units:       units,
		concurrency: concurrency,
	}, nil
}

type lineOutcome struct {
	result  *LineResult
	missing *MissingIngredient
}

// Aggregate 解析所有食材並加總。單行失敗只會列入缺漏，不會讓整體失敗。
func (a *Aggregator) Aggregate(ctx context.Context, lines []Line, servings int) (*Result, error) {
	outcomes := make([]lineOutcome, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, line := range lines {
		g.Go(func() error {
			outcomes[i] = a.resolveLine(gctx, line)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("nutrition aggregation interrupted: %w", err)
	}

	res := &Result{Breakdown: make([]LineResult, 0, len(lines))}
	var total ingredient.Nutrition
	for _, o := range outcomes {
		if o.missing != nil {
			res.Missing = append(res.Missing, *o.missing)
		}
		if o.result == nil {
			continue
		}
		switch o.result.Provenance {
		case ingredient.ProvenanceDictionary:
			res.ProvenanceCounts.Dictionary++
		case ingredient.ProvenanceCache:
			res.ProvenanceCounts.Cache++
		case ingredient.ProvenanceAI:
			res.ProvenanceCounts.AI++
		}
		if o.missing != nil {
			continue
		}
		total = total.Add(o.result.Nutrition)
		res.Breakdown = append(res.Breakdown, *o.result)
	}

	res.PerRecipe = total.Round()
	if servings > 0 {
		per := total.Scale(1 / float64(servings)).Round()
		res.PerServing = &per
		res.Servings = servings
	}

	common.LogDebug("Nutrition aggregated",
		zap.Int("lines", len(lines)),
		zap.Int("resolved", len(res.Breakdown)),
		zap.Int("missing", len(res.Missing)),
	)
	return res, nil
}

// resolveLine 解析單行；成功但沒有營養資料時同時回傳結果與缺漏
func (a *Aggregator) resolveLine(ctx context.Context, line Line) lineOutcome {
	if strings.TrimSpace(line.SourceText) == "" {
		return lineOutcome{missing: &MissingIngredient{SourceText: line.SourceText, Reason: ReasonEmptyLine}}
	}

	found, err := a.resolver.Lookup(ctx, line.SourceText)
	if err != nil {
		common.LogWarn("Failed to resolve ingredient line",
			zap.String("source_text", line.SourceText),
			zap.Error(err),
		)
		return lineOutcome{missing: &MissingIngredient{SourceText: line.SourceText, Reason: lookup.ErrorKind(err)}}
	}

	// 先把每 100 克數值定在一位小數，整數倍縮放後再四捨五入才會維持線性
	per100 := found.Nutrition.Round()
	q := ParseQuantity(line.QuantityText)
	grams := a.units.Grams(q, found.ReverseKey, found.NormalizedKey)
	out := &LineResult{
		SourceText:    line.SourceText,
		QuantityText:  line.QuantityText,
		NormalizedKey: found.NormalizedKey,
		Translation:   found.Translation,
		Provenance:    found.Provenance,
		Quantity:      q,
		Grams:         ingredient.Round1(grams),
		Nutrition:     per100.Scale(grams / 100).Round(),
	}
	if per100.IsZero() {
		return lineOutcome{
			result:  out,
			missing: &MissingIngredient{SourceText: line.SourceText, Reason: ReasonNoNutrition},
		}
	}
	return lineOutcome{result: out}
}
