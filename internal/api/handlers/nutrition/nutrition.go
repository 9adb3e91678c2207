package nutrition

import (
	"context"
	"net/http"

	"ingredient-engine/internal/api/handlers"
	"ingredient-engine/internal/core/nutrition"

	"github.com/gin-gonic/gin"
)

// Calculator 營養彙總服務
type Calculator interface {
	Aggregate(ctx context.Context, lines []nutrition.Line, servings int) (*nutrition.Result, error)
}

// Handler 營養計算 API
type Handler struct {
	calculator Calculator
}

// NewHandler 創建營養計算處理器
func NewHandler(calculator Calculator) *Handler {
	return &Handler{calculator: calculator}
}

// IngredientLine 請求中的一行食材
type IngredientLine struct {
	SourceText   string `json:"source_text" binding:"max=200"`
	QuantityText string `json:"quantity_text" binding:"max=50"`
}

// CalculateRequest 營養計算請求
type CalculateRequest struct {
	Ingredients []IngredientLine `json:"ingredients" binding:"required,min=1,max=100,dive"`
	Servings    int              `json:"servings" binding:"gte=0,lte=1000"`
}

// HandleCalculate POST /api/v1/nutrition/calculate
func (h *Handler) HandleCalculate(c *gin.Context) {
	var req CalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.RespondBindError(c, err)
		return
	}

	lines := make([]nutrition.Line, len(req.Ingredients))
	for i, ing := range req.Ingredients {
		lines[i] = nutrition.Line{SourceText: ing.SourceText, QuantityText: ing.QuantityText}
	}

	res, err := h.calculator.Aggregate(c.Request.Context(), lines, req.Servings)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
