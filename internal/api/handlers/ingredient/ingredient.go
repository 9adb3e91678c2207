package ingredient

import (
	"context"
	"net/http"

	"ingredient-engine/internal/api/handlers"
	"ingredient-engine/internal/core/ingredient"
	"ingredient-engine/internal/core/lookup"

	"github.com/gin-gonic/gin"
)

// Resolver 食材查詢服務
type Resolver interface {
	Lookup(ctx context.Context, sourceText string) (*lookup.Result, error)
}

// Handler 食材相關 API
type Handler struct {
	resolver Resolver
}

// NewHandler 創建食材處理器
func NewHandler(resolver Resolver) *Handler {
	return &Handler{resolver: resolver}
}

// LookupRequest 查詢請求
type LookupRequest struct {
	SourceText string `json:"source_text" binding:"required,max=200"`
}

// NormalizeResponse 正規化結果
type NormalizeResponse struct {
	SourceText    string `json:"source_text"`
	NormalizedKey string `json:"normalized_key"`
}

// HandleLookup POST /api/v1/ingredients/lookup
func (h *Handler) HandleLookup(c *gin.Context) {
	var req LookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.RespondBindError(c, err)
		return
	}

	res, err := h.resolver.Lookup(c.Request.Context(), req.SourceText)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// HandleNormalize POST /api/v1/ingredients/normalize
func (h *Handler) HandleNormalize(c *gin.Context) {
	var req LookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.RespondBindError(c, err)
		return
	}

	key := ingredient.Normalize(req.SourceText)
	if key == "" {
		handlers.RespondError(c, ingredient.NewInvalidIngredientError(req.SourceText, "no usable characters"))
		return
	}
	c.JSON(http.StatusOK, NormalizeResponse{SourceText: req.SourceText, NormalizedKey: key})
}
