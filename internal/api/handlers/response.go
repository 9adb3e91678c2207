package handlers

import (
	"errors"
	"net/http"

	"ingredient-engine/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// RespondError 將錯誤轉成統一的錯誤響應
func RespondError(c *gin.Context, err error) {
	custom := common.FromDomainError(err)
	if custom.Status >= http.StatusInternalServerError {
		common.LogError("Request error",
			zap.String("code", custom.Code),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", requestid.Get(c)),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(custom.Status, custom.Response(gin.IsDebugging()))
}

// RespondBindError 處理請求解析與欄位驗證錯誤
func RespondBindError(c *gin.Context, err error) {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, common.ErrRequestTooLarge.Response(false))
		return
	}

	resp := common.ErrInvalidRequest.WithErr(err)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		resp = resp.WithMessage("invalid field " + verrs[0].Namespace() + ": " + verrs[0].Tag())
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(resp.Status, resp.Response(gin.IsDebugging()))
}
